/*
Copyright (C) 2026  vbase contributors

    This program is free software: you can redistribute it and/or modify
    it under the terms of the GNU General Public License as published by
    the Free Software Foundation, either version 3 of the License, or
    (at your option) any later version.

    This program is distributed in the hope that it will be useful,
    but WITHOUT ANY WARRANTY; without even the implied warranty of
    MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
    GNU General Public License for more details.

    You should have received a copy of the GNU General Public License
    along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/

// Package skiplist implements a lock-free, multi-reader multi-writer skip
// list over opaque byte-slice keys, ordered by bytes.Compare by default.
// Callers with a composite order that plain byte concatenation cannot
// express safely (e.g. ascending id, descending LSN, where the id itself
// varies in length) supply their own comparator via NewWithComparator; the
// list itself never interprets a key.
//
// Node backing bytes are copied into an arena.Arena, but the node struct
// and its next-pointer array are ordinary Go allocations using
// sync/atomic's generic Pointer type for CAS, rather than the raw-pointer
// offset tricks a non-GC'd language needs: Go's garbage collector already
// keeps a node reachable for as long as any next-pointer references it,
// and an arena that can fall back to additional blocks (internal/arena)
// cannot support one flat offset space anyway.
package skiplist

import (
	"bytes"
	"math/rand/v2"
	"sync/atomic"

	"github.com/nyotadb/vbase/internal/arena"
)

const (
	maxHeight = 16
	// Each level survives into the next with probability 1/4.
	branching = 4
)

type node struct {
	key, value []byte
	next       []atomic.Pointer[node]
}

// Skiplist is safe for concurrent inserts and reads. Height grows
// monotonically and is never reduced.
type Skiplist struct {
	arena  *arena.Arena
	head   *node
	height atomic.Int32
	cmp    func(a, b []byte) int
}

// New creates an empty skip list backed by a, ordered by bytes.Compare. A
// single arena may back only one skip list, since the list never frees
// what it allocates.
func New(a *arena.Arena) *Skiplist {
	return NewWithComparator(a, bytes.Compare)
}

// NewWithComparator is like New but orders keys with cmp instead of
// bytes.Compare. Callers whose composite keys are not comparable by plain
// byte concatenation (for example a variable-length id packed next to a
// fixed-width version suffix, where a short id that is a byte-prefix of a
// longer one would otherwise sort in the wrong place) supply a comparator
// that decodes and compares the components explicitly.
func NewWithComparator(a *arena.Arena, cmp func(a, b []byte) int) *Skiplist {
	sl := &Skiplist{
		arena: a,
		head:  &node{next: make([]atomic.Pointer[node], maxHeight)},
		cmp:   cmp,
	}
	sl.height.Store(1)
	return sl
}

func randomHeight() int {
	h := 1
	for h < maxHeight && rand.N(branching) == 0 {
		h++
	}
	return h
}

func (s *Skiplist) newNode(key, value []byte, height int) *node {
	k := s.arena.Alloc(len(key))[:len(key)]
	copy(k, key)
	v := s.arena.Alloc(len(value))[:len(value)]
	copy(v, value)
	return &node{key: k, value: v, next: make([]atomic.Pointer[node], height)}
}

// findSpliceForLevel walks forward from start at a single level, returning
// the last node with key < target and the first node with key >= target.
func (s *Skiplist) findSpliceForLevel(start *node, level int, key []byte) (prev, next *node) {
	prev = start
	for {
		next = prev.next[level].Load()
		if next == nil || s.cmp(next.key, key) >= 0 {
			return prev, next
		}
		prev = next
	}
}

// findSplice computes, for every level from the list's current height down
// to zero, the {prev, next} pair bracketing key.
func (s *Skiplist) findSplice(key []byte) (prevs, nexts [maxHeight]*node) {
	x := s.head
	for level := int(s.height.Load()) - 1; level >= 0; level-- {
		p, n := s.findSpliceForLevel(x, level, key)
		prevs[level], nexts[level] = p, n
		x = p
	}
	return
}

// bumpHeight raises the list's recorded height toward h if it is not
// already at least that tall.
func (s *Skiplist) bumpHeight(h int) {
	for {
		cur := int(s.height.Load())
		if h <= cur {
			return
		}
		if s.height.CompareAndSwap(int32(cur), int32(h)) {
			return
		}
	}
}

// Insert adds (key, value) to the list. Duplicate keys are permitted; a
// later Insert of an equal key is placed adjacent to, not on top of, the
// earlier one, so a caller that needs "last write wins" must encode that
// into the key (e.g. a descending version suffix).
func (s *Skiplist) Insert(key, value []byte) {
	height := randomHeight()
	s.bumpHeight(height)
	prevs, nexts := s.findSplice(key)
	n := s.newNode(key, value, height)
	for level := 0; level < height; level++ {
		n.next[level].Store(nexts[level])
		for !prevs[level].next[level].CompareAndSwap(nexts[level], n) {
			p, nx := s.findSpliceForLevel(s.head, level, key)
			prevs[level], nexts[level] = p, nx
			n.next[level].Store(nx)
		}
	}
}

// seek returns the first node at or after key, descending from the
// current top level.
func (s *Skiplist) seek(key []byte) *node {
	x := s.head
	for level := int(s.height.Load()) - 1; level >= 0; level-- {
		for {
			candidate := x.next[level].Load()
			if candidate == nil || s.cmp(candidate.key, key) >= 0 {
				break
			}
			x = candidate
		}
	}
	return x.next[0].Load()
}

// Get returns the value stored for an exact key match, if any. Callers
// whose keys carry an embedded version should seek for the version prefix
// instead of calling Get directly.
func (s *Skiplist) Get(key []byte) ([]byte, bool) {
	n := s.seek(key)
	if n != nil && s.cmp(n.key, key) == 0 {
		return n.value, true
	}
	return nil, false
}

// Iterator walks the list in ascending key order starting at level 0.
type Iterator struct {
	list *Skiplist
	cur  *node
}

// NewIterator returns an iterator positioned before the first element.
func (s *Skiplist) NewIterator() *Iterator {
	return &Iterator{list: s}
}

// SeekToFirst positions the iterator at the smallest key.
func (it *Iterator) SeekToFirst() {
	it.cur = it.list.head.next[0].Load()
}

// Seek positions the iterator at the first key >= target.
func (it *Iterator) Seek(target []byte) {
	it.cur = it.list.seek(target)
}

// Valid reports whether the iterator is positioned on an element.
func (it *Iterator) Valid() bool { return it.cur != nil }

// Next advances the iterator. It is a no-op once exhausted.
func (it *Iterator) Next() {
	if it.cur != nil {
		it.cur = it.cur.next[0].Load()
	}
}

func (it *Iterator) Key() []byte   { return it.cur.key }
func (it *Iterator) Value() []byte { return it.cur.value }
