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

// Package ring implements a bounded, fixed-capacity SPMC ring buffer: one
// producer calls Enqueue, any number of goroutines call Dequeue. It is the
// queuing primitive underneath the write pipeline (internal/pipeline),
// which uses it to let any committing writer opportunistically publish the
// writes ahead of it in program order.
package ring

import (
	"runtime"
	"sync/atomic"
)

// doneBit marks a slot's pending value as fully written; the low 16 bits
// of a slot's count hold its reference count (always 0, 1 or 2: the
// producer's Undone handle and a pre-reserved consumer claim).
const doneBit = 1 << 16

type slot[T any] struct {
	value T
	count atomic.Uint32
}

// Ring is safe for one concurrent producer and any number of concurrent
// consumers.
type Ring[T any] struct {
	mask  uint32
	slots []slot[T]
	// state packs head (high 32 bits, next enqueue position) and tail
	// (low 32 bits, next dequeue position) so both advance with a single
	// atomic operation. Both counters grow without wrapping; only the
	// slot index (counter & mask) wraps.
	state atomic.Uint64
}

func pack(head, tail uint32) uint64 { return uint64(head)<<32 | uint64(tail) }

func unpack(s uint64) (head, tail uint32) { return uint32(s >> 32), uint32(s) }

// New creates a ring with capacity n, which must be a power of two.
func New[T any](n int) *Ring[T] {
	if n <= 0 || n&(n-1) != 0 {
		panic("ring: capacity must be a power of two")
	}
	r := &Ring[T]{mask: uint32(n - 1), slots: make([]slot[T], n)}
	for i := range r.slots {
		r.slots[i].count.Store(doneBit) // every slot starts Free.
	}
	return r
}

// Undone is returned by Enqueue. The producer must eventually call Commit
// exactly once to make the slot visible to Dequeue.
type Undone[T any] struct {
	r   *Ring[T]
	idx uint32
}

// Enqueue blocks (spin-yielding) until the ring has room and the target
// slot has been fully drained by a previous consumer, then stores v.
func (r *Ring[T]) Enqueue(v T) Undone[T] {
	for {
		cur := r.state.Load()
		head, tail := unpack(cur)
		if head-tail == uint32(len(r.slots)) {
			runtime.Gosched()
			continue
		}
		idx := head & r.mask
		s := &r.slots[idx]
		if s.count.Load() != doneBit {
			runtime.Gosched()
			continue
		}
		s.value = v
		// Undone-in-use: DONE clear, refs=2 (this handle + a pre-reserved
		// consumer claim, so Dequeue need not CAS the refcount itself).
		s.count.Store(2)
		for {
			c2 := r.state.Load()
			_, t2 := unpack(c2)
			if r.state.CompareAndSwap(c2, pack(head+1, t2)) {
				break
			}
		}
		return Undone[T]{r: r, idx: idx}
	}
}

// Commit flips the slot's DONE bit and releases the producer's own
// reference, making the slot eligible for Dequeue.
func (u Undone[T]) Commit() {
	u.r.slots[u.idx].count.Add(doneBit - 1)
}

// Done is returned by a successful Dequeue. Drop must be called exactly
// once to release the consumer's reference and let the slot be reused.
type Done[T any] struct {
	r   *Ring[T]
	idx uint32
	val T
}

// Value returns the dequeued value.
func (d Done[T]) Value() T { return d.val }

// Drop releases the consumer's reference on the slot.
func (d Done[T]) Drop() {
	d.r.slots[d.idx].count.Add(^uint32(0)) // -1
}

// Dequeue removes and returns the value at the tail if it is present and
// fully committed. It returns ok=false if the ring is empty or the tail
// slot's producer has not yet called Commit — the caller should not skip
// ahead, since publication order must follow FIFO order.
func (r *Ring[T]) Dequeue() (Done[T], bool) {
	for {
		cur := r.state.Load()
		head, tail := unpack(cur)
		if head == tail {
			return Done[T]{}, false
		}
		idx := tail & r.mask
		s := &r.slots[idx]
		if s.count.Load()&doneBit == 0 {
			return Done[T]{}, false
		}
		if r.state.CompareAndSwap(cur, pack(head, tail+1)) {
			return Done[T]{r: r, idx: idx, val: s.value}, true
		}
	}
}
