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

// Package arena implements a concurrent bump-pointer allocator, the
// backing store for skiplist nodes. Fast-path allocation is a single
// atomic fetch-add; once the preallocated buffer is exhausted, allocation
// falls back to a mutex-guarded bump allocator over additional blocks.
// The caller is responsible for keeping the Arena (and therefore the
// memory behind every slice it returned) alive for as long as those
// slices are referenced — same discipline as the skip list and memtable
// built on top of it.
package arena

import (
	"sync"
	"sync/atomic"
)

const defaultFallbackBlockSize = 1 << 16 // 64 KiB

// Arena is a preallocated, aligned byte pool.
type Arena struct {
	align uint32

	buf []byte
	n   atomic.Uint32

	mu       sync.Mutex
	fallback []byte
	fallOff  uint32
}

// New creates an Arena with the given capacity and alignment. align must
// be a power of two; it is rounded up to 8 if smaller, since every
// allocation must be at least pointer-aligned.
func New(size int, align uint32) *Arena {
	if align < 8 {
		align = 8
	}
	return &Arena{align: align, buf: make([]byte, size)}
}

func alignUp(n, align uint32) uint32 {
	return (n + align - 1) &^ (align - 1)
}

// Alloc returns a zeroed, aligned slice whose length is size rounded up to
// the arena's alignment. It never
// blocks unless the preallocated buffer is already exhausted, in which
// case it takes the fallback mutex.
func (a *Arena) Alloc(size int) []byte {
	sz := alignUp(uint32(size), a.align)
	end := a.n.Add(sz)
	start := end - sz
	if end <= uint32(len(a.buf)) {
		return a.buf[start:end:end]
	}
	return a.allocFallback(sz)
}

func (a *Arena) allocFallback(sz uint32) []byte {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.fallOff+sz > uint32(len(a.fallback)) {
		blockSize := sz
		if blockSize < defaultFallbackBlockSize {
			blockSize = defaultFallbackBlockSize
		}
		a.fallback = make([]byte, blockSize)
		a.fallOff = 0
	}
	b := a.fallback[a.fallOff : a.fallOff+sz : a.fallOff+sz]
	a.fallOff += sz
	return b
}

// Size reports the number of bytes handed out from the fast-path buffer
// so far, for diagnostics.
func (a *Arena) Size() uint32 {
	n := a.n.Load()
	if n > uint32(len(a.buf)) {
		return uint32(len(a.buf))
	}
	return n
}

// Cap reports the fast-path buffer's capacity.
func (a *Arena) Cap() int { return len(a.buf) }
