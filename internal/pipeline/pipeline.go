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

// Package pipeline implements the write pipeline controller: it tracks
// which LSNs have been durably published, letting any goroutine that
// finishes committing its own write also drain and publish the writes
// ahead of it that finished first. Built directly on internal/ring.
package pipeline

import (
	"runtime"
	"sync/atomic"

	"github.com/nyotadb/vbase/internal/ring"
)

const ringCapacity = 1024

type write struct {
	lsn       uint64
	published atomic.Bool
}

// Pipeline publishes LSNs in strictly increasing order even though the
// writes that produced them may finish committing out of order.
type Pipeline struct {
	r         *ring.Ring[*write]
	published atomic.Uint64
}

// New creates a Pipeline whose last durable LSN is initialLSN.
func New(initialLSN uint64) *Pipeline {
	p := &Pipeline{r: ring.New[*write](ringCapacity)}
	p.published.Store(initialLSN)
	return p
}

// Handle is returned by Submit and passed back to Commit.
type Handle struct {
	w *write
	u ring.Undone[*write]
}

// Submit enqueues a pending write for lsn. The caller must have already
// appended lsn's journal record; Submit itself never touches the journal.
func (p *Pipeline) Submit(lsn uint64) Handle {
	w := &write{lsn: lsn}
	return Handle{w: w, u: p.r.Enqueue(w)}
}

// Commit marks h's write done, opportunistically drains and publishes any
// now-done writes at the head of the queue, then blocks until h itself
// has been published — which may happen as a side effect of another
// goroutine's drain, not this call's own.
func (p *Pipeline) Commit(h Handle) {
	h.u.Commit()
	p.drain()
	for !h.w.published.Load() {
		runtime.Gosched()
	}
}

// drain dequeues every currently-done slot at the tail, publishing its LSN
// via a monotonic-max CAS loop and flagging it published.
func (p *Pipeline) drain() {
	for {
		d, ok := p.r.Dequeue()
		if !ok {
			return
		}
		w := d.Value()
		p.publish(w.lsn)
		w.published.Store(true)
		d.Drop()
	}
}

func (p *Pipeline) publish(lsn uint64) {
	for {
		cur := p.published.Load()
		if lsn <= cur {
			return
		}
		if p.published.CompareAndSwap(cur, lsn) {
			return
		}
	}
}

// LastLSN returns the most recently published LSN.
func (p *Pipeline) LastLSN() uint64 {
	return p.published.Load()
}
