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

package pipeline

import (
	"sync"
	"testing"
)

func TestSingleWritePublishes(t *testing.T) {
	p := New(0)
	h := p.Submit(1)
	p.Commit(h)
	if p.LastLSN() != 1 {
		t.Fatalf("LastLSN() = %d, want 1", p.LastLSN())
	}
}

func TestOutOfOrderCommitStillPublishesInLSNOrder(t *testing.T) {
	p := New(0)
	h1 := p.Submit(1)
	h2 := p.Submit(2)
	h3 := p.Submit(3)

	// Commit the middle write first; it cannot publish past LSN 1.
	done := make(chan struct{})
	go func() {
		p.Commit(h2)
		close(done)
	}()
	// Whether or not the goroutine has reached h2's own publication yet,
	// committing h1 lets both 1 and 2 be published.
	p.Commit(h1)
	<-done
	if p.LastLSN() != 2 {
		t.Fatalf("LastLSN() = %d, want 2 after draining 1 and 2", p.LastLSN())
	}
	p.Commit(h3)
	if p.LastLSN() != 3 {
		t.Fatalf("LastLSN() = %d, want 3", p.LastLSN())
	}
}

func TestLastLSNIsMonotonic(t *testing.T) {
	p := New(0)
	const n = 200
	handles := make([]Handle, n)
	for i := 0; i < n; i++ {
		handles[i] = p.Submit(uint64(i + 1))
	}
	var wg sync.WaitGroup
	var mu sync.Mutex
	var observed []uint64
	wg.Add(n)
	for i := 0; i < n; i++ {
		i := i
		go func() {
			defer wg.Done()
			p.Commit(handles[i])
			mu.Lock()
			observed = append(observed, p.LastLSN())
			mu.Unlock()
		}()
	}
	wg.Wait()
	prev := uint64(0)
	for _, v := range observed {
		if v < prev {
			t.Fatalf("LastLSN went backwards: %d after %d", v, prev)
		}
		prev = v
	}
	if p.LastLSN() != n {
		t.Fatalf("final LastLSN() = %d, want %d", p.LastLSN(), n)
	}
}
