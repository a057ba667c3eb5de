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

package skiplist

import (
	"bytes"
	"fmt"
	"sort"
	"sync"
	"testing"

	"github.com/nyotadb/vbase/internal/arena"
)

func newTestList(t *testing.T) *Skiplist {
	t.Helper()
	return New(arena.New(1<<20, 8))
}

func TestInsertAndGet(t *testing.T) {
	sl := newTestList(t)
	sl.Insert([]byte("banana"), []byte("1"))
	sl.Insert([]byte("apple"), []byte("2"))
	sl.Insert([]byte("cherry"), []byte("3"))

	v, ok := sl.Get([]byte("apple"))
	if !ok || string(v) != "2" {
		t.Fatalf("Get(apple) = %q, %v", v, ok)
	}
	if _, ok := sl.Get([]byte("missing")); ok {
		t.Fatal("expected Get(missing) to fail")
	}
}

func TestIteratorAscendingOrder(t *testing.T) {
	sl := newTestList(t)
	keys := []string{"delta", "alpha", "charlie", "bravo", "echo"}
	for _, k := range keys {
		sl.Insert([]byte(k), []byte(k))
	}
	sorted := append([]string(nil), keys...)
	sort.Strings(sorted)

	it := sl.NewIterator()
	it.SeekToFirst()
	var got []string
	for it.Valid() {
		got = append(got, string(it.Key()))
		it.Next()
	}
	if len(got) != len(sorted) {
		t.Fatalf("got %d keys, want %d", len(got), len(sorted))
	}
	for i := range sorted {
		if got[i] != sorted[i] {
			t.Fatalf("position %d: got %q, want %q", i, got[i], sorted[i])
		}
	}
}

func TestSeekFindsFirstGreaterOrEqual(t *testing.T) {
	sl := newTestList(t)
	for _, k := range []string{"b", "d", "f", "h"} {
		sl.Insert([]byte(k), []byte(k))
	}
	it := sl.NewIterator()
	it.Seek([]byte("e"))
	if !it.Valid() || string(it.Key()) != "f" {
		t.Fatalf("Seek(e) landed on %q", it.Key())
	}
	it.Seek([]byte("z"))
	if it.Valid() {
		t.Fatalf("Seek(z) should be past the end, got %q", it.Key())
	}
}

func TestDuplicateKeysAreAllPreserved(t *testing.T) {
	sl := newTestList(t)
	for i := 0; i < 5; i++ {
		sl.Insert([]byte("dup"), []byte(fmt.Sprintf("v%d", i)))
	}
	it := sl.NewIterator()
	it.SeekToFirst()
	count := 0
	for it.Valid() && bytes.Equal(it.Key(), []byte("dup")) {
		count++
		it.Next()
	}
	if count != 5 {
		t.Fatalf("got %d duplicates, want 5", count)
	}
}

func TestConcurrentInsertsYieldSortedCompleteSet(t *testing.T) {
	sl := newTestList(t)
	const goroutines = 8
	const perGoroutine = 500
	var wg sync.WaitGroup
	for g := 0; g < goroutines; g++ {
		g := g
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perGoroutine; i++ {
				key := fmt.Sprintf("%02d-%04d", g, i)
				sl.Insert([]byte(key), []byte{byte(g)})
			}
		}()
	}
	wg.Wait()

	it := sl.NewIterator()
	it.SeekToFirst()
	var prev []byte
	count := 0
	for it.Valid() {
		if prev != nil && bytes.Compare(prev, it.Key()) > 0 {
			t.Fatalf("out of order: %q came after %q", it.Key(), prev)
		}
		prev = append([]byte(nil), it.Key()...)
		count++
		it.Next()
	}
	if count != goroutines*perGoroutine {
		t.Fatalf("got %d entries, want %d", count, goroutines*perGoroutine)
	}
}
