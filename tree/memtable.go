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

package tree

import (
	"bytes"
	"math"

	"github.com/nyotadb/vbase/internal/arena"
	"github.com/nyotadb/vbase/internal/skiplist"
)

const defaultMemtableBytes = 4 << 20

// memtable is one bucket's in-memory write buffer: a lock-free skip list
// keyed by (id, lsn) allocated from its own arena.
type memtable struct {
	arena *arena.Arena
	list  *skiplist.Skiplist
}

func newMemtable(bytes int) *memtable {
	if bytes <= 0 {
		bytes = defaultMemtableBytes
	}
	a := arena.New(bytes, 8)
	return &memtable{arena: a, list: skiplist.NewWithComparator(a, compareVidKeys)}
}

func (m *memtable) put(id []byte, lsn uint64, kind byte, value []byte) {
	stored := make([]byte, 0, 1+len(value))
	stored = append(stored, kind)
	stored = append(stored, value...)
	m.list.Insert(encodeVidKey(id, lsn), stored)
}

// get returns the most recent version of id, if any. tombstoned reports
// whether that version is a deletion rather than a value.
func (m *memtable) get(id []byte) (value []byte, found, tombstoned bool) {
	it := m.list.NewIterator()
	it.Seek(encodeVidKey(id, math.MaxUint64))
	if !it.Valid() {
		return nil, false, false
	}
	gotID, _ := decodeVidKey(it.Key())
	if !bytes.Equal(gotID, id) {
		return nil, false, false
	}
	stored := it.Value()
	if stored[0] == recordTombstone {
		return nil, true, true
	}
	return stored[1:], true, false
}
