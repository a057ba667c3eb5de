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
	"encoding/binary"
)

// A vid key is a record id paired with the LSN that wrote it, encoded as
// varint(len(id)) || id || big-endian lsn. The skip list orders these with
// compareVidKeys rather than bytes.Compare: a length-prefixed id followed
// immediately by an 8-byte suffix is not safely comparable by flat byte
// concatenation whenever one id is a byte-prefix of another, so the
// comparator decodes both fields before comparing them.
func encodeVidKey(id []byte, lsn uint64) []byte {
	var tmp [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(tmp[:], uint64(len(id)))
	buf := make([]byte, 0, n+len(id)+8)
	buf = append(buf, tmp[:n]...)
	buf = append(buf, id...)
	var lsnBuf [8]byte
	binary.BigEndian.PutUint64(lsnBuf[:], lsn)
	return append(buf, lsnBuf[:]...)
}

func decodeVidKey(key []byte) (id []byte, lsn uint64) {
	l, n := binary.Uvarint(key)
	id = key[n : n+int(l)]
	lsn = binary.BigEndian.Uint64(key[n+int(l):])
	return id, lsn
}

// compareVidKeys orders keys ascending by id, then descending by lsn, so a
// Seek to (id, maxLSN) lands on the newest version of id.
func compareVidKeys(a, b []byte) int {
	idA, lsnA := decodeVidKey(a)
	idB, lsnB := decodeVidKey(b)
	if c := bytes.Compare(idA, idB); c != 0 {
		return c
	}
	switch {
	case lsnA > lsnB:
		return -1
	case lsnA < lsnB:
		return 1
	default:
		return 0
	}
}
