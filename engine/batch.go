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

package engine

import (
	"encoding/binary"

	"github.com/nyotadb/vbase/internal/verrors"
)

// Entry addresses one engine's opaque payload within a write batch.
type Entry struct {
	EngineID uint64
	Payload  []byte
}

// EncodeBatch serializes entries as a sequence of
// (varint engine_id, varint len, bytes payload), matching the journal
// record's write-batch wire format. At most one Entry per engine id is
// meaningful; EncodeBatch does not itself enforce that, since it has no
// way to tell duplicate engine ids apart from a legitimate re-send.
func EncodeBatch(entries []Entry) []byte {
	var buf []byte
	var tmp [binary.MaxVarintLen64]byte
	for _, e := range entries {
		n := binary.PutUvarint(tmp[:], e.EngineID)
		buf = append(buf, tmp[:n]...)
		n = binary.PutUvarint(tmp[:], uint64(len(e.Payload)))
		buf = append(buf, tmp[:n]...)
		buf = append(buf, e.Payload...)
	}
	return buf
}

// DecodeBatch parses bytes produced by EncodeBatch. name decorates any
// Corrupted error with the journal record's logical origin.
func DecodeBatch(name string, data []byte) ([]Entry, error) {
	var entries []Entry
	for len(data) > 0 {
		id, n := binary.Uvarint(data)
		if n <= 0 {
			return nil, verrors.Corrupted(name, "truncated batch engine id")
		}
		data = data[n:]

		length, n := binary.Uvarint(data)
		if n <= 0 {
			return nil, verrors.Corrupted(name, "truncated batch payload length")
		}
		data = data[n:]

		if uint64(len(data)) < length {
			return nil, verrors.Corrupted(name, "batch payload overruns record")
		}
		entries = append(entries, Entry{EngineID: id, Payload: data[:length]})
		data = data[length:]
	}
	return entries, nil
}
