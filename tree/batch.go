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
	"encoding/binary"

	"github.com/nyotadb/vbase/internal/verrors"
)

const (
	recordValue     = byte(1)
	recordTombstone = byte(3)
	recordSentinel  = byte(0)
)

// BatchBuilder builds the tree engine's payload for one bucket within a
// write batch (spec §4.J): varint bucket_id, then a stream of value or
// tombstone records terminated by a zero byte.
type BatchBuilder struct {
	bucketID uint64
	records  []byte
}

// NewBatchBuilder starts a batch addressed to the given bucket id.
func NewBatchBuilder(bucketID uint64) *BatchBuilder {
	return &BatchBuilder{bucketID: bucketID}
}

func appendVarint(buf []byte, v uint64) []byte {
	var tmp [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(tmp[:], v)
	return append(buf, tmp[:n]...)
}

func appendField(buf []byte, b []byte) []byte {
	buf = appendVarint(buf, uint64(len(b)))
	return append(buf, b...)
}

// Put records a value write for id.
func (b *BatchBuilder) Put(id, value []byte) *BatchBuilder {
	b.records = append(b.records, recordValue)
	b.records = appendField(b.records, id)
	b.records = appendField(b.records, value)
	return b
}

// Delete records a tombstone for id.
func (b *BatchBuilder) Delete(id []byte) *BatchBuilder {
	b.records = append(b.records, recordTombstone)
	b.records = appendField(b.records, id)
	return b
}

// Bytes returns the encoded payload, ready to embed in an engine.Entry.
func (b *BatchBuilder) Bytes() []byte {
	buf := appendVarint(nil, b.bucketID)
	buf = append(buf, b.records...)
	return append(buf, recordSentinel)
}

type batchRecord struct {
	kind  byte
	id    []byte
	value []byte
}

func readField(name string, r []byte) (field, rest []byte, err error) {
	length, n := binary.Uvarint(r)
	if n <= 0 {
		return nil, nil, verrors.Corrupted(name, "truncated length-delimited batch field")
	}
	r = r[n:]
	if uint64(len(r)) < length {
		return nil, nil, verrors.Corrupted(name, "batch field overruns payload")
	}
	return r[:length], r[length:], nil
}

// decodeBucketBatch parses a BatchBuilder payload. name decorates any
// Corrupted error with the originating journal record.
func decodeBucketBatch(name string, payload []byte) (bucketID uint64, records []batchRecord, err error) {
	bucketID, n := binary.Uvarint(payload)
	if n <= 0 {
		return 0, nil, verrors.Corrupted(name, "truncated bucket id")
	}
	r := payload[n:]
	for {
		if len(r) == 0 {
			return 0, nil, verrors.Corrupted(name, "batch missing end sentinel")
		}
		kind := r[0]
		r = r[1:]
		switch kind {
		case recordSentinel:
			return bucketID, records, nil
		case recordValue:
			var id, value []byte
			if id, r, err = readField(name, r); err != nil {
				return 0, nil, err
			}
			if value, r, err = readField(name, r); err != nil {
				return 0, nil, err
			}
			records = append(records, batchRecord{kind: kind, id: id, value: value})
		case recordTombstone:
			var id []byte
			if id, r, err = readField(name, r); err != nil {
				return 0, nil, err
			}
			records = append(records, batchRecord{kind: kind, id: id})
		default:
			return 0, nil, verrors.Corrupted(name, "unknown batch record kind")
		}
	}
}
