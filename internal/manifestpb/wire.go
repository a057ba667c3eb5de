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

// Package manifestpb encodes and decodes the messages defined in
// proto/root.proto and proto/tree.proto using the plain protobuf wire
// format (varint and length-delimited fields only — neither schema uses
// fixed32/fixed64 or packed repeated scalars). There is no protoc
// available to generate real google.golang.org/protobuf bindings here, and
// hand-maintaining a full proto.Message implementation without codegen is
// more failure-prone than a small hand-rolled encoder for five messages,
// so this package reads and writes the wire bytes directly with
// encoding/binary.
package manifestpb

import (
	"encoding/binary"

	"github.com/nyotadb/vbase/internal/verrors"
)

const (
	wireVarint = 0
	wireBytes  = 2
)

func appendTag(buf []byte, field int, wireType byte) []byte {
	return appendVarint(buf, uint64(field)<<3|uint64(wireType))
}

func appendVarint(buf []byte, v uint64) []byte {
	var tmp [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(tmp[:], v)
	return append(buf, tmp[:n]...)
}

func appendVarintField(buf []byte, field int, v uint64) []byte {
	buf = appendTag(buf, field, wireVarint)
	return appendVarint(buf, v)
}

func appendBytesField(buf []byte, field int, b []byte) []byte {
	buf = appendTag(buf, field, wireBytes)
	buf = appendVarint(buf, uint64(len(b)))
	return append(buf, b...)
}

// fieldReader walks a message's encoded bytes one field at a time.
type fieldReader struct {
	name string // for Corrupted error messages
	b    []byte
}

func (r *fieldReader) more() bool { return len(r.b) > 0 }

func (r *fieldReader) tag() (field int, wireType byte, err error) {
	tag, n := binary.Uvarint(r.b)
	if n <= 0 {
		return 0, 0, verrors.Corrupted(r.name, "truncated field tag")
	}
	r.b = r.b[n:]
	return int(tag >> 3), byte(tag & 7), nil
}

func (r *fieldReader) varint() (uint64, error) {
	v, n := binary.Uvarint(r.b)
	if n <= 0 {
		return 0, verrors.Corrupted(r.name, "truncated varint field")
	}
	r.b = r.b[n:]
	return v, nil
}

func (r *fieldReader) bytes() ([]byte, error) {
	ln, n := binary.Uvarint(r.b)
	if n <= 0 {
		return nil, verrors.Corrupted(r.name, "truncated length-delimited field")
	}
	r.b = r.b[n:]
	if uint64(len(r.b)) < ln {
		return nil, verrors.Corrupted(r.name, "length-delimited field overruns message")
	}
	out := r.b[:ln]
	r.b = r.b[ln:]
	return out, nil
}

// skip discards a field of the given wire type whose tag has already been
// consumed, for forward compatibility with unknown fields.
func (r *fieldReader) skip(wireType byte) error {
	switch wireType {
	case wireVarint:
		_, err := r.varint()
		return err
	case wireBytes:
		_, err := r.bytes()
		return err
	default:
		return verrors.Corrupted(r.name, "unsupported wire type")
	}
}
