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

package manifestpb

import (
	"encoding/binary"
	"hash/crc32"

	"github.com/nyotadb/vbase/internal/verrors"
)

// EngineDescriptor mirrors proto/root.proto's message of the same name.
type EngineDescriptor struct {
	ID   uint64
	Name string
}

// RootManifest mirrors proto/root.proto's RootManifest.
type RootManifest struct {
	LastID  uint64
	Engines []EngineDescriptor
}

func (e *EngineDescriptor) marshal() []byte {
	var buf []byte
	buf = appendVarintField(buf, 1, e.ID)
	buf = appendBytesField(buf, 2, []byte(e.Name))
	return buf
}

func unmarshalEngineDescriptor(name string, data []byte) (EngineDescriptor, error) {
	var e EngineDescriptor
	r := &fieldReader{name: name, b: data}
	for r.more() {
		field, wireType, err := r.tag()
		if err != nil {
			return e, err
		}
		switch field {
		case 1:
			v, err := r.varint()
			if err != nil {
				return e, err
			}
			e.ID = v
		case 2:
			b, err := r.bytes()
			if err != nil {
				return e, err
			}
			e.Name = string(b)
		default:
			if err := r.skip(wireType); err != nil {
				return e, err
			}
		}
	}
	return e, nil
}

// Marshal serializes m to protobuf wire bytes, without the crc32 trailer
// the root manifest file carries on disk.
func (m *RootManifest) Marshal() []byte {
	var buf []byte
	buf = appendVarintField(buf, 1, m.LastID)
	for i := range m.Engines {
		buf = appendBytesField(buf, 2, m.Engines[i].marshal())
	}
	return buf
}

// UnmarshalRootManifest parses the bare protobuf bytes (no trailer).
func UnmarshalRootManifest(name string, data []byte) (*RootManifest, error) {
	m := &RootManifest{}
	r := &fieldReader{name: name, b: data}
	for r.more() {
		field, wireType, err := r.tag()
		if err != nil {
			return nil, err
		}
		switch field {
		case 1:
			v, err := r.varint()
			if err != nil {
				return nil, err
			}
			m.LastID = v
		case 2:
			b, err := r.bytes()
			if err != nil {
				return nil, err
			}
			e, err := unmarshalEngineDescriptor(name, b)
			if err != nil {
				return nil, err
			}
			m.Engines = append(m.Engines, e)
		default:
			if err := r.skip(wireType); err != nil {
				return nil, err
			}
		}
	}
	return m, nil
}

// MarshalWithCRC appends a little-endian crc32 trailer, matching the
// on-disk root manifest format.
func (m *RootManifest) MarshalWithCRC() []byte {
	data := m.Marshal()
	var trailer [4]byte
	binary.LittleEndian.PutUint32(trailer[:], crc32.ChecksumIEEE(data))
	return append(data, trailer[:]...)
}

// UnmarshalRootManifestWithCRC verifies and strips the trailer before
// parsing. name is the file path, used to decorate a Corrupted error.
func UnmarshalRootManifestWithCRC(name string, data []byte) (*RootManifest, error) {
	if len(data) < 4 {
		return nil, verrors.Corrupted(name, "manifest shorter than its crc32 trailer")
	}
	body, trailer := data[:len(data)-4], data[len(data)-4:]
	want := binary.LittleEndian.Uint32(trailer)
	got := crc32.ChecksumIEEE(body)
	if got != want {
		return nil, verrors.Corrupted(name, "crc32 mismatch")
	}
	return UnmarshalRootManifest(name, body)
}
