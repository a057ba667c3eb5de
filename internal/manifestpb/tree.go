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

// BucketDescriptor mirrors proto/tree.proto's message of the same name.
type BucketDescriptor struct {
	ID   uint64
	Name string
}

// TreeDescriptor mirrors proto/tree.proto's TreeDescriptor: the full
// snapshot an engine-local manifest opens with.
type TreeDescriptor struct {
	LastBucketID uint64
	Buckets      []BucketDescriptor
}

func (b *BucketDescriptor) marshal() []byte {
	var buf []byte
	buf = appendVarintField(buf, 1, b.ID)
	buf = appendBytesField(buf, 2, []byte(b.Name))
	return buf
}

func unmarshalBucketDescriptor(name string, data []byte) (BucketDescriptor, error) {
	var b BucketDescriptor
	r := &fieldReader{name: name, b: data}
	for r.more() {
		field, wireType, err := r.tag()
		if err != nil {
			return b, err
		}
		switch field {
		case 1:
			v, err := r.varint()
			if err != nil {
				return b, err
			}
			b.ID = v
		case 2:
			nb, err := r.bytes()
			if err != nil {
				return b, err
			}
			b.Name = string(nb)
		default:
			if err := r.skip(wireType); err != nil {
				return b, err
			}
		}
	}
	return b, nil
}

func (d *TreeDescriptor) Marshal() []byte {
	var buf []byte
	buf = appendVarintField(buf, 1, d.LastBucketID)
	for i := range d.Buckets {
		buf = appendBytesField(buf, 2, d.Buckets[i].marshal())
	}
	return buf
}

func UnmarshalTreeDescriptor(name string, data []byte) (*TreeDescriptor, error) {
	d := &TreeDescriptor{}
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
			d.LastBucketID = v
		case 2:
			b, err := r.bytes()
			if err != nil {
				return nil, err
			}
			bd, err := unmarshalBucketDescriptor(name, b)
			if err != nil {
				return nil, err
			}
			d.Buckets = append(d.Buckets, bd)
		default:
			if err := r.skip(wireType); err != nil {
				return nil, err
			}
		}
	}
	return d, nil
}

// EditKind discriminates TreeEdit's oneof.
type EditKind int

const (
	EditAddBucket EditKind = iota
	EditDeleteBucket
)

// TreeEdit mirrors proto/tree.proto's TreeEdit oneof.
type TreeEdit struct {
	Kind           EditKind
	AddBucket      BucketDescriptor
	DeleteBucketID uint64
}

func (e *TreeEdit) Marshal() []byte {
	var buf []byte
	switch e.Kind {
	case EditAddBucket:
		buf = appendBytesField(buf, 1, e.AddBucket.marshal())
	case EditDeleteBucket:
		buf = appendVarintField(buf, 2, e.DeleteBucketID)
	}
	return buf
}

func UnmarshalTreeEdit(name string, data []byte) (*TreeEdit, error) {
	e := &TreeEdit{}
	r := &fieldReader{name: name, b: data}
	for r.more() {
		field, wireType, err := r.tag()
		if err != nil {
			return nil, err
		}
		switch field {
		case 1:
			b, err := r.bytes()
			if err != nil {
				return nil, err
			}
			bd, err := unmarshalBucketDescriptor(name, b)
			if err != nil {
				return nil, err
			}
			e.Kind = EditAddBucket
			e.AddBucket = bd
		case 2:
			v, err := r.varint()
			if err != nil {
				return nil, err
			}
			e.Kind = EditDeleteBucket
			e.DeleteBucketID = v
		default:
			if err := r.skip(wireType); err != nil {
				return nil, err
			}
		}
	}
	return e, nil
}
