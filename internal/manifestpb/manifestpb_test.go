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
	"reflect"
	"testing"

	"github.com/nyotadb/vbase/internal/verrors"
)

func TestRootManifestRoundTrip(t *testing.T) {
	want := &RootManifest{
		LastID: 7,
		Engines: []EngineDescriptor{
			{ID: 1, Name: "tree"},
			{ID: 2, Name: "blob"},
		},
	}
	data := want.MarshalWithCRC()
	got, err := UnmarshalRootManifestWithCRC("MANIFEST", data)
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !reflect.DeepEqual(want, got) {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestRootManifestEmpty(t *testing.T) {
	want := &RootManifest{}
	data := want.MarshalWithCRC()
	got, err := UnmarshalRootManifestWithCRC("MANIFEST", data)
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.LastID != 0 || len(got.Engines) != 0 {
		t.Fatalf("got %+v, want empty", got)
	}
}

func TestRootManifestCRCMismatch(t *testing.T) {
	data := (&RootManifest{LastID: 3}).MarshalWithCRC()
	data[0] ^= 0xFF
	_, err := UnmarshalRootManifestWithCRC("MANIFEST", data)
	if !verrors.Is(err, verrors.KindCorrupted) {
		t.Fatalf("expected Corrupted, got %v", err)
	}
}

func TestTreeDescriptorRoundTrip(t *testing.T) {
	want := &TreeDescriptor{
		LastBucketID: 42,
		Buckets: []BucketDescriptor{
			{ID: 1, Name: "default"},
			{ID: 2, Name: "users"},
		},
	}
	got, err := UnmarshalTreeDescriptor("manifest-1", want.Marshal())
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !reflect.DeepEqual(want, got) {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestTreeEditRoundTripAddAndDelete(t *testing.T) {
	add := &TreeEdit{Kind: EditAddBucket, AddBucket: BucketDescriptor{ID: 5, Name: "metrics"}}
	gotAdd, err := UnmarshalTreeEdit("manifest-1", add.Marshal())
	if err != nil {
		t.Fatalf("unmarshal add: %v", err)
	}
	if !reflect.DeepEqual(add, gotAdd) {
		t.Fatalf("got %+v, want %+v", gotAdd, add)
	}

	del := &TreeEdit{Kind: EditDeleteBucket, DeleteBucketID: 5}
	gotDel, err := UnmarshalTreeEdit("manifest-1", del.Marshal())
	if err != nil {
		t.Fatalf("unmarshal delete: %v", err)
	}
	if !reflect.DeepEqual(del, gotDel) {
		t.Fatalf("got %+v, want %+v", gotDel, del)
	}
}

func TestUnknownFieldsAreSkipped(t *testing.T) {
	// field 99, varint wire type, value 123, followed by a legal field 1.
	var buf []byte
	buf = appendVarintField(buf, 99, 123)
	buf = appendVarintField(buf, 1, 17)
	m, err := UnmarshalRootManifest("MANIFEST", buf)
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if m.LastID != 17 {
		t.Fatalf("LastID = %d, want 17", m.LastID)
	}
}
