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
	"testing"

	"github.com/nyotadb/vbase/internal/verrors"
)

func TestBatchBuilderRoundTrip(t *testing.T) {
	payload := NewBatchBuilder(7).
		Put([]byte("k1"), []byte("v1")).
		Delete([]byte("k2")).
		Put([]byte("k3"), []byte("v3")).
		Bytes()

	bucketID, records, err := decodeBucketBatch("journal-1", payload)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if bucketID != 7 {
		t.Fatalf("bucketID = %d, want 7", bucketID)
	}
	if len(records) != 3 {
		t.Fatalf("got %d records, want 3", len(records))
	}
	if records[0].kind != recordValue || string(records[0].id) != "k1" || string(records[0].value) != "v1" {
		t.Fatalf("record 0 = %+v", records[0])
	}
	if records[1].kind != recordTombstone || string(records[1].id) != "k2" {
		t.Fatalf("record 1 = %+v", records[1])
	}
}

func TestDecodeBucketBatchMissingSentinel(t *testing.T) {
	payload := NewBatchBuilder(1).Put([]byte("k"), []byte("v")).Bytes()
	_, _, err := decodeBucketBatch("journal-1", payload[:len(payload)-1])
	if !verrors.Is(err, verrors.KindCorrupted) {
		t.Fatalf("expected Corrupted, got %v", err)
	}
}

func TestBatchBuilderEmpty(t *testing.T) {
	bucketID, records, err := decodeBucketBatch("journal-1", NewBatchBuilder(3).Bytes())
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if bucketID != 3 || len(records) != 0 {
		t.Fatalf("got (%d, %v), want (3, [])", bucketID, records)
	}
}
