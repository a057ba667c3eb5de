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

// Bucket is the concrete type behind the opaque handles Engine.Bucket and
// Engine.CreateBucket return. The core never looks inside it; callers that
// hold a Bucket from this package downcast the any returned by the core's
// bucket lookup back to *Bucket themselves.
type Bucket struct {
	id   uint64
	name string
	mt   *memtable
}

func (b *Bucket) ID() uint64     { return b.id }
func (b *Bucket) Name() string   { return b.name }

// Get returns the current value for id, or found=false if id was never
// written or was last written as a tombstone.
func (b *Bucket) Get(id []byte) (value []byte, found bool) {
	v, found, tombstoned := b.mt.get(id)
	if !found || tombstoned {
		return nil, false
	}
	return v, true
}

// Batch starts a BatchBuilder addressed to this bucket, for the caller to
// fill in and hand to engine.Entry for a core.Write call.
func (b *Bucket) Batch() *BatchBuilder {
	return NewBatchBuilder(b.id)
}
