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

// Package tree is the one concrete storage engine this module ships: a
// memtable-only key/value engine per bucket, backed by internal/skiplist
// and internal/arena, with bucket membership tracked in an engine-local
// manifest (manifest.go).
//
// The on-disk SSTable format, compaction and flush policy are explicitly
// out of scope (spec.md §1): this engine never flushes its memtable to
// disk. Its LastLSN is therefore an in-memory watermark that resets to
// zero on every process restart, which is still correct under the
// recovery protocol's idempotence contract — a fresh Tree simply replays
// every journal record addressed to it from the beginning — just not
// performant. A production SSTable layer would persist a flushed LSN in
// the manifest to bound replay.
package tree

import (
	"sync"
	"sync/atomic"

	"github.com/google/btree"

	"github.com/nyotadb/vbase/engine"
	"github.com/nyotadb/vbase/internal/archive"
	"github.com/nyotadb/vbase/internal/manifestpb"
	"github.com/nyotadb/vbase/internal/vbaseio"
	"github.com/nyotadb/vbase/internal/verrors"
)

func bucketLess(a, b *Bucket) bool { return a.id < b.id }

func newBucketIndex() *btree.BTreeG[*Bucket] {
	return btree.NewG(32, bucketLess)
}

// Options configures a tree engine Factory.
type Options struct {
	// MemtableBytes sizes each bucket's arena. Zero uses a 4 MiB default.
	MemtableBytes int
	// ManifestArchiveDir, if set, compresses a copy of each superseded
	// manifest file into this directory (spec §4.N); the original file
	// stays in the engine directory.
	ManifestArchiveDir string
}

// NewFactory returns an engine.Factory that opens tree engines configured
// with opts.
func NewFactory(opts Options) engine.Factory {
	return func(id uint64, name string, dir vbaseio.Dir) (engine.Handle, error) {
		return open(id, name, dir, opts)
	}
}

// Tree is the concrete engine.Handle this package provides.
//
// The bucket_id -> bucket index (spec.md §1: "an array of (bucket_id ->
// skip-list-head) pointers kept sorted and replaced copy-on-write") is a
// google/btree.BTreeG cloned and swapped through an atomic pointer:
// Write's hot path — looking up the bucket a record addresses — takes no
// lock at all, only an atomic load and a tree lookup, while the rare
// CreateBucket/DeleteBucket admin path pays the cost of a clone.
type Tree struct {
	id   uint64
	name string
	dir  vbaseio.Dir

	manifest *manifestLog
	lastLSN  atomic.Uint64

	buckets atomic.Pointer[btree.BTreeG[*Bucket]]

	// mu serializes the rare admin path: a manifest edit plus the
	// corresponding copy-on-write swap of buckets and byName must appear
	// atomic to concurrent CreateBucket/DeleteBucket callers, even though
	// concurrent readers never take this lock.
	mu     sync.Mutex
	byName map[string]uint64

	memtableBytes int
}

func open(id uint64, name string, dir vbaseio.Dir, opts Options) (*Tree, error) {
	ml, err := openManifestLog(dir)
	if err != nil {
		return nil, err
	}
	if opts.ManifestArchiveDir != "" {
		archiveDir := opts.ManifestArchiveDir
		ml.archive = func(oldName string) error {
			return archive.ArchiveManifest(dir, oldName, archiveDir)
		}
	}

	t := &Tree{
		id:            id,
		name:          name,
		dir:           dir,
		manifest:      ml,
		byName:        map[string]uint64{},
		memtableBytes: opts.MemtableBytes,
	}

	desc := ml.snapshot()
	idx := newBucketIndex()
	for _, bd := range desc.Buckets {
		b := &Bucket{id: bd.ID, name: bd.Name, mt: newMemtable(opts.MemtableBytes)}
		idx.ReplaceOrInsert(b)
		t.byName[bd.Name] = bd.ID
	}
	t.buckets.Store(idx)
	return t, nil
}

func (t *Tree) ID() uint64   { return t.id }
func (t *Tree) Name() string { return t.name }

func (t *Tree) LastLSN() uint64 { return t.lastLSN.Load() }

// Write decodes payload as a tree BatchBuilder wire record and applies it
// to the addressed bucket's memtable. It is idempotent for lsn <=
// LastLSN(), as spec.md §4.I requires: a write whose lsn has already been
// absorbed is a no-op rather than re-applying (harmless either way, since
// re-inserting the same vid into the skip list simply creates a duplicate
// entry at the same version, but skipping avoids unbounded memtable growth
// on a re-delivered record).
func (t *Tree) Write(lsn uint64, payload []byte) error {
	for {
		cur := t.lastLSN.Load()
		if lsn <= cur {
			return nil
		}
		bucketID, records, err := decodeBucketBatch(t.name, payload)
		if err != nil {
			return err
		}
		b, ok := t.buckets.Load().Get(&Bucket{id: bucketID})
		if !ok {
			return verrors.Corrupted(t.name, "batch addresses unknown bucket id")
		}
		for _, rec := range records {
			b.mt.put(rec.id, lsn, rec.kind, rec.value)
		}
		if t.lastLSN.CompareAndSwap(cur, lsn) {
			return nil
		}
	}
}

// Bucket returns the bucket registered under name, or NotExist.
func (t *Tree) Bucket(name string) (any, error) {
	t.mu.Lock()
	id, ok := t.byName[name]
	t.mu.Unlock()
	if !ok {
		return nil, verrors.NotExist(name)
	}
	b, ok := t.buckets.Load().Get(&Bucket{id: id})
	if !ok {
		return nil, verrors.NotExist(name)
	}
	return b, nil
}

// CreateBucket registers a new bucket named name, durably recording it in
// the engine-local manifest before making it visible.
func (t *Tree) CreateBucket(name string) (any, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.byName[name]; ok {
		return nil, verrors.Exists(name)
	}

	desc := t.manifest.snapshot()
	id := desc.LastBucketID + 1
	edit := &manifestpb.TreeEdit{
		Kind:      manifestpb.EditAddBucket,
		AddBucket: manifestpb.BucketDescriptor{ID: id, Name: name},
	}
	if err := t.manifest.appendEdit(edit); err != nil {
		return nil, err
	}

	b := &Bucket{id: id, name: name, mt: newMemtable(t.memtableBytes)}
	next := t.buckets.Load().Clone()
	next.ReplaceOrInsert(b)
	t.buckets.Store(next)
	t.byName[name] = id
	return b, nil
}

// DeleteBucket removes a bucket by name, NotExist if it was never created
// or was already deleted.
func (t *Tree) DeleteBucket(name string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	id, ok := t.byName[name]
	if !ok {
		return verrors.NotExist(name)
	}
	if err := t.manifest.appendEdit(&manifestpb.TreeEdit{
		Kind:           manifestpb.EditDeleteBucket,
		DeleteBucketID: id,
	}); err != nil {
		return err
	}
	next := t.buckets.Load().Clone()
	next.Delete(&Bucket{id: id})
	t.buckets.Store(next)
	delete(t.byName, name)
	return nil
}

func (t *Tree) Close() error {
	return t.manifest.close()
}

// BucketCount reports the number of live buckets, for the status server
// (spec.md §4.O) to report alongside last_lsn. It is not part of the
// engine.Handle capability set the core requires; callers that want it
// type-assert for it.
func (t *Tree) BucketCount() int {
	return t.buckets.Load().Len()
}
