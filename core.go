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

// Package vbase is the top-level core coordinator (spec.md §4.H): it owns
// the root directory lock, the root manifest, the engine registry, the
// journal writer and the write pipeline, and is the only thing a caller
// embeds directly. Every concrete engine, filesystem backend and codec
// lives in its own package below this one; the core only ever sees the
// engine.Handle and vbaseio.Dir interfaces.
package vbase

import (
	"encoding/binary"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/nyotadb/vbase/engine"
	"github.com/nyotadb/vbase/internal/journal"
	"github.com/nyotadb/vbase/internal/pipeline"
	"github.com/nyotadb/vbase/internal/vbaseio"
	"github.com/nyotadb/vbase/internal/verrors"
	"github.com/nyotadb/vbase/recovery"
	"github.com/nyotadb/vbase/statussrv"
)

type bucketCounter interface{ BucketCount() int }

func journalFileName(id uint64) string { return fmt.Sprintf("journal-%d", id) }

// Core is a single opened database instance.
type Core struct {
	dir  vbaseio.Dir
	lock vbaseio.LockedFile

	opts Options

	registry   *registry
	enginesByID map[uint64]engine.Handle

	mu         sync.Mutex // guards the journal append + LSN assignment
	journalOut vbaseio.SequentialWriter
	journal    *journal.Writer
	nextLSN    uint64

	pipeline *pipeline.Pipeline
	status   *statussrv.Server

	log func(format string, args ...any)
}

func (c *Core) engineStatuses() []statussrv.EngineStatus {
	entries := c.registry.all()
	out := make([]statussrv.EngineStatus, 0, len(entries))
	for _, e := range entries {
		buckets := 0
		if bc, ok := e.handle.(bucketCounter); ok {
			buckets = bc.BucketCount()
		}
		out = append(out, statussrv.EngineStatus{Name: e.name, Buckets: buckets})
	}
	return out
}

// Open opens or creates the database rooted at path on fs, validating
// options and builder, reconciling registered engines against the root
// manifest, running recovery, and leaving the instance ready to accept
// Write calls. See spec.md §4.H.
func Open(fs vbaseio.FS, path string, opts Options, builder BuilderOptions) (*Core, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	if err := builder.validate(); err != nil {
		return nil, err
	}

	dir, err := fs.OpenRootDir(path, !builder.ErrorIfNotExists)
	if err != nil {
		if vbaseio.IsNotExist(err) {
			return nil, verrors.NotExist(path)
		}
		return nil, verrors.IO(path, err)
	}

	lock, err := dir.LockFile(rootLockFile)
	if err != nil {
		if vbaseio.IsWouldBlock(err) {
			return nil, verrors.Locked(path)
		}
		return nil, verrors.IO(rootLockFile, err)
	}
	ok := false
	defer func() {
		if !ok {
			lock.Close()
		}
	}()

	manifest, fresh, err := openOrCreateManifest(dir, builder)
	if err != nil {
		return nil, err
	}

	idToName, err := reconcileEngines(manifest, builder)
	if err != nil {
		return nil, err
	}
	if !fresh || len(manifest.Engines) > 0 {
		if err := writeManifest(dir, manifest); err != nil {
			return nil, err
		}
	}

	if err := cleanupUncommittedEngineDirs(dir, idToName); err != nil {
		return nil, err
	}

	c := &Core{
		dir:         dir,
		lock:        lock,
		opts:        opts,
		registry:    newRegistry(),
		enginesByID: make(map[uint64]engine.Handle, len(idToName)),
		log:         func(format string, args ...any) { fmt.Fprintf(opts.logWriter(), format+"\n", args...) },
	}

	if err := c.openEngines(idToName, builder); err != nil {
		return nil, err
	}

	handles := make([]engine.Handle, 0, len(c.enginesByID))
	for _, h := range c.enginesByID {
		handles = append(handles, h)
	}

	c.log("recovery: starting, %d engine(s)", len(handles))
	result, err := recovery.Recover(dir, handles, opts.JournalArchiveDir)
	if err != nil {
		return nil, err
	}
	c.log("recovery: done, cursor=%d, new journal %s", result.Cursor, result.NewJournal)

	c.pipeline = pipeline.New(result.Cursor)
	c.nextLSN = result.Cursor

	out, err := dir.CreateSequentialFile(result.NewJournal)
	if err != nil {
		return nil, verrors.IO(result.NewJournal, err)
	}
	c.journalOut = out
	c.journal = journal.NewWriter(result.NewJournal, out)

	if opts.StatusAddr != "" {
		c.status = statussrv.New(c.engineStatuses)
		if err := c.status.Start(opts.StatusAddr); err != nil {
			return nil, verrors.IO(opts.StatusAddr, err)
		}
	}

	ok = true
	return c, nil
}

func (c *Core) openEngines(idToName map[uint64]string, builder BuilderOptions) error {
	var g errgroup.Group
	var mu sync.Mutex

	for id, name := range idToName {
		id, name := id, name
		factory, ok := builder.Engines[name]
		if !ok {
			return verrors.InvalidArgument(fmt.Sprintf("engine %q has no registered factory", name))
		}
		g.Go(func() error {
			edir, err := c.dir.CreateDir(engineDirName(id))
			if err != nil {
				return verrors.IO(engineDirName(id), err)
			}
			handle, err := factory(id, name, edir)
			if err != nil {
				return err
			}
			mu.Lock()
			c.enginesByID[id] = handle
			mu.Unlock()
			c.registry.register(name, handle)
			return nil
		})
	}
	return g.Wait()
}

// LastLSN returns the most recently published LSN: every Write up to and
// including it has been appended to the journal and has finished its
// engine dispatch. The append is fsynced only for writes made with
// WriteOptions.Sync.
func (c *Core) LastLSN() uint64 {
	return c.pipeline.LastLSN()
}

// Write appends entries as a single batch, assigns it the next LSN,
// records it in the journal (fsyncing the append when opts.Sync is set),
// then dispatches it concurrently to
// every named engine. See spec.md §4.H write().
func (c *Core) Write(entries []engine.Entry, opts WriteOptions) (uint64, error) {
	payload := engine.EncodeBatch(entries)

	c.mu.Lock()
	lsn := c.nextLSN + 1

	if c.journal.Size() > c.opts.journalFileSize() {
		if err := c.rotateJournalLocked(lsn); err != nil {
			c.mu.Unlock()
			return 0, err
		}
	}

	var lsnBuf [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(lsnBuf[:], lsn)

	if err := c.journal.Begin(); err != nil {
		c.mu.Unlock()
		return 0, err
	}
	if _, err := c.journal.Append(lsnBuf[:n]); err != nil {
		c.mu.Unlock()
		return 0, err
	}
	if _, err := c.journal.Append(payload); err != nil {
		c.mu.Unlock()
		return 0, err
	}
	if err := c.journal.Finish(); err != nil {
		c.mu.Unlock()
		return 0, err
	}
	if opts.Sync {
		if err := c.journal.Sync(); err != nil {
			c.mu.Unlock()
			return 0, err
		}
	}

	h := c.pipeline.Submit(lsn)
	c.nextLSN = lsn
	c.mu.Unlock()

	var g errgroup.Group
	for _, e := range entries {
		e := e
		handle, ok := c.enginesByID[e.EngineID]
		if !ok {
			continue
		}
		g.Go(func() error { return handle.Write(lsn, e.Payload) })
	}
	writeErr := g.Wait()

	c.pipeline.Commit(h)
	if c.status != nil {
		c.status.Notify(c.pipeline.LastLSN())
	}

	return lsn, writeErr
}

// rotateJournalLocked seals the active journal and switches to a fresh
// one named for nextLSN, per spec.md §9: "on exceeding the cap, allocate
// journal-<next_lsn> under the same lock, seal the previous file, and
// switch." Called with mu already held.
func (c *Core) rotateJournalLocked(nextLSN uint64) error {
	if err := c.journal.Close(); err != nil {
		return err
	}
	name := journalFileName(nextLSN)
	out, err := c.dir.CreateSequentialFile(name)
	if err != nil {
		return verrors.IO(name, err)
	}
	c.journalOut = out
	c.journal = journal.NewWriter(name, out)
	c.log("journal: rotated to %s", name)
	return nil
}

// EngineID returns the manifest-assigned id of the named engine, for
// building engine.Entry values to pass to Write.
func (c *Core) EngineID(engineName string) (uint64, bool) {
	h, ok := c.registry.lookup(engineName)
	if !ok {
		return 0, false
	}
	return h.ID(), true
}

// Bucket locates engineName's bucket named name and returns its opaque
// handle, for the caller to downcast to the engine's concrete bucket type.
func (c *Core) Bucket(engineName, name string) (any, error) {
	h, ok := c.registry.lookup(engineName)
	if !ok {
		return nil, verrors.NotExist(engineName)
	}
	return h.Bucket(name)
}

// CreateBucket creates engineName's bucket named name and returns its
// opaque handle. The tree engine fails with Exists if the bucket is
// already present.
func (c *Core) CreateBucket(engineName, name string) (any, error) {
	h, ok := c.registry.lookup(engineName)
	if !ok {
		return nil, verrors.NotExist(engineName)
	}
	return h.CreateBucket(name)
}

// DeleteBucket removes name from engineName.
func (c *Core) DeleteBucket(engineName, name string) error {
	h, ok := c.registry.lookup(engineName)
	if !ok {
		return verrors.NotExist(engineName)
	}
	return h.DeleteBucket(name)
}

// Close flushes and closes the active journal, closes every engine, then
// releases the root lock. Engines are closed concurrently; the journal
// (first) and the lock (last) are each closed on their own, since they
// guard the whole instance rather than any one engine.
func (c *Core) Close() error {
	if c.status != nil {
		c.status.Close()
	}

	if err := c.journal.Close(); err != nil {
		return err
	}

	var g errgroup.Group
	for _, h := range c.enginesByID {
		h := h
		g.Go(h.Close)
	}
	if err := g.Wait(); err != nil {
		c.lock.Close()
		return err
	}

	return c.lock.Close()
}
