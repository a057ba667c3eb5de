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

// Package recovery replays the journal into a set of already-opened
// engines, skipping whatever each engine has already durably absorbed
// (spec.md §4.G). It is the only place journal files are deleted or
// archived and new ones created on open.
package recovery

import (
	"encoding/binary"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/nyotadb/vbase/engine"
	"github.com/nyotadb/vbase/internal/archive"
	"github.com/nyotadb/vbase/internal/journal"
	"github.com/nyotadb/vbase/internal/vbaseio"
	"github.com/nyotadb/vbase/internal/verrors"
)

func journalName(id uint64) string { return fmt.Sprintf("journal-%d", id) }

func journalID(name string) (uint64, bool) {
	rest, ok := strings.CutPrefix(name, "journal-")
	if !ok {
		return 0, false
	}
	id, err := strconv.ParseUint(rest, 10, 64)
	return id, err == nil
}

// Result carries what Recover learned, for the core coordinator to build
// the pipeline and journal writer on top of.
type Result struct {
	Cursor        uint64
	NewJournal    string
	NewJournalDir vbaseio.Dir
}

// Recover replays every kept journal file in dir into engines, in
// ascending journal id order. archiveDir, if non-empty, diverts fully
// replayed journals into a compressed archive instead of deleting them.
func Recover(dir vbaseio.Dir, engines []engine.Handle, archiveDir string) (Result, error) {
	if len(engines) == 0 {
		return finish(dir, 0, nil, archiveDir)
	}

	minLSN := engines[0].LastLSN()
	maxLSN := minLSN
	for _, e := range engines[1:] {
		if l := e.LastLSN(); l < minLSN {
			minLSN = l
		} else if l > maxLSN {
			maxLSN = l
		}
	}

	names, err := dir.List()
	if err != nil {
		return Result{}, verrors.IO(dir.Path(), err)
	}

	var ids []uint64
	for _, n := range names {
		if id, ok := journalID(n); ok {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	var checkpoint uint64
	haveCheckpoint := false
	var kept []uint64
	var discarded []uint64
	for _, id := range ids {
		if id <= minLSN {
			if haveCheckpoint {
				discarded = append(discarded, checkpoint)
			}
			checkpoint = id
			haveCheckpoint = true
			continue
		}
		kept = append(kept, id)
	}
	if haveCheckpoint {
		kept = append([]uint64{checkpoint}, kept...)
	}
	sort.Slice(kept, func(i, j int) bool { return kept[i] < kept[j] })

	// Journals strictly older than the checkpoint are already fully
	// superseded; a previous run may have crashed before cleaning them up.
	for _, id := range discarded {
		dir.DeleteFile(journalName(id))
	}

	engineByID := make(map[uint64]engine.Handle, len(engines))
	for _, e := range engines {
		engineByID[e.ID()] = e
	}

	cursor := minLSN
	for _, id := range kept {
		name := journalName(id)
		next, err := replayJournal(dir, name, minLSN, cursor, engineByID)
		if err != nil {
			return Result{}, err
		}
		cursor = next
	}

	if cursor < maxLSN {
		return Result{}, verrors.Corrupted(dir.Path(), "journals missing")
	}

	return finish(dir, cursor, kept, archiveDir)
}

func replayJournal(dir vbaseio.Dir, name string, minLSN, cursor uint64, engineByID map[uint64]engine.Handle) (uint64, error) {
	r, err := dir.OpenSequentialFile(name)
	if err != nil {
		return 0, verrors.IO(name, err)
	}
	defer r.Close()

	jr := journal.NewReader(name, r)
	for {
		rec, err := jr.Next()
		if err == io.EOF {
			return cursor, nil
		}
		if err != nil {
			return 0, err
		}

		lsn, n := binary.Uvarint(rec)
		if n <= 0 {
			return 0, verrors.Corrupted(name, "truncated record lsn")
		}
		if lsn <= minLSN {
			continue
		}
		if lsn != cursor+1 {
			return 0, verrors.Corrupted(name, fmt.Sprintf("unexpected LSN %d, the previous LSN is %d", lsn, cursor))
		}

		entries, err := engine.DecodeBatch(name, rec[n:])
		if err != nil {
			return 0, err
		}

		var g errgroup.Group
		for _, entry := range entries {
			e, ok := engineByID[entry.EngineID]
			if !ok {
				continue
			}
			if e.LastLSN() >= lsn {
				continue
			}
			entry := entry
			g.Go(func() error { return e.Write(lsn, entry.Payload) })
		}
		if err := g.Wait(); err != nil {
			return 0, err
		}
		cursor = lsn
	}
}

func finish(dir vbaseio.Dir, cursor uint64, replayed []uint64, archiveDir string) (Result, error) {
	for _, id := range replayed {
		name := journalName(id)
		if archiveDir != "" {
			if err := archive.ArchiveJournal(dir, name, archiveDir); err != nil {
				return Result{}, err
			}
		}
		if err := dir.DeleteFile(name); err != nil {
			return Result{}, verrors.IO(name, err)
		}
	}

	newName := journalName(cursor + 1)
	w, err := dir.CreateSequentialFile(newName)
	if err != nil {
		return Result{}, verrors.IO(newName, err)
	}
	if err := w.Close(); err != nil {
		return Result{}, verrors.IO(newName, err)
	}

	return Result{Cursor: cursor, NewJournal: newName, NewJournalDir: dir}, nil
}
