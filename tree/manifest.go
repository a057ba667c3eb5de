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
	"fmt"
	"io"
	"sync"

	"github.com/nyotadb/vbase/internal/idgen"
	"github.com/nyotadb/vbase/internal/journal"
	"github.com/nyotadb/vbase/internal/manifestpb"
	"github.com/nyotadb/vbase/internal/vbaseio"
	"github.com/nyotadb/vbase/internal/verrors"
)

// manifestMinRotateSize is the floor of the "max(2 x initial_size, 1MiB)"
// rotation threshold spec.md §4.F gives for the tree engine's manifest.
const manifestMinRotateSize = 1 << 20

// manifestLog is the tree engine's engine-local manifest (spec.md §4.F):
// CURRENT names the active manifest-<id> file, whose first record is a
// full TreeDescriptor snapshot and whose later records are TreeEdits.
type manifestLog struct {
	dir vbaseio.Dir
	mu  sync.Mutex

	desc manifestpb.TreeDescriptor

	currentName string
	w           *journal.Writer
	wc          vbaseio.SequentialWriter
	baseSize    int64 // on-disk size when w was opened
	initialSize int64 // size right after the file was created/rotated onto

	archive func(oldName string) error // optional, set by the tree Factory
}

func manifestFileName(id uint64) string { return fmt.Sprintf("manifest-%d", id) }

func openManifestLog(dir vbaseio.Dir) (*manifestLog, error) {
	m := &manifestLog{dir: dir}

	data, err := dir.ReadFile("CURRENT")
	if err != nil {
		if !vbaseio.IsNotExist(err) {
			return nil, verrors.IO("CURRENT", err)
		}
		return m, m.createFresh()
	}

	m.currentName = string(data)
	if err := m.loadCurrent(); err != nil {
		return nil, err
	}
	return m, m.openForAppend()
}

func (m *manifestLog) createFresh() error {
	m.currentName = manifestFileName(1)
	w, err := m.dir.CreateSequentialFile(m.currentName)
	if err != nil {
		return verrors.IO(m.currentName, err)
	}
	jw := journal.NewWriter(m.currentName, w)
	if err := writeDescriptorRecord(jw, &m.desc); err != nil {
		w.Close()
		return err
	}
	if err := jw.Sync(); err != nil {
		w.Close()
		return err
	}
	m.w, m.wc = jw, w
	m.baseSize, m.initialSize = jw.Size(), jw.Size()
	return m.writeCurrentPointer()
}

func (m *manifestLog) loadCurrent() error {
	r, err := m.dir.OpenSequentialFile(m.currentName)
	if err != nil {
		return verrors.IO(m.currentName, err)
	}
	defer r.Close()

	jr := journal.NewReader(m.currentName, r)
	first, err := jr.Next()
	if err != nil {
		return verrors.Corrupted(m.currentName, "missing initial descriptor record")
	}
	desc, err := manifestpb.UnmarshalTreeDescriptor(m.currentName, first)
	if err != nil {
		return err
	}
	m.desc = *desc

	for {
		rec, err := jr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		edit, err := manifestpb.UnmarshalTreeEdit(m.currentName, rec)
		if err != nil {
			return err
		}
		applyEdit(&m.desc, edit)
	}
	return nil
}

func (m *manifestLog) openForAppend() error {
	pf, err := m.dir.OpenPositionalFile(m.currentName)
	if err != nil {
		return verrors.IO(m.currentName, err)
	}
	size, err := pf.Size()
	pf.Close()
	if err != nil {
		return verrors.IO(m.currentName, err)
	}

	w, err := m.dir.CreateSequentialFile(m.currentName)
	if err != nil {
		return verrors.IO(m.currentName, err)
	}
	m.w = journal.NewWriter(m.currentName, w)
	m.wc = w
	m.baseSize = size
	m.initialSize = size
	return nil
}

func (m *manifestLog) writeCurrentPointer() error {
	tmp := "TEMP-" + idgen.New().String()
	if err := m.dir.WriteFile(tmp, []byte(m.currentName)); err != nil {
		return verrors.IO(tmp, err)
	}
	if err := m.dir.RenameFile(tmp, "CURRENT"); err != nil {
		return verrors.IO("CURRENT", err)
	}
	return nil
}

func writeDescriptorRecord(w *journal.Writer, desc *manifestpb.TreeDescriptor) error {
	if err := w.Begin(); err != nil {
		return err
	}
	if _, err := w.Append(desc.Marshal()); err != nil {
		return err
	}
	return w.Finish()
}

// applyEdit folds one TreeEdit into desc, mirroring the engine manifest's
// append-then-compact model: merge(merge(base, e1), e2) == merge(base,
// combined) for non-conflicting edits, since each add/delete only ever
// touches its own bucket id.
func applyEdit(desc *manifestpb.TreeDescriptor, edit *manifestpb.TreeEdit) {
	switch edit.Kind {
	case manifestpb.EditAddBucket:
		desc.Buckets = append(desc.Buckets, edit.AddBucket)
		if edit.AddBucket.ID > desc.LastBucketID {
			desc.LastBucketID = edit.AddBucket.ID
		}
	case manifestpb.EditDeleteBucket:
		for i, b := range desc.Buckets {
			if b.ID == edit.DeleteBucketID {
				desc.Buckets = append(desc.Buckets[:i], desc.Buckets[i+1:]...)
				break
			}
		}
	}
}

// appendEdit durably records edit and applies it to the in-memory
// descriptor, rotating to a fresh manifest file first if the active one
// has grown past its threshold.
func (m *manifestLog) appendEdit(edit *manifestpb.TreeEdit) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	threshold := 2 * m.initialSize
	if threshold < manifestMinRotateSize {
		threshold = manifestMinRotateSize
	}
	if m.w.Size() > threshold {
		if err := m.rotateLocked(); err != nil {
			return err
		}
	}

	if err := m.w.Begin(); err != nil {
		return err
	}
	if _, err := m.w.Append(edit.Marshal()); err != nil {
		return err
	}
	if err := m.w.Finish(); err != nil {
		return err
	}
	if err := m.w.Sync(); err != nil {
		return err
	}
	applyEdit(&m.desc, edit)
	return nil
}

func (m *manifestLog) rotateLocked() error {
	oldName := m.currentName
	if err := m.w.Close(); err != nil {
		return err
	}

	nextID, err := nextManifestID(m.currentName)
	if err != nil {
		return err
	}
	m.currentName = manifestFileName(nextID)

	w, err := m.dir.CreateSequentialFile(m.currentName)
	if err != nil {
		return verrors.IO(m.currentName, err)
	}
	jw := journal.NewWriter(m.currentName, w)
	if err := writeDescriptorRecord(jw, &m.desc); err != nil {
		w.Close()
		return err
	}
	if err := jw.Sync(); err != nil {
		w.Close()
		return err
	}
	m.w, m.wc = jw, w
	m.baseSize, m.initialSize = jw.Size(), jw.Size()

	if err := m.writeCurrentPointer(); err != nil {
		return err
	}
	if m.archive != nil {
		return m.archive(oldName)
	}
	return nil
}

func nextManifestID(name string) (uint64, error) {
	var id uint64
	if _, err := fmt.Sscanf(name, "manifest-%d", &id); err != nil {
		return 0, verrors.Corrupted(name, "unparseable manifest file name")
	}
	return id + 1, nil
}

func (m *manifestLog) snapshot() manifestpb.TreeDescriptor {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := m.desc
	out.Buckets = append([]manifestpb.BucketDescriptor(nil), m.desc.Buckets...)
	return out
}

func (m *manifestLog) close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.w.Close()
}
