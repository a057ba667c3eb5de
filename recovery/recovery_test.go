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

package recovery

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nyotadb/vbase/engine"
	"github.com/nyotadb/vbase/internal/journal"
	"github.com/nyotadb/vbase/internal/vbaseio"
	"github.com/nyotadb/vbase/internal/verrors"
)

type fakeEngine struct {
	id uint64

	mu    sync.Mutex
	last  uint64
	calls []uint64
}

func (f *fakeEngine) ID() uint64   { return f.id }
func (f *fakeEngine) Name() string { return "fake" }

func (f *fakeEngine) Write(lsn uint64, payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, lsn)
	if lsn > f.last {
		f.last = lsn
	}
	return nil
}

func (f *fakeEngine) LastLSN() uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.last
}

func (f *fakeEngine) Bucket(string) (any, error)       { return nil, nil }
func (f *fakeEngine) CreateBucket(string) (any, error) { return nil, nil }
func (f *fakeEngine) DeleteBucket(string) error        { return nil }
func (f *fakeEngine) Close() error                     { return nil }

var _ engine.Handle = (*fakeEngine)(nil)

func newTestDir(t *testing.T) vbaseio.Dir {
	t.Helper()
	dir, err := (vbaseio.Local{}).OpenRootDir(t.TempDir(), true)
	require.NoError(t, err)
	return dir
}

func writeJournal(t *testing.T, dir vbaseio.Dir, name string, records [][]byte) {
	t.Helper()
	w, err := dir.CreateSequentialFile(name)
	require.NoError(t, err)
	jw := journal.NewWriter(name, w)
	for _, rec := range records {
		require.NoError(t, jw.Begin())
		_, err := jw.Append(rec)
		require.NoError(t, err)
		require.NoError(t, jw.Finish())
	}
	require.NoError(t, jw.Close())
}

func lsnRecord(lsn uint64, entries []engine.Entry) []byte {
	var buf [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(buf[:], lsn)
	rec := append([]byte(nil), buf[:n]...)
	return append(rec, engine.EncodeBatch(entries)...)
}

func TestRecoverNoEnginesCreatesFreshJournal(t *testing.T) {
	dir := newTestDir(t)
	res, err := Recover(dir, nil, "")
	require.NoError(t, err)
	require.Equal(t, uint64(0), res.Cursor)
	require.Equal(t, "journal-1", res.NewJournal)

	names, err := dir.List()
	require.NoError(t, err)
	require.Contains(t, names, "journal-1")
}

func TestRecoverDispatchesOnlyToLaggingEngines(t *testing.T) {
	dir := newTestDir(t)
	lagging := &fakeEngine{id: 1, last: 0}
	caughtUp := &fakeEngine{id: 2, last: 2}

	writeJournal(t, dir, "journal-1", [][]byte{
		lsnRecord(1, []engine.Entry{{EngineID: 1, Payload: []byte("a")}, {EngineID: 2, Payload: []byte("a")}}),
		lsnRecord(2, []engine.Entry{{EngineID: 1, Payload: []byte("b")}, {EngineID: 2, Payload: []byte("b")}}),
		lsnRecord(3, []engine.Entry{{EngineID: 1, Payload: []byte("c")}, {EngineID: 2, Payload: []byte("c")}}),
	})

	res, err := Recover(dir, []engine.Handle{lagging, caughtUp}, "")
	require.NoError(t, err)
	require.Equal(t, uint64(3), res.Cursor)
	require.Equal(t, []uint64{1, 2, 3}, lagging.calls)
	require.Equal(t, []uint64{3}, caughtUp.calls)
}

func TestRecoverDetectsLSNGap(t *testing.T) {
	dir := newTestDir(t)
	e := &fakeEngine{id: 1}

	writeJournal(t, dir, "journal-1", [][]byte{
		lsnRecord(1, []engine.Entry{{EngineID: 1, Payload: []byte("a")}}),
		lsnRecord(3, []engine.Entry{{EngineID: 1, Payload: []byte("c")}}),
	})

	_, err := Recover(dir, []engine.Handle{e}, "")
	require.Error(t, err)
	require.True(t, verrors.Is(err, verrors.KindCorrupted))
	require.Contains(t, err.Error(), "unexpected LSN 3, the previous LSN is 1")
}

func TestRecoverFailsWhenJournalsMissing(t *testing.T) {
	dir := newTestDir(t)
	lagging := &fakeEngine{id: 1, last: 0}
	ahead := &fakeEngine{id: 2, last: 5}

	// Only enough journal survives to bring the laggard to LSN 2; whatever
	// carried it the rest of the way to 5 is gone.
	writeJournal(t, dir, "journal-1", [][]byte{
		lsnRecord(1, []engine.Entry{{EngineID: 1, Payload: []byte("a")}}),
		lsnRecord(2, []engine.Entry{{EngineID: 1, Payload: []byte("b")}}),
	})

	_, err := Recover(dir, []engine.Handle{lagging, ahead}, "")
	require.Error(t, err)
	require.True(t, verrors.Is(err, verrors.KindCorrupted))
	require.Contains(t, err.Error(), "journals missing")
}

func TestRecoverArchivesReplayedJournals(t *testing.T) {
	dir := newTestDir(t)
	archiveDir := filepath.Join(t.TempDir(), "archived")
	e := &fakeEngine{id: 1}

	writeJournal(t, dir, "journal-1", [][]byte{
		lsnRecord(1, []engine.Entry{{EngineID: 1, Payload: []byte("a")}}),
	})

	_, err := Recover(dir, []engine.Handle{e}, archiveDir)
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(archiveDir, "journal-1.lz4"))
	require.NoError(t, err)

	names, err := dir.List()
	require.NoError(t, err)
	require.NotContains(t, names, "journal-1")
}

func TestRecoverDiscardsSupersededCheckpointWithoutReadingIt(t *testing.T) {
	dir := newTestDir(t)
	e := &fakeEngine{id: 1, last: 2}

	// journal-1 predates the checkpoint (journal-2) and is garbage on
	// purpose: recovery must discard it on id alone, never open it.
	require.NoError(t, dir.WriteFile("journal-1", []byte("not a journal frame")))

	writeJournal(t, dir, "journal-2", [][]byte{
		lsnRecord(1, []engine.Entry{{EngineID: 1, Payload: []byte("a")}}),
		lsnRecord(2, []engine.Entry{{EngineID: 1, Payload: []byte("b")}}),
	})
	writeJournal(t, dir, "journal-3", [][]byte{
		lsnRecord(3, []engine.Entry{{EngineID: 1, Payload: []byte("c")}}),
	})

	res, err := Recover(dir, []engine.Handle{e}, "")
	require.NoError(t, err)
	require.Equal(t, uint64(3), res.Cursor)
	require.Equal(t, []uint64{3}, e.calls)

	names, err := dir.List()
	require.NoError(t, err)
	require.NotContains(t, names, "journal-1")
	require.NotContains(t, names, "journal-2")
	require.NotContains(t, names, "journal-3")
	require.Contains(t, names, "journal-4")
}
