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

package archive

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/pierrec/lz4/v4"
	"github.com/stretchr/testify/require"
	"github.com/ulikunitz/xz"

	"github.com/nyotadb/vbase/internal/vbaseio"
)

func TestArchiveJournalProducesReadableLZ4(t *testing.T) {
	root := t.TempDir()
	archiveDir := filepath.Join(t.TempDir(), "archived")

	dir, err := (vbaseio.Local{}).OpenRootDir(root, true)
	require.NoError(t, err)
	want := []byte("some journal bytes, repeated some journal bytes")
	require.NoError(t, dir.WriteFile("journal-1", want))

	require.NoError(t, ArchiveJournal(dir, "journal-1", archiveDir))

	f, err := os.Open(filepath.Join(archiveDir, "journal-1.lz4"))
	require.NoError(t, err)
	defer f.Close()
	got, err := io.ReadAll(lz4.NewReader(f))
	require.NoError(t, err)
	require.Equal(t, want, got)
}

func TestArchiveManifestProducesReadableXZ(t *testing.T) {
	root := t.TempDir()
	archiveDir := filepath.Join(t.TempDir(), "archived")

	dir, err := (vbaseio.Local{}).OpenRootDir(root, true)
	require.NoError(t, err)
	want := []byte("some manifest bytes")
	require.NoError(t, dir.WriteFile("manifest-1", want))

	require.NoError(t, ArchiveManifest(dir, "manifest-1", archiveDir))

	f, err := os.Open(filepath.Join(archiveDir, "manifest-1.xz"))
	require.NoError(t, err)
	defer f.Close()
	xr, err := xz.NewReader(f)
	require.NoError(t, err)
	got, err := io.ReadAll(xr)
	require.NoError(t, err)
	require.Equal(t, want, got)
}

func TestArchiveJournalMissingSourceIsIOError(t *testing.T) {
	root := t.TempDir()
	dir, err := (vbaseio.Local{}).OpenRootDir(root, true)
	require.NoError(t, err)
	err = ArchiveJournal(dir, "journal-missing", t.TempDir())
	require.Error(t, err)
}
