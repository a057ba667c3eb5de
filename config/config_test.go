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

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/nyotadb/vbase"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadParsesHumanReadableJournalFileSize(t *testing.T) {
	path := writeFile(t, t.TempDir(), "vbase.json", `{
		"journal_file_size": "64MiB",
		"journal_archive_dir": "/var/lib/vbase/archive",
		"status_addr": "127.0.0.1:9999",
		"engines": ["kv"]
	}`)

	opts, builder, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, int64(64<<20), opts.JournalFileSize)
	require.Equal(t, "/var/lib/vbase/archive", opts.JournalArchiveDir)
	require.Equal(t, "127.0.0.1:9999", opts.StatusAddr)
	require.Equal(t, vbase.BackendLocal, opts.FilesystemBackend)

	require.Contains(t, builder.Engines, "kv")
	require.Nil(t, builder.Engines["kv"])
}

func TestLoadDefaultsToLocalBackend(t *testing.T) {
	path := writeFile(t, t.TempDir(), "vbase.json", `{}`)
	opts, _, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, vbase.BackendLocal, opts.FilesystemBackend)
	require.Equal(t, int64(0), opts.JournalFileSize)
}

func TestLoadRejectsUnknownBackend(t *testing.T) {
	path := writeFile(t, t.TempDir(), "vbase.json", `{"filesystem_backend": "tape"}`)
	_, _, err := Load(path)
	require.Error(t, err)
}

func TestLoadRejectsMalformedSize(t *testing.T) {
	path := writeFile(t, t.TempDir(), "vbase.json", `{"journal_file_size": "not a size"}`)
	_, _, err := Load(path)
	require.Error(t, err)
}

func TestLoadMissingFile(t *testing.T) {
	_, _, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
}

func TestWatchReloadsOnRenameOverWrite(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "vbase.json", `{"status_addr": "127.0.0.1:1"}`)

	changes := make(chan vbase.Options, 4)
	stop, err := Watch(path, func(o vbase.Options) { changes <- o })
	require.NoError(t, err)
	defer stop()

	// Simulate an editor's rename-over-write: write to a temp file in the
	// same directory, then rename it over the watched path.
	tmp := filepath.Join(dir, "vbase.json.tmp")
	require.NoError(t, os.WriteFile(tmp, []byte(`{"status_addr": "127.0.0.1:2"}`), 0o644))
	require.NoError(t, os.Rename(tmp, path))

	select {
	case o := <-changes:
		require.Equal(t, "127.0.0.1:2", o.StatusAddr)
	case <-time.After(2 * time.Second):
		t.Fatal("Watch did not observe the rename-over-write")
	}
}

func TestWatchStopIsIdempotent(t *testing.T) {
	path := writeFile(t, t.TempDir(), "vbase.json", `{}`)
	stop, err := Watch(path, func(vbase.Options) {})
	require.NoError(t, err)
	stop()
	stop()
}
