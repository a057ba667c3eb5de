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

// Package archive implements the two optional compaction-time archivers
// (spec §4.M, §4.N): journals that recovery has fully replayed and
// manifest files a rotation has superseded are, instead of being deleted,
// copied out to a separate host directory compressed. Journals are
// replayed once and read sequentially, never randomly, so lz4 (fast
// sequential decompression, streaming) is used there; manifests are small
// and infrequently rotated, so xz (better ratio) is used there instead.
// Archive directories are plain host paths outside the vbaseio.Dir tree
// the database manages, so this package talks to them with os directly,
// the same way the core's Local backend does.
package archive

import (
	"io"
	"os"
	"path/filepath"

	"github.com/pierrec/lz4/v4"
	"github.com/ulikunitz/xz"

	"github.com/nyotadb/vbase/internal/vbaseio"
	"github.com/nyotadb/vbase/internal/verrors"
)

func copyCompressed(dir vbaseio.Dir, name, archiveDir, destName string, wrap func(io.Writer) (io.WriteCloser, error)) error {
	r, err := dir.OpenSequentialFile(name)
	if err != nil {
		return verrors.IO(name, err)
	}
	defer r.Close()

	if err := os.MkdirAll(archiveDir, 0750); err != nil {
		return verrors.IO(archiveDir, err)
	}
	dest := filepath.Join(archiveDir, destName)
	out, err := os.Create(dest)
	if err != nil {
		return verrors.IO(dest, err)
	}

	zw, err := wrap(out)
	if err != nil {
		out.Close()
		return verrors.IO(dest, err)
	}
	if _, err := io.Copy(zw, r); err != nil {
		zw.Close()
		out.Close()
		return verrors.IO(dest, err)
	}
	if err := zw.Close(); err != nil {
		out.Close()
		return verrors.IO(dest, err)
	}
	return out.Close()
}

// ArchiveJournal compresses a fully-replayed journal file into
// "<archiveDir>/<name>.lz4". The caller (recovery) must not delete name
// from dir until this returns successfully, and must never re-enter an
// archived copy into a future replay set — archived copies are read-only
// forensic records, not part of the live journal chain.
func ArchiveJournal(dir vbaseio.Dir, name, archiveDir string) error {
	return copyCompressed(dir, name, archiveDir, name+".lz4", func(w io.Writer) (io.WriteCloser, error) {
		return lz4.NewWriter(w), nil
	})
}

// ArchiveManifest compresses a superseded engine manifest file into
// "<archiveDir>/<name>.xz".
func ArchiveManifest(dir vbaseio.Dir, name, archiveDir string) error {
	return copyCompressed(dir, name, archiveDir, name+".xz", func(w io.Writer) (io.WriteCloser, error) {
		return xz.NewWriter(w)
	})
}
