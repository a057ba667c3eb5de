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

package vbase

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/nyotadb/vbase/internal/idgen"
	"github.com/nyotadb/vbase/internal/manifestpb"
	"github.com/nyotadb/vbase/internal/vbaseio"
	"github.com/nyotadb/vbase/internal/verrors"
)

const rootLockFile = "LOCK"
const rootManifestFile = "MANIFEST"

func engineDirName(id uint64) string { return fmt.Sprintf("engine-%d", id) }

func parseEngineDirID(name string) (uint64, bool) {
	rest, ok := strings.CutPrefix(name, "engine-")
	if !ok {
		return 0, false
	}
	id, err := strconv.ParseUint(rest, 10, 64)
	return id, err == nil
}

// openOrCreateManifest reads MANIFEST, applying builder's existence
// policy. A missing file is a fresh, empty database unless the caller
// demanded the root already exist.
func openOrCreateManifest(dir vbaseio.Dir, builder BuilderOptions) (*manifestpb.RootManifest, bool, error) {
	data, err := dir.ReadFile(rootManifestFile)
	if vbaseio.IsNotExist(err) {
		if builder.ErrorIfNotExists {
			return nil, false, verrors.NotExist(rootManifestFile)
		}
		return &manifestpb.RootManifest{}, true, nil
	}
	if err != nil {
		return nil, false, verrors.IO(rootManifestFile, err)
	}
	if builder.ErrorIfExists {
		return nil, false, verrors.Exists(rootManifestFile)
	}
	m, err := manifestpb.UnmarshalRootManifestWithCRC(rootManifestFile, data)
	if err != nil {
		return nil, false, err
	}
	return m, false, nil
}

// reconcileEngines assigns ids to newly-registered engine names, appends
// them to the manifest, and fails InvalidArgument if the manifest names an
// engine the caller didn't register (spec §4.F). The returned map covers
// every engine in the reconciled manifest, keyed by its stable id.
func reconcileEngines(m *manifestpb.RootManifest, builder BuilderOptions) (map[uint64]string, error) {
	byName := make(map[string]uint64, len(m.Engines))
	result := make(map[uint64]string, len(m.Engines))
	for _, e := range m.Engines {
		byName[e.Name] = e.ID
		result[e.ID] = e.Name
		if m.LastID < e.ID {
			m.LastID = e.ID
		}
	}

	for _, name := range m.Engines {
		if _, ok := builder.Engines[name.Name]; !ok {
			return nil, invalidArgument(fmt.Sprintf("engine %s exists but not registered", name.Name))
		}
	}

	names := make([]string, 0, len(builder.Engines))
	for name := range builder.Engines {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if _, ok := byName[name]; ok {
			continue
		}
		m.LastID++
		id := m.LastID
		m.Engines = append(m.Engines, manifestpb.EngineDescriptor{ID: id, Name: name})
		byName[name] = id
		result[id] = name
	}

	return result, nil
}

// cleanupUncommittedEngineDirs removes any engine-<id> directory whose id
// is not in the reconciled manifest: the previous run may have crashed
// between creating the directory and swapping the manifest that
// committed it.
func cleanupUncommittedEngineDirs(dir vbaseio.Dir, idToName map[uint64]string) error {
	names, err := dir.List()
	if err != nil {
		return verrors.IO(dir.Path(), err)
	}
	for _, n := range names {
		id, ok := parseEngineDirID(n)
		if !ok {
			continue
		}
		if _, committed := idToName[id]; committed {
			continue
		}
		if err := dir.DeleteDir(n); err != nil {
			return verrors.IO(n, err)
		}
	}
	return nil
}

// writeManifest writes through a uniquely-named temp file before renaming
// it into place. The root lock already keeps two vbase processes from
// racing here, but the unique name also keeps this rename-into-place safe
// for an operator poking at the directory with unrelated tooling while the
// database is open, which a fixed "TEMP" name would not survive.
func writeManifest(dir vbaseio.Dir, m *manifestpb.RootManifest) error {
	data := m.MarshalWithCRC()
	tmp := "TEMP-" + idgen.New().String()
	if err := dir.WriteFile(tmp, data); err != nil {
		return verrors.IO(tmp, err)
	}
	if err := dir.RenameFile(tmp, rootManifestFile); err != nil {
		return verrors.IO(rootManifestFile, err)
	}
	return nil
}
