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

// Package config loads a Core's Options and BuilderOptions from a JSON
// file (spec.md §4.L), and can watch that file for edits. Mirrors the
// teacher's storage.Settings/ChangeSettings global-settings pattern,
// generalized into a loader that returns a value instead of mutating a
// package global.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dc0d/onexit"
	units "github.com/docker/go-units"
	"github.com/fsnotify/fsnotify"

	"github.com/nyotadb/vbase"
	"github.com/nyotadb/vbase/engine"
)

// fileConfig is the on-disk JSON shape Load reads.
type fileConfig struct {
	JournalFileSize    string   `json:"journal_file_size"`
	JournalArchiveDir  string   `json:"journal_archive_dir"`
	ManifestArchiveDir string   `json:"manifest_archive_dir"`
	StatusAddr         string   `json:"status_addr"`
	FilesystemBackend  string   `json:"filesystem_backend"`
	ErrorIfExists      bool     `json:"error_if_exists"`
	ErrorIfNotExists   bool     `json:"error_if_not_exist"`
	Engines            []string `json:"engines"`
}

// Load reads path and decodes it into an Options/BuilderOptions pair.
// JournalFileSize accepts human-written sizes ("64MiB", "2GB") via
// docker/go-units. BuilderOptions.Engines is populated with a nil
// engine.Factory for every name listed under "engines": a config file can
// say which engine kinds to open, but building one is a Go-level concern
// no JSON value carries, so the caller overwrites each entry with the
// actual factory (e.g. tree.NewFactory(...)) before passing BuilderOptions
// to vbase.Open.
func Load(path string) (vbase.Options, vbase.BuilderOptions, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return vbase.Options{}, vbase.BuilderOptions{}, fmt.Errorf("config: reading %s: %w", path, err)
	}
	return parse(path, data)
}

func parse(path string, data []byte) (vbase.Options, vbase.BuilderOptions, error) {
	var fc fileConfig
	if err := json.Unmarshal(data, &fc); err != nil {
		return vbase.Options{}, vbase.BuilderOptions{}, fmt.Errorf("config: parsing %s: %w", path, err)
	}

	opts := vbase.Options{
		JournalArchiveDir:  fc.JournalArchiveDir,
		ManifestArchiveDir: fc.ManifestArchiveDir,
		StatusAddr:         fc.StatusAddr,
	}
	if fc.JournalFileSize != "" {
		size, err := units.RAMInBytes(fc.JournalFileSize)
		if err != nil {
			return vbase.Options{}, vbase.BuilderOptions{}, fmt.Errorf("config: journal_file_size %q: %w", fc.JournalFileSize, err)
		}
		opts.JournalFileSize = size
	}
	switch fc.FilesystemBackend {
	case "", "local":
		opts.FilesystemBackend = vbase.BackendLocal
	case "s3":
		opts.FilesystemBackend = vbase.BackendS3
	case "ceph":
		opts.FilesystemBackend = vbase.BackendCeph
	default:
		return vbase.Options{}, vbase.BuilderOptions{}, fmt.Errorf("config: unknown filesystem_backend %q", fc.FilesystemBackend)
	}

	builder := vbase.BuilderOptions{
		ErrorIfExists:    fc.ErrorIfExists,
		ErrorIfNotExists: fc.ErrorIfNotExists,
		Engines:          make(map[string]engine.Factory, len(fc.Engines)),
	}
	for _, name := range fc.Engines {
		builder.Engines[name] = nil
	}
	return opts, builder, nil
}

// OnChange receives the newly loaded Options after a watched config file
// changes.
type OnChange func(vbase.Options)

// Watch does not load path up front; it watches path's directory (not the file itself: editors commonly replace a config
// file by writing a temp file and renaming it over the original, which
// never touches the inode a file-level watch would be tracking) for
// Write/Create events naming path. Each such event re-loads path and
// invokes onChange with the new Options; a reload that fails to parse is
// logged nowhere and simply skipped, leaving the previous Options in
// effect. The returned stop func closes the watcher; it is also
// registered with onexit, mirroring the teacher's InitSettings pattern of
// tying a setting's cleanup to program exit rather than relying on every
// caller to remember it.
func Watch(path string, onChange OnChange) (stop func(), err error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("config: watching %s: %w", path, err)
	}
	dir := filepath.Dir(path)
	if err := w.Add(dir); err != nil {
		w.Close()
		return nil, fmt.Errorf("config: watching %s: %w", dir, err)
	}

	done := make(chan struct{})
	go func() {
		for {
			select {
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != filepath.Clean(path) {
					continue
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				opts, _, err := Load(path)
				if err != nil {
					continue
				}
				onChange(opts)
			case _, ok := <-w.Errors:
				if !ok {
					return
				}
			case <-done:
				return
			}
		}
	}()

	stopped := false
	stop = func() {
		if stopped {
			return
		}
		stopped = true
		close(done)
		w.Close()
	}
	onexit.Register(stop)
	return stop, nil
}
