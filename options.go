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
	"io"
	"os"

	"github.com/nyotadb/vbase/engine"
)

// Backend selects the concrete filesystem a Core talks to.
type Backend int

const (
	BackendLocal Backend = iota
	BackendS3
	BackendCeph
)

const defaultJournalFileSize = 64 << 20

// Options controls how a Core is opened, independent of which engines it
// hosts.
type Options struct {
	// JournalFileSize is the threshold Write checks before appending: once
	// the active journal's logical size exceeds it, Write seals the file
	// and rolls to a fresh journal-<next_lsn> before writing the record
	// that tripped the check (spec §9). Zero uses defaultJournalFileSize.
	JournalFileSize int64

	// JournalArchiveDir, if non-empty, diverts fully-replayed journals to
	// compressed archives instead of deleting them outright (spec §4.M).
	JournalArchiveDir string
	// ManifestArchiveDir does the same for superseded engine manifests
	// (spec §4.N).
	ManifestArchiveDir string

	// StatusAddr, if non-empty, starts a read-only websocket status
	// server (spec §4.O) listening on this address.
	StatusAddr string

	FilesystemBackend Backend

	// Log receives lifecycle messages (recovery, journal rotation).
	// Defaults to os.Stderr.
	Log io.Writer
}

func (o Options) logWriter() io.Writer {
	if o.Log != nil {
		return o.Log
	}
	return os.Stderr
}

func (o Options) validate() error {
	if o.JournalFileSize < 0 {
		return invalidArgument("journal_file_size must not be negative")
	}
	return nil
}

func (o Options) journalFileSize() int64 {
	if o.JournalFileSize == 0 {
		return defaultJournalFileSize
	}
	return o.JournalFileSize
}

// BuilderOptions names the engines a Core should open and the existence
// policy to apply to the root directory.
type BuilderOptions struct {
	ErrorIfExists    bool
	ErrorIfNotExists bool
	Engines          map[string]engine.Factory
}

func (b BuilderOptions) validate() error {
	if b.ErrorIfExists && b.ErrorIfNotExists {
		return invalidArgument("error_if_exists and error_if_not_exist are mutually exclusive")
	}
	return nil
}

// WriteOptions controls a single Write call.
type WriteOptions struct {
	// Sync fsyncs the journal append before the batch is dispatched to
	// engines.
	Sync bool
}
