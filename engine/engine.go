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

// Package engine defines the capability set the core coordinator dispatches
// through, and the wire framing a write batch uses to address more than one
// engine at a time. The core never imports a concrete engine package; it
// only ever holds a Handle obtained from a registered Factory.
package engine

import "github.com/nyotadb/vbase/internal/vbaseio"

// Handle is the capability set every storage engine exposes to the core.
// Write must be idempotent for lsn <= LastLSN and safe to call from
// multiple goroutines; durability beyond that point is the engine's own
// concern. Bucket handles returned by Bucket/CreateBucket are opaque to
// the core — callers downcast them to the concrete type the engine that
// produced them documents.
type Handle interface {
	ID() uint64
	Name() string

	Write(lsn uint64, payload []byte) error
	LastLSN() uint64

	Bucket(name string) (any, error)
	CreateBucket(name string) (any, error)
	DeleteBucket(name string) error

	Close() error
}

// Factory opens or creates the on-disk state for one engine instance. id is
// assigned once by the root manifest and stable across opens; name is the
// name the engine was registered under; dir is the engine's private
// "engine-<id>" subdirectory.
type Factory func(id uint64, name string, dir vbaseio.Dir) (Handle, error)
