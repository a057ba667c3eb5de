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
	"github.com/nyotadb/nonlockingreadmap"

	"github.com/nyotadb/vbase/engine"
)

// registeredEngine adapts an opened engine.Handle to nonlockingreadmap's
// KeyGetter so the registry below can key on the engine's registered name.
type registeredEngine struct {
	name   string
	handle engine.Handle
}

func (e registeredEngine) GetKey() string    { return e.name }
func (e registeredEngine) ComputeSize() uint { return uint(len(e.name)) + 32 }

// registry is the name->engine lookup bucket(), create_bucket() and
// delete_bucket() go through; Write and recovery dispatch by engine id
// through their own maps instead.
// Engines are registered once at open and never again afterward, so the
// read-mostly, write-rare NonLockingReadMap is the natural fit: a Get
// racing a concurrent Set always observes either the old or the new
// entry, never a torn one, and never blocks.
type registry struct {
	m nonlockingreadmap.NonLockingReadMap[registeredEngine, string]
}

func newRegistry() *registry {
	return &registry{m: nonlockingreadmap.New[registeredEngine, string]()}
}

// register adds name->handle. Open calls this once per reconciled engine
// before any write can reach the registry; it is not meant to be called
// again afterward.
func (r *registry) register(name string, handle engine.Handle) {
	r.m.Set(&registeredEngine{name: name, handle: handle})
}

func (r *registry) lookup(name string) (engine.Handle, bool) {
	e := r.m.Get(name)
	if e == nil {
		return nil, false
	}
	return e.handle, true
}

func (r *registry) all() []*registeredEngine {
	return r.m.GetAll()
}
