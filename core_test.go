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
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nyotadb/vbase/engine"
	"github.com/nyotadb/vbase/internal/vbaseio"
	"github.com/nyotadb/vbase/tree"
)

func testBuilder() BuilderOptions {
	return BuilderOptions{Engines: map[string]engine.Factory{
		"kv": tree.NewFactory(tree.Options{}),
	}}
}

func TestOpenWriteGetRoundTrip(t *testing.T) {
	dir := t.TempDir()
	c, err := Open(vbaseio.Local{}, dir, Options{}, testBuilder())
	require.NoError(t, err)
	defer c.Close()

	anyBucket, err := c.CreateBucket("kv", "b")
	require.NoError(t, err)
	b := anyBucket.(*tree.Bucket)

	engineID, ok := c.EngineID("kv")
	require.True(t, ok)
	lsn, err := c.Write([]engine.Entry{{EngineID: engineID, Payload: b.Batch().Put([]byte("k"), []byte("v")).Bytes()}}, WriteOptions{Sync: true})
	require.NoError(t, err)
	require.Equal(t, uint64(1), lsn)
	require.Equal(t, uint64(1), c.LastLSN())

	got, found := b.Get([]byte("k"))
	require.True(t, found)
	require.Equal(t, []byte("v"), got)
}

func TestOpenErrorIfExistsOnFreshPath(t *testing.T) {
	dir := t.TempDir()
	builder := testBuilder()
	builder.ErrorIfExists = true
	_, err := Open(vbaseio.Local{}, dir, Options{}, builder)
	require.NoError(t, err)
}

func TestOpenErrorIfNotExistsFailsOnMissingPath(t *testing.T) {
	dir := t.TempDir() + "/does-not-exist"
	builder := testBuilder()
	builder.ErrorIfNotExists = true
	_, err := Open(vbaseio.Local{}, dir, Options{}, builder)
	require.Error(t, err)
}

func TestOpenRejectsUnregisteredManifestEngine(t *testing.T) {
	dir := t.TempDir()
	c, err := Open(vbaseio.Local{}, dir, Options{}, testBuilder())
	require.NoError(t, err)
	require.NoError(t, c.Close())

	_, err = Open(vbaseio.Local{}, dir, Options{}, BuilderOptions{Engines: map[string]engine.Factory{}})
	require.True(t, IsKind(err, KindInvalidArgument))
}

func TestWriteSurvivesReopenViaRecovery(t *testing.T) {
	dir := t.TempDir()

	c, err := Open(vbaseio.Local{}, dir, Options{}, testBuilder())
	require.NoError(t, err)
	anyBucket, err := c.CreateBucket("kv", "b")
	require.NoError(t, err)
	b := anyBucket.(*tree.Bucket)
	engineID, ok := c.EngineID("kv")
	require.True(t, ok)
	_, err = c.Write([]engine.Entry{{EngineID: engineID, Payload: b.Batch().Put([]byte("k"), []byte("v")).Bytes()}}, WriteOptions{Sync: true})
	require.NoError(t, err)
	require.NoError(t, c.Close())

	c2, err := Open(vbaseio.Local{}, dir, Options{}, testBuilder())
	require.NoError(t, err)
	defer c2.Close()

	anyBucket2, err := c2.Bucket("kv", "b")
	require.NoError(t, err)
	b2 := anyBucket2.(*tree.Bucket)
	got, found := b2.Get([]byte("k"))
	require.True(t, found)
	require.Equal(t, []byte("v"), got)
	require.Equal(t, uint64(1), c2.LastLSN())
}

func TestSecondOpenOnSamePathFailsLocked(t *testing.T) {
	dir := t.TempDir()
	c, err := Open(vbaseio.Local{}, dir, Options{}, testBuilder())
	require.NoError(t, err)
	defer c.Close()

	_, err = Open(vbaseio.Local{}, dir, Options{}, testBuilder())
	require.True(t, IsKind(err, KindLocked))
}
