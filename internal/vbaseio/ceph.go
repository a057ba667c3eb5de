//go:build ceph

/*
Copyright (C) 2024-2026  Carl-Philip Hänsch

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

package vbaseio

// RADOS objects, same key-prefix-as-directory model as the S3 backend.
// Kept behind a build tag because go-ceph links against librados via
// cgo, same as the teacher's storage.CephStorage.

import (
	"io"
	"path"
	"strings"
	"sync"

	"github.com/ceph/go-ceph/rados"
)

type CephConfig struct {
	UserName    string
	ClusterName string
	ConfFile    string
	Pool        string
}

type Ceph struct {
	cfg CephConfig

	mu    sync.Mutex
	conn  *rados.Conn
	ioctx *rados.IOContext
}

func (c *Ceph) ensureOpen() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ioctx != nil {
		return nil
	}
	conn, err := rados.NewConnWithClusterAndUser(c.cfg.ClusterName, c.cfg.UserName)
	if err != nil {
		return err
	}
	if c.cfg.ConfFile != "" {
		if err := conn.ReadConfigFile(c.cfg.ConfFile); err != nil {
			return err
		}
	} else {
		_ = conn.ReadDefaultConfigFile()
	}
	if err := conn.Connect(); err != nil {
		return err
	}
	ioctx, err := conn.OpenIOContext(c.cfg.Pool)
	if err != nil {
		conn.Shutdown()
		return err
	}
	c.conn = conn
	c.ioctx = ioctx
	return nil
}

func (c *Ceph) OpenRootDir(rootPath string, create bool) (Dir, error) {
	return &cephDir{c: c, prefix: strings.Trim(rootPath, "/")}, nil
}

type cephDir struct {
	c      *Ceph
	prefix string
}

func (d *cephDir) Path() string { return "ceph://" + d.c.cfg.Pool + "/" + d.prefix }

func (d *cephDir) obj(name string) string { return path.Join(d.prefix, name) }

func (d *cephDir) OpenDir(name string) (Dir, error) {
	return &cephDir{c: d.c, prefix: d.obj(name)}, nil
}

func (d *cephDir) CreateDir(name string) (Dir, error) {
	return &cephDir{c: d.c, prefix: d.obj(name)}, nil
}

func (d *cephDir) DeleteDir(name string) error {
	if err := d.c.ensureOpen(); err != nil {
		return err
	}
	sub := &cephDir{c: d.c, prefix: d.obj(name)}
	names, err := sub.List()
	if err != nil {
		return err
	}
	for _, n := range names {
		_ = d.c.ioctx.Delete(sub.obj(n))
	}
	return nil
}

func (d *cephDir) List() ([]string, error) {
	if err := d.c.ensureOpen(); err != nil {
		return nil, err
	}
	var names []string
	iter, err := d.c.ioctx.Iter()
	if err != nil {
		return nil, err
	}
	defer iter.Close()
	pfx := d.prefix + "/"
	for iter.Next() {
		if n, ok := strings.CutPrefix(iter.Value(), pfx); ok {
			names = append(names, n)
		}
	}
	return names, nil
}

type cephLock struct {
	dir  *cephDir
	name string
	tag  string
}

func (l *cephLock) Close() error {
	_, err := l.dir.c.ioctx.Unlock(l.dir.obj(l.name), "vbase", l.tag)
	return err
}

func (d *cephDir) LockFile(name string) (LockedFile, error) {
	if err := d.c.ensureOpen(); err != nil {
		return nil, err
	}
	const tag = "vbase-lock"
	res, err := d.c.ioctx.LockExclusive(d.obj(name), "vbase", tag, "root lock", 0, nil)
	if err != nil {
		return nil, err
	}
	if res < 0 {
		return nil, errAlreadyLocked
	}
	return &cephLock{dir: d, name: name, tag: tag}, nil
}

func (d *cephDir) ReadFile(name string) ([]byte, error) {
	if err := d.c.ensureOpen(); err != nil {
		return nil, err
	}
	obj := d.obj(name)
	stat, err := d.c.ioctx.Stat(obj)
	if err != nil {
		return nil, ErrNotExist
	}
	data := make([]byte, stat.Size)
	n, err := d.c.ioctx.Read(obj, data, 0)
	if err != nil {
		return nil, err
	}
	return data[:n], nil
}

func (d *cephDir) WriteFile(name string, data []byte) error {
	if err := d.c.ensureOpen(); err != nil {
		return err
	}
	return d.c.ioctx.WriteFull(d.obj(name), data)
}

func (d *cephDir) DeleteFile(name string) error {
	if err := d.c.ensureOpen(); err != nil {
		return err
	}
	return d.c.ioctx.Delete(d.obj(name))
}

func (d *cephDir) RenameFile(oldName, newName string) error {
	data, err := d.ReadFile(oldName)
	if err != nil {
		return err
	}
	if err := d.WriteFile(newName, data); err != nil {
		return err
	}
	return d.DeleteFile(oldName)
}

type cephPositionalFile struct {
	d    *cephDir
	name string
}

func (p *cephPositionalFile) ReadAt(b []byte, off int64) (int, error) {
	if err := p.d.c.ensureOpen(); err != nil {
		return 0, err
	}
	n, err := p.d.c.ioctx.Read(p.d.obj(p.name), b, uint64(off))
	if err != nil {
		return 0, err
	}
	if n < len(b) {
		return n, io.EOF
	}
	return n, nil
}

func (p *cephPositionalFile) WriteAt(b []byte, off int64) (int, error) {
	if err := p.d.c.ensureOpen(); err != nil {
		return 0, err
	}
	if err := p.d.c.ioctx.Write(p.d.obj(p.name), b, uint64(off)); err != nil {
		return 0, err
	}
	return len(b), nil
}

func (p *cephPositionalFile) Size() (int64, error) {
	stat, err := p.d.c.ioctx.Stat(p.d.obj(p.name))
	if err != nil {
		return 0, nil
	}
	return int64(stat.Size), nil
}

func (p *cephPositionalFile) Close() error { return nil }

func (d *cephDir) OpenPositionalFile(name string) (PositionalFile, error) {
	return &cephPositionalFile{d: d, name: name}, nil
}

type cephSequentialReader struct {
	p   *cephPositionalFile
	off int64
}

func (r *cephSequentialReader) Read(b []byte) (int, error) {
	n, err := r.p.ReadAt(b, r.off)
	r.off += int64(n)
	return n, err
}
func (r *cephSequentialReader) Close() error { return nil }

func (d *cephDir) OpenSequentialFile(name string) (SequentialReader, error) {
	return &cephSequentialReader{p: &cephPositionalFile{d: d, name: name}}, nil
}

type cephSequentialWriter struct {
	p   *cephPositionalFile
	off int64
}

func (w *cephSequentialWriter) Write(b []byte) (int, error) {
	n, err := w.p.WriteAt(b, w.off)
	w.off += int64(n)
	return n, err
}
func (w *cephSequentialWriter) Sync() error  { return nil }
func (w *cephSequentialWriter) Close() error { return nil }

func (d *cephDir) CreateSequentialFile(name string) (SequentialWriter, error) {
	return &cephSequentialWriter{p: &cephPositionalFile{d: d, name: name}}, nil
}
