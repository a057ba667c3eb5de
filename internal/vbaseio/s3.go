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

// S3 treats a bucket+prefix as a directory tree: "directories" are key
// prefixes, "files" are objects. S3 has no append, so sequential writers
// buffer locally and flush a whole object on Close/Sync, and lock_file is
// emulated with a conditional put of a lock object. Adapted from the
// teacher's storage.S3Storage, generalized from "schema.json / column /
// log segment" objects to the Dir/FS capability set.

import (
	"bytes"
	"context"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

type S3Config struct {
	AccessKeyID     string
	SecretAccessKey string
	Region          string
	Endpoint        string
	Bucket          string
	ForcePathStyle  bool
	LeaseTTL        time.Duration // not read by this backend; the lock object has no expiry
}

type S3 struct {
	cfg S3Config

	mu     sync.Mutex
	client *s3.Client
}

func (s *S3) ensureClient(ctx context.Context) (*s3.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.client != nil {
		return s.client, nil
	}
	var opts []func(*awsconfig.LoadOptions) error
	if s.cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(s.cfg.Region))
	}
	if s.cfg.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(s.cfg.AccessKeyID, s.cfg.SecretAccessKey, "")))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, err
	}
	var s3Opts []func(*s3.Options)
	if s.cfg.Endpoint != "" {
		s3Opts = append(s3Opts, func(o *s3.Options) { o.BaseEndpoint = aws.String(s.cfg.Endpoint) })
	}
	if s.cfg.ForcePathStyle {
		s3Opts = append(s3Opts, func(o *s3.Options) { o.UsePathStyle = true })
	}
	s.client = s3.NewFromConfig(cfg, s3Opts...)
	return s.client, nil
}

func (s *S3) OpenRootDir(path string, create bool) (Dir, error) {
	return &s3Dir{s: s, prefix: strings.Trim(path, "/")}, nil
}

type s3Dir struct {
	s      *S3
	prefix string
}

func (d *s3Dir) Path() string { return "s3://" + d.s.cfg.Bucket + "/" + d.prefix }

func (d *s3Dir) key(name string) string {
	if d.prefix == "" {
		return name
	}
	return d.prefix + "/" + name
}

func (d *s3Dir) OpenDir(name string) (Dir, error) {
	return &s3Dir{s: d.s, prefix: d.key(name)}, nil
}

func (d *s3Dir) CreateDir(name string) (Dir, error) {
	return &s3Dir{s: d.s, prefix: d.key(name)}, nil
}

func (d *s3Dir) DeleteDir(name string) error {
	ctx := context.Background()
	client, err := d.s.ensureClient(ctx)
	if err != nil {
		return err
	}
	sub := &s3Dir{s: d.s, prefix: d.key(name)}
	names, err := sub.List()
	if err != nil {
		return err
	}
	for _, n := range names {
		_, _ = client.DeleteObject(ctx, &s3.DeleteObjectInput{Bucket: aws.String(d.s.cfg.Bucket), Key: aws.String(sub.key(n))})
	}
	return nil
}

func (d *s3Dir) List() ([]string, error) {
	ctx := context.Background()
	client, err := d.s.ensureClient(ctx)
	if err != nil {
		return nil, err
	}
	pfx := d.prefix + "/"
	var names []string
	var token *string
	for {
		out, err := client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
			Bucket:            aws.String(d.s.cfg.Bucket),
			Prefix:            aws.String(pfx),
			ContinuationToken: token,
		})
		if err != nil {
			return nil, err
		}
		for _, obj := range out.Contents {
			names = append(names, strings.TrimPrefix(aws.ToString(obj.Key), pfx))
		}
		if !aws.ToBool(out.IsTruncated) {
			break
		}
		token = out.NextContinuationToken
	}
	return names, nil
}

type s3Lock struct {
	dir  *s3Dir
	name string
}

func (l *s3Lock) Close() error {
	ctx := context.Background()
	client, err := l.dir.s.ensureClient(ctx)
	if err != nil {
		return err
	}
	_, err = client.DeleteObject(ctx, &s3.DeleteObjectInput{Bucket: aws.String(l.dir.s.cfg.Bucket), Key: aws.String(l.dir.key(l.name))})
	return err
}

// LockFile emulates an exclusive lock with a conditional PutObject
// (If-None-Match "*"): the first writer to land the lease object wins,
// everyone else observes PreconditionFailed and must report WouldBlock.
func (d *s3Dir) LockFile(name string) (LockedFile, error) {
	ctx := context.Background()
	client, err := d.s.ensureClient(ctx)
	if err != nil {
		return nil, err
	}
	_, err = client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(d.s.cfg.Bucket),
		Key:         aws.String(d.key(name)),
		Body:        bytes.NewReader([]byte("locked")),
		IfNoneMatch: aws.String("*"),
	})
	if err != nil {
		if strings.Contains(err.Error(), "PreconditionFailed") || strings.Contains(err.Error(), "ConditionalRequestConflict") {
			return nil, errAlreadyLocked
		}
		return nil, err
	}
	return &s3Lock{dir: d, name: name}, nil
}

func (d *s3Dir) ReadFile(name string) ([]byte, error) {
	ctx := context.Background()
	client, err := d.s.ensureClient(ctx)
	if err != nil {
		return nil, err
	}
	resp, err := client.GetObject(ctx, &s3.GetObjectInput{Bucket: aws.String(d.s.cfg.Bucket), Key: aws.String(d.key(name))})
	if err != nil {
		return nil, ErrNotExist
	}
	defer resp.Body.Close()
	return io.ReadAll(resp.Body)
}

func (d *s3Dir) WriteFile(name string, data []byte) error {
	ctx := context.Background()
	client, err := d.s.ensureClient(ctx)
	if err != nil {
		return err
	}
	_, err = client.PutObject(ctx, &s3.PutObjectInput{Bucket: aws.String(d.s.cfg.Bucket), Key: aws.String(d.key(name)), Body: bytes.NewReader(data)})
	return err
}

func (d *s3Dir) DeleteFile(name string) error {
	ctx := context.Background()
	client, err := d.s.ensureClient(ctx)
	if err != nil {
		return err
	}
	_, err = client.DeleteObject(ctx, &s3.DeleteObjectInput{Bucket: aws.String(d.s.cfg.Bucket), Key: aws.String(d.key(name))})
	return err
}

func (d *s3Dir) RenameFile(oldName, newName string) error {
	ctx := context.Background()
	client, err := d.s.ensureClient(ctx)
	if err != nil {
		return err
	}
	src := d.s.cfg.Bucket + "/" + d.key(oldName)
	if _, err := client.CopyObject(ctx, &s3.CopyObjectInput{
		Bucket:     aws.String(d.s.cfg.Bucket),
		Key:        aws.String(d.key(newName)),
		CopySource: aws.String(src),
	}); err != nil {
		return err
	}
	return d.DeleteFile(oldName)
}

type s3PositionalFile struct {
	d    *s3Dir
	name string
}

func (p *s3PositionalFile) ReadAt(b []byte, off int64) (int, error) {
	data, err := p.d.ReadFile(p.name)
	if err != nil {
		return 0, err
	}
	if off >= int64(len(data)) {
		return 0, io.EOF
	}
	n := copy(b, data[off:])
	if n < len(b) {
		return n, io.EOF
	}
	return n, nil
}

func (p *s3PositionalFile) WriteAt(b []byte, off int64) (int, error) {
	data, _ := p.d.ReadFile(p.name)
	if int64(len(data)) < off+int64(len(b)) {
		grown := make([]byte, off+int64(len(b)))
		copy(grown, data)
		data = grown
	}
	copy(data[off:], b)
	if err := p.d.WriteFile(p.name, data); err != nil {
		return 0, err
	}
	return len(b), nil
}

func (p *s3PositionalFile) Size() (int64, error) {
	data, err := p.d.ReadFile(p.name)
	if err != nil {
		return 0, nil
	}
	return int64(len(data)), nil
}

func (p *s3PositionalFile) Close() error { return nil }

func (d *s3Dir) OpenPositionalFile(name string) (PositionalFile, error) {
	return &s3PositionalFile{d: d, name: name}, nil
}

type s3SequentialReader struct {
	r io.ReadCloser
}

func (r *s3SequentialReader) Read(b []byte) (int, error) { return r.r.Read(b) }
func (r *s3SequentialReader) Close() error                { return r.r.Close() }

func (d *s3Dir) OpenSequentialFile(name string) (SequentialReader, error) {
	ctx := context.Background()
	client, err := d.s.ensureClient(ctx)
	if err != nil {
		return nil, err
	}
	resp, err := client.GetObject(ctx, &s3.GetObjectInput{Bucket: aws.String(d.s.cfg.Bucket), Key: aws.String(d.key(name))})
	if err != nil {
		return nil, err
	}
	return &s3SequentialReader{r: resp.Body}, nil
}

// s3SequentialWriter buffers the whole object locally, since S3 objects
// cannot be appended to; Sync/Close flush the buffer as a single PutObject.
type s3SequentialWriter struct {
	d   *s3Dir
	key string
	buf bytes.Buffer
}

func (w *s3SequentialWriter) Write(p []byte) (int, error) { return w.buf.Write(p) }

func (w *s3SequentialWriter) flush() error {
	ctx := context.Background()
	client, err := w.d.s.ensureClient(ctx)
	if err != nil {
		return err
	}
	_, err = client.PutObject(ctx, &s3.PutObjectInput{Bucket: aws.String(w.d.s.cfg.Bucket), Key: aws.String(w.key), Body: bytes.NewReader(w.buf.Bytes())})
	return err
}

func (w *s3SequentialWriter) Sync() error  { return w.flush() }
func (w *s3SequentialWriter) Close() error { return w.flush() }

func (d *s3Dir) CreateSequentialFile(name string) (SequentialWriter, error) {
	return &s3SequentialWriter{d: d, key: d.key(name)}, nil
}
