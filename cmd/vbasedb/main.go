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

package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/nyotadb/vbase"
	"github.com/nyotadb/vbase/config"
	"github.com/nyotadb/vbase/engine"
	"github.com/nyotadb/vbase/internal/vbaseio"
	"github.com/nyotadb/vbase/tree"
)

func main() {
	fmt.Println(`vbase Copyright (C) 2026   vbase contributors
    This program comes with ABSOLUTELY NO WARRANTY;
    This is free software, and you are welcome to redistribute it
    under certain conditions;`)

	configPath := flag.String("config", "", "path to a JSON config file (spec §4.L); defaults apply if empty")
	dbPath := flag.String("path", "vbase-data", "root directory of the database")
	bucket := flag.String("bucket", "kv", "bucket name within the kv engine")
	get := flag.String("get", "", "look up a key and print its value, then exit")
	put := flag.String("put", "", "key=value pair to write, then exit")
	flag.Parse()

	opts, builder, err := loadOptions(*configPath)
	if err != nil {
		log.Fatalf("vbase: %v", err)
	}
	if builder.Engines == nil {
		builder.Engines = map[string]engine.Factory{}
	}
	builder.Engines["kv"] = tree.NewFactory(tree.Options{
		ManifestArchiveDir: opts.ManifestArchiveDir,
	})

	fs, err := backendFor(opts.FilesystemBackend)
	if err != nil {
		log.Fatalf("vbase: %v", err)
	}

	core, err := vbase.Open(fs, *dbPath, opts, builder)
	if err != nil {
		log.Fatalf("vbase: open %s: %v", *dbPath, err)
	}
	defer core.Close()

	b, err := core.CreateBucket("kv", *bucket)
	if err != nil && !vbase.IsKind(err, vbase.KindExists) {
		log.Fatalf("vbase: create bucket %s: %v", *bucket, err)
	}
	if err != nil {
		b, err = core.Bucket("kv", *bucket)
		if err != nil {
			log.Fatalf("vbase: open bucket %s: %v", *bucket, err)
		}
	}
	kv := b.(*tree.Bucket)

	switch {
	case *get != "":
		value, found := kv.Get([]byte(*get))
		if !found {
			fmt.Printf("%s: not found\n", *get)
			os.Exit(1)
		}
		fmt.Printf("%s\n", value)
	case *put != "":
		key, value, ok := splitKV(*put)
		if !ok {
			log.Fatalf("vbase: -put expects key=value, got %q", *put)
		}
		engineID, ok := core.EngineID("kv")
		if !ok {
			log.Fatalf("vbase: engine kv not registered")
		}
		batch := kv.Batch().Put([]byte(key), []byte(value))
		if _, err := core.Write([]engine.Entry{{EngineID: engineID, Payload: batch.Bytes()}}, vbase.WriteOptions{Sync: true}); err != nil {
			log.Fatalf("vbase: write: %v", err)
		}
		fmt.Printf("wrote %s\n", key)
	default:
		fmt.Printf("last_lsn=%d\n", core.LastLSN())
	}
}

func loadOptions(configPath string) (vbase.Options, vbase.BuilderOptions, error) {
	if configPath == "" {
		return vbase.Options{}, vbase.BuilderOptions{}, nil
	}
	return config.Load(configPath)
}

// backendFor constructs the concrete filesystem Open talks to. Only the
// local backend needs no further configuration; S3 and Ceph need bucket
// names, endpoints and credentials that the JSON config shape in the
// config package deliberately does not model (spec §4.K treats backend
// selection as a caller concern, not a core one), so callers that want
// those backends construct vbaseio.S3/vbaseio.Ceph themselves and call
// vbase.Open directly instead of going through this demo binary.
func backendFor(b vbase.Backend) (vbaseio.FS, error) {
	switch b {
	case vbase.BackendLocal:
		return vbaseio.Local{}, nil
	default:
		return nil, fmt.Errorf("backend %v requires a hand-built vbaseio.FS; see cmd/vbasedb/main.go", b)
	}
}

func splitKV(s string) (key, value string, ok bool) {
	for i := 0; i < len(s); i++ {
		if s[i] == '=' {
			return s[:i], s[i+1:], true
		}
	}
	return "", "", false
}
