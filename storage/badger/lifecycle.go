// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package badger

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/stash/core"
	"github.com/poiesic/stash/storage"
)

// Options configures where a database lives.
type Options struct {
	// Dir is the root directory holding one subdirectory per database.
	// Defaults to the current directory.
	Dir string
	// InMemory keeps the database off disk entirely. In-memory databases
	// are still shared between handles opened under the same name.
	InMemory bool
	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// DB is one connection to a named database. It implements storage.Store.
type DB struct {
	backend  *Backend
	logger   *slog.Logger
	key      string
	path     string
	inMemory bool
	schema   core.Schema

	mu       sync.Mutex
	storages map[string][]core.IndexSpec
	seqs     map[string]*badger.Sequence
	closed   bool
}

var _ storage.Store = (*DB)(nil)

// Open opens the database named by the schema, creating or upgrading its
// storages under the engine's versioned-migration contract.
//
// A fresh database, or one stored at a lower version, enters the upgrade
// phase: every declared storage without a marker is created together with its
// index declarations, then the requested version and the schema fingerprint
// are persisted. Storages that already exist are left untouched; adding an
// index to one requires a fresh version bump. Opening at a version lower
// than the stored one fails with ErrVersionConflict, and reopening the same
// version with different storages or indexes fails with ErrSchemaChanged.
func Open(ctx context.Context, schema core.Schema, opts Options) (*DB, error) {
	if err := schema.Validate(); err != nil {
		return nil, err
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var key, path string
	if opts.InMemory {
		key = "mem" + core.KeySeparator + schema.Name
	} else {
		dir := opts.Dir
		if dir == "" {
			dir = "."
		}
		path = filepath.Join(dir, schema.Name)
		key = path
	}

	backend, err := acquireBackend(key, path, opts.InMemory)
	if err != nil {
		return nil, err
	}

	db := &DB{
		backend:  backend,
		logger:   logger,
		key:      key,
		path:     path,
		inMemory: opts.InMemory,
		schema:   schema,
		seqs:     make(map[string]*badger.Sequence),
	}

	if err := db.open(); err != nil {
		releaseBackend(key)
		return nil, err
	}
	return db, nil
}

// open runs the version negotiation and loads the storage markers.
func (db *DB) open() error {
	return db.backend.WithTx(func(tx *badger.Txn) error {
		stored, err := readVersion(tx)
		if err != nil {
			return err
		}

		want := db.schema.Version
		if want == 0 {
			// Engine-assigned default: adopt whatever is stored, or start at 1.
			want = stored
			if want == 0 {
				want = 1
			}
		}
		if stored > want {
			return fmt.Errorf("%w: stored %d, requested %d", storage.ErrVersionConflict, stored, want)
		}

		fingerprint := db.schema.Fingerprint()
		if stored == want {
			storedFP, err := readFingerprint(tx)
			if err != nil {
				return err
			}
			if storedFP != fingerprint {
				return fmt.Errorf("%w: version %d", storage.ErrSchemaChanged, want)
			}
			return db.loadStorages(tx)
		}

		// Upgrade phase.
		db.logger.Info("upgrading database",
			"name", db.schema.Name, "from", stored, "to", want)
		for _, name := range db.schema.Storages {
			created, err := createStorageTx(tx, name, db.schema.Indexes[name])
			if err != nil {
				return err
			}
			if created {
				db.logger.Debug("created storage", "name", name,
					"indexes", len(db.schema.Indexes[name]))
			}
		}
		if err := tx.Set([]byte(metaVersionKey), storage.MarshalVersion(want)); err != nil {
			return err
		}
		if err := tx.Set([]byte(metaSchemaKey), storage.MarshalVersion(fingerprint)); err != nil {
			return err
		}
		if err := db.loadStorages(tx); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// createStorageTx writes a storage marker unless one exists already.
// Idempotent per storage: an existing storage keeps its records and indexes.
func createStorageTx(tx *badger.Txn, name string, indexes []core.IndexSpec) (bool, error) {
	key := makeStorageKey(name)
	_, err := tx.Get(key)
	if err == nil {
		return false, nil
	}
	if err != badger.ErrKeyNotFound {
		return false, err
	}
	if err := tx.Set(key, storage.MarshalIndexSpecs(indexes)); err != nil {
		return false, err
	}
	return true, nil
}

// loadStorages caches every storage marker on the handle. Markers, not the
// schema, are the authority on which storages and indexes exist.
func (db *DB) loadStorages(tx *badger.Txn) error {
	storages := make(map[string][]core.IndexSpec)
	prefix := makeStoragePrefix()

	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix
	iter := tx.NewIterator(opts)
	defer iter.Close()

	for iter.Rewind(); iter.Valid(); iter.Next() {
		item := iter.Item()
		name := string(item.Key()[len(prefix):])
		err := item.Value(func(val []byte) error {
			specs, err := storage.UnmarshalIndexSpecs(val)
			if err != nil {
				return err
			}
			storages[name] = specs
			return nil
		})
		if err != nil {
			return err
		}
	}

	db.mu.Lock()
	db.storages = storages
	db.mu.Unlock()
	return nil
}

func readVersion(tx *badger.Txn) (uint64, error) {
	item, err := tx.Get([]byte(metaVersionKey))
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return 0, nil
		}
		return 0, err
	}
	var version uint64
	err = item.Value(func(val []byte) error {
		var unmarshalErr error
		version, unmarshalErr = storage.UnmarshalVersion(val)
		return unmarshalErr
	})
	return version, err
}

func readFingerprint(tx *badger.Txn) (uint64, error) {
	item, err := tx.Get([]byte(metaSchemaKey))
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return 0, nil
		}
		return 0, err
	}
	var fingerprint uint64
	err = item.Value(func(val []byte) error {
		var unmarshalErr error
		fingerprint, unmarshalErr = storage.UnmarshalVersion(val)
		return unmarshalErr
	})
	return fingerprint, err
}

// Storages returns the names of the storages present in the database.
func (db *DB) Storages() []string {
	db.mu.Lock()
	defer db.mu.Unlock()
	names := make([]string, 0, len(db.storages))
	for name := range db.storages {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// HasStorage reports whether the named storage exists.
func (db *DB) HasStorage(name string) bool {
	db.mu.Lock()
	defer db.mu.Unlock()
	_, ok := db.storages[name]
	return ok
}

// CreateStorage creates a storage outside the upgrade phase, adopting any
// index declarations the active schema carries for the name.
func (db *DB) CreateStorage(ctx context.Context, name string) error {
	if err := db.guard(); err != nil {
		return err
	}
	if db.HasStorage(name) {
		return fmt.Errorf("%w: %q", core.ErrStorageExists, name)
	}
	indexes := db.schema.Indexes[name]
	err := db.backend.WithTx(func(tx *badger.Txn) error {
		created, err := createStorageTx(tx, name, indexes)
		if err != nil {
			return err
		}
		if !created {
			return fmt.Errorf("%w: %q", core.ErrStorageExists, name)
		}
		return tx.Commit()
	}, true)
	if err != nil {
		return err
	}
	db.mu.Lock()
	db.storages[name] = indexes
	db.mu.Unlock()
	return nil
}

// DeleteStorage removes a storage with all of its records, index entries and
// sequence state. Deleting an absent storage resolves as a no-op.
func (db *DB) DeleteStorage(ctx context.Context, name string) error {
	if err := db.guard(); err != nil {
		return err
	}
	if !db.HasStorage(name) {
		return nil
	}

	db.mu.Lock()
	if seq, ok := db.seqs[name]; ok {
		// Flush the lease before its backing key goes away.
		if err := seq.Release(); err != nil {
			db.mu.Unlock()
			return err
		}
		delete(db.seqs, name)
	}
	db.mu.Unlock()

	err := db.backend.WithTx(func(tx *badger.Txn) error {
		for _, prefix := range [][]byte{
			makeRecordPrefix(name),
			[]byte(indexPrefix + core.KeySeparator + name + core.KeySeparator),
		} {
			if err := deletePrefix(tx, prefix); err != nil {
				return err
			}
		}
		if err := tx.Delete(makeSeqKey(name)); err != nil {
			return err
		}
		if err := tx.Delete(makeStorageKey(name)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
	if err != nil {
		return err
	}

	db.mu.Lock()
	delete(db.storages, name)
	db.mu.Unlock()
	db.logger.Debug("deleted storage", "name", name)
	return nil
}

// deletePrefix removes every key carrying the prefix.
func deletePrefix(tx *badger.Txn, prefix []byte) error {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix
	opts.PrefetchValues = false
	iter := tx.NewIterator(opts)

	var keys [][]byte
	for iter.Rewind(); iter.Valid(); iter.Next() {
		keys = append(keys, iter.Item().KeyCopy(nil))
	}
	iter.Close()

	for _, key := range keys {
		if err := tx.Delete(key); err != nil {
			return err
		}
	}
	return nil
}

// Drop deletes the whole database: its data, its on-disk files and this
// handle. It fails with ErrDeleteBlocked while any other handle holds the
// same database open, in which case nothing changes.
func (db *DB) Drop(ctx context.Context) error {
	if err := db.guard(); err != nil {
		return err
	}

	backend, err := detachBackend(db.key)
	if err != nil {
		return err
	}

	db.mu.Lock()
	for name, seq := range db.seqs {
		seq.Release()
		delete(db.seqs, name)
	}
	db.closed = true
	db.mu.Unlock()

	if err := backend.Close(); err != nil {
		return err
	}
	if !db.inMemory {
		if err := os.RemoveAll(db.path); err != nil {
			return err
		}
	}
	db.logger.Info("deleted database", "name", db.schema.Name)
	return nil
}

// Close releases this handle without deleting data. The backend shuts down
// with the last handle.
func (db *DB) Close() error {
	db.mu.Lock()
	if db.closed {
		db.mu.Unlock()
		return nil
	}
	db.closed = true
	for name, seq := range db.seqs {
		if err := seq.Release(); err != nil {
			db.logger.Error("error releasing sequence", "storage", name, "err", err)
		}
		delete(db.seqs, name)
	}
	db.mu.Unlock()
	return releaseBackend(db.key)
}

// guard rejects operations on a closed handle.
func (db *DB) guard() error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.closed {
		return storage.ErrStorageClosed
	}
	return nil
}

// indexSpecs resolves the index declarations of an existing storage.
func (db *DB) indexSpecs(name string) ([]core.IndexSpec, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.closed {
		return nil, storage.ErrStorageClosed
	}
	specs, ok := db.storages[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", core.ErrUnknownStorage, name)
	}
	return specs, nil
}

// sequence returns the lazily created ID sequence of a storage.
func (db *DB) sequence(name string) (*badger.Sequence, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.closed {
		return nil, storage.ErrStorageClosed
	}
	if seq, ok := db.seqs[name]; ok {
		return seq, nil
	}
	seq, err := db.backend.GetSequence(makeSeqKey(name))
	if err != nil {
		return nil, err
	}
	db.seqs[name] = seq
	return seq, nil
}

// findIndex resolves a query key against a storage's declarations.
func findIndex(specs []core.IndexSpec, name string) (core.IndexSpec, bool) {
	for _, spec := range specs {
		if spec.Name == name {
			return spec, true
		}
	}
	return core.IndexSpec{}, false
}
