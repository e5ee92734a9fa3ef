package badger

import (
	"bytes"
	"context"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/stash/core"
	"github.com/poiesic/stash/storage"
)

// Insert writes a record, assigning the next primary key from the storage's
// sequence. One index entry is written per declared index whose source field
// is present and encodable; a collision on a unique index fails the whole
// insert with ErrDuplicateKey.
func (db *DB) Insert(ctx context.Context, storageName string, record core.Record) (core.ID, error) {
	specs, err := db.indexSpecs(storageName)
	if err != nil {
		return 0, err
	}
	seq, err := db.sequence(storageName)
	if err != nil {
		return 0, err
	}

	var id core.ID
	err = db.backend.WithTx(func(tx *badger.Txn) error {
		next, err := seq.Next()
		if err != nil {
			return err
		}
		// BadgerDB sequences can return 0 on first call, so we skip it
		if next == 0 {
			next, err = seq.Next()
			if err != nil {
				return err
			}
		}
		id = core.ID(next)

		stored := record.Clone()
		stored[core.PrimaryKeyField] = id

		data, err := storage.MarshalRecord(stored)
		if err != nil {
			return err
		}
		if err := tx.Set(makeRecordKey(storageName, id), data); err != nil {
			return err
		}
		if err := writeIndexEntries(tx, storageName, specs, stored, id); err != nil {
			return err
		}
		return tx.Commit()
	}, true)

	if err != nil {
		return 0, err
	}
	return id, nil
}

// Update replaces the record carrying the given primary key entirely; there
// is no field-level merge. Index entries whose source value changed are
// diffed out and rewritten.
func (db *DB) Update(ctx context.Context, storageName string, record core.Record) error {
	id, ok := record.PrimaryKey()
	if !ok {
		return core.ErrMissingKey
	}
	specs, err := db.indexSpecs(storageName)
	if err != nil {
		return err
	}

	return db.backend.WithTx(func(tx *badger.Txn) error {
		key := makeRecordKey(storageName, id)
		old, err := readRecord(tx, key)
		if err != nil {
			return err
		}
		if old == nil {
			return fmt.Errorf("%w: %s %d in storage %q", storage.ErrNotFound, core.PrimaryKeyField, id, storageName)
		}

		stored := record.Clone()
		stored[core.PrimaryKeyField] = id

		data, err := storage.MarshalRecord(stored)
		if err != nil {
			return err
		}
		if err := tx.Set(key, data); err != nil {
			return err
		}

		for _, spec := range specs {
			oldEncoded := encodeField(old, spec.Field)
			newEncoded := encodeField(stored, spec.Field)
			if bytes.Equal(oldEncoded, newEncoded) {
				continue
			}
			if oldEncoded != nil {
				if err := tx.Delete(makeIndexEntryKey(storageName, spec.Name, spec.Unique, oldEncoded, id)); err != nil {
					return err
				}
			}
			if newEncoded != nil {
				if err := setIndexEntry(tx, storageName, spec, newEncoded, id); err != nil {
					return err
				}
			}
		}
		return tx.Commit()
	}, true)
}

// writeIndexEntries adds index entries for a freshly stored record.
func writeIndexEntries(tx *badger.Txn, storageName string, specs []core.IndexSpec, record core.Record, id core.ID) error {
	for _, spec := range specs {
		encoded := encodeField(record, spec.Field)
		if encoded == nil {
			// Absent or unindexable field value: the record simply has no
			// entry in this index.
			continue
		}
		if err := setIndexEntry(tx, storageName, spec, encoded, id); err != nil {
			return err
		}
	}
	return nil
}

// setIndexEntry writes one index entry, enforcing uniqueness first. The
// guard is a point read of the value's single entry key: an occupied key
// fails with ErrDuplicateKey, and the read itself makes two concurrent
// writers of the same value conflict at commit, so at most one wins.
func setIndexEntry(tx *badger.Txn, storageName string, spec core.IndexSpec, encoded []byte, id core.ID) error {
	key := makeIndexEntryKey(storageName, spec.Name, spec.Unique, encoded, id)
	if spec.Unique {
		item, err := tx.Get(key)
		if err == nil {
			existing, err := valueID(item)
			if err != nil {
				return err
			}
			if existing != id {
				return fmt.Errorf("unique index %q: %w", spec.Name, storage.ErrDuplicateKey)
			}
		} else if err != badger.ErrKeyNotFound {
			return err
		}
	}
	return tx.Set(key, storage.MarshalID(id))
}

// encodeField encodes a record field for index use, or nil when the field
// is absent or carries an unindexable value.
func encodeField(record core.Record, field string) []byte {
	value, ok := record[field]
	if !ok || value == nil {
		return nil
	}
	encoded, err := encodeScalar(value)
	if err != nil {
		return nil
	}
	return encoded
}
