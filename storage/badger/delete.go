package badger

import (
	"context"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/stash/core"
	"github.com/poiesic/stash/storage"
)

// Delete removes records matching a descriptor. On the primary-key space it
// deletes the single record at the value, resolving as a no-op when absent.
// On a secondary index it walks the exact-match range and deletes every
// matching record, because the engine has no native delete-by-index-value;
// zero matches is a success. A nil or Range value is rejected.
func (db *DB) Delete(ctx context.Context, storageName string, q core.Query) error {
	if err := q.Validate(); err != nil {
		return err
	}
	if _, isRange := asRange(q.Value); q.Value == nil || isRange {
		return fmt.Errorf("%w: delete requires an exact value", core.ErrInvalidQuery)
	}
	specs, err := db.indexSpecs(storageName)
	if err != nil {
		return err
	}

	if q.Primary() {
		id, ok := core.ToID(q.Value)
		if !ok {
			return fmt.Errorf("%w: primary key %v", storage.ErrUnindexableValue, q.Value)
		}
		return db.backend.WithTx(func(tx *badger.Txn) error {
			record, err := readRecord(tx, makeRecordKey(storageName, id))
			if err != nil {
				return err
			}
			if record == nil {
				return nil
			}
			if err := deleteRecord(tx, storageName, specs, record, id); err != nil {
				return err
			}
			return tx.Commit()
		}, true)
	}

	index, ok := findIndex(specs, q.Key)
	if !ok {
		return fmt.Errorf("%w: %q in storage %q", core.ErrUnknownIndex, q.Key, storageName)
	}
	encoded, err := encodeScalar(q.Value)
	if err != nil {
		return err
	}

	return db.backend.WithTx(func(tx *badger.Txn) error {
		// Walk the exact-match range first; mutating while iterating would
		// shift the cursor under us.
		ids, err := collectIndexIDs(tx, storageName, index.Name, encoded)
		if err != nil {
			return err
		}
		for _, id := range ids {
			record, err := readRecord(tx, makeRecordKey(storageName, id))
			if err != nil {
				return err
			}
			if record == nil {
				// Dangling entry; drop it and move on.
				if err := tx.Delete(makeIndexEntryKey(storageName, index.Name, index.Unique, encoded, id)); err != nil {
					return err
				}
				continue
			}
			if err := deleteRecord(tx, storageName, specs, record, id); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
}

// collectIndexIDs gathers every primary key holding the encoded value in the
// index.
func collectIndexIDs(tx *badger.Txn, storageName, indexName string, encoded []byte) ([]core.ID, error) {
	prefix := makeIndexValuePrefix(storageName, indexName, encoded)
	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix
	iter := tx.NewIterator(opts)
	defer iter.Close()

	var ids []core.ID
	for iter.Rewind(); iter.Valid(); iter.Next() {
		id, err := valueID(iter.Item())
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// deleteRecord removes a record together with every index entry derived
// from it.
func deleteRecord(tx *badger.Txn, storageName string, specs []core.IndexSpec, record core.Record, id core.ID) error {
	for _, spec := range specs {
		encoded := encodeField(record, spec.Field)
		if encoded == nil {
			continue
		}
		if err := tx.Delete(makeIndexEntryKey(storageName, spec.Name, spec.Unique, encoded, id)); err != nil {
			return err
		}
	}
	return tx.Delete(makeRecordKey(storageName, id))
}
