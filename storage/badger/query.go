package badger

import (
	"bytes"
	"context"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/stash/core"
	"github.com/poiesic/stash/storage"
)

// bounds is a half-open key interval [start, end).
type bounds struct {
	start []byte
	end   []byte
}

// Select executes a selection descriptor against a storage. Results come
// back ascending by the targeted key, or in exact reverse for OrderDesc,
// with ties within a non-unique index broken by primary key. Count caps the
// result; running out of records first is a short result, not an error.
func (db *DB) Select(ctx context.Context, storageName string, q core.Query) ([]core.Record, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	specs, err := db.indexSpecs(storageName)
	if err != nil {
		return nil, err
	}

	var index core.IndexSpec
	if !q.Primary() {
		var ok bool
		index, ok = findIndex(specs, q.Key)
		if !ok {
			return nil, fmt.Errorf("%w: %q in storage %q", core.ErrUnknownIndex, q.Key, storageName)
		}
	}

	var results []core.Record
	err = db.backend.WithTx(func(tx *badger.Txn) error {
		switch q.Plan() {
		case core.StrategyPrimaryBulk, core.StrategyPrimaryCursor:
			// A scalar value on the primary space is a point lookup.
			if _, isRange := asRange(q.Value); q.Value != nil && !isRange {
				id, ok := core.ToID(q.Value)
				if !ok {
					return fmt.Errorf("%w: primary key %v", storage.ErrUnindexableValue, q.Value)
				}
				record, err := readRecord(tx, makeRecordKey(storageName, id))
				if err != nil {
					return err
				}
				if record != nil {
					results = append(results, record)
				}
				return nil
			}

			b, err := primaryBounds(storageName, q.Value)
			if err != nil {
				return err
			}
			return scan(tx, b, q.Order == core.OrderDesc, func(item *badger.Item) error {
				record, err := valueRecord(item)
				if err != nil {
					return err
				}
				results = append(results, record)
				return nil
			}, q.Count)

		case core.StrategyIndexBulk, core.StrategyIndexCursor:
			b, err := indexBounds(storageName, index.Name, q.Value)
			if err != nil {
				return err
			}
			return scan(tx, b, q.Order == core.OrderDesc, func(item *badger.Item) error {
				id, err := valueID(item)
				if err != nil {
					return err
				}
				record, err := readRecord(tx, makeRecordKey(storageName, id))
				if err != nil {
					return err
				}
				if record != nil {
					results = append(results, record)
				}
				return nil
			}, q.Count)
		}
		return nil
	}, false)

	if err != nil {
		return nil, err
	}
	return results, nil
}

// scan walks [b.start, b.end) forward, or backward for reverse, invoking fn
// per key until the interval or the limit is exhausted. limit 0 means
// unbounded.
func scan(tx *badger.Txn, b bounds, reverse bool, fn func(item *badger.Item) error, limit int) error {
	opts := badger.DefaultIteratorOptions
	opts.Reverse = reverse
	iter := tx.NewIterator(opts)
	defer iter.Close()

	seek := b.start
	if reverse {
		// A reverse seek positions at the largest key <= the seek key; b.end
		// is exclusive and never a stored key, so this lands on the last key
		// of the interval.
		seek = b.end
	}

	count := 0
	for iter.Seek(seek); iter.Valid(); iter.Next() {
		if limit > 0 && count >= limit {
			break
		}
		key := iter.Item().Key()
		if reverse {
			if bytes.Compare(key, b.end) >= 0 {
				continue
			}
			if bytes.Compare(key, b.start) < 0 {
				break
			}
		} else if bytes.Compare(key, b.end) >= 0 {
			break
		}
		if err := fn(iter.Item()); err != nil {
			return err
		}
		count++
	}
	return nil
}

// primaryBounds computes the key interval of a primary-key range scan.
func primaryBounds(storageName string, value any) (bounds, error) {
	prefix := makeRecordPrefix(storageName)
	b := bounds{start: prefix, end: prefixSuccessor(prefix)}
	if value == nil {
		return b, nil
	}
	r, ok := asRange(value)
	if !ok {
		return bounds{}, fmt.Errorf("%w: primary range %v", storage.ErrUnindexableValue, value)
	}
	if r.Lower != nil {
		id, ok := core.ToID(r.Lower)
		if !ok {
			return bounds{}, fmt.Errorf("%w: lower bound %v", storage.ErrUnindexableValue, r.Lower)
		}
		b.start = append(append([]byte{}, prefix...), encodeID(id)...)
		if r.LowerOpen {
			b.start = append(b.start, 0x00)
		}
	}
	if r.Upper != nil {
		id, ok := core.ToID(r.Upper)
		if !ok {
			return bounds{}, fmt.Errorf("%w: upper bound %v", storage.ErrUnindexableValue, r.Upper)
		}
		b.end = append(append([]byte{}, prefix...), encodeID(id)...)
		if !r.UpperOpen {
			b.end = append(b.end, 0x00)
		}
	}
	return b, nil
}

// indexBounds computes the key interval of an index scan: the whole index
// for a nil value, one value's entries for a scalar, and the bounded stretch
// for a Range.
func indexBounds(storageName, indexName string, value any) (bounds, error) {
	prefix := makeIndexPrefix(storageName, indexName)
	b := bounds{start: prefix, end: prefixSuccessor(prefix)}
	if value == nil {
		return b, nil
	}

	if r, ok := asRange(value); ok {
		if r.Lower != nil {
			encoded, err := encodeScalar(r.Lower)
			if err != nil {
				return bounds{}, err
			}
			b.start = append(append([]byte{}, prefix...), encoded...)
			if r.LowerOpen {
				// Skip past every entry of the bound value itself.
				b.start = append(b.start, entrySeparator+1)
			}
		}
		if r.Upper != nil {
			encoded, err := encodeScalar(r.Upper)
			if err != nil {
				return bounds{}, err
			}
			b.end = append(append([]byte{}, prefix...), encoded...)
			if !r.UpperOpen {
				b.end = append(b.end, entrySeparator+1)
			}
		}
		return b, nil
	}

	encoded, err := encodeScalar(value)
	if err != nil {
		return bounds{}, err
	}
	b.start = makeIndexValuePrefix(storageName, indexName, encoded)
	b.end = prefixSuccessor(b.start)
	return b, nil
}

// asRange normalizes the two accepted range forms.
func asRange(v any) (core.Range, bool) {
	switch r := v.(type) {
	case core.Range:
		return r, true
	case *core.Range:
		if r == nil {
			return core.Range{}, false
		}
		return *r, true
	default:
		return core.Range{}, false
	}
}

// readRecord reads a record by key. Returns nil, nil when the key is absent,
// leaving "not found" semantics to the caller.
func readRecord(tx *badger.Txn, key []byte) (core.Record, error) {
	item, err := tx.Get(key)
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return nil, nil
		}
		return nil, err
	}

	var record core.Record
	err = item.Value(func(val []byte) error {
		var unmarshalErr error
		record, unmarshalErr = storage.UnmarshalRecord(val)
		return unmarshalErr
	})
	return record, err
}

// valueRecord decodes the record stored in an item.
func valueRecord(item *badger.Item) (core.Record, error) {
	var record core.Record
	err := item.Value(func(val []byte) error {
		var unmarshalErr error
		record, unmarshalErr = storage.UnmarshalRecord(val)
		return unmarshalErr
	})
	return record, err
}

// valueID decodes the primary key stored in an index entry.
func valueID(item *badger.Item) (core.ID, error) {
	var id core.ID
	err := item.Value(func(val []byte) error {
		var unmarshalErr error
		id, unmarshalErr = storage.UnmarshalID(val)
		return unmarshalErr
	})
	return id, err
}
