package stash

import (
	"context"
	"sync"

	"github.com/poiesic/stash/core"
	"github.com/poiesic/stash/storage"
)

// Selection is a single-use handle targeting one storage, produced by
// Client.From. Whichever operation runs on it claims it exactly once,
// before anything touches the connection, so the target is cleared on both
// the success and the failure path. A spent or zero-value selection fails
// every operation with ErrNoStorageSelected.
type Selection struct {
	client  *Client
	storage string

	mu    sync.Mutex
	spent bool
}

// use claims the selection. This is the one place the "currently selected
// storage" state is consumed, whatever the operation outcome.
func (s *Selection) use() (storage.Store, error) {
	if s == nil {
		return nil, core.ErrNoStorageSelected
	}
	s.mu.Lock()
	if s.client == nil || s.storage == "" || s.spent {
		s.mu.Unlock()
		return nil, core.ErrNoStorageSelected
	}
	s.spent = true
	s.mu.Unlock()
	return s.client.openStore()
}

// Select returns the records matching the descriptor, ordered by the
// targeted key. A nil-equivalent (zero) query returns every record of the
// storage in ascending primary-key order. Fewer than Count matches is a
// short result; no match at all is an empty one. Neither is an error.
func (s *Selection) Select(ctx context.Context, q core.Query) ([]core.Record, error) {
	store, err := s.use()
	if err != nil {
		return nil, err
	}
	return store.Select(ctx, s.storage, q)
}

// Insert writes the record and returns its engine-assigned primary key.
// The caller's map is left untouched; the stored copy carries the key under
// core.PrimaryKeyField.
func (s *Selection) Insert(ctx context.Context, record core.Record) (core.ID, error) {
	store, err := s.use()
	if err != nil {
		return 0, err
	}
	return store.Insert(ctx, s.storage, record)
}

// Update replaces the record carrying the same primary key entirely.
// The record must carry its key (ErrMissingKey) and must exist
// (storage.ErrNotFound).
func (s *Selection) Update(ctx context.Context, record core.Record) error {
	store, err := s.use()
	if err != nil {
		return err
	}
	return store.Update(ctx, s.storage, record)
}

// Delete removes the single record at a primary-key value, or every record
// matching an exact secondary-index value.
func (s *Selection) Delete(ctx context.Context, q core.Query) error {
	store, err := s.use()
	if err != nil {
		return err
	}
	return store.Delete(ctx, s.storage, q)
}
