package storage

import (
	"context"

	"github.com/poiesic/stash/core"
)

// Store is the engine-facing contract consumed by the client facade. The
// badger sub-package provides the production implementation; the interface
// exists so the facade never couples to engine specifics and so tests can
// substitute a fake.
type Store interface {
	// Storages returns the names of the storages present in the database.
	Storages() []string

	// HasStorage reports whether the named storage exists.
	HasStorage(name string) bool

	// CreateStorage creates a storage after the upgrade phase, adopting any
	// index declarations the active schema carries for that name.
	// Returns core.ErrStorageExists when the storage is already present.
	CreateStorage(ctx context.Context, name string) error

	// DeleteStorage removes a storage together with its records, index
	// entries and sequence state. Deleting an absent storage is a no-op.
	DeleteStorage(ctx context.Context, name string) error

	// Select executes a selection descriptor against a storage and returns
	// the matching records in key order.
	Select(ctx context.Context, storage string, q core.Query) ([]core.Record, error)

	// Insert writes a record, assigning the next primary key from the
	// storage's sequence. Returns ErrDuplicateKey on a unique-index
	// collision.
	Insert(ctx context.Context, storage string, record core.Record) (core.ID, error)

	// Update replaces the record carrying the given primary key entirely.
	// Returns ErrNotFound when no such record exists.
	Update(ctx context.Context, storage string, record core.Record) error

	// Delete removes the single record at a primary key, or every record
	// matching an exact index value.
	Delete(ctx context.Context, storage string, q core.Query) error

	// Drop deletes the whole database and its on-disk representation.
	// Returns ErrDeleteBlocked while other connections remain open.
	Drop(ctx context.Context) error

	// Close releases this connection without deleting data.
	Close() error
}
