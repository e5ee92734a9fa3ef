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


package stash

import (
	"context"
	"log/slog"
	"sync"

	"github.com/poiesic/stash/core"
	"github.com/poiesic/stash/storage"
	badgerstore "github.com/poiesic/stash/storage/badger"
)

// Client is one connection to a named database. Configure it with a schema,
// Init it, then target storages through From.
type Client struct {
	mu     sync.Mutex
	schema *core.Schema
	store  storage.Store
	opts   clientOptions
	inited bool
}

// ClientOption configures a Client.
type ClientOption func(*clientOptions)

type clientOptions struct {
	dir      string
	inMemory bool
	logger   *slog.Logger
}

// WithDir sets the root directory holding one subdirectory per database.
// Defaults to the current directory.
func WithDir(dir string) ClientOption {
	return func(o *clientOptions) {
		o.dir = dir
	}
}

// WithInMemory keeps the database off disk entirely.
func WithInMemory() ClientOption {
	return func(o *clientOptions) {
		o.inMemory = true
	}
}

// WithLogger overrides the default slog logger.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(o *clientOptions) {
		o.logger = logger
	}
}

// New creates an unconfigured client.
func New(opts ...ClientOption) *Client {
	options := clientOptions{logger: slog.Default()}
	for _, opt := range opts {
		opt(&options)
	}
	return &Client{opts: options}
}

// Configure replaces the active schema descriptor and returns the client
// for chaining. The descriptor is validated by Init, which fails with
// ErrNotConfigured when Configure was never called.
func (c *Client) Configure(schema core.Schema) *Client {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := schema
	c.schema = &s
	return c
}

// Init opens the database by name and version. On a fresh database or a
// version increase, every declared storage that does not yet exist is
// created together with its indexes. The initialized flag is set only on a
// successful open; a failed open leaves it untouched. Calling Init on an
// initialized client is a no-op.
func (c *Client) Init(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.inited {
		return nil
	}
	if c.schema == nil {
		return core.ErrNotConfigured
	}
	store, err := badgerstore.Open(ctx, *c.schema, badgerstore.Options{
		Dir:      c.opts.dir,
		InMemory: c.opts.inMemory,
		Logger:   c.opts.logger,
	})
	if err != nil {
		return err
	}
	c.store = store
	c.inited = true
	return nil
}

// IsInited reports whether the database connection is open.
func (c *Client) IsInited() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inited
}

// From targets a storage for the next operation. The returned selection is
// single-use: it is spent by whichever operation runs on it, success or
// failure, so a stale target can never leak into the next call chain.
// Independent selections may run concurrently.
func (c *Client) From(storageName string) *Selection {
	return &Selection{client: c, storage: storageName}
}

// Storages returns the names of the storages present in the database, or
// nil before Init.
func (c *Client) Storages() []string {
	store, err := c.openStore()
	if err != nil {
		return nil
	}
	return store.Storages()
}

// CreateStorage creates a storage after Init, outside the upgrade phase.
// Fails with ErrStorageExists when the storage is already present and with
// ErrNotOpen when the connection is not open.
func (c *Client) CreateStorage(ctx context.Context, name string) error {
	store, err := c.openStore()
	if err != nil {
		return err
	}
	return store.CreateStorage(ctx, name)
}

// DeleteStorage removes a storage with everything in it. Deleting an absent
// storage is a no-op.
func (c *Client) DeleteStorage(ctx context.Context, name string) error {
	store, err := c.openStore()
	if err != nil {
		return err
	}
	return store.DeleteStorage(ctx, name)
}

// DeleteDatabase deletes the whole database and resets the initialized
// flag. While another client holds the same database open the delete fails
// with ErrDeleteBlocked and the flag is unchanged.
func (c *Client) DeleteDatabase(ctx context.Context) error {
	store, err := c.openStore()
	if err != nil {
		return err
	}
	if err := store.Drop(ctx); err != nil {
		return err
	}
	c.mu.Lock()
	c.store = nil
	c.inited = false
	c.mu.Unlock()
	return nil
}

// Close releases the connection without deleting data.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.store == nil {
		return nil
	}
	err := c.store.Close()
	c.store = nil
	c.inited = false
	return err
}

// openStore hands back the live store, or ErrNotOpen before Init.
func (c *Client) openStore() (storage.Store, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.inited || c.store == nil {
		return nil, core.ErrNotOpen
	}
	return c.store, nil
}
