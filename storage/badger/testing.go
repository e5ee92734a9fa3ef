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

	"github.com/poiesic/stash/core"
)

// NewMemoryDB opens an in-memory database for testing.
// In-memory databases are registered under the schema name like on-disk
// ones, so tests sharing a name share data; use distinct names per test.
// Caller must close the handle when done.
func NewMemoryDB(schema core.Schema) (*DB, error) {
	return Open(context.Background(), schema, Options{InMemory: true})
}
