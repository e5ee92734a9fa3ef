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


// Package storage provides the storage abstraction layer for stash.
//
// It defines the Store interface that decouples the client facade from the
// storage engine, the engine-facing error sentinels, and the serialization
// helpers shared by every backend.
//
// # Architecture
//
//   - Store: the full engine contract (lifecycle, query, mutation, deletion)
//   - storage/badger: the production implementation on BadgerDB
//
// # Serialization
//
// Primary keys, schema versions and index declarations use the MUS binary
// format (mus-go). Records themselves are schema-free maps and are stored as
// JSON; numeric field values therefore come back as float64.
//
// # Error Matching
//
// All sentinels are matched with errors.Is. Engine errors pass through the
// badger backend unmodified apart from %w wrapping, so callers can always
// distinguish a unique-index collision (ErrDuplicateKey) from, say, a closed
// store (ErrStorageClosed).
package storage
