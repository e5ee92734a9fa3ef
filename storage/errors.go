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


package storage

import "errors"

var (
	// ErrNotFound indicates that the requested record was not found.
	ErrNotFound = errors.New("record not found")

	// ErrDuplicateKey indicates a unique-index violation.
	ErrDuplicateKey = errors.New("duplicate key")

	// ErrDeleteBlocked indicates that a database delete was refused because
	// another connection to the same database remains open.
	ErrDeleteBlocked = errors.New("database delete blocked by open connection")

	// ErrVersionConflict indicates an open at a version lower than the one
	// already stored.
	ErrVersionConflict = errors.New("requested version is lower than stored version")

	// ErrSchemaChanged indicates that the descriptor changed without a
	// version bump.
	ErrSchemaChanged = errors.New("schema changed without a version bump")

	// ErrStorageClosed indicates that the storage backend is closed.
	ErrStorageClosed = errors.New("storage is closed")

	// ErrUnindexableValue indicates a value that cannot serve as an index or
	// range bound.
	ErrUnindexableValue = errors.New("value cannot be used as a key")

	// ErrSerializationFailed indicates a serialization/deserialization failure.
	ErrSerializationFailed = errors.New("serialization failed")
)
