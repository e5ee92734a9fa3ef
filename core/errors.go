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


package core

import "errors"

// Precondition errors. These are raised before any engine request is issued
// and are never retried.
var (
	// ErrNotConfigured indicates Init was attempted without a schema.
	ErrNotConfigured = errors.New("no schema configured")

	// ErrNotOpen indicates an operation that requires an open database connection.
	ErrNotOpen = errors.New("database is not open")

	// ErrNoStorageSelected indicates an operation on a zero-value or spent selection.
	ErrNoStorageSelected = errors.New("no storage selected")

	// ErrUnknownStorage indicates the targeted storage is not declared.
	ErrUnknownStorage = errors.New("unknown storage")

	// ErrUnknownIndex indicates a query named an index the storage does not declare.
	ErrUnknownIndex = errors.New("unknown index")

	// ErrStorageExists indicates an explicit create of an existing storage.
	ErrStorageExists = errors.New("storage already exists")

	// ErrMissingKey indicates an update record that does not carry its primary key.
	ErrMissingKey = errors.New("record is missing its primary key")

	// ErrInvalidSchema indicates a schema descriptor that failed validation.
	ErrInvalidSchema = errors.New("invalid schema")

	// ErrInvalidQuery indicates invalid query parameters.
	ErrInvalidQuery = errors.New("invalid query parameters")
)
