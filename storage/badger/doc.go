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


// Package badger implements the storage engine on BadgerDB.
//
// # Key Layout
//
// One BadgerDB instance holds one database. Its key space is partitioned by
// prefix:
//
//	rec:<storage>:<id>                     primary records (JSON)
//	idx:<storage>:<index>:<value>\x00<id>  index entries (MUS-encoded ID)
//	sto:<storage>                          storage marker (MUS index specs)
//	seq:<storage>                          ID sequence state
//	meta:version, meta:schema              migration version and fingerprint
//
// A unique index holds one entry per value, keyed without the <id> suffix;
// the point read guarding uniqueness then doubles as transaction conflict
// detection, so concurrent writers of the same value cannot both commit.
//
// Primary keys and index values are encoded so that BadgerDB's lexicographic
// key order equals the logical order: IDs as BigEndian, numbers through an
// order-preserving float64 transform, strings as raw bytes behind a type
// tag. The NUL byte terminates the value inside a composite key, so strings
// containing NUL are rejected as index values (ErrUnindexableValue) and
// indexed fields holding one are simply left out of the index. Ascending
// scans therefore come straight off a forward iterator; only descending
// traversals walk a reverse cursor.
//
// # Connections
//
// Handles to the same database share one Backend through a process-wide
// registry. Drop refuses to delete the database while another handle holds
// it open.
package badger
