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


// Package stash is a typed query layer over a transactional key-value
// engine. It offers a declarative, chainable surface - select a storage,
// filter, sort, limit, mutate - instead of driving cursor and transaction
// primitives directly.
//
// # Usage
//
//	client := stash.New(stash.WithDir("/var/lib/myapp")).Configure(core.Schema{
//	    Name:     "app",
//	    Version:  1,
//	    Storages: []string{"tasks"},
//	    Indexes: map[string][]core.IndexSpec{
//	        "tasks": {{Name: "tasksName", Field: "name"}},
//	    },
//	})
//	if err := client.Init(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	id, err := client.From("tasks").Insert(ctx, core.Record{"name": "A"})
//	records, err := client.From("tasks").Select(ctx, core.Query{
//	    Key: "tasksName", Value: "A",
//	})
//	err = client.From("tasks").Delete(ctx, core.Query{
//	    Key: "tasksName", Value: "A",
//	})
//
// Every operation consumes the selection returned by From, so a forgotten
// call can never reuse a stale target. Selections are independent of each
// other and safe to run concurrently; the engine serializes per
// transaction.
//
// # Migration
//
// Schemas are versioned. Storages and indexes are created during the
// upgrade phase of Init - on first creation or a version increase - and a
// schema may not change without a version bump. See storage/badger for the
// engine contract.
package stash
