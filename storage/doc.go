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


// Package storage provides the storage abstraction layer for cardseek.
//
// A built corpus is persisted as a single Snapshot: the card table, the index
// units, one vector per unit and a Manifest describing how they were built.
// The SnapshotRepository interface decouples the build and query paths from
// the backend that holds the snapshot.
//
// # Constructor Return Type Pattern
//
// Public constructors return the interface, not the backend type:
//
//	repo, err := badger.NewRepository(path)  // returns storage.SnapshotRepository
//
// Internal package constructors (newRepository, OpenBackend, etc.) may return
// concrete types since they're only used within the implementation package.
//
// # Serialization
//
// Values are encoded with mus-go. Every codec has a Marshal and an Unmarshal
// function in this package, and every Unmarshal error wraps
// ErrSerializationFailed.
//
// # Usage
//
// Persist a freshly built snapshot:
//
//	repo, err := badger.NewRepository("/path/to/db")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer repo.Close()
//	err = repo.Save(ctx, snap)
//
// Use in tests with in-memory storage:
//
//	repo, err := badger.NewMemoryRepository()
//
// # Consistency
//
// Snapshot.Verify checks counts, dimensions, row numbering and the card
// checksum recorded in the manifest. Both Save and Load run it, so a store
// whose card order no longer matches its vectors is never served.
package storage
