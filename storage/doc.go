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


// Package storage provides the persistence abstraction for imported documents.
//
// The import pipeline only needs one primitive from storage: a durable,
// per-identifier upsert of a batch of documents. DocumentRepository captures
// that primitive together with the single-document lookups used by the CLI
// and HTTP surfaces.
//
// # Upsert Semantics
//
// Documents are keyed by (Kind, DocumentKey). Saving a document whose key
// already exists replaces it, so re-importing an unchanged directory is a
// no-op in effect. Concurrent saves of the same key are last-write-wins.
//
// # Usage
//
//	backend, err := badger.OpenBackend("/path/to/db", false)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer backend.Close()
//
//	repo := badger.NewDocumentRepository(backend)
//	saved, err := repo.Save(ctx, job, variant)
//
// Use in tests with in-memory storage:
//
//	repo, backend, err := badger.NewMemoryRepository()
//
// # Thread Safety
//
// All repository implementations must be safe for concurrent use.
package storage
