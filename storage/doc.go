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


// Package storage provides the storage abstraction layer for vitae.
//
// This package defines the collaborator interfaces that decouple segment
// persistence and search from extraction and retrieval. Two backends
// implement them: storage/badger (embedded) and storage/pgvector (PostgreSQL).
//
// # Constructor Return Type Pattern
//
// Public constructors return interfaces so callers never couple to a backend:
//
//	segments, states, err := badger.NewRepositories(path)
//
// Internal constructors (newSegmentRepository, newBackend, etc.) may return
// concrete types since they're only used within the implementation package.
//
// # Architecture
//
//   - VectorSearcher: similarity search with a hard threshold
//   - TextSearcher: keyword search used as the fallback path
//   - SegmentRepository: segment persistence plus both searches
//   - DocumentStateRepository: per-document content hashes for change detection
//
// # Usage
//
// Use in tests with in-memory storage:
//
//	segments, states, err := badger.NewMemoryRepositories()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer segments.Close()
//
// # Thread Safety
//
// All repository implementations must be thread-safe and support
// concurrent access from multiple goroutines.
package storage
