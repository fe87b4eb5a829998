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


// Package store implements the versioned artifact store.
//
// A Store keeps a bounded history of distinct payloads per namespace
// (group, entity) on top of a storage.Backend:
//
//   - Put deduplicates against the latest version, assigns a new version id
//     and persists it atomically, then prunes old versions
//   - ListVersions returns the stored ids oldest first
//   - GetLatestInfo returns the latest id, or core.SentinelVersionID
//   - GetLatestContent returns the latest id and payload, or core.ErrNotFound
//
// # Concurrency
//
// Writes and retention passes for the same namespace are serialized by a
// LockRegistry owned by the Store. Reads take no lock; they may observe the
// state before or after a concurrent write, but never a partial version.
//
// # Errors
//
// All errors wrap one of core.ErrInvalidIdentifier, core.ErrNotFound,
// core.ErrStorage or core.ErrConflict. Identifiers are validated before the
// backend is touched.
//
// # Usage
//
//	backend, err := filesystem.NewBackend("./data_storage")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer backend.Close()
//
//	s, err := store.NewStore(backend)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	outcome, err := s.Put(ctx, "game", "boss", []byte("return {}"))
package store
