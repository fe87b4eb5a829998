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


// Package storage provides the backing store abstraction for scriptvault.
//
// This package defines the interfaces that decouple version persistence from
// the write and read logic in package store. Two backends are provided:
//
//   - filesystem: the authoritative layout, one directory per group and entity
//     holding one file per version
//   - badger: an embedded key-value alternative for the same contract
//
// # Constructor Return Type Pattern
//
// Public backend constructors return the storage.Backend interface:
//
//	backend, err := filesystem.NewBackend("/var/lib/scriptvault")  // returns storage.Backend
//
// Backend-specific helpers (OpenBackend in package badger) may return
// concrete types since they expose lifecycle details such as IsClosed.
//
// # Architecture
//
//   - NamespaceResolver: maps (group, entity) to a Location, creating it on first use
//   - VersionIndex: lists the version ids stored at a Location
//   - VersionStore: reads, atomically writes and deletes single versions
//   - Backend: all of the above plus Close
//
// Identifiers are validated by the caller (core.ValidateNamespace) before a
// backend is ever invoked. Backends do not lock: callers serialize writes to
// a namespace, while reads may run concurrently with a write.
//
// # Atomicity
//
// WriteVersion must make a version either fully visible or not visible at
// all. A partially written version must never appear in ListVersions.
//
// # Thread Safety
//
// All backend implementations must be safe for concurrent use from
// multiple goroutines.
package storage
