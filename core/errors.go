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

// Store error kinds. Callers match them with errors.Is.
var (
	// ErrInvalidIdentifier indicates a malformed group or entity.
	ErrInvalidIdentifier = errors.New("invalid identifier")

	// ErrNotFound indicates that a namespace has no versions.
	ErrNotFound = errors.New("no versions found")

	// ErrStorage indicates an I/O failure in the backing store.
	ErrStorage = errors.New("storage failure")

	// ErrConflict indicates a version id collision that could not be resolved.
	ErrConflict = errors.New("version conflict")
)

// Identifier validation errors
var (
	// ErrEmptyIdentifier indicates an empty group or entity.
	ErrEmptyIdentifier = errors.New("identifier cannot be empty")

	// ErrIdentifierTooLong indicates a group or entity longer than MaxIdentifierLength.
	ErrIdentifierTooLong = errors.New("identifier too long")

	// ErrPathTraversal indicates a group or entity containing a separator or parent segment.
	ErrPathTraversal = errors.New("identifier contains path segments")
)
