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

import (
	"fmt"
	"strings"
)

// MaxIdentifierLength is the longest accepted group or entity, in bytes.
const MaxIdentifierLength = 255

// ValidateNamespace validates both parts of a namespace.
func ValidateNamespace(ns Namespace) error {
	if err := ValidateIdentifier(ns.Group); err != nil {
		return fmt.Errorf("group: %w", err)
	}
	if err := ValidateIdentifier(ns.Entity); err != nil {
		return fmt.Errorf("entity: %w", err)
	}
	return nil
}

// ValidateIdentifier checks that a group or entity is safe to use as a
// single storage path component.
//
// Validation rules:
//   - must not be empty or longer than MaxIdentifierLength
//   - must not be "." or contain ".."
//   - must not contain '/', '\' or NUL
func ValidateIdentifier(id string) error {
	if id == "" {
		return fmt.Errorf("%w: %w", ErrInvalidIdentifier, ErrEmptyIdentifier)
	}
	if len(id) > MaxIdentifierLength {
		return fmt.Errorf("%w: %w", ErrInvalidIdentifier, ErrIdentifierTooLong)
	}
	if id == "." || strings.Contains(id, "..") || strings.ContainsAny(id, "/\\\x00") {
		return fmt.Errorf("%w: %w: %q", ErrInvalidIdentifier, ErrPathTraversal, id)
	}
	return nil
}
