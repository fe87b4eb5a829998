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

// Namespace identifies one version history.
type Namespace struct {
	Group  string
	Entity string
}

// String returns "group/entity".
func (ns Namespace) String() string {
	return ns.Group + "/" + ns.Entity
}

// OutcomeKind reports what a write did.
type OutcomeKind int

const (
	// OutcomeCreated means a new version was persisted.
	OutcomeCreated OutcomeKind = iota + 1
	// OutcomeDeduplicated means the payload matched the latest version and nothing was written.
	OutcomeDeduplicated
)

// String returns the lowercase name of the outcome.
func (k OutcomeKind) String() string {
	switch k {
	case OutcomeCreated:
		return "created"
	case OutcomeDeduplicated:
		return "deduplicated"
	default:
		return "unknown"
	}
}

// WriteOutcome is the result of a successful write.
type WriteOutcome struct {
	Kind OutcomeKind
	// Version is the new version for OutcomeCreated, and the unchanged
	// latest version for OutcomeDeduplicated.
	Version VersionID
	// Pruned lists versions removed by the retention pass that followed the write.
	Pruned []VersionID
}

// Created reports whether the write produced a new version.
func (o WriteOutcome) Created() bool {
	return o.Kind == OutcomeCreated
}
