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
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"
)

const (
	// VersionLayout is the time layout of a version id. Fixed width and zero
	// padded so that string order equals chronological order.
	VersionLayout = "2006-01-02-15-04-05"

	// VersionExtension is appended to a version id to form its file name.
	VersionExtension = ".lua"

	// SentinelVersionID is reported by informational "latest" queries when a
	// namespace has no versions. It is never assigned to a real version.
	SentinelVersionID VersionID = "1990-01-01-01-01-01"

	// MaxSequence is the largest same-second disambiguator.
	MaxSequence = 999

	// sequenceSeparator sorts after '.', keeping file names ordered too.
	sequenceSeparator = "_"
)

var versionPattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}-\d{2}-\d{2}-\d{2}(_\d{3})?$`)

// VersionID identifies a version within a namespace.
// Format: YYYY-MM-DD-hh-mm-ss with an optional _NNN same-second sequence.
type VersionID string

// NewVersionID returns the base version id for t, truncated to the second in UTC.
func NewVersionID(t time.Time) VersionID {
	return VersionID(t.UTC().Format(VersionLayout))
}

// String returns the id as a string.
func (v VersionID) String() string {
	return string(v)
}

// FileName returns the on-disk name of the version.
func (v VersionID) FileName() string {
	return string(v) + VersionExtension
}

// Valid reports whether v follows the version naming convention.
func (v VersionID) Valid() bool {
	return versionPattern.MatchString(string(v))
}

// Base returns the timestamp part of v without any sequence suffix.
func (v VersionID) Base() VersionID {
	if i := strings.Index(string(v), sequenceSeparator); i >= 0 {
		return v[:i]
	}
	return v
}

// Sequence returns the same-second disambiguator of v, 0 when absent.
func (v VersionID) Sequence() int {
	i := strings.Index(string(v), sequenceSeparator)
	if i < 0 {
		return 0
	}
	n, err := strconv.Atoi(string(v[i+1:]))
	if err != nil {
		return 0
	}
	return n
}

// Time parses the timestamp part of v.
func (v VersionID) Time() (time.Time, error) {
	return time.ParseInLocation(VersionLayout, string(v.Base()), time.UTC)
}

// ParseFileName extracts a version id from a file name.
// Returns false for names that do not follow the version naming convention.
func ParseFileName(name string) (VersionID, bool) {
	if !strings.HasSuffix(name, VersionExtension) {
		return "", false
	}
	id := VersionID(strings.TrimSuffix(name, VersionExtension))
	if !id.Valid() {
		return "", false
	}
	return id, true
}

// NextVersionID returns the id for a version created at now, given the
// current latest version of the namespace (empty when there is none).
// The result is always strictly greater than latest. When now falls in the
// same second as latest, or before it, the latest base is reused with the
// next sequence number.
func NextVersionID(now time.Time, latest VersionID) (VersionID, error) {
	candidate := NewVersionID(now)
	if latest == "" || candidate > latest.Base() {
		return candidate, nil
	}
	seq := latest.Sequence() + 1
	if seq > MaxSequence {
		return "", fmt.Errorf("%w: sequence exhausted after %s", ErrConflict, latest)
	}
	return VersionID(fmt.Sprintf("%s%s%03d", latest.Base(), sequenceSeparator, seq)), nil
}

// SortVersions sorts ids in place, oldest first.
func SortVersions(ids []VersionID) {
	slices.Sort(ids)
}

// Latest returns the greatest id, or false if ids is empty.
func Latest(ids []VersionID) (VersionID, bool) {
	if len(ids) == 0 {
		return "", false
	}
	return slices.Max(ids), true
}
