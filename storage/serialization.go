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


package storage

import (
	"fmt"
	"time"

	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/varint"
	"github.com/poiesic/scriptvault/core"
)

// NamespaceRecord marks a resolved namespace in key-value backends.
type NamespaceRecord struct {
	Group     string
	Entity    string
	CreatedAt time.Time
}

// Namespace returns the namespace the record describes.
func (r NamespaceRecord) Namespace() core.Namespace {
	return core.Namespace{Group: r.Group, Entity: r.Entity}
}

// MarshalNamespaceRecord serializes a NamespaceRecord to bytes.
// Layout: group, entity, created-at in unix microseconds.
func MarshalNamespaceRecord(record *NamespaceRecord) []byte {
	micros := record.CreatedAt.UnixMicro()
	size := ord.String.Size(record.Group) +
		ord.String.Size(record.Entity) +
		varint.Int64.Size(micros)
	buf := make([]byte, size)
	n := ord.String.Marshal(record.Group, buf)
	n += ord.String.Marshal(record.Entity, buf[n:])
	varint.Int64.Marshal(micros, buf[n:])
	return buf
}

// UnmarshalNamespaceRecord deserializes a NamespaceRecord from bytes.
func UnmarshalNamespaceRecord(data []byte) (*NamespaceRecord, error) {
	group, n, err := ord.String.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: group: %w", ErrSerializationFailed, err)
	}
	entity, m, err := ord.String.Unmarshal(data[n:])
	if err != nil {
		return nil, fmt.Errorf("%w: entity: %w", ErrSerializationFailed, err)
	}
	n += m
	micros, _, err := varint.Int64.Unmarshal(data[n:])
	if err != nil {
		return nil, fmt.Errorf("%w: created at: %w", ErrSerializationFailed, err)
	}
	return &NamespaceRecord{
		Group:     group,
		Entity:    entity,
		CreatedAt: time.UnixMicro(micros).UTC(),
	}, nil
}
