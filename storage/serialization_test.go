package storage

import (
	"testing"
	"time"

	"github.com/poiesic/scriptvault/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNamespaceRecordSerialization(t *testing.T) {
	record := &NamespaceRecord{
		Group:     "game",
		Entity:    "boss-ai",
		CreatedAt: time.Date(2024, 3, 7, 9, 5, 2, 123456000, time.UTC),
	}

	decoded, err := UnmarshalNamespaceRecord(MarshalNamespaceRecord(record))
	require.NoError(t, err)
	assert.Equal(t, record, decoded)
	assert.Equal(t, core.Namespace{Group: "game", Entity: "boss-ai"}, decoded.Namespace())
}

func TestUnmarshalNamespaceRecord_Truncated(t *testing.T) {
	data := MarshalNamespaceRecord(&NamespaceRecord{Group: "game", Entity: "boss", CreatedAt: time.Now()})

	_, err := UnmarshalNamespaceRecord(data[:3])
	assert.ErrorIs(t, err, ErrSerializationFailed)

	_, err = UnmarshalNamespaceRecord(nil)
	assert.ErrorIs(t, err, ErrSerializationFailed)
}
