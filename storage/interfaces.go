package storage

import (
	"context"

	"github.com/poiesic/scriptvault/core"
)

// Location is a resolved namespace. Path is backend specific: a directory
// for the filesystem backend, a key prefix for the badger backend.
type Location struct {
	Namespace core.Namespace
	Path      string
}

// NamespaceResolver maps namespaces to storage locations.
type NamespaceResolver interface {
	// Resolve returns the location for ns, creating it if absent.
	// Idempotent and safe to call concurrently for the same namespace.
	Resolve(ctx context.Context, ns core.Namespace) (Location, error)
}

// VersionIndex lists stored versions.
type VersionIndex interface {
	// ListVersions returns the version ids at loc, oldest first.
	// Returns an empty slice, not an error, when there are none.
	// Entries that do not follow the version naming convention are skipped.
	ListVersions(ctx context.Context, loc Location) ([]core.VersionID, error)
}

// VersionStore reads and writes single versions.
type VersionStore interface {
	// ReadVersion returns the full payload of a version.
	// Returns ErrVersionNotFound if the version does not exist.
	ReadVersion(ctx context.Context, loc Location, id core.VersionID) ([]byte, error)

	// WriteVersion atomically persists payload as version id.
	// Returns ErrVersionExists if id is already present; it never overwrites.
	WriteVersion(ctx context.Context, loc Location, id core.VersionID, payload []byte) error

	// DeleteVersion removes a version.
	// Returns ErrVersionNotFound if the version does not exist.
	DeleteVersion(ctx context.Context, loc Location, id core.VersionID) error
}

// Backend combines all storage operations.
// Implementations must be thread-safe and support concurrent access.
type Backend interface {
	NamespaceResolver
	VersionIndex
	VersionStore

	// Close releases resources held by the backend.
	Close() error
}
