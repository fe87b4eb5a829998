package store

import (
	"errors"
	"fmt"

	"github.com/poiesic/scriptvault/core"
)

var (
	// ErrBackendRequired is returned when a storage backend is not provided.
	ErrBackendRequired = errors.New("storage backend required")

	// ErrInvalidRetention is returned for a retention count below 1.
	ErrInvalidRetention = errors.New("retention must be at least 1")

	// ErrInvalidMaxAttempts is returned for a write attempt bound below 1.
	ErrInvalidMaxAttempts = errors.New("max attempts must be at least 1")
)

// storageError tags a backend failure as core.ErrStorage.
func storageError(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", core.ErrStorage, op, err)
}
