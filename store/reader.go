package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/poiesic/scriptvault/core"
	"github.com/poiesic/scriptvault/storage"
)

// reader serves lock-free reads.
type reader struct {
	backend storage.Backend
}

// ListVersions returns all version ids, oldest first. Never nil.
func (r *reader) ListVersions(ctx context.Context, ns core.Namespace) ([]core.VersionID, error) {
	loc, err := resolve(ctx, r.backend, ns)
	if err != nil {
		return nil, err
	}
	ids, err := listVersions(ctx, r.backend, loc)
	if err != nil {
		return nil, err
	}
	if ids == nil {
		ids = []core.VersionID{}
	}
	return ids, nil
}

// LatestInfo returns the latest id or core.SentinelVersionID.
func (r *reader) LatestInfo(ctx context.Context, ns core.Namespace) (core.VersionID, error) {
	ids, err := r.ListVersions(ctx, ns)
	if err != nil {
		return "", err
	}
	latest, ok := core.Latest(ids)
	if !ok {
		return core.SentinelVersionID, nil
	}
	return latest, nil
}

// LatestContent returns the latest id with its payload.
func (r *reader) LatestContent(ctx context.Context, ns core.Namespace) (core.VersionID, []byte, error) {
	loc, err := resolve(ctx, r.backend, ns)
	if err != nil {
		return "", nil, err
	}

	// A prune may remove the listed latest before it is read; list again once
	// so a newer version is still served.
	var readErr error
	for attempt := 0; attempt < 2; attempt++ {
		ids, err := listVersions(ctx, r.backend, loc)
		if err != nil {
			return "", nil, err
		}
		latest, ok := core.Latest(ids)
		if !ok {
			return "", nil, fmt.Errorf("%w: %s", core.ErrNotFound, ns)
		}

		payload, err := r.backend.ReadVersion(ctx, loc, latest)
		if err == nil {
			return latest, payload, nil
		}
		if !errors.Is(err, storage.ErrVersionNotFound) {
			return "", nil, storageError("read "+ns.String(), err)
		}
		readErr = err
	}
	return "", nil, fmt.Errorf("%w: %s: %w", core.ErrNotFound, ns, readErr)
}
