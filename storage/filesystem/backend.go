package filesystem

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/poiesic/scriptvault/core"
	"github.com/poiesic/scriptvault/storage"
)

const (
	dirPerm  = 0o755
	filePerm = 0o644

	// pendingPattern names temp files; they never match the version convention.
	pendingPattern = ".pending-*"
)

// Backend stores versions as files under root/<group>/<entity>/<id>.lua.
type Backend struct {
	root   string
	closed atomic.Bool
	logger *slog.Logger
}

var _ storage.Backend = (*Backend)(nil)

// NewBackend opens a filesystem backend rooted at root.
// Creates the directory if it doesn't exist.
func NewBackend(root string) (storage.Backend, error) {
	return OpenBackend(root)
}

// OpenBackend is NewBackend returning the concrete type.
func OpenBackend(root string) (*Backend, error) {
	if root == "" {
		return nil, fmt.Errorf("storage root is required")
	}
	if err := ensureDir(root); err != nil {
		return nil, err
	}
	return &Backend{
		root:   root,
		logger: slog.Default().With("component", "fs-backend"),
	}, nil
}

// Root returns the storage root directory.
func (b *Backend) Root() string {
	return b.root
}

// Close marks the backend closed. Files need no cleanup.
func (b *Backend) Close() error {
	b.closed.Store(true)
	return nil
}

// IsClosed returns true if the backend is closed.
func (b *Backend) IsClosed() bool {
	return b.closed.Load()
}

// Resolve creates root/<group>/<entity> if needed.
func (b *Backend) Resolve(ctx context.Context, ns core.Namespace) (storage.Location, error) {
	if b.IsClosed() {
		return storage.Location{}, storage.ErrStorageClosed
	}
	groupDir := filepath.Join(b.root, ns.Group)
	if err := ensureDir(groupDir); err != nil {
		return storage.Location{}, err
	}
	entityDir := filepath.Join(groupDir, ns.Entity)
	if err := ensureDir(entityDir); err != nil {
		return storage.Location{}, err
	}
	return storage.Location{Namespace: ns, Path: entityDir}, nil
}

// ListVersions reads the entity directory and returns matching version ids, sorted.
func (b *Backend) ListVersions(ctx context.Context, loc storage.Location) ([]core.VersionID, error) {
	if b.IsClosed() {
		return nil, storage.ErrStorageClosed
	}
	entries, err := os.ReadDir(loc.Path)
	if err != nil {
		return nil, err
	}

	ids := make([]core.VersionID, 0, len(entries))
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		id, ok := core.ParseFileName(entry.Name())
		if !ok {
			continue
		}
		ids = append(ids, id)
	}
	core.SortVersions(ids)
	return ids, nil
}

// ReadVersion returns the contents of a version file.
func (b *Backend) ReadVersion(ctx context.Context, loc storage.Location, id core.VersionID) ([]byte, error) {
	if b.IsClosed() {
		return nil, storage.ErrStorageClosed
	}
	data, err := os.ReadFile(b.versionPath(loc, id))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", storage.ErrVersionNotFound, id)
		}
		return nil, err
	}
	return data, nil
}

// WriteVersion writes payload to a temp file in the entity directory and
// links it into place once it is synced. The link fails if the target
// exists, so a version is never replaced, even by another process.
func (b *Backend) WriteVersion(ctx context.Context, loc storage.Location, id core.VersionID, payload []byte) error {
	if b.IsClosed() {
		return storage.ErrStorageClosed
	}
	target := b.versionPath(loc, id)
	if _, err := os.Lstat(target); err == nil {
		return fmt.Errorf("%w: %s", storage.ErrVersionExists, id)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return err
	}

	tmp, err := os.CreateTemp(loc.Path, pendingPattern)
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	// The temp name goes away whether or not the link succeeded.
	defer func() {
		if rmErr := os.Remove(tmpName); rmErr != nil && !errors.Is(rmErr, fs.ErrNotExist) {
			b.logger.Warn("failed to remove pending file", "path", tmpName, "err", rmErr)
		}
	}()

	if _, err := tmp.Write(payload); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, filePerm); err != nil {
		return err
	}
	if err := os.Link(tmpName, target); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return fmt.Errorf("%w: %s", storage.ErrVersionExists, id)
		}
		return err
	}
	return nil
}

// DeleteVersion removes a version file.
func (b *Backend) DeleteVersion(ctx context.Context, loc storage.Location, id core.VersionID) error {
	if b.IsClosed() {
		return storage.ErrStorageClosed
	}
	if err := os.Remove(b.versionPath(loc, id)); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", storage.ErrVersionNotFound, id)
		}
		return err
	}
	return nil
}

func (b *Backend) versionPath(loc storage.Location, id core.VersionID) string {
	return filepath.Join(loc.Path, id.FileName())
}

// ensureDir creates dir if it is missing. Losing a creation race to another
// goroutine is not an error.
func ensureDir(dir string) error {
	info, err := os.Stat(dir)
	if err == nil {
		if !info.IsDir() {
			return fmt.Errorf("%w: %s", storage.ErrNotDirectory, dir)
		}
		return nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return ensureDir(dir)
		}
		return err
	}
	return nil
}
