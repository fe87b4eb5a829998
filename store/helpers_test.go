package store

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/poiesic/scriptvault/core"
	"github.com/poiesic/scriptvault/storage"
	"github.com/poiesic/scriptvault/storage/badger"
	"github.com/poiesic/scriptvault/storage/filesystem"
	"github.com/stretchr/testify/require"
)

// backendFactories opens each backend implementation for table tests.
var backendFactories = map[string]func(t *testing.T) storage.Backend{
	"filesystem": func(t *testing.T) storage.Backend {
		backend, err := filesystem.NewBackend(filepath.Join(t.TempDir(), "data_storage"))
		require.NoError(t, err)
		t.Cleanup(func() { backend.Close() })
		return backend
	},
	"badger": func(t *testing.T) storage.Backend {
		backend, err := badger.NewMemoryBackend()
		require.NoError(t, err)
		t.Cleanup(func() { backend.Close() })
		return backend
	},
}

// forEachBackend runs fn once per backend implementation.
func forEachBackend(t *testing.T, fn func(t *testing.T, backend storage.Backend)) {
	for name, open := range backendFactories {
		t.Run(name, func(t *testing.T) {
			fn(t, open(t))
		})
	}
}

// fakeClock is a manually advanced time source.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 3, 7, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// faultyBackend wraps a backend and injects failures.
type faultyBackend struct {
	storage.Backend

	mu         sync.Mutex
	calls      int
	failList   error
	failRead   error
	failWrite  error
	failDelete map[core.VersionID]error
	// listAfter lets this many ListVersions calls succeed before failList applies.
	listAfter int
	listCalls int
	// existsWrites rejects this many writes with storage.ErrVersionExists.
	existsWrites int
	// beforeRead runs once, ahead of the first ReadVersion.
	beforeRead func(loc storage.Location, id core.VersionID)
}

func (f *faultyBackend) record() {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
}

func (f *faultyBackend) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *faultyBackend) Resolve(ctx context.Context, ns core.Namespace) (storage.Location, error) {
	f.record()
	return f.Backend.Resolve(ctx, ns)
}

func (f *faultyBackend) ListVersions(ctx context.Context, loc storage.Location) ([]core.VersionID, error) {
	f.record()
	f.mu.Lock()
	f.listCalls++
	fail := f.failList != nil && (f.listAfter == 0 || f.listCalls > f.listAfter)
	f.mu.Unlock()
	if fail {
		return nil, f.failList
	}
	return f.Backend.ListVersions(ctx, loc)
}

func (f *faultyBackend) ReadVersion(ctx context.Context, loc storage.Location, id core.VersionID) ([]byte, error) {
	f.record()
	f.mu.Lock()
	hook := f.beforeRead
	f.beforeRead = nil
	f.mu.Unlock()
	if hook != nil {
		hook(loc, id)
	}
	if f.failRead != nil {
		return nil, f.failRead
	}
	return f.Backend.ReadVersion(ctx, loc, id)
}

func (f *faultyBackend) WriteVersion(ctx context.Context, loc storage.Location, id core.VersionID, payload []byte) error {
	f.record()
	if f.failWrite != nil {
		return f.failWrite
	}
	f.mu.Lock()
	reject := f.existsWrites > 0
	if reject {
		f.existsWrites--
	}
	f.mu.Unlock()
	if reject {
		return storage.ErrVersionExists
	}
	return f.Backend.WriteVersion(ctx, loc, id, payload)
}

func (f *faultyBackend) DeleteVersion(ctx context.Context, loc storage.Location, id core.VersionID) error {
	f.record()
	if err, ok := f.failDelete[id]; ok {
		return err
	}
	return f.Backend.DeleteVersion(ctx, loc, id)
}
