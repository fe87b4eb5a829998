package store

import (
	"context"
	"log/slog"
	"time"

	"github.com/poiesic/scriptvault/core"
	"github.com/poiesic/scriptvault/storage"
)

const (
	// DefaultRetention is the number of versions kept per namespace.
	DefaultRetention = 3

	// DefaultMaxAttempts bounds how many version ids a write tries before
	// reporting core.ErrConflict.
	DefaultMaxAttempts = 3
)

// Store is the versioned artifact store.
type Store struct {
	backend   storage.Backend
	locks     *LockRegistry
	writer    *writer
	retention *retention
	reader    *reader
	metrics   *Metrics
	logger    *slog.Logger

	keep        int
	maxAttempts int
	now         func() time.Time
}

// Option configures a Store.
type Option func(*Store) error

// WithRetention sets how many versions are kept per namespace.
// Default is DefaultRetention.
func WithRetention(keep int) Option {
	return func(s *Store) error {
		if keep < 1 {
			return ErrInvalidRetention
		}
		s.keep = keep
		return nil
	}
}

// WithMaxAttempts sets how many candidate ids a write tries.
// Default is DefaultMaxAttempts.
func WithMaxAttempts(n int) Option {
	return func(s *Store) error {
		if n < 1 {
			return ErrInvalidMaxAttempts
		}
		s.maxAttempts = n
		return nil
	}
}

// WithClock sets the time source used for version ids.
func WithClock(now func() time.Time) Option {
	return func(s *Store) error {
		if now != nil {
			s.now = now
		}
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// WithMetrics sets the collectors the store reports to.
func WithMetrics(m *Metrics) Option {
	return func(s *Store) error {
		if m != nil {
			s.metrics = m
		}
		return nil
	}
}

// NewStore creates a store on top of backend. The caller keeps ownership
// of backend and closes it after the store is no longer used.
func NewStore(backend storage.Backend, opts ...Option) (*Store, error) {
	if backend == nil {
		return nil, ErrBackendRequired
	}

	s := &Store{
		backend:     backend,
		locks:       NewLockRegistry(),
		logger:      slog.Default(),
		keep:        DefaultRetention,
		maxAttempts: DefaultMaxAttempts,
		now:         time.Now,
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	if s.metrics == nil {
		// Unregistered collectors; keeps call sites free of nil checks.
		m, err := NewMetrics(nil)
		if err != nil {
			return nil, err
		}
		s.metrics = m
	}

	s.retention = &retention{
		backend: backend,
		locks:   s.locks,
		keep:    s.keep,
		metrics: s.metrics,
		logger:  s.logger.With("component", "retention"),
	}
	s.writer = &writer{
		backend:     backend,
		locks:       s.locks,
		retention:   s.retention,
		maxAttempts: s.maxAttempts,
		now:         s.now,
		metrics:     s.metrics,
		logger:      s.logger.With("component", "writer"),
	}
	s.reader = &reader{backend: backend}

	return s, nil
}

// Retention returns the number of versions kept per namespace.
func (s *Store) Retention() int {
	return s.keep
}

// Locks returns the store's per-namespace lock registry.
func (s *Store) Locks() *LockRegistry {
	return s.locks
}

// Put stores payload as the newest version of (group, entity) unless it is
// identical to the current latest version.
func (s *Store) Put(ctx context.Context, group, entity string, payload []byte) (core.WriteOutcome, error) {
	defer s.metrics.observeDuration("put", time.Now())
	return s.writer.Put(ctx, core.Namespace{Group: group, Entity: entity}, payload)
}

// ListVersions returns the version ids of (group, entity), oldest first.
func (s *Store) ListVersions(ctx context.Context, group, entity string) ([]core.VersionID, error) {
	defer s.metrics.observeDuration("list", time.Now())
	return s.reader.ListVersions(ctx, core.Namespace{Group: group, Entity: entity})
}

// GetLatestInfo returns the latest version id of (group, entity), or
// core.SentinelVersionID if there is none.
func (s *Store) GetLatestInfo(ctx context.Context, group, entity string) (core.VersionID, error) {
	defer s.metrics.observeDuration("info", time.Now())
	return s.reader.LatestInfo(ctx, core.Namespace{Group: group, Entity: entity})
}

// GetLatestContent returns the latest version id and payload of
// (group, entity). Returns core.ErrNotFound if there are no versions.
func (s *Store) GetLatestContent(ctx context.Context, group, entity string) (core.VersionID, []byte, error) {
	defer s.metrics.observeDuration("latest", time.Now())
	return s.reader.LatestContent(ctx, core.Namespace{Group: group, Entity: entity})
}

// Prune runs a retention pass on (group, entity) outside of a write.
func (s *Store) Prune(ctx context.Context, group, entity string) (PruneReport, error) {
	defer s.metrics.observeDuration("prune", time.Now())
	return s.retention.Prune(ctx, core.Namespace{Group: group, Entity: entity})
}

// resolve validates ns and maps it to a backend location.
func resolve(ctx context.Context, backend storage.NamespaceResolver, ns core.Namespace) (storage.Location, error) {
	if err := core.ValidateNamespace(ns); err != nil {
		return storage.Location{}, err
	}
	loc, err := backend.Resolve(ctx, ns)
	if err != nil {
		return storage.Location{}, storageError("resolve "+ns.String(), err)
	}
	return loc, nil
}

// listVersions wraps the backend index with storage error tagging.
func listVersions(ctx context.Context, index storage.VersionIndex, loc storage.Location) ([]core.VersionID, error) {
	ids, err := index.ListVersions(ctx, loc)
	if err != nil {
		return nil, storageError("list "+loc.Namespace.String(), err)
	}
	return ids, nil
}
