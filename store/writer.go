package store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/poiesic/scriptvault/core"
	"github.com/poiesic/scriptvault/storage"
)

// writer appends versions. All work for a namespace happens under its lock
// so the dedup check and the write form one step.
type writer struct {
	backend     storage.Backend
	locks       *LockRegistry
	retention   *retention
	maxAttempts int
	now         func() time.Time
	metrics     *Metrics
	logger      *slog.Logger
}

// Put implements Store.Put.
func (w *writer) Put(ctx context.Context, ns core.Namespace, payload []byte) (core.WriteOutcome, error) {
	outcome, err := w.put(ctx, ns, payload)
	if err != nil {
		w.metrics.observeWrite("error")
		return core.WriteOutcome{}, err
	}
	w.metrics.observeWrite(outcome.Kind.String())
	return outcome, nil
}

func (w *writer) put(ctx context.Context, ns core.Namespace, payload []byte) (core.WriteOutcome, error) {
	// Reject bad identifiers before touching the lock registry or the backend.
	if err := core.ValidateNamespace(ns); err != nil {
		return core.WriteOutcome{}, err
	}

	unlock := w.locks.Lock(ns)
	defer unlock()

	loc, err := resolve(ctx, w.backend, ns)
	if err != nil {
		return core.WriteOutcome{}, err
	}

	ids, err := listVersions(ctx, w.backend, loc)
	if err != nil {
		return core.WriteOutcome{}, err
	}

	latest, hasLatest := core.Latest(ids)
	if hasLatest {
		current, err := w.backend.ReadVersion(ctx, loc, latest)
		if err != nil {
			return core.WriteOutcome{}, storageError("read latest "+ns.String(), err)
		}
		if bytes.Equal(current, payload) {
			w.logger.Debug("payload unchanged", "namespace", ns.String(), "version", latest)
			return core.WriteOutcome{Kind: core.OutcomeDeduplicated, Version: latest}, nil
		}
	}

	id, err := w.persist(ctx, loc, latest, payload)
	if err != nil {
		return core.WriteOutcome{}, err
	}
	w.logger.Info("version created",
		"namespace", ns.String(),
		"version", id,
		"size", len(payload),
		"digest", core.Digest(payload))

	outcome := core.WriteOutcome{Kind: core.OutcomeCreated, Version: id}

	// The new version is durable at this point; retention problems are
	// reported but never undo the write.
	report, err := w.retention.pruneLocked(ctx, loc)
	if err != nil {
		w.logger.Warn("retention skipped", "namespace", ns.String(), "err", err)
		return outcome, nil
	}
	outcome.Pruned = report.Removed
	return outcome, nil
}

// persist writes payload under a fresh id strictly greater than latest.
// An id that turns out to exist already is skipped, up to maxAttempts.
func (w *writer) persist(ctx context.Context, loc storage.Location, latest core.VersionID, payload []byte) (core.VersionID, error) {
	var lastErr error
	for attempt := 1; attempt <= w.maxAttempts; attempt++ {
		id, err := core.NextVersionID(w.now(), latest)
		if err != nil {
			return "", err
		}

		err = w.backend.WriteVersion(ctx, loc, id, payload)
		if err == nil {
			if attempt > 1 {
				w.logger.Debug("write succeeded after collision", "attempt", attempt, "version", id)
			}
			return id, nil
		}
		if !errors.Is(err, storage.ErrVersionExists) {
			return "", storageError("write "+loc.Namespace.String(), err)
		}

		w.logger.Warn("version id collision", "namespace", loc.Namespace.String(), "version", id, "attempt", attempt)
		lastErr = err
		latest = id
	}
	return "", fmt.Errorf("%w: %s after %d attempts: %w", core.ErrConflict, loc.Namespace, w.maxAttempts, lastErr)
}
