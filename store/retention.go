package store

import (
	"context"
	"log/slog"

	"github.com/poiesic/scriptvault/core"
	"github.com/poiesic/scriptvault/storage"
)

// PruneFailure records a version retention could not delete.
type PruneFailure struct {
	Version core.VersionID
	Err     error
}

// PruneReport describes one retention pass.
type PruneReport struct {
	Removed []core.VersionID
	Failed  []PruneFailure
}

// retention deletes all but the newest keep versions of a namespace.
type retention struct {
	backend storage.Backend
	locks   *LockRegistry
	keep    int
	metrics *Metrics
	logger  *slog.Logger
}

// Prune takes the namespace lock and runs a retention pass.
func (r *retention) Prune(ctx context.Context, ns core.Namespace) (PruneReport, error) {
	if err := core.ValidateNamespace(ns); err != nil {
		return PruneReport{}, err
	}

	unlock := r.locks.Lock(ns)
	defer unlock()

	loc, err := resolve(ctx, r.backend, ns)
	if err != nil {
		return PruneReport{}, err
	}
	return r.pruneLocked(ctx, loc)
}

// pruneLocked runs a retention pass. The caller holds the namespace lock.
// Deletion is best effort: a failed delete is recorded and the pass moves
// on. Only a failure to list the index fails the pass.
func (r *retention) pruneLocked(ctx context.Context, loc storage.Location) (PruneReport, error) {
	ids, err := listVersions(ctx, r.backend, loc)
	if err != nil {
		return PruneReport{}, err
	}

	var report PruneReport
	if len(ids) <= r.keep {
		return report, nil
	}

	// ids is sorted oldest first.
	for _, id := range ids[:len(ids)-r.keep] {
		if err := r.backend.DeleteVersion(ctx, loc, id); err != nil {
			r.logger.Error("failed to prune version",
				"namespace", loc.Namespace.String(), "version", id, "err", err)
			report.Failed = append(report.Failed, PruneFailure{Version: id, Err: storageError("delete", err)})
			continue
		}
		report.Removed = append(report.Removed, id)
	}

	r.metrics.observePrune(len(report.Removed), len(report.Failed))
	if len(report.Removed) > 0 {
		r.logger.Debug("pruned versions", "namespace", loc.Namespace.String(), "removed", len(report.Removed))
	}
	return report, nil
}
