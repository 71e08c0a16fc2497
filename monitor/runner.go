package monitor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"f0oster/svcspy/diff"
	"f0oster/svcspy/history"
	"f0oster/svcspy/snapshot"
	"f0oster/svcspy/statestore"
)

// Result is what one monitoring run hands back to the caller: the computed
// delta plus access statistics. Exit-code policy belongs to the caller.
type Result struct {
	RunID      uuid.UUID            `json:"RunId"`
	CapturedAt time.Time            `json:"CapturedAt"`
	Stats      snapshot.AccessStats `json:"Stats"`
	Delta      diff.Delta           `json:"Delta"`
}

// Runner orchestrates one load-capture-diff-save cycle. Every per-subsystem
// failure (unreadable previous state, partial probes, failed save or history
// write) degrades to a warning; only orchestration-level errors abort the run
// without producing a delta.
type Runner struct {
	snapshotter *snapshot.Service
	store       *statestore.Store
	history     *history.Store // nil when history is disabled
	logger      *slog.Logger
}

func NewRunner(snapshotter *snapshot.Service, store *statestore.Store, historyStore *history.Store, logger *slog.Logger) *Runner {
	return &Runner{
		snapshotter: snapshotter,
		store:       store,
		history:     historyStore,
		logger:      logger,
	}
}

// Run executes one monitoring cycle against the given targets (empty means
// all services).
func (r *Runner) Run(ctx context.Context, targets []string) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("run aborted: %w", err)
	}

	previous, err := r.store.Load()
	if err != nil {
		r.logger.WarnContext(ctx, "previous state unreadable, treating as first run",
			"path", r.store.Path(),
			"error", err,
		)
		previous = nil
	}

	current, stats := r.snapshotter.Capture(ctx, targets)
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("run aborted during capture: %w", err)
	}

	delta := diff.Compute(previous, current)

	result := &Result{
		RunID:      uuid.New(),
		CapturedAt: current.CapturedAt,
		Stats:      stats,
		Delta:      delta,
	}

	modified, added, removed, accessDenied := delta.Counts()
	r.logger.InfoContext(ctx, "service inventory compared",
		"run_id", result.RunID.String(),
		"total", stats.Total,
		"full_access", stats.FullAccess,
		"limited_access", stats.LimitedAccess,
		"failed", stats.Failed,
		"modified", modified,
		"new", added,
		"removed", removed,
		"access_denied", accessDenied,
		"first_run", previous == nil,
	)

	// The delta is already computed and reported; persistence failures from
	// here on must not turn the run into a failure.
	if err := r.store.Save(current); err != nil {
		r.logger.WarnContext(ctx, "failed to persist current state",
			"path", r.store.Path(),
			"error", err,
		)
	}

	if r.history != nil {
		run := history.Run{
			RunID:      result.RunID,
			CapturedAt: result.CapturedAt,
			Stats:      stats,
			Delta:      delta,
		}
		if err := r.history.RecordRun(ctx, run); err != nil {
			r.logger.WarnContext(ctx, "failed to record run history", "error", err)
		}
	}

	return result, nil
}
