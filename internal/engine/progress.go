package engine

import (
	"context"

	"gradevault/internal/jobstore"
	"gradevault/internal/logging"
)

// Progress step labels persisted with the job and surfaced to the UI.
const (
	StepInitializing = "Initializing"
	StepArchiving    = "Archiving files"
	StepFinalizing   = "Finalizing"
	StepCompleted    = "Completed"
	StepFailed       = "Failed"
	StepCancelled    = "Cancelled"
)

// projectPct computes completion as terminal files plus partial credit
// for the single in-flight file, over the total.
func projectPct(stats jobstore.FileStats, inFlightFraction float64) float64 {
	if stats.Total == 0 {
		return 0
	}
	if inFlightFraction < 0 {
		inFlightFraction = 0
	}
	if inFlightFraction > 1 {
		inFlightFraction = 1
	}
	return (float64(stats.Completed()) + inFlightFraction) / float64(stats.Total) * 100
}

// reportProgress recomputes and persists the durable progress
// projection. Failures are logged, never propagated: progress is a
// read-only convenience and must not disturb the job itself.
func (e *Engine) reportProgress(ctx context.Context, jobID int64, step string, inFlightFraction float64) {
	stats, err := e.store.Stats(ctx, jobID)
	if err != nil {
		e.logger.Warn("progress stats failed", logging.Error(err))
		return
	}
	if err := e.store.SetProgress(ctx, jobID, step, projectPct(stats, inFlightFraction)); err != nil {
		e.logger.Warn("progress update failed", logging.Error(err))
	}
}
