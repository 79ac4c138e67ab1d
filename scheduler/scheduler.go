package scheduler

import (
	"context"
	"time"

	"apartment-tracker/models"
	"apartment-tracker/utils"
)

// CycleRunner triggers one reconciliation cycle.
type CycleRunner interface {
	RunCycle(ctx context.Context) (*models.CycleOutcome, error)
}

// Run drives periodic refresh cycles until ctx is cancelled. It runs one
// cycle immediately, then one per interval. It blocks; run it in a
// goroutine when the caller has other work.
func Run(ctx context.Context, runner CycleRunner, interval time.Duration, logger *utils.Logger) {
	if interval <= 0 {
		interval = 30 * time.Minute
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	logger.Info("[scheduler] Started, interval %v", interval)

	runOnce(ctx, runner, logger)

	for {
		select {
		case <-ctx.Done():
			logger.Info("[scheduler] Stopping: %v", ctx.Err())
			return
		case <-ticker.C:
			runOnce(ctx, runner, logger)
		}
	}
}

func runOnce(ctx context.Context, runner CycleRunner, logger *utils.Logger) {
	outcome, err := runner.RunCycle(ctx)
	if err != nil {
		logger.Error("[scheduler] Cycle failed: %v", err)
		return
	}
	if len(outcome.Failed) > 0 {
		logger.Warn("[scheduler] Cycle finished with %d failed operations", len(outcome.Failed))
	}
}
