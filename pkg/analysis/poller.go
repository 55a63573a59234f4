// Package analysis drives the engine's asynchronous detection job to
// completion. The engine exposes no completion callback, only a pollable
// status, so the poller loops on an interval, folds each progress report
// through the aggregator, and forwards deduplicated percentages to the
// caller until the job reaches a terminal state, the ceiling elapses, or
// the caller cancels.
package analysis

import (
	"context"
	"log/slog"
	"time"

	shared "github.com/tracematch/sync-engine/pkg"
	"github.com/tracematch/sync-engine/pkg/progress"
)

// Config bounds one polling run.
type Config struct {
	// Interval between status polls.
	Interval time.Duration

	// MaxTotal is a soft ceiling on the whole run. When it elapses the
	// loop exits and the caller proceeds without complete analysis.
	MaxTotal time.Duration
}

func (c Config) withDefaults() Config {
	if c.Interval <= 0 {
		c.Interval = shared.DefaultPollInterval
	}
	if c.MaxTotal <= 0 {
		c.MaxTotal = shared.DefaultPollCeiling
	}
	return c
}

// Poller polls one engine's detection job.
type Poller struct {
	engine shared.Engine
	logger *slog.Logger
}

func NewPoller(engine shared.Engine, logger *slog.Logger) *Poller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Poller{engine: engine, logger: logger}
}

// Run polls until the job is terminal, the context is cancelled, or the
// ceiling elapses, and returns the last observed status. onProgress is
// invoked at most once per distinct percentage and never after Run returns.
//
// The lastKnown accumulator is local to this invocation: overlapping runs
// (demo mode next to a real sync, an abandoned attempt next to its retry)
// each track their own monotonic floor.
func (p *Poller) Run(ctx context.Context, cfg Config, onProgress func(shared.SyncProgress)) shared.AnalysisJobStatus {
	cfg = cfg.withDefaults()
	deadline := time.Now().Add(cfg.MaxTotal)

	lastKnown := 0
	lastReported := -1
	status := shared.JobRunning

	for {
		if ctx.Err() != nil {
			p.logger.Info("Analysis polling cancelled", "lastPercent", lastKnown)
			return status
		}
		if time.Now().After(deadline) {
			p.logger.Warn("Analysis polling timed out", "ceiling", cfg.MaxTotal, "lastPercent", lastKnown)
			return status
		}

		polled, err := p.engine.PollJob(ctx)
		if err != nil {
			// A failed poll is transient until the ceiling says
			// otherwise; the job keeps running engine-side.
			p.logger.Warn("Job status poll failed", "error", err)
			if !sleep(ctx, cfg.Interval) {
				return status
			}
			continue
		}
		status = polled

		switch status {
		case shared.JobComplete:
			if onProgress != nil && lastReported != 100 {
				onProgress(shared.SyncProgress{
					Status:    shared.StatusComputing,
					Completed: 100,
					Total:     100,
					Message:   MessageFor("complete", 100),
				})
			}
			return status

		case shared.JobError:
			// Non-fatal to the sync: the activities are still synced
			// even though analysis failed.
			p.logger.Error("Detection job reported failure")
			return status

		case shared.JobIdle:
			// The job may not have registered yet right after start.
			// Idle is not terminal; keep polling until the ceiling.
			if !sleep(ctx, cfg.Interval) {
				return status
			}
			continue
		}

		report, err := p.engine.JobProgress(ctx)
		if err != nil {
			p.logger.Warn("Job progress fetch failed", "error", err)
		} else if report != nil {
			percent := progress.OverallPercent(report.Phase, report.Completed, report.Total, lastKnown)
			lastKnown = percent
			if onProgress != nil && percent != lastReported {
				lastReported = percent
				onProgress(shared.SyncProgress{
					Status:    shared.StatusComputing,
					Completed: percent,
					Total:     100,
					Message:   MessageFor(report.Phase, percent),
				})
			}
		}

		if !sleep(ctx, cfg.Interval) {
			return status
		}
	}
}

// sleep waits for d or until the context is cancelled, reporting whether
// the full interval elapsed.
func sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

func normalizedPhase(phase string) string {
	return progress.NormalizePhase(phase)
}
