// Package syncer sequences one sync attempt end to end: snapshot the sync
// generation, fetch telemetry in bounded batches, hand the results to the
// analytics engine, drive its detection job via polling, and discard
// everything if the generation moved underneath us.
package syncer

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"

	shared "github.com/tracematch/sync-engine/pkg"
	"github.com/tracematch/sync-engine/pkg/analysis"
	"github.com/tracematch/sync-engine/pkg/fetch"
	"github.com/tracematch/sync-engine/pkg/generation"
	"github.com/tracematch/sync-engine/pkg/infrastructure/sentry"
)

// Options tune a single sync call.
type Options struct {
	// BatchSize bounds fetch concurrency. Values below 1 fall back to
	// the default.
	BatchSize int

	// Poll overrides the detection-job polling bounds when non-zero.
	Poll analysis.Config
}

// Deps are the per-call collaborators supplied by the UI shell.
type Deps struct {
	// Credentials resolves the opaque credential sent with each
	// telemetry request.
	Credentials shared.CredentialProvider

	// Mounted reports whether the caller still wants progress. Nil means
	// always mounted. This is an optimization to avoid wasted reporting;
	// generation checking remains the correctness mechanism.
	Mounted func() bool

	// OnProgress receives every visible state transition. Nil is allowed.
	OnProgress func(shared.SyncProgress)
}

// Coordinator owns cancellation policy, mutual exclusion, and staleness
// checks for sync attempts. One coordinator serves one engine.
type Coordinator struct {
	engine      shared.Engine
	fetcher     *fetch.Fetcher
	generations *generation.Tracker
	logger      *slog.Logger

	// One in-flight sync per coordinator. A concurrent call is a silent
	// no-op, not an error: redundant syncs must not pile up.
	syncing atomic.Bool
}

func NewCoordinator(engine shared.Engine, fetcher *fetch.Fetcher, generations *generation.Tracker, logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{
		engine:      engine,
		fetcher:     fetcher,
		generations: generations,
		logger:      logger.With("component", "syncer"),
	}
}

// Reset clears all engine-held data and bumps the sync generation so any
// in-flight attempt discards its results.
func (c *Coordinator) Reset(ctx context.Context) error {
	if err := c.engine.Clear(ctx); err != nil {
		return fmt.Errorf("clear engine: %w", err)
	}
	gen := c.generations.Bump()
	c.logger.Info("Engine cleared, generation bumped", "generation", gen)
	return nil
}

// Sync runs one attempt. Fatal conditions (credential failure, engine
// unavailable) return an error with an Error progress report; everything
// else degrades to partial success carried in the result.
func (c *Coordinator) Sync(ctx context.Context, items []shared.Item, opts Options, deps Deps) (*shared.SyncResult, error) {
	// 1. Mutual exclusion. No queueing: a concurrent call returns
	// immediately with no side effects.
	if !c.syncing.CompareAndSwap(false, true) {
		c.logger.Info("Sync already in progress, ignoring call")
		return &shared.SyncResult{Message: "sync already in progress"}, nil
	}
	defer c.syncing.Store(false)

	attemptID := uuid.NewString()
	logger := c.logger.With("attempt_id", attemptID)
	result := &shared.SyncResult{AttemptID: attemptID, SyncedIDs: []string{}}

	// 2. Snapshot the generation before any work.
	gen := c.generations.Current()

	// 3. Engine availability. Probed with a short backoff so a startup
	// race doesn't fail the whole attempt; persistent unavailability is
	// fatal.
	if err := c.probeEngine(ctx); err != nil {
		return c.fatal(logger, deps, result, fmt.Errorf("analytics engine unavailable: %w", err))
	}

	// 4. Credential. Missing or invalid is fatal: no partial work.
	credential, err := deps.credential(ctx)
	if err != nil {
		return c.fatal(logger, deps, result, fmt.Errorf("resolve credential: %w", err))
	}

	// 5. Idempotent filter: skip items the engine already holds.
	pending := make([]shared.Item, 0, len(items))
	for _, item := range items {
		exists, err := c.engine.ItemExists(ctx, item.ID)
		if err != nil {
			// Re-ingesting is safe, so an exists-check failure just
			// means we fetch it again.
			logger.Warn("Exists check failed, item will be re-fetched", "itemId", item.ID, "error", err)
			exists = false
		}
		if !exists {
			pending = append(pending, item)
		}
	}

	if len(pending) == 0 {
		logger.Info("Nothing to sync", "requested", len(items))
		result.Message = "already up to date"
		c.report(deps, shared.SyncProgress{Status: shared.StatusComplete, Message: result.Message})
		return result, nil
	}

	// 6. Fetch telemetry in bounded batches.
	logger.Info("Fetching telemetry", "items", len(pending), "batchSize", opts.BatchSize)
	sportTypeByID := make(map[string]string, len(pending))
	ids := make([]string, len(pending))
	for i, item := range pending {
		ids[i] = item.ID
		sportTypeByID[item.ID] = item.SportType
	}

	c.report(deps, shared.SyncProgress{Status: shared.StatusFetching, Total: len(ids), Message: "Fetching activities…"})
	outcomes := c.fetcher.FetchAll(ctx, ids, credential, opts.BatchSize, func(completed, total int) {
		c.report(deps, shared.SyncProgress{
			Status:    shared.StatusFetching,
			Completed: completed,
			Total:     total,
			Message:   fmt.Sprintf("Fetching activities… %d/%d", completed, total),
		})
	})

	// A cancelled fetch is a voluntary abort, not an error. Nothing was
	// ingested; report idle and stop quietly.
	if ctx.Err() != nil {
		logger.Info("Sync cancelled during fetch", "collected", len(outcomes))
		result.Message = "sync cancelled"
		c.report(deps, shared.SyncProgress{Status: shared.StatusIdle, Message: result.Message})
		return result, nil
	}

	// 7. Staleness checkpoint before touching the engine.
	if c.generations.IsStale(gen) {
		return c.discard(logger, result), nil
	}

	// 8. Ingest the successful outcomes.
	var ingestIDs []string
	var ingestPoints [][]shared.Point
	var ingestSports []string
	for _, o := range outcomes {
		if !o.Success {
			continue
		}
		ingestIDs = append(ingestIDs, o.ItemID)
		ingestPoints = append(ingestPoints, o.Points)
		ingestSports = append(ingestSports, sportTypeByID[o.ItemID])
		if len(o.Points) > 0 {
			result.WithDataCount++
		}
	}

	if len(ingestIDs) > 0 {
		c.report(deps, shared.SyncProgress{
			Status:    shared.StatusProcessing,
			Completed: len(ingestIDs),
			Total:     len(ids),
			Message:   "Storing activities…",
		})
		if err := c.engine.Ingest(ctx, ingestIDs, ingestPoints, ingestSports); err != nil {
			return c.fatal(logger, deps, result, fmt.Errorf("engine ingest: %w", err))
		}
		result.SyncedIDs = ingestIDs
	}

	// 9. Detection job. Failure or timeout here is tolerated: the
	// telemetry is already stored, which is the part that matters.
	if len(ingestIDs) > 0 {
		c.report(deps, shared.SyncProgress{Status: shared.StatusComputing, Total: 100, Message: "Analyzing routes…"})
		if err := c.engine.StartJob(ctx); err != nil {
			logger.Warn("Detection job failed to start, activities remain synced", "error", err)
		} else {
			poller := analysis.NewPoller(c.engine, logger)
			status := poller.Run(ctx, opts.Poll, func(p shared.SyncProgress) {
				c.report(deps, p)
			})
			if status != shared.JobComplete {
				logger.Warn("Detection job did not complete", "status", status)
			}
		}
	}

	// 10. Final staleness checkpoint before committing the outcome.
	if c.generations.IsStale(gen) {
		return c.discard(logger, result), nil
	}

	result.Message = fmt.Sprintf("Synced %d activities", len(result.SyncedIDs))
	logger.Info("Sync complete", "synced", len(result.SyncedIDs), "withData", result.WithDataCount)
	c.report(deps, shared.SyncProgress{
		Status:    shared.StatusComplete,
		Completed: len(result.SyncedIDs),
		Total:     len(result.SyncedIDs),
		Message:   result.Message,
	})
	return result, nil
}

// probeEngine retries Available briefly to ride out startup races.
func (c *Coordinator) probeEngine(ctx context.Context) error {
	probe := func() (struct{}, error) {
		return struct{}{}, c.engine.Available(ctx)
	}
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 100 * time.Millisecond
	_, err := backoff.Retry(ctx, probe,
		backoff.WithBackOff(b),
		backoff.WithMaxTries(3),
	)
	return err
}

// report delivers a progress snapshot unless the caller has unmounted.
func (c *Coordinator) report(deps Deps, p shared.SyncProgress) {
	if deps.OnProgress == nil {
		return
	}
	if deps.Mounted != nil && !deps.Mounted() {
		return
	}
	deps.OnProgress(p)
}

// fatal reports a terminal error state and captures it for tracking.
func (c *Coordinator) fatal(logger *slog.Logger, deps Deps, result *shared.SyncResult, err error) (*shared.SyncResult, error) {
	logger.Error("Sync failed", "error", err)
	sentry.CaptureError(err)
	result.Message = err.Error()
	c.report(deps, shared.SyncProgress{Status: shared.StatusError, Message: err.Error()})
	return result, err
}

// discard tags the result of a superseded attempt. Not an error and not
// logged as a failure: the user has simply moved on.
func (c *Coordinator) discard(logger *slog.Logger, result *shared.SyncResult) *shared.SyncResult {
	logger.Info("Generation changed mid-sync, discarding results")
	return &shared.SyncResult{
		AttemptID: result.AttemptID,
		SyncedIDs: []string{},
		Discarded: true,
		Message:   "superseded by reset",
	}
}

func (d Deps) credential(ctx context.Context) (string, error) {
	if d.Credentials == nil {
		return "", fmt.Errorf("no credential provider configured")
	}
	cred, err := d.Credentials.Credential(ctx)
	if err != nil {
		return "", err
	}
	if cred == "" {
		return "", fmt.Errorf("empty credential")
	}
	return cred, nil
}
