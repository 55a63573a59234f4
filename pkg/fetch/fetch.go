// Package fetch retrieves per-item telemetry with bounded concurrency.
// Requests within a batch run concurrently; batches run sequentially, which
// bounds peak concurrency at the batch size. Individual item failures are
// recorded, never propagated: partial failure is the expected steady state
// when syncing against a flaky remote.
package fetch

import (
	"context"
	"log/slog"
	"sync"

	shared "github.com/tracematch/sync-engine/pkg"
)

// Fetcher fans per-item telemetry requests out over a TelemetrySource.
type Fetcher struct {
	source shared.TelemetrySource
	logger *slog.Logger
}

func NewFetcher(source shared.TelemetrySource, logger *slog.Logger) *Fetcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Fetcher{source: source, logger: logger}
}

// FetchAll retrieves telemetry for every id. It always returns one outcome
// per id fetched, in completion order, and never returns an error: item
// failures are carried in the outcomes.
//
// Cancellation is checked before each batch. A cancelled fetch returns the
// outcomes collected so far; callers must treat that as a voluntary abort,
// not a failure. In-flight requests of the current batch are left to finish.
//
// onProgress, if non-nil, is invoked after each batch settles with the
// number of ids processed so far and the overall total.
func (f *Fetcher) FetchAll(ctx context.Context, ids []string, credential string, batchSize int, onProgress func(completed, total int)) []shared.FetchOutcome {
	if batchSize < 1 {
		batchSize = shared.DefaultBatchSize
	}

	outcomes := make([]shared.FetchOutcome, 0, len(ids))

	for start := 0; start < len(ids); start += batchSize {
		if ctx.Err() != nil {
			f.logger.Info("Fetch cancelled", "collected", len(outcomes), "total", len(ids))
			return outcomes
		}

		end := start + batchSize
		if end > len(ids) {
			end = len(ids)
		}
		batch := ids[start:end]

		var mu sync.Mutex
		var wg sync.WaitGroup
		for _, id := range batch {
			wg.Add(1)
			go func(id string) {
				defer wg.Done()
				outcome := f.fetchOne(ctx, credential, id)
				mu.Lock()
				outcomes = append(outcomes, outcome)
				mu.Unlock()
			}(id)
		}
		wg.Wait()

		if onProgress != nil {
			onProgress(end, len(ids))
		}
	}

	return outcomes
}

// fetchOne fetches and validates a single item. No retries at this layer;
// retry policy is a caller concern so failure semantics stay visible.
func (f *Fetcher) fetchOne(ctx context.Context, credential, id string) shared.FetchOutcome {
	payload, err := f.source.FetchTelemetry(ctx, credential, id)
	if err != nil {
		f.logger.Warn("Telemetry fetch failed", "itemId", id, "error", err)
		return shared.FetchOutcome{ItemID: id, Err: err.Error()}
	}

	kept, dropped := validatePoints(payload.Points)
	if dropped > 0 {
		f.logger.Warn("Dropped invalid coordinates", "itemId", id, "dropped", dropped, "kept", len(kept))
	}

	return shared.FetchOutcome{
		ItemID:  id,
		Success: true,
		Points:  kept,
		Bounds:  payload.Bounds,
		Dropped: dropped,
	}
}

// validatePoints removes points with non-finite or out-of-range
// coordinates. Bad points are dropped individually; the item itself is
// still considered successful.
func validatePoints(points []shared.Point) (kept []shared.Point, dropped int) {
	kept = make([]shared.Point, 0, len(points))
	for _, p := range points {
		if !p.Valid() {
			dropped++
			continue
		}
		kept = append(kept, p)
	}
	return kept, dropped
}
