package syncer

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	shared "github.com/tracematch/sync-engine/pkg"
	"github.com/tracematch/sync-engine/pkg/analysis"
	"github.com/tracematch/sync-engine/pkg/fetch"
	"github.com/tracematch/sync-engine/pkg/generation"
	"github.com/tracematch/sync-engine/pkg/testing/mocks"
)

func makeItems(n int) []shared.Item {
	items := make([]shared.Item, n)
	for i := range items {
		items[i] = shared.Item{ID: fmt.Sprintf("activity-%02d", i), SportType: "Ride"}
	}
	return items
}

type harness struct {
	engine      *mocks.ScriptEngine
	source      *mocks.MockTelemetrySource
	tracker     *generation.Tracker
	coordinator *Coordinator
}

func newHarness() *harness {
	engine := &mocks.ScriptEngine{Script: []mocks.ScriptStep{
		{Status: shared.JobComplete},
	}}
	source := &mocks.MockTelemetrySource{}
	tracker := &generation.Tracker{}
	fetcher := fetch.NewFetcher(source, nil)
	return &harness{
		engine:      engine,
		source:      source,
		tracker:     tracker,
		coordinator: NewCoordinator(engine, fetcher, tracker, nil),
	}
}

func fastOpts() Options {
	return Options{
		BatchSize: 5,
		Poll:      analysis.Config{Interval: time.Millisecond, MaxTotal: time.Second},
	}
}

func defaultDeps() Deps {
	return Deps{Credentials: &mocks.MockCredentialProvider{}}
}

func TestSyncEndToEnd(t *testing.T) {
	h := newHarness()

	// 12 items, 2 of which fail fetch; detection job reports
	// loading -> finding_overlaps -> complete.
	failing := map[string]bool{"activity-02": true, "activity-09": true}
	h.source.FetchTelemetryFunc = func(ctx context.Context, credential, id string) (*shared.TelemetryPayload, error) {
		if failing[id] {
			return nil, fmt.Errorf("HTTP 404")
		}
		return &shared.TelemetryPayload{Points: []shared.Point{{Lat: 47.3, Lng: 8.5}}}, nil
	}
	h.engine.Script = []mocks.ScriptStep{
		{Status: shared.JobRunning, Progress: &shared.JobProgress{Phase: "loading", Completed: 0, Total: 0}},
		{Status: shared.JobRunning, Progress: &shared.JobProgress{Phase: "finding_overlaps", Completed: 50, Total: 100}},
		{Status: shared.JobComplete},
	}

	var mu sync.Mutex
	var percents []int
	deps := defaultDeps()
	deps.OnProgress = func(p shared.SyncProgress) {
		if p.Status == shared.StatusComputing && p.Total == 100 {
			mu.Lock()
			percents = append(percents, p.Completed)
			mu.Unlock()
		}
	}

	result, err := h.coordinator.Sync(context.Background(), makeItems(12), fastOpts(), deps)
	if err != nil {
		t.Fatalf("Sync() error: %v", err)
	}
	if result.Discarded {
		t.Fatal("result unexpectedly discarded")
	}
	if len(result.SyncedIDs) != 10 {
		t.Errorf("synced %d items, want 10", len(result.SyncedIDs))
	}
	if result.WithDataCount != 10 {
		t.Errorf("WithDataCount = %d, want 10", result.WithDataCount)
	}

	sorted := append([]int(nil), percents...)
	sort.Ints(sorted)
	for i := range percents {
		if percents[i] != sorted[i] {
			t.Fatalf("progress sequence not non-decreasing: %v", percents)
		}
	}
	if len(percents) == 0 || percents[len(percents)-1] != 100 {
		t.Errorf("progress sequence %v does not end at 100", percents)
	}
}

func TestSyncIsIdempotent(t *testing.T) {
	h := newHarness()
	items := makeItems(4)

	first, err := h.coordinator.Sync(context.Background(), items, fastOpts(), defaultDeps())
	if err != nil {
		t.Fatalf("first Sync() error: %v", err)
	}
	if len(first.SyncedIDs) != 4 {
		t.Fatalf("first sync stored %d items, want 4", len(first.SyncedIDs))
	}

	// Reset the script for a second run; it must not reach the job at all.
	second, err := h.coordinator.Sync(context.Background(), items, fastOpts(), defaultDeps())
	if err != nil {
		t.Fatalf("second Sync() error: %v", err)
	}
	if len(second.SyncedIDs) != 0 {
		t.Errorf("second sync stored %d items, want 0 (already present)", len(second.SyncedIDs))
	}
	if second.Message != "already up to date" {
		t.Errorf("second sync message = %q", second.Message)
	}
}

func TestConcurrentSyncIsSilentNoOp(t *testing.T) {
	h := newHarness()

	release := make(chan struct{})
	var fetches atomic.Int64
	h.source.FetchTelemetryFunc = func(ctx context.Context, credential, id string) (*shared.TelemetryPayload, error) {
		fetches.Add(1)
		<-release
		return &shared.TelemetryPayload{}, nil
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = h.coordinator.Sync(context.Background(), makeItems(2), fastOpts(), defaultDeps())
	}()

	// Wait until the first sync is in its fetch phase.
	for fetches.Load() == 0 {
		time.Sleep(time.Millisecond)
	}

	result, err := h.coordinator.Sync(context.Background(), makeItems(2), fastOpts(), defaultDeps())
	if err != nil {
		t.Fatalf("concurrent Sync() error: %v", err)
	}
	if len(result.SyncedIDs) != 0 || result.AttemptID != "" {
		t.Errorf("concurrent call produced side effects: %+v", result)
	}

	close(release)
	<-done
}

func TestStaleGenerationDiscardsResults(t *testing.T) {
	h := newHarness()

	// Bump the generation while the fetch is in flight.
	h.source.FetchTelemetryFunc = func(ctx context.Context, credential, id string) (*shared.TelemetryPayload, error) {
		h.tracker.Bump()
		return &shared.TelemetryPayload{Points: []shared.Point{{Lat: 1, Lng: 1}}}, nil
	}

	var ingests atomic.Int64
	h.engine.IngestFunc = func(ctx context.Context, ids []string, points [][]shared.Point, sportTypes []string) error {
		ingests.Add(1)
		return nil
	}

	result, err := h.coordinator.Sync(context.Background(), makeItems(3), fastOpts(), defaultDeps())
	if err != nil {
		t.Fatalf("Sync() error: %v (staleness is not an error)", err)
	}
	if !result.Discarded {
		t.Error("result not marked discarded after generation bump")
	}
	if len(result.SyncedIDs) != 0 {
		t.Errorf("discarded result carries %d synced ids", len(result.SyncedIDs))
	}
	if ingests.Load() != 0 {
		t.Error("stale attempt still reached the engine")
	}
}

func TestCredentialFailureIsFatal(t *testing.T) {
	h := newHarness()

	var last shared.SyncProgress
	deps := Deps{
		Credentials: &mocks.MockCredentialProvider{
			CredentialFunc: func(ctx context.Context) (string, error) {
				return "", fmt.Errorf("token expired")
			},
		},
		OnProgress: func(p shared.SyncProgress) { last = p },
	}

	_, err := h.coordinator.Sync(context.Background(), makeItems(2), fastOpts(), deps)
	if err == nil {
		t.Fatal("Sync() with failing credential returned nil error")
	}
	if last.Status != shared.StatusError {
		t.Errorf("terminal progress status = %v, want error", last.Status)
	}
}

func TestEngineUnavailableIsFatal(t *testing.T) {
	h := newHarness()
	h.engine.AvailableFunc = func(ctx context.Context) error {
		return fmt.Errorf("bridge not initialized")
	}

	_, err := h.coordinator.Sync(context.Background(), makeItems(2), fastOpts(), defaultDeps())
	if err == nil {
		t.Fatal("Sync() with unavailable engine returned nil error")
	}
}

func TestDetectionFailureStillCountsAsSynced(t *testing.T) {
	h := newHarness()
	h.engine.Script = []mocks.ScriptStep{
		{Status: shared.JobRunning, Progress: &shared.JobProgress{Phase: "loading"}},
		{Status: shared.JobError},
	}

	result, err := h.coordinator.Sync(context.Background(), makeItems(3), fastOpts(), defaultDeps())
	if err != nil {
		t.Fatalf("Sync() error: %v (job failure must be tolerated)", err)
	}
	if len(result.SyncedIDs) != 3 {
		t.Errorf("synced %d items, want 3 despite analysis failure", len(result.SyncedIDs))
	}
}

func TestCancelledFetchIsVoluntaryAbort(t *testing.T) {
	h := newHarness()
	ctx, cancel := context.WithCancel(context.Background())

	h.source.FetchTelemetryFunc = func(ctx context.Context, credential, id string) (*shared.TelemetryPayload, error) {
		cancel()
		return &shared.TelemetryPayload{}, nil
	}

	var ingests atomic.Int64
	h.engine.IngestFunc = func(ctx context.Context, ids []string, points [][]shared.Point, sportTypes []string) error {
		ingests.Add(1)
		return nil
	}

	result, err := h.coordinator.Sync(ctx, makeItems(8), fastOpts(), defaultDeps())
	if err != nil {
		t.Fatalf("cancelled Sync() returned error: %v", err)
	}
	if result.Discarded {
		t.Error("cancelled sync marked discarded; cancel is not staleness")
	}
	if ingests.Load() != 0 {
		t.Error("cancelled sync still ingested")
	}
}

func TestMountedGuardSuppressesReports(t *testing.T) {
	h := newHarness()

	var reports atomic.Int64
	deps := defaultDeps()
	deps.Mounted = func() bool { return false }
	deps.OnProgress = func(shared.SyncProgress) { reports.Add(1) }

	if _, err := h.coordinator.Sync(context.Background(), makeItems(2), fastOpts(), deps); err != nil {
		t.Fatalf("Sync() error: %v", err)
	}
	if reports.Load() != 0 {
		t.Errorf("unmounted caller received %d reports", reports.Load())
	}
}

func TestResetBumpsGeneration(t *testing.T) {
	h := newHarness()

	before := h.tracker.Current()
	if err := h.coordinator.Reset(context.Background()); err != nil {
		t.Fatalf("Reset() error: %v", err)
	}
	if !h.tracker.IsStale(before) {
		t.Error("generation captured before Reset() is not stale")
	}
}
