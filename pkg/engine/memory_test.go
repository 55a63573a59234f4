package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	shared "github.com/tracematch/sync-engine/pkg"
)

func TestMemoryBridgeDetectionLifecycle(t *testing.T) {
	raw := NewMemoryBridge()
	raw.StepDelay = time.Millisecond
	b := NewBridge(raw)
	ctx := context.Background()

	require.NoError(t, b.Ingest(ctx, []string{"a1"}, [][]shared.Point{{{Lat: 1, Lng: 2}}}, []string{"Ride"}))

	exists, err := b.ItemExists(ctx, "a1")
	require.NoError(t, err)
	assert.True(t, exists)

	require.NoError(t, b.StartJob(ctx))

	deadline := time.Now().Add(5 * time.Second)
	sawProgress := false
	for {
		require.True(t, time.Now().Before(deadline), "job never completed")

		status, err := b.PollJob(ctx)
		require.NoError(t, err)
		if status == shared.JobComplete {
			break
		}
		if report, err := b.JobProgress(ctx); err == nil && report != nil {
			sawProgress = true
			assert.NotEmpty(t, report.Phase)
		}
		time.Sleep(time.Millisecond)
	}
	assert.True(t, sawProgress, "running job never reported progress")

	// Terminal job reports no progress.
	report, err := b.JobProgress(ctx)
	require.NoError(t, err)
	assert.Nil(t, report)

	require.NoError(t, b.Clear(ctx))
	exists, err = b.ItemExists(ctx, "a1")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestMemoryBridgeCleanup(t *testing.T) {
	raw := NewMemoryBridge()
	ctx := context.Background()

	require.NoError(t, raw.AddActivities(ctx, `[{"id":"old"},{"id":"new"}]`))
	// Age one entry past any reasonable cutoff.
	raw.mu.Lock()
	raw.activities["old"] = time.Now().AddDate(0, 0, -365)
	raw.mu.Unlock()

	deleted, err := raw.CleanupOldActivities(ctx, 90)
	require.NoError(t, err)
	assert.Equal(t, 1, deleted)

	ok, err := raw.HasActivity(ctx, "new")
	require.NoError(t, err)
	assert.True(t, ok)
}
