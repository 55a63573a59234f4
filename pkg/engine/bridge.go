// Package engine provides a strongly-typed boundary over the analytics
// engine's string-based bridge surface. The embedded engine reports job
// progress as a raw JSON string ({"phase":"finding_overlaps","completed":45,
// "total":120}, or "{}" when nothing is running); everything crossing that
// boundary is validated once here, so the rest of the module only ever sees
// typed values.
package engine

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/tidwall/gjson"

	shared "github.com/tracematch/sync-engine/pkg"
)

// RawBridge is the loosely-typed surface exposed by the embedded engine
// (the shape of its FFI exports). Implementations wrap whatever transport
// reaches the engine process.
type RawBridge interface {
	AddActivities(ctx context.Context, payloadJSON string) error
	HasActivity(ctx context.Context, id string) (bool, error)
	StartSectionDetection(ctx context.Context) error
	SectionDetectionStatus(ctx context.Context) (string, error)
	SectionDetectionProgress(ctx context.Context) (string, error)
	CleanupOldActivities(ctx context.Context, days int) (int, error)
	ResetAll(ctx context.Context) error
	Ping(ctx context.Context) error
}

// Bridge adapts a RawBridge into the typed Engine interface.
type Bridge struct {
	raw RawBridge
}

var _ shared.Engine = (*Bridge)(nil)

func NewBridge(raw RawBridge) *Bridge {
	return &Bridge{raw: raw}
}

// ingestEntry is the wire shape of one activity handed to the engine.
type ingestEntry struct {
	ID        string         `json:"id"`
	SportType string         `json:"sport_type"`
	Points    []shared.Point `json:"points"`
}

func (b *Bridge) Ingest(ctx context.Context, ids []string, points [][]shared.Point, sportTypes []string) error {
	if len(ids) != len(points) || len(ids) != len(sportTypes) {
		return fmt.Errorf("ingest slices out of step: %d ids, %d point sets, %d sport types",
			len(ids), len(points), len(sportTypes))
	}

	entries := make([]ingestEntry, len(ids))
	for i, id := range ids {
		entries[i] = ingestEntry{ID: id, SportType: sportTypes[i], Points: points[i]}
	}
	payload, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("marshal ingest payload: %w", err)
	}

	if err := b.raw.AddActivities(ctx, string(payload)); err != nil {
		return fmt.Errorf("engine ingest: %w", err)
	}
	return nil
}

func (b *Bridge) ItemExists(ctx context.Context, id string) (bool, error) {
	return b.raw.HasActivity(ctx, id)
}

func (b *Bridge) StartJob(ctx context.Context) error {
	if err := b.raw.StartSectionDetection(ctx); err != nil {
		return fmt.Errorf("start detection: %w", err)
	}
	return nil
}

func (b *Bridge) PollJob(ctx context.Context) (shared.AnalysisJobStatus, error) {
	raw, err := b.raw.SectionDetectionStatus(ctx)
	if err != nil {
		return shared.JobIdle, fmt.Errorf("poll detection status: %w", err)
	}
	switch raw {
	case "idle", "":
		return shared.JobIdle, nil
	case "running":
		return shared.JobRunning, nil
	case "complete":
		return shared.JobComplete, nil
	case "error":
		return shared.JobError, nil
	default:
		return shared.JobIdle, fmt.Errorf("unknown detection status %q", raw)
	}
}

func (b *Bridge) JobProgress(ctx context.Context) (*shared.JobProgress, error) {
	raw, err := b.raw.SectionDetectionProgress(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch detection progress: %w", err)
	}
	return ParseJobProgress(raw), nil
}

func (b *Bridge) DeleteOlderThan(ctx context.Context, days int) (int, error) {
	return b.raw.CleanupOldActivities(ctx, days)
}

func (b *Bridge) Clear(ctx context.Context) error {
	return b.raw.ResetAll(ctx)
}

func (b *Bridge) Available(ctx context.Context) error {
	return b.raw.Ping(ctx)
}

// ParseJobProgress parses the engine's raw progress JSON. Returns nil when
// no job is running ("{}"), when the JSON is malformed, or when the phase
// field is absent: a bad report degrades to "nothing to say" rather than an
// error, matching the engine's own idle sentinel.
func ParseJobProgress(raw string) *shared.JobProgress {
	if raw == "" || !gjson.Valid(raw) {
		return nil
	}
	phase := gjson.Get(raw, "phase")
	if !phase.Exists() || phase.String() == "" {
		return nil
	}
	return &shared.JobProgress{
		Phase:     phase.String(),
		Completed: int(gjson.Get(raw, "completed").Int()),
		Total:     int(gjson.Get(raw, "total").Int()),
	}
}
