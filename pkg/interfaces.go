package shared

import (
	"context"
)

// --- Analytics Engine ---

// Engine is the consumed capability set of the external analytics engine.
// The engine performs the actual spatial clustering and section detection;
// this module only feeds it and observes it.
type Engine interface {
	// Ingest stores telemetry for the given items. Slices are parallel:
	// points[i] and sportTypes[i] belong to ids[i].
	Ingest(ctx context.Context, ids []string, points [][]Point, sportTypes []string) error

	// ItemExists reports whether the engine already holds the item.
	ItemExists(ctx context.Context, id string) (bool, error)

	// StartJob begins the asynchronous detection job.
	StartJob(ctx context.Context) error

	// PollJob returns the job's current status.
	PollJob(ctx context.Context) (AnalysisJobStatus, error)

	// JobProgress returns the running job's progress report, or nil when
	// no job is running.
	JobProgress(ctx context.Context) (*JobProgress, error)

	// DeleteOlderThan purges engine data older than the cutoff and
	// returns the number of deleted items.
	DeleteOlderThan(ctx context.Context, days int) (int, error)

	// Clear drops all engine-held data. Callers must bump the sync
	// generation afterwards so in-flight attempts discard their results.
	Clear(ctx context.Context) error

	// Available reports whether the engine can accept work right now.
	Available(ctx context.Context) error
}

// --- Remote Telemetry Source ---

// TelemetrySource fetches one item's GPS stream. Implementations report
// failures per item via the returned error; a failed item never aborts the
// batch it belongs to.
type TelemetrySource interface {
	FetchTelemetry(ctx context.Context, credential string, id string) (*TelemetryPayload, error)
}

// --- Credentials ---

// CredentialProvider resolves the opaque bearer credential supplied with
// each telemetry request.
type CredentialProvider interface {
	Credential(ctx context.Context) (string, error)
}

// --- Preferences ---

// PreferenceStore is the local preference capability consumed by the
// retention cleaner. The second return value reports whether a value was
// stored at all.
type PreferenceStore interface {
	GetRetentionDays(ctx context.Context) (int, bool, error)
}
