package shared

// Point is a single GPS coordinate in degrees.
type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Valid reports whether the point is finite and within world bounds.
func (p Point) Valid() bool {
	// NaN fails every comparison, so the range checks below also reject it.
	return p.Lat >= -90 && p.Lat <= 90 && p.Lng >= -180 && p.Lng <= 180
}

// Bounds is the bounding box reported alongside a telemetry stream.
type Bounds struct {
	NE Point `json:"ne"`
	SW Point `json:"sw"`
}

// Item is the unit of synchronization: one activity to fetch and ingest.
type Item struct {
	ID        string
	SportType string
}

// TelemetryPayload is the raw result of fetching one item's GPS stream.
// Points may still contain invalid coordinates; the fetcher validates them.
type TelemetryPayload struct {
	Points []Point
	Bounds *Bounds
}

// FetchOutcome records the result of fetching a single item. One outcome is
// produced per requested item, successful or not, and never mutated after
// creation.
type FetchOutcome struct {
	ItemID  string
	Success bool
	Points  []Point
	Bounds  *Bounds
	Dropped int // points removed by coordinate validation
	Err     string
}

// SyncStatus is the externally visible state of a sync attempt.
type SyncStatus string

const (
	StatusIdle       SyncStatus = "idle"
	StatusFetching   SyncStatus = "fetching"
	StatusProcessing SyncStatus = "processing"
	StatusComputing  SyncStatus = "computing"
	StatusComplete   SyncStatus = "complete"
	StatusError      SyncStatus = "error"
)

// SyncProgress is a point-in-time snapshot delivered to the UI layer. It
// lives only for the duration of one sync attempt.
type SyncProgress struct {
	Status    SyncStatus
	Completed int
	Total     int
	Message   string
}

// SyncResult is the terminal outcome of one sync attempt.
type SyncResult struct {
	AttemptID     string
	SyncedIDs     []string
	WithDataCount int
	Message       string

	// Discarded marks results from a superseded attempt (generation
	// mismatch). Not an error: the caller simply drops them.
	Discarded bool
}

// AnalysisJobStatus is the engine-reported state of the detection job.
// Observed via polling, never owned by this module.
type AnalysisJobStatus string

const (
	JobIdle     AnalysisJobStatus = "idle"
	JobRunning  AnalysisJobStatus = "running"
	JobComplete AnalysisJobStatus = "complete"
	JobError    AnalysisJobStatus = "error"
)

// JobProgress is one progress report from the engine's detection job.
type JobProgress struct {
	Phase     string
	Completed int
	Total     int
}
