package shared

import "time"

const (
	// DefaultBatchSize bounds peak fetch concurrency. Batches run
	// sequentially; requests within a batch run concurrently.
	DefaultBatchSize = 5

	// DefaultPollInterval is how often the detection job is polled.
	DefaultPollInterval = 500 * time.Millisecond

	// DefaultPollCeiling is the soft timeout for the detection job. The
	// sync proceeds without complete analysis once it elapses.
	DefaultPollCeiling = 5 * time.Minute

	// DefaultRetentionDays is used when no preference is stored or the
	// stored value is below MinRetentionDays.
	DefaultRetentionDays = 90

	// MinRetentionDays guards against a corrupt preference triggering a
	// mass deletion.
	MinRetentionDays = 30
)
