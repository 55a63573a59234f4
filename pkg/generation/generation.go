// Package generation issues monotonically increasing sync-generation
// identifiers. A sync attempt snapshots the generation at start and
// re-checks it before committing; a mismatch means the attempt was
// superseded (cache cleared, account switched) and its results must be
// discarded. This counter is the sole correctness mechanism against
// late-arriving results from an abandoned operation.
package generation

import "sync/atomic"

// Generation identifies the reset epoch a sync attempt belongs to.
type Generation int64

// Tracker is a process-wide atomic generation counter. The zero value is
// ready to use.
type Tracker struct {
	current atomic.Int64
}

// Current returns the present generation. Never blocks.
func (t *Tracker) Current() Generation {
	return Generation(t.current.Load())
}

// Bump atomically increments the generation and returns the new value.
// Call exactly once per logical reset.
func (t *Tracker) Bump() Generation {
	return Generation(t.current.Add(1))
}

// IsStale reports whether the generation has moved past capturedAt.
func (t *Tracker) IsStale(capturedAt Generation) bool {
	return t.Current() != capturedAt
}
