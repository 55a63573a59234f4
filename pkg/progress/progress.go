// Package progress converts heterogeneous phase/step reports from the
// analytics engine's detection job into a single 0-100 percentage that
// never moves backwards.
package progress

import (
	"math"
	"strings"
)

// phaseWindow maps a phase onto a slice of the overall 0-100 range.
type phaseWindow struct {
	Start  int
	Weight int
}

// The ordered phase sequence reported by the detection job. Weights sum to
// 100; Start values are non-decreasing and Start+Weight never exceeds 100.
var phaseWindows = map[string]phaseWindow{
	"loading":          {Start: 0, Weight: 10},
	"building_index":   {Start: 10, Weight: 15},
	"finding_overlaps": {Start: 25, Weight: 35},
	"clustering":       {Start: 60, Weight: 15},
	"building_groups":  {Start: 75, Weight: 15},
	"postprocessing":   {Start: 90, Weight: 10},
	"complete":         {Start: 100, Weight: 0},
}

// scalePrefix marks engine-internal sub-phases of the overlap search. The
// engine emits one "scale_*" phase per resolution preset, so the set is
// unbounded; all of them fold into finding_overlaps externally.
const scalePrefix = "scale_"

// NormalizePhase maps engine-internal sub-phase names onto the externally
// visible phase they belong to.
func NormalizePhase(phase string) string {
	if strings.HasPrefix(phase, scalePrefix) {
		return "finding_overlaps"
	}
	return phase
}

// KnownPhase reports whether the phase has a window in the table, after
// normalization.
func KnownPhase(phase string) bool {
	_, ok := phaseWindows[NormalizePhase(phase)]
	return ok
}

// OverallPercent folds one (phase, completed, total) report into an overall
// percentage.
//
// The result never regresses below lastKnown, with one exception: the
// "loading" phase only recurs at the start of a brand-new detection run, so
// a loading report may reset the percentage downwards. Unknown phases
// return lastKnown unchanged so engine-side phase additions degrade
// gracefully instead of snapping the progress bar to zero.
//
// This is a pure function: the lastKnown accumulator belongs to the caller,
// never to package state, so overlapping sync attempts cannot corrupt each
// other's tracking.
func OverallPercent(phase string, completed, total, lastKnown int) int {
	w, ok := phaseWindows[NormalizePhase(phase)]
	if !ok {
		return lastKnown
	}

	fraction := 0.0
	if total > 0 {
		fraction = math.Min(math.Max(float64(completed)/float64(total), 0), 1)
	}

	percent := int(math.Round(float64(w.Start) + float64(w.Weight)*fraction))

	if NormalizePhase(phase) == "loading" {
		return percent
	}
	if percent < lastKnown {
		return lastKnown
	}
	return percent
}
