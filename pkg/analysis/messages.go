package analysis

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// printer formats user-visible progress text. Localization of the wording
// itself is the UI layer's concern; only the shape of the message is owned
// here.
var printer = message.NewPrinter(language.English)

var phaseVerbs = map[string]string{
	"loading":          "Loading activities",
	"building_index":   "Indexing routes",
	"finding_overlaps": "Analyzing routes",
	"clustering":       "Grouping similar routes",
	"building_groups":  "Building route groups",
	"postprocessing":   "Finishing up",
	"complete":         "Analysis complete",
}

// MessageFor renders a human-readable progress line for a phase, e.g.
// "Analyzing routes… 42%". Unknown phases fall back to a generic line so
// engine-side additions still render something sensible.
func MessageFor(phase string, percent int) string {
	verb, ok := phaseVerbs[normalizedPhase(phase)]
	if !ok {
		verb = "Analyzing"
	}
	return printer.Sprintf("%s… %d%%", verb, percent)
}
