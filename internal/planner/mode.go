package planner

import (
	"strings"

	"github.com/researchmesh/citeforge/internal/model"
)

// quickTriggers and fullTriggers are the surface heuristics of spec
// §4.2 that pick between the QUICK and FULL phase templates.
var quickTriggers = []string{"quick", "just find", "briefly", "fast"}
var fullTriggers = []string{"comprehensive", "survey", "deep dive", "thorough", "exhaustive"}

// SelectMode applies the topic surface heuristics: a QUICK trigger
// wins if present; a FULL trigger merely confirms the default; absent
// either, the default is FULL (spec §4.2).
func SelectMode(topic string) model.Mode {
	lower := strings.ToLower(topic)
	for _, t := range quickTriggers {
		if strings.Contains(lower, t) {
			return model.ModeQuick
		}
	}
	return model.ModeFull
}
