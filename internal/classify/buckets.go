package classify

import (
	"strings"

	"github.com/shivavenkatesh/voodoo/pkg/types"
)

type bucket struct {
	name     string
	priority string
	keywords []string
}

// buckets are the generic categories for parameters no archetype claimed, tried in order
var buckets = []bucket{
	{name: "reverb_core", priority: "critical", keywords: []string{"mix", "decay", "size", "room", "predelay"}},
	{name: "tone_shaping", priority: "secondary", keywords: []string{"freq", "frequency", "cut", "shelf", "eq", "filter", "damp"}},
	{name: "modulation", priority: "modulation", keywords: []string{"mod", "rate", "depth", "lfo", "chorus", "vibrato"}},
	{name: "diffusion", priority: "secondary", keywords: []string{"diff", "diffusion", "density", "thick"}},
	{name: "algorithm", priority: "critical", keywords: []string{"mode", "type", "color", "model", "algorithm"}},
	{name: "dynamics", priority: "secondary", keywords: []string{"attack", "release", "envelope", "compress"}},
	{name: "spatial", priority: "secondary", keywords: []string{"width", "stereo", "pan", "spread"}},
}

func bucketNamed(name string) bucket {
	for _, b := range buckets {
		if b.name == name {
			return b
		}
	}
	panic("classify: unknown bucket " + name)
}

// learnedBuckets maps categories learned from earlier plugins onto buckets
var learnedBuckets = map[string]string{
	"modulation_rate":  "modulation",
	"modulation_depth": "modulation",
	"feedback":         "reverb_core",
	"wet_dry_mix":      "reverb_core",
	"time_parameter":   "reverb_core",
	"decay_time":       "reverb_core",
	"frequency":        "tone_shaping",
	"filter_cutoff":    "tone_shaping",
	"filter_resonance": "tone_shaping",
	"gain":             "dynamics",
	"threshold":        "dynamics",
	"envelope_attack":  "dynamics",
	"envelope_release": "dynamics",
	"stereo_width":     "spatial",
}

// bucketFor picks the first bucket with a keyword inside the parameter name,
// then the bucket of a learned category, then falls back to unit and kind heuristics.
// name is the discovery map key.
func bucketFor(name string, fact types.ParameterFact) (bucket, bool) {
	normalized := normalize(name)
	for _, b := range buckets {
		for _, kw := range b.keywords {
			if strings.Contains(normalized, kw) {
				return b, true
			}
		}
	}

	if b, ok := learnedBuckets[fact.LearnedCategory]; ok {
		return bucketNamed(b), true
	}

	r := fact.Range
	if r == nil {
		r = fact.SuggestedRange
	}
	if fact.Unit == "ms" && r != nil && r.Max > 100 {
		return bucketNamed("reverb_core"), true
	}
	if fact.Kind == types.KindStringChoice {
		return bucketNamed("algorithm"), true
	}
	return bucket{}, false
}

// TestPlan orders measurement phases for the categories present
func TestPlan(ec types.EffectClassification) []types.TestPhase {
	has := func(names ...string) bool {
		for _, n := range names {
			if _, ok := ec.Categories[n]; ok {
				return true
			}
		}
		return false
	}

	var core []string
	if has("algorithm") {
		core = append(core, "mode_comparison")
	}
	if has("reverb_core", CategoryCore) {
		core = append(core, "baseline_measurement", "decay_sweep", "size_variations")
	}

	phases := []types.TestPhase{
		{Name: "phase_1_core", Tests: core},
	}
	if has("modulation") {
		phases = append(phases, types.TestPhase{Name: "phase_2_modulation", Tests: []string{"modulation_off", "modulation_sweep", "rate_variations"}})
	}
	if has("tone_shaping") {
		phases = append(phases, types.TestPhase{Name: "phase_3_tone", Tests: []string{"frequency_sweep", "filter_variations"}})
	}
	if has("spatial") {
		phases = append(phases, types.TestPhase{Name: "phase_4_spatial", Tests: []string{"stereo_width_test", "panning_test"}})
	}

	if len(core) == 0 {
		phases = phases[1:]
	}
	return phases
}
