package classify

import (
	"sort"
	"strings"
	"unicode"

	"github.com/shivavenkatesh/voodoo/internal/knowledge"
)

// shortcuts map plugin-name keywords to effect types, tried in order.
// Keywords of other archetypes precede the reverb terms. Word keywords must be
// a whole word of the name (ValhallaRoom, Pro EQ) since "hall" is inside
// Valhalla and "eq" inside Freq; the rest match anywhere.
var shortcuts = []struct {
	keyword    string
	effectType string
	word       bool
}{
	{keyword: "delay", effectType: "time_based_effects.delay"},
	{keyword: "echo", effectType: "time_based_effects.delay"},
	{keyword: "chorus", effectType: "modulation_effects.chorus"},
	{keyword: "flanger", effectType: "modulation_effects.flanger"},
	{keyword: "phaser", effectType: "modulation_effects.phaser"},
	{keyword: "compressor", effectType: "dynamics.compressor"},
	{keyword: "limiter", effectType: "dynamics.limiter"},
	{keyword: "gate", effectType: "dynamics.gate"},
	{keyword: "distortion", effectType: "distortion_saturation.distortion"},
	{keyword: "overdrive", effectType: "distortion_saturation.overdrive"},
	{keyword: "filter", effectType: "frequency_effects.filter"},
	{keyword: "plate", effectType: "time_based_effects.reverb", word: true},
	{keyword: "room", effectType: "time_based_effects.reverb", word: true},
	{keyword: "hall", effectType: "time_based_effects.reverb", word: true},
	{keyword: "chamber", effectType: "time_based_effects.reverb", word: true},
	{keyword: "spring", effectType: "time_based_effects.reverb", word: true},
	{keyword: "reverb", effectType: "time_based_effects.reverb"},
	{keyword: "verb", effectType: "time_based_effects.reverb"},
	{keyword: "eq", effectType: "frequency_effects.parametric_eq", word: true},
}

func shortcut(pluginName string) (string, bool) {
	lower := strings.ToLower(pluginName)
	words := nameWords(pluginName)
	for _, s := range shortcuts {
		if s.word {
			if words[s.keyword] {
				return s.effectType, true
			}
			continue
		}
		if strings.Contains(lower, s.keyword) {
			return s.effectType, true
		}
	}
	return "", false
}

// nameWords splits a plugin name on separators and camel-case boundaries
// ("ValhallaRoom.vst3" gives valhalla, room, vst3) and lowercases the words
func nameWords(name string) map[string]bool {
	words := make(map[string]bool)
	runes := []rune(name)
	start := -1
	flush := func(end int) {
		if start >= 0 && end > start {
			words[strings.ToLower(string(runes[start:end]))] = true
		}
		start = -1
	}
	for i, r := range runes {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			flush(i)
			continue
		}
		if start >= 0 && unicode.IsUpper(r) {
			prev := runes[i-1]
			nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower) {
				flush(i)
			}
		}
		if start < 0 {
			start = i
		}
	}
	flush(len(runes))
	return words
}

// abbreviations pair a short form with its long form
var abbreviations = [][2]string{
	{"freq", "frequency"},
	{"mod", "modulation"},
	{"fb", "feedback"},
	{"hpf", "highpass"},
	{"lpf", "lowpass"},
	{"bpf", "bandpass"},
	{"reso", "resonance"},
	{"amp", "amplitude"},
	{"env", "envelope"},
}

// minSubstringLen keeps one and two letter names (q, f, er) out of containment matching
const minSubstringLen = 3

type matchRule func(known []string, discovered string) bool

// mappingRules are tried in order; the first rule that finds a discovered name wins
var mappingRules = []matchRule{
	// exact
	func(known []string, d string) bool { return known[0] == d },
	// naming variation
	func(known []string, d string) bool {
		for _, v := range known[1:] {
			if v == d {
				return true
			}
		}
		return false
	},
	// containment either direction
	func(known []string, d string) bool {
		if len(d) < minSubstringLen {
			return false
		}
		for _, k := range known {
			if len(k) >= minSubstringLen && (strings.Contains(k, d) || strings.Contains(d, k)) {
				return true
			}
		}
		return false
	},
	// abbreviation
	func(known []string, d string) bool {
		for _, pair := range abbreviations {
			if mentions(known[0], pair) && mentions(d, pair) {
				return true
			}
		}
		return false
	},
}

func mentions(name string, pair [2]string) bool {
	return strings.Contains(name, pair[0]) || strings.Contains(name, pair[1])
}

// matchParameter finds the unclaimed discovered name for a catalog parameter.
// names must be sorted so ties resolve the same way every run.
func matchParameter(p knowledge.Parameter, names []string, claimed map[string]bool) (string, bool) {
	known := make([]string, 0, len(p.NamingVariations)+1)
	for _, n := range p.Names() {
		known = append(known, normalize(n))
	}

	for _, rule := range mappingRules {
		for _, name := range names {
			if claimed[name] {
				continue
			}
			if rule(known, normalize(name)) {
				return name, true
			}
		}
	}
	return "", false
}

// mapGroup claims discovered names for each catalog parameter and returns them sorted
func mapGroup(params []knowledge.Parameter, names []string, claimed map[string]bool, mappings map[string]string) []string {
	var members []string
	for _, p := range params {
		name, ok := matchParameter(p, names, claimed)
		if !ok {
			continue
		}
		claimed[name] = true
		mappings[p.Name] = name
		members = append(members, name)
	}
	sort.Strings(members)
	return members
}
