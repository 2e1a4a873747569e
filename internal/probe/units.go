package probe

import (
	"regexp"
	"strconv"
	"strings"
)

// unitGroup maps name keywords onto a unit. Groups are tried in order.
type unitGroup struct {
	unit     string
	keywords []string
}

var unitGroups = []unitGroup{
	{unit: "Hz", keywords: []string{"freq", "cutoff"}},
	{unit: "ms", keywords: []string{"delay", "attack", "release"}},
	{unit: "s", keywords: []string{"decay", "time"}},
	{unit: "dB", keywords: []string{"gain", "level", "threshold", "volume"}},
	{unit: "%", keywords: []string{"mix", "depth", "width", "feedback", "amount", "diffusion"}},
	{unit: "cents", keywords: []string{"detune"}},
	{unit: "semitones", keywords: []string{"pitch"}},
}

var knownUnits = map[string]string{
	"hz":        "Hz",
	"khz":       "kHz",
	"ms":        "ms",
	"s":         "s",
	"sec":       "s",
	"db":        "dB",
	"%":         "%",
	"ct":        "cents",
	"cent":      "cents",
	"cents":     "cents",
	"st":        "semitones",
	"semi":      "semitones",
	"semitones": "semitones",
}

// trailingUnit captures the alphabetic/percent run that follows a number
var trailingUnit = regexp.MustCompile(`[-+]?(?:\d+\.?\d*|\.\d+)\s*([A-Za-z%]+)\s*$`)

// numericText splits "1.00 s" into number, separator and unit
var numericText = regexp.MustCompile(`^\s*([-+]?(?:\d+\.?\d*|\.\d+))(\s*)([A-Za-z%]*)\s*$`)

// unitFromName matches the parameter name against the keyword table
func unitFromName(name string) string {
	lower := strings.ToLower(name)
	for _, g := range unitGroups {
		for _, kw := range g.keywords {
			if !strings.Contains(lower, kw) {
				continue
			}
			if g.unit == "s" && strings.Contains(lower, "ms") {
				return "ms"
			}
			return g.unit
		}
	}
	return ""
}

// unitFromText extracts the unit from a textual value such as "2.50 kHz"
func unitFromText(text string) string {
	m := trailingUnit.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	return normalizeUnit(m[1])
}

func normalizeUnit(raw string) string {
	if u, ok := knownUnits[strings.ToLower(raw)]; ok {
		return u
	}
	return raw
}

// numericString describes a string that carries a number
type numericString struct {
	value    float64
	sep      string
	unit     string // normalized
	rawUnit  string // as written by the host
	decimals int
}

// parseNumericString accepts a number optionally followed by a known unit
func parseNumericString(s string) (numericString, bool) {
	m := numericText.FindStringSubmatch(s)
	if m == nil {
		return numericString{}, false
	}
	raw, unit := m[3], ""
	if raw != "" {
		u, ok := knownUnits[strings.ToLower(raw)]
		if !ok {
			return numericString{}, false
		}
		unit = u
	}
	f, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return numericString{}, false
	}
	decimals := 0
	if i := strings.IndexByte(m[1], '.'); i >= 0 {
		decimals = len(m[1]) - i - 1
	}
	return numericString{value: f, sep: m[2], unit: unit, rawUnit: raw, decimals: decimals}, true
}

var embeddedNumber = regexp.MustCompile(`[-+]?(?:\d+\.?\d*|\.\d+)`)

// firstNumber returns the first number embedded in s
func firstNumber(s string) (float64, bool) {
	m := embeddedNumber.FindString(s)
	if m == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(m, 64)
	return f, err == nil
}
