package probe

import (
	"fmt"
	"strings"

	"github.com/shivavenkatesh/voodoo/internal/host"
	"github.com/shivavenkatesh/voodoo/pkg/types"

	"go.uber.org/zap"
)

// formatWatchList names parameters that often need a text-encoded number
var formatWatchList = []string{"decay", "reverb", "time", "delay"}

// Decimal precisions tried, most specific first
var formatPrecisions = []string{"%.2f", "%.1f", "%.0f"}

func onWatchList(name string) bool {
	lower := strings.ToLower(name)
	for _, w := range formatWatchList {
		if strings.Contains(lower, w) {
			return true
		}
	}
	return false
}

// candidateFormats builds the descending-specificity ladder, unit-suffixed
// variants first: "%.2f s", "%.1f s", "%.0f s", "%.2f", "%.1f", "%.0f".
func candidateFormats(sep, unit string) []string {
	suffix := sep + strings.ReplaceAll(unit, "%", "%%")
	formats := make([]string, 0, len(formatPrecisions)*2)
	if unit != "" {
		for _, p := range formatPrecisions {
			formats = append(formats, p+suffix)
		}
	}
	return append(formats, formatPrecisions...)
}

// detectFormat looks for a printf template the host echoes back exactly.
// It returns "" when no candidate round-trips.
func (p *Prober) detectFormat(h host.Host, name, current string) string {
	ns, numeric := parseNumericString(current)
	if !numeric && !onWatchList(name) {
		return ""
	}

	value := 1.0
	sep, unit := " ", ""
	switch {
	case numeric:
		value = ns.value
		unit = ns.rawUnit
		if unit != "" {
			sep = ns.sep
		}
	default:
		if f, ok := firstNumber(current); ok {
			value = f
		}
	}
	if unit == "" {
		unit = unitFromName(name)
	}
	if unit == "" {
		unit = "s"
	}

	for _, format := range candidateFormats(sep, unit) {
		candidate := fmt.Sprintf(format, value)
		if !p.echoes(h, name, candidate) {
			continue
		}
		// A label such as "1970s" echoes too; a second value must also round-trip
		for _, other := range []float64{value / 2, value + 1, value - 1} {
			text := fmt.Sprintf(format, other)
			if text != candidate && p.echoes(h, name, text) {
				return format
			}
		}
	}
	return ""
}

// echoes sets text and reports whether the host reads back exactly the same text
func (p *Prober) echoes(h host.Host, name, text string) bool {
	if err := safeSet(h, name, types.String(text)); err != nil {
		p.logger.Debug("format candidate rejected",
			zap.String("parameter", name),
			zap.String("candidate", text),
			zap.Error(err))
		return false
	}
	got, err := safeGet(h, name)
	if err != nil {
		return false
	}
	s, ok := got.AsString()
	return ok && s == text
}
