package probe

import (
	"fmt"
	"math"
	"strings"

	"github.com/shivavenkatesh/voodoo/internal/host"
	"github.com/shivavenkatesh/voodoo/pkg/types"

	"go.uber.org/zap"
)

// DefaultLadder is the fixed set of values tried by empirical range probing
var DefaultLadder = []float64{0, 0.1, 0.5, 1, 10, 100, 1000, 10000}

// ResolveRequest carries what a range strategy may look at
type ResolveRequest struct {
	Host       host.Host
	Plugin     string
	Name       string
	Kind       types.ParameterKind
	Format     string // confirmed text format for string_numeric parameters
	Descriptor *host.Descriptor
	Logger     *zap.Logger
}

// RangeResolver is one range-resolution strategy. The prober tries its
// resolvers in order and keeps the first range returned.
type RangeResolver interface {
	ResolveRange(req *ResolveRequest) (types.Range, types.RangeSource, bool)
}

// RangeLookup supplies externally researched ranges
type RangeLookup interface {
	LookupRange(plugin, param string) (types.Range, bool)
}

// DefaultResolvers returns the standard strategy order: authoritative
// metadata, name heuristics, normalized metadata, the empirical ladder,
// then research data when available.
func DefaultResolvers(ladder []float64, lookup RangeLookup) []RangeResolver {
	resolvers := []RangeResolver{
		MetadataResolver{},
		NameHeuristicResolver{},
		MetadataResolver{AllowNormalized: true},
		EmpiricalResolver{Ladder: ladder},
	}
	if lookup != nil {
		resolvers = append(resolvers, ResearchResolver{Lookup: lookup})
	}
	return resolvers
}

// MetadataResolver reads the range a host declares in its descriptor.
// A declared [0,1] range is the host's normalized internal scale and is
// only used when AllowNormalized is set.
type MetadataResolver struct {
	AllowNormalized bool
}

// ResolveRange implements RangeResolver
func (m MetadataResolver) ResolveRange(req *ResolveRequest) (types.Range, types.RangeSource, bool) {
	d := req.Descriptor
	if d == nil {
		return types.Range{}, "", false
	}

	if d.Range != nil {
		r := types.NewRange(d.Range.Min, d.Range.Max)
		if !r.IsNormalized() {
			return r, types.RangeFromMetadata, true
		}
		if m.AllowNormalized {
			return r, types.RangeFromNormalized, true
		}
		return types.Range{}, "", false
	}

	// Numeric labels such as "0.5 s", "1.0 s" bound the range
	if len(d.ValidValues) > 0 && !m.AllowNormalized {
		lo, hi := math.Inf(1), math.Inf(-1)
		for _, v := range d.ValidValues {
			f, ok := firstNumber(v)
			if !ok {
				return types.Range{}, "", false
			}
			lo = math.Min(lo, f)
			hi = math.Max(hi, f)
		}
		return types.NewRange(lo, hi), types.RangeFromMetadata, true
	}
	return types.Range{}, "", false
}

// nameRange is a plausible real-world range for parameters whose name mentions a keyword
type nameRange struct {
	keywords []string
	r        types.Range
}

var nameRanges = []nameRange{
	{keywords: []string{"highfreq", "high_freq", "hifreq", "hi_freq", "highcut", "high_cut", "hicut"}, r: types.Range{Min: 1000, Max: 20000}},
	{keywords: []string{"lowfreq", "low_freq", "lofreq", "lo_freq", "lowcut", "low_cut", "locut"}, r: types.Range{Min: 20, Max: 1000}},
	{keywords: []string{"freq", "cutoff"}, r: types.Range{Min: 20, Max: 20000}},
	{keywords: []string{"threshold"}, r: types.Range{Min: -60, Max: 0}},
	{keywords: []string{"gain", "level"}, r: types.Range{Min: -24, Max: 24}},
	{keywords: []string{"predelay", "pre_delay"}, r: types.Range{Min: 0, Max: 500}},
	{keywords: []string{"delay"}, r: types.Range{Min: 0, Max: 2000}},
	{keywords: []string{"mix", "depth", "width", "feedback"}, r: types.Range{Min: 0, Max: 100}},
}

// NameHeuristicResolver infers a human-scale range from the parameter name
type NameHeuristicResolver struct{}

// ResolveRange implements RangeResolver
func (NameHeuristicResolver) ResolveRange(req *ResolveRequest) (types.Range, types.RangeSource, bool) {
	if r, ok := rangeFromName(req.Name); ok {
		return r, types.RangeFromName, true
	}
	return types.Range{}, "", false
}

func rangeFromName(name string) (types.Range, bool) {
	lower := strings.ToLower(name)
	for _, nr := range nameRanges {
		for _, kw := range nr.keywords {
			if strings.Contains(lower, kw) {
				return nr.r, true
			}
		}
	}
	return types.Range{}, false
}

// EmpiricalResolver sets each ladder value, reads it back, and spans the
// accepted read-backs. Rejected values are skipped. The caller restores
// the parameter afterwards.
type EmpiricalResolver struct {
	Ladder []float64
}

// ResolveRange implements RangeResolver
func (e EmpiricalResolver) ResolveRange(req *ResolveRequest) (types.Range, types.RangeSource, bool) {
	ladder := e.Ladder
	if len(ladder) == 0 {
		ladder = DefaultLadder
	}

	var readbacks []float64
	for _, v := range ladder {
		var candidate types.Value
		switch req.Kind {
		case types.KindNumeric:
			candidate = types.Float(v)
		case types.KindStringNumeric:
			if req.Format == "" {
				return types.Range{}, "", false
			}
			candidate = types.String(fmt.Sprintf(req.Format, v))
		default:
			return types.Range{}, "", false
		}

		if err := safeSet(req.Host, req.Name, candidate); err != nil {
			if req.Logger != nil {
				req.Logger.Debug("ladder value rejected",
					zap.String("parameter", req.Name),
					zap.Float64("value", v),
					zap.Error(err))
			}
			continue
		}
		got, err := safeGet(req.Host, req.Name)
		if err != nil {
			continue
		}
		if f, ok := numericReadback(got); ok {
			readbacks = append(readbacks, f)
		}
	}

	if len(readbacks) == 0 {
		return types.Range{}, "", false
	}
	lo, hi := readbacks[0], readbacks[0]
	for _, f := range readbacks[1:] {
		lo = math.Min(lo, f)
		hi = math.Max(hi, f)
	}
	return types.Range{Min: lo, Max: hi}, types.RangeFromEmpirical, true
}

func numericReadback(v types.Value) (float64, bool) {
	if f, ok := v.AsFloat(); ok {
		return f, true
	}
	if s, ok := v.AsString(); ok {
		if ns, ok := parseNumericString(s); ok {
			return ns.value, true
		}
	}
	return 0, false
}

// ResearchResolver consults externally researched plugin data
type ResearchResolver struct {
	Lookup RangeLookup
}

// ResolveRange implements RangeResolver
func (r ResearchResolver) ResolveRange(req *ResolveRequest) (types.Range, types.RangeSource, bool) {
	if r.Lookup == nil || req.Plugin == "" {
		return types.Range{}, "", false
	}
	rng, ok := r.Lookup.LookupRange(req.Plugin, req.Name)
	if !ok {
		return types.Range{}, "", false
	}
	return types.NewRange(rng.Min, rng.Max), types.RangeFromResearch, true
}
