// Package types defines the core data structures for voodoo
package types

import (
	"sort"
	"time"
)

// ParameterKind classifies how a parameter must be driven
type ParameterKind string

const (
	KindNumeric       ParameterKind = "numeric"        // Native float
	KindStringNumeric ParameterKind = "string_numeric" // Number that must be set through a confirmed text format
	KindStringChoice  ParameterKind = "string_choice"  // One of a discovered list of labels
	KindString        ParameterKind = "string"         // Text with no confirmed contract
	KindBoolean       ParameterKind = "boolean"
	KindUnknown       ParameterKind = "unknown"
)

// RangeSource names the strategy that produced a range
type RangeSource string

const (
	RangeFromMetadata   RangeSource = "metadata"
	RangeFromNormalized RangeSource = "normalized_metadata"
	RangeFromName       RangeSource = "name_heuristic"
	RangeFromEmpirical  RangeSource = "empirical"
	RangeFromResearch   RangeSource = "research"
	RangeFromLearned    RangeSource = "learned"
)

// Range is a closed numeric interval, Min <= Max
type Range struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// NewRange orders its bounds so the invariant always holds
func NewRange(a, b float64) Range {
	if a > b {
		a, b = b, a
	}
	return Range{Min: a, Max: b}
}

// Contains reports whether x lies inside the range
func (r Range) Contains(x float64) bool {
	return x >= r.Min && x <= r.Max
}

// IsNormalized reports whether the range is the [0,1] internal range many hosts expose
func (r Range) IsNormalized() bool {
	return r.Min == 0 && r.Max == 1
}

// ParameterFact is the discovered description of one parameter
type ParameterFact struct {
	Name         string        `json:"name"`
	Kind         ParameterKind `json:"type"`
	CurrentValue Value         `json:"current_value"`
	DefaultValue Value         `json:"default"`
	Range        *Range        `json:"range,omitempty"`
	RangeSource  RangeSource   `json:"range_source,omitempty"`
	Unit         string        `json:"unit,omitempty"`
	Format       string        `json:"format,omitempty"`
	ValidValues  []string      `json:"valid_values,omitempty"`

	// Annotations applied from previously learned patterns
	SuggestedFormat string `json:"suggested_format,omitempty"`
	SuggestedRange  *Range `json:"suggested_range,omitempty"`
	LearnedCategory string `json:"learned_category,omitempty"`
}

// PluginInfo identifies a plugin instance being discovered
type PluginInfo struct {
	Name string `json:"plugin_name"`
	Path string `json:"plugin_path"`
}

// DiscoveryMetadata describes one discovery session
type DiscoveryMetadata struct {
	PluginName        string    `json:"plugin_name"`
	PluginPath        string    `json:"plugin_path"`
	TotalParameters   int       `json:"total_parameters"`
	DiscoveryComplete bool      `json:"discovery_complete"`
	DiscoveredAt      time.Time `json:"discovered_at"`
}

// DiscoveryMap holds every discovered parameter of one plugin instance
type DiscoveryMap struct {
	Metadata   DiscoveryMetadata        `json:"_metadata"`
	Parameters map[string]ParameterFact `json:"parameters"`
}

// Names returns the parameter names in lexical order
func (d *DiscoveryMap) Names() []string {
	names := make([]string, 0, len(d.Parameters))
	for name := range d.Parameters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Clone returns a copy whose facts can be annotated without touching d
func (d *DiscoveryMap) Clone() *DiscoveryMap {
	out := &DiscoveryMap{
		Metadata:   d.Metadata,
		Parameters: make(map[string]ParameterFact, len(d.Parameters)),
	}
	for name, fact := range d.Parameters {
		if fact.Range != nil {
			r := *fact.Range
			fact.Range = &r
		}
		if fact.SuggestedRange != nil {
			r := *fact.SuggestedRange
			fact.SuggestedRange = &r
		}
		if fact.ValidValues != nil {
			fact.ValidValues = append([]string(nil), fact.ValidValues...)
		}
		out.Parameters[name] = fact
	}
	return out
}

// ClassificationMethod records which rule produced an effect type
type ClassificationMethod string

const (
	MethodName      ClassificationMethod = "name"
	MethodSignature ClassificationMethod = "signature"
	MethodKeywords  ClassificationMethod = "keywords"
)

// CategoryGroup lists the parameters assigned to one category
type CategoryGroup struct {
	Parameters []string `json:"parameters"`
	Priority   string   `json:"priority"`
}

// EffectClassification is the result of classifying a DiscoveryMap.
// Every parameter name appears in exactly one category or in Uncategorized.
type EffectClassification struct {
	EffectType    string                   `json:"effect_type,omitempty"`
	Confidence    float64                  `json:"confidence"`
	Method        ClassificationMethod     `json:"method"`
	Categories    map[string]CategoryGroup `json:"categories"`
	Uncategorized []string                 `json:"uncategorized"`
	Mappings      map[string]string        `json:"mappings,omitempty"` // knowledge parameter -> discovered name
}

// TestPhase is one step of a suggested measurement plan
type TestPhase struct {
	Name  string   `json:"name"`
	Tests []string `json:"tests"`
}

// Anomaly is a newly observed fact that conflicts with a learned one
type Anomaly struct {
	Parameter string `json:"parameter"`
	Expected  string `json:"expected_format"`
	Found     string `json:"found_format"`
}

// LearningDelta summarises what one learn call changed
type LearningDelta struct {
	SessionID         string    `json:"session_id"`
	PluginName        string    `json:"plugin_name"`
	NewPatterns       int       `json:"new_patterns"`
	ConfirmedPatterns int       `json:"confirmed_patterns"`
	Anomalies         []Anomaly `json:"anomalies"`
	EffectType        string    `json:"effect_type,omitempty"`
	Timestamp         time.Time `json:"timestamp"`
}

// PluginRecord is the point-in-time history entry for a plugin
type PluginRecord struct {
	LastSeen       time.Time `json:"timestamp"`
	ParameterCount int       `json:"parameter_count"`
}

// PatternSnapshot is the persisted Pattern Store document
type PatternSnapshot struct {
	StringFormats     map[string]string       `json:"string_formats"`
	ParameterPatterns map[string]string       `json:"parameter_patterns"`
	RangePatterns     map[string]Range        `json:"range_patterns"`
	EffectSignatures  map[string]string       `json:"effect_signatures"`
	PluginHistory     map[string]PluginRecord `json:"plugin_history"`
}

// NewPatternSnapshot returns an empty document with all maps allocated
func NewPatternSnapshot() *PatternSnapshot {
	return &PatternSnapshot{
		StringFormats:     make(map[string]string),
		ParameterPatterns: make(map[string]string),
		RangePatterns:     make(map[string]Range),
		EffectSignatures:  make(map[string]string),
		PluginHistory:     make(map[string]PluginRecord),
	}
}

// Normalize allocates any nil maps (documents written by older versions may omit some)
func (s *PatternSnapshot) Normalize() {
	if s.StringFormats == nil {
		s.StringFormats = make(map[string]string)
	}
	if s.ParameterPatterns == nil {
		s.ParameterPatterns = make(map[string]string)
	}
	if s.RangePatterns == nil {
		s.RangePatterns = make(map[string]Range)
	}
	if s.EffectSignatures == nil {
		s.EffectSignatures = make(map[string]string)
	}
	if s.PluginHistory == nil {
		s.PluginHistory = make(map[string]PluginRecord)
	}
}

// Clone deep-copies the document
func (s *PatternSnapshot) Clone() *PatternSnapshot {
	out := NewPatternSnapshot()
	for k, v := range s.StringFormats {
		out.StringFormats[k] = v
	}
	for k, v := range s.ParameterPatterns {
		out.ParameterPatterns[k] = v
	}
	for k, v := range s.RangePatterns {
		out.RangePatterns[k] = v
	}
	for k, v := range s.EffectSignatures {
		out.EffectSignatures[k] = v
	}
	for k, v := range s.PluginHistory {
		out.PluginHistory[k] = v
	}
	return out
}

// LearningStats contains counts over the Pattern Store
type LearningStats struct {
	PluginsAnalyzed       int `json:"plugins_analyzed"`
	StringFormatsLearned  int `json:"string_formats_learned"`
	ParameterPatterns     int `json:"parameter_patterns"`
	RangePatterns         int `json:"range_patterns"`
	EffectTypesIdentified int `json:"effect_types_identified"`
}

// FormatCheck is the result of re-validating one confirmed string format
type FormatCheck struct {
	Parameter string   `json:"parameter"`
	Format    string   `json:"format"`
	Tested    []string `json:"tested"`
	Failures  []string `json:"failures,omitempty"`
	Working   bool     `json:"working"`
}

// FormatMismatch records a discovered fact that disagrees with research data
type FormatMismatch struct {
	Parameter string `json:"parameter"`
	Field     string `json:"field"` // "type" or "format"
	Expected  string `json:"expected"`
	Found     string `json:"found"`
}

// ResearchValidation scores a discovery against known research data
type ResearchValidation struct {
	PluginName string           `json:"plugin_name"`
	Score      float64          `json:"validation_score"` // -1 when no research data exists
	Matched    []string         `json:"matched_parameters"`
	Missing    []string         `json:"missing_parameters"`
	Extra      []string         `json:"extra_parameters"`
	Mismatches []FormatMismatch `json:"format_mismatches"`
}

// AnalysisResult is the full output of one learning session
type AnalysisResult struct {
	SessionID      string               `json:"session_id"`
	Discovery      *DiscoveryMap        `json:"discovery"`
	Enhanced       *DiscoveryMap        `json:"enhanced"`
	Classification EffectClassification `json:"classification"`
	TestPlan       []TestPhase          `json:"test_plan"`
	FormatChecks   []FormatCheck        `json:"format_checks,omitempty"`
	Research       *ResearchValidation  `json:"research,omitempty"`
	Delta          *LearningDelta       `json:"delta"`
	Duration       time.Duration        `json:"duration_ns"`
}
