// Package classify decides what kind of effect a plugin is and groups its
// parameters by function.
//
// Classification runs in three stages. A keyword in the plugin name settles
// the effect type outright. Otherwise each catalog archetype is scored by the
// fraction of its core parameters present among the discovered names, and the
// first archetype at or above the threshold wins. Parameters not claimed by
// the selected archetype fall through to generic keyword buckets.
package classify

import (
	"fmt"
	"strings"

	"github.com/shivavenkatesh/voodoo/internal/knowledge"
	"github.com/shivavenkatesh/voodoo/pkg/types"

	"go.uber.org/zap"
)

// DefaultThreshold is the core-parameter match fraction needed to select an archetype
const DefaultThreshold = 0.70

// Category names used when an archetype is selected
const (
	CategoryCore     = "core"
	CategoryAdvanced = "advanced"
)

// Config holds classifier configuration
type Config struct {
	Logger    *zap.Logger
	Catalog   *knowledge.Catalog
	Threshold float64
}

// Classifier maps discovered parameters onto the knowledge catalog
type Classifier struct {
	logger    *zap.Logger
	catalog   *knowledge.Catalog
	threshold float64
}

// New creates a classifier. A nil catalog means the embedded one.
func New(cfg Config) (*Classifier, error) {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Threshold <= 0 {
		cfg.Threshold = DefaultThreshold
	}
	if cfg.Catalog == nil {
		c, err := knowledge.Default()
		if err != nil {
			return nil, fmt.Errorf("failed to load catalog: %w", err)
		}
		cfg.Catalog = c
	}
	return &Classifier{
		logger:    cfg.Logger.Named("classify"),
		catalog:   cfg.Catalog,
		threshold: cfg.Threshold,
	}, nil
}

// Detection is the effect type decided for a plugin
type Detection struct {
	EffectType string
	Confidence float64
	Method     types.ClassificationMethod
	Archetype  *knowledge.Archetype
}

// Detect runs the name shortcut and signature matching only.
// ok is false when neither produced an effect type.
func (c *Classifier) Detect(pluginName string, names []string) (Detection, bool) {
	if effectType, ok := shortcut(pluginName); ok {
		a, _ := c.catalog.Lookup(effectType)
		return Detection{EffectType: effectType, Confidence: 1, Method: types.MethodName, Archetype: a}, true
	}

	present := make(map[string]bool, len(names))
	for _, n := range names {
		present[normalize(n)] = true
	}

	best := 0.0
	for _, a := range c.catalog.Archetypes() {
		score := signatureScore(a, present)
		if score >= c.threshold {
			return Detection{EffectType: a.EffectType(), Confidence: score, Method: types.MethodSignature, Archetype: a}, true
		}
		if score > best {
			best = score
		}
	}
	return Detection{Confidence: best, Method: types.MethodKeywords}, false
}

// EffectType reports the effect type from name and signature alone
func (c *Classifier) EffectType(pluginName string, names []string) (string, bool) {
	d, ok := c.Detect(pluginName, names)
	return d.EffectType, ok
}

// signatureScore is the fraction of core parameters present under any of their names
func signatureScore(a *knowledge.Archetype, present map[string]bool) float64 {
	if len(a.CoreParameters) == 0 {
		return 0
	}
	matches := 0
	for _, p := range a.CoreParameters {
		for _, n := range p.Names() {
			if present[normalize(n)] {
				matches++
				break
			}
		}
	}
	return float64(matches) / float64(len(a.CoreParameters))
}

// Classify produces the effect type and a total partition of the discovered parameters
func (c *Classifier) Classify(pluginName string, dm *types.DiscoveryMap) types.EffectClassification {
	names := dm.Names()
	result := types.EffectClassification{
		Categories:    make(map[string]types.CategoryGroup),
		Uncategorized: []string{},
	}

	claimed := make(map[string]bool, len(names))
	detection, ok := c.Detect(pluginName, names)
	result.Confidence = detection.Confidence
	result.Method = detection.Method

	if ok {
		result.EffectType = detection.EffectType
		if a := detection.Archetype; a != nil {
			result.Mappings = make(map[string]string)
			if members := mapGroup(a.CoreParameters, names, claimed, result.Mappings); len(members) > 0 {
				result.Categories[CategoryCore] = types.CategoryGroup{Parameters: members, Priority: "critical"}
			}
			if members := mapGroup(a.AdvancedParameters, names, claimed, result.Mappings); len(members) > 0 {
				result.Categories[CategoryAdvanced] = types.CategoryGroup{Parameters: members, Priority: "secondary"}
			}
		}
	}

	for _, name := range names {
		if claimed[name] {
			continue
		}
		bucket, ok := bucketFor(name, dm.Parameters[name])
		if !ok {
			result.Uncategorized = append(result.Uncategorized, name)
			continue
		}
		group := result.Categories[bucket.name]
		group.Priority = bucket.priority
		group.Parameters = append(group.Parameters, name)
		result.Categories[bucket.name] = group
	}

	c.logger.Debug("classified plugin",
		zap.String("plugin", pluginName),
		zap.String("effect_type", result.EffectType),
		zap.String("method", string(result.Method)),
		zap.Int("uncategorized", len(result.Uncategorized)))
	return result
}

// normalize lowercases and drops separators so pre_delay, pre-delay and preDelay compare equal
func normalize(name string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '_', '-', ' ':
			return -1
		}
		return r
	}, strings.ToLower(name))
}
