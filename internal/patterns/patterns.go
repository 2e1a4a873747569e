// Package patterns accumulates knowledge across discovery sessions: confirmed
// string formats, observed ranges, name-to-category mappings and the effect
// type of every plugin seen. The whole document is written through to its
// persister after each learn call.
package patterns

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shivavenkatesh/voodoo/internal/cache"
	"github.com/shivavenkatesh/voodoo/internal/store"
	"github.com/shivavenkatesh/voodoo/pkg/types"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// EffectDetector decides an effect type from the plugin name and parameter
// names using name and signature rules only
type EffectDetector interface {
	EffectType(pluginName string, names []string) (string, bool)
}

type namePattern struct {
	pattern  string
	category string
}

// namePatterns is tried in order against lowercased parameter names; only the first match is learned
var namePatterns = []namePattern{
	{`.*rate.*`, "modulation_rate"},
	{`.*depth.*`, "modulation_depth"},
	{`.*feedback.*`, "feedback"},
	{`.*mix.*`, "wet_dry_mix"},
	{`.*time.*`, "time_parameter"},
	{`.*freq.*`, "frequency"},
	{`.*gain.*`, "gain"},
	{`.*threshold.*`, "threshold"},
	{`.*attack.*`, "envelope_attack"},
	{`.*release.*`, "envelope_release"},
	{`.*decay.*`, "decay_time"},
	{`.*cutoff.*`, "filter_cutoff"},
	{`.*resonance.*`, "filter_resonance"},
	{`.*drive.*`, "saturation_drive"},
	{`.*width.*`, "stereo_width"},
}

// RangeKey is the range_patterns key for a parameter
func RangeKey(name string) string {
	return name + "_range"
}

// Config configures a Store
type Config struct {
	Logger    *zap.Logger
	Persister store.Persister     // nil keeps patterns in memory only
	Detector  EffectDetector      // nil disables effect signature learning
	Cache     *cache.PatternCache // compiled name patterns; created when nil
	Now       func() time.Time    // clock for history timestamps
}

// Store is the Pattern Store. It is safe for concurrent use; learn calls
// serialize their merge and persist step.
type Store struct {
	mu        sync.RWMutex
	snap      *types.PatternSnapshot
	persister store.Persister
	detector  EffectDetector
	cache     *cache.PatternCache
	now       func() time.Time
	logger    *zap.Logger
}

// Open loads the persisted document. A corrupt document is logged and
// replaced by an empty store; any other load failure is returned.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Persister == nil {
		cfg.Persister = store.NewMemory(nil)
	}
	if cfg.Cache == nil {
		cfg.Cache = cache.NewPatternCache(256)
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	s := &Store{
		persister: cfg.Persister,
		detector:  cfg.Detector,
		cache:     cfg.Cache,
		now:       cfg.Now,
		logger:    cfg.Logger.Named("patterns"),
	}

	snap, err := cfg.Persister.Load(ctx)
	switch {
	case errors.Is(err, store.ErrCorrupt):
		s.logger.Error("pattern store unreadable, starting with no prior knowledge", zap.Error(err))
		snap = types.NewPatternSnapshot()
	case err != nil:
		return nil, fmt.Errorf("failed to load patterns: %w", err)
	}
	snap.Normalize()
	s.snap = snap

	s.logger.Debug("pattern store loaded",
		zap.Int("formats", len(snap.StringFormats)),
		zap.Int("plugins", len(snap.PluginHistory)))
	return s, nil
}

// Learn merges one completed discovery into the store and persists the result.
// Nothing changes in memory when persisting fails.
func (s *Store) Learn(ctx context.Context, pluginName string, dm *types.DiscoveryMap) (*types.LearningDelta, error) {
	if dm == nil {
		return nil, fmt.Errorf("failed to learn %s: no discovery", pluginName)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.snap.Clone()
	now := s.now().UTC()
	delta := &types.LearningDelta{
		SessionID:  uuid.NewString(),
		PluginName: pluginName,
		Anomalies:  []types.Anomaly{},
		Timestamp:  now,
	}

	names := dm.Names()
	for _, name := range names {
		fact := dm.Parameters[name]

		if fact.Format != "" {
			known, seen := next.StringFormats[name]
			switch {
			case !seen:
				next.StringFormats[name] = fact.Format
				delta.NewPatterns++
			case known == fact.Format:
				delta.ConfirmedPatterns++
			default:
				delta.Anomalies = append(delta.Anomalies, types.Anomaly{
					Parameter: name,
					Expected:  known,
					Found:     fact.Format,
				})
				s.logger.Info("format conflicts with learned pattern",
					zap.String("plugin", pluginName),
					zap.String("parameter", name),
					zap.String("expected", known),
					zap.String("found", fact.Format))
			}
		}

		s.learnNamePattern(next, name)

		// Ranges are first-writer-wins without a conflict check
		if fact.Range != nil {
			key := RangeKey(name)
			if _, seen := next.RangePatterns[key]; !seen {
				next.RangePatterns[key] = *fact.Range
				delta.NewPatterns++
			}
		}
	}

	if s.detector != nil {
		if effectType, ok := s.detector.EffectType(pluginName, names); ok {
			next.EffectSignatures[pluginName] = effectType
			delta.EffectType = effectType
		}
	}

	next.PluginHistory[pluginName] = types.PluginRecord{
		LastSeen:       now,
		ParameterCount: len(dm.Parameters),
	}

	if err := s.persister.Save(ctx, next); err != nil {
		s.logger.Error("failed to persist patterns",
			zap.String("plugin", pluginName),
			zap.Error(err))
		return nil, fmt.Errorf("failed to persist patterns: %w", err)
	}
	s.snap = next

	_, _, hitRate := s.cache.Stats()
	s.logger.Debug("learned from discovery",
		zap.String("plugin", pluginName),
		zap.String("session", delta.SessionID),
		zap.Int("new", delta.NewPatterns),
		zap.Int("confirmed", delta.ConfirmedPatterns),
		zap.Int("anomalies", len(delta.Anomalies)),
		zap.Float64("pattern_cache_hit_rate", hitRate))
	return delta, nil
}

func (s *Store) learnNamePattern(snap *types.PatternSnapshot, name string) {
	for _, np := range namePatterns {
		if !s.matches(np.pattern, name) {
			continue
		}
		if _, seen := snap.ParameterPatterns[np.pattern]; !seen {
			snap.ParameterPatterns[np.pattern] = np.category
		}
		return
	}
}

// matches anchors the pattern at the start of the lowercased name
func (s *Store) matches(pattern, name string) bool {
	return s.cache.MatchString("^(?:"+pattern+")", strings.ToLower(name))
}

// Enhance returns a copy of dm annotated with learned formats, ranges and
// categories. dm itself is not modified.
func (s *Store) Enhance(dm *types.DiscoveryMap) *types.DiscoveryMap {
	out := dm.Clone()

	s.mu.RLock()
	defer s.mu.RUnlock()

	order := s.patternOrder()
	for name, fact := range out.Parameters {
		if format, ok := s.snap.StringFormats[name]; ok {
			fact.SuggestedFormat = format
		}
		if r, ok := s.snap.RangePatterns[RangeKey(name)]; ok {
			fact.SuggestedRange = &r
			if fact.Range == nil {
				adopted := r
				fact.Range = &adopted
				fact.RangeSource = types.RangeFromLearned
			}
		}
		for _, pattern := range order {
			if s.matches(pattern, name) {
				fact.LearnedCategory = s.snap.ParameterPatterns[pattern]
				break
			}
		}
		out.Parameters[name] = fact
	}
	return out
}

// patternOrder lists learned patterns in table order, then any others lexically
func (s *Store) patternOrder() []string {
	order := make([]string, 0, len(s.snap.ParameterPatterns))
	builtin := make(map[string]bool, len(namePatterns))
	for _, np := range namePatterns {
		builtin[np.pattern] = true
		if _, ok := s.snap.ParameterPatterns[np.pattern]; ok {
			order = append(order, np.pattern)
		}
	}
	var foreign []string
	for pattern := range s.snap.ParameterPatterns {
		if !builtin[pattern] {
			foreign = append(foreign, pattern)
		}
	}
	sort.Strings(foreign)
	return append(order, foreign...)
}

// Stats counts the learned knowledge
func (s *Store) Stats() types.LearningStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return types.LearningStats{
		PluginsAnalyzed:       len(s.snap.PluginHistory),
		StringFormatsLearned:  len(s.snap.StringFormats),
		ParameterPatterns:     len(s.snap.ParameterPatterns),
		RangePatterns:         len(s.snap.RangePatterns),
		EffectTypesIdentified: len(s.snap.EffectSignatures),
	}
}

// Snapshot returns a copy of the current document
func (s *Store) Snapshot() *types.PatternSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap.Clone()
}

// Close closes the persister
func (s *Store) Close() error {
	return s.persister.Close()
}
