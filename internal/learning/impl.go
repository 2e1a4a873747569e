package learning

import (
	"context"
	"fmt"
	"time"

	"github.com/shivavenkatesh/voodoo/internal/classify"
	"github.com/shivavenkatesh/voodoo/internal/host"
	"github.com/shivavenkatesh/voodoo/internal/patterns"
	"github.com/shivavenkatesh/voodoo/internal/probe"
	"github.com/shivavenkatesh/voodoo/internal/research"
	"github.com/shivavenkatesh/voodoo/pkg/types"

	"go.uber.org/zap"
)

// Config configures the learning service
type Config struct {
	Logger   *zap.Logger
	Research *research.Data // optional; enables discovery scoring
}

// serviceImpl implements the Service interface
type serviceImpl struct {
	prober     *probe.Prober
	classifier *classify.Classifier
	store      *patterns.Store
	research   *research.Data
	logger     *zap.Logger
}

// NewService creates a learning service over a shared Pattern Store
func NewService(pr *probe.Prober, cl *classify.Classifier, ps *patterns.Store, cfg Config) Service {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &serviceImpl{
		prober:     pr,
		classifier: cl,
		store:      ps,
		research:   cfg.Research,
		logger:     cfg.Logger.Named("learning"),
	}
}

// Discover probes every parameter of one host instance
func (s *serviceImpl) Discover(ctx context.Context, h host.Host, info types.PluginInfo) (*types.DiscoveryMap, error) {
	return s.prober.Discover(ctx, h, info)
}

// Analyze runs discovery and learning for one plugin. Enhancement and
// classification happen before this plugin's own patterns are learned.
func (s *serviceImpl) Analyze(ctx context.Context, h host.Host, info types.PluginInfo) (*types.AnalysisResult, error) {
	start := time.Now()
	logger := s.logger.With(zap.String("plugin", info.Name))

	dm, err := s.prober.Discover(ctx, h, info)
	if err != nil {
		return nil, fmt.Errorf("failed to discover %s: %w", info.Name, err)
	}
	if len(dm.Parameters) == 0 {
		return nil, fmt.Errorf("%s: %w", info.Name, ErrNoParameters)
	}

	enhanced := s.store.Enhance(dm)
	classification := s.classifier.Classify(info.Name, enhanced)

	result := &types.AnalysisResult{
		Discovery:      dm,
		Enhanced:       enhanced,
		Classification: classification,
		TestPlan:       classify.TestPlan(classification),
		FormatChecks:   s.prober.ValidateFormats(h, dm),
	}

	if s.research != nil {
		v := s.research.Validate(dm)
		result.Research = &v
		if v.Score >= 0 {
			logger.Debug("research validation",
				zap.Float64("score", v.Score),
				zap.Int("mismatches", len(v.Mismatches)))
		}
	}

	for _, check := range result.FormatChecks {
		if !check.Working {
			logger.Warn("confirmed format failed validation",
				zap.String("parameter", check.Parameter),
				zap.String("format", check.Format),
				zap.Strings("failures", check.Failures))
		}
	}

	delta, err := s.store.Learn(ctx, info.Name, dm)
	if err != nil {
		return nil, fmt.Errorf("failed to learn from %s: %w", info.Name, err)
	}
	result.Delta = delta
	result.SessionID = delta.SessionID
	result.Duration = time.Since(start)

	logger.Info("analysis complete",
		zap.String("session", delta.SessionID),
		zap.String("effect_type", classification.EffectType),
		zap.Int("parameters", len(dm.Parameters)),
		zap.Int("new_patterns", delta.NewPatterns),
		zap.Int("anomalies", len(delta.Anomalies)),
		zap.Duration("duration", result.Duration))
	return result, nil
}

// Classify groups a discovery's parameters and names the effect type
func (s *serviceImpl) Classify(pluginName string, dm *types.DiscoveryMap) types.EffectClassification {
	return s.classifier.Classify(pluginName, dm)
}

// Learn merges a completed discovery into the Pattern Store
func (s *serviceImpl) Learn(ctx context.Context, pluginName string, dm *types.DiscoveryMap) (*types.LearningDelta, error) {
	if dm == nil || len(dm.Parameters) == 0 {
		return nil, fmt.Errorf("%s: %w", pluginName, ErrNoParameters)
	}
	return s.store.Learn(ctx, pluginName, dm)
}

// Enhance annotates a discovery with learned knowledge
func (s *serviceImpl) Enhance(dm *types.DiscoveryMap) *types.DiscoveryMap {
	return s.store.Enhance(dm)
}

// Stats returns Pattern Store statistics
func (s *serviceImpl) Stats() types.LearningStats {
	return s.store.Stats()
}

// Patterns returns a copy of the Pattern Store document
func (s *serviceImpl) Patterns() *types.PatternSnapshot {
	return s.store.Snapshot()
}

// Close releases resources
func (s *serviceImpl) Close() error {
	return s.store.Close()
}
