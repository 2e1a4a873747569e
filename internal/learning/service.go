// Package learning runs discovery sessions end to end and feeds their results
// into the shared Pattern Store
package learning

import (
	"context"
	"errors"

	"github.com/shivavenkatesh/voodoo/internal/host"
	"github.com/shivavenkatesh/voodoo/pkg/types"
)

// ErrNoParameters is returned when a plugin exposes nothing that could be discovered
var ErrNoParameters = errors.New("no parameters discovered")

// Service orchestrates learning sessions
type Service interface {
	// Discover probes every parameter of one host instance
	Discover(ctx context.Context, h host.Host, info types.PluginInfo) (*types.DiscoveryMap, error)

	// Analyze runs a full session: discover, enhance, classify, validate and learn
	Analyze(ctx context.Context, h host.Host, info types.PluginInfo) (*types.AnalysisResult, error)

	// Classify groups a discovery's parameters and names the effect type
	Classify(pluginName string, dm *types.DiscoveryMap) types.EffectClassification

	// Learn merges a completed discovery into the Pattern Store
	Learn(ctx context.Context, pluginName string, dm *types.DiscoveryMap) (*types.LearningDelta, error)

	// Enhance annotates a discovery with learned knowledge
	Enhance(dm *types.DiscoveryMap) *types.DiscoveryMap

	// Stats returns Pattern Store statistics
	Stats() types.LearningStats

	// Patterns returns a copy of the Pattern Store document
	Patterns() *types.PatternSnapshot

	// Close releases resources
	Close() error
}
