package probe

import (
	"context"
	"fmt"
	"time"

	"github.com/shivavenkatesh/voodoo/internal/host"
	"github.com/shivavenkatesh/voodoo/pkg/types"

	"go.uber.org/zap"
)

// Discover probes every parameter the host exposes. Parameters that cannot
// be read are skipped; the rest of the plugin is still discovered.
func (p *Prober) Discover(ctx context.Context, h host.Host, info types.PluginInfo) (*types.DiscoveryMap, error) {
	names := h.Parameters()
	dm := &types.DiscoveryMap{
		Parameters: make(map[string]types.ParameterFact, len(names)),
	}

	logger := p.logger.With(zap.String("plugin", info.Name))
	logger.Debug("discovering parameters", zap.Int("count", len(names)))

	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("discovery of %s interrupted: %w", info.Name, err)
		}
		fact, err := p.Probe(h, info.Name, name)
		if err != nil {
			logger.Warn("skipping parameter", zap.String("parameter", name), zap.Error(err))
			continue
		}
		dm.Parameters[name] = *fact
	}

	dm.Metadata = types.DiscoveryMetadata{
		PluginName:        info.Name,
		PluginPath:        info.Path,
		TotalParameters:   len(dm.Parameters),
		DiscoveryComplete: true,
		DiscoveredAt:      time.Now().UTC(),
	}
	logger.Info("discovery complete", zap.Int("parameters", len(dm.Parameters)))
	return dm, nil
}
