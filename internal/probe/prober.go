// Package probe discovers what a plugin parameter is by mutating it on a
// live host and watching what the host accepts. Every probe restores the
// parameter's original value before returning.
package probe

import (
	"fmt"

	"github.com/shivavenkatesh/voodoo/internal/host"
	"github.com/shivavenkatesh/voodoo/pkg/types"

	"go.uber.org/zap"
)

// Config holds prober configuration
type Config struct {
	Logger *zap.Logger

	// Ladder overrides the empirical probe values
	Ladder []float64

	// Resolvers overrides the range strategy order entirely
	Resolvers []RangeResolver

	// Research is appended as the last range strategy when Resolvers is not set
	Research RangeLookup
}

// Prober determines type, range, unit and format of host parameters.
// A Prober holds no per-host state; the caller must not probe one host
// from two goroutines at once.
type Prober struct {
	logger    *zap.Logger
	resolvers []RangeResolver
}

// New creates a prober
func New(cfg Config) *Prober {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	resolvers := cfg.Resolvers
	if len(resolvers) == 0 {
		resolvers = DefaultResolvers(cfg.Ladder, cfg.Research)
	}
	return &Prober{
		logger:    logger.Named("probe"),
		resolvers: resolvers,
	}
}

// Probe describes one parameter. plugin is only used for research lookups.
// A parameter whose current value cannot be read yields ErrHostUnavailable.
func (p *Prober) Probe(h host.Host, plugin, name string) (*types.ParameterFact, error) {
	original, err := safeGet(h, name)
	if err != nil {
		p.logger.Warn("cannot read parameter",
			zap.String("parameter", name),
			zap.Error(err))
		return nil, fmt.Errorf("%w: %s: %v", ErrHostUnavailable, name, err)
	}
	defer p.restore(h, name, original)

	fact := &types.ParameterFact{
		Name:         name,
		Kind:         types.KindUnknown,
		CurrentValue: original,
		DefaultValue: original,
	}

	var desc *host.Descriptor
	if d, ok := host.DescribeOf(h, name); ok {
		desc = &d
	}

	switch original.Kind() {
	case types.ValueFloat:
		fact.Kind = types.KindNumeric
	case types.ValueBool:
		fact.Kind = types.KindBoolean
	case types.ValueString:
		p.probeString(h, name, original, desc, fact)
	}

	if fact.Kind == types.KindNumeric || fact.Kind == types.KindStringNumeric {
		fact.Unit = detectUnit(name, original, desc)
		p.resolveRange(h, plugin, desc, fact)
	}
	return fact, nil
}

func (p *Prober) probeString(h host.Host, name string, original types.Value, desc *host.Descriptor, fact *types.ParameterFact) {
	current, _ := original.AsString()

	if format := p.detectFormat(h, name, current); format != "" {
		fact.Kind = types.KindStringNumeric
		fact.Format = format
		return
	}

	if desc != nil && len(desc.ValidValues) > 0 {
		fact.Kind = types.KindStringChoice
		fact.ValidValues = append([]string(nil), desc.ValidValues...)
		return
	}

	if values := p.detectChoices(h, name); values != nil {
		fact.Kind = types.KindStringChoice
		fact.ValidValues = values
		return
	}
	fact.Kind = types.KindString
}

func (p *Prober) resolveRange(h host.Host, plugin string, desc *host.Descriptor, fact *types.ParameterFact) {
	req := &ResolveRequest{
		Host:       h,
		Plugin:     plugin,
		Name:       fact.Name,
		Kind:       fact.Kind,
		Format:     fact.Format,
		Descriptor: desc,
		Logger:     p.logger,
	}
	for _, r := range p.resolvers {
		rng, source, ok := r.ResolveRange(req)
		if !ok {
			continue
		}
		fact.Range = &rng
		fact.RangeSource = source
		return
	}
}

// detectUnit prefers the host's textual representation, then the current
// value's own suffix, then the parameter name
func detectUnit(name string, current types.Value, desc *host.Descriptor) string {
	if desc != nil && desc.Text != "" {
		if u := unitFromText(desc.Text); u != "" {
			return u
		}
	}
	if s, ok := current.AsString(); ok {
		if ns, ok := parseNumericString(s); ok && ns.unit != "" {
			return ns.unit
		}
	}
	return unitFromName(name)
}

func (p *Prober) restore(h host.Host, name string, original types.Value) {
	if err := safeSet(h, name, original); err != nil {
		p.logger.Error("failed to restore parameter",
			zap.String("parameter", name),
			zap.Stringer("value", original),
			zap.Error(err))
	}
}

// safeGet reads a parameter, turning a panicking host binding into an error
func safeGet(h host.Host, name string) (v types.Value, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: get %s: %v", ErrProbeRejected, name, r)
		}
	}()
	return h.Get(name)
}

// safeSet writes a parameter; any refusal, including a panic, is ErrProbeRejected
func safeSet(h host.Host, name string, v types.Value) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: set %s=%s: %v", ErrProbeRejected, name, v, r)
		}
	}()
	if err := h.Set(name, v); err != nil {
		return fmt.Errorf("%w: %v", ErrProbeRejected, err)
	}
	return nil
}
