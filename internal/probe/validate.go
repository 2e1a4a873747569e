package probe

import (
	"fmt"

	"github.com/shivavenkatesh/voodoo/internal/host"
	"github.com/shivavenkatesh/voodoo/pkg/types"

	"go.uber.org/zap"
)

// ValidateFormats re-checks every confirmed format against the host by
// setting formatted range endpoints and the midpoint and requiring an exact
// echo. Each parameter is restored afterwards.
func (p *Prober) ValidateFormats(h host.Host, dm *types.DiscoveryMap) []types.FormatCheck {
	var checks []types.FormatCheck
	for _, name := range dm.Names() {
		fact := dm.Parameters[name]
		if fact.Kind != types.KindStringNumeric || fact.Format == "" {
			continue
		}
		checks = append(checks, p.validateFormat(h, name, fact))
	}
	return checks
}

func (p *Prober) validateFormat(h host.Host, name string, fact types.ParameterFact) types.FormatCheck {
	check := types.FormatCheck{Parameter: name, Format: fact.Format}

	original, err := safeGet(h, name)
	if err != nil {
		check.Failures = append(check.Failures, fmt.Sprintf("read: %v", err))
		return check
	}
	defer p.restore(h, name, original)

	for _, v := range validationValues(fact) {
		candidate := fmt.Sprintf(fact.Format, v)
		check.Tested = append(check.Tested, candidate)

		if err := safeSet(h, name, types.String(candidate)); err != nil {
			check.Failures = append(check.Failures, candidate)
			continue
		}
		got, err := safeGet(h, name)
		if s, ok := got.AsString(); err != nil || !ok || s != candidate {
			check.Failures = append(check.Failures, candidate)
		}
	}

	check.Working = len(check.Tested) > 0 && len(check.Failures) == 0
	if !check.Working {
		p.logger.Info("format did not round-trip",
			zap.String("parameter", name),
			zap.String("format", fact.Format),
			zap.Strings("failures", check.Failures))
	}
	return check
}

// validationValues are min, mid and max of the range, or the current value
func validationValues(fact types.ParameterFact) []float64 {
	if fact.Range != nil {
		r := *fact.Range
		if r.Min == r.Max {
			return []float64{r.Min}
		}
		return []float64{r.Min, (r.Min + r.Max) / 2, r.Max}
	}
	if s, ok := fact.CurrentValue.AsString(); ok {
		if f, ok := firstNumber(s); ok {
			return []float64{f}
		}
	}
	return nil
}
