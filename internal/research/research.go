// Package research holds externally researched facts about specific plugins
// (manuals, vendor docs) and uses them to supply ranges and to score how
// well a discovery matches what is known.
package research

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/shivavenkatesh/voodoo/pkg/types"

	"gopkg.in/yaml.v3"
)

// Entry is what research says about one parameter
type Entry struct {
	Type   types.ParameterKind `yaml:"type"`
	Format string              `yaml:"format,omitempty"`
	Unit   string              `yaml:"unit,omitempty"`
	Range  *types.Range        `yaml:"range,omitempty"`
}

// Alias maps plugin names containing Match onto a research key
type Alias struct {
	Match string `yaml:"match"`
	Key   string `yaml:"key"`
}

// Data is a loaded research data set
type Data struct {
	Plugins map[string]map[string]Entry `yaml:"plugins"`
	Aliases []Alias                     `yaml:"aliases"`
}

// Parse reads research data
func Parse(r io.Reader) (*Data, error) {
	var d Data
	if err := yaml.NewDecoder(r).Decode(&d); err != nil && err != io.EOF {
		return nil, fmt.Errorf("failed to decode research data: %w", err)
	}
	if d.Plugins == nil {
		d.Plugins = make(map[string]map[string]Entry)
	}
	return &d, nil
}

// Load reads research data from a file
func Load(path string) (*Data, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open research data: %w", err)
	}
	defer f.Close()
	return Parse(f)
}

// Key resolves a plugin display name to a research key
func (d *Data) Key(pluginName string) string {
	normalized := strings.ToLower(pluginName)
	normalized = strings.TrimSuffix(normalized, ".vst3")
	normalized = strings.TrimSuffix(normalized, ".vst")
	normalized = strings.TrimSuffix(normalized, ".component")
	normalized = strings.TrimSuffix(normalized, ".au")

	if _, ok := d.Plugins[normalized]; ok {
		return normalized
	}
	for _, a := range d.Aliases {
		if a.Match != "" && strings.Contains(normalized, strings.ToLower(a.Match)) {
			return a.Key
		}
	}
	return normalized
}

// Lookup returns the research entry for a plugin parameter
func (d *Data) Lookup(pluginName, param string) (Entry, bool) {
	if d == nil {
		return Entry{}, false
	}
	params, ok := d.Plugins[d.Key(pluginName)]
	if !ok {
		return Entry{}, false
	}
	e, ok := params[param]
	return e, ok
}

// LookupRange implements the prober's research range lookup
func (d *Data) LookupRange(pluginName, param string) (types.Range, bool) {
	e, ok := d.Lookup(pluginName, param)
	if !ok || e.Range == nil {
		return types.Range{}, false
	}
	return *e.Range, true
}

// Validate scores a discovery against the research data for its plugin.
// The score is -1 when nothing is known about the plugin.
func (d *Data) Validate(dm *types.DiscoveryMap) types.ResearchValidation {
	pluginName := dm.Metadata.PluginName
	result := types.ResearchValidation{
		PluginName: pluginName,
		Matched:    []string{},
		Missing:    []string{},
		Extra:      []string{},
		Mismatches: []types.FormatMismatch{},
	}

	known, ok := d.Plugins[d.Key(pluginName)]
	if !ok {
		result.Score = -1
		return result
	}

	for _, name := range dm.Names() {
		expected, ok := known[name]
		if !ok {
			result.Extra = append(result.Extra, name)
			continue
		}
		result.Matched = append(result.Matched, name)

		fact := dm.Parameters[name]
		if expected.Type != "" && expected.Type != fact.Kind {
			result.Mismatches = append(result.Mismatches, types.FormatMismatch{
				Parameter: name,
				Field:     "type",
				Expected:  string(expected.Type),
				Found:     string(fact.Kind),
			})
		}
		if expected.Format != "" && expected.Format != fact.Format {
			result.Mismatches = append(result.Mismatches, types.FormatMismatch{
				Parameter: name,
				Field:     "format",
				Expected:  expected.Format,
				Found:     fact.Format,
			})
		}
	}

	for name := range known {
		if _, ok := dm.Parameters[name]; !ok {
			result.Missing = append(result.Missing, name)
		}
	}
	sort.Strings(result.Missing)

	if len(known) > 0 {
		result.Score = float64(len(result.Matched)-len(result.Mismatches)) / float64(len(known))
	}
	return result
}
