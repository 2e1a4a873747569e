// Package knowledge loads the static catalog of effect archetypes.
//
// The catalog maps category -> subtype -> {core_parameters, advanced_parameters},
// each parameter carrying its known naming variations. It is stored as an
// ordered YAML list so that iteration order, which decides ties during
// signature matching, is explicit in the file rather than incidental.
package knowledge

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"os"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalog []byte

// Parameter is a parameter an archetype is expected to expose
type Parameter struct {
	Name             string   `yaml:"name"`
	NamingVariations []string `yaml:"naming_variations"`
}

// Names returns the canonical name followed by its variations
func (p Parameter) Names() []string {
	return append([]string{p.Name}, p.NamingVariations...)
}

// Archetype is one effect subtype, e.g. time_based_effects.reverb
type Archetype struct {
	Category           string      `yaml:"-"`
	Name               string      `yaml:"name"`
	Priority           string      `yaml:"priority"`
	CoreParameters     []Parameter `yaml:"core_parameters"`
	AdvancedParameters []Parameter `yaml:"advanced_parameters"`
}

// EffectType returns the dotted category.subtype tag
func (a *Archetype) EffectType() string {
	return a.Category + "." + a.Name
}

type category struct {
	Name    string       `yaml:"name"`
	Effects []*Archetype `yaml:"effects"`
}

// Catalog is the read-only knowledge base
type Catalog struct {
	Version    string `yaml:"version"`
	categories []category
	archetypes []*Archetype
	byType     map[string]*Archetype
}

// Parse reads a catalog document
func Parse(r io.Reader) (*Catalog, error) {
	var doc struct {
		Version    string     `yaml:"version"`
		Categories []category `yaml:"categories"`
	}
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode catalog: %w", err)
	}

	c := &Catalog{
		Version:    doc.Version,
		categories: doc.Categories,
		byType:     make(map[string]*Archetype),
	}
	for _, cat := range doc.Categories {
		if cat.Name == "" {
			return nil, fmt.Errorf("catalog category without a name")
		}
		for _, a := range cat.Effects {
			a.Category = cat.Name
			if _, dup := c.byType[a.EffectType()]; dup {
				return nil, fmt.Errorf("duplicate archetype %s", a.EffectType())
			}
			c.archetypes = append(c.archetypes, a)
			c.byType[a.EffectType()] = a
		}
	}
	if len(c.archetypes) == 0 {
		return nil, fmt.Errorf("catalog declares no archetypes")
	}
	return c, nil
}

// LoadFile reads a catalog from disk
func LoadFile(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog: %w", err)
	}
	defer f.Close()
	return Parse(f)
}

var (
	defaultOnce sync.Once
	defaultCat  *Catalog
	defaultErr  error
)

// Default returns the embedded catalog, parsed once per process
func Default() (*Catalog, error) {
	defaultOnce.Do(func() {
		defaultCat, defaultErr = Parse(bytes.NewReader(defaultCatalog))
	})
	return defaultCat, defaultErr
}

// Archetypes returns archetypes in catalog order
func (c *Catalog) Archetypes() []*Archetype {
	return c.archetypes
}

// Lookup finds an archetype by its dotted effect type
func (c *Catalog) Lookup(effectType string) (*Archetype, bool) {
	a, ok := c.byType[effectType]
	return a, ok
}

// Categories returns category names in catalog order
func (c *Catalog) Categories() []string {
	names := make([]string, len(c.categories))
	for i, cat := range c.categories {
		names[i] = cat.Name
	}
	return names
}
