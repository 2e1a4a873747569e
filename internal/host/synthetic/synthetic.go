// Package synthetic provides a deterministic in-memory plugin host.
// It is the test double for the discovery engine and also backs the CLI's
// fixture files, which describe how each parameter accepts values.
package synthetic

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"sync"

	"github.com/shivavenkatesh/voodoo/internal/host"
	"github.com/shivavenkatesh/voodoo/pkg/types"

	"gopkg.in/yaml.v3"
)

var (
	// ErrRejected is returned when a parameter refuses a value
	ErrRejected = errors.New("value rejected")

	// ErrUnknownParameter is returned for names the host does not expose
	ErrUnknownParameter = errors.New("unknown parameter")

	// ErrUnreadable is returned by Get for parameters marked unreadable
	ErrUnreadable = errors.New("parameter unreadable")
)

var leadingNumber = regexp.MustCompile(`^[-+]?(\d+\.?\d*|\.\d+)`)

// Param describes one synthetic parameter and the values it accepts
type Param struct {
	Name  string      `yaml:"name"`
	Value types.Value `yaml:"value"`

	// Numeric parameters: values outside AcceptRange are rejected, or clamped when Clamp is set
	AcceptRange *types.Range `yaml:"accept_range,omitempty"`
	Clamp       bool         `yaml:"clamp,omitempty"`

	// Formatted parameters accept only strings that equal Format applied to their own number.
	// With Normalize the host accepts any numeric string and stores it re-rendered.
	Format    string `yaml:"format,omitempty"`
	Normalize bool   `yaml:"normalize,omitempty"`

	// Choice parameters accept only these labels
	Choices []string `yaml:"choices,omitempty"`

	// Reject lists rendered values that are always refused
	Reject []string `yaml:"reject,omitempty"`

	// PanicOn lists rendered values that make the host binding panic
	PanicOn []string `yaml:"panic_on,omitempty"`

	Unreadable bool             `yaml:"unreadable,omitempty"`
	Metadata   *host.Descriptor `yaml:"metadata,omitempty"`
}

// Fixture is a YAML description of a synthetic plugin
type Fixture struct {
	Plugin     string  `yaml:"plugin"`
	Path       string  `yaml:"path"`
	Parameters []Param `yaml:"parameters"`
}

// LoadFixture reads a fixture file
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read fixture: %w", err)
	}
	var f Fixture
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse fixture %s: %w", path, err)
	}
	if f.Plugin == "" {
		return nil, fmt.Errorf("fixture %s: plugin name is required", path)
	}
	if f.Path == "" {
		f.Path = path
	}
	return &f, nil
}

// Info returns the plugin identity described by the fixture
func (f *Fixture) Info() types.PluginInfo {
	return types.PluginInfo{Name: f.Plugin, Path: f.Path}
}

// Host builds a fresh host instance from the fixture
func (f *Fixture) Host() *Host {
	return New(f.Parameters...)
}

// Host is a synthetic plugin instance. It is safe for concurrent use,
// though the prober never uses one host from two goroutines.
type Host struct {
	mu     sync.Mutex
	order  []string
	params map[string]*Param
	sets   int
}

// New creates a host exposing params in the given order
func New(params ...Param) *Host {
	h := &Host{params: make(map[string]*Param, len(params))}
	for i := range params {
		p := params[i]
		h.order = append(h.order, p.Name)
		h.params[p.Name] = &p
	}
	return h
}

// Parameters lists parameter names in declaration order
func (h *Host) Parameters() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.order...)
}

// Get reads a parameter
func (h *Host) Get(name string) (types.Value, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	p, ok := h.params[name]
	if !ok {
		return types.Value{}, fmt.Errorf("%w: %s", ErrUnknownParameter, name)
	}
	if p.Unreadable {
		return types.Value{}, fmt.Errorf("%w: %s", ErrUnreadable, name)
	}
	return p.Value, nil
}

// Set writes a parameter if the value is accepted
func (h *Host) Set(name string, value types.Value) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	p, ok := h.params[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownParameter, name)
	}

	rendered := value.String()
	for _, v := range p.PanicOn {
		if v == rendered {
			panic(fmt.Sprintf("synthetic host: %s cannot take %q", name, rendered))
		}
	}
	for _, v := range p.Reject {
		if v == rendered {
			return fmt.Errorf("%w: %s=%s", ErrRejected, name, rendered)
		}
	}

	stored, err := p.accept(value)
	if err != nil {
		return fmt.Errorf("%w: %s=%s: %v", ErrRejected, name, rendered, err)
	}
	p.Value = stored
	h.sets++
	return nil
}

// Metadata returns the declared descriptor, if any
func (h *Host) Metadata(name string) (host.Descriptor, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	p, ok := h.params[name]
	if !ok || p.Metadata == nil {
		return host.Descriptor{}, false
	}
	return *p.Metadata, true
}

// Peek returns the stored value regardless of readability, for assertions
func (h *Host) Peek(name string) types.Value {
	h.mu.Lock()
	defer h.mu.Unlock()
	if p, ok := h.params[name]; ok {
		return p.Value
	}
	return types.Value{}
}

// SetCount returns how many writes were accepted
func (h *Host) SetCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.sets
}

// accept decides what the parameter stores for value
func (p *Param) accept(value types.Value) (types.Value, error) {
	if value.Kind() != p.Value.Kind() && !p.Value.IsZero() {
		return types.Value{}, fmt.Errorf("expected %s, got %s", p.Value.Kind(), value.Kind())
	}

	switch value.Kind() {
	case types.ValueFloat:
		f, _ := value.AsFloat()
		if p.AcceptRange != nil && !p.AcceptRange.Contains(f) {
			if !p.Clamp {
				return types.Value{}, errors.New("out of range")
			}
			if f < p.AcceptRange.Min {
				f = p.AcceptRange.Min
			} else {
				f = p.AcceptRange.Max
			}
		}
		return types.Float(f), nil

	case types.ValueString:
		s, _ := value.AsString()
		switch {
		case p.Format != "":
			return p.acceptFormatted(s)
		case len(p.Choices) > 0:
			for _, c := range p.Choices {
				if c == s {
					return value, nil
				}
			}
			return types.Value{}, errors.New("not a valid choice")
		}
		return value, nil

	case types.ValueBool:
		return value, nil
	}
	return types.Value{}, errors.New("empty value")
}

func (p *Param) acceptFormatted(s string) (types.Value, error) {
	m := leadingNumber.FindString(s)
	if m == "" {
		return types.Value{}, errors.New("not a number")
	}
	f, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return types.Value{}, err
	}
	if p.AcceptRange != nil && !p.AcceptRange.Contains(f) {
		return types.Value{}, errors.New("out of range")
	}
	canonical := fmt.Sprintf(p.Format, f)
	if canonical == s {
		return types.String(s), nil
	}
	if p.Normalize {
		return types.String(canonical), nil
	}
	return types.Value{}, fmt.Errorf("expected format %q", p.Format)
}
