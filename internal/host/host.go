// Package host defines the capabilities the discovery engine needs from a
// loaded plugin instance. Loading plugins is the hosting layer's job; the
// engine only ever sees these interfaces.
package host

import "github.com/shivavenkatesh/voodoo/pkg/types"

// Host is a live, parameter-settable plugin instance.
// A Host must only be probed by one goroutine at a time.
type Host interface {
	// Parameters lists the parameter names exposed by the plugin
	Parameters() []string

	// Get reads the current value of a parameter
	Get(name string) (types.Value, error)

	// Set writes a value; hosts reject values outside their domain with an error
	Set(name string, value types.Value) error
}

// MetadataProvider is implemented by hosts that expose per-parameter descriptors
type MetadataProvider interface {
	Metadata(name string) (Descriptor, bool)
}

// Descriptor is the richer metadata a host may declare for a parameter
type Descriptor struct {
	Range       *types.Range `json:"range,omitempty" yaml:"range,omitempty"`
	ValidValues []string     `json:"valid_values,omitempty" yaml:"valid_values,omitempty"`
	Text        string       `json:"text,omitempty" yaml:"text,omitempty"` // e.g. "2.50 kHz"
}

// DescribeOf returns the descriptor for name when h provides metadata
func DescribeOf(h Host, name string) (Descriptor, bool) {
	mp, ok := h.(MetadataProvider)
	if !ok {
		return Descriptor{}, false
	}
	return mp.Metadata(name)
}
