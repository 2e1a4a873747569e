package types

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// MarshalJSON encodes a range as [min, max]
func (r Range) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]float64{r.Min, r.Max})
}

// UnmarshalJSON accepts [min, max] or {"min": .., "max": ..}
func (r *Range) UnmarshalJSON(data []byte) error {
	var pair []float64
	if err := json.Unmarshal(data, &pair); err == nil {
		if len(pair) != 2 {
			return fmt.Errorf("range must have exactly 2 bounds, got %d", len(pair))
		}
		*r = NewRange(pair[0], pair[1])
		return nil
	}
	var obj struct {
		Min float64 `json:"min"`
		Max float64 `json:"max"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("invalid range %s: %w", string(data), err)
	}
	*r = NewRange(obj.Min, obj.Max)
	return nil
}

// UnmarshalYAML accepts [min, max] or a min/max mapping
func (r *Range) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.SequenceNode:
		var pair []float64
		if err := node.Decode(&pair); err != nil {
			return err
		}
		if len(pair) != 2 {
			return fmt.Errorf("line %d: range must have exactly 2 bounds", node.Line)
		}
		*r = NewRange(pair[0], pair[1])
	case yaml.MappingNode:
		var obj struct {
			Min float64 `yaml:"min"`
			Max float64 `yaml:"max"`
		}
		if err := node.Decode(&obj); err != nil {
			return err
		}
		*r = NewRange(obj.Min, obj.Max)
	default:
		return fmt.Errorf("line %d: range must be a list or mapping", node.Line)
	}
	return nil
}
