package types

import (
	"encoding/json"
	"fmt"
	"strconv"

	"gopkg.in/yaml.v3"
)

// ValueKind is the native kind of a host parameter value
type ValueKind string

const (
	ValueNone   ValueKind = ""
	ValueFloat  ValueKind = "float"
	ValueString ValueKind = "string"
	ValueBool   ValueKind = "bool"
)

// Value is a parameter value as exposed by a plugin host. Hosts expose
// numbers, strings or booleans; the zero Value carries no kind.
type Value struct {
	kind ValueKind
	num  float64
	str  string
	flag bool
}

// Float wraps a numeric value
func Float(f float64) Value { return Value{kind: ValueFloat, num: f} }

// String wraps a string value
func String(s string) Value { return Value{kind: ValueString, str: s} }

// Bool wraps a boolean value
func Bool(b bool) Value { return Value{kind: ValueBool, flag: b} }

// Kind returns the native kind
func (v Value) Kind() ValueKind { return v.kind }

// IsZero reports whether the value carries no kind
func (v Value) IsZero() bool { return v.kind == ValueNone }

// AsFloat returns the numeric payload
func (v Value) AsFloat() (float64, bool) { return v.num, v.kind == ValueFloat }

// AsString returns the string payload
func (v Value) AsString() (string, bool) { return v.str, v.kind == ValueString }

// AsBool returns the boolean payload
func (v Value) AsBool() (bool, bool) { return v.flag, v.kind == ValueBool }

// Equal compares kind and payload exactly
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case ValueFloat:
		return v.num == o.num
	case ValueString:
		return v.str == o.str
	case ValueBool:
		return v.flag == o.flag
	}
	return true
}

func (v Value) String() string {
	switch v.kind {
	case ValueFloat:
		return strconv.FormatFloat(v.num, 'g', -1, 64)
	case ValueString:
		return v.str
	case ValueBool:
		return strconv.FormatBool(v.flag)
	}
	return "<none>"
}

// native returns the payload as a plain Go value for encoders
func (v Value) native() interface{} {
	switch v.kind {
	case ValueFloat:
		return v.num
	case ValueString:
		return v.str
	case ValueBool:
		return v.flag
	}
	return nil
}

// MarshalJSON encodes the native payload (number, string, bool or null)
func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.native())
}

// UnmarshalJSON decodes a number, string, bool or null
func (v *Value) UnmarshalJSON(data []byte) error {
	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch x := raw.(type) {
	case nil:
		*v = Value{}
	case float64:
		*v = Float(x)
	case string:
		*v = String(x)
	case bool:
		*v = Bool(x)
	default:
		return fmt.Errorf("unsupported parameter value %s", string(data))
	}
	return nil
}

// MarshalYAML encodes the native payload
func (v Value) MarshalYAML() (interface{}, error) {
	return v.native(), nil
}

// UnmarshalYAML decodes a scalar using its resolved YAML tag, so that
// `1.00 s` stays a string while `0.5` becomes a number.
func (v *Value) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: parameter value must be a scalar", node.Line)
	}
	switch node.ShortTag() {
	case "!!null":
		*v = Value{}
	case "!!int", "!!float":
		f, err := strconv.ParseFloat(node.Value, 64)
		if err != nil {
			return fmt.Errorf("line %d: invalid number %q: %w", node.Line, node.Value, err)
		}
		*v = Float(f)
	case "!!bool":
		var b bool
		if err := node.Decode(&b); err != nil {
			return err
		}
		*v = Bool(b)
	default:
		*v = String(node.Value)
	}
	return nil
}
