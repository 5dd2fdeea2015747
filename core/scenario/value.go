package scenario

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// ValueKind enumerates the closed set of shapes a scenario payload value can
// take. Keeping the set closed makes contract checks exhaustive.
type ValueKind int

const (
	KindNull ValueKind = iota
	KindString
	KindNumber
	KindBool
	KindSequence
	KindMapping
)

// Value is a tagged union for dynamic scenario data (runway, wind, squawk,
// checklists). Scenario files carry arbitrary JSON/YAML payloads per phase;
// Value constrains those to string/number/bool/sequence/mapping.
type Value struct {
	kind ValueKind

	str string
	num float64
	b   bool
	seq []Value
	m   map[string]Value
}

func StringValue(s string) Value  { return Value{kind: KindString, str: s} }
func NumberValue(n float64) Value { return Value{kind: KindNumber, num: n} }
func BoolValue(b bool) Value      { return Value{kind: KindBool, b: b} }

func SequenceValue(items ...Value) Value {
	return Value{kind: KindSequence, seq: items}
}

func MappingValue(m map[string]Value) Value {
	return Value{kind: KindMapping, m: m}
}

func (v Value) Kind() ValueKind { return v.kind }
func (v Value) IsNull() bool    { return v.kind == KindNull }

func (v Value) AsString() (string, bool) {
	if v.kind != KindString {
		return "", false
	}
	return v.str, true
}

func (v Value) AsNumber() (float64, bool) {
	if v.kind != KindNumber {
		return 0, false
	}
	return v.num, true
}

func (v Value) AsBool() (bool, bool) {
	if v.kind != KindBool {
		return false, false
	}
	return v.b, true
}

func (v Value) AsSequence() ([]Value, bool) {
	if v.kind != KindSequence {
		return nil, false
	}
	return v.seq, true
}

func (v Value) AsMapping() (map[string]Value, bool) {
	if v.kind != KindMapping {
		return nil, false
	}
	return v.m, true
}

// Text renders any scalar value as the string it would read as over the
// radio. Sequences and mappings render as a stable, comma-joined form.
func (v Value) Text() string {
	switch v.kind {
	case KindString:
		return v.str
	case KindNumber:
		return strconv.FormatFloat(v.num, 'f', -1, 64)
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindSequence:
		parts := make([]string, len(v.seq))
		for i, item := range v.seq {
			parts[i] = item.Text()
		}
		return strings.Join(parts, ", ")
	case KindMapping:
		keys := make([]string, 0, len(v.m))
		for key := range v.m {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		parts := make([]string, len(keys))
		for i, key := range keys {
			parts[i] = key + ": " + v.m[key].Text()
		}
		return strings.Join(parts, ", ")
	default:
		return ""
	}
}

// Clone returns a deep copy so callers can layer session overrides onto a
// shared graph without touching the original.
func (v Value) Clone() Value {
	switch v.kind {
	case KindSequence:
		seq := make([]Value, len(v.seq))
		for i, item := range v.seq {
			seq[i] = item.Clone()
		}
		return Value{kind: KindSequence, seq: seq}
	case KindMapping:
		m := make(map[string]Value, len(v.m))
		for key, item := range v.m {
			m[key] = item.Clone()
		}
		return Value{kind: KindMapping, m: m}
	default:
		return v
	}
}

func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindNull:
		return []byte("null"), nil
	case KindString:
		return json.Marshal(v.str)
	case KindNumber:
		return json.Marshal(v.num)
	case KindBool:
		return json.Marshal(v.b)
	case KindSequence:
		return json.Marshal(v.seq)
	case KindMapping:
		return json.Marshal(v.m)
	default:
		return nil, fmt.Errorf("unknown value kind %d", v.kind)
	}
}

func (v *Value) UnmarshalJSON(data []byte) error {
	var raw any
	decoder := json.NewDecoder(strings.NewReader(string(data)))
	decoder.UseNumber()
	if err := decoder.Decode(&raw); err != nil {
		return fmt.Errorf("failed to decode scenario value: %w", err)
	}
	value, err := fromAny(raw)
	if err != nil {
		return err
	}
	*v = value
	return nil
}

func (v *Value) UnmarshalYAML(node *yaml.Node) error {
	value, err := fromYAMLNode(node)
	if err != nil {
		return err
	}
	*v = value
	return nil
}

func fromAny(raw any) (Value, error) {
	switch typed := raw.(type) {
	case nil:
		return Value{}, nil
	case string:
		return StringValue(typed), nil
	case bool:
		return BoolValue(typed), nil
	case float64:
		return NumberValue(typed), nil
	case json.Number:
		num, err := typed.Float64()
		if err != nil {
			return Value{}, fmt.Errorf("invalid number %q: %w", typed.String(), err)
		}
		return NumberValue(num), nil
	case []any:
		seq := make([]Value, len(typed))
		for i, item := range typed {
			value, err := fromAny(item)
			if err != nil {
				return Value{}, err
			}
			seq[i] = value
		}
		return Value{kind: KindSequence, seq: seq}, nil
	case map[string]any:
		m := make(map[string]Value, len(typed))
		for key, item := range typed {
			value, err := fromAny(item)
			if err != nil {
				return Value{}, err
			}
			m[key] = value
		}
		return Value{kind: KindMapping, m: m}, nil
	default:
		return Value{}, fmt.Errorf("unsupported scenario value type %T", raw)
	}
}

func fromYAMLNode(node *yaml.Node) (Value, error) {
	switch node.Kind {
	case yaml.ScalarNode:
		switch node.Tag {
		case "!!null":
			return Value{}, nil
		case "!!bool":
			b, err := strconv.ParseBool(node.Value)
			if err != nil {
				return Value{}, fmt.Errorf("invalid bool %q: %w", node.Value, err)
			}
			return BoolValue(b), nil
		case "!!int", "!!float":
			num, err := strconv.ParseFloat(node.Value, 64)
			if err != nil {
				return Value{}, fmt.Errorf("invalid number %q: %w", node.Value, err)
			}
			return NumberValue(num), nil
		default:
			return StringValue(node.Value), nil
		}
	case yaml.SequenceNode:
		seq := make([]Value, len(node.Content))
		for i, item := range node.Content {
			value, err := fromYAMLNode(item)
			if err != nil {
				return Value{}, err
			}
			seq[i] = value
		}
		return Value{kind: KindSequence, seq: seq}, nil
	case yaml.MappingNode:
		m := make(map[string]Value, len(node.Content)/2)
		for i := 0; i+1 < len(node.Content); i += 2 {
			value, err := fromYAMLNode(node.Content[i+1])
			if err != nil {
				return Value{}, err
			}
			m[node.Content[i].Value] = value
		}
		return Value{kind: KindMapping, m: m}, nil
	case yaml.AliasNode:
		return fromYAMLNode(node.Alias)
	default:
		return Value{}, fmt.Errorf("unsupported yaml node kind %d", node.Kind)
	}
}
