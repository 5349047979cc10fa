package model

import (
	"encoding/json"
	"fmt"
	"regexp"
)

var metadataKeyPattern = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

// ValidMetadataKey reports whether a metadata field name satisfies spec.md §3:
// it must match ^[A-Za-z0-9_]+$.
func ValidMetadataKey(key string) bool {
	return key != "" && metadataKeyPattern.MatchString(key)
}

// ValueKind tags the scalar type carried by a MetadataValue on the wire.
type ValueKind string

const (
	KindString ValueKind = "string"
	KindBool   ValueKind = "bool"
	KindInt    ValueKind = "int"
	KindDouble ValueKind = "double"
)

// MetadataValue is the tagged scalar {type, value} wire shape required by spec.md §6,
// so that Firestore's loosely-typed document fields and JSON numbers round-trip
// without ambiguity between e.g. the string "3" and the int 3.
type MetadataValue struct {
	Kind        ValueKind
	StringValue string
	BoolValue   bool
	IntValue    int64
	DoubleValue float64
}

// Metadata is a mapping from field name to a tagged scalar.
type Metadata map[string]MetadataValue

func StringValue(v string) MetadataValue  { return MetadataValue{Kind: KindString, StringValue: v} }
func BoolValue(v bool) MetadataValue      { return MetadataValue{Kind: KindBool, BoolValue: v} }
func IntValue(v int64) MetadataValue      { return MetadataValue{Kind: KindInt, IntValue: v} }
func DoubleValue(v float64) MetadataValue { return MetadataValue{Kind: KindDouble, DoubleValue: v} }

// Equal reports whether two MetadataValues carry the same tag and scalar.
func (v MetadataValue) Equal(other MetadataValue) bool {
	if v.Kind != other.Kind {
		return false
	}
	switch v.Kind {
	case KindString:
		return v.StringValue == other.StringValue
	case KindBool:
		return v.BoolValue == other.BoolValue
	case KindInt:
		return v.IntValue == other.IntValue
	case KindDouble:
		return v.DoubleValue == other.DoubleValue
	default:
		return false
	}
}

// Any returns the value unwrapped to its native Go type, suitable for comparisons
// against literal values passed by callers (e.g. metadata filters).
func (v MetadataValue) Any() any {
	switch v.Kind {
	case KindString:
		return v.StringValue
	case KindBool:
		return v.BoolValue
	case KindInt:
		return v.IntValue
	case KindDouble:
		return v.DoubleValue
	default:
		return nil
	}
}

type metadataValueWire struct {
	Type  ValueKind `json:"type"`
	Value any       `json:"value"`
}

// MarshalJSON encodes a MetadataValue as {"type": "...", "value": ...}.
func (v MetadataValue) MarshalJSON() ([]byte, error) {
	return json.Marshal(metadataValueWire{Type: v.Kind, Value: v.Any()})
}

// UnmarshalJSON decodes the {"type": "...", "value": ...} wire shape.
func (v *MetadataValue) UnmarshalJSON(data []byte) error {
	var wire metadataValueWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	switch wire.Type {
	case KindString:
		s, ok := wire.Value.(string)
		if !ok {
			return fmt.Errorf("metadata value: expected string, got %T", wire.Value)
		}
		*v = StringValue(s)
	case KindBool:
		b, ok := wire.Value.(bool)
		if !ok {
			return fmt.Errorf("metadata value: expected bool, got %T", wire.Value)
		}
		*v = BoolValue(b)
	case KindInt:
		n, ok := wire.Value.(float64)
		if !ok {
			return fmt.Errorf("metadata value: expected number, got %T", wire.Value)
		}
		*v = IntValue(int64(n))
	case KindDouble:
		n, ok := wire.Value.(float64)
		if !ok {
			return fmt.Errorf("metadata value: expected number, got %T", wire.Value)
		}
		*v = DoubleValue(n)
	default:
		return fmt.Errorf("metadata value: unknown type tag %q", wire.Type)
	}
	return nil
}

// ToFirestore converts metadata into the map-of-maps shape Firestore stores
// ({field: {type: ..., value: ...}}), since Firestore documents accept any but we
// want the explicit type tag preserved on read.
func (m Metadata) ToFirestore() map[string]any {
	if len(m) == 0 {
		return map[string]any{}
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = map[string]any{"type": string(v.Kind), "value": v.Any()}
	}
	return out
}

// MetadataFromFirestore reverses ToFirestore.
func MetadataFromFirestore(raw map[string]any) (Metadata, error) {
	if len(raw) == 0 {
		return Metadata{}, nil
	}
	out := make(Metadata, len(raw))
	for k, v := range raw {
		entry, ok := v.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("metadata field %q: expected object, got %T", k, v)
		}
		kindRaw, _ := entry["type"].(string)
		switch ValueKind(kindRaw) {
		case KindString:
			s, _ := entry["value"].(string)
			out[k] = StringValue(s)
		case KindBool:
			b, _ := entry["value"].(bool)
			out[k] = BoolValue(b)
		case KindInt:
			n, err := toInt64(entry["value"])
			if err != nil {
				return nil, fmt.Errorf("metadata field %q: %w", k, err)
			}
			out[k] = IntValue(n)
		case KindDouble:
			n, err := toFloat64(entry["value"])
			if err != nil {
				return nil, fmt.Errorf("metadata field %q: %w", k, err)
			}
			out[k] = DoubleValue(n)
		default:
			return nil, fmt.Errorf("metadata field %q: unknown type tag %q", k, kindRaw)
		}
	}
	return out, nil
}

func toInt64(v any) (int64, error) {
	switch n := v.(type) {
	case int64:
		return n, nil
	case int:
		return int64(n), nil
	case float64:
		return int64(n), nil
	default:
		return 0, fmt.Errorf("expected integral number, got %T", v)
	}
}

func toFloat64(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case int64:
		return float64(n), nil
	case int:
		return float64(n), nil
	default:
		return 0, fmt.Errorf("expected number, got %T", v)
	}
}
