package scenario

import (
	"bytes"
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// PrimitiveType is one of the four leaf markers a payloadSchema field
// can declare.
type PrimitiveType string

const (
	TypeString   PrimitiveType = "string"
	TypeNumber   PrimitiveType = "number"
	TypeBoolean  PrimitiveType = "boolean"
	TypeDatetime PrimitiveType = "datetime"
)

func isValidPrimitive(t PrimitiveType) bool {
	switch t {
	case TypeString, TypeNumber, TypeBoolean, TypeDatetime:
		return true
	}
	return false
}

// FieldKind distinguishes the three shapes a schema field can take.
type FieldKind int

const (
	KindPrimitive FieldKind = iota
	KindObject
	KindArray
)

// FieldSchema is one node of a payloadSchema tree: a primitive marker,
// a nested object (PayloadSchema), or a single-element array denoting
// an array-of-object field (Item describes the element schema).
type FieldSchema struct {
	Kind      FieldKind
	Primitive PrimitiveType
	Object    PayloadSchema
	Item      *FieldSchema
}

// PayloadSchema is an ordered list of named fields. Order is preserved
// from the source document (YAML mapping order, or JSON object key
// order) because the mapping engine's output key order follows it.
type PayloadSchema []PayloadField

// PayloadField is one named entry in a PayloadSchema.
type PayloadField struct {
	Name   string
	Schema FieldSchema
}

// Lookup returns the field schema for name, or false if absent.
func (s PayloadSchema) Lookup(name string) (FieldSchema, bool) {
	for _, f := range s {
		if f.Name == name {
			return f.Schema, true
		}
	}
	return FieldSchema{}, false
}

// UnmarshalYAML implements yaml.Unmarshaler, preserving document key
// order by reading the mapping node's Content directly.
func (s *PayloadSchema) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("payloadSchema: expected a mapping, got %v", node.Kind)
	}

	fields := make(PayloadSchema, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		keyNode, valNode := node.Content[i], node.Content[i+1]

		var fs FieldSchema
		if err := fs.UnmarshalYAML(valNode); err != nil {
			return fmt.Errorf("payloadSchema.%s: %w", keyNode.Value, err)
		}
		fields = append(fields, PayloadField{Name: keyNode.Value, Schema: fs})
	}

	*s = fields
	return nil
}

// UnmarshalYAML implements yaml.Unmarshaler for a single schema leaf:
// a scalar primitive marker, a single-element sequence (array-of-object),
// or a nested mapping (object).
func (fs *FieldSchema) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		primitive := PrimitiveType(node.Value)
		if !isValidPrimitive(primitive) {
			return fmt.Errorf("unknown primitive type %q", node.Value)
		}
		fs.Kind = KindPrimitive
		fs.Primitive = primitive
		return nil

	case yaml.SequenceNode:
		if len(node.Content) != 1 {
			return fmt.Errorf("array schema fields must have exactly one item schema")
		}
		item := &FieldSchema{}
		if err := item.UnmarshalYAML(node.Content[0]); err != nil {
			return err
		}
		fs.Kind = KindArray
		fs.Item = item
		return nil

	case yaml.MappingNode:
		var obj PayloadSchema
		if err := obj.UnmarshalYAML(node); err != nil {
			return err
		}
		fs.Kind = KindObject
		fs.Object = obj
		return nil

	default:
		return fmt.Errorf("unsupported schema node kind %v", node.Kind)
	}
}

// UnmarshalJSON implements json.Unmarshaler, preserving object key
// order via token-level decoding (encoding/json does not expose map
// key order otherwise).
func (s *PayloadSchema) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("payloadSchema: expected a JSON object")
	}

	fields := make(PayloadSchema, 0)
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("payloadSchema: expected string key")
		}

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return err
		}

		var fs FieldSchema
		if err := fs.UnmarshalJSON(raw); err != nil {
			return fmt.Errorf("payloadSchema.%s: %w", key, err)
		}
		fields = append(fields, PayloadField{Name: key, Schema: fs})
	}

	if _, err := dec.Token(); err != nil { // consume closing '}'
		return err
	}

	*s = fields
	return nil
}

// UnmarshalJSON implements json.Unmarshaler for a single schema leaf.
func (fs *FieldSchema) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return fmt.Errorf("empty schema field")
	}

	switch trimmed[0] {
	case '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return err
		}
		primitive := PrimitiveType(s)
		if !isValidPrimitive(primitive) {
			return fmt.Errorf("unknown primitive type %q", s)
		}
		fs.Kind = KindPrimitive
		fs.Primitive = primitive
		return nil

	case '[':
		var items []json.RawMessage
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return err
		}
		if len(items) != 1 {
			return fmt.Errorf("array schema fields must have exactly one item schema")
		}
		item := &FieldSchema{}
		if err := item.UnmarshalJSON(items[0]); err != nil {
			return err
		}
		fs.Kind = KindArray
		fs.Item = item
		return nil

	case '{':
		var obj PayloadSchema
		if err := obj.UnmarshalJSON(trimmed); err != nil {
			return err
		}
		fs.Kind = KindObject
		fs.Object = obj
		return nil

	default:
		return fmt.Errorf("unsupported schema field syntax")
	}
}
