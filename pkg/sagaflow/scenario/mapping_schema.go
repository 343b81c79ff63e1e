package scenario

import (
	"bytes"
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// MappingKind distinguishes the four kinds of EmitMapping entry. A bare
// source-field name decodes as MappingFrom, and a bare nested mapping
// decodes as MappingObjectFrom with an empty ObjectFrom.
type MappingKind int

const (
	MappingFrom MappingKind = iota
	MappingConst
	MappingObjectFrom
	MappingArrayFrom
)

// MappingEntry is one leaf of an EmitMapping tree.
type MappingEntry struct {
	Kind MappingKind

	// MappingFrom.
	From string

	// MappingConst.
	Const any

	// MappingObjectFrom. ObjectFrom == "" means "descend in place"
	// (the bare nested mapping form): recurse against the same source
	// object rather than a named sub-field.
	ObjectFrom string
	Map        EmitMapping

	// MappingArrayFrom.
	ArrayFrom string
}

// EmitMapping is an ordered list of named mapping entries, parallel in
// shape to PayloadSchema.
type EmitMapping []EmitMappingField

// EmitMappingField is one named entry in an EmitMapping.
type EmitMappingField struct {
	Name  string
	Entry MappingEntry
}

// Lookup returns the mapping entry for name, or false if absent.
func (m EmitMapping) Lookup(name string) (MappingEntry, bool) {
	for _, f := range m {
		if f.Name == name {
			return f.Entry, true
		}
	}
	return MappingEntry{}, false
}

const (
	keyFrom       = "from"
	keyConst      = "const"
	keyObjectFrom = "objectFrom"
	keyArrayFrom  = "arrayFrom"
	keyMap        = "map"
)

// UnmarshalYAML implements yaml.Unmarshaler, preserving mapping key
// order from the source document.
func (m *EmitMapping) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("mapping: expected a mapping, got %v", node.Kind)
	}

	fields := make(EmitMapping, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		keyNode, valNode := node.Content[i], node.Content[i+1]

		var entry MappingEntry
		if err := entry.UnmarshalYAML(valNode); err != nil {
			return fmt.Errorf("mapping.%s: %w", keyNode.Value, err)
		}
		fields = append(fields, EmitMappingField{Name: keyNode.Value, Entry: entry})
	}

	*m = fields
	return nil
}

// UnmarshalYAML implements yaml.Unmarshaler for a single mapping leaf.
func (e *MappingEntry) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		e.Kind = MappingFrom
		e.From = node.Value
		return nil

	case yaml.MappingNode:
		keys := yamlMappingKeys(node)

		switch {
		case keys[keyConst]:
			e.Kind = MappingConst
			var v any
			if err := yamlMappingValue(node, keyConst).Decode(&v); err != nil {
				return err
			}
			e.Const = v
			return nil

		case keys[keyFrom]:
			e.Kind = MappingFrom
			return yamlMappingValue(node, keyFrom).Decode(&e.From)

		case keys[keyObjectFrom]:
			e.Kind = MappingObjectFrom
			if err := yamlMappingValue(node, keyObjectFrom).Decode(&e.ObjectFrom); err != nil {
				return err
			}
			if mapNode := yamlMappingValue(node, keyMap); mapNode != nil {
				return e.Map.UnmarshalYAML(mapNode)
			}
			return nil

		case keys[keyArrayFrom]:
			e.Kind = MappingArrayFrom
			if err := yamlMappingValue(node, keyArrayFrom).Decode(&e.ArrayFrom); err != nil {
				return err
			}
			if mapNode := yamlMappingValue(node, keyMap); mapNode != nil {
				return e.Map.UnmarshalYAML(mapNode)
			}
			return nil

		default:
			// Bare nested mapping: descend in place.
			e.Kind = MappingObjectFrom
			e.ObjectFrom = ""
			return e.Map.UnmarshalYAML(node)
		}

	default:
		return fmt.Errorf("unsupported mapping node kind %v", node.Kind)
	}
}

func yamlMappingKeys(node *yaml.Node) map[string]bool {
	keys := make(map[string]bool, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		keys[node.Content[i].Value] = true
	}
	return keys
}

func yamlMappingValue(node *yaml.Node, key string) *yaml.Node {
	for i := 0; i+1 < len(node.Content); i += 2 {
		if node.Content[i].Value == key {
			return node.Content[i+1]
		}
	}
	return nil
}

// UnmarshalJSON implements json.Unmarshaler, preserving object key
// order via token-level decoding.
func (m *EmitMapping) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("mapping: expected a JSON object")
	}

	fields := make(EmitMapping, 0)
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("mapping: expected string key")
		}

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return err
		}

		var entry MappingEntry
		if err := entry.UnmarshalJSON(raw); err != nil {
			return fmt.Errorf("mapping.%s: %w", key, err)
		}
		fields = append(fields, EmitMappingField{Name: key, Entry: entry})
	}

	if _, err := dec.Token(); err != nil {
		return err
	}

	*m = fields
	return nil
}

// UnmarshalJSON implements json.Unmarshaler for a single mapping leaf.
func (e *MappingEntry) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return fmt.Errorf("empty mapping entry")
	}

	if trimmed[0] == '"' {
		e.Kind = MappingFrom
		return json.Unmarshal(trimmed, &e.From)
	}

	if trimmed[0] != '{' {
		return fmt.Errorf("unsupported mapping entry syntax")
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		return err
	}

	switch {
	case hasKey(raw, keyConst):
		e.Kind = MappingConst
		return json.Unmarshal(raw[keyConst], &e.Const)

	case hasKey(raw, keyFrom):
		e.Kind = MappingFrom
		return json.Unmarshal(raw[keyFrom], &e.From)

	case hasKey(raw, keyObjectFrom):
		e.Kind = MappingObjectFrom
		if err := json.Unmarshal(raw[keyObjectFrom], &e.ObjectFrom); err != nil {
			return err
		}
		if mapRaw, ok := raw[keyMap]; ok {
			return e.Map.UnmarshalJSON(mapRaw)
		}
		return nil

	case hasKey(raw, keyArrayFrom):
		e.Kind = MappingArrayFrom
		if err := json.Unmarshal(raw[keyArrayFrom], &e.ArrayFrom); err != nil {
			return err
		}
		if mapRaw, ok := raw[keyMap]; ok {
			return e.Map.UnmarshalJSON(mapRaw)
		}
		return nil

	default:
		e.Kind = MappingObjectFrom
		e.ObjectFrom = ""
		return e.Map.UnmarshalJSON(trimmed)
	}
}

func hasKey(m map[string]json.RawMessage, key string) bool {
	_, ok := m[key]
	return ok
}
