package mapping

import (
	"fmt"
	"time"

	"github.com/randalmurphal/sagaflow/pkg/sagaflow/scenario"
)

// Warning is one issue encountered while applying an EmitMapping: a
// missing source field, a type mismatch, or an incompatible constant.
type Warning struct {
	Path    string
	Message string
}

// WarnFunc receives one Warning per issue encountered during ApplyEmitMapping.
// A nil WarnFunc silently discards warnings.
type WarnFunc func(Warning)

// ApplyEmitMapping walks destinationSchema field by field, resolving
// each field's value out of sourcePayload according to mapping, and
// returns the partial result object. A field the mapping cannot
// satisfy (missing source key, type mismatch, dangling objectFrom/
// arrayFrom reference) is simply omitted from the result; the issue is
// reported once through warn rather than aborting the whole mapping.
// The output key order follows destinationSchema's iteration order.
func ApplyEmitMapping(sourcePayload map[string]any, destinationSchema scenario.PayloadSchema, mapping scenario.EmitMapping, warn WarnFunc) *Object {
	return applyObject(sourcePayload, destinationSchema, mapping, "", warn)
}

func applyObject(source map[string]any, schema scenario.PayloadSchema, mapping scenario.EmitMapping, path string, warn WarnFunc) *Object {
	out := NewObject()

	for _, field := range schema {
		entry, ok := mapping.Lookup(field.Name)
		if !ok {
			continue
		}

		fieldPath := joinPath(path, field.Name)
		if val, ok := resolveField(source, field.Schema, entry, fieldPath, warn); ok {
			out.Set(field.Name, val)
		}
	}

	return out
}

func resolveField(source map[string]any, schema scenario.FieldSchema, entry scenario.MappingEntry, path string, warn WarnFunc) (any, bool) {
	switch entry.Kind {
	case scenario.MappingFrom:
		return resolveFrom(source, schema, entry.From, path, warn)

	case scenario.MappingConst:
		if schema.Kind == scenario.KindPrimitive && !checkPrimitive(entry.Const, schema.Primitive) {
			emit(warn, path, fmt.Sprintf("Constant value is incompatible with type %q", schema.Primitive))
			return nil, false
		}
		return entry.Const, true

	case scenario.MappingObjectFrom:
		return resolveObjectFrom(source, schema, entry, path, warn)

	case scenario.MappingArrayFrom:
		return resolveArrayFrom(source, schema, entry, path, warn)

	default:
		return nil, false
	}
}

func resolveFrom(source map[string]any, schema scenario.FieldSchema, key, path string, warn WarnFunc) (any, bool) {
	v, exists := source[key]
	if !exists {
		emit(warn, path, fmt.Sprintf("Field %q is missing in source payload", key))
		return nil, false
	}

	if schema.Kind == scenario.KindPrimitive && !checkPrimitive(v, schema.Primitive) {
		emit(warn, path, fmt.Sprintf("Field %q has incompatible type for destination %q", key, schema.Primitive))
		return nil, false
	}

	return v, true
}

func resolveObjectFrom(source map[string]any, schema scenario.FieldSchema, entry scenario.MappingEntry, path string, warn WarnFunc) (any, bool) {
	if schema.Kind != scenario.KindObject {
		emit(warn, path, "Object mapping is incompatible with a non-object destination field")
		return nil, false
	}

	subSource := source
	if entry.ObjectFrom != "" {
		raw, exists := source[entry.ObjectFrom]
		if !exists {
			emit(warn, path, fmt.Sprintf("Field %q is missing in source payload", entry.ObjectFrom))
			return nil, false
		}
		m, ok := raw.(map[string]any)
		if !ok {
			emit(warn, path, fmt.Sprintf("Field %q has incompatible type for destination %q", entry.ObjectFrom, "object"))
			return nil, false
		}
		subSource = m
	}

	return applyObject(subSource, schema.Object, entry.Map, path, warn), true
}

func resolveArrayFrom(source map[string]any, schema scenario.FieldSchema, entry scenario.MappingEntry, path string, warn WarnFunc) (any, bool) {
	if schema.Kind != scenario.KindArray || schema.Item == nil {
		emit(warn, path, "Array mapping is incompatible with a non-array destination field")
		return nil, false
	}

	raw, exists := source[entry.ArrayFrom]
	if !exists {
		emit(warn, path, fmt.Sprintf("Field %q is missing in source payload", entry.ArrayFrom))
		return nil, false
	}

	items, ok := raw.([]any)
	if !ok {
		emit(warn, path, fmt.Sprintf("Field %q has incompatible type for destination %q", entry.ArrayFrom, "array"))
		return nil, false
	}

	out := make([]any, 0, len(items))
	for i, item := range items {
		itemPath := fmt.Sprintf("%s[%d]", path, i)

		if schema.Item.Kind != scenario.KindObject {
			out = append(out, item)
			continue
		}

		m, ok := item.(map[string]any)
		if !ok {
			emit(warn, itemPath, "element has incompatible type for destination \"object\"")
			continue
		}
		out = append(out, applyObject(m, schema.Item.Object, entry.Map, itemPath, warn))
	}

	return out, true
}

func checkPrimitive(v any, prim scenario.PrimitiveType) bool {
	switch prim {
	case scenario.TypeString:
		_, ok := v.(string)
		return ok

	case scenario.TypeNumber:
		switch v.(type) {
		case float64, float32, int, int32, int64:
			return true
		default:
			return false
		}

	case scenario.TypeBoolean:
		_, ok := v.(bool)
		return ok

	case scenario.TypeDatetime:
		s, ok := v.(string)
		if !ok {
			return false
		}
		_, err := time.Parse(time.RFC3339, s)
		return err == nil

	default:
		return false
	}
}

func joinPath(path, name string) string {
	if path == "" {
		return name
	}
	return path + "." + name
}

func emit(warn WarnFunc, path, message string) {
	if warn != nil {
		warn(Warning{Path: path, Message: message})
	}
}
