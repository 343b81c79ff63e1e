package mapping

import (
	"bytes"
	"encoding/json"
)

// Object is an insertion-ordered JSON object. ApplyEmitMapping returns
// one because the mapping engine's determinism invariant extends to
// serialized output: the destination schema's field order must survive
// into the emitted payload, and a plain Go map does not preserve
// insertion order through encoding/json.
type Object struct {
	keys   []string
	fields map[string]any
}

// NewObject returns an empty Object.
func NewObject() *Object {
	return &Object{fields: make(map[string]any)}
}

// Set assigns key to value, appending key to the iteration order on
// first assignment. Re-assigning an existing key keeps its original
// position.
func (o *Object) Set(key string, value any) {
	if _, exists := o.fields[key]; !exists {
		o.keys = append(o.keys, key)
	}
	o.fields[key] = value
}

// Get returns the value at key and whether it was present.
func (o *Object) Get(key string) (any, bool) {
	v, ok := o.fields[key]
	return v, ok
}

// Keys returns the object's fields in insertion order.
func (o *Object) Keys() []string {
	out := make([]string, len(o.keys))
	copy(out, o.keys)
	return out
}

// Len returns the number of fields.
func (o *Object) Len() int {
	return len(o.keys)
}

// Flatten recursively converts the Object into a plain map[string]any
// (with nested Objects converted the same way), suitable for attaching
// to an envelope's Data field. The mapping engine's deterministic key
// order is an invariant of ApplyEmitMapping's own return value; once a
// mapped payload crosses into envelope transport, the JSON object key
// order carries no further semantic meaning (RFC 8259 member order is
// not significant), so downstream code works with a plain map rather
// than threading a custom ordered type through the bus and dispatch
// layers.
func (o *Object) Flatten() map[string]any {
	out := make(map[string]any, len(o.keys))
	for _, key := range o.keys {
		out[key] = flattenValue(o.fields[key])
	}
	return out
}

func flattenValue(v any) any {
	switch val := v.(type) {
	case *Object:
		return val.Flatten()
	case []any:
		out := make([]any, len(val))
		for i, elem := range val {
			out[i] = flattenValue(elem)
		}
		return out
	default:
		return val
	}
}

// MarshalJSON encodes the object preserving Keys() order.
func (o *Object) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')

	for i, key := range o.keys {
		if i > 0 {
			buf.WriteByte(',')
		}

		kb, err := json.Marshal(key)
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')

		vb, err := json.Marshal(o.fields[key])
		if err != nil {
			return nil, err
		}
		buf.Write(vb)
	}

	buf.WriteByte('}')
	return buf.Bytes(), nil
}
