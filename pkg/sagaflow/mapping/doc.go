// Package mapping implements the schema-guided projection that turns a
// source event payload into a destination event payload, per a
// declarative scenario.EmitMapping. The walk is driven by the
// destination scenario.PayloadSchema: every field the mapping cannot
// satisfy is simply omitted, with a structured warning recorded
// through the caller-supplied callback rather than failing the whole
// projection.
package mapping
