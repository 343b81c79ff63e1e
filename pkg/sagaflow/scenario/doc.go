// Package scenario implements the declarative saga DSL: domains, typed
// events, and listeners with set-state/emit actions, plus the strict
// schema validation and cross-reference checks that turn a raw document
// into a Scenario safe for the runtime to index.
package scenario
