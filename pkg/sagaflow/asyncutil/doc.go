// Package asyncutil provides the publish-retry, deadline-race, and
// cancellable-delay primitives shared by the worker and runtime
// packages.
//
// These are deliberately small and dependency-free: the scenario
// runtime's control flow (explicit loop, inspect error category, sleep,
// retry) maps directly onto Go's context/time primitives without
// needing a retry library.
package asyncutil
