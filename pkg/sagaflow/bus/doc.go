// Package bus implements the event-bus contract consumed by the worker
// and runtime packages, plus the two reference implementations named in
// the scenario runtime's design notes: an in-memory FIFO bus (tests,
// single-process deployments) and an HTTP client against a remote
// broker using the `:pop` path convention.
//
// The pack's source material describes several overlapping bus clients;
// this package keeps only the pair the runtime actually talks to,
// per the documented decision to discard the others.
package bus
