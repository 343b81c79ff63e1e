// Package registry provides a generic thread-safe registry for values
// indexed by key.
//
// sagaflow builds three lookup tables once at scenario-load time and
// treats them as read-mostly for the lifetime of the runtime:
// domainsById, eventsByName, and listenersByEvent. Registry backs all
// three with one RWMutex-guarded map implementation instead of three
// bespoke ones.
//
// # Basic usage
//
//	domains := registry.New[string, scenario.Domain]()
//	domains.Register("order", scenario.Domain{ID: "order", Queue: "order"})
//
//	d, ok := domains.Get("order")
//
// # Fan-out index
//
// listenersByEvent stores a slice per key, so GetOrCreate supplies the
// current slice before appending. GetOrCreate and the following Register
// are separate locked calls, so two goroutines appending to the same key
// at once can lose an append:
//
//	byEvent := registry.New[string, []scenario.Listener]()
//	for _, l := range listeners {
//	    current := byEvent.GetOrCreate(l.On.Event, func() []scenario.Listener { return nil })
//	    byEvent.Register(l.On.Event, append(current, l))
//	}
//
// # Thread safety
//
// All Registry methods are safe for concurrent use. Range iterates over a
// snapshot, so registrations made from inside the callback never affect
// the current iteration.
package registry
