// Package registry assigns boundary tags to host Go types.
//
// A script runtime cannot see Go's type system. Before a host value crosses
// the boundary it needs a stable numeric identity: the registry maps each
// registered Go type to a Descriptor carrying a unique tag plus the
// destructor and equality callbacks the runtime will consult for values of
// that type.
//
// # Registration
//
// Types are registered once, keyed by their reflect.Type:
//
//	reg := registry.New()
//
//	desc, err := registry.Register[Color](reg, "color",
//	    func(a, b Color) bool { return a == b },
//	    func(c Color) { log.Printf("dropped %v", c) },
//	)
//
// Passing nil for the equality callback falls back to reflect.DeepEqual;
// passing nil for the destructor registers a no-op. Registering the same Go
// type twice fails with an already_registered error and leaves the first
// registration untouched.
//
// # Tags
//
// Tags are drawn from a process-wide monotonic counter: unique across every
// registry in the process, never reused, never 0. A type's tag is stable
// for the life of the process, so tags may be cached, compared, and embedded
// in boundary values freely.
//
// # Concurrency
//
// Registries are safe for concurrent use. The expected pattern is
// registration at startup followed by read-only lookups on the hot path;
// lookups take a read lock only.
//
// # Default Registry
//
// Hosts embedding a single runtime can use the shared process registry:
//
//	registry.Register[Color](registry.Default(), "color", nil, nil)
package registry
