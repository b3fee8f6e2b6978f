// Package scriptbridge provides a typed userdata bridge between native Go
// values and the opaque value stack of an embedded script runtime.
//
// Script runtimes move values across the host boundary through a stack of
// dynamically typed slots. Host values cross that boundary as tagged opaque
// payloads: each registered Go type gets a stable numeric tag, and every
// read verifies the tag before handing the payload back, so a slot holding
// the wrong type is a recoverable mismatch rather than a corrupted downcast.
//
// # Architecture Overview
//
// The library is organized into several packages with distinct responsibilities:
//
//	scriptbridge/        Root package with the boundary contracts (Stack, Hooks)
//	├── registry/        Type registration and tag assignment
//	├── marshal/         Typed push/read across a bound stack
//	├── lifecycle/       Destructor and equality hook installation
//	├── engine/          Reference value-stack engine with forced collection
//	├── gopherlua/       Adapter for the gopher-lua runtime
//	└── errors/          Structured error types for debugging
//
// # Quick Start
//
// Register a type, bind a stack, and move values across:
//
//	reg := registry.New()
//	desc, err := registry.Register[Color](reg, "color", nil, nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	st := engine.New()
//	defer st.Close()
//
//	ch, err := marshal.New(st, reg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	slot, _ := marshal.Push(ch, Red)
//	c, ok := marshal.Read[Color](ch, slot)
//	fmt.Println(c, ok, desc.Tag()) // Red true 1
//
// # Ownership
//
// A pushed payload belongs to the runtime. The runtime's collector runs the
// type's destructor exactly once when the value becomes unreachable; reads
// copy the payload out and never surrender the runtime's reference. Host
// code that needs a value back keeps its own copy from before the push or
// reads one out afterward.
//
// # Thread Safety
//
// Registries are safe for concurrent use and may be shared across stacks.
// A Stack is NOT thread-safe: one stack belongs to one goroutine, matching
// the single-threaded execution model of embedded script runtimes.
package scriptbridge
