// Package engine provides the reference value-stack runtime for the bridge.
//
// The engine is the boundary surface of an embedded script runtime without
// the language on top: a stack of dynamically typed slots, a heap of tagged
// opaque cells, and a collector the host can drive deterministically. It
// implements the scriptbridge Stack, HookTable, and Collector contracts and
// is what the marshal layer binds to in tests, examples, and the inspector.
//
// # Slots and Cells
//
// Primitive values (nil, bool, number, string) live directly in their
// slots. Opaque values live in heap cells; a slot holds a reference to the
// cell, and Dup pushes further references to the same cell, so "copying" a
// script value copies the reference, never the payload:
//
//	st := engine.New()
//	st.InstallHooks(tag, hooks)
//
//	slot, _ := st.PushOpaque(tag, payload)
//	dup, _ := st.Dup(slot) // same cell, two slots
//
// # Collection
//
// Cells are reference counted: one count per stack slot, one per external
// reference taken with Ref. Popping slots and releasing refs makes a cell
// garbage; Collect destroys all garbage cells, running each tag's Destroy
// hook exactly once per cell:
//
//	st.Pop(2)
//	n := st.Collect() // destructors run here
//
// Ref and PushRef model a script retaining a value off the stack:
//
//	ref, _ := st.Ref(slot)   // cell survives Pop+Collect
//	st.PushRef(ref)          // push it back later
//	st.Unref(ref)            // now the next Collect can take it
//
// Close drains the stack, releases all refs, and destroys every remaining
// cell, again exactly once each.
//
// # Equality
//
// Equals compares two slots the way the runtime would: primitives by value,
// opaque cells by the tag's Equals hook. The hook is consulted only when
// both tags match; a panicking hook is recovered, logged, and reported as
// not equal.
//
// # Thread Safety
//
// A Stack is NOT thread-safe and belongs to a single goroutine, matching
// the execution model of embedded script runtimes. Create one engine per
// goroutine; registries and hook contents may be shared.
package engine
