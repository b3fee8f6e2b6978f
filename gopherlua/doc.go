// Package gopherlua adapts a gopher-lua interpreter to the bridge's
// stack contracts.
//
// The adapter implements scriptbridge.Stack and scriptbridge.HookTable
// over a lua.LState. Opaque payloads travel as Lua userdata wrapping
// the payload together with its bridge tag; each tag gets a metatable
// whose __eq routes script equality to the tag's Equals hook and whose
// __tostring prints the registered type name.
//
//	eng := gopherlua.New()
//	defer eng.Close()
//
//	ch, err := marshal.New(eng, nil)
//	if err != nil {
//		return err
//	}
//	slot, err := marshal.Push(ch, myValue)
//
// Hosts that already run their own interpreter wrap it instead of
// creating one:
//
//	eng := gopherlua.Wrap(L) // Close destroys payloads, not L
//
// # Scripts
//
// Values pushed through the bridge are handed to scripts with
// BindGlobal; script code then compares and prints them through the
// installed hooks:
//
//	slot, _ := marshal.Push(ch, red)
//	eng.BindGlobal("red", slot)
//	eng.DoString(`print(red == other)`) // Equals hook decides
//
// Host functions registered on the state see their arguments through
// the same channel, so Channel.ReadArgs converts script arguments
// directly into Go destinations.
//
// # Collection
//
// gopher-lua exposes no per-value finalization to the host, so the
// adapter defers all destruction to Close: every payload pushed through
// the bridge stays alive until the engine closes, then its Destroy hook
// runs exactly once. The adapter therefore does not implement
// scriptbridge.Collector; use the engine package when a test needs to
// force collection mid-run.
//
// # Thread Safety
//
// An Engine is not thread-safe and belongs to a single goroutine,
// exactly like the lua.LState it wraps.
package gopherlua
