// Package marshal moves typed host values across a runtime boundary stack.
//
// A Channel binds one stack to one registry. Pushing looks up the value's
// descriptor and transfers a tagged payload to the runtime; reading
// verifies the slot's tag against the requested type before any payload is
// handed back, so reads are total: a slot holding the wrong type, nil, or
// nothing at all yields a mismatch, never a panic and never a corrupted
// value.
//
//	ch, err := marshal.New(stack, reg)
//	if err != nil {
//	    return err
//	}
//
//	slot, err := marshal.Push(ch, UserEnum.One)
//	if err != nil {
//	    return err // unregistered type
//	}
//
//	v, ok := marshal.Read[UserEnum](ch, slot) // copy-out; runtime keeps ownership
//
// Read reports presence with a boolean and is the hot-path form; its result
// is a copy of the payload, the runtime's reference stays alive until its
// collector drops it. ReadChecked allocates a structured error naming what
// the slot actually held, for callers that want diagnostics over speed.
//
// When the bound stack implements scriptbridge.HookTable, New installs the
// registry's destructor and equality hooks through the lifecycle package,
// so a plain engine or adapter stack arrives fully wired.
//
// # Argument Scanning
//
// ReadArgs reads the top len(dsts) slots into pointer destinations in push
// order, the way a host function receives script arguments:
//
//	var n float64
//	var user User
//	if err := ch.ReadArgs(&n, &user); err != nil {
//	    return err // bad_argument with the failing 1-based position
//	}
//
// Destinations may point at bool, float64, int, int64, string, or any
// registered type. Nothing is popped; the first failing position wins.
//
// # Scopes
//
// Scope runs a function and pops whatever it pushed, balancing the stack
// on normal return, error, and panic alike:
//
//	err := ch.Scope(func() error {
//	    marshal.Push(ch, temp)
//	    return work(ch)
//	}) // temp is popped here
package marshal
