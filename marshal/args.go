package marshal

import (
	"fmt"
	"reflect"

	scriptbridge "github.com/wippyai/script-bridge"
	"github.com/wippyai/script-bridge/errors"
)

// ReadArgs reads the top len(dsts) slots into pointer destinations in push
// order, the way a host function receives its script arguments. Supported
// destinations are *bool, *float64, *int, *int64, *string, and pointers to
// registered types. Numbers read into *int and *int64 truncate toward
// zero.
//
// Nothing is popped. With fewer values on the stack than destinations,
// ReadArgs fails naming how many were available; a slot that does not
// convert fails with its 1-based position, leaving destinations after it
// untouched.
func (c *Channel) ReadArgs(dsts ...any) error {
	if len(dsts) == 0 {
		return nil
	}

	base := c.stack.Top() - len(dsts)
	if base < 0 {
		return errors.InsufficientArguments(len(dsts), c.stack.Top())
	}

	for i, dst := range dsts {
		position := i + 1
		slot := scriptbridge.Slot(base + position)
		if err := c.readArg(position, slot, dst); err != nil {
			return err
		}
	}
	return nil
}

func (c *Channel) readArg(position int, slot scriptbridge.Slot, dst any) error {
	kind := c.stack.KindAt(slot)

	switch d := dst.(type) {
	case *bool:
		if d == nil {
			return nilDestination(position)
		}
		b, ok := c.stack.BoolAt(slot)
		if !ok {
			return errors.BadArgument(position, "bool", kind.String())
		}
		*d = b
		return nil

	case *float64:
		if d == nil {
			return nilDestination(position)
		}
		n, ok := c.stack.NumberAt(slot)
		if !ok {
			return errors.BadArgument(position, "number", kind.String())
		}
		*d = n
		return nil

	case *int:
		if d == nil {
			return nilDestination(position)
		}
		n, ok := c.stack.NumberAt(slot)
		if !ok {
			return errors.BadArgument(position, "number", kind.String())
		}
		*d = int(n)
		return nil

	case *int64:
		if d == nil {
			return nilDestination(position)
		}
		n, ok := c.stack.NumberAt(slot)
		if !ok {
			return errors.BadArgument(position, "number", kind.String())
		}
		*d = int64(n)
		return nil

	case *string:
		if d == nil {
			return nilDestination(position)
		}
		s, ok := c.stack.StringAt(slot)
		if !ok {
			return errors.BadArgument(position, "string", kind.String())
		}
		*d = s
		return nil
	}

	// Pointer to a registered type
	rv := reflect.ValueOf(dst)
	if !rv.IsValid() || rv.Kind() != reflect.Pointer || rv.IsNil() {
		return errors.InvalidInput(errors.PhaseRead,
			fmt.Sprintf("argument %d destination must be a non-nil pointer, got %T", position, dst))
	}
	want := rv.Type().Elem()
	desc, ok := c.reg.Lookup(want)
	if !ok {
		return errors.InvalidInput(errors.PhaseRead,
			fmt.Sprintf("argument %d destination type %s is not registered", position, want))
	}

	tag, ok := c.stack.TagAt(slot)
	if !ok || tag != desc.Tag() {
		return errors.BadArgument(position, desc.Name(), c.foundAt(slot, kind))
	}
	payload, ok := c.stack.PayloadAt(slot)
	if !ok {
		return errors.BadArgument(position, desc.Name(), kind.String())
	}
	pv := reflect.ValueOf(payload)
	if !pv.IsValid() || pv.Type() != want {
		return errors.BadArgument(position, desc.Name(), fmt.Sprintf("%T", payload))
	}
	rv.Elem().Set(pv)
	return nil
}

// foundAt names what a failing argument slot held
func (c *Channel) foundAt(slot scriptbridge.Slot, kind scriptbridge.Kind) string {
	if kind != scriptbridge.KindOpaque {
		return kind.String()
	}
	if tag, ok := c.stack.TagAt(slot); ok {
		if found, ok := c.reg.LookupTag(tag); ok {
			return found.Name()
		}
	}
	return "foreign opaque value"
}

func nilDestination(position int) error {
	return errors.InvalidInput(errors.PhaseRead,
		fmt.Sprintf("argument %d destination must be a non-nil pointer", position))
}
