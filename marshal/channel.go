package marshal

import (
	"fmt"
	"reflect"

	scriptbridge "github.com/wippyai/script-bridge"
	"github.com/wippyai/script-bridge/errors"
	"github.com/wippyai/script-bridge/lifecycle"
	"github.com/wippyai/script-bridge/registry"
)

// Channel binds a runtime stack to a type registry and carries values
// across the boundary in both directions. Like the stack it wraps, a
// Channel is not safe for concurrent use.
type Channel struct {
	stack   scriptbridge.Stack
	reg     *registry.Registry
	binding *lifecycle.Binding
}

// New creates a channel over stack. A nil reg binds the process-wide
// default registry. If the stack implements scriptbridge.HookTable, the
// registry's hooks are installed through the lifecycle package, now and
// for every future registration.
func New(stack scriptbridge.Stack, reg *registry.Registry) (*Channel, error) {
	if stack == nil {
		return nil, errors.InvalidInput(errors.PhaseStack, "stack cannot be nil")
	}
	if reg == nil {
		reg = registry.Default()
	}

	c := &Channel{stack: stack, reg: reg}
	if tbl, ok := stack.(scriptbridge.HookTable); ok {
		binding, err := lifecycle.Install(tbl, reg)
		if err != nil {
			return nil, err
		}
		c.binding = binding
	}
	return c, nil
}

// Stack returns the bound stack
func (c *Channel) Stack() scriptbridge.Stack {
	return c.stack
}

// Registry returns the bound registry
func (c *Channel) Registry() *registry.Registry {
	return c.reg
}

// Unbind stops installing hooks for future registrations. Hooks already
// installed stay with the stack.
func (c *Channel) Unbind() {
	if c.binding != nil {
		c.binding.Detach()
		c.binding = nil
	}
}

// Push pushes v as a tagged opaque value and returns its slot.
// Fails with unregistered_type if T was never registered; the payload
// belongs to the runtime once pushed.
func Push[T any](c *Channel, v T) (scriptbridge.Slot, error) {
	goType := reflect.TypeOf((*T)(nil)).Elem()
	desc, ok := c.reg.Lookup(goType)
	if !ok {
		return 0, errors.Unregistered(errors.PhasePush, goType.String())
	}
	return c.stack.PushOpaque(desc.Tag(), v)
}

// PushValue pushes a dynamically typed value. A nil value pushes the
// runtime's nil; everything else requires a registered dynamic type.
func (c *Channel) PushValue(v any) (scriptbridge.Slot, error) {
	if v == nil {
		return c.stack.PushNil(), nil
	}
	goType := reflect.TypeOf(v)
	desc, ok := c.reg.Lookup(goType)
	if !ok {
		return 0, errors.Unregistered(errors.PhasePush, goType.String())
	}
	return c.stack.PushOpaque(desc.Tag(), v)
}

// PushNil pushes the runtime's nil value
func (c *Channel) PushNil() scriptbridge.Slot {
	return c.stack.PushNil()
}

// Read returns a copy of the T at slot. The boolean reports presence:
// a slot holding another type, a primitive, nil, or nothing yields
// (zero, false). Read never panics and never moves the runtime's value.
func Read[T any](c *Channel, slot scriptbridge.Slot) (T, bool) {
	var zero T
	want := reflect.TypeOf((*T)(nil)).Elem()

	tag, ok := c.stack.TagAt(slot)
	if !ok {
		return zero, false
	}
	if !c.reg.Verify(tag, want) {
		return zero, false
	}
	payload, ok := c.stack.PayloadAt(slot)
	if !ok {
		return zero, false
	}
	v, ok := payload.(T)
	if !ok {
		return zero, false
	}
	return v, true
}

// ReadChecked is Read with a structured error naming what the slot
// actually held. Use Read on hot paths; mismatches are routine and the
// boolean form does not allocate.
func ReadChecked[T any](c *Channel, slot scriptbridge.Slot) (T, error) {
	var zero T
	v, err := c.ReadValueChecked(slot, reflect.TypeOf((*T)(nil)).Elem())
	if err != nil {
		return zero, err
	}
	out, ok := v.(T)
	if !ok {
		// Registered under T but stored otherwise: still a mismatch
		return zero, errors.TypeMismatch(int(slot), reflect.TypeOf((*T)(nil)).Elem().String(), "", fmt.Sprintf("payload is %T", v))
	}
	return out, nil
}

// ReadValue is the dynamically typed form of Read
func (c *Channel) ReadValue(slot scriptbridge.Slot, want reflect.Type) (any, bool) {
	if want == nil {
		return nil, false
	}
	tag, ok := c.stack.TagAt(slot)
	if !ok {
		return nil, false
	}
	if !c.reg.Verify(tag, want) {
		return nil, false
	}
	return c.stack.PayloadAt(slot)
}

// ReadValueChecked is the dynamically typed form of ReadChecked
func (c *Channel) ReadValueChecked(slot scriptbridge.Slot, want reflect.Type) (any, error) {
	if want == nil {
		return nil, errors.InvalidInput(errors.PhaseRead, "want type cannot be nil")
	}
	desc, registered := c.reg.Lookup(want)

	kind := c.stack.KindAt(slot)
	if kind == scriptbridge.KindNone {
		return nil, errors.InvalidSlot(errors.PhaseRead, int(slot), c.stack.Top())
	}
	if !registered {
		return nil, errors.Unregistered(errors.PhaseRead, want.String())
	}
	if kind != scriptbridge.KindOpaque {
		return nil, errors.TypeMismatch(int(slot), want.String(), desc.Name(),
			fmt.Sprintf("slot holds %s", kind))
	}

	tag, _ := c.stack.TagAt(slot)
	if tag != desc.Tag() {
		return nil, errors.TypeMismatch(int(slot), want.String(), desc.Name(), c.describeTag(tag))
	}
	payload, ok := c.stack.PayloadAt(slot)
	if !ok {
		return nil, errors.TypeMismatch(int(slot), want.String(), desc.Name(), "slot holds a foreign value")
	}
	return payload, nil
}

// describeTag names the type behind a foreign tag for mismatch details
func (c *Channel) describeTag(tag scriptbridge.Tag) string {
	if tag == 0 {
		return "slot holds a foreign value"
	}
	if found, ok := c.reg.LookupTag(tag); ok {
		return fmt.Sprintf("slot holds %s", found.Name())
	}
	return fmt.Sprintf("slot holds unknown tag %d", tag)
}
