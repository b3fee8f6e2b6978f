package errors

import (
	"fmt"
	"strings"
)

// Phase indicates where in the bridge the error occurred
type Phase string

const (
	PhaseRegister Phase = "register" // type registration
	PhasePush     Phase = "push"     // host to runtime
	PhaseRead     Phase = "read"     // runtime to host
	PhaseHook     Phase = "hook"     // destructor/equality callbacks
	PhaseStack    Phase = "stack"    // runtime stack operations
)

// Kind categorizes the error
type Kind string

const (
	KindAlreadyRegistered Kind = "already_registered"
	KindUnregistered      Kind = "unregistered_type"
	KindTypeMismatch      Kind = "type_mismatch"
	KindInvalidSlot       Kind = "invalid_slot"
	KindBadArgument       Kind = "bad_argument"
	KindHookPanic         Kind = "hook_panic"
	KindHookInstalled     Kind = "hook_installed"
	KindClosed            Kind = "closed"
	KindInvalidInput      Kind = "invalid_input"
)

// Error is the structured error type used throughout the bridge.
//
// Kind semantics follow the boundary contract: already_registered and
// unregistered_type signal host programming errors, type_mismatch is the
// routine recoverable outcome of a read, and hook_panic never escapes the
// collection loop (it is logged and carried here only for diagnostics).
type Error struct {
	Value    any
	Cause    error
	Phase    Phase
	Kind     Kind
	GoType   string
	TypeName string
	Tag      uint32
	Slot     int
	Detail   string
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if e.Slot != 0 {
		b.WriteString(" at slot ")
		fmt.Fprintf(&b, "%d", e.Slot)
	}

	if e.GoType != "" || e.TypeName != "" {
		b.WriteString(": ")
		if e.GoType != "" && e.TypeName != "" {
			b.WriteString("Go type ")
			b.WriteString(e.GoType)
			b.WriteString(", registered type ")
			b.WriteString(e.TypeName)
		} else if e.GoType != "" {
			b.WriteString("Go type ")
			b.WriteString(e.GoType)
		} else {
			b.WriteString("registered type ")
			b.WriteString(e.TypeName)
		}
	}

	if e.Detail != "" {
		if e.GoType != "" || e.TypeName != "" {
			b.WriteString(" - ")
		} else {
			b.WriteString(": ")
		}
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Phase == t.Phase && e.Kind == t.Kind
	}
	return false
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Slot sets the stack slot the error refers to
func (b *Builder) Slot(slot int) *Builder {
	b.err.Slot = slot
	return b
}

// Tag sets the boundary tag
func (b *Builder) Tag(tag uint32) *Builder {
	b.err.Tag = tag
	return b
}

// GoType sets the Go type name
func (b *Builder) GoType(t string) *Builder {
	b.err.GoType = t
	return b
}

// TypeName sets the registered type name
func (b *Builder) TypeName(n string) *Builder {
	b.err.TypeName = n
	return b
}

// Value sets the offending value
func (b *Builder) Value(v any) *Builder {
	b.err.Value = v
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors for common error patterns

// AlreadyRegistered reports a second registration of the same Go type.
// The first registration stays in effect.
func AlreadyRegistered(goType, typeName string, tag uint32) *Error {
	return &Error{
		Phase:    PhaseRegister,
		Kind:     KindAlreadyRegistered,
		GoType:   goType,
		TypeName: typeName,
		Tag:      tag,
		Detail:   fmt.Sprintf("already registered with tag %d", tag),
	}
}

// Unregistered reports a push or read of a type with no descriptor
func Unregistered(phase Phase, goType string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindUnregistered,
		GoType: goType,
		Detail: "type was never registered",
	}
}

// TypeMismatch reports a read whose slot does not hold the requested type.
// Routine and recoverable; callers on the hot path should use the boolean
// read variants instead of allocating these.
func TypeMismatch(slot int, goType, typeName, detail string) *Error {
	return &Error{
		Phase:    PhaseRead,
		Kind:     KindTypeMismatch,
		Slot:     slot,
		GoType:   goType,
		TypeName: typeName,
		Detail:   detail,
	}
}

// InvalidSlot reports a slot outside the live stack range
func InvalidSlot(phase Phase, slot, top int) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidSlot,
		Slot:   slot,
		Detail: fmt.Sprintf("slot %d out of range (top %d)", slot, top),
	}
}

// BadArgument reports a script argument that failed typed conversion
func BadArgument(position int, want, found string) *Error {
	return &Error{
		Phase:  PhaseRead,
		Kind:   KindBadArgument,
		Detail: fmt.Sprintf("argument %d: expected %s, found %s", position, want, found),
		Value:  position,
	}
}

// InsufficientArguments reports fewer stack values than typed destinations
func InsufficientArguments(want, have int) *Error {
	return &Error{
		Phase:  PhaseRead,
		Kind:   KindBadArgument,
		Detail: fmt.Sprintf("expected %d arguments, have %d", want, have),
		Value:  have,
	}
}

// HookPanic records a recovered panic from a destructor or equality hook.
// These are logged at the hook boundary and never propagate into the
// runtime's collection loop.
func HookPanic(op, typeName string, tag uint32, recovered any) *Error {
	return &Error{
		Phase:    PhaseHook,
		Kind:     KindHookPanic,
		TypeName: typeName,
		Tag:      tag,
		Detail:   fmt.Sprintf("%s hook panicked: %v", op, recovered),
		Value:    recovered,
	}
}

// HooksMissing reports an opaque push for a tag with no installed hooks
func HooksMissing(tag uint32) *Error {
	return &Error{
		Phase:  PhasePush,
		Kind:   KindUnregistered,
		Tag:    tag,
		Detail: fmt.Sprintf("no hooks installed for tag %d", tag),
	}
}

// HookInstalled reports an attempt to replace hooks already installed for a tag
func HookInstalled(tag uint32, name string) *Error {
	return &Error{
		Phase:    PhaseStack,
		Kind:     KindHookInstalled,
		TypeName: name,
		Tag:      tag,
		Detail:   fmt.Sprintf("hooks for tag %d already installed", tag),
	}
}

// Closed reports an operation on a closed stack
func Closed(phase Phase) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindClosed,
		Detail: "stack closed",
	}
}

// InvalidInput creates an invalid input error
func InvalidInput(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidInput,
		Detail: detail,
	}
}

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Detail: detail,
		Cause:  cause,
	}
}
