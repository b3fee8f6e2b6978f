package scriptbridge

import "strconv"

// Tag identifies a registered host type at the runtime boundary.
// Tag 0 is reserved and always invalid. Tags are assigned monotonically
// and never reused within a process.
type Tag uint32

// Slot addresses a value on a runtime stack. Slots are 1-based from the
// bottom; negative slots address from the top (-1 is the top). Slot 0 is
// always invalid.
type Slot int

// Kind enumerates the value kinds a boundary stack can hold.
type Kind uint8

const (
	KindNone   Kind = iota // empty or invalid slot
	KindNil                // the runtime's nil value
	KindBool               // boolean
	KindNumber             // float64
	KindString             // immutable string
	KindOpaque             // opaque runtime value; TagAt reports whether it carries a bridge tag
)

// String returns the lowercase kind name
func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindNil:
		return "nil"
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindOpaque:
		return "opaque"
	default:
		return "kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// Hooks carries the per-tag callbacks a runtime consults during collection
// and comparison. Destroy is called exactly once per boundary value, when
// the runtime determines the value is unreachable or, at the latest, when
// the stack closes. Equals is consulted when script code compares two
// values of the same tag. Neither callback may be nil once installed.
type Hooks struct {
	Name    string
	Destroy func(payload any)
	Equals  func(a, b any) bool
}

// Stack is the value-stack surface of an embedded runtime.
//
// Implementations are not safe for concurrent use; one stack belongs to
// one goroutine. Pushing an opaque value transfers ownership of the
// payload to the runtime: the host must not retain or mutate it afterward,
// and reads hand back copies of the stored payload, never the stored
// reference itself.
type Stack interface {
	// PushNil pushes the runtime's nil value and returns its slot,
	// or 0 if the stack is closed.
	PushNil() Slot

	// PushBool pushes a boolean value
	PushBool(b bool) Slot

	// PushNumber pushes a numeric value
	PushNumber(n float64) Slot

	// PushString pushes a string value
	PushString(s string) Slot

	// PushOpaque pushes a tagged host payload. Hooks for the tag must be
	// installed first; pushing an unknown tag is an error.
	PushOpaque(tag Tag, payload any) (Slot, error)

	// Top returns the number of occupied slots
	Top() int

	// AbsIndex resolves a possibly-negative slot to its absolute form.
	// Slots that do not address the live stack resolve to 0.
	AbsIndex(slot Slot) Slot

	// KindAt reports the kind of the value at slot, KindNone if the slot
	// does not address the live stack
	KindAt(slot Slot) Kind

	// BoolAt returns the boolean at slot. No coercion: false is reported
	// for any slot that does not hold a boolean.
	BoolAt(slot Slot) (bool, bool)

	// NumberAt returns the number at slot
	NumberAt(slot Slot) (float64, bool)

	// StringAt returns the string at slot
	StringAt(slot Slot) (string, bool)

	// TagAt returns the tag of the opaque value at slot. Foreign or
	// non-opaque values report (0, false).
	TagAt(slot Slot) (Tag, bool)

	// PayloadAt returns the payload of the opaque value at slot without
	// transferring ownership. Callers must treat the payload as read-only.
	PayloadAt(slot Slot) (any, bool)

	// Pop removes the top n slots. Popping more than Top() drains the
	// stack; it does not error.
	Pop(n int)

	// Close releases the stack. Every live boundary value is destroyed
	// exactly once. Further opaque pushes fail; primitive operations
	// become no-ops.
	Close() error
}

// HookTable is the per-tag callback table of a runtime's collector.
// Hooks for a tag must be installed before any value of that tag is
// pushed, and are immutable once installed.
type HookTable interface {
	InstallHooks(tag Tag, hooks Hooks) error
}

// Collector is implemented by runtimes whose collection the host can
// force. Collect destroys every unreachable boundary value and returns
// how many were destroyed.
type Collector interface {
	Collect() int
}
