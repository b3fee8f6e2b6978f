package marshal

import (
	stderrors "errors"
	"testing"

	"github.com/wippyai/script-bridge/errors"
	"github.com/wippyai/script-bridge/registry"
)

func TestReadArgs_Primitives(t *testing.T) {
	ch, st, _ := newTestChannel(t)

	st.PushNumber(42.5)
	st.PushString("name")
	st.PushBool(true)

	var n float64
	var s string
	var b bool
	if err := ch.ReadArgs(&n, &s, &b); err != nil {
		t.Fatalf("ReadArgs failed: %v", err)
	}
	if n != 42.5 || s != "name" || b != true {
		t.Fatalf("ReadArgs = %v %q %v", n, s, b)
	}

	// Nothing was popped
	if st.Top() != 3 {
		t.Fatalf("Top = %d, want 3", st.Top())
	}
}

func TestReadArgs_TopWindow(t *testing.T) {
	ch, st, _ := newTestChannel(t)

	// Values below the argument window are ignored
	st.PushString("junk")
	st.PushNumber(1)
	st.PushNumber(2)

	var a, b float64
	if err := ch.ReadArgs(&a, &b); err != nil {
		t.Fatalf("ReadArgs failed: %v", err)
	}
	if a != 1 || b != 2 {
		t.Fatalf("ReadArgs = %v %v, want 1 2", a, b)
	}
}

func TestReadArgs_IntTruncation(t *testing.T) {
	ch, st, _ := newTestChannel(t)

	st.PushNumber(3.7)
	st.PushNumber(-2.9)

	var i int
	var i64 int64
	if err := ch.ReadArgs(&i, &i64); err != nil {
		t.Fatalf("ReadArgs failed: %v", err)
	}
	if i != 3 {
		t.Fatalf("int = %d, want 3", i)
	}
	if i64 != -2 {
		t.Fatalf("int64 = %d, want -2", i64)
	}
}

func TestReadArgs_Insufficient(t *testing.T) {
	ch, st, _ := newTestChannel(t)

	st.PushNumber(1)

	var a, b, c float64
	err := ch.ReadArgs(&a, &b, &c)
	if err == nil {
		t.Fatal("ReadArgs should fail with too few values")
	}
	if !stderrors.Is(err, &errors.Error{Phase: errors.PhaseRead, Kind: errors.KindBadArgument}) {
		t.Fatalf("Expected bad_argument, got %v", err)
	}
	var e *errors.Error
	if !stderrors.As(err, &e) {
		t.Fatalf("Expected *errors.Error, got %T", err)
	}
	// The error reports how many values were available
	if e.Value != 1 {
		t.Fatalf("Value = %v, want 1", e.Value)
	}
}

func TestReadArgs_FailingPosition(t *testing.T) {
	ch, st, _ := newTestChannel(t)

	st.PushNumber(10)
	st.PushString("not a number")
	st.PushNumber(30)

	var a, b, c float64
	err := ch.ReadArgs(&a, &b, &c)
	if err == nil {
		t.Fatal("ReadArgs should fail on the string slot")
	}
	var e *errors.Error
	if !stderrors.As(err, &e) {
		t.Fatalf("Expected *errors.Error, got %T", err)
	}
	if e.Value != 2 {
		t.Fatalf("Failing position = %v, want 2", e.Value)
	}

	// Destinations before the failure were converted, after it untouched
	if a != 10 {
		t.Fatalf("a = %v, want 10", a)
	}
	if c != 0 {
		t.Fatalf("c = %v, want untouched 0", c)
	}

	// The stack is unchanged
	if st.Top() != 3 {
		t.Fatalf("Top = %d, want 3", st.Top())
	}
}

func TestReadArgs_RegisteredType(t *testing.T) {
	ch, st, reg := newTestChannel(t)
	if _, err := registry.Register[userEnum](reg, "user-enum", nil, nil); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if _, err := registry.Register[record](reg, "record", nil, nil); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	st.PushNumber(7)
	if _, err := Push(ch, enumTwo); err != nil {
		t.Fatalf("Push failed: %v", err)
	}

	var n float64
	var e userEnum
	if err := ch.ReadArgs(&n, &e); err != nil {
		t.Fatalf("ReadArgs failed: %v", err)
	}
	if n != 7 || e != enumTwo {
		t.Fatalf("ReadArgs = %v %v", n, e)
	}

	// Wrong opaque type names what was found
	var r record
	err := ch.ReadArgs(&n, &r)
	if err == nil {
		t.Fatal("ReadArgs should fail reading enum into record")
	}
	var be *errors.Error
	if !stderrors.As(err, &be) {
		t.Fatalf("Expected *errors.Error, got %T", err)
	}
	if be.Value != 2 {
		t.Fatalf("Failing position = %v, want 2", be.Value)
	}
	if !containsSubstring(be.Detail, "record") || !containsSubstring(be.Detail, "user-enum") {
		t.Fatalf("Detail = %q, should name expected and found types", be.Detail)
	}
}

func TestReadArgs_NilIsBadArgument(t *testing.T) {
	ch, st, reg := newTestChannel(t)
	if _, err := registry.Register[userEnum](reg, "user-enum", nil, nil); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	st.PushNil()

	var e userEnum
	err := ch.ReadArgs(&e)
	if err == nil {
		t.Fatal("ReadArgs should fail on a nil slot")
	}
	var be *errors.Error
	if !stderrors.As(err, &be) {
		t.Fatalf("Expected *errors.Error, got %T", err)
	}
	if !containsSubstring(be.Detail, "nil") {
		t.Fatalf("Detail = %q, should name the nil slot", be.Detail)
	}
}

func TestReadArgs_BadDestinations(t *testing.T) {
	ch, st, _ := newTestChannel(t)

	st.PushNumber(1)

	// Unsupported destination type
	var u uint8
	if err := ch.ReadArgs(&u); !stderrors.Is(err, &errors.Error{Phase: errors.PhaseRead, Kind: errors.KindInvalidInput}) {
		t.Fatalf("Expected invalid_input for unsupported destination, got %v", err)
	}

	// Nil destination
	if err := ch.ReadArgs((*float64)(nil)); !stderrors.Is(err, &errors.Error{Phase: errors.PhaseRead, Kind: errors.KindInvalidInput}) {
		t.Fatalf("Expected invalid_input for nil destination, got %v", err)
	}

	// Non-pointer destination
	if err := ch.ReadArgs(42); !stderrors.Is(err, &errors.Error{Phase: errors.PhaseRead, Kind: errors.KindInvalidInput}) {
		t.Fatalf("Expected invalid_input for non-pointer destination, got %v", err)
	}
}

func TestReadArgs_Empty(t *testing.T) {
	ch, _, _ := newTestChannel(t)
	if err := ch.ReadArgs(); err != nil {
		t.Fatalf("ReadArgs with no destinations should succeed, got %v", err)
	}
}
