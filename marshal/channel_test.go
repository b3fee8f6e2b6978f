package marshal

import (
	stderrors "errors"
	"reflect"
	"testing"

	"github.com/google/go-cmp/cmp"

	scriptbridge "github.com/wippyai/script-bridge"
	"github.com/wippyai/script-bridge/engine"
	"github.com/wippyai/script-bridge/errors"
	"github.com/wippyai/script-bridge/registry"
)

type userEnum int

const (
	enumOne userEnum = iota + 1
	enumTwo
	enumThree
)

type record struct {
	Name   string
	Scores []float64
}

// newTestChannel builds an engine-backed channel over a fresh registry
func newTestChannel(t *testing.T) (*Channel, *engine.Stack, *registry.Registry) {
	t.Helper()
	reg := registry.New()
	st := engine.New()
	t.Cleanup(func() { st.Close() })

	ch, err := New(st, reg)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return ch, st, reg
}

func TestChannel_New(t *testing.T) {
	if _, err := New(nil, registry.New()); err == nil {
		t.Fatal("New should reject a nil stack")
	}

	// Hooks for already-registered types are installed at bind
	reg := registry.New()
	desc, err := registry.Register[userEnum](reg, "user-enum", nil, nil)
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	st := engine.New()
	defer st.Close()

	if _, err := New(st, reg); err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if !st.HooksInstalled(desc.Tag()) {
		t.Fatal("New should install hooks for registered types")
	}
}

func TestChannel_HooksFollowRegistrations(t *testing.T) {
	ch, st, reg := newTestChannel(t)

	desc, err := registry.Register[userEnum](reg, "user-enum", nil, nil)
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if !st.HooksInstalled(desc.Tag()) {
		t.Fatal("Hooks should follow registrations made after bind")
	}

	ch.Unbind()
	desc2, err := registry.Register[record](reg, "record", nil, nil)
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if st.HooksInstalled(desc2.Tag()) {
		t.Fatal("Hooks should stop following after Unbind")
	}
}

func TestChannel_RoundTrip(t *testing.T) {
	ch, _, reg := newTestChannel(t)
	if _, err := registry.Register[userEnum](reg, "user-enum", nil, nil); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	slot, err := Push(ch, enumTwo)
	if err != nil {
		t.Fatalf("Push failed: %v", err)
	}
	if slot == 0 {
		t.Fatal("Expected non-zero slot")
	}

	got, ok := Read[userEnum](ch, slot)
	if !ok {
		t.Fatal("Read failed for just-pushed value")
	}
	if got != enumTwo {
		t.Fatalf("Read = %v, want %v", got, enumTwo)
	}
}

func TestChannel_RoundTripStruct(t *testing.T) {
	ch, _, reg := newTestChannel(t)
	if _, err := registry.Register[record](reg, "record", nil, nil); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	want := record{Name: "ada", Scores: []float64{99.5, 87.25}}
	slot, err := Push(ch, want)
	if err != nil {
		t.Fatalf("Push failed: %v", err)
	}

	got, ok := Read[record](ch, slot)
	if !ok {
		t.Fatal("Read failed")
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("Round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestChannel_PushUnregistered(t *testing.T) {
	ch, _, _ := newTestChannel(t)

	_, err := Push(ch, enumOne)
	if err == nil {
		t.Fatal("Push of unregistered type should fail")
	}
	if !stderrors.Is(err, &errors.Error{Phase: errors.PhasePush, Kind: errors.KindUnregistered}) {
		t.Fatalf("Expected unregistered error, got %v", err)
	}

	if _, err := ch.PushValue(record{}); err == nil {
		t.Fatal("PushValue of unregistered type should fail")
	}
}

func TestChannel_PushValueNil(t *testing.T) {
	ch, st, _ := newTestChannel(t)

	slot, err := ch.PushValue(nil)
	if err != nil {
		t.Fatalf("PushValue(nil) failed: %v", err)
	}
	if k := st.KindAt(slot); k != scriptbridge.KindNil {
		t.Fatalf("KindAt = %v, want nil", k)
	}
}

func TestChannel_MismatchSafety(t *testing.T) {
	ch, _, reg := newTestChannel(t)
	if _, err := registry.Register[userEnum](reg, "user-enum", nil, nil); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if _, err := registry.Register[record](reg, "record", nil, nil); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	slot, err := Push(ch, enumThree)
	if err != nil {
		t.Fatalf("Push failed: %v", err)
	}

	// Reading as the wrong registered type reports absence
	if _, ok := Read[record](ch, slot); ok {
		t.Fatal("Read as wrong type should fail")
	}
	// Reading as an unregistered type reports absence
	if _, ok := Read[string](ch, slot); ok {
		t.Fatal("Read as unregistered type should fail")
	}

	// The failed reads corrupted nothing
	got, ok := Read[userEnum](ch, slot)
	if !ok || got != enumThree {
		t.Fatalf("Value damaged by failed reads: %v %v", got, ok)
	}
}

// The canonical two-slot scenario: an enum under the top, nil on top.
func TestChannel_EnumThenNil(t *testing.T) {
	ch, _, reg := newTestChannel(t)
	if _, err := registry.Register[userEnum](reg, "user-enum", nil, nil); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	if _, err := Push(ch, enumOne); err != nil {
		t.Fatalf("Push failed: %v", err)
	}
	ch.PushNil()

	under, ok := Read[userEnum](ch, -2)
	if !ok {
		t.Fatal("Read below top should find the enum")
	}
	if under != enumOne {
		t.Fatalf("Read = %v, want %v", under, enumOne)
	}

	if _, ok := Read[userEnum](ch, -1); ok {
		t.Fatal("Read of the nil top should report absence")
	}
}

func TestChannel_ReadPrimitiveSlots(t *testing.T) {
	ch, st, reg := newTestChannel(t)
	if _, err := registry.Register[userEnum](reg, "user-enum", nil, nil); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	st.PushNumber(3.5)
	st.PushString("text")

	if _, ok := Read[userEnum](ch, -1); ok {
		t.Fatal("Read of a string slot should fail")
	}
	if _, ok := Read[userEnum](ch, -2); ok {
		t.Fatal("Read of a number slot should fail")
	}
	if _, ok := Read[userEnum](ch, 99); ok {
		t.Fatal("Read of an invalid slot should fail")
	}
}

func TestChannel_ReadChecked(t *testing.T) {
	ch, st, reg := newTestChannel(t)
	if _, err := registry.Register[userEnum](reg, "user-enum", nil, nil); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if _, err := registry.Register[record](reg, "record", nil, nil); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	slot, err := Push(ch, enumOne)
	if err != nil {
		t.Fatalf("Push failed: %v", err)
	}

	// Success
	v, err := ReadChecked[userEnum](ch, slot)
	if err != nil {
		t.Fatalf("ReadChecked failed: %v", err)
	}
	if v != enumOne {
		t.Fatalf("ReadChecked = %v, want %v", v, enumOne)
	}

	// Wrong registered type names what the slot holds
	_, err = ReadChecked[record](ch, slot)
	if !stderrors.Is(err, &errors.Error{Phase: errors.PhaseRead, Kind: errors.KindTypeMismatch}) {
		t.Fatalf("Expected type_mismatch, got %v", err)
	}
	var e *errors.Error
	if !stderrors.As(err, &e) {
		t.Fatalf("Expected *errors.Error, got %T", err)
	}
	if e.TypeName != "record" {
		t.Fatalf("TypeName = %q, want 'record'", e.TypeName)
	}
	if !containsSubstring(e.Detail, "user-enum") {
		t.Fatalf("Detail = %q, should name what the slot holds", e.Detail)
	}

	// Nil slot is a mismatch, not an invalid slot
	st.PushNil()
	_, err = ReadChecked[userEnum](ch, -1)
	if !stderrors.Is(err, &errors.Error{Phase: errors.PhaseRead, Kind: errors.KindTypeMismatch}) {
		t.Fatalf("Expected type_mismatch for nil slot, got %v", err)
	}

	// Empty slot is invalid
	_, err = ReadChecked[userEnum](ch, 99)
	if !stderrors.Is(err, &errors.Error{Phase: errors.PhaseRead, Kind: errors.KindInvalidSlot}) {
		t.Fatalf("Expected invalid_slot, got %v", err)
	}

	// Unregistered want type
	_, err = ReadChecked[string](ch, slot)
	if !stderrors.Is(err, &errors.Error{Phase: errors.PhaseRead, Kind: errors.KindUnregistered}) {
		t.Fatalf("Expected unregistered, got %v", err)
	}
}

func TestChannel_ReadValue(t *testing.T) {
	ch, _, reg := newTestChannel(t)
	if _, err := registry.Register[userEnum](reg, "user-enum", nil, nil); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	slot, err := ch.PushValue(enumTwo)
	if err != nil {
		t.Fatalf("PushValue failed: %v", err)
	}

	v, ok := ch.ReadValue(slot, reflect.TypeOf(userEnum(0)))
	if !ok {
		t.Fatal("ReadValue failed")
	}
	if v.(userEnum) != enumTwo {
		t.Fatalf("ReadValue = %v, want %v", v, enumTwo)
	}

	if _, ok := ch.ReadValue(slot, reflect.TypeOf("")); ok {
		t.Fatal("ReadValue with wrong type should fail")
	}
	if _, ok := ch.ReadValue(slot, nil); ok {
		t.Fatal("ReadValue with nil type should fail")
	}
}

func TestChannel_OwnershipAfterPush(t *testing.T) {
	ch, st, reg := newTestChannel(t)

	destroyed := 0
	if _, err := registry.Register[record](reg, "record", nil, func(record) { destroyed++ }); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	if _, err := Push(ch, record{Name: "owned"}); err != nil {
		t.Fatalf("Push failed: %v", err)
	}

	// The runtime owns the value; dropping the slot makes it garbage
	st.Pop(1)
	if n := st.Collect(); n != 1 {
		t.Fatalf("Collect destroyed %d cells, want 1", n)
	}
	if destroyed != 1 {
		t.Fatalf("Destructor ran %d times, want 1", destroyed)
	}
}

func containsSubstring(s, substr string) bool {
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			return true
		}
	}
	return false
}
