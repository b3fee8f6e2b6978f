package lifecycle

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	scriptbridge "github.com/wippyai/script-bridge"
	"github.com/wippyai/script-bridge/errors"
	"github.com/wippyai/script-bridge/registry"
)

type testResource struct {
	name string
}

type testToken int

// fakeTable records installs and enforces hook immutability like a real
// runtime hook table.
type fakeTable struct {
	hooks map[scriptbridge.Tag]scriptbridge.Hooks
}

func newFakeTable() *fakeTable {
	return &fakeTable{hooks: make(map[scriptbridge.Tag]scriptbridge.Hooks)}
}

func (f *fakeTable) InstallHooks(tag scriptbridge.Tag, hooks scriptbridge.Hooks) error {
	if existing, ok := f.hooks[tag]; ok {
		return errors.HookInstalled(uint32(tag), existing.Name)
	}
	f.hooks[tag] = hooks
	return nil
}

func TestInstall_ExistingTypes(t *testing.T) {
	reg := registry.New()
	desc, err := registry.Register[testResource](reg, "resource", nil, nil)
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	tbl := newFakeTable()
	binding, err := Install(tbl, reg)
	if err != nil {
		t.Fatalf("Install failed: %v", err)
	}
	defer binding.Detach()

	hooks, ok := tbl.hooks[desc.Tag()]
	if !ok {
		t.Fatal("Hooks not installed for registered type")
	}
	if hooks.Name != "resource" {
		t.Fatalf("Hooks.Name = %q, want 'resource'", hooks.Name)
	}
	if hooks.Destroy == nil || hooks.Equals == nil {
		t.Fatal("Installed hooks missing callbacks")
	}
}

func TestInstall_FollowsRegistrations(t *testing.T) {
	reg := registry.New()
	tbl := newFakeTable()

	binding, err := Install(tbl, reg)
	if err != nil {
		t.Fatalf("Install failed: %v", err)
	}

	desc, err := registry.Register[testResource](reg, "late", nil, nil)
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if _, ok := tbl.hooks[desc.Tag()]; !ok {
		t.Fatal("Hooks not installed for type registered after bind")
	}

	// After Detach, new registrations stop flowing
	binding.Detach()
	desc2, err := registry.Register[testToken](reg, "token", nil, nil)
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if _, ok := tbl.hooks[desc2.Tag()]; ok {
		t.Fatal("Hooks installed after Detach")
	}
}

func TestInstall_SkipsBoundTags(t *testing.T) {
	reg := registry.New()
	if _, err := registry.Register[testResource](reg, "resource", nil, nil); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	tbl := newFakeTable()
	first, err := Install(tbl, reg)
	if err != nil {
		t.Fatalf("First Install failed: %v", err)
	}
	defer first.Detach()

	// A second bind of the same registry sees hook_installed and skips
	second, err := Install(tbl, reg)
	if err != nil {
		t.Fatalf("Second Install failed: %v", err)
	}
	second.Detach()
}

func TestInstall_NilArguments(t *testing.T) {
	reg := registry.New()
	tbl := newFakeTable()

	if _, err := Install(nil, reg); err == nil {
		t.Fatal("Install should reject nil table")
	}
	if _, err := Install(tbl, nil); err == nil {
		t.Fatal("Install should reject nil registry")
	}
}

func TestGuard_DestroyPanicSuppressed(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	SetLogger(zap.New(core))
	defer SetLogger(zap.NewNop())

	reg := registry.New()
	calls := 0
	desc, err := registry.Register[testResource](reg, "explosive", nil, func(testResource) {
		calls++
		panic("destructor boom")
	})
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	hooks := Guard(desc)
	hooks.Destroy(testResource{name: "x"})

	if calls != 1 {
		t.Fatalf("Destructor ran %d times, want 1", calls)
	}
	if logs.FilterMessage("destructor panicked").Len() != 1 {
		t.Fatalf("Expected 1 panic log, got %d", logs.FilterMessage("destructor panicked").Len())
	}
}

func TestGuard_EqualsPanicReportsFalse(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	SetLogger(zap.New(core))
	defer SetLogger(zap.NewNop())

	reg := registry.New()
	desc, err := registry.Register[testResource](reg, "explosive", func(a, b testResource) bool {
		panic("equality boom")
	}, nil)
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	hooks := Guard(desc)
	if hooks.Equals(testResource{"a"}, testResource{"a"}) {
		t.Fatal("Panicking equality should report not equal")
	}
	if logs.FilterMessage("equality hook panicked").Len() != 1 {
		t.Fatalf("Expected 1 panic log, got %d", logs.FilterMessage("equality hook panicked").Len())
	}
}

func TestGuard_ForeignPayloads(t *testing.T) {
	reg := registry.New()
	destroyed := 0
	desc, err := registry.Register[testResource](reg, "resource",
		func(a, b testResource) bool { return a.name == b.name },
		func(testResource) { destroyed++ },
	)
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	hooks := Guard(desc)

	// Payloads of the wrong dynamic type compare unequal and are never
	// handed to the destructor
	if hooks.Equals(testResource{"a"}, 42) {
		t.Fatal("Foreign payload should compare unequal")
	}
	hooks.Destroy(42)
	if destroyed != 0 {
		t.Fatal("Destructor should ignore foreign payloads")
	}

	if !hooks.Equals(testResource{"a"}, testResource{"a"}) {
		t.Fatal("Matching payloads should compare equal")
	}
	hooks.Destroy(testResource{"a"})
	if destroyed != 1 {
		t.Fatalf("Destructor ran %d times, want 1", destroyed)
	}
}
