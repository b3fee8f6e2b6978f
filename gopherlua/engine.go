package gopherlua

import (
	"fmt"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	scriptbridge "github.com/wippyai/script-bridge"
	"github.com/wippyai/script-bridge/errors"
)

// wrapped is the boundary envelope stored in a userdata's Value: the
// bridge tag plus the host payload the runtime now owns.
type wrapped struct {
	payload any
	tag     scriptbridge.Tag
}

// Engine adapts a lua.LState to the bridge's Stack and HookTable
// contracts. Opaque payloads become userdata carrying their tag, and
// each tag's metatable dispatches __eq and __tostring to the installed
// hooks.
type Engine struct {
	state  *lua.LState
	hooks  map[scriptbridge.Tag]scriptbridge.Hooks
	mts    map[scriptbridge.Tag]*lua.LTable
	live   map[*lua.LUserData]struct{}
	eqFn   *lua.LFunction
	strFn  *lua.LFunction
	owns   bool
	closed bool
}

var (
	_ scriptbridge.Stack     = (*Engine)(nil)
	_ scriptbridge.HookTable = (*Engine)(nil)
)

// New creates an Engine over a fresh interpreter with the standard
// libraries opened. Close shuts the interpreter down.
func New() *Engine {
	return adopt(lua.NewState(), true)
}

// Wrap adapts an interpreter the host already owns. Close destroys the
// payloads pushed through the bridge but leaves L itself open; the host
// remains responsible for L.Close. L must not be nil.
func Wrap(L *lua.LState) *Engine {
	if L == nil {
		return nil
	}
	return adopt(L, false)
}

func adopt(L *lua.LState, owns bool) *Engine {
	e := &Engine{
		state: L,
		hooks: make(map[scriptbridge.Tag]scriptbridge.Hooks),
		mts:   make(map[scriptbridge.Tag]*lua.LTable),
		live:  make(map[*lua.LUserData]struct{}),
		owns:  owns,
	}
	e.eqFn = L.NewFunction(e.luaEquals)
	e.strFn = L.NewFunction(e.luaToString)
	return e
}

// State returns the wrapped interpreter for direct use: registering
// host functions, running scripts, opening libraries.
func (e *Engine) State() *lua.LState {
	return e.state
}

// InstallHooks binds a tag's callbacks and builds the metatable that
// routes Lua equality and printing to them. Hooks are immutable once
// installed.
func (e *Engine) InstallHooks(tag scriptbridge.Tag, hooks scriptbridge.Hooks) error {
	if e.closed {
		return errors.Closed(errors.PhaseStack)
	}
	if tag == 0 {
		return errors.InvalidInput(errors.PhaseStack, "tag 0 is invalid")
	}
	if hooks.Destroy == nil {
		return errors.InvalidInput(errors.PhaseStack, "destroy hook cannot be nil")
	}
	if hooks.Equals == nil {
		return errors.InvalidInput(errors.PhaseStack, "equals hook cannot be nil")
	}
	if existing, ok := e.hooks[tag]; ok {
		return errors.HookInstalled(uint32(tag), existing.Name)
	}

	mt := e.state.NewTable()
	e.state.SetField(mt, "__eq", e.eqFn)
	e.state.SetField(mt, "__tostring", e.strFn)
	if hooks.Name != "" {
		// Protects the metatable from scripts and makes getmetatable
		// return the type name.
		e.state.SetField(mt, "__metatable", lua.LString(hooks.Name))
	}

	e.hooks[tag] = hooks
	e.mts[tag] = mt
	return nil
}

// HooksInstalled reports whether a tag has hooks installed
func (e *Engine) HooksInstalled(tag scriptbridge.Tag) bool {
	_, ok := e.hooks[tag]
	return ok
}

func (e *Engine) PushNil() scriptbridge.Slot {
	if e.closed {
		return 0
	}
	e.state.Push(lua.LNil)
	return scriptbridge.Slot(e.state.GetTop())
}

func (e *Engine) PushBool(b bool) scriptbridge.Slot {
	if e.closed {
		return 0
	}
	e.state.Push(lua.LBool(b))
	return scriptbridge.Slot(e.state.GetTop())
}

func (e *Engine) PushNumber(n float64) scriptbridge.Slot {
	if e.closed {
		return 0
	}
	e.state.Push(lua.LNumber(n))
	return scriptbridge.Slot(e.state.GetTop())
}

func (e *Engine) PushString(s string) scriptbridge.Slot {
	if e.closed {
		return 0
	}
	e.state.Push(lua.LString(s))
	return scriptbridge.Slot(e.state.GetTop())
}

func (e *Engine) PushOpaque(tag scriptbridge.Tag, payload any) (scriptbridge.Slot, error) {
	if e.closed {
		return 0, errors.Closed(errors.PhasePush)
	}
	if tag == 0 {
		return 0, errors.InvalidInput(errors.PhasePush, "tag 0 is invalid")
	}
	mt, ok := e.mts[tag]
	if !ok {
		return 0, errors.HooksMissing(uint32(tag))
	}

	ud := e.state.NewUserData()
	ud.Value = &wrapped{tag: tag, payload: payload}
	e.state.SetMetatable(ud, mt)
	e.live[ud] = struct{}{}
	e.state.Push(ud)
	return scriptbridge.Slot(e.state.GetTop()), nil
}

func (e *Engine) Top() int {
	if e.closed {
		return 0
	}
	return e.state.GetTop()
}

func (e *Engine) AbsIndex(slot scriptbridge.Slot) scriptbridge.Slot {
	if e.closed {
		return 0
	}
	top := e.state.GetTop()
	abs := int(slot)
	if abs < 0 {
		abs = top + 1 + abs
	}
	if abs < 1 || abs > top {
		return 0
	}
	return scriptbridge.Slot(abs)
}

func (e *Engine) KindAt(slot scriptbridge.Slot) scriptbridge.Kind {
	abs := e.AbsIndex(slot)
	if abs == 0 {
		return scriptbridge.KindNone
	}
	switch e.state.Get(int(abs)).Type() {
	case lua.LTNil:
		return scriptbridge.KindNil
	case lua.LTBool:
		return scriptbridge.KindBool
	case lua.LTNumber:
		return scriptbridge.KindNumber
	case lua.LTString:
		return scriptbridge.KindString
	default:
		// Tables, functions, threads and userdata are all opaque to
		// the bridge; TagAt separates bridge values from the rest.
		return scriptbridge.KindOpaque
	}
}

func (e *Engine) BoolAt(slot scriptbridge.Slot) (bool, bool) {
	abs := e.AbsIndex(slot)
	if abs == 0 {
		return false, false
	}
	if v, ok := e.state.Get(int(abs)).(lua.LBool); ok {
		return bool(v), true
	}
	return false, false
}

func (e *Engine) NumberAt(slot scriptbridge.Slot) (float64, bool) {
	abs := e.AbsIndex(slot)
	if abs == 0 {
		return 0, false
	}
	if v, ok := e.state.Get(int(abs)).(lua.LNumber); ok {
		return float64(v), true
	}
	return 0, false
}

func (e *Engine) StringAt(slot scriptbridge.Slot) (string, bool) {
	abs := e.AbsIndex(slot)
	if abs == 0 {
		return "", false
	}
	if v, ok := e.state.Get(int(abs)).(lua.LString); ok {
		return string(v), true
	}
	return "", false
}

func (e *Engine) TagAt(slot scriptbridge.Slot) (scriptbridge.Tag, bool) {
	if w := e.wrappedAt(slot); w != nil {
		return w.tag, true
	}
	return 0, false
}

func (e *Engine) PayloadAt(slot scriptbridge.Slot) (any, bool) {
	if w := e.wrappedAt(slot); w != nil {
		return w.payload, true
	}
	return nil, false
}

// wrappedAt returns the bridge envelope at slot, nil for primitives
// and foreign userdata alike.
func (e *Engine) wrappedAt(slot scriptbridge.Slot) *wrapped {
	abs := e.AbsIndex(slot)
	if abs == 0 {
		return nil
	}
	ud, ok := e.state.Get(int(abs)).(*lua.LUserData)
	if !ok {
		return nil
	}
	w, _ := ud.Value.(*wrapped)
	return w
}

func (e *Engine) Pop(n int) {
	if e.closed || n <= 0 {
		return
	}
	if top := e.state.GetTop(); n > top {
		n = top
	}
	e.state.Pop(n)
}

// BindGlobal exposes the value at slot to scripts under the given name.
func (e *Engine) BindGlobal(name string, slot scriptbridge.Slot) error {
	if e.closed {
		return errors.Closed(errors.PhaseStack)
	}
	abs := e.AbsIndex(slot)
	if abs == 0 {
		return errors.InvalidSlot(errors.PhaseStack, int(slot), e.state.GetTop())
	}
	e.state.SetGlobal(name, e.state.Get(int(abs)))
	return nil
}

// DoString runs a chunk of script source. Values the chunk returns are
// left on the stack.
func (e *Engine) DoString(src string) error {
	if e.closed {
		return errors.Closed(errors.PhaseStack)
	}
	if err := e.state.DoString(src); err != nil {
		return errors.Wrap(errors.PhaseStack, errors.KindInvalidInput, err, "script failed")
	}
	return nil
}

// Close destroys every payload pushed through the bridge exactly once
// and, when the engine owns its interpreter, shuts the interpreter
// down. Close is idempotent.
func (e *Engine) Close() error {
	if e.closed {
		return nil
	}
	e.closed = true

	for ud := range e.live {
		w, ok := ud.Value.(*wrapped)
		if !ok {
			continue
		}
		if hooks, ok := e.hooks[w.tag]; ok {
			e.safeDestroy(hooks, w)
		}
		w.payload = nil
		ud.Value = nil
	}
	e.live = nil

	if e.owns {
		e.state.Close()
	}
	return nil
}

// luaEquals is the shared __eq metamethod. Lua consults it only when
// both operands are userdata, but the operands may still carry
// different tags, so the tag check here is load bearing.
func (e *Engine) luaEquals(L *lua.LState) int {
	lhs, lok := L.Get(1).(*lua.LUserData)
	rhs, rok := L.Get(2).(*lua.LUserData)
	if !lok || !rok {
		L.Push(lua.LFalse)
		return 1
	}
	if lhs == rhs {
		L.Push(lua.LTrue)
		return 1
	}

	a, aok := lhs.Value.(*wrapped)
	b, bok := rhs.Value.(*wrapped)
	if !aok || !bok || a.tag != b.tag {
		L.Push(lua.LFalse)
		return 1
	}
	hooks, ok := e.hooks[a.tag]
	if !ok {
		L.Push(lua.LFalse)
		return 1
	}

	L.Push(lua.LBool(e.safeEquals(hooks, a, b)))
	return 1
}

// luaToString is the shared __tostring metamethod.
func (e *Engine) luaToString(L *lua.LState) int {
	ud, ok := L.Get(1).(*lua.LUserData)
	if !ok {
		L.Push(lua.LString("userdata"))
		return 1
	}
	if w, ok := ud.Value.(*wrapped); ok {
		if hooks, ok := e.hooks[w.tag]; ok && hooks.Name != "" {
			L.Push(lua.LString(fmt.Sprintf("%s: %p", hooks.Name, ud)))
			return 1
		}
		L.Push(lua.LString(fmt.Sprintf("userdata(tag %d): %p", w.tag, ud)))
		return 1
	}
	L.Push(lua.LString(fmt.Sprintf("userdata: %p", ud)))
	return 1
}

// safeEquals runs an equality hook, reporting a panicking hook as not
// equal. A panic here must never surface as a Lua error.
func (e *Engine) safeEquals(hooks scriptbridge.Hooks, a, b *wrapped) (eq bool) {
	defer func() {
		if r := recover(); r != nil {
			Logger().Error("equals hook panicked",
				zap.String("type", hooks.Name),
				zap.Uint32("tag", uint32(a.tag)),
				zap.Any("panic", r))
			eq = false
		}
	}()
	return hooks.Equals(a.payload, b.payload)
}

func (e *Engine) safeDestroy(hooks scriptbridge.Hooks, w *wrapped) {
	defer func() {
		if r := recover(); r != nil {
			Logger().Error("destroy hook panicked",
				zap.String("type", hooks.Name),
				zap.Uint32("tag", uint32(w.tag)),
				zap.Any("panic", r))
		}
	}()
	hooks.Destroy(w.payload)
}
