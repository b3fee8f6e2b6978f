package engine

import (
	scriptbridge "github.com/wippyai/script-bridge"
	"github.com/wippyai/script-bridge/errors"
)

// Stack is the reference value-stack engine.
// Not safe for concurrent use; one Stack belongs to one goroutine.
type Stack struct {
	slots     []value
	cells     []*cell
	hooks     map[scriptbridge.Tag]scriptbridge.Hooks
	refs      map[Ref]*cell
	nextCell  uint64
	nextRef   Ref
	collected uint64
	closed    bool
}

var (
	_ scriptbridge.Stack     = (*Stack)(nil)
	_ scriptbridge.HookTable = (*Stack)(nil)
	_ scriptbridge.Collector = (*Stack)(nil)
)

// New creates an empty stack
func New() *Stack {
	return &Stack{
		slots: make([]value, 0, 16),
		hooks: make(map[scriptbridge.Tag]scriptbridge.Hooks),
		refs:  make(map[Ref]*cell),
	}
}

// InstallHooks installs the collection and comparison callbacks for a tag.
// Hooks must be installed before any value of the tag is pushed and cannot
// be replaced once installed.
func (s *Stack) InstallHooks(tag scriptbridge.Tag, hooks scriptbridge.Hooks) error {
	if s.closed {
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
	if existing, ok := s.hooks[tag]; ok {
		return errors.HookInstalled(uint32(tag), existing.Name)
	}
	s.hooks[tag] = hooks
	return nil
}

// HooksInstalled reports whether a tag has hooks installed
func (s *Stack) HooksInstalled(tag scriptbridge.Tag) bool {
	_, ok := s.hooks[tag]
	return ok
}

func (s *Stack) push(v value) scriptbridge.Slot {
	s.slots = append(s.slots, v)
	return scriptbridge.Slot(len(s.slots))
}

// PushNil pushes the nil value
func (s *Stack) PushNil() scriptbridge.Slot {
	if s.closed {
		return 0
	}
	return s.push(value{kind: scriptbridge.KindNil})
}

// PushBool pushes a boolean
func (s *Stack) PushBool(b bool) scriptbridge.Slot {
	if s.closed {
		return 0
	}
	return s.push(value{kind: scriptbridge.KindBool, b: b})
}

// PushNumber pushes a number
func (s *Stack) PushNumber(n float64) scriptbridge.Slot {
	if s.closed {
		return 0
	}
	return s.push(value{kind: scriptbridge.KindNumber, n: n})
}

// PushString pushes a string
func (s *Stack) PushString(str string) scriptbridge.Slot {
	if s.closed {
		return 0
	}
	return s.push(value{kind: scriptbridge.KindString, s: str})
}

// PushOpaque allocates a cell for payload and pushes a reference to it.
// The payload belongs to the engine afterward; its tag's Destroy hook will
// release it exactly once.
func (s *Stack) PushOpaque(tag scriptbridge.Tag, payload any) (scriptbridge.Slot, error) {
	if s.closed {
		return 0, errors.Closed(errors.PhasePush)
	}
	if tag == 0 {
		return 0, errors.InvalidInput(errors.PhasePush, "tag 0 is invalid")
	}
	if _, ok := s.hooks[tag]; !ok {
		return 0, errors.HooksMissing(uint32(tag))
	}

	s.nextCell++
	c := &cell{
		id:        s.nextCell,
		tag:       tag,
		payload:   payload,
		stackRefs: 1,
	}
	s.cells = append(s.cells, c)
	return s.push(value{kind: scriptbridge.KindOpaque, c: c}), nil
}

// Top returns the number of occupied slots
func (s *Stack) Top() int {
	return len(s.slots)
}

// AbsIndex resolves a possibly-negative slot to its absolute form,
// or 0 if the slot does not address the live stack
func (s *Stack) AbsIndex(slot scriptbridge.Slot) scriptbridge.Slot {
	abs := int(slot)
	if abs < 0 {
		abs = len(s.slots) + 1 + abs
	}
	if abs < 1 || abs > len(s.slots) {
		return 0
	}
	return scriptbridge.Slot(abs)
}

// at returns the value at slot, nil if the slot is invalid
func (s *Stack) at(slot scriptbridge.Slot) *value {
	abs := s.AbsIndex(slot)
	if abs == 0 {
		return nil
	}
	return &s.slots[abs-1]
}

// KindAt reports the kind of the value at slot
func (s *Stack) KindAt(slot scriptbridge.Slot) scriptbridge.Kind {
	v := s.at(slot)
	if v == nil {
		return scriptbridge.KindNone
	}
	return v.kind
}

// BoolAt returns the boolean at slot, without coercion
func (s *Stack) BoolAt(slot scriptbridge.Slot) (bool, bool) {
	v := s.at(slot)
	if v == nil || v.kind != scriptbridge.KindBool {
		return false, false
	}
	return v.b, true
}

// NumberAt returns the number at slot, without coercion
func (s *Stack) NumberAt(slot scriptbridge.Slot) (float64, bool) {
	v := s.at(slot)
	if v == nil || v.kind != scriptbridge.KindNumber {
		return 0, false
	}
	return v.n, true
}

// StringAt returns the string at slot, without coercion
func (s *Stack) StringAt(slot scriptbridge.Slot) (string, bool) {
	v := s.at(slot)
	if v == nil || v.kind != scriptbridge.KindString {
		return "", false
	}
	return v.s, true
}

// TagAt returns the tag of the opaque value at slot
func (s *Stack) TagAt(slot scriptbridge.Slot) (scriptbridge.Tag, bool) {
	v := s.at(slot)
	if v == nil || v.kind != scriptbridge.KindOpaque {
		return 0, false
	}
	return v.c.tag, true
}

// PayloadAt returns the payload of the opaque value at slot.
// The cell keeps ownership; callers must treat the payload as read-only.
func (s *Stack) PayloadAt(slot scriptbridge.Slot) (any, bool) {
	v := s.at(slot)
	if v == nil || v.kind != scriptbridge.KindOpaque {
		return nil, false
	}
	return v.c.payload, true
}

// Pop removes the top n slots. Cells referenced only by popped slots
// become garbage for the next Collect.
func (s *Stack) Pop(n int) {
	if n <= 0 || s.closed {
		return
	}
	if n > len(s.slots) {
		n = len(s.slots)
	}
	for i := len(s.slots) - n; i < len(s.slots); i++ {
		if s.slots[i].kind == scriptbridge.KindOpaque {
			s.slots[i].c.stackRefs--
		}
	}
	s.slots = s.slots[:len(s.slots)-n]
}

// Dup pushes a copy of the value at slot. Opaque values are copied by
// reference: the new slot points at the same cell.
func (s *Stack) Dup(slot scriptbridge.Slot) (scriptbridge.Slot, error) {
	if s.closed {
		return 0, errors.Closed(errors.PhaseStack)
	}
	v := s.at(slot)
	if v == nil {
		return 0, errors.InvalidSlot(errors.PhaseStack, int(slot), len(s.slots))
	}
	dup := *v
	if dup.kind == scriptbridge.KindOpaque {
		dup.c.stackRefs++
	}
	return s.push(dup), nil
}

// Ref takes an external reference to the opaque value at slot, keeping its
// cell alive independently of the stack
func (s *Stack) Ref(slot scriptbridge.Slot) (Ref, error) {
	if s.closed {
		return 0, errors.Closed(errors.PhaseStack)
	}
	v := s.at(slot)
	if v == nil {
		return 0, errors.InvalidSlot(errors.PhaseStack, int(slot), len(s.slots))
	}
	if v.kind != scriptbridge.KindOpaque {
		return 0, errors.InvalidInput(errors.PhaseStack, "only opaque values can be retained")
	}
	s.nextRef++
	v.c.extRefs++
	s.refs[s.nextRef] = v.c
	return s.nextRef, nil
}

// Unref releases an external reference. Returns false if the ref is
// unknown or already released.
func (s *Stack) Unref(ref Ref) bool {
	c, ok := s.refs[ref]
	if !ok {
		return false
	}
	c.extRefs--
	delete(s.refs, ref)
	return true
}

// PushRef pushes the cell behind an external reference back onto the stack
func (s *Stack) PushRef(ref Ref) (scriptbridge.Slot, error) {
	if s.closed {
		return 0, errors.Closed(errors.PhasePush)
	}
	c, ok := s.refs[ref]
	if !ok {
		return 0, errors.InvalidInput(errors.PhasePush, "unknown ref")
	}
	c.stackRefs++
	return s.push(value{kind: scriptbridge.KindOpaque, c: c}), nil
}

// Stats returns a diagnostic snapshot
func (s *Stack) Stats() Stats {
	return Stats{
		Top:       len(s.slots),
		LiveCells: len(s.cells),
		ExtRefs:   len(s.refs),
		Hooks:     len(s.hooks),
		Collected: s.collected,
	}
}

// EachCell iterates over live cells in allocation order until fn returns false
func (s *Stack) EachCell(fn func(CellInfo) bool) {
	for _, c := range s.cells {
		info := CellInfo{
			ID:        c.id,
			Tag:       c.tag,
			Name:      s.hooks[c.tag].Name,
			Payload:   c.payload,
			StackRefs: c.stackRefs,
			ExtRefs:   c.extRefs,
		}
		if !fn(info) {
			return
		}
	}
}

// Close drains the stack, releases all external refs, and destroys every
// remaining cell exactly once. Idempotent.
func (s *Stack) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true

	for _, c := range s.cells {
		s.destroyCell(c)
	}
	s.slots = nil
	s.cells = nil
	s.refs = nil
	return nil
}
