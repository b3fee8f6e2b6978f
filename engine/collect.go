package engine

import (
	"go.uber.org/zap"

	scriptbridge "github.com/wippyai/script-bridge"
	"github.com/wippyai/script-bridge/errors"
)

// Collect destroys every cell no stack slot or external ref points at,
// running each cell's Destroy hook exactly once, and returns the number of
// cells destroyed.
func (s *Stack) Collect() int {
	if s.closed {
		return 0
	}

	n := 0
	live := s.cells[:0]
	for _, c := range s.cells {
		if c.stackRefs > 0 || c.extRefs > 0 {
			live = append(live, c)
			continue
		}
		s.destroyCell(c)
		n++
	}
	// Clear the tail so collected cells do not linger in the backing array
	for i := len(live); i < len(s.cells); i++ {
		s.cells[i] = nil
	}
	s.cells = live
	return n
}

// destroyCell runs the cell's Destroy hook once and drops the payload.
// A panicking hook is recovered and logged; it never unwinds the caller.
func (s *Stack) destroyCell(c *cell) {
	if c.destroyed {
		return
	}
	c.destroyed = true
	s.collected++

	if h, ok := s.hooks[c.tag]; ok && h.Destroy != nil {
		func() {
			defer func() {
				if r := recover(); r != nil {
					Logger().Error("destroy hook panicked",
						zap.String("type", h.Name),
						zap.Uint32("tag", uint32(c.tag)),
						zap.Uint64("cell", c.id),
						zap.Any("panic", r))
				}
			}()
			h.Destroy(c.payload)
		}()
	}
	c.payload = nil
}

// Equals compares the values at two slots the way script code would.
// Primitive kinds compare by value. Opaque values compare reflexively by
// cell, then through the tag's Equals hook when both tags match; values of
// different tags never compare equal. A panicking hook is recovered,
// logged, and reported as not equal.
func (s *Stack) Equals(a, b scriptbridge.Slot) (bool, error) {
	va := s.at(a)
	if va == nil {
		return false, errors.InvalidSlot(errors.PhaseStack, int(a), len(s.slots))
	}
	vb := s.at(b)
	if vb == nil {
		return false, errors.InvalidSlot(errors.PhaseStack, int(b), len(s.slots))
	}

	if va.kind != vb.kind {
		return false, nil
	}
	switch va.kind {
	case scriptbridge.KindNil:
		return true, nil
	case scriptbridge.KindBool:
		return va.b == vb.b, nil
	case scriptbridge.KindNumber:
		return va.n == vb.n, nil
	case scriptbridge.KindString:
		return va.s == vb.s, nil
	case scriptbridge.KindOpaque:
		return s.cellsEqual(va.c, vb.c), nil
	default:
		return false, nil
	}
}

func (s *Stack) cellsEqual(a, b *cell) bool {
	if a == b {
		return true
	}
	if a.tag != b.tag {
		return false
	}
	h, ok := s.hooks[a.tag]
	if !ok || h.Equals == nil {
		return false
	}

	equal := false
	func() {
		defer func() {
			if r := recover(); r != nil {
				equal = false
				Logger().Error("equals hook panicked",
					zap.String("type", h.Name),
					zap.Uint32("tag", uint32(a.tag)),
					zap.Any("panic", r))
			}
		}()
		equal = h.Equals(a.payload, b.payload)
	}()
	return equal
}
