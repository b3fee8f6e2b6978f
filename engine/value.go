package engine

import (
	scriptbridge "github.com/wippyai/script-bridge"
)

// Ref is an external reference to a heap cell, held off the stack.
// Ref 0 is reserved and always invalid.
type Ref uint64

// value is one stack slot. Primitives are stored inline; opaque values
// point at their heap cell.
type value struct {
	s    string
	c    *cell
	n    float64
	kind scriptbridge.Kind
	b    bool
}

// cell is one heap-allocated boundary value. A cell stays alive while any
// stack slot or external ref points at it; the collector destroys it once
// both counts reach zero.
type cell struct {
	payload   any
	id        uint64
	stackRefs int
	extRefs   int
	tag       scriptbridge.Tag
	destroyed bool
}

// CellInfo is a diagnostic snapshot of one live cell.
type CellInfo struct {
	Payload   any
	ID        uint64
	StackRefs int
	ExtRefs   int
	Tag       scriptbridge.Tag
	Name      string
}

// Stats is a diagnostic snapshot of the engine.
type Stats struct {
	Top       int
	LiveCells int
	ExtRefs   int
	Hooks     int
	Collected uint64
}
