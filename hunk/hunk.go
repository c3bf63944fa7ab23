// Package hunk implements the static byte-pool regions described in
// spec.md §4.M: fixed-size, statically allocated memory regions,
// optionally given a typed initial value that is (re-)applied at
// startup (Part D.5, ported from r3/src/hunk.rs and
// r3_core/src/hunk.rs, which place a typed initial value directly into
// the hunk's backing storage before any task runs).
//
// Go has no safe equivalent of reinterpreting an arbitrary T as its
// backing bytes the way the original's const-generic hunk macro does;
// InitWith uses encoding/binary to serialize a fixed-size value into the
// hunk's initial byte pattern instead, which is the idiomatic
// equivalent for types whose layout is meant to be portable across a
// byte boundary.
package hunk

import (
	"bytes"
	"encoding/binary"
)

// Hunk is one fixed-size static memory region.
type Hunk struct {
	data    []byte
	initial []byte // pattern applied by Init; may be shorter than data, tiled
}

// New allocates a zero-filled Hunk of the given size.
func New(size int) *Hunk {
	return &Hunk{data: make([]byte, size)}
}

// Bytes returns the hunk's backing storage.
func (h *Hunk) Bytes() []byte { return h.data }

// Len returns the hunk's size in bytes.
func (h *Hunk) Len() int { return len(h.data) }

// SetInitialPattern records the byte pattern Init will tile across the
// hunk's storage. An empty pattern means "zero-fill" (the default).
func (h *Hunk) SetInitialPattern(pattern []byte) {
	h.initial = pattern
}

// InitWith serializes value (little-endian, via encoding/binary) and
// records the result as the hunk's initial pattern; value's encoded
// size must evenly divide the hunk's length.
func (h *Hunk) InitWith(value any) error {
	var buf bytes.Buffer
	if err := binary.Write(&buf, binary.LittleEndian, value); err != nil {
		return err
	}
	h.initial = buf.Bytes()
	return nil
}

// Init (re-)applies the hunk's recorded initial pattern to its storage,
// tiling it across the full length if shorter. This is what the
// startup hook chain (package startup) calls for every declared hunk
// before any task is activated, and is also available to re-arm a hunk
// at any later point the caller chooses.
func (h *Hunk) Init() {
	if len(h.initial) == 0 {
		for i := range h.data {
			h.data[i] = 0
		}
		return
	}
	for i := range h.data {
		h.data[i] = h.initial[i%len(h.initial)]
	}
}
