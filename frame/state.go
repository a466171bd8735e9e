// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package frame

// SlotCount is the number of frames that may be in flight at once.
const SlotCount = 2

// State is the frame counter of one pipeline. The zero value starts at
// frame 0.
type State struct {
	current uint64
}

// Current returns the index of the frame being built.
func (s *State) Current() uint64 {
	return s.current
}

// Slot returns the resource slot for the current frame.
func (s *State) Slot() int {
	return int(s.current % SlotCount)
}

// Advance marks the current frame as rendered.
func (s *State) Advance() {
	s.current++
}
