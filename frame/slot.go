// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package frame

import (
	"errors"
	"fmt"

	"github.com/gogpu/ggframe/gpucore"
)

// ErrIllegalTransition is returned when a slot is asked to move between
// states the lifecycle does not allow.
var ErrIllegalTransition = errors.New("frame: illegal slot transition")

// SlotState is the lifecycle state of a resource slot.
type SlotState uint8

const (
	// SlotIdle: no submission in flight; the command buffer, if any, may
	// be reused.
	SlotIdle SlotState = iota
	// SlotRecording: the command buffer is being recorded this frame.
	SlotRecording
	// SlotSubmitted: the command buffer belongs to an in-flight submission.
	SlotSubmitted
)

// String returns the state name.
func (s SlotState) String() string {
	switch s {
	case SlotIdle:
		return "Idle"
	case SlotRecording:
		return "Recording"
	case SlotSubmitted:
		return "Submitted"
	default:
		return "Unknown"
	}
}

// canTransition reports whether from -> to is part of the lifecycle.
func canTransition(from, to SlotState) bool {
	switch {
	case from == SlotIdle && to == SlotRecording:
		return true
	case from == SlotRecording && to == SlotSubmitted:
		return true
	case from == SlotSubmitted && to == SlotIdle:
		return true
	case from == SlotRecording && to == SlotIdle: // abort
		return true
	}
	return false
}

// Transition describes one slot state change.
type Transition struct {
	Slot     int
	Frame    uint64
	From, To SlotState
}

// String formats the transition for logs.
func (t Transition) String() string {
	return fmt.Sprintf("slot %d frame %d: %s -> %s", t.Slot, t.Frame, t.From, t.To)
}

// slot is one bundle of per-frame GPU resources.
//
// cmd is nil exactly while the buffer is being recorded or is referenced
// by the unretired submission.
type slot struct {
	index int
	state SlotState

	cmd       gpucore.CommandBuffer
	submitted gpucore.Submission
	// submittedFrame is the frame whose submission is in flight.
	submittedFrame uint64

	present gpucore.Semaphore
	queries gpucore.QueryPool
}

func (s *slot) transition(to SlotState, frame uint64) (Transition, error) {
	t := Transition{Slot: s.index, Frame: frame, From: s.state, To: to}
	if !canTransition(s.state, to) {
		return t, fmt.Errorf("%w: %s", ErrIllegalTransition, t)
	}
	s.state = to
	return t, nil
}
