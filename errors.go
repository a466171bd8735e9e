package ggframe

import (
	"errors"
	"fmt"
)

// Pipeline errors.
var (
	// ErrNoSurface is returned by New when no surface size was configured.
	ErrNoSurface = errors.New("ggframe: no surface configured")

	// ErrSetup wraps the failure of the one-time Setup stage. A failed
	// setup is reported by every later RunFrame.
	ErrSetup = errors.New("ggframe: setup failed")

	// ErrPipelineFaulted is returned by RunFrame after a Render stage
	// failure left the device in an unknown state.
	ErrPipelineFaulted = errors.New("ggframe: pipeline faulted")

	// ErrContextNotEmpty is returned when Prepare begins with operations
	// left in the drawing context.
	ErrContextNotEmpty = errors.New("ggframe: drawing context not empty at prepare")

	// ErrClosed is returned by RunFrame after Close.
	ErrClosed = errors.New("ggframe: pipeline closed")
)

// FrameError reports a per-frame fatal error: the frame was aborted in
// Stage and nothing after it ran.
type FrameError struct {
	Frame uint64
	Stage Stage
	Err   error
}

func (e *FrameError) Error() string {
	return fmt.Sprintf("ggframe: frame %d: %s: %v", e.Frame, e.Stage, e.Err)
}

func (e *FrameError) Unwrap() error { return e.Err }

// PanicError is the error a recovered stage panic is reported as.
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

// ProducerError wraps an error returned by a producer hook.
type ProducerError struct {
	Producer string
	Stage    Stage
	Err      error
}

func (e *ProducerError) Error() string {
	return fmt.Sprintf("producer %s: %s: %v", e.Producer, e.Stage, e.Err)
}

func (e *ProducerError) Unwrap() error { return e.Err }
