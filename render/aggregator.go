// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package render

import (
	"errors"
	"fmt"

	"github.com/gogpu/ggframe/scene"
)

// Per-command errors recorded by the aggregator.
var (
	ErrUnknownKind        = errors.New("render: unknown command kind")
	ErrInvalidLayer       = errors.New("render: invalid layer")
	ErrNonFiniteTransform = errors.New("render: non-finite transform")
	ErrEmptyShape         = errors.New("render: empty shape path")
)

// CommandFailure records a command that was skipped.
type CommandFailure struct {
	// Index is the command's position in arrival order.
	Index   int
	Command Command
	Err     error
}

func (f CommandFailure) Error() string {
	return fmt.Sprintf("command %d %s: %v", f.Index, f.Command, f.Err)
}

func (f CommandFailure) Unwrap() error { return f.Err }

// Report summarizes one Prepare pass.
type Report struct {
	// Executed lists the commands that reached the drawing context, in
	// execution order.
	Executed []Command
	Failures []CommandFailure
}

// Aggregator orders a frame's commands by layer and executes them
// against a drawing context.
type Aggregator struct {
	text *TextLayouter

	buckets [layerCount][]indexed
}

type indexed struct {
	index int
	cmd   Command
}

// NewAggregator creates an aggregator. layouter may be nil when no text
// commands are expected; text commands then fail individually.
func NewAggregator(layouter *TextLayouter) *Aggregator {
	return &Aggregator{text: layouter}
}

// Prepare drains q, partitions the commands into Background, Middle and
// Foreground buckets preserving arrival order within each, and executes
// them against dc. Failing commands are recorded and skipped.
func (a *Aggregator) Prepare(q *Queue, dc *DrawContext) Report {
	cmds := q.Drain()
	var report Report

	for i := range a.buckets {
		a.buckets[i] = a.buckets[i][:0]
	}
	for i, c := range cmds {
		if !c.layer.Valid() {
			report.Failures = append(report.Failures, CommandFailure{Index: i, Command: c, Err: ErrInvalidLayer})
			continue
		}
		a.buckets[c.layer] = append(a.buckets[c.layer], indexed{index: i, cmd: c})
	}

	report.Executed = make([]Command, 0, len(cmds))
	for _, layer := range Layers() {
		for _, ic := range a.buckets[layer] {
			if err := a.execute(ic.cmd, dc); err != nil {
				f := CommandFailure{Index: ic.index, Command: ic.cmd, Err: err}
				report.Failures = append(report.Failures, f)
				slogger().Warn("render: skipping draw command",
					"index", ic.index, "kind", ic.cmd.kind.String(), "layer", layer.String(), "err", err)
				continue
			}
			report.Executed = append(report.Executed, ic.cmd)
		}
	}
	return report
}

// execute runs one command. Validation happens before anything is
// pushed, so a failure leaves the context unchanged.
func (a *Aggregator) execute(c Command, dc *DrawContext) error {
	if !c.transform.IsFinite() {
		return ErrNonFiniteTransform
	}

	switch c.kind {
	case KindText:
		if a.text == nil {
			return errors.New("render: no text layouter configured")
		}
		layout, err := a.text.Layout(c.text.Content, c.text.Size)
		if err != nil {
			return err
		}
		dc.PushTransform(c.transform.Affine())
		dc.DrawText(layout, c.text.Color)
		return dc.PopTransform()

	case KindShape:
		if c.shape.Path.IsEmpty() {
			return ErrEmptyShape
		}
		if err := c.shape.Path.Validate(); err != nil {
			return err
		}
		center := scene.TranslateAffine(-c.shape.Center.X(), -c.shape.Center.Y())
		dc.PushTransform(c.transform.Affine().Multiply(center))
		dc.FillPath(c.shape.Path, c.shape.Color, c.shape.Rule)
		return dc.PopTransform()

	default:
		return fmt.Errorf("%w: %d", ErrUnknownKind, c.kind)
	}
}
