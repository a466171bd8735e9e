// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package render

import (
	"errors"
	"fmt"

	"github.com/gogpu/gg"

	"github.com/gogpu/ggframe/scene"
)

// ErrUnbalancedTransform is returned by PopTransform without a matching
// PushTransform, and by Encode when pushes are left open.
var ErrUnbalancedTransform = errors.New("render: unbalanced transform stack")

// OpKind identifies a drawing-context operation.
type OpKind uint8

const (
	OpPushTransform OpKind = iota + 1
	OpPopTransform
	OpFillPath
	OpDrawText
)

// String returns the operation name.
func (k OpKind) String() string {
	switch k {
	case OpPushTransform:
		return "PushTransform"
	case OpPopTransform:
		return "PopTransform"
	case OpFillPath:
		return "FillPath"
	case OpDrawText:
		return "DrawText"
	default:
		return "Unknown"
	}
}

// Op is one recorded drawing operation.
type Op struct {
	Kind      OpKind
	Transform scene.Affine
	Path      *scene.Path
	Layout    *Layout
	Color     gg.RGBA
	Rule      scene.FillRule
}

// DrawContext accumulates ordered drawing operations for one frame.
// It is filled during Prepare, encoded once at the start of Render and
// then reset. It must be empty whenever Prepare begins.
type DrawContext struct {
	ops   []Op
	depth int
}

// NewDrawContext creates an empty drawing context.
func NewDrawContext() *DrawContext {
	return &DrawContext{ops: make([]Op, 0, 128)}
}

// PushTransform composes t onto the current transform.
func (dc *DrawContext) PushTransform(t scene.Affine) {
	dc.ops = append(dc.ops, Op{Kind: OpPushTransform, Transform: t})
	dc.depth++
}

// PopTransform restores the transform active before the matching push.
func (dc *DrawContext) PopTransform() error {
	if dc.depth == 0 {
		return ErrUnbalancedTransform
	}
	dc.ops = append(dc.ops, Op{Kind: OpPopTransform})
	dc.depth--
	return nil
}

// FillPath fills p with a solid color.
func (dc *DrawContext) FillPath(p *scene.Path, c gg.RGBA, rule scene.FillRule) {
	dc.ops = append(dc.ops, Op{Kind: OpFillPath, Path: p, Color: c, Rule: rule})
}

// DrawText draws a laid-out text run with its baseline origin at the
// current transform origin.
func (dc *DrawContext) DrawText(l *Layout, c gg.RGBA) {
	dc.ops = append(dc.ops, Op{Kind: OpDrawText, Layout: l, Color: c})
}

// Len returns the number of recorded operations.
func (dc *DrawContext) Len() int {
	return len(dc.ops)
}

// Ops returns the recorded operations in order. The slice is valid until
// the next Reset.
func (dc *DrawContext) Ops() []Op {
	return dc.ops
}

// Reset empties the context, keeping capacity.
func (dc *DrawContext) Reset() {
	clear(dc.ops)
	dc.ops = dc.ops[:0]
	dc.depth = 0
}

// Encode writes the recorded operations into enc, which is reset first.
// Text runs are encoded as their glyph outline paths.
func (dc *DrawContext) Encode(enc *scene.Encoding) error {
	if dc.depth != 0 {
		return fmt.Errorf("%w: %d open pushes", ErrUnbalancedTransform, dc.depth)
	}
	enc.Reset()
	for _, op := range dc.ops {
		switch op.Kind {
		case OpPushTransform:
			enc.PushTransform(op.Transform)
		case OpPopTransform:
			if err := enc.PopTransform(); err != nil {
				return err
			}
		case OpFillPath:
			if op.Path.IsEmpty() {
				continue
			}
			enc.EncodePath(op.Path)
			enc.EncodeFill(op.Color, op.Rule)
		case OpDrawText:
			if op.Layout == nil || op.Layout.Path.IsEmpty() {
				continue
			}
			enc.EncodePath(op.Layout.Path)
			enc.EncodeFill(op.Color, scene.FillNonZero)
		}
	}
	return nil
}
