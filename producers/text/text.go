// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package text draws text labels attached to scene entities.
//
// An entity with a Label and a world.GlobalTransform is drawn as one text
// command on the Foreground layer, after every shape.
package text

import (
	"github.com/gogpu/gg"

	"github.com/gogpu/ggframe/render"
	"github.com/gogpu/ggframe/world"
)

// DefaultSize is the font size used for labels with no size.
const DefaultSize = 16

// Label is the component that marks an entity as a text label.
type Label struct {
	Text string
	// Size is the font size in pixels. Zero means DefaultSize.
	Size float64
	// Color is the fill color. The zero value means white.
	Color gg.RGBA
}

// Extracted is the transient render-world resource holding the labels
// copied out of the app world this frame, in spawn order.
type Extracted struct {
	Labels []ExtractedLabel
}

// ExtractedLabel is a label with its resolved transform.
type ExtractedLabel struct {
	Label     Label
	Transform render.Transform
}

// Producer extracts labels and emits their text commands.
type Producer struct{}

// NewProducer creates a text label producer.
func NewProducer() *Producer { return &Producer{} }

// Name returns "text".
func (*Producer) Name() string { return "text" }

// Extract copies every (Label, GlobalTransform) pair into the render
// world's Extracted resource.
func (*Producer) Extract(ctx *world.ExtractContext) error {
	var ex Extracted
	world.Each2(ctx.App, func(_ world.Entity, l Label, g world.GlobalTransform) {
		ex.Labels = append(ex.Labels, ExtractedLabel{Label: l, Transform: g.Transform})
	})
	world.SetTransient(ctx.Render, ex)
	return nil
}

// Prepare sends one Foreground text command per extracted label.
func (*Producer) Prepare(rw *world.World, q *render.Queue) error {
	ex, ok := world.Resource[Extracted](rw)
	if !ok {
		return nil
	}
	for _, e := range ex.Labels {
		q.Send(render.NewText(render.Foreground, e.Label.text(), e.Transform))
	}
	return nil
}

func (l Label) text() render.Text {
	t := render.Text{Content: l.Text, Size: l.Size, Color: l.Color}
	if t.Size == 0 {
		t.Size = DefaultSize
	}
	if t.Color == (gg.RGBA{}) {
		t.Color = gg.White
	}
	return t
}
