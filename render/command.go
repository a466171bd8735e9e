// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package render

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/gogpu/gg"

	"github.com/gogpu/ggframe/scene"
)

// Kind identifies the variant held by a Command.
type Kind uint8

const (
	kindInvalid Kind = iota
	KindText
	KindShape
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindText:
		return "Text"
	case KindShape:
		return "Shape"
	default:
		return "Invalid"
	}
}

// Text is the payload of a text command. Size is the font size in pixels
// before the command transform is applied.
type Text struct {
	Content string
	Size    float64
	Color   gg.RGBA
}

// Shape is the payload of a shape command. The path is drawn with Center
// moved to the transform origin.
type Shape struct {
	Path   *scene.Path
	Color  gg.RGBA
	Rule   scene.FillRule
	Center mgl32.Vec2
}

// Command is one renderable item: a Text or a Shape, a transform and a
// layer. The zero Command is invalid. Commands are immutable values;
// construct them with NewText or NewShape.
type Command struct {
	kind      Kind
	layer     Layer
	transform Transform
	text      Text
	shape     Shape
}

// NewText returns a text command.
func NewText(layer Layer, t Text, transform Transform) Command {
	return Command{kind: KindText, layer: layer, transform: transform, text: t}
}

// NewShape returns a shape command.
func NewShape(layer Layer, s Shape, transform Transform) Command {
	return Command{kind: KindShape, layer: layer, transform: transform, shape: s}
}

// Kind returns which variant the command holds.
func (c Command) Kind() Kind { return c.kind }

// Layer returns the draw-order bucket.
func (c Command) Layer() Layer { return c.layer }

// Transform returns the command transform.
func (c Command) Transform() Transform { return c.transform }

// Text returns the text payload and whether the command is a text command.
func (c Command) Text() (Text, bool) {
	return c.text, c.kind == KindText
}

// Shape returns the shape payload and whether the command is a shape command.
func (c Command) Shape() (Shape, bool) {
	return c.shape, c.kind == KindShape
}

// String describes the command for logs.
func (c Command) String() string {
	switch c.kind {
	case KindText:
		return fmt.Sprintf("Text(%q, %s)", c.text.Content, c.layer)
	case KindShape:
		n := 0
		if c.shape.Path != nil {
			n = len(c.shape.Path.Verbs())
		}
		return fmt.Sprintf("Shape(%d verbs, %s)", n, c.layer)
	default:
		return "Invalid"
	}
}
