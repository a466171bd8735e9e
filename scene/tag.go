// Package scene is the uploadable form of a frame's display list.
//
// A DrawContext is flattened into an Encoding: a one-byte tag stream plus
// separate data streams for path coordinates, draw parameters, transforms
// and colors. The encoding serializes to a little-endian byte buffer that a
// backend copies into a per-slot staging buffer, and decodes back on the
// device side for rasterization.
package scene

// Tag is a single-byte command identifier in the encoding stream.
// Tags are grouped by their high nibble:
//
//	0x0X: transform stack operations
//	0x1X: path commands
//	0x2X: draw operations
type Tag byte

const (
	// TagPushTransform multiplies the current transform by an affine and
	// saves the previous one. Data: 1 Affine in the transform stream.
	TagPushTransform Tag = 0x01

	// TagPopTransform restores the transform saved by the matching push.
	TagPopTransform Tag = 0x02

	// TagBeginPath starts a new path. Data: none.
	TagBeginPath Tag = 0x10

	// TagMoveTo data: 2 float32 [x, y].
	TagMoveTo Tag = 0x11

	// TagLineTo data: 2 float32 [x, y].
	TagLineTo Tag = 0x12

	// TagQuadTo data: 4 float32 [cx, cy, x, y].
	TagQuadTo Tag = 0x13

	// TagCubicTo data: 6 float32 [c1x, c1y, c2x, c2y, x, y].
	TagCubicTo Tag = 0x14

	// TagClosePath closes the current subpath. Data: none.
	TagClosePath Tag = 0x16

	// TagFill fills the current path and ends it.
	// Data: 2 uint32 [color index, fill rule].
	TagFill Tag = 0x20
)

// unknownStr is returned for unknown enum values.
const unknownStr = "Unknown"

// String returns a human-readable name for the tag.
func (t Tag) String() string {
	switch t {
	case TagPushTransform:
		return "PushTransform"
	case TagPopTransform:
		return "PopTransform"
	case TagBeginPath:
		return "BeginPath"
	case TagMoveTo:
		return "MoveTo"
	case TagLineTo:
		return "LineTo"
	case TagQuadTo:
		return "QuadTo"
	case TagCubicTo:
		return "CubicTo"
	case TagClosePath:
		return "ClosePath"
	case TagFill:
		return "Fill"
	default:
		return unknownStr
	}
}

// pathFloats returns how many float32 values the tag consumes from the
// path stream.
func (t Tag) pathFloats() int {
	switch t {
	case TagMoveTo, TagLineTo:
		return 2
	case TagQuadTo:
		return 4
	case TagCubicTo:
		return 6
	default:
		return 0
	}
}

// valid reports whether t is a known tag.
func (t Tag) valid() bool {
	return t.String() != unknownStr
}

// FillRule selects the winding rule for TagFill.
type FillRule uint32

const (
	// FillNonZero uses the non-zero winding rule.
	FillNonZero FillRule = 0
	// FillEvenOdd uses the even-odd rule.
	FillEvenOdd FillRule = 1
)
