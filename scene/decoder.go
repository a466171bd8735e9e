package scene

import (
	"fmt"

	"github.com/gogpu/gg"
)

// Decoder reads an Encoding sequentially. It tracks a position in every
// data stream so each tag's payload is read in order.
//
//	dec := NewDecoder(enc)
//	for dec.Next() {
//	    switch dec.Tag() {
//	    case TagMoveTo:
//	        x, y := dec.Point()
//	    case TagFill:
//	        color, rule := dec.Fill()
//	    }
//	}
type Decoder struct {
	enc *Encoding

	tagIdx   int
	pathIdx  int
	drawIdx  int
	transIdx int

	current Tag
}

// NewDecoder creates a decoder positioned before the first tag.
func NewDecoder(enc *Encoding) *Decoder {
	return &Decoder{enc: enc}
}

// Next advances to the next tag. It returns false at the end of the stream.
func (d *Decoder) Next() bool {
	if d.enc == nil || d.tagIdx >= len(d.enc.tags) {
		return false
	}
	d.current = d.enc.tags[d.tagIdx]
	d.tagIdx++
	return true
}

// Tag returns the current tag.
func (d *Decoder) Tag() Tag { return d.current }

// Coords returns the coordinates for the current path tag:
// 2 for MoveTo/LineTo, 4 for QuadTo, 6 for CubicTo, none otherwise.
func (d *Decoder) Coords() []float32 {
	n := d.current.pathFloats()
	if n == 0 || d.pathIdx+n > len(d.enc.pathData) {
		return nil
	}
	pts := d.enc.pathData[d.pathIdx : d.pathIdx+n]
	d.pathIdx += n
	return pts
}

// Point returns the end point of a MoveTo or LineTo tag.
func (d *Decoder) Point() (x, y float32) {
	pts := d.Coords()
	if len(pts) < 2 {
		return 0, 0
	}
	return pts[0], pts[1]
}

// Transform returns the affine of a TagPushTransform.
func (d *Decoder) Transform() Affine {
	if d.transIdx >= len(d.enc.transforms) {
		return IdentityAffine()
	}
	t := d.enc.transforms[d.transIdx]
	d.transIdx++
	return t
}

// Fill returns the color and rule of a TagFill.
func (d *Decoder) Fill() (gg.RGBA, FillRule) {
	if d.drawIdx+2 > len(d.enc.drawData) {
		return gg.RGBA{}, FillNonZero
	}
	idx, rule := d.enc.drawData[d.drawIdx], d.enc.drawData[d.drawIdx+1]
	d.drawIdx += 2
	if int(idx) >= len(d.enc.colors) {
		return gg.RGBA{}, FillRule(rule)
	}
	c := d.enc.colors[idx]
	return gg.RGBA{R: float64(c[0]), G: float64(c[1]), B: float64(c[2]), A: float64(c[3])}, FillRule(rule)
}

// Rasterize replays enc onto dc. Paths are mapped through the encoded
// transform stack composed with base; fills use the encoded colors.
// Unbalanced pops are reported as ErrUnbalanced after the replay finishes.
func Rasterize(enc *Encoding, dc *gg.Context, base Affine) error {
	stack := make([]Affine, 0, 8)
	current := base
	var unbalanced bool

	dec := NewDecoder(enc)
	for dec.Next() {
		switch dec.Tag() {
		case TagPushTransform:
			stack = append(stack, current)
			current = current.Multiply(dec.Transform())
		case TagPopTransform:
			if len(stack) == 0 {
				unbalanced = true
				continue
			}
			current = stack[len(stack)-1]
			stack = stack[:len(stack)-1]
		case TagBeginPath:
			dc.ClearPath()
			dc.SetTransform(current.Matrix())
		case TagMoveTo:
			x, y := dec.Point()
			dc.MoveTo(float64(x), float64(y))
		case TagLineTo:
			x, y := dec.Point()
			dc.LineTo(float64(x), float64(y))
		case TagQuadTo:
			p := dec.Coords()
			dc.QuadraticTo(float64(p[0]), float64(p[1]), float64(p[2]), float64(p[3]))
		case TagCubicTo:
			p := dec.Coords()
			dc.CubicTo(float64(p[0]), float64(p[1]), float64(p[2]), float64(p[3]), float64(p[4]), float64(p[5]))
		case TagClosePath:
			dc.ClosePath()
		case TagFill:
			c, rule := dec.Fill()
			dc.SetColor(c.Color())
			if rule == FillEvenOdd {
				dc.SetFillRule(gg.FillRuleEvenOdd)
			} else {
				dc.SetFillRule(gg.FillRuleNonZero)
			}
			if err := dc.Fill(); err != nil {
				return fmt.Errorf("scene: fill: %w", err)
			}
		}
	}
	dc.SetTransform(gg.Identity())
	if unbalanced {
		return ErrUnbalanced
	}
	return nil
}
