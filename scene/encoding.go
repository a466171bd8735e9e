package scene

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/gogpu/gg"
)

// Errors returned by the encoding.
var (
	// ErrCorrupt is returned when a serialized encoding is truncated or
	// its streams are inconsistent with the tag stream.
	ErrCorrupt = errors.New("scene: corrupt encoding")

	// ErrNonFinite is returned for coordinates or transforms containing
	// NaN or infinity.
	ErrNonFinite = errors.New("scene: non-finite value")

	// ErrUnbalanced is returned when transform pops outnumber pushes.
	ErrUnbalanced = errors.New("scene: unbalanced transform stack")
)

// Affine is a 2D affine transformation stored row-major:
//
//	| A  B  C |
//	| D  E  F |
//
// A point (x, y) maps to (A*x + B*y + C, D*x + E*y + F).
type Affine struct {
	A, B, C float32
	D, E, F float32
}

// IdentityAffine returns the identity transformation.
func IdentityAffine() Affine {
	return Affine{A: 1, E: 1}
}

// TranslateAffine creates a translation.
func TranslateAffine(x, y float32) Affine {
	return Affine{A: 1, C: x, E: 1, F: y}
}

// Multiply returns a*b: b is applied first.
func (a Affine) Multiply(b Affine) Affine {
	return Affine{
		A: a.A*b.A + a.B*b.D,
		B: a.A*b.B + a.B*b.E,
		C: a.A*b.C + a.B*b.F + a.C,
		D: a.D*b.A + a.E*b.D,
		E: a.D*b.B + a.E*b.E,
		F: a.D*b.C + a.E*b.F + a.F,
	}
}

// TransformPoint maps a point through the affine.
func (a Affine) TransformPoint(x, y float32) (float32, float32) {
	return a.A*x + a.B*y + a.C, a.D*x + a.E*y + a.F
}

// IsFinite reports whether every coefficient is a finite number.
func (a Affine) IsFinite() bool {
	for _, v := range [6]float32{a.A, a.B, a.C, a.D, a.E, a.F} {
		if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
			return false
		}
	}
	return true
}

// Matrix converts the affine to a gg.Matrix.
func (a Affine) Matrix() gg.Matrix {
	return gg.Matrix{
		A: float64(a.A), B: float64(a.B), C: float64(a.C),
		D: float64(a.D), E: float64(a.E), F: float64(a.F),
	}
}

// AffineFromMatrix converts a gg.Matrix to an Affine.
func AffineFromMatrix(m gg.Matrix) Affine {
	return Affine{
		A: float32(m.A), B: float32(m.B), C: float32(m.C),
		D: float32(m.D), E: float32(m.E), F: float32(m.F),
	}
}

// Encoding holds a display list as a tag stream plus typed data streams.
// The zero value is ready to use.
type Encoding struct {
	tags       []Tag
	pathData   []float32
	drawData   []uint32
	transforms []Affine
	colors     [][4]float32

	depth     int
	pathCount int
	fillCount int
}

// NewEncoding creates an empty encoding with preallocated streams.
func NewEncoding() *Encoding {
	return &Encoding{
		tags:       make([]Tag, 0, 64),
		pathData:   make([]float32, 0, 256),
		drawData:   make([]uint32, 0, 32),
		transforms: make([]Affine, 0, 8),
		colors:     make([][4]float32, 0, 8),
	}
}

// Reset clears the encoding for reuse, keeping capacity.
func (e *Encoding) Reset() {
	e.tags = e.tags[:0]
	e.pathData = e.pathData[:0]
	e.drawData = e.drawData[:0]
	e.transforms = e.transforms[:0]
	e.colors = e.colors[:0]
	e.depth = 0
	e.pathCount = 0
	e.fillCount = 0
}

// PushTransform multiplies t onto the current transform.
func (e *Encoding) PushTransform(t Affine) {
	e.tags = append(e.tags, TagPushTransform)
	e.transforms = append(e.transforms, t)
	e.depth++
}

// PopTransform restores the previous transform.
func (e *Encoding) PopTransform() error {
	if e.depth == 0 {
		return ErrUnbalanced
	}
	e.tags = append(e.tags, TagPopTransform)
	e.depth--
	return nil
}

// EncodePath appends a path. A nil or empty path encodes nothing.
func (e *Encoding) EncodePath(p *Path) {
	if p.IsEmpty() {
		return
	}
	e.tags = append(e.tags, TagBeginPath)
	pts := p.points
	for _, v := range p.verbs {
		e.tags = append(e.tags, v.tag())
		n := v.floats()
		e.pathData = append(e.pathData, pts[:n]...)
		pts = pts[n:]
	}
	e.pathCount++
}

// EncodeFill fills the most recently encoded path with a solid color.
func (e *Encoding) EncodeFill(c gg.RGBA, rule FillRule) {
	idx := e.colorIndex(c)
	e.tags = append(e.tags, TagFill)
	e.drawData = append(e.drawData, idx, uint32(rule))
	e.fillCount++
}

// colorIndex returns the index of c in the color stream, appending it if
// it is not the most recent entry. Runs of the same color share one slot.
func (e *Encoding) colorIndex(c gg.RGBA) uint32 {
	v := [4]float32{float32(c.R), float32(c.G), float32(c.B), float32(c.A)}
	if n := len(e.colors); n > 0 && e.colors[n-1] == v {
		return uint32(n - 1)
	}
	e.colors = append(e.colors, v)
	return uint32(len(e.colors) - 1)
}

// Depth returns the number of unmatched transform pushes.
func (e *Encoding) Depth() int { return e.depth }

// Tags returns the tag stream.
func (e *Encoding) Tags() []Tag { return e.tags }

// PathCount returns the number of encoded paths.
func (e *Encoding) PathCount() int { return e.pathCount }

// FillCount returns the number of encoded fills.
func (e *Encoding) FillCount() int { return e.fillCount }

// IsEmpty reports whether nothing has been encoded.
func (e *Encoding) IsEmpty() bool { return len(e.tags) == 0 }

// Binary layout, little-endian:
//
//	magic   [4]byte "GGSC"
//	version uint32
//	counts  5 x uint32 (tags, pathData, drawData, transforms, colors)
//	tags    padded to a multiple of 4 bytes
//	pathData, drawData, transforms (6 x f32), colors (4 x f32)
const (
	encodingMagic   = "GGSC"
	encodingVersion = 1
	headerSize      = 4 + 4 + 5*4
)

// BinarySize returns the number of bytes MarshalBinary produces.
func (e *Encoding) BinarySize() int {
	return headerSize + align4(len(e.tags)) +
		4*len(e.pathData) + 4*len(e.drawData) +
		24*len(e.transforms) + 16*len(e.colors)
}

// MarshalBinary serializes the encoding into its upload layout.
func (e *Encoding) MarshalBinary() ([]byte, error) {
	return e.AppendBinary(make([]byte, 0, e.BinarySize()))
}

// AppendBinary appends the upload layout to buf.
func (e *Encoding) AppendBinary(buf []byte) ([]byte, error) {
	le := binary.LittleEndian
	buf = append(buf, encodingMagic...)
	buf = le.AppendUint32(buf, encodingVersion)
	for _, n := range []int{len(e.tags), len(e.pathData), len(e.drawData), len(e.transforms), len(e.colors)} {
		buf = le.AppendUint32(buf, uint32(n))
	}
	for _, t := range e.tags {
		buf = append(buf, byte(t))
	}
	for i := len(e.tags); i < align4(len(e.tags)); i++ {
		buf = append(buf, 0)
	}
	for _, v := range e.pathData {
		buf = le.AppendUint32(buf, math.Float32bits(v))
	}
	for _, v := range e.drawData {
		buf = le.AppendUint32(buf, v)
	}
	for _, t := range e.transforms {
		for _, v := range [6]float32{t.A, t.B, t.C, t.D, t.E, t.F} {
			buf = le.AppendUint32(buf, math.Float32bits(v))
		}
	}
	for _, c := range e.colors {
		for _, v := range c {
			buf = le.AppendUint32(buf, math.Float32bits(v))
		}
	}
	return buf, nil
}

// UnmarshalBinary replaces the encoding with the decoded upload layout.
// The tag stream is validated against the data streams.
func (e *Encoding) UnmarshalBinary(data []byte) error {
	if len(data) < headerSize || string(data[:4]) != encodingMagic {
		return fmt.Errorf("%w: bad header", ErrCorrupt)
	}
	le := binary.LittleEndian
	if v := le.Uint32(data[4:]); v != encodingVersion {
		return fmt.Errorf("%w: unsupported version %d", ErrCorrupt, v)
	}
	var counts [5]int
	for i := range counts {
		counts[i] = int(le.Uint32(data[8+4*i:]))
	}
	nTags, nPath, nDraw, nTrans, nColors := counts[0], counts[1], counts[2], counts[3], counts[4]

	want := headerSize + align4(nTags) + 4*nPath + 4*nDraw + 24*nTrans + 16*nColors
	if len(data) != want {
		return fmt.Errorf("%w: size %d, header describes %d", ErrCorrupt, len(data), want)
	}

	e.Reset()
	off := headerSize
	for _, b := range data[off : off+nTags] {
		e.tags = append(e.tags, Tag(b))
	}
	off += align4(nTags)
	f32 := func() float32 {
		v := math.Float32frombits(le.Uint32(data[off:]))
		off += 4
		return v
	}
	for range nPath {
		e.pathData = append(e.pathData, f32())
	}
	for range nDraw {
		e.drawData = append(e.drawData, le.Uint32(data[off:]))
		off += 4
	}
	for range nTrans {
		e.transforms = append(e.transforms, Affine{A: f32(), B: f32(), C: f32(), D: f32(), E: f32(), F: f32()})
	}
	for range nColors {
		e.colors = append(e.colors, [4]float32{f32(), f32(), f32(), f32()})
	}
	return e.validate()
}

// validate walks the tag stream and checks that every tag has its data and
// every stream is fully consumed. It recomputes the counters.
func (e *Encoding) validate() error {
	var path, draw, trans int
	for i, t := range e.tags {
		if !t.valid() {
			return fmt.Errorf("%w: unknown tag 0x%02x at %d", ErrCorrupt, byte(t), i)
		}
		path += t.pathFloats()
		switch t {
		case TagPushTransform:
			trans++
			e.depth++
		case TagPopTransform:
			if e.depth == 0 {
				return fmt.Errorf("%w at tag %d", ErrUnbalanced, i)
			}
			e.depth--
		case TagBeginPath:
			e.pathCount++
		case TagFill:
			if draw+2 > len(e.drawData) || int(e.drawData[draw]) >= len(e.colors) {
				return fmt.Errorf("%w: fill at tag %d has no color", ErrCorrupt, i)
			}
			draw += 2
			e.fillCount++
		}
	}
	if path != len(e.pathData) || draw != len(e.drawData) || trans != len(e.transforms) {
		return fmt.Errorf("%w: stream lengths do not match tags", ErrCorrupt)
	}
	return nil
}

func align4(n int) int {
	return (n + 3) &^ 3
}
