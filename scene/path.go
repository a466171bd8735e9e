package scene

import "math"

// Verb is a path construction command.
type Verb uint8

const (
	VerbMoveTo Verb = iota
	VerbLineTo
	VerbQuadTo
	VerbCubicTo
	VerbClose
)

// String returns a human-readable name for the verb.
func (v Verb) String() string {
	switch v {
	case VerbMoveTo:
		return "MoveTo"
	case VerbLineTo:
		return "LineTo"
	case VerbQuadTo:
		return "QuadTo"
	case VerbCubicTo:
		return "CubicTo"
	case VerbClose:
		return "Close"
	default:
		return unknownStr
	}
}

// floats returns how many coordinates the verb consumes.
func (v Verb) floats() int {
	switch v {
	case VerbMoveTo, VerbLineTo:
		return 2
	case VerbQuadTo:
		return 4
	case VerbCubicTo:
		return 6
	default:
		return 0
	}
}

// tag maps a verb to its encoding tag.
func (v Verb) tag() Tag {
	switch v {
	case VerbMoveTo:
		return TagMoveTo
	case VerbLineTo:
		return TagLineTo
	case VerbQuadTo:
		return TagQuadTo
	case VerbCubicTo:
		return TagCubicTo
	default:
		return TagClosePath
	}
}

// Path is a vector path in local coordinates. Verbs and coordinates are
// stored in separate streams so a path appends to an Encoding without
// reshaping.
//
// A Path is immutable once handed to a draw command; producers share the
// same Path across frames.
type Path struct {
	verbs  []Verb
	points []float32
	bounds Rect
}

// NewPath creates an empty path.
func NewPath() *Path {
	return &Path{bounds: EmptyRect()}
}

// MoveTo begins a new subpath.
func (p *Path) MoveTo(x, y float32) *Path {
	return p.add(VerbMoveTo, x, y)
}

// LineTo draws a line from the current point to (x, y).
func (p *Path) LineTo(x, y float32) *Path {
	return p.add(VerbLineTo, x, y)
}

// QuadTo draws a quadratic Bezier curve through control point (cx, cy).
func (p *Path) QuadTo(cx, cy, x, y float32) *Path {
	return p.add(VerbQuadTo, cx, cy, x, y)
}

// CubicTo draws a cubic Bezier curve.
func (p *Path) CubicTo(c1x, c1y, c2x, c2y, x, y float32) *Path {
	return p.add(VerbCubicTo, c1x, c1y, c2x, c2y, x, y)
}

// Close closes the current subpath.
func (p *Path) Close() *Path {
	p.verbs = append(p.verbs, VerbClose)
	return p
}

func (p *Path) add(v Verb, coords ...float32) *Path {
	p.verbs = append(p.verbs, v)
	p.points = append(p.points, coords...)
	// Control points make the bounds conservative, which is all culling needs.
	for i := 0; i+1 < len(coords); i += 2 {
		p.bounds = p.bounds.UnionPoint(coords[i], coords[i+1])
	}
	return p
}

// Rectangle adds a closed axis-aligned rectangle.
func (p *Path) Rectangle(x, y, w, h float32) *Path {
	return p.MoveTo(x, y).LineTo(x+w, y).LineTo(x+w, y+h).LineTo(x, y+h).Close()
}

// kappa approximates a quarter circle with one cubic: 4*(sqrt(2)-1)/3.
const kappa = 0.5522847498

// Ellipse adds a closed ellipse centered on (cx, cy).
func (p *Path) Ellipse(cx, cy, rx, ry float32) *Path {
	kx, ky := kappa*rx, kappa*ry
	p.MoveTo(cx+rx, cy)
	p.CubicTo(cx+rx, cy+ky, cx+kx, cy+ry, cx, cy+ry)
	p.CubicTo(cx-kx, cy+ry, cx-rx, cy+ky, cx-rx, cy)
	p.CubicTo(cx-rx, cy-ky, cx-kx, cy-ry, cx, cy-ry)
	p.CubicTo(cx+kx, cy-ry, cx+rx, cy-ky, cx+rx, cy)
	return p.Close()
}

// Circle adds a closed circle.
func (p *Path) Circle(cx, cy, r float32) *Path {
	return p.Ellipse(cx, cy, r, r)
}

// Polygon adds a closed polygon through the given points.
// pts holds x, y pairs; fewer than 3 points add nothing.
func (p *Path) Polygon(pts ...float32) *Path {
	if len(pts) < 6 {
		return p
	}
	p.MoveTo(pts[0], pts[1])
	for i := 2; i+1 < len(pts); i += 2 {
		p.LineTo(pts[i], pts[i+1])
	}
	return p.Close()
}

// Bounds returns a conservative bounding box including control points.
func (p *Path) Bounds() Rect {
	return p.bounds
}

// IsEmpty reports whether the path has no verbs.
func (p *Path) IsEmpty() bool {
	return p == nil || len(p.verbs) == 0
}

// Verbs returns the verb stream.
func (p *Path) Verbs() []Verb {
	return p.verbs
}

// Points returns the coordinate stream.
func (p *Path) Points() []float32 {
	return p.points
}

// Validate reports ErrNonFinite if any coordinate is NaN or infinite.
func (p *Path) Validate() error {
	for _, v := range p.points {
		if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
			return ErrNonFinite
		}
	}
	return nil
}

// Transform returns a copy of the path with every point mapped through a.
func (p *Path) Transform(a Affine) *Path {
	out := &Path{
		verbs:  append([]Verb(nil), p.verbs...),
		points: make([]float32, len(p.points)),
		bounds: EmptyRect(),
	}
	for i := 0; i+1 < len(p.points); i += 2 {
		x, y := a.TransformPoint(p.points[i], p.points[i+1])
		out.points[i], out.points[i+1] = x, y
		out.bounds = out.bounds.UnionPoint(x, y)
	}
	return out
}

// Append adds all subpaths of other to p.
func (p *Path) Append(other *Path) *Path {
	if other.IsEmpty() {
		return p
	}
	p.verbs = append(p.verbs, other.verbs...)
	p.points = append(p.points, other.points...)
	p.bounds = p.bounds.Union(other.bounds)
	return p
}

// Rect is an axis-aligned bounding box.
type Rect struct {
	MinX, MinY float32
	MaxX, MaxY float32
}

// EmptyRect returns an inverted rectangle, the identity for Union.
func EmptyRect() Rect {
	return Rect{
		MinX: math.MaxFloat32, MinY: math.MaxFloat32,
		MaxX: -math.MaxFloat32, MaxY: -math.MaxFloat32,
	}
}

// IsEmpty reports whether the rectangle has no area.
func (r Rect) IsEmpty() bool {
	return r.MinX >= r.MaxX || r.MinY >= r.MaxY
}

// Union returns the smallest rectangle containing r and o.
func (r Rect) Union(o Rect) Rect {
	return Rect{
		MinX: min(r.MinX, o.MinX), MinY: min(r.MinY, o.MinY),
		MaxX: max(r.MaxX, o.MaxX), MaxY: max(r.MaxY, o.MaxY),
	}
}

// UnionPoint expands the rectangle to include (x, y).
func (r Rect) UnionPoint(x, y float32) Rect {
	return Rect{
		MinX: min(r.MinX, x), MinY: min(r.MinY, y),
		MaxX: max(r.MaxX, x), MaxY: max(r.MaxY, y),
	}
}
