// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package render

import (
	"bytes"
	"errors"
	"fmt"
	"sync"
	"unicode"

	"github.com/go-text/typesetting/di"
	"github.com/go-text/typesetting/font"
	"github.com/go-text/typesetting/language"
	"github.com/go-text/typesetting/shaping"
	"github.com/gogpu/gg/text"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/math/fixed"
	"golang.org/x/text/unicode/bidi"

	"github.com/gogpu/ggframe/internal/cache"
	"github.com/gogpu/ggframe/scene"
)

// Text layout errors. Each one fails a single command.
var (
	ErrEmptyText       = errors.New("render: empty text")
	ErrInvalidFontSize = errors.New("render: invalid font size")
	ErrMissingGlyph    = errors.New("render: glyph missing from face")
)

// DefaultLayoutCacheSize is the number of layouts kept between frames.
const DefaultLayoutCacheSize = 256

// MaxFontSize is the largest accepted font size in pixels. Sizes are
// shaped in 26.6 fixed point, which overflows near 2^25.
const MaxFontSize = 1 << 16

// Layout is a shaped text run converted to outline geometry. The path is
// in pixels with the baseline origin at (0, 0) and y pointing down.
type Layout struct {
	Content string
	Size    float64
	Path    *scene.Path
	Advance float32
	Glyphs  int
	RTL     bool
}

// TextLayouter shapes strings with HarfBuzz and extracts glyph outlines.
// Layouts are cached by content and size, so a label that does not change
// is shaped once.
type TextLayouter struct {
	source   *text.FontSource
	outlines *text.OutlineExtractor
	layouts  *cache.Cache[layoutKey, *Layout]

	// mu guards face and shaper; neither is safe for concurrent use.
	mu     sync.Mutex
	face   *font.Face
	shaper shaping.HarfbuzzShaper
}

type layoutKey struct {
	content string
	size    float64
}

// NewTextLayouter creates a layouter for a TrueType/OpenType font.
func NewTextLayouter(fontData []byte, cacheSize int) (*TextLayouter, error) {
	source, err := text.NewFontSource(fontData)
	if err != nil {
		return nil, fmt.Errorf("render: load font: %w", err)
	}
	face, err := font.ParseTTF(bytes.NewReader(fontData))
	if err != nil {
		return nil, fmt.Errorf("render: parse font for shaping: %w", err)
	}
	return &TextLayouter{
		source:   source,
		outlines: text.NewOutlineExtractor(),
		layouts:  cache.New[layoutKey, *Layout](cacheSize),
		face:     face,
	}, nil
}

// NewDefaultTextLayouter creates a layouter using the Go Regular font.
func NewDefaultTextLayouter() (*TextLayouter, error) {
	return NewTextLayouter(goregular.TTF, DefaultLayoutCacheSize)
}

// Layout returns the layout for content at size, building it on a miss.
func (l *TextLayouter) Layout(content string, size float64) (*Layout, error) {
	if content == "" {
		return nil, ErrEmptyText
	}
	if !(size > 0 && size <= MaxFontSize) {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFontSize, size)
	}
	return l.layouts.GetOrCreate(layoutKey{content, size}, func() (*Layout, error) {
		return l.build(content, size)
	})
}

// CacheStats reports layout cache statistics.
func (l *TextLayouter) CacheStats() cache.Stats {
	return l.layouts.Stats()
}

// Close releases the font source.
func (l *TextLayouter) Close() error {
	l.layouts.Clear()
	return l.source.Close()
}

func (l *TextLayouter) build(content string, size float64) (*Layout, error) {
	face := l.source.Face(size)
	for _, r := range content {
		if unicode.IsSpace(r) || unicode.IsControl(r) {
			continue
		}
		if !face.HasGlyph(r) {
			return nil, fmt.Errorf("%w: %q", ErrMissingGlyph, r)
		}
	}

	runes := []rune(content)
	rtl := isRightToLeft(content)
	dir := di.DirectionLTR
	if rtl {
		dir = di.DirectionRTL
	}

	l.mu.Lock()
	out := l.shaper.Shape(shaping.Input{
		Text:      runes,
		RunStart:  0,
		RunEnd:    len(runes),
		Direction: dir,
		Face:      l.face,
		Size:      fixed.Int26_6(size * 64),
		Script:    scriptOf(runes),
		Language:  language.NewLanguage("en"),
	})
	l.mu.Unlock()

	layout := &Layout{
		Content: content,
		Size:    size,
		Path:    scene.NewPath(),
		Glyphs:  len(out.Glyphs),
		RTL:     rtl,
	}
	var pen float32
	for _, g := range out.Glyphs {
		gid := text.GlyphID(uint16(g.GlyphID)) //nolint:gosec // glyph ids fit in 16 bits
		outline, err := l.outlines.ExtractOutline(l.source.Parsed(), gid, size)
		if err != nil {
			return nil, fmt.Errorf("render: outline for glyph %d: %w", gid, err)
		}
		x := pen + fixedToFloat(g.XOffset)
		y := -fixedToFloat(g.YOffset)
		appendOutline(layout.Path, outline, x, y)
		pen += fixedToFloat(g.Advance)
	}
	layout.Advance = pen
	return layout, nil
}

// appendOutline adds a glyph outline at (x, y). Font units point up, so
// y is flipped for screen space.
func appendOutline(p *scene.Path, o *text.GlyphOutline, x, y float32) {
	if o == nil || o.IsEmpty() {
		return
	}
	for _, seg := range o.Segments {
		pt := seg.Points
		switch seg.Op {
		case text.OutlineOpMoveTo:
			p.MoveTo(x+pt[0].X, y-pt[0].Y)
		case text.OutlineOpLineTo:
			p.LineTo(x+pt[0].X, y-pt[0].Y)
		case text.OutlineOpQuadTo:
			p.QuadTo(x+pt[0].X, y-pt[0].Y, x+pt[1].X, y-pt[1].Y)
		case text.OutlineOpCubicTo:
			p.CubicTo(x+pt[0].X, y-pt[0].Y, x+pt[1].X, y-pt[1].Y, x+pt[2].X, y-pt[2].Y)
		}
	}
	p.Close()
}

// isRightToLeft reports whether most of the text falls in right-to-left
// bidi runs.
func isRightToLeft(s string) bool {
	var p bidi.Paragraph
	if _, err := p.SetString(s, bidi.DefaultDirection(bidi.Neutral)); err != nil {
		return false
	}
	ordering, err := p.Order()
	if err != nil {
		return false
	}
	var rtl, total int
	for i := 0; i < ordering.NumRuns(); i++ {
		run := ordering.Run(i)
		start, end := run.Pos()
		n := end - start + 1
		total += n
		if run.Direction() == bidi.RightToLeft {
			rtl += n
		}
	}
	return total > 0 && rtl*2 > total
}

// scriptOf returns the script of the first non-space rune.
func scriptOf(runes []rune) language.Script {
	for _, r := range runes {
		if !unicode.IsSpace(r) {
			return language.LookupScript(r)
		}
	}
	return language.Latin
}

func fixedToFloat(v fixed.Int26_6) float32 {
	return float32(v) / 64
}
