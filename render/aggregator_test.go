// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package render

import (
	"errors"
	"math"
	"testing"

	"github.com/gogpu/gg"

	"github.com/gogpu/ggframe/scene"
)

func newTestLayouter(t *testing.T) *TextLayouter {
	t.Helper()
	l, err := NewDefaultTextLayouter()
	if err != nil {
		t.Fatalf("NewDefaultTextLayouter: %v", err)
	}
	t.Cleanup(func() { _ = l.Close() })
	return l
}

func textCmd(layer Layer, s string) Command {
	return NewText(layer, Text{Content: s, Size: 16, Color: gg.RGBA{A: 1}}, FromXYZ(10, 20, 0))
}

func square(layer Layer, name string) Command {
	// The color's red channel carries the name's first byte so tests can
	// tell shapes apart.
	return NewShape(layer, Shape{
		Path:  scene.NewPath().Rectangle(0, 0, 4, 4),
		Color: gg.RGBA{R: float64(name[0]) / 255, A: 1},
	}, IdentityTransform())
}

func names(cmds []Command) []string {
	out := make([]string, 0, len(cmds))
	for _, c := range cmds {
		switch c.Kind() {
		case KindText:
			txt, _ := c.Text()
			out = append(out, txt.Content)
		case KindShape:
			s, _ := c.Shape()
			out = append(out, string(rune(math.Round(s.Color.R*255))))
		}
	}
	return out
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestAggregatorLayerOrder(t *testing.T) {
	tests := []struct {
		name string
		cmds []Command
		want []string
	}{
		{
			name: "foreground background middle background",
			cmds: []Command{
				square(Foreground, "f"),
				square(Background, "a"),
				square(Middle, "m"),
				square(Background, "b"),
			},
			want: []string{"a", "b", "m", "f"},
		},
		{
			name: "single layer keeps arrival order",
			cmds: []Command{square(Middle, "x"), square(Middle, "y"), square(Middle, "z")},
			want: []string{"x", "y", "z"},
		},
		{
			name: "empty",
			want: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := NewQueue()
			for _, c := range tt.cmds {
				q.Send(c)
			}
			dc := NewDrawContext()

			report := NewAggregator(nil).Prepare(q, dc)

			if got := names(report.Executed); !equal(got, tt.want) {
				t.Errorf("executed %v, want %v", got, tt.want)
			}
			if len(report.Failures) != 0 {
				t.Errorf("unexpected failures: %v", report.Failures)
			}
			if q.Len() != 0 {
				t.Errorf("queue not drained: %d left", q.Len())
			}
			// push, fill, pop per shape
			if dc.Len() != 3*len(tt.cmds) {
				t.Errorf("context ops = %d, want %d", dc.Len(), 3*len(tt.cmds))
			}
		})
	}
}

func TestAggregatorTextScenario(t *testing.T) {
	q := NewQueue()
	q.Send(textCmd(Foreground, "A"))
	q.Send(textCmd(Background, "B"))
	q.Send(textCmd(Middle, "C"))

	dc := NewDrawContext()
	report := NewAggregator(newTestLayouter(t)).Prepare(q, dc)

	if got, want := names(report.Executed), []string{"B", "C", "A"}; !equal(got, want) {
		t.Fatalf("executed %v, want %v", got, want)
	}

	var drawn []string
	for _, op := range dc.Ops() {
		if op.Kind == OpDrawText {
			drawn = append(drawn, op.Layout.Content)
		}
	}
	if want := []string{"B", "C", "A"}; !equal(drawn, want) {
		t.Errorf("drawing context received %v, want %v", drawn, want)
	}
}

func TestAggregatorSkipsFailingCommands(t *testing.T) {
	nan := float32(math.NaN())

	q := NewQueue()
	q.Send(textCmd(Foreground, "ok"))
	q.Send(textCmd(Foreground, "\U0001F600")) // not in Go Regular
	q.Send(textCmd(Foreground, ""))
	q.Send(NewShape(Middle, Shape{}, IdentityTransform()))
	q.Send(NewShape(Middle, Shape{Path: scene.NewPath().Rectangle(0, 0, 1, 1)}, FromXYZ(nan, 0, 0)))
	q.Send(Command{})
	q.Send(square(Background, "s"))

	dc := NewDrawContext()
	report := NewAggregator(newTestLayouter(t)).Prepare(q, dc)

	if got, want := names(report.Executed), []string{"s", "ok"}; !equal(got, want) {
		t.Errorf("executed %v, want %v", got, want)
	}

	wantErrs := map[int]error{
		1: ErrMissingGlyph,
		2: ErrEmptyText,
		3: ErrEmptyShape,
		4: ErrNonFiniteTransform,
		5: ErrUnknownKind,
	}
	if len(report.Failures) != len(wantErrs) {
		t.Fatalf("failures = %v, want %d", report.Failures, len(wantErrs))
	}
	for _, f := range report.Failures {
		if want := wantErrs[f.Index]; !errors.Is(f, want) {
			t.Errorf("failure %d = %v, want %v", f.Index, f.Err, want)
		}
	}

	// Failed commands leave no partial push behind.
	var enc scene.Encoding
	if err := dc.Encode(&enc); err != nil {
		t.Errorf("Encode after failures: %v", err)
	}
}

func TestAggregatorIsDeterministic(t *testing.T) {
	build := func() []string {
		q := NewQueue()
		for _, c := range []Command{
			square(Middle, "1"), square(Foreground, "2"), square(Background, "3"),
			square(Middle, "4"), square(Background, "5"),
		} {
			q.Send(c)
		}
		return names(NewAggregator(nil).Prepare(q, NewDrawContext()).Executed)
	}

	first := build()
	for i := 0; i < 5; i++ {
		if got := build(); !equal(got, first) {
			t.Fatalf("run %d executed %v, first run %v", i, got, first)
		}
	}
}

func TestQueueUpdateDropsUndrained(t *testing.T) {
	q := NewQueue()
	q.Send(square(Middle, "a"))
	q.Send(square(Middle, "b"))

	if n := q.Update(); n != 2 {
		t.Errorf("Update() = %d, want 2", n)
	}
	if q.Len() != 0 || q.Dropped() != 2 {
		t.Errorf("Len=%d Dropped=%d after Update", q.Len(), q.Dropped())
	}
}
