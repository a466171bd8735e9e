package scene

import (
	"errors"
	"testing"

	"github.com/gogpu/gg"
)

var red = gg.RGBA{R: 1, A: 1}

func sampleEncoding(t *testing.T) *Encoding {
	t.Helper()
	enc := NewEncoding()
	enc.PushTransform(TranslateAffine(10, 20))
	enc.EncodePath(NewPath().Rectangle(0, 0, 5, 5))
	enc.EncodeFill(red, FillNonZero)
	enc.EncodePath(NewPath().Circle(3, 3, 2))
	enc.EncodeFill(red, FillEvenOdd)
	if err := enc.PopTransform(); err != nil {
		t.Fatalf("PopTransform: %v", err)
	}
	return enc
}

func TestEncodingBinaryRoundTrip(t *testing.T) {
	enc := sampleEncoding(t)

	data, err := enc.MarshalBinary()
	if err != nil {
		t.Fatalf("MarshalBinary: %v", err)
	}
	if len(data) != enc.BinarySize() {
		t.Errorf("len(data) = %d, BinarySize() = %d", len(data), enc.BinarySize())
	}

	var got Encoding
	if err := got.UnmarshalBinary(data); err != nil {
		t.Fatalf("UnmarshalBinary: %v", err)
	}
	if got.PathCount() != 2 || got.FillCount() != 2 {
		t.Errorf("PathCount/FillCount = %d/%d, want 2/2", got.PathCount(), got.FillCount())
	}
	if len(got.Tags()) != len(enc.Tags()) {
		t.Fatalf("tag count = %d, want %d", len(got.Tags()), len(enc.Tags()))
	}
	for i := range enc.Tags() {
		if got.Tags()[i] != enc.Tags()[i] {
			t.Errorf("tag %d = %v, want %v", i, got.Tags()[i], enc.Tags()[i])
		}
	}
	// Consecutive fills with the same color share one color slot.
	if len(got.colors) != 1 {
		t.Errorf("colors = %d, want 1", len(got.colors))
	}
}

func TestEncodingUnmarshalRejectsCorruptData(t *testing.T) {
	data, err := sampleEncoding(t).MarshalBinary()
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name   string
		mutate func([]byte) []byte
	}{
		{"truncated", func(b []byte) []byte { return b[:len(b)-4] }},
		{"bad magic", func(b []byte) []byte { b[0] = 'X'; return b }},
		{"unknown tag", func(b []byte) []byte { b[headerSize] = 0xEE; return b }},
		{"empty", func([]byte) []byte { return nil }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := tt.mutate(append([]byte(nil), data...))
			var enc Encoding
			if err := enc.UnmarshalBinary(buf); !errors.Is(err, ErrCorrupt) {
				t.Errorf("err = %v, want ErrCorrupt", err)
			}
		})
	}
}

func TestEncodingPopWithoutPush(t *testing.T) {
	enc := NewEncoding()
	if err := enc.PopTransform(); !errors.Is(err, ErrUnbalanced) {
		t.Errorf("err = %v, want ErrUnbalanced", err)
	}
}

func TestEncodingResetKeepsNothing(t *testing.T) {
	enc := sampleEncoding(t)
	enc.Reset()
	if !enc.IsEmpty() || enc.PathCount() != 0 || enc.Depth() != 0 {
		t.Errorf("encoding not empty after Reset")
	}
}

func TestRasterizeAppliesTransformStack(t *testing.T) {
	enc := NewEncoding()
	enc.PushTransform(TranslateAffine(6, 6))
	enc.EncodePath(NewPath().Rectangle(0, 0, 3, 3))
	enc.EncodeFill(red, FillNonZero)
	if err := enc.PopTransform(); err != nil {
		t.Fatal(err)
	}

	dc := gg.NewContext(10, 10)
	defer dc.Close()
	if err := Rasterize(enc, dc, IdentityAffine()); err != nil {
		t.Fatalf("Rasterize: %v", err)
	}

	img := dc.Image()
	if r, _, _, a := img.At(7, 7).RGBA(); r>>8 < 200 || a>>8 < 200 {
		t.Errorf("pixel (7,7) = r%d a%d, want opaque red", r>>8, a>>8)
	}
	if r, _, _, _ := img.At(1, 1).RGBA(); r>>8 > 10 {
		t.Errorf("pixel (1,1) red = %d, want untouched", r>>8)
	}
}

func TestAffineMultiplyOrder(t *testing.T) {
	// Scale then translate: b applies first.
	scale := Affine{A: 2, E: 2}
	m := TranslateAffine(1, 1).Multiply(scale)
	x, y := m.TransformPoint(3, 4)
	if x != 7 || y != 9 {
		t.Errorf("TransformPoint = (%v, %v), want (7, 9)", x, y)
	}
	if !m.IsFinite() {
		t.Error("IsFinite() = false for finite matrix")
	}
}
