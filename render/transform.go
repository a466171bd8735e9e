// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package render

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/gogpu/ggframe/scene"
)

// Transform is a resolved translation, rotation and scale. Producers copy
// an entity's global transform into their commands; Z orders instances
// within a layer and is otherwise ignored by the 2D raster.
type Transform struct {
	Translation mgl32.Vec3
	Rotation    mgl32.Quat
	Scale       mgl32.Vec3
}

// IdentityTransform returns the transform that leaves points unchanged.
func IdentityTransform() Transform {
	return Transform{
		Rotation: mgl32.QuatIdent(),
		Scale:    mgl32.Vec3{1, 1, 1},
	}
}

// FromXYZ returns a pure translation.
func FromXYZ(x, y, z float32) Transform {
	t := IdentityTransform()
	t.Translation = mgl32.Vec3{x, y, z}
	return t
}

// WithScale returns t with its scale replaced.
func (t Transform) WithScale(x, y, z float32) Transform {
	t.Scale = mgl32.Vec3{x, y, z}
	return t
}

// WithRotationZ returns t rotated by angle radians around the Z axis.
func (t Transform) WithRotationZ(angle float32) Transform {
	t.Rotation = mgl32.QuatRotate(angle, mgl32.Vec3{0, 0, 1}).Mul(t.Rotation)
	return t
}

// Z returns the depth used for ordering.
func (t Transform) Z() float32 {
	return t.Translation.Z()
}

// Mul composes t (parent) with child: the child is expressed in t's space.
func (t Transform) Mul(child Transform) Transform {
	scaled := mgl32.Vec3{
		t.Scale.X() * child.Translation.X(),
		t.Scale.Y() * child.Translation.Y(),
		t.Scale.Z() * child.Translation.Z(),
	}
	return Transform{
		Translation: t.Translation.Add(t.Rotation.Rotate(scaled)),
		Rotation:    t.Rotation.Mul(child.Rotation),
		Scale: mgl32.Vec3{
			t.Scale.X() * child.Scale.X(),
			t.Scale.Y() * child.Scale.Y(),
			t.Scale.Z() * child.Scale.Z(),
		},
	}
}

// Mat4 returns the homogeneous matrix translation * rotation * scale.
func (t Transform) Mat4() mgl32.Mat4 {
	return mgl32.Translate3D(t.Translation.X(), t.Translation.Y(), t.Translation.Z()).
		Mul4(t.Rotation.Normalize().Mat4()).
		Mul4(mgl32.Scale3D(t.Scale.X(), t.Scale.Y(), t.Scale.Z()))
}

// Affine projects the transform onto the XY plane.
func (t Transform) Affine() scene.Affine {
	m := t.Mat4()
	return scene.Affine{
		A: m.At(0, 0), B: m.At(0, 1), C: m.At(0, 3),
		D: m.At(1, 0), E: m.At(1, 1), F: m.At(1, 3),
	}
}

// IsFinite reports whether every component is a finite number.
func (t Transform) IsFinite() bool {
	vals := []float32{
		t.Translation.X(), t.Translation.Y(), t.Translation.Z(),
		t.Rotation.W, t.Rotation.X(), t.Rotation.Y(), t.Rotation.Z(),
		t.Scale.X(), t.Scale.Y(), t.Scale.Z(),
	}
	for _, v := range vals {
		if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
			return false
		}
	}
	return true
}
