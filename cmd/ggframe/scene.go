package main

import (
	"math"
	"strconv"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/gogpu/gg"

	"github.com/gogpu/ggframe/producers/text"
	"github.com/gogpu/ggframe/producers/vector"
	"github.com/gogpu/ggframe/render"
	"github.com/gogpu/ggframe/scene"
	"github.com/gogpu/ggframe/world"
)

// demoScene is the app-world content the command renders: a rotating
// group of vector images with labels attached, plus a title.
type demoScene struct {
	app     *world.World
	assets  *vector.Assets
	pivot   world.Entity
	counter world.Entity
	center  mgl32.Vec2
}

func newDemoScene(width, height int) (*demoScene, error) {
	app := world.New(world.OwnerApp)
	assets := vector.NewAssets()
	world.SetResource(app, assets)

	d := &demoScene{
		app:    app,
		assets: assets,
		center: mgl32.Vec2{float32(width) / 2, float32(height) / 2},
	}

	star := assets.Add(vector.Image{
		Paths: []vector.Fill{{
			Path:  starPath(40, 18),
			Color: gg.Hex("#f5c542"),
			Rule:  scene.FillNonZero,
		}},
	})
	ring := assets.Add(vector.Image{
		Paths: []vector.Fill{{
			Path:  scene.NewPath().Circle(0, 0, 36).Circle(0, 0, 22),
			Color: gg.Hex("#4287f5"),
			Rule:  scene.FillEvenOdd,
		}},
	})
	tile := assets.Add(vector.Image{
		Paths: []vector.Fill{
			{Path: scene.NewPath().Rectangle(0, 0, 60, 60), Color: gg.Hex("#2e7d32")},
			{Path: scene.NewPath().Rectangle(15, 15, 30, 30), Color: gg.Hex("#a5d6a7")},
		},
		Center: mgl32.Vec2{30, 30},
	})

	d.pivot = app.Spawn()
	if err := world.Insert(app, d.pivot, render.FromXYZ(d.center.X(), d.center.Y(), 0)); err != nil {
		return nil, err
	}

	radius := float32(min(width, height)) / 4
	images := []struct {
		name   string
		handle vector.Handle
	}{{"star", star}, {"ring", ring}, {"tile", tile}}
	for i, img := range images {
		angle := float64(i) * 2 * math.Pi / 3
		x := radius * float32(math.Cos(angle))
		y := radius * float32(math.Sin(angle))
		e, err := d.spawn(render.FromXYZ(x, y, float32(i)), world.Parent{Entity: d.pivot}, vector.Instance{Image: img.handle})
		if err != nil {
			return nil, err
		}
		if _, err := d.spawn(render.FromXYZ(-20, 56, 0), world.Parent{Entity: e}, text.Label{Text: img.name, Size: 14}); err != nil {
			return nil, err
		}
	}

	if _, err := d.spawn(render.FromXYZ(16, 32, 0), text.Label{Text: "ggframe", Size: 24}); err != nil {
		return nil, err
	}
	d.counter = app.Spawn()
	if err := world.Insert(app, d.counter, render.FromXYZ(16, float32(height)-16, 0)); err != nil {
		return nil, err
	}
	return d, d.tick(0)
}

func (d *demoScene) spawn(components ...any) (world.Entity, error) {
	e := d.app.Spawn()
	for _, c := range components {
		var err error
		switch c := c.(type) {
		case render.Transform:
			err = world.Insert(d.app, e, c)
		case world.Parent:
			err = world.Insert(d.app, e, c)
		case vector.Instance:
			err = world.Insert(d.app, e, c)
		case text.Label:
			err = world.Insert(d.app, e, c)
		}
		if err != nil {
			return e, err
		}
	}
	return e, nil
}

// tick advances the animation to frame and resolves global transforms.
func (d *demoScene) tick(frame uint64) error {
	angle := float32(frame) * math.Pi / 90
	pivot := render.FromXYZ(d.center.X(), d.center.Y(), 0).WithRotationZ(angle)
	if err := world.Insert(d.app, d.pivot, pivot); err != nil {
		return err
	}
	if err := world.Insert(d.app, d.counter, text.Label{Text: frameLabel(frame), Size: 12, Color: gg.Hex("#9e9e9e")}); err != nil {
		return err
	}
	return world.PropagateTransforms(d.app)
}

func frameLabel(frame uint64) string {
	return "frame " + strconv.FormatUint(frame, 10)
}

// starPath returns a five-pointed star centered on the origin.
func starPath(outer, inner float32) *scene.Path {
	pts := make([]float32, 0, 20)
	for i := range 10 {
		r := outer
		if i%2 == 1 {
			r = inner
		}
		a := float64(i)*math.Pi/5 - math.Pi/2
		pts = append(pts, r*float32(math.Cos(a)), r*float32(math.Sin(a)))
	}
	return scene.NewPath().Polygon(pts...)
}
