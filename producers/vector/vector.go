// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package vector draws vector images attached to scene entities.
//
// Images live in an *Assets store installed as an app-world resource.
// Extract mirrors created, modified and removed images into the
// persistent RenderAssets resource of the render world and copies every
// instance; Prepare orders instances back to front and emits one shape
// command per filled path on the Middle layer.
package vector

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/gogpu/ggframe/render"
	"github.com/gogpu/ggframe/world"
)

// Instance is the component that places an image in the scene.
type Instance struct {
	Image Handle
}

// RenderAssets is the render-world copy of every image the render side
// has seen. It persists across frames.
type RenderAssets map[Handle]Image

// Extracted is the transient render-world resource holding this frame's
// instances.
type Extracted struct {
	Instances []ExtractedInstance
}

// ExtractedInstance is an instance with its resolved transform.
type ExtractedInstance struct {
	Image     Handle
	Transform render.Transform
}

// Producer mirrors vector assets into the render world and emits their
// shape commands.
type Producer struct {
	// cursor is the sequence number of the next asset event to read.
	cursor uint64
	synced bool
}

// NewProducer creates a vector image producer.
func NewProducer() *Producer { return &Producer{} }

// Name returns "vector".
func (*Producer) Name() string { return "vector" }

// Setup installs an empty RenderAssets resource.
func (*Producer) Setup(rw *world.World) error {
	world.ResourceOrInit(rw, func() RenderAssets { return RenderAssets{} })
	return nil
}

// Extract syncs changed images and copies every (Instance,
// GlobalTransform) pair. An app world without an *Assets resource
// extracts nothing.
func (p *Producer) Extract(ctx *world.ExtractContext) error {
	assets, ok := world.Resource[*Assets](ctx.App)
	if !ok || assets == nil {
		return nil
	}
	ra := world.ResourceOrInit(ctx.Render, func() RenderAssets { return RenderAssets{} })
	p.syncAssets(assets, ra)

	var ex Extracted
	world.Each2(ctx.App, func(_ world.Entity, inst Instance, g world.GlobalTransform) {
		ex.Instances = append(ex.Instances, ExtractedInstance{Image: inst.Image, Transform: g.Transform})
	})
	world.SetTransient(ctx.Render, ex)
	return nil
}

// syncAssets applies asset events since the last frame to ra. Created
// and modified images are copied once each, whatever the number of
// events; removed images are dropped. A gap in the event log triggers a
// full resync.
func (p *Producer) syncAssets(assets *Assets, ra RenderAssets) {
	events, next, complete := assets.Events(p.cursor)
	if !complete || !p.synced {
		all, at := assets.Snapshot()
		clear(ra)
		for h, img := range all {
			ra[h] = img
		}
		p.cursor, p.synced = at, true
		return
	}

	changed := make(map[Handle]struct{})
	for _, ev := range events {
		switch ev.Kind {
		case AssetCreated, AssetModified:
			changed[ev.Handle] = struct{}{}
		case AssetRemoved:
			delete(changed, ev.Handle)
			delete(ra, ev.Handle)
		}
	}
	for h := range changed {
		if img, ok := assets.Get(h); ok {
			ra[h] = img.clone()
		}
	}
	p.cursor = next
}

// Prepare sorts the extracted instances by z, NaN first and ties broken
// by image handle, and sends one Middle shape command per filled path.
// Instances whose image is not resident are skipped.
func (*Producer) Prepare(rw *world.World, q *render.Queue) error {
	ex, ok := world.Resource[Extracted](rw)
	if !ok || len(ex.Instances) == 0 {
		return nil
	}
	ra, ok := world.Resource[RenderAssets](rw)
	if !ok {
		return fmt.Errorf("vector: render assets not initialised")
	}
	slices.SortStableFunc(ex.Instances, compareInstances)

	for _, inst := range ex.Instances {
		img, ok := ra[inst.Image]
		if !ok {
			continue
		}
		for _, f := range img.Paths {
			q.Send(render.NewShape(render.Middle, render.Shape{
				Path:   f.Path,
				Color:  f.Color,
				Rule:   f.Rule,
				Center: img.Center,
			}, inst.Transform))
		}
	}
	return nil
}

// compareInstances orders by z ascending, then by handle. NaN depths sort
// before every other depth so the order stays total.
func compareInstances(a, b ExtractedInstance) int {
	if c := cmp.Compare(a.Transform.Z(), b.Transform.Z()); c != 0 {
		return c
	}
	return cmp.Compare(a.Image, b.Image)
}
