// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package world

import (
	"errors"
	"fmt"

	"github.com/gogpu/ggframe/render"
)

// Errors returned by the exchanger.
var (
	// ErrNoScratch is returned when the app world holds no scratch world
	// to exchange the render world with.
	ErrNoScratch = errors.New("world: app world has no scratch world")

	// ErrOwnership is returned by Check when a storage is held by the
	// wrong side or by two sides at once.
	ErrOwnership = errors.New("world: storage ownership violated")
)

// ScratchWorld is the app-world resource holding the placeholder storage
// the render world is swapped with.
type ScratchWorld struct {
	World *World
}

// RenderWorld is the app-world resource through which the render world is
// reachable while extraction runs.
type RenderWorld struct {
	World *World
}

// ExtractContext is handed to producers during Extract.
type ExtractContext struct {
	// Frame is the index of the frame being built.
	Frame uint64

	// App is the application world. Producers only read from it.
	App *World

	// Render is the render world. Extract is the only time producers
	// write to it directly.
	Render *World

	// Commands buffers mutations applied to the render world after
	// extract returns, while it is still lent to the app world.
	Commands *Commands

	// Queue receives draw commands ahead of Prepare. They are drained
	// with the commands sent during the same frame's Prepare. Nil when
	// the caller has no queue.
	Queue *render.Queue
}

// Exchanger owns the render world between frames and lends it to the app
// world for extraction.
type Exchanger struct {
	render   *World
	commands Commands
	lent     bool
}

// NewExchanger takes ownership of render and installs a fresh scratch
// world into app.
func NewExchanger(app, render *World) *Exchanger {
	render.owner = OwnerRender
	SetResource(app, ScratchWorld{World: New(OwnerApp)})
	return &Exchanger{render: render}
}

// Render returns the storage currently held by the pipeline. Outside an
// exchange this is the render world.
func (x *Exchanger) Render() *World { return x.render }

// Exchange swaps the render world into app, runs extract and swaps it
// back. Buffered commands are applied to the render world after extract
// returns and before the swap is reversed; their errors are joined with
// extract's. The swap is reversed even if extract panics, and the
// commands are then dropped.
func (x *Exchanger) Exchange(app *World, frame uint64, extract func(*ExtractContext) error) error {
	if x.lent {
		return fmt.Errorf("%w: exchange already in progress", ErrOwnership)
	}
	scratch, ok := RemoveResource[ScratchWorld](app)
	if !ok || scratch.World == nil {
		return ErrNoScratch
	}

	rw := x.render
	x.render, scratch.World.owner = scratch.World, OwnerRender
	rw.owner = OwnerApp
	SetResource(app, RenderWorld{World: rw})
	x.lent = true

	defer func() {
		RemoveResource[RenderWorld](app)
		back := x.render
		x.render, rw.owner = rw, OwnerRender
		back.owner = OwnerApp
		SetResource(app, ScratchWorld{World: back})
		x.lent = false
		// Left over only when extract panicked.
		x.commands.reset()
	}()

	err := extract(&ExtractContext{Frame: frame, App: app, Render: rw, Commands: &x.commands})
	if applyErr := x.commands.Apply(rw); applyErr != nil {
		err = errors.Join(err, fmt.Errorf("world: apply extract commands: %w", applyErr))
	}
	return err
}

// Check verifies that the render world is held by the pipeline alone and
// the scratch world by the app world alone.
func (x *Exchanger) Check(app *World) error {
	if x.lent {
		return fmt.Errorf("%w: render world is lent to the app world", ErrOwnership)
	}
	if HasResource[RenderWorld](app) {
		return fmt.Errorf("%w: app world still holds the render world", ErrOwnership)
	}
	scratch, ok := Resource[ScratchWorld](app)
	if !ok || scratch.World == nil {
		return ErrNoScratch
	}
	switch {
	case scratch.World == x.render:
		return fmt.Errorf("%w: storage %d held by both sides", ErrOwnership, x.render.id)
	case x.render.owner != OwnerRender:
		return fmt.Errorf("%w: render storage %d owned by %v", ErrOwnership, x.render.id, x.render.owner)
	case scratch.World.owner != OwnerApp:
		return fmt.Errorf("%w: scratch storage %d owned by %v", ErrOwnership, scratch.World.id, scratch.World.owner)
	}
	return nil
}
