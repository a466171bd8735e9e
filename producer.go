package ggframe

import (
	"github.com/gogpu/ggframe/render"
	"github.com/gogpu/ggframe/world"
)

// Producer turns a slice of the application scene into draw commands.
//
// Extract runs while the render world is lent to the application world;
// it reads from ctx.App and writes to ctx.Render or ctx.Commands, and may
// send draw commands to ctx.Queue. Prepare reads the render world and
// sends commands to q. Commands from both stages are executed in the same
// frame. Neither may retain the queue or the worlds past the call.
type Producer interface {
	Name() string
	Extract(ctx *world.ExtractContext) error
	Prepare(render *world.World, q *render.Queue) error
}

// SetupProducer is implemented by producers that initialise render-world
// resources once, during Setup.
type SetupProducer interface {
	Producer
	Setup(render *world.World) error
}

// CleanupProducer is implemented by producers with per-frame state to
// release at Cleanup. It runs before the render world's per-frame entities
// are cleared.
type CleanupProducer interface {
	Producer
	Cleanup(render *world.World)
}
