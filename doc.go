// Package ggframe runs a staged, double-buffered frame pipeline that
// turns a retained scene into GPU work.
//
// # Overview
//
// A Pipeline owns a render world, a command queue, a drawing context and
// a resource pool of two frame slots. Each call to RunFrame executes the
// stages in a fixed order:
//
//	Setup (first frame only) -> Extract -> Prepare -> Render -> Cleanup
//
// Extract lends the render world to the application world for producers
// to fill; the storage is exchanged by pointer, never copied. Prepare
// turns the extracted snapshot into draw commands, orders them by layer
// and executes them against the drawing context. Render uploads the
// drawing context into the current slot, records and submits the frame
// and presents it. Cleanup clears per-frame render state.
//
// # Quick Start
//
//	app := world.New(world.OwnerApp)
//	world.SetResource(app, vector.NewAssets())
//	p, err := ggframe.New(app,
//	    ggframe.WithBackendName("soft", nil),
//	    ggframe.WithSurface(800, 600),
//	    ggframe.WithProducers(text.NewProducer(), vector.NewProducer()),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer p.Close()
//
//	for range 60 {
//	    if _, err := p.RunFrame(); err != nil {
//	        log.Fatal(err)
//	    }
//	}
//
// # Frame slots
//
// Frame n uses slot n%2. Before recording into a slot, the pool waits for
// the submission the slot made two frames earlier, so the CPU runs at most
// two frames ahead of the device and no command buffer, query pool or
// semaphore is reused while the device may still read it.
//
// # Backends
//
// Backends implement the gpucore contract and register by name. The
// "soft" backend executes on a CPU device goroutine; the "wgpu" backend
// drives a gogpu/wgpu HAL device.
//
// # Logging
//
// ggframe is silent by default. SetLogger enables structured logging for
// the pipeline and every sub-package.
package ggframe

// Version information.
const (
	// Version is the current version of the module.
	Version = "0.3.0"

	// VersionMajor is the major version.
	VersionMajor = 0

	// VersionMinor is the minor version.
	VersionMinor = 3

	// VersionPatch is the patch version.
	VersionPatch = 0
)
