package ggframe

import (
	"log/slog"

	"github.com/gogpu/gputypes"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/gogpu/ggframe/gpucore"
	"github.com/gogpu/ggframe/render"
)

// Option configures a Pipeline during creation.
//
// Example:
//
//	p, err := ggframe.New(app,
//	    ggframe.WithSurface(1280, 720),
//	    ggframe.WithBackendName("wgpu", map[string]any{"api": "vulkan"}),
//	)
type Option func(*options)

type options struct {
	backend        gpucore.Backend
	backendName    string
	backendOptions map[string]any

	width, height         int
	swapWidth, swapHeight int
	format                gputypes.TextureFormat

	producers  []Producer
	logger     *slog.Logger
	registerer prometheus.Registerer
	observer   func(frame uint64, s Stage)
	layouter   *render.TextLayouter
}

func defaultOptions() options {
	return options{format: gputypes.TextureFormatRGBA8Unorm}
}

// WithBackend uses an already opened backend. The pipeline does not close
// it.
func WithBackend(b gpucore.Backend) Option {
	return func(o *options) {
		o.backend = b
	}
}

// WithBackendName opens a registered backend by name with the given
// backend-specific options. Without WithBackend or WithBackendName the
// registry's default backend is used.
func WithBackendName(name string, backendOptions map[string]any) Option {
	return func(o *options) {
		o.backendName = name
		o.backendOptions = backendOptions
	}
}

// WithSurface sets the window size. The render target is created at this
// size. Required.
func WithSurface(width, height int) Option {
	return func(o *options) {
		o.width, o.height = width, height
	}
}

// WithSwapchainSize overrides the presented image size, which defaults to
// half the window size.
func WithSwapchainSize(width, height int) Option {
	return func(o *options) {
		o.swapWidth, o.swapHeight = width, height
	}
}

// WithSurfaceFormat sets the surface pixel format. Default RGBA8Unorm.
func WithSurfaceFormat(f gputypes.TextureFormat) Option {
	return func(o *options) {
		o.format = f
	}
}

// WithProducers appends producers. Their hooks run in the order given.
func WithProducers(ps ...Producer) Option {
	return func(o *options) {
		o.producers = append(o.producers, ps...)
	}
}

// WithLogger sets the logger the pipeline reports frames with. Sub-packages
// keep the logger installed by SetLogger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithMetrics registers the pipeline's Prometheus collectors on r.
func WithMetrics(r prometheus.Registerer) Option {
	return func(o *options) {
		o.registerer = r
	}
}

// WithStageObserver calls fn as each stage begins.
func WithStageObserver(fn func(frame uint64, s Stage)) Option {
	return func(o *options) {
		o.observer = fn
	}
}

// WithTextLayouter sets the layouter used for text commands. The pipeline
// does not close it. By default a Go Regular layouter is created.
func WithTextLayouter(l *render.TextLayouter) Option {
	return func(o *options) {
		o.layouter = l
	}
}
