package ggframe

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gogpu/ggframe/backend"
	"github.com/gogpu/ggframe/frame"
	"github.com/gogpu/ggframe/gpucore"
	"github.com/gogpu/ggframe/render"
	"github.com/gogpu/ggframe/world"
)

// FrameReport describes one completed frame.
type FrameReport struct {
	Frame uint64
	Slot  int

	// Executed lists the draw commands that reached the drawing context,
	// in execution order.
	Executed []render.Command
	// Failures lists draw commands skipped by the aggregator.
	Failures []render.CommandFailure
	// ProducerErrors lists errors returned by producer hooks. Each is a
	// *ProducerError.
	ProducerErrors []error
	// UploadErr is set when the drawing context failed to upload; the
	// previous frame's scene was presented instead.
	UploadErr error
	// Dropped is the number of commands sent after the aggregator ran.
	Dropped int

	Render frame.Result

	// Durations holds the wall time of each stage, indexed by Stage.
	// Setup is zero except on the first frame.
	Durations [stageCount]time.Duration
}

// Pipeline schedules the frame stages. RunFrame and Close must be called
// from one goroutine.
type Pipeline struct {
	app       *world.World
	exchanger *world.Exchanger
	producers []Producer

	queue *render.Queue
	dc    *render.DrawContext
	agg   *render.Aggregator

	layouter     *render.TextLayouter
	ownsLayouter bool

	backend     gpucore.Backend
	ownsBackend bool
	pool        *frame.Pool
	state       frame.State

	observer func(uint64, Stage)
	metrics  *metrics
	log      *slog.Logger

	setupDone bool
	setupErr  error
	faulted   error
	closed    bool
}

// New creates a pipeline for app. It opens the backend, creates the
// session, the resource pool and the render world, and installs the
// scratch world into app. Errors here are fatal; nothing is left open.
func New(app *world.World, opts ...Option) (_ *Pipeline, err error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.width <= 0 || o.height <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrNoSurface, o.width, o.height)
	}

	p := &Pipeline{
		app:       app,
		producers: o.producers,
		queue:     render.NewQueue(),
		dc:        render.NewDrawContext(),
		observer:  o.observer,
		log:       o.logger,
		layouter:  o.layouter,
		backend:   o.backend,
	}
	if p.log == nil {
		p.log = Logger()
	}
	defer func() {
		if err != nil {
			p.release()
		}
	}()

	if p.backend == nil {
		if o.backendName != "" {
			p.backend, err = backend.Open(o.backendName, o.backendOptions)
		} else {
			p.backend, err = backend.Default()
		}
		if err != nil {
			return nil, err
		}
		p.ownsBackend = true
	}

	session, err := p.backend.CreateSession(gpucore.Surface{Width: o.width, Height: o.height, Format: o.format})
	if err != nil {
		return nil, fmt.Errorf("ggframe: create %s session: %w", p.backend.Name(), err)
	}
	p.pool, err = frame.NewPool(session, frame.Config{
		Width:           o.width,
		Height:          o.height,
		SwapchainWidth:  o.swapWidth,
		SwapchainHeight: o.swapHeight,
	})
	if err != nil {
		return nil, err
	}
	p.pool.Observe(func(t frame.Transition) {
		p.log.Debug("ggframe: slot transition", "slot", t.Slot, "frame", t.Frame, "from", t.From.String(), "to", t.To.String())
	})

	if p.layouter == nil {
		if p.layouter, err = render.NewDefaultTextLayouter(); err != nil {
			return nil, err
		}
		p.ownsLayouter = true
	}
	p.agg = render.NewAggregator(p.layouter)

	if p.metrics, err = newMetrics(o.registerer); err != nil {
		return nil, err
	}

	p.exchanger = world.NewExchanger(app, world.New(world.OwnerRender))
	p.log.Info("ggframe: pipeline created",
		"backend", p.backend.Name(), "width", o.width, "height", o.height, "producers", len(p.producers))
	return p, nil
}

// Frame returns the index of the next frame to run.
func (p *Pipeline) Frame() uint64 { return p.state.Current() }

// RenderWorld returns the render world. It is only meaningful between
// frames.
func (p *Pipeline) RenderWorld() *world.World { return p.exchanger.Render() }

// Pool returns the GPU resource pool.
func (p *Pipeline) Pool() *frame.Pool { return p.pool }

// Queue returns the draw-command queue producers send to during Extract
// and Prepare.
func (p *Pipeline) Queue() *render.Queue { return p.queue }

// CheckOwnership verifies that the render world and the scratch world are
// each held by exactly one side.
func (p *Pipeline) CheckOwnership() error { return p.exchanger.Check(p.app) }

// Resize changes the presented image size. The swapchain is rebuilt at
// the start of the next Render stage.
func (p *Pipeline) Resize(width, height int) { p.pool.Resize(width, height) }

// RunFrame runs one frame. Setup runs first on the very first call.
//
// The returned error is a *FrameError naming the stage that failed; the
// rest of the frame was skipped. Extract and Prepare failures discard the
// partial frame and the next call may retry. A Render failure faults the
// pipeline and every later call returns ErrPipelineFaulted. A Setup
// failure is returned by every later call.
func (p *Pipeline) RunFrame() (*FrameReport, error) {
	if p.closed {
		return nil, ErrClosed
	}
	if p.faulted != nil {
		return nil, fmt.Errorf("%w: %w", ErrPipelineFaulted, p.faulted)
	}

	f := p.state.Current()
	report := &FrameReport{Frame: f, Slot: p.state.Slot()}

	if !p.setupDone {
		p.setupDone = true
		p.setupErr = p.runStage(f, StageSetup, report)
	}
	if p.setupErr != nil {
		return nil, p.setupErr
	}

	for _, s := range frameStages {
		if err := p.runStage(f, s, report); err != nil {
			p.metrics.frameError(s)
			switch s {
			case StageExtract, StagePrepare:
				p.discardFrame()
			case StageRender:
				p.faulted = err
			}
			p.log.Error("ggframe: frame aborted", "frame", f, "stage", s.String(), "err", err)
			return report, err
		}
	}
	p.log.Debug("ggframe: frame complete",
		"frame", f, "slot", report.Slot, "commands", len(report.Executed),
		"failures", len(report.Failures), "render", report.Durations[StageRender])
	return report, nil
}

// runStage runs one stage, timing it and converting panics and errors
// into a *FrameError.
func (p *Pipeline) runStage(f uint64, s Stage, report *FrameReport) (err error) {
	if p.observer != nil {
		p.observer(f, s)
	}
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r}
		}
		d := time.Since(start)
		report.Durations[s] = d
		p.metrics.observeStage(s, d)
		if err != nil {
			err = &FrameError{Frame: f, Stage: s, Err: err}
		}
	}()

	switch s {
	case StageSetup:
		return p.setup()
	case StageExtract:
		return p.extract(f, report)
	case StagePrepare:
		return p.prepare(report)
	case StageRender:
		return p.render(report)
	case StageCleanup:
		p.cleanup()
		return nil
	default:
		return fmt.Errorf("ggframe: unknown stage %d", s)
	}
}

func (p *Pipeline) setup() error {
	if p.pool == nil || p.dc == nil {
		return fmt.Errorf("%w: resource pool or drawing context missing", ErrSetup)
	}
	rw := p.exchanger.Render()
	for _, pr := range p.producers {
		sp, ok := pr.(SetupProducer)
		if !ok {
			continue
		}
		if err := sp.Setup(rw); err != nil {
			return fmt.Errorf("%w: %w", ErrSetup, &ProducerError{Producer: pr.Name(), Stage: StageSetup, Err: err})
		}
	}
	p.log.Info("ggframe: setup complete", "producers", len(p.producers))
	return nil
}

// extract lends the render world to the app world and runs every
// producer's Extract. Producer errors are recorded and do not stop the
// frame; an ownership failure does.
func (p *Pipeline) extract(f uint64, report *FrameReport) error {
	err := p.exchanger.Exchange(p.app, f, func(ctx *world.ExtractContext) error {
		ctx.Queue = p.queue
		for _, pr := range p.producers {
			if err := pr.Extract(ctx); err != nil {
				p.producerError(report, pr, StageExtract, err)
			}
		}
		return nil
	})
	if err == nil {
		return nil
	}
	if errors.Is(err, world.ErrNoScratch) || errors.Is(err, world.ErrOwnership) {
		return err
	}
	// Deferred render-world mutations that failed.
	report.ProducerErrors = append(report.ProducerErrors, err)
	p.log.Error("ggframe: extract commands failed", "frame", f, "err", err)
	return nil
}

func (p *Pipeline) prepare(report *FrameReport) error {
	if n := p.dc.Len(); n != 0 {
		return fmt.Errorf("%w: %d operations", ErrContextNotEmpty, n)
	}
	rw := p.exchanger.Render()
	for _, pr := range p.producers {
		if err := pr.Prepare(rw, p.queue); err != nil {
			p.producerError(report, pr, StagePrepare, err)
		}
	}
	r := p.agg.Prepare(p.queue, p.dc)
	report.Executed = r.Executed
	report.Failures = r.Failures
	report.Dropped = p.queue.Update()
	p.metrics.prepared(r)
	return nil
}

func (p *Pipeline) render(report *FrameReport) error {
	res, err := p.pool.RenderFrame(p.dc, &p.state)
	report.Render = res
	report.UploadErr = res.UploadErr
	if err != nil {
		return err
	}
	p.metrics.rendered(res)
	if res.Waited {
		p.log.Debug("ggframe: waited for slot", "slot", res.Slot, "wait", res.WaitTime, "gpu", res.GPUTimes)
	}
	return nil
}

func (p *Pipeline) cleanup() {
	rw := p.exchanger.Render()
	for _, pr := range p.producers {
		if cp, ok := pr.(CleanupProducer); ok {
			cp.Cleanup(rw)
		}
	}
	rw.ClearEntities()
	rw.ClearTransient()
}

// discardFrame drops everything an aborted frame left behind so the next
// frame starts from an empty context, queue and render snapshot.
func (p *Pipeline) discardFrame() {
	p.dc.Reset()
	p.queue.Update()
	rw := p.exchanger.Render()
	rw.ClearEntities()
	rw.ClearTransient()
}

func (p *Pipeline) producerError(report *FrameReport, pr Producer, s Stage, err error) {
	pe := &ProducerError{Producer: pr.Name(), Stage: s, Err: err}
	report.ProducerErrors = append(report.ProducerErrors, pe)
	p.log.Error("ggframe: producer failed", "producer", pr.Name(), "stage", s.String(), "err", err)
}

// Close waits for in-flight frames and releases GPU resources. It is safe
// to call more than once.
func (p *Pipeline) Close() error {
	if p.closed {
		return nil
	}
	p.closed = true
	return p.release()
}

func (p *Pipeline) release() error {
	var err error
	if p.pool != nil {
		err = p.pool.Close()
		p.pool = nil
	}
	if p.ownsLayouter && p.layouter != nil {
		err = errors.Join(err, p.layouter.Close())
		p.layouter = nil
	}
	if p.ownsBackend {
		if c, ok := p.backend.(interface{ Close() }); ok {
			c.Close()
		}
		p.backend = nil
	}
	return err
}
