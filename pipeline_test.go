package ggframe

import (
	"errors"
	"testing"

	"github.com/gogpu/gg"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/gogpu/ggframe/backend"
	"github.com/gogpu/ggframe/backend/soft"
	"github.com/gogpu/ggframe/gpucore"
	"github.com/gogpu/ggframe/render"
	"github.com/gogpu/ggframe/scene"
	"github.com/gogpu/ggframe/world"
)

// funcProducer adapts functions to Producer. Nil hooks do nothing.
type funcProducer struct {
	name    string
	extract func(*world.ExtractContext) error
	prepare func(*world.World, *render.Queue) error
}

func (p *funcProducer) Name() string { return p.name }

func (p *funcProducer) Extract(ctx *world.ExtractContext) error {
	if p.extract == nil {
		return nil
	}
	return p.extract(ctx)
}

func (p *funcProducer) Prepare(rw *world.World, q *render.Queue) error {
	if p.prepare == nil {
		return nil
	}
	return p.prepare(rw, q)
}

type setupProducer struct {
	funcProducer
	setup func(*world.World) error
	calls int
}

func (p *setupProducer) Setup(rw *world.World) error {
	p.calls++
	return p.setup(rw)
}

func newPipeline(t *testing.T, opts ...Option) (*Pipeline, *world.World) {
	t.Helper()
	app := world.New(world.OwnerApp)
	opts = append([]Option{WithBackend(soft.New(soft.Options{})), WithSurface(32, 32)}, opts...)
	p, err := New(app, opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = p.Close() })
	return p, app
}

func runFrames(t *testing.T, p *Pipeline, n int) []*FrameReport {
	t.Helper()
	reports := make([]*FrameReport, 0, n)
	for i := range n {
		r, err := p.RunFrame()
		if err != nil {
			t.Fatalf("frame %d: %v", i, err)
		}
		reports = append(reports, r)
	}
	return reports
}

func square(layer render.Layer, c gg.RGBA) render.Command {
	return render.NewShape(layer, render.Shape{
		Path:  scene.NewPath().Rectangle(0, 0, 4, 4),
		Color: c,
	}, render.IdentityTransform())
}

func TestNewRequiresSurface(t *testing.T) {
	_, err := New(world.New(world.OwnerApp), WithBackend(soft.New(soft.Options{})))
	if !errors.Is(err, ErrNoSurface) {
		t.Errorf("err = %v, want ErrNoSurface", err)
	}
}

func TestNewUnknownBackend(t *testing.T) {
	_, err := New(world.New(world.OwnerApp), WithSurface(8, 8), WithBackendName("vulkan-but-not", nil))
	if !errors.Is(err, backend.ErrBackendNotFound) {
		t.Errorf("err = %v, want ErrBackendNotFound", err)
	}
}

func TestNewByBackendName(t *testing.T) {
	p, err := New(world.New(world.OwnerApp), WithSurface(8, 8),
		WithBackendName(backend.NameSoft, map[string]any{"swapchain_images": 2}))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer p.Close()
	if _, err := p.RunFrame(); err != nil {
		t.Fatalf("RunFrame: %v", err)
	}
}

func TestStageOrder(t *testing.T) {
	var got []Stage
	p, _ := newPipeline(t, WithStageObserver(func(_ uint64, s Stage) { got = append(got, s) }))
	runFrames(t, p, 2)

	want := []Stage{
		StageSetup, StageExtract, StagePrepare, StageRender, StageCleanup,
		StageExtract, StagePrepare, StageRender, StageCleanup,
	}
	if len(got) != len(want) {
		t.Fatalf("stages = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("stage %d = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestSlotRotationAndBackpressure(t *testing.T) {
	p, _ := newPipeline(t)
	reports := runFrames(t, p, 5)
	for i, r := range reports {
		if r.Frame != uint64(i) {
			t.Errorf("report %d frame = %d", i, r.Frame)
		}
		if want := i % 2; r.Slot != want {
			t.Errorf("frame %d slot = %d, want %d", i, r.Slot, want)
		}
		// Frames 0 and 1 find their slots idle; from frame 2 on each slot
		// waits for the submission made two frames earlier.
		if want := i >= 2; r.Render.Waited != want {
			t.Errorf("frame %d waited = %v, want %v", i, r.Render.Waited, want)
		}
	}
	if p.Frame() != 5 {
		t.Errorf("Frame() = %d, want 5", p.Frame())
	}
}

func TestEmptyFrameAdvancesCounterOnce(t *testing.T) {
	p, _ := newPipeline(t)
	before := p.Frame()
	r, err := p.RunFrame()
	if err != nil {
		t.Fatal(err)
	}
	if p.Frame() != before+1 {
		t.Errorf("Frame() = %d, want %d", p.Frame(), before+1)
	}
	if len(r.Executed) != 0 || len(r.Failures) != 0 {
		t.Errorf("empty frame executed %d commands, %d failures", len(r.Executed), len(r.Failures))
	}
}

func TestLayerOrderIndependentOfEmission(t *testing.T) {
	a := gg.RGBA{R: 1, A: 1}
	b := gg.RGBA{G: 1, A: 1}
	c := gg.RGBA{B: 1, A: 1}
	pr := &funcProducer{name: "abc", prepare: func(_ *world.World, q *render.Queue) error {
		q.Send(square(render.Foreground, a))
		q.Send(square(render.Background, b))
		q.Send(square(render.Middle, c))
		return nil
	}}
	p, _ := newPipeline(t, WithProducers(pr))
	r := runFrames(t, p, 1)[0]

	want := []gg.RGBA{b, c, a}
	if len(r.Executed) != len(want) {
		t.Fatalf("executed %d commands, want %d", len(r.Executed), len(want))
	}
	for i, cmd := range r.Executed {
		s, _ := cmd.Shape()
		if s.Color != want[i] {
			t.Errorf("command %d color = %v, want %v", i, s.Color, want[i])
		}
	}
}

func TestExtractCommandsExecuteInSameFrame(t *testing.T) {
	early := gg.RGBA{R: 1, A: 1}
	late := gg.RGBA{G: 1, A: 1}
	pr := &funcProducer{
		name: "both",
		extract: func(ctx *world.ExtractContext) error {
			if ctx.Queue == nil {
				return errors.New("no queue during extract")
			}
			ctx.Queue.Send(square(render.Middle, early))
			return nil
		},
		prepare: func(_ *world.World, q *render.Queue) error {
			q.Send(square(render.Middle, late))
			return nil
		},
	}
	p, _ := newPipeline(t, WithProducers(pr))
	for i, r := range runFrames(t, p, 2) {
		if len(r.ProducerErrors) != 0 {
			t.Fatalf("frame %d: %v", i, r.ProducerErrors)
		}
		if len(r.Executed) != 2 {
			t.Fatalf("frame %d executed %d commands, want 2", i, len(r.Executed))
		}
		first, _ := r.Executed[0].Shape()
		second, _ := r.Executed[1].Shape()
		if first.Color != early || second.Color != late {
			t.Errorf("frame %d order = %v, %v", i, first.Color, second.Color)
		}
		if r.Dropped != 0 {
			t.Errorf("frame %d dropped %d commands", i, r.Dropped)
		}
	}
}

type marker struct{ frame uint64 }

func TestExtractOwnsRenderWorldExclusively(t *testing.T) {
	var seen []int
	pr := &funcProducer{
		name: "marker",
		extract: func(ctx *world.ExtractContext) error {
			lent, ok := world.Resource[world.RenderWorld](ctx.App)
			if !ok || lent.World != ctx.Render {
				t.Errorf("frame %d: render world not reachable through the app world", ctx.Frame)
			}
			if world.HasResource[world.ScratchWorld](ctx.App) {
				t.Errorf("frame %d: scratch world still in the app world", ctx.Frame)
			}
			e := ctx.Render.Spawn()
			return world.Insert(ctx.Render, e, marker{frame: ctx.Frame})
		},
		prepare: func(rw *world.World, _ *render.Queue) error {
			seen = append(seen, world.Count[marker](rw))
			return nil
		},
	}
	p, _ := newPipeline(t, WithProducers(pr))
	for range 3 {
		if _, err := p.RunFrame(); err != nil {
			t.Fatal(err)
		}
		if err := p.CheckOwnership(); err != nil {
			t.Errorf("CheckOwnership: %v", err)
		}
		if n := p.RenderWorld().Len(); n != 0 {
			t.Errorf("render world holds %d entities after cleanup", n)
		}
	}
	for i, n := range seen {
		if n != 1 {
			t.Errorf("frame %d prepare saw %d markers, want 1", i, n)
		}
	}
}

func TestSetupFailureIsSticky(t *testing.T) {
	boom := errors.New("no fonts")
	pr := &setupProducer{
		funcProducer: funcProducer{name: "fonts"},
		setup:        func(*world.World) error { return boom },
	}
	p, _ := newPipeline(t, WithProducers(pr))

	_, err1 := p.RunFrame()
	_, err2 := p.RunFrame()
	for _, err := range []error{err1, err2} {
		if !errors.Is(err, ErrSetup) || !errors.Is(err, boom) {
			t.Errorf("err = %v, want ErrSetup wrapping the producer error", err)
		}
		var fe *FrameError
		if !errors.As(err, &fe) || fe.Stage != StageSetup {
			t.Errorf("err = %v, want *FrameError at Setup", err)
		}
	}
	if pr.calls != 1 {
		t.Errorf("Setup ran %d times, want 1", pr.calls)
	}
	if p.Frame() != 0 {
		t.Errorf("Frame() = %d after failed setup", p.Frame())
	}
}

func TestPanicAbortsFrameAndNextFrameRetries(t *testing.T) {
	panicked := false
	pr := &funcProducer{name: "flaky", prepare: func(_ *world.World, q *render.Queue) error {
		q.Send(square(render.Middle, gg.RGBA{A: 1}))
		if !panicked {
			panicked = true
			panic("bad state")
		}
		return nil
	}}
	p, _ := newPipeline(t, WithProducers(pr))

	_, err := p.RunFrame()
	var fe *FrameError
	if !errors.As(err, &fe) || fe.Stage != StagePrepare {
		t.Fatalf("err = %v, want *FrameError at Prepare", err)
	}
	var pe *PanicError
	if !errors.As(err, &pe) {
		t.Errorf("err = %v, want *PanicError", err)
	}
	if p.Frame() != 0 {
		t.Errorf("aborted frame advanced the counter to %d", p.Frame())
	}

	r, err := p.RunFrame()
	if err != nil {
		t.Fatalf("retry: %v", err)
	}
	if len(r.Executed) != 1 {
		t.Errorf("retry executed %d commands, want 1", len(r.Executed))
	}
}

func TestProducerErrorDoesNotStopFrame(t *testing.T) {
	boom := errors.New("asset missing")
	bad := &funcProducer{name: "bad", extract: func(*world.ExtractContext) error { return boom }}
	good := &funcProducer{name: "good", prepare: func(_ *world.World, q *render.Queue) error {
		q.Send(square(render.Background, gg.RGBA{A: 1}))
		return nil
	}}
	p, _ := newPipeline(t, WithProducers(bad, good))
	r := runFrames(t, p, 1)[0]

	if len(r.ProducerErrors) != 1 || !errors.Is(r.ProducerErrors[0], boom) {
		t.Fatalf("ProducerErrors = %v", r.ProducerErrors)
	}
	var pe *ProducerError
	if !errors.As(r.ProducerErrors[0], &pe) || pe.Producer != "bad" || pe.Stage != StageExtract {
		t.Errorf("producer error = %v", r.ProducerErrors[0])
	}
	if len(r.Executed) != 1 {
		t.Errorf("executed %d commands, want 1", len(r.Executed))
	}
}

func TestCommandFailureIsIsolated(t *testing.T) {
	pr := &funcProducer{name: "mixed", prepare: func(_ *world.World, q *render.Queue) error {
		q.Send(render.NewShape(render.Middle, render.Shape{}, render.IdentityTransform()))
		q.Send(square(render.Middle, gg.RGBA{A: 1}))
		return nil
	}}
	p, _ := newPipeline(t, WithProducers(pr))
	r := runFrames(t, p, 1)[0]
	if len(r.Failures) != 1 || !errors.Is(r.Failures[0], render.ErrEmptyShape) {
		t.Errorf("Failures = %v, want one ErrEmptyShape", r.Failures)
	}
	if len(r.Executed) != 1 {
		t.Errorf("executed %d commands, want 1", len(r.Executed))
	}
}

// failingSession fails every submission after the first n.
type failingSession struct {
	gpucore.Session
	n int
}

func (s *failingSession) Submit(cb gpucore.CommandBuffer, waits, signals []gpucore.Semaphore) (gpucore.Submission, error) {
	if s.n == 0 {
		return nil, gpucore.ErrDeviceLost
	}
	s.n--
	return s.Session.Submit(cb, waits, signals)
}

type failingBackend struct {
	gpucore.Backend
	n int
}

func (b failingBackend) CreateSession(surface gpucore.Surface) (gpucore.Session, error) {
	s, err := b.Backend.CreateSession(surface)
	if err != nil {
		return nil, err
	}
	return &failingSession{Session: s, n: b.n}, nil
}

func TestRenderFailureFaultsPipeline(t *testing.T) {
	p, _ := newPipeline(t, WithBackend(failingBackend{Backend: soft.New(soft.Options{}), n: 1}))
	runFrames(t, p, 1)

	_, err := p.RunFrame()
	var fe *FrameError
	if !errors.As(err, &fe) || fe.Stage != StageRender || !errors.Is(err, gpucore.ErrDeviceLost) {
		t.Fatalf("err = %v, want Render-stage ErrDeviceLost", err)
	}
	if _, err := p.RunFrame(); !errors.Is(err, ErrPipelineFaulted) || !errors.Is(err, gpucore.ErrDeviceLost) {
		t.Errorf("after fault err = %v, want ErrPipelineFaulted", err)
	}
	if p.Frame() != 1 {
		t.Errorf("Frame() = %d, want 1", p.Frame())
	}
}

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	pr := &funcProducer{name: "bad-text", prepare: func(_ *world.World, q *render.Queue) error {
		q.Send(render.NewText(render.Foreground, render.Text{Content: "", Size: 12}, render.IdentityTransform()))
		return nil
	}}
	p, _ := newPipeline(t, WithMetrics(reg), WithProducers(pr))
	runFrames(t, p, 3)

	m := p.metrics
	if got := testutil.ToFloat64(m.frames); got != 3 {
		t.Errorf("frames_total = %v, want 3", got)
	}
	if got := testutil.ToFloat64(m.commandFailures.WithLabelValues("Text")); got != 3 {
		t.Errorf("command_failures_total{kind=Text} = %v, want 3", got)
	}
	if n := testutil.CollectAndCount(m.stageDuration); n != 5 {
		t.Errorf("stage_duration series = %d, want 5", n)
	}

	// A second pipeline cannot register the same collectors.
	_, err := New(world.New(world.OwnerApp), WithBackend(soft.New(soft.Options{})), WithSurface(8, 8), WithMetrics(reg))
	if err == nil {
		t.Error("duplicate registration accepted")
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	p, _ := newPipeline(t)
	runFrames(t, p, 3)
	if err := p.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := p.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
	if _, err := p.RunFrame(); !errors.Is(err, ErrClosed) {
		t.Errorf("RunFrame after Close = %v, want ErrClosed", err)
	}
}
