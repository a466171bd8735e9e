// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package soft

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/ggframe/backend"
	"github.com/gogpu/ggframe/gpucore"
)

func init() {
	backend.Register(backend.NameSoft, func(raw map[string]any) (gpucore.Backend, error) {
		opts, err := DecodeOptions(raw)
		if err != nil {
			return nil, err
		}
		return New(opts), nil
	})
}

// Backend creates CPU device sessions.
type Backend struct {
	opts Options
}

// New creates a CPU backend.
func New(opts Options) *Backend {
	return &Backend{opts: opts.withDefaults()}
}

// Name returns backend.NameSoft.
func (b *Backend) Name() string { return backend.NameSoft }

// CreateSession starts a device goroutine for surface.
func (b *Backend) CreateSession(surface gpucore.Surface) (gpucore.Session, error) {
	return NewSession(surface, b.opts)
}

// operation is work executed in order by the device goroutine.
type operation interface {
	execute(s *Session)
}

// Session is a CPU device with its own execution goroutine.
type Session struct {
	opts    Options
	surface gpucore.Surface
	format  gputypes.TextureFormat

	mu        sync.Mutex
	ops       chan operation
	destroyed bool
	stopped   chan struct{}

	// lost is set once a device-side wait times out.
	lost atomic.Bool

	textures []*texture
}

// NewSession validates surface and starts the device goroutine.
func NewSession(surface gpucore.Surface, opts Options) (*Session, error) {
	if err := surface.Validate(); err != nil {
		return nil, err
	}
	opts = opts.withDefaults()
	format := surface.Format
	if opts.Provider != nil {
		format = opts.Provider.SurfaceFormat()
	}
	if format == gputypes.TextureFormatUndefined {
		format = gputypes.TextureFormatRGBA8Unorm
	}
	if format != gputypes.TextureFormatRGBA8Unorm && format != gputypes.TextureFormatBGRA8Unorm {
		return nil, fmt.Errorf("%w: unsupported format %v", gpucore.ErrInvalidSurface, format)
	}

	s := &Session{
		opts:    opts,
		surface: surface,
		format:  format,
		ops:     make(chan operation, opts.QueueDepth),
		stopped: make(chan struct{}),
	}
	go s.run()
	slogger().Debug("soft: session started",
		"surface", fmt.Sprintf("%dx%d", surface.Width, surface.Height), "format", format)
	return s, nil
}

func (s *Session) run() {
	defer close(s.stopped)
	for op := range s.ops {
		op.execute(s)
	}
}

// enqueue hands op to the device goroutine.
func (s *Session) enqueue(op operation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.destroyed {
		return fmt.Errorf("%w: session destroyed", gpucore.ErrDeviceLost)
	}
	if s.lost.Load() {
		return gpucore.ErrDeviceLost
	}
	s.ops <- op
	return nil
}

// Format returns the pixel format presented images are converted to.
func (s *Session) Format() gputypes.TextureFormat { return s.format }

func (s *Session) CreateSemaphore() (gpucore.Semaphore, error) {
	return newSemaphore(s), nil
}

func (s *Session) CreateQueryPool(capacity int) (gpucore.QueryPool, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("soft: query pool capacity %d", capacity)
	}
	return newQueryPool(s, capacity), nil
}

func (s *Session) CreateBuffer(size int) (gpucore.Buffer, error) {
	if size < 0 {
		return nil, fmt.Errorf("soft: buffer size %d", size)
	}
	return &buffer{owner: s, data: make([]byte, 0, size)}, nil
}

func (s *Session) CreateImage(width, height int) (gpucore.Image, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("soft: image size %dx%d", width, height)
	}
	t := newTexture(s, width, height)
	s.textures = append(s.textures, t)
	return t, nil
}

func (s *Session) CreateSwapchain(width, height int) (gpucore.Swapchain, error) {
	return newSwapchain(s, width, height)
}

func (s *Session) AllocateCommandBuffer() (gpucore.CommandBuffer, error) {
	return &commandBuffer{owner: s}, nil
}

// Submit queues cb for execution on the device goroutine.
func (s *Session) Submit(cb gpucore.CommandBuffer, waits, signals []gpucore.Semaphore) (gpucore.Submission, error) {
	c, ok := cb.(*commandBuffer)
	if !ok || c.owner != s {
		return nil, gpucore.ErrForeignObject
	}
	if !c.finished || c.inFlight {
		return nil, gpucore.ErrNotRecording
	}
	sub := &submission{cb: c, done: make(chan struct{})}
	var err error
	if sub.waits, err = s.semaphores(waits); err != nil {
		return nil, err
	}
	if sub.signals, err = s.semaphores(signals); err != nil {
		return nil, err
	}
	c.inFlight = true
	if err := s.enqueue(sub); err != nil {
		c.inFlight = false
		return nil, err
	}
	return sub, nil
}

func (s *Session) semaphores(in []gpucore.Semaphore) ([]*semaphore, error) {
	out := make([]*semaphore, len(in))
	for i, g := range in {
		sem, ok := g.(*semaphore)
		if !ok || sem.owner != s {
			return nil, gpucore.ErrForeignObject
		}
		out[i] = sem
	}
	return out, nil
}

// Wait blocks until sub has executed and returns its command buffer.
func (s *Session) Wait(sub gpucore.Submission) (gpucore.CommandBuffer, error) {
	ss, ok := sub.(*submission)
	if !ok || ss.cb.owner != s {
		return nil, gpucore.ErrForeignObject
	}
	if !ss.consumed.CompareAndSwap(false, true) {
		return nil, gpucore.ErrSubmissionConsumed
	}
	select {
	case <-ss.done:
	case <-s.stopped:
		return nil, fmt.Errorf("%w: session destroyed", gpucore.ErrDeviceLost)
	}
	ss.cb.inFlight = false
	return ss.cb, ss.err
}

// FetchQueryPool returns the intervals between the timestamps the last
// completed submission wrote into qp.
func (s *Session) FetchQueryPool(qp gpucore.QueryPool) ([]time.Duration, error) {
	q, ok := qp.(*queryPool)
	if !ok || q.owner != s {
		return nil, gpucore.ErrForeignObject
	}
	return q.intervals(), nil
}

// WaitIdle blocks until every queued operation has executed.
func (s *Session) WaitIdle() error {
	f := fence(make(chan struct{}))
	if err := s.enqueue(f); err != nil {
		return err
	}
	<-f
	return nil
}

// Destroy stops the device goroutine after the queued work has run.
func (s *Session) Destroy() {
	s.mu.Lock()
	if s.destroyed {
		s.mu.Unlock()
		return
	}
	s.destroyed = true
	close(s.ops)
	s.mu.Unlock()

	<-s.stopped
	for _, t := range s.textures {
		t.release()
	}
	s.textures = nil
	slogger().Debug("soft: session destroyed")
}

// fence is closed by the device goroutine when reached.
type fence chan struct{}

func (f fence) execute(*Session) { close(f) }

// submission is a queued command buffer execution.
type submission struct {
	cb       *commandBuffer
	waits    []*semaphore
	signals  []*semaphore
	done     chan struct{}
	err      error
	consumed atomic.Bool
}

func (s *submission) Done() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}
