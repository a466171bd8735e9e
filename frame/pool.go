// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package frame

import (
	"errors"
	"fmt"
	"time"

	"github.com/gogpu/ggframe/gpucore"
	"github.com/gogpu/ggframe/render"
)

// Config sizes the pool's images.
type Config struct {
	// Width and Height are the internal render target size.
	Width, Height int

	// SwapchainWidth and SwapchainHeight default to half the target size.
	SwapchainWidth, SwapchainHeight int
}

func (c Config) swapchainSize() (int, int) {
	w, h := c.SwapchainWidth, c.SwapchainHeight
	if w <= 0 {
		w = max(c.Width/2, 1)
	}
	if h <= 0 {
		h = max(c.Height/2, 1)
	}
	return w, h
}

// Result describes one rendered frame.
type Result struct {
	Frame      uint64
	Slot       int
	ImageIndex int

	// Waited is true when the slot's previous submission had to be
	// retired before recording; WaitTime is how long that took.
	Waited   bool
	WaitTime time.Duration

	// GPUTimes are the timestamp intervals of the retired submission.
	GPUTimes []time.Duration

	// UploadErr is the non-fatal upload error, if any.
	UploadErr error

	// Recreated is true when the swapchain was rebuilt this frame.
	Recreated bool
}

// Pool owns the per-slot GPU resources, the session and the swapchain.
// It is used from the render scheduler goroutine only.
type Pool struct {
	session   gpucore.Session
	swapchain gpucore.Swapchain
	renderer  *Renderer
	slots     [SlotCount]*slot

	observers []func(Transition)

	pendingResize bool
	swapW, swapH  int
	closed        bool
}

// NewPool creates the swapchain, renderer and slot resources on session.
// The pool takes ownership of session: it is destroyed in Close, or
// before NewPool returns an error.
func NewPool(session gpucore.Session, cfg Config) (_ *Pool, err error) {
	p := &Pool{session: session}
	p.swapW, p.swapH = cfg.swapchainSize()

	defer func() {
		if err == nil {
			return
		}
		if p.swapchain != nil {
			p.swapchain.Destroy()
		}
		session.Destroy()
	}()

	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, fmt.Errorf("frame: invalid target size %dx%d", cfg.Width, cfg.Height)
	}

	if p.swapchain, err = session.CreateSwapchain(p.swapW, p.swapH); err != nil {
		return nil, fmt.Errorf("frame: create swapchain: %w", err)
	}
	if p.renderer, err = NewRenderer(session, cfg.Width, cfg.Height, SlotCount); err != nil {
		return nil, err
	}
	for i := range p.slots {
		s := &slot{index: i}
		if s.present, err = session.CreateSemaphore(); err != nil {
			return nil, fmt.Errorf("frame: create present semaphore %d: %w", i, err)
		}
		if s.queries, err = session.CreateQueryPool(QueryPoolCapacity); err != nil {
			return nil, fmt.Errorf("frame: create query pool %d: %w", i, err)
		}
		p.slots[i] = s
	}

	slogger().Info("frame: resource pool ready",
		"slots", SlotCount, "target", fmt.Sprintf("%dx%d", cfg.Width, cfg.Height),
		"swapchain", fmt.Sprintf("%dx%d", p.swapW, p.swapH))
	return p, nil
}

// Observe registers fn to be called on every slot transition.
func (p *Pool) Observe(fn func(Transition)) {
	p.observers = append(p.observers, fn)
}

// SlotState returns the state of slot i.
func (p *Pool) SlotState(i int) SlotState {
	return p.slots[i].state
}

// Renderer returns the scene renderer.
func (p *Pool) Renderer() *Renderer {
	return p.renderer
}

// Swapchain returns the presentation swapchain.
func (p *Pool) Swapchain() gpucore.Swapchain {
	return p.swapchain
}

// Resize requests a swapchain rebuild at the next frame.
func (p *Pool) Resize(width, height int) {
	if width <= 0 || height <= 0 || (width == p.swapW && height == p.swapH) {
		return
	}
	p.swapW, p.swapH = width, height
	p.pendingResize = true
}

// RenderFrame records, submits and presents the frame st points at, then
// advances st. The drawing context is uploaded and reset.
//
// Upload errors are reported in Result.UploadErr and the frame continues.
// Every other error is fatal for the frame and st is not advanced.
func (p *Pool) RenderFrame(dc *render.DrawContext, st *State) (Result, error) {
	if p.closed {
		return Result{}, errors.New("frame: pool closed")
	}
	s := p.slots[st.Slot()]
	frame := st.Current()
	res := Result{Frame: frame, Slot: s.index}

	if p.pendingResize {
		if err := p.recreateSwapchain(); err != nil {
			return res, err
		}
		res.Recreated = true
	}

	if s.state == SlotSubmitted {
		start := time.Now()
		if err := p.retire(s, frame); err != nil {
			return res, err
		}
		res.Waited = true
		res.WaitTime = time.Since(start)
		if times, err := p.session.FetchQueryPool(s.queries); err != nil {
			slogger().Warn("frame: fetch query pool", "slot", s.index, "err", err)
		} else {
			res.GPUTimes = times
		}
	}

	if err := p.renderer.Upload(dc, s.index); err != nil {
		res.UploadErr = err
		slogger().Error("frame: upload failed, presenting previous frame", "frame", frame, "err", err)
	}
	dc.Reset()

	index, acquired, recreated, err := p.acquire()
	if err != nil {
		return res, err
	}
	res.Recreated = res.Recreated || recreated
	res.ImageIndex = index

	cb := s.cmd
	s.cmd = nil
	if cb == nil {
		if cb, err = p.session.AllocateCommandBuffer(); err != nil {
			return res, fmt.Errorf("frame: allocate command buffer: %w", err)
		}
	}
	if err := p.transition(s, SlotRecording, frame); err != nil {
		return res, err
	}

	if err := p.record(cb, s, index); err != nil {
		return res, p.abort(s, cb, frame, err)
	}
	sub, err := p.session.Submit(cb, []gpucore.Semaphore{acquired}, []gpucore.Semaphore{s.present})
	if err != nil {
		return res, p.abort(s, cb, frame, fmt.Errorf("frame: submit: %w", err))
	}
	s.submitted = sub
	s.submittedFrame = frame
	if err := p.transition(s, SlotSubmitted, frame); err != nil {
		return res, err
	}

	if err := p.swapchain.Present(index, []gpucore.Semaphore{s.present}); err != nil {
		if !errors.Is(err, gpucore.ErrSwapchainOutOfDate) {
			return res, fmt.Errorf("frame: present: %w", err)
		}
		slogger().Warn("frame: swapchain out of date at present, rebuilding next frame", "frame", frame)
		p.pendingResize = true
	}

	st.Advance()
	return res, nil
}

// record fills cb with the frame's work: scene raster into the internal
// target, then a blit into swapchain image index.
func (p *Pool) record(cb gpucore.CommandBuffer, s *slot, index int) error {
	if err := cb.Begin(); err != nil {
		return fmt.Errorf("frame: begin command buffer: %w", err)
	}
	p.renderer.Record(cb, s.queries, s.index)

	img := p.swapchain.Image(index)
	cb.ImageBarrier(img, gpucore.LayoutUndefined, gpucore.LayoutBlitDst)
	cb.BlitImage(p.renderer.Target(), img)
	cb.ImageBarrier(img, gpucore.LayoutBlitDst, gpucore.LayoutPresent)

	if err := cb.Finish(); err != nil {
		return fmt.Errorf("frame: finish command buffer: %w", err)
	}
	return nil
}

// abort returns the slot to Idle and keeps cb for its next frame.
func (p *Pool) abort(s *slot, cb gpucore.CommandBuffer, frame uint64, cause error) error {
	s.cmd = cb
	if err := p.transition(s, SlotIdle, frame); err != nil {
		return errors.Join(cause, err)
	}
	return cause
}

// retire waits on the slot's submission and recycles its command buffer.
func (p *Pool) retire(s *slot, frame uint64) error {
	cb, err := p.session.Wait(s.submitted)
	if err != nil {
		return fmt.Errorf("frame: wait on slot %d (frame %d): %w", s.index, s.submittedFrame, err)
	}
	s.cmd = cb
	s.submitted = nil
	return p.transition(s, SlotIdle, frame)
}

// acquire gets the next swapchain image. An out-of-date swapchain is
// rebuilt once and the acquire retried.
func (p *Pool) acquire() (int, gpucore.Semaphore, bool, error) {
	index, sem, err := p.swapchain.Acquire()
	if err == nil {
		return index, sem, false, nil
	}
	if !errors.Is(err, gpucore.ErrSwapchainOutOfDate) {
		return 0, nil, false, fmt.Errorf("frame: acquire swapchain image: %w", err)
	}

	slogger().Warn("frame: swapchain out of date at acquire, rebuilding")
	if err := p.recreateSwapchain(); err != nil {
		return 0, nil, false, err
	}
	index, sem, err = p.swapchain.Acquire()
	if err != nil {
		return 0, nil, true, fmt.Errorf("frame: acquire after swapchain rebuild: %w", err)
	}
	return index, sem, true, nil
}

// recreateSwapchain retires every in-flight submission, then rebuilds the
// swapchain at the requested size.
func (p *Pool) recreateSwapchain() error {
	if err := p.WaitIdle(); err != nil {
		return err
	}
	w, h := p.swapW, p.swapH
	if err := p.swapchain.Recreate(w, h); err != nil {
		return fmt.Errorf("frame: recreate swapchain %dx%d: %w", w, h, err)
	}
	p.pendingResize = false
	slogger().Info("frame: swapchain rebuilt", "size", fmt.Sprintf("%dx%d", w, h))
	return nil
}

// WaitIdle retires every in-flight submission.
func (p *Pool) WaitIdle() error {
	for _, s := range p.slots {
		if s.state != SlotSubmitted {
			continue
		}
		if err := p.retire(s, s.submittedFrame); err != nil {
			return err
		}
	}
	return nil
}

// Close waits for in-flight work and destroys the swapchain and session.
func (p *Pool) Close() error {
	if p.closed {
		return nil
	}
	p.closed = true
	err := p.WaitIdle()
	p.swapchain.Destroy()
	p.session.Destroy()
	return err
}

func (p *Pool) transition(s *slot, to SlotState, frame uint64) error {
	t, err := s.transition(to, frame)
	if err != nil {
		slogger().Error("frame: slot state violation", "transition", t.String())
		return err
	}
	slogger().Debug("frame: slot transition", "slot", t.Slot, "frame", t.Frame, "from", t.From.String(), "to", t.To.String())
	for _, fn := range p.observers {
		fn(t)
	}
	return nil
}
