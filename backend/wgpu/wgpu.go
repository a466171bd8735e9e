// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package wgpu

import (
	"errors"
	"fmt"
	"time"

	"github.com/gogpu/gg"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	"github.com/gogpu/wgpu/hal/noop"
	_ "github.com/gogpu/wgpu/hal/vulkan"

	"github.com/gogpu/ggframe/backend"
	"github.com/gogpu/ggframe/gpucore"
)

// ErrNoAdapter is returned when the HAL instance exposes no adapter.
var ErrNoAdapter = errors.New("wgpu: no adapter")

func init() {
	backend.Register(backend.NameWGPU, func(raw map[string]any) (gpucore.Backend, error) {
		opts, err := DecodeOptions(raw)
		if err != nil {
			return nil, err
		}
		return New(opts)
	})
}

// Backend holds a HAL instance and the adapter sessions are opened on.
type Backend struct {
	opts     Options
	instance hal.Instance
	adapter  hal.ExposedAdapter
}

// New opens a HAL instance and selects an adapter, preferring discrete
// and integrated GPUs.
func New(opts Options) (*Backend, error) {
	opts = opts.withDefaults()
	instance, err := openInstance(opts.API)
	if err != nil {
		return nil, err
	}
	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		instance.Destroy()
		return nil, fmt.Errorf("%w on %s", ErrNoAdapter, opts.API)
	}
	selected := adapters[0]
	for _, a := range adapters {
		if a.Info.DeviceType == gputypes.DeviceTypeDiscreteGPU ||
			a.Info.DeviceType == gputypes.DeviceTypeIntegratedGPU {
			selected = a
			break
		}
	}
	slogger().Info("wgpu: adapter selected", "api", opts.API, "name", selected.Info.Name)
	return &Backend{opts: opts, instance: instance, adapter: selected}, nil
}

func openInstance(api string) (hal.Instance, error) {
	switch api {
	case APINoop:
		return noop.API{}.CreateInstance(nil)
	case APIVulkan:
		b, ok := hal.GetBackend(gputypes.BackendVulkan)
		if !ok {
			return nil, fmt.Errorf("%w: vulkan backend not available", ErrNoAdapter)
		}
		instance, err := b.CreateInstance(&hal.InstanceDescriptor{Flags: 0})
		if err != nil {
			return nil, fmt.Errorf("wgpu: create vulkan instance: %w", err)
		}
		return instance, nil
	default:
		return nil, fmt.Errorf("wgpu: unknown api %q", api)
	}
}

// Name returns backend.NameWGPU.
func (b *Backend) Name() string { return backend.NameWGPU }

// Close destroys the HAL instance. Sessions must be destroyed first.
func (b *Backend) Close() {
	if b.instance != nil {
		b.instance.Destroy()
		b.instance = nil
	}
}

// CreateSession opens a device on the selected adapter.
func (b *Backend) CreateSession(surface gpucore.Surface) (gpucore.Session, error) {
	if err := surface.Validate(); err != nil {
		return nil, err
	}
	open, err := b.adapter.Adapter.Open(gputypes.Features(0), gputypes.DefaultLimits())
	if err != nil {
		return nil, fmt.Errorf("wgpu: open device: %w", err)
	}
	return NewSession(open.Device, open.Queue, surface, b.opts)
}

// Session drives one HAL device and queue.
type Session struct {
	opts    Options
	surface gpucore.Surface
	device  hal.Device
	queue   hal.Queue

	fence hal.Fence
	// submitted is the fence value of the newest submission.
	submitted uint64
	// completed is the newest fence value known to be reached.
	completed uint64

	blit *blitPipeline

	textures []*texture
	buffers  []*buffer
}

// NewSession takes ownership of device. The blit pipeline and the
// timeline fence are created before it returns.
func NewSession(device hal.Device, queue hal.Queue, surface gpucore.Surface, opts Options) (*Session, error) {
	opts = opts.withDefaults()
	fence, err := device.CreateFence()
	if err != nil {
		device.Destroy()
		return nil, fmt.Errorf("wgpu: create fence: %w", err)
	}
	blit, err := newBlitPipeline(device)
	if err != nil {
		device.DestroyFence(fence)
		device.Destroy()
		return nil, err
	}
	return &Session{
		opts:    opts,
		surface: surface,
		device:  device,
		queue:   queue,
		fence:   fence,
		blit:    blit,
	}, nil
}

func (s *Session) background() gg.RGBA { return gg.Hex(s.opts.Background) }

func (s *Session) CreateSemaphore() (gpucore.Semaphore, error) {
	return &semaphore{owner: s}, nil
}

func (s *Session) CreateQueryPool(capacity int) (gpucore.QueryPool, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("wgpu: query pool capacity %d", capacity)
	}
	return newQueryPool(s, capacity), nil
}

func (s *Session) CreateBuffer(size int) (gpucore.Buffer, error) {
	b := &buffer{owner: s}
	if err := b.reserve(uint64(max(size, 4))); err != nil {
		return nil, err
	}
	s.buffers = append(s.buffers, b)
	return b, nil
}

func (s *Session) CreateImage(width, height int) (gpucore.Image, error) {
	t, err := newTexture(s, width, height, "ggframe_target")
	if err != nil {
		return nil, err
	}
	s.textures = append(s.textures, t)
	return t, nil
}

func (s *Session) CreateSwapchain(width, height int) (gpucore.Swapchain, error) {
	return newSwapchain(s, width, height)
}

func (s *Session) AllocateCommandBuffer() (gpucore.CommandBuffer, error) {
	return &commandBuffer{owner: s}, nil
}

// Submit runs the host-side scene work recorded in cb, then submits the
// HAL command buffer at the next fence value. Every wait semaphore must
// already be signaled by earlier work on the queue.
func (s *Session) Submit(cb gpucore.CommandBuffer, waits, signals []gpucore.Semaphore) (gpucore.Submission, error) {
	c, ok := cb.(*commandBuffer)
	if !ok || c.owner != s {
		return nil, gpucore.ErrForeignObject
	}
	if c.raw == nil || c.inFlight {
		return nil, gpucore.ErrNotRecording
	}
	for _, w := range waits {
		sem, ok := w.(*semaphore)
		if !ok || sem.owner != s {
			return nil, gpucore.ErrForeignObject
		}
		if sem.value > s.submitted {
			return nil, fmt.Errorf("wgpu: wait on semaphore signaled at %d, queue is at %d", sem.value, s.submitted)
		}
	}
	sigs := make([]*semaphore, len(signals))
	for i, g := range signals {
		sem, ok := g.(*semaphore)
		if !ok || sem.owner != s {
			return nil, gpucore.ErrForeignObject
		}
		sigs[i] = sem
	}

	if err := c.runHost(); err != nil {
		return nil, err
	}

	value := s.submitted + 1
	if err := s.queue.Submit([]hal.CommandBuffer{c.raw}, s.fence, value); err != nil {
		return nil, fmt.Errorf("%w: submit: %v", gpucore.ErrDeviceLost, err)
	}
	s.submitted = value
	for _, sem := range sigs {
		sem.value = value
	}
	for _, dst := range c.blitTargets {
		dst.writtenAt = value
	}
	c.inFlight = true
	return &submission{owner: s, cb: c, value: value}, nil
}

// waitValue blocks until the fence reaches value.
func (s *Session) waitValue(value uint64) error {
	if value <= s.completed {
		return nil
	}
	ok, err := s.device.Wait(s.fence, value, s.opts.Timeout)
	if err != nil {
		return fmt.Errorf("%w: fence wait: %v", gpucore.ErrDeviceLost, err)
	}
	if !ok {
		return fmt.Errorf("%w: fence wait for %d timed out after %v", gpucore.ErrDeviceLost, value, s.opts.Timeout)
	}
	s.completed = max(s.completed, value)
	return nil
}

// Wait blocks until sub's fence value is reached, frees its HAL command
// buffer and returns the wrapper for reuse.
func (s *Session) Wait(sub gpucore.Submission) (gpucore.CommandBuffer, error) {
	ss, ok := sub.(*submission)
	if !ok || ss.owner != s {
		return nil, gpucore.ErrForeignObject
	}
	if ss.consumed {
		return nil, gpucore.ErrSubmissionConsumed
	}
	if err := s.waitValue(ss.value); err != nil {
		return nil, err
	}
	ss.consumed = true
	ss.cb.release()
	return ss.cb, nil
}

func (s *Session) FetchQueryPool(qp gpucore.QueryPool) ([]time.Duration, error) {
	q, ok := qp.(*queryPool)
	if !ok || q.owner != s {
		return nil, gpucore.ErrForeignObject
	}
	return q.intervals(), nil
}

// WaitIdle waits for the newest submission.
func (s *Session) WaitIdle() error {
	return s.waitValue(s.submitted)
}

// Destroy waits for the queue and releases every HAL object.
func (s *Session) Destroy() {
	if s.device == nil {
		return
	}
	if err := s.WaitIdle(); err != nil {
		slogger().Warn("wgpu: destroy without idle queue", "err", err)
	}
	for _, t := range s.textures {
		t.destroy()
	}
	for _, b := range s.buffers {
		b.destroy()
	}
	s.blit.destroy()
	s.device.DestroyFence(s.fence)
	s.device.Destroy()
	s.device = nil
}

// semaphore is signaled once the fence reaches value. Zero means the
// semaphore has never been signaled and satisfies no wait.
type semaphore struct {
	gpucore.SemaphoreBase
	owner *Session
	value uint64
}

type submission struct {
	owner    *Session
	cb       *commandBuffer
	value    uint64
	consumed bool
}

// Done reports whether the fence has been observed at the submission's
// value. It does not poll the device.
func (s *submission) Done() bool {
	return s.owner.completed >= s.value
}
