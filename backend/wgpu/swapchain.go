// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package wgpu

import (
	"fmt"
	"image"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/ggframe/gpucore"
)

// Swapchain presents by reading each blitted frame back into host
// memory. Readback of a presented image is deferred until the image is
// acquired again, or until LastPresented, Recreate or Destroy needs it,
// so Present never blocks on the fence.
type Swapchain struct {
	session *Session
	width   int
	height  int
	images  []*swapImage
	next    int

	// order lists presented image indices awaiting readback, oldest first.
	order     []int
	last      *image.RGBA
	presented uint64
	outOfDate bool
}

// swapImage is one presentable image: a device render attachment the
// blit pipeline draws into and a buffer it is copied back through.
type swapImage struct {
	owner  *Swapchain
	index  int
	layout gpucore.ImageLayout
	ready  *semaphore

	raw  hal.Texture
	view hal.TextureView
	// drawn is set once a blit has been encoded into raw, leaving it in
	// copy-source usage.
	drawn bool

	readback     hal.Buffer
	readbackSize uint64

	// writtenAt is the fence value of the last submission that copied
	// into readback.
	writtenAt uint64
	pending   bool
	front     *image.RGBA
}

func newSwapchain(s *Session, w, h int) (*Swapchain, error) {
	sc := &Swapchain{session: s}
	if err := sc.build(w, h); err != nil {
		return nil, err
	}
	return sc, nil
}

func (sc *Swapchain) build(w, h int) error {
	if w <= 0 || h <= 0 {
		return fmt.Errorf("%w: swapchain %dx%d", gpucore.ErrInvalidSurface, w, h)
	}
	sc.width, sc.height = w, h
	sc.images = make([]*swapImage, sc.session.opts.SwapchainImages)
	for i := range sc.images {
		img := &swapImage{
			owner: sc,
			index: i,
			ready: &semaphore{owner: sc.session},
			front: image.NewRGBA(image.Rect(0, 0, w, h)),
		}
		sc.images[i] = img
		if err := img.create(); err != nil {
			sc.release()
			return err
		}
	}
	sc.next = 0
	sc.order = sc.order[:0]
	sc.outOfDate = false
	return nil
}

// Acquire returns the next image in rotation. Its semaphore is satisfied
// by work already on the queue, since the image's previous frame is read
// back here first.
func (sc *Swapchain) Acquire() (int, gpucore.Semaphore, error) {
	if sc.outOfDate {
		return 0, nil, gpucore.ErrSwapchainOutOfDate
	}
	img := sc.images[sc.next]
	sc.next = (sc.next + 1) % len(sc.images)
	if err := sc.resolveThrough(img.index); err != nil {
		return 0, nil, err
	}
	img.ready.value = sc.session.submitted
	return img.index, img.ready, nil
}

func (sc *Swapchain) Image(index int) gpucore.Image { return sc.images[index] }

// Present queues image index for readback once the submission that
// copied into it completes.
func (sc *Swapchain) Present(index int, waits []gpucore.Semaphore) error {
	for _, w := range waits {
		sem, ok := w.(*semaphore)
		if !ok || sem.owner != sc.session {
			return gpucore.ErrForeignObject
		}
	}
	if sc.outOfDate {
		return gpucore.ErrSwapchainOutOfDate
	}
	if index < 0 || index >= len(sc.images) {
		return fmt.Errorf("wgpu: present index %d out of range", index)
	}
	img := sc.images[index]
	if img.layout != gpucore.LayoutPresent {
		return fmt.Errorf("%w: present from %v", errLayout, img.layout)
	}
	img.pending = true
	sc.order = append(sc.order, index)
	return nil
}

// resolveThrough reads back every pending present up to and including
// image index, oldest first.
func (sc *Swapchain) resolveThrough(index int) error {
	found := false
	for _, i := range sc.order {
		if i == index {
			found = true
			break
		}
	}
	if !found {
		return nil
	}
	for len(sc.order) > 0 {
		i := sc.order[0]
		sc.order = sc.order[1:]
		if err := sc.resolve(sc.images[i]); err != nil {
			return err
		}
		if i == index {
			return nil
		}
	}
	return nil
}

func (sc *Swapchain) resolveAll() error {
	for len(sc.order) > 0 {
		i := sc.order[0]
		sc.order = sc.order[1:]
		if err := sc.resolve(sc.images[i]); err != nil {
			return err
		}
	}
	return nil
}

// resolve waits for img's copy and strips the row padding into
// img.front.
func (sc *Swapchain) resolve(img *swapImage) error {
	if !img.pending {
		return nil
	}
	img.pending = false
	if img.readback == nil {
		return nil
	}
	if err := sc.session.waitValue(img.writtenAt); err != nil {
		return err
	}
	raw := make([]byte, img.readbackSize)
	if err := sc.session.queue.ReadBuffer(img.readback, 0, raw); err != nil {
		return fmt.Errorf("%w: readback: %v", gpucore.ErrDeviceLost, err)
	}
	front := img.front
	pitch := int(alignedRowPitch(sc.width))
	for y := range sc.height {
		copy(front.Pix[y*front.Stride:y*front.Stride+4*sc.width], raw[y*pitch:])
	}
	sc.last = front
	sc.presented++
	return nil
}

// create allocates the render attachment and the readback buffer at
// the swapchain size.
func (img *swapImage) create() error {
	sc := img.owner
	device := sc.session.device
	label := fmt.Sprintf("ggframe_swap_%d", img.index)
	raw, err := device.CreateTexture(&hal.TextureDescriptor{
		Label:         label,
		Size:          hal.Extent3D{Width: uint32(sc.width), Height: uint32(sc.height), DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        swapFormat,
		Usage:         gputypes.TextureUsageRenderAttachment | gputypes.TextureUsageCopySrc,
	})
	if err != nil {
		return fmt.Errorf("wgpu: create %s: %w", label, err)
	}
	img.raw = raw
	img.view, err = device.CreateTextureView(raw, &hal.TextureViewDescriptor{Label: label + "_view"})
	if err != nil {
		return fmt.Errorf("wgpu: create %s view: %w", label, err)
	}
	size := uint64(alignedRowPitch(sc.width)) * uint64(sc.height)
	img.readback, err = device.CreateBuffer(&hal.BufferDescriptor{
		Label: label + "_readback",
		Size:  size,
		Usage: gputypes.BufferUsageMapRead | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("wgpu: create %s readback: %w", label, err)
	}
	img.readbackSize = size
	return nil
}

// encodeBlit records the blit pipeline drawing src into img, followed by
// the copy of img into its readback buffer. src is left in copy-source
// usage, matching LayoutBlitSrc. drawn reports whether img already holds
// an earlier blit.
func (img *swapImage) encodeBlit(encoder hal.CommandEncoder, src *texture, drawn bool) {
	sc := img.owner
	prev := gputypes.TextureUsage(0)
	if drawn {
		prev = gputypes.TextureUsageCopySrc
	}
	encoder.TransitionTextures([]hal.TextureBarrier{
		{
			Texture: src.raw,
			Usage: hal.TextureUsageTransition{
				OldUsage: gputypes.TextureUsageCopySrc,
				NewUsage: gputypes.TextureUsageTextureBinding,
			},
		},
		{
			Texture: img.raw,
			Usage: hal.TextureUsageTransition{
				OldUsage: prev,
				NewUsage: gputypes.TextureUsageRenderAttachment,
			},
		},
	})
	sc.session.blit.encode(encoder, src.bind, img.view)
	encoder.TransitionTextures([]hal.TextureBarrier{
		{
			Texture: src.raw,
			Usage: hal.TextureUsageTransition{
				OldUsage: gputypes.TextureUsageTextureBinding,
				NewUsage: gputypes.TextureUsageCopySrc,
			},
		},
		{
			Texture: img.raw,
			Usage: hal.TextureUsageTransition{
				OldUsage: gputypes.TextureUsageRenderAttachment,
				NewUsage: gputypes.TextureUsageCopySrc,
			},
		},
	})
	encoder.CopyTextureToBuffer(img.raw, img.readback, []hal.BufferTextureCopy{{
		BufferLayout: hal.ImageDataLayout{Offset: 0, BytesPerRow: alignedRowPitch(sc.width), RowsPerImage: uint32(sc.height)},
		TextureBase:  hal.ImageCopyTexture{Texture: img.raw, MipLevel: 0},
		Size:         hal.Extent3D{Width: uint32(sc.width), Height: uint32(sc.height), DepthOrArrayLayers: 1},
	}})
}

func (img *swapImage) Size() (int, int) { return img.owner.width, img.owner.height }

// Recreate drains the queue, reads back pending frames and rebuilds the
// images at the new size.
func (sc *Swapchain) Recreate(width, height int) error {
	if err := sc.session.WaitIdle(); err != nil {
		return err
	}
	if err := sc.resolveAll(); err != nil {
		return err
	}
	sc.release()
	return sc.build(width, height)
}

// Invalidate marks the swapchain out of date, as a surface resize would.
func (sc *Swapchain) Invalidate() { sc.outOfDate = true }

func (sc *Swapchain) Size() (int, int) { return sc.width, sc.height }

// LastPresented returns a copy of the newest presented frame, or nil if
// nothing has been presented. Frames whose readback fails are skipped.
func (sc *Swapchain) LastPresented() *image.RGBA {
	if err := sc.resolveAll(); err != nil {
		slogger().Warn("wgpu: readback failed", "err", err)
	}
	if sc.last == nil {
		return nil
	}
	out := image.NewRGBA(sc.last.Bounds())
	copy(out.Pix, sc.last.Pix)
	return out
}

// Presented returns the number of frames read back so far.
func (sc *Swapchain) Presented() uint64 { return sc.presented }

func (sc *Swapchain) release() {
	device := sc.session.device
	for _, img := range sc.images {
		if img == nil {
			continue
		}
		if img.readback != nil {
			device.DestroyBuffer(img.readback)
			img.readback = nil
		}
		if img.view != nil {
			device.DestroyTextureView(img.view)
			img.view = nil
		}
		if img.raw != nil {
			device.DestroyTexture(img.raw)
			img.raw = nil
		}
	}
}

// Destroy releases the images and readback buffers. The session must
// be idle.
func (sc *Swapchain) Destroy() {
	if sc.session.device == nil {
		return
	}
	if err := sc.resolveAll(); err != nil {
		slogger().Warn("wgpu: swapchain destroyed with unresolved frames", "err", err)
	}
	sc.release()
}
