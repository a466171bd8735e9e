// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package wgpu

import (
	"fmt"
	"image"
	"time"

	"github.com/gogpu/gg"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/ggframe/gpucore"
)

// copyPitchAlignment is the BytesPerRow alignment required for
// texture-to-buffer copies.
const copyPitchAlignment = 256

func alignedRowPitch(width int) uint32 {
	return (uint32(width)*4 + copyPitchAlignment - 1) &^ (copyPitchAlignment - 1)
}

// buffer is a device buffer with a host shadow of its contents. The
// scene rasterizer reads the shadow; the device copy follows it through
// queue writes.
type buffer struct {
	owner *Session
	raw   hal.Buffer
	size  uint64
	data  []byte
}

// reserve makes the device buffer at least n bytes, replacing it if it
// is smaller.
func (b *buffer) reserve(n uint64) error {
	n = (n + 3) &^ 3
	if b.raw != nil && b.size >= n {
		return nil
	}
	raw, err := b.owner.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "ggframe_staging",
		Size:  n,
		Usage: gputypes.BufferUsageCopyDst | gputypes.BufferUsageStorage,
	})
	if err != nil {
		return fmt.Errorf("wgpu: create staging buffer (%d bytes): %w", n, err)
	}
	if b.raw != nil {
		b.owner.device.DestroyBuffer(b.raw)
	}
	b.raw, b.size = raw, n
	return nil
}

func (b *buffer) Size() int { return int(b.size) }

func (b *buffer) Write(data []byte) error {
	if err := b.reserve(uint64(len(data))); err != nil {
		return err
	}
	b.data = append(b.data[:0], data...)
	if len(data) == 0 {
		return nil
	}
	padded := b.data
	if rem := len(padded) % 4; rem != 0 {
		padded = append(padded[:len(padded):len(padded)], make([]byte, 4-rem)...)
	}
	b.owner.queue.WriteBuffer(b.raw, 0, padded)
	return nil
}

func (b *buffer) destroy() {
	if b.raw != nil {
		b.owner.device.DestroyBuffer(b.raw)
		b.raw = nil
	}
}

// texture is the render target: a device texture written from a host
// raster at submit time and sampled by the blit pipeline.
type texture struct {
	owner  *Session
	raw    hal.Texture
	view   hal.TextureView
	bind   hal.BindGroup
	width  int
	height int
	layout gpucore.ImageLayout

	dc     *gg.Context
	pixels *image.RGBA
}

func newTexture(owner *Session, w, h int, label string) (*texture, error) {
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("%w: image %dx%d", gpucore.ErrInvalidSurface, w, h)
	}
	raw, err := owner.device.CreateTexture(&hal.TextureDescriptor{
		Label:         label,
		Size:          hal.Extent3D{Width: uint32(w), Height: uint32(h), DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        swapFormat,
		Usage:         gputypes.TextureUsageCopySrc | gputypes.TextureUsageCopyDst | gputypes.TextureUsageTextureBinding,
	})
	if err != nil {
		return nil, fmt.Errorf("wgpu: create texture %s: %w", label, err)
	}
	t := &texture{
		owner:  owner,
		raw:    raw,
		width:  w,
		height: h,
		pixels: image.NewRGBA(image.Rect(0, 0, w, h)),
	}
	t.view, err = owner.device.CreateTextureView(raw, &hal.TextureViewDescriptor{Label: label + "_view"})
	if err != nil {
		t.destroy()
		return nil, fmt.Errorf("wgpu: create texture view %s: %w", label, err)
	}
	t.bind, err = owner.blit.bindGroup(t.view, label+"_blit_bind")
	if err != nil {
		t.destroy()
		return nil, err
	}
	return t, nil
}

func (t *texture) Size() (int, int) { return t.width, t.height }

func (t *texture) context() *gg.Context {
	if t.dc == nil {
		t.dc = gg.NewContext(t.width, t.height)
	}
	return t.dc
}

// upload writes the host pixels into the device texture.
func (t *texture) upload() {
	t.owner.queue.WriteTexture(
		&hal.ImageCopyTexture{Texture: t.raw, MipLevel: 0},
		t.pixels.Pix,
		&hal.ImageDataLayout{
			Offset:       0,
			BytesPerRow:  uint32(t.pixels.Stride),
			RowsPerImage: uint32(t.height),
		},
		&hal.Extent3D{Width: uint32(t.width), Height: uint32(t.height), DepthOrArrayLayers: 1},
	)
}

func (t *texture) destroy() {
	if t.dc != nil {
		t.dc.Close()
		t.dc = nil
	}
	if t.bind != nil {
		t.owner.device.DestroyBindGroup(t.bind)
		t.bind = nil
	}
	if t.view != nil {
		t.owner.device.DestroyTextureView(t.view)
		t.view = nil
	}
	if t.raw != nil {
		t.owner.device.DestroyTexture(t.raw)
		t.raw = nil
	}
}

// usageFor maps an image layout to the texture usage the device tracks.
func usageFor(l gpucore.ImageLayout) gputypes.TextureUsage {
	switch l {
	case gpucore.LayoutGeneral, gpucore.LayoutBlitDst:
		return gputypes.TextureUsageCopyDst
	case gpucore.LayoutBlitSrc:
		return gputypes.TextureUsageCopySrc
	case gpucore.LayoutPresent:
		return gputypes.TextureUsageTextureBinding
	default:
		return 0
	}
}

// queryPool records host timestamps at submit time. The noop and
// software HAL devices expose no timestamp queries, so the raster phase
// is timed where it runs.
type queryPool struct {
	owner *Session
	at    []time.Time
	set   []bool
}

func newQueryPool(owner *Session, n int) *queryPool {
	return &queryPool{owner: owner, at: make([]time.Time, n), set: make([]bool, n)}
}

func (q *queryPool) Capacity() int { return len(q.at) }

func (q *queryPool) reset() { clear(q.set) }

func (q *queryPool) write(i int, t time.Time) { q.at[i], q.set[i] = t, true }

func (q *queryPool) intervals() []time.Duration {
	var (
		out  []time.Duration
		prev time.Time
		have bool
	)
	for i, ok := range q.set {
		if !ok {
			continue
		}
		if have {
			out = append(out, q.at[i].Sub(prev))
		}
		prev, have = q.at[i], true
	}
	return out
}
