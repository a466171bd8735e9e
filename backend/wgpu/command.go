// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package wgpu

import (
	"errors"
	"fmt"
	"image"
	"slices"
	"time"

	"github.com/gogpu/wgpu/hal"
	"golang.org/x/image/draw"

	"github.com/gogpu/ggframe/gpucore"
	"github.com/gogpu/ggframe/scene"
)

// errLayout reports a command issued against an image in the wrong layout.
var errLayout = errors.New("wgpu: image layout mismatch")

type opcode uint8

const (
	opResetQueries opcode = iota + 1
	opTimestamp
	opRenderScene
	opBarrier
	opBlit
)

type command struct {
	op       opcode
	queries  *queryPool
	index    int
	src      *buffer
	tex      *texture
	swap     *swapImage
	from, to gpucore.ImageLayout
}

// commandBuffer collects commands between Begin and Finish. Finish
// validates image layouts and encodes the device commands; host commands
// run at submit time in recorded order.
type commandBuffer struct {
	owner     *Session
	cmds      []command
	recording bool
	inFlight  bool
	err       error

	raw         hal.CommandBuffer
	blitTargets []*swapImage
}

func (c *commandBuffer) Begin() error {
	if c.inFlight {
		return errors.New("wgpu: begin on a command buffer still in flight")
	}
	c.release()
	c.cmds = c.cmds[:0]
	c.blitTargets = c.blitTargets[:0]
	c.recording, c.err = true, nil
	return nil
}

// release frees the device command buffer after its submission retired.
func (c *commandBuffer) release() {
	if c.raw != nil {
		c.owner.device.FreeCommandBuffer(c.raw)
		c.raw = nil
	}
	c.inFlight = false
}

func (c *commandBuffer) record(cmd command) {
	if c.err != nil {
		return
	}
	if !c.recording {
		c.err = gpucore.ErrNotRecording
		return
	}
	c.cmds = append(c.cmds, cmd)
}

func (c *commandBuffer) fail(err error) {
	if c.err == nil {
		c.err = err
	}
}

func (c *commandBuffer) queryPool(qp gpucore.QueryPool) *queryPool {
	q, ok := qp.(*queryPool)
	if !ok || q.owner != c.owner {
		c.fail(gpucore.ErrForeignObject)
		return nil
	}
	return q
}

func (c *commandBuffer) ResetQueryPool(qp gpucore.QueryPool) {
	if q := c.queryPool(qp); q != nil {
		c.record(command{op: opResetQueries, queries: q})
	}
}

func (c *commandBuffer) WriteTimestamp(qp gpucore.QueryPool, index int) {
	q := c.queryPool(qp)
	if q == nil {
		return
	}
	if index < 0 || index >= q.Capacity() {
		c.fail(fmt.Errorf("wgpu: timestamp index %d out of range [0,%d)", index, q.Capacity()))
		return
	}
	c.record(command{op: opTimestamp, queries: q, index: index})
}

func (c *commandBuffer) RenderScene(src gpucore.Buffer, dst gpucore.Image) {
	b, ok := src.(*buffer)
	if !ok || b.owner != c.owner {
		c.fail(gpucore.ErrForeignObject)
		return
	}
	t, ok := dst.(*texture)
	if !ok || t.owner != c.owner {
		c.fail(gpucore.ErrForeignObject)
		return
	}
	c.record(command{op: opRenderScene, src: b, tex: t})
}

func (c *commandBuffer) ImageBarrier(img gpucore.Image, from, to gpucore.ImageLayout) {
	switch v := img.(type) {
	case *texture:
		if v.owner == c.owner {
			c.record(command{op: opBarrier, tex: v, from: from, to: to})
			return
		}
	case *swapImage:
		if v.owner.session == c.owner {
			c.record(command{op: opBarrier, swap: v, from: from, to: to})
			return
		}
	}
	c.fail(gpucore.ErrForeignObject)
}

// BlitImage draws the render target into a swapchain image through the
// blit pipeline, scaling it to the swapchain size, and copies the image
// into its readback buffer.
func (c *commandBuffer) BlitImage(src, dst gpucore.Image) {
	t, ok := src.(*texture)
	if !ok || t.owner != c.owner {
		c.fail(gpucore.ErrForeignObject)
		return
	}
	s, ok := dst.(*swapImage)
	if !ok || s.owner.session != c.owner {
		c.fail(gpucore.ErrForeignObject)
		return
	}
	c.record(command{op: opBlit, tex: t, swap: s})
}

func (c *commandBuffer) Finish() error {
	if !c.recording {
		c.fail(gpucore.ErrNotRecording)
	}
	c.recording = false
	if c.err != nil {
		return c.err
	}
	if err := c.encode(); err != nil {
		c.err = err
	}
	return c.err
}

// encode walks the commands with a shadow of every image layout, encodes
// barriers and copies, and commits the layouts once encoding succeeds.
func (c *commandBuffer) encode() error {
	device := c.owner.device
	encoder, err := device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: "ggframe_encoder"})
	if err != nil {
		return fmt.Errorf("wgpu: create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding("ggframe_frame"); err != nil {
		return fmt.Errorf("wgpu: begin encoding: %w", err)
	}

	texLayouts := make(map[*texture]gpucore.ImageLayout)
	swapLayouts := make(map[*swapImage]gpucore.ImageLayout)
	texLayout := func(t *texture) gpucore.ImageLayout {
		if l, ok := texLayouts[t]; ok {
			return l
		}
		return t.layout
	}
	swapLayout := func(s *swapImage) gpucore.ImageLayout {
		if l, ok := swapLayouts[s]; ok {
			return l
		}
		return s.layout
	}

	for i := range c.cmds {
		cmd := &c.cmds[i]
		var err error
		switch cmd.op {
		case opResetQueries, opTimestamp:
		case opRenderScene:
			if l := texLayout(cmd.tex); l != gpucore.LayoutGeneral {
				err = fmt.Errorf("%w: render into %v image", errLayout, l)
			}
		case opBarrier:
			if cmd.tex != nil {
				if cmd.from != gpucore.LayoutUndefined && texLayout(cmd.tex) != cmd.from {
					err = fmt.Errorf("%w: barrier from %v, image is %v", errLayout, cmd.from, texLayout(cmd.tex))
					break
				}
				encoder.TransitionTextures([]hal.TextureBarrier{{
					Texture: cmd.tex.raw,
					Usage: hal.TextureUsageTransition{
						OldUsage: usageFor(cmd.from),
						NewUsage: usageFor(cmd.to),
					},
				}})
				texLayouts[cmd.tex] = cmd.to
			} else {
				if cmd.from != gpucore.LayoutUndefined && swapLayout(cmd.swap) != cmd.from {
					err = fmt.Errorf("%w: barrier from %v, image is %v", errLayout, cmd.from, swapLayout(cmd.swap))
					break
				}
				swapLayouts[cmd.swap] = cmd.to
			}
		case opBlit:
			if texLayout(cmd.tex) != gpucore.LayoutBlitSrc || swapLayout(cmd.swap) != gpucore.LayoutBlitDst {
				err = fmt.Errorf("%w: blit %v -> %v", errLayout, texLayout(cmd.tex), swapLayout(cmd.swap))
				break
			}
			cmd.swap.encodeBlit(encoder, cmd.tex, cmd.swap.drawn || slices.Contains(c.blitTargets, cmd.swap))
			c.blitTargets = append(c.blitTargets, cmd.swap)
		}
		if err != nil {
			encoder.DiscardEncoding()
			return fmt.Errorf("wgpu: command %d: %w", i, err)
		}
	}

	raw, err := encoder.EndEncoding()
	if err != nil {
		return fmt.Errorf("wgpu: end encoding: %w", err)
	}
	for t, l := range texLayouts {
		t.layout = l
	}
	for s, l := range swapLayouts {
		s.layout = l
	}
	for _, s := range c.blitTargets {
		s.drawn = true
	}
	c.raw = raw
	return nil
}

// runHost executes the host-side commands in recorded order: query
// resets, timestamps and scene rasterization followed by a texture
// upload.
func (c *commandBuffer) runHost() error {
	for i := range c.cmds {
		cmd := &c.cmds[i]
		switch cmd.op {
		case opResetQueries:
			cmd.queries.reset()
		case opTimestamp:
			cmd.queries.write(cmd.index, time.Now())
		case opRenderScene:
			if err := c.owner.renderScene(cmd.src.data, cmd.tex); err != nil {
				return fmt.Errorf("wgpu: command %d: %w", i, err)
			}
		}
	}
	return nil
}

// renderScene rasterizes a staged encoding into dst's host pixels and
// uploads them. An empty buffer clears the target.
func (s *Session) renderScene(data []byte, dst *texture) error {
	dc := dst.context()
	dc.ClearWithColor(s.background())
	if len(data) > 0 {
		var enc scene.Encoding
		if err := enc.UnmarshalBinary(data); err != nil {
			return err
		}
		if err := scene.Rasterize(&enc, dc, scene.IdentityAffine()); err != nil {
			return err
		}
	}
	draw.Copy(dst.pixels, image.Point{}, dc.Image(), dst.pixels.Bounds(), draw.Src, nil)
	dst.upload()
	return nil
}
