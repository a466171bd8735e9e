// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package frame

import (
	"errors"
	"fmt"

	"github.com/gogpu/ggframe/gpucore"
	"github.com/gogpu/ggframe/render"
	"github.com/gogpu/ggframe/scene"
)

// Query indices written by Record.
const (
	queryBegin = iota
	queryRaster
	queryEnd
)

// QueryPoolCapacity is the number of timestamps each slot's pool holds.
const QueryPoolCapacity = 8

// initialStagingSize is the starting size of each staging buffer. Buffers
// grow on demand.
const initialStagingSize = 64 << 10

// Renderer turns a drawing context into device work. It owns the internal
// render target and one staging buffer per slot, so uploading frame f+1
// never overwrites the encoding frame f-1's submission may still read.
type Renderer struct {
	target  gpucore.Image
	staging []gpucore.Buffer

	enc *scene.Encoding
	buf []byte
	// last is the newest encoding written successfully to any slot.
	last     []byte
	haveLast bool

	// uploaded is the encoding size last written to each staging buffer.
	uploaded []int
}

// NewRenderer creates the render target and n staging buffers.
func NewRenderer(session gpucore.Session, width, height, n int) (*Renderer, error) {
	target, err := session.CreateImage(width, height)
	if err != nil {
		return nil, fmt.Errorf("frame: create render target: %w", err)
	}
	r := &Renderer{
		target:   target,
		staging:  make([]gpucore.Buffer, n),
		enc:      scene.NewEncoding(),
		uploaded: make([]int, n),
	}
	for i := range r.staging {
		b, err := session.CreateBuffer(initialStagingSize)
		if err != nil {
			return nil, fmt.Errorf("frame: create staging buffer %d: %w", i, err)
		}
		r.staging[i] = b
	}
	return r, nil
}

// Target returns the internal render target.
func (r *Renderer) Target() gpucore.Image {
	return r.target
}

// Uploaded returns the size in bytes of the encoding staged for slot.
func (r *Renderer) Uploaded(slot int) int {
	return r.uploaded[slot]
}

// Upload encodes dc and writes it to the slot's staging buffer. On error
// the slot is staged with the newest successful upload instead, so the
// previous frame is presented again.
func (r *Renderer) Upload(dc *render.DrawContext, slot int) error {
	err := r.upload(dc, slot)
	if err == nil || !r.haveLast {
		return err
	}
	if werr := r.staging[slot].Write(r.last); werr != nil {
		return errors.Join(err, fmt.Errorf("frame: restage slot %d: %w", slot, werr))
	}
	r.uploaded[slot] = len(r.last)
	return err
}

func (r *Renderer) upload(dc *render.DrawContext, slot int) error {
	if err := dc.Encode(r.enc); err != nil {
		return fmt.Errorf("frame: encode drawing context: %w", err)
	}
	data, err := r.enc.AppendBinary(r.buf[:0])
	if err != nil {
		return fmt.Errorf("frame: serialize encoding: %w", err)
	}
	r.buf = data
	if err := r.staging[slot].Write(data); err != nil {
		return fmt.Errorf("frame: upload slot %d: %w", slot, err)
	}
	r.uploaded[slot] = len(data)
	r.last, r.buf = data, r.last[:0]
	r.haveLast = true
	return nil
}

// Record writes the scene raster for slot into cb, bracketed by
// timestamps in qp. The target ends in LayoutBlitSrc.
func (r *Renderer) Record(cb gpucore.CommandBuffer, qp gpucore.QueryPool, slot int) {
	cb.ResetQueryPool(qp)
	cb.WriteTimestamp(qp, queryBegin)
	cb.ImageBarrier(r.target, gpucore.LayoutUndefined, gpucore.LayoutGeneral)
	cb.RenderScene(r.staging[slot], r.target)
	cb.WriteTimestamp(qp, queryRaster)
	cb.ImageBarrier(r.target, gpucore.LayoutGeneral, gpucore.LayoutBlitSrc)
	cb.WriteTimestamp(qp, queryEnd)
}
