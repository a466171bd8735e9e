package soft

import (
	"fmt"

	"github.com/gogpu/ggframe/gpucore"
)

type opcode uint8

const (
	opResetQueries opcode = iota + 1
	opTimestamp
	opRenderScene
	opBarrier
	opBlit
)

// command is one recorded device operation.
type command struct {
	op       opcode
	queries  *queryPool
	index    int
	src      *buffer
	img, dst *texture
	from, to gpucore.ImageLayout
}

// commandBuffer records commands between Begin and Finish. The first
// recording error sticks until the next Begin.
type commandBuffer struct {
	owner     *Session
	cmds      []command
	recording bool
	finished  bool
	inFlight  bool
	err       error
}

func (c *commandBuffer) Begin() error {
	if c.inFlight {
		return fmt.Errorf("soft: begin on a command buffer still in flight")
	}
	c.cmds = c.cmds[:0]
	c.recording, c.finished, c.err = true, false, nil
	return nil
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

func (c *commandBuffer) queryPool(qp gpucore.QueryPool) *queryPool {
	q, ok := qp.(*queryPool)
	if !ok || q.owner != c.owner {
		c.fail(gpucore.ErrForeignObject)
		return nil
	}
	return q
}

func (c *commandBuffer) texture(img gpucore.Image) *texture {
	t, ok := img.(*texture)
	if !ok || t.owner != c.owner {
		c.fail(gpucore.ErrForeignObject)
		return nil
	}
	return t
}

func (c *commandBuffer) fail(err error) {
	if c.err == nil {
		c.err = err
	}
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
		c.fail(fmt.Errorf("soft: timestamp index %d out of range [0,%d)", index, q.Capacity()))
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
	if t := c.texture(dst); t != nil {
		c.record(command{op: opRenderScene, src: b, dst: t})
	}
}

func (c *commandBuffer) ImageBarrier(img gpucore.Image, from, to gpucore.ImageLayout) {
	if t := c.texture(img); t != nil {
		c.record(command{op: opBarrier, img: t, from: from, to: to})
	}
}

func (c *commandBuffer) BlitImage(src, dst gpucore.Image) {
	s, d := c.texture(src), c.texture(dst)
	if s != nil && d != nil {
		c.record(command{op: opBlit, img: s, dst: d})
	}
}

func (c *commandBuffer) Finish() error {
	if !c.recording {
		c.fail(gpucore.ErrNotRecording)
	}
	c.recording = false
	c.finished = c.err == nil
	return c.err
}
