package soft

import (
	"errors"
	"fmt"
	"image"
	"time"

	"golang.org/x/image/draw"

	"github.com/gogpu/ggframe/gpucore"
	"github.com/gogpu/ggframe/scene"
)

// errLayout reports a command issued against an image in the wrong layout.
var errLayout = errors.New("soft: image layout mismatch")

func (sub *submission) execute(s *Session) {
	defer close(sub.done)
	for _, w := range sub.waits {
		if err := w.wait(s.opts.Timeout); err != nil {
			s.lost.Store(true)
			sub.err = err
			slogger().Error("soft: device lost", "err", err)
			return
		}
	}
	if s.opts.Latency > 0 {
		time.Sleep(s.opts.Latency)
	}
	for i := range sub.cb.cmds {
		if err := s.exec(&sub.cb.cmds[i]); err != nil {
			sub.err = fmt.Errorf("soft: command %d: %w", i, err)
			break
		}
	}
	// Signals fire even after a failed command so waiters are released;
	// the error is reported through Wait.
	for _, sig := range sub.signals {
		sig.signal()
	}
}

func (s *Session) exec(c *command) error {
	switch c.op {
	case opResetQueries:
		c.queries.reset()
	case opTimestamp:
		c.queries.write(c.index, time.Now())
	case opBarrier:
		if c.from != gpucore.LayoutUndefined && c.img.layout != c.from {
			return fmt.Errorf("%w: barrier from %v, image is %v", errLayout, c.from, c.img.layout)
		}
		c.img.layout = c.to
	case opRenderScene:
		if c.dst.layout != gpucore.LayoutGeneral {
			return fmt.Errorf("%w: render into %v image", errLayout, c.dst.layout)
		}
		return s.renderScene(c.src.bytes(), c.dst)
	case opBlit:
		if c.img.layout != gpucore.LayoutBlitSrc || c.dst.layout != gpucore.LayoutBlitDst {
			return fmt.Errorf("%w: blit %v -> %v", errLayout, c.img.layout, c.dst.layout)
		}
		blit(c.img.pixels, c.dst.pixels)
	default:
		return fmt.Errorf("soft: unknown opcode %d", c.op)
	}
	return nil
}

// renderScene decodes a staged encoding and rasterizes it into dst. An
// empty buffer clears the target.
func (s *Session) renderScene(data []byte, dst *texture) error {
	dc := dst.context()
	dc.ClearWithColor(s.opts.background())
	if len(data) > 0 {
		var enc scene.Encoding
		if err := enc.UnmarshalBinary(data); err != nil {
			return err
		}
		if err := scene.Rasterize(&enc, dc, scene.IdentityAffine()); err != nil {
			return err
		}
	}
	src := dc.Image()
	draw.Copy(dst.pixels, image.Point{}, src, src.Bounds(), draw.Src, nil)
	return nil
}

// blit scales src into dst with bilinear filtering. Equal sizes copy.
func blit(src, dst *image.RGBA) {
	if src.Bounds().Size() == dst.Bounds().Size() {
		draw.Copy(dst, dst.Bounds().Min, src, src.Bounds(), draw.Src, nil)
		return
	}
	draw.BiLinear.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)
}
