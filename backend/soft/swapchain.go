package soft

import (
	"fmt"
	"image"
	"sync"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/ggframe/gpucore"
)

// Swapchain is a ring of presentable images. An image can be acquired
// again once its previous present has executed.
type Swapchain struct {
	owner *Session

	mu        sync.Mutex
	images    []*texture
	acquired  []*semaphore
	pending   []bool // present queued, not yet executed
	notify    []bool // signal acquired[i] when the pending present finishes
	next      int
	outOfDate bool

	front     *image.RGBA
	presented uint64
}

func newSwapchain(owner *Session, width, height int) (*Swapchain, error) {
	sc := &Swapchain{owner: owner}
	if err := sc.build(width, height); err != nil {
		return nil, err
	}
	return sc, nil
}

func (sc *Swapchain) build(width, height int) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("soft: swapchain size %dx%d", width, height)
	}
	n := sc.owner.opts.SwapchainImages
	for _, t := range sc.images {
		t.release()
	}
	sc.images = make([]*texture, n)
	sc.acquired = make([]*semaphore, n)
	sc.pending = make([]bool, n)
	sc.notify = make([]bool, n)
	for i := range n {
		sc.images[i] = newTexture(sc.owner, width, height)
		sc.acquired[i] = newSemaphore(sc.owner)
	}
	sc.next = 0
	sc.outOfDate = false
	return nil
}

// Acquire returns the next image in the ring. Its semaphore is signaled
// once the image's previous present has executed.
func (sc *Swapchain) Acquire() (int, gpucore.Semaphore, error) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	if sc.outOfDate {
		return 0, nil, gpucore.ErrSwapchainOutOfDate
	}
	i := sc.next
	sc.next = (sc.next + 1) % len(sc.images)
	if sc.pending[i] {
		sc.notify[i] = true
	} else {
		sc.acquired[i].signal()
	}
	return i, sc.acquired[i], nil
}

func (sc *Swapchain) Image(index int) gpucore.Image {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return sc.images[index]
}

// Present queues image index for display once every wait semaphore is
// signaled. An out-of-date swapchain still consumes the waits.
func (sc *Swapchain) Present(index int, waits []gpucore.Semaphore) error {
	sems, err := sc.owner.semaphores(waits)
	if err != nil {
		return err
	}
	sc.mu.Lock()
	if index < 0 || index >= len(sc.images) {
		sc.mu.Unlock()
		return fmt.Errorf("soft: present index %d out of range", index)
	}
	stale := sc.outOfDate
	sc.pending[index] = true
	img := sc.images[index]
	sc.mu.Unlock()

	if err := sc.owner.enqueue(&present{sc: sc, index: index, img: img, waits: sems, discard: stale}); err != nil {
		return err
	}
	if stale {
		return gpucore.ErrSwapchainOutOfDate
	}
	return nil
}

// Recreate rebuilds the images at a new size after the device has
// drained every queued operation.
func (sc *Swapchain) Recreate(width, height int) error {
	if err := sc.owner.WaitIdle(); err != nil {
		return err
	}
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return sc.build(width, height)
}

// Size returns the image size.
func (sc *Swapchain) Size() (int, int) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return sc.images[0].Size()
}

func (sc *Swapchain) Destroy() {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.outOfDate = true
}

// Invalidate marks the swapchain out of date, as a window resize would.
func (sc *Swapchain) Invalidate() {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.outOfDate = true
}

// LastPresented returns a copy of the most recently presented image, or
// nil before the first present.
func (sc *Swapchain) LastPresented() *image.RGBA {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	if sc.front == nil {
		return nil
	}
	out := image.NewRGBA(sc.front.Rect)
	copy(out.Pix, sc.front.Pix)
	return out
}

// Presented returns the number of executed presents.
func (sc *Swapchain) Presented() uint64 {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return sc.presented
}

// present is a queued presentation.
type present struct {
	sc      *Swapchain
	index   int
	img     *texture
	waits   []*semaphore
	discard bool
}

func (p *present) execute(s *Session) {
	for _, w := range p.waits {
		if err := w.wait(s.opts.Timeout); err != nil {
			s.lost.Store(true)
			slogger().Error("soft: present wait failed", "err", err)
			break
		}
	}

	sc := p.sc
	var frame *image.RGBA
	if !p.discard && p.img.layout == gpucore.LayoutPresent {
		frame = image.NewRGBA(p.img.pixels.Rect)
		copy(frame.Pix, p.img.pixels.Pix)
	} else if !p.discard {
		slogger().Warn("soft: presenting image not in present layout", "layout", p.img.layout.String())
	}

	sc.mu.Lock()
	if frame != nil {
		sc.front = frame
		sc.presented++
	}
	// The ring may have been rebuilt; only touch state of the same image.
	if p.index < len(sc.images) && sc.images[p.index] == p.img {
		sc.pending[p.index] = false
		if sc.notify[p.index] {
			sc.notify[p.index] = false
			sc.acquired[p.index].signal()
		}
	}
	sc.mu.Unlock()

	if frame != nil && s.opts.Sink != nil {
		if err := s.opts.Sink.UpdateData(encodePixels(frame, s.format)); err != nil {
			slogger().Warn("soft: present sink update failed", "err", err)
		}
	}
}

// encodePixels converts straight RGBA pixels to the surface format.
func encodePixels(img *image.RGBA, format gputypes.TextureFormat) []byte {
	out := make([]byte, len(img.Pix))
	copy(out, img.Pix)
	if format == gputypes.TextureFormatBGRA8Unorm {
		for i := 0; i+3 < len(out); i += 4 {
			out[i], out[i+2] = out[i+2], out[i]
		}
	}
	return out
}
