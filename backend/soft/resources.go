package soft

import (
	"fmt"
	"image"
	"sync"
	"time"

	"github.com/gogpu/gg"

	"github.com/gogpu/ggframe/gpucore"
)

// semaphore is a binary semaphore: signal sets it, a device-side wait
// consumes the signal.
type semaphore struct {
	gpucore.SemaphoreBase
	owner *Session
	ch    chan struct{}
}

func newSemaphore(owner *Session) *semaphore {
	return &semaphore{owner: owner, ch: make(chan struct{}, 1)}
}

func (s *semaphore) signal() {
	select {
	case s.ch <- struct{}{}:
	default:
		// Already signaled; a second signal before a wait is dropped.
	}
}

func (s *semaphore) wait(timeout time.Duration) error {
	select {
	case <-s.ch:
		return nil
	case <-time.After(timeout):
		return fmt.Errorf("%w: semaphore wait timed out after %v", gpucore.ErrDeviceLost, timeout)
	}
}

// buffer is host-visible memory read by the device at execution time.
type buffer struct {
	owner *Session
	mu    sync.Mutex
	data  []byte
}

func (b *buffer) Size() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return cap(b.data)
}

func (b *buffer) Write(data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.data = append(b.data[:0], data...)
	return nil
}

func (b *buffer) bytes() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.data
}

// texture is a 2D RGBA image. layout and the raster context are only
// touched by the device goroutine.
type texture struct {
	owner  *Session
	pixels *image.RGBA
	layout gpucore.ImageLayout
	dc     *gg.Context
}

func newTexture(owner *Session, w, h int) *texture {
	return &texture{owner: owner, pixels: image.NewRGBA(image.Rect(0, 0, w, h))}
}

func (t *texture) Size() (int, int) {
	b := t.pixels.Bounds()
	return b.Dx(), b.Dy()
}

// context returns a gg context sized to the texture.
func (t *texture) context() *gg.Context {
	if t.dc == nil {
		w, h := t.Size()
		t.dc = gg.NewContext(w, h)
	}
	return t.dc
}

func (t *texture) release() {
	if t.dc != nil {
		t.dc.Close()
		t.dc = nil
	}
}

// queryPool stores timestamps written by the device.
type queryPool struct {
	owner *Session
	mu    sync.Mutex
	at    []time.Time
	set   []bool
}

func newQueryPool(owner *Session, n int) *queryPool {
	return &queryPool{owner: owner, at: make([]time.Time, n), set: make([]bool, n)}
}

func (q *queryPool) Capacity() int { return len(q.at) }

func (q *queryPool) reset() {
	q.mu.Lock()
	defer q.mu.Unlock()
	clear(q.set)
}

func (q *queryPool) write(i int, t time.Time) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.at[i], q.set[i] = t, true
}

// intervals returns the durations between consecutive written timestamps.
func (q *queryPool) intervals() []time.Duration {
	q.mu.Lock()
	defer q.mu.Unlock()
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
