package frame

import (
	"errors"
	"time"

	"github.com/gogpu/ggframe/gpucore"
)

// fakeSession records every call so tests can check ordering. Submissions
// complete only when waited on.
type fakeSession struct {
	log []string

	nextSub     int
	waited      map[int]bool
	allocations int

	acquireErrs []error
	presentErrs []error
	finishErr   error
	writeErr    error
	recreated   int

	images int
}

func newFakeSession() *fakeSession {
	return &fakeSession{waited: make(map[int]bool)}
}

type fakeSem struct {
	gpucore.SemaphoreBase
	id int
}

type fakeQueryPool struct{ cap int }

func (q *fakeQueryPool) Capacity() int { return q.cap }

type fakeBuffer struct {
	s    *fakeSession
	data []byte
}

func (b *fakeBuffer) Size() int { return len(b.data) }

func (b *fakeBuffer) Write(data []byte) error {
	if b.s.writeErr != nil {
		return b.s.writeErr
	}
	b.data = append(b.data[:0], data...)
	return nil
}

type fakeImage struct{ w, h int }

func (i *fakeImage) Size() (int, int) { return i.w, i.h }

type fakeCmd struct {
	s         *fakeSession
	id        int
	recording bool
	commands  []string
}

func (c *fakeCmd) Begin() error {
	c.recording = true
	c.commands = c.commands[:0]
	return nil
}

func (c *fakeCmd) ResetQueryPool(gpucore.QueryPool) { c.commands = append(c.commands, "reset") }

func (c *fakeCmd) WriteTimestamp(_ gpucore.QueryPool, _ int) {
	c.commands = append(c.commands, "timestamp")
}

func (c *fakeCmd) RenderScene(gpucore.Buffer, gpucore.Image) {
	c.commands = append(c.commands, "render")
}

func (c *fakeCmd) ImageBarrier(_ gpucore.Image, from, to gpucore.ImageLayout) {
	c.commands = append(c.commands, "barrier "+from.String()+"->"+to.String())
}

func (c *fakeCmd) BlitImage(gpucore.Image, gpucore.Image) { c.commands = append(c.commands, "blit") }

func (c *fakeCmd) Finish() error {
	c.recording = false
	return c.s.finishErr
}

type fakeSubmission struct {
	id  int
	cmd *fakeCmd
	s   *fakeSession
}

func (s *fakeSubmission) Done() bool { return s.s.waited[s.id] }

type fakeSwapchain struct {
	s      *fakeSession
	images []*fakeImage
	next   int
}

func (sc *fakeSwapchain) Acquire() (int, gpucore.Semaphore, error) {
	if len(sc.s.acquireErrs) > 0 {
		err := sc.s.acquireErrs[0]
		sc.s.acquireErrs = sc.s.acquireErrs[1:]
		if err != nil {
			return 0, nil, err
		}
	}
	i := sc.next
	sc.next = (sc.next + 1) % len(sc.images)
	sc.s.log = append(sc.s.log, "acquire")
	return i, &fakeSem{id: 100 + i}, nil
}

func (sc *fakeSwapchain) Image(i int) gpucore.Image { return sc.images[i] }

func (sc *fakeSwapchain) Present(int, []gpucore.Semaphore) error {
	sc.s.log = append(sc.s.log, "present")
	if len(sc.s.presentErrs) > 0 {
		err := sc.s.presentErrs[0]
		sc.s.presentErrs = sc.s.presentErrs[1:]
		return err
	}
	return nil
}

func (sc *fakeSwapchain) Recreate(w, h int) error {
	sc.s.recreated++
	sc.s.log = append(sc.s.log, "recreate")
	for _, img := range sc.images {
		img.w, img.h = w, h
	}
	return nil
}

func (sc *fakeSwapchain) Size() (int, int) { return sc.images[0].Size() }
func (sc *fakeSwapchain) Destroy()         {}

func (s *fakeSession) CreateSemaphore() (gpucore.Semaphore, error) { return &fakeSem{}, nil }

func (s *fakeSession) CreateQueryPool(n int) (gpucore.QueryPool, error) {
	return &fakeQueryPool{cap: n}, nil
}

func (s *fakeSession) CreateBuffer(size int) (gpucore.Buffer, error) {
	return &fakeBuffer{s: s, data: make([]byte, 0, size)}, nil
}

func (s *fakeSession) CreateImage(w, h int) (gpucore.Image, error) {
	s.images++
	return &fakeImage{w: w, h: h}, nil
}

func (s *fakeSession) CreateSwapchain(w, h int) (gpucore.Swapchain, error) {
	sc := &fakeSwapchain{s: s}
	for range 3 {
		sc.images = append(sc.images, &fakeImage{w: w, h: h})
	}
	return sc, nil
}

func (s *fakeSession) AllocateCommandBuffer() (gpucore.CommandBuffer, error) {
	s.allocations++
	return &fakeCmd{s: s, id: s.allocations}, nil
}

func (s *fakeSession) Submit(cb gpucore.CommandBuffer, waits, signals []gpucore.Semaphore) (gpucore.Submission, error) {
	c := cb.(*fakeCmd)
	if c.recording {
		return nil, gpucore.ErrNotRecording
	}
	if len(waits) != 1 || len(signals) != 1 {
		return nil, errors.New("fake: want one wait and one signal semaphore")
	}
	id := s.nextSub
	s.nextSub++
	s.log = append(s.log, "submit")
	return &fakeSubmission{id: id, cmd: c, s: s}, nil
}

func (s *fakeSession) Wait(sub gpucore.Submission) (gpucore.CommandBuffer, error) {
	fs := sub.(*fakeSubmission)
	if s.waited[fs.id] {
		return nil, gpucore.ErrSubmissionConsumed
	}
	s.waited[fs.id] = true
	s.log = append(s.log, "wait")
	return fs.cmd, nil
}

func (s *fakeSession) FetchQueryPool(gpucore.QueryPool) ([]time.Duration, error) {
	return []time.Duration{time.Microsecond, time.Microsecond}, nil
}

func (s *fakeSession) WaitIdle() error { return nil }
func (s *fakeSession) Destroy()        {}
