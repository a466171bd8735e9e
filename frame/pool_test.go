package frame

import (
	"errors"
	"slices"
	"testing"

	"github.com/gogpu/gg"

	"github.com/gogpu/ggframe/gpucore"
	"github.com/gogpu/ggframe/render"
	"github.com/gogpu/ggframe/scene"
)

func newTestPool(t *testing.T) (*Pool, *fakeSession) {
	t.Helper()
	s := newFakeSession()
	p, err := NewPool(s, Config{Width: 64, Height: 48})
	if err != nil {
		t.Fatalf("NewPool: %v", err)
	}
	return p, s
}

func TestPoolSwapchainDefaultsToHalfSize(t *testing.T) {
	p, _ := newTestPool(t)
	if w, h := p.Swapchain().Size(); w != 32 || h != 24 {
		t.Errorf("swapchain size = %dx%d, want 32x24", w, h)
	}
}

func TestRenderFrameRotatesSlots(t *testing.T) {
	p, _ := newTestPool(t)
	var st State
	dc := render.NewDrawContext()

	var slots []int
	for range 5 {
		res, err := p.RenderFrame(dc, &st)
		if err != nil {
			t.Fatalf("RenderFrame: %v", err)
		}
		slots = append(slots, res.Slot)
	}
	if want := []int{0, 1, 0, 1, 0}; !slices.Equal(slots, want) {
		t.Errorf("slots = %v, want %v", slots, want)
	}
	if st.Current() != 5 {
		t.Errorf("Current() = %d, want 5", st.Current())
	}
}

func TestRenderFrameWaitsBeforeReuse(t *testing.T) {
	p, s := newTestPool(t)
	var st State
	dc := render.NewDrawContext()

	var waited []bool
	for range 4 {
		res, err := p.RenderFrame(dc, &st)
		if err != nil {
			t.Fatalf("RenderFrame: %v", err)
		}
		waited = append(waited, res.Waited)
	}
	if want := []bool{false, false, true, true}; !slices.Equal(waited, want) {
		t.Errorf("waited = %v, want %v", waited, want)
	}
	// Frame 2 retires frame 0's submission before acquiring and submitting.
	want := []string{
		"acquire", "submit", "present",
		"acquire", "submit", "present",
		"wait", "acquire", "submit", "present",
		"wait", "acquire", "submit", "present",
	}
	if !slices.Equal(s.log, want) {
		t.Errorf("call log = %v\nwant %v", s.log, want)
	}
	// Retired command buffers are recycled, so only one per slot exists.
	if s.allocations != SlotCount {
		t.Errorf("allocations = %d, want %d", s.allocations, SlotCount)
	}
}

func TestRenderFrameOnlyLegalTransitions(t *testing.T) {
	p, _ := newTestPool(t)
	var got []Transition
	p.Observe(func(tr Transition) {
		if !canTransition(tr.From, tr.To) {
			t.Errorf("illegal transition observed: %v", tr)
		}
		got = append(got, tr)
	})

	var st State
	dc := render.NewDrawContext()
	for range 3 {
		if _, err := p.RenderFrame(dc, &st); err != nil {
			t.Fatal(err)
		}
	}

	want := []Transition{
		{Slot: 0, Frame: 0, From: SlotIdle, To: SlotRecording},
		{Slot: 0, Frame: 0, From: SlotRecording, To: SlotSubmitted},
		{Slot: 1, Frame: 1, From: SlotIdle, To: SlotRecording},
		{Slot: 1, Frame: 1, From: SlotRecording, To: SlotSubmitted},
		{Slot: 0, Frame: 2, From: SlotSubmitted, To: SlotIdle},
		{Slot: 0, Frame: 2, From: SlotIdle, To: SlotRecording},
		{Slot: 0, Frame: 2, From: SlotRecording, To: SlotSubmitted},
	}
	if !slices.Equal(got, want) {
		t.Errorf("transitions:\n got %v\nwant %v", got, want)
	}
}

func TestRenderFrameRecordsBlitIntoSwapchain(t *testing.T) {
	p, _ := newTestPool(t)
	var st State
	if _, err := p.RenderFrame(render.NewDrawContext(), &st); err != nil {
		t.Fatal(err)
	}
	if _, err := p.RenderFrame(render.NewDrawContext(), &st); err != nil {
		t.Fatal(err)
	}
	if _, err := p.RenderFrame(render.NewDrawContext(), &st); err != nil {
		t.Fatal(err)
	}
	cb := p.slots[0].submitted.(*fakeSubmission).cmd
	want := []string{
		"reset", "timestamp",
		"barrier Undefined->General", "render", "timestamp",
		"barrier General->BlitSrc", "timestamp",
		"barrier Undefined->BlitDst", "blit", "barrier BlitDst->Present",
	}
	if !slices.Equal(cb.commands, want) {
		t.Errorf("commands = %v\nwant %v", cb.commands, want)
	}
}

func TestRenderFrameUploadsAndResetsContext(t *testing.T) {
	p, _ := newTestPool(t)
	var st State
	dc := render.NewDrawContext()
	dc.FillPath(scene.NewPath().Rectangle(0, 0, 4, 4), gg.RGBA{R: 1, A: 1}, scene.FillNonZero)

	res, err := p.RenderFrame(dc, &st)
	if err != nil {
		t.Fatal(err)
	}
	if res.UploadErr != nil {
		t.Errorf("UploadErr = %v", res.UploadErr)
	}
	if dc.Len() != 0 {
		t.Errorf("context has %d ops after render, want 0", dc.Len())
	}
	if p.Renderer().Uploaded(0) == 0 {
		t.Error("nothing uploaded for slot 0")
	}
}

func TestRenderFrameUploadErrorIsNotFatal(t *testing.T) {
	p, s := newTestPool(t)
	s.writeErr = errors.New("buffer mapped elsewhere")

	var st State
	res, err := p.RenderFrame(render.NewDrawContext(), &st)
	if err != nil {
		t.Fatalf("RenderFrame: %v", err)
	}
	if res.UploadErr == nil {
		t.Error("UploadErr = nil, want the write error")
	}
	if st.Current() != 1 {
		t.Errorf("Current() = %d, want 1", st.Current())
	}
}

func TestRenderFrameRecreatesOutOfDateSwapchainOnAcquire(t *testing.T) {
	p, s := newTestPool(t)
	var st State
	dc := render.NewDrawContext()
	if _, err := p.RenderFrame(dc, &st); err != nil {
		t.Fatal(err)
	}

	s.acquireErrs = []error{gpucore.ErrSwapchainOutOfDate}
	res, err := p.RenderFrame(dc, &st)
	if err != nil {
		t.Fatalf("RenderFrame: %v", err)
	}
	if !res.Recreated || s.recreated != 1 {
		t.Errorf("Recreated = %v, recreate calls = %d", res.Recreated, s.recreated)
	}
	// The in-flight frame 0 is retired before the swapchain is rebuilt.
	if p.SlotState(0) != SlotIdle {
		t.Errorf("slot 0 = %v, want Idle", p.SlotState(0))
	}
	if st.Current() != 2 {
		t.Errorf("Current() = %d, want 2", st.Current())
	}
}

func TestRenderFrameAcquireFailsTwice(t *testing.T) {
	p, s := newTestPool(t)
	s.acquireErrs = []error{gpucore.ErrSwapchainOutOfDate, gpucore.ErrSwapchainOutOfDate}

	var st State
	if _, err := p.RenderFrame(render.NewDrawContext(), &st); !errors.Is(err, gpucore.ErrSwapchainOutOfDate) {
		t.Fatalf("err = %v, want ErrSwapchainOutOfDate", err)
	}
	if st.Current() != 0 {
		t.Errorf("Current() = %d, want 0", st.Current())
	}
}

func TestRenderFramePresentOutOfDateDefersRecreate(t *testing.T) {
	p, s := newTestPool(t)
	s.presentErrs = []error{gpucore.ErrSwapchainOutOfDate}

	var st State
	dc := render.NewDrawContext()
	if _, err := p.RenderFrame(dc, &st); err != nil {
		t.Fatalf("frame 0: %v", err)
	}
	if s.recreated != 0 {
		t.Fatalf("recreated during present")
	}
	res, err := p.RenderFrame(dc, &st)
	if err != nil {
		t.Fatalf("frame 1: %v", err)
	}
	if !res.Recreated || s.recreated != 1 {
		t.Errorf("Recreated = %v, recreate calls = %d, want rebuild at frame 1", res.Recreated, s.recreated)
	}
}

func TestRenderFrameFinishErrorAbortsSlot(t *testing.T) {
	p, s := newTestPool(t)
	s.finishErr = gpucore.ErrDeviceLost

	var st State
	_, err := p.RenderFrame(render.NewDrawContext(), &st)
	if !errors.Is(err, gpucore.ErrDeviceLost) {
		t.Fatalf("err = %v, want ErrDeviceLost", err)
	}
	if p.SlotState(0) != SlotIdle {
		t.Errorf("slot 0 = %v, want Idle after abort", p.SlotState(0))
	}
	if st.Current() != 0 {
		t.Errorf("Current() = %d, want 0", st.Current())
	}
}

func TestRenderFrameAbortRecyclesCommandBuffer(t *testing.T) {
	p, s := newTestPool(t)
	s.finishErr = gpucore.ErrDeviceLost

	var st State
	if _, err := p.RenderFrame(render.NewDrawContext(), &st); err == nil {
		t.Fatal("finish error not reported")
	}
	s.finishErr = nil
	if _, err := p.RenderFrame(render.NewDrawContext(), &st); err != nil {
		t.Fatalf("retry: %v", err)
	}
	if s.allocations != 1 {
		t.Errorf("allocations = %d, want 1 after abort and retry", s.allocations)
	}
	if st.Current() != 1 {
		t.Errorf("Current() = %d, want 1", st.Current())
	}
}

func TestPoolResizeRebuildsNextFrame(t *testing.T) {
	p, s := newTestPool(t)
	p.Resize(10, 10)
	p.Resize(10, 10)

	var st State
	res, err := p.RenderFrame(render.NewDrawContext(), &st)
	if err != nil {
		t.Fatal(err)
	}
	if !res.Recreated || s.recreated != 1 {
		t.Errorf("Recreated = %v, recreate calls = %d", res.Recreated, s.recreated)
	}
	if w, h := p.Swapchain().Size(); w != 10 || h != 10 {
		t.Errorf("swapchain = %dx%d, want 10x10", w, h)
	}
}

func TestPoolCloseRetiresInFlightWork(t *testing.T) {
	p, s := newTestPool(t)
	var st State
	dc := render.NewDrawContext()
	for range 2 {
		if _, err := p.RenderFrame(dc, &st); err != nil {
			t.Fatal(err)
		}
	}
	if err := p.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	for i := range SlotCount {
		if p.SlotState(i) != SlotIdle {
			t.Errorf("slot %d = %v after Close", i, p.SlotState(i))
		}
	}
	if len(s.waited) != 2 {
		t.Errorf("waited on %d submissions, want 2", len(s.waited))
	}
	if _, err := p.RenderFrame(dc, &st); err == nil {
		t.Error("RenderFrame after Close succeeded")
	}
}

func TestSlotRejectsIllegalTransition(t *testing.T) {
	s := &slot{}
	if _, err := s.transition(SlotSubmitted, 0); !errors.Is(err, ErrIllegalTransition) {
		t.Errorf("Idle -> Submitted err = %v, want ErrIllegalTransition", err)
	}
	if s.state != SlotIdle {
		t.Errorf("state changed on rejected transition")
	}
}
