package gpucore

import (
	"errors"
	"fmt"
	"time"

	"github.com/gogpu/gputypes"
)

// Backend errors shared by all implementations.
var (
	// ErrDeviceLost reports an unrecoverable device failure.
	ErrDeviceLost = errors.New("gpucore: device lost")

	// ErrSwapchainOutOfDate reports that the swapchain no longer matches
	// its surface and must be recreated before the next acquire.
	ErrSwapchainOutOfDate = errors.New("gpucore: swapchain out of date")

	// ErrSubmissionConsumed is returned when a submission is waited on twice.
	ErrSubmissionConsumed = errors.New("gpucore: submission already waited on")

	// ErrNotRecording is returned when commands are recorded outside
	// Begin/Finish or a buffer is submitted before Finish.
	ErrNotRecording = errors.New("gpucore: command buffer not recording")

	// ErrForeignObject is returned when an object created by one session
	// is passed to another.
	ErrForeignObject = errors.New("gpucore: object belongs to another session")

	// ErrInvalidSurface is returned for surfaces with no area.
	ErrInvalidSurface = errors.New("gpucore: invalid surface")
)

// Surface describes the presentation target a session renders into.
type Surface struct {
	Width, Height int
	Format        gputypes.TextureFormat
}

// Validate reports ErrInvalidSurface for surfaces with no area.
func (s Surface) Validate() error {
	if s.Width <= 0 || s.Height <= 0 {
		return fmt.Errorf("%w: %dx%d", ErrInvalidSurface, s.Width, s.Height)
	}
	return nil
}

// ImageLayout is the usage state an image is in for the commands that
// touch it. Barriers move images between layouts.
type ImageLayout uint8

const (
	LayoutUndefined ImageLayout = iota
	LayoutGeneral
	LayoutBlitSrc
	LayoutBlitDst
	LayoutPresent
)

// String returns the layout name.
func (l ImageLayout) String() string {
	switch l {
	case LayoutUndefined:
		return "Undefined"
	case LayoutGeneral:
		return "General"
	case LayoutBlitSrc:
		return "BlitSrc"
	case LayoutBlitDst:
		return "BlitDst"
	case LayoutPresent:
		return "Present"
	default:
		return "Unknown"
	}
}

// Backend opens sessions. Implementations register themselves with the
// backend registry.
type Backend interface {
	Name() string
	CreateSession(surface Surface) (Session, error)
}

// Session is the device-level entry point used by the resource pool.
// Methods are called from the render scheduler only.
type Session interface {
	CreateSemaphore() (Semaphore, error)
	CreateQueryPool(capacity int) (QueryPool, error)
	CreateBuffer(size int) (Buffer, error)
	CreateImage(width, height int) (Image, error)
	CreateSwapchain(width, height int) (Swapchain, error)

	// AllocateCommandBuffer returns a fresh buffer ready for Begin.
	AllocateCommandBuffer() (CommandBuffer, error)

	// Submit queues a finished buffer. Execution starts after every wait
	// semaphore is signaled; each signal semaphore is signaled when it
	// completes.
	Submit(cb CommandBuffer, waits, signals []Semaphore) (Submission, error)

	// Wait blocks until the submission has completed and returns its
	// command buffer for reuse.
	Wait(sub Submission) (CommandBuffer, error)

	// FetchQueryPool returns the intervals between consecutive timestamps
	// written into qp by the last completed submission.
	FetchQueryPool(qp QueryPool) ([]time.Duration, error)

	// WaitIdle blocks until every submission has completed.
	WaitIdle() error

	Destroy()
}

// CommandBuffer records work for one submission.
type CommandBuffer interface {
	// Begin starts recording, discarding previously recorded commands.
	Begin() error
	ResetQueryPool(qp QueryPool)
	WriteTimestamp(qp QueryPool, index int)

	// RenderScene rasterizes the encoding staged in src into dst.
	RenderScene(src Buffer, dst Image)

	ImageBarrier(img Image, from, to ImageLayout)

	// BlitImage copies src into dst, scaling to dst's size.
	BlitImage(src, dst Image)

	// Finish ends recording. The first recording error, if any, is
	// returned here.
	Finish() error
}

// Submission is an in-flight execution of a command buffer.
type Submission interface {
	// Done reports whether execution has completed without blocking.
	Done() bool
}

// Semaphore orders GPU work: a submission or present waits on semaphores
// signaled by earlier work.
type Semaphore interface {
	semaphore()
}

// QueryPool holds timestamp queries.
type QueryPool interface {
	Capacity() int
}

// Buffer is a host-visible staging buffer.
type Buffer interface {
	Size() int
	// Write copies data to the start of the buffer, growing it if needed.
	Write(data []byte) error
}

// Image is a 2D render target.
type Image interface {
	Size() (width, height int)
}

// Swapchain owns the presentable images.
type Swapchain interface {
	// Acquire returns the index of the next presentable image and a
	// semaphore signaled when the image is ready to be written.
	Acquire() (int, Semaphore, error)
	Image(index int) Image
	// Present queues image index for display after the wait semaphores
	// are signaled. It does not wait for presentation.
	Present(index int, waits []Semaphore) error
	// Recreate rebuilds the images at a new size. The caller must ensure
	// no submission references the old images.
	Recreate(width, height int) error
	Size() (width, height int)
	Destroy()
}

// SemaphoreBase can be embedded by implementations to satisfy Semaphore.
type SemaphoreBase struct{}

func (SemaphoreBase) semaphore() {}
