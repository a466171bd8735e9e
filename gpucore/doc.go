// Package gpucore defines the backend contract the frame pipeline renders
// through.
//
// A [Backend] opens a [Session] for a [Surface]. The session creates the
// per-slot objects the resource pool keeps for the lifetime of the
// pipeline (semaphores, query pools, staging buffers), allocates and
// recycles [CommandBuffer] values, and turns finished buffers into
// in-flight [Submission] handles. A [Swapchain] owns image rotation and
// presentation.
//
// Every operation is fallible. The pool treats backend errors as fatal for
// the current frame.
//
// # Implementations
//
//   - backend/soft: a CPU device that executes submissions on a worker
//     goroutine and rasterizes with gg.
//   - backend/wgpu: gogpu/wgpu HAL devices, fences and command encoders.
package gpucore
