// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package wgpu implements the gpucore contract on a gogpu/wgpu HAL device.
//
// Semaphores are timeline values of one fence: a submission signals its
// semaphores with the value it submits at, and waiting on a submission is
// a fence wait for that value. Command buffers wrap HAL command encoders.
// Image barriers become texture usage transitions. A blit into a
// presentable image is a render pass that samples the render target with
// a fullscreen triangle, scaling it to the swapchain size, followed by a
// copy into the image's readback buffer; presenting reads the buffer back.
// The blit shader is compiled from WGSL to SPIR-V with naga when the
// session opens.
//
// Scenes are rasterized on the host and staged into the render target
// with Queue.WriteTexture.
//
// Tests run against the hal/noop device.
package wgpu
