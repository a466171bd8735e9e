// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package soft implements the gpucore contract on the CPU.
//
// A session owns one device goroutine. Submissions and presents are queued
// to it in order; it waits on their semaphores, executes the recorded
// commands and signals completion, so a caller of Session.Wait blocks for
// real until the work is done. Scenes are rasterized with gg and blits are
// scaled with golang.org/x/image/draw.
//
// Presented images can be forwarded to a gpucontext.TextureUpdater, for
// example a window texture, converted to the surface format.
package soft
