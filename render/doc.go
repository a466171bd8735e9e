// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package render holds the per-frame draw path between producers and the
// GPU resource pool.
//
// Producers emit [Command] values into a [Queue] during Prepare. The
// [Aggregator] drains the queue, orders the commands by [Layer]
// (Background, Middle, Foreground, insertion order within a layer) and
// executes them against an immediate-mode [DrawContext]. At the start of
// Render the context is encoded into a [scene.Encoding] for upload and then
// reset.
//
// A command that cannot be executed, for example text whose glyphs are
// missing from the face, is recorded as a [CommandFailure] and skipped; it
// never aborts the frame.
package render
