// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package world provides the entity and resource storage shared by the
// application and the render pipeline.
//
// A [World] holds entities with typed components and typed resources. The
// application keeps one world; the pipeline keeps a second one, the render
// world, and exchanges it with a scratch placeholder during Extract:
//
//	app world                         pipeline
//	  ScratchWorld ──────────────┐      render world
//	                             └──▶   (scratch, while extracting)
//	  RenderWorld ◀──────────────────   render world
//
// While extraction runs, the render world is reachable from the app world
// and producers copy what they need into it. Afterwards the storages are
// swapped back. Nothing is copied; at every instant each storage has one
// owner, reported by [World.Owner].
package world
