// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package frame paces frames against the GPU.
//
// [State] counts completed frames. The [Pool] keeps [SlotCount] resource
// slots; frame f records into slot f mod SlotCount, so while one slot's
// submission executes on the device the other can be recorded on the CPU.
// Before a slot is reused its previous submission is waited on, which is
// the only blocking point of a frame and bounds the CPU to SlotCount frames
// ahead of the device.
//
// Each slot moves through an explicit state machine:
//
//	Idle --acquire buffer--> Recording --submit--> Submitted --wait--> Idle
//	                         Recording --abort---> Idle
//
// Any other transition is rejected with [ErrIllegalTransition].
package frame
