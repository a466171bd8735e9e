// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package render

// Queue is the per-frame command stream producers write into.
//
// Commands live in the queue from Send, during Extract or Prepare, until
// the aggregator drains them at the end of the same frame's Prepare. Update runs at the end of Prepare and drops
// anything left undrained, so commands never survive into the next frame.
//
// Queue is not safe for concurrent use; emission is single-threaded.
type Queue struct {
	cmds    []Command
	dropped uint64
}

// NewQueue creates an empty queue.
func NewQueue() *Queue {
	return &Queue{cmds: make([]Command, 0, 64)}
}

// Send appends a command.
func (q *Queue) Send(c Command) {
	q.cmds = append(q.cmds, c)
}

// Len returns the number of pending commands.
func (q *Queue) Len() int {
	return len(q.cmds)
}

// Drain removes and returns all pending commands in arrival order.
// The returned slice is owned by the caller.
func (q *Queue) Drain() []Command {
	out := make([]Command, len(q.cmds))
	copy(out, q.cmds)
	clear(q.cmds)
	q.cmds = q.cmds[:0]
	return out
}

// Update ends the frame for the queue: undrained commands are discarded
// and their number returned.
func (q *Queue) Update() int {
	n := len(q.cmds)
	q.dropped += uint64(n)
	clear(q.cmds)
	q.cmds = q.cmds[:0]
	return n
}

// Dropped returns the total number of commands discarded by Update.
func (q *Queue) Dropped() uint64 {
	return q.dropped
}
