// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package vector

import (
	"sync"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/gogpu/gg"

	"github.com/gogpu/ggframe/scene"
)

// Handle identifies an image in an Assets store. Zero is never issued.
type Handle uint64

// Fill is one filled path of a vector image.
type Fill struct {
	Path  *scene.Path
	Color gg.RGBA
	Rule  scene.FillRule
}

// Image is a vector image: filled paths drawn in order, with Center
// placed at the instance's transform origin.
type Image struct {
	Paths  []Fill
	Center mgl32.Vec2
}

// clone copies the fill list. Paths themselves are immutable and shared.
func (img Image) clone() Image {
	img.Paths = append([]Fill(nil), img.Paths...)
	return img
}

// EventKind is the kind of change an AssetEvent reports.
type EventKind uint8

const (
	AssetCreated EventKind = iota + 1
	AssetModified
	AssetRemoved
)

// String returns the event kind name.
func (k EventKind) String() string {
	switch k {
	case AssetCreated:
		return "Created"
	case AssetModified:
		return "Modified"
	case AssetRemoved:
		return "Removed"
	default:
		return "Unknown"
	}
}

// AssetEvent reports a change to one image.
type AssetEvent struct {
	Kind   EventKind
	Handle Handle
}

// DefaultEventLimit is the number of events an Assets store retains.
const DefaultEventLimit = 1024

// Assets stores vector images and a bounded log of changes to them.
// Readers track their position in the log with a sequence number.
// Assets is safe for concurrent use.
type Assets struct {
	mu     sync.RWMutex
	next   Handle
	images map[Handle]Image

	events []AssetEvent
	// base is the sequence number of events[0].
	base  uint64
	limit int
}

// NewAssets creates an empty store.
func NewAssets() *Assets {
	return &Assets{images: make(map[Handle]Image), limit: DefaultEventLimit}
}

// Add stores img under a new handle.
func (a *Assets) Add(img Image) Handle {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.next++
	h := a.next
	a.images[h] = img.clone()
	a.emit(AssetEvent{Kind: AssetCreated, Handle: h})
	return h
}

// Set replaces the image under h. It reports false if h is unknown.
func (a *Assets) Set(h Handle, img Image) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.images[h]; !ok {
		return false
	}
	a.images[h] = img.clone()
	a.emit(AssetEvent{Kind: AssetModified, Handle: h})
	return true
}

// Remove deletes the image under h. It reports false if h is unknown.
func (a *Assets) Remove(h Handle) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.images[h]; !ok {
		return false
	}
	delete(a.images, h)
	a.emit(AssetEvent{Kind: AssetRemoved, Handle: h})
	return true
}

// Get returns the image under h.
func (a *Assets) Get(h Handle) (Image, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	img, ok := a.images[h]
	return img, ok
}

// Len returns the number of stored images.
func (a *Assets) Len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.images)
}

func (a *Assets) emit(ev AssetEvent) {
	a.events = append(a.events, ev)
	if over := len(a.events) - a.limit; over > 0 {
		a.events = append(a.events[:0], a.events[over:]...)
		a.base += uint64(over)
	}
}

// Events returns the events with sequence numbers from from onward and
// the sequence number to pass next time. complete is false when events
// after from have already been dropped from the log; the reader must then
// resynchronise with Snapshot.
func (a *Assets) Events(from uint64) (events []AssetEvent, next uint64, complete bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	next = a.base + uint64(len(a.events))
	if from < a.base {
		return nil, next, false
	}
	if from >= next {
		return nil, next, true
	}
	return append([]AssetEvent(nil), a.events[from-a.base:]...), next, true
}

// Snapshot returns a copy of every stored image and the sequence number
// of the next event.
func (a *Assets) Snapshot() (map[Handle]Image, uint64) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make(map[Handle]Image, len(a.images))
	for h, img := range a.images {
		out[h] = img.clone()
	}
	return out, a.base + uint64(len(a.events))
}
