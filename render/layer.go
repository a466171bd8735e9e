// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package render

// Layer is a coarse draw-order bucket. Commands on a lower layer are
// always drawn before commands on a higher one, whatever order they were
// emitted in.
type Layer uint8

const (
	Background Layer = iota
	Middle
	Foreground
)

// layerCount is the number of layers.
const layerCount = 3

// Layers returns all layers in draw order.
func Layers() [layerCount]Layer {
	return [layerCount]Layer{Background, Middle, Foreground}
}

// String returns the layer name.
func (l Layer) String() string {
	switch l {
	case Background:
		return "Background"
	case Middle:
		return "Middle"
	case Foreground:
		return "Foreground"
	default:
		return "Unknown"
	}
}

// Valid reports whether l is one of the three defined layers.
func (l Layer) Valid() bool {
	return l < layerCount
}
