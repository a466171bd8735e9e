// Command ggframe runs the frame pipeline over a small demo scene and
// writes the last presented image as a PNG.
//
// Usage:
//
//	ggframe run [--config file] [--frames n] [--backend soft|wgpu] [--out frame.png] [--metrics :9090]
//	ggframe backends
//	ggframe version
package main

import "os"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
