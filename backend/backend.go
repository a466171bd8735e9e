package backend

import (
	"errors"

	"github.com/gogpu/ggframe/gpucore"
)

// Backend names.
const (
	// NameSoft is the CPU device backend.
	NameSoft = "soft"
	// NameWGPU is the gogpu/wgpu HAL backend.
	NameWGPU = "wgpu"
)

// ErrBackendNotFound is returned when no backend is registered under the
// requested name.
var ErrBackendNotFound = errors.New("backend: not registered")

// Factory creates a backend from its raw configuration options. Each
// backend decodes the options into its own typed struct.
type Factory func(options map[string]any) (gpucore.Backend, error)
