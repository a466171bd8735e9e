// Package backend is the registry of GPU backends.
//
// Backends register a [Factory] under a name from an init function and are
// opened by name with their raw configuration options:
//
//	import _ "github.com/gogpu/ggframe/backend/soft"
//
//	b, err := backend.Open(backend.NameSoft, map[string]any{"latency": "2ms"})
//
// [Default] opens the best available backend: wgpu when a HAL device can
// be created, the CPU device otherwise.
package backend
