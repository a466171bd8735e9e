package wgpu

import (
	_ "embed"
	"fmt"

	"github.com/gogpu/naga"
	"github.com/gogpu/wgpu/hal"
)

//go:embed shaders/blit.wgsl
var blitShaderWGSL string

// compileSPIRV compiles WGSL to little-endian SPIR-V words.
func compileSPIRV(source string) ([]uint32, error) {
	spirv, err := naga.Compile(source)
	if err != nil {
		return nil, fmt.Errorf("wgpu: compile shader: %w", err)
	}
	if len(spirv)%4 != 0 {
		return nil, fmt.Errorf("wgpu: SPIR-V length %d is not word aligned", len(spirv))
	}
	words := make([]uint32, len(spirv)/4)
	for i := range words {
		words[i] = uint32(spirv[i*4]) |
			uint32(spirv[i*4+1])<<8 |
			uint32(spirv[i*4+2])<<16 |
			uint32(spirv[i*4+3])<<24
	}
	return words, nil
}

func createBlitShader(device hal.Device) (hal.ShaderModule, error) {
	code, err := compileSPIRV(blitShaderWGSL)
	if err != nil {
		return nil, err
	}
	module, err := device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  "ggframe_blit",
		Source: hal.ShaderSource{SPIRV: code},
	})
	if err != nil {
		return nil, fmt.Errorf("wgpu: create blit shader module: %w", err)
	}
	return module, nil
}
