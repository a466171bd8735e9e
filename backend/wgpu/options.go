package wgpu

import (
	"fmt"
	"time"

	"github.com/mitchellh/mapstructure"
)

// HAL APIs an instance can be opened on.
const (
	APIVulkan = "vulkan"
	APINoop   = "noop"
)

// Options configures the HAL backend.
type Options struct {
	// API selects the HAL implementation. Default "vulkan".
	API string `mapstructure:"api"`

	// SwapchainImages is the number of presentable images. Default 3.
	SwapchainImages int `mapstructure:"swapchain_images"`

	// Timeout bounds every fence wait. Default 5s.
	Timeout time.Duration `mapstructure:"timeout"`

	// Background is the hex color the render target is cleared to.
	Background string `mapstructure:"background"`
}

func (o Options) withDefaults() Options {
	if o.API == "" {
		o.API = APIVulkan
	}
	if o.SwapchainImages <= 0 {
		o.SwapchainImages = 3
	}
	if o.Timeout <= 0 {
		o.Timeout = 5 * time.Second
	}
	if o.Background == "" {
		o.Background = "#000000"
	}
	return o
}

// DecodeOptions decodes raw configuration values into Options.
func DecodeOptions(raw map[string]any) (Options, error) {
	var o Options
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
		ErrorUnused:      true,
		WeaklyTypedInput: true,
		Result:           &o,
	})
	if err != nil {
		return o, err
	}
	if err := dec.Decode(raw); err != nil {
		return o, fmt.Errorf("wgpu: decode options: %w", err)
	}
	return o, nil
}
