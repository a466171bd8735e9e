package soft

import (
	"fmt"
	"time"

	"github.com/gogpu/gg"
	"github.com/gogpu/gpucontext"
	"github.com/mitchellh/mapstructure"
)

// Options configures the CPU device.
type Options struct {
	// SwapchainImages is the number of presentable images. Default 3.
	SwapchainImages int `mapstructure:"swapchain_images"`

	// QueueDepth bounds the number of queued device operations. Default 8.
	QueueDepth int `mapstructure:"queue_depth"`

	// Latency is added to every submission to model device execution time.
	Latency time.Duration `mapstructure:"latency"`

	// Timeout bounds every semaphore wait on the device. A wait that
	// times out loses the device. Default 5s.
	Timeout time.Duration `mapstructure:"timeout"`

	// Background is the hex color the render target is cleared to.
	// Default "#000000".
	Background string `mapstructure:"background"`

	// Sink receives every presented image.
	Sink gpucontext.TextureUpdater `mapstructure:"-"`

	// Provider, when set, supplies the surface format presented images
	// are converted to.
	Provider gpucontext.DeviceProvider `mapstructure:"-"`
}

func (o Options) withDefaults() Options {
	if o.SwapchainImages <= 0 {
		o.SwapchainImages = 3
	}
	if o.QueueDepth <= 0 {
		o.QueueDepth = 8
	}
	if o.Timeout <= 0 {
		o.Timeout = 5 * time.Second
	}
	if o.Background == "" {
		o.Background = "#000000"
	}
	return o
}

func (o Options) background() gg.RGBA {
	return gg.Hex(o.Background)
}

// DecodeOptions decodes raw configuration values into Options. Durations
// may be given as strings such as "2ms".
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
		return o, fmt.Errorf("soft: decode options: %w", err)
	}
	return o, nil
}
