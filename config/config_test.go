package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/gogpu/gputypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ggframe.yaml")
	data := []byte(`
window:
  width: 320
  height: 200
  format: bgra8
backend:
  name: soft
  options:
    latency: 2ms
    swapchain_images: 2
frames: 5
log:
  level: debug
  format: json
metrics:
  addr: ":9090"
`)
	require.NoError(t, os.WriteFile(path, data, 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 320, cfg.Window.Width)
	assert.Equal(t, 200, cfg.Window.Height)
	assert.Equal(t, 5, cfg.Frames)
	assert.Equal(t, "frame.png", cfg.Output, "unset fields keep their defaults")
	assert.Equal(t, ":9090", cfg.Metrics.Addr)

	f, err := cfg.Window.TextureFormat()
	require.NoError(t, err)
	assert.Equal(t, gputypes.TextureFormatBGRA8Unorm, f)

	lv, err := cfg.Log.SlogLevel()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, lv)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"zero width", "window: {width: 0}"},
		{"bad format", "window: {format: rgb565}"},
		{"negative frames", "frames: -1"},
		{"bad level", "log: {level: loud}"},
		{"bad log format", "log: {format: xml}"},
		{"unknown backend", "backend: {name: metal}"},
		{"unknown soft option", "backend: {name: soft, options: {latnecy: 1ms}}"},
		{"unknown wgpu option", "backend: {name: wgpu, options: {adapter: 0}}"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			assert.ErrorIs(t, err, ErrInvalid)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestParseRejectsMalformedYAML(t *testing.T) {
	_, err := Parse([]byte("window: [1, 2"))
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalid)
}
