// Package config loads the ggframe command configuration from YAML.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/gogpu/gputypes"
	"gopkg.in/yaml.v3"

	"github.com/gogpu/ggframe/backend"
	"github.com/gogpu/ggframe/backend/soft"
	"github.com/gogpu/ggframe/backend/wgpu"
)

// ErrInvalid is wrapped by every validation error.
var ErrInvalid = errors.New("config: invalid")

// Config is the top-level configuration file.
type Config struct {
	Window  Window  `yaml:"window"`
	Backend Backend `yaml:"backend"`
	// Frames is the number of frames to run. Zero runs until interrupted.
	Frames int `yaml:"frames"`
	// Output is the PNG file the last presented frame is written to.
	Output  string  `yaml:"output"`
	Log     Log     `yaml:"log"`
	Metrics Metrics `yaml:"metrics"`
}

// Window describes the surface.
type Window struct {
	Width  int    `yaml:"width"`
	Height int    `yaml:"height"`
	Format string `yaml:"format"`
}

// Backend selects a backend and carries its backend-specific options.
type Backend struct {
	Name    string         `yaml:"name"`
	Options map[string]any `yaml:"options"`
}

// Log configures the command's logger.
type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Metrics configures the Prometheus endpoint. An empty Addr disables it.
type Metrics struct {
	Addr string `yaml:"addr"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Window:  Window{Width: 800, Height: 600, Format: "rgba8"},
		Backend: Backend{Name: backend.NameSoft},
		Frames:  60,
		Output:  "frame.png",
		Log:     Log{Level: "info", Format: "text"},
	}
}

// Load reads path over the defaults and validates the result. An empty
// path returns the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, cfg.Validate()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes YAML over the defaults and validates the result.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("config: parse: %w", err)
	}
	return cfg, cfg.Validate()
}

// Validate checks field ranges and decodes the backend options so that
// typos are reported before a backend is opened.
func (c Config) Validate() error {
	var errs []error
	if c.Window.Width <= 0 || c.Window.Height <= 0 {
		errs = append(errs, fmt.Errorf("%w: window size %dx%d", ErrInvalid, c.Window.Width, c.Window.Height))
	}
	if _, err := c.Window.TextureFormat(); err != nil {
		errs = append(errs, err)
	}
	if c.Frames < 0 {
		errs = append(errs, fmt.Errorf("%w: frames %d", ErrInvalid, c.Frames))
	}
	if _, err := c.Log.SlogLevel(); err != nil {
		errs = append(errs, err)
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("%w: log format %q", ErrInvalid, c.Log.Format))
	}
	if err := c.Backend.validate(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (b Backend) validate() error {
	var err error
	switch b.Name {
	case backend.NameSoft:
		_, err = soft.DecodeOptions(b.Options)
	case backend.NameWGPU:
		_, err = wgpu.DecodeOptions(b.Options)
	case "":
		// Registry default.
	default:
		if !backend.IsRegistered(b.Name) {
			err = fmt.Errorf("backend %q not registered (available: %v)", b.Name, backend.Available())
		}
	}
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	return nil
}

// TextureFormat maps Format to a surface format.
func (w Window) TextureFormat() (gputypes.TextureFormat, error) {
	switch strings.ToLower(w.Format) {
	case "", "rgba8":
		return gputypes.TextureFormatRGBA8Unorm, nil
	case "bgra8":
		return gputypes.TextureFormatBGRA8Unorm, nil
	default:
		return gputypes.TextureFormatUndefined, fmt.Errorf("%w: window format %q", ErrInvalid, w.Format)
	}
}

// SlogLevel parses Level.
func (l Log) SlogLevel() (slog.Level, error) {
	var lv slog.Level
	if err := lv.UnmarshalText([]byte(l.Level)); err != nil {
		return slog.LevelInfo, fmt.Errorf("%w: log level %q", ErrInvalid, l.Level)
	}
	return lv, nil
}
