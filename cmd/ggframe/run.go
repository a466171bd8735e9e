package main

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/gogpu/ggframe"
	"github.com/gogpu/ggframe/config"
	"github.com/gogpu/ggframe/producers/text"
	"github.com/gogpu/ggframe/producers/vector"
)

// snapshotter is implemented by swapchains that keep the last presented
// image on the host.
type snapshotter interface {
	LastPresented() *image.RGBA
}

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the pipeline over the demo scene",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			logger, err := newLogger(cmd.ErrOrStderr(), cfg.Log)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			sum, err := run(ctx, cfg, logger)
			if err != nil {
				return err
			}
			if sum.written {
				fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%dx%d) after %d frames\n",
					cfg.Output, sum.width, sum.height, sum.frames)
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "ran %d frames, nothing presented\n", sum.frames)
			}
			return nil
		},
	}
	f := cmd.Flags()
	f.Int("frames", 0, "number of frames to run, 0 runs until interrupted (default from config)")
	f.String("backend", "", "backend name: soft or wgpu")
	f.String("out", "", "PNG file for the last presented frame")
	f.String("metrics", "", "address to serve Prometheus metrics on, e.g. :9090")
	f.Int("width", 0, "window width")
	f.Int("height", 0, "window height")
	f.String("log-level", "", "log level: debug, info, warn or error")
	return cmd
}

// loadConfig reads --config and applies explicitly set flags on top.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return cfg, err
	}
	f := cmd.Flags()
	if f.Changed("frames") {
		cfg.Frames, _ = f.GetInt("frames")
	}
	if f.Changed("backend") {
		name, _ := f.GetString("backend")
		if name != cfg.Backend.Name {
			cfg.Backend = config.Backend{Name: name}
		}
	}
	if f.Changed("out") {
		cfg.Output, _ = f.GetString("out")
	}
	if f.Changed("metrics") {
		cfg.Metrics.Addr, _ = f.GetString("metrics")
	}
	if f.Changed("width") {
		cfg.Window.Width, _ = f.GetInt("width")
	}
	if f.Changed("height") {
		cfg.Window.Height, _ = f.GetInt("height")
	}
	if f.Changed("log-level") {
		cfg.Log.Level, _ = f.GetString("log-level")
	}
	return cfg, cfg.Validate()
}

type summary struct {
	frames        uint64
	written       bool
	width, height int
}

// run drives the pipeline until cfg.Frames frames have run or ctx is
// cancelled. The metrics server, when configured, runs alongside and is
// shut down with the frame loop.
func run(ctx context.Context, cfg config.Config, logger *slog.Logger) (summary, error) {
	ggframe.SetLogger(logger)
	defer ggframe.SetLogger(nil)

	var sum summary
	format, err := cfg.Window.TextureFormat()
	if err != nil {
		return sum, err
	}
	demo, err := newDemoScene(cfg.Window.Width, cfg.Window.Height)
	if err != nil {
		return sum, fmt.Errorf("build scene: %w", err)
	}

	reg := prometheus.NewRegistry()
	opts := []ggframe.Option{
		ggframe.WithSurface(cfg.Window.Width, cfg.Window.Height),
		ggframe.WithSurfaceFormat(format),
		ggframe.WithProducers(text.NewProducer(), vector.NewProducer()),
		ggframe.WithLogger(logger),
		ggframe.WithMetrics(reg),
	}
	if cfg.Backend.Name != "" {
		opts = append(opts, ggframe.WithBackendName(cfg.Backend.Name, cfg.Backend.Options))
	}
	p, err := ggframe.New(demo.app, opts...)
	if err != nil {
		return sum, err
	}
	defer func() {
		if cerr := p.Close(); cerr != nil {
			logger.Error("close pipeline", "error", cerr)
		}
	}()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)

	if cfg.Metrics.Addr != "" {
		ln, err := net.Listen("tcp", cfg.Metrics.Addr)
		if err != nil {
			return sum, fmt.Errorf("metrics: %w", err)
		}
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
		srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		logger.Info("serving metrics", "addr", ln.Addr().String())
		g.Go(func() error {
			if err := srv.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
			defer done()
			return srv.Shutdown(shutdownCtx)
		})
	}

	g.Go(func() error {
		defer cancel()
		for cfg.Frames == 0 || sum.frames < uint64(cfg.Frames) {
			if gctx.Err() != nil {
				logger.Info("interrupted", "frames", sum.frames)
				return nil
			}
			if err := demo.tick(p.Frame()); err != nil {
				return fmt.Errorf("scene: %w", err)
			}
			report, err := p.RunFrame()
			if err != nil {
				return err
			}
			sum.frames++
			logReport(logger, report)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return sum, err
	}

	if cfg.Output == "" {
		return sum, nil
	}
	snap, ok := p.Pool().Swapchain().(snapshotter)
	if !ok {
		logger.Warn("swapchain keeps no presented image", "backend", cfg.Backend.Name)
		return sum, nil
	}
	img := snap.LastPresented()
	if img == nil {
		return sum, nil
	}
	if err := savePNG(cfg.Output, img); err != nil {
		return sum, err
	}
	sum.written = true
	sum.width, sum.height = img.Bounds().Dx(), img.Bounds().Dy()
	return sum, nil
}

func logReport(logger *slog.Logger, r *ggframe.FrameReport) {
	for _, f := range r.Failures {
		logger.Warn("draw command failed", "frame", r.Frame, "index", f.Index, "error", f.Err)
	}
	for _, err := range r.ProducerErrors {
		logger.Warn("producer failed", "frame", r.Frame, "error", err)
	}
	logger.Debug("frame",
		"frame", r.Frame,
		"slot", r.Slot,
		"commands", len(r.Executed),
		"dropped", r.Dropped,
		"waited", r.Render.Waited)
}

func savePNG(path string, img image.Image) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	if err := png.Encode(f, img); err != nil {
		return fmt.Errorf("encode png: %w", err)
	}
	return nil
}
