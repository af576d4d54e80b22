// Command xr-server mirrors a screen region into a stereo XR view and streams the per-eye
// headset pose to a named pipe each frame.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"runtime"

	"github.com/Carmen-Shannon/oxy-xr/config"
	"github.com/Carmen-Shannon/oxy-xr/engine"
	"github.com/Carmen-Shannon/oxy-xr/engine/capture"
	"github.com/Carmen-Shannon/oxy-xr/engine/profiler"
	"github.com/Carmen-Shannon/oxy-xr/engine/renderer"
	"github.com/Carmen-Shannon/oxy-xr/engine/stereo"
	"github.com/Carmen-Shannon/oxy-xr/engine/transmit"
	"github.com/Carmen-Shannon/oxy-xr/engine/window"
	"github.com/Carmen-Shannon/oxy-xr/engine/xr"
)

func init() {
	// GLFW and the surface must stay on the main thread.
	runtime.LockOSThread()
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// settings is the parsed command line on top of the config file.
type settings struct {
	cfg      config.Config
	snapshot string
}

func parseFlags(args []string, stderr io.Writer) (settings, error) {
	fs := flag.NewFlagSet("xr-server", flag.ContinueOnError)
	fs.SetOutput(stderr)

	configPath := fs.String("config", config.DefaultConfigPath, "TOML config file (missing file uses defaults)")
	pipeName := fs.String("pipe", "", "pipe name or path (overrides [pipe] name)")
	width := fs.Int("width", 0, "mirror window width (overrides [window] width)")
	height := fs.Int("height", 0, "mirror window height (overrides [window] height)")
	profile := fs.Bool("profile", false, "log frame rate and per-stage timings")
	vsync := fs.Bool("vsync", true, "pace frames on the display refresh")
	snapshot := fs.String("snapshot", "", "write the first captured frame to this PNG file")

	if err := fs.Parse(args); err != nil {
		return settings{}, err
	}

	cfg, exists, err := config.LoadOrDefault(*configPath)
	if err != nil {
		return settings{}, err
	}
	if exists {
		log.Println("[Server] loaded config", cfg.ConfigPath())
	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "pipe":
			cfg.Pipe.Name = *pipeName
		case "width":
			cfg.Window.Width = *width
		case "height":
			cfg.Window.Height = *height
		case "profile":
			cfg.Profiler.Enabled = *profile
		case "vsync":
			cfg.Window.VSync = *vsync
		}
	})
	if err := cfg.Validate(); err != nil {
		return settings{}, err
	}
	return settings{cfg: cfg, snapshot: *snapshot}, nil
}

func run(args []string, stdout io.Writer, stderr io.Writer) int {
	s, err := parseFlags(args, stderr)
	if err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintln(stderr, "xr-server:", err)
		}
		return 2
	}

	fmt.Fprintln(stdout, "oxy-xr mirror server")
	fmt.Fprintln(stdout, "  pipe:   ", s.cfg.PipePath())
	fmt.Fprintf(stdout, "  region:  %+v\n", s.cfg.Capture.Region)
	fmt.Fprintln(stdout, "  drag to look around, ',' recenters, '-'/'=' change eye separation, Esc quits")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := serve(ctx, s); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintln(stderr, "xr-server:", err)
		return 1
	}
	return 0
}

// serve builds every component and runs the engine until the session ends.
func serve(ctx context.Context, s settings) error {
	cfg := s.cfg

	// ── Window + Renderer ───────────────────────────────────────────────
	win := window.NewWindow(
		window.WithTitle(cfg.Window.Title),
		window.WithSize(cfg.Window.Width, cfg.Window.Height),
	)
	defer win.Close()

	presentMode := renderer.PresentModeUncapped
	if cfg.Window.VSync {
		presentMode = renderer.PresentModeVSync
	}
	r := renderer.NewRenderer(win, renderer.WithPresentMode(presentMode))
	defer r.Release()

	// ── Capture + Stereo ────────────────────────────────────────────────
	capturer, err := capture.NewCapturer(
		capture.WithRegion(cfg.Capture.Region),
		capture.WithWorkers(cfg.Capture.Workers),
	)
	if err != nil {
		return err
	}

	sr, err := stereo.NewStereoRenderer(r, cfg.Capture.Region,
		stereo.WithProjection(cfg.ProjectionMatrix()),
		stereo.WithView(cfg.ViewMatrix()),
	)
	if err != nil {
		capturer.Close()
		return err
	}

	// ── XR session ──────────────────────────────────────────────────────
	session := xr.NewDesktopSession(win, r,
		xr.WithIPD(cfg.XR.IPD),
		xr.WithFovHalfAngle(cfg.XR.FovHalfAngle),
		xr.WithLookSensitivity(cfg.XR.LookSensitivity),
		xr.WithHeadPosition(cfg.HeadPosition()),
	)

	// ── Engine ──────────────────────────────────────────────────────────
	options := []engine.EngineBuilderOption{}
	if cfg.Profiler.Enabled {
		interval, _ := cfg.ProfilerInterval()
		options = append(options, engine.WithProfiler(profiler.NewProfiler(profiler.WithInterval(interval))))
	}
	if s.snapshot != "" {
		options = append(options, engine.WithSnapshot(s.snapshot))
	}

	eng := engine.NewEngine(session, capturer, sr, transmit.NewTransmitter(cfg.PipePath()), options...)
	return eng.Run(ctx)
}
