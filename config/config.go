// Package config loads the mirror's TOML configuration file.
package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"time"

	"github.com/Carmen-Shannon/oxy-xr/common"
	"github.com/Carmen-Shannon/oxy-xr/engine/camera"
	"github.com/Carmen-Shannon/oxy-xr/engine/capture"
	"github.com/Carmen-Shannon/oxy-xr/engine/pipe"
	"github.com/Carmen-Shannon/oxy-xr/engine/xr"
	"github.com/Carmen-Shannon/oxy-xr/engine/xr/pose"
	toml "github.com/pelletier/go-toml/v2"
)

// DefaultConfigPath is the file cmd/xr-server reads when -config is not given.
const DefaultConfigPath = "oxy-xr.toml"

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid config")

// Config is the full contents of the configuration file. Every section has a default, so a
// file only needs the keys it changes.
type Config struct {
	Capture    CaptureConfig    `toml:"capture"`
	Pipe       PipeConfig       `toml:"pipe"`
	Projection ProjectionConfig `toml:"projection"`
	View       ViewConfig       `toml:"view"`
	Window     WindowConfig     `toml:"window"`
	XR         XRConfig         `toml:"xr"`
	Profiler   ProfilerConfig   `toml:"profiler"`
	configPath string           `toml:"-"`
}

// CaptureConfig selects the screen rectangle to mirror and how many workers convert it.
type CaptureConfig struct {
	Region  capture.Region `toml:"region"`
	Workers int            `toml:"workers"`
}

// PipeConfig names the pipe headset records are written to.
type PipeConfig struct {
	// Name is a bare pipe name or a full platform path.
	Name string `toml:"name"`
}

// ProjectionConfig holds the orthographic clip bounds applied to the capture quad.
type ProjectionConfig struct {
	Left   float32 `toml:"left"`
	Right  float32 `toml:"right"`
	Bottom float32 `toml:"bottom"`
	Top    float32 `toml:"top"`
	Near   float32 `toml:"near"`
	Far    float32 `toml:"far"`
}

// ViewConfig places the static camera looking at the capture quad.
// Direction need not be normalized; Up must not be parallel to it.
type ViewConfig struct {
	Eye       [3]float32 `toml:"eye"`
	Direction [3]float32 `toml:"direction"`
	Up        [3]float32 `toml:"up"`
}

// WindowConfig sizes the desktop mirror window.
type WindowConfig struct {
	Title  string `toml:"title"`
	Width  int    `toml:"width"`
	Height int    `toml:"height"`
	VSync  bool   `toml:"vsync"`
}

// XRConfig tunes the desktop XR runtime. Distances are in meters and angles in radians.
type XRConfig struct {
	IPD             float32    `toml:"ipd"`
	FovHalfAngle    float32    `toml:"fov_half_angle"`
	LookSensitivity float32    `toml:"look_sensitivity"`
	Head            [3]float32 `toml:"head"`
}

// ProfilerConfig enables periodic frame timing reports.
type ProfilerConfig struct {
	Enabled bool `toml:"enabled"`

	// Interval is a Go duration string such as "1s" or "500ms".
	Interval string `toml:"interval"`
}

// Default returns the configuration used when no file is present: a 1920x1080 capture at the
// screen origin, the unit orthographic projection and a vsynced 1280x720 mirror window.
//
// Returns:
//   - Config: the default configuration
func Default() Config {
	return Config{
		Capture: CaptureConfig{
			Region:  capture.DefaultRegion(),
			Workers: 4,
		},
		Pipe: PipeConfig{
			Name: pipe.DefaultName,
		},
		Projection: ProjectionConfig{
			Left: -1, Right: 1, Bottom: -1, Top: 1, Near: 0.05, Far: 100,
		},
		View: ViewConfig{
			Direction: [3]float32{0, 0, -1},
			Up:        [3]float32{1, 0, 0},
		},
		Window: WindowConfig{
			Title:  "XR Mirror",
			Width:  1280,
			Height: 720,
			VSync:  true,
		},
		XR: XRConfig{
			IPD:             xr.DefaultIPD,
			FovHalfAngle:    xr.DefaultFovHalfAngle,
			LookSensitivity: xr.DefaultLookSensitivity,
		},
		Profiler: ProfilerConfig{
			Enabled:  false,
			Interval: "1s",
		},
	}
}

// Load reads the config at path over the defaults. A missing file is an error.
//
// Parameters:
//   - path: the TOML file to read
//
// Returns:
//   - Config: the loaded and validated configuration
//   - error: error if the file is missing, malformed or invalid
func Load(path string) (Config, error) {
	cfg, exists, err := LoadOrDefault(path)
	if err != nil {
		return Config{}, err
	}
	if !exists {
		return Config{}, fmt.Errorf("read config: %w", os.ErrNotExist)
	}
	return cfg, nil
}

// LoadOrDefault reads the config at path over the defaults, returning the defaults when the
// file does not exist.
//
// Parameters:
//   - path: the TOML file to read
//
// Returns:
//   - Config: the loaded configuration, or the defaults
//   - bool: true if the file exists
//   - error: error if the file could not be read, parsed or validated
func LoadOrDefault(path string) (Config, bool, error) {
	cfg := Default()
	cfg.configPath = path

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, false, nil
		}
		return Config{}, false, fmt.Errorf("read config: %w", err)
	}

	if err := toml.Unmarshal(data, &cfg); err != nil {
		return Config{}, true, fmt.Errorf("parse config: %w", err)
	}
	cfg.configPath = path

	if err := cfg.Validate(); err != nil {
		return Config{}, true, err
	}
	return cfg, true, nil
}

// Save validates the config and writes it as TOML.
//
// Parameters:
//   - path: the destination file, overwritten if present
//
// Returns:
//   - error: error if the config is invalid or the file could not be written
func (cfg *Config) Save(path string) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	data, err := toml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// ConfigPath returns the path given to Load or LoadOrDefault, or "" for Default.
func (cfg *Config) ConfigPath() string {
	return cfg.configPath
}

// Validate checks every section for values the mirror cannot run with.
//
// Returns:
//   - error: an error wrapping ErrInvalid that names the offending key, or nil
func (cfg *Config) Validate() error {
	if err := cfg.Capture.Region.Validate(); err != nil {
		return fmt.Errorf("%w: capture.region: %v", ErrInvalid, err)
	}
	if cfg.Capture.Workers < 1 {
		return fmt.Errorf("%w: capture.workers must be at least 1, got %d", ErrInvalid, cfg.Capture.Workers)
	}
	if cfg.Pipe.Name == "" {
		return fmt.Errorf("%w: pipe.name is empty", ErrInvalid)
	}

	p := cfg.Projection
	if p.Left == p.Right || p.Bottom == p.Top || p.Near == p.Far {
		return fmt.Errorf("%w: projection bounds must be distinct pairs (left/right, bottom/top, near/far)", ErrInvalid)
	}

	if cfg.View.Direction == ([3]float32{}) {
		return fmt.Errorf("%w: view.direction is zero", ErrInvalid)
	}
	if parallel(cfg.View.Direction, cfg.View.Up) {
		return fmt.Errorf("%w: view.up must not be parallel to view.direction", ErrInvalid)
	}

	if cfg.Window.Width <= 0 || cfg.Window.Height <= 0 {
		return fmt.Errorf("%w: window size %dx%d", ErrInvalid, cfg.Window.Width, cfg.Window.Height)
	}

	if cfg.XR.IPD < 0 {
		return fmt.Errorf("%w: xr.ipd is negative", ErrInvalid)
	}
	if cfg.XR.FovHalfAngle <= 0 || cfg.XR.FovHalfAngle >= math.Pi/2 {
		return fmt.Errorf("%w: xr.fov_half_angle must be in (0, pi/2), got %v", ErrInvalid, cfg.XR.FovHalfAngle)
	}

	if _, err := cfg.ProfilerInterval(); err != nil {
		return err
	}
	return nil
}

// ProfilerInterval parses the profiler report interval.
func (cfg *Config) ProfilerInterval() (time.Duration, error) {
	d, err := time.ParseDuration(cfg.Profiler.Interval)
	if err != nil {
		return 0, fmt.Errorf("%w: profiler.interval: %v", ErrInvalid, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%w: profiler.interval must be positive", ErrInvalid)
	}
	return d, nil
}

// PipePath resolves the pipe name to a platform path.
func (cfg *Config) PipePath() string {
	return pipe.PathFor(cfg.Pipe.Name)
}

// ProjectionMatrix returns the row-major orthographic projection.
func (cfg *Config) ProjectionMatrix() [16]float32 {
	p := cfg.Projection
	return camera.OrthographicView{Left: p.Left, Right: p.Right, Bottom: p.Bottom, Top: p.Top, Near: p.Near, Far: p.Far}.Matrix()
}

// ViewMatrix returns the row-major view matrix.
func (cfg *Config) ViewMatrix() [16]float32 {
	v := camera.NewViewMatrix()
	v.Eye = cfg.View.Eye
	v.LookDirection(common.Normalize3(cfg.View.Direction), cfg.View.Up)
	return v.Matrix()
}

// HeadPosition returns the simulated head position for the desktop runtime.
func (cfg *Config) HeadPosition() pose.Vector3 {
	h := cfg.XR.Head
	return pose.Vector3{X: h[0], Y: h[1], Z: h[2]}
}

func parallel(a, b [3]float32) bool {
	return common.Cross3(a, b) == [3]float32{}
}
