package engine

import (
	"github.com/Carmen-Shannon/oxy-xr/engine/headset"
	"github.com/Carmen-Shannon/oxy-xr/engine/profiler"
)

// EngineBuilderOption is a functional option for configuring an Engine.
// Use the With* functions to create options that are applied directly to the engine instance.
type EngineBuilderOption func(*engine)

// WithProfiling enables or disables per-stage timing and performance output.
//
// Parameters:
//   - enabled: if true, enables performance profiling
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithProfiling(enabled bool) EngineBuilderOption {
	return func(e *engine) {
		e.profilingEnabled = enabled
	}
}

// WithProfiler enables profiling with a preconfigured profiler.
//
// Parameters:
//   - p: the profiler to report to
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithProfiler(p *profiler.Profiler) EngineBuilderOption {
	return func(e *engine) {
		e.profiler = p
		e.profilingEnabled = p != nil
	}
}

// WithProjection overrides the stereo renderer's projection matrix.
//
// Parameters:
//   - m: a row-major 4x4 projection matrix
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithProjection(m [16]float32) EngineBuilderOption {
	return func(e *engine) {
		e.stereo.SetProjection(m)
	}
}

// WithView overrides the stereo renderer's view matrix.
//
// Parameters:
//   - m: a row-major 4x4 view matrix
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithView(m [16]float32) EngineBuilderOption {
	return func(e *engine) {
		e.stereo.SetView(m)
	}
}

// WithSnapshot writes the first captured frame to a PNG file.
//
// Parameters:
//   - path: the destination file
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithSnapshot(path string) EngineBuilderOption {
	return func(e *engine) {
		e.snapshotPath = path
	}
}

// WithFrameCallback registers a function called after each record is written.
//
// Parameters:
//   - callback: receives the frame count and the record just transmitted
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithFrameCallback(callback func(index uint64, data headset.HeadsetData)) EngineBuilderOption {
	return func(e *engine) {
		e.onFrame = callback
	}
}
