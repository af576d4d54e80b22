package profiler

import (
	"time"
)

// ProfilerBuilderOption is a functional option for configuring a Profiler.
type ProfilerBuilderOption func(p *Profiler)

// WithInterval sets how often statistics are reported. Values <= 0 keep the default.
//
// Parameters:
//   - d: the report interval
//
// Returns:
//   - ProfilerBuilderOption: option function to apply
func WithInterval(d time.Duration) ProfilerBuilderOption {
	return func(p *Profiler) {
		if d > 0 {
			p.updateInterval = d
		}
	}
}

// WithOutput replaces the log output with a custom report sink.
//
// Parameters:
//   - fn: called with each report
//
// Returns:
//   - ProfilerBuilderOption: option function to apply
func WithOutput(fn func(Report)) ProfilerBuilderOption {
	return func(p *Profiler) {
		p.output = fn
	}
}

// WithClock replaces the time source.
//
// Parameters:
//   - now: returns the current time
//
// Returns:
//   - ProfilerBuilderOption: option function to apply
func WithClock(now func() time.Time) ProfilerBuilderOption {
	return func(p *Profiler) {
		p.now = now
	}
}
