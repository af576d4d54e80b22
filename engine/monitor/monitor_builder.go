package monitor

import (
	"time"

	"github.com/Carmen-Shannon/oxy-xr/engine/camera"
)

// MonitorBuilderOption is a functional option for configuring a monitor.
type MonitorBuilderOption func(m *monitor)

// WithInterval sets how often the websocket stream checks for a new pose. Values <= 0 keep the default.
//
// Parameters:
//   - d: the poll interval
//
// Returns:
//   - MonitorBuilderOption: option function to apply
func WithInterval(d time.Duration) MonitorBuilderOption {
	return func(m *monitor) {
		if d > 0 {
			m.interval = d
		}
	}
}

// WithProjection adds each eye's perspective projection, built from its field of view, to every message.
//
// Parameters:
//   - near: near clipping plane distance
//   - far: far clipping plane distance
//   - clip: the consumer's clip-space convention
//
// Returns:
//   - MonitorBuilderOption: option function to apply
func WithProjection(near, far float32, clip camera.ClipSpace) MonitorBuilderOption {
	return func(m *monitor) {
		m.projection = &projection{near: near, far: far, clip: clip}
	}
}
