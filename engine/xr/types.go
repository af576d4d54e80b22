package xr

import (
	"time"
)

// FrameState describes a single paced frame handed out by the runtime's frame loop.
type FrameState struct {
	// Index is the zero-based frame counter for the session.
	Index uint64

	// PredictedDisplayTime is when the runtime expects the frame to reach the display.
	PredictedDisplayTime time.Time

	// ShouldRender is false when the runtime wants the frame submitted without rendering.
	ShouldRender bool
}
