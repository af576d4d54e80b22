// Package xr models the XR runtime the mirror renders into: a session that paces frames and
// hands out, per frame, one View (pose and field of view) and one render target for each eye.
package xr

import (
	"context"

	"github.com/Carmen-Shannon/oxy-xr/engine/renderer"
	"github.com/Carmen-Shannon/oxy-xr/engine/xr/pose"
)

// Session is a running XR runtime session.
type Session interface {
	// Run drives the frame loop, calling onFrame once per paced frame until the session ends,
	// ctx is cancelled, or onFrame returns an error.
	//
	// Parameters:
	//   - ctx: cancels the loop between frames
	//   - onFrame: the per-frame callback
	//
	// Returns:
	//   - error: nil when the user ended the session, ctx.Err() on cancellation, otherwise the first frame error
	Run(ctx context.Context, onFrame func(Frame) error) error

	// Close releases the session's view targets. Safe to call more than once.
	//
	// Returns:
	//   - error: error from releasing runtime resources
	Close() error
}

// Frame is one paced frame of a session.
type Frame interface {
	// State returns the frame's timing state.
	//
	// Returns:
	//   - FrameState: the frame state
	State() FrameState

	// Views calls fn for each view of the frame in index order, stopping at the first error.
	// The target is the image the view must be rendered into before fn returns.
	//
	// Parameters:
	//   - fn: the per-view callback
	//
	// Returns:
	//   - error: the first error returned by fn
	Views(fn func(index int, view pose.View, target *renderer.ViewTarget) error) error
}
