package xr

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/Carmen-Shannon/oxy-xr/engine/renderer"
	"github.com/Carmen-Shannon/oxy-xr/engine/window"
	"github.com/Carmen-Shannon/oxy-xr/engine/xr/pose"
	"github.com/go-gl/mathgl/mgl32"
)

// ViewCount is the number of views the desktop runtime renders per frame.
const ViewCount = 2

// desktopSession is a Session that simulates a stereo headset on the desktop. Each view is
// rendered into its own target; the targets are mirrored side by side into the window and
// the vsync present is the frame wait.
type desktopSession struct {
	window   window.Window
	renderer renderer.Renderer

	head mgl32.Vec3
	fov  pose.Fov
	look lookState

	// idleInterval paces frames that are not rendered (minimised window).
	idleInterval time.Duration

	targets    [ViewCount]*renderer.ViewTarget
	targetSize [2]int

	frameIndex    uint64
	lastFrameTime time.Time
	framePeriod   time.Duration
}

var _ Session = &desktopSession{}

// desktopFrame is the Frame handed out by desktopSession.
type desktopFrame struct {
	state   FrameState
	views   [ViewCount]pose.View
	targets [ViewCount]*renderer.ViewTarget
}

func (f *desktopFrame) State() FrameState {
	return f.state
}

func (f *desktopFrame) Views(fn func(index int, view pose.View, target *renderer.ViewTarget) error) error {
	if !f.state.ShouldRender {
		return nil
	}
	for i := range f.views {
		if err := fn(i, f.views[i], f.targets[i]); err != nil {
			return err
		}
	}
	return nil
}

// NewDesktopSession creates a desktop runtime on an existing mirror window and renderer.
// Input handlers for mouse-look and the recenter and IPD keys are installed on the window.
//
// Parameters:
//   - w: the mirror window
//   - r: the renderer presenting to w
//   - options: functional options
//
// Returns:
//   - Session: the desktop session
func NewDesktopSession(w window.Window, r renderer.Renderer, options ...DesktopSessionBuilderOption) Session {
	s := &desktopSession{
		window:       w,
		renderer:     r,
		fov:          pose.SymmetricFov(DefaultFovHalfAngle),
		idleInterval: 100 * time.Millisecond,
		framePeriod:  time.Second / 60,
		look: lookState{
			ipd:         DefaultIPD,
			sensitivity: DefaultLookSensitivity,
		},
	}
	for _, opt := range options {
		opt(s)
	}

	w.SetMouseDownCallback(s.look.beginDrag)
	w.SetMouseUpCallback(func(_, _ int32) { s.look.endDrag() })
	w.SetMouseMoveCallback(s.look.drag)
	w.SetKeyDownCallback(func(keyCode uint32) {
		if s.look.key(keyCode) {
			log.Printf("[XR] yaw %.2f pitch %.2f ipd %.1f mm", s.look.yaw, s.look.pitch, s.look.ipd*1000)
		}
	})
	w.SetResizeCallback(func(width, height int) {
		r.Resize(width, height)
	})

	return s
}

func (s *desktopSession) Run(ctx context.Context, onFrame func(Frame) error) error {
	s.lastFrameTime = time.Now()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if !s.window.PollEvents() {
			return nil
		}

		frame, err := s.beginFrame()
		if err != nil {
			return err
		}
		if err := onFrame(frame); err != nil {
			return err
		}
		if err := s.endFrame(frame); err != nil {
			return err
		}
	}
}

// beginFrame builds the frame state and views and makes sure the targets match the window.
func (s *desktopSession) beginFrame() (*desktopFrame, error) {
	width, height := s.window.Width()/ViewCount, s.window.Height()
	shouldRender := width > 0 && height > 0
	if shouldRender {
		if err := s.ensureTargets(width, height); err != nil {
			return nil, err
		}
	}

	f := &desktopFrame{
		state: FrameState{
			Index:                s.frameIndex,
			PredictedDisplayTime: s.lastFrameTime.Add(s.framePeriod),
			ShouldRender:         shouldRender,
		},
		views:   eyeViews(s.head, s.look.orientation(), s.look.ipd, s.fov),
		targets: s.targets,
	}
	s.frameIndex++
	return f, nil
}

// endFrame mirrors and presents rendered frames and waits out idle ones.
func (s *desktopSession) endFrame(f *desktopFrame) error {
	if f.state.ShouldRender {
		if err := s.renderer.Mirror(s.targets[:]...); err != nil {
			return fmt.Errorf("xr: mirror: %w", err)
		}
		s.renderer.Present()
	} else {
		time.Sleep(s.idleInterval)
	}

	now := time.Now()
	s.framePeriod = now.Sub(s.lastFrameTime)
	s.lastFrameTime = now
	return nil
}

// ensureTargets (re)creates the per-view targets when the per-view size changes.
func (s *desktopSession) ensureTargets(width, height int) error {
	if s.targetSize == [2]int{width, height} && s.targets[0] != nil {
		return nil
	}
	s.releaseTargets()
	for i := range s.targets {
		t, err := s.renderer.CreateViewTarget(width, height)
		if err != nil {
			s.releaseTargets()
			return fmt.Errorf("xr: view target %d: %w", i, err)
		}
		s.targets[i] = t
	}
	s.targetSize = [2]int{width, height}
	return nil
}

func (s *desktopSession) releaseTargets() {
	for i, t := range s.targets {
		t.Release()
		s.targets[i] = nil
	}
	s.targetSize = [2]int{}
}

func (s *desktopSession) Close() error {
	s.releaseTargets()
	return nil
}
