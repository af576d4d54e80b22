package xr

import (
	"github.com/Carmen-Shannon/oxy-xr/engine/xr/pose"
	"github.com/go-gl/mathgl/mgl32"
)

// DesktopSessionBuilderOption is a functional option for configuring a desktopSession.
type DesktopSessionBuilderOption func(s *desktopSession)

// WithIPD sets the initial distance between the eyes.
//
// Parameters:
//   - meters: eye separation in meters
//
// Returns:
//   - DesktopSessionBuilderOption: option function to apply
func WithIPD(meters float32) DesktopSessionBuilderOption {
	return func(s *desktopSession) {
		s.look.ipd = meters
	}
}

// WithFovHalfAngle sets a symmetric field of view for both eyes.
//
// Parameters:
//   - radians: the half-angle on each side of the view axis
//
// Returns:
//   - DesktopSessionBuilderOption: option function to apply
func WithFovHalfAngle(radians float32) DesktopSessionBuilderOption {
	return func(s *desktopSession) {
		s.fov = pose.SymmetricFov(radians)
	}
}

// WithFov sets an explicit, possibly asymmetric, field of view for both eyes.
//
// Parameters:
//   - fov: the frustum half-angles
//
// Returns:
//   - DesktopSessionBuilderOption: option function to apply
func WithFov(fov pose.Fov) DesktopSessionBuilderOption {
	return func(s *desktopSession) {
		s.fov = fov
	}
}

// WithHeadPosition sets the simulated head position in tracking space.
//
// Parameters:
//   - position: the head position in meters
//
// Returns:
//   - DesktopSessionBuilderOption: option function to apply
func WithHeadPosition(position pose.Vector3) DesktopSessionBuilderOption {
	return func(s *desktopSession) {
		s.head = mgl32.Vec3{position.X, position.Y, position.Z}
	}
}

// WithLookSensitivity sets the mouse-look rotation per dragged pixel.
//
// Parameters:
//   - radiansPerPixel: rotation per pixel of cursor movement
//
// Returns:
//   - DesktopSessionBuilderOption: option function to apply
func WithLookSensitivity(radiansPerPixel float32) DesktopSessionBuilderOption {
	return func(s *desktopSession) {
		s.look.sensitivity = radiansPerPixel
	}
}
