package xr

import (
	"math"

	"github.com/Carmen-Shannon/oxy-xr/common"
	"github.com/Carmen-Shannon/oxy-xr/engine/xr/pose"
	"github.com/go-gl/mathgl/mgl32"
)

const (
	// DefaultIPD is the default distance between the eyes, in meters.
	DefaultIPD float32 = 0.063

	// DefaultFovHalfAngle is the default symmetric field-of-view half-angle, in radians.
	DefaultFovHalfAngle float32 = math.Pi / 4

	// DefaultLookSensitivity is the mouse-look rotation per dragged pixel, in radians.
	DefaultLookSensitivity float32 = 0.005

	// ipdStep is how much one key press changes the eye separation.
	ipdStep float32 = 0.001

	// maxIPD bounds the adjustable eye separation.
	maxIPD float32 = 0.1

	// maxPitch keeps mouse-look just short of straight up or down.
	maxPitch = math.Pi/2 - 0.01
)

// lookState is the simulated head: mouse-look orientation plus the adjustable eye separation.
type lookState struct {
	yaw, pitch  float32
	ipd         float32
	sensitivity float32

	dragging     bool
	lastX, lastY int32
}

func (l *lookState) beginDrag(x, y int32) {
	l.dragging = true
	l.lastX, l.lastY = x, y
}

func (l *lookState) endDrag() {
	l.dragging = false
}

// drag turns the head by the cursor movement since the last event.
// Dragging right looks right; dragging down looks down.
func (l *lookState) drag(x, y int32) {
	if !l.dragging {
		return
	}
	dx, dy := float32(x-l.lastX), float32(y-l.lastY)
	l.lastX, l.lastY = x, y

	l.yaw -= dx * l.sensitivity
	l.pitch -= dy * l.sensitivity
	l.pitch = mgl32.Clamp(l.pitch, -maxPitch, maxPitch)
	l.yaw = float32(math.Remainder(float64(l.yaw), 2*math.Pi))
}

// key applies a key press. It returns false for keys that are not bound.
func (l *lookState) key(code uint32) bool {
	switch code {
	case common.KeyComma:
		l.yaw, l.pitch = 0, 0
	case common.KeyMinus:
		l.ipd = mgl32.Clamp(l.ipd-ipdStep, 0, maxIPD)
	case common.KeyEqual:
		l.ipd = mgl32.Clamp(l.ipd+ipdStep, 0, maxIPD)
	default:
		return false
	}
	return true
}

// orientation returns the head rotation: yaw about +Y, then pitch about the turned +X axis.
func (l *lookState) orientation() mgl32.Quat {
	yaw := mgl32.QuatRotate(l.yaw, mgl32.Vec3{0, 1, 0})
	pitch := mgl32.QuatRotate(l.pitch, mgl32.Vec3{1, 0, 0})
	return yaw.Mul(pitch).Normalize()
}

// eyeViews places two eyes half an IPD either side of head along the head's local X axis.
// Index 0 is the left eye.
func eyeViews(head mgl32.Vec3, orientation mgl32.Quat, ipd float32, fov pose.Fov) [2]pose.View {
	var views [2]pose.View
	q := pose.Quaternion{W: orientation.W, X: orientation.V[0], Y: orientation.V[1], Z: orientation.V[2]}
	for i, side := range [2]float32{-1, 1} {
		p := head.Add(orientation.Rotate(mgl32.Vec3{side * ipd / 2, 0, 0}))
		views[i] = pose.View{
			Pose: pose.Pose{
				Position:    pose.Vector3{X: p[0], Y: p[1], Z: p[2]},
				Orientation: q,
			},
			Fov: fov,
		}
	}
	return views
}
