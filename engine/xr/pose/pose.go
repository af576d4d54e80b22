// Package pose holds the tracking-space value types an XR runtime reports per view.
// It has no GPU or windowing dependencies, so pose consumers can use it on their own.
package pose

// Vector3 is a position in the runtime's tracking space, in meters.
type Vector3 struct {
	X, Y, Z float32
}

// Quaternion is a unit rotation. W is the scalar part.
type Quaternion struct {
	W, X, Y, Z float32
}

// Pose is a rigid transform reported by the runtime for one view.
type Pose struct {
	Position    Vector3
	Orientation Quaternion
}

// Fov holds the four half-angles (radians) of an asymmetric view frustum.
// AngleLeft and AngleDown are negative for a frustum centred on the view axis.
type Fov struct {
	AngleUp    float32
	AngleDown  float32
	AngleRight float32
	AngleLeft  float32
}

// SymmetricFov returns a frustum with the same half-angle on all four sides.
//
// Parameters:
//   - halfAngle: the half-angle in radians
//
// Returns:
//   - Fov: the frustum, with negative left and down angles
func SymmetricFov(halfAngle float32) Fov {
	return Fov{AngleUp: halfAngle, AngleDown: -halfAngle, AngleRight: halfAngle, AngleLeft: -halfAngle}
}

// View is one eye's rendering viewpoint for a frame.
type View struct {
	Pose Pose
	Fov  Fov
}
