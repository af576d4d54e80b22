package headset

import (
	"github.com/go-gl/mathgl/mgl32"
)

// quat converts a (w, x, y, z) array into an mgl32 quaternion.
func quat(q [4]float32) mgl32.Quat {
	return mgl32.Quat{W: q[0], V: mgl32.Vec3{q[1], q[2], q[3]}}
}

// array converts an mgl32 quaternion back into (w, x, y, z) order.
func array(q mgl32.Quat) [4]float32 {
	return [4]float32{q.W, q.V[0], q.V[1], q.V[2]}
}

// sub returns the eye relative to a reference: positions are subtracted and the
// orientation becomes q * inverse(q0). Field of view is kept from e.
func (e EyeData) sub(ref EyeData) EyeData {
	out := e
	for i := range out.Pos {
		out.Pos[i] = e.Pos[i] - ref.Pos[i]
	}
	// A zero reference quaternion has no inverse; treat it as identity.
	if ref.Quaternion == ([4]float32{}) {
		return out
	}
	out.Quaternion = array(quat(e.Quaternion).Mul(quat(ref.Quaternion).Inverse()))
	return out
}

// Sub expresses both eyes relative to a recentering offset captured earlier.
//
// Parameters:
//   - offset: the reference headset record (usually produced by CenterEyes)
//
// Returns:
//   - HeadsetData: the recentered record
func (h HeadsetData) Sub(offset HeadsetData) HeadsetData {
	return HeadsetData{
		Left:  h.Left.sub(offset.Left),
		Right: h.Right.sub(offset.Right),
	}
}

// CenterEyes moves both eye positions to their midpoint so that subtracting the
// record later keeps each eye's lateral (IPD) offset intact.
func (h *HeadsetData) CenterEyes() {
	var mid [3]float32
	for i := range mid {
		mid[i] = (h.Left.Pos[i] + h.Right.Pos[i]) / 2
	}
	h.Left.Pos = mid
	h.Right.Pos = mid
}
