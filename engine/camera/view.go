package camera

import (
	"github.com/Carmen-Shannon/oxy-xr/common"
)

// ViewMatrix holds an eye position and an orthonormal camera basis.
// N points away from the look direction, U is the camera right axis and V the camera up axis.
type ViewMatrix struct {
	Eye [3]float32
	U   [3]float32
	V   [3]float32
	N   [3]float32
}

// NewViewMatrix returns a view at the origin whose basis is aligned with the world axes.
//
// Returns:
//   - ViewMatrix: the identity view
func NewViewMatrix() ViewMatrix {
	return ViewMatrix{
		U: [3]float32{1, 0, 0},
		V: [3]float32{0, 1, 0},
		N: [3]float32{0, 0, 1},
	}
}

// LookAt orients the basis so the eye looks at target.
// N becomes normalize(eye - target); U and V are derived from up.
//
// Parameters:
//   - target: the world-space point to look at
//   - up: the approximate up direction (must not be parallel to eye - target)
func (m *ViewMatrix) LookAt(target, up [3]float32) {
	m.N = common.Normalize3(common.Sub3(m.Eye, target))
	m.calcUV(up)
}

// LookDirection orients the basis from an already normalized direction.
// The direction is stored as N verbatim.
//
// Parameters:
//   - direction: the unit direction assigned to N
//   - up: the approximate up direction (must not be parallel to direction)
func (m *ViewMatrix) LookDirection(direction, up [3]float32) {
	m.N = direction
	m.calcUV(up)
}

// calcUV derives U = normalize(up × N) and V = N × U.
// When up is parallel to N, U collapses to the zero vector.
func (m *ViewMatrix) calcUV(up [3]float32) {
	m.U = common.Normalize3(common.Cross3(up, m.N))
	m.V = common.Cross3(m.N, m.U)
}

// Matrix returns the row-major view matrix embedding the basis and the eye translation.
//
// Returns:
//   - [16]float32: the view matrix, row-major
func (m ViewMatrix) Matrix() [16]float32 {
	negEye := common.Negate3(m.Eye)
	return [16]float32{
		m.U[0], m.U[1], m.U[2], common.Dot3(negEye, m.U),
		m.V[0], m.V[1], m.V[2], common.Dot3(negEye, m.V),
		m.N[0], m.N[1], m.N[2], common.Dot3(negEye, m.N),
		0, 0, 0, 1,
	}
}
