package camera

import (
	"github.com/Carmen-Shannon/oxy-xr/common"
)

// OrthographicView holds the six clip bounds of an orthographic projection.
// The matrix is computed once at startup and never mutated per frame.
type OrthographicView struct {
	Left   float32
	Right  float32
	Bottom float32
	Top    float32
	Near   float32
	Far    float32
}

// DefaultOrthographicView returns the unit orthographic volume: x and y in [-1, 1], z in [-100, 100].
//
// Returns:
//   - OrthographicView: the default bounds
func DefaultOrthographicView() OrthographicView {
	return OrthographicView{
		Left:   -1,
		Right:  1,
		Bottom: -1,
		Top:    1,
		Near:   -100,
		Far:    100,
	}
}

// Matrix returns the row-major orthographic projection matrix for these bounds.
// Bounds must be pairwise distinct; degenerate bounds are not validated.
//
// Returns:
//   - [16]float32: the projection matrix, row-major
func (o OrthographicView) Matrix() [16]float32 {
	return common.Orthographic(o.Left, o.Right, o.Bottom, o.Top, o.Near, o.Far)
}
