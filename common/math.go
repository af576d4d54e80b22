// package common contains the math and byte helpers that are used throughout the server. They are not interface-wrapped
// structs, just plain functions over plain data.
package common

import (
	"math"
)

// Identity resets a 4x4 matrix (flat slice) to the identity matrix.
//
// Parameters:
//   - m: destination slice (must be at least 16 elements)
func Identity(m []float32) {
	for i := range m {
		m[i] = 0
	}
	m[0], m[5], m[10], m[15] = 1, 1, 1, 1
}

// Orthographic builds a row-major orthographic projection matrix from six clip bounds.
// There is no perspective division; w stays 1 for every input point.
// Degenerate bounds (left == right, bottom == top, near == far) are not guarded
// and produce infinities in the affected rows.
//
// Parameters:
//   - left, right: x bounds mapped to -1 and +1
//   - bottom, top: y bounds mapped to -1 and +1
//   - near, far: z bounds (eye-space -near maps to -1, -far maps to +1)
//
// Returns:
//   - [16]float32: the projection matrix, row-major
func Orthographic(left, right, bottom, top, near, far float32) [16]float32 {
	return [16]float32{
		2 / (right - left), 0, 0, -(right + left) / (right - left),
		0, 2 / (top - bottom), 0, -(top + bottom) / (top - bottom),
		0, 0, 2 / (near - far), (near + far) / (near - far),
		0, 0, 0, 1,
	}
}

// Transpose4 converts a row-major 4x4 matrix to column-major order (and vice versa).
// It gives the matrix a column-major shader sees when handed row-major data.
//
// Parameters:
//   - m: the matrix to transpose
//
// Returns:
//   - [16]float32: the transposed matrix
func Transpose4(m [16]float32) [16]float32 {
	var out [16]float32
	for row := 0; row < 4; row++ {
		for col := 0; col < 4; col++ {
			out[col*4+row] = m[row*4+col]
		}
	}
	return out
}

// MulRowMajor4 multiplies two row-major 4x4 matrices: out = a * b.
//
// Parameters:
//   - a: left-hand matrix (row-major)
//   - b: right-hand matrix (row-major)
//
// Returns:
//   - [16]float32: the product, row-major
func MulRowMajor4(a, b [16]float32) [16]float32 {
	var out [16]float32
	for row := 0; row < 4; row++ {
		for col := 0; col < 4; col++ {
			var sum float32
			for k := 0; k < 4; k++ {
				sum += a[row*4+k] * b[k*4+col]
			}
			out[row*4+col] = sum
		}
	}
	return out
}

// TransformPoint applies a row-major 4x4 matrix to the point (x, y, z, 1).
//
// Returns:
//   - [4]float32: the transformed homogeneous point
func TransformPoint(m [16]float32, x, y, z float32) [4]float32 {
	return [4]float32{
		m[0]*x + m[1]*y + m[2]*z + m[3],
		m[4]*x + m[5]*y + m[6]*z + m[7],
		m[8]*x + m[9]*y + m[10]*z + m[11],
		m[12]*x + m[13]*y + m[14]*z + m[15],
	}
}

// Cross3 returns the cross product a × b.
func Cross3(a, b [3]float32) [3]float32 {
	return [3]float32{
		a[1]*b[2] - a[2]*b[1],
		a[2]*b[0] - a[0]*b[2],
		a[0]*b[1] - a[1]*b[0],
	}
}

// Dot3 returns the dot product a · b.
func Dot3(a, b [3]float32) float32 {
	return a[0]*b[0] + a[1]*b[1] + a[2]*b[2]
}

// Length3 returns the Euclidean length of v.
func Length3(v [3]float32) float32 {
	return float32(math.Sqrt(float64(Dot3(v, v))))
}

// Normalize3 scales v to unit length. A zero-length vector is returned unchanged.
//
// Parameters:
//   - v: the vector to normalize
//
// Returns:
//   - [3]float32: the unit vector, or v itself if its length is zero
func Normalize3(v [3]float32) [3]float32 {
	length := Length3(v)
	if length == 0 {
		return v
	}
	inv := 1 / length
	return [3]float32{v[0] * inv, v[1] * inv, v[2] * inv}
}

// Sub3 returns a - b.
func Sub3(a, b [3]float32) [3]float32 {
	return [3]float32{a[0] - b[0], a[1] - b[1], a[2] - b[2]}
}

// Negate3 returns -v.
func Negate3(v [3]float32) [3]float32 {
	return [3]float32{-v[0], -v[1], -v[2]}
}
