package camera

import (
	"math"
)

// ClipSpace selects the clip-space convention of the graphics API consuming a projection matrix.
type ClipSpace int

const (
	// ClipSpaceOpenGL has +Y up and a [-1, 1] depth range.
	ClipSpaceOpenGL ClipSpace = iota

	// ClipSpaceD3D has +Y up and a [0, 1] depth range (also Metal and WebGPU).
	ClipSpaceD3D

	// ClipSpaceVulkan has +Y down and a [0, 1] depth range.
	ClipSpaceVulkan
)

// ParseClipSpace maps "opengl", "d3d" or "vulkan" to a ClipSpace.
//
// Parameters:
//   - name: the convention name
//
// Returns:
//   - ClipSpace: the convention
//   - bool: false if name is not recognised
func ParseClipSpace(name string) (ClipSpace, bool) {
	switch name {
	case "opengl":
		return ClipSpaceOpenGL, true
	case "d3d":
		return ClipSpaceD3D, true
	case "vulkan":
		return ClipSpaceVulkan, true
	}
	return ClipSpaceOpenGL, false
}

// ProjectionFov builds an off-axis perspective projection from the four field-of-view
// half-angles an XR runtime reports for a view. Left and down angles are negative for a
// symmetric frustum centred on the view axis.
//
// Parameters:
//   - fov: the half-angles in radians ordered up, down, right, left (the wire order of EyeData.Fov)
//   - near: near clipping plane distance
//   - far: far clipping plane distance
//   - clip: the target clip-space convention
//
// Returns:
//   - [16]float32: the projection matrix, row-major
func ProjectionFov(fov [4]float32, near, far float32, clip ClipSpace) [16]float32 {
	tanUp := float32(math.Tan(float64(fov[0])))
	tanDown := float32(math.Tan(float64(fov[1])))
	tanRight := float32(math.Tan(float64(fov[2])))
	tanLeft := float32(math.Tan(float64(fov[3])))

	width := tanRight - tanLeft
	height := tanUp - tanDown
	if clip == ClipSpaceVulkan {
		height = tanDown - tanUp
	}

	// offsetZ selects the depth range: near for [-1, 1], zero for [0, 1].
	var offsetZ float32
	if clip == ClipSpaceOpenGL {
		offsetZ = near
	}

	return [16]float32{
		2 / width, 0, (tanRight + tanLeft) / width, 0,
		0, 2 / height, (tanUp + tanDown) / height, 0,
		0, 0, -(far + offsetZ) / (far - near), -(far * (near + offsetZ)) / (far - near),
		0, 0, -1, 0,
	}
}
