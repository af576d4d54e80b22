package stereo

import (
	_ "embed"
	"unsafe"

	"github.com/Carmen-Shannon/oxy-xr/common"
)

// StereoQuadSource is the WGSL module drawing the capture quad for one view.
// Its StereoUniform struct matches GPUStereoUniform (144 bytes).
//
//go:embed assets/stereo_quad.wgsl
var StereoQuadSource string

// QuadVertexCount is the number of vertices drawn per view: two triangles.
const QuadVertexCount = 6

// GPUStereoUniform is the per-view uniform block.
// Matrices are held row-major and uploaded unchanged. WGSL reads them column-major, so the
// shader multiplies by their transposes, which is the placement the quad is designed around.
// Size: 144 bytes (WGSL aligned).
type GPUStereoUniform struct {
	Projection [16]float32 // offset   0: projection matrix (mat4x4<f32>)
	View       [16]float32 // offset  64: view matrix (mat4x4<f32>)
	Eye        float32     // offset 128: view index
	Aspect     float32     // offset 132: capture width / height
	_pad       [2]float32  // offset 136: padding to 144 bytes
}

// Size returns the size of the GPUStereoUniform struct in bytes.
//
// Returns:
//   - int: the struct size in bytes (144)
func (g *GPUStereoUniform) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal serializes the uniform for GPU upload. Matrix elements keep their row-major order.
//
// Returns:
//   - []byte: the serialized byte buffer
func (g *GPUStereoUniform) Marshal() []byte {
	return common.SliceToBytes([]GPUStereoUniform{*g})
}
