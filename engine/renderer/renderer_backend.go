package renderer

import (
	"errors"

	"github.com/cogentcore/webgpu/wgpu"
)

// RendererBackendType identifies the GPU backend implementation used by the Renderer.
type RendererBackendType int

const (
	// BackendTypeWGPU selects the WebGPU-based rendering backend.
	BackendTypeWGPU RendererBackendType = iota
)

// PresentMode controls how rendered frames are presented to the mirror surface.
type PresentMode int

const (
	// PresentModeVSync waits for the next vertical blank before presenting, capping frame rate
	// to the monitor's refresh rate. The desktop XR runtime uses this as its frame wait.
	PresentModeVSync PresentMode = iota

	// PresentModeUncapped presents frames immediately without waiting for vertical blank.
	// May cause screen tearing but provides the lowest latency.
	PresentModeUncapped
)

// BytesPerPixel is the texel size of every color texture the renderer uploads to.
const BytesPerPixel = 4

// DepthFormat is the depth attachment format of every view target.
const DepthFormat = wgpu.TextureFormatDepth24Plus

var (
	// ErrTextureSize is returned when upload data does not cover the texture exactly.
	ErrTextureSize = errors.New("renderer: pixel data does not match texture size")

	// ErrPassActive is returned when a pass is begun while another is still recording.
	ErrPassActive = errors.New("renderer: a view pass is already active")

	// ErrNoPass is returned when drawing or ending without an active view pass.
	ErrNoPass = errors.New("renderer: no active view pass")
)

// RendererBackend is the top-level backend interface for the Renderer.
// It embeds the concrete backend interface for the selected GPU API.
type RendererBackend interface {
	wgpuRendererBackend
}
