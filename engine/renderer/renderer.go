package renderer

import (
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxy-xr/engine/window"
	"github.com/cogentcore/webgpu/wgpu"
)

// renderer is the implementation of the Renderer interface.
type renderer struct {
	mu *sync.Mutex

	pipelineCache map[string]*Pipeline

	backendType RendererBackendType
	backend     RendererBackend

	// Pre-creation config collected from builder options
	forceFallbackAdapter bool
	pendingPresentMode   *PresentMode
}

// Renderer is the GPU context of the XR mirror: it owns the device, the mirror window surface
// and the per-view render targets, and exposes the handful of immediate-mode calls the stereo
// pass needs (texture upload, one pipeline, per-view passes, mirror and present).
type Renderer interface {
	// Pipeline retrieves the cached Pipeline created with the given label, or nil if not found.
	//
	// Parameters:
	//   - key: the pipeline label
	//
	// Returns:
	//   - *Pipeline: the cached pipeline, or nil
	Pipeline(key string) *Pipeline

	// CreateRenderPipeline compiles and caches a pipeline by its label.
	// A pipeline whose label is already cached is returned without recompiling.
	//
	// Parameters:
	//   - desc: the pipeline description
	//
	// Returns:
	//   - *Pipeline: the created or cached pipeline
	//   - error: error if the shader fails to compile or the pipeline cannot be created
	CreateRenderPipeline(desc PipelineDescriptor) (*Pipeline, error)

	// CreateBindGroup creates a bind group for the given group index of a pipeline.
	//
	// Parameters:
	//   - p: the pipeline whose layout is used
	//   - group: the bind group index
	//   - label: debug label
	//   - entries: the resources to bind
	//
	// Returns:
	//   - *wgpu.BindGroup: the created bind group
	//   - error: error if creation fails
	CreateBindGroup(p *Pipeline, group int, label string, entries []wgpu.BindGroupEntry) (*wgpu.BindGroup, error)

	// CreateTexture creates a sampled color texture that can be filled with WriteTexture.
	//
	// Parameters:
	//   - label: debug label
	//   - width, height: size in texels
	//   - format: the texel format
	//
	// Returns:
	//   - *Texture: the created texture
	//   - error: error if creation fails
	CreateTexture(label string, width, height int, format wgpu.TextureFormat) (*Texture, error)

	// WriteTexture uploads a full image into tex.
	//
	// Parameters:
	//   - tex: destination texture
	//   - pix: tightly packed texels, exactly width*height*4 bytes
	//
	// Returns:
	//   - error: ErrTextureSize if pix does not match the texture
	WriteTexture(tex *Texture, pix []byte) error

	// CreateSampler creates a sampler; zero fields default to linear filtering and repeat addressing.
	//
	// Parameters:
	//   - label: debug label
	//   - stagingData: the sampler configuration
	//
	// Returns:
	//   - *wgpu.Sampler: the created sampler
	//   - error: error if creation fails
	CreateSampler(label string, stagingData SamplerStagingData) (*wgpu.Sampler, error)

	// CreateUniformBuffer creates a writable uniform buffer.
	//
	// Parameters:
	//   - label: debug label
	//   - size: size in bytes
	//
	// Returns:
	//   - *wgpu.Buffer: the created buffer
	//   - error: error if creation fails
	CreateUniformBuffer(label string, size uint64) (*wgpu.Buffer, error)

	// WriteBuffer queues a write into a buffer.
	//
	// Parameters:
	//   - buf: destination buffer
	//   - offset: byte offset
	//   - data: bytes to write
	WriteBuffer(buf *wgpu.Buffer, offset uint64, data []byte)

	// CreateViewTarget allocates the color and depth images for one view.
	//
	// Parameters:
	//   - width, height: size in pixels
	//
	// Returns:
	//   - *ViewTarget: the created target
	//   - error: error if creation fails
	CreateViewTarget(width, height int) (*ViewTarget, error)

	// BeginViewPass starts recording into target and clears it.
	//
	// Parameters:
	//   - target: the view target
	//
	// Returns:
	//   - error: ErrPassActive if another pass is recording
	BeginViewPass(target *ViewTarget) error

	// Draw records a draw call in the active view pass.
	//
	// Parameters:
	//   - p: the pipeline
	//   - bindGroups: bind groups set at indexes 0..n-1
	//   - vertexCount: number of vertices
	//
	// Returns:
	//   - error: ErrNoPass if no pass is active
	Draw(p *Pipeline, bindGroups []*wgpu.BindGroup, vertexCount uint32) error

	// EndViewPass ends and submits the active view pass.
	//
	// Returns:
	//   - error: ErrNoPass if no pass is active
	EndViewPass() error

	// Mirror copies the view targets side by side onto the window surface.
	//
	// Parameters:
	//   - targets: the view targets in left to right order
	//
	// Returns:
	//   - error: error if the surface could not be acquired
	Mirror(targets ...*ViewTarget) error

	// Present shows the mirrored frame. Under PresentModeVSync this paces the caller to the display.
	Present()

	// Resize reconfigures the mirror surface.
	//
	// Parameters:
	//   - width: the new width of the surface in pixels
	//   - height: the new height of the surface in pixels
	Resize(width, height int)

	// SetPresentMode changes the present mode; it takes effect on the next Resize.
	//
	// Parameters:
	//   - mode: the PresentMode to use
	SetPresentMode(mode PresentMode)

	// Release frees every cached pipeline and the GPU device.
	Release()
}

var _ Renderer = &renderer{}

// NewRenderer creates the GPU context for a window and configures its surface.
// Adapter or device acquisition failures are fatal and panic, as nothing can be rendered without them.
//
// Parameters:
//   - w: the window providing the surface
//   - options: functional options for renderer configuration
//
// Returns:
//   - Renderer: the configured renderer
func NewRenderer(w window.Window, options ...RendererBuilderOption) Renderer {
	r := &renderer{
		mu:            &sync.Mutex{},
		pipelineCache: make(map[string]*Pipeline),
		backendType:   BackendTypeWGPU,
	}

	for _, opt := range options {
		opt(r)
	}

	switch r.backendType {
	case BackendTypeWGPU:
		fallthrough
	default:
		backend, err := newWGPURendererBackend(w.SurfaceDescriptor(), r.forceFallbackAdapter)
		if err != nil {
			panic(fmt.Sprintf("failed to create renderer backend: %v", err))
		}
		r.backend = backend
	}

	if r.pendingPresentMode != nil {
		r.backend.SetPresentMode(*r.pendingPresentMode)
	}

	r.backend.ConfigureSurface(w.Width(), w.Height())
	return r
}

func (r *renderer) Pipeline(key string) *Pipeline {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pipelineCache[key]
}

func (r *renderer) CreateRenderPipeline(desc PipelineDescriptor) (*Pipeline, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if p, exists := r.pipelineCache[desc.Label]; exists {
		return p, nil
	}
	p, err := r.backend.CreateRenderPipeline(desc)
	if err != nil {
		return nil, err
	}
	r.pipelineCache[desc.Label] = p
	return p, nil
}

func (r *renderer) CreateBindGroup(p *Pipeline, group int, label string, entries []wgpu.BindGroupEntry) (*wgpu.BindGroup, error) {
	return r.backend.CreateBindGroup(p, group, label, entries)
}

func (r *renderer) CreateTexture(label string, width, height int, format wgpu.TextureFormat) (*Texture, error) {
	return r.backend.CreateTexture(label, width, height, format)
}

func (r *renderer) WriteTexture(tex *Texture, pix []byte) error {
	return r.backend.WriteTexture(tex, pix)
}

func (r *renderer) CreateSampler(label string, stagingData SamplerStagingData) (*wgpu.Sampler, error) {
	return r.backend.CreateSampler(label, stagingData)
}

func (r *renderer) CreateUniformBuffer(label string, size uint64) (*wgpu.Buffer, error) {
	return r.backend.CreateUniformBuffer(label, size)
}

func (r *renderer) WriteBuffer(buf *wgpu.Buffer, offset uint64, data []byte) {
	r.backend.WriteBuffer(buf, offset, data)
}

func (r *renderer) CreateViewTarget(width, height int) (*ViewTarget, error) {
	return r.backend.CreateViewTarget(width, height)
}

func (r *renderer) BeginViewPass(target *ViewTarget) error {
	return r.backend.BeginViewPass(target)
}

func (r *renderer) Draw(p *Pipeline, bindGroups []*wgpu.BindGroup, vertexCount uint32) error {
	return r.backend.Draw(p, bindGroups, vertexCount)
}

func (r *renderer) EndViewPass() error {
	return r.backend.EndViewPass()
}

func (r *renderer) Mirror(targets ...*ViewTarget) error {
	return r.backend.Mirror(targets)
}

func (r *renderer) Present() {
	r.backend.Present()
}

func (r *renderer) Resize(width, height int) {
	r.backend.ConfigureSurface(width, height)
}

func (r *renderer) SetPresentMode(mode PresentMode) {
	r.backend.SetPresentMode(mode)
}

func (r *renderer) Release() {
	r.mu.Lock()
	for key, p := range r.pipelineCache {
		p.Release()
		delete(r.pipelineCache, key)
	}
	r.mu.Unlock()

	r.backend.Release()
}
