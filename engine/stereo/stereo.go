// Package stereo draws the captured screen onto a textured quad once per XR view.
package stereo

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-xr/engine/camera"
	"github.com/Carmen-Shannon/oxy-xr/engine/capture"
	"github.com/Carmen-Shannon/oxy-xr/engine/renderer"
	"github.com/cogentcore/webgpu/wgpu"
)

// PipelineKey is the label the stereo pipeline is cached under in the renderer.
const PipelineKey = "Stereo Quad"

// StereoRenderer uploads captured frames and renders them into per-view targets.
type StereoRenderer interface {
	// Upload replaces the capture texture with frame.
	//
	// Parameters:
	//   - frame: a captured frame matching the configured region size
	//
	// Returns:
	//   - error: error if the frame size does not match the region
	Upload(frame capture.Frame) error

	// RenderView clears target and draws the capture quad for the given view index.
	//
	// Parameters:
	//   - eye: the view index, 0 for the left half of the capture and 1 for the right half
	//   - target: the view's render target
	//
	// Returns:
	//   - error: error if recording or submitting the pass fails
	RenderView(eye int, target *renderer.ViewTarget) error

	// SetProjection replaces the projection matrix for every view.
	//
	// Parameters:
	//   - m: the projection matrix, row-major
	SetProjection(m [16]float32)

	// SetView replaces the view matrix for every view.
	//
	// Parameters:
	//   - m: the view matrix, row-major
	SetView(m [16]float32)

	// Region returns the capture region the texture was sized for.
	//
	// Returns:
	//   - capture.Region: the capture region
	Region() capture.Region

	// Release frees the texture, sampler, buffers and bind groups.
	Release()
}

// eyeBinding is the uniform buffer and bind group of one view index.
type eyeBinding struct {
	buffer    *wgpu.Buffer
	bindGroup *wgpu.BindGroup
}

// stereoRenderer is the implementation of the StereoRenderer interface.
type stereoRenderer struct {
	r      renderer.Renderer
	region capture.Region

	projection [16]float32
	view       [16]float32

	pipeline       *renderer.Pipeline
	texture        *renderer.Texture
	sampler        *wgpu.Sampler
	textureBinding *wgpu.BindGroup

	// eyes holds the uniforms per view index, created on first use.
	eyes map[int]*eyeBinding
}

var _ StereoRenderer = &stereoRenderer{}

// DefaultProjection returns the orthographic projection used for the quad: unit bounds with
// a near plane just in front of the viewer.
//
// Returns:
//   - [16]float32: the projection matrix, row-major
func DefaultProjection() [16]float32 {
	return camera.OrthographicView{Left: -1, Right: 1, Bottom: -1, Top: 1, Near: 0.05, Far: 100}.Matrix()
}

// DefaultView returns the static view matrix: looking down -Z with +X as up.
//
// Returns:
//   - [16]float32: the view matrix, row-major
func DefaultView() [16]float32 {
	v := camera.NewViewMatrix()
	v.LookDirection([3]float32{0, 0, -1}, [3]float32{1, 0, 0})
	return v.Matrix()
}

// NewStereoRenderer compiles the quad shader and allocates the capture texture.
// A shader compile failure is returned here, before any frame is rendered.
//
// Parameters:
//   - r: the GPU context
//   - region: the capture region; the texture is sized to match
//   - options: functional options
//
// Returns:
//   - StereoRenderer: the stereo renderer
//   - error: error if any GPU object could not be created
func NewStereoRenderer(r renderer.Renderer, region capture.Region, options ...StereoRendererBuilderOption) (StereoRenderer, error) {
	if err := region.Validate(); err != nil {
		return nil, err
	}

	s := &stereoRenderer{
		r:          r,
		region:     region,
		projection: DefaultProjection(),
		view:       DefaultView(),
		eyes:       make(map[int]*eyeBinding),
	}
	for _, opt := range options {
		opt(s)
	}

	if err := s.init(); err != nil {
		s.Release()
		return nil, err
	}
	return s, nil
}

func (s *stereoRenderer) init() error {
	var err error
	uniformSize := uint64((&GPUStereoUniform{}).Size())

	s.pipeline, err = s.r.CreateRenderPipeline(renderer.PipelineDescriptor{
		Label:              PipelineKey,
		Source:             StereoQuadSource,
		VertexEntryPoint:   "vs_main",
		FragmentEntryPoint: "fs_main",
		BindGroupLayouts: []wgpu.BindGroupLayoutDescriptor{
			{
				Label: "Stereo Uniform Layout",
				Entries: []wgpu.BindGroupLayoutEntry{
					{
						Binding:    0,
						Visibility: wgpu.ShaderStageVertex,
						Buffer: wgpu.BufferBindingLayout{
							Type:           wgpu.BufferBindingTypeUniform,
							MinBindingSize: uniformSize,
						},
					},
				},
			},
			{
				Label: "Capture Texture Layout",
				Entries: []wgpu.BindGroupLayoutEntry{
					{
						Binding:    0,
						Visibility: wgpu.ShaderStageFragment,
						Texture: wgpu.TextureBindingLayout{
							SampleType:    wgpu.TextureSampleTypeFloat,
							ViewDimension: wgpu.TextureViewDimension2D,
						},
					},
					{
						Binding:    1,
						Visibility: wgpu.ShaderStageFragment,
						Sampler: wgpu.SamplerBindingLayout{
							Type: wgpu.SamplerBindingTypeFiltering,
						},
					},
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("stereo: shader: %w", err)
	}

	// Captured pixels arrive as BGRA.
	s.texture, err = s.r.CreateTexture("Capture Texture", s.region.Width, s.region.Height, wgpu.TextureFormatBGRA8Unorm)
	if err != nil {
		return fmt.Errorf("stereo: %w", err)
	}

	// Zero staging data selects linear filtering and repeat addressing.
	s.sampler, err = s.r.CreateSampler("Capture Sampler", renderer.SamplerStagingData{})
	if err != nil {
		return fmt.Errorf("stereo: %w", err)
	}

	s.textureBinding, err = s.r.CreateBindGroup(s.pipeline, 1, "Capture Bind Group", []wgpu.BindGroupEntry{
		{Binding: 0, TextureView: s.texture.View()},
		{Binding: 1, Sampler: s.sampler},
	})
	if err != nil {
		return fmt.Errorf("stereo: %w", err)
	}

	return nil
}

// uniform builds the uniform block for a view index.
func (s *stereoRenderer) uniform(eye int) GPUStereoUniform {
	return GPUStereoUniform{
		Projection: s.projection,
		View:       s.view,
		Eye:        float32(eye),
		Aspect:     float32(s.region.Width) / float32(s.region.Height),
	}
}

// binding returns the uniform binding for a view index, creating it on first use.
func (s *stereoRenderer) binding(eye int) (*eyeBinding, error) {
	if b, ok := s.eyes[eye]; ok {
		return b, nil
	}

	u := s.uniform(eye)
	buf, err := s.r.CreateUniformBuffer(fmt.Sprintf("Stereo Uniform %d", eye), uint64(u.Size()))
	if err != nil {
		return nil, fmt.Errorf("stereo: %w", err)
	}
	bg, err := s.r.CreateBindGroup(s.pipeline, 0, fmt.Sprintf("Stereo Bind Group %d", eye), []wgpu.BindGroupEntry{
		{Binding: 0, Buffer: buf, Offset: 0, Size: wgpu.WholeSize},
	})
	if err != nil {
		buf.Release()
		return nil, fmt.Errorf("stereo: %w", err)
	}
	s.r.WriteBuffer(buf, 0, u.Marshal())

	b := &eyeBinding{buffer: buf, bindGroup: bg}
	s.eyes[eye] = b
	return b, nil
}

func (s *stereoRenderer) Upload(frame capture.Frame) error {
	if frame.Width != s.region.Width || frame.Height != s.region.Height {
		return fmt.Errorf("stereo: frame is %dx%d, texture is %dx%d", frame.Width, frame.Height, s.region.Width, s.region.Height)
	}
	if err := s.r.WriteTexture(s.texture, frame.Pix); err != nil {
		return fmt.Errorf("stereo: upload: %w", err)
	}
	return nil
}

func (s *stereoRenderer) RenderView(eye int, target *renderer.ViewTarget) error {
	b, err := s.binding(eye)
	if err != nil {
		return err
	}

	if err := s.r.BeginViewPass(target); err != nil {
		return fmt.Errorf("stereo: view %d: %w", eye, err)
	}
	if err := s.r.Draw(s.pipeline, []*wgpu.BindGroup{b.bindGroup, s.textureBinding}, QuadVertexCount); err != nil {
		_ = s.r.EndViewPass()
		return fmt.Errorf("stereo: view %d: %w", eye, err)
	}
	if err := s.r.EndViewPass(); err != nil {
		return fmt.Errorf("stereo: view %d: %w", eye, err)
	}
	return nil
}

func (s *stereoRenderer) SetProjection(m [16]float32) {
	s.projection = m
	s.rewriteUniforms()
}

func (s *stereoRenderer) SetView(m [16]float32) {
	s.view = m
	s.rewriteUniforms()
}

func (s *stereoRenderer) rewriteUniforms() {
	for eye, b := range s.eyes {
		u := s.uniform(eye)
		s.r.WriteBuffer(b.buffer, 0, u.Marshal())
	}
}

func (s *stereoRenderer) Region() capture.Region {
	return s.region
}

func (s *stereoRenderer) Release() {
	for eye, b := range s.eyes {
		if b.bindGroup != nil {
			b.bindGroup.Release()
		}
		if b.buffer != nil {
			b.buffer.Release()
		}
		delete(s.eyes, eye)
	}
	if s.textureBinding != nil {
		s.textureBinding.Release()
		s.textureBinding = nil
	}
	if s.sampler != nil {
		s.sampler.Release()
		s.sampler = nil
	}
	s.texture.Release()
	s.texture = nil
}
