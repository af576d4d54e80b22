package renderer

import (
	"fmt"
	"runtime"
	"sync"

	"github.com/Carmen-Shannon/oxy-xr/common"
	"github.com/cogentcore/webgpu/wgpu"
)

type wgpuRendererBackendImpl struct {
	mu     *sync.Mutex
	device *wgpu.Device
	queue  *wgpu.Queue

	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	surface  *wgpu.Surface

	surfaceFormat wgpu.TextureFormat
	surfaceWidth  int
	surfaceHeight int

	presentMode wgpu.PresentMode // defaults to PresentModeFifo (VSync)

	// View pass state; one pass records at a time.
	passEncoder *wgpu.CommandEncoder
	pass        *wgpu.RenderPassEncoder

	// Mirror state between Mirror and Present.
	frameSurface *wgpu.Texture
}

type wgpuRendererBackend interface {
	// ConfigureSurface (re)configures the mirror surface for a new size.
	//
	// Parameters:
	//   - width: the new width of the surface in pixels
	//   - height: the new height of the surface in pixels
	ConfigureSurface(width, height int)

	// SetPresentMode sets the surface present mode. Takes effect on the next ConfigureSurface.
	//
	// Parameters:
	//   - mode: the PresentMode to use
	SetPresentMode(mode PresentMode)

	// SurfaceFormat returns the color format shared by the mirror surface and every view target.
	//
	// Returns:
	//   - wgpu.TextureFormat: the color format
	SurfaceFormat() wgpu.TextureFormat

	// CreateTexture creates a sampled, copy-destination color texture.
	//
	// Parameters:
	//   - label: debug label
	//   - width, height: size in texels
	//   - format: the texel format
	//
	// Returns:
	//   - *Texture: the created texture and view
	//   - error: error if creation fails
	CreateTexture(label string, width, height int, format wgpu.TextureFormat) (*Texture, error)

	// WriteTexture replaces the whole texture with pix.
	//
	// Parameters:
	//   - tex: destination texture
	//   - pix: tightly packed texel data, exactly width*height*4 bytes
	//
	// Returns:
	//   - error: ErrTextureSize if pix does not cover the texture
	WriteTexture(tex *Texture, pix []byte) error

	// CreateSampler creates a sampler, filling zero fields with linear filtering and repeat addressing.
	//
	// Parameters:
	//   - label: debug label
	//   - stagingData: the sampler configuration
	//
	// Returns:
	//   - *wgpu.Sampler: the created sampler
	//   - error: error if creation fails
	CreateSampler(label string, stagingData SamplerStagingData) (*wgpu.Sampler, error)

	// CreateUniformBuffer creates a uniform buffer that can be written with WriteBuffer.
	//
	// Parameters:
	//   - label: debug label
	//   - size: size in bytes
	//
	// Returns:
	//   - *wgpu.Buffer: the created buffer
	//   - error: error if creation fails
	CreateUniformBuffer(label string, size uint64) (*wgpu.Buffer, error)

	// WriteBuffer queues a write of data into buf at offset.
	//
	// Parameters:
	//   - buf: destination buffer
	//   - offset: byte offset into buf
	//   - data: bytes to write
	WriteBuffer(buf *wgpu.Buffer, offset uint64, data []byte)

	// CreateRenderPipeline compiles desc.Source and builds a render pipeline targeting view targets.
	//
	// Parameters:
	//   - desc: the pipeline description
	//
	// Returns:
	//   - *Pipeline: the created pipeline
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
	//   - error: error if the group index is invalid or creation fails
	CreateBindGroup(p *Pipeline, group int, label string, entries []wgpu.BindGroupEntry) (*wgpu.BindGroup, error)

	// CreateViewTarget allocates a color and depth attachment pair for one view.
	//
	// Parameters:
	//   - width, height: size in pixels
	//
	// Returns:
	//   - *ViewTarget: the created target
	//   - error: error if creation fails
	CreateViewTarget(width, height int) (*ViewTarget, error)

	// BeginViewPass begins a render pass into target, clearing color to (0.2, 0.2, 0.2, 1) and depth to 1.
	//
	// Parameters:
	//   - target: the view target to render into
	//
	// Returns:
	//   - error: ErrPassActive if a pass is already recording, or an encoder error
	BeginViewPass(target *ViewTarget) error

	// Draw records a non-indexed draw in the active view pass.
	//
	// Parameters:
	//   - p: the pipeline to draw with
	//   - bindGroups: bind groups set at indexes 0..n-1
	//   - vertexCount: number of vertices
	//
	// Returns:
	//   - error: ErrNoPass if no pass is active
	Draw(p *Pipeline, bindGroups []*wgpu.BindGroup, vertexCount uint32) error

	// EndViewPass ends the active view pass and submits it.
	//
	// Returns:
	//   - error: ErrNoPass if no pass is active, or a submission error
	EndViewPass() error

	// Mirror clears the mirror surface and copies each target onto it side by side.
	//
	// Parameters:
	//   - targets: the view targets in left to right order
	//
	// Returns:
	//   - error: error if the surface texture could not be acquired
	Mirror(targets []*ViewTarget) error

	// Present presents the mirrored surface. With PresentModeVSync this blocks until the next vblank.
	Present()

	// Release frees the device, surface and instance.
	Release()
}

var _ RendererBackend = &wgpuRendererBackendImpl{}

func newWGPURendererBackend(surfaceDescriptor *wgpu.SurfaceDescriptor, forceFallbackAdapter bool) (wgpuRendererBackend, error) {
	runtime.LockOSThread()
	b := &wgpuRendererBackendImpl{
		mu:          &sync.Mutex{},
		instance:    wgpu.CreateInstance(nil),
		presentMode: wgpu.PresentModeFifo,
	}
	b.surface = b.instance.CreateSurface(surfaceDescriptor)

	a, err := b.instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		ForceFallbackAdapter: forceFallbackAdapter,
		CompatibleSurface:    b.surface,
	})
	if err != nil {
		return nil, fmt.Errorf("request adapter: %w", err)
	}
	b.adapter = a

	d, err := a.RequestDevice(&wgpu.DeviceDescriptor{
		Label: "XR Mirror Device",
	})
	if err != nil {
		return nil, fmt.Errorf("request device: %w", err)
	}
	b.device = d
	b.queue = d.GetQueue()

	return b, nil
}

func (b *wgpuRendererBackendImpl) ConfigureSurface(width, height int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	capabilities := b.surface.GetCapabilities(b.adapter)
	b.surfaceFormat = pickSurfaceFormat(capabilities.Formats)
	b.surfaceWidth = width
	b.surfaceHeight = height

	// CopyDst lets Mirror copy view targets straight onto the swapchain image.
	b.surface.Configure(b.adapter, b.device, &wgpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsageRenderAttachment | wgpu.TextureUsageCopyDst,
		Format:      b.surfaceFormat,
		Width:       uint32(width),
		Height:      uint32(height),
		PresentMode: b.presentMode,
		AlphaMode:   capabilities.AlphaModes[0],
	})
}

func (b *wgpuRendererBackendImpl) SetPresentMode(mode PresentMode) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch mode {
	case PresentModeUncapped:
		b.presentMode = wgpu.PresentModeImmediate
	case PresentModeVSync:
		fallthrough
	default:
		b.presentMode = wgpu.PresentModeFifo
	}
}

func (b *wgpuRendererBackendImpl) SurfaceFormat() wgpu.TextureFormat {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.surfaceFormat
}

func (b *wgpuRendererBackendImpl) CreateTexture(label string, width, height int, format wgpu.TextureFormat) (*Texture, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.createTexture(label, width, height, format, wgpu.TextureUsageTextureBinding|wgpu.TextureUsageCopyDst)
}

// createTexture must be called with b.mu held.
func (b *wgpuRendererBackendImpl) createTexture(label string, width, height int, format wgpu.TextureFormat, usage wgpu.TextureUsage) (*Texture, error) {
	tex, err := b.device.CreateTexture(&wgpu.TextureDescriptor{
		Label:     label,
		Usage:     usage,
		Dimension: wgpu.TextureDimension2D,
		Size: wgpu.Extent3D{
			Width:              uint32(width),
			Height:             uint32(height),
			DepthOrArrayLayers: 1,
		},
		Format:        format,
		MipLevelCount: 1,
		SampleCount:   1,
	})
	if err != nil {
		return nil, fmt.Errorf("create texture %q: %w", label, err)
	}

	view, err := tex.CreateView(nil)
	if err != nil {
		tex.Release()
		return nil, fmt.Errorf("create view for %q: %w", label, err)
	}

	return &Texture{texture: tex, view: view, width: width, height: height, format: format}, nil
}

func (b *wgpuRendererBackendImpl) WriteTexture(tex *Texture, pix []byte) error {
	layout, extent, err := uploadLayout(len(pix), tex.width, tex.height)
	if err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.queue.WriteTexture(
		&wgpu.ImageCopyTexture{
			Texture:  tex.texture,
			MipLevel: 0,
			Origin:   wgpu.Origin3D{},
			Aspect:   wgpu.TextureAspectAll,
		},
		pix,
		&layout,
		&extent,
	)
	return nil
}

func (b *wgpuRendererBackendImpl) CreateSampler(label string, stagingData SamplerStagingData) (*wgpu.Sampler, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	samp, err := b.device.CreateSampler(&wgpu.SamplerDescriptor{
		Label:         label,
		AddressModeU:  common.Coalesce(stagingData.AddressModeU, wgpu.AddressModeRepeat),
		AddressModeV:  common.Coalesce(stagingData.AddressModeV, wgpu.AddressModeRepeat),
		AddressModeW:  common.Coalesce(stagingData.AddressModeW, wgpu.AddressModeRepeat),
		MagFilter:     common.Coalesce(stagingData.MagFilter, wgpu.FilterModeLinear),
		MinFilter:     common.Coalesce(stagingData.MinFilter, wgpu.FilterModeLinear),
		MipmapFilter:  common.Coalesce(stagingData.MipmapFilter, wgpu.MipmapFilterModeLinear),
		LodMinClamp:   common.Coalesce(stagingData.LodMinClamp, 0.0),
		LodMaxClamp:   common.Coalesce(stagingData.LodMaxClamp, 32.0),
		MaxAnisotropy: common.Coalesce(stagingData.MaxAnisotropy, 1),
	})
	if err != nil {
		return nil, fmt.Errorf("create sampler %q: %w", label, err)
	}
	return samp, nil
}

func (b *wgpuRendererBackendImpl) CreateUniformBuffer(label string, size uint64) (*wgpu.Buffer, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	buf, err := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label:            label,
		Size:             size,
		Usage:            wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
		MappedAtCreation: false,
	})
	if err != nil {
		return nil, fmt.Errorf("create buffer %q: %w", label, err)
	}
	return buf, nil
}

func (b *wgpuRendererBackendImpl) WriteBuffer(buf *wgpu.Buffer, offset uint64, data []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.queue.WriteBuffer(buf, offset, data)
}

func (b *wgpuRendererBackendImpl) CreateRenderPipeline(desc PipelineDescriptor) (*Pipeline, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	module, err := b.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label: desc.Label + " Shader",
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{
			Code: desc.Source,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("compile %q: %w", desc.Label, err)
	}
	defer module.Release()

	p := &Pipeline{label: desc.Label}
	for g := range desc.BindGroupLayouts {
		layout, layoutErr := b.device.CreateBindGroupLayout(&desc.BindGroupLayouts[g])
		if layoutErr != nil {
			p.Release()
			return nil, fmt.Errorf("failed to create bind group layout for group %d: %w", g, layoutErr)
		}
		p.layouts = append(p.layouts, layout)
	}

	pipelineLayout, err := b.device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            desc.Label,
		BindGroupLayouts: p.layouts,
	})
	if err != nil {
		p.Release()
		return nil, err
	}
	defer pipelineLayout.Release()

	created, err := b.device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label:  desc.Label + " Render Pipeline",
		Layout: pipelineLayout,
		Vertex: wgpu.VertexState{
			Module:     module,
			EntryPoint: desc.VertexEntryPoint,
		},
		Fragment: &wgpu.FragmentState{
			Module:     module,
			EntryPoint: desc.FragmentEntryPoint,
			Targets: []wgpu.ColorTargetState{
				{
					Format:    b.surfaceFormat,
					WriteMask: wgpu.ColorWriteMaskAll,
				},
			},
		},
		Primitive: wgpu.PrimitiveState{
			Topology:  wgpu.PrimitiveTopologyTriangleList,
			FrontFace: wgpu.FrontFaceCCW,
			CullMode:  wgpu.CullModeNone,
		},
		Multisample: wgpu.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
		DepthStencil: &wgpu.DepthStencilState{
			Format:            DepthFormat,
			DepthWriteEnabled: true,
			DepthCompare:      wgpu.CompareFunctionLess,
			StencilFront: wgpu.StencilFaceState{
				Compare: wgpu.CompareFunctionAlways,
			},
			StencilBack: wgpu.StencilFaceState{
				Compare: wgpu.CompareFunctionAlways,
			},
		},
	})
	if err != nil {
		p.Release()
		return nil, fmt.Errorf("create pipeline %q: %w", desc.Label, err)
	}
	p.pipeline = created

	return p, nil
}

func (b *wgpuRendererBackendImpl) CreateBindGroup(p *Pipeline, group int, label string, entries []wgpu.BindGroupEntry) (*wgpu.BindGroup, error) {
	layout := p.Layout(group)
	if layout == nil {
		return nil, fmt.Errorf("pipeline %q has no bind group %d", p.label, group)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	bindGroup, err := b.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:   label,
		Layout:  layout,
		Entries: entries,
	})
	if err != nil {
		return nil, fmt.Errorf("create bind group %q: %w", label, err)
	}
	return bindGroup, nil
}

func (b *wgpuRendererBackendImpl) CreateViewTarget(width, height int) (*ViewTarget, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	color, err := b.createTexture("View Color", width, height, b.surfaceFormat,
		wgpu.TextureUsageRenderAttachment|wgpu.TextureUsageCopySrc|wgpu.TextureUsageTextureBinding)
	if err != nil {
		return nil, err
	}
	depth, err := b.createTexture("View Depth", width, height, DepthFormat, wgpu.TextureUsageRenderAttachment)
	if err != nil {
		color.Release()
		return nil, err
	}
	return &ViewTarget{color: color, depth: depth}, nil
}

func (b *wgpuRendererBackendImpl) BeginViewPass(target *ViewTarget) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.pass != nil {
		return ErrPassActive
	}

	encoder, err := b.device.CreateCommandEncoder(nil)
	if err != nil {
		return err
	}

	b.pass = encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		ColorAttachments: []wgpu.RenderPassColorAttachment{
			{
				View:    target.color.view,
				LoadOp:  wgpu.LoadOpClear,
				StoreOp: wgpu.StoreOpStore,
				ClearValue: wgpu.Color{
					R: 0.2, G: 0.2, B: 0.2, A: 1.0,
				},
			},
		},
		DepthStencilAttachment: &wgpu.RenderPassDepthStencilAttachment{
			View:            target.depth.view,
			DepthLoadOp:     wgpu.LoadOpClear,
			DepthStoreOp:    wgpu.StoreOpDiscard,
			DepthClearValue: 1.0,
		},
	})
	b.passEncoder = encoder
	return nil
}

func (b *wgpuRendererBackendImpl) Draw(p *Pipeline, bindGroups []*wgpu.BindGroup, vertexCount uint32) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.pass == nil {
		return ErrNoPass
	}

	b.pass.SetPipeline(p.pipeline)
	for i, bg := range bindGroups {
		b.pass.SetBindGroup(uint32(i), bg, nil)
	}
	b.pass.Draw(vertexCount, 1, 0, 0)
	return nil
}

func (b *wgpuRendererBackendImpl) EndViewPass() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.pass == nil {
		return ErrNoPass
	}

	b.pass.End()
	b.pass.Release()
	b.pass = nil

	encoder := b.passEncoder
	b.passEncoder = nil
	defer encoder.Release()

	commandBuffer, err := encoder.Finish(nil)
	if err != nil {
		return fmt.Errorf("finish view pass: %w", err)
	}
	defer commandBuffer.Release()

	b.queue.Submit(commandBuffer)
	return nil
}

func (b *wgpuRendererBackendImpl) Mirror(targets []*ViewTarget) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.frameSurface != nil {
		return fmt.Errorf("previous mirror frame not yet presented")
	}

	surfaceTexture, err := b.surface.GetCurrentTexture()
	if err != nil {
		return err
	}
	view, err := surfaceTexture.CreateView(nil)
	if err != nil {
		surfaceTexture.Release()
		return err
	}
	defer view.Release()

	encoder, err := b.device.CreateCommandEncoder(nil)
	if err != nil {
		surfaceTexture.Release()
		return err
	}
	defer encoder.Release()

	// Clear first so uncovered regions do not show stale swapchain contents.
	clearPass := encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		ColorAttachments: []wgpu.RenderPassColorAttachment{
			{
				View:       view,
				LoadOp:     wgpu.LoadOpClear,
				StoreOp:    wgpu.StoreOpStore,
				ClearValue: wgpu.Color{A: 1.0},
			},
		},
	})
	clearPass.End()
	clearPass.Release()

	sizes := make([][2]int, len(targets))
	for i, t := range targets {
		sizes[i] = [2]int{t.Width(), t.Height()}
	}
	for _, r := range mirrorLayout(b.surfaceWidth, b.surfaceHeight, sizes) {
		encoder.CopyTextureToTexture(
			&wgpu.ImageCopyTexture{
				Texture: targets[r.index].color.texture,
				Aspect:  wgpu.TextureAspectAll,
			},
			&wgpu.ImageCopyTexture{
				Texture: surfaceTexture,
				Origin:  wgpu.Origin3D{X: r.x},
				Aspect:  wgpu.TextureAspectAll,
			},
			&wgpu.Extent3D{
				Width:              r.width,
				Height:             r.height,
				DepthOrArrayLayers: 1,
			},
		)
	}

	commandBuffer, err := encoder.Finish(nil)
	if err != nil {
		surfaceTexture.Release()
		return fmt.Errorf("finish mirror: %w", err)
	}
	defer commandBuffer.Release()

	b.queue.Submit(commandBuffer)
	b.frameSurface = surfaceTexture
	return nil
}

func (b *wgpuRendererBackendImpl) Present() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.frameSurface == nil {
		return
	}

	b.surface.Present()
	b.frameSurface.Release()
	b.frameSurface = nil
}

func (b *wgpuRendererBackendImpl) Release() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.frameSurface != nil {
		b.frameSurface.Release()
		b.frameSurface = nil
	}
	if b.queue != nil {
		b.queue.Release()
		b.queue = nil
	}
	if b.device != nil {
		b.device.Release()
		b.device = nil
	}
	if b.adapter != nil {
		b.adapter.Release()
		b.adapter = nil
	}
	if b.surface != nil {
		b.surface.Release()
		b.surface = nil
	}
	if b.instance != nil {
		b.instance.Release()
		b.instance = nil
	}
}
