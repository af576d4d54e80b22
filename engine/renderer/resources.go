package renderer

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
)

// Texture is a GPU texture together with its default view.
type Texture struct {
	texture *wgpu.Texture
	view    *wgpu.TextureView
	width   int
	height  int
	format  wgpu.TextureFormat
}

// View returns the texture's default view for binding or rendering.
func (t *Texture) View() *wgpu.TextureView {
	return t.view
}

// Width returns the texture width in texels.
func (t *Texture) Width() int {
	return t.width
}

// Height returns the texture height in texels.
func (t *Texture) Height() int {
	return t.height
}

// Format returns the texel format.
func (t *Texture) Format() wgpu.TextureFormat {
	return t.format
}

// Release frees the view and the texture. Safe to call on a nil or released texture.
func (t *Texture) Release() {
	if t == nil {
		return
	}
	if t.view != nil {
		t.view.Release()
		t.view = nil
	}
	if t.texture != nil {
		t.texture.Release()
		t.texture = nil
	}
}

// ViewTarget is the per-view render destination: a color image the stereo pass draws into and
// its depth buffer. It plays the role of one XR swapchain image.
type ViewTarget struct {
	color *Texture
	depth *Texture
}

// Color returns the color attachment.
func (v *ViewTarget) Color() *Texture {
	return v.color
}

// Width returns the target width in pixels.
func (v *ViewTarget) Width() int {
	return v.color.width
}

// Height returns the target height in pixels.
func (v *ViewTarget) Height() int {
	return v.color.height
}

// Release frees both attachments.
func (v *ViewTarget) Release() {
	if v == nil {
		return
	}
	v.color.Release()
	v.depth.Release()
}

// PipelineDescriptor describes a render pipeline built from a single WGSL module.
type PipelineDescriptor struct {
	// Label names the pipeline and its GPU objects.
	Label string

	// Source is the WGSL module containing both entry points.
	Source string

	// VertexEntryPoint and FragmentEntryPoint name the shader stages in Source.
	VertexEntryPoint   string
	FragmentEntryPoint string

	// BindGroupLayouts lists the layout for each bind group index, in order.
	BindGroupLayouts []wgpu.BindGroupLayoutDescriptor
}

// Pipeline is a created render pipeline and the bind group layouts it was built with.
type Pipeline struct {
	label    string
	pipeline *wgpu.RenderPipeline
	layouts  []*wgpu.BindGroupLayout
}

// Label returns the pipeline label.
func (p *Pipeline) Label() string {
	return p.label
}

// Layout returns the bind group layout at the given group index, or nil if out of range.
func (p *Pipeline) Layout(group int) *wgpu.BindGroupLayout {
	if group < 0 || group >= len(p.layouts) {
		return nil
	}
	return p.layouts[group]
}

// Release frees the pipeline and its layouts.
func (p *Pipeline) Release() {
	if p == nil {
		return
	}
	if p.pipeline != nil {
		p.pipeline.Release()
		p.pipeline = nil
	}
	for _, l := range p.layouts {
		if l != nil {
			l.Release()
		}
	}
	p.layouts = nil
}

// uploadLayout validates a full-image upload and returns the copy layout and extent for it.
func uploadLayout(pixelBytes, width, height int) (wgpu.TextureDataLayout, wgpu.Extent3D, error) {
	if width <= 0 || height <= 0 || pixelBytes != width*height*BytesPerPixel {
		return wgpu.TextureDataLayout{}, wgpu.Extent3D{}, fmt.Errorf("%w: %d bytes for %dx%d", ErrTextureSize, pixelBytes, width, height)
	}
	return wgpu.TextureDataLayout{
			Offset:       0,
			BytesPerRow:  uint32(width * BytesPerPixel),
			RowsPerImage: uint32(height),
		}, wgpu.Extent3D{
			Width:              uint32(width),
			Height:             uint32(height),
			DepthOrArrayLayers: 1,
		}, nil
}

// copyRegion is one view target's placement on the mirror surface.
type copyRegion struct {
	index         int
	x             uint32
	width, height uint32
}

// mirrorLayout places targets left to right on a surface, clipping each to the surface bounds.
// Targets that start beyond the right edge are dropped.
func mirrorLayout(surfaceWidth, surfaceHeight int, sizes [][2]int) []copyRegion {
	regions := make([]copyRegion, 0, len(sizes))
	x := 0
	for i, s := range sizes {
		if x >= surfaceWidth {
			break
		}
		w := min(s[0], surfaceWidth-x)
		h := min(s[1], surfaceHeight)
		if w > 0 && h > 0 {
			regions = append(regions, copyRegion{index: i, x: uint32(x), width: uint32(w), height: uint32(h)})
		}
		x += s[0]
	}
	return regions
}

// pickSurfaceFormat prefers a linear 8-bit format so captured pixels are presented unchanged.
func pickSurfaceFormat(formats []wgpu.TextureFormat) wgpu.TextureFormat {
	for _, f := range formats {
		if f == wgpu.TextureFormatBGRA8Unorm || f == wgpu.TextureFormatRGBA8Unorm {
			return f
		}
	}
	if len(formats) == 0 {
		return wgpu.TextureFormatBGRA8Unorm
	}
	return formats[0]
}
