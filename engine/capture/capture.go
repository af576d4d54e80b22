// Package capture grabs a fixed rectangle of the primary display and converts it into the
// tightly packed BGRA layout the GPU texture expects.
package capture

import (
	"errors"
	"fmt"
	"image"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/kbinani/screenshot"
)

// BytesPerPixel is the size of one BGRA pixel.
const BytesPerPixel = 4

var (
	// ErrEmptyRegion is returned when the capture region has no area.
	ErrEmptyRegion = errors.New("capture: region must have a positive width and height")

	// ErrClosed is returned by Grab after Close.
	ErrClosed = errors.New("capture: capturer is closed")
)

// Region is a screen rectangle in pixels, anchored at its top-left corner.
type Region struct {
	Top    int `toml:"top"`
	Left   int `toml:"left"`
	Width  int `toml:"width"`
	Height int `toml:"height"`
}

// DefaultRegion returns the 1920x1080 rectangle at the screen origin.
//
// Returns:
//   - Region: the default capture region
func DefaultRegion() Region {
	return Region{Top: 0, Left: 0, Width: 1920, Height: 1080}
}

// Rect converts the region into an image rectangle.
//
// Returns:
//   - image.Rectangle: the rectangle in screen coordinates
func (r Region) Rect() image.Rectangle {
	return image.Rect(r.Left, r.Top, r.Left+r.Width, r.Top+r.Height)
}

// Validate reports whether the region has a positive area.
//
// Returns:
//   - error: ErrEmptyRegion if width or height is not positive
func (r Region) Validate() error {
	if r.Width <= 0 || r.Height <= 0 {
		return fmt.Errorf("%w: %dx%d", ErrEmptyRegion, r.Width, r.Height)
	}
	return nil
}

// Frame is one captured image in BGRA byte order with no row padding.
// Pix is owned by the Capturer and is overwritten by the next Grab.
type Frame struct {
	Pix    []byte
	Width  int
	Height int
}

// Stride returns the number of bytes per row.
func (f Frame) Stride() int {
	return f.Width * BytesPerPixel
}

// GrabFunc captures the given screen rectangle.
type GrabFunc func(rect image.Rectangle) (*image.RGBA, error)

// Capturer produces frames of a fixed screen region.
type Capturer interface {
	// Grab captures the region and returns it as a BGRA frame.
	// The returned Pix buffer is reused by subsequent calls.
	//
	// Returns:
	//   - Frame: the captured frame
	//   - error: error if the screen could not be captured
	Grab() (Frame, error)

	// Region returns the captured rectangle.
	//
	// Returns:
	//   - Region: the capture region
	Region() Region

	// Close stops the conversion workers. Calling it again has no effect.
	//
	// Returns:
	//   - error: always nil
	Close() error
}

// screenCapturer is the implementation of the Capturer interface.
type screenCapturer struct {
	// region is the captured screen rectangle.
	region Region

	// grab takes the raw RGBA screenshot. Defaults to screenshot.CaptureRect.
	grab GrabFunc

	// workers is the number of row bands converted in parallel.
	workers int

	// pools run the per-band RGBA to BGRA conversion, one single-worker pool per band.
	// A pool's Stop signal can only be consumed by its own worker.
	pools []worker.DynamicWorkerPool

	mu     sync.Mutex
	closed bool

	// buf is the reused BGRA output buffer.
	buf []byte
}

var _ Capturer = &screenCapturer{}

// NewCapturer creates a Capturer for the configured region.
//
// Parameters:
//   - options: functional options to configure the capturer
//
// Returns:
//   - Capturer: the configured capturer
//   - error: ErrEmptyRegion if the region has no area
func NewCapturer(options ...CapturerBuilderOption) (Capturer, error) {
	c := &screenCapturer{
		region:  DefaultRegion(),
		grab:    screenshot.CaptureRect,
		workers: 4,
	}
	for _, opt := range options {
		opt(c)
	}
	if err := c.region.Validate(); err != nil {
		return nil, err
	}
	if c.workers < 1 {
		c.workers = 1
	}

	c.buf = make([]byte, c.region.Width*c.region.Height*BytesPerPixel)
	c.pools = make([]worker.DynamicWorkerPool, c.workers)
	for i := range c.pools {
		c.pools[i] = worker.NewDynamicWorkerPool(1, 1, 1*time.Second)
	}
	return c, nil
}

func (c *screenCapturer) Grab() (Frame, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return Frame{}, ErrClosed
	}

	img, err := c.grab(c.region.Rect())
	if err != nil {
		return Frame{}, fmt.Errorf("capture: grab %v: %w", c.region.Rect(), err)
	}
	if b := img.Bounds(); b.Dx() != c.region.Width || b.Dy() != c.region.Height {
		return Frame{}, fmt.Errorf("capture: got %dx%d image, want %dx%d", b.Dx(), b.Dy(), c.region.Width, c.region.Height)
	}

	c.convert(img)
	return Frame{Pix: c.buf, Width: c.region.Width, Height: c.region.Height}, nil
}

// convert splits the image into row bands and swizzles each band on its worker.
// The WaitGroup is the per-frame barrier; pool.Wait would block until workers idle out.
func (c *screenCapturer) convert(img *image.RGBA) {
	height := c.region.Height
	band := (height + c.workers - 1) / c.workers

	var wg sync.WaitGroup
	for id, y0 := 0, 0; y0 < height; id, y0 = id+1, y0+band {
		y1 := min(y0+band, height)
		wg.Add(1)
		c.pools[id].SubmitTask(worker.Task{
			ID: id,
			Do: func() (any, error) {
				defer wg.Done()
				rgbaToBGRA(c.buf, img, c.region.Width, y0, y1)
				return nil, nil
			},
		})
	}
	wg.Wait()
}

func (c *screenCapturer) Region() Region {
	return c.region
}

func (c *screenCapturer) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	for _, p := range c.pools {
		p.Stop()
	}
	return nil
}

// rgbaToBGRA writes rows [y0, y1) of src into dst as packed BGRA.
// Alpha is forced opaque.
func rgbaToBGRA(dst []byte, src *image.RGBA, width, y0, y1 int) {
	rowBytes := width * BytesPerPixel
	for y := y0; y < y1; y++ {
		in := src.Pix[y*src.Stride : y*src.Stride+rowBytes]
		out := dst[y*rowBytes : (y+1)*rowBytes]
		for i := 0; i < rowBytes; i += BytesPerPixel {
			out[i+0] = in[i+2]
			out[i+1] = in[i+1]
			out[i+2] = in[i+0]
			out[i+3] = 0xFF
		}
	}
}
