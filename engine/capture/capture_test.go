package capture

import (
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"
)

// gradient builds an RGBA image whose pixel (x, y) is (x, y, x+y, 128).
// The image is created with extra stride to exercise padded rows.
func gradient(rect image.Rectangle) *image.RGBA {
	w, h := rect.Dx(), rect.Dy()
	stride := (w + 3) * 4
	img := &image.RGBA{
		Pix:    make([]byte, stride*h),
		Stride: stride,
		Rect:   rect,
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(rect.Min.X+x, rect.Min.Y+y, color.RGBA{uint8(x), uint8(y), uint8(x + y), 128})
		}
	}
	return img
}

func TestGrabConvertsToBGRA(t *testing.T) {
	region := Region{Top: 10, Left: 20, Width: 7, Height: 5}
	var requested image.Rectangle
	c, err := NewCapturer(
		WithRegion(region),
		WithWorkers(3),
		WithGrabFunc(func(rect image.Rectangle) (*image.RGBA, error) {
			requested = rect
			return gradient(rect), nil
		}),
	)
	if err != nil {
		t.Fatalf("NewCapturer failed: %v", err)
	}
	defer c.Close()

	f, err := c.Grab()
	if err != nil {
		t.Fatalf("Grab failed: %v", err)
	}
	if requested != image.Rect(20, 10, 27, 15) {
		t.Fatalf("requested rect %v", requested)
	}
	if f.Width != 7 || f.Height != 5 || len(f.Pix) != 7*5*4 {
		t.Fatalf("frame %dx%d with %d bytes", f.Width, f.Height, len(f.Pix))
	}
	for y := 0; y < f.Height; y++ {
		for x := 0; x < f.Width; x++ {
			px := f.Pix[y*f.Stride()+x*4:]
			want := [4]byte{uint8(x + y), uint8(y), uint8(x), 0xFF}
			if got := [4]byte(px[:4]); got != want {
				t.Fatalf("pixel (%d,%d) = %v, want %v", x, y, got, want)
			}
		}
	}
}

func TestGrabReusesBuffer(t *testing.T) {
	c, err := NewCapturer(
		WithRegion(Region{Width: 4, Height: 4}),
		WithGrabFunc(func(rect image.Rectangle) (*image.RGBA, error) { return gradient(rect), nil }),
	)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()
	a, _ := c.Grab()
	b, _ := c.Grab()
	if &a.Pix[0] != &b.Pix[0] {
		t.Fatalf("expected the BGRA buffer to be reused between frames")
	}
}

func TestGrabErrors(t *testing.T) {
	boom := errors.New("display gone")
	tests := []struct {
		name string
		grab GrabFunc
		want error
	}{
		{
			name: "grab failure is wrapped",
			grab: func(image.Rectangle) (*image.RGBA, error) { return nil, boom },
			want: boom,
		},
		{
			name: "size mismatch",
			grab: func(image.Rectangle) (*image.RGBA, error) {
				return image.NewRGBA(image.Rect(0, 0, 1, 1)), nil
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := NewCapturer(WithRegion(Region{Width: 8, Height: 8}), WithGrabFunc(tt.grab))
			if err != nil {
				t.Fatal(err)
			}
			defer c.Close()
			_, err = c.Grab()
			if err == nil {
				t.Fatalf("expected an error")
			}
			if tt.want != nil && !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestCloseStopsWorkers(t *testing.T) {
	before := runtime.NumGoroutine()

	for range 10 {
		c, err := NewCapturer(
			WithRegion(Region{Width: 16, Height: 16}),
			WithWorkers(4),
			WithGrabFunc(func(rect image.Rectangle) (*image.RGBA, error) {
				return gradient(rect), nil
			}),
		)
		if err != nil {
			t.Fatalf("NewCapturer failed: %v", err)
		}
		if _, err := c.Grab(); err != nil {
			t.Fatalf("Grab failed: %v", err)
		}
		if err := c.Close(); err != nil {
			t.Fatalf("Close failed: %v", err)
		}
		if err := c.Close(); err != nil {
			t.Fatalf("second Close failed: %v", err)
		}
		if _, err := c.Grab(); !errors.Is(err, ErrClosed) {
			t.Fatalf("Grab after Close = %v, want ErrClosed", err)
		}
	}

	deadline := time.Now().Add(2 * time.Second)
	for runtime.NumGoroutine() > before {
		if time.Now().After(deadline) {
			t.Fatalf("goroutines = %d after Close, started with %d", runtime.NumGoroutine(), before)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestRegionValidation(t *testing.T) {
	for _, r := range []Region{{Width: 0, Height: 10}, {Width: 10, Height: -1}} {
		if _, err := NewCapturer(WithRegion(r)); !errors.Is(err, ErrEmptyRegion) {
			t.Fatalf("region %+v: err = %v, want ErrEmptyRegion", r, err)
		}
	}
	if d := DefaultRegion(); d != (Region{0, 0, 1920, 1080}) {
		t.Fatalf("DefaultRegion() = %+v", d)
	}
}

func TestSavePNG(t *testing.T) {
	frame := Frame{Pix: []byte{
		0x10, 0x20, 0x30, 0xFF, 0x01, 0x02, 0x03, 0xFF,
	}, Width: 2, Height: 1}
	path := filepath.Join(t.TempDir(), "snap.png")
	if err := SavePNG(frame, path); err != nil {
		t.Fatalf("SavePNG failed: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	r, g, b, _ := img.At(0, 0).RGBA()
	if r>>8 != 0x30 || g>>8 != 0x20 || b>>8 != 0x10 {
		t.Fatalf("pixel 0 = %x %x %x, want 30 20 10", r>>8, g>>8, b>>8)
	}
}
