package capture

import (
	"fmt"
	"image"
	"image/png"
	"os"
)

// SavePNG writes a BGRA frame to path as a PNG image.
//
// Parameters:
//   - frame: the frame to save
//   - path: destination file path
//
// Returns:
//   - error: error if the file could not be written
func SavePNG(frame Frame, path string) error {
	img := image.NewRGBA(image.Rect(0, 0, frame.Width, frame.Height))
	stride := frame.Stride()
	for y := 0; y < frame.Height; y++ {
		in := frame.Pix[y*stride : (y+1)*stride]
		out := img.Pix[y*img.Stride : y*img.Stride+stride]
		for i := 0; i < stride; i += BytesPerPixel {
			out[i+0] = in[i+2]
			out[i+1] = in[i+1]
			out[i+2] = in[i+0]
			out[i+3] = in[i+3]
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("capture: snapshot: %w", err)
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("capture: snapshot: %w", err)
	}
	return f.Close()
}
