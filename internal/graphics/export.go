package graphics

import (
	"fmt"
	"image"
	"image/png"
	"os"

	"github.com/go-gl/gl/v4.1-core/gl"
)

// SaveFrame reads back the current color buffer and writes it to path as
// PNG. GL returns rows bottom-up, so the image is flipped while copying.
func SaveFrame(path string, width, height int) error {
	raw := make([]byte, width*height*4)
	gl.ReadPixels(0, 0, int32(width), int32(height), gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(raw))

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	stride := width * 4
	for y := 0; y < height; y++ {
		src := raw[(height-1-y)*stride : (height-y)*stride]
		copy(img.Pix[y*img.Stride:], src)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create frame file: %w", err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		return fmt.Errorf("encode frame: %w", err)
	}
	return nil
}
