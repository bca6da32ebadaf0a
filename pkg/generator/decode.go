// decode.go - Template image decoding into an editable buffer.
package generator

import (
	"fmt"
	"image"
	"image/draw"
	"os"
)

// DecodeFile reads an image file and returns it as an RGBA buffer with its
// origin at (0, 0), together with the format it was stored in.
func DecodeFile(path string) (*image.RGBA, Format, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, "", fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	src, name, err := image.Decode(f)
	if err != nil {
		return nil, "", fmt.Errorf("decode %s: %w", path, err)
	}

	format, err := FormatFor("." + name)
	if err != nil {
		return nil, "", fmt.Errorf("decode %s: %w", path, err)
	}
	return ToRGBA(src), format, nil
}

// ToRGBA copies img into a fresh RGBA buffer whose bounds start at (0, 0).
func ToRGBA(img image.Image) *image.RGBA {
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return dst
}
