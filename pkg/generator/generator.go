// Package generator encodes filled documents.
//
// A document is always written back in its template's own format: the
// format is inferred from the template file extension and the rendered
// image is encoded as PNG, JPEG or BMP accordingly.
package generator

import (
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/bmp"
)

// Format identifies an image encoding.
type Format string

const (
	PNG  Format = "png"
	JPEG Format = "jpeg"
	BMP  Format = "bmp"
)

// JPEGQuality is the quality used for JPEG output.
const JPEGQuality = 95

// FormatFor infers the format from a file name extension:
//   - ".png" → PNG
//   - ".jpg", ".jpeg" → JPEG
//   - ".bmp" → BMP
func FormatFor(name string) (Format, error) {
	switch ext := strings.ToLower(filepath.Ext(name)); ext {
	case ".png":
		return PNG, nil
	case ".jpg", ".jpeg":
		return JPEG, nil
	case ".bmp":
		return BMP, nil
	default:
		return "", fmt.Errorf("unsupported format %q: use .png, .jpg, .jpeg or .bmp", ext)
	}
}

// Encode writes img to w in the given format.
func Encode(w io.Writer, img image.Image, f Format) error {
	switch f {
	case PNG:
		return png.Encode(w, img)
	case JPEG:
		return jpeg.Encode(w, img, &jpeg.Options{Quality: JPEGQuality})
	case BMP:
		return bmp.Encode(w, img)
	default:
		return fmt.Errorf("unsupported format %q", f)
	}
}

// Generate encodes img to output, creating parent directories as needed.
// The file is written under a temporary name and renamed into place, so a
// failed encode never leaves a truncated document behind.
func Generate(output string, img image.Image, f Format) error {
	dir := filepath.Dir(output)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(output)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create %s: %w", output, err)
	}
	tmpPath := tmp.Name()

	if err := Encode(tmp, img, f); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("encode %s: %w", strings.ToUpper(string(f)), err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("write %s: %w", output, err)
	}
	if err := os.Rename(tmpPath, output); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename %s: %w", output, err)
	}
	return nil
}
