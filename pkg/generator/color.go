// color.go - Colour parsing for field text and solid image creation.
package generator

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"strconv"
	"strings"

	"golang.org/x/image/colornames"
)

// DefaultTextColor is used when a field spec carries no colour.
const DefaultTextColor = "#000000"

// Black is opaque black; returned when a colour cannot be parsed.
var Black = color.RGBA{A: 255}

// ParseColor parses an SVG colour name ("red", "Navy") or "#rgb", "#rrggbb"
// or "#rrggbbaa" (the leading '#' is optional). An empty string is the
// default text colour.
func ParseColor(s string) (color.RGBA, error) {
	s = strings.TrimSpace(s)
	if c, ok := colornames.Map[strings.ToLower(s)]; ok {
		return c, nil
	}
	hex := strings.TrimPrefix(s, "#")
	if hex == "" {
		return Black, nil
	}

	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	if len(hex) == 6 {
		hex += "ff"
	}
	if len(hex) != 8 {
		return Black, fmt.Errorf("invalid color %q: expected #rgb, #rrggbb or #rrggbbaa", s)
	}

	var ch [4]uint8
	for i := range ch {
		v, err := strconv.ParseUint(hex[i*2:i*2+2], 16, 8)
		if err != nil {
			return Black, fmt.Errorf("invalid channel %d in %q: %w", i, s, err)
		}
		ch[i] = uint8(v)
	}

	// color.RGBA is alpha-premultiplied.
	a := uint32(ch[3])
	return color.RGBA{
		R: uint8(uint32(ch[0]) * a / 255),
		G: uint8(uint32(ch[1]) * a / 255),
		B: uint8(uint32(ch[2]) * a / 255),
		A: ch[3],
	}, nil
}

// NewSolidImage creates a uniform solid-color image using draw.Draw (O(1) fill).
func NewSolidImage(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), &image.Uniform{c}, image.Point{}, draw.Src)
	return img
}
