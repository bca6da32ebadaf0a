// fonts.go - Font resolution with an ordered list of strategies and built-in fallbacks.
// System TTF files are tried first, then the embedded Go Regular font, and finally
// the fixed 7x13 bitmap face, so Resolve always returns something that can draw.
package template

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"
	"os"
	"sync"
	"sync/atomic"

	"github.com/gogpu/gg/text"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/math/fixed"
	"golang.org/x/sync/singleflight"

	"github.com/xob0t/FormStencil/pkg/layout"
)

// DefaultFontPaths lists Unicode-capable sans-serif faces in common install
// locations, in the order they are tried.
var DefaultFontPaths = []string{
	// Linux
	"/usr/share/fonts/truetype/dejavu/DejaVuSans.ttf",
	"/usr/share/fonts/TTF/DejaVuSans.ttf",
	"/usr/share/fonts/truetype/liberation/LiberationSans-Regular.ttf",
	"/usr/share/fonts/liberation/LiberationSans-Regular.ttf",
	"/usr/share/fonts/truetype/noto/NotoSans-Regular.ttf",
	// macOS
	"/Library/Fonts/Arial.ttf",
	"/System/Library/Fonts/Supplemental/Arial.ttf",
	// Windows
	"C:\\Windows\\Fonts\\arial.ttf",
	// Working directory
	"arial.ttf",
}

// ── Handles ──

// FontHandle is a face at a fixed size, ready to draw.
type FontHandle interface {
	// Name identifies the face in logs.
	Name() string

	// Ascent is the distance in pixels from the top of the text to its baseline.
	Ascent() int

	// Draw renders s with its top-left corner at (x, y).
	Draw(dst draw.Image, s string, x, y int, col color.Color)
}

// sourceHandle draws with an outline font through gg's text package.
type sourceHandle struct {
	name string
	face text.Face
}

func (h *sourceHandle) Name() string { return h.name }

func (h *sourceHandle) Ascent() int {
	return int(math.Ceil(h.face.Metrics().Ascent))
}

func (h *sourceHandle) Draw(dst draw.Image, s string, x, y int, col color.Color) {
	text.Draw(dst, s, h.face, float64(x), float64(y+h.Ascent()), col)
}

// basicHandle draws with the fixed 7x13 bitmap face. It ignores the requested
// size and only covers printable ASCII and Latin-1.
type basicHandle struct{}

func (basicHandle) Name() string { return "basicfont 7x13" }

func (basicHandle) Ascent() int { return basicfont.Face7x13.Ascent }

func (h basicHandle) Draw(dst draw.Image, s string, x, y int, col color.Color) {
	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(col),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(x, y+h.Ascent()),
	}
	d.DrawString(s)
}

// FallbackFace returns the terminal fallback face. It never fails to load.
func FallbackFace() FontHandle {
	return basicHandle{}
}

// ── Strategies ──

// FontStrategy produces a face at a given size, or reports why it cannot.
type FontStrategy interface {
	Name() string
	Face(size int) (FontHandle, error)
}

// sourceCache loads each font source once. Failed loads are remembered so a
// missing system font is looked up only once per process.
type sourceCache struct {
	group   singleflight.Group
	sources sync.Map // key → *text.FontSource
	failed  sync.Map // key → error
}

func (c *sourceCache) load(key string, read func() ([]byte, error)) (*text.FontSource, error) {
	if v, ok := c.sources.Load(key); ok {
		return v.(*text.FontSource), nil
	}
	if v, ok := c.failed.Load(key); ok {
		return nil, v.(error)
	}

	v, err, _ := c.group.Do(key, func() (any, error) {
		data, err := read()
		if err == nil {
			var src *text.FontSource
			if src, err = text.NewFontSource(data); err == nil {
				c.sources.Store(key, src)
				return src, nil
			}
		}
		err = fmt.Errorf("load font %s: %w", key, err)
		c.failed.Store(key, err)
		return nil, err
	})
	if err != nil {
		return nil, err
	}
	return v.(*text.FontSource), nil
}

type fileStrategy struct {
	path  string
	cache *sourceCache
}

func (s *fileStrategy) Name() string { return s.path }

func (s *fileStrategy) Face(size int) (FontHandle, error) {
	src, err := s.cache.load(s.path, func() ([]byte, error) {
		// #nosec G304 -- font paths come from the built-in list or operator config
		return os.ReadFile(s.path)
	})
	if err != nil {
		return nil, err
	}
	return &sourceHandle{name: src.Name(), face: src.Face(float64(size))}, nil
}

// FileFont returns a strategy loading a TrueType file from path.
func FileFont(path string) FontStrategy {
	return &fileStrategy{path: path, cache: &sourceCache{}}
}

type embeddedStrategy struct {
	cache *sourceCache
}

func (s *embeddedStrategy) Name() string { return "Go Regular (embedded)" }

func (s *embeddedStrategy) Face(size int) (FontHandle, error) {
	src, err := s.cache.load("embedded:goregular", func() ([]byte, error) {
		return goregular.TTF, nil
	})
	if err != nil {
		return nil, err
	}
	return &sourceHandle{name: s.Name(), face: src.Face(float64(size))}, nil
}

// degraded marks built-in faces whose script coverage is narrower than a system font's.
func (s *embeddedStrategy) degraded() bool { return true }

// EmbeddedFont returns a strategy using the Go Regular font compiled into the binary.
// It covers Latin, Greek and Cyrillic.
func EmbeddedFont() FontStrategy {
	return &embeddedStrategy{cache: &sourceCache{}}
}

// ── Resolver ──

// FontResolver tries its strategies in order and returns the first face that loads.
// FontResolver is safe for concurrent use.
type FontResolver struct {
	strategies []FontStrategy
	warned     atomic.Bool
}

// NewFontResolver creates a resolver trying extraPaths, then DefaultFontPaths,
// then the embedded Go font.
func NewFontResolver(extraPaths ...string) *FontResolver {
	cache := &sourceCache{}
	var strategies []FontStrategy
	for _, p := range append(append([]string{}, extraPaths...), DefaultFontPaths...) {
		strategies = append(strategies, &fileStrategy{path: p, cache: cache})
	}
	strategies = append(strategies, &embeddedStrategy{cache: cache})
	return NewFontResolverWithStrategies(strategies...)
}

// NewFontResolverWithStrategies creates a resolver over an explicit strategy list.
// The bitmap fallback face is always implied after the last strategy.
func NewFontResolverWithStrategies(strategies ...FontStrategy) *FontResolver {
	return &FontResolver{strategies: strategies}
}

// Resolve returns a face at size points (pixels at 72 DPI). Sizes below 1
// use layout.DefaultFontSize. Resolve never fails.
func (r *FontResolver) Resolve(size int) FontHandle {
	if size < 1 {
		size = layout.DefaultFontSize
	}

	var errs []error
	for _, s := range r.strategies {
		h, err := s.Face(size)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if d, ok := s.(interface{ degraded() bool }); ok && d.degraded() {
			r.warnOnce("no system font found, using built-in face; some scripts may not render", h, errs)
		}
		return h
	}

	h := FallbackFace()
	r.warnOnce("no outline font could be loaded, using bitmap face; non-Latin text will not render", h, errs)
	return h
}

func (r *FontResolver) warnOnce(msg string, h FontHandle, errs []error) {
	if r.warned.Swap(true) {
		return
	}
	err := ErrFontUnavailable
	if len(errs) > 0 {
		err = fmt.Errorf("%w: %w", ErrFontUnavailable, errors.Join(errs...))
	}
	Logger().Warn(msg, "font", h.Name(), "err", err)
}
