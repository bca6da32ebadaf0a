// renderer.go - Fill engine burning field values into a template image.
// Loads the template and its layout, draws every requested field at its
// configured position, and writes the result in the template's own format.
package template

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"strings"
	"time"

	"github.com/xob0t/FormStencil/pkg/generator"
	"github.com/xob0t/FormStencil/pkg/layout"
)

// DefaultTimeout bounds one fill from template decode to output write.
const DefaultTimeout = 30 * time.Second

// LayoutSource provides the field layout of a template.
type LayoutSource interface {
	Load(ctx context.Context, name string) (*layout.Layout, bool)
}

// Result describes a completed fill.
type Result struct {
	Template   string
	OutputPath string
	Filled     []string // layout fields drawn
	Missing    []string // layout fields absent from the request
	Ignored    []string // request names the layout does not define
}

// Renderer fills templates from a registry using stored layouts.
type Renderer struct {
	registry *Registry
	layouts  LayoutSource
	fonts    *FontResolver
	timeout  time.Duration
}

// RendererOption configures a Renderer.
type RendererOption func(*Renderer)

// WithFontResolver replaces the default font resolver.
func WithFontResolver(fr *FontResolver) RendererOption {
	return func(r *Renderer) { r.fonts = fr }
}

// WithTimeout bounds each fill. Zero or negative disables the bound.
func WithTimeout(d time.Duration) RendererOption {
	return func(r *Renderer) { r.timeout = d }
}

// NewRenderer creates a renderer.
func NewRenderer(registry *Registry, layouts LayoutSource, opts ...RendererOption) *Renderer {
	r := &Renderer{
		registry: registry,
		layouts:  layouts,
		timeout:  DefaultTimeout,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.fonts == nil {
		r.fonts = NewFontResolver()
	}
	return r
}

// Fill draws req onto the template called name and writes the document to
// output. It follows a fixed order:
// 1. Resolves the template file (ErrTemplateNotFound)
// 2. Decodes it into an editable buffer (ErrRender)
// 3. Loads its layout (ErrLayoutMissing when absent or empty)
// 4. Draws each layout field present in req; a field that fails to draw is
// logged and skipped without failing the fill
// 5. Encodes the buffer to output in the template's format (ErrRender).
//
// The whole fill is bounded by the renderer's timeout and by ctx.
func (r *Renderer) Fill(ctx context.Context, name string, req FillRequest, output string) (*Result, error) {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	type outcome struct {
		res *Result
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		res, err := r.fill(ctx, name, req, output)
		done <- outcome{res, err}
	}()

	select {
	case o := <-done:
		if o.err != nil {
			Logger().Error("fill failed", "template", name, "err", o.err)
			return nil, o.err
		}
		Logger().Info("document filled", "template", name, "output", o.res.OutputPath,
			"filled", len(o.res.Filled), "ignored", len(o.res.Ignored))
		return o.res, nil
	case <-ctx.Done():
		err := fmt.Errorf("%w: fill %s: %w", ErrRender, name, ctx.Err())
		Logger().Error("fill aborted", "template", name, "err", err)
		return nil, err
	}
}

func (r *Renderer) fill(ctx context.Context, name string, req FillRequest, output string) (*Result, error) {
	path, err := r.registry.Path(name)
	if err != nil {
		return nil, err
	}

	img, format, err := generator.DecodeFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRender, err)
	}

	l, ok := r.layouts.Load(ctx, name)
	if !ok || l.Empty() {
		return nil, fmt.Errorf("%w: %s", ErrLayoutMissing, name)
	}

	fill, missing, ignored := Match(l, req)
	if len(ignored) > 0 {
		Logger().Debug("request names not in layout", "template", name, "ignored", ignored)
	}

	for _, field := range fill {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrRender, err)
		}
		r.drawField(img, field, req[field], l.Fields[field])
	}

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRender, err)
	}
	if err := generator.Generate(output, img, format); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRender, err)
	}

	return &Result{
		Template:   name,
		OutputPath: output,
		Filled:     fill,
		Missing:    missing,
		Ignored:    ignored,
	}, nil
}

// drawField renders one value. A failure with the resolved face is retried
// with the bitmap fallback face; a second failure is logged and dropped.
func (r *Renderer) drawField(dst *image.RGBA, field, value string, spec layout.FieldSpec) {
	value = strings.ToValidUTF8(value, "�")

	col, err := generator.ParseColor(spec.TextColor())
	if err != nil {
		Logger().Warn("invalid field color, using black", "field", field, "err", err)
	}

	face := r.fonts.Resolve(spec.Size())
	err = drawSafely(face, dst, value, spec.X, spec.Y, col)
	if err == nil {
		return
	}
	Logger().Warn("draw field failed, retrying with fallback face", "field", field, "font", face.Name(), "err", err)

	if err := drawSafely(FallbackFace(), dst, value, spec.X, spec.Y, col); err != nil {
		Logger().Error("draw field failed", "field", field, "err", err)
	}
}

// drawSafely converts a panic inside a face's Draw into an error.
func drawSafely(h FontHandle, dst *image.RGBA, s string, x, y int, col color.Color) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("draw with %s: %v", h.Name(), p)
		}
	}()
	h.Draw(dst, s, x, y, col)
	return nil
}
