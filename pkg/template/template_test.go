package template

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/draw"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/xob0t/FormStencil/pkg/generator"
	"github.com/xob0t/FormStencil/pkg/layout"
)

type mapLayouts map[string]*layout.Layout

func (m mapLayouts) Load(_ context.Context, name string) (*layout.Layout, bool) {
	l, ok := m[name]
	return l, ok
}

type blockingLayouts struct{ release chan struct{} }

func (b blockingLayouts) Load(context.Context, string) (*layout.Layout, bool) {
	<-b.release
	return nil, false
}

type panicStrategy struct{}

func (panicStrategy) Name() string { return "panics" }
func (panicStrategy) Face(int) (FontHandle, error) { return panicHandle{}, nil }

type panicHandle struct{}

func (panicHandle) Name() string { return "panics" }
func (panicHandle) Ascent() int  { return 10 }
func (panicHandle) Draw(draw.Image, string, int, int, color.Color) {
	panic("glyph table corrupt")
}

func writeBlank(t *testing.T, dir, name string, w, h int) {
	t.Helper()
	img := generator.NewSolidImage(w, h, color.RGBA{255, 255, 255, 255})
	f, err := generator.FormatFor(name)
	if err != nil {
		t.Fatalf("FormatFor(%q) error = %v", name, err)
	}
	if err := generator.Generate(filepath.Join(dir, name), img, f); err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
}

func inkIn(img *image.RGBA, r image.Rectangle) bool {
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			c := img.RGBAAt(x, y)
			if c.R < 200 || c.G < 200 || c.B < 200 {
				return true
			}
		}
	}
	return false
}

func embeddedOnly() RendererOption {
	return WithFontResolver(NewFontResolverWithStrategies(EmbeddedFont()))
}

// ── Registry ──

func TestRegistryList(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.png", "a.JPG", "c.bmp", "notes.txt", "d.jpeg"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.Mkdir(filepath.Join(dir, "sub.png"), 0o755); err != nil {
		t.Fatal(err)
	}

	got := NewRegistry(dir).List()
	want := []string{"a.JPG", "b.png", "c.bmp", "d.jpeg"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("List() = %v, want %v", got, want)
	}
}

func TestRegistryListMissingDir(t *testing.T) {
	got := NewRegistry(filepath.Join(t.TempDir(), "absent")).List()
	if got == nil || len(got) != 0 {
		t.Errorf("List() = %#v, want empty non-nil slice", got)
	}
}

func TestRegistryPath(t *testing.T) {
	dir := t.TempDir()
	writeBlank(t, dir, "form.png", 4, 4)
	r := NewRegistry(dir)

	p, err := r.Path("form.png")
	if err != nil {
		t.Fatalf("Path() error = %v", err)
	}
	if p != filepath.Join(dir, "form.png") {
		t.Errorf("Path() = %q", p)
	}

	for _, name := range []string{"missing.png", "", "../form.png", "a/b.png"} {
		if _, err := r.Path(name); !errors.Is(err, ErrTemplateNotFound) {
			t.Errorf("Path(%q) error = %v, want ErrTemplateNotFound", name, err)
		}
	}
}

// ── Requests ──

func TestParseFillRequest(t *testing.T) {
	tests := []struct {
		in   string
		want FillRequest
	}{
		{"a=1\nb=2", FillRequest{"a": "1", "b": "2"}},
		{"garbage", FillRequest{}},
		{"", FillRequest{}},
		{"  name = Jane Doe  \n\nnote=x=y\n=orphan", FillRequest{"name": "Jane Doe", "note": "x=y"}},
		{"a=1\na=2", FillRequest{"a": "2"}},
		{"é=café", FillRequest{"é": "café"}},
	}
	for _, tt := range tests {
		if got := ParseFillRequest(tt.in); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("ParseFillRequest(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestOutputName(t *testing.T) {
	ts := time.Date(2024, 3, 9, 14, 5, 7, 0, time.UTC)
	if got := OutputName("form.png", ts); got != "filled_20240309_140507_form.png" {
		t.Errorf("OutputName() = %q", got)
	}
}

func TestMatch(t *testing.T) {
	l := &layout.Layout{Fields: map[string]layout.FieldSpec{
		"name": {}, "date": {}, "sign": {},
	}}
	req := FillRequest{"name": "Jane", "date": "today", "extra": "x", "zzz": "y"}

	fill, missing, ignored := Match(l, req)
	if !reflect.DeepEqual(fill, []string{"date", "name"}) {
		t.Errorf("fill = %v", fill)
	}
	if !reflect.DeepEqual(missing, []string{"sign"}) {
		t.Errorf("missing = %v", missing)
	}
	if !reflect.DeepEqual(ignored, []string{"extra", "zzz"}) {
		t.Errorf("ignored = %v", ignored)
	}
}

func TestFormatFields(t *testing.T) {
	l := &layout.Layout{Fields: map[string]layout.FieldSpec{"date": {}, "name": {}}}
	if got := FormatFields(l); got != "• date\n• name\n" {
		t.Errorf("FormatFields() = %q", got)
	}
}

// ── Fonts ──

func TestResolveFallsBackToEmbedded(t *testing.T) {
	r := NewFontResolverWithStrategies(FileFont("/nonexistent/font.ttf"), EmbeddedFont())
	h := r.Resolve(20)
	if h.Name() != "Go Regular (embedded)" {
		t.Errorf("Resolve().Name() = %q", h.Name())
	}
	if h.Ascent() <= 0 {
		t.Errorf("Ascent() = %d", h.Ascent())
	}
}

func TestResolveBitmapWhenNothingLoads(t *testing.T) {
	r := NewFontResolverWithStrategies(FileFont("/nonexistent/font.ttf"))
	h := r.Resolve(0)
	if h.Name() != FallbackFace().Name() {
		t.Errorf("Resolve().Name() = %q, want bitmap face", h.Name())
	}

	dst := generator.NewSolidImage(80, 20, color.RGBA{255, 255, 255, 255})
	h.Draw(dst, "Hello", 2, 2, color.Black)
	if !inkIn(dst, dst.Bounds()) {
		t.Error("bitmap face drew nothing")
	}
}

// ── Renderer ──

func TestFillDrawsField(t *testing.T) {
	dir := t.TempDir()
	writeBlank(t, dir, "form.png", 200, 60)
	layouts := mapLayouts{"form.png": {
		TemplateName: "form.png",
		Fields:       map[string]layout.FieldSpec{"name": {X: 10, Y: 10}},
	}}
	r := NewRenderer(NewRegistry(dir), layouts, embeddedOnly())

	out := filepath.Join(t.TempDir(), "out", "filled_form.png")
	res, err := r.Fill(context.Background(), "form.png", FillRequest{"name": "Jane"}, out)
	if err != nil {
		t.Fatalf("Fill() error = %v", err)
	}
	if res.OutputPath != out || !reflect.DeepEqual(res.Filled, []string{"name"}) {
		t.Errorf("Fill() = %+v", res)
	}

	img, format, err := generator.DecodeFile(out)
	if err != nil {
		t.Fatalf("DecodeFile() error = %v", err)
	}
	if format != generator.PNG {
		t.Errorf("format = %v, want PNG", format)
	}
	if !inkIn(img, image.Rect(10, 10, 110, 45)) {
		t.Error("no text near (10,10)")
	}
	if inkIn(img, image.Rect(0, 0, 200, 8)) {
		t.Error("text drawn above its top-left anchor")
	}
}

func TestFillKeepsTemplateFormat(t *testing.T) {
	dir := t.TempDir()
	writeBlank(t, dir, "scan.jpg", 120, 40)
	layouts := mapLayouts{"scan.jpg": {Fields: map[string]layout.FieldSpec{"n": {X: 5, Y: 5}}}}
	r := NewRenderer(NewRegistry(dir), layouts, embeddedOnly())

	out := filepath.Join(t.TempDir(), "filled_scan.jpg")
	if _, err := r.Fill(context.Background(), "scan.jpg", FillRequest{"n": "42"}, out); err != nil {
		t.Fatalf("Fill() error = %v", err)
	}
	if _, format, err := generator.DecodeFile(out); err != nil || format != generator.JPEG {
		t.Errorf("DecodeFile() = %v, %v; want JPEG", format, err)
	}
}

func TestFillPartialAndExtras(t *testing.T) {
	dir := t.TempDir()
	writeBlank(t, dir, "form.png", 300, 100)
	layouts := mapLayouts{"form.png": {Fields: map[string]layout.FieldSpec{
		"name": {X: 10, Y: 10},
		"date": {X: 10, Y: 60},
	}}}
	r := NewRenderer(NewRegistry(dir), layouts, embeddedOnly())

	out := filepath.Join(t.TempDir(), "out.png")
	res, err := r.Fill(context.Background(), "form.png", FillRequest{"name": "Jane", "bogus": "x"}, out)
	if err != nil {
		t.Fatalf("Fill() error = %v", err)
	}
	if !reflect.DeepEqual(res.Missing, []string{"date"}) || !reflect.DeepEqual(res.Ignored, []string{"bogus"}) {
		t.Errorf("Fill() = %+v", res)
	}

	img, _, err := generator.DecodeFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if inkIn(img, image.Rect(0, 55, 300, 100)) {
		t.Error("absent field drew something")
	}
}

func TestFillInvalidColorUsesBlack(t *testing.T) {
	dir := t.TempDir()
	writeBlank(t, dir, "form.png", 200, 60)
	layouts := mapLayouts{"form.png": {Fields: map[string]layout.FieldSpec{
		"name": {X: 10, Y: 10, Color: "not-a-color"},
	}}}
	r := NewRenderer(NewRegistry(dir), layouts, embeddedOnly())

	out := filepath.Join(t.TempDir(), "out.png")
	if _, err := r.Fill(context.Background(), "form.png", FillRequest{"name": "Jane"}, out); err != nil {
		t.Fatalf("Fill() error = %v", err)
	}
	img, _, _ := generator.DecodeFile(out)
	if !inkIn(img, image.Rect(10, 10, 110, 45)) {
		t.Error("no text drawn")
	}
}

func TestFillNamedColor(t *testing.T) {
	dir := t.TempDir()
	writeBlank(t, dir, "form.png", 200, 60)
	layouts := mapLayouts{"form.png": {Fields: map[string]layout.FieldSpec{
		"name": {X: 10, Y: 10, Color: "red"},
	}}}
	r := NewRenderer(NewRegistry(dir), layouts, embeddedOnly())

	out := filepath.Join(t.TempDir(), "out.png")
	if _, err := r.Fill(context.Background(), "form.png", FillRequest{"name": "Jane"}, out); err != nil {
		t.Fatalf("Fill() error = %v", err)
	}
	img, _, _ := generator.DecodeFile(out)
	red := false
	for y := 10; y < 45 && !red; y++ {
		for x := 10; x < 110; x++ {
			c := img.RGBAAt(x, y)
			if c.R > 200 && c.G < 100 && c.B < 100 {
				red = true
				break
			}
		}
	}
	if !red {
		t.Error("no red text drawn")
	}
}

func TestFillRecoversFromDrawPanic(t *testing.T) {
	dir := t.TempDir()
	writeBlank(t, dir, "form.png", 200, 60)
	layouts := mapLayouts{"form.png": {Fields: map[string]layout.FieldSpec{"name": {X: 10, Y: 10}}}}
	r := NewRenderer(NewRegistry(dir), layouts,
		WithFontResolver(NewFontResolverWithStrategies(panicStrategy{})))

	out := filepath.Join(t.TempDir(), "out.png")
	if _, err := r.Fill(context.Background(), "form.png", FillRequest{"name": "Jane"}, out); err != nil {
		t.Fatalf("Fill() error = %v", err)
	}
	img, _, _ := generator.DecodeFile(out)
	if !inkIn(img, image.Rect(10, 10, 110, 30)) {
		t.Error("fallback face drew nothing")
	}
}

func TestFillErrors(t *testing.T) {
	dir := t.TempDir()
	writeBlank(t, dir, "form.png", 20, 20)
	writeBlank(t, dir, "empty.png", 20, 20)
	if err := os.WriteFile(filepath.Join(dir, "broken.png"), []byte("not an image"), 0o644); err != nil {
		t.Fatal(err)
	}
	layouts := mapLayouts{
		"empty.png":  {Fields: map[string]layout.FieldSpec{}},
		"broken.png": {Fields: map[string]layout.FieldSpec{"a": {}}},
	}
	r := NewRenderer(NewRegistry(dir), layouts, embeddedOnly())

	tests := []struct {
		name string
		want error
	}{
		{"missing.png", ErrTemplateNotFound},
		{"form.png", ErrLayoutMissing},
		{"empty.png", ErrLayoutMissing},
		{"broken.png", ErrRender},
	}
	for _, tt := range tests {
		out := filepath.Join(t.TempDir(), "out.png")
		_, err := r.Fill(context.Background(), tt.name, FillRequest{"a": "1"}, out)
		if !errors.Is(err, tt.want) {
			t.Errorf("Fill(%s) error = %v, want %v", tt.name, err, tt.want)
		}
		if _, statErr := os.Stat(out); statErr == nil {
			t.Errorf("Fill(%s) wrote output despite failing", tt.name)
		}
	}
}

func TestFillTimeout(t *testing.T) {
	dir := t.TempDir()
	writeBlank(t, dir, "form.png", 20, 20)
	release := make(chan struct{})
	t.Cleanup(func() { close(release) })

	r := NewRenderer(NewRegistry(dir), blockingLayouts{release}, embeddedOnly(), WithTimeout(20*time.Millisecond))
	_, err := r.Fill(context.Background(), "form.png", FillRequest{"a": "1"}, filepath.Join(t.TempDir(), "out.png"))
	if !errors.Is(err, ErrRender) || !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Fill() error = %v, want ErrRender wrapping DeadlineExceeded", err)
	}
}
