package generator

import (
	"image/color"
	"os"
	"path/filepath"
	"testing"
)

func TestParseColor(t *testing.T) {
	tests := []struct {
		in      string
		want    color.RGBA
		wantErr bool
	}{
		{"", Black, false},
		{"#000000", color.RGBA{0, 0, 0, 255}, false},
		{"#ff0000", color.RGBA{255, 0, 0, 255}, false},
		{"00ff00", color.RGBA{0, 255, 0, 255}, false},
		{"#fff", color.RGBA{255, 255, 255, 255}, false},
		{"#0000ff80", color.RGBA{0, 0, 128, 128}, false},
		{"#12345", Black, true},
		{"#gg0000", Black, true},
		{"red", color.RGBA{255, 0, 0, 255}, false},
		{"Navy", color.RGBA{0, 0, 128, 255}, false},
		{" white ", color.RGBA{255, 255, 255, 255}, false},
		{"#fed", color.RGBA{0xff, 0xee, 0xdd, 255}, false},
		{"notacolour", Black, true},
	}
	for _, tt := range tests {
		got, err := ParseColor(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseColor(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseColor(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestFormatFor(t *testing.T) {
	tests := []struct {
		name    string
		want    Format
		wantErr bool
	}{
		{"form.png", PNG, false},
		{"form.PNG", PNG, false},
		{"scan.jpg", JPEG, false},
		{"scan.jpeg", JPEG, false},
		{"old.bmp", BMP, false},
		{"doc.gif", "", true},
		{"noext", "", true},
	}
	for _, tt := range tests {
		got, err := FormatFor(tt.name)
		if (err != nil) != tt.wantErr {
			t.Errorf("FormatFor(%q) error = %v, wantErr %v", tt.name, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("FormatFor(%q) = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestGenerateAndDecode(t *testing.T) {
	red := color.RGBA{255, 0, 0, 255}
	for _, f := range []Format{PNG, BMP} {
		t.Run(string(f), func(t *testing.T) {
			out := filepath.Join(t.TempDir(), "nested", "dir", "out."+string(f))
			if err := Generate(out, NewSolidImage(8, 6, red), f); err != nil {
				t.Fatalf("Generate() error = %v", err)
			}

			img, got, err := DecodeFile(out)
			if err != nil {
				t.Fatalf("DecodeFile() error = %v", err)
			}
			if got != f {
				t.Errorf("DecodeFile() format = %q, want %q", got, f)
			}
			if b := img.Bounds(); b.Dx() != 8 || b.Dy() != 6 {
				t.Errorf("bounds = %v, want 8x6", b)
			}
			if c := img.RGBAAt(3, 3); c != red {
				t.Errorf("pixel = %v, want %v", c, red)
			}
		})
	}
}

func TestGenerateJPEG(t *testing.T) {
	out := filepath.Join(t.TempDir(), "out.jpg")
	if err := Generate(out, NewSolidImage(16, 16, Black), JPEG); err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	_, f, err := DecodeFile(out)
	if err != nil {
		t.Fatalf("DecodeFile() error = %v", err)
	}
	if f != JPEG {
		t.Errorf("format = %q, want %q", f, JPEG)
	}
}

func TestGenerateLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "out.png")
	if err := Generate(out, NewSolidImage(2, 2, Black), PNG); err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Name() != "out.png" {
		t.Errorf("dir entries = %v, want only out.png", entries)
	}
}

func TestDecodeFileMissing(t *testing.T) {
	if _, _, err := DecodeFile(filepath.Join(t.TempDir(), "missing.png")); err == nil {
		t.Error("DecodeFile() on missing file: want error")
	}
}
