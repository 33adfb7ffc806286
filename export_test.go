package lensing

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func testImage() *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, 8, 4))
	for y := 0; y < 4; y++ {
		for x := 0; x < 8; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: uint8(x * 30), G: uint8(y * 60), B: 128, A: 255})
		}
	}
	return img
}

func TestExporterFilename(t *testing.T) {
	afternoon := time.Date(2024, 3, 9, 14, 5, 6, 0, time.UTC)
	morning := time.Date(2023, 12, 25, 9, 30, 0, 0, time.UTC)

	tests := []struct {
		name   string
		prefix string
		format string
		at     time.Time
		want   string
	}{
		{"no prefix", "", FormatJPEG, afternoon, "03092024_020506.jpg"},
		{"prefix", "bh", FormatJPEG, afternoon, "bh_03092024_020506.jpg"},
		{"morning", "", FormatJPEG, morning, "12252023_093000.jpg"},
		{"png", "", FormatPNG, afternoon, "03092024_020506.png"},
		{"webp", "run", FormatWebP, afternoon, "run_03092024_020506.webp"},
		{"empty format", "", "", afternoon, "03092024_020506.jpg"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := &Exporter{Prefix: tt.prefix, Format: tt.format}
			got, err := e.Filename(tt.at)
			if err != nil {
				t.Fatalf("Filename: %v", err)
			}
			if got != tt.want {
				t.Errorf("Filename() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExporterUnknownFormat(t *testing.T) {
	e := &Exporter{Dir: t.TempDir(), Format: "gif"}
	if _, err := e.Filename(time.Now()); !errors.Is(err, ErrUnknownFormat) {
		t.Errorf("Filename() error = %v, want ErrUnknownFormat", err)
	}
	if _, err := e.WriteFrame(testImage()); !errors.Is(err, ErrUnknownFormat) {
		t.Errorf("WriteFrame() error = %v, want ErrUnknownFormat", err)
	}
	if err := Encode(&bytes.Buffer{}, testImage(), "gif", 0); !errors.Is(err, ErrUnknownFormat) {
		t.Errorf("Encode() error = %v, want ErrUnknownFormat", err)
	}
}

func TestExporterWriteFrame(t *testing.T) {
	stamp := time.Date(2024, 3, 9, 14, 5, 6, 0, time.UTC)
	tests := []struct {
		format string
		ext    string
		decode func(*os.File) (image.Image, error)
	}{
		{FormatJPEG, ".jpg", func(f *os.File) (image.Image, error) { return jpeg.Decode(f) }},
		{FormatPNG, ".png", func(f *os.File) (image.Image, error) { return png.Decode(f) }},
		{FormatWebP, ".webp", func(f *os.File) (image.Image, error) {
			img, _, err := image.Decode(f)
			return img, err
		}},
	}
	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			// Nested so the directory is created on demand.
			dir := filepath.Join(t.TempDir(), "Output", "frames")
			e := &Exporter{Dir: dir, Prefix: "test", Format: tt.format, Quality: 95,
				Now: func() time.Time { return stamp }}

			path, err := e.WriteFrame(testImage())
			if err != nil {
				t.Fatalf("WriteFrame: %v", err)
			}
			if want := filepath.Join(dir, "test_03092024_020506"+tt.ext); path != want {
				t.Errorf("path = %q, want %q", path, want)
			}

			f, err := os.Open(path)
			if err != nil {
				t.Fatal(err)
			}
			defer f.Close()
			img, err := tt.decode(f)
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			if img.Bounds() != testImage().Bounds() {
				t.Errorf("bounds = %v, want %v", img.Bounds(), testImage().Bounds())
			}
		})
	}
}

func TestNewExporter(t *testing.T) {
	cfg := DefaultConfig()
	cfg.OutputDir = "renders"
	cfg.FilenamePrefix = "disk"
	cfg.ExportFormat = "PNG"
	cfg.JPEGQuality = 0

	e := NewExporter(cfg)
	if e.Dir != "renders" || e.Prefix != "disk" || e.Format != FormatPNG {
		t.Errorf("NewExporter = %+v", e)
	}
	if e.Quality != DefaultConfig().JPEGQuality {
		t.Errorf("Quality = %d, want default", e.Quality)
	}
}

func TestEncodePNGLossless(t *testing.T) {
	var buf bytes.Buffer
	src := testImage()
	if err := Encode(&buf, src, FormatPNG, 0); err != nil {
		t.Fatal(err)
	}
	img, err := png.Decode(&buf)
	if err != nil {
		t.Fatal(err)
	}
	r, g, b, a := img.At(5, 2).RGBA()
	wr, wg, wb, wa := src.At(5, 2).RGBA()
	if r != wr || g != wg || b != wb || a != wa {
		t.Errorf("pixel (5,2) = %v, want %v", img.At(5, 2), src.At(5, 2))
	}
}
