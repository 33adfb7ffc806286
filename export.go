package lensing

import (
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/HugoSmits86/nativewebp"
)

// FrameWriter persists a finished frame and returns where it went.
type FrameWriter interface {
	WriteFrame(img image.Image) (string, error)
}

// filenameLayout is month, day, year, then hour on a 12-hour clock, minute
// and second.
const filenameLayout = "01022006_030405"

// Exporter writes frames to timestamped files in Dir.
type Exporter struct {
	Dir     string
	Prefix  string
	Format  string
	Quality int

	// Now returns the timestamp used in filenames. Defaults to time.Now.
	Now func() time.Time
}

var _ FrameWriter = (*Exporter)(nil)

// NewExporter returns an Exporter configured from cfg.
func NewExporter(cfg Config) *Exporter {
	cfg = cfg.Normalize()
	return &Exporter{
		Dir:     cfg.OutputDir,
		Prefix:  cfg.FilenamePrefix,
		Format:  cfg.ExportFormat,
		Quality: cfg.JPEGQuality,
	}
}

// Filename returns the file name for a frame taken at t:
// "[prefix_]MMddyyyy_hhmmss.ext".
func (e *Exporter) Filename(t time.Time) (string, error) {
	ext, err := extension(e.Format)
	if err != nil {
		return "", err
	}
	name := t.Format(filenameLayout) + ext
	if e.Prefix != "" {
		name = e.Prefix + "_" + name
	}
	return name, nil
}

// WriteFrame encodes img into Dir, creating it if needed, and returns the
// file path.
func (e *Exporter) WriteFrame(img image.Image) (string, error) {
	now := time.Now
	if e.Now != nil {
		now = e.Now
	}
	name, err := e.Filename(now())
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(e.Dir, 0o755); err != nil {
		return "", fmt.Errorf("lensing: create output dir: %w", err)
	}

	path := filepath.Join(e.Dir, name)
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("lensing: create %s: %w", path, err)
	}
	if err := Encode(f, img, e.Format, e.Quality); err != nil {
		_ = f.Close()
		return "", fmt.Errorf("lensing: encode %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("lensing: close %s: %w", path, err)
	}
	return path, nil
}

// Encode writes img to w as jpeg, png or webp. Quality applies to JPEG
// only; values outside 1-100 use the default.
func Encode(w io.Writer, img image.Image, format string, quality int) error {
	switch format {
	case FormatJPEG, "":
		if quality < 1 || quality > 100 {
			quality = DefaultConfig().JPEGQuality
		}
		return jpeg.Encode(w, img, &jpeg.Options{Quality: quality})
	case FormatPNG:
		return png.Encode(w, img)
	case FormatWebP:
		return nativewebp.Encode(w, img, nil)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

func extension(format string) (string, error) {
	switch format {
	case FormatJPEG, "":
		return ".jpg", nil
	case FormatPNG:
		return ".png", nil
	case FormatWebP:
		return ".webp", nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}
