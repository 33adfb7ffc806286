package lensing

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"
)

// Export formats accepted by Config.ExportFormat and Exporter.Format.
const (
	FormatJPEG = "jpeg"
	FormatPNG  = "png"
	FormatWebP = "webp"
)

// Config holds the render tunables. Changes take effect at the next restart.
type Config struct {
	// TimeStep scales the integration step. Each step advances a ray by
	// TimeStep * r * (0.5 + noise), r being its distance from the origin.
	TimeStep float32 `json:"time_step"`

	// EscapeDistance is the radius beyond which a ray samples the sky.
	EscapeDistance float32 `json:"escape_distance"`

	// HorizonRadius is the event horizon radius. It also sets the strength
	// of the lensing field.
	HorizonRadius float32 `json:"horizon_radius"`

	// DiskMax is the outer radius of the accretion disk. The inner radius is
	// HorizonRadius. A DiskMax at or inside the horizon disables the disk.
	DiskMax float32 `json:"disk_max"`

	// DiskMult multiplies the disk color.
	DiskMult float32 `json:"disk_mult"`

	// DiskColor is the disk RGBA color. Alpha is written unscaled.
	DiskColor [4]float32 `json:"disk_color"`

	// ScaleFactor multiplies the viewport into the ray buffer resolution.
	ScaleFactor int `json:"scale_factor"`

	// NoiseWidth is the edge of the square noise field.
	NoiseWidth int `json:"noise_width"`

	// NoiseOrigin and NoiseScale select the window of Perlin noise sampled.
	NoiseOrigin [2]float64 `json:"noise_origin"`
	NoiseScale  [2]float64 `json:"noise_scale"`

	// UpdateInterval is the time between completeness polls, in seconds.
	// Zero polls on every Tick.
	UpdateInterval float64 `json:"update_interval"`

	// SaveToFile exports the frame when a render completes.
	SaveToFile bool `json:"save_to_file"`

	// FilenamePrefix is prepended to export filenames as "prefix_".
	FilenamePrefix string `json:"filename_prefix"`

	// OutputDir is the export directory. Created on demand.
	OutputDir string `json:"output_dir"`

	// ExportFormat is "jpeg", "png" or "webp".
	ExportFormat string `json:"export_format"`

	// JPEGQuality is the JPEG quality, 1-100.
	JPEGQuality int `json:"jpeg_quality"`
}

// DefaultConfig returns the default render configuration.
func DefaultConfig() Config {
	return Config{
		TimeStep:       0.001,
		EscapeDistance: 10000,
		HorizonRadius:  0.5,
		DiskMax:        4,
		DiskMult:       1,
		DiskColor:      [4]float32{1, 1, 1, 1},
		ScaleFactor:    4,
		NoiseWidth:     512,
		NoiseOrigin:    [2]float64{0, 0},
		NoiseScale:     [2]float64{1, 1},
		UpdateInterval: 1,
		OutputDir:      "Output",
		ExportFormat:   FormatJPEG,
		JPEGQuality:    90,
	}
}

// Normalize clamps out-of-range fields and returns the result.
func (c Config) Normalize() Config {
	def := DefaultConfig()
	if c.TimeStep <= 0 {
		c.TimeStep = def.TimeStep
	}
	if c.HorizonRadius < 0 {
		c.HorizonRadius = 0
	}
	if c.EscapeDistance <= c.HorizonRadius {
		c.EscapeDistance = max(def.EscapeDistance, 2*c.HorizonRadius)
	}
	c.ScaleFactor = max(c.ScaleFactor, 1)
	c.NoiseWidth = max(c.NoiseWidth, 1)
	c.UpdateInterval = max(c.UpdateInterval, 0)
	if c.OutputDir == "" {
		c.OutputDir = def.OutputDir
	}

	c.ExportFormat = normalizeFormat(c.ExportFormat)
	switch {
	case c.JPEGQuality <= 0:
		c.JPEGQuality = def.JPEGQuality
	case c.JPEGQuality > 100:
		c.JPEGQuality = 100
	}
	return c
}

// Interval returns UpdateInterval as a time.Duration.
func (c Config) Interval() time.Duration {
	return time.Duration(c.UpdateInterval * float64(time.Second))
}

// normalizeFormat maps format aliases to a supported format, falling back
// to JPEG.
func normalizeFormat(f string) string {
	switch strings.ToLower(strings.TrimSpace(f)) {
	case FormatPNG:
		return FormatPNG
	case FormatWebP:
		return FormatWebP
	default:
		return FormatJPEG
	}
}

// LoadConfig reads a JSON config file. Fields missing from the file keep
// their DefaultConfig values.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("lensing: read config: %w", err)
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("lensing: parse config %s: %w", path, err)
	}
	return cfg.Normalize(), nil
}
