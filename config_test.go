package lensing

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfigIsNormalized(t *testing.T) {
	def := DefaultConfig()
	if got := def.Normalize(); got != def {
		t.Errorf("Normalize(DefaultConfig()) = %+v, want unchanged", got)
	}
}

func TestConfigNormalize(t *testing.T) {
	tests := []struct {
		name  string
		edit  func(*Config)
		check func(t *testing.T, c Config)
	}{
		{
			name: "scale factor at least 1",
			edit: func(c *Config) { c.ScaleFactor = 0 },
			check: func(t *testing.T, c Config) {
				if c.ScaleFactor != 1 {
					t.Errorf("ScaleFactor = %d, want 1", c.ScaleFactor)
				}
			},
		},
		{
			name: "noise width at least 1",
			edit: func(c *Config) { c.NoiseWidth = -3 },
			check: func(t *testing.T, c Config) {
				if c.NoiseWidth != 1 {
					t.Errorf("NoiseWidth = %d, want 1", c.NoiseWidth)
				}
			},
		},
		{
			name: "negative interval",
			edit: func(c *Config) { c.UpdateInterval = -1 },
			check: func(t *testing.T, c Config) {
				if c.UpdateInterval != 0 {
					t.Errorf("UpdateInterval = %v, want 0", c.UpdateInterval)
				}
			},
		},
		{
			name: "time step positive",
			edit: func(c *Config) { c.TimeStep = 0 },
			check: func(t *testing.T, c Config) {
				if c.TimeStep <= 0 {
					t.Errorf("TimeStep = %v, want > 0", c.TimeStep)
				}
			},
		},
		{
			name: "escape beyond horizon",
			edit: func(c *Config) { c.HorizonRadius = 50000; c.EscapeDistance = 10 },
			check: func(t *testing.T, c Config) {
				if c.EscapeDistance <= c.HorizonRadius {
					t.Errorf("EscapeDistance = %v, want > %v", c.EscapeDistance, c.HorizonRadius)
				}
			},
		},
		{
			name: "unknown format falls back to jpeg",
			edit: func(c *Config) { c.ExportFormat = "gif" },
			check: func(t *testing.T, c Config) {
				if c.ExportFormat != FormatJPEG {
					t.Errorf("ExportFormat = %q, want %q", c.ExportFormat, FormatJPEG)
				}
			},
		},
		{
			name: "format case-insensitive",
			edit: func(c *Config) { c.ExportFormat = " PNG " },
			check: func(t *testing.T, c Config) {
				if c.ExportFormat != FormatPNG {
					t.Errorf("ExportFormat = %q, want %q", c.ExportFormat, FormatPNG)
				}
			},
		},
		{
			name: "jpeg quality clamped",
			edit: func(c *Config) { c.JPEGQuality = 250 },
			check: func(t *testing.T, c Config) {
				if c.JPEGQuality != 100 {
					t.Errorf("JPEGQuality = %d, want 100", c.JPEGQuality)
				}
			},
		},
		{
			name: "empty output dir",
			edit: func(c *Config) { c.OutputDir = "" },
			check: func(t *testing.T, c Config) {
				if c.OutputDir != "Output" {
					t.Errorf("OutputDir = %q, want Output", c.OutputDir)
				}
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := DefaultConfig()
			tt.edit(&c)
			tt.check(t, c.Normalize())
		})
	}
}

func TestConfigInterval(t *testing.T) {
	c := DefaultConfig()
	c.UpdateInterval = 0.25
	if got := c.Interval(); got != 250*time.Millisecond {
		t.Errorf("Interval() = %v, want 250ms", got)
	}
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "render.json")
	data := `{"time_step": 0.01, "scale_factor": 2, "export_format": "webp", "save_to_file": true}`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.TimeStep != 0.01 || cfg.ScaleFactor != 2 || cfg.ExportFormat != FormatWebP || !cfg.SaveToFile {
		t.Errorf("LoadConfig = %+v", cfg)
	}
	// Missing fields keep their defaults.
	if cfg.NoiseWidth != DefaultConfig().NoiseWidth {
		t.Errorf("NoiseWidth = %d, want default %d", cfg.NoiseWidth, DefaultConfig().NoiseWidth)
	}
}

func TestLoadConfigErrors(t *testing.T) {
	dir := t.TempDir()
	if _, err := LoadConfig(filepath.Join(dir, "missing.json")); err == nil {
		t.Error("expected error for missing file")
	}

	bad := filepath.Join(dir, "bad.json")
	if err := os.WriteFile(bad, []byte("{not json"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadConfig(bad); err == nil {
		t.Error("expected error for malformed file")
	}
}
