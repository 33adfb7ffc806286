package lensing

import (
	"image/color"
	"testing"
)

func TestDefaultOptions(t *testing.T) {
	o := defaultOptions()
	if o.config != DefaultConfig() {
		t.Error("default config mismatch")
	}
	if o.viewport.Width <= 0 || o.viewport.Height <= 0 {
		t.Errorf("default viewport = %+v", o.viewport)
	}
	if o.sky != nil || o.writer != nil {
		t.Error("sky and writer should default to nil")
	}
	if _, ok := o.clock.(SystemClock); !ok {
		t.Errorf("default clock = %T, want SystemClock", o.clock)
	}
}

func TestOptionsApply(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ScaleFactor = 2
	cam := OrbitCamera(8, 20, 30)
	sky := SolidSky(color.White)
	clock := newFakeClock()
	w := &recordingWriter{}

	o := defaultOptions()
	for _, opt := range []Option{
		WithConfig(cfg),
		WithCamera(cam),
		WithViewport(64, 48),
		WithSky(sky),
		WithClock(clock),
		WithExporter(w),
	} {
		opt(&o)
	}

	if o.config != cfg {
		t.Error("WithConfig not applied")
	}
	if o.camera != cam {
		t.Error("WithCamera not applied")
	}
	if o.viewport != (Viewport{Width: 64, Height: 48}) {
		t.Errorf("viewport = %+v, want 64x48", o.viewport)
	}
	if o.sky != sky {
		t.Error("WithSky not applied")
	}
	if o.clock != clock {
		t.Error("WithClock not applied")
	}
	if o.writer != w {
		t.Error("WithExporter not applied")
	}
}

func TestWithClockNilKeepsDefault(t *testing.T) {
	o := defaultOptions()
	WithClock(nil)(&o)
	if o.clock == nil {
		t.Error("WithClock(nil) cleared the clock")
	}
}
