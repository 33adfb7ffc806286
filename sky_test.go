package lensing

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

func TestSolidSky(t *testing.T) {
	s := SolidSky(color.NRGBA{R: 255, G: 0, B: 51, A: 255})
	if s.Width != 1 || s.Height != 1 {
		t.Fatalf("size = %dx%d, want 1x1", s.Width, s.Height)
	}
	want := []float32{1, 0, 0.2, 1}
	for i, v := range want {
		if s.Pix[i] != v {
			t.Errorf("Pix[%d] = %v, want %v", i, s.Pix[i], v)
		}
	}
}

func TestGradientSky(t *testing.T) {
	s := GradientSky(color.NRGBA{R: 255, A: 255}, color.NRGBA{B: 255, A: 255}, 3)
	if s.Width != 1 || s.Height != 3 {
		t.Fatalf("size = %dx%d, want 1x3", s.Width, s.Height)
	}
	top := s.Pix[0:4]
	mid := s.Pix[4:8]
	bottom := s.Pix[8:12]
	if top[0] != 1 || top[2] != 0 {
		t.Errorf("top = %v, want red", top)
	}
	if mid[0] != 0.5 || mid[2] != 0.5 {
		t.Errorf("middle = %v, want halfway", mid)
	}
	if bottom[0] != 0 || bottom[2] != 1 {
		t.Errorf("bottom = %v, want blue", bottom)
	}
}

func TestSkyFromImage(t *testing.T) {
	img := image.NewNRGBA(image.Rect(10, 20, 13, 22))
	img.SetNRGBA(10, 20, color.NRGBA{R: 255, A: 255})
	img.SetNRGBA(12, 21, color.NRGBA{G: 255, A: 255})

	s := SkyFromImage(img)
	if s.Width != 3 || s.Height != 2 || len(s.Pix) != 3*2*4 {
		t.Fatalf("sky = %dx%d (%d floats)", s.Width, s.Height, len(s.Pix))
	}
	if s.Pix[0] != 1 || s.Pix[3] != 1 {
		t.Errorf("first texel = %v, want opaque red", s.Pix[0:4])
	}
	last := (1*3 + 2) * 4
	if s.Pix[last+1] != 1 {
		t.Errorf("last texel = %v, want green", s.Pix[last:last+4])
	}
}

func TestLoadSky(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 4, 2))
	for y := 0; y < 2; y++ {
		for x := 0; x < 4; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: uint8(x * 60), G: uint8(y * 200), B: 10, A: 255})
		}
	}
	path := filepath.Join(t.TempDir(), "sky.png")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}

	s, err := LoadSky(path)
	if err != nil {
		t.Fatalf("LoadSky: %v", err)
	}
	if s.Width != 4 || s.Height != 2 {
		t.Fatalf("size = %dx%d, want 4x2", s.Width, s.Height)
	}
	i := (1*4 + 3) * 4
	if s.Pix[i] != float32(180)/255 || s.Pix[i+1] != float32(200)/255 {
		t.Errorf("texel (3,1) = %v", s.Pix[i:i+4])
	}
}

func TestLoadSkyErrors(t *testing.T) {
	dir := t.TempDir()
	if _, err := LoadSky(filepath.Join(dir, "missing.png")); err == nil {
		t.Error("expected error for missing file")
	}
	junk := filepath.Join(dir, "junk.png")
	if err := os.WriteFile(junk, []byte("not an image"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadSky(junk); err == nil {
		t.Error("expected error for undecodable file")
	}
}

func TestSkyBytes(t *testing.T) {
	s := DefaultSky()
	d := s.desc()
	if d.Size() != len(s.Bytes()) {
		t.Errorf("desc size %d does not match upload %d", d.Size(), len(s.Bytes()))
	}
}
