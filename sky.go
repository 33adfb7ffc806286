package lensing

import (
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg" // sky decoders
	_ "image/png"
	"os"

	_ "github.com/ftrvxmtrx/tga"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/gogpu/lensing/gpucore"
)

// Sky is an equirectangular environment map. Column u covers azimuth
// atan2(z, x) from -pi to pi; row 0 looks straight up (+Y).
type Sky struct {
	Width  int
	Height int
	Pix    []float32 // RGBA, row-major, values in [0,1]
}

// SolidSky returns a 1x1 sky of a single color.
func SolidSky(c color.Color) *Sky {
	s := &Sky{Width: 1, Height: 1, Pix: make([]float32, 4)}
	s.set(0, c)
	return s
}

// GradientSky returns a 1-pixel-wide sky fading from zenith to nadir over
// height rows.
func GradientSky(zenith, nadir color.Color, height int) *Sky {
	height = max(height, 1)
	s := &Sky{Width: 1, Height: height, Pix: make([]float32, height*4)}
	z := toFloat(zenith)
	n := toFloat(nadir)
	for y := 0; y < height; y++ {
		t := float32(0)
		if height > 1 {
			t = float32(y) / float32(height-1)
		}
		for i := 0; i < 4; i++ {
			s.Pix[y*4+i] = z[i] + (n[i]-z[i])*t
		}
	}
	return s
}

// DefaultSky returns a dark blue gradient.
func DefaultSky() *Sky {
	return GradientSky(color.NRGBA{R: 10, G: 20, B: 60, A: 255}, color.NRGBA{R: 2, G: 2, B: 8, A: 255}, 64)
}

// SkyFromImage converts img to a Sky.
func SkyFromImage(img image.Image) *Sky {
	b := img.Bounds()
	s := &Sky{Width: b.Dx(), Height: b.Dy(), Pix: make([]float32, b.Dx()*b.Dy()*4)}
	for y := 0; y < s.Height; y++ {
		for x := 0; x < s.Width; x++ {
			s.set(y*s.Width+x, img.At(b.Min.X+x, b.Min.Y+y))
		}
	}
	return s
}

// LoadSky decodes an equirectangular image. JPEG, PNG, TGA, BMP, TIFF and
// WebP are supported.
func LoadSky(path string) (*Sky, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("lensing: open sky: %w", err)
	}
	defer f.Close()

	img, format, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("lensing: decode sky %s: %w", path, err)
	}
	s := SkyFromImage(img)
	Logger().Debug("lensing: sky loaded", "path", path, "format", format,
		"size", gpucore.Resolution{Width: s.Width, Height: s.Height}.String())
	return s, nil
}

// Bytes returns the sky in the RGBA32Float upload layout.
func (s *Sky) Bytes() []byte {
	return gpucore.Float32sToBytes(s.Pix)
}

func (s *Sky) desc() gpucore.BufferDesc {
	return gpucore.BufferDesc{Label: "sky", Width: s.Width, Height: s.Height, Format: gpucore.FormatRGBA32Float}
}

func (s *Sky) set(i int, c color.Color) {
	f := toFloat(c)
	copy(s.Pix[i*4:i*4+4], f[:])
}

// toFloat converts c to non-premultiplied RGBA in [0,1].
func toFloat(c color.Color) [4]float32 {
	n := color.NRGBAModel.Convert(c).(color.NRGBA)
	return [4]float32{
		float32(n.R) / 255,
		float32(n.G) / 255,
		float32(n.B) / 255,
		float32(n.A) / 255,
	}
}
