package lensing

import (
	"github.com/aquilax/go-perlin"

	"github.com/gogpu/lensing/gpucore"
)

// Perlin parameters of the noise field. The seed is fixed so a given
// origin, scale and width always produce the same field.
const (
	noiseAlpha  = 2
	noiseBeta   = 2
	noiseOctave = 3
	noiseSeed   = 1337
)

// NoiseField is a square grid of coherent noise in [0,1]. The ray advance
// kernel uses it to dither step lengths and to texture the disk.
type NoiseField struct {
	Width  int
	Values []float32 // row-major, Width*Width
}

// GenerateNoise samples 2D Perlin noise on a width x width grid. Sample
// (x, y) is taken at (origin.x + x*scale.x/width, origin.y + y*scale.y/width)
// and remapped to [0,1]. A width below 1 is treated as 1.
//
// GenerateNoise is pure: equal arguments give equal fields.
func GenerateNoise(origin, scale [2]float64, width int) *NoiseField {
	width = max(width, 1)
	p := perlin.NewPerlin(noiseAlpha, noiseBeta, noiseOctave, noiseSeed)

	values := make([]float32, width*width)
	w := float64(width)
	for y := 0; y < width; y++ {
		yc := origin[1] + float64(y)*scale[1]/w
		for x := 0; x < width; x++ {
			xc := origin[0] + float64(x)*scale[0]/w
			v := (p.Noise2D(xc, yc) + 1) / 2
			values[y*width+x] = float32(min(max(v, 0), 1))
		}
	}
	return &NoiseField{Width: width, Values: values}
}

// At returns the sample at (x, y), wrapping both coordinates.
func (n *NoiseField) At(x, y int) float32 {
	x = ((x % n.Width) + n.Width) % n.Width
	y = ((y % n.Width) + n.Width) % n.Width
	return n.Values[y*n.Width+x]
}

// Bytes returns the field in the R32Float upload layout.
func (n *NoiseField) Bytes() []byte {
	return gpucore.Float32sToBytes(n.Values)
}

// desc returns the device buffer descriptor for the field.
func (n *NoiseField) desc() gpucore.BufferDesc {
	return gpucore.BufferDesc{Label: "noise", Width: n.Width, Height: n.Width, Format: gpucore.FormatR32Float}
}
