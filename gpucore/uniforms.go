package gpucore

import (
	"encoding/binary"
	"math"
)

// UniformsSize is the size of Uniforms in bytes as laid out for the kernels.
const UniformsSize = 224

// Uniforms is the per-render parameter block shared by both kernels.
// Must match the Uniforms struct in camera_init.wgsl and ray_advance.wgsl.
//
// Matrices are column-major, as in mgl32 and WGSL.
type Uniforms struct {
	CameraToWorld     [16]float32
	InverseProjection [16]float32
	CameraCartesian   [4]float32 // xyz + pad
	CameraSpherical   [4]float32 // r, theta, phi, pad
	DiskColor         [4]float32 // RGBA

	Width      uint32
	Height     uint32
	NoiseWidth uint32
	SkyWidth   uint32

	SkyHeight      uint32
	TimeStep       float32
	EscapeDistance float32
	HorizonRadius  float32

	DiskMax  float32
	DiskMult float32
	Padding0 uint32
	Padding1 uint32
}

// Bytes serializes u in little-endian order for upload.
func (u *Uniforms) Bytes() []byte {
	out := make([]byte, 0, UniformsSize)
	putF := func(v float32) { out = binary.LittleEndian.AppendUint32(out, math.Float32bits(v)) }
	putU := func(v uint32) { out = binary.LittleEndian.AppendUint32(out, v) }

	for _, v := range u.CameraToWorld {
		putF(v)
	}
	for _, v := range u.InverseProjection {
		putF(v)
	}
	for _, v := range u.CameraCartesian {
		putF(v)
	}
	for _, v := range u.CameraSpherical {
		putF(v)
	}
	for _, v := range u.DiskColor {
		putF(v)
	}
	putU(u.Width)
	putU(u.Height)
	putU(u.NoiseWidth)
	putU(u.SkyWidth)
	putU(u.SkyHeight)
	putF(u.TimeStep)
	putF(u.EscapeDistance)
	putF(u.HorizonRadius)
	putF(u.DiskMax)
	putF(u.DiskMult)
	putU(u.Padding0)
	putU(u.Padding1)
	return out
}

// Resolution returns the ray buffer resolution carried by u.
func (u *Uniforms) Resolution() Resolution {
	return Resolution{Width: int(u.Width), Height: int(u.Height)}
}

// Float32sToBytes packs v little-endian.
func Float32sToBytes(v []float32) []byte {
	out := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(out[i*4:], math.Float32bits(f))
	}
	return out
}

// BytesToFloat32s unpacks little-endian float32 values.
func BytesToFloat32s(b []byte) []float32 {
	out := make([]float32, len(b)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return out
}

// BytesToInt32s unpacks little-endian int32 values.
func BytesToInt32s(b []byte) []int32 {
	out := make([]int32, len(b)/4)
	for i := range out {
		out[i] = int32(binary.LittleEndian.Uint32(b[i*4:])) //nolint:gosec // bit reinterpretation
	}
	return out
}
