package lensing

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/gogpu/lensing/gpucore"
)

// Viewport is the display size in pixels. The ray buffers are ScaleFactor
// times larger in each dimension.
type Viewport struct {
	Width  int
	Height int
}

// Resolution returns the ray buffer resolution for scale, clamped to 1x1.
func (v Viewport) Resolution(scale int) gpucore.Resolution {
	scale = max(scale, 1)
	return gpucore.Resolution{Width: scale * v.Width, Height: scale * v.Height}.Clamp()
}

// RenderParameters is the immutable snapshot a render runs with. It is
// captured once per restart.
type RenderParameters struct {
	TimeStep       float32
	EscapeDistance float32
	HorizonRadius  float32
	DiskMax        float32
	DiskMult       float32
	DiskColor      [4]float32

	CameraToWorld     mgl32.Mat4
	InverseProjection mgl32.Mat4
	CameraCartesian   mgl32.Vec3
	CameraSpherical   mgl32.Vec3 // r, theta, phi

	Resolution gpucore.Resolution
	NoiseWidth int
}

// NewRenderParameters snapshots cfg, cam and vp. cfg is normalized first.
func NewRenderParameters(cfg Config, cam Camera, vp Viewport) RenderParameters {
	cfg = cfg.Normalize()
	res := vp.Resolution(cfg.ScaleFactor)
	aspect := float32(res.Width) / float32(res.Height)
	r, theta, phi := cam.Spherical()

	return RenderParameters{
		TimeStep:          cfg.TimeStep,
		EscapeDistance:    cfg.EscapeDistance,
		HorizonRadius:     cfg.HorizonRadius,
		DiskMax:           cfg.DiskMax,
		DiskMult:          cfg.DiskMult,
		DiskColor:         cfg.DiskColor,
		CameraToWorld:     cam.CameraToWorld(),
		InverseProjection: cam.InverseProjection(aspect),
		CameraCartesian:   cam.Position,
		CameraSpherical:   mgl32.Vec3{r, theta, phi},
		Resolution:        res,
		NoiseWidth:        cfg.NoiseWidth,
	}
}

// Uniforms converts p to the kernel uniform block for a sky of the given
// size.
func (p *RenderParameters) Uniforms(skyWidth, skyHeight int) gpucore.Uniforms {
	c, s := p.CameraCartesian, p.CameraSpherical
	return gpucore.Uniforms{
		CameraToWorld:     p.CameraToWorld,
		InverseProjection: p.InverseProjection,
		CameraCartesian:   [4]float32{c[0], c[1], c[2], 0},
		CameraSpherical:   [4]float32{s[0], s[1], s[2], 0},
		DiskColor:         p.DiskColor,
		Width:             uint32(p.Resolution.Width),  //nolint:gosec // clamped positive
		Height:            uint32(p.Resolution.Height), //nolint:gosec // clamped positive
		NoiseWidth:        uint32(p.NoiseWidth),        //nolint:gosec // clamped positive
		SkyWidth:          uint32(skyWidth),            //nolint:gosec // image size
		SkyHeight:         uint32(skyHeight),           //nolint:gosec // image size
		TimeStep:          p.TimeStep,
		EscapeDistance:    p.EscapeDistance,
		HorizonRadius:     p.HorizonRadius,
		DiskMax:           p.DiskMax,
		DiskMult:          p.DiskMult,
	}
}
