package software

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/gogpu/lensing/gpucore"
)

// pixels is the resolved view of the buffers bound to one dispatch.
// Layouts match the WGSL storage arrays.
type pixels struct {
	width, height int

	position  []float32 // vec4 per pixel
	direction []float32 // vec4 per pixel
	color     []float32 // vec4 per pixel
	complete  []int32

	noise      []float32
	noiseWidth int

	sky                 []float32 // vec4 per texel
	skyWidth, skyHeight int
}

func (p *pixels) inBounds(x, y int) bool {
	return x >= 0 && y >= 0 && x < p.width && y < p.height
}

func load3(buf []float32, i int) mgl32.Vec3 {
	return mgl32.Vec3{buf[i*4], buf[i*4+1], buf[i*4+2]}
}

func store3(buf []float32, i int, v mgl32.Vec3) {
	buf[i*4], buf[i*4+1], buf[i*4+2], buf[i*4+3] = v[0], v[1], v[2], 0
}

func store4(buf []float32, i int, v mgl32.Vec4) {
	copy(buf[i*4:i*4+4], v[:])
}

// initPixel writes the initial ray for pixel (x, y): origin at the camera,
// direction through the pixel center. Row 0 is the top of the image.
func initPixel(u *gpucore.Uniforms, p *pixels, x, y int) {
	if !p.inBounds(x, y) {
		return
	}
	i := y*p.width + x

	origin := mgl32.Vec3{u.CameraCartesian[0], u.CameraCartesian[1], u.CameraCartesian[2]}
	ndcX := (float32(x)+0.5)/float32(p.width)*2 - 1
	ndcY := 1 - (float32(y)+0.5)/float32(p.height)*2

	view := mgl32.Mat4(u.InverseProjection).Mul4x1(mgl32.Vec4{ndcX, ndcY, 0, 1})
	world := mgl32.Mat4(u.CameraToWorld).Mul4x1(mgl32.Vec4{view[0], view[1], view[2], 0})
	dir := world.Vec3().Normalize()

	store3(p.position, i, origin)
	store3(p.direction, i, dir)

	if u.CameraSpherical[0] < u.HorizonRadius {
		store4(p.color, i, mgl32.Vec4{0, 0, 0, 1})
		p.complete[i] = 1
		return
	}
	store4(p.color, i, mgl32.Vec4{})
	p.complete[i] = 0
}

// advancePixel moves an active ray one step and resolves horizon capture,
// disk crossing and escape, in that order.
func advancePixel(u *gpucore.Uniforms, p *pixels, x, y int) {
	if !p.inBounds(x, y) {
		return
	}
	i := y*p.width + x
	if p.complete[i] != 0 {
		return
	}

	pos := load3(p.position, i)
	dir := load3(p.direction, i)

	n := p.noise[(y%p.noiseWidth)*p.noiseWidth+x%p.noiseWidth]
	r := max(pos.Len(), u.TimeStep)
	dt := u.TimeStep * r * (0.5 + n)

	c := pos.Cross(dir)
	h2 := c.Dot(c)
	r5 := r * r * r * r * r
	accel := pos.Mul(-1.5 * u.HorizonRadius * h2 / r5)

	next := dir.Add(accel.Mul(dt)).Normalize()
	moved := pos.Add(next.Mul(dt))

	if color, ok := terminate(u, p, pos, moved, next); ok {
		store4(p.color, i, color)
		p.complete[i] = 1
		return
	}
	store3(p.position, i, moved)
	store3(p.direction, i, next)
}

// terminate reports whether the step from pos to moved ends the ray, and the
// color it ends with.
func terminate(u *gpucore.Uniforms, p *pixels, pos, moved, dir mgl32.Vec3) (mgl32.Vec4, bool) {
	if moved.Len() < u.HorizonRadius {
		return mgl32.Vec4{0, 0, 0, 1}, true
	}

	if pos[1]*moved[1] < 0 && u.DiskMax > u.HorizonRadius {
		t := pos[1] / (pos[1] - moved[1])
		hit := pos.Add(moved.Sub(pos).Mul(t))
		rc := float32(math.Hypot(float64(hit[0]), float64(hit[2])))
		if rc >= u.HorizonRadius && rc <= u.DiskMax {
			su := float32(math.Atan2(float64(hit[2]), float64(hit[0])))/(2*math.Pi) + 0.5
			sv := (rc - u.HorizonRadius) / (u.DiskMax - u.HorizonRadius)
			n := p.noise[texel(sv, p.noiseWidth)*p.noiseWidth+texel(su, p.noiseWidth)]
			k := u.DiskMult * n
			dc := u.DiskColor
			return mgl32.Vec4{dc[0] * k, dc[1] * k, dc[2] * k, dc[3]}, true
		}
	}

	if moved.Len() > u.EscapeDistance {
		return sampleSky(p, dir), true
	}
	return mgl32.Vec4{}, false
}

// sampleSky returns the equirectangular sky texel seen along dir.
func sampleSky(p *pixels, dir mgl32.Vec3) mgl32.Vec4 {
	if p.skyWidth <= 0 || p.skyHeight <= 0 {
		return mgl32.Vec4{0, 0, 0, 1}
	}
	su := float32(math.Atan2(float64(dir[2]), float64(dir[0])))/(2*math.Pi) + 0.5
	sv := float32(math.Acos(float64(mgl32.Clamp(dir[1], -1, 1)))) / math.Pi
	i := texel(sv, p.skyHeight)*p.skyWidth + texel(su, p.skyWidth)
	return mgl32.Vec4{p.sky[i*4], p.sky[i*4+1], p.sky[i*4+2], p.sky[i*4+3]}
}

// texel maps t in [0,1] to a nearest texel index in [0,n).
func texel(t float32, n int) int {
	i := int(t * float32(n))
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}
