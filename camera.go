package lensing

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Camera is a pinhole camera looking at Target.
type Camera struct {
	Position mgl32.Vec3
	Target   mgl32.Vec3
	Up       mgl32.Vec3

	// FovY is the vertical field of view in degrees.
	FovY float32

	Near float32
	Far  float32
}

// DefaultCamera returns a camera 20 units from the black hole, slightly
// above the disk plane.
func DefaultCamera() Camera {
	return OrbitCamera(20, 5, 60)
}

// OrbitCamera returns a camera at distance from the origin, raised by
// elevation degrees above the disk plane, looking at the origin.
func OrbitCamera(distance, elevation, fovY float32) Camera {
	e := float64(mgl32.DegToRad(mgl32.Clamp(elevation, -89, 89)))
	d := float64(distance)
	return Camera{
		Position: mgl32.Vec3{0, float32(d * math.Sin(e)), float32(-d * math.Cos(e))},
		Target:   mgl32.Vec3{0, 0, 0},
		Up:       mgl32.Vec3{0, 1, 0},
		FovY:     fovY,
		Near:     0.1,
		Far:      1000,
	}
}

// CameraToWorld returns the camera-to-world transform.
func (c Camera) CameraToWorld() mgl32.Mat4 {
	return mgl32.LookAtV(c.Position, c.Target, c.Up).Inv()
}

// Projection returns the perspective projection for the given aspect ratio.
func (c Camera) Projection(aspect float32) mgl32.Mat4 {
	return mgl32.Perspective(mgl32.DegToRad(c.FovY), aspect, c.Near, c.Far)
}

// InverseProjection returns the inverse of Projection(aspect).
func (c Camera) InverseProjection(aspect float32) mgl32.Mat4 {
	return c.Projection(aspect).Inv()
}

// Spherical returns the camera position in spherical coordinates with +Y
// as the polar axis: radius, polar angle theta from +Y and azimuth phi in
// the XZ plane.
func (c Camera) Spherical() (r, theta, phi float32) {
	p := c.Position
	r = p.Len()
	theta = float32(math.Atan2(math.Hypot(float64(p[0]), float64(p[2])), float64(p[1])))
	phi = float32(math.Atan2(float64(p[2]), float64(p[0])))
	return r, theta, phi
}
