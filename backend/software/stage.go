package software

import (
	"fmt"

	"github.com/gogpu/lensing/gpucore"
)

// stage runs one reference kernel over the adapter's worker pool.
type stage struct {
	adapter  *Adapter
	kind     gpucore.StageKind
	bindings gpucore.Bindings
	uniforms gpucore.Uniforms
	bound    bool
}

var _ gpucore.Stage = (*stage)(nil)

func (s *stage) Kind() gpucore.StageKind { return s.kind }

func (s *stage) Bind(b *gpucore.Bindings, u *gpucore.Uniforms) {
	s.bindings = *b
	s.uniforms = *u
	s.bound = true
}

// Dispatch queues x*y workgroups. Each workgroup covers a tile of
// WorkgroupSize x WorkgroupSize pixels; pixels outside the uniform
// resolution are skipped.
func (s *stage) Dispatch(x, y uint32) error {
	if !s.bound {
		return fmt.Errorf("software: %s: dispatch before bind", s.kind)
	}
	if err := s.bindings.Validate(s.kind); err != nil {
		return err
	}
	if x == 0 || y == 0 {
		return nil
	}

	a := s.adapter
	bindings := s.bindings
	uniforms := s.uniforms
	kind := s.kind

	err := a.submit(func() {
		px, err := a.resolve(kind, &bindings, &uniforms)
		if err != nil {
			slogger().Warn("software: dispatch skipped", "stage", kind.String(), "err", err)
			return
		}
		a.runTiles(x, y, func(ix, iy int) {
			if kind == gpucore.StageCameraInit {
				initPixel(&uniforms, px, ix, iy)
			} else {
				advancePixel(&uniforms, px, ix, iy)
			}
		})
	})
	if err != nil {
		return err
	}

	if kind == gpucore.StageCameraInit {
		a.initDispatches.Add(1)
	} else {
		a.advanceDispatches.Add(1)
	}
	slogger().Debug("software: dispatch queued", "stage", kind.String(), "groups_x", x, "groups_y", y)
	return nil
}

// runTiles calls fn for every in-bounds pixel of the gx*gy workgroup grid,
// one pool task per workgroup.
func (a *Adapter) runTiles(gx, gy uint32, fn func(x, y int)) {
	ws := int(a.workgroupSize)
	cols := int(gx)
	a.pool.ForEach(int(gx*gy), func(i int) {
		x0 := (i % cols) * ws
		y0 := (i / cols) * ws
		for y := y0; y < y0+ws; y++ {
			for x := x0; x < x0+ws; x++ {
				fn(x, y)
			}
		}
	})
}

// resolve looks up the bound buffers and checks they cover the uniform
// resolution. Called on the queue goroutine.
func (a *Adapter) resolve(kind gpucore.StageKind, b *gpucore.Bindings, u *gpucore.Uniforms) (*pixels, error) {
	res := u.Resolution()
	if res.Width <= 0 || res.Height <= 0 {
		return nil, fmt.Errorf("empty resolution %s", res)
	}
	n := res.Pixels()

	get := func(id gpucore.BufferID, name string, want int, f32 bool) (*buffer, error) {
		buf := a.lookup(id)
		if buf == nil {
			return nil, fmt.Errorf("%s: %w: %d", name, gpucore.ErrUnknownBuffer, id)
		}
		have := len(buf.f32)
		if !f32 {
			have = len(buf.i32)
		}
		if have < want {
			return nil, fmt.Errorf("%s: %w: %d elements, need %d", name, gpucore.ErrSizeMismatch, have, want)
		}
		return buf, nil
	}

	px := &pixels{width: res.Width, height: res.Height}
	pos, err := get(b.Position, "position", n*4, true)
	if err != nil {
		return nil, err
	}
	dir, err := get(b.Direction, "direction", n*4, true)
	if err != nil {
		return nil, err
	}
	col, err := get(b.Color, "color", n*4, true)
	if err != nil {
		return nil, err
	}
	done, err := get(b.Complete, "isComplete", n, false)
	if err != nil {
		return nil, err
	}
	px.position, px.direction, px.color, px.complete = pos.f32, dir.f32, col.f32, done.i32

	if kind == gpucore.StageRayAdvance {
		nw := int(u.NoiseWidth)
		if nw <= 0 {
			return nil, fmt.Errorf("noise width %d", nw)
		}
		noise, err := get(b.Noise, "noise", nw*nw, true)
		if err != nil {
			return nil, err
		}
		sky, err := get(b.Sky, "sky", int(u.SkyWidth)*int(u.SkyHeight)*4, true)
		if err != nil {
			return nil, err
		}
		px.noise, px.noiseWidth = noise.f32, nw
		px.sky, px.skyWidth, px.skyHeight = sky.f32, int(u.SkyWidth), int(u.SkyHeight)
	}
	return px, nil
}
