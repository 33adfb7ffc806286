// Package lensing renders a black hole with an accretion disk by marching
// light rays through a lensing field on a compute device.
//
// # Overview
//
// A render is progressive. Each call to [Driver.Tick] advances every ray by
// one small step, so a frame converges over many host ticks instead of in a
// single pass. The device work runs behind [gpucore.Adapter]: the wgpu
// backend dispatches WGSL kernels on the GPU, the software backend runs the
// same kernels on the CPU.
//
// # Quick Start
//
//	import (
//		"github.com/gogpu/lensing"
//		"github.com/gogpu/lensing/backend"
//		_ "github.com/gogpu/lensing/backend/software"
//		_ "github.com/gogpu/lensing/backend/wgpu"
//	)
//
//	adapter, err := backend.OpenDefault(lensing.Logger())
//	if err != nil { ... }
//	defer adapter.Close()
//
//	d, err := lensing.NewDriver(adapter, lensing.WithViewport(320, 180))
//	if err != nil { ... }
//	defer d.Close()
//
//	for d.State() != lensing.StateComplete {
//		if err := d.Tick(); err != nil { ... }
//	}
//	path, err := d.Save()
//
// # Render States
//
//	AwaitingRestart -> Initializing -> Advancing -> Complete
//
// Initializing regenerates the noise field, snapshots the parameters and
// writes the initial rays. Advancing dispatches one ray step per tick and
// polls the completion flags every [Config.UpdateInterval] seconds.
// [Driver.Restart] returns to AwaitingRestart from any state.
//
// # Coordinate System
//
// World space is right-handed with +Y up. The accretion disk lies in the
// y = 0 plane, centered on the black hole at the origin. Buffer row 0 is the
// top of the image.
package lensing

// Version is the current version of the module.
const Version = "0.1.0"
