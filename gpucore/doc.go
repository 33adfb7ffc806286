// Package gpucore provides the device abstraction shared by the lensing
// render driver and its compute backends.
//
// The package defines the [Adapter] interface, which abstracts over the
// backends that own device memory and run the two compute stages:
//   - backend/wgpu (gogpu/wgpu HAL, WGSL kernels compiled by naga)
//   - backend/software (CPU reference kernels, used by tests and headless runs)
//
// # Architecture
//
//	               +------------------+
//	               |  lensing.Driver  |
//	               |  (state machine) |
//	               +--------+---------+
//	                        |
//	               +--------v---------+
//	               | gpucore.Adapter  |
//	               | gpucore.Stage    |
//	               +--------+---------+
//	                        |
//	         +--------------+--------------+
//	         |                             |
//	+--------v--------+          +--------v--------+
//	|  wgpu adapter   |          | software adapter|
//	|  (hal.Device)   |          |  (worker pool)  |
//	+-----------------+          +-----------------+
//
// # Stages
//
// Two kernels exist, selected by [StageKind]:
//
//  1. Camera init: writes the initial ray origin and direction for every
//     pixel and clears color and completion.
//
//  2. Ray advance: moves each active ray one step through the lensing
//     field and terminates it on escape, horizon capture or disk hit.
//
// Both are dispatched over 2D workgroup grids computed by [GroupCounts].
// The workgroup size must match the size declared by the kernels; each
// adapter reports its own through [Adapter.WorkgroupSize].
//
// # Resource Management
//
// Buffers are managed via opaque [BufferID] handles. Adapters track the
// mapping between IDs and backend resources. Buffer contents are written by
// stages and uploads only; the host reads them back with [Adapter.ReadBuffer],
// which synchronizes with every previously submitted dispatch.
//
// # Usage Example
//
//	adapter := software.New()
//	defer adapter.Close()
//
//	pos, err := adapter.CreateBuffer(&gpucore.BufferDesc{
//	    Label:  "position",
//	    Width:  res.Width,
//	    Height: res.Height,
//	    Format: gpucore.FormatRGBA32Float,
//	})
//	if err != nil {
//	    return err
//	}
//
//	stage, err := adapter.CreateStage(gpucore.StageCameraInit)
//	if err != nil {
//	    return err
//	}
//	stage.Bind(&bindings, &uniforms)
//	gx, gy := gpucore.GroupCounts(res, adapter.WorkgroupSize())
//	err = stage.Dispatch(gx, gy)
package gpucore
