// Package wgpu runs the lensing kernels on the GPU through gogpu/wgpu's
// hardware abstraction layer.
//
// Ray buffers are device storage buffers. Both kernels are WGSL compute
// shaders compiled to SPIR-V with naga and dispatched on a single queue:
//
//	CameraInit: uniforms + Position/Direction/Color/isComplete
//	RayAdvance: uniforms + Position/Direction/Color/isComplete + Noise + Sky
//
// Submissions are tracked with one fence whose value increases per submit.
// Before a new dispatch is recorded the adapter waits for the previous one,
// so at most one dispatch is in flight. ReadBuffer copies into a mappable
// staging buffer and waits on the fence.
//
// The adapter registers itself as backend "wgpu" on import. Builds with the
// nogpu tag leave the package empty.
//
// Sharing a device with a host application:
//
//	a, err := wgpu.NewShared(provider) // provider exposes HalDevice/HalQueue
package wgpu
