package gpucore

import "fmt"

// Adapter abstracts over the compute backends that own device buffers and
// run the lensing kernels.
//
// Submission model:
//   - Dispatches and uploads are queued in call order and execute in that
//     order on a single device queue.
//   - Stage.Dispatch does not wait for the work to finish.
//   - ReadBuffer waits for all previously queued work before reading.
//
// Resource lifecycle:
//   - Buffers are created via CreateBuffer and released via DestroyBuffer.
//   - Destroying a buffer still referenced by queued work is allowed; the
//     adapter keeps it alive until that work has run.
//   - IDs become invalid after destruction and are never reused.
type Adapter interface {
	// Name returns a short backend name for logging ("software", "wgpu").
	Name() string

	// WorkgroupSize returns the edge length of the square workgroup tile
	// declared by this adapter's kernels.
	WorkgroupSize() uint32

	// CreateBuffer allocates a 2D buffer. Returns an error if allocation fails.
	CreateBuffer(desc *BufferDesc) (BufferID, error)

	// DestroyBuffer releases a buffer. Unknown IDs are ignored.
	DestroyBuffer(id BufferID)

	// WriteBuffer uploads data covering the whole buffer.
	// len(data) must equal the buffer size.
	WriteBuffer(id BufferID, data []byte) error

	// ReadBuffer reads the whole buffer back to host memory.
	// This synchronizes with the device and may stall the caller.
	ReadBuffer(id BufferID) ([]byte, error)

	// CreateStage creates the compute stage of the given kind.
	CreateStage(kind StageKind) (Stage, error)

	// Close waits for queued work and releases all resources.
	Close()
}

// StageKind selects one of the two compute kernels.
type StageKind int

const (
	// StageCameraInit writes initial per-pixel ray state.
	StageCameraInit StageKind = iota

	// StageRayAdvance advances every active ray by one step.
	StageRayAdvance
)

// String returns the string representation of StageKind.
func (k StageKind) String() string {
	switch k {
	case StageCameraInit:
		return "camera_init"
	case StageRayAdvance:
		return "ray_advance"
	default:
		return fmt.Sprintf("StageKind(%d)", int(k))
	}
}

// Stage is a compute kernel with its bindings.
//
// Usage:
//  1. Bind the buffers and uniforms for the current render
//  2. Dispatch workgroups (repeatable with the same bindings)
//
// A Stage is NOT safe for concurrent use.
type Stage interface {
	// Kind returns the kernel this stage runs.
	Kind() StageKind

	// Bind records the buffers and uniforms used by subsequent dispatches.
	// The uniforms are copied; later changes to u have no effect.
	Bind(b *Bindings, u *Uniforms)

	// Dispatch queues x*y workgroups. It does not wait for completion.
	Dispatch(x, y uint32) error
}

// Bindings names the buffers bound to a stage.
//
// Binding indices (both kernels):
//
//	0 uniforms
//	1 Position   vec4<f32> per pixel
//	2 Direction  vec4<f32> per pixel
//	3 Color      vec4<f32> per pixel
//	4 isComplete i32 per pixel
//	5 Noise      f32, NoiseWidth x NoiseWidth (advance only)
//	6 Sky        vec4<f32>, SkyWidth x SkyHeight (advance only)
type Bindings struct {
	Position  BufferID
	Direction BufferID
	Color     BufferID
	Complete  BufferID
	Noise     BufferID
	Sky       BufferID
}

// Validate checks that the buffers required by kind are set.
func (b *Bindings) Validate(kind StageKind) error {
	if !b.Position.Valid() || !b.Direction.Valid() || !b.Color.Valid() || !b.Complete.Valid() {
		return fmt.Errorf("gpucore: %s: ray buffers not bound", kind)
	}
	if kind == StageRayAdvance && (!b.Noise.Valid() || !b.Sky.Valid()) {
		return fmt.Errorf("gpucore: %s: noise or sky buffer not bound", kind)
	}
	return nil
}
