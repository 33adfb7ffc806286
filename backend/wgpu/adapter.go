//go:build !nogpu

package wgpu

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/lensing/backend"
	"github.com/gogpu/lensing/gpucore"

	// Import Vulkan backend so it registers via init().
	_ "github.com/gogpu/wgpu/hal/vulkan"
)

func init() {
	backend.Register(backend.BackendWGPU, func() (gpucore.Adapter, error) {
		a, err := New()
		if err != nil {
			return nil, err
		}
		return a, nil
	})
}

// fenceTimeout bounds a single wait for the GPU.
const fenceTimeout = 10 * time.Second

// Errors returned by the wgpu adapter.
var (
	// ErrNoDevice is returned when no GPU adapter is available.
	ErrNoDevice = errors.New("wgpu: no GPU adapter found")

	// ErrFenceTimeout is returned when the GPU does not signal in time.
	ErrFenceTimeout = errors.New("wgpu: timed out waiting for GPU")

	// ErrInvalidProvider is returned by NewShared for providers that do not
	// expose HAL types.
	ErrInvalidProvider = errors.New("wgpu: provider does not expose HAL device and queue")
)

type buffer struct {
	desc gpucore.BufferDesc
	buf  hal.Buffer
	size uint64
}

// Adapter is the GPU compute backend.
type Adapter struct {
	mu sync.Mutex

	instance hal.Instance
	device   hal.Device
	queue    hal.Queue
	external bool // device is shared; don't destroy on Close
	gpuName  string

	buffers map[gpucore.BufferID]*buffer
	nextID  gpucore.BufferID

	// fence is signaled with submitted on every submission. completed is the
	// last value observed signaled.
	fence     hal.Fence
	submitted uint64
	completed uint64
	pending   []hal.CommandBuffer
	retired   []func()

	stages []*stage
	closed bool
}

var _ gpucore.Adapter = (*Adapter)(nil)

// New opens the first discrete or integrated GPU through the Vulkan backend.
func New() (*Adapter, error) {
	vk, ok := hal.GetBackend(gputypes.BackendVulkan)
	if !ok {
		return nil, fmt.Errorf("wgpu: vulkan backend not available")
	}
	instance, err := vk.CreateInstance(&hal.InstanceDescriptor{Flags: 0})
	if err != nil {
		return nil, fmt.Errorf("wgpu: create instance: %w", err)
	}
	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		instance.Destroy()
		return nil, ErrNoDevice
	}
	var selected *hal.ExposedAdapter
	for i := range adapters {
		if adapters[i].Info.DeviceType == gputypes.DeviceTypeDiscreteGPU ||
			adapters[i].Info.DeviceType == gputypes.DeviceTypeIntegratedGPU {
			selected = &adapters[i]
			break
		}
	}
	if selected == nil {
		selected = &adapters[0]
	}
	openDev, err := selected.Adapter.Open(gputypes.Features(0), gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		return nil, fmt.Errorf("wgpu: open device: %w", err)
	}

	a, err := newAdapter(openDev.Device, openDev.Queue, false)
	if err != nil {
		openDev.Device.Destroy()
		instance.Destroy()
		return nil, err
	}
	a.instance = instance
	a.gpuName = selected.Info.Name
	slogger().Info("wgpu: GPU initialized (standalone)", "adapter", a.gpuName)
	return a, nil
}

// NewShared creates an adapter on a device owned by the host application,
// e.g. a gogpu window. The provider must implement HalDevice() any and
// HalQueue() any returning hal.Device and hal.Queue. The device is not
// destroyed on Close.
func NewShared(provider gpucontext.DeviceProvider) (*Adapter, error) {
	type halProvider interface {
		HalDevice() any
		HalQueue() any
	}
	hp, ok := provider.(halProvider)
	if !ok {
		return nil, ErrInvalidProvider
	}
	device, ok := hp.HalDevice().(hal.Device)
	if !ok || device == nil {
		return nil, fmt.Errorf("%w: HalDevice is not hal.Device", ErrInvalidProvider)
	}
	queue, ok := hp.HalQueue().(hal.Queue)
	if !ok || queue == nil {
		return nil, fmt.Errorf("%w: HalQueue is not hal.Queue", ErrInvalidProvider)
	}

	a, err := newAdapter(device, queue, true)
	if err != nil {
		return nil, err
	}
	a.gpuName = "shared"
	slogger().Info("wgpu: using shared GPU device")
	return a, nil
}

func newAdapter(device hal.Device, queue hal.Queue, external bool) (*Adapter, error) {
	fence, err := device.CreateFence()
	if err != nil {
		return nil, fmt.Errorf("wgpu: create fence: %w", err)
	}
	return &Adapter{
		device:   device,
		queue:    queue,
		external: external,
		fence:    fence,
		buffers:  make(map[gpucore.BufferID]*buffer),
	}, nil
}

// Name returns "wgpu".
func (a *Adapter) Name() string { return backend.BackendWGPU }

// GPUName returns the name of the opened GPU, or "shared".
func (a *Adapter) GPUName() string { return a.gpuName }

// WorkgroupSize returns the @workgroup_size edge declared by the shaders.
func (a *Adapter) WorkgroupSize() uint32 { return gpucore.DefaultWorkgroupSize }

// SetLogger sets the logger for the wgpu backend.
func (a *Adapter) SetLogger(l *slog.Logger) { setLogger(l) }

// CreateBuffer allocates a storage buffer usable by both kernels and as a
// copy source for readback.
func (a *Adapter) CreateBuffer(desc *gpucore.BufferDesc) (gpucore.BufferID, error) {
	if desc == nil || desc.Width <= 0 || desc.Height <= 0 || desc.Format.BytesPerPixel() == 0 {
		return gpucore.InvalidID, fmt.Errorf("wgpu: invalid buffer descriptor %+v", desc)
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return gpucore.InvalidID, gpucore.ErrClosed
	}

	size := uint64(desc.Size()) //nolint:gosec // positive dimensions
	buf, err := a.device.CreateBuffer(&hal.BufferDescriptor{
		Label: desc.Label, Size: size,
		Usage: gputypes.BufferUsageStorage | gputypes.BufferUsageCopySrc | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return gpucore.InvalidID, fmt.Errorf("wgpu: create buffer %q: %w", desc.Label, err)
	}
	a.nextID++
	id := a.nextID
	a.buffers[id] = &buffer{desc: *desc, buf: buf, size: size}
	slogger().Debug("wgpu: buffer allocated",
		"id", uint64(id), "label", desc.Label, "bytes", size)
	return id, nil
}

// DestroyBuffer releases a buffer after the in-flight submission completes.
func (a *Adapter) DestroyBuffer(id gpucore.BufferID) {
	a.mu.Lock()
	defer a.mu.Unlock()
	b, ok := a.buffers[id]
	if !ok {
		return
	}
	delete(a.buffers, id)
	a.retire(func() { a.device.DestroyBuffer(b.buf) })
}

// WriteBuffer uploads data to the whole buffer. Queue writes are ordered
// before any later submission.
func (a *Adapter) WriteBuffer(id gpucore.BufferID, data []byte) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return gpucore.ErrClosed
	}
	b, ok := a.buffers[id]
	if !ok {
		return fmt.Errorf("%w: %d", gpucore.ErrUnknownBuffer, id)
	}
	if uint64(len(data)) != b.size {
		return fmt.Errorf("%w: got %d bytes, buffer %q holds %d",
			gpucore.ErrSizeMismatch, len(data), b.desc.Label, b.size)
	}
	a.queue.WriteBuffer(b.buf, 0, data)
	return nil
}

// ReadBuffer copies the buffer into a staging buffer, waits for the GPU and
// returns the contents.
func (a *Adapter) ReadBuffer(id gpucore.BufferID) ([]byte, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return nil, gpucore.ErrClosed
	}
	b, ok := a.buffers[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", gpucore.ErrUnknownBuffer, id)
	}

	staging, err := a.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "lensing_staging", Size: b.size,
		Usage: gputypes.BufferUsageMapRead | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("wgpu: create staging buffer: %w", err)
	}
	defer a.device.DestroyBuffer(staging)

	encoder, err := a.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: "lensing_readback"})
	if err != nil {
		return nil, fmt.Errorf("wgpu: create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding("lensing_readback"); err != nil {
		return nil, fmt.Errorf("wgpu: begin encoding: %w", err)
	}
	encoder.CopyBufferToBuffer(b.buf, staging, []hal.BufferCopy{
		{SrcOffset: 0, DstOffset: 0, Size: b.size},
	})
	cmdBuf, err := encoder.EndEncoding()
	if err != nil {
		return nil, fmt.Errorf("wgpu: end encoding: %w", err)
	}
	if err := a.submit(cmdBuf); err != nil {
		return nil, err
	}
	if err := a.waitIdle(); err != nil {
		return nil, err
	}

	out := make([]byte, b.size)
	if err := a.queue.ReadBuffer(staging, 0, out); err != nil {
		return nil, fmt.Errorf("wgpu: readback: %w", err)
	}
	return out, nil
}

// CreateStage builds the compute pipeline for kind.
func (a *Adapter) CreateStage(kind gpucore.StageKind) (gpucore.Stage, error) {
	src, err := shaderSource(kind)
	if err != nil {
		return nil, err
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return nil, gpucore.ErrClosed
	}
	s := &stage{adapter: a, kind: kind}
	if err := s.createPipeline(src); err != nil {
		s.destroy()
		return nil, fmt.Errorf("wgpu: %s: %w", kind, err)
	}
	a.stages = append(a.stages, s)
	return s, nil
}

// Close waits for the GPU and releases every resource the adapter created.
func (a *Adapter) Close() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return
	}
	if err := a.waitIdle(); err != nil {
		slogger().Warn("wgpu: close without idle GPU", "err", err)
	}
	a.closed = true

	for _, s := range a.stages {
		s.destroy()
	}
	a.stages = nil
	for id, b := range a.buffers {
		a.device.DestroyBuffer(b.buf)
		delete(a.buffers, id)
	}
	if a.fence != nil {
		a.device.DestroyFence(a.fence)
		a.fence = nil
	}

	if !a.external {
		if a.device != nil {
			a.device.Destroy()
		}
		if a.instance != nil {
			a.instance.Destroy()
		}
	}
	a.device = nil
	a.queue = nil
	a.instance = nil
}

// submit queues cmdBuf and signals the fence with the next value.
// Caller holds a.mu.
func (a *Adapter) submit(cmdBuf hal.CommandBuffer) error {
	value := a.submitted + 1
	if err := a.queue.Submit([]hal.CommandBuffer{cmdBuf}, a.fence, value); err != nil {
		a.device.FreeCommandBuffer(cmdBuf)
		return fmt.Errorf("wgpu: submit: %w", err)
	}
	a.submitted = value
	a.pending = append(a.pending, cmdBuf)
	return nil
}

// waitIdle blocks until the last submission completed, then frees its
// command buffers and runs retired releases. Caller holds a.mu.
func (a *Adapter) waitIdle() error {
	if a.completed == a.submitted {
		return nil
	}
	ok, err := a.device.Wait(a.fence, a.submitted, fenceTimeout)
	if err != nil {
		return fmt.Errorf("wgpu: wait for GPU: %w", err)
	}
	if !ok {
		return ErrFenceTimeout
	}
	a.completed = a.submitted

	for _, cb := range a.pending {
		a.device.FreeCommandBuffer(cb)
	}
	a.pending = a.pending[:0]
	for _, release := range a.retired {
		release()
	}
	a.retired = nil
	return nil
}

// retire runs release now if the GPU is idle, or after the next wait.
// Caller holds a.mu.
func (a *Adapter) retire(release func()) {
	if a.completed == a.submitted {
		release()
		return
	}
	a.retired = append(a.retired, release)
}
