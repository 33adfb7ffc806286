// Package software provides a CPU implementation of gpucore.Adapter.
//
// Buffers live in host memory and the two compute stages are reference
// kernels written in Go. The adapter keeps the device submission model:
// uploads, dispatches and releases are queued and executed in order on a
// single queue goroutine, and ReadBuffer waits for everything queued before
// it. Within a dispatch, workgroups are spread across a worker pool.
//
// The software adapter is registered as backend "software" on import:
//
//	import _ "github.com/gogpu/lensing/backend/software"
package software

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/gogpu/lensing/backend"
	"github.com/gogpu/lensing/gpucore"
	"github.com/gogpu/lensing/internal/parallel"
)

func init() {
	backend.Register(backend.BackendSoftware, func() (gpucore.Adapter, error) {
		return New(), nil
	})
}

// queueDepth bounds the number of queued commands before Dispatch blocks.
const queueDepth = 64

// Stats counts adapter operations. Used by tests and diagnostics.
type Stats struct {
	Allocations       int64
	Releases          int64
	Uploads           int64
	Readbacks         int64
	InitDispatches    int64
	AdvanceDispatches int64
}

// Option configures an Adapter.
type Option func(*options)

type options struct {
	workers       int
	workgroupSize uint32
}

// WithWorkers sets the number of pool workers. 0 selects GOMAXPROCS.
func WithWorkers(n int) Option {
	return func(o *options) { o.workers = n }
}

// WithWorkgroupSize overrides the workgroup tile edge. 0 keeps the default.
func WithWorkgroupSize(n uint32) Option {
	return func(o *options) {
		if n > 0 {
			o.workgroupSize = n
		}
	}
}

// buffer is a host-memory 2D buffer. Exactly one of f32/i32 is set,
// depending on the format.
type buffer struct {
	desc gpucore.BufferDesc
	f32  []float32
	i32  []int32
}

// Adapter is the CPU compute backend.
type Adapter struct {
	// mu guards buffers and nextID. Queued commands take it too, so it is
	// never held while sending on queue.
	mu      sync.Mutex
	buffers map[gpucore.BufferID]*buffer
	nextID  gpucore.BufferID

	// sendMu guards closed and sends on queue.
	sendMu sync.Mutex
	closed bool

	queue chan func()
	done  chan struct{}
	pool  *parallel.WorkerPool

	workgroupSize uint32

	allocations       atomic.Int64
	releases          atomic.Int64
	uploads           atomic.Int64
	readbacks         atomic.Int64
	initDispatches    atomic.Int64
	advanceDispatches atomic.Int64
}

var _ gpucore.Adapter = (*Adapter)(nil)

// New creates a software adapter and starts its queue.
func New(opts ...Option) *Adapter {
	o := options{workgroupSize: gpucore.DefaultWorkgroupSize}
	for _, opt := range opts {
		opt(&o)
	}

	a := &Adapter{
		buffers:       make(map[gpucore.BufferID]*buffer),
		queue:         make(chan func(), queueDepth),
		done:          make(chan struct{}),
		pool:          parallel.NewWorkerPool(o.workers),
		workgroupSize: o.workgroupSize,
	}
	go a.loop()
	slogger().Debug("software adapter created",
		"workers", a.pool.Workers(),
		"workgroup", a.workgroupSize)
	return a
}

// loop executes queued commands in submission order.
func (a *Adapter) loop() {
	defer close(a.done)
	for cmd := range a.queue {
		cmd()
	}
}

// submit queues cmd. Returns ErrClosed after Close.
func (a *Adapter) submit(cmd func()) error {
	a.sendMu.Lock()
	defer a.sendMu.Unlock()
	if a.closed {
		return gpucore.ErrClosed
	}
	a.queue <- cmd
	return nil
}

func (a *Adapter) isClosed() bool {
	a.sendMu.Lock()
	defer a.sendMu.Unlock()
	return a.closed
}

// Name returns "software".
func (a *Adapter) Name() string { return backend.BackendSoftware }

// WorkgroupSize returns the workgroup tile edge used to split dispatches.
func (a *Adapter) WorkgroupSize() uint32 { return a.workgroupSize }

// SetLogger sets the logger for the software backend.
func (a *Adapter) SetLogger(l *slog.Logger) { setLogger(l) }

// Stats returns a snapshot of the operation counters.
func (a *Adapter) Stats() Stats {
	return Stats{
		Allocations:       a.allocations.Load(),
		Releases:          a.releases.Load(),
		Uploads:           a.uploads.Load(),
		Readbacks:         a.readbacks.Load(),
		InitDispatches:    a.initDispatches.Load(),
		AdvanceDispatches: a.advanceDispatches.Load(),
	}
}

// CreateBuffer allocates a zeroed host buffer.
func (a *Adapter) CreateBuffer(desc *gpucore.BufferDesc) (gpucore.BufferID, error) {
	if desc == nil || desc.Width <= 0 || desc.Height <= 0 {
		return gpucore.InvalidID, fmt.Errorf("software: invalid buffer descriptor %+v", desc)
	}
	b := &buffer{desc: *desc}
	n := desc.Width * desc.Height
	switch desc.Format {
	case gpucore.FormatRGBA32Float:
		b.f32 = make([]float32, n*4)
	case gpucore.FormatR32Float:
		b.f32 = make([]float32, n)
	case gpucore.FormatR32Sint:
		b.i32 = make([]int32, n)
	default:
		return gpucore.InvalidID, fmt.Errorf("software: unsupported format %v", desc.Format)
	}

	if a.isClosed() {
		return gpucore.InvalidID, gpucore.ErrClosed
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	a.nextID++
	id := a.nextID
	a.buffers[id] = b
	a.allocations.Add(1)
	slogger().Debug("software: buffer allocated",
		"id", uint64(id), "label", desc.Label,
		"size", desc.Resolution().String(), "format", desc.Format.String())
	return id, nil
}

// DestroyBuffer releases a buffer once queued work referencing it has run.
func (a *Adapter) DestroyBuffer(id gpucore.BufferID) {
	if !id.Valid() {
		return
	}
	err := a.submit(func() {
		a.mu.Lock()
		delete(a.buffers, id)
		a.mu.Unlock()
	})
	if err == nil {
		a.releases.Add(1)
	}
}

// lookup returns the buffer for id, or nil.
func (a *Adapter) lookup(id gpucore.BufferID) *buffer {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.buffers[id]
}

// WriteBuffer queues an upload of data into the whole buffer.
func (a *Adapter) WriteBuffer(id gpucore.BufferID, data []byte) error {
	b := a.lookup(id)
	if b == nil {
		return fmt.Errorf("%w: %d", gpucore.ErrUnknownBuffer, id)
	}
	if len(data) != b.desc.Size() {
		return fmt.Errorf("%w: got %d bytes, buffer %q holds %d",
			gpucore.ErrSizeMismatch, len(data), b.desc.Label, b.desc.Size())
	}

	// Decode now so the caller may reuse data after WriteBuffer returns.
	var f32 []float32
	var i32 []int32
	if b.i32 != nil {
		i32 = gpucore.BytesToInt32s(data)
	} else {
		f32 = gpucore.BytesToFloat32s(data)
	}
	if err := a.submit(func() {
		if i32 != nil {
			copy(b.i32, i32)
		} else {
			copy(b.f32, f32)
		}
	}); err != nil {
		return err
	}
	a.uploads.Add(1)
	return nil
}

// ReadBuffer waits for all queued work and returns the buffer contents.
func (a *Adapter) ReadBuffer(id gpucore.BufferID) ([]byte, error) {
	type result struct {
		data []byte
		err  error
	}
	reply := make(chan result, 1)
	err := a.submit(func() {
		b := a.lookup(id)
		if b == nil {
			reply <- result{err: fmt.Errorf("%w: %d", gpucore.ErrUnknownBuffer, id)}
			return
		}
		if b.i32 != nil {
			reply <- result{data: int32sToBytes(b.i32)}
			return
		}
		reply <- result{data: gpucore.Float32sToBytes(b.f32)}
	})
	if err != nil {
		return nil, err
	}
	r := <-reply
	if r.err == nil {
		a.readbacks.Add(1)
	}
	return r.data, r.err
}

// Wait blocks until every queued command has executed.
func (a *Adapter) Wait() error {
	fence := make(chan struct{})
	if err := a.submit(func() { close(fence) }); err != nil {
		return err
	}
	<-fence
	return nil
}

// CreateStage returns the reference kernel of the given kind.
func (a *Adapter) CreateStage(kind gpucore.StageKind) (gpucore.Stage, error) {
	switch kind {
	case gpucore.StageCameraInit, gpucore.StageRayAdvance:
		return &stage{adapter: a, kind: kind}, nil
	default:
		return nil, fmt.Errorf("%w: %v", gpucore.ErrUnknownStage, kind)
	}
}

// Close drains the queue, stops the worker pool and frees all buffers.
// Close is safe to call multiple times.
func (a *Adapter) Close() {
	a.sendMu.Lock()
	if a.closed {
		a.sendMu.Unlock()
		return
	}
	a.closed = true
	close(a.queue)
	a.sendMu.Unlock()

	<-a.done
	a.pool.Close()

	a.mu.Lock()
	a.buffers = make(map[gpucore.BufferID]*buffer)
	a.mu.Unlock()
}

func int32sToBytes(v []int32) []byte {
	out := make([]byte, len(v)*4)
	for i, x := range v {
		u := uint32(x) //nolint:gosec // bit reinterpretation
		out[i*4] = byte(u)
		out[i*4+1] = byte(u >> 8)
		out[i*4+2] = byte(u >> 16)
		out[i*4+3] = byte(u >> 24)
	}
	return out
}
