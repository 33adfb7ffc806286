package lensing

import (
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gogpu/lensing/gpucore"
)

// Driver runs the progressive render state machine on one adapter.
//
// Tick is called from a single host goroutine. Restart, Save, Present,
// Snapshot and the Set methods may be called from any goroutine.
type Driver struct {
	adapter gpucore.Adapter
	clock   Clock

	initStage    gpucore.Stage
	advanceStage gpucore.Stage

	// deviceMu serializes all device access: Tick, Save, Present, Snapshot
	// and Close.
	deviceMu sync.Mutex
	frames   *FrameBufferSet
	noiseID  gpucore.BufferID
	noiseRes gpucore.Resolution
	skyID    gpucore.BufferID
	skyRes   gpucore.Resolution
	params   RenderParameters
	cfg      Config // snapshot of config for the current render
	timer    *PollTimer
	started  time.Time
	polls    int
	closed   bool

	// mu guards the settings applied at the next restart.
	mu       sync.Mutex
	config   Config
	camera   Camera
	viewport Viewport
	sky      *Sky
	skyDirty bool
	writer   FrameWriter

	restart  atomic.Bool
	state    atomic.Int32
	progress atomic.Uint64 // float64 bits
}

// NewDriver creates a driver on a. The driver starts in
// StateAwaitingRestart with a render pending, so the first Tick
// initializes. The caller keeps ownership of a.
func NewDriver(a gpucore.Adapter, opts ...Option) (*Driver, error) {
	if a == nil {
		return nil, ErrNilAdapter
	}
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.sky == nil {
		o.sky = DefaultSky()
	}

	initStage, err := a.CreateStage(gpucore.StageCameraInit)
	if err != nil {
		return nil, fmt.Errorf("lensing: create camera init stage: %w", err)
	}
	advanceStage, err := a.CreateStage(gpucore.StageRayAdvance)
	if err != nil {
		return nil, fmt.Errorf("lensing: create ray advance stage: %w", err)
	}

	cfg := o.config.Normalize()
	d := &Driver{
		adapter:      a,
		clock:        o.clock,
		initStage:    initStage,
		advanceStage: advanceStage,
		frames:       NewFrameBufferSet(a),
		timer:        NewPollTimer(o.clock, cfg.Interval()),
		config:       cfg,
		camera:       o.camera,
		viewport:     o.viewport,
		sky:          o.sky,
		skyDirty:     true,
		writer:       o.writer,
	}
	d.state.Store(int32(StateAwaitingRestart))
	d.restart.Store(true)
	attachAdapter(a)
	return d, nil
}

// State returns the current render state.
func (d *Driver) State() State { return State(d.state.Load()) }

// Complete reports whether the current render has finished.
func (d *Driver) Complete() bool { return d.State() == StateComplete }

// Progress returns the fraction of complete pixels seen by the last
// completeness poll, in [0,1].
func (d *Driver) Progress() float64 { return math.Float64frombits(d.progress.Load()) }

// Params returns the parameters of the current render.
func (d *Driver) Params() RenderParameters {
	d.deviceMu.Lock()
	defer d.deviceMu.Unlock()
	return d.params
}

// Restart discards the current render. The next Tick starts a new one,
// reusing the existing buffers. Safe to call from any goroutine.
func (d *Driver) Restart() {
	d.restart.Store(true)
	d.state.Store(int32(StateAwaitingRestart))
	d.progress.Store(0)
}

// Config returns the current configuration.
func (d *Driver) Config() Config {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.config
}

// SetConfig replaces the configuration. Applied at the next restart.
func (d *Driver) SetConfig(cfg Config) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.config = cfg.Normalize()
}

// SetCamera replaces the camera. Applied at the next restart.
func (d *Driver) SetCamera(c Camera) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.camera = c
}

// SetViewport changes the display size. Applied at the next restart.
func (d *Driver) SetViewport(width, height int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.viewport = Viewport{Width: width, Height: height}
}

// SetSky replaces the environment map. Applied at the next restart.
func (d *Driver) SetSky(s *Sky) {
	if s == nil {
		s = DefaultSky()
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sky = s
	d.skyDirty = true
}

// Tick advances the state machine by one step. It returns an error only
// for fatal device conditions: allocation, submission or readback.
func (d *Driver) Tick() error {
	d.deviceMu.Lock()
	defer d.deviceMu.Unlock()
	if d.closed {
		return ErrClosed
	}

	// A Restart racing with this block either lands before the snapshot in
	// initialize or leaves the flag set for the next Tick.
	if d.restart.Swap(false) || d.State() == StateAwaitingRestart {
		d.state.Store(int32(StateInitializing))
		if err := d.initialize(); err != nil {
			d.state.CompareAndSwap(int32(StateInitializing), int32(StateAwaitingRestart))
			return err
		}
		d.state.CompareAndSwap(int32(StateInitializing), int32(StateAdvancing))
		return nil
	}

	if d.State() == StateAdvancing {
		gx, gy := gpucore.GroupCounts(d.params.Resolution, d.adapter.WorkgroupSize())
		if err := d.advanceStage.Dispatch(gx, gy); err != nil {
			return fmt.Errorf("lensing: dispatch ray advance: %w", err)
		}
		if !d.timer.Due() {
			return nil
		}
		done, err := d.poll()
		if err != nil {
			return err
		}
		if done && d.state.CompareAndSwap(int32(StateAdvancing), int32(StateComplete)) {
			d.onComplete()
		}
	}
	return nil
}

// initialize runs the Initializing step. Caller holds deviceMu.
func (d *Driver) initialize() error {
	d.mu.Lock()
	cfg, cam, vp := d.config, d.camera, d.viewport
	sky, skyDirty := d.sky, d.skyDirty
	d.skyDirty = false
	d.mu.Unlock()

	noise := GenerateNoise(cfg.NoiseOrigin, cfg.NoiseScale, cfg.NoiseWidth)
	if err := d.upload(&d.noiseID, &d.noiseRes, noise.desc(), noise.Bytes()); err != nil {
		return err
	}
	if skyDirty || !d.skyID.Valid() {
		if err := d.upload(&d.skyID, &d.skyRes, sky.desc(), sky.Bytes()); err != nil {
			return err
		}
	}

	d.cfg = cfg
	d.params = NewRenderParameters(cfg, cam, vp)
	if _, err := d.frames.Ensure(d.params.Resolution); err != nil {
		return err
	}

	bindings := d.frames.Bindings()
	bindings.Noise = d.noiseID
	bindings.Sky = d.skyID
	u := d.params.Uniforms(d.skyRes.Width, d.skyRes.Height)
	d.initStage.Bind(&bindings, &u)
	d.advanceStage.Bind(&bindings, &u)

	gx, gy := gpucore.GroupCounts(d.params.Resolution, d.adapter.WorkgroupSize())
	if err := d.initStage.Dispatch(gx, gy); err != nil {
		return fmt.Errorf("lensing: dispatch camera init: %w", err)
	}

	d.timer.SetInterval(cfg.Interval())
	d.timer.Reset()
	d.started = d.clock.Now()
	d.progress.Store(0)
	d.polls = 0
	Logger().Info("lensing: render started",
		"backend", d.adapter.Name(),
		"resolution", d.params.Resolution.String(),
		"noise", noise.Width,
		"groups", fmt.Sprintf("%dx%d", gx, gy))
	return nil
}

// upload writes data to the buffer in *id, reallocating it when the size
// changed.
func (d *Driver) upload(id *gpucore.BufferID, res *gpucore.Resolution, desc gpucore.BufferDesc, data []byte) error {
	if !id.Valid() || *res != desc.Resolution() {
		if id.Valid() {
			d.adapter.DestroyBuffer(*id)
		}
		newID, err := d.adapter.CreateBuffer(&desc)
		if err != nil {
			*id = gpucore.InvalidID
			return fmt.Errorf("lensing: allocate %s buffer: %w", desc.Label, err)
		}
		*id = newID
		*res = desc.Resolution()
	}
	if err := d.adapter.WriteBuffer(*id, data); err != nil {
		return fmt.Errorf("lensing: upload %s: %w", desc.Label, err)
	}
	return nil
}

// poll reads back the completion flags and scans all of them. Caller holds
// deviceMu.
func (d *Driver) poll() (bool, error) {
	flags, err := d.frames.ReadComplete()
	if err != nil {
		return false, err
	}
	d.polls++
	frac := completeFraction(flags)
	d.progress.Store(math.Float64bits(frac))
	// Restart stores the state before zeroing progress, so a restart that
	// raced with this poll is seen here.
	if d.State() != StateAdvancing {
		d.progress.Store(0)
	}
	Logger().Debug("lensing: completeness poll", "poll", d.polls, "complete", frac)
	return allComplete(flags), nil
}

// onComplete logs the elapsed time and exports when configured. Caller
// holds deviceMu.
func (d *Driver) onComplete() {
	elapsed := d.clock.Now().Sub(d.started)
	Logger().Info("lensing: render complete", "elapsed", elapsed, "polls", d.polls)

	if d.cfg.SaveToFile {
		// Failures are logged by save; the render stays complete.
		_, _ = d.save(d.cfg)
	}
}

// Save exports the current color buffer, complete or not, and returns the
// written path. Export settings come from the current Config.
func (d *Driver) Save() (string, error) {
	d.deviceMu.Lock()
	defer d.deviceMu.Unlock()
	if d.closed {
		return "", ErrClosed
	}
	return d.save(d.Config())
}

func (d *Driver) save(cfg Config) (string, error) {
	img, err := d.snapshot()
	if err != nil {
		Logger().Warn("lensing: export failed", "err", err)
		return "", err
	}
	path, err := d.frameWriter(cfg).WriteFrame(img)
	if err != nil {
		Logger().Warn("lensing: export failed", "err", err)
		return "", err
	}
	Logger().Info("lensing: frame saved", "path", path)
	return path, nil
}

// frameWriter returns the configured writer, or an Exporter built from cfg.
func (d *Driver) frameWriter(cfg Config) FrameWriter {
	d.mu.Lock()
	w := d.writer
	d.mu.Unlock()
	if w != nil {
		return w
	}
	return NewExporter(cfg)
}

// Close releases the driver's device buffers. The adapter is not closed.
func (d *Driver) Close() {
	d.deviceMu.Lock()
	defer d.deviceMu.Unlock()
	if d.closed {
		return
	}
	d.closed = true
	d.frames.Release()
	for _, id := range []gpucore.BufferID{d.noiseID, d.skyID} {
		if id.Valid() {
			d.adapter.DestroyBuffer(id)
		}
	}
	d.noiseID, d.skyID = gpucore.InvalidID, gpucore.InvalidID
	detachAdapter(d.adapter)
}
