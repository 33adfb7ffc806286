//go:build !nogpu

package wgpu

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/lensing/gpucore"
)

// stage is one compute pipeline plus the bind group of its current bindings.
type stage struct {
	adapter *Adapter
	kind    gpucore.StageKind

	shader     hal.ShaderModule
	bindLayout hal.BindGroupLayout
	pipeLayout hal.PipelineLayout
	pipeline   hal.ComputePipeline

	uniformBuf hal.Buffer
	bindGroup  hal.BindGroup

	bindings gpucore.Bindings
	uniforms gpucore.Uniforms
	bound    bool
	dirty    bool
}

var _ gpucore.Stage = (*stage)(nil)

func (s *stage) Kind() gpucore.StageKind { return s.kind }

func (s *stage) Bind(b *gpucore.Bindings, u *gpucore.Uniforms) {
	s.bindings = *b
	s.uniforms = *u
	s.bound = true
	s.dirty = true
}

// Dispatch records one compute pass of x*y workgroups and submits it. The
// previous submission is awaited first, so at most one is in flight.
func (s *stage) Dispatch(x, y uint32) error {
	a := s.adapter
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return gpucore.ErrClosed
	}
	if !s.bound {
		return fmt.Errorf("wgpu: %s: dispatch before bind", s.kind)
	}
	if err := s.bindings.Validate(s.kind); err != nil {
		return err
	}
	if x == 0 || y == 0 {
		return nil
	}

	if err := a.waitIdle(); err != nil {
		return err
	}
	if s.dirty {
		if err := s.rebind(); err != nil {
			return err
		}
		s.dirty = false
	}

	label := s.kind.String()
	encoder, err := a.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: label})
	if err != nil {
		return fmt.Errorf("wgpu: create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding(label); err != nil {
		return fmt.Errorf("wgpu: begin encoding: %w", err)
	}
	pass := encoder.BeginComputePass(&hal.ComputePassDescriptor{Label: label})
	pass.SetPipeline(s.pipeline)
	pass.SetBindGroup(0, s.bindGroup, nil)
	pass.Dispatch(x, y, 1)
	pass.End()

	cmdBuf, err := encoder.EndEncoding()
	if err != nil {
		return fmt.Errorf("wgpu: end encoding: %w", err)
	}
	if err := a.submit(cmdBuf); err != nil {
		return err
	}
	slogger().Debug("wgpu: dispatch submitted",
		"stage", label, "groups_x", x, "groups_y", y, "fence", a.submitted)
	return nil
}

// rebind uploads the uniforms and recreates the bind group. Caller holds
// a.mu and the GPU is idle.
func (s *stage) rebind() error {
	a := s.adapter
	if s.uniformBuf == nil {
		ub, err := a.device.CreateBuffer(&hal.BufferDescriptor{
			Label: s.kind.String() + "_uniforms", Size: gpucore.UniformsSize,
			Usage: gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst,
		})
		if err != nil {
			return fmt.Errorf("wgpu: create uniform buffer: %w", err)
		}
		s.uniformBuf = ub
	}
	a.queue.WriteBuffer(s.uniformBuf, 0, s.uniforms.Bytes())

	ids := []gpucore.BufferID{s.bindings.Position, s.bindings.Direction, s.bindings.Color, s.bindings.Complete}
	if s.kind == gpucore.StageRayAdvance {
		ids = append(ids, s.bindings.Noise, s.bindings.Sky)
	}
	entries := make([]gputypes.BindGroupEntry, 0, len(ids)+1)
	entries = append(entries, gputypes.BindGroupEntry{
		Binding:  0,
		Resource: gputypes.BufferBinding{Buffer: s.uniformBuf.NativeHandle(), Offset: 0, Size: gpucore.UniformsSize},
	})
	for i, id := range ids {
		b, ok := a.buffers[id]
		if !ok {
			return fmt.Errorf("wgpu: %s binding %d: %w: %d", s.kind, i+1, gpucore.ErrUnknownBuffer, id)
		}
		entries = append(entries, gputypes.BindGroupEntry{
			Binding:  uint32(i + 1), //nolint:gosec // at most 7 bindings
			Resource: gputypes.BufferBinding{Buffer: b.buf.NativeHandle(), Offset: 0, Size: b.size},
		})
	}

	bg, err := a.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label: s.kind.String() + "_bind", Layout: s.bindLayout, Entries: entries,
	})
	if err != nil {
		return fmt.Errorf("wgpu: create bind group: %w", err)
	}
	if s.bindGroup != nil {
		a.device.DestroyBindGroup(s.bindGroup)
	}
	s.bindGroup = bg
	return nil
}

// layoutEntries returns the bind group layout of kind: uniforms at 0, the
// four read-write ray buffers at 1-4, and read-only noise and sky at 5-6.
func layoutEntries(kind gpucore.StageKind) []gputypes.BindGroupLayoutEntry {
	entry := func(binding uint32, t gputypes.BufferBindingType) gputypes.BindGroupLayoutEntry {
		return gputypes.BindGroupLayoutEntry{
			Binding: binding, Visibility: gputypes.ShaderStageCompute,
			Buffer: &gputypes.BufferBindingLayout{Type: t},
		}
	}
	entries := []gputypes.BindGroupLayoutEntry{
		entry(0, gputypes.BufferBindingTypeUniform),
		entry(1, gputypes.BufferBindingTypeStorage),
		entry(2, gputypes.BufferBindingTypeStorage),
		entry(3, gputypes.BufferBindingTypeStorage),
		entry(4, gputypes.BufferBindingTypeStorage),
	}
	if kind == gpucore.StageRayAdvance {
		entries = append(entries,
			entry(5, gputypes.BufferBindingTypeReadOnlyStorage),
			entry(6, gputypes.BufferBindingTypeReadOnlyStorage),
		)
	}
	return entries
}

// createPipeline compiles src and builds the pipeline objects. Caller holds
// a.mu.
func (s *stage) createPipeline(src string) error {
	device := s.adapter.device
	label := s.kind.String()

	source := hal.ShaderSource{WGSL: src}
	if code, err := compileSPIRV(src); err == nil {
		source = hal.ShaderSource{SPIRV: code}
	} else {
		slogger().Warn("wgpu: naga compile failed, passing WGSL to the driver",
			"stage", label, "err", err)
	}
	shader, err := device.CreateShaderModule(&hal.ShaderModuleDescriptor{Label: label, Source: source})
	if err != nil {
		return fmt.Errorf("create shader module: %w", err)
	}
	s.shader = shader

	bindLayout, err := device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label: label + "_bind_layout", Entries: layoutEntries(s.kind),
	})
	if err != nil {
		return fmt.Errorf("create bind group layout: %w", err)
	}
	s.bindLayout = bindLayout

	pipeLayout, err := device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label: label + "_pipe_layout", BindGroupLayouts: []hal.BindGroupLayout{s.bindLayout},
	})
	if err != nil {
		return fmt.Errorf("create pipeline layout: %w", err)
	}
	s.pipeLayout = pipeLayout

	pipeline, err := device.CreateComputePipeline(&hal.ComputePipelineDescriptor{
		Label: label + "_pipeline", Layout: s.pipeLayout,
		Compute: hal.ComputeState{Module: s.shader, EntryPoint: gpucore.EntryPoint},
	})
	if err != nil {
		return fmt.Errorf("create compute pipeline: %w", err)
	}
	s.pipeline = pipeline
	return nil
}

// destroy releases the stage's GPU objects. Caller holds a.mu.
func (s *stage) destroy() {
	device := s.adapter.device
	if device == nil {
		return
	}
	if s.bindGroup != nil {
		device.DestroyBindGroup(s.bindGroup)
		s.bindGroup = nil
	}
	if s.uniformBuf != nil {
		device.DestroyBuffer(s.uniformBuf)
		s.uniformBuf = nil
	}
	if s.pipeline != nil {
		device.DestroyComputePipeline(s.pipeline)
		s.pipeline = nil
	}
	if s.pipeLayout != nil {
		device.DestroyPipelineLayout(s.pipeLayout)
		s.pipeLayout = nil
	}
	if s.bindLayout != nil {
		device.DestroyBindGroupLayout(s.bindLayout)
		s.bindLayout = nil
	}
	if s.shader != nil {
		device.DestroyShaderModule(s.shader)
		s.shader = nil
	}
}
