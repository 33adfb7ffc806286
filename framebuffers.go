package lensing

import (
	"fmt"

	"github.com/gogpu/lensing/gpucore"
)

// Ray buffer slots.
const (
	slotPosition = iota
	slotDirection
	slotColor
	slotComplete
	slotCount
)

var slotInfo = [slotCount]struct {
	label  string
	format gpucore.Format
}{
	slotPosition:  {"position", gpucore.FormatRGBA32Float},
	slotDirection: {"direction", gpucore.FormatRGBA32Float},
	slotColor:     {"color", gpucore.FormatRGBA32Float},
	slotComplete:  {"isComplete", gpucore.FormatR32Sint},
}

// FrameBufferSet owns the four per-pixel ray buffers: position, direction,
// color and the completion flag. All four share one resolution.
type FrameBufferSet struct {
	adapter gpucore.Adapter
	ids     [slotCount]gpucore.BufferID
	res     [slotCount]gpucore.Resolution
}

// NewFrameBufferSet returns an empty set. Buffers are created by Ensure.
func NewFrameBufferSet(a gpucore.Adapter) *FrameBufferSet {
	return &FrameBufferSet{adapter: a}
}

// Ensure makes every buffer exist at exactly res (clamped to 1x1). Buffers
// already at res are kept; others are released and reallocated. Reports
// whether anything was allocated.
func (f *FrameBufferSet) Ensure(res gpucore.Resolution) (bool, error) {
	res = res.Clamp()
	reallocated := false
	for slot := range f.ids {
		if f.ids[slot].Valid() && f.res[slot] == res {
			continue
		}
		if f.ids[slot].Valid() {
			f.adapter.DestroyBuffer(f.ids[slot])
			f.ids[slot] = gpucore.InvalidID
		}
		info := slotInfo[slot]
		id, err := f.adapter.CreateBuffer(&gpucore.BufferDesc{
			Label: info.label, Width: res.Width, Height: res.Height, Format: info.format,
		})
		if err != nil {
			return reallocated, fmt.Errorf("lensing: allocate %s buffer %s: %w", info.label, res, err)
		}
		f.ids[slot] = id
		f.res[slot] = res
		reallocated = true
	}
	if reallocated {
		Logger().Debug("lensing: ray buffers allocated", "resolution", res.String())
	}
	return reallocated, nil
}

// Resolution returns the current buffer resolution, or zero before Ensure.
func (f *FrameBufferSet) Resolution() gpucore.Resolution {
	if !f.ids[slotColor].Valid() {
		return gpucore.Resolution{}
	}
	return f.res[slotColor]
}

// Allocated reports whether all four buffers exist.
func (f *FrameBufferSet) Allocated() bool {
	for _, id := range f.ids {
		if !id.Valid() {
			return false
		}
	}
	return true
}

// Bindings returns the ray buffer bindings. Noise and Sky are left unset.
func (f *FrameBufferSet) Bindings() gpucore.Bindings {
	return gpucore.Bindings{
		Position:  f.ids[slotPosition],
		Direction: f.ids[slotDirection],
		Color:     f.ids[slotColor],
		Complete:  f.ids[slotComplete],
	}
}

// ReadComplete reads back the completion flags. Blocks until queued work
// has finished.
func (f *FrameBufferSet) ReadComplete() ([]int32, error) {
	if !f.ids[slotComplete].Valid() {
		return nil, ErrNoFrame
	}
	data, err := f.adapter.ReadBuffer(f.ids[slotComplete])
	if err != nil {
		return nil, fmt.Errorf("lensing: read completion flags: %w", err)
	}
	return gpucore.BytesToInt32s(data), nil
}

// ReadColor reads back the RGBA color buffer. Blocks until queued work has
// finished.
func (f *FrameBufferSet) ReadColor() ([]float32, error) {
	if !f.ids[slotColor].Valid() {
		return nil, ErrNoFrame
	}
	data, err := f.adapter.ReadBuffer(f.ids[slotColor])
	if err != nil {
		return nil, fmt.Errorf("lensing: read color buffer: %w", err)
	}
	return gpucore.BytesToFloat32s(data), nil
}

// Release destroys all buffers.
func (f *FrameBufferSet) Release() {
	for slot, id := range f.ids {
		if id.Valid() {
			f.adapter.DestroyBuffer(id)
		}
		f.ids[slot] = gpucore.InvalidID
		f.res[slot] = gpucore.Resolution{}
	}
}

// allComplete reports whether every flag is set. An empty slice is not
// complete.
func allComplete(flags []int32) bool {
	if len(flags) == 0 {
		return false
	}
	for _, v := range flags {
		if v == 0 {
			return false
		}
	}
	return true
}

// completeFraction returns the fraction of set flags.
func completeFraction(flags []int32) float64 {
	if len(flags) == 0 {
		return 0
	}
	n := 0
	for _, v := range flags {
		if v != 0 {
			n++
		}
	}
	return float64(n) / float64(len(flags))
}
