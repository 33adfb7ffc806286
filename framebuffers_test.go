package lensing

import (
	"errors"
	"testing"

	"github.com/gogpu/lensing/backend/software"
	"github.com/gogpu/lensing/gpucore"
)

func newSoftwareAdapter(t *testing.T) *software.Adapter {
	t.Helper()
	a := software.New(software.WithWorkers(2))
	t.Cleanup(a.Close)
	return a
}

func TestFrameBufferSetEnsureResolution(t *testing.T) {
	tests := []struct {
		vp    Viewport
		scale int
		want  gpucore.Resolution
	}{
		{Viewport{Width: 16, Height: 9}, 1, gpucore.Resolution{Width: 16, Height: 9}},
		{Viewport{Width: 16, Height: 9}, 4, gpucore.Resolution{Width: 64, Height: 36}},
		{Viewport{Width: 3, Height: 5}, 2, gpucore.Resolution{Width: 6, Height: 10}},
		{Viewport{Width: 0, Height: 0}, 4, gpucore.Resolution{Width: 1, Height: 1}},
	}
	for _, tt := range tests {
		t.Run(tt.want.String(), func(t *testing.T) {
			a := newSoftwareAdapter(t)
			f := NewFrameBufferSet(a)
			t.Cleanup(f.Release)

			allocated, err := f.Ensure(tt.vp.Resolution(tt.scale))
			if err != nil {
				t.Fatalf("Ensure: %v", err)
			}
			if !allocated || !f.Allocated() {
				t.Error("buffers not allocated")
			}
			if f.Resolution() != tt.want {
				t.Errorf("Resolution() = %v, want %v", f.Resolution(), tt.want)
			}
			flags, err := f.ReadComplete()
			if err != nil {
				t.Fatalf("ReadComplete: %v", err)
			}
			if len(flags) != tt.want.Pixels() {
				t.Errorf("len(flags) = %d, want %d", len(flags), tt.want.Pixels())
			}
			color, err := f.ReadColor()
			if err != nil {
				t.Fatalf("ReadColor: %v", err)
			}
			if len(color) != 4*tt.want.Pixels() {
				t.Errorf("len(color) = %d, want %d", len(color), 4*tt.want.Pixels())
			}
		})
	}
}

func TestFrameBufferSetEnsureReuses(t *testing.T) {
	a := newSoftwareAdapter(t)
	f := NewFrameBufferSet(a)
	res := gpucore.Resolution{Width: 20, Height: 10}

	if _, err := f.Ensure(res); err != nil {
		t.Fatal(err)
	}
	before := a.Stats().Allocations
	ids := f.Bindings()

	allocated, err := f.Ensure(res)
	if err != nil {
		t.Fatal(err)
	}
	if allocated {
		t.Error("Ensure at the same resolution reported an allocation")
	}
	if got := a.Stats().Allocations - before; got != 0 {
		t.Errorf("repeated Ensure made %d allocations, want 0", got)
	}
	if f.Bindings() != ids {
		t.Error("buffer IDs changed on repeated Ensure")
	}
}

func TestFrameBufferSetEnsureResize(t *testing.T) {
	a := newSoftwareAdapter(t)
	f := NewFrameBufferSet(a)

	if _, err := f.Ensure(gpucore.Resolution{Width: 8, Height: 8}); err != nil {
		t.Fatal(err)
	}
	before := a.Stats()
	if _, err := f.Ensure(gpucore.Resolution{Width: 12, Height: 4}); err != nil {
		t.Fatal(err)
	}
	after := a.Stats()
	if got := after.Allocations - before.Allocations; got != 4 {
		t.Errorf("resize made %d allocations, want 4", got)
	}
	if got := after.Releases - before.Releases; got != 4 {
		t.Errorf("resize made %d releases, want 4", got)
	}
	if f.Resolution() != (gpucore.Resolution{Width: 12, Height: 4}) {
		t.Errorf("Resolution() = %v, want 12x4", f.Resolution())
	}
}

func TestFrameBufferSetBeforeEnsure(t *testing.T) {
	f := NewFrameBufferSet(newSoftwareAdapter(t))
	if f.Allocated() {
		t.Error("Allocated() = true before Ensure")
	}
	if f.Resolution() != (gpucore.Resolution{}) {
		t.Errorf("Resolution() = %v, want zero", f.Resolution())
	}
	if _, err := f.ReadComplete(); !errors.Is(err, ErrNoFrame) {
		t.Errorf("ReadComplete() error = %v, want ErrNoFrame", err)
	}
	if _, err := f.ReadColor(); !errors.Is(err, ErrNoFrame) {
		t.Errorf("ReadColor() error = %v, want ErrNoFrame", err)
	}
}

func TestFrameBufferSetRelease(t *testing.T) {
	a := newSoftwareAdapter(t)
	f := NewFrameBufferSet(a)
	if _, err := f.Ensure(gpucore.Resolution{Width: 4, Height: 4}); err != nil {
		t.Fatal(err)
	}
	f.Release()
	if f.Allocated() {
		t.Error("Allocated() = true after Release")
	}
	if err := a.Wait(); err != nil {
		t.Fatal(err)
	}
	if got := a.Stats().Releases; got != 4 {
		t.Errorf("Releases = %d, want 4", got)
	}
	// Release is idempotent.
	f.Release()
}

func TestAllComplete(t *testing.T) {
	tests := []struct {
		name  string
		flags []int32
		want  bool
	}{
		{"all set", []int32{1, 1, 1, 1}, true},
		{"none set", []int32{0, 0, 0, 0}, false},
		{"one unset", []int32{1, 1, 0, 1}, false},
		{"one set", []int32{0, 0, 1, 0}, false},
		{"last unset", []int32{1, 1, 1, 0}, false},
		{"any non-zero counts", []int32{1, -1, 7, 2}, true},
		{"empty", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := allComplete(tt.flags); got != tt.want {
				t.Errorf("allComplete(%v) = %v, want %v", tt.flags, got, tt.want)
			}
		})
	}
}

func TestCompleteFraction(t *testing.T) {
	if got := completeFraction([]int32{1, 0, 1, 0}); got != 0.5 {
		t.Errorf("completeFraction = %v, want 0.5", got)
	}
	if got := completeFraction(nil); got != 0 {
		t.Errorf("completeFraction(nil) = %v, want 0", got)
	}
}
