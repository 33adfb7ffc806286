package gpucore

import (
	"errors"
	"fmt"
)

// Adapter errors.
var (
	// ErrUnknownBuffer is returned when a BufferID does not name a live buffer.
	ErrUnknownBuffer = errors.New("gpucore: unknown buffer")

	// ErrClosed is returned when an adapter is used after Close.
	ErrClosed = errors.New("gpucore: adapter is closed")

	// ErrSizeMismatch is returned when uploaded data does not match the buffer size.
	ErrSizeMismatch = errors.New("gpucore: data size does not match buffer size")

	// ErrUnknownStage is returned for an unsupported StageKind.
	ErrUnknownStage = errors.New("gpucore: unknown stage kind")
)

// Resource IDs
//
// BufferID is an opaque handle to a device buffer. Each adapter maintains
// a mapping between IDs and actual backend resources.
type BufferID uint64

// InvalidID is the zero value, representing an invalid/null resource.
const InvalidID BufferID = 0

// Valid reports whether id names a resource.
func (id BufferID) Valid() bool { return id != InvalidID }

// Format specifies the per-element layout of a 2D buffer.
type Format uint32

// Buffer formats.
const (
	// FormatRGBA32Float is four 32-bit floats per pixel (vec4<f32>).
	// Used for position and direction (xyz + pad) and color (RGBA).
	FormatRGBA32Float Format = iota + 1

	// FormatR32Sint is one signed 32-bit integer per pixel.
	// Used for the completion flag.
	FormatR32Sint

	// FormatR32Float is one 32-bit float per pixel.
	// Used for the noise field.
	FormatR32Float
)

// BytesPerPixel returns the element size of the format in bytes.
func (f Format) BytesPerPixel() int {
	switch f {
	case FormatRGBA32Float:
		return 16
	case FormatR32Sint, FormatR32Float:
		return 4
	default:
		return 0
	}
}

// String returns the string representation of Format.
func (f Format) String() string {
	switch f {
	case FormatRGBA32Float:
		return "RGBA32Float"
	case FormatR32Sint:
		return "R32Sint"
	case FormatR32Float:
		return "R32Float"
	default:
		return fmt.Sprintf("Format(%d)", int(f))
	}
}

// Resolution is the size of a 2D buffer in pixels.
type Resolution struct {
	Width  int
	Height int
}

// Clamp returns r with both dimensions raised to at least 1.
func (r Resolution) Clamp() Resolution {
	if r.Width < 1 {
		r.Width = 1
	}
	if r.Height < 1 {
		r.Height = 1
	}
	return r
}

// Pixels returns Width*Height.
func (r Resolution) Pixels() int { return r.Width * r.Height }

// String returns "WxH".
func (r Resolution) String() string { return fmt.Sprintf("%dx%d", r.Width, r.Height) }

// BufferDesc describes a 2D device buffer.
type BufferDesc struct {
	// Label is an optional debug label.
	Label string

	// Width and Height are the buffer dimensions in pixels.
	Width  int
	Height int

	// Format is the per-pixel element layout.
	Format Format
}

// Resolution returns the buffer dimensions.
func (d *BufferDesc) Resolution() Resolution {
	return Resolution{Width: d.Width, Height: d.Height}
}

// Size returns the buffer size in bytes.
func (d *BufferDesc) Size() int {
	return d.Width * d.Height * d.Format.BytesPerPixel()
}

// DefaultWorkgroupSize is the edge length of the square workgroup tile
// declared by the kernels (@workgroup_size(8, 8, 1)).
const DefaultWorkgroupSize = 8

// KernelIndex is the kernel index of both stages. Each stage program has
// exactly one entry point.
const KernelIndex = 0

// EntryPoint is the kernel entry point name of both stages.
const EntryPoint = "main"

// GroupCounts returns the 2D workgroup counts ceil(W/size) x ceil(H/size)
// needed to cover res. A size of 0 selects DefaultWorkgroupSize.
func GroupCounts(res Resolution, size uint32) (x, y uint32) {
	if size == 0 {
		size = DefaultWorkgroupSize
	}
	res = res.Clamp()
	w := uint32(res.Width)  //nolint:gosec // clamped positive
	h := uint32(res.Height) //nolint:gosec // clamped positive
	return (w + size - 1) / size, (h + size - 1) / size
}
