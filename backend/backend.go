package backend

import (
	"errors"

	"github.com/gogpu/lensing/gpucore"
)

// Common backend errors.
var (
	// ErrBackendNotAvailable is returned when a requested backend is not registered
	// or none of the registered backends could be created.
	ErrBackendNotAvailable = errors.New("backend: not available")
)

// Backend name constants.
const (
	// BackendSoftware is the name of the CPU reference backend.
	BackendSoftware = "software"
	// BackendWGPU is the name of the Pure Go GPU backend (gogpu/wgpu HAL).
	BackendWGPU = "wgpu"
)

// Factory creates a ready-to-use adapter.
// A factory returns an error when its device is unavailable on this machine.
type Factory func() (gpucore.Adapter, error)
