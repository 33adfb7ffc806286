// Package backend provides a registry of compute backends for the lensing
// render driver.
//
// Each backend package registers a [Factory] from its init() function, so
// importing a backend is enough to make it selectable:
//
//	import (
//		_ "github.com/gogpu/lensing/backend/software"
//		_ "github.com/gogpu/lensing/backend/wgpu"
//	)
//
// # Backend Selection
//
// Use OpenDefault to get the best available adapter, or Open to request a
// specific backend by name:
//
//	// Prefer the GPU, fall back to the CPU reference kernels.
//	adapter, err := backend.OpenDefault(slog.Default())
//
//	// Or request a specific backend
//	adapter, err := backend.Open(backend.BackendSoftware)
//
// The returned adapter is owned by the caller and must be closed.
package backend
