package backend

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/gogpu/lensing/gpucore"
)

var (
	registryMu sync.RWMutex
	factories  = make(map[string]Factory)
	// Priority order for Default (first adapter that opens wins).
	backendPriority = []string{BackendWGPU, BackendSoftware}
)

// Register registers an adapter factory under name.
// This is typically called from init() functions in backend packages.
// A factory registered under an existing name replaces it.
func Register(name string, factory Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	factories[name] = factory
}

// Unregister removes a backend from the registry.
// This is useful for testing.
func Unregister(name string) {
	registryMu.Lock()
	defer registryMu.Unlock()
	delete(factories, name)
}

// Available returns the sorted names of registered backends.
func Available() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IsRegistered checks if a backend with the given name is registered.
func IsRegistered(name string) bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	_, ok := factories[name]
	return ok
}

// Open creates an adapter from the named backend.
func Open(name string) (gpucore.Adapter, error) {
	registryMu.RLock()
	factory, ok := factories[name]
	registryMu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrBackendNotAvailable, name)
	}
	a, err := factory()
	if err != nil {
		return nil, fmt.Errorf("backend: open %s: %w", name, err)
	}
	return a, nil
}

// OpenDefault opens the best available backend.
// Priority order: wgpu > software. Backends whose factory fails are skipped
// with a warning on logger (which may be nil).
func OpenDefault(logger *slog.Logger) (gpucore.Adapter, error) {
	for _, name := range backendPriority {
		if !IsRegistered(name) {
			continue
		}
		a, err := Open(name)
		if err == nil {
			return a, nil
		}
		if logger != nil {
			logger.Warn("backend unavailable, trying next", "backend", name, "err", err)
		}
	}
	return nil, ErrBackendNotAvailable
}
