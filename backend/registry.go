package backend

import (
	"fmt"
	"slices"
	"sync"

	"github.com/gogpu/ggframe/gpucore"
)

var (
	registryMu sync.RWMutex
	factories  = make(map[string]Factory)
	// Selection order for Default: the first registered name wins.
	priority = []string{NameWGPU, NameSoft}
)

// Register makes a backend available under name, replacing any earlier
// registration. Backend packages call it from init.
func Register(name string, f Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	factories[name] = f
}

// Unregister removes a backend. It is mostly useful in tests.
func Unregister(name string) {
	registryMu.Lock()
	defer registryMu.Unlock()
	delete(factories, name)
}

// Available returns the registered backend names, sorted.
func Available() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// IsRegistered reports whether name is registered.
func IsRegistered(name string) bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	_, ok := factories[name]
	return ok
}

// Open creates the backend registered under name with the given options.
func Open(name string, options map[string]any) (gpucore.Backend, error) {
	registryMu.RLock()
	f, ok := factories[name]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q (available: %v)", ErrBackendNotFound, name, Available())
	}
	b, err := f(options)
	if err != nil {
		return nil, fmt.Errorf("backend %s: %w", name, err)
	}
	slogger().Info("backend: opened", "name", name)
	return b, nil
}

// Default opens the first backend in priority order that is registered
// and opens without error, falling back to any other registered backend.
func Default() (gpucore.Backend, error) {
	candidates := make([]string, 0, len(priority))
	for _, name := range priority {
		if IsRegistered(name) {
			candidates = append(candidates, name)
		}
	}
	for _, name := range Available() {
		if !slices.Contains(candidates, name) {
			candidates = append(candidates, name)
		}
	}
	if len(candidates) == 0 {
		return nil, fmt.Errorf("%w: none registered", ErrBackendNotFound)
	}

	var firstErr error
	for _, name := range candidates {
		b, err := Open(name, nil)
		if err == nil {
			return b, nil
		}
		slogger().Warn("backend: unavailable, trying next", "name", name, "err", err)
		if firstErr == nil {
			firstErr = err
		}
	}
	return nil, firstErr
}
