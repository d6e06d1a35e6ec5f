package backend

import (
	"fmt"
	"sort"
	"sync"
)

// Options configure a new context.
type Options struct {
	// Workers bounds launch parallelism; zero means one per CPU.
	Workers int
}

// Factory creates a context.
type Factory func(opts Options) (Context, error)

var (
	registryMu sync.RWMutex
	factories  = map[string]Factory{}
)

// Register makes a backend available by name. Backends call it from init.
// Registering a name twice panics.
func Register(name string, f Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if _, dup := factories[name]; dup {
		panic("backend: Register called twice for " + name)
	}
	factories[name] = f
}

// Open creates a context on the named backend.
func Open(name string, opts Options) (Context, error) {
	registryMu.RLock()
	f, ok := factories[name]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q (available: %v)", ErrUnknownBackend, name, Names())
	}
	return f(opts)
}

// Names lists the registered backends in sorted order.
func Names() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(factories))
	for n := range factories {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
