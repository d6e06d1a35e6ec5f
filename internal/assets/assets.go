// Package assets resolves scene files against search paths and caches their contents.
package assets

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// ErrNotFound is returned when no search path contains the requested file.
var ErrNotFound = errors.New("asset not found")

// Manager handles asset lookup across a list of directories.
type Manager struct {
	dirs  []string
	cache *Cache
	mu    sync.RWMutex
}

// NewManager creates a new asset manager searching the given directories.
func NewManager(dirs ...string) *Manager {
	m := &Manager{
		cache: NewCache(),
	}
	for _, d := range dirs {
		m.AddSearchPath(d)
	}
	return m
}

// AddSearchPath adds a directory to the manager.
// Directories are searched in reverse order (last added = highest priority).
func (m *Manager) AddSearchPath(dir string) {
	if dir == "" {
		return
	}
	m.mu.Lock()
	m.dirs = append(m.dirs, filepath.Clean(dir))
	m.mu.Unlock()
}

// SearchPaths returns a copy of the configured directories.
func (m *Manager) SearchPaths() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.dirs...)
}

// Resolve returns the on-disk path for name. Absolute paths and paths that
// exist relative to the working directory are returned as-is.
func (m *Manager) Resolve(name string) (string, error) {
	if filepath.IsAbs(name) {
		if _, err := os.Stat(name); err != nil {
			return "", fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return name, nil
	}
	if _, err := os.Stat(name); err == nil {
		return name, nil
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	for i := len(m.dirs) - 1; i >= 0; i-- {
		candidate := filepath.Join(m.dirs[i], name)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrNotFound, name)
}

// ResolveRelative resolves name next to the file base first (e.g. an MTL
// library beside its OBJ), then through the search paths.
func (m *Manager) ResolveRelative(base, name string) (string, error) {
	if !filepath.IsAbs(name) {
		candidate := filepath.Join(filepath.Dir(base), name)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}
	return m.Resolve(name)
}

// Load reads a resolved file, serving repeated reads from the cache.
func (m *Manager) Load(name string) ([]byte, error) {
	path, err := m.Resolve(name)
	if err != nil {
		return nil, err
	}
	return m.LoadPath(path)
}

// LoadPath reads a file by its on-disk path through the cache.
func (m *Manager) LoadPath(path string) ([]byte, error) {
	if data, ok := m.cache.Get(path); ok {
		return data, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	m.cache.Set(path, data)
	return data, nil
}

// Invalidate drops a cached file so the next load rereads it.
func (m *Manager) Invalidate(path string) {
	m.cache.Delete(path)
}

// Cache returns the underlying cache.
func (m *Manager) Cache() *Cache {
	return m.cache
}

// Close clears the cache.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.dirs = nil
	m.cache.Clear()
}

// Cache is a simple in-memory cache for loaded assets.
type Cache struct {
	data map[string][]byte
	mu   sync.RWMutex

	// Stats
	hits   int
	misses int
}

// NewCache creates a new cache.
func NewCache() *Cache {
	return &Cache{
		data: make(map[string][]byte),
	}
}

// Get retrieves an item from cache.
func (c *Cache) Get(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	data, ok := c.data[key]
	if ok {
		c.hits++
	} else {
		c.misses++
	}
	return data, ok
}

// Set stores an item in cache.
func (c *Cache) Set(key string, data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = data
}

// Delete removes a single item.
func (c *Cache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
}

// Len returns the number of cached items.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.data)
}

// Clear clears the cache.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data = make(map[string][]byte)
	c.hits = 0
	c.misses = 0
}

// Stats returns cache statistics.
func (c *Cache) Stats() (hits, misses int) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.hits, c.misses
}
