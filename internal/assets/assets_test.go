package assets

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func TestResolveSearchOrder(t *testing.T) {
	low := t.TempDir()
	high := t.TempDir()
	writeFile(t, filepath.Join(low, "scenes", "box.obj"), "low")
	writeFile(t, filepath.Join(high, "scenes", "box.obj"), "high")
	writeFile(t, filepath.Join(low, "only_low.obj"), "low")

	m := NewManager(low, high)

	path, err := m.Resolve(filepath.Join("scenes", "box.obj"))
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if path != filepath.Join(high, "scenes", "box.obj") {
		t.Errorf("expected last search path to win, got %s", path)
	}

	path, err = m.Resolve("only_low.obj")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if path != filepath.Join(low, "only_low.obj") {
		t.Errorf("expected fallback to first path, got %s", path)
	}
}

func TestResolveNotFound(t *testing.T) {
	m := NewManager(t.TempDir())
	if _, err := m.Resolve("missing.obj"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if _, err := m.Resolve(filepath.Join(t.TempDir(), "abs.obj")); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for absolute path, got %v", err)
	}
}

func TestResolveRelative(t *testing.T) {
	dir := t.TempDir()
	objPath := filepath.Join(dir, "scene.obj")
	writeFile(t, objPath, "")
	writeFile(t, filepath.Join(dir, "scene.mtl"), "newmtl a\n")

	m := NewManager()
	path, err := m.ResolveRelative(objPath, "scene.mtl")
	if err != nil {
		t.Fatalf("ResolveRelative failed: %v", err)
	}
	if path != filepath.Join(dir, "scene.mtl") {
		t.Errorf("expected sibling mtl, got %s", path)
	}
}

func TestLoadCaches(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.obj")
	writeFile(t, path, "first")

	m := NewManager(dir)
	data, err := m.Load("a.obj")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if string(data) != "first" {
		t.Errorf("expected 'first', got %q", data)
	}

	// Cached copy survives a rewrite until invalidated
	writeFile(t, path, "second")
	data, _ = m.LoadPath(path)
	if string(data) != "first" {
		t.Errorf("expected cached 'first', got %q", data)
	}
	hits, misses := m.Cache().Stats()
	if hits != 1 || misses != 1 {
		t.Errorf("expected 1 hit 1 miss, got %d/%d", hits, misses)
	}

	m.Invalidate(path)
	data, _ = m.LoadPath(path)
	if string(data) != "second" {
		t.Errorf("expected 'second' after invalidate, got %q", data)
	}
}

func TestCacheClear(t *testing.T) {
	c := NewCache()
	c.Set("a", []byte("1"))
	c.Set("b", []byte("2"))
	if c.Len() != 2 {
		t.Fatalf("expected 2 items, got %d", c.Len())
	}
	c.Clear()
	if c.Len() != 0 {
		t.Errorf("expected empty cache, got %d", c.Len())
	}
	if _, ok := c.Get("a"); ok {
		t.Error("expected miss after clear")
	}
}
