package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/Faultbox/rtview/pkg/math"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	// Test graphics defaults
	if cfg.Graphics.Width != 960 {
		t.Errorf("expected width 960, got %d", cfg.Graphics.Width)
	}
	if cfg.Graphics.Height != 540 {
		t.Errorf("expected height 540, got %d", cfg.Graphics.Height)
	}
	if cfg.Graphics.Fullscreen {
		t.Error("expected fullscreen to be false by default")
	}
	if !cfg.Graphics.VSync {
		t.Error("expected vsync to be true by default")
	}

	// Test camera defaults
	if cfg.Camera.FovY != 45 {
		t.Errorf("expected fov 45, got %f", cfg.Camera.FovY)
	}
	if _, _, ok := cfg.Camera.Pose(); ok {
		t.Error("expected no camera pose by default")
	}
	if cfg.Camera.UpVector() != (math.Vec3{Z: 1}) {
		t.Errorf("expected Z-up hint, got %v", cfg.Camera.UpVector())
	}

	// Test render defaults
	if cfg.Render.Backend != "cpu" {
		t.Errorf("expected backend cpu, got %s", cfg.Render.Backend)
	}
	if cfg.Render.Gamma != 2.2 {
		t.Errorf("expected gamma 2.2, got %f", cfg.Render.Gamma)
	}

	// Test logging defaults
	if cfg.Logging.Level != "info" {
		t.Errorf("expected log level 'info', got %s", cfg.Logging.Level)
	}
	if cfg.Logging.LogFile != "" {
		t.Errorf("expected empty log file, got %s", cfg.Logging.LogFile)
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestLoadFromFile(t *testing.T) {
	// Create temporary config file
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	yamlContent := `
graphics:
  width: 1920
  height: 1080
  fullscreen: true
  vsync: false
  fps_limit: 144

camera:
  fov_y: 60
  from: [1, 2, 3]
  at: [0, 0, 0]
  up: [0, 1, 0]

scene:
  path: "scenes/cornell.obj"
  unify_normals: true
  watch: false

render:
  backend: "cpu"
  workers: 4
  gamma: 1.8

logging:
  level: "debug"
  log_file: "rtview.log"
`

	if err := os.WriteFile(configPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	// Load config
	cfg := Default()
	if err := loadFromFile(cfg, configPath); err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	// Verify values were loaded
	if cfg.Graphics.Width != 1920 {
		t.Errorf("expected width 1920, got %d", cfg.Graphics.Width)
	}
	if cfg.Graphics.Height != 1080 {
		t.Errorf("expected height 1080, got %d", cfg.Graphics.Height)
	}
	if !cfg.Graphics.Fullscreen {
		t.Error("expected fullscreen to be true")
	}
	if cfg.Graphics.FPSLimit != 144 {
		t.Errorf("expected fps limit 144, got %d", cfg.Graphics.FPSLimit)
	}

	from, at, ok := cfg.Camera.Pose()
	if !ok {
		t.Fatal("expected camera pose from file")
	}
	if from != (math.Vec3{X: 1, Y: 2, Z: 3}) || at != (math.Vec3{}) {
		t.Errorf("unexpected pose %v -> %v", from, at)
	}
	if cfg.Camera.UpVector() != (math.Vec3{Y: 1}) {
		t.Errorf("expected Y-up, got %v", cfg.Camera.UpVector())
	}
	// Unset keys keep their defaults
	if cfg.Camera.MoveSpeed != 2 {
		t.Errorf("expected default move speed 2, got %f", cfg.Camera.MoveSpeed)
	}

	if cfg.Scene.Path != "scenes/cornell.obj" || !cfg.Scene.UnifyNormals || cfg.Scene.Watch {
		t.Errorf("unexpected scene section %+v", cfg.Scene)
	}
	if cfg.Render.Workers != 4 || cfg.Render.Gamma != 1.8 {
		t.Errorf("unexpected render section %+v", cfg.Render)
	}

	if cfg.Logging.Level != "debug" {
		t.Errorf("expected log level 'debug', got %s", cfg.Logging.Level)
	}
	if cfg.Logging.LogFile != "rtview.log" {
		t.Errorf("expected log file 'rtview.log', got %s", cfg.Logging.LogFile)
	}
}

func TestLoadFromTOML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.toml")

	tomlContent := `
[graphics]
width = 640
height = 480

[camera]
fov_y = 30.0
up = [0.0, 1.0, 0.0]

[render]
backend = "cpu"
background = [1.0, 0.5, 0.0]
`
	if err := os.WriteFile(configPath, []byte(tomlContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := LoadFile(configPath)
	if err != nil {
		t.Fatalf("failed to load toml config: %v", err)
	}
	if cfg.Graphics.Width != 640 || cfg.Graphics.Height != 480 {
		t.Errorf("expected 640x480, got %dx%d", cfg.Graphics.Width, cfg.Graphics.Height)
	}
	if cfg.Camera.FovY != 30 {
		t.Errorf("expected fov 30, got %f", cfg.Camera.FovY)
	}
	if cfg.Render.BackgroundColor() != (math.Vec3{X: 1, Y: 0.5}) {
		t.Errorf("unexpected background %v", cfg.Render.BackgroundColor())
	}
	if !cfg.Graphics.VSync {
		t.Error("expected vsync default to survive")
	}
}

func TestLoadFromFileInvalid(t *testing.T) {
	// Create temporary config file with invalid YAML
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "invalid.yaml")

	invalidYAML := `
graphics:
  width: not a number
  invalid syntax here
`

	if err := os.WriteFile(configPath, []byte(invalidYAML), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	// Try to load - should error
	cfg := Default()
	err := loadFromFile(cfg, configPath)
	if err == nil {
		t.Error("expected error loading invalid YAML, got nil")
	}

	tomlPath := filepath.Join(tmpDir, "invalid.toml")
	if err := os.WriteFile(tomlPath, []byte("[graphics\nwidth = "), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	if err := loadFromFile(cfg, tomlPath); err == nil {
		t.Error("expected error loading invalid TOML, got nil")
	}
}

func TestLoadFromFileMissing(t *testing.T) {
	cfg := Default()
	err := loadFromFile(cfg, "/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("expected error loading missing file, got nil")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero width", func(c *Config) { c.Graphics.Width = 0 }},
		{"fov too wide", func(c *Config) { c.Camera.FovY = 180 }},
		{"fov zero", func(c *Config) { c.Camera.FovY = 0 }},
		{"no backend", func(c *Config) { c.Render.Backend = "" }},
		{"negative workers", func(c *Config) { c.Render.Workers = -2 }},
		{"zero gamma", func(c *Config) { c.Render.Gamma = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			if err := cfg.Validate(); !errors.Is(err, ErrInvalid) {
				t.Errorf("expected ErrInvalid, got %v", err)
			}
		})
	}
}

func TestFovRadians(t *testing.T) {
	cam := CameraConfig{FovY: 90}
	if got := cam.FovRadians(); got < 1.5707 || got > 1.5709 {
		t.Errorf("expected pi/2, got %f", got)
	}
}

func TestConfigDir(t *testing.T) {
	dir := ConfigDir()

	// Just verify it returns a non-empty path
	// Actual path depends on OS
	if dir == "" {
		t.Error("ConfigDir returned empty string")
	}

	// Verify path is absolute
	if !filepath.IsAbs(dir) {
		t.Errorf("ConfigDir should return absolute path, got %s", dir)
	}
}

func TestFindConfigFile(t *testing.T) {
	// Save current directory
	origDir, _ := os.Getwd()
	defer os.Chdir(origDir)

	// Keep the user's real config out of the search
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("HOME", t.TempDir())

	// Create temp directory and change to it
	tmpDir := t.TempDir()
	os.Chdir(tmpDir)

	// No config file exists - should return empty
	path := findConfigFile()
	if path != "" {
		t.Errorf("expected empty path when no config exists, got %s", path)
	}

	// A TOML file is found too
	if err := os.WriteFile(filepath.Join(tmpDir, "config.toml"), []byte("[graphics]\nwidth = 800\n"), 0644); err != nil {
		t.Fatalf("failed to create test config: %v", err)
	}
	if path = findConfigFile(); path != "./config.toml" {
		t.Errorf("expected ./config.toml, got %q", path)
	}

	// YAML wins when both exist
	if err := os.WriteFile(filepath.Join(tmpDir, "config.yaml"), []byte("graphics:\n  width: 800\n"), 0644); err != nil {
		t.Fatalf("failed to create test config: %v", err)
	}
	if path = findConfigFile(); path != "./config.yaml" {
		t.Errorf("expected ./config.yaml, got %q", path)
	}
}

func TestApplyFlags(t *testing.T) {
	tests := []struct {
		name     string
		setup    func()
		verify   func(*testing.T, *Config)
		teardown func()
	}{
		{
			name: "debug flag",
			setup: func() {
				*flagDebug = true
			},
			verify: func(t *testing.T, cfg *Config) {
				if cfg.Logging.Level != "debug" {
					t.Errorf("expected log level 'debug', got %s", cfg.Logging.Level)
				}
			},
			teardown: func() {
				*flagDebug = false
			},
		},
		{
			name: "scene and backend flags",
			setup: func() {
				*flagScene = "box.obj"
				*flagBackend = "other"
			},
			verify: func(t *testing.T, cfg *Config) {
				if cfg.Scene.Path != "box.obj" {
					t.Errorf("expected scene box.obj, got %s", cfg.Scene.Path)
				}
				if cfg.Render.Backend != "other" {
					t.Errorf("expected backend other, got %s", cfg.Render.Backend)
				}
			},
			teardown: func() {
				*flagScene = ""
				*flagBackend = ""
			},
		},
		{
			name: "windowed flag",
			setup: func() {
				*flagWindowed = true
			},
			verify: func(t *testing.T, cfg *Config) {
				if cfg.Graphics.Fullscreen {
					t.Error("expected fullscreen to be false with windowed flag")
				}
			},
			teardown: func() {
				*flagWindowed = false
			},
		},
		{
			name: "fullscreen flag",
			setup: func() {
				*flagFullscreen = true
			},
			verify: func(t *testing.T, cfg *Config) {
				if !cfg.Graphics.Fullscreen {
					t.Error("expected fullscreen to be true with fullscreen flag")
				}
			},
			teardown: func() {
				*flagFullscreen = false
			},
		},
		{
			name: "size, fov and workers flags",
			setup: func() {
				*flagWidth = 2560
				*flagHeight = 1440
				*flagFov = 70
				*flagWorkers = 0
			},
			verify: func(t *testing.T, cfg *Config) {
				if cfg.Graphics.Width != 2560 {
					t.Errorf("expected width 2560, got %d", cfg.Graphics.Width)
				}
				if cfg.Graphics.Height != 1440 {
					t.Errorf("expected height 1440, got %d", cfg.Graphics.Height)
				}
				if cfg.Camera.FovY != 70 {
					t.Errorf("expected fov 70, got %f", cfg.Camera.FovY)
				}
				if cfg.Render.Workers != 0 {
					t.Errorf("expected workers 0, got %d", cfg.Render.Workers)
				}
			},
			teardown: func() {
				*flagWidth = 0
				*flagHeight = 0
				*flagFov = 0
				*flagWorkers = -1
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Setup
			tt.setup()
			defer tt.teardown()

			// Apply flags to default config
			cfg := Default()
			applyFlags(cfg)

			// Verify
			tt.verify(t, cfg)
		})
	}
}

func TestLoadPriority(t *testing.T) {
	// Create temporary config file
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	yamlContent := `
graphics:
  width: 1600
  height: 900
`

	if err := os.WriteFile(configPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	// Set flag to override config file
	*flagConfig = configPath
	*flagWidth = 1920
	defer func() {
		*flagConfig = ""
		*flagWidth = 0
	}()

	// Load config
	cfg, err := Load()
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	// Width should be from flag (1920), not file (1600)
	if cfg.Graphics.Width != 1920 {
		t.Errorf("expected width 1920 from flag, got %d", cfg.Graphics.Width)
	}

	// Height should be from file (900) since no flag override
	if cfg.Graphics.Height != 900 {
		t.Errorf("expected height 900 from file, got %d", cfg.Graphics.Height)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configPath, []byte("camera:\n  fov_y: 200\n"), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	*flagConfig = configPath
	defer func() { *flagConfig = "" }()

	if _, err := Load(); !errors.Is(err, ErrInvalid) {
		t.Errorf("expected ErrInvalid, got %v", err)
	}
}

func TestSaveTo(t *testing.T) {
	dir := t.TempDir()
	cfg := Default()
	cfg.Graphics.Width = 1234
	cfg.Scene.Path = "a.obj"

	for _, name := range []string{"out.yaml", "nested/out.toml"} {
		path := filepath.Join(dir, name)
		if err := cfg.SaveTo(path); err != nil {
			t.Fatalf("SaveTo(%s) failed: %v", name, err)
		}
		loaded, err := LoadFile(path)
		if err != nil {
			t.Fatalf("reloading %s failed: %v", name, err)
		}
		if loaded.Graphics.Width != 1234 || loaded.Scene.Path != "a.obj" {
			t.Errorf("%s: settings not preserved: %+v", name, loaded.Graphics)
		}
		if _, _, ok := loaded.Camera.Pose(); ok {
			t.Errorf("%s: unexpected camera pose written", name)
		}
	}
}
