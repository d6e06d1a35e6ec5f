// Package config handles viewer configuration loading and management.
package config

import (
	"errors"
	"fmt"

	"github.com/chewxy/math32"

	"github.com/Faultbox/rtview/pkg/math"
)

// Config holds all viewer settings.
type Config struct {
	Graphics   GraphicsConfig   `yaml:"graphics" toml:"graphics"`
	Camera     CameraConfig     `yaml:"camera" toml:"camera"`
	Scene      SceneConfig      `yaml:"scene" toml:"scene"`
	Render     RenderConfig     `yaml:"render" toml:"render"`
	Screenshot ScreenshotConfig `yaml:"screenshot" toml:"screenshot"`
	Logging    LoggingConfig    `yaml:"logging" toml:"logging"`
}

// GraphicsConfig holds display settings. Width and height are also the
// ray-traced image size.
type GraphicsConfig struct {
	Width      int  `yaml:"width" toml:"width"`
	Height     int  `yaml:"height" toml:"height"`
	Fullscreen bool `yaml:"fullscreen" toml:"fullscreen"`
	VSync      bool `yaml:"vsync" toml:"vsync"`
	FPSLimit   int  `yaml:"fps_limit" toml:"fps_limit"`
}

// CameraConfig holds the initial view and input step sizes.
type CameraConfig struct {
	FovY float32 `yaml:"fov_y" toml:"fov_y"` // degrees

	// From and At are optional; without them the camera frames the scene bounds.
	From *[3]float32 `yaml:"from,omitempty" toml:"from,omitempty"`
	At   *[3]float32 `yaml:"at,omitempty" toml:"at,omitempty"`
	Up   [3]float32  `yaml:"up" toml:"up"`

	MoveSpeed   float32 `yaml:"move_speed" toml:"move_speed"`     // world units per second
	RotateSpeed float32 `yaml:"rotate_speed" toml:"rotate_speed"` // target offset per second
	RollSpeed   float32 `yaml:"roll_speed" toml:"roll_speed"`
	FovStep     float32 `yaml:"fov_step" toml:"fov_step"` // degrees per key press
}

// SceneConfig holds scene file settings.
type SceneConfig struct {
	Path         string   `yaml:"path" toml:"path"`
	SearchPaths  []string `yaml:"search_paths" toml:"search_paths"`
	UnifyNormals bool     `yaml:"unify_normals" toml:"unify_normals"`
	Watch        bool     `yaml:"watch" toml:"watch"`
}

// RenderConfig holds backend settings.
type RenderConfig struct {
	Backend    string     `yaml:"backend" toml:"backend"`
	Workers    int        `yaml:"workers" toml:"workers"`
	Gamma      float32    `yaml:"gamma" toml:"gamma"`
	Background [3]float32 `yaml:"background" toml:"background"`
}

// ScreenshotConfig holds screenshot output settings.
type ScreenshotConfig struct {
	Dir    string `yaml:"dir" toml:"dir"`
	Prefix string `yaml:"prefix" toml:"prefix"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level" toml:"level"`
	LogFile string `yaml:"log_file" toml:"log_file"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Graphics: GraphicsConfig{
			Width:      960,
			Height:     540,
			Fullscreen: false,
			VSync:      true,
			FPSLimit:   0,
		},
		Camera: CameraConfig{
			FovY:        45,
			Up:          [3]float32{0, 0, 1},
			MoveSpeed:   2,
			RotateSpeed: 1,
			RollSpeed:   20,
			FovStep:     5,
		},
		Scene: SceneConfig{
			SearchPaths: []string{"scenes"},
			Watch:       true,
		},
		Render: RenderConfig{
			Backend:    "cpu",
			Workers:    0,
			Gamma:      2.2,
			Background: [3]float32{0.1, 0.1, 0.15},
		},
		Screenshot: ScreenshotConfig{
			Dir:    "screenshots",
			Prefix: "rtview",
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
	}
}

// Validation errors.
var ErrInvalid = errors.New("invalid config")

// Validate checks values the renderer cannot work with.
func (c *Config) Validate() error {
	switch {
	case c.Graphics.Width <= 0 || c.Graphics.Height <= 0:
		return fmt.Errorf("%w: graphics size %dx%d", ErrInvalid, c.Graphics.Width, c.Graphics.Height)
	case c.Camera.FovY <= 0 || c.Camera.FovY >= 180:
		return fmt.Errorf("%w: camera.fov_y %g must be in (0, 180)", ErrInvalid, c.Camera.FovY)
	case c.Render.Backend == "":
		return fmt.Errorf("%w: render.backend is empty", ErrInvalid)
	case c.Render.Workers < 0:
		return fmt.Errorf("%w: render.workers %d", ErrInvalid, c.Render.Workers)
	case c.Render.Gamma <= 0:
		return fmt.Errorf("%w: render.gamma %g", ErrInvalid, c.Render.Gamma)
	}
	return nil
}

// FovRadians returns the vertical field of view in radians.
func (c CameraConfig) FovRadians() float32 {
	return Radians(c.FovY)
}

// Radians converts degrees to radians.
func Radians(deg float32) float32 {
	return deg * math32.Pi / 180
}

// Pose returns the configured camera position and target. ok is false
// unless both are set.
func (c CameraConfig) Pose() (from, at math.Vec3, ok bool) {
	if c.From == nil || c.At == nil {
		return math.Vec3{}, math.Vec3{}, false
	}
	return vec3(*c.From), vec3(*c.At), true
}

// UpVector returns the up hint.
func (c CameraConfig) UpVector() math.Vec3 {
	return vec3(c.Up)
}

// BackgroundColor returns the miss color.
func (c RenderConfig) BackgroundColor() math.Vec3 {
	return vec3(c.Background)
}

func vec3(a [3]float32) math.Vec3 {
	return math.Vec3{X: a[0], Y: a[1], Z: a[2]}
}
