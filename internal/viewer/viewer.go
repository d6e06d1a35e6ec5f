// Package viewer implements the interactive SDL2 fly-through loop.
package viewer

import (
	"fmt"
	"time"

	"github.com/veandco/go-sdl2/sdl"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/Faultbox/rtview/internal/config"
	"github.com/Faultbox/rtview/internal/engine/debug"
	"github.com/Faultbox/rtview/internal/engine/input"
	"github.com/Faultbox/rtview/internal/engine/renderer"
	"github.com/Faultbox/rtview/internal/engine/window"
	"github.com/Faultbox/rtview/internal/logger"
	"github.com/Faultbox/rtview/internal/session"
)

const title = "rtview"

// Viewer is the main viewer instance.
type Viewer struct {
	cfg      *config.Config
	running  bool
	window   *window.Window
	renderer *renderer.Renderer
	input    *input.Input
	session  *session.Session
	shots    *debug.ScreenshotCapture
	log      *zap.Logger
}

// New creates the window, the presenter and the ray tracing session.
func New(cfg *config.Config) (*Viewer, error) {
	v := &Viewer{
		cfg:   cfg,
		shots: debug.NewScreenshotCapture(cfg.Screenshot.Dir, cfg.Screenshot.Prefix),
		log:   logger.Named("viewer"),
	}

	v.log.Info("initializing viewer",
		zap.Int("width", cfg.Graphics.Width),
		zap.Int("height", cfg.Graphics.Height),
		zap.String("backend", cfg.Render.Backend),
	)

	// Create window (this also creates OpenGL context)
	var err error
	v.window, err = window.New(window.Config{
		Title:      title,
		Width:      cfg.Graphics.Width,
		Height:     cfg.Graphics.Height,
		Fullscreen: cfg.Graphics.Fullscreen,
		VSync:      cfg.Graphics.VSync,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create window: %w", err)
	}

	// Create renderer (AFTER window, since OpenGL context must exist)
	w, h := v.window.DrawableSize()
	v.renderer, err = renderer.New(renderer.Config{Width: w, Height: h})
	if err != nil {
		v.window.Close()
		return nil, fmt.Errorf("failed to create renderer: %w", err)
	}

	v.session, err = session.Open(cfg)
	if err != nil {
		v.renderer.Close()
		v.window.Close()
		return nil, fmt.Errorf("failed to open ray tracer: %w", err)
	}

	v.input = input.New(nil)

	v.log.Info("viewer initialized successfully")
	return v, nil
}

// Load loads the initial scene.
func (v *Viewer) Load(path string) error {
	return v.session.Load(path)
}

// Run starts the main loop. Backend failures are returned; the caller
// decides whether they are fatal.
func (v *Viewer) Run() error {
	v.running = true

	lastTime := time.Now()
	frameCount := 0
	fpsTimer := time.Now()

	v.log.Info("starting viewer loop")

	for v.running {
		now := time.Now()
		dt := now.Sub(lastTime).Seconds()
		lastTime = now

		// 1. Process input
		if v.input.Update() {
			v.running = false
			break
		}
		v.handleEvents()
		v.session.Move(v.input.Held, float32(dt))

		// 2. Pick up scene edits
		if reloaded, err := v.session.PollReload(); err != nil {
			v.log.Warn("scene reload failed, keeping previous scene", zap.Error(err))
		} else if reloaded {
			v.log.Info("scene reloaded")
		}

		// 3. Trace
		frame, err := v.session.Render()
		if err != nil {
			return fmt.Errorf("render error: %w", err)
		}
		width, height := v.session.Tracer().Size()
		if err := v.renderer.UploadFrame(frame, width, height); err != nil {
			return fmt.Errorf("present error: %w", err)
		}

		// 4. Present
		v.renderer.Begin()
		v.renderer.DrawFrame()
		v.window.SwapBuffers()

		v.limitFPS(now)

		frameCount++
		if elapsed := time.Since(fpsTimer); elapsed >= time.Second {
			fps := float64(frameCount) / elapsed.Seconds()
			v.window.SetTitle(v.session.Title(title, fps))
			v.log.Debug("fps",
				zap.Float64("fps", fps),
				zap.Duration("trace", v.session.LastRenderTime()),
			)
			frameCount = 0
			fpsTimer = time.Now()
		}
	}

	return nil
}

func (v *Viewer) handleEvents() {
	for _, event := range v.input.Events() {
		switch event.Type {
		case input.EventWindowResize:
			v.renderer.Resize(v.window.DrawableSize())
		case input.EventDrop:
			if err := v.session.Load(event.File); err != nil {
				v.log.Error("failed to load dropped scene", zap.String("path", event.File), zap.Error(err))
			}
		case input.EventKeyDown:
			v.handleKey(event.Key)
		}
	}
}

func (v *Viewer) handleKey(key sdl.Scancode) {
	switch key {
	case sdl.SCANCODE_ESCAPE:
		v.running = false
	case sdl.SCANCODE_EQUALS, sdl.SCANCODE_KP_PLUS:
		v.session.WidenFov()
		v.log.Debug("fov", zap.Float32("degrees", v.session.Fov()))
	case sdl.SCANCODE_MINUS, sdl.SCANCODE_KP_MINUS:
		v.session.NarrowFov()
		v.log.Debug("fov", zap.Float32("degrees", v.session.Fov()))
	case sdl.SCANCODE_N:
		on, err := v.session.ToggleUnifyNormals()
		if err != nil {
			v.log.Error("toggling unify normals", zap.Error(err))
			return
		}
		v.log.Info("unify normals", zap.Bool("enabled", on))
	case sdl.SCANCODE_V:
		v.window.SetVSync(!v.window.VSync())
	case sdl.SCANCODE_R:
		if err := v.session.Reload(); err != nil {
			v.log.Warn("scene reload failed", zap.Error(err))
		}
	case sdl.SCANCODE_F12:
		v.screenshot()
	}
}

// screenshot saves the last traced frame, which is already top-row first.
func (v *Viewer) screenshot() {
	width, height := v.session.Tracer().Size()
	path, err := v.shots.CaptureFromPixels(v.session.LastFrame(), width, height, debug.TopLeft)
	if err != nil {
		v.log.Error("screenshot failed", zap.Error(err))
		return
	}
	v.log.Info("screenshot saved", zap.String("path", path))
}

func (v *Viewer) limitFPS(frameStart time.Time) {
	if v.cfg.Graphics.FPSLimit <= 0 {
		return
	}
	budget := time.Second / time.Duration(v.cfg.Graphics.FPSLimit)
	if spent := time.Since(frameStart); spent < budget {
		sdl.Delay(uint32((budget - spent).Milliseconds()))
	}
}

// Close cleans up viewer resources.
func (v *Viewer) Close() error {
	v.log.Info("closing viewer")

	var err error
	if v.session != nil {
		err = multierr.Append(err, v.session.Close())
	}
	if v.renderer != nil {
		v.renderer.Close()
	}
	if v.window != nil {
		v.window.Close()
	}
	return err
}
