// Package session ties configuration, scene loading and the tracer
// together for the viewer commands.
package session

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/Faultbox/rtview/internal/assets"
	"github.com/Faultbox/rtview/internal/config"
	"github.com/Faultbox/rtview/internal/engine/backend"
	"github.com/Faultbox/rtview/internal/engine/controls"
	"github.com/Faultbox/rtview/internal/engine/tracer"
	"github.com/Faultbox/rtview/internal/logger"
	"github.com/Faultbox/rtview/internal/scene"
	"github.com/Faultbox/rtview/pkg/math"
)

// ErrNoScene is returned by Reload before any scene was loaded.
var ErrNoScene = errors.New("no scene loaded")

// Field of view limits in degrees.
const (
	MinFov = 5
	MaxFov = 150
)

// placeholder pose used until a scene is framed
var (
	placeholderFrom = math.Vec3{X: 1, Y: -1, Z: 0.7}
	placeholderAt   = math.Vec3{}
)

// Session owns a tracer, the current scene and an optional file watcher.
// It is not safe for concurrent use.
type Session struct {
	cfg     *config.Config
	loader  *scene.Loader
	tracer  *tracer.Tracer
	scene   *scene.Scene
	watcher *scene.Watcher
	fov     controls.Fov
	frame   []byte
	hasPose bool

	lastRender time.Duration
	log        *zap.Logger
}

// Open creates the tracer on the configured backend.
func Open(cfg *config.Config) (*Session, error) {
	from, at, hasPose := cfg.Camera.Pose()
	if !hasPose {
		from, at = placeholderFrom, placeholderAt
	}

	t, err := tracer.Open(cfg.Render.Backend, backend.Options{Workers: cfg.Render.Workers}, tracer.Config{
		Width:        cfg.Graphics.Width,
		Height:       cfg.Graphics.Height,
		FovY:         cfg.Camera.FovRadians(),
		From:         from,
		At:           at,
		Up:           cfg.Camera.UpVector(),
		Gamma:        cfg.Render.Gamma,
		Background:   cfg.Render.BackgroundColor(),
		UnifyNormals: cfg.Scene.UnifyNormals,
	})
	if err != nil {
		return nil, err
	}

	return &Session{
		cfg:     cfg,
		loader:  scene.NewLoader(assets.NewManager(cfg.Scene.SearchPaths...)),
		tracer:  t,
		hasPose: hasPose,
		fov: controls.Fov{
			Degrees: cfg.Camera.FovY,
			Step:    cfg.Camera.FovStep,
			Min:     MinFov,
			Max:     MaxFov,
		},
		frame: make([]byte, t.BufferSize()),
		log:   logger.Named("session"),
	}, nil
}

// Load reads a scene, uploads it and starts watching it when configured.
// Without a configured pose the camera is framed on the scene bounds.
func (s *Session) Load(name string) error {
	sc, err := s.loader.Load(name)
	if err != nil {
		return err
	}
	if err := s.tracer.LoadScene(sc); err != nil {
		return fmt.Errorf("uploading %s: %w", sc.Path, err)
	}
	s.scene = sc

	if !s.hasPose {
		if min, max, ok := sc.Bounds(); ok {
			s.tracer.Camera().FitToBounds(min, max)
			s.log.Debug("camera framed on scene",
				logger.Vec3("min", min),
				logger.Vec3("max", max),
				logger.Vec3("from", s.tracer.Camera().Position()),
			)
		}
	}

	if s.cfg.Scene.Watch {
		s.watch(sc)
	}
	return nil
}

func (s *Session) watch(sc *scene.Scene) {
	if s.watcher != nil {
		if err := s.watcher.Close(); err != nil {
			s.log.Warn("closing scene watcher", zap.Error(err))
		}
		s.watcher = nil
	}
	paths := append([]string{sc.Path}, s.loader.MaterialLibs(sc)...)
	w, err := scene.NewWatcher(paths...)
	if err != nil {
		s.log.Warn("scene watching disabled", zap.Error(err))
		return
	}
	s.watcher = w
}

// Reload rereads the current scene from disk, keeping the camera pose.
// On failure the previous scene stays on the device.
func (s *Session) Reload() error {
	if s.scene == nil {
		return ErrNoScene
	}
	s.loader.Assets().Cache().Clear()

	sc, err := s.loader.Load(s.scene.Path)
	if err != nil {
		return err
	}
	if err := s.tracer.LoadScene(sc); err != nil {
		return err
	}
	s.scene = sc
	return nil
}

// PollReload reloads the scene if the watcher reported a change since the
// last call. It never blocks.
func (s *Session) PollReload() (bool, error) {
	if s.watcher == nil {
		return false, nil
	}
	select {
	case path, ok := <-s.watcher.Changes():
		if !ok {
			return false, nil
		}
		s.log.Info("scene changed on disk", zap.String("path", path))
		if err := s.Reload(); err != nil {
			return false, err
		}
		return true, nil
	default:
		return false, nil
	}
}

// Render produces one frame and returns the session's RGBA8 buffer, which
// is overwritten by the next call.
func (s *Session) Render() ([]byte, error) {
	start := time.Now()
	if err := s.tracer.Render(s.frame); err != nil {
		return nil, err
	}
	s.lastRender = time.Since(start)
	return s.frame, nil
}

// LastFrame returns the buffer written by the previous Render.
func (s *Session) LastFrame() []byte {
	return s.frame
}

// LastRenderTime returns how long the previous Render took.
func (s *Session) LastRenderTime() time.Duration {
	return s.lastRender
}

// Move queues the commands for the held navigation actions.
func (s *Session) Move(held func(controls.Action) bool, dt float32) {
	speeds := controls.Speeds{
		Move:   s.cfg.Camera.MoveSpeed,
		Rotate: s.cfg.Camera.RotateSpeed,
		Roll:   s.cfg.Camera.RollSpeed,
	}
	for _, cmd := range controls.Commands(held, speeds, dt) {
		s.tracer.Queue(cmd)
	}
}

// WidenFov steps the field of view up.
func (s *Session) WidenFov() {
	s.tracer.UpdateFov(config.Radians(s.fov.Widen()))
}

// NarrowFov steps the field of view down.
func (s *Session) NarrowFov() {
	s.tracer.UpdateFov(config.Radians(s.fov.Narrow()))
}

// SetFov queues a field of view change in degrees, clamped to the limits.
func (s *Session) SetFov(deg float32) {
	s.tracer.UpdateFov(config.Radians(s.fov.Set(deg)))
}

// Fov returns the field of view in degrees.
func (s *Session) Fov() float32 {
	return s.fov.Degrees
}

// ToggleUnifyNormals flips normal unification and returns the new state.
func (s *Session) ToggleUnifyNormals() (bool, error) {
	on := !s.tracer.UnifyNormals()
	return on, s.tracer.SetUnifyNormals(on)
}

// Tracer returns the session's tracer.
func (s *Session) Tracer() *tracer.Tracer {
	return s.tracer
}

// Scene returns the loaded scene, or nil.
func (s *Session) Scene() *scene.Scene {
	return s.scene
}

// Title formats the window title shown by the viewers.
func (s *Session) Title(app string, fps float64) string {
	st := s.tracer.Stats()
	return fmt.Sprintf("%s - %.1f fps - Surfaces = %d / Materials = %d", app, fps, st.Surfaces, st.Materials)
}

// Close stops watching and releases the tracer.
func (s *Session) Close() error {
	var err error
	if s.watcher != nil {
		err = multierr.Append(err, s.watcher.Close())
		s.watcher = nil
	}
	err = multierr.Append(err, s.tracer.Close())
	s.loader.Assets().Close()
	return err
}
