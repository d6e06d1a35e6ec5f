// Package tracer drives per-frame rendering: it owns the device context,
// the camera and the uploaded scene, and turns queued camera input into
// exactly one backend launch per rendered frame.
package tracer

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/Faultbox/rtview/internal/engine/backend"
	"github.com/Faultbox/rtview/internal/engine/camera"
	"github.com/Faultbox/rtview/internal/engine/geometry"
	"github.com/Faultbox/rtview/internal/logger"
	"github.com/Faultbox/rtview/internal/scene"
	"github.com/Faultbox/rtview/pkg/math"
)

// Tracer errors.
var (
	ErrBufferSize = errors.New("destination buffer has wrong size")
	ErrClosed     = errors.New("tracer closed")
)

// Config describes the output image and initial view.
type Config struct {
	Width  int
	Height int
	FovY   float32 // radians

	From math.Vec3
	At   math.Vec3
	// Up replaces the camera's default up hint when non-zero.
	Up math.Vec3

	Gamma        float32
	Background   math.Vec3
	UnifyNormals bool
}

// Tracer renders frames. It is not safe for concurrent use.
type Tracer struct {
	cfg    Config
	ctx    backend.Context
	camera *camera.Camera
	output backend.Buffer

	geometry    backend.Geometry
	hasGeometry bool
	stats       scene.Stats

	queue  []camera.Command
	frame  uint64
	closed bool
	log    *zap.Logger
}

// Open creates a context on the named backend and a tracer on it. The
// tracer owns the context.
func Open(name string, opts backend.Options, cfg Config) (*Tracer, error) {
	ctx, err := backend.Open(name, opts)
	if err != nil {
		return nil, err
	}
	t, err := New(ctx, cfg)
	if err != nil {
		return nil, multierr.Append(err, ctx.Destroy())
	}
	return t, nil
}

// New initializes the device: it allocates the RGBA8 output buffer, binds
// it and the shading parameters, and builds the camera. The tracer takes
// ownership of ctx.
func New(ctx backend.Context, cfg Config) (*Tracer, error) {
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, fmt.Errorf("invalid output size %dx%d", cfg.Width, cfg.Height)
	}
	if cfg.Gamma <= 0 {
		cfg.Gamma = 1
	}

	t := &Tracer{
		cfg:    cfg,
		ctx:    ctx,
		camera: camera.New(cfg.Width, cfg.Height, cfg.FovY, cfg.From, cfg.At),
		log:    logger.Named("tracer"),
	}
	if cfg.Up != (math.Vec3{}) {
		t.camera.SetUpHint(cfg.Up)
		t.camera.RecalculateFrame()
	}

	out, err := ctx.CreateBuffer(backend.BufferOutput, backend.FormatUnsignedByte4, cfg.Width, cfg.Height)
	if err != nil {
		return nil, fmt.Errorf("output buffer: %w", err)
	}
	t.output = out

	err = multierr.Combine(
		ctx.SetBuffer(backend.VarOutputBuffer, out),
		ctx.SetFloat(backend.VarGamma, cfg.Gamma),
		ctx.SetVec3(backend.VarBackground, cfg.Background),
		ctx.SetInt(backend.VarUnifyNormals, boolInt(cfg.UnifyNormals)),
	)
	if err != nil {
		return nil, multierr.Append(err, out.Destroy())
	}

	t.log.Info("device initialized",
		zap.String("backend", ctx.Name()),
		zap.Int("width", cfg.Width),
		zap.Int("height", cfg.Height),
		zap.Float32("focal_length", t.camera.FocalLength()),
	)
	return t, nil
}

// LoadScene packs sc, uploads it and builds the acceleration structure,
// replacing any previous scene.
func (t *Tracer) LoadScene(sc *scene.Scene) error {
	if t.closed {
		return ErrClosed
	}
	start := time.Now()

	packed := geometry.PackScene(sc)
	g, err := geometry.Upload(t.ctx, packed)
	if err != nil {
		return fmt.Errorf("uploading geometry: %w", err)
	}
	if err := t.ctx.SetGeometry(g); err != nil {
		return multierr.Append(err, geometry.Destroy(g))
	}
	if err := t.ctx.BuildAcceleration(); err != nil {
		return multierr.Append(err, geometry.Destroy(g))
	}

	if t.hasGeometry {
		if err := geometry.Destroy(t.geometry); err != nil {
			t.log.Warn("releasing previous geometry", zap.Error(err))
		}
	}
	t.geometry, t.hasGeometry = g, true
	t.stats = sc.Stats()

	t.log.Info("scene uploaded",
		zap.Int("surfaces", t.stats.Surfaces),
		zap.Int("materials", t.stats.Materials),
		zap.Int("triangles", packed.TriangleCount),
		zap.Int("bytes", packed.ByteSize()),
		zap.Duration("elapsed", time.Since(start)),
	)
	return nil
}

// Queue records a camera transform to apply at the next Render.
func (t *Tracer) Queue(cmd camera.Command) {
	t.queue = append(t.queue, cmd)
}

func (t *Tracer) MoveForward(step float32) { t.Queue(camera.Command{Op: camera.OpMoveForward, Step: step}) }
func (t *Tracer) MoveRight(step float32) { t.Queue(camera.Command{Op: camera.OpMoveRight, Step: step}) }
func (t *Tracer) RotateRight(step float32) { t.Queue(camera.Command{Op: camera.OpRotateRight, Step: step}) }
func (t *Tracer) RotateUp(step float32) { t.Queue(camera.Command{Op: camera.OpRotateUp, Step: step}) }
func (t *Tracer) RollRight(step float32) { t.Queue(camera.Command{Op: camera.OpRollRight, Step: step}) }

// UpdateFov queues a field of view change (radians).
func (t *Tracer) UpdateFov(fovY float32) {
	t.Queue(camera.Command{Op: camera.OpUpdateFov, Step: fovY})
}

// Pending returns the number of queued transforms.
func (t *Tracer) Pending() int {
	return len(t.queue)
}

// Render produces one frame into dst, which must hold width*height*4 bytes
// of RGBA8. It applies queued transforms, refreshes the camera frame,
// pushes the camera parameters and blocks on a single launch.
func (t *Tracer) Render(dst []byte) error {
	if t.closed {
		return ErrClosed
	}
	if want := t.cfg.Width * t.cfg.Height * 4; len(dst) != want {
		return fmt.Errorf("%w: got %d bytes, want %d", ErrBufferSize, len(dst), want)
	}

	for _, cmd := range t.queue {
		t.camera.Apply(cmd)
	}
	t.queue = t.queue[:0]
	t.camera.RecalculateFrame()

	err := multierr.Combine(
		t.ctx.SetFloat(backend.VarFocalLength, t.camera.FocalLength()),
		t.ctx.SetVec3(backend.VarViewFrom, t.camera.Position()),
		t.ctx.SetMat3(backend.VarRotation, t.camera.RotationMatrix()),
	)
	if err != nil {
		return err
	}

	if err := t.ctx.Launch(t.cfg.Width, t.cfg.Height); err != nil {
		return err
	}
	if err := t.copyOutput(dst); err != nil {
		return err
	}
	t.frame++
	return nil
}

func (t *Tracer) copyOutput(dst []byte) (err error) {
	data, err := t.output.Map()
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, t.output.Unmap())
	}()
	copy(dst, data)
	return nil
}

// SetGamma changes the output gamma.
func (t *Tracer) SetGamma(gamma float32) error {
	if t.closed {
		return ErrClosed
	}
	if err := t.ctx.SetFloat(backend.VarGamma, gamma); err != nil {
		return err
	}
	t.cfg.Gamma = gamma
	return nil
}

// SetUnifyNormals toggles flipping normals to face the viewer.
func (t *Tracer) SetUnifyNormals(on bool) error {
	if t.closed {
		return ErrClosed
	}
	if err := t.ctx.SetInt(backend.VarUnifyNormals, boolInt(on)); err != nil {
		return err
	}
	t.cfg.UnifyNormals = on
	return nil
}

// SetBackground changes the miss color.
func (t *Tracer) SetBackground(c math.Vec3) error {
	if t.closed {
		return ErrClosed
	}
	if err := t.ctx.SetVec3(backend.VarBackground, c); err != nil {
		return err
	}
	t.cfg.Background = c
	return nil
}

// Camera returns the tracer's camera. Changes made directly take effect at
// the next Render.
func (t *Tracer) Camera() *camera.Camera { return t.camera }

// Frame returns the number of rendered frames.
func (t *Tracer) Frame() uint64 { return t.frame }

// Size returns the output dimensions.
func (t *Tracer) Size() (width, height int) { return t.cfg.Width, t.cfg.Height }

// BufferSize returns the byte length Render expects.
func (t *Tracer) BufferSize() int { return t.cfg.Width * t.cfg.Height * 4 }

// Stats returns counts for the loaded scene.
func (t *Tracer) Stats() scene.Stats { return t.stats }

// Gamma returns the current output gamma.
func (t *Tracer) Gamma() float32 { return t.cfg.Gamma }

// UnifyNormals reports whether normals are flipped toward the viewer.
func (t *Tracer) UnifyNormals() bool { return t.cfg.UnifyNormals }

// Backend returns the device name.
func (t *Tracer) Backend() string { return t.ctx.Name() }

// Close destroys the scene buffers, the output buffer and the context.
func (t *Tracer) Close() error {
	if t.closed {
		return ErrClosed
	}
	t.closed = true

	var err error
	if t.hasGeometry {
		err = multierr.Append(err, geometry.Destroy(t.geometry))
	}
	err = multierr.Append(err, t.output.Destroy())
	err = multierr.Append(err, t.ctx.Destroy())
	t.log.Info("device destroyed", zap.Uint64("frames", t.frame))
	return err
}

func boolInt(b bool) int32 {
	if b {
		return 1
	}
	return 0
}
