package tracer

import (
	"testing"

	"github.com/chewxy/math32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Faultbox/rtview/internal/engine/backend"
	"github.com/Faultbox/rtview/internal/engine/backend/cpu"
	"github.com/Faultbox/rtview/internal/engine/camera"
	"github.com/Faultbox/rtview/internal/scene"
	"github.com/Faultbox/rtview/pkg/math"
)

const (
	width  = 16
	height = 12
)

func testConfig() Config {
	return Config{
		Width:  width,
		Height: height,
		FovY:   math32.Pi / 3,
		From:   math.Vec3{Z: 5},
		At:     math.Vec3{},
		Up:     math.Vec3{Y: 1},
	}
}

func newTracer(t *testing.T, cfg Config) (*Tracer, *cpu.Context) {
	t.Helper()
	ctx := cpu.New(backend.Options{Workers: 2})
	tr, err := New(ctx, cfg)
	require.NoError(t, err)
	return tr, ctx
}

// wall is a single large triangle in the z=0 plane facing +Z.
func wall(shader scene.ShaderID) *scene.Scene {
	n := math.Vec3{Z: 1}
	return &scene.Scene{
		Surfaces: []*scene.Surface{{
			Name: "wall",
			Triangles: []scene.Triangle{{Vertices: [3]scene.Vertex{
				{Position: math.Vec3{X: -50, Y: -50}, Normal: n},
				{Position: math.Vec3{X: 50, Y: -50}, Normal: n},
				{Position: math.Vec3{Y: 50}, Normal: n},
			}}},
			Material: &scene.Material{Shader: shader},
		}},
		Materials: []*scene.Material{{Shader: shader}},
	}
}

func pixel(buf []byte, x, y int) [4]byte {
	off := (y*width + x) * 4
	return [4]byte{buf[off], buf[off+1], buf[off+2], buf[off+3]}
}

func TestRenderBufferSize(t *testing.T) {
	tr, ctx := newTracer(t, testConfig())
	defer tr.Close()

	tr.MoveForward(1)
	err := tr.Render(make([]byte, width*height*3))
	assert.ErrorIs(t, err, ErrBufferSize)
	assert.Zero(t, ctx.Launches())
	assert.Equal(t, 1, tr.Pending(), "rejected render must not consume queued input")
	assert.Equal(t, width*height*4, tr.BufferSize())
}

func TestRenderOneLaunchPerFrame(t *testing.T) {
	tr, ctx := newTracer(t, testConfig())
	defer tr.Close()

	dst := make([]byte, tr.BufferSize())
	for i := 1; i <= 3; i++ {
		require.NoError(t, tr.Render(dst))
		assert.Equal(t, i, ctx.Launches())
		assert.Equal(t, uint64(i), tr.Frame())
	}
}

func TestRenderEmptySceneIsBackground(t *testing.T) {
	cfg := testConfig()
	cfg.Background = math.Vec3{Y: 1}
	tr, _ := newTracer(t, cfg)
	defer tr.Close()

	require.NoError(t, tr.LoadScene(&scene.Scene{}))
	assert.Equal(t, scene.Stats{}, tr.Stats())

	dst := make([]byte, tr.BufferSize())
	require.NoError(t, tr.Render(dst))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			require.Equal(t, [4]byte{0, 255, 0, 255}, pixel(dst, x, y))
		}
	}
}

func TestRenderScene(t *testing.T) {
	tr, _ := newTracer(t, testConfig())
	defer tr.Close()

	require.NoError(t, tr.LoadScene(wall(0)))
	assert.Equal(t, scene.Stats{Surfaces: 1, Materials: 1, Triangles: 1}, tr.Stats())

	dst := make([]byte, tr.BufferSize())
	require.NoError(t, tr.Render(dst))
	assert.Equal(t, [4]byte{128, 128, 255, 255}, pixel(dst, width/2, height/2))
}

func TestRenderAppliesQueuedCommands(t *testing.T) {
	tr, _ := newTracer(t, testConfig())
	defer tr.Close()

	start := tr.Camera().Position()
	tr.MoveForward(2)
	tr.MoveRight(1)
	tr.MoveRight(-1)
	assert.Equal(t, start, tr.Camera().Position(), "commands are deferred until Render")
	assert.Equal(t, 3, tr.Pending())

	require.NoError(t, tr.Render(make([]byte, tr.BufferSize())))
	assert.Zero(t, tr.Pending())

	// forward points from the target to the eye, so moving forward approaches
	got := tr.Camera().Position()
	assert.InDelta(t, 3, got.Z, 1e-5)
	assert.InDelta(t, 0, got.X, 1e-5)
	assert.False(t, tr.Camera().Dirty())
}

func TestRenderPushesCameraParameters(t *testing.T) {
	tr, _ := newTracer(t, testConfig())
	defer tr.Close()

	require.NoError(t, tr.LoadScene(wall(0)))
	dst := make([]byte, tr.BufferSize())

	// Turning far to the right leaves the wall out of view
	require.NoError(t, tr.SetBackground(math.Vec3{X: 1}))
	tr.Queue(camera.Command{Op: camera.OpRotateRight, Step: 1000})
	require.NoError(t, tr.Render(dst))
	assert.Equal(t, [4]byte{255, 0, 0, 255}, pixel(dst, width/2, height/2))
}

func TestUpdateFovChangesFocalLength(t *testing.T) {
	tr, _ := newTracer(t, testConfig())
	defer tr.Close()

	tr.UpdateFov(math32.Pi / 2)
	require.NoError(t, tr.Render(make([]byte, tr.BufferSize())))
	assert.InDelta(t, float32(height)/2, tr.Camera().FocalLength(), 1e-4)
}

func TestLoadSceneReplacesGeometry(t *testing.T) {
	tr, _ := newTracer(t, testConfig())
	defer tr.Close()

	require.NoError(t, tr.LoadScene(wall(0)))
	first := tr.geometry
	require.NoError(t, tr.LoadScene(wall(2)))

	_, err := first.Vertices.Map()
	assert.ErrorIs(t, err, backend.ErrDestroyed, "previous geometry must be released")

	dst := make([]byte, tr.BufferSize())
	require.NoError(t, tr.Render(dst))
	center := pixel(dst, width/2, height/2)
	assert.NotEqual(t, [4]byte{128, 128, 255, 255}, center, "shader 2 should not use normal shading")
}

func TestSettings(t *testing.T) {
	tr, _ := newTracer(t, testConfig())
	defer tr.Close()

	assert.Equal(t, float32(1), tr.Gamma(), "zero gamma defaults to 1")
	require.NoError(t, tr.SetGamma(2.2))
	assert.Equal(t, float32(2.2), tr.Gamma())
	require.NoError(t, tr.SetUnifyNormals(true))
	assert.True(t, tr.UnifyNormals())
	assert.Equal(t, "cpu", tr.Backend())

	w, h := tr.Size()
	assert.Equal(t, width, w)
	assert.Equal(t, height, h)
}

func TestClose(t *testing.T) {
	tr, ctx := newTracer(t, testConfig())
	require.NoError(t, tr.LoadScene(wall(0)))

	require.NoError(t, tr.Close())
	assert.ErrorIs(t, tr.Close(), ErrClosed)
	assert.ErrorIs(t, tr.Render(make([]byte, tr.BufferSize())), ErrClosed)
	assert.ErrorIs(t, tr.LoadScene(wall(0)), ErrClosed)
	assert.ErrorIs(t, tr.SetGamma(1), ErrClosed)
	assert.ErrorIs(t, ctx.Destroy(), backend.ErrDestroyed, "context destroyed by Close")
}

func TestOpen(t *testing.T) {
	tr, err := Open(cpu.Name, backend.Options{Workers: 1}, testConfig())
	require.NoError(t, err)
	require.NoError(t, tr.Close())

	_, err = Open("missing", backend.Options{}, testConfig())
	assert.ErrorIs(t, err, backend.ErrUnknownBackend)

	_, err = Open(cpu.Name, backend.Options{}, Config{})
	assert.Error(t, err)
}
