package cpu

import (
	"math/rand"
	"testing"

	"github.com/chewxy/math32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Faultbox/rtview/internal/engine/backend"
	"github.com/Faultbox/rtview/internal/engine/picking"
	"github.com/Faultbox/rtview/pkg/math"
)

// upload declares one triangle per entry of shaders, all sharing normal n.
func upload(t *testing.T, c *Context, verts []math.Vec3, n math.Vec3, shaders []uint8) {
	t.Helper()
	count := len(shaders)

	vb, err := c.CreateBuffer(backend.BufferInput, backend.FormatFloat3, 3*count, 1)
	require.NoError(t, err)
	nb, err := c.CreateBuffer(backend.BufferInput, backend.FormatFloat3, 3*count, 1)
	require.NoError(t, err)
	mb, err := c.CreateBuffer(backend.BufferInput, backend.FormatUnsignedByte, count, 1)
	require.NoError(t, err)

	vdata, err := vb.Map()
	require.NoError(t, err)
	ndata, err := nb.Map()
	require.NoError(t, err)
	mdata, err := mb.Map()
	require.NoError(t, err)
	for i, v := range verts {
		backend.PutVec3(vdata, i, v)
		backend.PutVec3(ndata, i, n)
	}
	copy(mdata, shaders)
	require.NoError(t, vb.Unmap())
	require.NoError(t, nb.Unmap())
	require.NoError(t, mb.Unmap())

	require.NoError(t, c.SetGeometry(backend.Geometry{
		Vertices:        vb,
		Normals:         nb,
		MaterialIndices: mb,
		TriangleCount:   count,
	}))
	require.NoError(t, c.BuildAcceleration())
}

func output(t *testing.T, c *Context, w, h int) backend.Buffer {
	t.Helper()
	out, err := c.CreateBuffer(backend.BufferOutput, backend.FormatUnsignedByte4, w, h)
	require.NoError(t, err)
	require.NoError(t, c.SetBuffer(backend.VarOutputBuffer, out))
	return out
}

func pixelAt(t *testing.T, out backend.Buffer, x, y int) [4]byte {
	t.Helper()
	data, err := out.Map()
	require.NoError(t, err)
	defer out.Unmap()
	w, _ := out.Size()
	off := (y*w + x) * 4
	return [4]byte{data[off], data[off+1], data[off+2], data[off+3]}
}

// camera at +Z looking at the origin
func pointCamera(t *testing.T, c *Context, h int) {
	t.Helper()
	require.NoError(t, c.SetFloat(backend.VarFocalLength, float32(h)/2))
	require.NoError(t, c.SetVec3(backend.VarViewFrom, math.Vec3{Z: 5}))
	require.NoError(t, c.SetMat3(backend.VarRotation, math.Identity3()))
}

func TestLaunchNormalShader(t *testing.T) {
	c := New(backend.Options{Workers: 3})
	defer c.Destroy()

	big := []math.Vec3{{X: -10, Y: -10}, {X: 10, Y: -10}, {Y: 10}}
	upload(t, c, big, math.Vec3{Z: 1}, []uint8{0})
	out := output(t, c, 8, 6)
	pointCamera(t, c, 6)

	require.NoError(t, c.Launch(8, 6))
	assert.Equal(t, 1, c.Launches())

	// n = (0,0,1) maps to (0.5, 0.5, 1)
	assert.Equal(t, [4]byte{128, 128, 255, 255}, pixelAt(t, out, 4, 3))
}

func TestLaunchEmptyGeometry(t *testing.T) {
	c := New(backend.Options{Workers: 2})
	defer c.Destroy()

	upload(t, c, nil, math.Vec3{}, nil)
	out := output(t, c, 4, 4)
	require.NoError(t, c.SetVec3(backend.VarBackground, math.Vec3{X: 1}))

	require.NoError(t, c.Launch(4, 4))
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			assert.Equal(t, [4]byte{255, 0, 0, 255}, pixelAt(t, out, x, y))
		}
	}
}

func TestLaunchWithoutGeometry(t *testing.T) {
	c := New(backend.Options{})
	defer c.Destroy()

	output(t, c, 2, 2)
	assert.NoError(t, c.Launch(2, 2))
}

func TestLaunchErrors(t *testing.T) {
	c := New(backend.Options{Workers: 1})
	defer c.Destroy()

	err := c.Launch(2, 2)
	assert.ErrorContains(t, err, "no output_buffer bound")

	out := output(t, c, 2, 2)
	assert.ErrorContains(t, c.Launch(3, 2), "does not match")

	_, err = out.Map()
	require.NoError(t, err)
	assert.ErrorIs(t, c.Launch(2, 2), backend.ErrMapped)
	require.NoError(t, out.Unmap())

	// Geometry declared but never built
	vb, err := c.CreateBuffer(backend.BufferInput, backend.FormatFloat3, 0, 1)
	require.NoError(t, err)
	require.NoError(t, c.SetGeometry(backend.Geometry{Vertices: vb}))
	assert.ErrorIs(t, c.Launch(2, 2), backend.ErrNotBuilt)
}

func TestBufferMapDiscipline(t *testing.T) {
	c := New(backend.Options{})
	defer c.Destroy()

	b, err := c.CreateBuffer(backend.BufferInput, backend.FormatFloat3, 4, 1)
	require.NoError(t, err)
	assert.Equal(t, 4, b.Len())

	data, err := b.Map()
	require.NoError(t, err)
	assert.Len(t, data, 48)

	_, err = b.Map()
	assert.ErrorIs(t, err, backend.ErrMapped)
	require.NoError(t, b.Unmap())
	assert.ErrorIs(t, b.Unmap(), backend.ErrNotMapped)

	require.NoError(t, b.Destroy())
	_, err = b.Map()
	assert.ErrorIs(t, err, backend.ErrDestroyed)
	assert.ErrorIs(t, b.Destroy(), backend.ErrDestroyed)
}

func TestCreateBufferValidation(t *testing.T) {
	c := New(backend.Options{})
	defer c.Destroy()

	_, err := c.CreateBuffer(backend.BufferInput, backend.Format(99), 1, 1)
	assert.Error(t, err)
	_, err = c.CreateBuffer(backend.BufferInput, backend.FormatFloat3, -1, 1)
	assert.Error(t, err)
}

func TestSetGeometryValidation(t *testing.T) {
	c := New(backend.Options{})
	defer c.Destroy()

	wrong, err := c.CreateBuffer(backend.BufferInput, backend.FormatUnsignedByte, 3, 1)
	require.NoError(t, err)
	err = c.SetGeometry(backend.Geometry{Vertices: wrong, TriangleCount: 1})
	var be *backend.Error
	require.ErrorAs(t, err, &be)
	assert.Equal(t, backend.CodeTypeMismatch, be.Code)

	short, err := c.CreateBuffer(backend.BufferInput, backend.FormatFloat3, 2, 1)
	require.NoError(t, err)
	err = c.SetGeometry(backend.Geometry{Vertices: short, TriangleCount: 1})
	assert.ErrorContains(t, err, "want 3")

	other := New(backend.Options{})
	defer other.Destroy()
	foreign, err := other.CreateBuffer(backend.BufferInput, backend.FormatFloat3, 3, 1)
	require.NoError(t, err)
	err = c.SetGeometry(backend.Geometry{Vertices: foreign, TriangleCount: 1})
	assert.ErrorContains(t, err, "does not belong")
}

func TestVariableTypeMismatch(t *testing.T) {
	c := New(backend.Options{})
	defer c.Destroy()

	require.NoError(t, c.SetFloat(backend.VarGamma, 2.2))
	require.NoError(t, c.SetFloat(backend.VarGamma, 1.8))
	err := c.SetInt(backend.VarGamma, 1)
	var be *backend.Error
	require.ErrorAs(t, err, &be)
	assert.Equal(t, backend.CodeTypeMismatch, be.Code)
}

func TestDestroy(t *testing.T) {
	c := New(backend.Options{})
	b, err := c.CreateBuffer(backend.BufferInput, backend.FormatUnsignedByte, 1, 1)
	require.NoError(t, err)

	require.NoError(t, c.Destroy())
	assert.ErrorIs(t, c.Destroy(), backend.ErrDestroyed)
	assert.ErrorIs(t, c.SetFloat(backend.VarGamma, 1), backend.ErrDestroyed)
	assert.ErrorIs(t, c.Launch(1, 1), backend.ErrDestroyed)
	_, err = b.Map()
	assert.ErrorIs(t, err, backend.ErrDestroyed)
}

func TestRegisteredAsCPU(t *testing.T) {
	ctx, err := backend.Open(Name, backend.Options{Workers: 2})
	require.NoError(t, err)
	defer ctx.Destroy()
	assert.Equal(t, "cpu", ctx.Name())
	assert.Equal(t, 2, ctx.(*Context).Workers())
}

func TestBVHMatchesBruteForce(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	rnd := func() math.Vec3 {
		return math.Vec3{X: rng.Float32()*20 - 10, Y: rng.Float32()*20 - 10, Z: rng.Float32()*20 - 10}
	}

	tris := make([]triangle, 200)
	for i := range tris {
		c := rnd()
		tris[i].v = [3]math.Vec3{c, c.Add(rnd().Scale(0.1)), c.Add(rnd().Scale(0.1))}
	}
	accel := buildBVH(tris)
	require.NotEmpty(t, accel.nodes)

	for i := 0; i < 500; i++ {
		ray := picking.Ray{Origin: rnd().Scale(2), Direction: rnd().Normalize()}

		wantT := float32(math32.MaxFloat32)
		want := -1
		for j := range tris {
			if d, _, _, ok := ray.IntersectTriangle(tris[j].v[0], tris[j].v[1], tris[j].v[2]); ok && d < wantT {
				wantT, want = d, j
			}
		}

		got, ok := accel.intersect(ray)
		require.Equal(t, want >= 0, ok, "ray %d", i)
		if ok {
			assert.InDelta(t, wantT, got.t, 1e-4, "ray %d", i)
		}
	}
}

func TestGammaEncoding(t *testing.T) {
	p := &program{gamma: 2}
	assert.Equal(t, byte(0), p.channel(-1))
	assert.Equal(t, byte(255), p.channel(2))
	assert.Equal(t, byte(128), p.channel(0.25))

	linear := &program{gamma: 1}
	assert.Equal(t, byte(128), linear.channel(0.5))
}
