// Package cpu is a software ray-tracing backend. It implements the device
// contract on host memory so scenes can be rendered without a GPU.
package cpu

import (
	"fmt"
	"runtime"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Faultbox/rtview/internal/engine/backend"
	"github.com/Faultbox/rtview/internal/logger"
	"github.com/Faultbox/rtview/pkg/math"
)

// Name is the registry name of this backend.
const Name = "cpu"

func init() {
	backend.Register(Name, func(opts backend.Options) (backend.Context, error) {
		return New(opts), nil
	})
}

// Context is a CPU device.
type Context struct {
	workers   int
	vars      map[string]any
	buffers   map[*Buffer]struct{}
	geometry  *backend.Geometry
	accel     *bvh
	launches  int
	destroyed bool
	log       *zap.Logger
}

// New creates a CPU device.
func New(opts backend.Options) *Context {
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	c := &Context{
		workers: workers,
		vars:    make(map[string]any),
		buffers: make(map[*Buffer]struct{}),
		log:     logger.Named("backend.cpu"),
	}
	c.log.Debug("context created", zap.Int("workers", workers))
	return c
}

// Name returns the backend name.
func (c *Context) Name() string { return Name }

// Workers returns the launch parallelism.
func (c *Context) Workers() int { return c.workers }

// Launches returns the number of completed launches.
func (c *Context) Launches() int { return c.launches }

func (c *Context) alive(op string) error {
	if c.destroyed {
		return &backend.Error{Op: op, Code: backend.CodeInvalidContext, Err: backend.ErrDestroyed}
	}
	return nil
}

// CreateBuffer allocates a zeroed buffer.
func (c *Context) CreateBuffer(typ backend.BufferType, format backend.Format, width, height int) (backend.Buffer, error) {
	if err := c.alive("create buffer"); err != nil {
		return nil, err
	}
	if format.ElementSize() == 0 {
		return nil, backend.Errorf("create buffer", backend.CodeInvalidValue, "unknown format %s", format)
	}
	if width < 0 || height < 0 {
		return nil, backend.Errorf("create buffer", backend.CodeInvalidValue, "negative size %dx%d", width, height)
	}

	b := &Buffer{
		ctx:    c,
		typ:    typ,
		format: format,
		width:  width,
		height: height,
		data:   make([]byte, width*height*format.ElementSize()),
	}
	c.buffers[b] = struct{}{}
	return b, nil
}

// setVar binds a parameter. A name keeps the type of its first binding.
func (c *Context) setVar(name string, v any) error {
	op := "set " + name
	if err := c.alive(op); err != nil {
		return err
	}
	if old, ok := c.vars[name]; ok && fmt.Sprintf("%T", old) != fmt.Sprintf("%T", v) {
		return backend.Errorf(op, backend.CodeTypeMismatch, "variable is %T, not %T", old, v)
	}
	c.vars[name] = v
	return nil
}

func (c *Context) SetFloat(name string, v float32) error { return c.setVar(name, v) }
func (c *Context) SetInt(name string, v int32) error { return c.setVar(name, v) }
func (c *Context) SetVec3(name string, v math.Vec3) error { return c.setVar(name, v) }
func (c *Context) SetMat3(name string, m math.Mat3) error { return c.setVar(name, m) }

// SetBuffer binds a buffer created by this context.
func (c *Context) SetBuffer(name string, b backend.Buffer) error {
	cb, err := c.own("set "+name, b)
	if err != nil {
		return err
	}
	return c.setVar(name, cb)
}

func (c *Context) own(op string, b backend.Buffer) (*Buffer, error) {
	cb, ok := b.(*Buffer)
	if !ok || cb.ctx != c {
		return nil, backend.Errorf(op, backend.CodeInvalidValue, "buffer does not belong to this context")
	}
	if cb.destroyed {
		return nil, &backend.Error{Op: op, Code: backend.CodeInvalidContext, Err: backend.ErrDestroyed}
	}
	return cb, nil
}

// SetGeometry declares the triangle soup. It invalidates any built acceleration.
func (c *Context) SetGeometry(g backend.Geometry) error {
	const op = "set geometry"
	if err := c.alive(op); err != nil {
		return err
	}
	if g.TriangleCount < 0 {
		return backend.Errorf(op, backend.CodeInvalidValue, "negative triangle count %d", g.TriangleCount)
	}

	check := func(what string, b backend.Buffer, format backend.Format, n int) error {
		if b == nil {
			if n == 0 {
				return nil
			}
			return backend.Errorf(op, backend.CodeInvalidValue, "%s buffer missing", what)
		}
		if _, err := c.own(op, b); err != nil {
			return err
		}
		if b.Format() != format {
			return backend.Errorf(op, backend.CodeTypeMismatch, "%s buffer is %s, want %s", what, b.Format(), format)
		}
		if b.Len() != n {
			return backend.Errorf(op, backend.CodeInvalidValue, "%s buffer has %d elements, want %d", what, b.Len(), n)
		}
		return nil
	}
	if err := check("vertex", g.Vertices, backend.FormatFloat3, 3*g.TriangleCount); err != nil {
		return err
	}
	if err := check("normal", g.Normals, backend.FormatFloat3, 3*g.TriangleCount); err != nil {
		return err
	}
	if err := check("material index", g.MaterialIndices, backend.FormatUnsignedByte, g.TriangleCount); err != nil {
		return err
	}

	c.geometry = &g
	c.accel = nil
	return nil
}

// BuildAcceleration snapshots the geometry buffers and builds a BVH.
func (c *Context) BuildAcceleration() error {
	const op = "build acceleration"
	if err := c.alive(op); err != nil {
		return err
	}
	start := time.Now()

	var tris []triangle
	if g := c.geometry; g != nil && g.TriangleCount > 0 {
		verts, norms, mats := g.Vertices.(*Buffer), g.Normals.(*Buffer), g.MaterialIndices.(*Buffer)
		for _, b := range []*Buffer{verts, norms, mats} {
			if err := b.usable(op); err != nil {
				return err
			}
		}

		tris = make([]triangle, g.TriangleCount)
		for i := range tris {
			for k := 0; k < 3; k++ {
				tris[i].v[k] = backend.Vec3At(verts.data, 3*i+k)
				tris[i].n[k] = backend.Vec3At(norms.data, 3*i+k)
			}
			tris[i].shader = mats.data[i]
		}
	}

	c.accel = buildBVH(tris)
	c.log.Debug("acceleration built",
		zap.Int("triangles", len(tris)),
		zap.Int("nodes", len(c.accel.nodes)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return nil
}

// Launch renders width x height pixels into the bound output buffer. Rows
// are shared across workers; the call returns after all rows are written.
func (c *Context) Launch(width, height int) error {
	const op = "launch"
	if err := c.alive(op); err != nil {
		return err
	}

	out, ok := c.vars[backend.VarOutputBuffer].(*Buffer)
	if !ok {
		return backend.Errorf(op, backend.CodeInvalidValue, "no %s bound", backend.VarOutputBuffer)
	}
	if err := out.usable(op); err != nil {
		return err
	}
	if out.format != backend.FormatUnsignedByte4 {
		return backend.Errorf(op, backend.CodeTypeMismatch, "output buffer is %s", out.format)
	}
	if out.width != width || out.height != height {
		return backend.Errorf(op, backend.CodeInvalidValue, "launch %dx%d does not match output %dx%d", width, height, out.width, out.height)
	}

	accel := c.accel
	if accel == nil {
		if c.geometry != nil {
			return &backend.Error{Op: op, Code: backend.CodeInvalidContext, Err: backend.ErrNotBuilt}
		}
		accel = buildBVH(nil)
	}

	prog := &program{
		width:        width,
		height:       height,
		focalLength:  c.floatVar(backend.VarFocalLength, float32(height)/2),
		from:         c.vec3Var(backend.VarViewFrom, math.Vec3{}),
		mcw:          c.mat3Var(backend.VarRotation, math.Identity3()),
		gamma:        c.floatVar(backend.VarGamma, 1),
		background:   c.vec3Var(backend.VarBackground, math.Vec3{}),
		unifyNormals: c.intVar(backend.VarUnifyNormals, 0) != 0,
		accel:        accel,
	}

	bands := min(c.workers, height)
	var g errgroup.Group
	for band := 0; band < bands; band++ {
		g.Go(func() error {
			for y := band; y < height; y += bands {
				row := out.data[y*width*4 : (y+1)*width*4]
				for x := 0; x < width; x++ {
					px := prog.pixel(x, y)
					copy(row[x*4:], px[:])
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return &backend.Error{Op: op, Code: backend.CodeLaunchFailed, Err: err}
	}
	c.launches++
	return nil
}

// Destroy releases every buffer and the context.
func (c *Context) Destroy() error {
	if err := c.alive("destroy"); err != nil {
		return err
	}
	for b := range c.buffers {
		b.destroyed = true
		b.mapped = false
		b.data = nil
	}
	c.buffers = nil
	c.vars = nil
	c.geometry = nil
	c.accel = nil
	c.destroyed = true
	c.log.Debug("context destroyed", zap.Int("launches", c.launches))
	return nil
}

func (c *Context) floatVar(name string, def float32) float32 {
	if v, ok := c.vars[name].(float32); ok {
		return v
	}
	return def
}

func (c *Context) intVar(name string, def int32) int32 {
	if v, ok := c.vars[name].(int32); ok {
		return v
	}
	return def
}

func (c *Context) vec3Var(name string, def math.Vec3) math.Vec3 {
	if v, ok := c.vars[name].(math.Vec3); ok {
		return v
	}
	return def
}

func (c *Context) mat3Var(name string, def math.Mat3) math.Mat3 {
	if v, ok := c.vars[name].(math.Mat3); ok {
		return v
	}
	return def
}
