package cpu

import (
	"github.com/chewxy/math32"

	"github.com/Faultbox/rtview/internal/engine/picking"
	"github.com/Faultbox/rtview/pkg/math"
)

// palette colors non-zero shader ids.
var palette = []math.Vec3{
	{X: 0.85, Y: 0.85, Z: 0.85},
	{X: 0.90, Y: 0.30, Z: 0.25},
	{X: 0.30, Y: 0.75, Z: 0.35},
	{X: 0.25, Y: 0.45, Z: 0.90},
	{X: 0.95, Y: 0.80, Z: 0.25},
	{X: 0.70, Y: 0.35, Z: 0.85},
	{X: 0.25, Y: 0.80, Z: 0.85},
	{X: 0.95, Y: 0.55, Z: 0.20},
}

const ambient = 0.1

// program holds the per-launch parameters for ray generation and shading.
type program struct {
	width, height int
	focalLength   float32
	from          math.Vec3
	mcw           math.Mat3
	gamma         float32
	background    math.Vec3
	unifyNormals  bool
	accel         *bvh
}

// pixel traces the primary ray for (x, y) and returns its RGBA8 color.
func (p *program) pixel(x, y int) [4]byte {
	ray := picking.CameraRay(x, y, p.width, p.height, p.focalLength, p.mcw, p.from)

	color := p.background
	if h, ok := p.accel.intersect(ray); ok {
		color = p.shade(ray, h)
	}
	return p.encode(color)
}

func (p *program) shade(ray picking.Ray, h hit) math.Vec3 {
	tri := &p.accel.tris[h.tri]
	w := 1 - h.u - h.v
	n := tri.n[0].Scale(w).Add(tri.n[1].Scale(h.u)).Add(tri.n[2].Scale(h.v)).Normalize()
	if n == (math.Vec3{}) {
		n = tri.v[1].Sub(tri.v[0]).Cross(tri.v[2].Sub(tri.v[0])).Normalize()
	}
	if p.unifyNormals && n.Dot(ray.Direction) > 0 {
		n = n.Neg()
	}

	if tri.shader == 0 {
		return n.Add(math.Vec3{X: 1, Y: 1, Z: 1}).Scale(0.5)
	}

	// Headlight: the light sits at the eye
	lambert := math32.Max(0, n.Dot(ray.Direction.Neg()))
	base := palette[int(tri.shader)%len(palette)]
	return base.Scale(ambient + (1-ambient)*lambert)
}

func (p *program) encode(c math.Vec3) [4]byte {
	return [4]byte{p.channel(c.X), p.channel(c.Y), p.channel(c.Z), 255}
}

func (p *program) channel(v float32) byte {
	v = math32.Max(0, math32.Min(1, v))
	if p.gamma > 0 && p.gamma != 1 {
		v = math32.Pow(v, 1/p.gamma)
	}
	return byte(v*255 + 0.5)
}
