// Package picking provides ray generation and ray/box/triangle intersection.
package picking

import (
	"github.com/chewxy/math32"

	"github.com/Faultbox/rtview/pkg/math"
)

// Epsilon is the minimum hit distance and the parallel-ray threshold.
const Epsilon = 1e-6

// Ray represents a ray in 3D space with origin and direction.
type Ray struct {
	Origin    math.Vec3
	Direction math.Vec3 // Normalized direction
}

// At returns the point at distance t along the ray.
func (r Ray) At(t float32) math.Vec3 {
	return r.Origin.Add(r.Direction.Scale(t))
}

// CameraRay builds the primary ray through the centre of pixel (x, y) of a
// width x height image. Row 0 is the top of the image. The camera looks down
// its local -Z axis; mcw rotates camera space into world space.
func CameraRay(x, y, width, height int, focalLength float32, mcw math.Mat3, from math.Vec3) Ray {
	dc := math.Vec3{
		X: float32(x) + 0.5 - float32(width)/2,
		Y: float32(height)/2 - float32(y) - 0.5,
		Z: -focalLength,
	}
	return Ray{Origin: from, Direction: mcw.MulVec3(dc).Normalize()}
}

// AABB represents an axis-aligned bounding box.
type AABB struct {
	Min math.Vec3
	Max math.Vec3
}

// NewAABB creates an AABB from two corners in any order.
func NewAABB(a, b math.Vec3) AABB {
	return AABB{Min: a.Min(b), Max: a.Max(b)}
}

// EmptyAABB returns an inverted box that any Extend call replaces.
func EmptyAABB() AABB {
	inf := math32.Inf(1)
	return AABB{
		Min: math.Vec3{X: inf, Y: inf, Z: inf},
		Max: math.Vec3{X: -inf, Y: -inf, Z: -inf},
	}
}

// Extend grows the box to contain p.
func (b AABB) Extend(p math.Vec3) AABB {
	return AABB{Min: b.Min.Min(p), Max: b.Max.Max(p)}
}

// Union returns the box containing both boxes.
func (b AABB) Union(o AABB) AABB {
	return AABB{Min: b.Min.Min(o.Min), Max: b.Max.Max(o.Max)}
}

// Center returns the box midpoint.
func (b AABB) Center() math.Vec3 {
	return b.Min.Add(b.Max).Scale(0.5)
}

// LongestAxis returns 0, 1 or 2 for the box's widest extent.
func (b AABB) LongestAxis() int {
	ext := b.Max.Sub(b.Min)
	axis := 0
	if ext.Y > ext.X {
		axis = 1
	}
	if ext.Z > ext.Axis(axis) {
		axis = 2
	}
	return axis
}

// slab clips the ray against the box, returning the entry and exit distances.
func (r Ray) slab(box AABB) (tmin, tmax float32, ok bool) {
	tmin = -math32.MaxFloat32
	tmax = math32.MaxFloat32

	for axis := 0; axis < 3; axis++ {
		o := r.Origin.Axis(axis)
		d := r.Direction.Axis(axis)
		lo, hi := box.Min.Axis(axis), box.Max.Axis(axis)

		if d == 0 {
			if o < lo || o > hi {
				return 0, 0, false
			}
			continue
		}
		t1 := (lo - o) / d
		t2 := (hi - o) / d
		if t1 > t2 {
			t1, t2 = t2, t1
		}
		if t1 > tmin {
			tmin = t1
		}
		if t2 < tmax {
			tmax = t2
		}
	}

	if tmax < tmin || tmax < 0 {
		return 0, 0, false
	}
	return tmin, tmax, true
}

// IntersectAABB tests ray intersection with an axis-aligned bounding box.
// Returns the distance to intersection (t) and whether intersection occurred.
// If the ray starts inside the box, returns the exit distance.
func (r Ray) IntersectAABB(box AABB) (t float32, hit bool) {
	tmin, tmax, ok := r.slab(box)
	if !ok {
		return 0, false
	}
	if tmin < 0 {
		return tmax, true
	}
	return tmin, true
}

// Overlaps reports whether the ray enters box no farther than maxT.
// A ray starting inside the box always overlaps it.
func (r Ray) Overlaps(box AABB, maxT float32) bool {
	tmin, _, ok := r.slab(box)
	if !ok {
		return false
	}
	return tmin <= maxT
}

// IntersectTriangle runs the Moller-Trumbore test against triangle (v0, v1, v2).
// It returns the hit distance and barycentric coordinates (u, v) of the hit,
// weighting v1 and v2 respectively. Hits closer than Epsilon are ignored;
// both faces count.
func (r Ray) IntersectTriangle(v0, v1, v2 math.Vec3) (t, u, v float32, hit bool) {
	e1 := v1.Sub(v0)
	e2 := v2.Sub(v0)

	p := r.Direction.Cross(e2)
	det := e1.Dot(p)
	if math32.Abs(det) < Epsilon {
		return 0, 0, 0, false // Parallel or degenerate
	}
	inv := 1 / det

	s := r.Origin.Sub(v0)
	u = s.Dot(p) * inv
	if u < 0 || u > 1 {
		return 0, 0, 0, false
	}

	q := s.Cross(e1)
	v = r.Direction.Dot(q) * inv
	if v < 0 || u+v > 1 {
		return 0, 0, 0, false
	}

	t = e2.Dot(q) * inv
	if t < Epsilon {
		return 0, 0, 0, false
	}
	return t, u, v, true
}
