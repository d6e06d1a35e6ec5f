// Package scene holds the triangle-mesh scene model consumed by the ray tracer.
package scene

import "github.com/Faultbox/rtview/pkg/math"

// ShaderID selects a shading routine in the backend.
type ShaderID uint8

// Material describes a surface's appearance. Only Shader is consumed by
// geometry packing; the rest is carried for display and backends.
type Material struct {
	Name       string
	Ambient    math.Vec3
	Diffuse    math.Vec3
	Specular   math.Vec3
	Emission   math.Vec3
	Shininess  float32
	IOR        float32
	Dissolve   float32
	DiffuseMap string
	Shader     ShaderID
}

// Vertex is a triangle corner.
type Vertex struct {
	Position math.Vec3
	Normal   math.Vec3
}

// Triangle has exactly three vertices in declared order.
type Triangle struct {
	Vertices [3]Vertex
}

// Vertex returns corner i (0..2).
func (t *Triangle) Vertex(i int) Vertex {
	return t.Vertices[i]
}

// Normal returns the geometric normal from the winding order.
func (t *Triangle) Normal() math.Vec3 {
	e1 := t.Vertices[1].Position.Sub(t.Vertices[0].Position)
	e2 := t.Vertices[2].Position.Sub(t.Vertices[0].Position)
	return e1.Cross(e2).Normalize()
}

// Surface is an ordered run of triangles sharing one material.
// The material is shared with the scene, not owned.
type Surface struct {
	Name      string
	Triangles []Triangle
	Material  *Material
}

// TriangleCount returns the number of triangles in the surface.
func (s *Surface) TriangleCount() int {
	return len(s.Triangles)
}

// Scene is the loaded collection of surfaces and materials.
type Scene struct {
	Path      string
	Surfaces  []*Surface
	Materials []*Material
	Warnings  []string
}

// TriangleCount returns the total number of triangles.
func (s *Scene) TriangleCount() int {
	n := 0
	for _, surf := range s.Surfaces {
		n += surf.TriangleCount()
	}
	return n
}

// Bounds returns the axis-aligned box around all vertices. ok is false
// for a scene without triangles.
func (s *Scene) Bounds() (min, max math.Vec3, ok bool) {
	for _, surf := range s.Surfaces {
		for i := range surf.Triangles {
			for _, v := range surf.Triangles[i].Vertices {
				if !ok {
					min, max, ok = v.Position, v.Position, true
					continue
				}
				min = min.Min(v.Position)
				max = max.Max(v.Position)
			}
		}
	}
	return min, max, ok
}

// Stats summarizes a scene for logging and UI.
type Stats struct {
	Surfaces  int
	Materials int
	Triangles int
}

// Stats returns the scene counts.
func (s *Scene) Stats() Stats {
	return Stats{
		Surfaces:  len(s.Surfaces),
		Materials: len(s.Materials),
		Triangles: s.TriangleCount(),
	}
}
