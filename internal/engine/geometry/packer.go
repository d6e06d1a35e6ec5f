// Package geometry flattens scene surfaces into the index-aligned vertex,
// normal and material buffers a ray-tracing backend accelerates.
package geometry

import (
	"github.com/Faultbox/rtview/internal/scene"
	"github.com/Faultbox/rtview/pkg/math"
)

// Buffers is a packed triangle soup. Triangle i owns Vertices[3i..3i+2]
// and Normals[3i..3i+2] in declared corner order, and MaterialIndices[i].
type Buffers struct {
	Vertices        []math.Vec3
	Normals         []math.Vec3
	MaterialIndices []uint8
	TriangleCount   int
}

// Pack walks surfaces in order, then their triangles, then each triangle's
// three corners. An empty input yields empty buffers.
func Pack(surfaces []*scene.Surface) *Buffers {
	count := 0
	for _, s := range surfaces {
		count += s.TriangleCount()
	}

	b := &Buffers{
		Vertices:        make([]math.Vec3, 3*count),
		Normals:         make([]math.Vec3, 3*count),
		MaterialIndices: make([]uint8, count),
		TriangleCount:   count,
	}

	k, l := 0, 0
	for _, s := range surfaces {
		var shader uint8
		if s.Material != nil {
			shader = uint8(s.Material.Shader)
		}
		for i := range s.Triangles {
			tri := &s.Triangles[i]
			b.MaterialIndices[l] = shader
			for _, v := range tri.Vertices {
				b.Vertices[k] = v.Position
				b.Normals[k] = v.Normal
				k++
			}
			l++
		}
	}
	return b
}

// PackScene packs every surface of sc.
func PackScene(sc *scene.Scene) *Buffers {
	return Pack(sc.Surfaces)
}

// Triangle returns the corner positions of packed triangle i.
func (b *Buffers) Triangle(i int) [3]math.Vec3 {
	return [3]math.Vec3{b.Vertices[3*i], b.Vertices[3*i+1], b.Vertices[3*i+2]}
}

// ByteSize returns the host size of the packed data.
func (b *Buffers) ByteSize() int {
	return 12*(len(b.Vertices)+len(b.Normals)) + len(b.MaterialIndices)
}

// ShaderHistogram counts triangles per material shader id.
func (b *Buffers) ShaderHistogram() map[uint8]int {
	h := make(map[uint8]int)
	for _, id := range b.MaterialIndices {
		h[id]++
	}
	return h
}
