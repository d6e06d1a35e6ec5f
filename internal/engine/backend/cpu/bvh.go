package cpu

import (
	"cmp"
	"slices"

	"github.com/chewxy/math32"

	"github.com/Faultbox/rtview/internal/engine/picking"
	"github.com/Faultbox/rtview/pkg/math"
)

const (
	leafSize = 4
	boxPad   = 1e-4
)

type triangle struct {
	v      [3]math.Vec3
	n      [3]math.Vec3
	shader uint8
}

// bounds is padded so flat and axis-aligned triangles keep a volume.
func (t *triangle) bounds() picking.AABB {
	b := picking.NewAABB(t.v[0], t.v[1]).Extend(t.v[2])
	pad := math.Vec3{X: boxPad, Y: boxPad, Z: boxPad}
	return picking.AABB{Min: b.Min.Sub(pad), Max: b.Max.Add(pad)}
}

func (t *triangle) centroid() math.Vec3 {
	return t.v[0].Add(t.v[1]).Add(t.v[2]).Scale(1.0 / 3.0)
}

// node is a leaf when count > 0; otherwise left and right index children.
type node struct {
	box         picking.AABB
	left, right int32
	start       int32
	count       int32
}

type hit struct {
	t    float32
	u, v float32
	tri  int32
}

// bvh is a bounding volume hierarchy over a triangle soup.
type bvh struct {
	tris      []triangle
	order     []int32
	centroids []math.Vec3
	nodes     []node
}

func buildBVH(tris []triangle) *bvh {
	b := &bvh{
		tris:      tris,
		order:     make([]int32, len(tris)),
		centroids: make([]math.Vec3, len(tris)),
	}
	for i := range tris {
		b.order[i] = int32(i)
		b.centroids[i] = tris[i].centroid()
	}
	if len(tris) > 0 {
		b.nodes = make([]node, 0, 2*len(tris)/leafSize+1)
		b.build(0, len(tris))
	}
	return b
}

func (b *bvh) build(start, end int) int32 {
	idx := int32(len(b.nodes))
	b.nodes = append(b.nodes, node{})

	box := picking.EmptyAABB()
	cbox := picking.EmptyAABB()
	for _, ti := range b.order[start:end] {
		box = box.Union(b.tris[ti].bounds())
		cbox = cbox.Extend(b.centroids[ti])
	}

	n := node{box: box}
	axis := cbox.LongestAxis()
	if end-start <= leafSize || cbox.Max.Axis(axis) == cbox.Min.Axis(axis) {
		n.start = int32(start)
		n.count = int32(end - start)
		b.nodes[idx] = n
		return idx
	}

	// Median split along the widest centroid axis
	slices.SortFunc(b.order[start:end], func(a, c int32) int {
		return cmp.Compare(b.centroids[a].Axis(axis), b.centroids[c].Axis(axis))
	})
	mid := start + (end-start)/2
	n.left = b.build(start, mid)
	n.right = b.build(mid, end)
	b.nodes[idx] = n
	return idx
}

// intersect returns the closest triangle hit along r.
func (b *bvh) intersect(r picking.Ray) (hit, bool) {
	best := hit{t: math32.MaxFloat32, tri: -1}
	if len(b.nodes) == 0 {
		return best, false
	}

	stack := make([]int32, 0, 64)
	stack = append(stack, 0)
	for len(stack) > 0 {
		n := &b.nodes[stack[len(stack)-1]]
		stack = stack[:len(stack)-1]

		if !r.Overlaps(n.box, best.t) {
			continue
		}
		if n.count > 0 {
			for _, ti := range b.order[n.start : n.start+n.count] {
				tri := &b.tris[ti]
				if t, u, v, ok := r.IntersectTriangle(tri.v[0], tri.v[1], tri.v[2]); ok && t < best.t {
					best = hit{t: t, u: u, v: v, tri: ti}
				}
			}
			continue
		}
		stack = append(stack, n.left, n.right)
	}
	return best, best.tri >= 0
}
