package picking

import (
	"testing"

	"github.com/chewxy/math32"

	"github.com/Faultbox/rtview/pkg/math"
)

func near(a, b float32) bool {
	return math32.Abs(a-b) < 1e-4
}

func TestIntersectAABB(t *testing.T) {
	box := NewAABB(math.Vec3{X: 1, Y: 1, Z: 1}, math.Vec3{X: -1, Y: -1, Z: -1})

	tests := []struct {
		name  string
		ray   Ray
		hit   bool
		wantT float32
	}{
		{"front", Ray{Origin: math.Vec3{Z: 5}, Direction: math.Vec3{Z: -1}}, true, 4},
		{"inside returns exit", Ray{Direction: math.Vec3{X: 1}}, true, 1},
		{"behind", Ray{Origin: math.Vec3{Z: 5}, Direction: math.Vec3{Z: 1}}, false, 0},
		{"miss parallel", Ray{Origin: math.Vec3{X: 3, Z: 5}, Direction: math.Vec3{Z: -1}}, false, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, hit := tt.ray.IntersectAABB(box)
			if hit != tt.hit {
				t.Fatalf("hit = %v, want %v", hit, tt.hit)
			}
			if hit && !near(got, tt.wantT) {
				t.Errorf("t = %f, want %f", got, tt.wantT)
			}
		})
	}
}

func TestOverlaps(t *testing.T) {
	box := NewAABB(math.Vec3{X: -1, Y: -1, Z: -1}, math.Vec3{X: 1, Y: 1, Z: 1})
	ray := Ray{Origin: math.Vec3{Z: 5}, Direction: math.Vec3{Z: -1}}

	if !ray.Overlaps(box, 10) {
		t.Error("expected overlap within range")
	}
	if ray.Overlaps(box, 3) {
		t.Error("box starts at 4, should not overlap with maxT 3")
	}
	inside := Ray{Direction: math.Vec3{Y: 1}}
	if !inside.Overlaps(box, 0.1) {
		t.Error("ray starting inside must overlap")
	}
}

func TestIntersectTriangle(t *testing.T) {
	v0 := math.Vec3{X: -1, Y: -1}
	v1 := math.Vec3{X: 1, Y: -1}
	v2 := math.Vec3{Y: 1}

	ray := Ray{Origin: math.Vec3{Z: 2}, Direction: math.Vec3{Z: -1}}
	dist, u, v, hit := ray.IntersectTriangle(v0, v1, v2)
	if !hit {
		t.Fatal("expected hit")
	}
	if !near(dist, 2) {
		t.Errorf("t = %f, want 2", dist)
	}
	p := v0.Scale(1 - u - v).Add(v1.Scale(u)).Add(v2.Scale(v))
	if !p.ApproxEqual(ray.At(dist), 1e-5) {
		t.Errorf("barycentric point %v differs from ray point %v", p, ray.At(dist))
	}

	// Back face still hits
	back := Ray{Origin: math.Vec3{Z: -2}, Direction: math.Vec3{Z: 1}}
	if _, _, _, hit := back.IntersectTriangle(v0, v1, v2); !hit {
		t.Error("expected back-face hit")
	}

	miss := Ray{Origin: math.Vec3{X: 5, Z: 2}, Direction: math.Vec3{Z: -1}}
	if _, _, _, hit := miss.IntersectTriangle(v0, v1, v2); hit {
		t.Error("expected miss outside triangle")
	}

	parallel := Ray{Origin: math.Vec3{Z: 2}, Direction: math.Vec3{X: 1}}
	if _, _, _, hit := parallel.IntersectTriangle(v0, v1, v2); hit {
		t.Error("expected miss for parallel ray")
	}
}

func TestCameraRay(t *testing.T) {
	// Camera at origin looking down -Z with identity rotation
	center := CameraRay(1, 1, 2, 2, 1, math.Identity3(), math.Vec3{})
	want := math.Vec3{X: 0.5, Y: -0.5, Z: -1}.Normalize()
	if !center.Direction.ApproxEqual(want, 1e-6) {
		t.Errorf("direction = %v, want %v", center.Direction, want)
	}

	top := CameraRay(0, 0, 2, 2, 1, math.Identity3(), math.Vec3{})
	if top.Direction.Y <= 0 {
		t.Errorf("row 0 should point up, got %v", top.Direction)
	}
}

func TestAABBHelpers(t *testing.T) {
	box := EmptyAABB().Extend(math.Vec3{X: 1, Y: 5, Z: 2}).Extend(math.Vec3{X: -1})
	if box.Min != (math.Vec3{X: -1}) || box.Max != (math.Vec3{X: 1, Y: 5, Z: 2}) {
		t.Errorf("unexpected box %v", box)
	}
	if box.LongestAxis() != 1 {
		t.Errorf("longest axis = %d, want 1", box.LongestAxis())
	}
	if c := box.Center(); !c.ApproxEqual(math.Vec3{Y: 2.5, Z: 1}, 1e-6) {
		t.Errorf("center = %v", c)
	}
	u := box.Union(NewAABB(math.Vec3{Z: 9}, math.Vec3{}))
	if u.Max.Z != 9 {
		t.Errorf("union max z = %f, want 9", u.Max.Z)
	}
}
