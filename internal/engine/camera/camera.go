// Package camera provides the interactive look-at camera used by the ray tracer.
package camera

import (
	"github.com/chewxy/math32"

	"github.com/Faultbox/rtview/pkg/math"
)

// DefaultUp is the up hint a new camera starts with (Z-up scenes).
var DefaultUp = math.Vec3{X: 0, Y: 0, Z: 1}

// rollFactor scales rollRight steps into the tilt applied to the up hint.
const rollFactor = 0.01

// Camera is a look-at camera with a lazily recomputed orthonormal frame.
//
// Mutators only move the position, target or up hint and mark the frame
// dirty; RecalculateFrame rebuilds the basis and the camera-to-world
// rotation. Accessors never recompute.
type Camera struct {
	width  int
	height int
	fovY   float32 // radians

	viewFrom math.Vec3
	viewAt   math.Vec3
	upHint   math.Vec3

	// Derived basis
	right   math.Vec3
	up      math.Vec3
	forward math.Vec3

	focalLength float32
	mcw         math.Mat3
	dirty       bool
}

// New creates a camera for a width x height viewport with vertical field
// of view fovY (radians), looking from viewFrom at viewAt.
func New(width, height int, fovY float32, viewFrom, viewAt math.Vec3) *Camera {
	c := &Camera{
		width:    width,
		height:   height,
		viewFrom: viewFrom,
		viewAt:   viewAt,
		upHint:   DefaultUp,
		dirty:    true,
	}
	c.UpdateFov(fovY)
	c.RecalculateFrame()
	return c
}

// FocalLengthFor returns height / (2 tan(fovY/2)).
func FocalLengthFor(height int, fovY float32) float32 {
	return float32(height) / (2 * math32.Tan(fovY*0.5))
}

// RecalculateFrame rebuilds the basis and rotation matrix if the frame is dirty.
func (c *Camera) RecalculateFrame() {
	if !c.dirty {
		return
	}

	c.forward = c.viewFrom.Sub(c.viewAt).Normalize()
	c.right = c.upHint.Cross(c.forward).Normalize()
	c.up = c.forward.Cross(c.right).Normalize()

	// The hint follows the true up so repeated rolls do not drift.
	c.upHint = c.up

	c.mcw = math.Mat3FromColumns(c.right, c.up, c.forward)
	c.dirty = false
}

// MoveForward translates position and target by -step along the forward axis.
func (c *Camera) MoveForward(step float32) {
	d := c.forward.Scale(step)
	c.viewAt = c.viewAt.Sub(d)
	c.viewFrom = c.viewFrom.Sub(d)
	c.dirty = true
}

// MoveRight translates position and target by +step along the right axis.
func (c *Camera) MoveRight(step float32) {
	d := c.right.Scale(step)
	c.viewAt = c.viewAt.Add(d)
	c.viewFrom = c.viewFrom.Add(d)
	c.dirty = true
}

// RotateRight swings the target sideways and re-projects it so the
// distance between position and target is unchanged.
func (c *Camera) RotateRight(step float32) {
	dist := c.viewAt.Sub(c.viewFrom).Length()
	newAt := c.viewAt.Add(c.right.Scale(step))
	dir := newAt.Sub(c.viewFrom)
	ratio := dist / dir.Length()
	c.viewAt = c.viewFrom.Add(dir.Scale(ratio))
	c.dirty = true
}

// RotateUp moves the target along the up axis. Unlike RotateRight the
// target distance is not preserved.
func (c *Camera) RotateUp(step float32) {
	c.viewAt = c.viewAt.Add(c.up.Scale(step))
	c.dirty = true
}

// RollRight tilts the up hint towards the right axis.
func (c *Camera) RollRight(step float32) {
	c.upHint = c.up.Add(c.right.Scale(rollFactor * step))
	c.dirty = true
}

// UpdateFov sets a new vertical field of view (radians). Only the focal
// length changes; the frame is left untouched and not marked dirty.
func (c *Camera) UpdateFov(fovY float32) {
	c.fovY = fovY
	c.focalLength = FocalLengthFor(c.height, fovY)
}

// SetUpHint replaces the up hint, e.g. for Y-up scenes.
func (c *Camera) SetUpHint(up math.Vec3) {
	c.upHint = up
	c.dirty = true
}

// LookAt moves the camera to viewFrom, aimed at viewAt.
func (c *Camera) LookAt(viewFrom, viewAt math.Vec3) {
	c.viewFrom = viewFrom
	c.viewAt = viewAt
	c.dirty = true
}

// FitToBounds aims the camera at the centre of the box and backs off along
// the current forward axis far enough to see all of it.
func (c *Camera) FitToBounds(min, max math.Vec3) {
	center := min.Add(max).Scale(0.5)
	radius := max.Sub(min).Length() * 0.5
	if radius == 0 {
		radius = 1
	}

	distance := radius / math32.Tan(c.fovY*0.5)
	// Keep some margin around the box
	distance *= 1.1

	dir := c.forward
	if dir == (math.Vec3{}) {
		dir = math.Vec3{X: 1}
	}
	c.viewAt = center
	c.viewFrom = center.Add(dir.Scale(distance))
	c.dirty = true
}

// FocalLength returns the cached focal length in pixels.
func (c *Camera) FocalLength() float32 {
	return c.focalLength
}

// RotationMatrix returns the cached camera-to-world rotation (columns: right, up, forward).
func (c *Camera) RotationMatrix() math.Mat3 {
	return c.mcw
}

// Position returns the camera position (view_from).
func (c *Camera) Position() math.Vec3 {
	return c.viewFrom
}

// Target returns the look-at target (view_at).
func (c *Camera) Target() math.Vec3 {
	return c.viewAt
}

// Up returns the cached up axis.
func (c *Camera) Up() math.Vec3 {
	return c.up
}

// Right returns the cached right axis.
func (c *Camera) Right() math.Vec3 {
	return c.right
}

// Forward returns the cached forward axis (pointing from target to position).
func (c *Camera) Forward() math.Vec3 {
	return c.forward
}

// UpHint returns the current up hint.
func (c *Camera) UpHint() math.Vec3 {
	return c.upHint
}

// Fov returns the vertical field of view in radians.
func (c *Camera) Fov() float32 {
	return c.fovY
}

// Size returns the viewport size.
func (c *Camera) Size() (width, height int) {
	return c.width, c.height
}

// Dirty reports whether the frame needs recomputation.
func (c *Camera) Dirty() bool {
	return c.dirty
}
