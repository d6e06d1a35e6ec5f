// Package controls maps held navigation actions to camera commands,
// independent of the windowing toolkit that reports the keys.
package controls

import (
	"github.com/Faultbox/rtview/internal/engine/camera"
)

// Action is a continuous navigation input.
type Action uint8

const (
	Forward Action = iota
	Back
	Right
	Left
	TurnRight
	TurnLeft
	TurnUp
	TurnDown
	RollRight
	RollLeft
	actionCount
)

// Speeds are camera steps per second of held input.
type Speeds struct {
	Move   float32
	Rotate float32
	Roll   float32
}

// binding pairs an action with the camera op and sign it drives.
type binding struct {
	action Action
	op     camera.Op
	sign   float32
}

var bindings = [actionCount]binding{
	{Forward, camera.OpMoveForward, 1},
	{Back, camera.OpMoveForward, -1},
	{Right, camera.OpMoveRight, 1},
	{Left, camera.OpMoveRight, -1},
	{TurnRight, camera.OpRotateRight, 1},
	{TurnLeft, camera.OpRotateRight, -1},
	{TurnUp, camera.OpRotateUp, 1},
	{TurnDown, camera.OpRotateUp, -1},
	{RollRight, camera.OpRollRight, 1},
	{RollLeft, camera.OpRollRight, -1},
}

// Commands returns one command per held action, scaled by dt seconds.
// Opposing actions held together both emit and cancel in effect.
func Commands(held func(Action) bool, s Speeds, dt float32) []camera.Command {
	var cmds []camera.Command
	for _, b := range bindings {
		if !held(b.action) {
			continue
		}
		cmds = append(cmds, camera.Command{Op: b.op, Step: b.sign * s.speed(b.op) * dt})
	}
	return cmds
}

func (s Speeds) speed(op camera.Op) float32 {
	switch op {
	case camera.OpMoveForward, camera.OpMoveRight:
		return s.Move
	case camera.OpRollRight:
		return s.Roll
	default:
		return s.Rotate
	}
}

// Fov tracks a field of view adjusted in fixed steps, clamped to (Min, Max).
type Fov struct {
	Degrees float32
	Step    float32
	Min     float32
	Max     float32
}

// Widen increases the field of view by one step and returns the new value.
func (f *Fov) Widen() float32 {
	return f.Set(f.Degrees + f.Step)
}

// Narrow decreases the field of view by one step and returns the new value.
func (f *Fov) Narrow() float32 {
	return f.Set(f.Degrees - f.Step)
}

// Set clamps deg to the limits, stores it and returns it.
func (f *Fov) Set(deg float32) float32 {
	if deg < f.Min {
		deg = f.Min
	}
	if deg > f.Max {
		deg = f.Max
	}
	f.Degrees = deg
	return deg
}
