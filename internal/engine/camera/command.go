package camera

import "fmt"

// Op identifies a camera transform.
type Op uint8

// Camera transforms that input can queue.
const (
	OpMoveForward Op = iota
	OpMoveRight
	OpRotateRight
	OpRotateUp
	OpRollRight
	OpUpdateFov
)

// String returns the transform name.
func (op Op) String() string {
	switch op {
	case OpMoveForward:
		return "MoveForward"
	case OpMoveRight:
		return "MoveRight"
	case OpRotateRight:
		return "RotateRight"
	case OpRotateUp:
		return "RotateUp"
	case OpRollRight:
		return "RollRight"
	case OpUpdateFov:
		return "UpdateFov"
	default:
		return fmt.Sprintf("Op(%d)", op)
	}
}

// Command is one queued transform with its signed step.
// For OpUpdateFov the step is the new field of view in radians.
type Command struct {
	Op   Op
	Step float32
}

// Apply runs a single command against the camera.
func (c *Camera) Apply(cmd Command) {
	switch cmd.Op {
	case OpMoveForward:
		c.MoveForward(cmd.Step)
	case OpMoveRight:
		c.MoveRight(cmd.Step)
	case OpRotateRight:
		c.RotateRight(cmd.Step)
	case OpRotateUp:
		c.RotateUp(cmd.Step)
	case OpRollRight:
		c.RollRight(cmd.Step)
	case OpUpdateFov:
		c.UpdateFov(cmd.Step)
	}
}
