package backend

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/Faultbox/rtview/internal/logger"
)

// Buffer and context state errors.
var (
	ErrMapped         = errors.New("buffer is mapped")
	ErrNotMapped      = errors.New("buffer is not mapped")
	ErrDestroyed      = errors.New("object destroyed")
	ErrUnknownBackend = errors.New("unknown backend")
	ErrNotBuilt       = errors.New("acceleration structure not built")
)

// Code classifies a device failure.
type Code int

const (
	CodeInvalidValue Code = iota + 1
	CodeInvalidContext
	CodeTypeMismatch
	CodeMemory
	CodeLaunchFailed
)

func (c Code) String() string {
	switch c {
	case CodeInvalidValue:
		return "invalid value"
	case CodeInvalidContext:
		return "invalid context"
	case CodeTypeMismatch:
		return "type mismatch"
	case CodeMemory:
		return "memory"
	case CodeLaunchFailed:
		return "launch failed"
	default:
		return fmt.Sprintf("Code(%d)", int(c))
	}
}

// Error is a failed device call.
type Error struct {
	Op   string
	Code Code
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("backend: %s: %s", e.Op, e.Code)
	}
	return fmt.Sprintf("backend: %s: %s: %v", e.Op, e.Code, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Errorf builds an *Error with a formatted cause.
func Errorf(op string, code Code, format string, args ...any) error {
	return &Error{Op: op, Code: code, Err: fmt.Errorf(format, args...)}
}

// Check aborts the process when a device call failed. A device context
// cannot be recovered mid-session, so commands route every backend error
// through here.
func Check(op string, err error) {
	if err == nil {
		return
	}
	fields := []zap.Field{zap.String("op", op), zap.Error(err)}
	var be *Error
	if errors.As(err, &be) {
		fields = append(fields, zap.Stringer("code", be.Code))
	}
	logger.Fatal("ray tracing backend failure", fields...)
}
