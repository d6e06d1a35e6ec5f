package cpu

import (
	"github.com/Faultbox/rtview/internal/engine/backend"
)

// Buffer is host memory standing in for device memory.
type Buffer struct {
	ctx           *Context
	typ           backend.BufferType
	format        backend.Format
	width, height int
	data          []byte
	mapped        bool
	destroyed     bool
}

func (b *Buffer) Type() backend.BufferType { return b.typ }
func (b *Buffer) Format() backend.Format { return b.format }
func (b *Buffer) Size() (int, int) { return b.width, b.height }
func (b *Buffer) Len() int { return b.width * b.height }

// Map opens the buffer for host access.
func (b *Buffer) Map() ([]byte, error) {
	if b.destroyed {
		return nil, &backend.Error{Op: "buffer map", Code: backend.CodeInvalidContext, Err: backend.ErrDestroyed}
	}
	if b.mapped {
		return nil, &backend.Error{Op: "buffer map", Code: backend.CodeInvalidValue, Err: backend.ErrMapped}
	}
	b.mapped = true
	return b.data, nil
}

// Unmap ends host access.
func (b *Buffer) Unmap() error {
	if b.destroyed {
		return &backend.Error{Op: "buffer unmap", Code: backend.CodeInvalidContext, Err: backend.ErrDestroyed}
	}
	if !b.mapped {
		return &backend.Error{Op: "buffer unmap", Code: backend.CodeInvalidValue, Err: backend.ErrNotMapped}
	}
	b.mapped = false
	return nil
}

// Destroy releases the buffer. Destroying twice is an error.
func (b *Buffer) Destroy() error {
	if b.destroyed {
		return &backend.Error{Op: "buffer destroy", Code: backend.CodeInvalidContext, Err: backend.ErrDestroyed}
	}
	b.destroyed = true
	b.mapped = false
	b.data = nil
	if b.ctx != nil {
		delete(b.ctx.buffers, b)
	}
	return nil
}

// usable checks the buffer can be read by a device operation.
func (b *Buffer) usable(op string) error {
	if b.destroyed {
		return &backend.Error{Op: op, Code: backend.CodeInvalidContext, Err: backend.ErrDestroyed}
	}
	if b.mapped {
		return &backend.Error{Op: op, Code: backend.CodeInvalidValue, Err: backend.ErrMapped}
	}
	return nil
}
