package geometry

import (
	"fmt"

	"go.uber.org/multierr"

	"github.com/Faultbox/rtview/internal/engine/backend"
)

// Upload copies packed buffers into new device buffers and returns the
// geometry declaration referencing them. Each device buffer is mapped for
// exactly one write and unmapped on every path, including empty scenes.
// On failure any buffers already created are destroyed.
func Upload(ctx backend.Context, b *Buffers) (g backend.Geometry, err error) {
	var created []backend.Buffer
	defer func() {
		if err != nil {
			for _, buf := range created {
				err = multierr.Append(err, buf.Destroy())
			}
		}
	}()

	create := func(format backend.Format, n int) (backend.Buffer, error) {
		buf, err := ctx.CreateBuffer(backend.BufferInput, format, n, 1)
		if err != nil {
			return nil, err
		}
		created = append(created, buf)
		return buf, nil
	}

	if g.Vertices, err = create(backend.FormatFloat3, len(b.Vertices)); err != nil {
		return backend.Geometry{}, fmt.Errorf("vertex buffer: %w", err)
	}
	if g.Normals, err = create(backend.FormatFloat3, len(b.Normals)); err != nil {
		return backend.Geometry{}, fmt.Errorf("normal buffer: %w", err)
	}
	if g.MaterialIndices, err = create(backend.FormatUnsignedByte, len(b.MaterialIndices)); err != nil {
		return backend.Geometry{}, fmt.Errorf("material index buffer: %w", err)
	}
	g.TriangleCount = b.TriangleCount

	if err = write(g.Vertices, func(data []byte) {
		for i, v := range b.Vertices {
			backend.PutVec3(data, i, v)
		}
	}); err != nil {
		return backend.Geometry{}, fmt.Errorf("vertex buffer: %w", err)
	}
	if err = write(g.Normals, func(data []byte) {
		for i, n := range b.Normals {
			backend.PutVec3(data, i, n)
		}
	}); err != nil {
		return backend.Geometry{}, fmt.Errorf("normal buffer: %w", err)
	}
	if err = write(g.MaterialIndices, func(data []byte) {
		copy(data, b.MaterialIndices)
	}); err != nil {
		return backend.Geometry{}, fmt.Errorf("material index buffer: %w", err)
	}
	return g, nil
}

// write maps buf, fills it and unmaps it, even if fill panics.
func write(buf backend.Buffer, fill func(data []byte)) (err error) {
	data, err := buf.Map()
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, buf.Unmap())
	}()
	fill(data)
	return nil
}

// Destroy releases the device buffers of g.
func Destroy(g backend.Geometry) error {
	var err error
	for _, buf := range []backend.Buffer{g.Vertices, g.Normals, g.MaterialIndices} {
		if buf != nil {
			err = multierr.Append(err, buf.Destroy())
		}
	}
	return err
}
