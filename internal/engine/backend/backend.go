// Package backend defines the ray-tracing device contract: typed buffers
// with scoped write access, named launch parameters, geometry declaration,
// acceleration build and a synchronous 2-D launch.
package backend

import (
	"encoding/binary"
	"fmt"
	gomath "math"

	"github.com/Faultbox/rtview/pkg/math"
)

// Launch parameter names shared by the tracer and the backends.
const (
	VarOutputBuffer = "output_buffer"
	VarFocalLength  = "focal_length"
	VarViewFrom     = "view_from"
	VarRotation     = "M_c_w"
	VarGamma        = "gamma"
	VarBackground   = "background"
	VarUnifyNormals = "unify_normals"
)

// BufferType tells the device which direction a buffer flows.
type BufferType uint8

const (
	BufferInput BufferType = iota
	BufferOutput
)

func (t BufferType) String() string {
	switch t {
	case BufferInput:
		return "input"
	case BufferOutput:
		return "output"
	default:
		return fmt.Sprintf("BufferType(%d)", uint8(t))
	}
}

// Format is the element format of a buffer.
type Format uint8

const (
	FormatUnsignedByte4 Format = iota // RGBA8 pixels
	FormatFloat3                      // float32 xyz
	FormatUnsignedByte                // material shader ids
)

// ElementSize returns the byte size of one element.
func (f Format) ElementSize() int {
	switch f {
	case FormatUnsignedByte4:
		return 4
	case FormatFloat3:
		return 12
	case FormatUnsignedByte:
		return 1
	default:
		return 0
	}
}

func (f Format) String() string {
	switch f {
	case FormatUnsignedByte4:
		return "UNSIGNED_BYTE4"
	case FormatFloat3:
		return "FLOAT3"
	case FormatUnsignedByte:
		return "UNSIGNED_BYTE"
	default:
		return fmt.Sprintf("Format(%d)", uint8(f))
	}
}

// Buffer is device memory of width x height elements. A 1-D buffer has
// height 1. Contents are written between Map and Unmap only.
type Buffer interface {
	Type() BufferType
	Format() Format
	Size() (width, height int)
	// Len returns the number of elements.
	Len() int
	// Map opens the buffer for host access. The slice is valid until Unmap.
	Map() ([]byte, error)
	Unmap() error
	Destroy() error
}

// Geometry declares a triangle soup for acceleration. Vertex i of triangle
// t is element 3t+i of Vertices and Normals; MaterialIndices holds one
// element per triangle.
type Geometry struct {
	Vertices        Buffer
	Normals         Buffer
	MaterialIndices Buffer
	TriangleCount   int
}

// Context is a device handle. It is created once, used from a single
// goroutine and destroyed once.
type Context interface {
	Name() string
	CreateBuffer(typ BufferType, format Format, width, height int) (Buffer, error)

	SetFloat(name string, v float32) error
	SetInt(name string, v int32) error
	SetVec3(name string, v math.Vec3) error
	SetMat3(name string, m math.Mat3) error
	SetBuffer(name string, b Buffer) error

	SetGeometry(g Geometry) error
	BuildAcceleration() error

	// Launch fills the bound output buffer and blocks until every pixel is written.
	Launch(width, height int) error
	Destroy() error
}

// PutVec3 writes v as element i of a FormatFloat3 byte slice.
func PutVec3(b []byte, i int, v math.Vec3) {
	off := i * 12
	binary.LittleEndian.PutUint32(b[off:], gomath.Float32bits(v.X))
	binary.LittleEndian.PutUint32(b[off+4:], gomath.Float32bits(v.Y))
	binary.LittleEndian.PutUint32(b[off+8:], gomath.Float32bits(v.Z))
}

// Vec3At reads element i of a FormatFloat3 byte slice.
func Vec3At(b []byte, i int) math.Vec3 {
	off := i * 12
	return math.Vec3{
		X: gomath.Float32frombits(binary.LittleEndian.Uint32(b[off:])),
		Y: gomath.Float32frombits(binary.LittleEndian.Uint32(b[off+4:])),
		Z: gomath.Float32frombits(binary.LittleEndian.Uint32(b[off+8:])),
	}
}
