// Package formats provides parsers for Wavefront OBJ scenes and MTL material libraries.
package formats

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// OBJ format errors.
var (
	ErrOBJSyntax         = errors.New("obj: syntax error")
	ErrOBJIndexRange     = errors.New("obj: index out of range")
	ErrOBJDegenerateFace = errors.New("obj: face needs at least 3 vertices")
)

// OBJIndex references one face corner. Indices are 0-based; -1 means absent.
type OBJIndex struct {
	Position int
	TexCoord int
	Normal   int
}

// OBJFace is a polygon with three or more corners.
type OBJFace struct {
	Corners []OBJIndex
}

// Triangles fan-triangulates the face into corner triples.
func (f OBJFace) Triangles() [][3]OBJIndex {
	if len(f.Corners) < 3 {
		return nil
	}
	tris := make([][3]OBJIndex, 0, len(f.Corners)-2)
	for i := 1; i+1 < len(f.Corners); i++ {
		tris = append(tris, [3]OBJIndex{f.Corners[0], f.Corners[i], f.Corners[i+1]})
	}
	return tris
}

// OBJGroup is a run of faces sharing one object/group name and material.
type OBJGroup struct {
	Name     string
	Material string
	Faces    []OBJFace
}

// OBJ holds a decoded Wavefront OBJ file.
type OBJ struct {
	Positions    [][3]float32
	Normals      [][3]float32
	TexCoords    [][2]float32
	MaterialLibs []string
	Groups       []OBJGroup
	Warnings     []string
}

// TriangleCount returns the number of triangles after fan triangulation.
func (o *OBJ) TriangleCount() int {
	n := 0
	for _, g := range o.Groups {
		for _, f := range g.Faces {
			n += len(f.Corners) - 2
		}
	}
	return n
}

// LoadOBJ reads and parses an OBJ file from disk.
func LoadOBJ(path string) (*OBJ, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ParseOBJ(f)
}

// objParser holds decoding state while scanning lines.
type objParser struct {
	obj      *OBJ
	line     int
	name     string
	material string
	current  *OBJGroup
}

// ParseOBJ decodes OBJ data. Faces are kept as polygons; use
// OBJFace.Triangles to split them.
func ParseOBJ(r io.Reader) (*OBJ, error) {
	p := &objParser{obj: &OBJ{}}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		p.line++
		if err := p.parseLine(scanner.Text()); err != nil {
			return nil, fmt.Errorf("line %d: %w", p.line, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	// Drop groups that never received faces
	groups := p.obj.Groups[:0]
	for _, g := range p.obj.Groups {
		if len(g.Faces) > 0 {
			groups = append(groups, g)
		}
	}
	p.obj.Groups = groups

	return p.obj, nil
}

func (p *objParser) parseLine(line string) error {
	if i := strings.IndexByte(line, '#'); i >= 0 {
		line = line[:i]
	}
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}

	switch fields[0] {
	case "v":
		v, err := parseFloats(fields[1:], 3)
		if err != nil {
			return err
		}
		p.obj.Positions = append(p.obj.Positions, [3]float32{v[0], v[1], v[2]})
	case "vn":
		v, err := parseFloats(fields[1:], 3)
		if err != nil {
			return err
		}
		p.obj.Normals = append(p.obj.Normals, [3]float32{v[0], v[1], v[2]})
	case "vt":
		v, err := parseFloats(fields[1:], 1)
		if err != nil {
			return err
		}
		uv := [2]float32{v[0], 0}
		if len(v) > 1 {
			uv[1] = v[1]
		}
		p.obj.TexCoords = append(p.obj.TexCoords, uv)
	case "f":
		return p.parseFace(fields[1:])
	case "o", "g":
		p.name = strings.Join(fields[1:], " ")
		p.current = nil
	case "usemtl":
		if len(fields) < 2 {
			return fmt.Errorf("%w: usemtl without name", ErrOBJSyntax)
		}
		p.material = fields[1]
		p.current = nil
	case "mtllib":
		p.obj.MaterialLibs = append(p.obj.MaterialLibs, fields[1:]...)
	case "s", "l", "p", "vp":
		// Smoothing groups, lines, points and parameter space vertices are not used
	default:
		p.obj.Warnings = append(p.obj.Warnings, fmt.Sprintf("line %d: unsupported keyword %q", p.line, fields[0]))
	}
	return nil
}

func (p *objParser) parseFace(fields []string) error {
	if len(fields) < 3 {
		return ErrOBJDegenerateFace
	}

	face := OBJFace{Corners: make([]OBJIndex, 0, len(fields))}
	for _, field := range fields {
		idx, err := p.parseCorner(field)
		if err != nil {
			return err
		}
		face.Corners = append(face.Corners, idx)
	}

	if p.current == nil {
		p.obj.Groups = append(p.obj.Groups, OBJGroup{Name: p.name, Material: p.material})
		p.current = &p.obj.Groups[len(p.obj.Groups)-1]
	}
	p.current.Faces = append(p.current.Faces, face)
	return nil
}

// parseCorner decodes "v", "v/vt", "v//vn" or "v/vt/vn".
func (p *objParser) parseCorner(field string) (OBJIndex, error) {
	parts := strings.Split(field, "/")
	if len(parts) > 3 {
		return OBJIndex{}, fmt.Errorf("%w: bad face corner %q", ErrOBJSyntax, field)
	}

	idx := OBJIndex{Position: -1, TexCoord: -1, Normal: -1}
	var err error

	if idx.Position, err = resolveIndex(parts[0], len(p.obj.Positions)); err != nil {
		return idx, err
	}
	if idx.Position < 0 {
		return idx, fmt.Errorf("%w: face corner %q has no position", ErrOBJSyntax, field)
	}
	if len(parts) > 1 {
		if idx.TexCoord, err = resolveIndex(parts[1], len(p.obj.TexCoords)); err != nil {
			return idx, err
		}
	}
	if len(parts) > 2 {
		if idx.Normal, err = resolveIndex(parts[2], len(p.obj.Normals)); err != nil {
			return idx, err
		}
	}
	return idx, nil
}

// resolveIndex converts a 1-based or negative (relative) OBJ index to 0-based.
// An empty string yields -1.
func resolveIndex(s string, count int) (int, error) {
	if s == "" {
		return -1, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return -1, fmt.Errorf("%w: bad index %q", ErrOBJSyntax, s)
	}

	var i int
	switch {
	case n > 0:
		i = n - 1
	case n < 0:
		i = count + n
	default:
		return -1, fmt.Errorf("%w: index 0", ErrOBJIndexRange)
	}
	if i < 0 || i >= count {
		return -1, fmt.Errorf("%w: %d (have %d)", ErrOBJIndexRange, n, count)
	}
	return i, nil
}

// parseFloats parses at least min float fields.
func parseFloats(fields []string, min int) ([]float32, error) {
	if len(fields) < min {
		return nil, fmt.Errorf("%w: expected %d values, got %d", ErrOBJSyntax, min, len(fields))
	}
	out := make([]float32, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 32)
		if err != nil {
			return nil, fmt.Errorf("%w: bad number %q", ErrOBJSyntax, f)
		}
		out[i] = float32(v)
	}
	return out, nil
}
