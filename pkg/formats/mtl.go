package formats

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// MTLMaterial is one "newmtl" entry of a material library.
type MTLMaterial struct {
	Name       string
	Ambient    [3]float32 // Ka
	Diffuse    [3]float32 // Kd
	Specular   [3]float32 // Ks
	Emission   [3]float32 // Ke
	Shininess  float32    // Ns
	IOR        float32    // Ni
	Dissolve   float32    // d (1 = opaque)
	Illum      int
	Shader     int // explicit "shader" id, -1 when not given
	DiffuseMap string
}

// ShaderID returns the explicit shader id, falling back to the illumination
// model. The result is clamped to 0..255.
func (m *MTLMaterial) ShaderID() uint8 {
	id := m.Illum
	if m.Shader >= 0 {
		id = m.Shader
	}
	switch {
	case id < 0:
		return 0
	case id > 255:
		return 255
	}
	return uint8(id)
}

func newMTLMaterial(name string) *MTLMaterial {
	return &MTLMaterial{
		Name:     name,
		Diffuse:  [3]float32{0.8, 0.8, 0.8},
		Dissolve: 1,
		IOR:      1,
		Shader:   -1,
	}
}

// ParseMTL decodes a material library. Materials keep file order.
func ParseMTL(r io.Reader) ([]*MTLMaterial, error) {
	var (
		materials []*MTLMaterial
		current   *MTLMaterial
		line      int
	)

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line++
		text := scanner.Text()
		if i := strings.IndexByte(text, '#'); i >= 0 {
			text = text[:i]
		}
		fields := strings.Fields(text)
		if len(fields) == 0 {
			continue
		}

		if fields[0] == "newmtl" {
			if len(fields) < 2 {
				return nil, fmt.Errorf("line %d: %w: newmtl without name", line, ErrOBJSyntax)
			}
			current = newMTLMaterial(fields[1])
			materials = append(materials, current)
			continue
		}
		if current == nil {
			return nil, fmt.Errorf("line %d: %w: %q before newmtl", line, ErrOBJSyntax, fields[0])
		}

		if err := current.set(fields); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return materials, nil
}

func (m *MTLMaterial) set(fields []string) error {
	var err error
	switch fields[0] {
	case "Ka":
		m.Ambient, err = parseColor(fields[1:])
	case "Kd":
		m.Diffuse, err = parseColor(fields[1:])
	case "Ks":
		m.Specular, err = parseColor(fields[1:])
	case "Ke":
		m.Emission, err = parseColor(fields[1:])
	case "Ns":
		m.Shininess, err = parseScalar(fields[1:])
	case "Ni":
		m.IOR, err = parseScalar(fields[1:])
	case "d":
		m.Dissolve, err = parseScalar(fields[1:])
	case "Tr":
		var tr float32
		tr, err = parseScalar(fields[1:])
		m.Dissolve = 1 - tr
	case "illum":
		m.Illum, err = parseInt(fields[1:])
	case "shader":
		m.Shader, err = parseInt(fields[1:])
	case "map_Kd":
		if len(fields) > 1 {
			// Options may precede the file name; the name is last.
			m.DiffuseMap = fields[len(fields)-1]
		}
	}
	return err
}

// parseColor accepts "r g b" or a single grey value.
func parseColor(fields []string) ([3]float32, error) {
	v, err := parseFloats(fields, 1)
	if err != nil {
		return [3]float32{}, err
	}
	if len(v) < 3 {
		return [3]float32{v[0], v[0], v[0]}, nil
	}
	return [3]float32{v[0], v[1], v[2]}, nil
}

func parseScalar(fields []string) (float32, error) {
	v, err := parseFloats(fields, 1)
	if err != nil {
		return 0, err
	}
	return v[0], nil
}

func parseInt(fields []string) (int, error) {
	if len(fields) < 1 {
		return 0, fmt.Errorf("%w: missing integer", ErrOBJSyntax)
	}
	n, err := strconv.Atoi(fields[0])
	if err != nil {
		return 0, fmt.Errorf("%w: bad integer %q", ErrOBJSyntax, fields[0])
	}
	return n, nil
}
