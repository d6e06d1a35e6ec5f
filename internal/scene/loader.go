package scene

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/Faultbox/rtview/internal/assets"
	"github.com/Faultbox/rtview/internal/logger"
	"github.com/Faultbox/rtview/pkg/formats"
	"github.com/Faultbox/rtview/pkg/math"
)

// DefaultMaterialName names the material given to faces without usemtl.
const DefaultMaterialName = "default"

// Loader reads scenes through an asset manager.
type Loader struct {
	assets *assets.Manager
}

// NewLoader creates a loader. A nil manager searches only the working directory.
func NewLoader(m *assets.Manager) *Loader {
	if m == nil {
		m = assets.NewManager()
	}
	return &Loader{assets: m}
}

// Assets returns the loader's asset manager.
func (l *Loader) Assets() *assets.Manager {
	return l.assets
}

// Load reads an OBJ scene and its material libraries.
func (l *Loader) Load(name string) (*Scene, error) {
	path, err := l.assets.Resolve(name)
	if err != nil {
		return nil, err
	}
	if ext := strings.ToLower(filepath.Ext(path)); ext != ".obj" {
		return nil, fmt.Errorf("unsupported scene format %q", ext)
	}

	data, err := l.assets.LoadPath(path)
	if err != nil {
		return nil, err
	}
	obj, err := formats.ParseOBJ(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	var mtls []*formats.MTLMaterial
	var warnings []string
	for _, lib := range obj.MaterialLibs {
		libPath, err := l.assets.ResolveRelative(path, lib)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("material library %s: %v", lib, err))
			continue
		}
		libData, err := l.assets.LoadPath(libPath)
		if err != nil {
			return nil, err
		}
		parsed, err := formats.ParseMTL(bytes.NewReader(libData))
		if err != nil {
			return nil, fmt.Errorf("parsing %s: %w", libPath, err)
		}
		mtls = append(mtls, parsed...)
	}

	sc := Build(obj, mtls)
	sc.Path = path
	sc.Warnings = append(append(warnings, obj.Warnings...), sc.Warnings...)

	stats := sc.Stats()
	logger.Info("scene loaded",
		zap.String("path", path),
		zap.Int("surfaces", stats.Surfaces),
		zap.Int("materials", stats.Materials),
		zap.Int("triangles", stats.Triangles),
	)
	for _, w := range sc.Warnings {
		logger.Warn("scene warning", zap.String("path", path), zap.String("warning", w))
	}
	return sc, nil
}

// MaterialLibs returns the on-disk paths of the scene's material libraries,
// so a watcher can follow them too.
func (l *Loader) MaterialLibs(sc *Scene) []string {
	data, err := l.assets.LoadPath(sc.Path)
	if err != nil {
		return nil
	}
	obj, err := formats.ParseOBJ(bytes.NewReader(data))
	if err != nil {
		return nil
	}
	var paths []string
	for _, lib := range obj.MaterialLibs {
		if p, err := l.assets.ResolveRelative(sc.Path, lib); err == nil {
			paths = append(paths, p)
		}
	}
	return paths
}

// Build converts decoded OBJ/MTL data into surfaces. Each OBJ group
// becomes one surface in file order; corners without normals get the
// face normal.
func Build(obj *formats.OBJ, mtls []*formats.MTLMaterial) *Scene {
	sc := &Scene{}
	byName := make(map[string]*Material, len(mtls))

	for _, m := range mtls {
		mat := materialFromMTL(m)
		if _, dup := byName[mat.Name]; dup {
			sc.Warnings = append(sc.Warnings, fmt.Sprintf("duplicate material %q", mat.Name))
			continue
		}
		byName[mat.Name] = mat
		sc.Materials = append(sc.Materials, mat)
	}

	lookup := func(name string) *Material {
		if name == "" {
			name = DefaultMaterialName
		}
		if mat, ok := byName[name]; ok {
			return mat
		}
		if name != DefaultMaterialName {
			sc.Warnings = append(sc.Warnings, fmt.Sprintf("undefined material %q", name))
		}
		mat := &Material{Name: name, Diffuse: math.Vec3{X: 0.8, Y: 0.8, Z: 0.8}, Dissolve: 1, IOR: 1}
		byName[name] = mat
		sc.Materials = append(sc.Materials, mat)
		return mat
	}

	for _, g := range obj.Groups {
		surf := &Surface{
			Name:     g.Name,
			Material: lookup(g.Material),
		}
		for _, face := range g.Faces {
			for _, corners := range face.Triangles() {
				surf.Triangles = append(surf.Triangles, buildTriangle(obj, corners))
			}
		}
		sc.Surfaces = append(sc.Surfaces, surf)
	}

	return sc
}

func buildTriangle(obj *formats.OBJ, corners [3]formats.OBJIndex) Triangle {
	var tri Triangle
	for i, c := range corners {
		tri.Vertices[i].Position = vec3(obj.Positions[c.Position])
	}

	faceNormal := tri.Normal()
	for i, c := range corners {
		if c.Normal >= 0 {
			tri.Vertices[i].Normal = vec3(obj.Normals[c.Normal]).Normalize()
		} else {
			tri.Vertices[i].Normal = faceNormal
		}
	}
	return tri
}

func materialFromMTL(m *formats.MTLMaterial) *Material {
	return &Material{
		Name:       m.Name,
		Ambient:    vec3(m.Ambient),
		Diffuse:    vec3(m.Diffuse),
		Specular:   vec3(m.Specular),
		Emission:   vec3(m.Emission),
		Shininess:  m.Shininess,
		IOR:        m.IOR,
		Dissolve:   m.Dissolve,
		DiffuseMap: m.DiffuseMap,
		Shader:     ShaderID(m.ShaderID()),
	}
}

func vec3(a [3]float32) math.Vec3 {
	return math.Vec3{X: a[0], Y: a[1], Z: a[2]}
}
