package triscene

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/scansim/internal/sim/scene"
)

// SceneFile is the JSON description of a world: a material catalog and
// a list of meshes referencing materials by name. Fields omitted from
// the JSON take their zero value, so minimal scenes stay minimal.
type SceneFile struct {
	Materials []MaterialSpec `json:"materials"`
	Meshes    []MeshSpec     `json:"meshes"`
}

// MaterialSpec describes one material. Exactly one shape is expected:
// a textured material (base colour, optionally with an ORM layer), a
// transparency-only material, or a bare one with no parameters at all.
type MaterialSpec struct {
	Name         string       `json:"name"`
	BaseColor    *[4]uint8    `json:"base_color,omitempty"`   // solid base-colour texture
	ORM          *[4]uint8    `json:"orm,omitempty"`          // solid ORM texture; requires base_color
	TextureSize  int          `json:"texture_size,omitempty"` // pixel grid edge, default 8
	Transparency *float64     `json:"transparency,omitempty"` // scalar-only material
	Vectors      [][4]float64 `json:"vectors,omitempty"`      // named vector params (unclassifiable layouts)
}

// MeshSpec describes one mesh as an axis-aligned box. Tag is the
// semantic stencil value stamped on detections.
type MeshSpec struct {
	Name     string     `json:"name"`
	Tag      uint32     `json:"tag"`
	Material string     `json:"material,omitempty"`
	Min      [3]float64 `json:"min"`
	Max      [3]float64 `json:"max"`
}

// LoadFile reads a scene description from a JSON file and builds the
// world.
func LoadFile(path string) (*Scene, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("scene file must have .json extension, got %q", ext)
	}
	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read scene file: %w", err)
	}

	var sf SceneFile
	if err := json.Unmarshal(data, &sf); err != nil {
		return nil, fmt.Errorf("failed to parse scene JSON: %w", err)
	}
	return Build(&sf)
}

// Build assembles a scene from its parsed description.
func Build(sf *SceneFile) (*Scene, error) {
	s := New()

	matRefs := make(map[string]scene.MaterialRef, len(sf.Materials))
	for _, spec := range sf.Materials {
		if spec.Name == "" {
			return nil, fmt.Errorf("material with empty name")
		}
		if _, dup := matRefs[spec.Name]; dup {
			return nil, fmt.Errorf("duplicate material %q", spec.Name)
		}
		ref, err := buildMaterial(s, spec)
		if err != nil {
			return nil, fmt.Errorf("material %q: %w", spec.Name, err)
		}
		matRefs[spec.Name] = ref
	}

	for _, spec := range sf.Meshes {
		var mat scene.MaterialRef
		if spec.Material != "" {
			ref, ok := matRefs[spec.Material]
			if !ok {
				return nil, fmt.Errorf("mesh %q references unknown material %q", spec.Name, spec.Material)
			}
			mat = ref
		}
		min := r3.Vec{X: spec.Min[0], Y: spec.Min[1], Z: spec.Min[2]}
		max := r3.Vec{X: spec.Max[0], Y: spec.Max[1], Z: spec.Max[2]}
		if min.X >= max.X || min.Y >= max.Y || min.Z >= max.Z {
			return nil, fmt.Errorf("mesh %q: min must be strictly below max on every axis", spec.Name)
		}
		s.AddMesh(Mesh{
			Name:      spec.Name,
			Tag:       spec.Tag,
			Material:  mat,
			Triangles: BoxTriangles(min, max),
		})
	}

	return s, nil
}

func buildMaterial(s *Scene, spec MaterialSpec) (scene.MaterialRef, error) {
	size := spec.TextureSize
	if size == 0 {
		size = 8
	}
	if size < 1 {
		return 0, fmt.Errorf("texture_size must be positive, got %d", size)
	}

	m := Material{Name: spec.Name, HasInstance: true}

	switch {
	case spec.ORM != nil && spec.BaseColor == nil:
		return 0, fmt.Errorf("orm requires base_color")

	case spec.BaseColor != nil && spec.ORM != nil:
		// Three-slot layout: base colour, normal-map filler, ORM.
		base := s.AddTexture(SolidTexture(size, size, rgba(*spec.BaseColor)))
		normal := s.AddTexture(SolidTexture(size, size, scene.RGBA{R: 128, G: 128, B: 255, A: 255}))
		orm := s.AddTexture(SolidTexture(size, size, rgba(*spec.ORM)))
		m.Textures = []scene.TextureRef{base, normal, orm}

	case spec.BaseColor != nil:
		base := s.AddTexture(SolidTexture(size, size, rgba(*spec.BaseColor)))
		m.Textures = []scene.TextureRef{base}

	case spec.Transparency != nil:
		m.Scalars = []scene.ScalarParam{{Name: "Transparency", Value: *spec.Transparency}}
	}

	for i, v := range spec.Vectors {
		m.Vectors = append(m.Vectors, scene.VectorParam{
			Name:  fmt.Sprintf("vector_%d", i),
			Value: v,
		})
	}

	return s.AddMaterial(m), nil
}

func rgba(c [4]uint8) scene.RGBA {
	return scene.RGBA{R: c[0], G: c[1], B: c[2], A: c[3]}
}

// BoxTriangles builds the twelve triangles of an axis-aligned box with
// per-face UVs spanning the texture. Faces wind outward.
func BoxTriangles(min, max r3.Vec) []Triangle {
	corner := func(x, y, z bool) r3.Vec {
		v := min
		if x {
			v.X = max.X
		}
		if y {
			v.Y = max.Y
		}
		if z {
			v.Z = max.Z
		}
		return v
	}

	quads := [][4]r3.Vec{
		// -X and +X
		{corner(false, false, false), corner(false, true, false), corner(false, true, true), corner(false, false, true)},
		{corner(true, false, false), corner(true, false, true), corner(true, true, true), corner(true, true, false)},
		// -Y and +Y
		{corner(false, false, false), corner(false, false, true), corner(true, false, true), corner(true, false, false)},
		{corner(false, true, false), corner(true, true, false), corner(true, true, true), corner(false, true, true)},
		// -Z and +Z
		{corner(false, false, false), corner(true, false, false), corner(true, true, false), corner(false, true, false)},
		{corner(false, false, true), corner(false, true, true), corner(true, true, true), corner(true, false, true)},
	}

	tris := make([]Triangle, 0, 12)
	for _, q := range quads {
		tris = append(tris,
			Triangle{V0: q[0], V1: q[1], V2: q[2], UV0: [2]float64{0, 0}, UV1: [2]float64{0.9, 0}, UV2: [2]float64{0.9, 0.9}},
			Triangle{V0: q[0], V1: q[2], V2: q[3], UV0: [2]float64{0, 0}, UV1: [2]float64{0.9, 0.9}, UV2: [2]float64{0, 0.9}},
		)
	}
	return tris
}

// QuadMesh builds a two-triangle rectangle from four corners in winding
// order, with UVs covering most of the texture. Handy for ground planes
// and test walls.
func QuadMesh(name string, tag uint32, mat scene.MaterialRef, a, b, c, d r3.Vec) Mesh {
	return Mesh{
		Name:     name,
		Tag:      tag,
		Material: mat,
		Triangles: []Triangle{
			{V0: a, V1: b, V2: c, UV0: [2]float64{0, 0}, UV1: [2]float64{0.9, 0}, UV2: [2]float64{0.9, 0.9}},
			{V0: a, V1: c, V2: d, UV0: [2]float64{0, 0}, UV1: [2]float64{0.9, 0.9}, UV2: [2]float64{0, 0.9}},
		},
	}
}
