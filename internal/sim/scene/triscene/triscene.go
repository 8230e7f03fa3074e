// Package triscene is a triangle-mesh implementation of the scene
// contracts: a world of meshes with per-mesh materials, in-memory
// textures, and semantic tags. It backs the simulator daemon and
// doubles as the test substrate for the engine.
//
// Ray casts walk every mesh, pre-culling with an axis-aligned
// bounding-box slab test before testing individual triangles with
// Möller-Trumbore. Scenes here are small (tens of meshes); there is no
// spatial index.
package triscene

import (
	"fmt"
	"math"
	"sync"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/scansim/internal/sim/scene"
)

// Triangle is one face of a mesh. Vertices wind counter-clockwise when
// viewed from the front; the geometric normal follows that winding.
// UVs map each vertex into texture space.
type Triangle struct {
	V0, V1, V2 r3.Vec
	UV0        [2]float64
	UV1        [2]float64
	UV2        [2]float64
}

// Texture is an in-memory RGBA pixel grid.
type Texture struct {
	Width  int
	Height int
	Pixels []scene.RGBA // row-major, len = Width*Height; nil means no backing data
}

// Material is one material instance. The parameter slices land in
// scene.Params verbatim, so slot order matters: texture slot 0 is base
// colour, slot 2 is ORM. A material with HasInstance false models a
// dangling reference (classifier code 5).
type Material struct {
	Name        string
	Textures    []scene.TextureRef
	Scalars     []scene.ScalarParam
	Vectors     []scene.VectorParam
	HasInstance bool
}

// Mesh is one surface in the world. NotQueryable models surfaces that
// block rays but expose no mesh data (classifier code 1). A Material
// of 0 means no material is bound to any face (code 4). NoUVs disables
// the UV channel (code 3); NoFaces suppresses face-index reporting
// (code 2).
type Mesh struct {
	Name         string
	Tag          uint32
	Triangles    []Triangle
	Material     scene.MaterialRef
	NotQueryable bool
	NoFaces      bool
	NoUVs        bool

	bounds aabb
}

// aabb is an axis-aligned bounding box used to pre-cull ray casts.
type aabb struct {
	min, max r3.Vec
}

// Scene holds the world. All mutation happens under the write lock;
// the engine casts under the read lock, so geometry is stable for the
// duration of a whole batch.
type Scene struct {
	mu        sync.RWMutex
	meshes    []Mesh
	materials []Material
	textures  []Texture
}

// New returns an empty scene.
func New() *Scene {
	return &Scene{}
}

// RLock takes the shared read lock for a cast batch.
func (s *Scene) RLock() { s.mu.RLock() }

// RUnlock releases the shared read lock.
func (s *Scene) RUnlock() { s.mu.RUnlock() }

// AddTexture registers a texture and returns its reference.
func (s *Scene) AddTexture(t Texture) scene.TextureRef {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.textures = append(s.textures, t)
	return scene.TextureRef(len(s.textures))
}

// SolidTexture builds a width x height texture filled with one colour.
func SolidTexture(width, height int, c scene.RGBA) Texture {
	px := make([]scene.RGBA, width*height)
	for i := range px {
		px[i] = c
	}
	return Texture{Width: width, Height: height, Pixels: px}
}

// AddMaterial registers a material instance and returns its reference.
func (s *Scene) AddMaterial(m Material) scene.MaterialRef {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.materials = append(s.materials, m)
	return scene.MaterialRef(len(s.materials))
}

// AddMesh registers a mesh, computing its bounding box, and returns its
// surface reference.
func (s *Scene) AddMesh(m Mesh) scene.SurfaceRef {
	m.bounds = boundsOf(m.Triangles)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.meshes = append(s.meshes, m)
	return scene.SurfaceRef(len(s.meshes))
}

// MeshCount returns the number of registered meshes.
func (s *Scene) MeshCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.meshes)
}

func boundsOf(tris []Triangle) aabb {
	b := aabb{
		min: r3.Vec{X: math.Inf(1), Y: math.Inf(1), Z: math.Inf(1)},
		max: r3.Vec{X: math.Inf(-1), Y: math.Inf(-1), Z: math.Inf(-1)},
	}
	for _, t := range tris {
		for _, v := range []r3.Vec{t.V0, t.V1, t.V2} {
			b.min.X = math.Min(b.min.X, v.X)
			b.min.Y = math.Min(b.min.Y, v.Y)
			b.min.Z = math.Min(b.min.Z, v.Z)
			b.max.X = math.Max(b.max.X, v.X)
			b.max.Y = math.Max(b.max.Y, v.Y)
			b.max.Z = math.Max(b.max.Z, v.Z)
		}
	}
	return b
}

// mesh resolves a surface reference under the lock already held by the
// caller. References are 1-based so the zero SurfaceRef stays invalid.
func (s *Scene) mesh(ref scene.SurfaceRef) (*Mesh, bool) {
	if ref < 1 || int(ref) > len(s.meshes) {
		return nil, false
	}
	return &s.meshes[ref-1], true
}

// CastRay returns the nearest blocking intersection within maxRange.
// Misses return ok false. Callers hold the read lock for the batch;
// CastRay takes no lock itself.
func (s *Scene) CastRay(origin, dir r3.Vec, maxRange float64, flags scene.CastFlags) (scene.Hit, bool) {
	d := r3.Unit(dir)

	best := scene.Hit{Distance: math.Inf(1)}
	bestMesh := -1
	for mi := range s.meshes {
		m := &s.meshes[mi]
		if enter, ok := slabTest(origin, d, m.bounds); !ok || enter > maxRange {
			continue
		}
		for fi := range m.Triangles {
			t, u, v, ok := intersectTriangle(origin, d, &m.Triangles[fi])
			if !ok || t > maxRange || t >= best.Distance {
				continue
			}
			best = scene.Hit{
				Blocking:  true,
				Distance:  t,
				Point:     r3.Add(origin, r3.Scale(t, d)),
				Normal:    triangleNormal(&m.Triangles[fi], d),
				Surface:   scene.SurfaceRef(mi + 1),
				FaceIndex: fi,
				U:         u,
				V:         v,
			}
			bestMesh = mi
		}
	}

	if bestMesh < 0 {
		return scene.Hit{Surface: scene.NoSurface, FaceIndex: -1}, false
	}
	if flags&scene.ReportFaceIndex == 0 || s.meshes[bestMesh].NoFaces {
		best.FaceIndex = -1
	}
	return best, true
}

// slabTest is the standard axis-by-axis AABB intersection. It returns
// the entry distance and whether the ray crosses the box at all; a ray
// starting inside reports entry zero.
func slabTest(origin, dir r3.Vec, box aabb) (float64, bool) {
	tmin := math.Inf(-1)
	tmax := math.Inf(1)

	for _, ax := range [3][3]float64{
		{origin.X, dir.X, 0},
		{origin.Y, dir.Y, 1},
		{origin.Z, dir.Z, 2},
	} {
		o, d := ax[0], ax[1]
		lo, hi := axisBounds(box, int(ax[2]))
		if d != 0 {
			t1 := (lo - o) / d
			t2 := (hi - o) / d
			if t1 > t2 {
				t1, t2 = t2, t1
			}
			if t1 > tmin {
				tmin = t1
			}
			if t2 < tmax {
				tmax = t2
			}
		} else if o < lo || o > hi {
			return 0, false
		}
	}

	if tmax < tmin || tmax < 0 {
		return 0, false
	}
	if tmin < 0 {
		return 0, true
	}
	return tmin, true
}

func axisBounds(box aabb, axis int) (float64, float64) {
	switch axis {
	case 0:
		return box.min.X, box.max.X
	case 1:
		return box.min.Y, box.max.Y
	default:
		return box.min.Z, box.max.Z
	}
}

// intersectTriangle is Möller-Trumbore. It returns the ray distance and
// the barycentric (u, v) of the intersection; ok is false for parallel
// rays, out-of-face coordinates, and hits behind the origin.
func intersectTriangle(origin, dir r3.Vec, tri *Triangle) (t, u, v float64, ok bool) {
	const epsilon = 1e-9

	e1 := r3.Sub(tri.V1, tri.V0)
	e2 := r3.Sub(tri.V2, tri.V0)
	p := r3.Cross(dir, e2)
	det := r3.Dot(e1, p)
	if math.Abs(det) < epsilon {
		return 0, 0, 0, false
	}

	inv := 1.0 / det
	s := r3.Sub(origin, tri.V0)
	u = r3.Dot(s, p) * inv
	if u < 0 || u > 1 {
		return 0, 0, 0, false
	}

	q := r3.Cross(s, e1)
	v = r3.Dot(dir, q) * inv
	if v < 0 || u+v > 1 {
		return 0, 0, 0, false
	}

	t = r3.Dot(e2, q) * inv
	if t < epsilon {
		return 0, 0, 0, false
	}
	return t, u, v, true
}

// triangleNormal returns the unit face normal, flipped to face the
// incoming ray so incidence cosines stay positive for front-on hits.
func triangleNormal(tri *Triangle, dir r3.Vec) r3.Vec {
	n := r3.Unit(r3.Cross(r3.Sub(tri.V1, tri.V0), r3.Sub(tri.V2, tri.V0)))
	if r3.Dot(n, dir) > 0 {
		n = r3.Scale(-1, n)
	}
	return n
}

// Tag returns the semantic tag of a surface, 0 for unknown references.
func (s *Scene) Tag(ref scene.SurfaceRef) uint32 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.mesh(ref)
	if !ok {
		return 0
	}
	return m.Tag
}

// Queryable reports whether the surface exposes mesh data.
func (s *Scene) Queryable(ref scene.SurfaceRef) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.mesh(ref)
	return ok && !m.NotQueryable
}

// ResolveFace returns the triangle index the cast recorded, or false
// when none was reported.
func (s *Scene) ResolveFace(ref scene.SurfaceRef, hit scene.Hit) (int, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.mesh(ref)
	if !ok || hit.FaceIndex < 0 || hit.FaceIndex >= len(m.Triangles) {
		return -1, false
	}
	return hit.FaceIndex, true
}

// FindUV interpolates the face's vertex UVs at the hit's barycentric
// coordinates.
func (s *Scene) FindUV(hit scene.Hit, faceIndex int) (float64, float64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.mesh(hit.Surface)
	if !ok || m.NoUVs || faceIndex < 0 || faceIndex >= len(m.Triangles) {
		return 0, 0, false
	}
	tri := &m.Triangles[faceIndex]
	w := 1 - hit.U - hit.V
	u := w*tri.UV0[0] + hit.U*tri.UV1[0] + hit.V*tri.UV2[0]
	v := w*tri.UV0[1] + hit.U*tri.UV1[1] + hit.V*tri.UV2[1]
	return u, v, true
}

// MaterialAt returns the mesh's material binding; meshes bind one
// material across all faces.
func (s *Scene) MaterialAt(ref scene.SurfaceRef, faceIndex int) (scene.MaterialRef, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.mesh(ref)
	if !ok || m.Material == 0 {
		return 0, false
	}
	return m.Material, true
}

// Parameters returns a material's parameter set, or false for dangling
// references and materials with no instance data.
func (s *Scene) Parameters(mat scene.MaterialRef) (scene.Params, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if mat < 1 || int(mat) > len(s.materials) {
		return scene.Params{}, false
	}
	m := &s.materials[mat-1]
	if !m.HasInstance {
		return scene.Params{}, false
	}
	return scene.Params{Textures: m.Textures, Scalars: m.Scalars, Vectors: m.Vectors}, true
}

// SampleTexture reads the pixel nearest to (u, v): coordinates scale by
// the texture dimensions and round to the nearest integer. Coordinates
// past the pixel grid and textures with no backing data are hard
// errors.
func (s *Scene) SampleTexture(tex scene.TextureRef, u, v float64) (scene.RGBA, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if tex < 1 || int(tex) > len(s.textures) {
		return scene.RGBA{}, fmt.Errorf("%w: unknown texture ref %d", scene.ErrNoTextureData, tex)
	}
	t := &s.textures[tex-1]
	if len(t.Pixels) == 0 {
		return scene.RGBA{}, fmt.Errorf("%w: texture ref %d", scene.ErrNoTextureData, tex)
	}

	px := int(math.Round(u * float64(t.Width)))
	py := int(math.Round(v * float64(t.Height)))
	if px < 0 || px >= t.Width || py < 0 || py >= t.Height {
		return scene.RGBA{}, fmt.Errorf("%w: pixel (%d, %d) outside %dx%d", scene.ErrPixelOutOfRange, px, py, t.Width, t.Height)
	}
	return t.Pixels[py*t.Width+px], nil
}
