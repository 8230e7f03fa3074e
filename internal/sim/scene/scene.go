// Package scene defines the contracts between the scan engine and the
// world it scans. The engine never owns geometry or materials; it asks a
// Caster for ray intersections and a Surfaces catalog for the material
// data behind a struck surface. Providers must support concurrent
// read-only queries: the engine holds the provider's read lock for the
// duration of each parallel cast batch.
package scene

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Texture sampling failures providers must wrap so the engine can
// recognise them across implementations. Both are authoring contract
// violations: the engine aborts the frame rather than substituting a
// colour.
var (
	// ErrPixelOutOfRange reports UV coordinates that scale past the
	// texture's pixel grid.
	ErrPixelOutOfRange = errors.New("texture pixel out of range")

	// ErrNoTextureData reports a texture reference with no backing
	// pixels.
	ErrNoTextureData = errors.New("texture has no backing data")
)

// CastFlags selects what a cast should resolve beyond the bare
// intersection test.
type CastFlags uint8

const (
	// TraceComplex requests per-triangle intersection rather than
	// simplified collision volumes.
	TraceComplex CastFlags = 1 << iota

	// ReportFaceIndex requests the index of the struck triangle so the
	// surface catalog can resolve UVs and materials for it.
	ReportFaceIndex

	// ReportMaterial requests physical-material resolution with the hit.
	ReportMaterial
)

// SurfaceRef identifies a struck surface within a provider. The zero
// ref is never a valid surface; misses carry NoSurface.
type SurfaceRef int32

// NoSurface is the surface reference recorded for rays that hit nothing.
const NoSurface SurfaceRef = -1

// MaterialRef identifies a material instance within a provider.
type MaterialRef int32

// TextureRef identifies a texture within a provider.
type TextureRef int32

// RGBA is a packed 8-bit colour-style quadruple. It carries base colour
// and ORM (occlusion/roughness/metallic) values on the wire.
type RGBA struct {
	R, G, B, A uint8
}

// ScalarParam is a named scalar material parameter.
type ScalarParam struct {
	Name  string
	Value float64
}

// VectorParam is a named vector material parameter.
type VectorParam struct {
	Name  string
	Value [4]float64
}

// Params is the full parameter set of a material instance, in the
// provider's authoring order. Slot positions are meaningful: the
// classifier samples Textures[0] for base colour and Textures[2] for
// ORM when enough slots exist.
type Params struct {
	Textures []TextureRef
	Scalars  []ScalarParam
	Vectors  []VectorParam
}

// Hit is the result of a single ray cast. Blocking reports whether the
// ray struck anything within range; when false, Distance is zero and
// Surface is NoSurface. FaceIndex and the U/V pair are provider-side
// carriers consumed by Surfaces lookups; callers treat them as opaque.
type Hit struct {
	Blocking  bool
	Distance  float64 // metres along the ray; 0 on a miss
	Point     r3.Vec  // world-space impact point
	Normal    r3.Vec  // unit surface normal at the impact
	Surface   SurfaceRef
	FaceIndex int     // -1 when the provider could not resolve a triangle
	U, V      float64 // intra-face coordinates for FindUV
}

// Caster answers nearest-blocking-intersection queries. Implementations
// must be safe for concurrent calls while the provider's read lock is
// held.
type Caster interface {
	// CastRay traces from origin along dir (unit length not required;
	// the provider normalises) up to maxRange and returns the nearest
	// blocking hit. ok mirrors Hit.Blocking.
	CastRay(origin, dir r3.Vec, maxRange float64, flags CastFlags) (hit Hit, ok bool)
}

// ReadLocker exposes the provider's shared lock. The engine takes the
// read side for a whole cast batch; providers mutate geometry only
// under the write side.
type ReadLocker interface {
	RLock()
	RUnlock()
}

// Scene is what the caster stage of the engine needs from a provider.
type Scene interface {
	Caster
	ReadLocker
}

// Surfaces resolves material data behind a struck surface. Each lookup
// corresponds to one rung of the classifier's fallback ladder, so a
// failed lookup is an expected, diagnosable outcome rather than an
// error.
type Surfaces interface {
	// Tag returns the semantic stencil tag of a surface (0 when the
	// surface carries none).
	Tag(ref SurfaceRef) uint32

	// Queryable reports whether the surface exposes mesh-level data at
	// all. Non-queryable surfaces still block rays and still carry a
	// tag.
	Queryable(ref SurfaceRef) bool

	// ResolveFace returns the triangle index for a hit, or ok=false
	// when the provider recorded no usable face.
	ResolveFace(ref SurfaceRef, hit Hit) (faceIndex int, ok bool)

	// FindUV maps a hit on a resolved face to texture coordinates.
	FindUV(hit Hit, faceIndex int) (u, v float64, ok bool)

	// MaterialAt returns the material reference bound to a face, or
	// ok=false when the face has none.
	MaterialAt(ref SurfaceRef, faceIndex int) (mat MaterialRef, ok bool)

	// Parameters returns the concrete parameter set of a material, or
	// ok=false when the reference resolves to no instance data.
	Parameters(mat MaterialRef) (params Params, ok bool)

	// SampleTexture reads the texel nearest to (u, v). Out-of-range
	// coordinates and missing backing data are hard errors; the engine
	// treats them as authoring contract violations.
	SampleTexture(tex TextureRef, u, v float64) (RGBA, error)
}

// Provider bundles everything a full scan needs from one world source.
type Provider interface {
	Scene
	Surfaces
}

// Pose is the sensor's world transform for one tick. Position is in
// metres. Orientation uses a Z-up compass convention: yaw rotates from
// +Y (azimuth zero) toward +X, pitch lifts the forward axis above the
// horizon, roll turns about the forward axis. All angles in degrees.
type Pose struct {
	X, Y, Z  float64
	RollDeg  float64
	PitchDeg float64
	YawDeg   float64
}

// Origin returns the pose position as a vector.
func (p Pose) Origin() r3.Vec {
	return r3.Vec{X: p.X, Y: p.Y, Z: p.Z}
}

// RotateToWorld applies the pose orientation to a sensor-frame vector:
// roll about the forward axis, then pitch, then yaw.
func (p Pose) RotateToWorld(v r3.Vec) r3.Vec {
	v = rotateRoll(v, p.RollDeg)
	v = rotatePitch(v, p.PitchDeg)
	v = rotateYaw(v, p.YawDeg)
	return v
}

// SphericalDirection converts an azimuth/elevation pair (degrees) to a
// unit direction vector. Azimuth zero points along +Y and increases
// toward +X; elevation lifts toward +Z.
func SphericalDirection(azimuthDeg, elevationDeg float64) r3.Vec {
	az := azimuthDeg * math.Pi / 180.0
	el := elevationDeg * math.Pi / 180.0
	cosEl := math.Cos(el)
	return r3.Vec{
		X: cosEl * math.Sin(az),
		Y: cosEl * math.Cos(az),
		Z: math.Sin(el),
	}
}

// rotateYaw rotates about +Z, compass style (+Y toward +X).
func rotateYaw(v r3.Vec, deg float64) r3.Vec {
	s, c := math.Sincos(deg * math.Pi / 180.0)
	return r3.Vec{
		X: v.X*c + v.Y*s,
		Y: -v.X*s + v.Y*c,
		Z: v.Z,
	}
}

// rotatePitch rotates about +X, lifting +Y toward +Z.
func rotatePitch(v r3.Vec, deg float64) r3.Vec {
	s, c := math.Sincos(deg * math.Pi / 180.0)
	return r3.Vec{
		X: v.X,
		Y: v.Y*c - v.Z*s,
		Z: v.Y*s + v.Z*c,
	}
}

// rotateRoll rotates about +Y, the forward axis at zero yaw.
func rotateRoll(v r3.Vec, deg float64) r3.Vec {
	s, c := math.Sincos(deg * math.Pi / 180.0)
	return r3.Vec{
		X: v.X*c + v.Z*s,
		Y: v.Y,
		Z: -v.X*s + v.Z*c,
	}
}
