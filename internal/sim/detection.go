package sim

import (
	"github.com/banshee-data/scansim/internal/sim/scene"
)

// Classification outcome codes carried in SemanticDetection.ObjectIdx.
// Codes 1-6 and 8 are soft fallbacks: the detection ships with zeroed
// colour data and the code says which lookup rung failed. Code 7 and
// unrecognised texture layouts additionally abort the frame.
const (
	CodeNormal             uint32 = 0 // decoded hit, or a clean miss
	CodeNoComponent        uint32 = 1 // surface blocks rays but exposes no mesh data
	CodeNoFaceIndex        uint32 = 2 // no triangle index recorded for the hit
	CodeUVLookupFailed     uint32 = 3 // face resolved but UV mapping failed
	CodeNoMaterial         uint32 = 4 // face carries no material reference
	CodeNoMaterialInstance uint32 = 5 // material reference has no instance data
	CodeNoParameters       uint32 = 6 // instance has no parameters of any kind
	CodeVectorOnly         uint32 = 7 // only vector parameters; fatal layout
	CodeScalarNotAlpha     uint32 = 8 // first scalar parameter is not "Transparency"
)

// CosIncMiss is the incidence-cosine sentinel recorded for rays that hit
// nothing. A real cosine is confined to [-1, 1], so 2.0 is unambiguous.
const CosIncMiss float32 = 2.0

// Vec3f is the packed float32 triple used on the wire.
type Vec3f struct {
	X, Y, Z float32
}

// RawHit is the per-ray record captured during the cast stage. The
// emission angles are kept alongside the scene hit so the classifier
// can always reconstruct the angle/distance carrier, hit or miss.
type RawHit struct {
	VertAngle  float64 // channel elevation in degrees
	HorizAngle float64 // sample azimuth in degrees, centred on zero
	Hit        scene.Hit
}

// SemanticDetection is one classified LiDAR return.
//
// Point is not a Cartesian impact location: it carries (vertical angle,
// horizontal angle, distance) so consumers recover angle and range
// directly. Distance is zero for a miss, and the angles are preserved
// either way so angular coverage stays dense.
type SemanticDetection struct {
	Point       Vec3f
	CosIncAngle float32 // dot(-ray, normal) on a hit; CosIncMiss otherwise
	ObjectIdx   uint32  // classification code, see Code* constants
	ObjectTag   uint32  // semantic stencil tag of the surface, 0 if none
	BaseColor   scene.RGBA
	ORM         scene.RGBA // occlusion/roughness/metallic sample
}

// Miss reports whether this detection recorded no surface.
func (d SemanticDetection) Miss() bool {
	return d.CosIncAngle == CosIncMiss
}
