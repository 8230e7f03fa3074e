package sim

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/scansim/internal/sim/scene"
)

// Classification walks a fixed fallback ladder from raw hit to
// semantic detection:
//
//	miss                      -> code 0, sentinel cosine, zero colours
//	surface not queryable     -> code 1
//	no face index             -> code 2
//	UV lookup failed          -> code 3
//	no material for the face  -> code 4
//	no instance parameters    -> code 5
//	zero parameters anywhere  -> code 6
//	vector parameters only    -> code 7 (fatal)
//	first scalar not an alpha -> code 8
//	otherwise                 -> decode by texture slot count
//
// Every rung is first-match-wins so a failed detection always says
// which lookup broke. Two outcomes are deliberately fatal rather than
// soft: a vector-only parameter set (code 7) and a texture slot count
// outside {1, 2, 3, 4, 13}. Both mean the material was authored outside
// the layout contract, and masking that would hide broken scene data,
// so they abort the whole frame instead of shipping a placeholder.

// Fatal classification conditions. Both wrap into the error returned
// from Classify and can be tested with errors.Is.
var (
	// ErrVectorOnlyMaterial reports a material whose parameter set is
	// vectors only: there is no recognised way to derive colour data
	// from it.
	ErrVectorOnlyMaterial = errors.New("material has vector parameters only")

	// ErrTextureCount reports a texture slot count outside the
	// recognised layouts.
	ErrTextureCount = errors.New("unrecognised texture slot count")
)

// transparencyParam is the one scalar parameter name the classifier
// understands on untextured materials.
const transparencyParam = "Transparency"

// Classifier maps raw hits to semantic detections against a surface
// catalog. It holds no per-tick state: identical input always produces
// an identical detection.
type Classifier struct {
	Surfaces scene.Surfaces
}

// Classify produces the semantic detection for one raw hit. Soft
// fallbacks (codes 1-6, 8) return a diagnosable detection and a nil
// error; the fatal conditions return the partially-filled detection
// together with a non-nil error the caller must treat as a frame
// abort.
//
// The detection's Point always carries (vertical angle, horizontal
// angle, distance), even on a miss.
func (c *Classifier) Classify(raw RawHit, sensorOrigin r3.Vec) (SemanticDetection, error) {
	det := SemanticDetection{
		Point: Vec3f{
			X: float32(raw.VertAngle),
			Y: float32(raw.HorizAngle),
			Z: float32(raw.Hit.Distance),
		},
	}

	if !raw.Hit.Blocking {
		det.CosIncAngle = CosIncMiss
		det.ObjectIdx = CodeNormal
		return det, nil
	}

	// Incidence cosine between the reversed ray and the surface normal.
	toSensor := r3.Scale(-1, r3.Unit(r3.Sub(raw.Hit.Point, sensorOrigin)))
	det.CosIncAngle = float32(r3.Dot(toSensor, raw.Hit.Normal))
	det.ObjectIdx = CodeNormal
	det.ObjectTag = c.Surfaces.Tag(raw.Hit.Surface)

	if !c.Surfaces.Queryable(raw.Hit.Surface) {
		// The near-black red marks "blocked by something with no mesh
		// data" apart from genuine black surfaces.
		det.BaseColor = scene.RGBA{R: 1}
		det.ObjectIdx = CodeNoComponent
		return det, nil
	}

	return c.classifySurface(raw, det)
}

// classifySurface resolves face, UV, and material for a queryable
// surface, falling back with a distinct code at each failed rung.
func (c *Classifier) classifySurface(raw RawHit, det SemanticDetection) (SemanticDetection, error) {
	face, ok := c.Surfaces.ResolveFace(raw.Hit.Surface, raw.Hit)
	if !ok {
		det.ObjectIdx = CodeNoFaceIndex
		return det, nil
	}

	u, v, ok := c.Surfaces.FindUV(raw.Hit, face)
	if !ok {
		det.ObjectIdx = CodeUVLookupFailed
		return det, nil
	}

	mat, ok := c.Surfaces.MaterialAt(raw.Hit.Surface, face)
	if !ok {
		det.ObjectIdx = CodeNoMaterial
		return det, nil
	}

	params, ok := c.Surfaces.Parameters(mat)
	if !ok {
		det.ObjectIdx = CodeNoMaterialInstance
		return det, nil
	}

	return c.classifyMaterial(det, params, u, v)
}

// classifyMaterial decodes colour data by texture slot count. The
// counts form a closed set; anything outside it is a fatal authoring
// violation, not a soft fallback.
func (c *Classifier) classifyMaterial(det SemanticDetection, params scene.Params, u, v float64) (SemanticDetection, error) {
	switch n := len(params.Textures); n {
	case 0:
		return c.classifyUntextured(det, params)

	case 1, 2:
		// Base colour only; slot 1, when present, is a normal map the
		// detection does not carry.
		base, err := c.Surfaces.SampleTexture(params.Textures[0], u, v)
		if err != nil {
			return det, fmt.Errorf("sample base colour: %w", err)
		}
		det.BaseColor = base
		return det, nil

	case 3, 4, 13:
		// Base colour in slot 0, ORM in slot 2. Count 13 is the road
		// layout: blends of the same four textures under a global mask.
		base, err := c.Surfaces.SampleTexture(params.Textures[0], u, v)
		if err != nil {
			return det, fmt.Errorf("sample base colour: %w", err)
		}
		orm, err := c.Surfaces.SampleTexture(params.Textures[2], u, v)
		if err != nil {
			return det, fmt.Errorf("sample orm: %w", err)
		}
		det.BaseColor = base
		det.ORM = orm
		return det, nil

	default:
		return det, fmt.Errorf("%w: %d slots not in {1, 2, 3, 4, 13}", ErrTextureCount, n)
	}
}

// classifyUntextured handles materials with no texture slots: either
// the single recognised transparency scalar, or one of the terminal
// fallback codes.
func (c *Classifier) classifyUntextured(det SemanticDetection, params scene.Params) (SemanticDetection, error) {
	if len(params.Scalars) == 0 {
		if len(params.Vectors) == 0 {
			det.ObjectIdx = CodeNoParameters
			return det, nil
		}
		det.ObjectIdx = CodeVectorOnly
		return det, fmt.Errorf("%w: %d vector parameters", ErrVectorOnlyMaterial, len(params.Vectors))
	}

	first := params.Scalars[0]
	if first.Name != transparencyParam {
		det.ObjectIdx = CodeScalarNotAlpha
		return det, nil
	}

	// Transparency 0 means opaque, so it lands at full alpha. The
	// conversion wraps modulo 256 rather than saturating.
	alpha := uint8(int32(first.Value * 256))
	det.BaseColor = scene.RGBA{A: 255 - alpha}
	return det, nil
}
