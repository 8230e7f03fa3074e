package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/scansim/internal/sim/scene"
)

// fakeSurfaces scripts every catalog lookup so each classifier rung can
// be exercised in isolation.
type fakeSurfaces struct {
	tag       uint32
	queryable bool

	faceOK bool
	face   int

	uvOK bool
	u, v float64

	matOK bool

	paramsOK bool
	params   scene.Params

	samples   map[scene.TextureRef]scene.RGBA
	sampleErr error
}

func (f *fakeSurfaces) Tag(scene.SurfaceRef) uint32     { return f.tag }
func (f *fakeSurfaces) Queryable(scene.SurfaceRef) bool { return f.queryable }
func (f *fakeSurfaces) ResolveFace(scene.SurfaceRef, scene.Hit) (int, bool) {
	return f.face, f.faceOK
}
func (f *fakeSurfaces) FindUV(scene.Hit, int) (float64, float64, bool) {
	return f.u, f.v, f.uvOK
}
func (f *fakeSurfaces) MaterialAt(scene.SurfaceRef, int) (scene.MaterialRef, bool) {
	return 7, f.matOK
}
func (f *fakeSurfaces) Parameters(scene.MaterialRef) (scene.Params, bool) {
	return f.params, f.paramsOK
}
func (f *fakeSurfaces) SampleTexture(tex scene.TextureRef, u, v float64) (scene.RGBA, error) {
	if f.sampleErr != nil {
		return scene.RGBA{}, f.sampleErr
	}
	return f.samples[tex], nil
}

// resolvedSurfaces returns a fake where every rung up to the material
// parameters succeeds.
func resolvedSurfaces(params scene.Params) *fakeSurfaces {
	return &fakeSurfaces{
		tag:       21,
		queryable: true,
		faceOK:    true,
		face:      3,
		uvOK:      true,
		u:         0.25,
		v:         0.5,
		matOK:     true,
		paramsOK:  true,
		params:    params,
	}
}

func blockingHit() RawHit {
	return RawHit{
		VertAngle:  -5.0,
		HorizAngle: 12.5,
		Hit: scene.Hit{
			Blocking:  true,
			Distance:  4.0,
			Point:     r3.Vec{X: 0, Y: 4, Z: 0},
			Normal:    r3.Vec{X: 0, Y: -1, Z: 0},
			Surface:   1,
			FaceIndex: 3,
		},
	}
}

func TestClassifyMiss(t *testing.T) {
	t.Parallel()

	c := &Classifier{Surfaces: &fakeSurfaces{}}
	raw := RawHit{
		VertAngle:  2.5,
		HorizAngle: -90.0,
		Hit:        scene.Hit{Surface: scene.NoSurface, FaceIndex: -1},
	}

	det, err := c.Classify(raw, r3.Vec{})
	require.NoError(t, err)

	assert.Equal(t, CosIncMiss, det.CosIncAngle)
	assert.Equal(t, CodeNormal, det.ObjectIdx)
	assert.Equal(t, uint32(0), det.ObjectTag)
	assert.Equal(t, scene.RGBA{}, det.BaseColor)
	assert.Equal(t, scene.RGBA{}, det.ORM)
	assert.True(t, det.Miss())

	// Angles survive the miss; only the distance is zeroed.
	assert.Equal(t, Vec3f{X: 2.5, Y: -90.0, Z: 0}, det.Point)
}

func TestClassifyIncidenceCosine(t *testing.T) {
	t.Parallel()

	c := &Classifier{Surfaces: resolvedSurfaces(scene.Params{})}
	raw := blockingHit()

	// Normal pointing straight back at the sensor: cosine 1.
	det, err := c.Classify(raw, r3.Vec{})
	require.NoError(t, err)
	assert.InDelta(t, 1.0, float64(det.CosIncAngle), 1e-6)
	assert.False(t, det.Miss())

	// 60 degree incidence: cosine 0.5.
	raw.Hit.Normal = r3.Vec{X: 0.8660254037844386, Y: -0.5, Z: 0}
	det, err = c.Classify(raw, r3.Vec{})
	require.NoError(t, err)
	assert.InDelta(t, 0.5, float64(det.CosIncAngle), 1e-6)
}

func TestClassifyFallbackLadder(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name     string
		surfaces *fakeSurfaces
		wantIdx  uint32
		wantBase scene.RGBA
	}{
		{
			name:     "not queryable",
			surfaces: &fakeSurfaces{tag: 9, queryable: false},
			wantIdx:  CodeNoComponent,
			wantBase: scene.RGBA{R: 1},
		},
		{
			name:     "no face index",
			surfaces: &fakeSurfaces{tag: 9, queryable: true, faceOK: false},
			wantIdx:  CodeNoFaceIndex,
		},
		{
			name:     "uv lookup failed",
			surfaces: &fakeSurfaces{tag: 9, queryable: true, faceOK: true, uvOK: false},
			wantIdx:  CodeUVLookupFailed,
		},
		{
			name:     "no material",
			surfaces: &fakeSurfaces{tag: 9, queryable: true, faceOK: true, uvOK: true, matOK: false},
			wantIdx:  CodeNoMaterial,
		},
		{
			name:     "no material instance",
			surfaces: &fakeSurfaces{tag: 9, queryable: true, faceOK: true, uvOK: true, matOK: true, paramsOK: false},
			wantIdx:  CodeNoMaterialInstance,
		},
		{
			name:     "no parameters at all",
			surfaces: resolvedSurfacesWithTag(9, scene.Params{}),
			wantIdx:  CodeNoParameters,
		},
		{
			name: "first scalar is not transparency",
			surfaces: resolvedSurfacesWithTag(9, scene.Params{
				Scalars: []scene.ScalarParam{{Name: "Roughness", Value: 0.4}},
			}),
			wantIdx: CodeScalarNotAlpha,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			c := &Classifier{Surfaces: tc.surfaces}
			det, err := c.Classify(blockingHit(), r3.Vec{})
			require.NoError(t, err)

			assert.Equal(t, tc.wantIdx, det.ObjectIdx)
			assert.Equal(t, tc.wantBase, det.BaseColor)
			assert.Equal(t, scene.RGBA{}, det.ORM)
			// The tag is resolved before the ladder descends, so every
			// fallback still carries it.
			assert.Equal(t, uint32(9), det.ObjectTag)
		})
	}
}

func resolvedSurfacesWithTag(tag uint32, params scene.Params) *fakeSurfaces {
	s := resolvedSurfaces(params)
	s.tag = tag
	return s
}

func TestClassifyTransparency(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name      string
		value     float64
		wantAlpha uint8
	}{
		{name: "half transparent", value: 0.5, wantAlpha: 127},
		{name: "opaque", value: 0, wantAlpha: 255},
		{name: "quarter", value: 0.25, wantAlpha: 191},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			surfaces := resolvedSurfaces(scene.Params{
				Scalars: []scene.ScalarParam{{Name: "Transparency", Value: tc.value}},
			})
			c := &Classifier{Surfaces: surfaces}

			det, err := c.Classify(blockingHit(), r3.Vec{})
			require.NoError(t, err)

			assert.Equal(t, CodeNormal, det.ObjectIdx)
			assert.Equal(t, scene.RGBA{A: tc.wantAlpha}, det.BaseColor)
			assert.Equal(t, scene.RGBA{}, det.ORM)
		})
	}
}

func TestClassifyTextureDispatch(t *testing.T) {
	t.Parallel()

	base := scene.RGBA{R: 120, G: 60, B: 30, A: 255}
	orm := scene.RGBA{R: 255, G: 128, B: 0, A: 255}

	t.Run("base colour only layouts", func(t *testing.T) {
		t.Parallel()

		for _, slots := range []int{1, 2} {
			textures := make([]scene.TextureRef, slots)
			for i := range textures {
				textures[i] = scene.TextureRef(i + 10)
			}
			surfaces := resolvedSurfaces(scene.Params{Textures: textures})
			surfaces.samples = map[scene.TextureRef]scene.RGBA{10: base}

			c := &Classifier{Surfaces: surfaces}
			det, err := c.Classify(blockingHit(), r3.Vec{})
			require.NoError(t, err)

			assert.Equal(t, CodeNormal, det.ObjectIdx)
			assert.Equal(t, base, det.BaseColor)
			assert.Equal(t, scene.RGBA{}, det.ORM, "slot count %d must not sample orm", slots)
		}
	})

	t.Run("base plus orm layouts", func(t *testing.T) {
		t.Parallel()

		for _, slots := range []int{3, 4, 13} {
			textures := make([]scene.TextureRef, slots)
			for i := range textures {
				textures[i] = scene.TextureRef(i + 20)
			}
			surfaces := resolvedSurfaces(scene.Params{Textures: textures})
			surfaces.samples = map[scene.TextureRef]scene.RGBA{20: base, 22: orm}

			c := &Classifier{Surfaces: surfaces}
			det, err := c.Classify(blockingHit(), r3.Vec{})
			require.NoError(t, err)

			assert.Equal(t, CodeNormal, det.ObjectIdx)
			assert.Equal(t, base, det.BaseColor)
			assert.Equal(t, orm, det.ORM, "slot count %d samples slot 2 for orm", slots)
		}
	})
}

func TestClassifyFatalConditions(t *testing.T) {
	t.Parallel()

	t.Run("vector parameters only", func(t *testing.T) {
		t.Parallel()

		surfaces := resolvedSurfaces(scene.Params{
			Vectors: []scene.VectorParam{{Name: "Tint", Value: [4]float64{1, 0, 0, 1}}},
		})
		c := &Classifier{Surfaces: surfaces}

		det, err := c.Classify(blockingHit(), r3.Vec{})
		require.ErrorIs(t, err, ErrVectorOnlyMaterial)
		assert.Equal(t, CodeVectorOnly, det.ObjectIdx)
	})

	t.Run("unrecognised texture slot count", func(t *testing.T) {
		t.Parallel()

		surfaces := resolvedSurfaces(scene.Params{
			Textures: make([]scene.TextureRef, 5),
		})
		c := &Classifier{Surfaces: surfaces}

		_, err := c.Classify(blockingHit(), r3.Vec{})
		require.ErrorIs(t, err, ErrTextureCount)
	})

	t.Run("texture sample failure propagates", func(t *testing.T) {
		t.Parallel()

		surfaces := resolvedSurfaces(scene.Params{
			Textures: []scene.TextureRef{30},
		})
		surfaces.sampleErr = scene.ErrPixelOutOfRange
		c := &Classifier{Surfaces: surfaces}

		_, err := c.Classify(blockingHit(), r3.Vec{})
		require.ErrorIs(t, err, scene.ErrPixelOutOfRange)
	})
}

func TestClassifyIdempotent(t *testing.T) {
	t.Parallel()

	surfaces := resolvedSurfaces(scene.Params{
		Textures: []scene.TextureRef{40, 41, 42},
	})
	surfaces.samples = map[scene.TextureRef]scene.RGBA{
		40: {R: 1, G: 2, B: 3, A: 4},
		42: {R: 5, G: 6, B: 7, A: 8},
	}
	c := &Classifier{Surfaces: surfaces}
	raw := blockingHit()

	first, err := c.Classify(raw, r3.Vec{})
	require.NoError(t, err)
	second, err := c.Classify(raw, r3.Vec{})
	require.NoError(t, err)

	assert.Equal(t, first, second)
}
