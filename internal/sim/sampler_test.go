package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHorizontalAngleCentredOnZero(t *testing.T) {
	t.Parallel()

	p := sweepPlan{pointsPerLaser: 4, headingDeg: 0, stepDeg: 90, hfovDeg: 360}

	assert.InDelta(t, -180.0, p.horizontalAngle(0), 1e-9)
	assert.InDelta(t, -90.0, p.horizontalAngle(1), 1e-9)
	assert.InDelta(t, 0.0, p.horizontalAngle(2), 1e-9)
	assert.InDelta(t, 90.0, p.horizontalAngle(3), 1e-9)
}

func TestHorizontalAngleWrapsWithinFov(t *testing.T) {
	t.Parallel()

	p := sweepPlan{headingDeg: 350, stepDeg: 20, hfovDeg: 360}

	// 350 + 20 wraps to 10, then centres to -170.
	assert.InDelta(t, -170.0, p.horizontalAngle(1), 1e-9)
}

func TestSampleAnglesDecoupled(t *testing.T) {
	t.Parallel()

	p := sweepPlan{headingDeg: 30, stepDeg: 5, hfovDeg: 360}
	laserAngles := []float64{10, -10, -30}

	// Horizontal angle of sample j is channel-independent; vertical is
	// sample-independent.
	for j := 0; j < 4; j++ {
		_, h0 := sampleAngles(p, laserAngles, 0, j)
		for ch := 1; ch < len(laserAngles); ch++ {
			v, h := sampleAngles(p, laserAngles, ch, j)
			assert.Equal(t, h0, h)
			assert.Equal(t, laserAngles[ch], v)
		}
	}
}

func TestSampleAnglesReproducible(t *testing.T) {
	t.Parallel()

	p := sweepPlan{headingDeg: 123.4, stepDeg: 0.7, hfovDeg: 360}
	laserAngles := []float64{2.5}

	v1, h1 := sampleAngles(p, laserAngles, 0, 17)
	v2, h2 := sampleAngles(p, laserAngles, 0, 17)
	assert.Equal(t, v1, v2)
	assert.Equal(t, h1, h2)
}
