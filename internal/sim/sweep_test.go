package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPlanSweepPointBudget(t *testing.T) {
	t.Parallel()

	cfg := DefaultSensorConfig()
	cfg.Channels = 32
	cfg.PointsPerSecond = 56000
	cfg.RotationFrequency = 10
	cfg.HorizontalFovDeg = 360

	plan, ok := planSweep(cfg, 0, 0.1)
	assert.True(t, ok)
	// 56000 * 0.1 / 32 = 175 points per channel.
	assert.Equal(t, 175, plan.pointsPerLaser)
	assert.InDelta(t, 360.0, plan.sweptDeg, 1e-9)
	assert.InDelta(t, 360.0/175.0, plan.stepDeg, 1e-9)
}

func TestPlanSweepRoundsHalfAwayFromZero(t *testing.T) {
	t.Parallel()

	cfg := DefaultSensorConfig()
	cfg.Channels = 4
	cfg.PointsPerSecond = 10

	// 10 * 0.6 / 4 = 1.5 points: rounds up to 2, not to even.
	plan, ok := planSweep(cfg, 0, 0.6)
	assert.True(t, ok)
	assert.Equal(t, 2, plan.pointsPerLaser)
}

func TestPlanSweepZeroPoints(t *testing.T) {
	t.Parallel()

	cfg := DefaultSensorConfig()
	cfg.PointsPerSecond = 0

	_, ok := planSweep(cfg, 42, 0.1)
	assert.False(t, ok)
}

func TestScanStateAdvanceWraps(t *testing.T) {
	t.Parallel()

	s := ScanState{headingDeg: 350}
	s.advance(30, 360)
	assert.InDelta(t, 20.0, s.Heading(), 1e-9)
}

func TestScanStateAdvanceMultiRevolution(t *testing.T) {
	t.Parallel()

	// A sweep of two full revolutions plus 45 degrees lands 45 past
	// the start.
	s := ScanState{headingDeg: 10}
	s.advance(2*360+45, 360)
	assert.InDelta(t, 55.0, s.Heading(), 1e-9)
}

func TestBuildLaserAngles(t *testing.T) {
	t.Parallel()

	t.Run("interpolates upper to lower", func(t *testing.T) {
		t.Parallel()
		cfg := SensorConfig{Channels: 5, UpperFovDeg: 10, LowerFovDeg: -30}
		angles := buildLaserAngles(cfg)
		assert.Equal(t, []float64{10, 0, -10, -20, -30}, angles)
	})

	t.Run("single channel sits on the upper bound", func(t *testing.T) {
		t.Parallel()
		cfg := SensorConfig{Channels: 1, UpperFovDeg: 10, LowerFovDeg: -30}
		angles := buildLaserAngles(cfg)
		assert.Equal(t, []float64{10}, angles)
	})
}

func TestSensorConfigValidate(t *testing.T) {
	t.Parallel()

	assert.NoError(t, DefaultSensorConfig().Validate())

	bad := DefaultSensorConfig()
	bad.Channels = 0
	assert.Error(t, bad.Validate())

	bad = DefaultSensorConfig()
	bad.Range = 0
	assert.Error(t, bad.Validate())

	bad = DefaultSensorConfig()
	bad.UpperFovDeg = -40
	assert.Error(t, bad.Validate())
}
