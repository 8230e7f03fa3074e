package sim

import "math"

// ScanState is the sensor's continuous horizontal heading. It is the
// only engine state that survives across ticks, and it is owned by the
// tick path: advanced exactly once per tick, after the cast batch has
// joined, never concurrently.
type ScanState struct {
	headingDeg float64
}

// Heading returns the current heading in degrees.
func (s *ScanState) Heading() float64 {
	return s.headingDeg
}

// advance moves the heading by the swept angle, wrapped into the
// horizontal FOV. math.Mod keeps multi-revolution sweeps (swept angle
// larger than one full FOV) well-defined.
func (s *ScanState) advance(sweptDeg, hfovDeg float64) {
	s.headingDeg = math.Mod(s.headingDeg+sweptDeg, hfovDeg)
}

// sweepPlan fixes the angular layout of one tick: how many samples each
// channel emits and where they land. It is derived once per tick from
// the heading at tick start and never mutated.
type sweepPlan struct {
	pointsPerLaser int
	headingDeg     float64 // heading when the tick began
	sweptDeg       float64 // total angle covered by this tick
	stepDeg        float64 // angle between consecutive samples
	hfovDeg        float64
}

// planSweep computes the tick's sample budget and angular step. The
// per-channel budget rounds half away from zero. ok is false when the
// tick requests no points at all; the caller skips the tick and leaves
// the heading untouched.
func planSweep(cfg SensorConfig, headingDeg, deltaTime float64) (sweepPlan, bool) {
	points := int(math.Round(cfg.PointsPerSecond * deltaTime / float64(cfg.Channels)))
	if points <= 0 {
		return sweepPlan{}, false
	}
	swept := cfg.RotationFrequency * cfg.HorizontalFovDeg * deltaTime
	return sweepPlan{
		pointsPerLaser: points,
		headingDeg:     headingDeg,
		sweptDeg:       swept,
		stepDeg:        swept / float64(points),
		hfovDeg:        cfg.HorizontalFovDeg,
	}, true
}
