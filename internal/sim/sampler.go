package sim

import "math"

// horizontalAngle returns the azimuth of sample j under this plan,
// wrapped into the FOV and centred on zero so the sweep spans
// [-fov/2, +fov/2). Pure in (heading, j) and independent of the
// channel: vertical and horizontal placement are decoupled.
func (p sweepPlan) horizontalAngle(j int) float64 {
	return math.Mod(p.headingDeg+p.stepDeg*float64(j), p.hfovDeg) - p.hfovDeg/2
}

// sampleAngles returns the (vertical, horizontal) emission pair for
// sample j of a channel. The vertical angle is the channel's fixed
// beam elevation; the horizontal angle comes from the sweep plan.
func sampleAngles(p sweepPlan, laserAngles []float64, channel, j int) (vertDeg, horizDeg float64) {
	return laserAngles[channel], p.horizontalAngle(j)
}
