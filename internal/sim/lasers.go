package sim

// buildLaserAngles computes the fixed vertical angle of every channel:
// a linear interpolation from the upper FOV bound down to the lower
// bound. A single-channel sensor sits exactly on the upper bound.
func buildLaserAngles(cfg SensorConfig) []float64 {
	angles := make([]float64, cfg.Channels)
	delta := 0.0
	if cfg.Channels > 1 {
		delta = (cfg.UpperFovDeg - cfg.LowerFovDeg) / float64(cfg.Channels-1)
	}
	for i := range angles {
		angles[i] = cfg.UpperFovDeg - float64(i)*delta
	}
	return angles
}
