package sim

import "fmt"

// SensorConfig fixes the optical geometry and scan rate of a simulated
// sensor. It is immutable for the lifetime of a Simulator; changing the
// geometry means building a new instance.
type SensorConfig struct {
	Channels          int     // number of fixed vertical beams (default: 32)
	Range             float64 // maximum ray length in metres (default: 10.0)
	PointsPerSecond   float64 // aggregate sample rate across all channels (default: 56000)
	RotationFrequency float64 // horizontal sweeps per second in Hz (default: 10)
	UpperFovDeg       float64 // top of the vertical FOV in degrees (default: +10)
	LowerFovDeg       float64 // bottom of the vertical FOV in degrees (default: -30)
	HorizontalFovDeg  float64 // horizontal sweep extent in degrees (default: 360)
}

// DefaultSensorConfig returns the stock 32-beam geometry.
func DefaultSensorConfig() SensorConfig {
	return SensorConfig{
		Channels:          32,
		Range:             10.0,
		PointsPerSecond:   56000,
		RotationFrequency: 10,
		UpperFovDeg:       10,
		LowerFovDeg:       -30,
		HorizontalFovDeg:  360,
	}
}

// Validate checks the configuration invariants. A zero PointsPerSecond
// is legal: every tick then requests zero points and is skipped with a
// warning rather than rejected here.
func (c SensorConfig) Validate() error {
	if c.Channels < 1 {
		return fmt.Errorf("sensor config: channels must be >= 1, got %d", c.Channels)
	}
	if c.Range <= 0 {
		return fmt.Errorf("sensor config: range must be positive, got %g", c.Range)
	}
	if c.HorizontalFovDeg <= 0 {
		return fmt.Errorf("sensor config: horizontal fov must be positive, got %g", c.HorizontalFovDeg)
	}
	if c.PointsPerSecond < 0 {
		return fmt.Errorf("sensor config: points per second must be >= 0, got %g", c.PointsPerSecond)
	}
	if c.RotationFrequency < 0 {
		return fmt.Errorf("sensor config: rotation frequency must be >= 0, got %g", c.RotationFrequency)
	}
	if c.UpperFovDeg < c.LowerFovDeg {
		return fmt.Errorf("sensor config: upper fov %g below lower fov %g", c.UpperFovDeg, c.LowerFovDeg)
	}
	return nil
}
