// Package config loads the simulator's runtime profile from JSON.
// Every field is a pointer so partial profiles are safe: fields left
// out of the file fall back to defaults through the Get* accessors.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/banshee-data/scansim/internal/sim"
)

// DefaultProfilePath is the path to the canonical profile defaults
// file, the single source of truth for default runtime values.
const DefaultProfilePath = "config/scansim.defaults.json"

// Profile is the root configuration: sensor geometry plus the runtime
// parameters of the daemon shell (streaming, capture, monitoring).
type Profile struct {
	// Sensor params
	SensorID          *string  `json:"sensor_id,omitempty"`
	Channels          *int     `json:"channels,omitempty"`
	Range             *float64 `json:"range_meters,omitempty"`
	PointsPerSecond   *float64 `json:"points_per_second,omitempty"`
	RotationFrequency *float64 `json:"rotation_frequency_hz,omitempty"`
	UpperFovDeg       *float64 `json:"upper_fov_deg,omitempty"`
	LowerFovDeg       *float64 `json:"lower_fov_deg,omitempty"`
	HorizontalFovDeg  *float64 `json:"horizontal_fov_deg,omitempty"`

	// Tick driver params
	TickInterval *string `json:"tick_interval,omitempty"` // duration string like "100ms"

	// Scene params
	ScenePath *string `json:"scene_path,omitempty"`

	// Streaming params
	ForwardAddr *string `json:"forward_addr,omitempty"`
	ForwardPort *int    `json:"forward_port,omitempty"`

	// Capture params
	CaptureDBPath *string `json:"capture_db_path,omitempty"`

	// Monitor params
	MonitorListen *string `json:"monitor_listen,omitempty"`
	PlotDir       *string `json:"plot_dir,omitempty"` // empty disables plotting
}

// EmptyProfile returns a Profile with all fields unset.
func EmptyProfile() *Profile {
	return &Profile{}
}

// LoadProfile loads a Profile from a JSON file. The file must have a
// .json extension and stay under the size cap. Omitted fields keep
// their defaults, so partial profiles are safe.
func LoadProfile(path string) (*Profile, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("profile file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat profile file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("profile file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read profile file: %w", err)
	}

	p := EmptyProfile()
	if err := json.Unmarshal(data, p); err != nil {
		return nil, fmt.Errorf("failed to parse profile JSON: %w", err)
	}
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("invalid profile: %w", err)
	}
	return p, nil
}

// Validate checks that any set values are usable. Sensor geometry gets
// its full validation later through sim.SensorConfig.
func (p *Profile) Validate() error {
	if p.Channels != nil && *p.Channels < 1 {
		return fmt.Errorf("channels must be >= 1, got %d", *p.Channels)
	}
	if p.Range != nil && *p.Range <= 0 {
		return fmt.Errorf("range_meters must be positive, got %g", *p.Range)
	}
	if p.TickInterval != nil && *p.TickInterval != "" {
		if _, err := time.ParseDuration(*p.TickInterval); err != nil {
			return fmt.Errorf("invalid tick_interval %q: %w", *p.TickInterval, err)
		}
	}
	if p.ForwardPort != nil && (*p.ForwardPort < 1 || *p.ForwardPort > 65535) {
		return fmt.Errorf("forward_port out of range: %d", *p.ForwardPort)
	}
	return nil
}

// GetSensorID returns the sensor_id value or the default.
func (p *Profile) GetSensorID() string {
	if p.SensorID == nil || *p.SensorID == "" {
		return "sim-0"
	}
	return *p.SensorID
}

// SensorConfig assembles a sim.SensorConfig from the profile, filling
// unset fields from the stock geometry.
func (p *Profile) SensorConfig() sim.SensorConfig {
	cfg := sim.DefaultSensorConfig()
	if p.Channels != nil {
		cfg.Channels = *p.Channels
	}
	if p.Range != nil {
		cfg.Range = *p.Range
	}
	if p.PointsPerSecond != nil {
		cfg.PointsPerSecond = *p.PointsPerSecond
	}
	if p.RotationFrequency != nil {
		cfg.RotationFrequency = *p.RotationFrequency
	}
	if p.UpperFovDeg != nil {
		cfg.UpperFovDeg = *p.UpperFovDeg
	}
	if p.LowerFovDeg != nil {
		cfg.LowerFovDeg = *p.LowerFovDeg
	}
	if p.HorizontalFovDeg != nil {
		cfg.HorizontalFovDeg = *p.HorizontalFovDeg
	}
	return cfg
}

// GetTickInterval parses and returns the tick interval.
func (p *Profile) GetTickInterval() time.Duration {
	if p.TickInterval == nil || *p.TickInterval == "" {
		return 100 * time.Millisecond
	}
	d, err := time.ParseDuration(*p.TickInterval)
	if err != nil {
		return 100 * time.Millisecond
	}
	return d
}

// GetScenePath returns the scene_path value or the default.
func (p *Profile) GetScenePath() string {
	if p.ScenePath == nil || *p.ScenePath == "" {
		return "config/scene.json"
	}
	return *p.ScenePath
}

// GetForwardAddr returns the forward_addr value or the default.
func (p *Profile) GetForwardAddr() string {
	if p.ForwardAddr == nil || *p.ForwardAddr == "" {
		return "localhost"
	}
	return *p.ForwardAddr
}

// GetForwardPort returns the forward_port value or the default.
func (p *Profile) GetForwardPort() int {
	if p.ForwardPort == nil {
		return 2371
	}
	return *p.ForwardPort
}

// GetCaptureDBPath returns the capture_db_path value or the default.
func (p *Profile) GetCaptureDBPath() string {
	if p.CaptureDBPath == nil || *p.CaptureDBPath == "" {
		return "scansim.db"
	}
	return *p.CaptureDBPath
}

// GetMonitorListen returns the monitor_listen value or the default.
func (p *Profile) GetMonitorListen() string {
	if p.MonitorListen == nil || *p.MonitorListen == "" {
		return ":8082"
	}
	return *p.MonitorListen
}

// GetPlotDir returns the plot_dir value; empty means plotting is
// disabled.
func (p *Profile) GetPlotDir() string {
	if p.PlotDir == nil {
		return ""
	}
	return *p.PlotDir
}
