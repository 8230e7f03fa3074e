package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeProfile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "profile.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestEmptyProfileDefaults(t *testing.T) {
	t.Parallel()

	p := EmptyProfile()
	assert.Equal(t, "sim-0", p.GetSensorID())
	assert.Equal(t, 100*time.Millisecond, p.GetTickInterval())
	assert.Equal(t, "config/scene.json", p.GetScenePath())
	assert.Equal(t, "localhost", p.GetForwardAddr())
	assert.Equal(t, 2371, p.GetForwardPort())
	assert.Equal(t, "scansim.db", p.GetCaptureDBPath())
	assert.Equal(t, ":8082", p.GetMonitorListen())
	assert.Empty(t, p.GetPlotDir())

	cfg := p.SensorConfig()
	assert.Equal(t, 32, cfg.Channels)
	assert.Equal(t, 56000.0, cfg.PointsPerSecond)
	assert.NoError(t, cfg.Validate())
}

func TestLoadProfilePartial(t *testing.T) {
	t.Parallel()

	path := writeProfile(t, `{
		"sensor_id": "roof-unit",
		"channels": 16,
		"range_meters": 50,
		"tick_interval": "50ms",
		"forward_port": 9999
	}`)

	p, err := LoadProfile(path)
	require.NoError(t, err)
	assert.Equal(t, "roof-unit", p.GetSensorID())
	assert.Equal(t, 50*time.Millisecond, p.GetTickInterval())
	assert.Equal(t, 9999, p.GetForwardPort())

	cfg := p.SensorConfig()
	assert.Equal(t, 16, cfg.Channels)
	assert.Equal(t, 50.0, cfg.Range)
	// Unset fields keep the stock geometry.
	assert.Equal(t, 10.0, cfg.UpperFovDeg)
	assert.Equal(t, 56000.0, cfg.PointsPerSecond)
}

func TestLoadProfileRejectsBadInput(t *testing.T) {
	t.Parallel()

	t.Run("wrong extension", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), "profile.yaml")
		require.NoError(t, os.WriteFile(path, []byte("{}"), 0o644))
		_, err := LoadProfile(path)
		assert.Error(t, err)
	})

	t.Run("missing file", func(t *testing.T) {
		t.Parallel()
		_, err := LoadProfile(filepath.Join(t.TempDir(), "absent.json"))
		assert.Error(t, err)
	})

	t.Run("malformed json", func(t *testing.T) {
		t.Parallel()
		_, err := LoadProfile(writeProfile(t, "{not json"))
		assert.Error(t, err)
	})

	t.Run("bad channels", func(t *testing.T) {
		t.Parallel()
		_, err := LoadProfile(writeProfile(t, `{"channels": 0}`))
		assert.Error(t, err)
	})

	t.Run("bad tick interval", func(t *testing.T) {
		t.Parallel()
		_, err := LoadProfile(writeProfile(t, `{"tick_interval": "fast"}`))
		assert.Error(t, err)
	})

	t.Run("bad port", func(t *testing.T) {
		t.Parallel()
		_, err := LoadProfile(writeProfile(t, `{"forward_port": 70000}`))
		assert.Error(t, err)
	})
}

func TestShippedDefaultsParse(t *testing.T) {
	t.Parallel()

	// The canonical defaults file ships at the repo root.
	candidates := []string{
		DefaultProfilePath,
		filepath.Join("..", "..", DefaultProfilePath),
	}
	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			p, err := LoadProfile(path)
			require.NoError(t, err)
			assert.NoError(t, p.SensorConfig().Validate())
			return
		}
	}
	t.Skip("defaults file not found from this working directory")
}
