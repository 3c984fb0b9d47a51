package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadConfig(t *testing.T) {
	// Create a temporary config file for testing
	testConfigContent := `
log_level: debug
api_port: "9090"
data_dir: /var/lib/argus
training:
  delay: 2s
collector:
  enabled: true
  interval: 30s
  entity_id: edge-sensor-1
`

	err := os.WriteFile("config.yaml", []byte(testConfigContent), 0644)
	assert.NoError(t, err)
	defer os.Remove("config.yaml") // Clean up the test config file

	cfg, err := LoadConfig()
	assert.NoError(t, err)
	assert.NotNil(t, cfg)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "9090", cfg.APIPort)
	assert.Equal(t, "/var/lib/argus", cfg.DataDir)
	assert.Equal(t, 2*time.Second, cfg.TrainingDelay())
	assert.True(t, cfg.Collector.Enabled)
	assert.Equal(t, 30*time.Second, cfg.CollectorInterval())
	assert.Equal(t, "edge-sensor-1", cfg.Collector.EntityID)

	// Test with environment variable override
	os.Setenv("ARGUS_API_PORT", "9091")
	defer os.Unsetenv("ARGUS_API_PORT")

	cfg, err = LoadConfig()
	assert.NoError(t, err)
	assert.Equal(t, "9091", cfg.APIPort)
}

func TestConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig()
	assert.NoError(t, err)

	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "8080", cfg.APIPort)
	assert.False(t, cfg.Collector.Enabled)
	assert.Equal(t, 5*time.Second, cfg.TrainingDelay())
	assert.Equal(t, time.Minute, cfg.CollectorInterval())
}

func TestDurationFallbacks(t *testing.T) {
	cfg := &Config{
		Training:  TrainingConfig{Delay: "not-a-duration"},
		Collector: CollectorConfig{Interval: ""},
	}

	assert.Equal(t, 5*time.Second, cfg.TrainingDelay())
	assert.Equal(t, time.Minute, cfg.CollectorInterval())
}
