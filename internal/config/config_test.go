package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "matching", cfg.Tableau.Method)
	assert.Equal(t, 10, cfg.Tableau.Results)
	assert.False(t, cfg.Tableau.Verbose)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "console", cfg.Logging.Format)
	assert.False(t, cfg.Telemetry.Enabled)
	assert.Equal(t, "otab", cfg.Telemetry.ServiceName)
	assert.Equal(t, 5*time.Second, cfg.Telemetry.ShutdownTimeout.Duration())
	assert.False(t, cfg.Telemetry.Metrics)
	assert.Equal(t, 15*time.Second, cfg.Telemetry.MetricsInterval.Duration())
	assert.False(t, cfg.Logging.OTel)
	require.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"unknown method", func(c *Config) { c.Tableau.Method = "ranking" }, "tableau.method"},
		{"zero results", func(c *Config) { c.Tableau.Results = 0 }, "tableau.results"},
		{"unknown level", func(c *Config) { c.Logging.Level = "loud" }, "logging.level"},
		{"unknown format", func(c *Config) { c.Logging.Format = "xml" }, "logging.format"},
		{
			"bad protocol",
			func(c *Config) {
				c.Telemetry.Enabled = true
				c.Telemetry.Protocol = "udp"
			},
			"telemetry.protocol",
		},
		{
			"bad sampling rate",
			func(c *Config) {
				c.Telemetry.Enabled = true
				c.Telemetry.SamplingRate = 2
			},
			"telemetry.sampling_rate",
		},
		{
			"missing service name",
			func(c *Config) {
				c.Telemetry.Enabled = true
				c.Telemetry.ServiceName = ""
			},
			"telemetry.service_name",
		},
		{
			"negative metrics interval",
			func(c *Config) {
				c.Telemetry.Enabled = true
				c.Telemetry.Metrics = true
				c.Telemetry.MetricsInterval = Duration(-time.Second)
			},
			"telemetry.metrics_interval",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidate_DisabledTelemetryIgnored(t *testing.T) {
	cfg := Default()
	cfg.Telemetry.Protocol = "udp"
	assert.NoError(t, cfg.Validate())
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	cfg := Default()
	cfg.Tableau.Method = "x"
	cfg.Logging.Format = "y"
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tableau.method")
	assert.Contains(t, err.Error(), "logging.format")
}

func TestDuration(t *testing.T) {
	var d Duration
	require.NoError(t, d.UnmarshalText([]byte("1m30s")))
	assert.Equal(t, 90*time.Second, d.Duration())

	text, err := d.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "1m30s", string(text))

	assert.Error(t, d.UnmarshalText([]byte("-1s")))
	assert.Error(t, d.UnmarshalText([]byte("soon")))
}
