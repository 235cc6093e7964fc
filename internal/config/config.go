// Package config provides configuration loading for otab.
//
// Configuration comes from an optional YAML file and OTAB_ environment
// variables layered over built-in defaults. Grammar files are a separate
// document handled by package grammar.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/fyrsmithlabs/otgrammar/internal/penalty"
)

// Config holds the complete otab configuration.
type Config struct {
	Engine    EngineConfig    `koanf:"engine"`
	Tableau   TableauConfig   `koanf:"tableau"`
	Logging   LoggingConfig   `koanf:"logging"`
	Telemetry TelemetryConfig `koanf:"telemetry"`
	Metrics   MetricsConfig   `koanf:"metrics"`
}

// EngineConfig locates the HFST tools and their scratch space.
type EngineConfig struct {
	BinDir  string `koanf:"bin_dir"`  // directory holding hfst-* binaries; empty means PATH
	WorkDir string `koanf:"work_dir"` // parent of per-engine temp dirs; empty means os.TempDir
}

// TableauConfig holds defaults for building and querying tableaux.
type TableauConfig struct {
	Method  string `koanf:"method"`
	Results int    `koanf:"results"`
	Verbose bool   `koanf:"verbose"`
}

// LoggingConfig selects the log level and encoding.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	OTel   bool   `koanf:"otel"` // also bridge entries to the OpenTelemetry log provider
}

// TelemetryConfig holds OpenTelemetry tracing and metric configuration.
type TelemetryConfig struct {
	Enabled         bool     `koanf:"enabled"`
	Endpoint        string   `koanf:"endpoint"`
	Protocol        string   `koanf:"protocol"`
	Insecure        bool     `koanf:"insecure"`
	ServiceName     string   `koanf:"service_name"`
	SamplingRate    float64  `koanf:"sampling_rate"`
	Metrics         bool     `koanf:"metrics"`
	MetricsInterval Duration `koanf:"metrics_interval"`
	ShutdownTimeout Duration `koanf:"shutdown_timeout"`
}

// MetricsConfig holds Prometheus export settings.
type MetricsConfig struct {
	// Textfile, when set, receives the metric registry in text format on exit.
	Textfile string `koanf:"textfile"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

func applyDefaults(cfg *Config) {
	if cfg.Tableau.Method == "" {
		cfg.Tableau.Method = string(penalty.Matching)
	}
	if cfg.Tableau.Results == 0 {
		cfg.Tableau.Results = 10
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "console"
	}

	if cfg.Telemetry.Endpoint == "" {
		cfg.Telemetry.Endpoint = "localhost:4317"
	}
	if cfg.Telemetry.Protocol == "" {
		cfg.Telemetry.Protocol = "grpc"
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = "otab"
	}
	if cfg.Telemetry.SamplingRate == 0 {
		cfg.Telemetry.SamplingRate = 1.0
	}
	if cfg.Telemetry.MetricsInterval == 0 {
		cfg.Telemetry.MetricsInterval = Duration(15 * time.Second)
	}
	if cfg.Telemetry.ShutdownTimeout == 0 {
		cfg.Telemetry.ShutdownTimeout = Duration(5 * time.Second)
	}
}

// Validate validates the configuration.
//
// Returns an error if:
//   - the tableau method is neither matching nor counting
//   - the default result count is not positive
//   - the log level or format is unknown
//   - telemetry is enabled with a bad protocol, endpoint or sampling rate
func (c *Config) Validate() error {
	var errs []error

	if _, err := penalty.ParseMethod(c.Tableau.Method); err != nil {
		errs = append(errs, fmt.Errorf("tableau.method: %w", err))
	}
	if c.Tableau.Results <= 0 {
		errs = append(errs, fmt.Errorf("tableau.results must be positive, got %d", c.Tableau.Results))
	}

	switch c.Logging.Level {
	case "trace", "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("logging.level: unknown level %q", c.Logging.Level))
	}
	if c.Logging.Format != "json" && c.Logging.Format != "console" {
		errs = append(errs, fmt.Errorf("logging.format must be json or console, got %q", c.Logging.Format))
	}

	if c.Telemetry.Enabled {
		if c.Telemetry.Protocol != "grpc" && c.Telemetry.Protocol != "http/protobuf" {
			errs = append(errs, fmt.Errorf("telemetry.protocol must be grpc or http/protobuf, got %q", c.Telemetry.Protocol))
		}
		if c.Telemetry.Endpoint == "" {
			errs = append(errs, errors.New("telemetry.endpoint required when telemetry is enabled"))
		} else if _, err := url.Parse("//" + c.Telemetry.Endpoint); err != nil {
			errs = append(errs, fmt.Errorf("telemetry.endpoint: %w", err))
		}
		if c.Telemetry.ServiceName == "" {
			errs = append(errs, errors.New("telemetry.service_name required when telemetry is enabled"))
		}
		if c.Telemetry.SamplingRate < 0 || c.Telemetry.SamplingRate > 1 {
			errs = append(errs, fmt.Errorf("telemetry.sampling_rate must be within [0, 1], got %v", c.Telemetry.SamplingRate))
		}
		if c.Telemetry.Metrics && c.Telemetry.MetricsInterval <= 0 {
			errs = append(errs, errors.New("telemetry.metrics_interval must be positive"))
		}
	}

	return errors.Join(errs...)
}
