package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/fluxorio/handlebars/pkg/core"
)

// Config is the configuration of a handlebars process.
type Config struct {
	Dispatch DispatchConfig `yaml:"dispatch" json:"dispatch"`
	Logging  LoggingConfig  `yaml:"logging" json:"logging"`
	Metrics  MetricsConfig  `yaml:"metrics" json:"metrics"`
	Tracing  TracingConfig  `yaml:"tracing" json:"tracing"`
}

// DispatchConfig controls how queued events are drained.
type DispatchConfig struct {
	// RespondLimit caps the events drained per tick; 0 drains the queue.
	RespondLimit int `yaml:"respond_limit" json:"respond_limit"`
	// IntervalMS is the reactor tick in milliseconds.
	IntervalMS int `yaml:"interval_ms" json:"interval_ms"`
	// MailboxSize bounds the reactor's pending closures.
	MailboxSize int `yaml:"mailbox_size" json:"mailbox_size"`
}

// Interval returns IntervalMS as a duration.
func (c DispatchConfig) Interval() time.Duration {
	return time.Duration(c.IntervalMS) * time.Millisecond
}

type LoggingConfig struct {
	Level      string `yaml:"level" json:"level"`
	JSON       bool   `yaml:"json" json:"json"`
	File       string `yaml:"file" json:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb" json:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups" json:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days" json:"max_age_days"`
	Compress   bool   `yaml:"compress" json:"compress"`
}

// LoggerConfig converts the section to a core.LoggerConfig.
func (c LoggingConfig) LoggerConfig() core.LoggerConfig {
	return core.LoggerConfig{
		JSONOutput: c.JSON,
		Level:      c.Level,
		File:       c.File,
		MaxSizeMB:  c.MaxSizeMB,
		MaxBackups: c.MaxBackups,
		MaxAgeDays: c.MaxAgeDays,
		Compress:   c.Compress,
	}
}

type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled" json:"enabled"`
	Address   string `yaml:"address" json:"address"`
	Path      string `yaml:"path" json:"path"`
	Namespace string `yaml:"namespace" json:"namespace"`
}

type TracingConfig struct {
	// Exporter is one of jaeger, zipkin, stdout, none.
	Exporter       string  `yaml:"exporter" json:"exporter"`
	Endpoint       string  `yaml:"endpoint" json:"endpoint"`
	ServiceName    string  `yaml:"service_name" json:"service_name"`
	ServiceVersion string  `yaml:"service_version" json:"service_version"`
	Environment    string  `yaml:"environment" json:"environment"`
	SampleRate     float64 `yaml:"sample_rate" json:"sample_rate"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Dispatch: DispatchConfig{
			RespondLimit: 0,
			IntervalMS:   50,
			MailboxSize:  256,
		},
		Logging: LoggingConfig{
			Level:      "INFO",
			MaxSizeMB:  50,
			MaxBackups: 10,
			MaxAgeDays: 14,
		},
		Metrics: MetricsConfig{
			Address:   ":9090",
			Path:      "/metrics",
			Namespace: "handlebars",
		},
		Tracing: TracingConfig{
			Exporter:       "none",
			ServiceName:    "handlebars",
			ServiceVersion: "1.0.0",
			Environment:    "development",
			SampleRate:     1.0,
		},
	}
}

// Load reads path on top of Default. The format follows the extension:
// .yaml/.yml or .json.
func Load(path string) (Config, error) {
	cfg := Default()
	var err error
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = LoadYAML(path, &cfg)
	case ".json":
		err = LoadJSON(path, &cfg)
	default:
		return cfg, fmt.Errorf("unsupported config format %q", filepath.Ext(path))
	}
	if err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks every section and reports all problems at once.
func (c Config) Validate() error {
	var errs []error
	if err := core.ValidateLimit(c.Dispatch.RespondLimit); err != nil {
		errs = append(errs, err)
	}
	if c.Dispatch.IntervalMS <= 0 {
		errs = append(errs, errors.New("dispatch.interval_ms must be positive"))
	}
	if c.Dispatch.MailboxSize <= 0 {
		errs = append(errs, errors.New("dispatch.mailbox_size must be positive"))
	}
	if err := core.ValidateLevel(c.Logging.Level); err != nil {
		errs = append(errs, err)
	}
	if c.Metrics.Enabled {
		if c.Metrics.Address == "" {
			errs = append(errs, errors.New("metrics.address cannot be empty"))
		}
		if !strings.HasPrefix(c.Metrics.Path, "/") {
			errs = append(errs, errors.New("metrics.path must start with /"))
		}
	}
	switch c.Tracing.Exporter {
	case "jaeger", "zipkin", "stdout", "none":
	default:
		errs = append(errs, fmt.Errorf("unsupported tracing exporter: %s", c.Tracing.Exporter))
	}
	if c.Tracing.SampleRate < 0 || c.Tracing.SampleRate > 1 {
		errs = append(errs, errors.New("tracing.sample_rate must be between 0.0 and 1.0"))
	}
	return errors.Join(errs...)
}
