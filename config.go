package egsm

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is a serialisable representation of the worker configuration. It
// can be populated from YAML or JSON; the zero value inherits package
// defaults on every nested field.
type Config struct {
	Capacity int           `json:"capacity" yaml:"capacity"`
	Queue    QueueConfig   `json:"queue" yaml:"queue"`
	Tracing  TracingConfig `json:"tracing" yaml:"tracing"`
}

// QueueConfig configures the notification queues.
type QueueConfig struct {
	Buffer     int           `json:"buffer" yaml:"buffer"`
	MaxRetries int           `json:"maxRetries" yaml:"maxRetries"`
	RetryDelay time.Duration `json:"retryDelay" yaml:"retryDelay"`
}

// TracingConfig configures the OpenTelemetry integration.
type TracingConfig struct {
	Enabled        bool   `json:"enabled" yaml:"enabled"`
	ServiceName    string `json:"serviceName" yaml:"serviceName"`
	ServiceVersion string `json:"serviceVersion" yaml:"serviceVersion"`
	OutputFile     string `json:"outputFile" yaml:"outputFile"`
}

// DefaultConfig returns a Config carrying the package defaults.
func DefaultConfig() *Config {
	return &Config{
		Capacity: 100,
		Queue: QueueConfig{
			Buffer:     256,
			MaxRetries: 3,
			RetryDelay: 100 * time.Millisecond,
		},
		Tracing: TracingConfig{
			ServiceName:    "egsm-worker",
			ServiceVersion: "dev",
		},
	}
}

// ParseConfig decodes a YAML configuration document over the defaults.
func ParseConfig(data []byte) (*Config, error) {
	ret := DefaultConfig()
	if err := yaml.Unmarshal(data, ret); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := ret.Validate(); err != nil {
		return nil, err
	}
	return ret, nil
}

// Validate returns an error describing invalid settings, or nil.
func (c *Config) Validate() error {
	if c == nil {
		return nil
	}
	if c.Capacity <= 0 {
		return fmt.Errorf("capacity must be > 0")
	}
	if c.Queue.Buffer <= 0 {
		return fmt.Errorf("queue.buffer must be > 0")
	}
	if c.Queue.MaxRetries < 0 {
		return fmt.Errorf("queue.maxRetries must be >= 0")
	}
	return nil
}
