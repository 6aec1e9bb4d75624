// Package telemetry wires OpenTelemetry tracing and metrics for the reconciler.
package telemetry

import (
	"fmt"
)

const (
	// DefaultServiceName identifies the reconciler in exported telemetry.
	DefaultServiceName = "notice-reconciler"
	// DefaultEndpoint is the OTLP HTTP collector address.
	DefaultEndpoint = "localhost:4318"
	// DefaultSampling is the trace sampling ratio used when none is configured.
	DefaultSampling = 0.1
)

// Config is the telemetry section of the configuration file.
type Config struct {
	Enabled        bool    `yaml:"enabled"`
	ServiceName    string  `yaml:"serviceName,omitempty"`
	ServiceVersion string  `yaml:"serviceVersion,omitempty"`
	Endpoint       string  `yaml:"endpoint,omitempty"`
	Insecure       bool    `yaml:"insecure,omitempty"`
	Tracing        bool    `yaml:"tracing"`
	Metrics        bool    `yaml:"metrics"`
	Sampling       float64 `yaml:"sampling,omitempty"`
}

func (c *Config) serviceName() string {
	if c.ServiceName == "" {
		return DefaultServiceName
	}
	return c.ServiceName
}

func (c *Config) serviceVersion() string {
	if c.ServiceVersion == "" {
		return "unknown"
	}
	return c.ServiceVersion
}

func (c *Config) endpoint() string {
	if c.Endpoint == "" {
		return DefaultEndpoint
	}
	return c.Endpoint
}

// sampling treats 0 as unset.
func (c *Config) sampling() float64 {
	if c.Sampling == 0 {
		return DefaultSampling
	}
	return c.Sampling
}

// Validate checks the configuration. A nil or disabled config is valid.
func (c *Config) Validate() error {
	if c == nil || !c.Enabled {
		return nil
	}
	if c.Sampling < 0 || c.Sampling > 1 {
		return fmt.Errorf("sampling must be between 0.0 and 1.0, got %f", c.Sampling)
	}
	return nil
}
