package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/cloudcarto/surveyor/types"
)

// Config represents the main configuration
type Config struct {
	Version   string          `yaml:"version"`
	Provider  string          `yaml:"provider"`
	ProjectID string          `yaml:"project_id"`
	Regions   RegionSelection `yaml:"regions,omitempty"`
	Services  ServiceFilter   `yaml:"services,omitempty"`
	Storage   Storage         `yaml:"storage,omitempty"`
	Sessions  Sessions        `yaml:"sessions,omitempty"`
	Telemetry Telemetry       `yaml:"telemetry,omitempty"`
}

// RegionSelection mirrors the discovery region selection.
type RegionSelection struct {
	All     bool     `yaml:"all"`
	Include []string `yaml:"include,omitempty"`
	Exclude []string `yaml:"exclude,omitempty"`
}

// ServiceFilter narrows which service scanners run.
type ServiceFilter struct {
	Include []string `yaml:"include,omitempty"`
	Exclude []string `yaml:"exclude,omitempty"`
}

// Storage configures the local inventory store.
type Storage struct {
	Dir       string        `yaml:"dir"`
	Retention time.Duration `yaml:"retention"`
}

// Sessions configures in-memory session handling.
type Sessions struct {
	MaxActive   int           `yaml:"max_active"`
	Retention   time.Duration `yaml:"retention"`
	ScanTimeout time.Duration `yaml:"scan_timeout"`
}

// Telemetry configures tracing and metrics export.
type Telemetry struct {
	OTELEndpoint string `yaml:"otel_endpoint,omitempty"`
	Insecure     bool   `yaml:"insecure"`
	Environment  string `yaml:"environment,omitempty"`
	MetricsAddr  string `yaml:"metrics_addr,omitempty"`
}

// LoadConfig loads configuration from file
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- path is intentional user input
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// Validate ensures config has required fields
func (c *Config) Validate() error {
	if c.Version == "" {
		return fmt.Errorf("version is required")
	}
	if c.Provider == "" {
		return fmt.Errorf("provider is required")
	}
	if c.ProjectID == "" {
		return fmt.Errorf("project_id is required")
	}
	if !c.Regions.All && len(c.Regions.Include) == 0 {
		return fmt.Errorf("regions: set all or list at least one region")
	}
	if c.Sessions.MaxActive < 0 {
		return fmt.Errorf("sessions.max_active must not be negative")
	}
	return nil
}

// DiscoveryConfig converts the file config into a discovery request.
func (c *Config) DiscoveryConfig() types.DiscoveryConfig {
	return types.DiscoveryConfig{
		ProjectID: c.ProjectID,
		Regions: types.RegionSelection{
			All:            c.Regions.All,
			Regions:        c.Regions.Include,
			ExcludeRegions: c.Regions.Exclude,
		},
		Services:        c.Services.Include,
		ExcludeServices: c.Services.Exclude,
	}
}
