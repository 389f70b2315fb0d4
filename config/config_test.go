package config

import (
	"os"
	"testing"
	"time"
)

func TestLoadConfig(t *testing.T) {
	// Create a temp config file
	content := `
version: v1
provider: gcp
project_id: demo-project

regions:
  include:
    - us-central1
    - europe-west1
  exclude:
    - europe-west1

services:
  include:
    - Compute
    - Storage

storage:
  dir: /var/lib/surveyor
  retention: 168h

sessions:
  max_active: 4
  retention: 24h
  scan_timeout: 2m

telemetry:
  environment: staging
  metrics_addr: :9090
`
	tmpfile, err := os.CreateTemp("", "surveyor-config-*.yaml")
	if err != nil {
		t.Fatal(err)
	}
	defer func() {
		_ = os.Remove(tmpfile.Name())
	}()

	if _, err := tmpfile.Write([]byte(content)); err != nil {
		t.Fatal(err)
	}
	if err := tmpfile.Close(); err != nil {
		t.Fatal(err)
	}

	// Load the config
	cfg, err := LoadConfig(tmpfile.Name())
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	// Verify config
	if cfg.Version != "v1" {
		t.Errorf("Version = %v, want v1", cfg.Version)
	}
	if cfg.Provider != "gcp" {
		t.Errorf("Provider = %v, want gcp", cfg.Provider)
	}
	if cfg.ProjectID != "demo-project" {
		t.Errorf("ProjectID = %v, want demo-project", cfg.ProjectID)
	}
	if len(cfg.Regions.Include) != 2 {
		t.Errorf("Regions.Include count = %v, want 2", len(cfg.Regions.Include))
	}
	if cfg.Sessions.MaxActive != 4 {
		t.Errorf("Sessions.MaxActive = %v, want 4", cfg.Sessions.MaxActive)
	}
	if cfg.Sessions.ScanTimeout != 2*time.Minute {
		t.Errorf("Sessions.ScanTimeout = %v, want 2m", cfg.Sessions.ScanTimeout)
	}
	if cfg.Storage.Retention != 168*time.Hour {
		t.Errorf("Storage.Retention = %v, want 168h", cfg.Storage.Retention)
	}
	if cfg.Telemetry.MetricsAddr != ":9090" {
		t.Errorf("Telemetry.MetricsAddr = %v, want :9090", cfg.Telemetry.MetricsAddr)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{
			name: "valid config",
			config: Config{
				Version:   "v1",
				Provider:  "gcp",
				ProjectID: "demo",
				Regions:   RegionSelection{Include: []string{"us-central1"}},
			},
			wantErr: false,
		},
		{
			name: "all regions without list",
			config: Config{
				Version:   "v1",
				Provider:  "gcp",
				ProjectID: "demo",
				Regions:   RegionSelection{All: true},
			},
			wantErr: false,
		},
		{
			name: "missing version",
			config: Config{
				Provider:  "gcp",
				ProjectID: "demo",
				Regions:   RegionSelection{All: true},
			},
			wantErr: true,
		},
		{
			name: "missing provider",
			config: Config{
				Version:   "v1",
				ProjectID: "demo",
				Regions:   RegionSelection{All: true},
			},
			wantErr: true,
		},
		{
			name: "missing project",
			config: Config{
				Version:  "v1",
				Provider: "gcp",
				Regions:  RegionSelection{All: true},
			},
			wantErr: true,
		},
		{
			name: "no regions selected",
			config: Config{
				Version:   "v1",
				Provider:  "gcp",
				ProjectID: "demo",
			},
			wantErr: true,
		},
		{
			name: "negative session limit",
			config: Config{
				Version:   "v1",
				Provider:  "gcp",
				ProjectID: "demo",
				Regions:   RegionSelection{All: true},
				Sessions:  Sessions{MaxActive: -1},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfig_DiscoveryConfig(t *testing.T) {
	cfg := Config{
		Version:   "v1",
		Provider:  "gcp",
		ProjectID: "demo",
		Regions: RegionSelection{
			Include: []string{"us-central1"},
			Exclude: []string{"us-east1"},
		},
		Services: ServiceFilter{
			Include: []string{"Compute"},
			Exclude: []string{"IAM"},
		},
	}

	dc := cfg.DiscoveryConfig()
	if dc.ProjectID != "demo" {
		t.Errorf("ProjectID = %v, want demo", dc.ProjectID)
	}
	if len(dc.Regions.Regions) != 1 || dc.Regions.Regions[0] != "us-central1" {
		t.Errorf("Regions = %v, want [us-central1]", dc.Regions.Regions)
	}
	if len(dc.Regions.ExcludeRegions) != 1 {
		t.Errorf("ExcludeRegions = %v, want one entry", dc.Regions.ExcludeRegions)
	}
	if len(dc.Services) != 1 || dc.Services[0] != "Compute" {
		t.Errorf("Services = %v, want [Compute]", dc.Services)
	}
	if len(dc.ExcludeServices) != 1 || dc.ExcludeServices[0] != "IAM" {
		t.Errorf("ExcludeServices = %v, want [IAM]", dc.ExcludeServices)
	}
}
