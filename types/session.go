package types

import "time"

// DiscoveryStatus is the lifecycle state of a discovery session.
type DiscoveryStatus string

const (
	StatusPending    DiscoveryStatus = "pending"
	StatusInProgress DiscoveryStatus = "in_progress"
	StatusCompleted  DiscoveryStatus = "completed"
	StatusFailed     DiscoveryStatus = "failed"
)

// RegionSelection describes which regions a discovery run covers.
// Regions is either the literal "all" or an explicit list.
type RegionSelection struct {
	Regions        []string `json:"regions" yaml:"regions"`
	All            bool     `json:"all,omitempty" yaml:"all,omitempty"`
	ExcludeRegions []string `json:"exclude_regions,omitempty" yaml:"exclude_regions,omitempty"`
}

// DiscoveryConfig is the caller-supplied configuration for one run.
type DiscoveryConfig struct {
	ProjectID       string          `json:"project_id" yaml:"project_id"`
	Regions         RegionSelection `json:"regions" yaml:"regions"`
	Services        []string        `json:"services,omitempty" yaml:"services,omitempty"`
	ExcludeServices []string        `json:"exclude_services,omitempty" yaml:"exclude_services,omitempty"`
}

// DiscoveryProgress tracks a session's run loop. It is owned by the
// engine; callers only ever see copies.
type DiscoveryProgress struct {
	Status          DiscoveryStatus `json:"status"`
	RegionsScanned  int             `json:"regions_scanned"`
	TotalRegions    int             `json:"total_regions"`
	ServicesScanned int             `json:"services_scanned"`
	TotalServices   int             `json:"total_services"`
	ResourcesFound  int             `json:"resources_found"`
	CurrentRegion   string          `json:"current_region,omitempty"`
	CurrentService  string          `json:"current_service,omitempty"`
	Errors          []ScanError     `json:"errors,omitempty"`
	StartedAt       time.Time       `json:"started_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// DiscoverySession is one discovery run's state. Sessions are never
// reused; every run gets a fresh id.
type DiscoverySession struct {
	ID        string                   `json:"id"`
	Config    DiscoveryConfig          `json:"config"`
	Progress  DiscoveryProgress        `json:"progress"`
	Inventory *InfrastructureInventory `json:"inventory,omitempty"`
}

// Clone returns a deep copy safe to hand to callers while the run loop
// keeps mutating the original.
func (s *DiscoverySession) Clone() *DiscoverySession {
	out := *s
	out.Progress.Errors = append([]ScanError(nil), s.Progress.Errors...)
	if s.Inventory != nil {
		inv := *s.Inventory
		inv.Resources = append([]DiscoveredResource(nil), s.Inventory.Resources...)
		out.Inventory = &inv
	}
	return &out
}
