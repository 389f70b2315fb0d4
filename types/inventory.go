package types

import "time"

// Credential identifies the principal a discovery run executed as.
// Acquisition and refresh live outside this module.
type Credential struct {
	ProjectID     string `json:"project_id"`
	PrincipalID   string `json:"principal_id,omitempty"`
	Authenticated bool   `json:"authenticated"`
}

// InventorySummary groups resource counts for quick inspection.
type InventorySummary struct {
	TotalResources int            `json:"total_resources"`
	ByService      map[string]int `json:"by_service"`
	ByRegion       map[string]int `json:"by_region"`
	ByType         map[string]int `json:"by_type"`
}

// ScanMetadata captures how the inventory was produced.
type ScanMetadata struct {
	Duration time.Duration `json:"duration"`
	APICalls int           `json:"api_calls"`
	Errors   []ScanError   `json:"errors,omitempty"`
	Warnings []ScanWarning `json:"warnings,omitempty"`
}

// InfrastructureInventory is the terminal artifact of a completed
// session: the deduplicated resource set plus its provenance.
type InfrastructureInventory struct {
	ID         string               `json:"id"`
	Timestamp  time.Time            `json:"timestamp"`
	ProjectID  string               `json:"project_id"`
	Credential Credential           `json:"credential"`
	Regions    []string             `json:"regions"`
	Summary    InventorySummary     `json:"summary"`
	Resources  []DiscoveredResource `json:"resources"`
	Metadata   ScanMetadata         `json:"metadata"`
}

// BuildSummary recomputes grouped counts from a resource set.
func BuildSummary(resources []DiscoveredResource) InventorySummary {
	summary := InventorySummary{
		TotalResources: len(resources),
		ByService:      make(map[string]int),
		ByRegion:       make(map[string]int),
		ByType:         make(map[string]int),
	}
	for _, r := range resources {
		summary.ByService[r.Service]++
		summary.ByRegion[r.Region]++
		summary.ByType[r.Type]++
	}
	return summary
}
