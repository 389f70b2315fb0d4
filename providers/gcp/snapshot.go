package gcp

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
)

// Snapshot is an offline export of a project's resources, e.g. from an
// asset-inventory dump. It implements every client interface, which
// lets the full discovery engine run without touching the provider.
type Snapshot struct {
	ProjectID       string                `json:"project_id"`
	Instances       map[string][]Instance `json:"instances,omitempty"`
	Disks           map[string][]Disk     `json:"disks,omitempty"`
	Addresses       map[string][]Address  `json:"addresses,omitempty"`
	Buckets         []Bucket              `json:"buckets,omitempty"`
	Clusters        map[string][]Cluster  `json:"clusters,omitempty"`
	ServiceAccounts []ServiceAccount      `json:"service_accounts,omitempty"`
	Roles           []Role                `json:"roles,omitempty"`
	Networks        []Network             `json:"networks,omitempty"`
	Subnetworks     []Subnetwork          `json:"subnetworks,omitempty"`
	Firewalls       []Firewall            `json:"firewalls,omitempty"`
}

// LoadSnapshot reads a snapshot export from disk.
func LoadSnapshot(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- path is intentional user input
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}

	var snapshot Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("failed to parse snapshot: %w", err)
	}
	return &snapshot, nil
}

// Clients exposes the snapshot as one client per service.
func (s *Snapshot) Clients() Clients {
	return Clients{
		Compute:   s,
		Storage:   s,
		Container: s,
		IAM:       s,
		Network:   s,
	}
}

// Regions returns every region the snapshot has regional data for.
func (s *Snapshot) Regions() []string {
	seen := make(map[string]bool)
	for region := range s.Instances {
		seen[region] = true
	}
	for region := range s.Disks {
		seen[region] = true
	}
	for region := range s.Addresses {
		seen[region] = true
	}
	for region := range s.Clusters {
		seen[region] = true
	}
	regions := make([]string, 0, len(seen))
	for region := range seen {
		regions = append(regions, region)
	}
	sort.Strings(regions)
	return regions
}

func (s *Snapshot) ListInstances(_ context.Context, _, region string) ([]Instance, error) {
	return s.Instances[region], nil
}

func (s *Snapshot) ListDisks(_ context.Context, _, region string) ([]Disk, error) {
	return s.Disks[region], nil
}

func (s *Snapshot) ListAddresses(_ context.Context, _, region string) ([]Address, error) {
	return s.Addresses[region], nil
}

func (s *Snapshot) ListBuckets(_ context.Context, _ string) ([]Bucket, error) {
	return s.Buckets, nil
}

func (s *Snapshot) ListClusters(_ context.Context, _, region string) ([]Cluster, error) {
	return s.Clusters[region], nil
}

func (s *Snapshot) ListServiceAccounts(_ context.Context, _ string) ([]ServiceAccount, error) {
	return s.ServiceAccounts, nil
}

func (s *Snapshot) ListRoles(_ context.Context, _ string) ([]Role, error) {
	return s.Roles, nil
}

func (s *Snapshot) ListNetworks(_ context.Context, _ string) ([]Network, error) {
	return s.Networks, nil
}

func (s *Snapshot) ListSubnetworks(_ context.Context, _ string) ([]Subnetwork, error) {
	return s.Subnetworks, nil
}

func (s *Snapshot) ListFirewalls(_ context.Context, _ string) ([]Firewall, error) {
	return s.Firewalls, nil
}
