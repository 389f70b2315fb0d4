package gcp

import (
	"context"

	"github.com/cloudcarto/surveyor/scanner"
	"github.com/cloudcarto/surveyor/types"
)

// ComputeScanner discovers instances, disks and reserved addresses.
// The three sub-kinds are fetched concurrently; a failure in one does
// not block the others.
type ComputeScanner struct {
	scanner.Base
	client ComputeAPI
}

// NewComputeScanner creates the compute scanner.
func NewComputeScanner(client ComputeAPI) *ComputeScanner {
	return &ComputeScanner{
		Base: scanner.Base{
			Service: "Compute",
			Types: []string{
				"google_compute_instance",
				"google_compute_disk",
				"google_compute_address",
			},
		},
		client: client,
	}
}

// Scan enumerates compute resources for one project and region.
func (s *ComputeScanner) Scan(ctx context.Context, sc scanner.ScanContext) (*scanner.ScanResult, error) {
	return s.FanOut(ctx, sc.Region, []scanner.SubFetch{
		{
			Operation: "listInstances",
			Fetch: func(ctx context.Context) ([]types.DiscoveredResource, int, error) {
				instances, err := s.client.ListInstances(ctx, sc.ProjectID, sc.Region)
				if err != nil {
					return nil, 1, err
				}
				resources := make([]types.DiscoveredResource, 0, len(instances))
				for _, inst := range instances {
					resources = append(resources, s.instanceResource(sc, inst))
				}
				return resources, 1, nil
			},
		},
		{
			Operation: "listDisks",
			Fetch: func(ctx context.Context) ([]types.DiscoveredResource, int, error) {
				disks, err := s.client.ListDisks(ctx, sc.ProjectID, sc.Region)
				if err != nil {
					return nil, 1, err
				}
				resources := make([]types.DiscoveredResource, 0, len(disks))
				for _, disk := range disks {
					resources = append(resources, s.diskResource(sc, disk))
				}
				return resources, 1, nil
			},
		},
		{
			Operation: "listAddresses",
			Fetch: func(ctx context.Context) ([]types.DiscoveredResource, int, error) {
				addresses, err := s.client.ListAddresses(ctx, sc.ProjectID, sc.Region)
				if err != nil {
					return nil, 1, err
				}
				resources := make([]types.DiscoveredResource, 0, len(addresses))
				for _, addr := range addresses {
					resources = append(resources, s.addressResource(sc, addr))
				}
				return resources, 1, nil
			},
		},
	}), nil
}

func (s *ComputeScanner) instanceResource(sc scanner.ScanContext, inst Instance) types.DiscoveredResource {
	resource := types.DiscoveredResource{
		ID:           inst.ID,
		SelfLink:     inst.SelfLink,
		Type:         "google_compute_instance",
		ProviderType: "compute#instance",
		Service:      s.Service,
		Region:       sc.Region,
		Name:         inst.Name,
		Labels:       inst.Labels,
		Status:       inst.Status,
		CreatedAt:    inst.CreatedAt,
		Properties: map[string]any{
			"zone":         inst.Zone,
			"machine_type": inst.MachineType,
		},
	}
	if inst.Network != "" {
		resource.Relationships = append(resource.Relationships, types.ResourceRelationship{
			Kind:           types.RelationshipReferences,
			TargetSelfLink: inst.Network,
			TargetType:     "google_compute_network",
		})
	}
	for _, disk := range inst.Disks {
		resource.Relationships = append(resource.Relationships, types.ResourceRelationship{
			Kind:           types.RelationshipAttachedTo,
			TargetSelfLink: disk,
			TargetType:     "google_compute_disk",
		})
	}
	return resource
}

func (s *ComputeScanner) diskResource(sc scanner.ScanContext, disk Disk) types.DiscoveredResource {
	return types.DiscoveredResource{
		ID:           disk.ID,
		SelfLink:     disk.SelfLink,
		Type:         "google_compute_disk",
		ProviderType: "compute#disk",
		Service:      s.Service,
		Region:       sc.Region,
		Name:         disk.Name,
		Labels:       disk.Labels,
		Status:       disk.Status,
		CreatedAt:    disk.CreatedAt,
		Properties: map[string]any{
			"zone":    disk.Zone,
			"size_gb": disk.SizeGB,
			"type":    disk.DiskType,
		},
	}
}

func (s *ComputeScanner) addressResource(sc scanner.ScanContext, addr Address) types.DiscoveredResource {
	resource := types.DiscoveredResource{
		ID:           addr.ID,
		SelfLink:     addr.SelfLink,
		Type:         "google_compute_address",
		ProviderType: "compute#address",
		Service:      s.Service,
		Region:       sc.Region,
		Name:         addr.Name,
		Status:       addr.Status,
		Properties: map[string]any{
			"address": addr.Address,
			"purpose": addr.Purpose,
		},
	}
	if addr.Network != "" {
		resource.Relationships = append(resource.Relationships, types.ResourceRelationship{
			Kind:           types.RelationshipReferences,
			TargetSelfLink: addr.Network,
			TargetType:     "google_compute_network",
		})
	}
	return resource
}
