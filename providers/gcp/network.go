package gcp

import (
	"context"

	"github.com/cloudcarto/surveyor/scanner"
	"github.com/cloudcarto/surveyor/types"
)

// NetworkScanner discovers VPC networks, subnetworks and firewall
// rules. Networks and firewalls are global objects; subnetworks carry
// their own region and are reported under it.
type NetworkScanner struct {
	scanner.Base
	client NetworkAPI
}

// NewNetworkScanner creates the VPC scanner.
func NewNetworkScanner(client NetworkAPI) *NetworkScanner {
	return &NetworkScanner{
		Base: scanner.Base{
			Service: "Network",
			Global:  true,
			Types: []string{
				"google_compute_network",
				"google_compute_subnetwork",
				"google_compute_firewall",
			},
		},
		client: client,
	}
}

// Scan enumerates VPC resources for the project.
func (s *NetworkScanner) Scan(ctx context.Context, sc scanner.ScanContext) (*scanner.ScanResult, error) {
	return s.FanOut(ctx, types.GlobalRegion, []scanner.SubFetch{
		{
			Operation: "listNetworks",
			Fetch: func(ctx context.Context) ([]types.DiscoveredResource, int, error) {
				networks, err := s.client.ListNetworks(ctx, sc.ProjectID)
				if err != nil {
					return nil, 1, err
				}
				resources := make([]types.DiscoveredResource, 0, len(networks))
				for _, network := range networks {
					resources = append(resources, types.DiscoveredResource{
						ID:           network.ID,
						SelfLink:     network.SelfLink,
						Type:         "google_compute_network",
						ProviderType: "compute#network",
						Service:      s.Service,
						Region:       types.GlobalRegion,
						Name:         network.Name,
						CreatedAt:    network.CreatedAt,
						Properties: map[string]any{
							"auto_create_subnetworks": network.AutoCreateSubnetworks,
							"description":             network.Description,
						},
					})
				}
				return resources, 1, nil
			},
		},
		{
			Operation: "listSubnetworks",
			Fetch: func(ctx context.Context) ([]types.DiscoveredResource, int, error) {
				subnets, err := s.client.ListSubnetworks(ctx, sc.ProjectID)
				if err != nil {
					return nil, 1, err
				}
				resources := make([]types.DiscoveredResource, 0, len(subnets))
				for _, subnet := range subnets {
					resources = append(resources, types.DiscoveredResource{
						ID:           subnet.ID,
						SelfLink:     subnet.SelfLink,
						Type:         "google_compute_subnetwork",
						ProviderType: "compute#subnetwork",
						Service:      s.Service,
						Region:       subnet.Region,
						Name:         subnet.Name,
						Properties: map[string]any{
							"ip_cidr_range": subnet.IPCIDRRange,
						},
						Relationships: []types.ResourceRelationship{
							{
								Kind:           types.RelationshipReferences,
								TargetSelfLink: subnet.Network,
								TargetType:     "google_compute_network",
							},
						},
					})
				}
				return resources, 1, nil
			},
		},
		{
			Operation: "listFirewalls",
			Fetch: func(ctx context.Context) ([]types.DiscoveredResource, int, error) {
				firewalls, err := s.client.ListFirewalls(ctx, sc.ProjectID)
				if err != nil {
					return nil, 1, err
				}
				resources := make([]types.DiscoveredResource, 0, len(firewalls))
				for _, firewall := range firewalls {
					resources = append(resources, types.DiscoveredResource{
						ID:           firewall.ID,
						SelfLink:     firewall.SelfLink,
						Type:         "google_compute_firewall",
						ProviderType: "compute#firewall",
						Service:      s.Service,
						Region:       types.GlobalRegion,
						Name:         firewall.Name,
						Properties: map[string]any{
							"direction": firewall.Direction,
							"priority":  firewall.Priority,
							"allowed":   firewall.Allowed,
							"denied":    firewall.Denied,
						},
						Relationships: []types.ResourceRelationship{
							{
								Kind:           types.RelationshipReferences,
								TargetSelfLink: firewall.Network,
								TargetType:     "google_compute_network",
							},
						},
					})
				}
				return resources, 1, nil
			},
		},
	}), nil
}
