package gcp

import (
	"context"

	"github.com/cloudcarto/surveyor/scanner"
	"github.com/cloudcarto/surveyor/types"
)

// GKEScanner discovers managed Kubernetes clusters and their node
// pools. Node pools become resources of their own, linked back to the
// cluster.
type GKEScanner struct {
	scanner.Base
	client ContainerAPI
}

// NewGKEScanner creates the cluster scanner.
func NewGKEScanner(client ContainerAPI) *GKEScanner {
	return &GKEScanner{
		Base: scanner.Base{
			Service: "GKE",
			Types: []string{
				"google_container_cluster",
				"google_container_node_pool",
			},
		},
		client: client,
	}
}

// Scan enumerates clusters for one project and region.
func (s *GKEScanner) Scan(ctx context.Context, sc scanner.ScanContext) (*scanner.ScanResult, error) {
	result := &scanner.ScanResult{APICalls: 1}

	clusters, err := s.client.ListClusters(ctx, sc.ProjectID, sc.Region)
	if err != nil {
		result.Errors = append(result.Errors, s.Errorf(sc.Region, "listClusters", err))
		return result, nil
	}

	for _, cluster := range clusters {
		result.Resources = append(result.Resources, s.clusterResource(sc, cluster))
		for _, pool := range cluster.NodePools {
			result.Resources = append(result.Resources, s.nodePoolResource(sc, cluster, pool))
		}
	}
	return result, nil
}

func (s *GKEScanner) clusterResource(sc scanner.ScanContext, cluster Cluster) types.DiscoveredResource {
	resource := types.DiscoveredResource{
		ID:           cluster.ID,
		SelfLink:     cluster.SelfLink,
		Type:         "google_container_cluster",
		ProviderType: "container#cluster",
		Service:      s.Service,
		Region:       sc.Region,
		Name:         cluster.Name,
		Labels:       cluster.Labels,
		Status:       cluster.Status,
		CreatedAt:    cluster.CreatedAt,
		Properties: map[string]any{
			"location":        cluster.Location,
			"master_version":  cluster.MasterVersion,
			"node_pool_count": len(cluster.NodePools),
		},
	}
	if cluster.Network != "" {
		resource.Relationships = append(resource.Relationships, types.ResourceRelationship{
			Kind:           types.RelationshipReferences,
			TargetSelfLink: cluster.Network,
			TargetType:     "google_compute_network",
		})
	}
	for _, pool := range cluster.NodePools {
		resource.Relationships = append(resource.Relationships, types.ResourceRelationship{
			Kind:           types.RelationshipContains,
			TargetSelfLink: pool.SelfLink,
			TargetType:     "google_container_node_pool",
		})
	}
	return resource
}

func (s *GKEScanner) nodePoolResource(sc scanner.ScanContext, cluster Cluster, pool NodePool) types.DiscoveredResource {
	return types.DiscoveredResource{
		ID:           cluster.Name + "/" + pool.Name,
		SelfLink:     pool.SelfLink,
		Type:         "google_container_node_pool",
		ProviderType: "container#nodePool",
		Service:      s.Service,
		Region:       sc.Region,
		Name:         pool.Name,
		Status:       pool.Status,
		Properties: map[string]any{
			"node_count":   pool.NodeCount,
			"machine_type": pool.MachineType,
			"version":      pool.Version,
		},
		Relationships: []types.ResourceRelationship{
			{
				Kind:           types.RelationshipDependsOn,
				TargetSelfLink: cluster.SelfLink,
				TargetType:     "google_container_cluster",
			},
		},
	}
}
