package gcp

import (
	"context"

	"github.com/cloudcarto/surveyor/scanner"
	"github.com/cloudcarto/surveyor/types"
)

// StorageScanner discovers object storage buckets. Bucket listing is
// project-wide, so the scanner is global and runs once per session.
type StorageScanner struct {
	scanner.Base
	client StorageAPI
}

// NewStorageScanner creates the storage scanner.
func NewStorageScanner(client StorageAPI) *StorageScanner {
	return &StorageScanner{
		Base: scanner.Base{
			Service: "Storage",
			Global:  true,
			Types:   []string{"google_storage_bucket"},
		},
		client: client,
	}
}

// Scan enumerates all buckets of the project.
func (s *StorageScanner) Scan(ctx context.Context, sc scanner.ScanContext) (*scanner.ScanResult, error) {
	result := &scanner.ScanResult{APICalls: 1}

	buckets, err := s.client.ListBuckets(ctx, sc.ProjectID)
	if err != nil {
		result.Errors = append(result.Errors, s.Errorf(types.GlobalRegion, "listBuckets", err))
		return result, nil
	}

	for _, bucket := range buckets {
		result.Resources = append(result.Resources, types.DiscoveredResource{
			ID:           bucket.ID,
			SelfLink:     bucket.SelfLink,
			Type:         "google_storage_bucket",
			ProviderType: "storage#bucket",
			Service:      s.Service,
			Region:       types.GlobalRegion,
			Name:         bucket.Name,
			Labels:       bucket.Labels,
			CreatedAt:    bucket.CreatedAt,
			Properties: map[string]any{
				"location":      bucket.Location,
				"storage_class": bucket.StorageClass,
				"versioning":    bucket.Versioning,
			},
		})
	}
	return result, nil
}
