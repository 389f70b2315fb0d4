package gcp

import (
	"context"

	"github.com/cloudcarto/surveyor/scanner"
	"github.com/cloudcarto/surveyor/types"
)

// IAMScanner discovers service accounts and custom roles. Identity is
// a global service and is scanned once per session.
type IAMScanner struct {
	scanner.Base
	client IAMAPI
}

// NewIAMScanner creates the identity scanner.
func NewIAMScanner(client IAMAPI) *IAMScanner {
	return &IAMScanner{
		Base: scanner.Base{
			Service: "IAM",
			Global:  true,
			Types: []string{
				"google_service_account",
				"google_project_iam_custom_role",
			},
		},
		client: client,
	}
}

// Scan enumerates identity resources for the project.
func (s *IAMScanner) Scan(ctx context.Context, sc scanner.ScanContext) (*scanner.ScanResult, error) {
	return s.FanOut(ctx, types.GlobalRegion, []scanner.SubFetch{
		{
			Operation: "listServiceAccounts",
			Fetch: func(ctx context.Context) ([]types.DiscoveredResource, int, error) {
				accounts, err := s.client.ListServiceAccounts(ctx, sc.ProjectID)
				if err != nil {
					return nil, 1, err
				}
				resources := make([]types.DiscoveredResource, 0, len(accounts))
				for _, account := range accounts {
					status := "ACTIVE"
					if account.Disabled {
						status = "DISABLED"
					}
					resources = append(resources, types.DiscoveredResource{
						ID:           account.UniqueID,
						SelfLink:     account.SelfLink,
						Type:         "google_service_account",
						ProviderType: "iam#serviceAccount",
						Service:      s.Service,
						Region:       types.GlobalRegion,
						Name:         account.Email,
						Status:       status,
						Properties: map[string]any{
							"email":        account.Email,
							"display_name": account.DisplayName,
						},
					})
				}
				return resources, 1, nil
			},
		},
		{
			Operation: "listRoles",
			Fetch: func(ctx context.Context) ([]types.DiscoveredResource, int, error) {
				roles, err := s.client.ListRoles(ctx, sc.ProjectID)
				if err != nil {
					return nil, 1, err
				}
				resources := make([]types.DiscoveredResource, 0, len(roles))
				for _, role := range roles {
					resources = append(resources, types.DiscoveredResource{
						ID:           role.Name,
						Type:         "google_project_iam_custom_role",
						ProviderType: "iam#role",
						Service:      s.Service,
						Region:       types.GlobalRegion,
						Name:         role.Title,
						Status:       role.Stage,
						Properties: map[string]any{
							"description": role.Description,
						},
					})
				}
				return resources, 1, nil
			},
		},
	}), nil
}
