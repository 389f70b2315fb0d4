package discovery

import (
	"context"
	"fmt"
	"sort"

	"github.com/cloudcarto/surveyor/types"
)

// CredentialResult is the outcome of a credential check.
type CredentialResult struct {
	Valid      bool
	Credential types.Credential
	Error      string
}

// CredentialManager validates that the caller holds usable credentials
// for a project. Acquisition and refresh live outside this module.
type CredentialManager interface {
	ValidateCredentials(ctx context.Context, projectID string) (CredentialResult, error)
}

// RegionManager resolves a region selection into a concrete region
// list. Fetching the region catalog from the provider lives outside
// this module.
type RegionManager interface {
	FilterRegions(ctx context.Context, selection types.RegionSelection, projectID string) ([]string, error)
}

// StaticCredentials wraps a pre-acquired credential.
type StaticCredentials struct {
	credential types.Credential
}

// NewStaticCredentials creates a credential manager around a fixed
// credential.
func NewStaticCredentials(credential types.Credential) *StaticCredentials {
	return &StaticCredentials{credential: credential}
}

// ValidateCredentials checks the held credential against the requested
// project.
func (c *StaticCredentials) ValidateCredentials(_ context.Context, projectID string) (CredentialResult, error) {
	if !c.credential.Authenticated {
		return CredentialResult{Error: "credential is not authenticated"}, nil
	}
	if projectID != "" && c.credential.ProjectID != "" && projectID != c.credential.ProjectID {
		return CredentialResult{
			Error: fmt.Sprintf("credential is scoped to project %q, not %q", c.credential.ProjectID, projectID),
		}, nil
	}
	return CredentialResult{Valid: true, Credential: c.credential}, nil
}

// StaticRegions resolves selections against a fixed region table.
type StaticRegions struct {
	known []string
}

// NewStaticRegions creates a region manager over the given table. An
// empty table falls back to DefaultRegions.
func NewStaticRegions(known []string) *StaticRegions {
	if len(known) == 0 {
		known = DefaultRegions
	}
	return &StaticRegions{known: append([]string(nil), known...)}
}

// FilterRegions applies the selection: the full table for "all", the
// explicit list (restricted to known regions) otherwise, minus
// exclusions. The result is sorted for deterministic iteration order.
func (r *StaticRegions) FilterRegions(_ context.Context, selection types.RegionSelection, _ string) ([]string, error) {
	excluded := make(map[string]bool, len(selection.ExcludeRegions))
	for _, region := range selection.ExcludeRegions {
		excluded[region] = true
	}

	var candidates []string
	if selection.All || len(selection.Regions) == 0 {
		candidates = r.known
	} else {
		known := make(map[string]bool, len(r.known))
		for _, region := range r.known {
			known[region] = true
		}
		for _, region := range selection.Regions {
			if known[region] {
				candidates = append(candidates, region)
			}
		}
	}

	var regions []string
	for _, region := range candidates {
		if !excluded[region] {
			regions = append(regions, region)
		}
	}
	sort.Strings(regions)
	return regions, nil
}

// DefaultRegions is the built-in region table used when no catalog is
// configured.
var DefaultRegions = []string{
	"asia-east1",
	"asia-northeast1",
	"asia-south1",
	"asia-southeast1",
	"australia-southeast1",
	"europe-north1",
	"europe-west1",
	"europe-west2",
	"europe-west3",
	"europe-west4",
	"southamerica-east1",
	"us-central1",
	"us-east1",
	"us-east4",
	"us-west1",
	"us-west2",
}
