// Package scanner defines the per-service discovery contract and the
// registry the discovery engine looks scanners up in.
package scanner

import (
	"context"

	"github.com/cloudcarto/surveyor/types"
)

// ScanContext scopes a single scanner invocation to one project and
// region. Global scanners receive the region they were invoked under
// but report region-independent results.
type ScanContext struct {
	ProjectID string
	Region    string
}

// ScanResult is what a scanner hands back. Partial failure is normal:
// a scanner converts its own failures into ScanError entries instead
// of returning an error, so Resources may be partial alongside Errors.
type ScanResult struct {
	Resources []types.DiscoveredResource
	Errors    []types.ScanError
	APICalls  int
}

// Merge folds another result into this one.
func (r *ScanResult) Merge(other *ScanResult) {
	if other == nil {
		return
	}
	r.Resources = append(r.Resources, other.Resources...)
	r.Errors = append(r.Errors, other.Errors...)
	r.APICalls += other.APICalls
}

// ServiceScanner enumerates resources of one cloud service.
//
// Scan must only return a non-nil error for failures that invalidate
// the whole invocation; service-specific partial failures belong in
// ScanResult.Errors. Global scanners must be idempotent, since the
// engine decides how often they run.
type ServiceScanner interface {
	Scan(ctx context.Context, sc ScanContext) (*ScanResult, error)
	ServiceName() string
	IsGlobal() bool
	ResourceTypes() []string
}
