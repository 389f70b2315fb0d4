package scanner

import (
	"context"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/cloudcarto/surveyor/types"
)

// Base carries the capability declaration shared by all scanners and
// the helpers for error conversion and concurrent sub-kind fetching.
// Concrete scanners embed it and implement Scan themselves.
type Base struct {
	Service string
	Global  bool
	Types   []string
}

// ServiceName returns the owning service name.
func (b *Base) ServiceName() string { return b.Service }

// IsGlobal reports whether results are region-independent.
func (b *Base) IsGlobal() bool { return b.Global }

// ResourceTypes declares the target IaC types this scanner can emit.
// Documentation and filtering only, not enforced at scan time.
func (b *Base) ResourceTypes() []string {
	return append([]string(nil), b.Types...)
}

// Errorf converts a sub-fetch failure into a ScanError scoped to this
// scanner's service.
func (b *Base) Errorf(region, operation string, err error) types.ScanError {
	return types.NewScanError(b.Service, region, operation, err.Error())
}

// SubFetch is one independently fetched resource kind within a
// scanner, e.g. instances or disks for a compute service.
type SubFetch struct {
	Operation string
	Fetch     func(ctx context.Context) ([]types.DiscoveredResource, int, error)
}

// FanOut runs the sub-fetches concurrently and concatenates their
// results. A failing sub-fetch becomes one ScanError and never stops
// the others.
func (b *Base) FanOut(ctx context.Context, region string, fetches []SubFetch) *ScanResult {
	type slot struct {
		resources []types.DiscoveredResource
		calls     int
		err       error
	}
	slots := make([]slot, len(fetches))

	var g errgroup.Group
	for i, f := range fetches {
		g.Go(func() error {
			resources, calls, err := f.Fetch(ctx)
			slots[i] = slot{resources: resources, calls: calls, err: err}
			return nil
		})
	}
	_ = g.Wait() // sub-fetch errors land in slots, never here

	result := &ScanResult{}
	for i, s := range slots {
		result.APICalls += s.calls
		if s.err != nil {
			result.Errors = append(result.Errors, b.Errorf(region, fetches[i].Operation, s.err))
			continue
		}
		result.Resources = append(result.Resources, s.resources...)
	}
	return result
}

// BuildSelfLink joins path segments into a provider-stable locator.
func BuildSelfLink(parts ...string) string {
	return strings.Join(parts, "/")
}
