package discovery

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/cloudcarto/surveyor/scanner"
	"github.com/cloudcarto/surveyor/telemetry"
	"github.com/cloudcarto/surveyor/types"
)

// runDiscovery executes the region × service loop for one session.
// Iteration order is exactly the order of the resolved lists; one
// scanner is awaited to completion before the next starts. A non-nil
// return means the loop itself broke, which fails the session.
func (e *Engine) runDiscovery(ctx context.Context, id, projectID string, regions, services []string, credential types.Credential) error {
	start := time.Now()

	ctx, span := telemetry.Tracer.Start(ctx, "surveyor.discovery.run",
		trace.WithAttributes(
			attribute.String("session.id", id),
			attribute.String("project.id", projectID),
			attribute.Int("regions.total", len(regions)),
			attribute.Int("services.total", len(services)),
		),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
	defer span.End()

	e.updateSession(id, func(s *types.DiscoverySession) {
		s.Progress.Status = types.StatusInProgress
	})
	e.notifyProgress(id)

	var discovered []types.DiscoveredResource
	var scanErrors []types.ScanError
	var warnings []types.ScanWarning
	apiCalls := 0

	for regionIdx, region := range regions {
		for _, service := range services {
			e.updateSession(id, func(s *types.DiscoverySession) {
				s.Progress.CurrentRegion = region
				s.Progress.CurrentService = service
			})
			e.notifyProgress(id)

			// Cancellation is cooperative: observed here, between
			// scanner invocations, never mid-call.
			if e.cancelled(ctx, id) {
				e.logger.WithContext(ctx).Info().
					Str("session_id", id).
					Str("region", region).
					Str("service", service).
					Msg("discovery cancelled, stopping run loop")
				span.SetStatus(codes.Error, "cancelled")
				return nil
			}

			svc, ok := e.registry.Get(service)
			if !ok {
				// Configured but unimplemented; not an error.
				warnings = append(warnings, types.ScanWarning{
					Service:   service,
					Region:    region,
					Operation: "scan",
					Message:   "no scanner registered for service",
					Timestamp: time.Now(),
				})
				e.advanceService(id)
				continue
			}

			// Global services report once, during the first region.
			if svc.IsGlobal() && regionIdx > 0 {
				e.advanceService(id)
				continue
			}

			result, err := e.invokeScanner(ctx, svc, scanner.ScanContext{ProjectID: projectID, Region: region})
			if err != nil {
				scanErr := types.NewScanError(service, region, "scan", err.Error())
				scanErrors = append(scanErrors, scanErr)
				e.updateSession(id, func(s *types.DiscoverySession) {
					s.Progress.Errors = append(s.Progress.Errors, scanErr)
				})
				e.logger.LogScanError(ctx, scanErr)
			} else if result != nil {
				discovered = append(discovered, result.Resources...)
				scanErrors = append(scanErrors, result.Errors...)
				apiCalls += result.APICalls
				e.updateSession(id, func(s *types.DiscoverySession) {
					s.Progress.Errors = append(s.Progress.Errors, result.Errors...)
					s.Progress.ResourcesFound += len(result.Resources)
				})
			}

			e.advanceService(id)
		}

		e.updateSession(id, func(s *types.DiscoverySession) {
			s.Progress.RegionsScanned++
			s.Progress.ServicesScanned = 0
		})
		e.notifyProgress(id)
	}

	deduped := Deduplicate(discovered)

	inventory := &types.InfrastructureInventory{
		ID:         id,
		Timestamp:  time.Now(),
		ProjectID:  projectID,
		Credential: credential,
		Regions:    regions,
		Summary:    types.BuildSummary(deduped),
		Resources:  deduped,
		Metadata: types.ScanMetadata{
			Duration: time.Since(start),
			APICalls: apiCalls,
			Errors:   scanErrors,
			Warnings: warnings,
		},
	}

	e.updateSession(id, func(s *types.DiscoverySession) {
		s.Inventory = inventory
		s.Progress.Status = types.StatusCompleted
		s.Progress.CurrentRegion = ""
		s.Progress.CurrentService = ""
		s.Progress.ResourcesFound = len(deduped)
	})
	e.notifyProgress(id)

	span.SetAttributes(
		attribute.Int("resources.total", len(deduped)),
		attribute.Int("errors.total", len(scanErrors)),
		attribute.Int("api.calls", apiCalls),
	)
	span.SetStatus(codes.Ok, "discovery completed")

	e.logger.LogSessionDone(ctx, id, types.StatusCompleted, len(deduped), len(scanErrors))

	if e.sink != nil {
		if err := e.sink.SaveInventory(ctx, inventory); err != nil {
			e.logger.WithContext(ctx).Warn().
				Err(err).
				Str("session_id", id).
				Msg("failed to persist inventory")
		}
	}

	return nil
}

// advanceService bumps the per-region service counter and notifies.
func (e *Engine) advanceService(id string) {
	e.updateSession(id, func(s *types.DiscoverySession) {
		s.Progress.ServicesScanned++
	})
	e.notifyProgress(id)
}

// cancelled reports whether the session should stop: either its
// context was cancelled or its status was externally forced to failed.
func (e *Engine) cancelled(ctx context.Context, id string) bool {
	if ctx.Err() != nil {
		return true
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	sess, ok := e.sessions[id]
	return ok && sess.data.Progress.Status == types.StatusFailed
}

// invokeScanner runs one scanner under a span, converting panics into
// errors so a misbehaving scanner never takes the session down.
func (e *Engine) invokeScanner(ctx context.Context, svc scanner.ServiceScanner, sc scanner.ScanContext) (result *scanner.ScanResult, err error) {
	if e.scanTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.scanTimeout)
		defer cancel()
	}

	ctx, span := telemetry.Tracer.Start(ctx, "surveyor.scanner.scan",
		trace.WithAttributes(
			attribute.String("service", svc.ServiceName()),
			attribute.String("region", sc.Region),
			attribute.Bool("global", svc.IsGlobal()),
		),
	)
	defer span.End()

	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("scanner %s panicked: %v", svc.ServiceName(), r)
		}
		seconds := time.Since(start).Seconds()
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "scan failed")
			telemetry.RecordServiceScan(ctx, svc.ServiceName(), sc.Region, 0, 0, 1, seconds)
			return
		}
		resources, calls, errs := 0, 0, 0
		if result != nil {
			resources, calls, errs = len(result.Resources), result.APICalls, len(result.Errors)
		}
		span.SetAttributes(attribute.Int("resources.count", resources))
		telemetry.RecordServiceScan(ctx, svc.ServiceName(), sc.Region, resources, calls, errs, seconds)
	}()

	result, err = svc.Scan(ctx, sc)
	return result, err
}
