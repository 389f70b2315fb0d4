package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Recording helpers used by the discovery engine. All of them are
// no-ops until InitOTEL has created the instruments, so library users
// who never initialize telemetry pay nothing.

// RecordSessionStarted counts a new discovery session.
func RecordSessionStarted(ctx context.Context, projectID string) {
	if SessionsStarted == nil {
		return
	}
	SessionsStarted.Add(ctx, 1,
		metric.WithAttributes(attribute.String("project_id", projectID)),
	)
}

// RecordSessionActive adjusts the running-session gauge.
func RecordSessionActive(ctx context.Context, delta int64) {
	if SessionsActive == nil {
		return
	}
	SessionsActive.Add(ctx, delta)
}

// RecordServiceScan records the outcome of one scanner invocation.
func RecordServiceScan(ctx context.Context, service, region string, resources, apiCalls, errs int, seconds float64) {
	attrs := metric.WithAttributes(
		attribute.String("service", service),
		attribute.String("region", region),
	)
	if ResourcesDiscovered != nil {
		ResourcesDiscovered.Add(ctx, int64(resources), attrs)
	}
	if APICalls != nil {
		APICalls.Add(ctx, int64(apiCalls), attrs)
	}
	if ScanErrors != nil && errs > 0 {
		ScanErrors.Add(ctx, int64(errs), attrs)
	}
	if ScanDuration != nil {
		ScanDuration.Record(ctx, seconds, attrs)
	}
}
