package telemetry

import (
	"context"
	"os"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/cloudcarto/surveyor/types"
)

// OTELHook adds trace and span IDs to every log entry
type OTELHook struct{}

func (h OTELHook) Run(e *zerolog.Event, level zerolog.Level, msg string) {
	ctx := e.GetCtx()
	if ctx == nil {
		return
	}

	span := trace.SpanFromContext(ctx)
	if !span.SpanContext().IsValid() {
		return
	}

	e.Str("trace_id", span.SpanContext().TraceID().String())
	e.Str("span_id", span.SpanContext().SpanID().String())

	if level == zerolog.ErrorLevel {
		span.SetStatus(codes.Error, msg)
	}
}

// Logger wraps zerolog with OTEL integration
type Logger struct {
	zerolog.Logger
}

// NewLogger creates a new logger with OTEL hooks
func NewLogger(component string) *Logger {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnixMs

	logger := zerolog.New(os.Stdout).
		With().
		Timestamp().
		Str("component", component).
		Logger().
		Hook(OTELHook{})

	return &Logger{Logger: logger}
}

// WithContext returns a logger with context (for trace propagation)
func (l *Logger) WithContext(ctx context.Context) *zerolog.Logger {
	logger := l.Logger.With().Ctx(ctx).Logger()
	return &logger
}

// Convenience methods for discovery operations

// LogScanError logs a scan error with its attribution triple.
func (l *Logger) LogScanError(ctx context.Context, scanErr types.ScanError) {
	l.WithContext(ctx).Warn().
		Str("service", scanErr.Service).
		Str("region", scanErr.Region).
		Str("operation", scanErr.Operation).
		Str("message", scanErr.Message).
		Msg("scan error recorded")
}

// LogSessionDone logs a session reaching a terminal status.
func (l *Logger) LogSessionDone(ctx context.Context, sessionID string, status types.DiscoveryStatus, resources int, errors int) {
	l.WithContext(ctx).Info().
		Str("session_id", sessionID).
		Str("status", string(status)).
		Int("resources", resources).
		Int("errors", errors).
		Msg("discovery session finished")
}
