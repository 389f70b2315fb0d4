// Package discovery implements the orchestration engine that drives
// service scanners across regions and assembles their output into a
// deduplicated infrastructure inventory.
package discovery

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cloudcarto/surveyor/scanner"
	"github.com/cloudcarto/surveyor/telemetry"
	"github.com/cloudcarto/surveyor/types"
)

// discoveryService attributes engine-level errors that belong to no
// single scanner.
const discoveryService = "discovery"

// DefaultServices is the fixed service set used when a discovery
// config does not request specific services.
var DefaultServices = []string{"Compute", "Storage", "GKE", "IAM", "Network"}

// ProgressFunc observes a session's progress. It receives a copy and
// must not block for long; the run loop waits for it.
type ProgressFunc func(sessionID string, progress types.DiscoveryProgress)

// InventorySink receives completed inventories, e.g. a persistent
// store feeding the IaC generator. Sink failures are logged, never
// fatal to the session.
type InventorySink interface {
	SaveInventory(ctx context.Context, inventory *types.InfrastructureInventory) error
}

// Engine owns discovery sessions: it validates pre-flight input, runs
// the region × service scan loop, deduplicates results and exposes
// progress, cancellation and cleanup.
type Engine struct {
	registry    *scanner.Registry
	credentials CredentialManager
	regions     RegionManager
	logger      *telemetry.Logger

	progressFn  ProgressFunc
	sink        InventorySink
	scanTimeout time.Duration
	maxSessions int

	mu       sync.RWMutex
	sessions map[string]*session
}

// session pairs the externally visible state with the run loop's
// cancellation handle.
type session struct {
	data   *types.DiscoverySession
	cancel context.CancelFunc
}

// Option configures an Engine.
type Option func(*Engine)

// WithProgressFunc registers a progress observer.
func WithProgressFunc(fn ProgressFunc) Option {
	return func(e *Engine) { e.progressFn = fn }
}

// WithInventorySink attaches a destination for completed inventories.
func WithInventorySink(sink InventorySink) Option {
	return func(e *Engine) { e.sink = sink }
}

// WithScanTimeout bounds each scanner invocation. Zero (the default)
// means no timeout: a stuck scanner stalls its session.
func WithScanTimeout(d time.Duration) Option {
	return func(e *Engine) { e.scanTimeout = d }
}

// WithMaxSessions caps concurrently live (pending or running)
// sessions. Zero means unbounded.
func WithMaxSessions(n int) Option {
	return func(e *Engine) { e.maxSessions = n }
}

// NewEngine creates a discovery engine over the given registry and
// collaborators.
func NewEngine(registry *scanner.Registry, credentials CredentialManager, regions RegionManager, opts ...Option) *Engine {
	e := &Engine{
		registry:    registry,
		credentials: credentials,
		regions:     regions,
		logger:      telemetry.NewLogger("discovery"),
		sessions:    make(map[string]*session),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// AvailableServices returns the registered service names.
func (e *Engine) AvailableServices() []string {
	return e.registry.ServiceNames()
}

// StartDiscovery validates the configuration, creates a session and
// kicks off the asynchronous run loop. The session id is returned
// before any scanning happens. Only the two pre-flight failures
// (invalid credentials, empty region set) surface as errors; anything
// later is recorded on the session instead.
func (e *Engine) StartDiscovery(ctx context.Context, cfg types.DiscoveryConfig) (string, error) {
	result, err := e.credentials.ValidateCredentials(ctx, cfg.ProjectID)
	if err != nil {
		return "", fmt.Errorf("invalid credentials for project %q: %w", cfg.ProjectID, err)
	}
	if !result.Valid {
		return "", fmt.Errorf("invalid credentials for project %q: %s", cfg.ProjectID, result.Error)
	}

	regions, err := e.regions.FilterRegions(ctx, cfg.Regions, cfg.ProjectID)
	if err != nil {
		return "", fmt.Errorf("failed to resolve regions: %w", err)
	}
	if len(regions) == 0 {
		return "", fmt.Errorf("no regions to scan for project %q after applying selection", cfg.ProjectID)
	}

	services := e.resolveServices(cfg)

	if e.maxSessions > 0 && e.liveSessions() >= e.maxSessions {
		return "", fmt.Errorf("session limit reached (%d live sessions)", e.maxSessions)
	}

	id := uuid.NewString()
	now := time.Now()
	sess := &types.DiscoverySession{
		ID:     id,
		Config: cfg,
		Progress: types.DiscoveryProgress{
			Status:        types.StatusPending,
			TotalRegions:  len(regions),
			TotalServices: len(services),
			StartedAt:     now,
			UpdatedAt:     now,
		},
	}

	// The run loop outlives the caller's context; only trace metadata
	// is carried over.
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))

	e.mu.Lock()
	e.sessions[id] = &session{data: sess, cancel: cancel}
	e.mu.Unlock()

	telemetry.RecordSessionStarted(ctx, cfg.ProjectID)
	e.logger.WithContext(ctx).Info().
		Str("session_id", id).
		Str("project_id", cfg.ProjectID).
		Int("regions", len(regions)).
		Int("services", len(services)).
		Msg("discovery session created")

	go e.runGuarded(runCtx, id, cfg.ProjectID, regions, services, result.Credential)

	return id, nil
}

// resolveServices keeps requested names that are registered or belong
// to the default set, falls back to the default set when nothing was
// requested, and applies exclusions.
func (e *Engine) resolveServices(cfg types.DiscoveryConfig) []string {
	var candidates []string
	if len(cfg.Services) > 0 {
		for _, name := range cfg.Services {
			if e.registry.Has(name) || isDefaultService(name) {
				candidates = append(candidates, name)
			}
		}
	} else {
		candidates = append(candidates, DefaultServices...)
	}

	excluded := make(map[string]bool, len(cfg.ExcludeServices))
	for _, name := range cfg.ExcludeServices {
		excluded[name] = true
	}

	var services []string
	for _, name := range candidates {
		if !excluded[name] {
			services = append(services, name)
		}
	}
	return services
}

func isDefaultService(name string) bool {
	for _, svc := range DefaultServices {
		if svc == name {
			return true
		}
	}
	return false
}

func (e *Engine) liveSessions() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	live := 0
	for _, sess := range e.sessions {
		switch sess.data.Progress.Status {
		case types.StatusPending, types.StatusInProgress:
			live++
		}
	}
	return live
}

// runGuarded is the only place a run loop failure can escape to; it
// converts panics and loop errors into a failed session.
func (e *Engine) runGuarded(ctx context.Context, id, projectID string, regions, services []string, credential types.Credential) {
	telemetry.RecordSessionActive(ctx, 1)
	defer telemetry.RecordSessionActive(ctx, -1)

	defer func() {
		if r := recover(); r != nil {
			scanErr := types.NewScanError(discoveryService, types.GlobalRegion, "discovery",
				fmt.Sprintf("discovery run panicked: %v", r))
			e.failSession(id, scanErr)
			e.logger.WithContext(ctx).Error().
				Str("session_id", id).
				Str("panic", fmt.Sprint(r)).
				Msg("discovery run loop panicked")
		}
	}()

	if err := e.runDiscovery(ctx, id, projectID, regions, services, credential); err != nil {
		scanErr := types.NewScanError(discoveryService, types.GlobalRegion, "discovery", err.Error())
		e.failSession(id, scanErr)
		e.logger.WithContext(ctx).Error().
			Err(err).
			Str("session_id", id).
			Msg("discovery run loop failed")
	}
}

// GetSession returns a copy of the session, or false for unknown ids.
func (e *Engine) GetSession(id string) (*types.DiscoverySession, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	sess, ok := e.sessions[id]
	if !ok {
		return nil, false
	}
	return sess.data.Clone(), true
}

// GetProgress returns a copy of the session's progress, or false for
// unknown ids.
func (e *Engine) GetProgress(id string) (*types.DiscoveryProgress, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	sess, ok := e.sessions[id]
	if !ok {
		return nil, false
	}
	progress := sess.data.Progress
	progress.Errors = append([]types.ScanError(nil), sess.data.Progress.Errors...)
	return &progress, true
}

// GetInventory returns the completed inventory, or false when the
// session is unknown or has not completed.
func (e *Engine) GetInventory(id string) (*types.InfrastructureInventory, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	sess, ok := e.sessions[id]
	if !ok || sess.data.Inventory == nil {
		return nil, false
	}
	inventory := *sess.data.Inventory
	inventory.Resources = append([]types.DiscoveredResource(nil), sess.data.Inventory.Resources...)
	return &inventory, true
}

// CancelDiscovery cooperatively cancels a running session. The run
// loop observes the cancellation at its next per-service checkpoint;
// the in-flight scanner call is not aborted. Returns false when the
// session does not exist or is not in progress.
func (e *Engine) CancelDiscovery(id string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	sess, ok := e.sessions[id]
	if !ok || sess.data.Progress.Status != types.StatusInProgress {
		return false
	}

	sess.data.Progress.Status = types.StatusFailed
	sess.data.Progress.Errors = append(sess.data.Progress.Errors,
		types.NewScanError(discoveryService, types.GlobalRegion, "cancel", "discovery cancelled by caller"))
	sess.data.Progress.UpdatedAt = time.Now()
	sess.cancel()
	return true
}

// CleanupSessions drops sessions older than maxAge and returns how
// many were removed. This is the only garbage collection; sessions are
// otherwise retained for the life of the engine.
func (e *Engine) CleanupSessions(maxAge time.Duration) int {
	cutoff := time.Now().Add(-maxAge)

	e.mu.Lock()
	defer e.mu.Unlock()

	removed := 0
	for id, sess := range e.sessions {
		if sess.data.Progress.StartedAt.Before(cutoff) {
			sess.cancel()
			delete(e.sessions, id)
			removed++
		}
	}
	return removed
}

// failSession forces a session to failed with the given error and
// clears the in-progress markers.
func (e *Engine) failSession(id string, scanErr types.ScanError) {
	e.mu.Lock()
	defer e.mu.Unlock()

	sess, ok := e.sessions[id]
	if !ok {
		return
	}
	sess.data.Progress.Status = types.StatusFailed
	sess.data.Progress.Errors = append(sess.data.Progress.Errors, scanErr)
	sess.data.Progress.CurrentRegion = ""
	sess.data.Progress.CurrentService = ""
	sess.data.Progress.UpdatedAt = time.Now()
}

// updateSession applies fn to the live session under the table lock.
func (e *Engine) updateSession(id string, fn func(*types.DiscoverySession)) {
	e.mu.Lock()
	defer e.mu.Unlock()

	sess, ok := e.sessions[id]
	if !ok {
		return
	}
	fn(sess.data)
	sess.data.Progress.UpdatedAt = time.Now()
}

// notifyProgress hands a progress copy to the observer, outside the
// table lock.
func (e *Engine) notifyProgress(id string) {
	if e.progressFn == nil {
		return
	}
	progress, ok := e.GetProgress(id)
	if !ok {
		return
	}
	e.progressFn(id, *progress)
}
