package discovery

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloudcarto/surveyor/scanner"
	"github.com/cloudcarto/surveyor/types"
)

// fakeScanner is a programmable ServiceScanner for engine tests.
type fakeScanner struct {
	scanner.Base

	mu    sync.Mutex
	calls []scanner.ScanContext

	resources func(sc scanner.ScanContext) []types.DiscoveredResource
	scanErrs  []types.ScanError
	err       error
	panicMsg  string

	started chan struct{} // closed-once signal that Scan began, optional
	release chan struct{} // Scan blocks until closed, optional

	startOnce sync.Once
}

func (f *fakeScanner) Scan(ctx context.Context, sc scanner.ScanContext) (*scanner.ScanResult, error) {
	f.mu.Lock()
	f.calls = append(f.calls, sc)
	f.mu.Unlock()

	if f.started != nil {
		f.startOnce.Do(func() { close(f.started) })
	}
	if f.release != nil {
		<-f.release
	}
	if f.panicMsg != "" {
		panic(f.panicMsg)
	}
	if f.err != nil {
		return nil, f.err
	}

	result := &scanner.ScanResult{Errors: f.scanErrs, APICalls: 1}
	if f.resources != nil {
		result.Resources = f.resources(sc)
	}
	return result, nil
}

func (f *fakeScanner) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func singleResource(service, rtype string) func(scanner.ScanContext) []types.DiscoveredResource {
	return func(sc scanner.ScanContext) []types.DiscoveredResource {
		return []types.DiscoveredResource{{
			ID:       service + "-" + sc.Region,
			SelfLink: "projects/" + sc.ProjectID + "/" + service + "/" + sc.Region,
			Type:     rtype,
			Service:  service,
			Region:   sc.Region,
		}}
	}
}

func validCredentials(projectID string) *StaticCredentials {
	return NewStaticCredentials(types.Credential{
		ProjectID:     projectID,
		PrincipalID:   "tester@demo.iam.gserviceaccount.com",
		Authenticated: true,
	})
}

func waitForStatus(t *testing.T, e *Engine, id string, status types.DiscoveryStatus) {
	t.Helper()
	require.Eventually(t, func() bool {
		progress, ok := e.GetProgress(id)
		return ok && progress.Status == status
	}, 5*time.Second, 2*time.Millisecond, "session never reached %s", status)
}

func TestStartDiscovery_InvalidCredentials(t *testing.T) {
	registry := scanner.NewRegistry()
	creds := NewStaticCredentials(types.Credential{ProjectID: "demo"}) // not authenticated
	e := NewEngine(registry, creds, NewStaticRegions(nil))

	_, err := e.StartDiscovery(context.Background(), types.DiscoveryConfig{
		ProjectID: "demo",
		Regions:   types.RegionSelection{Regions: []string{"us-central1"}},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid credentials")

	// pre-flight failure creates no session
	assert.Equal(t, 0, e.liveSessions())
}

func TestStartDiscovery_EmptyRegionSet(t *testing.T) {
	e := NewEngine(scanner.NewRegistry(), validCredentials("demo"), NewStaticRegions([]string{"us-central1"}))

	_, err := e.StartDiscovery(context.Background(), types.DiscoveryConfig{
		ProjectID: "demo",
		Regions:   types.RegionSelection{Regions: []string{"mars-north1"}},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no regions")
}

func TestStartDiscovery_ExcludedRegions(t *testing.T) {
	e := NewEngine(scanner.NewRegistry(), validCredentials("demo"), NewStaticRegions([]string{"us-central1"}))

	_, err := e.StartDiscovery(context.Background(), types.DiscoveryConfig{
		ProjectID: "demo",
		Regions: types.RegionSelection{
			All:            true,
			ExcludeRegions: []string{"us-central1"},
		},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no regions")
}

func TestDiscovery_OneResourcePerService(t *testing.T) {
	registry := scanner.NewRegistry()
	registry.Register(&fakeScanner{
		Base:      scanner.Base{Service: "Compute"},
		resources: singleResource("Compute", "google_compute_instance"),
	})
	registry.Register(&fakeScanner{
		Base:      scanner.Base{Service: "Storage", Global: true},
		resources: singleResource("Storage", "google_storage_bucket"),
	})
	registry.Register(&fakeScanner{
		Base:      scanner.Base{Service: "GKE"},
		resources: singleResource("GKE", "google_container_cluster"),
	})

	e := NewEngine(registry, validCredentials("demo"), NewStaticRegions([]string{"us-central1"}))

	id, err := e.StartDiscovery(context.Background(), types.DiscoveryConfig{
		ProjectID: "demo",
		Regions:   types.RegionSelection{Regions: []string{"us-central1"}},
		Services:  []string{"Compute", "Storage", "GKE"},
	})
	require.NoError(t, err)
	waitForStatus(t, e, id, types.StatusCompleted)

	inventory, ok := e.GetInventory(id)
	require.True(t, ok)
	assert.Len(t, inventory.Resources, 3)
	assert.Equal(t, "demo", inventory.ProjectID)
	assert.Equal(t, id, inventory.ID)
	assert.Equal(t, 3, inventory.Summary.TotalResources)
	assert.Equal(t, 1, inventory.Summary.ByService["Storage"])
	assert.Equal(t, 3, inventory.Metadata.APICalls)

	progress, ok := e.GetProgress(id)
	require.True(t, ok)
	assert.Equal(t, types.StatusCompleted, progress.Status)
	assert.Equal(t, 3, progress.ResourcesFound)
}

func TestDiscovery_ServiceFilter(t *testing.T) {
	registry := scanner.NewRegistry()
	compute := &fakeScanner{
		Base:      scanner.Base{Service: "Compute"},
		resources: singleResource("Compute", "google_compute_instance"),
	}
	storage := &fakeScanner{
		Base:      scanner.Base{Service: "Storage", Global: true},
		resources: singleResource("Storage", "google_storage_bucket"),
	}
	registry.Register(compute)
	registry.Register(storage)

	e := NewEngine(registry, validCredentials("demo"), NewStaticRegions([]string{"us-central1"}))

	id, err := e.StartDiscovery(context.Background(), types.DiscoveryConfig{
		ProjectID: "demo",
		Regions:   types.RegionSelection{Regions: []string{"us-central1"}},
		Services:  []string{"Compute"},
	})
	require.NoError(t, err)
	waitForStatus(t, e, id, types.StatusCompleted)

	inventory, ok := e.GetInventory(id)
	require.True(t, ok)
	require.Len(t, inventory.Resources, 1)
	assert.Equal(t, "Compute", inventory.Resources[0].Service)
	assert.Equal(t, 0, storage.callCount())
}

func TestDiscovery_GlobalScannerRunsOnce(t *testing.T) {
	registry := scanner.NewRegistry()
	global := &fakeScanner{
		Base:      scanner.Base{Service: "IAM", Global: true},
		resources: singleResource("IAM", "google_service_account"),
	}
	regional := &fakeScanner{
		Base:      scanner.Base{Service: "Compute"},
		resources: singleResource("Compute", "google_compute_instance"),
	}
	registry.Register(global)
	registry.Register(regional)

	e := NewEngine(registry, validCredentials("demo"), NewStaticRegions([]string{"us-central1", "us-east1"}))

	id, err := e.StartDiscovery(context.Background(), types.DiscoveryConfig{
		ProjectID: "demo",
		Regions:   types.RegionSelection{Regions: []string{"us-central1", "us-east1"}},
		Services:  []string{"Compute", "IAM"},
	})
	require.NoError(t, err)
	waitForStatus(t, e, id, types.StatusCompleted)

	assert.Equal(t, 1, global.callCount())
	assert.Equal(t, 2, regional.callCount())

	// the single global invocation happened under the first region
	global.mu.Lock()
	firstRegion := global.calls[0].Region
	global.mu.Unlock()
	assert.Equal(t, "us-central1", firstRegion)
}

func TestDiscovery_ProgressMonotonicity(t *testing.T) {
	registry := scanner.NewRegistry()
	registry.Register(&fakeScanner{Base: scanner.Base{Service: "Compute"}})
	registry.Register(&fakeScanner{Base: scanner.Base{Service: "GKE"}})

	var mu sync.Mutex
	var snapshots []types.DiscoveryProgress
	e := NewEngine(registry, validCredentials("demo"), NewStaticRegions([]string{"us-central1", "us-east1"}),
		WithProgressFunc(func(_ string, p types.DiscoveryProgress) {
			mu.Lock()
			snapshots = append(snapshots, p)
			mu.Unlock()
		}))

	id, err := e.StartDiscovery(context.Background(), types.DiscoveryConfig{
		ProjectID: "demo",
		Regions:   types.RegionSelection{Regions: []string{"us-central1", "us-east1"}},
		Services:  []string{"Compute", "GKE"},
	})
	require.NoError(t, err)
	waitForStatus(t, e, id, types.StatusCompleted)

	progress, ok := e.GetProgress(id)
	require.True(t, ok)
	assert.Equal(t, progress.TotalRegions, progress.RegionsScanned)
	assert.Equal(t, 0, progress.ServicesScanned, "service counter resets after the last region")
	assert.Empty(t, progress.CurrentRegion)
	assert.Empty(t, progress.CurrentService)

	// regionsScanned never decreases across notifications
	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, snapshots)
	prevRegions := 0
	for _, snapshot := range snapshots {
		assert.GreaterOrEqual(t, snapshot.RegionsScanned, prevRegions)
		prevRegions = snapshot.RegionsScanned
	}
}

func TestDiscovery_ScannerErrorIsIsolated(t *testing.T) {
	registry := scanner.NewRegistry()
	registry.Register(&fakeScanner{
		Base: scanner.Base{Service: "Compute"},
		err:  errors.New("compute API unreachable"),
	})
	registry.Register(&fakeScanner{
		Base:      scanner.Base{Service: "Storage", Global: true},
		resources: singleResource("Storage", "google_storage_bucket"),
	})

	e := NewEngine(registry, validCredentials("demo"), NewStaticRegions([]string{"us-central1"}))

	id, err := e.StartDiscovery(context.Background(), types.DiscoveryConfig{
		ProjectID: "demo",
		Regions:   types.RegionSelection{Regions: []string{"us-central1"}},
		Services:  []string{"Compute", "Storage"},
	})
	require.NoError(t, err)
	waitForStatus(t, e, id, types.StatusCompleted)

	inventory, ok := e.GetInventory(id)
	require.True(t, ok)
	assert.Len(t, inventory.Resources, 1)
	require.Len(t, inventory.Metadata.Errors, 1)
	assert.Equal(t, "Compute", inventory.Metadata.Errors[0].Service)
	assert.Equal(t, "scan", inventory.Metadata.Errors[0].Operation)

	progress, _ := e.GetProgress(id)
	assert.Equal(t, types.StatusCompleted, progress.Status, "partial failure still completes")
	assert.Len(t, progress.Errors, 1)
}

func TestDiscovery_ScannerPanicIsIsolated(t *testing.T) {
	registry := scanner.NewRegistry()
	registry.Register(&fakeScanner{
		Base:     scanner.Base{Service: "Compute"},
		panicMsg: "nil dereference in scanner",
	})
	registry.Register(&fakeScanner{
		Base:      scanner.Base{Service: "Storage", Global: true},
		resources: singleResource("Storage", "google_storage_bucket"),
	})

	e := NewEngine(registry, validCredentials("demo"), NewStaticRegions([]string{"us-central1"}))

	id, err := e.StartDiscovery(context.Background(), types.DiscoveryConfig{
		ProjectID: "demo",
		Regions:   types.RegionSelection{Regions: []string{"us-central1"}},
		Services:  []string{"Compute", "Storage"},
	})
	require.NoError(t, err)
	waitForStatus(t, e, id, types.StatusCompleted)

	inventory, ok := e.GetInventory(id)
	require.True(t, ok)
	assert.Len(t, inventory.Resources, 1)
	require.Len(t, inventory.Metadata.Errors, 1)
	assert.Contains(t, inventory.Metadata.Errors[0].Message, "panicked")
}

func TestDiscovery_UnregisteredServiceSkippedSilently(t *testing.T) {
	registry := scanner.NewRegistry()
	registry.Register(&fakeScanner{
		Base:      scanner.Base{Service: "Compute"},
		resources: singleResource("Compute", "google_compute_instance"),
	})

	e := NewEngine(registry, validCredentials("demo"), NewStaticRegions([]string{"us-central1"}))

	// GKE is a valid default service but nothing is registered for it
	id, err := e.StartDiscovery(context.Background(), types.DiscoveryConfig{
		ProjectID: "demo",
		Regions:   types.RegionSelection{Regions: []string{"us-central1"}},
		Services:  []string{"Compute", "GKE"},
	})
	require.NoError(t, err)
	waitForStatus(t, e, id, types.StatusCompleted)

	inventory, ok := e.GetInventory(id)
	require.True(t, ok)
	assert.Len(t, inventory.Resources, 1)
	assert.Empty(t, inventory.Metadata.Errors)
	require.Len(t, inventory.Metadata.Warnings, 1)
	assert.Equal(t, "GKE", inventory.Metadata.Warnings[0].Service)

	progress, _ := e.GetProgress(id)
	assert.Equal(t, progress.TotalRegions, progress.RegionsScanned)
}

func TestDiscovery_Cancellation(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	slow := &fakeScanner{
		Base:    scanner.Base{Service: "Compute"},
		started: started,
		release: release,
	}
	registry := scanner.NewRegistry()
	registry.Register(slow)

	e := NewEngine(registry, validCredentials("demo"), NewStaticRegions([]string{"us-central1", "us-east1"}))

	id, err := e.StartDiscovery(context.Background(), types.DiscoveryConfig{
		ProjectID: "demo",
		Regions:   types.RegionSelection{Regions: []string{"us-central1", "us-east1"}},
		Services:  []string{"Compute"},
	})
	require.NoError(t, err)

	<-started
	assert.True(t, e.CancelDiscovery(id))
	close(release)

	waitForStatus(t, e, id, types.StatusFailed)

	// the in-flight call finished but no further iteration started
	assert.Equal(t, 1, slow.callCount())

	progress, ok := e.GetProgress(id)
	require.True(t, ok)
	require.NotEmpty(t, progress.Errors)
	assert.Equal(t, "cancel", progress.Errors[0].Operation)

	// cancelling a terminal session is a no-op
	assert.False(t, e.CancelDiscovery(id))
}

func TestCancelDiscovery_UnknownOrTerminal(t *testing.T) {
	registry := scanner.NewRegistry()
	registry.Register(&fakeScanner{Base: scanner.Base{Service: "Compute"}})
	e := NewEngine(registry, validCredentials("demo"), NewStaticRegions([]string{"us-central1"}))

	assert.False(t, e.CancelDiscovery("no-such-session"))

	id, err := e.StartDiscovery(context.Background(), types.DiscoveryConfig{
		ProjectID: "demo",
		Regions:   types.RegionSelection{Regions: []string{"us-central1"}},
		Services:  []string{"Compute"},
	})
	require.NoError(t, err)
	waitForStatus(t, e, id, types.StatusCompleted)

	before, _ := e.GetProgress(id)
	assert.False(t, e.CancelDiscovery(id))
	after, _ := e.GetProgress(id)
	assert.Equal(t, before.Status, after.Status)
	assert.Len(t, after.Errors, len(before.Errors))
}

func TestCleanupSessions_AgeThreshold(t *testing.T) {
	registry := scanner.NewRegistry()
	registry.Register(&fakeScanner{Base: scanner.Base{Service: "Compute"}})
	e := NewEngine(registry, validCredentials("demo"), NewStaticRegions([]string{"us-central1"}))

	oldID, err := e.StartDiscovery(context.Background(), types.DiscoveryConfig{
		ProjectID: "demo",
		Regions:   types.RegionSelection{Regions: []string{"us-central1"}},
	})
	require.NoError(t, err)
	freshID, err := e.StartDiscovery(context.Background(), types.DiscoveryConfig{
		ProjectID: "demo",
		Regions:   types.RegionSelection{Regions: []string{"us-central1"}},
	})
	require.NoError(t, err)
	waitForStatus(t, e, oldID, types.StatusCompleted)
	waitForStatus(t, e, freshID, types.StatusCompleted)

	// age the first session 25h, the second 1h
	e.mu.Lock()
	e.sessions[oldID].data.Progress.StartedAt = time.Now().Add(-25 * time.Hour)
	e.sessions[freshID].data.Progress.StartedAt = time.Now().Add(-1 * time.Hour)
	e.mu.Unlock()

	removed := e.CleanupSessions(24 * time.Hour)
	assert.Equal(t, 1, removed)

	_, ok := e.GetSession(oldID)
	assert.False(t, ok)
	_, ok = e.GetSession(freshID)
	assert.True(t, ok)
}

func TestGetAccessors_UnknownSession(t *testing.T) {
	e := NewEngine(scanner.NewRegistry(), validCredentials("demo"), NewStaticRegions(nil))

	_, ok := e.GetSession("missing")
	assert.False(t, ok)
	_, ok = e.GetProgress("missing")
	assert.False(t, ok)
	_, ok = e.GetInventory("missing")
	assert.False(t, ok)
}

func TestDiscovery_DefaultServiceSet(t *testing.T) {
	registry := scanner.NewRegistry()
	registry.Register(&fakeScanner{
		Base:      scanner.Base{Service: "Compute"},
		resources: singleResource("Compute", "google_compute_instance"),
	})

	e := NewEngine(registry, validCredentials("demo"), NewStaticRegions([]string{"us-central1"}))

	id, err := e.StartDiscovery(context.Background(), types.DiscoveryConfig{
		ProjectID:       "demo",
		Regions:         types.RegionSelection{Regions: []string{"us-central1"}},
		ExcludeServices: []string{"IAM"},
	})
	require.NoError(t, err)

	session, ok := e.GetSession(id)
	require.True(t, ok)
	assert.Equal(t, len(DefaultServices)-1, session.Progress.TotalServices)

	waitForStatus(t, e, id, types.StatusCompleted)
}

type captureSink struct {
	mu        sync.Mutex
	inventory *types.InfrastructureInventory
}

func (s *captureSink) SaveInventory(_ context.Context, inventory *types.InfrastructureInventory) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inventory = inventory
	return nil
}

func TestDiscovery_SinkReceivesInventory(t *testing.T) {
	registry := scanner.NewRegistry()
	registry.Register(&fakeScanner{
		Base:      scanner.Base{Service: "Compute"},
		resources: singleResource("Compute", "google_compute_instance"),
	})

	sink := &captureSink{}
	e := NewEngine(registry, validCredentials("demo"), NewStaticRegions([]string{"us-central1"}),
		WithInventorySink(sink))

	id, err := e.StartDiscovery(context.Background(), types.DiscoveryConfig{
		ProjectID: "demo",
		Regions:   types.RegionSelection{Regions: []string{"us-central1"}},
		Services:  []string{"Compute"},
	})
	require.NoError(t, err)
	waitForStatus(t, e, id, types.StatusCompleted)

	require.Eventually(t, func() bool {
		sink.mu.Lock()
		defer sink.mu.Unlock()
		return sink.inventory != nil
	}, 5*time.Second, 2*time.Millisecond)

	sink.mu.Lock()
	defer sink.mu.Unlock()
	assert.Equal(t, id, sink.inventory.ID)
	assert.Len(t, sink.inventory.Resources, 1)
}

func TestStartDiscovery_SessionLimit(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	registry := scanner.NewRegistry()
	registry.Register(&fakeScanner{
		Base:    scanner.Base{Service: "Compute"},
		started: started,
		release: release,
	})

	e := NewEngine(registry, validCredentials("demo"), NewStaticRegions([]string{"us-central1"}),
		WithMaxSessions(1))

	cfg := types.DiscoveryConfig{
		ProjectID: "demo",
		Regions:   types.RegionSelection{Regions: []string{"us-central1"}},
		Services:  []string{"Compute"},
	}

	id, err := e.StartDiscovery(context.Background(), cfg)
	require.NoError(t, err)
	<-started

	_, err = e.StartDiscovery(context.Background(), cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "session limit")

	close(release)
	waitForStatus(t, e, id, types.StatusCompleted)

	// capacity frees up once the session is terminal
	_, err = e.StartDiscovery(context.Background(), cfg)
	assert.NoError(t, err)
}
