package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/cloudcarto/surveyor/config"
	"github.com/cloudcarto/surveyor/discovery"
	"github.com/cloudcarto/surveyor/inventory"
	"github.com/cloudcarto/surveyor/journal"
	"github.com/cloudcarto/surveyor/providers/gcp"
	"github.com/cloudcarto/surveyor/scanner"
	"github.com/cloudcarto/surveyor/telemetry"
	"github.com/cloudcarto/surveyor/types"
)

// DiscoverCommand implements the 'surveyor discover' command
type DiscoverCommand struct {
	Snapshot        string
	ConfigPath      string
	Project         string
	Regions         []string
	AllRegions      bool
	Services        []string
	ExcludeServices []string
	Output          string
	StoreDir        string
	MetricsAddr     string
	ScanTimeout     time.Duration
	Quiet           bool
}

// Run executes the discover command
func (cmd *DiscoverCommand) Run(ctx context.Context) error {
	logger := telemetry.NewLogger("cli")

	var fileCfg *config.Config
	if cmd.ConfigPath != "" {
		var err error
		fileCfg, err = config.LoadConfig(cmd.ConfigPath)
		if err != nil {
			return err
		}
	}

	otelCfg := telemetry.Config{
		ServiceName:    "surveyor",
		ServiceVersion: version,
		Insecure:       true,
	}
	metricsAddr := cmd.MetricsAddr
	if fileCfg != nil {
		otelCfg.OTELEndpoint = fileCfg.Telemetry.OTELEndpoint
		otelCfg.Environment = fileCfg.Telemetry.Environment
		otelCfg.Insecure = fileCfg.Telemetry.Insecure || otelCfg.OTELEndpoint == ""
		if metricsAddr == "" {
			metricsAddr = fileCfg.Telemetry.MetricsAddr
		}
	}

	shutdown, err := telemetry.InitOTEL(ctx, otelCfg)
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer func() { _ = shutdown(context.Background()) }()

	if metricsAddr != "" {
		go serveMetrics(metricsAddr, logger)
	}

	snapshot, err := gcp.LoadSnapshot(cmd.Snapshot)
	if err != nil {
		return fmt.Errorf("failed to load snapshot: %w", err)
	}

	request := cmd.buildRequest(snapshot, fileCfg)

	registry := scanner.NewRegistry()
	gcp.RegisterAll(registry, snapshot.Clients())

	credentials := discovery.NewStaticCredentials(types.Credential{
		ProjectID:     snapshot.ProjectID,
		PrincipalID:   "snapshot-export",
		Authenticated: true,
	})
	regions := discovery.NewStaticRegions(snapshot.Regions())

	scanTimeout := cmd.ScanTimeout
	if scanTimeout == 0 && fileCfg != nil {
		scanTimeout = fileCfg.Sessions.ScanTimeout
	}
	storeDir := cmd.StoreDir
	if storeDir == "" && fileCfg != nil {
		storeDir = fileCfg.Storage.Dir
	}

	opts := []discovery.Option{}
	if scanTimeout > 0 {
		opts = append(opts, discovery.WithScanTimeout(scanTimeout))
	}
	if fileCfg != nil && fileCfg.Sessions.MaxActive > 0 {
		opts = append(opts, discovery.WithMaxSessions(fileCfg.Sessions.MaxActive))
	}
	var store *inventory.Store
	var audit *journal.Journal
	if storeDir != "" {
		if err := os.MkdirAll(storeDir, 0750); err != nil {
			return fmt.Errorf("failed to create store directory: %w", err)
		}
		store, err = inventory.NewStore(storeDir)
		if err != nil {
			return fmt.Errorf("failed to open inventory store: %w", err)
		}
		defer func() { _ = store.Close() }()
		opts = append(opts, discovery.WithInventorySink(store))

		audit, err = journal.Open(storeDir)
		if err != nil {
			return fmt.Errorf("failed to open journal: %w", err)
		}
		defer func() { _ = audit.Close() }()
	}
	if !cmd.Quiet && cmd.Output == "table" {
		opts = append(opts, discovery.WithProgressFunc(printProgress))
	}

	engine := discovery.NewEngine(registry, credentials, regions, opts...)

	sessionID, err := engine.StartDiscovery(ctx, request)
	if err != nil {
		return fmt.Errorf("failed to start discovery: %w", err)
	}
	if audit != nil {
		_ = audit.Append(journal.EventSessionStarted, sessionID, request)
	}

	if err := waitForCompletion(ctx, engine, sessionID); err != nil {
		if audit != nil {
			_ = audit.AppendError(journal.EventSessionFailed, sessionID, nil, err)
		}
		return err
	}

	inv, ok := engine.GetInventory(sessionID)
	if !ok {
		return fmt.Errorf("session %s produced no inventory", sessionID)
	}
	if audit != nil {
		_ = audit.Append(journal.EventSessionCompleted, sessionID, inv.Summary)
	}

	switch cmd.Output {
	case "json":
		return outputJSON(inv)
	default:
		return outputTable(inv)
	}
}

// buildRequest assembles the discovery request from flags, optionally
// merged over a config file.
func (cmd *DiscoverCommand) buildRequest(snapshot *gcp.Snapshot, fileCfg *config.Config) types.DiscoveryConfig {
	request := types.DiscoveryConfig{
		ProjectID: snapshot.ProjectID,
		Regions:   types.RegionSelection{All: true},
	}

	if fileCfg != nil {
		request = fileCfg.DiscoveryConfig()
		if request.ProjectID == "" {
			request.ProjectID = snapshot.ProjectID
		}
	}

	// Flags win over the config file
	if cmd.Project != "" {
		request.ProjectID = cmd.Project
	}
	if len(cmd.Regions) > 0 {
		request.Regions = types.RegionSelection{Regions: cmd.Regions}
	}
	if cmd.AllRegions {
		request.Regions = types.RegionSelection{All: true}
	}
	if len(cmd.Services) > 0 {
		request.Services = cmd.Services
	}
	if len(cmd.ExcludeServices) > 0 {
		request.ExcludeServices = cmd.ExcludeServices
	}

	return request
}

// waitForCompletion polls the session until it reaches a terminal
// status or the context ends.
func waitForCompletion(ctx context.Context, engine *discovery.Engine, sessionID string) error {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			engine.CancelDiscovery(sessionID)
			return ctx.Err()
		case <-ticker.C:
			progress, ok := engine.GetProgress(sessionID)
			if !ok {
				return fmt.Errorf("session %s disappeared", sessionID)
			}
			switch progress.Status {
			case types.StatusCompleted:
				return nil
			case types.StatusFailed:
				if len(progress.Errors) > 0 {
					return fmt.Errorf("discovery failed: %s", progress.Errors[len(progress.Errors)-1].Message)
				}
				return fmt.Errorf("discovery failed")
			}
		}
	}
}

func printProgress(_ string, progress types.DiscoveryProgress) {
	if progress.CurrentRegion == "" || progress.CurrentService == "" {
		return
	}
	fmt.Printf("  scanning %s in %s (region %d/%d, %d resources so far)\n",
		progress.CurrentService, progress.CurrentRegion,
		progress.RegionsScanned+1, progress.TotalRegions,
		progress.ResourcesFound)
}

// outputTable displays the inventory in a table format
func outputTable(inv *types.InfrastructureInventory) error {
	fmt.Printf("\nDiscovery Summary:\n")
	fmt.Printf("   Project: %s\n", inv.ProjectID)
	fmt.Printf("   Regions: %d\n", len(inv.Regions))
	fmt.Printf("   Resources: %d\n", inv.Summary.TotalResources)
	fmt.Printf("   API calls: %d\n", inv.Metadata.APICalls)
	fmt.Printf("   Duration: %s\n", inv.Metadata.Duration.Round(time.Millisecond))
	if len(inv.Metadata.Errors) > 0 {
		fmt.Printf("   Errors: %d\n", len(inv.Metadata.Errors))
	}
	if len(inv.Metadata.Warnings) > 0 {
		fmt.Printf("   Warnings: %d\n", len(inv.Metadata.Warnings))
	}
	fmt.Printf("\n")

	if inv.Summary.TotalResources == 0 {
		fmt.Println("No resources discovered.")
		return nil
	}

	fmt.Printf("By service:\n")
	for _, service := range sortedKeys(inv.Summary.ByService) {
		fmt.Printf("   %-10s %d\n", service, inv.Summary.ByService[service])
	}
	fmt.Printf("\n")

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "NAME\tTYPE\tSERVICE\tREGION\tSTATUS\tLINKS")
	_, _ = fmt.Fprintln(w, "----\t----\t-------\t------\t------\t-----")

	for _, resource := range inv.Resources {
		name := resource.Name
		if name == "" {
			name = resource.ID
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%d\n",
			truncate(name, 30),
			resource.Type,
			resource.Service,
			resource.Region,
			resource.Status,
			len(resource.Relationships),
		)
	}
	_ = w.Flush()

	for _, scanErr := range inv.Metadata.Errors {
		fmt.Printf("\nError: %s/%s %s: %s\n", scanErr.Service, scanErr.Region, scanErr.Operation, scanErr.Message)
	}

	return nil
}

// outputJSON writes the full inventory document to stdout
func outputJSON(inv *types.InfrastructureInventory) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(inv)
}

func serveMetrics(addr string, logger *telemetry.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(telemetry.PrometheusRegistry, promhttp.HandlerOpts{}))
	logger.Info().Str("addr", addr).Msg("starting metrics server")
	if err := http.ListenAndServe(addr, mux); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("metrics server error")
	}
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
