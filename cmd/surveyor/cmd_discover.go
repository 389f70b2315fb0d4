package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

var (
	discoverSnapshot    string
	discoverConfig      string
	discoverProject     string
	discoverRegions     []string
	discoverAllRegions  bool
	discoverServices    []string
	discoverExclude     []string
	discoverOutput      string
	discoverStoreDir    string
	discoverMetricsAddr string
	discoverTimeout     time.Duration
	discoverQuiet       bool
)

// discoverCmd represents the discover command
var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Discover resources across regions and services",
	Long: `Walk every selected region and service, collect resources, and
assemble a deduplicated inventory.

Scanners cover Compute, Storage, GKE, IAM and Network. Global
services are scanned once regardless of how many regions are
selected. A failing scanner never aborts the run; its error is
recorded and discovery moves on.`,
	Example: `  surveyor discover --snapshot assets.json                 # All regions, all services
  surveyor discover --snapshot assets.json --regions us-central1
  surveyor discover --snapshot assets.json --services Compute,Storage
  surveyor discover --snapshot assets.json --output json
  surveyor discover --config surveyor.yaml --snapshot assets.json`,
	RunE: runDiscover,
}

func init() {
	rootCmd.AddCommand(discoverCmd)

	discoverCmd.Flags().StringVar(&discoverSnapshot, "snapshot", "", "Path to an asset snapshot file (required)")
	discoverCmd.Flags().StringVarP(&discoverConfig, "config", "c", "", "Path to a surveyor config file")
	discoverCmd.Flags().StringVarP(&discoverProject, "project", "p", "", "Project to discover (defaults to the snapshot's project)")
	discoverCmd.Flags().StringSliceVarP(&discoverRegions, "regions", "r", nil, "Regions to scan (comma-separated)")
	discoverCmd.Flags().BoolVar(&discoverAllRegions, "all-regions", false, "Scan every region in the snapshot")
	discoverCmd.Flags().StringSliceVarP(&discoverServices, "services", "s", nil, "Services to scan (Compute,Storage,GKE,IAM,Network)")
	discoverCmd.Flags().StringSliceVar(&discoverExclude, "exclude-services", nil, "Services to skip")
	discoverCmd.Flags().StringVarP(&discoverOutput, "output", "o", "table", "Output format: table, json")
	discoverCmd.Flags().StringVar(&discoverStoreDir, "store", "", "Directory for the local inventory store (disabled when empty)")
	discoverCmd.Flags().StringVar(&discoverMetricsAddr, "metrics", "", "Prometheus metrics listen address (disabled when empty)")
	discoverCmd.Flags().DurationVar(&discoverTimeout, "scan-timeout", 0, "Per-scanner timeout (0 disables)")
	discoverCmd.Flags().BoolVarP(&discoverQuiet, "quiet", "q", false, "Suppress progress output")

	_ = discoverCmd.MarkFlagRequired("snapshot")
}

func runDiscover(cmd *cobra.Command, args []string) error {
	validOutputs := []string{"table", "json"}
	if !contains(validOutputs, discoverOutput) {
		return fmt.Errorf("invalid output format: %s (must be one of: %s)",
			discoverOutput, strings.Join(validOutputs, ", "))
	}

	command := &DiscoverCommand{
		Snapshot:        discoverSnapshot,
		ConfigPath:      discoverConfig,
		Project:         discoverProject,
		Regions:         discoverRegions,
		AllRegions:      discoverAllRegions,
		Services:        discoverServices,
		ExcludeServices: discoverExclude,
		Output:          discoverOutput,
		StoreDir:        discoverStoreDir,
		MetricsAddr:     discoverMetricsAddr,
		ScanTimeout:     discoverTimeout,
		Quiet:           discoverQuiet,
	}
	return command.Run(cmd.Context())
}

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
