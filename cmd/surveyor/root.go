package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	version = "0.1.0"
	rootCmd = &cobra.Command{
		Use:   "surveyor",
		Short: "Cloud Resource Discovery Engine",
		Long: `Surveyor - Cloud Resource Discovery Engine

Surveyor walks a project's regions and services, collects every
resource it can see, and assembles a deduplicated infrastructure
inventory with cross-resource relationships.

Point it at an asset snapshot, pick the regions and services you
care about, and get a complete inventory with progress reporting.`,
		Version: version,
	}
)

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// init sets up the root command
func init() {
	rootCmd.SetVersionTemplate(`Surveyor {{.Version}} - Cloud Resource Discovery Engine
`)
}
