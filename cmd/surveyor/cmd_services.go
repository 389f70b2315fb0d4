package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/cloudcarto/surveyor/providers/gcp"
	"github.com/cloudcarto/surveyor/scanner"
)

// servicesCmd represents the services command
var servicesCmd = &cobra.Command{
	Use:   "services",
	Short: "List available service scanners",
	Long: `List every service scanner surveyor ships with, the resource
types each one discovers, and whether the service is global or
scanned per region.`,
	RunE: runServices,
}

func init() {
	rootCmd.AddCommand(servicesCmd)
}

func runServices(cmd *cobra.Command, args []string) error {
	// An empty snapshot provides client stubs for every service.
	registry := scanner.NewRegistry()
	gcp.RegisterAll(registry, (&gcp.Snapshot{}).Clients())

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "SERVICE\tSCOPE\tRESOURCE TYPES")
	_, _ = fmt.Fprintln(w, "-------\t-----\t--------------")

	for _, name := range registry.ServiceNames() {
		s, _ := registry.Get(name)
		scope := "regional"
		if s.IsGlobal() {
			scope = "global"
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\n", name, scope, strings.Join(s.ResourceTypes(), ", "))
	}

	return w.Flush()
}
