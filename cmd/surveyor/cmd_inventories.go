package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/cloudcarto/surveyor/inventory"
	"github.com/cloudcarto/surveyor/journal"
)

var (
	inventoriesStoreDir string
	inventoriesProject  string
	inventoriesLimit    int
	inventoriesPrune    time.Duration
)

// inventoriesCmd represents the inventories command
var inventoriesCmd = &cobra.Command{
	Use:   "inventories",
	Short: "List and prune stored inventories",
	Long: `Inspect the local inventory store: list stored discovery runs
newest-first, or prune runs older than a retention window.`,
	Example: `  surveyor inventories --store ./data                   # List stored runs
  surveyor inventories --store ./data --project demo    # One project only
  surveyor inventories --store ./data --prune 168h      # Drop runs older than a week`,
	RunE: runInventories,
}

func init() {
	rootCmd.AddCommand(inventoriesCmd)

	inventoriesCmd.Flags().StringVar(&inventoriesStoreDir, "store", "", "Directory of the inventory store (required)")
	inventoriesCmd.Flags().StringVarP(&inventoriesProject, "project", "p", "", "Only show inventories for this project")
	inventoriesCmd.Flags().IntVarP(&inventoriesLimit, "limit", "n", 20, "Maximum entries to list (0 for all)")
	inventoriesCmd.Flags().DurationVar(&inventoriesPrune, "prune", 0, "Remove inventories older than this age")

	_ = inventoriesCmd.MarkFlagRequired("store")
}

func runInventories(cmd *cobra.Command, args []string) error {
	store, err := inventory.NewStore(inventoriesStoreDir)
	if err != nil {
		return fmt.Errorf("failed to open inventory store: %w", err)
	}
	defer func() { _ = store.Close() }()

	if inventoriesPrune > 0 {
		removed, err := store.PruneOlderThan(inventoriesPrune)
		if err != nil {
			return fmt.Errorf("failed to prune inventories: %w", err)
		}
		logs, err := journal.Cleanup(inventoriesStoreDir, inventoriesPrune)
		if err != nil {
			return fmt.Errorf("failed to prune journal files: %w", err)
		}
		fmt.Printf("Pruned %d inventories and %d journal files older than %s\n", removed, logs, inventoriesPrune)
	}

	refs := store.ListInventories(inventoriesProject, inventoriesLimit)
	if len(refs) == 0 {
		fmt.Println("No inventories stored.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tPROJECT\tTIMESTAMP\tRESOURCES")
	_, _ = fmt.Fprintln(w, "--\t-------\t---------\t---------")
	for _, ref := range refs {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%d\n",
			ref.ID, ref.ProjectID, ref.Timestamp.Format(time.RFC3339), ref.TotalResources)
	}
	return w.Flush()
}
