package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"trustgate/internal/state"
)

var importCmd = &cobra.Command{
	Use:   "import <baseline.json>",
	Short: "Replace local state with an exported baseline file",
	Long: `Import a baseline previously written by the export command. The
local rolling window and baseline are replaced; cycle history beyond the
imported window is discarded. The WORM ledger is never touched.`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

func runImport(cmd *cobra.Command, args []string) error {
	store, err := state.NewStore(rootFlags.dbPath)
	if err != nil {
		return fmt.Errorf("open state store: %w", err)
	}
	defer store.Close()

	if err := store.ImportBaselineFile(args[0]); err != nil {
		return err
	}
	fmt.Printf("imported baseline from %s\n", args[0])
	return nil
}
