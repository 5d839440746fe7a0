package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"trustgate/internal/config"
	"trustgate/internal/state"
)

var exportFlags struct {
	output string
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the baseline and rolling window to a portable JSON file",
	Args:  cobra.NoArgs,
	RunE:  runExport,
}

func init() {
	exportCmd.Flags().StringVarP(&exportFlags.output, "output", "o", "baseline.json", "Export file path")
}

func runExport(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(rootFlags.configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	store, err := state.NewStore(rootFlags.dbPath)
	if err != nil {
		return fmt.Errorf("open state store: %w", err)
	}
	defer store.Close()

	if err := store.ExportBaselineFile(exportFlags.output, cfg.Window.Capacity); err != nil {
		return err
	}
	fmt.Printf("exported baseline to %s\n", exportFlags.output)
	return nil
}
