package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"trustgate/internal/governance"
)

// version is set at build time via -ldflags.
var version = "dev"

var rootFlags struct {
	configPath string
	dbPath     string
}

var rootCmd = &cobra.Command{
	Use:   "trustgate",
	Short: "Adaptive trust scoring and governance for verification pipelines",
	Long: "Trustgate scores verification cycles by cross-referencing evidence\n" +
		"artifacts, adapts its decision thresholds to observed volatility, and\n" +
		"emits APPROVE, INVESTIGATE, or BLOCK with matching exit codes.",
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&rootFlags.configPath, "config", "", "Path to YAML config (default: built-in defaults)")
	pf.StringVar(&rootFlags.dbPath, "db", "trustgate.db", "State database path")

	rootCmd.AddCommand(cycleCmd)
	rootCmd.AddCommand(replayCmd)
	rootCmd.AddCommand(inspectCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.Version = version
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(governance.ExitStructuralFailure)
	}
}
