package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"trustgate/internal/config"
	"trustgate/internal/engine"
	"trustgate/internal/graph"
	"trustgate/internal/state"
	"trustgate/internal/worm"
)

var cycleFlags struct {
	evidenceDir   string
	subscoresPath string
	reportPath    string
}

var cycleCmd = &cobra.Command{
	Use:   "cycle",
	Short: "Run one monitoring cycle and exit with the governance verdict",
	Long: `Run one full monitoring cycle: scan the evidence corpus, build the
cross-reference graph, score resilience, aggregate the master score, adapt
thresholds, and decide.

Exit codes map directly to the verdict so CI pipelines can gate on them:

  0  APPROVE      delta cleared the stable threshold
  1  INVESTIGATE  delta in the degraded band, manual review needed
  2  BLOCK        delta at or below the critical threshold
  3  structural failure (state, ledger, or scan error), not a verdict`,
	Args: cobra.NoArgs,
	RunE: runCycle,
}

func init() {
	f := cycleCmd.Flags()
	f.StringVar(&cycleFlags.evidenceDir, "evidence", "evidence", "Evidence corpus directory to scan")
	f.StringVar(&cycleFlags.subscoresPath, "subscores", "", "Path to collaborator sub-score JSON (missing degrades to zeros)")
	f.StringVarP(&cycleFlags.reportPath, "output", "o", "report.json", "Cycle report output path")
}

func runCycle(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(rootFlags.configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	store, err := state.NewStore(rootFlags.dbPath)
	if err != nil {
		return fmt.Errorf("open state store: %w", err)
	}

	graphStore, err := graph.NewStore(store.DB())
	if err != nil {
		store.Close()
		return fmt.Errorf("open graph store: %w", err)
	}
	ledger, err := worm.NewSQLiteLedger(store.DB(), cfg.Ledger.KeyFile)
	if err != nil {
		store.Close()
		return fmt.Errorf("open worm ledger: %w", err)
	}

	eng := &engine.Engine{
		Config:     cfg,
		Store:      store,
		GraphStore: graphStore,
		Ledger:     ledger,
	}
	report, decision, err := eng.RunCycle(context.Background(), engine.CycleInput{
		EvidenceDir:   cycleFlags.evidenceDir,
		SubscoresPath: cycleFlags.subscoresPath,
		ReportPath:    cycleFlags.reportPath,
	})
	store.Close()
	if err != nil {
		return err
	}

	fmt.Printf("cycle %s\n", report.ReportID)
	fmt.Printf("  score     %.4f (%s%s)\n", report.MasterScore, report.Grade, cappedSuffix(report.Capped))
	fmt.Printf("  delta     %+.4f\n", report.Delta)
	fmt.Printf("  thresholds improve=%+.4f stable=%+.4f critical=%+.4f adaptive=%v\n",
		report.Thresholds.Improve, report.Thresholds.Stable, report.Thresholds.Critical, report.Thresholds.Adaptive)
	if report.Bands.Anomaly {
		fmt.Printf("  anomaly   delta outside [%.4f, %.4f]\n", report.Bands.Lower, report.Bands.Upper)
	}
	fmt.Printf("  verdict   %s: %s\n", decision.Action, decision.Reason)

	os.Exit(decision.ExitCode)
	return nil
}

func cappedSuffix(capped bool) string {
	if capped {
		return ", capped"
	}
	return ""
}
