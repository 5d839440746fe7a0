package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"trustgate/internal/config"
	"trustgate/internal/graph"
	"trustgate/internal/state"
	"trustgate/internal/worm"
)

var inspectFlags struct {
	limit  int
	verify bool
}

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Show recent cycles, the current baseline, and ledger health",
	Args:  cobra.NoArgs,
	RunE:  runInspect,
}

func init() {
	f := inspectCmd.Flags()
	f.IntVar(&inspectFlags.limit, "limit", 10, "Number of recent cycles to show")
	f.BoolVar(&inspectFlags.verify, "verify", false, "Verify the WORM ledger hash chain")
}

func runInspect(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(rootFlags.configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	store, err := state.NewStore(rootFlags.dbPath)
	if err != nil {
		return fmt.Errorf("open state store: %w", err)
	}
	defer store.Close()

	baseline, ok, err := store.LoadBaseline()
	if err != nil {
		return err
	}
	if !ok {
		fmt.Println("no baseline recorded, next cycle is a cold start")
	} else {
		fmt.Printf("baseline: score %.4f, delta %+.4f, updated %s\n",
			baseline.LastScore, baseline.LastDelta, baseline.UpdatedAt.Format("2006-01-02 15:04:05"))
		fmt.Printf("base thresholds: improve=%+.4f stable=%+.4f critical=%+.4f\n",
			baseline.Base.Improve, baseline.Base.Stable, baseline.Base.Critical)
	}

	records, err := store.RecentCycles(inspectFlags.limit)
	if err != nil {
		return err
	}
	if len(records) > 0 {
		fmt.Printf("\n%-38s %-20s %-12s %8s %8s\n", "CYCLE", "RECORDED", "ACTION", "DELTA", "SCORE")
		for _, r := range records {
			fmt.Printf("%-38s %-20s %-12s %+8.4f %8.4f\n",
				r.CycleID, r.RecordedAt.Format("2006-01-02 15:04:05"), r.Action, r.Delta, r.MasterScore)
		}
	}

	gs, err := graph.NewStore(store.DB())
	if err != nil {
		return err
	}
	edges, err := gs.EdgeCount()
	if err != nil {
		return err
	}
	fmt.Printf("\ngraph: %d persisted edges\n", edges)

	if inspectFlags.verify {
		ledger, err := worm.NewSQLiteLedger(store.DB(), cfg.Ledger.KeyFile)
		if err != nil {
			return err
		}
		n, err := ledger.Len()
		if err != nil {
			return err
		}
		ok, err := ledger.VerifyChain()
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("worm ledger: chain verification FAILED (%d entries)", n)
		}
		fmt.Printf("worm ledger: %d entries, chain intact\n", n)
	}
	return nil
}
