package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"trustgate/internal/replay"
)

var replayCmd = &cobra.Command{
	Use:   "replay <fixture.json>",
	Short: "Replay a recorded scoring session and verify expected verdicts",
	Long: `Replay a fixture of recorded cycles through the aggregation and
threshold pipeline, entirely in memory, and compare each cycle's verdict
against the fixture's expectations. Used to catch drift when scoring
weights or adaptation parameters change.`,
	Args: cobra.ExactArgs(1),
	RunE: runReplay,
}

func runReplay(cmd *cobra.Command, args []string) error {
	f, err := replay.LoadFixture(args[0])
	if err != nil {
		return err
	}

	results, mismatches := replay.Verify(f)
	summary := replay.Summarize(results)

	if f.Description != "" {
		fmt.Println(f.Description)
	}
	fmt.Printf("%-12s %-8s %-12s %8s %8s\n", "CYCLE", "SCORE", "ACTION", "DELTA", "GRADE")
	for _, r := range results {
		fmt.Printf("%-12s %-8.4f %-12s %+8.4f %8s\n", r.CycleID, r.MasterScore, r.Action, r.Delta, r.Grade)
	}
	fmt.Printf("\n%d cycles: %d approve, %d investigate, %d block (final score %.4f)\n",
		summary.TotalCycles, summary.Approves, summary.Investigates, summary.Blocks, summary.FinalScore)

	if len(mismatches) > 0 {
		for _, m := range mismatches {
			fmt.Printf("MISMATCH %s: expected %s, got %s\n", m.CycleID, m.Want, m.Got)
		}
		return fmt.Errorf("%d of %d expectations diverged", len(mismatches), len(f.ExpectedResults))
	}
	return nil
}
