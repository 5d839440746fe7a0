package replay

import (
	"trustgate/internal/forensic"
	"trustgate/internal/governance"
	"trustgate/internal/rolling"
	"trustgate/internal/threshold"
)

// #region types
// Cycle is a single recorded monitoring cycle for replay: the component
// scores the collaborators produced at the time.
type Cycle struct {
	CycleID    string
	Components forensic.Components
}

// ReplayConfig bundles the aggregation and adaptation configs for a run.
type ReplayConfig struct {
	WindowCapacity   int
	Base             threshold.Set
	ControllerConfig threshold.ControllerConfig
	Caps             forensic.CapThresholds
	Weights          forensic.Weights
	Grades           forensic.GradeTable
}

// DefaultReplayConfig returns the production defaults for every stage.
func DefaultReplayConfig() ReplayConfig {
	return ReplayConfig{
		WindowCapacity:   rolling.DefaultCapacity,
		Base:             threshold.DefaultBase(),
		ControllerConfig: threshold.DefaultControllerConfig(),
		Caps:             forensic.DefaultCapThresholds(),
		Weights:          forensic.DefaultWeights(),
		Grades:           forensic.DefaultGradeTable(),
	}
}

// ReplayResult captures the outcome of replaying one cycle through the
// aggregate, adapt, and decide stages.
type ReplayResult struct {
	CycleID     string
	MasterScore float64
	Capped      bool
	Grade       string
	Delta       float64
	Thresholds  threshold.Set
	Bands       threshold.Bands
	Action      governance.Action
	Reason      string
}

// ReplaySummary provides aggregate stats from a replay run.
type ReplaySummary struct {
	TotalCycles  int
	Approves     int
	Investigates int
	Blocks       int
	FinalScore   float64
}

// StartState seeds the replay: the previous master score and the delta
// window as they stood before the first replayed cycle.
type StartState struct {
	HaveBaseline bool
	LastScore    float64
	Window       []rolling.Sample
}

// #endregion types

// #region replay
// Replay iterates through cycles, applying the full pipeline per cycle:
// aggregate, delta, adapt thresholds, decide. Operates entirely in-memory;
// no store, ledger, or filesystem is touched, so results depend only on the
// fixture.
func Replay(start StartState, cycles []Cycle, config ReplayConfig) []ReplayResult {
	results := make([]ReplayResult, 0, len(cycles))

	agg := forensic.NewAggregator(config.Caps, config.Weights, config.Grades)
	controller := threshold.NewController(config.ControllerConfig)
	tracker := rolling.NewTrackerFrom(config.WindowCapacity, start.Window)

	lastScore := start.LastScore
	haveBaseline := start.HaveBaseline

	for _, c := range cycles {
		aggResult := agg.Aggregate(c.Components)

		delta := 0.0
		if haveBaseline {
			delta = aggResult.Score - lastScore
		}
		tracker.Record(rolling.Sample{Magnitude: delta})

		thresholds := controller.Compute(tracker, config.Base)
		bands := threshold.EvaluateBands(delta, tracker.Mean(), tracker.StdDev())
		decision := governance.Decide(delta, thresholds)

		lastScore = aggResult.Score
		haveBaseline = true

		results = append(results, ReplayResult{
			CycleID:     c.CycleID,
			MasterScore: aggResult.Score,
			Capped:      aggResult.Capped,
			Grade:       aggResult.Grade,
			Delta:       delta,
			Thresholds:  thresholds,
			Bands:       bands,
			Action:      decision.Action,
			Reason:      decision.Reason,
		})
	}

	return results
}

// Summarize computes aggregate stats from replay results.
func Summarize(results []ReplayResult) ReplaySummary {
	var s ReplaySummary
	s.TotalCycles = len(results)
	for _, r := range results {
		switch r.Action {
		case governance.ActionApprove:
			s.Approves++
		case governance.ActionInvestigate:
			s.Investigates++
		case governance.ActionBlock:
			s.Blocks++
		}
		s.FinalScore = r.MasterScore
	}
	return s
}

// #endregion replay
