package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"trustgate/internal/config"
	"trustgate/internal/entropy"
	"trustgate/internal/evidence"
	"trustgate/internal/forensic"
	"trustgate/internal/governance"
	"trustgate/internal/graph"
	"trustgate/internal/resilience"
	"trustgate/internal/rolling"
	"trustgate/internal/state"
	"trustgate/internal/threshold"
	"trustgate/internal/worm"
)

// #region report
// ResilienceMetrics is the graph-and-entropy slice of a report.
type ResilienceMetrics struct {
	TotalMI    float64 `json:"mi_total"`
	Density    float64 `json:"density"`
	AvgDegree  float64 `json:"avg_degree"`
	Clustering float64 `json:"clustering"`
	Score      float64 `json:"resilience_score"`
}

// EvidenceSummary records what the scan saw.
type EvidenceSummary struct {
	Artifacts  int  `json:"artifacts"`
	Skipped    int  `json:"skipped"`
	Incomplete bool `json:"incomplete"`
	Nodes      int  `json:"graph_nodes"`
	Edges      int  `json:"graph_edges"`
}

// Report is the full JSON output of one monitoring cycle. It is written
// atomically to disk and its bytes are what the WORM ledger commits to.
type Report struct {
	ReportID    string              `json:"report_id"`
	Timestamp   time.Time           `json:"timestamp"`
	Delta       float64             `json:"delta_magnitude"`
	Action      governance.Action   `json:"governance_action"`
	Reason      string              `json:"reason"`
	Thresholds  threshold.Set       `json:"adaptive_thresholds"`
	Bands       threshold.Bands     `json:"bands"`
	MasterScore float64             `json:"master_score"`
	Capped      bool                `json:"capped"`
	Grade       string              `json:"grade"`
	Components  forensic.Components `json:"components"`
	Resilience  ResilienceMetrics   `json:"resilience_metrics"`
	Evidence    EvidenceSummary     `json:"evidence"`
}

// #endregion report

// #region engine
// Engine runs the scoring pipeline. All collaborators are injected so the
// replay harness can run cycles against in-memory stores.
type Engine struct {
	Config     *config.Config
	Store      *state.Store
	GraphStore *graph.Store
	Ledger     worm.Ledger
}

// CycleInput names the external inputs of one cycle.
type CycleInput struct {
	// EvidenceDir is the root the evidence scan walks.
	EvidenceDir string
	// SubscoresPath points at the collaborator-produced sub-score file.
	// Empty or missing means the collaborators have not reported; the
	// engine degrades to zero sub-scores rather than failing.
	SubscoresPath string
	// ReportPath is where the cycle report is written. Empty skips the
	// file write (replay mode).
	ReportPath string
	// Now pins the cycle clock for deterministic replay. Zero means
	// time.Now.
	Now time.Time
}

// subscores is the collaborator file shape: structural, content, and
// vector scores produced by the upstream verification passes.
type subscores struct {
	Structural float64 `json:"structural"`
	Content    float64 `json:"content"`
	Vector     float64 `json:"vector_magnitude"`
}

// #endregion engine

// #region run
// RunCycle executes one full monitoring cycle: scan, graph, entropy,
// aggregate, adapt thresholds, decide, commit. The returned report and
// decision are valid whenever err is nil; a non-nil err is a structural
// failure, never a governance outcome.
func (e *Engine) RunCycle(ctx context.Context, in CycleInput) (Report, governance.Decision, error) {
	now := in.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}

	baseline, haveBaseline, err := e.Store.LoadBaseline()
	if err != nil {
		return Report{}, governance.Decision{}, fmt.Errorf("load baseline: %w", err)
	}
	base := e.Config.Thresholds.Base
	if haveBaseline {
		base = baseline.Base
	}

	// Evidence scan runs under its own timeout; expiry degrades to a
	// partial corpus, it never aborts the cycle.
	scanCtx := ctx
	if e.Config.Scan.Timeout > 0 {
		var cancel context.CancelFunc
		scanCtx, cancel = context.WithTimeout(ctx, e.Config.Scan.Timeout)
		defer cancel()
	}
	scan, err := evidence.ScanDir(scanCtx, in.EvidenceDir)
	if err != nil {
		return Report{}, governance.Decision{}, fmt.Errorf("scan evidence: %w", err)
	}
	if scan.Incomplete {
		log.Printf("evidence scan incomplete: deadline expired under %s", in.EvidenceDir)
	}

	g := graph.Build(scan.Artifacts, graph.BuildConfig{
		TemporalBucket: e.Config.Graph.TemporalBucket,
		ClusterCap:     e.Config.Graph.ClusterCap,
	})
	metrics := g.ComputeMetrics()

	if e.GraphStore != nil {
		if _, err := e.GraphStore.DecayAll(e.Config.Graph.DecayHalfLife); err != nil {
			return Report{}, governance.Decision{}, fmt.Errorf("decay graph: %w", err)
		}
		if err := e.GraphStore.SaveGraph(g, now); err != nil {
			return Report{}, governance.Decision{}, fmt.Errorf("persist graph: %w", err)
		}
	}

	entropyReport := entropy.Analyze(scan.Artifacts, e.Config.Graph.TemporalBucket)

	scorer := resilience.Scorer{
		Baseline:         e.Config.Resilience.Baseline,
		MICeiling:        e.Config.Resilience.MICeiling,
		MIWeight:         e.Config.Resilience.MIWeight,
		DensityWeight:    e.Config.Resilience.DensityWeight,
		ClusteringWeight: e.Config.Resilience.ClusteringWeight,
	}
	resScore := scorer.Score(entropyReport.TotalMI, metrics.Density, metrics.Clustering)

	components := forensic.Components{
		Structural: 0,
		Content:    0,
		Resilience: resScore,
		Vector:     0,
	}
	if sub, ok := loadSubscores(in.SubscoresPath); ok {
		components.Structural = sub.Structural
		components.Content = sub.Content
		components.Vector = sub.Vector
	} else {
		log.Printf("no sub-score report at %q, degrading to zero sub-scores", in.SubscoresPath)
	}

	agg := forensic.NewAggregator(e.Config.Forensic.Caps, e.Config.Forensic.Weights, e.Config.Forensic.Grades)
	result := agg.Aggregate(components)

	// Delta is this cycle's master score against the previous cycle's.
	// The very first cycle has nothing to compare against and scores a
	// neutral zero delta.
	delta := 0.0
	if haveBaseline {
		delta = result.Score - baseline.LastScore
	}

	window, err := e.Store.LoadWindow(e.Config.Window.Capacity)
	if err != nil {
		return Report{}, governance.Decision{}, fmt.Errorf("load window: %w", err)
	}
	tracker := rolling.NewTrackerFrom(e.Config.Window.Capacity, window)
	tracker.Record(rolling.Sample{Timestamp: now, Magnitude: delta})

	controller := threshold.NewController(threshold.ControllerConfig{
		MinSamples:   e.Config.Thresholds.MinSamples,
		K:            e.Config.Thresholds.K,
		WidenSigma:   e.Config.Thresholds.WidenSigma,
		TightenSigma: e.Config.Thresholds.TightenSigma,
	})
	thresholds := controller.Compute(tracker, base)
	bands := threshold.EvaluateBands(delta, tracker.Mean(), tracker.StdDev())
	decision := governance.Decide(delta, thresholds)

	report := Report{
		ReportID:    uuid.NewString(),
		Timestamp:   now,
		Delta:       delta,
		Action:      decision.Action,
		Reason:      decision.Reason,
		Thresholds:  thresholds,
		Bands:       bands,
		MasterScore: result.Score,
		Capped:      result.Capped,
		Grade:       result.Grade,
		Components:  components,
		Resilience: ResilienceMetrics{
			TotalMI:    entropyReport.TotalMI,
			Density:    metrics.Density,
			AvgDegree:  metrics.AvgDegree,
			Clustering: metrics.Clustering,
			Score:      resScore,
		},
		Evidence: EvidenceSummary{
			Artifacts:  len(scan.Artifacts),
			Skipped:    scan.Skipped,
			Incomplete: scan.Incomplete,
			Nodes:      g.NodeCount(),
			Edges:      g.EdgeCount(),
		},
	}

	payload, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return Report{}, governance.Decision{}, fmt.Errorf("marshal report: %w", err)
	}
	if in.ReportPath != "" {
		if err := writeAtomic(in.ReportPath, payload); err != nil {
			return Report{}, governance.Decision{}, fmt.Errorf("write report: %w", err)
		}
	}

	// The ledger append and state commit are the cycle's durability
	// boundary. Failure here is structural: the decision was computed but
	// cannot be attested, so the caller must not act on it.
	receipt, err := e.Ledger.Append(worm.Record{CycleID: report.ReportID, Payload: payload})
	if err != nil {
		return Report{}, governance.Decision{}, fmt.Errorf("worm append: %w", err)
	}
	log.Printf("worm committed entry %s (seq %d)", receipt.EntryID, receipt.Seq)

	err = e.Store.CommitCycle(state.CycleRecord{
		CycleID:     report.ReportID,
		RecordedAt:  now,
		Delta:       delta,
		MasterScore: result.Score,
		Action:      string(decision.Action),
		Reason:      decision.Reason,
		ReportJSON:  string(payload),
	}, base)
	if err != nil {
		return Report{}, governance.Decision{}, fmt.Errorf("commit cycle: %w", err)
	}

	return report, decision, nil
}

// #endregion run

// #region helpers
func loadSubscores(path string) (subscores, bool) {
	if path == "" {
		return subscores{}, false
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return subscores{}, false
	}
	var sub subscores
	if err := json.Unmarshal(data, &sub); err != nil {
		log.Printf("malformed sub-score report %q: %v", path, err)
		return subscores{}, false
	}
	return sub, true
}

func writeAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// #endregion helpers
