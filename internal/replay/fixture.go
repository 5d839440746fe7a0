package replay

import (
	"encoding/json"
	"fmt"
	"os"

	"trustgate/internal/forensic"
	"trustgate/internal/rolling"
	"trustgate/internal/threshold"
)

// #region fixture-types

// Fixture is the top-level JSON structure for a replay fixture.
type Fixture struct {
	Description     string                  `json:"description"`
	StartState      FixtureStartState       `json:"start_state"`
	Config          FixtureConfig           `json:"config"`
	Cycles          []FixtureCycle          `json:"cycles"`
	ExpectedResults []FixtureExpectedResult `json:"expected_results"`
}

// FixtureStartState is the JSON-serializable initial state.
type FixtureStartState struct {
	HaveBaseline bool             `json:"have_baseline"`
	LastScore    float64          `json:"last_score"`
	Window       []rolling.Sample `json:"window"`
}

// FixtureCycle mirrors replay.Cycle with JSON tags.
type FixtureCycle struct {
	CycleID    string  `json:"cycle_id"`
	Structural float64 `json:"structural"`
	Content    float64 `json:"content"`
	Resilience float64 `json:"entropy_resilience"`
	Vector     float64 `json:"vector_magnitude"`
}

// FixtureExpectedResult captures the expected action per cycle.
type FixtureExpectedResult struct {
	CycleID string `json:"cycle_id"`
	Action  string `json:"action"`
}

// FixtureConfig bundles all sub-configs for a replay run. Zero sections
// fall back to production defaults.
type FixtureConfig struct {
	WindowCapacity int                      `json:"window_capacity"`
	Base           *threshold.Set           `json:"base_thresholds"`
	Controller     *FixtureControllerConfig `json:"controller"`
	Caps           *forensic.CapThresholds  `json:"caps"`
	Weights        *forensic.Weights        `json:"weights"`
}

// FixtureControllerConfig mirrors threshold.ControllerConfig with JSON tags.
type FixtureControllerConfig struct {
	MinSamples   int     `json:"min_samples"`
	K            float64 `json:"k"`
	WidenSigma   float64 `json:"widen_sigma"`
	TightenSigma float64 `json:"tighten_sigma"`
}

// #endregion fixture-types

// #region fixture-loader

// LoadFixture reads and parses a JSON fixture file.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture %s: %w", path, err)
	}
	var f Fixture
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse fixture %s: %w", path, err)
	}
	return &f, nil
}

// ToStartState converts a FixtureStartState to a domain StartState.
func (s *FixtureStartState) ToStartState() StartState {
	return StartState{
		HaveBaseline: s.HaveBaseline,
		LastScore:    s.LastScore,
		Window:       s.Window,
	}
}

// ToCycle converts a FixtureCycle to a domain Cycle.
func (fc *FixtureCycle) ToCycle() Cycle {
	return Cycle{
		CycleID: fc.CycleID,
		Components: forensic.Components{
			Structural: fc.Structural,
			Content:    fc.Content,
			Resilience: fc.Resilience,
			Vector:     fc.Vector,
		},
	}
}

// ToReplayConfig converts a FixtureConfig to a domain ReplayConfig, filling
// defaults for any section the fixture omits.
func (fc *FixtureConfig) ToReplayConfig() ReplayConfig {
	config := DefaultReplayConfig()
	if fc.WindowCapacity > 0 {
		config.WindowCapacity = fc.WindowCapacity
	}
	if fc.Base != nil {
		config.Base = *fc.Base
	}
	if fc.Controller != nil {
		config.ControllerConfig = threshold.ControllerConfig{
			MinSamples:   fc.Controller.MinSamples,
			K:            fc.Controller.K,
			WidenSigma:   fc.Controller.WidenSigma,
			TightenSigma: fc.Controller.TightenSigma,
		}
	}
	if fc.Caps != nil {
		config.Caps = *fc.Caps
	}
	if fc.Weights != nil {
		config.Weights = *fc.Weights
	}
	return config
}

// #endregion fixture-loader

// #region verify

// Mismatch reports one divergence between a replay run and the fixture's
// expectations.
type Mismatch struct {
	CycleID string
	Want    string
	Got     string
}

// Verify replays the fixture and compares actions against its expected
// results. An empty mismatch slice means the run matched.
func Verify(f *Fixture) ([]ReplayResult, []Mismatch) {
	cycles := make([]Cycle, 0, len(f.Cycles))
	for i := range f.Cycles {
		cycles = append(cycles, f.Cycles[i].ToCycle())
	}
	results := Replay(f.StartState.ToStartState(), cycles, f.Config.ToReplayConfig())

	expected := make(map[string]string, len(f.ExpectedResults))
	for _, e := range f.ExpectedResults {
		expected[e.CycleID] = e.Action
	}

	var mismatches []Mismatch
	for _, r := range results {
		want, ok := expected[r.CycleID]
		if !ok {
			continue
		}
		if want != string(r.Action) {
			mismatches = append(mismatches, Mismatch{CycleID: r.CycleID, Want: want, Got: string(r.Action)})
		}
	}
	return results, mismatches
}

// #endregion verify
