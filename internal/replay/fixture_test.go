package replay

import (
	"os"
	"path/filepath"
	"testing"
)

// #region fixture-tests

// TestFixture_ScoringSession loads the scoring_session fixture, runs
// Replay(), and compares each cycle's Action against the expected action.
// This is the primary regression test: if aggregation weights, cap floors,
// or adaptation parameters change, this catches drift.
func TestFixture_ScoringSession(t *testing.T) {
	fixturePath := filepath.Join("testdata", "scoring_session.json")
	f, err := LoadFixture(fixturePath)
	if err != nil {
		t.Fatalf("LoadFixture: %v", err)
	}

	results, mismatches := Verify(f)

	if len(results) != len(f.ExpectedResults) {
		t.Fatalf("expected %d results, got %d", len(f.ExpectedResults), len(results))
	}
	for _, m := range mismatches {
		t.Errorf("cycle %s: expected action=%s, got action=%s", m.CycleID, m.Want, m.Got)
	}

	// The c4 components clear every cap floor, so its score must be the
	// capped 1.0 regardless of weights.
	last := results[len(results)-1]
	if !last.Capped || last.MasterScore != 1.0 {
		t.Errorf("c4: expected capped score 1.0, got capped=%v score=%v", last.Capped, last.MasterScore)
	}
}

// TestLoadFixture_NotFound verifies error on missing file.
func TestLoadFixture_NotFound(t *testing.T) {
	_, err := LoadFixture("testdata/nonexistent.json")
	if err == nil {
		t.Fatal("expected error for missing file, got nil")
	}
}

// TestLoadFixture_Malformed verifies error on invalid JSON.
func TestLoadFixture_Malformed(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.json")
	if err := os.WriteFile(path, []byte("{not valid json}"), 0644); err != nil {
		t.Fatalf("write temp file: %v", err)
	}

	_, err := LoadFixture(path)
	if err == nil {
		t.Fatal("expected error for malformed JSON, got nil")
	}
}

// TestFixtureConfig_DefaultsWhenEmpty verifies an empty config section
// falls back to production defaults.
func TestFixtureConfig_DefaultsWhenEmpty(t *testing.T) {
	var fc FixtureConfig
	config := fc.ToReplayConfig()
	want := DefaultReplayConfig()

	if config.WindowCapacity != want.WindowCapacity {
		t.Errorf("window capacity = %d, want %d", config.WindowCapacity, want.WindowCapacity)
	}
	if config.Base != want.Base {
		t.Errorf("base = %+v, want %+v", config.Base, want.Base)
	}
	if config.Weights != want.Weights {
		t.Errorf("weights = %+v, want %+v", config.Weights, want.Weights)
	}
}

// #endregion fixture-tests
