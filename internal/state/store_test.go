package state

import (
	"math"
	"path/filepath"
	"testing"
	"time"

	"trustgate/internal/threshold"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(":memory:")
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestLoadBaselineColdStart(t *testing.T) {
	s := setupTestStore(t)

	_, ok, err := s.LoadBaseline()
	if err != nil {
		t.Fatalf("LoadBaseline: %v", err)
	}
	if ok {
		t.Errorf("expected no baseline on a fresh store")
	}
}

func TestCommitCycleAdvancesBaseline(t *testing.T) {
	s := setupTestStore(t)
	base := threshold.DefaultBase()

	rec := CycleRecord{
		CycleID:     "c-1",
		RecordedAt:  time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
		Delta:       0.04,
		MasterScore: 0.88,
		Action:      "APPROVE",
		Reason:      "delta above improve threshold",
	}
	if err := s.CommitCycle(rec, base); err != nil {
		t.Fatalf("CommitCycle: %v", err)
	}

	b, ok, err := s.LoadBaseline()
	if err != nil {
		t.Fatalf("LoadBaseline: %v", err)
	}
	if !ok {
		t.Fatalf("expected baseline after commit")
	}
	if b.LastDelta != 0.04 || b.LastScore != 0.88 {
		t.Errorf("baseline = (%v, %v), want (0.04, 0.88)", b.LastDelta, b.LastScore)
	}
	if b.Base != base {
		t.Errorf("base thresholds = %+v, want %+v", b.Base, base)
	}
}

func TestCommitCycleRejectsDuplicateID(t *testing.T) {
	s := setupTestStore(t)
	base := threshold.DefaultBase()

	rec := CycleRecord{CycleID: "c-dup", RecordedAt: time.Now().UTC(), Action: "APPROVE"}
	if err := s.CommitCycle(rec, base); err != nil {
		t.Fatalf("first commit: %v", err)
	}
	if err := s.CommitCycle(rec, base); err == nil {
		t.Errorf("expected unique constraint error on duplicate cycle_id")
	}
}

func TestLoadWindowOrderAndLimit(t *testing.T) {
	s := setupTestStore(t)
	base := threshold.DefaultBase()

	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 8; i++ {
		rec := CycleRecord{
			CycleID:    string(rune('a' + i)),
			RecordedAt: start.Add(time.Duration(i) * time.Hour),
			Delta:      float64(i) * 0.01,
			Action:     "APPROVE",
		}
		if err := s.CommitCycle(rec, base); err != nil {
			t.Fatalf("commit %d: %v", i, err)
		}
	}

	// Limit 5 keeps deltas 0.03..0.07, oldest first.
	window, err := s.LoadWindow(5)
	if err != nil {
		t.Fatalf("LoadWindow: %v", err)
	}
	if len(window) != 5 {
		t.Fatalf("window length = %d, want 5", len(window))
	}
	for i, sample := range window {
		want := float64(i+3) * 0.01
		if math.Abs(sample.Magnitude-want) > 1e-12 {
			t.Errorf("window[%d] = %v, want %v", i, sample.Magnitude, want)
		}
	}
	if !window[0].Timestamp.Before(window[4].Timestamp) {
		t.Errorf("expected oldest-first ordering")
	}
}

func TestRecentCyclesNewestFirst(t *testing.T) {
	s := setupTestStore(t)
	base := threshold.DefaultBase()

	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		rec := CycleRecord{
			CycleID:    string(rune('x' + i)),
			RecordedAt: start.Add(time.Duration(i) * time.Minute),
			Action:     "APPROVE",
			ReportJSON: `{"i":` + string(rune('0'+i)) + `}`,
		}
		if err := s.CommitCycle(rec, base); err != nil {
			t.Fatalf("commit %d: %v", i, err)
		}
	}

	records, err := s.RecentCycles(2)
	if err != nil {
		t.Fatalf("RecentCycles: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("records = %d, want 2", len(records))
	}
	if records[0].CycleID != "z" || records[1].CycleID != "y" {
		t.Errorf("order = %s, %s; want z, y", records[0].CycleID, records[1].CycleID)
	}
	if records[0].ReportJSON == "" {
		t.Errorf("report_json not round-tripped")
	}
}

func TestExportImportRoundTrip(t *testing.T) {
	src := setupTestStore(t)
	base := threshold.Set{Improve: 0.06, Stable: -0.02, Critical: -0.09}

	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 4; i++ {
		rec := CycleRecord{
			CycleID:     string(rune('a' + i)),
			RecordedAt:  start.Add(time.Duration(i) * time.Hour),
			Delta:       float64(i) * 0.02,
			MasterScore: 0.5 + float64(i)*0.1,
			Action:      "APPROVE",
		}
		if err := src.CommitCycle(rec, base); err != nil {
			t.Fatalf("commit %d: %v", i, err)
		}
	}

	path := filepath.Join(t.TempDir(), "baseline.json")
	if err := src.ExportBaselineFile(path, 10); err != nil {
		t.Fatalf("ExportBaselineFile: %v", err)
	}

	dst := setupTestStore(t)
	if err := dst.ImportBaselineFile(path); err != nil {
		t.Fatalf("ImportBaselineFile: %v", err)
	}

	b, ok, err := dst.LoadBaseline()
	if err != nil || !ok {
		t.Fatalf("LoadBaseline after import: ok=%v err=%v", ok, err)
	}
	if b.LastDelta != 0.06 || b.LastScore != 0.8 {
		t.Errorf("imported baseline = (%v, %v), want (0.06, 0.8)", b.LastDelta, b.LastScore)
	}
	if b.Base != base {
		t.Errorf("imported base thresholds = %+v, want %+v", b.Base, base)
	}

	window, err := dst.LoadWindow(10)
	if err != nil {
		t.Fatalf("LoadWindow after import: %v", err)
	}
	if len(window) != 4 {
		t.Errorf("imported window length = %d, want 4", len(window))
	}
}

func TestLoadBaselineFileMissing(t *testing.T) {
	_, ok, err := LoadBaselineFile(filepath.Join(t.TempDir(), "nope.json"))
	if err != nil {
		t.Fatalf("LoadBaselineFile: %v", err)
	}
	if ok {
		t.Errorf("missing file should report ok=false")
	}
}
