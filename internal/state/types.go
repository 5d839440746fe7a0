package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"trustgate/internal/rolling"
	"trustgate/internal/threshold"
)

// #region baseline-file
// BaselineFile is the portable JSON shape of the persisted state, used by
// the export and import commands to move state between installations or to
// seed replay fixtures.
type BaselineFile struct {
	ExportedAt time.Time        `json:"exported_at"`
	LastDelta  float64          `json:"last_delta"`
	LastScore  float64          `json:"last_score"`
	Base       threshold.Set    `json:"base_thresholds"`
	Window     []rolling.Sample `json:"window"`
}

// #endregion baseline-file

// #region export
// ExportBaselineFile snapshots the baseline and rolling window to a JSON
// file. The write goes through a temp file and rename so a crash mid-write
// never leaves a truncated export.
func (s *Store) ExportBaselineFile(path string, windowLimit int) error {
	base, ok, err := s.LoadBaseline()
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("export: no baseline recorded yet")
	}
	window, err := s.LoadWindow(windowLimit)
	if err != nil {
		return err
	}

	bf := BaselineFile{
		ExportedAt: time.Now().UTC(),
		LastDelta:  base.LastDelta,
		LastScore:  base.LastScore,
		Base:       base.Base,
		Window:     window,
	}
	data, err := json.MarshalIndent(bf, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal baseline: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("export dir: %w", err)
	}
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write export: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("finalize export: %w", err)
	}
	return nil
}

// #endregion export

// #region import
// LoadBaselineFile reads an exported baseline from disk. A missing file is
// a cold start, reported via ok=false.
func LoadBaselineFile(path string) (BaselineFile, bool, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return BaselineFile{}, false, nil
	}
	if err != nil {
		return BaselineFile{}, false, fmt.Errorf("read baseline file: %w", err)
	}
	var bf BaselineFile
	if err := json.Unmarshal(data, &bf); err != nil {
		return BaselineFile{}, false, fmt.Errorf("parse baseline file: %w", err)
	}
	return bf, true, nil
}

// ImportBaselineFile replaces the store's baseline and window with the
// contents of an exported file. Window samples are replayed into
// cycle_history as synthetic records so LoadWindow sees them.
func (s *Store) ImportBaselineFile(path string) error {
	bf, ok, err := LoadBaselineFile(path)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("import: %s does not exist", path)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM cycle_history`); err != nil {
		return fmt.Errorf("clear history: %w", err)
	}
	for i, sample := range bf.Window {
		_, err := tx.Exec(
			`INSERT INTO cycle_history (cycle_id, recorded_at, delta, master_score, action, reason)
			 VALUES (?, ?, ?, ?, 'IMPORTED', NULL)`,
			fmt.Sprintf("import-%d", i),
			sample.Timestamp.UTC().Format(time.RFC3339Nano),
			sample.Magnitude, 0.0,
		)
		if err != nil {
			return fmt.Errorf("replay sample %d: %w", i, err)
		}
	}
	_, err = tx.Exec(
		`INSERT INTO baseline (id, last_delta, last_score, t_improve, t_stable, t_critical, updated_at)
		 VALUES (1, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   last_delta = excluded.last_delta,
		   last_score = excluded.last_score,
		   t_improve  = excluded.t_improve,
		   t_stable   = excluded.t_stable,
		   t_critical = excluded.t_critical,
		   updated_at = excluded.updated_at`,
		bf.LastDelta, bf.LastScore, bf.Base.Improve, bf.Base.Stable, bf.Base.Critical,
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("import baseline: %w", err)
	}
	return tx.Commit()
}

// #endregion import
