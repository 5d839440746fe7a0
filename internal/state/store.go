package state

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"trustgate/internal/rolling"
	"trustgate/internal/threshold"
)

// #region schema
const schema = `
CREATE TABLE IF NOT EXISTS cycle_history (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	cycle_id      TEXT NOT NULL UNIQUE,
	recorded_at   TEXT NOT NULL,
	delta         REAL NOT NULL,
	master_score  REAL NOT NULL,
	action        TEXT NOT NULL,
	reason        TEXT,
	report_json   TEXT
);
CREATE INDEX IF NOT EXISTS idx_cycles_recorded ON cycle_history(recorded_at);

CREATE TABLE IF NOT EXISTS baseline (
	id          INTEGER PRIMARY KEY CHECK (id = 1),
	last_delta  REAL NOT NULL,
	last_score  REAL NOT NULL,
	t_improve   REAL NOT NULL,
	t_stable    REAL NOT NULL,
	t_critical  REAL NOT NULL,
	updated_at  TEXT NOT NULL
);
`

// #endregion schema

// #region types
// Baseline is the persisted anchor for the next cycle: the previous delta
// and master score plus the static base thresholds.
type Baseline struct {
	LastDelta float64
	LastScore float64
	Base      threshold.Set
	UpdatedAt time.Time
}

// CycleRecord is one completed monitoring cycle, which doubles as one
// rolling-window sample and as the provenance trail for replay.
type CycleRecord struct {
	CycleID     string
	RecordedAt  time.Time
	Delta       float64
	MasterScore float64
	Action      string
	Reason      string
	ReportJSON  string
}

// #endregion types

// #region store
// Store manages cycle state in SQLite. State is read once at cycle start and
// written once at cycle end; SQLite's transactional writes give the
// no-partial-visibility guarantee.
type Store struct {
	db *sql.DB
}

// NewStore opens a SQLite database and runs migrations.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for use by other packages (graph and
// ledger share the same database file).
func (s *Store) DB() *sql.DB {
	return s.db
}

// #endregion store

// #region baseline
// LoadBaseline reads the persisted baseline. A missing row is a cold start,
// reported via ok=false rather than an error.
func (s *Store) LoadBaseline() (Baseline, bool, error) {
	var b Baseline
	var updatedAt string
	err := s.db.QueryRow(
		`SELECT last_delta, last_score, t_improve, t_stable, t_critical, updated_at
		 FROM baseline WHERE id = 1`,
	).Scan(&b.LastDelta, &b.LastScore, &b.Base.Improve, &b.Base.Stable, &b.Base.Critical, &updatedAt)
	if err == sql.ErrNoRows {
		return Baseline{}, false, nil
	}
	if err != nil {
		return Baseline{}, false, fmt.Errorf("load baseline: %w", err)
	}
	b.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedAt)
	return b, true, nil
}

// #endregion baseline

// #region commit
// CommitCycle inserts the cycle record and advances the baseline in one
// transaction.
func (s *Store) CommitCycle(rec CycleRecord, base threshold.Set) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		`INSERT INTO cycle_history (cycle_id, recorded_at, delta, master_score, action, reason, report_json)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.CycleID, rec.RecordedAt.UTC().Format(time.RFC3339Nano),
		rec.Delta, rec.MasterScore, rec.Action, nullIfEmpty(rec.Reason), nullIfEmpty(rec.ReportJSON),
	)
	if err != nil {
		return fmt.Errorf("insert cycle: %w", err)
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
		rec.Delta, rec.MasterScore, base.Improve, base.Stable, base.Critical,
		rec.RecordedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("update baseline: %w", err)
	}

	return tx.Commit()
}

// #endregion commit

// #region window
// LoadWindow returns the most recent limit delta samples, oldest first,
// ready to seed the rolling tracker.
func (s *Store) LoadWindow(limit int) ([]rolling.Sample, error) {
	rows, err := s.db.Query(
		`SELECT recorded_at, delta FROM
		   (SELECT recorded_at, delta FROM cycle_history ORDER BY recorded_at DESC, id DESC LIMIT ?)
		 ORDER BY recorded_at ASC`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("load window: %w", err)
	}
	defer rows.Close()

	var samples []rolling.Sample
	for rows.Next() {
		var recordedAt string
		var s rolling.Sample
		if err := rows.Scan(&recordedAt, &s.Magnitude); err != nil {
			return nil, fmt.Errorf("scan sample: %w", err)
		}
		s.Timestamp, _ = time.Parse(time.RFC3339Nano, recordedAt)
		samples = append(samples, s)
	}
	return samples, rows.Err()
}

// #endregion window

// #region history
// RecentCycles returns the most recent cycle records, newest first.
func (s *Store) RecentCycles(limit int) ([]CycleRecord, error) {
	rows, err := s.db.Query(
		`SELECT cycle_id, recorded_at, delta, master_score, action, reason, report_json
		 FROM cycle_history ORDER BY recorded_at DESC, id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("recent cycles: %w", err)
	}
	defer rows.Close()

	var records []CycleRecord
	for rows.Next() {
		var rec CycleRecord
		var recordedAt string
		var reason, reportJSON sql.NullString
		if err := rows.Scan(&rec.CycleID, &recordedAt, &rec.Delta, &rec.MasterScore,
			&rec.Action, &reason, &reportJSON); err != nil {
			return nil, fmt.Errorf("scan cycle: %w", err)
		}
		rec.RecordedAt, _ = time.Parse(time.RFC3339Nano, recordedAt)
		rec.Reason = reason.String
		rec.ReportJSON = reportJSON.String
		records = append(records, rec)
	}
	return records, rows.Err()
}

// #endregion history

// #region helpers
func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// #endregion helpers
