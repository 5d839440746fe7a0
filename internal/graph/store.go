package graph

import (
	"database/sql"
	"fmt"
	"math"
	"time"
)

// #region schema
const schema = `
CREATE TABLE IF NOT EXISTS evidence_edges (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    source_key  TEXT NOT NULL,
    target_key  TEXT NOT NULL,
    relation    TEXT NOT NULL,
    weight      REAL NOT NULL DEFAULT 1.0,
    created_at  TEXT NOT NULL,
    updated_at  TEXT NOT NULL,
    UNIQUE(source_key, target_key, relation)
);
CREATE INDEX IF NOT EXISTS idx_edges_source ON evidence_edges(source_key);
CREATE INDEX IF NOT EXISTS idx_edges_target ON evidence_edges(target_key);
`

// #endregion schema

// #region store
// Store persists built edge sets across cycles for audit and inspection.
type Store struct {
	db *sql.DB
}

// NewStore creates tables and returns a Store.
func NewStore(db *sql.DB) (*Store, error) {
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("graph schema: %w", err)
	}
	return &Store{db: db}, nil
}

// #endregion store

// #region save
// SaveGraph upserts every edge of a built graph. Existing rows keep their
// created_at; re-observed edges only refresh updated_at.
func (s *Store) SaveGraph(g *Graph, now time.Time) error {
	nowStr := now.UTC().Format(time.RFC3339)
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	for _, e := range g.Edges() {
		_, err := tx.Exec(
			`INSERT INTO evidence_edges (source_key, target_key, relation, weight, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?)
			 ON CONFLICT(source_key, target_key, relation) DO UPDATE SET
			   weight = excluded.weight,
			   updated_at = excluded.updated_at`,
			e.Source, e.Target, string(e.Relation), e.Weight, nowStr, nowStr,
		)
		if err != nil {
			return fmt.Errorf("save edge %s->%s: %w", e.Source, e.Target, err)
		}
	}
	return tx.Commit()
}

// #endregion save

// #region neighbors
// StoredEdge is one persisted edge row.
type StoredEdge struct {
	SourceKey string
	TargetKey string
	Relation  Relation
	Weight    float64
	UpdatedAt time.Time
}

// Neighbors returns persisted edges out of sourceKey ordered by target key.
func (s *Store) Neighbors(sourceKey string) ([]StoredEdge, error) {
	rows, err := s.db.Query(
		`SELECT source_key, target_key, relation, weight, updated_at
		 FROM evidence_edges WHERE source_key = ? ORDER BY target_key, relation`,
		sourceKey,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var edges []StoredEdge
	for rows.Next() {
		var e StoredEdge
		var rel, updatedAt string
		if err := rows.Scan(&e.SourceKey, &e.TargetKey, &rel, &e.Weight, &updatedAt); err != nil {
			return nil, err
		}
		e.Relation = Relation(rel)
		e.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
		edges = append(edges, e)
	}
	return edges, rows.Err()
}

// EdgeCount returns the number of persisted edges.
func (s *Store) EdgeCount() (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM evidence_edges`).Scan(&n)
	return n, err
}

// #endregion neighbors

// #region decay
// DecayAll applies exponential decay to persisted edge weights based on time
// since last observation, deleting edges that fall below 0.01. Housekeeping
// for long-running installations; the per-cycle graph is unaffected.
func (s *Store) DecayAll(halfLifeHours float64) (int64, error) {
	now := time.Now().UTC()
	halfLifeSec := halfLifeHours * 3600.0

	rows, err := s.db.Query(`SELECT id, weight, updated_at FROM evidence_edges`)
	if err != nil {
		return 0, err
	}

	type decayItem struct {
		id        int64
		newWeight float64
	}
	var updates []decayItem
	var deletes []int64

	for rows.Next() {
		var id int64
		var weight float64
		var updatedAt string
		if err := rows.Scan(&id, &weight, &updatedAt); err != nil {
			rows.Close()
			return 0, err
		}
		t, _ := time.Parse(time.RFC3339, updatedAt)
		ageSec := now.Sub(t).Seconds()
		if ageSec <= 0 {
			continue
		}
		decayed := weight * math.Exp(-ageSec*math.Ln2/halfLifeSec)
		if decayed < 0.01 {
			deletes = append(deletes, id)
		} else {
			updates = append(updates, decayItem{id, decayed})
		}
	}
	rows.Close()

	nowStr := now.Format(time.RFC3339)
	for _, u := range updates {
		if _, err := s.db.Exec(`UPDATE evidence_edges SET weight = ?, updated_at = ? WHERE id = ?`, u.newWeight, nowStr, u.id); err != nil {
			return 0, err
		}
	}
	for _, id := range deletes {
		if _, err := s.db.Exec(`DELETE FROM evidence_edges WHERE id = ?`, id); err != nil {
			return 0, err
		}
	}

	return int64(len(deletes)), nil
}

// #endregion decay
