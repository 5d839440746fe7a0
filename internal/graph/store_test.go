package graph

import (
	"database/sql"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"trustgate/internal/evidence"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestSaveGraphPersistsEdges(t *testing.T) {
	db := setupTestDB(t)
	store, err := NewStore(db)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}

	arts := []evidence.Artifact{
		art("a", evidence.KindPolicy, at(10)),
		art("b", evidence.KindPolicy, at(10)),
	}
	g := Build(arts, DefaultBuildConfig())

	if err := store.SaveGraph(g, time.Now()); err != nil {
		t.Fatalf("save graph: %v", err)
	}

	n, err := store.EdgeCount()
	if err != nil {
		t.Fatalf("edge count: %v", err)
	}
	if n != g.EdgeCount() {
		t.Fatalf("persisted %d edges, built graph has %d", n, g.EdgeCount())
	}
}

func TestSaveGraphIdempotent(t *testing.T) {
	db := setupTestDB(t)
	store, _ := NewStore(db)

	arts := []evidence.Artifact{
		art("a", evidence.KindPolicy, at(10)),
		art("b", evidence.KindPolicy, at(10)),
	}
	g := Build(arts, DefaultBuildConfig())

	if err := store.SaveGraph(g, time.Now()); err != nil {
		t.Fatal(err)
	}
	if err := store.SaveGraph(g, time.Now().Add(time.Hour)); err != nil {
		t.Fatal(err)
	}

	n, _ := store.EdgeCount()
	if n != g.EdgeCount() {
		t.Fatalf("re-save changed row count: %d vs %d", n, g.EdgeCount())
	}
}

func TestNeighborsOrdered(t *testing.T) {
	db := setupTestDB(t)
	store, _ := NewStore(db)

	arts := []evidence.Artifact{
		art("a", evidence.KindOther, at(10)),
		art("b", evidence.KindOther, at(10)),
		art("c", evidence.KindOther, at(10)),
	}
	g := Build(arts, DefaultBuildConfig())
	if err := store.SaveGraph(g, time.Now()); err != nil {
		t.Fatal(err)
	}

	edges, err := store.Neighbors("other:a")
	if err != nil {
		t.Fatal(err)
	}
	if len(edges) != 2 {
		t.Fatalf("expected 2 neighbors of other:a, got %d", len(edges))
	}
	if edges[0].TargetKey != "other:b" || edges[1].TargetKey != "other:c" {
		t.Fatalf("neighbors out of order: %+v", edges)
	}
}

func TestDecayAllDeletesStaleEdges(t *testing.T) {
	db := setupTestDB(t)
	store, _ := NewStore(db)

	// Stale edge: weight 0.05 observed 10 half-lives ago decays below 0.01.
	past := time.Now().UTC().Add(-480 * time.Hour).Format(time.RFC3339)
	if _, err := db.Exec(
		`INSERT INTO evidence_edges (source_key, target_key, relation, weight, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		"x", "y", "temporal_cluster", 0.05, past, past,
	); err != nil {
		t.Fatal(err)
	}

	// Fresh edge survives.
	arts := []evidence.Artifact{
		art("a", evidence.KindOther, at(10)),
		art("b", evidence.KindOther, at(10)),
	}
	if err := store.SaveGraph(Build(arts, DefaultBuildConfig()), time.Now()); err != nil {
		t.Fatal(err)
	}

	deleted, err := store.DecayAll(48.0)
	if err != nil {
		t.Fatalf("decay: %v", err)
	}
	if deleted != 1 {
		t.Fatalf("expected 1 stale edge deleted, got %d", deleted)
	}

	edges, _ := store.Neighbors("other:a")
	if len(edges) != 1 {
		t.Fatalf("fresh edge should survive decay, got %d", len(edges))
	}
}
