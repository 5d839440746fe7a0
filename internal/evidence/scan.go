package evidence

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// #region raw-record
// rawRecord is the superset of fields the heterogeneous artifact sources
// emit. Each source writes its own shape; this adapter only relies on the
// common subset and tolerates everything else.
type rawRecord struct {
	ID          string   `json:"id"`
	Kind        string   `json:"kind"`
	Timestamp   string   `json:"timestamp"`
	ContentHash string   `json:"content_hash"`
	Hash        string   `json:"hash"`
	PrevHash    string   `json:"prev_hash"`
	UUIDRefs    []string `json:"uuid_refs"`
	UUID        string   `json:"uuid"`
}

// #endregion raw-record

// #region scan-result
// ScanResult is the outcome of one corpus scan. Incomplete is set when the
// scan deadline expired before the walk finished; the partial artifact set is
// still returned and scoring degrades rather than failing.
type ScanResult struct {
	Artifacts  []Artifact
	Skipped    int
	Incomplete bool
}

// #endregion scan-result

// #region scan
// ScanDir walks root and adapts every *.json record into an Artifact.
// Malformed records are skipped with a warning. The returned set is sorted by
// (kind, id) so downstream graph and distribution computation never depends
// on filesystem iteration order.
func ScanDir(ctx context.Context, root string) (ScanResult, error) {
	var result ScanResult

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if ctx.Err() != nil {
			result.Incomplete = true
			return fs.SkipAll
		}
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), ".json") {
			return nil
		}

		artifact, perr := parseFile(path)
		if perr != nil {
			log.Printf("warning: skipping malformed artifact %s: %v", path, perr)
			result.Skipped++
			return nil
		}
		result.Artifacts = append(result.Artifacts, artifact)
		return nil
	})
	if err != nil {
		return ScanResult{}, err
	}

	sortArtifacts(result.Artifacts)
	return result, nil
}

// parseFile reads and adapts a single artifact record.
func parseFile(path string) (Artifact, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Artifact{}, err
	}
	return Adapt(data, path)
}

// Adapt converts one raw JSON record into an Artifact. The record must carry
// an id (or uuid) and a parseable timestamp; everything else is optional.
func Adapt(data []byte, source string) (Artifact, error) {
	var raw rawRecord
	if err := json.Unmarshal(data, &raw); err != nil {
		return Artifact{}, err
	}

	id := raw.ID
	if id == "" {
		id = raw.UUID
	}
	if id == "" {
		return Artifact{}, errors.New("record has no id or uuid")
	}

	ts, err := parseTimestamp(raw.Timestamp)
	if err != nil {
		return Artifact{}, err
	}

	hash := raw.ContentHash
	if hash == "" {
		hash = raw.Hash
	}

	refs := raw.UUIDRefs
	if raw.UUID != "" && raw.UUID != id {
		refs = append(refs, raw.UUID)
	}

	return Artifact{
		ID:        id,
		Kind:      ParseKind(raw.Kind),
		Hash:      hash,
		PrevHash:  raw.PrevHash,
		UUIDRefs:  refs,
		Timestamp: ts,
	}, nil
}

func parseTimestamp(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, errors.New("record has no timestamp")
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, errors.New("unparseable timestamp " + s)
}

// sortArtifacts orders by (kind, id) for deterministic downstream processing.
func sortArtifacts(arts []Artifact) {
	sort.Slice(arts, func(i, j int) bool {
		if arts[i].Kind != arts[j].Kind {
			return arts[i].Kind < arts[j].Kind
		}
		return arts[i].ID < arts[j].ID
	})
}

// #endregion scan
