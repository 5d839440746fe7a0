package graph

import (
	"regexp"
	"sort"
	"time"

	"trustgate/internal/evidence"
)

// #region relations
// Relation enumerates cross-reference edge types.
type Relation string

const (
	RelationHashChain     Relation = "hash_chain"
	RelationUUIDLink      Relation = "uuid_link"
	RelationPolicyTestMap Relation = "policy_test_map"
	RelationTemporal      Relation = "temporal_cluster"
	RelationReference     Relation = "reference"
)

// #endregion relations

// #region types
// Node is one evidence artifact in the cross-reference graph. Identity is the
// (kind, id) pair, carried as Key.
type Node struct {
	Key  string
	ID   string
	Kind evidence.Kind
	Hash string
}

// Edge is a typed link between two nodes. Duplicate edges for the same
// (source, target, relation) triple are idempotent.
type Edge struct {
	Source   string
	Target   string
	Relation Relation
	Weight   float64
}

// Graph holds the built node and edge sets.
type Graph struct {
	nodes map[string]Node
	edges map[edgeKey]Edge
}

type edgeKey struct {
	source   string
	target   string
	relation Relation
}

// #endregion types

// #region config
// BuildConfig bounds edge inference.
type BuildConfig struct {
	// TemporalBucket groups artifacts whose timestamps fall in the same
	// truncation window.
	TemporalBucket time.Duration
	// ClusterCap bounds how many nodes of one temporal bucket receive
	// pairwise edges. Buckets are sorted by node key first, so the cap is
	// deterministic.
	ClusterCap int
}

// DefaultBuildConfig returns the standard inference bounds.
func DefaultBuildConfig() BuildConfig {
	return BuildConfig{
		TemporalBucket: time.Hour,
		ClusterCap:     16,
	}
}

// #endregion config

// #region build
// testIDPattern extracts the rule identifier a test artifact certifies.
var testIDPattern = regexp.MustCompile(`^test[-_.](.+)$`)

// Build constructs the evidence graph from a sorted artifact set. All edge
// rules apply independently and their results union. Given the same artifact
// set the output is identical across runs.
func Build(artifacts []evidence.Artifact, config BuildConfig) *Graph {
	g := &Graph{
		nodes: make(map[string]Node),
		edges: make(map[edgeKey]Edge),
	}

	// Node pass: merge on (kind, id).
	for _, a := range artifacts {
		key := a.Key()
		if _, ok := g.nodes[key]; !ok {
			g.nodes[key] = Node{Key: key, ID: a.ID, Kind: a.Kind, Hash: a.ContentHash()}
		}
	}

	// Lookup indexes for the edge rules.
	byHash := make(map[string]string) // content hash → node key
	byID := make(map[string][]string) // raw id → node keys (any kind)
	policyByID := make(map[string]string)
	for _, a := range artifacts {
		key := a.Key()
		byHash[a.ContentHash()] = key
		byID[a.ID] = appendUnique(byID[a.ID], key)
		if a.Kind == evidence.KindPolicy {
			policyByID[a.ID] = key
		}
	}

	for _, a := range artifacts {
		key := a.Key()

		// hash_chain: A declares prev_hash equal to B's content hash → B→A.
		if a.PrevHash != "" {
			if prevKey, ok := byHash[a.PrevHash]; ok && prevKey != key {
				g.addEdge(prevKey, key, RelationHashChain)
			}
		}

		// uuid_link / reference: A references another artifact's id. Links
		// into the uuid registry are uuid_link; everything else is a plain
		// reference.
		for _, ref := range a.UUIDRefs {
			for _, refKey := range byID[ref] {
				if refKey == key {
					continue
				}
				rel := RelationReference
				if g.nodes[refKey].Kind == evidence.KindUUID {
					rel = RelationUUIDLink
				}
				g.addEdge(key, refKey, rel)
			}
		}

		// policy_test_map: a test certifying rule X links to policy X.
		if a.Kind == evidence.KindTest {
			if m := testIDPattern.FindStringSubmatch(a.ID); m != nil {
				if policyKey, ok := policyByID[m[1]]; ok {
					g.addEdge(key, policyKey, RelationPolicyTestMap)
				}
			}
		}
	}

	g.addTemporalClusters(artifacts, config)
	return g
}

// addTemporalClusters links all pairs within each time bucket, capped per
// cluster to avoid combinatorial blowup on dense corpora.
func (g *Graph) addTemporalClusters(artifacts []evidence.Artifact, config BuildConfig) {
	bucket := config.TemporalBucket
	if bucket <= 0 {
		bucket = time.Hour
	}
	clusterCap := config.ClusterCap
	if clusterCap <= 0 {
		clusterCap = 16
	}

	clusters := make(map[int64][]string)
	seen := make(map[string]bool)
	for _, a := range artifacts {
		key := a.Key()
		if seen[key] {
			continue
		}
		seen[key] = true
		b := a.Timestamp.UTC().Truncate(bucket).Unix()
		clusters[b] = append(clusters[b], key)
	}

	for _, members := range clusters {
		sort.Strings(members)
		if len(members) > clusterCap {
			members = members[:clusterCap]
		}
		for i := 0; i < len(members); i++ {
			for j := i + 1; j < len(members); j++ {
				g.addEdge(members[i], members[j], RelationTemporal)
			}
		}
	}
}

// addEdge inserts an edge if both endpoints exist; duplicates are no-ops.
func (g *Graph) addEdge(source, target string, rel Relation) {
	if _, ok := g.nodes[source]; !ok {
		return
	}
	if _, ok := g.nodes[target]; !ok {
		return
	}
	k := edgeKey{source: source, target: target, relation: rel}
	if _, ok := g.edges[k]; ok {
		return
	}
	g.edges[k] = Edge{Source: source, Target: target, Relation: rel, Weight: 1.0}
}

func appendUnique(keys []string, key string) []string {
	for _, k := range keys {
		if k == key {
			return keys
		}
	}
	return append(keys, key)
}

// #endregion build

// #region accessors
// NodeCount returns |V|.
func (g *Graph) NodeCount() int { return len(g.nodes) }

// EdgeCount returns the number of distinct (source, target, relation) edges.
func (g *Graph) EdgeCount() int { return len(g.edges) }

// Edges returns the edge set sorted by (source, target, relation).
func (g *Graph) Edges() []Edge {
	out := make([]Edge, 0, len(g.edges))
	for _, e := range g.edges {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Source != out[j].Source {
			return out[i].Source < out[j].Source
		}
		if out[i].Target != out[j].Target {
			return out[i].Target < out[j].Target
		}
		return out[i].Relation < out[j].Relation
	})
	return out
}

// HasEdge reports whether the exact (source, target, relation) edge exists.
func (g *Graph) HasEdge(source, target string, rel Relation) bool {
	_, ok := g.edges[edgeKey{source: source, target: target, relation: rel}]
	return ok
}

// #endregion accessors
