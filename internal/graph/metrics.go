package graph

// #region metrics
// Metrics are the derived connectivity measures of one built graph.
type Metrics struct {
	Density    float64 `json:"density"`
	AvgDegree  float64 `json:"avg_degree"`
	Clustering float64 `json:"clustering"`
}

// ComputeMetrics derives density, average degree, and the mean clustering
// coefficient. Direction and relation are ignored: all measures run over the
// set of distinct unordered node pairs with at least one edge, which keeps
// density in [0, 1] even when a pair carries several relations.
func (g *Graph) ComputeMetrics() Metrics {
	n := len(g.nodes)
	if n < 2 {
		return Metrics{}
	}

	adjacency := g.undirectedAdjacency()
	pairs := 0
	for _, neighbors := range adjacency {
		pairs += len(neighbors)
	}
	pairs /= 2

	density := 2.0 * float64(pairs) / float64(n*(n-1))
	avgDegree := 2.0 * float64(pairs) / float64(n)

	return Metrics{
		Density:    density,
		AvgDegree:  avgDegree,
		Clustering: g.avgClustering(adjacency),
	}
}

// undirectedAdjacency collapses the typed edge set into neighbor sets.
func (g *Graph) undirectedAdjacency() map[string]map[string]bool {
	adj := make(map[string]map[string]bool, len(g.nodes))
	for key := range g.nodes {
		adj[key] = make(map[string]bool)
	}
	for k := range g.edges {
		if k.source == k.target {
			continue
		}
		adj[k.source][k.target] = true
		adj[k.target][k.source] = true
	}
	return adj
}

// avgClustering averages, over nodes with degree >= 2, the fraction of
// neighbor pairs that are themselves connected.
func (g *Graph) avgClustering(adj map[string]map[string]bool) float64 {
	var sum float64
	counted := 0

	for _, neighbors := range adj {
		deg := len(neighbors)
		if deg < 2 {
			continue
		}
		keys := make([]string, 0, deg)
		for k := range neighbors {
			keys = append(keys, k)
		}
		linked := 0
		for i := 0; i < len(keys); i++ {
			for j := i + 1; j < len(keys); j++ {
				if adj[keys[i]][keys[j]] {
					linked++
				}
			}
		}
		possible := deg * (deg - 1) / 2
		sum += float64(linked) / float64(possible)
		counted++
	}

	if counted == 0 {
		return 0
	}
	return sum / float64(counted)
}

// #endregion metrics
