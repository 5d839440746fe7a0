package resilience

// #region scorer
// Scorer combines graph connectivity and cross-source information sharing
// into one bounded resilience value.
type Scorer struct {
	// Baseline is the fixed floor every corpus starts from.
	Baseline float64
	// MICeiling normalizes total mutual information: MICeiling bits of
	// shared information count as fully connected sources.
	MICeiling float64
	// Component weights.
	MIWeight         float64
	DensityWeight    float64
	ClusteringWeight float64
}

// DefaultScorer returns the standard weighting.
func DefaultScorer() Scorer {
	return Scorer{
		Baseline:         0.2,
		MICeiling:        4.0,
		MIWeight:         0.3,
		DensityWeight:    0.3,
		ClusteringWeight: 0.1,
	}
}

// Score computes clamp(baseline + miNorm·wMI + density·wD + clustering·wC).
// Monotonically non-decreasing in every input.
func (s Scorer) Score(miTotal, density, clustering float64) float64 {
	miNorm := 0.0
	if s.MICeiling > 0 {
		miNorm = clamp01(miTotal / s.MICeiling)
	}
	v := s.Baseline +
		miNorm*s.MIWeight +
		clamp01(density)*s.DensityWeight +
		clamp01(clustering)*s.ClusteringWeight
	return clamp01(v)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// #endregion scorer
