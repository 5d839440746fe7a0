package forensic

import "sort"

// #region components
// Components are the four sub-scores one aggregation run combines. Each is
// expected in [0, 1]; out-of-range inputs are clamped before weighting.
type Components struct {
	Structural float64 `json:"structural"`
	Content    float64 `json:"content"`
	Resilience float64 `json:"entropy_resilience"`
	Vector     float64 `json:"vector_magnitude"`
}

// CapThresholds are the floors that, when all four are met, cap the master
// score at exactly 1.0.
type CapThresholds struct {
	Structural float64 `yaml:"structural"`
	Content    float64 `yaml:"content"`
	Resilience float64 `yaml:"resilience"`
	Vector     float64 `yaml:"vector"`
}

// Weights for the fallback weighted sum. Must sum to 1.
type Weights struct {
	Structural float64 `yaml:"structural"`
	Content    float64 `yaml:"content"`
	Resilience float64 `yaml:"resilience"`
	Vector     float64 `yaml:"vector"`
}

// #endregion components

// #region grade-table
// GradeTier is one cut point in the ordered grade table.
type GradeTier struct {
	Min   float64 `yaml:"min"`
	Grade string  `yaml:"grade"`
}

// GradeTable maps a score onto the highest tier whose floor it meets.
type GradeTable []GradeTier

// Grade returns the matching tier name, or "None" below every floor.
func (gt GradeTable) Grade(score float64) string {
	tiers := make(GradeTable, len(gt))
	copy(tiers, gt)
	sort.Slice(tiers, func(i, j int) bool { return tiers[i].Min > tiers[j].Min })
	for _, tier := range tiers {
		if score >= tier.Min {
			return tier.Grade
		}
	}
	return "None"
}

// #endregion grade-table

// #region defaults
// DefaultCapThresholds returns the standard cap floors.
func DefaultCapThresholds() CapThresholds {
	return CapThresholds{
		Structural: 0.99,
		Content:    0.99,
		Resilience: 0.70,
		Vector:     0.90,
	}
}

// DefaultWeights returns the standard component weighting.
func DefaultWeights() Weights {
	return Weights{
		Structural: 0.25,
		Content:    0.30,
		Resilience: 0.20,
		Vector:     0.25,
	}
}

// DefaultGradeTable returns the standard tier cut points.
func DefaultGradeTable() GradeTable {
	return GradeTable{
		{Min: 0.95, Grade: "Platinum"},
		{Min: 0.85, Grade: "Gold"},
		{Min: 0.70, Grade: "Silver"},
		{Min: 0.50, Grade: "Bronze"},
	}
}

// #endregion defaults

// #region aggregate
// Result is the output of one aggregation run.
type Result struct {
	Score  float64 `json:"master_score"`
	Capped bool    `json:"capped"`
	Grade  string  `json:"grade"`
}

// Aggregator combines sub-scores into a capped master score with grading.
type Aggregator struct {
	Caps    CapThresholds
	Weights Weights
	Grades  GradeTable
}

// NewAggregator creates an aggregator with the given configuration.
func NewAggregator(caps CapThresholds, weights Weights, grades GradeTable) *Aggregator {
	return &Aggregator{Caps: caps, Weights: weights, Grades: grades}
}

// Aggregate applies the cap rule first, then the weighted sum. Output is
// always in [0, 1].
func (a *Aggregator) Aggregate(c Components) Result {
	structural := clamp01(c.Structural)
	content := clamp01(c.Content)
	res := clamp01(c.Resilience)
	vector := clamp01(c.Vector)

	if structural >= a.Caps.Structural &&
		content >= a.Caps.Content &&
		res >= a.Caps.Resilience &&
		vector >= a.Caps.Vector {
		return Result{Score: 1.0, Capped: true, Grade: a.Grades.Grade(1.0)}
	}

	score := clamp01(
		structural*a.Weights.Structural +
			content*a.Weights.Content +
			res*a.Weights.Resilience +
			vector*a.Weights.Vector,
	)
	return Result{Score: score, Capped: false, Grade: a.Grades.Grade(score)}
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

// #endregion aggregate
