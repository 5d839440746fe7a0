package forensic

import (
	"math"
	"testing"
)

func defaultAggregator() *Aggregator {
	return NewAggregator(DefaultCapThresholds(), DefaultWeights(), DefaultGradeTable())
}

func TestCapRuleAllFloorsMet(t *testing.T) {
	a := defaultAggregator()
	r := a.Aggregate(Components{Structural: 1.0, Content: 1.0, Resilience: 1.0, Vector: 1.0})
	if r.Score != 1.0 || !r.Capped {
		t.Fatalf("expected score 1.0 capped, got %+v", r)
	}
	if r.Grade != "Platinum" {
		t.Errorf("expected Platinum at 1.0, got %s", r.Grade)
	}
}

func TestCapRuleExactFloors(t *testing.T) {
	a := defaultAggregator()
	// Components exactly on the cap floors still cap.
	r := a.Aggregate(Components{Structural: 0.99, Content: 0.99, Resilience: 0.70, Vector: 0.90})
	if !r.Capped || r.Score != 1.0 {
		t.Fatalf("expected cap on exact floors, got %+v", r)
	}
}

func TestNoCapWhenOneFloorMissed(t *testing.T) {
	a := defaultAggregator()
	r := a.Aggregate(Components{Structural: 1.0, Content: 1.0, Resilience: 0.69, Vector: 1.0})
	if r.Capped {
		t.Fatal("must not cap with one floor missed")
	}
	// 1.0·0.25 + 1.0·0.30 + 0.69·0.20 + 1.0·0.25 = 0.938
	want := 0.938
	if math.Abs(r.Score-want) > 1e-12 {
		t.Fatalf("expected weighted score %v, got %v", want, r.Score)
	}
}

func TestWeightedSumKnownValues(t *testing.T) {
	a := defaultAggregator()
	r := a.Aggregate(Components{Structural: 0.8, Content: 0.6, Resilience: 0.4, Vector: 0.2})
	// 0.8·0.25 + 0.6·0.30 + 0.4·0.20 + 0.2·0.25 = 0.51
	want := 0.51
	if math.Abs(r.Score-want) > 1e-12 {
		t.Fatalf("expected %v, got %v", want, r.Score)
	}
	if r.Grade != "Bronze" {
		t.Errorf("expected Bronze at 0.51, got %s", r.Grade)
	}
}

func TestOutputClampedForAnyUnitInputs(t *testing.T) {
	a := defaultAggregator()
	grid := []float64{0, 0.25, 0.5, 0.75, 1.0}
	for _, s := range grid {
		for _, c := range grid {
			for _, e := range grid {
				for _, v := range grid {
					r := a.Aggregate(Components{Structural: s, Content: c, Resilience: e, Vector: v})
					if r.Score < 0 || r.Score > 1 {
						t.Fatalf("score %v out of [0,1] for inputs %v/%v/%v/%v", r.Score, s, c, e, v)
					}
				}
			}
		}
	}
}

func TestOutOfRangeInputsClampedBeforeWeighting(t *testing.T) {
	a := defaultAggregator()
	r := a.Aggregate(Components{Structural: 5.0, Content: -3.0, Resilience: 0.5, Vector: 0.5})
	// clamp → 1.0·0.25 + 0·0.30 + 0.5·0.20 + 0.5·0.25 = 0.475
	want := 0.475
	if math.Abs(r.Score-want) > 1e-12 {
		t.Fatalf("expected %v, got %v", want, r.Score)
	}
}

func TestGradeTiers(t *testing.T) {
	gt := DefaultGradeTable()
	cases := map[float64]string{
		0.99: "Platinum",
		0.95: "Platinum",
		0.90: "Gold",
		0.70: "Silver",
		0.55: "Bronze",
		0.10: "None",
	}
	for score, want := range cases {
		if got := gt.Grade(score); got != want {
			t.Errorf("grade(%v) = %s, want %s", score, got, want)
		}
	}
}

func TestGradeTableUnsortedConfig(t *testing.T) {
	// A config-authored table in arbitrary order must still grade correctly.
	gt := GradeTable{
		{Min: 0.50, Grade: "Bronze"},
		{Min: 0.95, Grade: "Platinum"},
		{Min: 0.70, Grade: "Silver"},
		{Min: 0.85, Grade: "Gold"},
	}
	if got := gt.Grade(0.86); got != "Gold" {
		t.Fatalf("expected Gold at 0.86, got %s", got)
	}
}
