package entropy

import (
	"math"
	"sort"
	"time"

	"trustgate/internal/evidence"
)

// #region shannon
// Shannon computes H(X) = -Σ p(x)·log2(p(x)) over a category count map.
// Zero-count categories contribute nothing (0·log2(0) = 0 by convention).
// Categories are accumulated in sorted order: float addition is not
// associative, so summing in map iteration order makes identical
// distributions disagree in the last bits across runs.
func Shannon(dist map[string]int) float64 {
	keys := make([]string, 0, len(dist))
	for k := range dist {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	total := 0
	for _, k := range keys {
		if c := dist[k]; c > 0 {
			total += c
		}
	}
	if total == 0 {
		return 0
	}

	var h float64
	for _, k := range keys {
		c := dist[k]
		if c <= 0 {
			continue
		}
		p := float64(c) / float64(total)
		h -= p * math.Log2(p)
	}
	return h
}

// #endregion shannon

// #region mutual-information
// MutualInformation computes I(X;Y) = H(X) + H(Y) - H(X,Y) from empirical
// marginal and joint count maps. Tiny negative floating-point results clamp
// to 0; true MI is never negative.
func MutualInformation(x, y map[string]int, joint map[string]int) float64 {
	mi := Shannon(x) + Shannon(y) - Shannon(joint)
	if mi < 0 {
		return 0
	}
	return mi
}

// #endregion mutual-information

// #region source-distributions
// SourceReport carries the per-kind entropy values alongside the aggregate
// pairwise mutual information of the corpus.
type SourceReport struct {
	PerSource map[evidence.Kind]float64
	TotalMI   float64
}

// Analyze buckets artifacts into per-hour observation windows, computes each
// source kind's Shannon entropy over those windows, and sums mutual
// information over every unordered kind pair. Observations for MI are the
// presence indicators of a kind within a bucket, so the result depends only
// on the artifact set, never on iteration order.
func Analyze(artifacts []evidence.Artifact, bucket time.Duration) SourceReport {
	if bucket <= 0 {
		bucket = time.Hour
	}

	// bucket unix second → kind → count
	counts := make(map[int64]map[evidence.Kind]int)
	kindSet := make(map[evidence.Kind]bool)
	for _, a := range artifacts {
		b := a.Timestamp.UTC().Truncate(bucket).Unix()
		if counts[b] == nil {
			counts[b] = make(map[evidence.Kind]int)
		}
		counts[b][a.Kind]++
		kindSet[a.Kind] = true
	}

	buckets := make([]int64, 0, len(counts))
	for b := range counts {
		buckets = append(buckets, b)
	}
	sort.Slice(buckets, func(i, j int) bool { return buckets[i] < buckets[j] })

	kinds := make([]evidence.Kind, 0, len(kindSet))
	for k := range kindSet {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })

	report := SourceReport{PerSource: make(map[evidence.Kind]float64, len(kinds))}

	// Per-source entropy over the bucket distribution of that kind.
	for _, k := range kinds {
		dist := make(map[string]int, len(buckets))
		for _, b := range buckets {
			if c := counts[b][k]; c > 0 {
				dist[bucketLabel(b)] = c
			}
		}
		report.PerSource[k] = Shannon(dist)
	}

	// Pairwise MI over presence indicators per bucket.
	for i := 0; i < len(kinds); i++ {
		for j := i + 1; j < len(kinds); j++ {
			report.TotalMI += presenceMI(buckets, counts, kinds[i], kinds[j])
		}
	}
	return report
}

// presenceMI computes I(X;Y) where X and Y are the present/absent indicators
// of two kinds, with one observation per time bucket.
func presenceMI(buckets []int64, counts map[int64]map[evidence.Kind]int, x, y evidence.Kind) float64 {
	xDist := make(map[string]int, 2)
	yDist := make(map[string]int, 2)
	joint := make(map[string]int, 4)

	for _, b := range buckets {
		xs := indicator(counts[b][x])
		ys := indicator(counts[b][y])
		xDist[xs]++
		yDist[ys]++
		joint[xs+"|"+ys]++
	}
	return MutualInformation(xDist, yDist, joint)
}

func indicator(count int) string {
	if count > 0 {
		return "present"
	}
	return "absent"
}

func bucketLabel(unix int64) string {
	return time.Unix(unix, 0).UTC().Format(time.RFC3339)
}

// #endregion source-distributions
