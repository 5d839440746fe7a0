package rolling

import (
	"math"
	"time"
)

// #region sample
// Sample is one truth-delta observation, recorded once per monitoring cycle.
type Sample struct {
	Timestamp time.Time `json:"timestamp"`
	Magnitude float64   `json:"magnitude"`
}

// #endregion sample

// #region tracker
// DefaultCapacity is the rolling window size used when none is configured.
const DefaultCapacity = 30

// Tracker maintains a bounded FIFO window of delta samples and computes
// summary statistics over the current contents.
type Tracker struct {
	capacity int
	window   []Sample
}

// NewTracker creates a tracker with the given window capacity.
// Non-positive capacities fall back to DefaultCapacity.
func NewTracker(capacity int) *Tracker {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Tracker{
		capacity: capacity,
		window:   make([]Sample, 0, capacity),
	}
}

// NewTrackerFrom creates a tracker pre-seeded with persisted samples.
// Samples beyond capacity are evicted from the front, oldest first.
func NewTrackerFrom(capacity int, samples []Sample) *Tracker {
	t := NewTracker(capacity)
	for _, s := range samples {
		t.Record(s)
	}
	return t
}

// #endregion tracker

// #region record
// Record appends a sample, evicting the oldest once capacity is exceeded.
func (t *Tracker) Record(s Sample) {
	t.window = append(t.window, s)
	if len(t.window) > t.capacity {
		t.window = t.window[1:]
	}
}

// #endregion record

// #region stats
// Count returns the number of samples currently in the window.
func (t *Tracker) Count() int {
	return len(t.window)
}

// Mean returns the arithmetic mean of the window, 0 when empty.
func (t *Tracker) Mean() float64 {
	if len(t.window) == 0 {
		return 0
	}
	var sum float64
	for _, s := range t.window {
		sum += s.Magnitude
	}
	return sum / float64(len(t.window))
}

// StdDev returns the sample standard deviation (n-1 divisor) of the window.
// Returns 0 for fewer than two samples.
func (t *Tracker) StdDev() float64 {
	n := len(t.window)
	if n < 2 {
		return 0
	}
	mean := t.Mean()
	var sumSq float64
	for _, s := range t.window {
		d := s.Magnitude - mean
		sumSq += d * d
	}
	return math.Sqrt(sumSq / float64(n-1))
}

// Samples returns a copy of the current window contents, oldest first.
func (t *Tracker) Samples() []Sample {
	out := make([]Sample, len(t.window))
	copy(out, t.window)
	return out
}

// #endregion stats
