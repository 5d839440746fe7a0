package threshold

import (
	"trustgate/internal/rolling"
)

// #region set
// Set holds the three governance cutoffs for one cycle. Recomputed each
// cycle from window statistics; logged for audit but never treated as a
// source of truth.
type Set struct {
	Improve  float64 `json:"t_improve" yaml:"t_improve"`
	Stable   float64 `json:"t_stable" yaml:"t_stable"`
	Critical float64 `json:"t_critical" yaml:"t_critical"`
	Adaptive bool    `json:"adaptive" yaml:"-"`
}

// DefaultBase returns the static thresholds used before any history exists.
func DefaultBase() Set {
	return Set{
		Improve:  0.05,
		Stable:   -0.03,
		Critical: -0.10,
	}
}

// #endregion set

// #region controller
// ControllerConfig holds the tuning knobs for threshold adaptation.
type ControllerConfig struct {
	// MinSamples is the window size below which adaptation is disabled
	// (learning phase).
	MinSamples int
	// K scales sigma into the threshold shift. 1.5 corresponds to ~86.6%
	// one-sided confidence under a normal model.
	K float64
	// WidenSigma and TightenSigma bound the volatility bands: sigma above
	// WidenSigma widens thresholds (factor 1.3), below TightenSigma
	// tightens them (factor 0.7).
	WidenSigma   float64
	TightenSigma float64
}

// DefaultControllerConfig returns the standard adaptation constants.
func DefaultControllerConfig() ControllerConfig {
	return ControllerConfig{
		MinSamples:   5,
		K:            1.5,
		WidenSigma:   0.03,
		TightenSigma: 0.01,
	}
}

// Controller derives per-cycle thresholds from rolling window statistics.
type Controller struct {
	config ControllerConfig
}

// NewController creates a controller with the given configuration.
func NewController(config ControllerConfig) *Controller {
	return &Controller{config: config}
}

// Compute derives adaptive thresholds from the tracker's current statistics.
// Below MinSamples it returns base unmodified with Adaptive=false; the
// caller disables anomaly detection in that phase.
func (c *Controller) Compute(tracker *rolling.Tracker, base Set) Set {
	if tracker.Count() < c.config.MinSamples {
		out := base
		out.Adaptive = false
		return out
	}

	sigma := tracker.StdDev()
	factor := 1.0
	switch {
	case sigma > c.config.WidenSigma:
		factor = 1.3
	case sigma < c.config.TightenSigma:
		factor = 0.7
	}

	shift := c.config.K * sigma * factor
	out := Set{
		Improve:  base.Improve + shift,
		Stable:   base.Stable + shift,
		Critical: base.Critical - shift,
		Adaptive: true,
	}
	return clampOrdering(out)
}

// clampOrdering enforces Improve >= Stable >= Critical after adaptation.
func clampOrdering(s Set) Set {
	if s.Stable > s.Improve {
		s.Stable = s.Improve
	}
	if s.Critical > s.Stable {
		s.Critical = s.Stable
	}
	return s
}

// #endregion controller

// #region bands
// Bands is the mean ± k·sigma envelope used for anomaly flagging.
type Bands struct {
	Upper   float64 `json:"upper"`
	Middle  float64 `json:"middle"`
	Lower   float64 `json:"lower"`
	Anomaly bool    `json:"anomaly"`
}

// EvaluateBands flags current as anomalous when it falls outside
// mean ± 1.5·stddev. Pure function, no state.
func EvaluateBands(current, mean, stddev float64) Bands {
	upper := mean + 1.5*stddev
	lower := mean - 1.5*stddev
	return Bands{
		Upper:   upper,
		Middle:  mean,
		Lower:   lower,
		Anomaly: current > upper || current < lower,
	}
}

// #endregion bands
