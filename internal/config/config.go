package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"trustgate/internal/forensic"
	"trustgate/internal/threshold"
)

// #region config
// Config is the full engine configuration. Every tunable constant of the
// scoring pipeline lives here; code holds no scattered magic numbers.
type Config struct {
	Window     WindowConfig     `yaml:"window"`
	Thresholds ThresholdsConfig `yaml:"thresholds"`
	Graph      GraphConfig      `yaml:"graph"`
	Resilience ResilienceConfig `yaml:"resilience"`
	Forensic   ForensicConfig   `yaml:"forensic"`
	Scan       ScanConfig       `yaml:"scan"`
	Ledger     LedgerConfig     `yaml:"ledger"`
}

// WindowConfig bounds the rolling delta window.
type WindowConfig struct {
	Capacity int `yaml:"capacity"`
}

// ThresholdsConfig holds the static base thresholds and adaptation knobs.
type ThresholdsConfig struct {
	Base         threshold.Set `yaml:"base"`
	MinSamples   int           `yaml:"min_samples"`
	K            float64       `yaml:"k"`
	WidenSigma   float64       `yaml:"widen_sigma"`
	TightenSigma float64       `yaml:"tighten_sigma"`
}

// GraphConfig bounds edge inference.
type GraphConfig struct {
	TemporalBucket time.Duration `yaml:"temporal_bucket"`
	ClusterCap     int           `yaml:"cluster_cap"`
	DecayHalfLife  float64       `yaml:"decay_half_life_hours"`
}

// ResilienceConfig weights the resilience composite.
type ResilienceConfig struct {
	Baseline         float64 `yaml:"baseline"`
	MICeiling        float64 `yaml:"mi_ceiling_bits"`
	MIWeight         float64 `yaml:"mi_weight"`
	DensityWeight    float64 `yaml:"density_weight"`
	ClusteringWeight float64 `yaml:"clustering_weight"`
}

// ForensicConfig holds cap floors, weights, and the grade table.
type ForensicConfig struct {
	Caps    forensic.CapThresholds `yaml:"caps"`
	Weights forensic.Weights       `yaml:"weights"`
	Grades  forensic.GradeTable    `yaml:"grades"`
}

// ScanConfig bounds the evidence walk.
type ScanConfig struct {
	Timeout time.Duration `yaml:"timeout"`
}

// LedgerConfig controls WORM ledger behavior.
type LedgerConfig struct {
	// KeyFile holds the ed25519 seed used to sign ledger records. Created
	// on first use when absent.
	KeyFile string `yaml:"key_file"`
}

// #endregion config

// #region load
// Load reads a YAML config file, fills defaults, and validates. An empty
// path returns the defaults.
func Load(path string) (*Config, error) {
	var cfg Config
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return nil, err
		}
	}

	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns the fully defaulted configuration.
func Default() *Config {
	var cfg Config
	cfg.applyDefaults()
	return &cfg
}

func (c *Config) applyDefaults() {
	if c.Window.Capacity == 0 {
		c.Window.Capacity = 30
	}

	zero := threshold.Set{}
	if c.Thresholds.Base == zero {
		c.Thresholds.Base = threshold.DefaultBase()
	}
	if c.Thresholds.MinSamples == 0 {
		c.Thresholds.MinSamples = 5
	}
	if c.Thresholds.K == 0 {
		c.Thresholds.K = 1.5
	}
	if c.Thresholds.WidenSigma == 0 {
		c.Thresholds.WidenSigma = 0.03
	}
	if c.Thresholds.TightenSigma == 0 {
		c.Thresholds.TightenSigma = 0.01
	}

	if c.Graph.TemporalBucket == 0 {
		c.Graph.TemporalBucket = time.Hour
	}
	if c.Graph.ClusterCap == 0 {
		c.Graph.ClusterCap = 16
	}
	if c.Graph.DecayHalfLife == 0 {
		c.Graph.DecayHalfLife = 7 * 24
	}

	if c.Resilience == (ResilienceConfig{}) {
		c.Resilience = ResilienceConfig{
			Baseline:         0.2,
			MICeiling:        4.0,
			MIWeight:         0.3,
			DensityWeight:    0.3,
			ClusteringWeight: 0.1,
		}
	}

	if c.Forensic.Caps == (forensic.CapThresholds{}) {
		c.Forensic.Caps = forensic.DefaultCapThresholds()
	}
	if c.Forensic.Weights == (forensic.Weights{}) {
		c.Forensic.Weights = forensic.DefaultWeights()
	}
	if len(c.Forensic.Grades) == 0 {
		c.Forensic.Grades = forensic.DefaultGradeTable()
	}

	if c.Scan.Timeout == 0 {
		c.Scan.Timeout = 30 * time.Second
	}
	if c.Ledger.KeyFile == "" {
		c.Ledger.KeyFile = ".trustgate_ledger_key"
	}
}

func (c *Config) validate() error {
	if c.Window.Capacity < 1 {
		return fmt.Errorf("window.capacity must be positive, got %d", c.Window.Capacity)
	}
	b := c.Thresholds.Base
	if b.Improve < b.Stable || b.Stable < b.Critical {
		return fmt.Errorf("thresholds.base must satisfy improve >= stable >= critical, got %+v", b)
	}
	if c.Graph.ClusterCap < 2 {
		return fmt.Errorf("graph.cluster_cap must be at least 2, got %d", c.Graph.ClusterCap)
	}
	// A negative half-life flips the decay exponent and grows edge weights.
	if c.Graph.DecayHalfLife <= 0 {
		return fmt.Errorf("graph.decay_half_life_hours must be positive, got %v", c.Graph.DecayHalfLife)
	}
	w := c.Forensic.Weights
	sum := w.Structural + w.Content + w.Resilience + w.Vector
	if sum < 0.999 || sum > 1.001 {
		return fmt.Errorf("forensic.weights must sum to 1.0, got %.4f", sum)
	}
	for _, tier := range c.Forensic.Grades {
		if tier.Min < 0 || tier.Min > 1 {
			return fmt.Errorf("grade tier %q floor %.4f out of [0,1]", tier.Grade, tier.Min)
		}
	}
	return nil
}

// #endregion load
