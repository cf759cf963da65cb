package router

import "github.com/pkg/errors"

// Config holds the empirical classifier constants. They are hand-tuned,
// not derived; keep them adjustable.
type Config struct {
	// Fusion weights.
	RuleWeight     float64
	SemanticWeight float64
	LLMWeight      float64
	// DataPenaltyWeight scales the penalty for intents whose data is
	// missing.
	DataPenaltyWeight float64

	// RuleScoreDivisor normalizes raw keyword scores into [0,1].
	RuleScoreDivisor float64
	// HighConfidenceThreshold marks a rule-stage match as decisive.
	HighConfidenceThreshold float64
	// MixedRawScore is the raw score both aggregate and retrieval must
	// exceed for a query to count as mixed without a regex match.
	MixedRawScore float64

	// Semantic acceptance threshold: base adjusted by query length.
	SemanticBase      float64
	SemanticLenAdjust float64
	SemanticMin       float64
	SemanticMax       float64

	// HybridThreshold is the fused score both aggregate and retrieval
	// must exceed to run the hybrid path.
	HybridThreshold float64

	// FallbackConfidence is used when no stage produced a usable score.
	FallbackConfidence float64
}

// DefaultConfig returns the tuned defaults.
func DefaultConfig() *Config {
	return &Config{
		RuleWeight:              0.4,
		SemanticWeight:          0.3,
		LLMWeight:               0.3,
		DataPenaltyWeight:       0.2,
		RuleScoreDivisor:        5.0,
		HighConfidenceThreshold: 0.8,
		MixedRawScore:           1.0,
		SemanticBase:            0.53,
		SemanticLenAdjust:       0.02,
		SemanticMin:             0.4,
		SemanticMax:             0.7,
		HybridThreshold:         0.5,
		FallbackConfidence:      0.3,
	}
}

// Validate rejects configurations that cannot route sensibly.
func (c *Config) Validate() error {
	if c.RuleWeight < 0 || c.SemanticWeight < 0 || c.LLMWeight < 0 {
		return errors.New("fusion weights must be non-negative")
	}
	if c.RuleWeight+c.SemanticWeight+c.LLMWeight > 1.0+1e-9 {
		return errors.New("fusion weights must sum to at most 1.0")
	}
	if c.RuleScoreDivisor <= 0 {
		return errors.New("rule score divisor must be positive")
	}
	if c.SemanticMin > c.SemanticMax {
		return errors.New("semantic threshold bounds inverted")
	}
	if c.HybridThreshold <= 0 || c.HybridThreshold >= 1 {
		return errors.New("hybrid threshold must be in (0,1)")
	}
	return nil
}
