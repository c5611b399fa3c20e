package confluence

import (
	"fmt"
	"math"

	"signal-engine/internal/levels"
)

// Weights assigns relative importance to each weighted factor. Only present
// factors enter the normalization, so weights need not sum to 1. The
// multi-level bonus is additive and carries no weight.
type Weights struct {
	Level       float64 `json:"level"`
	Trend       float64 `json:"trend"`
	Momentum    float64 `json:"momentum"`
	Pattern     float64 `json:"pattern"`
	PriceAction float64 `json:"price_action"`
	Structure   float64 `json:"structure"`
}

// DefaultWeights returns the standard factor weights
func DefaultWeights() Weights {
	return Weights{
		Level:       0.30,
		Trend:       0.20,
		Momentum:    0.20,
		Pattern:     0.30,
		PriceAction: 0.15,
		Structure:   0.15,
	}
}

// Validate rejects negative, non-finite or all-zero weights
func (w Weights) Validate() error {
	total := 0.0
	for name, v := range w.asMap() {
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("weight %s must be a non-negative number, got %v", name, v)
		}
		total += v
	}
	if total <= 0 {
		return fmt.Errorf("weights must not all be zero")
	}
	return nil
}

func (w Weights) asMap() map[string]float64 {
	return map[string]float64{
		FactorLevel:       w.Level,
		FactorTrend:       w.Trend,
		FactorMomentum:    w.Momentum,
		FactorPattern:     w.Pattern,
		FactorPriceAction: w.PriceAction,
		FactorStructure:   w.Structure,
	}
}

// Config holds scorer parameters
type Config struct {
	Weights             Weights
	Tolerance           float64  // proximity tolerance for level factors
	Priority            []string // level tie-break order
	TrendFullSeparation float64  // |fast-slow|/slow at which trend scores 1.0
	Oversold            float64
	Overbought          float64
	PatternFloor        float64 // patterns weaker than this are absent
	PriceActionScore    float64 // score when the close breaks the prior extreme
	StructureEnabled    bool
	MultiLevelMin       int     // sources needed before the bonus is present
	BonusStep           float64 // bonus per agreeing source beyond the first
	BonusCap            float64 // maximum bonus added to the normalized confidence
}

// DefaultConfig returns the standard scorer parameters
func DefaultConfig() Config {
	return Config{
		Weights:             DefaultWeights(),
		Tolerance:           levels.DefaultTolerance,
		TrendFullSeparation: 0.02,
		Oversold:            30,
		Overbought:          70,
		PatternFloor:        0.1,
		PriceActionScore:    1.0,
		StructureEnabled:    true,
		MultiLevelMin:       2,
		BonusStep:           0.05,
		BonusCap:            0.10,
	}
}

// Validate checks the parameters are usable
func (c Config) Validate() error {
	if err := c.Weights.Validate(); err != nil {
		return err
	}
	if c.Tolerance <= 0 || c.Tolerance >= 1 {
		return fmt.Errorf("tolerance must be in (0,1), got %v", c.Tolerance)
	}
	if c.Oversold >= c.Overbought {
		return fmt.Errorf("oversold %.1f must be below overbought %.1f", c.Oversold, c.Overbought)
	}
	if c.TrendFullSeparation <= 0 {
		return fmt.Errorf("trend full separation must be positive")
	}
	if c.PriceActionScore < 0 || c.PriceActionScore > 1 {
		return fmt.Errorf("price action score must be in [0,1], got %v", c.PriceActionScore)
	}
	if c.MultiLevelMin < 1 {
		return fmt.Errorf("multi-level min must be at least 1, got %d", c.MultiLevelMin)
	}
	if c.BonusStep < 0 || c.BonusCap < 0 || c.BonusCap > 1 {
		return fmt.Errorf("confluence bonus step %v / cap %v must be non-negative with cap <= 1", c.BonusStep, c.BonusCap)
	}
	return nil
}

// withDefaults fills zero-valued numeric parameters
func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.Weights == (Weights{}) {
		c.Weights = def.Weights
	}
	if c.Tolerance <= 0 {
		c.Tolerance = def.Tolerance
	}
	if c.TrendFullSeparation <= 0 {
		c.TrendFullSeparation = def.TrendFullSeparation
	}
	if c.Oversold >= c.Overbought {
		c.Oversold, c.Overbought = def.Oversold, def.Overbought
	}
	if c.MultiLevelMin <= 0 {
		c.MultiLevelMin = def.MultiLevelMin
	}
	if c.BonusStep < 0 {
		c.BonusStep = def.BonusStep
	}
	if c.BonusCap < 0 || c.BonusCap > 1 {
		c.BonusCap = def.BonusCap
	}
	return c
}
