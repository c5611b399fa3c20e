package risk

import (
	"errors"
	"fmt"
	"math"

	"signal-engine/internal/levels"
)

var (
	// ErrInvalidConfig marks configuration that cannot produce a plan
	ErrInvalidConfig = errors.New("invalid risk configuration")
	// ErrZeroRisk is recorded when entry equals the computed stop-loss
	ErrZeroRisk = errors.New("zero risk")
	// ErrNoDirection is returned when asked to plan a HOLD
	ErrNoDirection = errors.New("trade plan requires LONG or SHORT")
	// ErrInvalidRequest marks an entry or trigger that is not a usable price
	ErrInvalidRequest = errors.New("invalid plan request")
)

// fractionTolerance bounds |sum(fractions) - 1|
const fractionTolerance = 1e-9

// Config holds stop, target and sizing parameters
type Config struct {
	StopOffset        float64 // SL = support*(1-offset) / resistance*(1+offset)
	UseATRStop        bool    // SL = support - ATR*k / resistance + ATR*k instead of offset
	ATRMultiplier     float64
	TargetRatios      [3]float64
	PositionFractions [3]float64
	TargetTolerance   float64 // max |candidate-ideal|/ideal to snap a target to a level
	MinRiskReward     float64 // below this the plan is invalid
	GoodRiskReward    float64 // below this the plan carries a warning
	SourcePriority    []levels.Source
	LevelPriority     []string
	PricePrecision    int32 // decimal places prices are rounded to
}

// DefaultConfig returns the standard risk parameters
func DefaultConfig() Config {
	return Config{
		StopOffset:        0.005,
		UseATRStop:        false,
		ATRMultiplier:     1.5,
		TargetRatios:      [3]float64{1.0, 2.0, 3.0},
		PositionFractions: [3]float64{0.33, 0.33, 0.34},
		TargetTolerance:   levels.DefaultTolerance,
		MinRiskReward:     1.0,
		GoodRiskReward:    1.5,
		SourcePriority:    DefaultSourcePriority(),
		PricePrecision:    8,
	}
}

// DefaultSourcePriority ranks equally close target candidates
func DefaultSourcePriority() []levels.Source {
	return []levels.Source{levels.SourcePivot, levels.SourceFibonacci, levels.SourceSwing, levels.SourceMovingAverage}
}

// Validate re-checks every invariant the planner depends on
func (c Config) Validate() error {
	if c.StopOffset < 0 || c.StopOffset >= 1 {
		return fmt.Errorf("%w: stop offset must be in [0,1), got %v", ErrInvalidConfig, c.StopOffset)
	}
	if c.UseATRStop && c.ATRMultiplier <= 0 {
		return fmt.Errorf("%w: ATR multiplier must be positive, got %v", ErrInvalidConfig, c.ATRMultiplier)
	}
	prev := 0.0
	for i, r := range c.TargetRatios {
		if r <= prev {
			return fmt.Errorf("%w: target ratio %d (%v) must be positive and above the previous one", ErrInvalidConfig, i+1, r)
		}
		prev = r
	}
	sum := 0.0
	for i, f := range c.PositionFractions {
		if f < 0 || f > 1 {
			return fmt.Errorf("%w: position fraction %d must be in [0,1], got %v", ErrInvalidConfig, i+1, f)
		}
		sum += f
	}
	if math.Abs(sum-1) > fractionTolerance {
		return fmt.Errorf("%w: position fractions must sum to 1.0, got %.10f", ErrInvalidConfig, sum)
	}
	if c.TargetTolerance < 0 {
		return fmt.Errorf("%w: target tolerance must not be negative", ErrInvalidConfig)
	}
	if c.MinRiskReward < 0 || c.GoodRiskReward < c.MinRiskReward {
		return fmt.Errorf("%w: good risk/reward %.2f must not be below minimum %.2f", ErrInvalidConfig, c.GoodRiskReward, c.MinRiskReward)
	}
	if c.PricePrecision < 0 || c.PricePrecision > 16 {
		return fmt.Errorf("%w: price precision must be in [0,16], got %d", ErrInvalidConfig, c.PricePrecision)
	}
	return nil
}
