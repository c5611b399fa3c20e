package engine

import (
	"errors"
	"fmt"

	"signal-engine/internal/confluence"
	"signal-engine/internal/indicators"
	"signal-engine/internal/levels"
	"signal-engine/internal/patterns"
	"signal-engine/internal/risk"
	"signal-engine/internal/signal"
)

// ErrInvalidConfig marks a configuration the engine refuses to run with
var ErrInvalidConfig = errors.New("invalid engine configuration")

// Config is the immutable parameter set for every evaluation
type Config struct {
	Levels     levels.Config
	Patterns   patterns.Config
	Indicators indicators.Config
	Confluence confluence.Config
	Signal     signal.Config
	Risk       risk.Config

	// MovingAverageLevels adds ema_fast/ema_slow to the level set
	MovingAverageLevels bool
	// Workers bounds EvaluateBatch parallelism
	Workers int
}

// DefaultConfig returns the documented defaults of every component
func DefaultConfig() Config {
	return Config{
		Levels:              levels.DefaultConfig(),
		Patterns:            patterns.DefaultConfig(),
		Indicators:          indicators.DefaultConfig(),
		Confluence:          confluence.DefaultConfig(),
		Signal:              signal.DefaultConfig(),
		Risk:                risk.DefaultConfig(),
		MovingAverageLevels: true,
		Workers:             4,
	}
}

// Validate checks every component configuration
func (c Config) Validate() error {
	if _, err := levels.ParsePivotMethod(string(c.Levels.Method)); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if c.Levels.SwingLookback < 0 {
		return fmt.Errorf("%w: swing lookback must not be negative", ErrInvalidConfig)
	}
	for _, r := range c.Levels.RetracementRatios {
		if r < 0 || r > 1 {
			return fmt.Errorf("%w: retracement ratio %v outside [0,1]", ErrInvalidConfig, r)
		}
	}
	for _, r := range c.Levels.ExtensionRatios {
		if r <= 1 {
			return fmt.Errorf("%w: extension ratio %v must exceed 1", ErrInvalidConfig, r)
		}
	}
	if err := c.Indicators.Validate(); err != nil {
		return fmt.Errorf("%w: indicators: %v", ErrInvalidConfig, err)
	}
	if err := c.Confluence.Validate(); err != nil {
		return fmt.Errorf("%w: confluence: %v", ErrInvalidConfig, err)
	}
	if err := c.Signal.Validate(); err != nil {
		return fmt.Errorf("%w: signal: %v", ErrInvalidConfig, err)
	}
	if err := c.Risk.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if c.Workers < 1 {
		return fmt.Errorf("%w: workers must be at least 1, got %d", ErrInvalidConfig, c.Workers)
	}
	return nil
}

// RequiredBars is the shortest window Evaluate accepts
func (c Config) RequiredBars() int {
	n := c.Indicators.Lookback()
	if c.Levels.SwingLookback > n {
		n = c.Levels.SwingLookback
	}
	if n < 2 {
		n = 2
	}
	return n
}
