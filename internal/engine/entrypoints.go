package engine

import (
	"signal-engine/internal/confluence"
	"signal-engine/internal/indicators"
	"signal-engine/internal/levels"
	"signal-engine/internal/market"
	"signal-engine/internal/patterns"
	"signal-engine/internal/risk"
	"signal-engine/internal/signal"
)

// EvaluateLevels computes the pivot set of reference merged with the
// Fibonacci grid of swing. Zero-range inputs yield a degenerate set, not an
// error; a swing window shorter than the configured lookback does.
func EvaluateLevels(reference market.Bar, swing []market.Bar, cfg Config) (levels.LevelSet, error) {
	if err := cfg.Validate(); err != nil {
		return levels.LevelSet{}, err
	}
	return levels.NewCalculator(cfg.Levels).Evaluate(reference, swing)
}

// EvaluatePattern recognizes the strongest reversal pattern on current with
// the default thresholds. previous may be nil.
func EvaluatePattern(current market.Bar, previous *market.Bar) patterns.PatternResult {
	return patterns.NewPatternDetector(patterns.DefaultConfig()).Recognize(current, previous)
}

// EvaluateSignal scores LONG and SHORT on the supplied context and decides
func EvaluateSignal(price float64, set levels.LevelSet, pr patterns.PatternResult, trend indicators.TrendInputs, momentum indicators.MomentumInputs, cfg Config) (signal.Verdict, error) {
	if err := cfg.Validate(); err != nil {
		return signal.Verdict{}, err
	}
	scorer := confluence.NewConfluenceScorer(cfg.Confluence)
	return signal.NewEngine(cfg.Signal, scorer).Evaluate(confluence.Inputs{
		Price:    price,
		Levels:   set,
		Pattern:  pr,
		Trend:    trend,
		Momentum: momentum,
	}), nil
}

// PlanTrade derives a plan for direction at entry. The stop hangs off the
// nearest level on the stop side of entry; volatility is the ATR used when
// the ATR stop is enabled.
func PlanTrade(direction market.Direction, entry float64, set levels.LevelSet, volatility float64, cfg Config) (risk.TradePlan, error) {
	if err := cfg.Validate(); err != nil {
		return risk.TradePlan{}, err
	}
	return risk.NewPlanner(cfg.Risk).Plan(risk.Request{
		Direction: direction,
		Entry:     entry,
		Levels:    set,
		ATR:       volatility,
	})
}
