package signal

import (
	"fmt"

	"signal-engine/internal/confluence"
	"signal-engine/internal/market"
)

// Config controls the directional decision
type Config struct {
	MinConfidence      float64 // below this on both sides => HOLD
	RequirePattern     bool    // hard pattern-confirmation gate
	MinPatternStrength float64 // gate threshold for the winning side's pattern factor
}

// DefaultConfig returns the standard decision thresholds
func DefaultConfig() Config {
	return Config{
		MinConfidence:      0.5,
		RequirePattern:     false,
		MinPatternStrength: 0.5,
	}
}

// Validate checks thresholds are inside [0,1]
func (c Config) Validate() error {
	if c.MinConfidence < 0 || c.MinConfidence > 1 {
		return fmt.Errorf("min confidence must be in [0,1], got %v", c.MinConfidence)
	}
	if c.MinPatternStrength < 0 || c.MinPatternStrength > 1 {
		return fmt.Errorf("min pattern strength must be in [0,1], got %v", c.MinPatternStrength)
	}
	return nil
}

// HoldReason explains why no direction was emitted
type HoldReason string

const (
	HoldNone         HoldReason = ""
	HoldBelowMinimum HoldReason = "below_threshold"
	HoldAmbiguous    HoldReason = "ambiguous"
	HoldPatternGate  HoldReason = "pattern_gate"
)

// Verdict is the outcome of one evaluation cycle
type Verdict struct {
	Direction  market.Direction    `json:"direction"`
	Confidence float64             `json:"confidence"`
	Reasons    []string            `json:"reasons"`
	Factors    []confluence.Factor `json:"factors"`
	HoldReason HoldReason          `json:"hold_reason,omitempty"`
	Long       confluence.Result   `json:"long"`
	Short      confluence.Result   `json:"short"`
}

// Engine turns per-direction confluence into a LONG/SHORT/HOLD verdict.
// It keeps no state between calls.
type Engine struct {
	cfg    Config
	scorer *confluence.ConfluenceScorer
}

// NewEngine creates a signal engine
func NewEngine(cfg Config, scorer *confluence.ConfluenceScorer) *Engine {
	return &Engine{cfg: cfg, scorer: scorer}
}

// Evaluate scores both directions on the same inputs and decides
func (e *Engine) Evaluate(in confluence.Inputs) Verdict {
	long, short := e.scorer.ScoreBoth(in)
	return e.Decide(long, short)
}

// Decide applies the threshold, tie and pattern-gate rules to scored sides
func (e *Engine) Decide(long, short confluence.Result) Verdict {
	v := Verdict{Direction: market.Hold, Long: long, Short: short}

	best := long
	if short.Confidence > long.Confidence {
		best = short
	}
	v.Confidence = best.Confidence
	v.Reasons = best.Reasons
	v.Factors = best.Factors

	switch {
	case best.Confidence < e.cfg.MinConfidence:
		v.HoldReason = HoldBelowMinimum
		v.Reasons = appendReason(v.Reasons, fmt.Sprintf("confidence %.2f below minimum %.2f", best.Confidence, e.cfg.MinConfidence))
		return v
	case long.Confidence == short.Confidence:
		v.HoldReason = HoldAmbiguous
		v.Reasons = appendReason(nil, fmt.Sprintf("LONG and SHORT tied at %.2f", long.Confidence))
		v.Factors = nil
		return v
	}

	if e.cfg.RequirePattern {
		f, ok := best.Factor(confluence.FactorPattern)
		if !ok || f.Score < e.cfg.MinPatternStrength {
			v.HoldReason = HoldPatternGate
			v.Reasons = appendReason(v.Reasons, fmt.Sprintf("%s lacks pattern confirmation (need %.2f)", best.Direction, e.cfg.MinPatternStrength))
			return v
		}
	}

	v.Direction = best.Direction
	return v
}

func appendReason(reasons []string, r string) []string {
	out := make([]string, 0, len(reasons)+1)
	out = append(out, reasons...)
	return append(out, r)
}
