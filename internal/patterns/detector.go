package patterns

import (
	"time"

	"signal-engine/internal/market"
)

// PatternType represents the recognized candle shapes
type PatternType string

const (
	None             PatternType = "none"
	Hammer           PatternType = "hammer"
	HangingMan       PatternType = "hanging_man"
	InvertedHammer   PatternType = "inverted_hammer"
	ShootingStar     PatternType = "shooting_star"
	BullishEngulfing PatternType = "bullish_engulfing"
	BearishEngulfing PatternType = "bearish_engulfing"
	Doji             PatternType = "doji"
)

// Polarity is the directional bias of a pattern
type Polarity string

const (
	Bullish Polarity = "bullish"
	Bearish Polarity = "bearish"
	Neutral Polarity = "neutral"
)

// Family groups pattern types; higher values win strength ties
type Family int

const (
	FamilyNone Family = iota
	FamilyDoji
	FamilyPinBar
	FamilyEngulfing
)

// Family returns the family of a pattern type
func (p PatternType) Family() Family {
	switch p {
	case BullishEngulfing, BearishEngulfing:
		return FamilyEngulfing
	case Hammer, HangingMan, InvertedHammer, ShootingStar:
		return FamilyPinBar
	case Doji:
		return FamilyDoji
	default:
		return FamilyNone
	}
}

// PatternResult is the single strongest pattern on a bar
type PatternResult struct {
	Type       PatternType `json:"pattern"`
	Strength   float64     `json:"strength"` // 0.0 to 1.0
	Polarity   Polarity    `json:"polarity"`
	OutsideBar bool        `json:"outside_bar"` // confirmation flag only
}

// Found reports whether any pattern was recognized
func (r PatternResult) Found() bool {
	return r.Type != "" && r.Type != None
}

// NoPattern is the empty result
func NoPattern() PatternResult {
	return PatternResult{Type: None, Polarity: Neutral}
}

// DetectedPattern is a recognized pattern located in a window
type DetectedPattern struct {
	PatternResult
	CandleIndex int       `json:"candle_index"`
	DetectedAt  time.Time `json:"detected_at"`
}

// Config holds recognition thresholds
type Config struct {
	PinWickRatio       float64 // long wick / range must exceed this
	DojiBodyRatio      float64 // body / range must stay below this
	EngulfingFullRatio float64 // body ratio at which engulfing strength saturates
}

// DefaultConfig returns the standard thresholds
func DefaultConfig() Config {
	return Config{
		PinWickRatio:       0.6,
		DojiBodyRatio:      0.1,
		EngulfingFullRatio: 2.0,
	}
}

// PatternDetector recognizes reversal patterns in candlestick data
type PatternDetector struct {
	cfg Config
}

// NewPatternDetector creates a new pattern detector, filling unset thresholds with defaults
func NewPatternDetector(cfg Config) *PatternDetector {
	def := DefaultConfig()
	if cfg.PinWickRatio <= 0 || cfg.PinWickRatio >= 1 {
		cfg.PinWickRatio = def.PinWickRatio
	}
	if cfg.DojiBodyRatio <= 0 || cfg.DojiBodyRatio >= 1 {
		cfg.DojiBodyRatio = def.DojiBodyRatio
	}
	if cfg.EngulfingFullRatio < 1 {
		cfg.EngulfingFullRatio = def.EngulfingFullRatio
	}
	return &PatternDetector{cfg: cfg}
}

// Recognize returns the strongest pattern on current. previous may be nil,
// in which case only single-bar patterns are considered.
func (pd *PatternDetector) Recognize(current market.Bar, previous *market.Bar) PatternResult {
	result := NoPattern()
	if current.Range() <= 0 {
		return result
	}

	candidates := make([]PatternResult, 0, 3)
	if previous != nil {
		if r, ok := pd.engulfing(*previous, current); ok {
			candidates = append(candidates, r)
		}
	}
	if r, ok := pd.pinBar(current); ok {
		candidates = append(candidates, r)
	}
	if r, ok := pd.doji(current); ok {
		candidates = append(candidates, r)
	}

	for _, c := range candidates {
		if c.Strength > result.Strength ||
			(c.Strength == result.Strength && c.Type.Family() > result.Type.Family()) {
			result = c
		}
	}

	if previous != nil {
		result.OutsideBar = isOutsideBar(*previous, current)
	}
	return result
}

// DetectPatterns scans every bar of a window, pairing each with its predecessor
func (pd *PatternDetector) DetectPatterns(candles market.Window) []DetectedPattern {
	var patterns []DetectedPattern

	for i := range candles {
		var prev *market.Bar
		if i > 0 {
			prev = &candles[i-1]
		}
		r := pd.Recognize(candles[i], prev)
		if !r.Found() {
			continue
		}
		patterns = append(patterns, DetectedPattern{
			PatternResult: r,
			CandleIndex:   i,
			DetectedAt:    candles[i].Timestamp,
		})
	}

	return patterns
}

// isOutsideBar checks whether current breaks both extremes of previous
func isOutsideBar(previous, current market.Bar) bool {
	return current.High > previous.High && current.Low < previous.Low
}

func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}
