package indicators

import "signal-engine/internal/market"

// StructureTrend classifies the recent high/low sequence
type StructureTrend string

const (
	StructureUptrend       StructureTrend = "uptrend"
	StructureDowntrend     StructureTrend = "downtrend"
	StructureConsolidation StructureTrend = "consolidation"
)

// Structure counts bar-to-bar steps over the last lookback bars
type Structure struct {
	Trend       StructureTrend `json:"trend"`
	Steps       int            `json:"steps"`
	HigherHighs int            `json:"higher_highs"`
	HigherLows  int            `json:"higher_lows"`
	LowerHighs  int            `json:"lower_highs"`
	LowerLows   int            `json:"lower_lows"`
}

// Available reports whether enough steps were observed
func (s Structure) Available() bool {
	return s.Steps > 0
}

// BullishScore is the share of steps printing higher highs and higher lows
func (s Structure) BullishScore() float64 {
	if s.Steps == 0 {
		return 0
	}
	return float64(s.HigherHighs+s.HigherLows) / float64(2*s.Steps)
}

// BearishScore is the share of steps printing lower highs and lower lows
func (s Structure) BearishScore() float64 {
	if s.Steps == 0 {
		return 0
	}
	return float64(s.LowerHighs+s.LowerLows) / float64(2*s.Steps)
}

// MarketStructure inspects the last lookback bars. Uptrend needs every step
// to print a higher high and higher low; downtrend the mirror. A window
// shorter than lookback+1 yields a zero Structure.
func MarketStructure(w market.Window, lookback int) Structure {
	if lookback <= 0 || len(w) < lookback+1 {
		return Structure{Trend: StructureConsolidation}
	}
	recent := w.Tail(lookback)
	s := Structure{Steps: len(recent) - 1}
	for i := 1; i < len(recent); i++ {
		prev, cur := recent[i-1], recent[i]
		switch {
		case cur.High > prev.High:
			s.HigherHighs++
		case cur.High < prev.High:
			s.LowerHighs++
		}
		switch {
		case cur.Low > prev.Low:
			s.HigherLows++
		case cur.Low < prev.Low:
			s.LowerLows++
		}
	}

	switch {
	case s.HigherHighs == s.Steps && s.HigherLows == s.Steps:
		s.Trend = StructureUptrend
	case s.LowerHighs == s.Steps && s.LowerLows == s.Steps:
		s.Trend = StructureDowntrend
	default:
		s.Trend = StructureConsolidation
	}
	return s
}
