package patterns

import (
	"math"

	"signal-engine/internal/market"
)

// Reversal pattern classifiers. Each returns the pattern with its strength
// and whether it matched.

// pinBar checks for a dominant wick with the body pinned in the opposite third.
// A long lower wick gives a hammer (bullish close) or hanging man (bearish
// close); a long upper wick gives an inverted hammer or shooting star.
func (pd *PatternDetector) pinBar(c market.Bar) (PatternResult, bool) {
	rng := c.Range()
	bodyTop := math.Max(c.Open, c.Close)
	bodyBottom := math.Min(c.Open, c.Close)
	threshold := pd.cfg.PinWickRatio

	lowerRatio := c.LowerWick() / rng
	upperRatio := c.UpperWick() / rng

	// Long lower wick, body in the top third
	if lowerRatio > threshold && bodyBottom >= c.Low+rng*2/3 {
		r := PatternResult{Type: Hammer, Polarity: Bullish, Strength: wickStrength(lowerRatio, threshold)}
		if c.IsBearish() {
			r.Type, r.Polarity = HangingMan, Bearish
		}
		return r, true
	}

	// Long upper wick, body in the bottom third
	if upperRatio > threshold && bodyTop <= c.Low+rng/3 {
		r := PatternResult{Type: ShootingStar, Polarity: Bearish, Strength: wickStrength(upperRatio, threshold)}
		if c.IsBullish() {
			r.Type, r.Polarity = InvertedHammer, Bullish
		}
		return r, true
	}

	return PatternResult{}, false
}

// wickStrength scales wick dominance beyond the threshold into [0,1]
func wickStrength(ratio, threshold float64) float64 {
	return clamp01((ratio - threshold) / (1 - threshold))
}

// engulfing checks whether current's body swallows previous's body with
// opposite colors. Strength grows with the body ratio and saturates at
// EngulfingFullRatio.
// The current body must be strictly larger: an equal-size body covering the
// previous one exactly is not engulfing.
func (pd *PatternDetector) engulfing(prev, cur market.Bar) (PatternResult, bool) {
	prevBody := prev.Body()
	curBody := cur.Body()
	if curBody <= prevBody {
		return PatternResult{}, false
	}

	var r PatternResult
	switch {
	case prev.IsBearish() && cur.IsBullish() && cur.Open <= prev.Close && cur.Close >= prev.Open:
		r = PatternResult{Type: BullishEngulfing, Polarity: Bullish}
	case prev.IsBullish() && cur.IsBearish() && cur.Open >= prev.Close && cur.Close <= prev.Open:
		r = PatternResult{Type: BearishEngulfing, Polarity: Bearish}
	default:
		return PatternResult{}, false
	}

	if prevBody == 0 {
		r.Strength = 1
	} else {
		r.Strength = clamp01((curBody / prevBody) / pd.cfg.EngulfingFullRatio)
	}
	return r, true
}

// doji checks for a tiny body with wicks on both sides (indecision).
// Strength rises as the body shrinks toward zero.
func (pd *PatternDetector) doji(c market.Bar) (PatternResult, bool) {
	bodyRatio := c.Body() / c.Range()
	if bodyRatio >= pd.cfg.DojiBodyRatio {
		return PatternResult{}, false
	}
	if c.UpperWick() <= 0 || c.LowerWick() <= 0 {
		return PatternResult{}, false
	}
	return PatternResult{
		Type:     Doji,
		Polarity: Neutral,
		Strength: clamp01(1 - bodyRatio/pd.cfg.DojiBodyRatio),
	}, true
}
