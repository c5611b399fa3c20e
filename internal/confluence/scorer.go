package confluence

import (
	"fmt"
	"math"

	"signal-engine/internal/indicators"
	"signal-engine/internal/levels"
	"signal-engine/internal/market"
	"signal-engine/internal/patterns"
)

// Factor names, in the order reasons are reported
const (
	FactorLevel       = "level"
	FactorTrend       = "trend"
	FactorMomentum    = "momentum"
	FactorPattern     = "pattern"
	FactorPriceAction = "price_action"
	FactorStructure   = "structure"
	FactorMultiLevel  = "multi_level"
)

// Factor is one present contributor to a confidence score. The multi-level
// factor has zero weight; its Score is the bonus added after normalization.
type Factor struct {
	Name   string  `json:"name"`
	Weight float64 `json:"weight"`
	Score  float64 `json:"score"` // 0.0 to 1.0
	Reason string  `json:"reason"`
}

// Inputs is everything the scorer looks at for one bar
type Inputs struct {
	Price     float64
	Levels    levels.LevelSet
	Pattern   patterns.PatternResult
	Trend     indicators.TrendInputs
	Momentum  indicators.MomentumInputs
	Previous  *market.Bar           // confirming bar for price action
	Structure *indicators.Structure // nil when not computed
}

// Result is the per-direction confluence outcome
type Result struct {
	Direction  market.Direction `json:"direction"`
	Confidence float64          `json:"confidence"`
	Bonus      float64          `json:"bonus"` // multi-level bonus included in Confidence
	Grade      string           `json:"grade"` // "A+", "A", "B+", "B", "C", "D", "F"
	Label      string           `json:"label"` // "Very High" ... "Very Low"
	Factors    []Factor         `json:"factors"`
	Reasons    []string         `json:"reasons"`
}

// Factor looks up a present factor by name
func (r Result) Factor(name string) (Factor, bool) {
	for _, f := range r.Factors {
		if f.Name == name {
			return f, true
		}
	}
	return Factor{}, false
}

// ConfluenceScorer combines level, trend, momentum, pattern and structure
// evidence into a per-direction confidence
type ConfluenceScorer struct {
	cfg     Config
	matcher *levels.Matcher
}

// NewConfluenceScorer creates a scorer. The config is copied and never mutated.
func NewConfluenceScorer(cfg Config) *ConfluenceScorer {
	cfg = cfg.withDefaults()
	return &ConfluenceScorer{
		cfg:     cfg,
		matcher: levels.NewMatcher(cfg.Tolerance, cfg.Priority),
	}
}

// Score evaluates one direction
func (cs *ConfluenceScorer) Score(dir market.Direction, in Inputs) Result {
	factors := make([]Factor, 0, 7)
	add := func(f Factor, present bool) {
		if present {
			f.Score = clamp01(f.Score)
			factors = append(factors, f)
		}
	}

	// 1. Level proximity
	add(cs.levelFactor(dir, in))
	// 2. Trend alignment
	add(cs.trendFactor(dir, in.Trend))
	// 3. Momentum filter
	add(cs.momentumFactor(dir, in.Momentum))
	// 4. Pattern confirmation
	add(cs.patternFactor(dir, in.Pattern))
	// 5. Price action
	add(cs.priceActionFactor(dir, in.Price, in.Previous))
	// 6. Market structure
	add(cs.structureFactor(dir, in.Structure))
	// 7. Multi-level confluence
	bonus := 0.0
	if f, ok := cs.multiLevelFactor(in.Price, in.Levels); ok {
		bonus = f.Score
		add(f, true)
	}

	confidence := Aggregate(factors)
	if hasWeight(factors) {
		confidence = clamp01(confidence + bonus)
	} else {
		bonus = 0
	}
	reasons := make([]string, len(factors))
	for i, f := range factors {
		reasons[i] = f.Reason
	}

	return Result{
		Direction:  dir,
		Confidence: confidence,
		Bonus:      bonus,
		Grade:      scoreToGrade(confidence),
		Label:      scoreToConfidence(confidence),
		Factors:    factors,
		Reasons:    reasons,
	}
}

// ScoreBoth evaluates LONG and SHORT on the same inputs
func (cs *ConfluenceScorer) ScoreBoth(in Inputs) (long, short Result) {
	return cs.Score(market.Long, in), cs.Score(market.Short, in)
}

func hasWeight(factors []Factor) bool {
	for _, f := range factors {
		if f.Weight > 0 {
			return true
		}
	}
	return false
}

// Aggregate is the weighted mean over present factors. Absent factors do not
// enter the denominator; zero total weight yields 0.
func Aggregate(factors []Factor) float64 {
	var num, den float64
	for _, f := range factors {
		if f.Weight <= 0 {
			continue
		}
		num += f.Weight * clamp01(f.Score)
		den += f.Weight
	}
	if den == 0 {
		return 0
	}
	return clamp01(num / den)
}

func (cs *ConfluenceScorer) levelFactor(dir market.Direction, in Inputs) (Factor, bool) {
	f := Factor{Name: FactorLevel, Weight: cs.cfg.Weights.Level}
	role := "support"
	keep := func(_ string, level float64) bool { return level <= in.Price }
	if dir == market.Short {
		role = "resistance"
		keep = func(_ string, level float64) bool { return level >= in.Price }
	}

	m := cs.matcher.NearestWhere(in.Price, in.Levels, keep)
	if !m.Found || !m.At {
		return f, false
	}
	f.Score = 1 - m.Distance/cs.cfg.Tolerance
	f.Reason = fmt.Sprintf("price at %s %s (%.2f%% away)", role, m.Name, m.Distance*100)
	return f, true
}

func (cs *ConfluenceScorer) trendFactor(dir market.Direction, t indicators.TrendInputs) (Factor, bool) {
	f := Factor{Name: FactorTrend, Weight: cs.cfg.Weights.Trend}
	if !t.Available() {
		return f, false
	}
	sep := t.Separation()
	aligned := (dir == market.Long && t.FastMA > t.SlowMA) || (dir == market.Short && t.FastMA < t.SlowMA)
	if aligned {
		f.Score = sep / cs.cfg.TrendFullSeparation
	}

	relation := "above"
	if t.FastMA < t.SlowMA {
		relation = "below"
	} else if t.FastMA == t.SlowMA {
		relation = "level with"
	}
	if aligned {
		f.Reason = fmt.Sprintf("fast MA %s slow MA (%.2f%% separation)", relation, sep*100)
	} else {
		f.Reason = fmt.Sprintf("fast MA %s slow MA, against %s (%.2f%% separation)", relation, dir, sep*100)
	}
	return f, true
}

func (cs *ConfluenceScorer) momentumFactor(dir market.Direction, m indicators.MomentumInputs) (Factor, bool) {
	f := Factor{Name: FactorMomentum, Weight: cs.cfg.Weights.Momentum}
	if !m.Available() {
		return f, false
	}
	rsi := *m.RSI
	band := cs.cfg.Overbought - cs.cfg.Oversold

	switch dir {
	case market.Long:
		if rsi < cs.cfg.Overbought {
			f.Score = (cs.cfg.Overbought - rsi) / band
		}
	case market.Short:
		if rsi > cs.cfg.Oversold {
			f.Score = (rsi - cs.cfg.Oversold) / band
		}
	}

	switch {
	case f.Score <= 0:
		f.Reason = fmt.Sprintf("RSI %.1f at the opposite extreme", rsi)
	case rsi <= cs.cfg.Oversold:
		f.Reason = fmt.Sprintf("RSI %.1f oversold", rsi)
	case rsi >= cs.cfg.Overbought:
		f.Reason = fmt.Sprintf("RSI %.1f overbought", rsi)
	default:
		f.Reason = fmt.Sprintf("RSI %.1f inside %.0f-%.0f band", rsi, cs.cfg.Oversold, cs.cfg.Overbought)
	}
	return f, true
}

func (cs *ConfluenceScorer) patternFactor(dir market.Direction, p patterns.PatternResult) (Factor, bool) {
	f := Factor{Name: FactorPattern, Weight: cs.cfg.Weights.Pattern}
	if !p.Found() || p.Strength < cs.cfg.PatternFloor {
		return f, false
	}
	want := patterns.Bullish
	if dir == market.Short {
		want = patterns.Bearish
	}
	if p.Polarity == want {
		f.Score = p.Strength
		f.Reason = fmt.Sprintf("%s pattern %s (strength %.2f)", p.Polarity, p.Type, p.Strength)
	} else {
		f.Reason = fmt.Sprintf("%s pattern %s does not confirm %s", p.Polarity, p.Type, dir)
	}
	if p.OutsideBar {
		f.Reason += ", outside bar"
	}
	return f, true
}

func (cs *ConfluenceScorer) priceActionFactor(dir market.Direction, price float64, prev *market.Bar) (Factor, bool) {
	f := Factor{Name: FactorPriceAction, Weight: cs.cfg.Weights.PriceAction}
	if prev == nil {
		return f, false
	}
	switch dir {
	case market.Long:
		if price > prev.High {
			f.Score = cs.cfg.PriceActionScore
			f.Reason = fmt.Sprintf("close %.8g above prior high %.8g", price, prev.High)
		} else {
			f.Reason = fmt.Sprintf("close %.8g not above prior high %.8g", price, prev.High)
		}
	case market.Short:
		if price < prev.Low {
			f.Score = cs.cfg.PriceActionScore
			f.Reason = fmt.Sprintf("close %.8g below prior low %.8g", price, prev.Low)
		} else {
			f.Reason = fmt.Sprintf("close %.8g not below prior low %.8g", price, prev.Low)
		}
	}
	return f, true
}

func (cs *ConfluenceScorer) structureFactor(dir market.Direction, s *indicators.Structure) (Factor, bool) {
	f := Factor{Name: FactorStructure, Weight: cs.cfg.Weights.Structure}
	if !cs.cfg.StructureEnabled || s == nil || !s.Available() {
		return f, false
	}
	if dir == market.Short {
		f.Score = s.BearishScore()
		f.Reason = fmt.Sprintf("structure %s (%d/%d lower highs, %d/%d lower lows)", s.Trend, s.LowerHighs, s.Steps, s.LowerLows, s.Steps)
	} else {
		f.Score = s.BullishScore()
		f.Reason = fmt.Sprintf("structure %s (%d/%d higher highs, %d/%d higher lows)", s.Trend, s.HigherHighs, s.Steps, s.HigherLows, s.Steps)
	}
	return f, true
}

// countedSources are the independent level families for the multi-level bonus
var countedSources = []levels.Source{levels.SourcePivot, levels.SourceFibonacci, levels.SourceMovingAverage}

// multiLevelFactor scores min((count-1)*BonusStep, BonusCap) once at least
// MultiLevelMin independent sources sit within tolerance of price
func (cs *ConfluenceScorer) multiLevelFactor(price float64, set levels.LevelSet) (Factor, bool) {
	f := Factor{Name: FactorMultiLevel}
	seen := make(map[levels.Source]string, len(countedSources))
	for _, m := range cs.matcher.WithinTolerance(price, set) {
		src := m.Source()
		if _, ok := seen[src]; !ok {
			seen[src] = m.Name
		}
	}

	count := 0
	names := make([]string, 0, len(countedSources))
	for _, src := range countedSources {
		if name, ok := seen[src]; ok {
			count++
			names = append(names, name)
		}
	}
	if count < cs.cfg.MultiLevelMin {
		return f, false
	}
	f.Score = math.Min(float64(count-1)*cs.cfg.BonusStep, cs.cfg.BonusCap)
	f.Reason = fmt.Sprintf("%d independent levels agree %v (+%.2f)", count, names, f.Score)
	return f, true
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

// scoreToGrade converts numerical score to letter grade
func scoreToGrade(score float64) string {
	if score >= 0.90 {
		return "A+"
	} else if score >= 0.85 {
		return "A"
	} else if score >= 0.75 {
		return "B+"
	} else if score >= 0.70 {
		return "B"
	} else if score >= 0.60 {
		return "C"
	} else if score >= 0.50 {
		return "D"
	}
	return "F"
}

// scoreToConfidence converts score to confidence level
func scoreToConfidence(score float64) string {
	if score >= 0.85 {
		return "Very High"
	} else if score >= 0.75 {
		return "High"
	} else if score >= 0.60 {
		return "Medium"
	} else if score >= 0.45 {
		return "Low"
	}
	return "Very Low"
}
