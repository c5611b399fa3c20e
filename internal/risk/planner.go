package risk

import (
	"fmt"
	"math"
	"sort"

	"github.com/shopspring/decimal"

	"signal-engine/internal/levels"
	"signal-engine/internal/market"
)

const ratioSourcePrefix = "rr_"

// Request is everything the planner needs for one setup
type Request struct {
	Direction market.Direction
	Entry     float64
	Levels    levels.LevelSet
	// Trigger is the support (LONG) or resistance (SHORT) the stop hangs off.
	// Zero picks the nearest level on the stop side of entry, or entry itself.
	Trigger float64
	ATR     float64
}

// candidate is a named level that could serve as a take-profit
type candidate struct {
	name   string
	price  float64
	source levels.Source
}

// Planner derives stop-loss, targets and sizing for a directional entry
type Planner struct {
	cfg        Config
	matcher    *levels.Matcher
	sourceRank map[levels.Source]int
}

// NewPlanner creates a planner. Configuration is validated on every Plan call.
func NewPlanner(cfg Config) *Planner {
	rank := make(map[levels.Source]int, len(cfg.SourcePriority))
	for i, s := range cfg.SourcePriority {
		if _, dup := rank[s]; !dup {
			rank[s] = i
		}
	}
	return &Planner{
		cfg:        cfg,
		matcher:    levels.NewMatcher(cfg.TargetTolerance, cfg.LevelPriority),
		sourceRank: rank,
	}
}

// Config returns the planner configuration
func (p *Planner) Config() Config {
	return p.cfg
}

// Plan builds and validates a trade plan. Bad input and bad configuration are
// returned as errors; a plan that fails validation is returned with Valid=false.
func (p *Planner) Plan(req Request) (TradePlan, error) {
	if err := p.cfg.Validate(); err != nil {
		return TradePlan{}, err
	}
	if !req.Direction.IsTrade() {
		return TradePlan{}, fmt.Errorf("%w: got %q", ErrNoDirection, req.Direction)
	}
	if req.Entry <= 0 || math.IsNaN(req.Entry) || math.IsInf(req.Entry, 0) {
		return TradePlan{}, fmt.Errorf("%w: entry price must be positive and finite, got %v", ErrInvalidRequest, req.Entry)
	}
	if req.Trigger < 0 || math.IsNaN(req.Trigger) || math.IsInf(req.Trigger, 0) {
		return TradePlan{}, fmt.Errorf("%w: trigger level must be a finite non-negative price, got %v", ErrInvalidRequest, req.Trigger)
	}

	long := req.Direction == market.Long
	plan := TradePlan{
		Direction: req.Direction,
		Entry:     p.round(req.Entry),
		Valid:     true,
		Errors:    []string{},
		Warnings:  []string{},
	}

	plan.Trigger, plan.TriggerSource = p.trigger(req, long)
	plan.StopLoss, plan.StopMode = p.stopLoss(plan.Trigger, req.ATR, long)
	if p.cfg.UseATRStop && plan.StopMode != StopATR {
		plan.warn("ATR stop requested but ATR unavailable, using %.2f%% offset", p.cfg.StopOffset*100)
	}

	plan.Risk = p.round(math.Abs(plan.Entry - plan.StopLoss))
	if plan.Risk <= 0 {
		plan.fail("%s: entry %.8g equals stop-loss", ErrZeroRisk, plan.Entry)
		return plan, nil
	}

	targets := p.selectTargets(plan.Entry, plan.Risk, long, p.candidates(req.Levels, plan.Entry, long))
	plan.TP1, plan.TP2, plan.TP3 = targets[0], targets[1], targets[2]
	plan.RiskRewardRatio = math.Abs(plan.TP3.Price-plan.Entry) / plan.Risk

	p.validate(&plan)
	return plan, nil
}

// trigger resolves the level the stop is placed against
func (p *Planner) trigger(req Request, long bool) (float64, string) {
	if req.Trigger > 0 {
		return p.round(req.Trigger), "request"
	}
	m := p.matcher.NearestWhere(req.Entry, req.Levels, func(_ string, level float64) bool {
		if long {
			return level <= req.Entry
		}
		return level >= req.Entry
	})
	if m.Found {
		return p.round(m.Price), m.Name
	}
	return p.round(req.Entry), "entry"
}

// stopLoss applies either the ATR or the offset formula, never both
func (p *Planner) stopLoss(trigger, atr float64, long bool) (float64, StopMode) {
	if p.cfg.UseATRStop && atr > 0 && !math.IsInf(atr, 0) {
		d := atr * p.cfg.ATRMultiplier
		if long {
			return p.round(trigger - d), StopATR
		}
		return p.round(trigger + d), StopATR
	}
	if long {
		return p.round(trigger * (1 - p.cfg.StopOffset)), StopOffset
	}
	return p.round(trigger * (1 + p.cfg.StopOffset)), StopOffset
}

// candidates lists every level strictly beyond entry on the profit side
func (p *Planner) candidates(set levels.LevelSet, entry float64, long bool) []candidate {
	if !set.Usable() {
		return nil
	}
	out := make([]candidate, 0, set.Len())
	for name, price := range set.Levels {
		if (long && price > entry) || (!long && price < entry) {
			out = append(out, candidate{name: name, price: p.round(price), source: levels.SourceOf(name)})
		}
	}
	sort.Slice(out, func(i, j int) bool { return p.better(out[i], out[j]) })
	return out
}

// better ranks two candidates at equal distance
func (p *Planner) better(a, b candidate) bool {
	ra, rb := p.rankOf(a.source), p.rankOf(b.source)
	if ra != rb {
		return ra < rb
	}
	return p.matcher.Less(a.name, b.name)
}

func (p *Planner) rankOf(s levels.Source) int {
	if r, ok := p.sourceRank[s]; ok {
		return r
	}
	return len(p.sourceRank)
}

// selectTargets fills each ratio slot with the closest candidate to its ideal
// price, or the ideal price itself. Every slot lies beyond the previous one.
func (p *Planner) selectTargets(entry, risk float64, long bool, cands []candidate) [3]Target {
	var out [3]Target
	prev := entry
	for i, ratio := range p.cfg.TargetRatios {
		ideal := entry + risk*ratio
		if !long {
			ideal = entry - risk*ratio
		}

		var pick *candidate
		bestDist := math.Inf(1)
		for j := range cands {
			if ideal <= 0 {
				break
			}
			c := &cands[j]
			if (long && c.price <= prev) || (!long && c.price >= prev) {
				continue
			}
			d := levels.Distance(c.price, ideal)
			if d > p.cfg.TargetTolerance+1e-12 {
				continue
			}
			// cands is pre-sorted by priority so only a strictly closer one wins
			if d < bestDist {
				pick, bestDist = c, d
			}
		}

		t := Target{PositionFraction: p.cfg.PositionFractions[i]}
		if pick != nil {
			t.Price, t.Source = pick.price, pick.name
		} else {
			t.Price, t.Source = p.round(ideal), fmt.Sprintf("%s%.1f", ratioSourcePrefix, ratio)
		}
		t.RiskReward = math.Abs(t.Price-entry) / risk
		out[i] = t
		prev = t.Price
	}
	return out
}

// validate runs the ordered checks. Only the first failure is recorded.
func (p *Planner) validate(plan *TradePlan) {
	long := plan.Direction == market.Long
	t := plan.Targets()

	for i, target := range t {
		if target.Price <= 0 {
			plan.fail("TP%d %.8g is not a positive price", i+1, target.Price)
			return
		}
	}

	ordered := plan.StopLoss > 0
	if long {
		ordered = ordered && plan.StopLoss < plan.Entry && plan.Entry < t[0].Price && t[0].Price < t[1].Price && t[1].Price < t[2].Price
	} else {
		ordered = ordered && plan.StopLoss > plan.Entry && plan.Entry > t[0].Price && t[0].Price > t[1].Price && t[1].Price > t[2].Price
	}
	if !ordered {
		if long {
			plan.fail("invalid LONG ordering: need SL %.8g < entry %.8g < TP1 %.8g < TP2 %.8g < TP3 %.8g",
				plan.StopLoss, plan.Entry, t[0].Price, t[1].Price, t[2].Price)
		} else {
			plan.fail("invalid SHORT ordering: need TP3 %.8g < TP2 %.8g < TP1 %.8g < entry %.8g < SL %.8g",
				t[2].Price, t[1].Price, t[0].Price, plan.Entry, plan.StopLoss)
		}
		return
	}

	if plan.RiskRewardRatio < p.cfg.MinRiskReward {
		plan.fail("risk/reward %.2f below minimum %.2f", plan.RiskRewardRatio, p.cfg.MinRiskReward)
		return
	}

	sum := 0.0
	for i, target := range t {
		sum += target.PositionFraction
		if (long && target.Price <= plan.Entry) || (!long && target.Price >= plan.Entry) {
			plan.fail("TP%d %.8g on wrong side of entry %.8g", i+1, target.Price, plan.Entry)
			return
		}
		if i > 0 && ((long && target.Price <= t[i-1].Price) || (!long && target.Price >= t[i-1].Price)) {
			plan.fail("TP%d %.8g does not extend beyond TP%d %.8g", i+1, target.Price, i, t[i-1].Price)
			return
		}
	}
	if math.Abs(sum-1) > fractionTolerance {
		plan.fail("position fractions sum to %.10f, want 1.0", sum)
		return
	}

	if plan.RiskRewardRatio < p.cfg.GoodRiskReward {
		plan.warn("risk/reward %.2f is below the preferred %.2f", plan.RiskRewardRatio, p.cfg.GoodRiskReward)
	}
}

func (p *Planner) round(v float64) float64 {
	return decimal.NewFromFloat(v).Round(p.cfg.PricePrecision).InexactFloat64()
}
