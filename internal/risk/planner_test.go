package risk

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"signal-engine/internal/levels"
	"signal-engine/internal/market"
)

func set(kv map[string]float64) levels.LevelSet {
	return levels.LevelSet{Levels: kv}
}

func TestPlanFallsBackToRatioPrices(t *testing.T) {
	p := NewPlanner(DefaultConfig())
	plan, err := p.Plan(Request{
		Direction: market.Long,
		Entry:     62030,
		Trigger:   62000,
		Levels:    set(map[string]float64{"S1": 62000}),
	})
	require.NoError(t, err)

	assert.Equal(t, 61690.0, plan.StopLoss)
	assert.Equal(t, 340.0, plan.Risk)
	assert.Equal(t, StopOffset, plan.StopMode)

	assert.Equal(t, 62370.0, plan.TP1.Price)
	assert.Equal(t, "rr_1.0", plan.TP1.Source)
	assert.True(t, plan.TP1.Fallback())
	assert.Equal(t, 62710.0, plan.TP2.Price)
	assert.Equal(t, 63050.0, plan.TP3.Price)
	assert.Equal(t, "rr_3.0", plan.TP3.Source)

	assert.InDelta(t, 3.0, plan.RiskRewardRatio, 1e-12)
	assert.InDelta(t, 1.0, plan.TP1.RiskReward, 1e-12)
	assert.True(t, plan.Valid)
	assert.Empty(t, plan.Errors)
	assert.Empty(t, plan.Warnings)
}

func TestPlanSnapsTargetsToLevels(t *testing.T) {
	p := NewPlanner(DefaultConfig())
	plan, err := p.Plan(Request{
		Direction: market.Long,
		Entry:     62030,
		Trigger:   62000,
		Levels: set(map[string]float64{
			"S1":        62000,
			"R1":        62380,
			"fib_1.618": 62700,
			"R3":        65000, // too far from any slot
		}),
	})
	require.NoError(t, err)

	assert.Equal(t, 62380.0, plan.TP1.Price)
	assert.Equal(t, "R1", plan.TP1.Source)
	assert.False(t, plan.TP1.Fallback())
	assert.Equal(t, "fib_1.618", plan.TP2.Source)
	assert.Equal(t, "rr_3.0", plan.TP3.Source)
	assert.True(t, plan.Valid)
}

func TestTargetTieBreakUsesSourcePriority(t *testing.T) {
	req := Request{
		Direction: market.Long,
		Entry:     62030,
		Trigger:   62000,
		// Both 10 away from the 2R price of 62710
		Levels: set(map[string]float64{"R2": 62720, "fib_1.618": 62700}),
	}

	plan, err := NewPlanner(DefaultConfig()).Plan(req)
	require.NoError(t, err)
	assert.Equal(t, "R2", plan.TP2.Source)

	cfg := DefaultConfig()
	cfg.SourcePriority = []levels.Source{levels.SourceFibonacci, levels.SourcePivot}
	plan, err = NewPlanner(cfg).Plan(req)
	require.NoError(t, err)
	assert.Equal(t, "fib_1.618", plan.TP2.Source)
}

func TestTargetsNeverReuseOrFallBehindPreviousSlot(t *testing.T) {
	cfg := DefaultConfig()
	cfg.TargetRatios = [3]float64{1.0, 1.001, 1.002}
	cfg.TargetTolerance = 0.01
	cfg.MinRiskReward = 0
	cfg.GoodRiskReward = 0

	plan, err := NewPlanner(cfg).Plan(Request{
		Direction: market.Long,
		Entry:     100,
		Trigger:   100,
		Levels:    set(map[string]float64{"R1": 100.5}),
	})
	require.NoError(t, err)

	assert.Equal(t, "R1", plan.TP1.Source)
	assert.True(t, plan.TP2.Fallback())
	assert.True(t, plan.TP3.Fallback())
	assert.Less(t, plan.TP1.Price, plan.TP2.Price)
	assert.Less(t, plan.TP2.Price, plan.TP3.Price)
}

func TestTriggerDerivedFromLevels(t *testing.T) {
	p := NewPlanner(DefaultConfig())

	plan, err := p.Plan(Request{
		Direction: market.Long,
		Entry:     62030,
		Levels:    set(map[string]float64{"S1": 62000, "S2": 61000, "R1": 63000}),
	})
	require.NoError(t, err)
	assert.Equal(t, 62000.0, plan.Trigger)
	assert.Equal(t, "S1", plan.TriggerSource)
	assert.Equal(t, 61690.0, plan.StopLoss)

	plan, err = p.Plan(Request{Direction: market.Long, Entry: 200, Levels: levels.Empty("flat")})
	require.NoError(t, err)
	assert.Equal(t, "entry", plan.TriggerSource)
	assert.Equal(t, 199.0, plan.StopLoss)
	assert.True(t, plan.TP1.Fallback())
}

func TestATRStopReplacesOffset(t *testing.T) {
	cfg := DefaultConfig()
	cfg.UseATRStop = true
	p := NewPlanner(cfg)
	req := Request{Direction: market.Long, Entry: 62030, Trigger: 62000, ATR: 100}

	plan, err := p.Plan(req)
	require.NoError(t, err)
	assert.Equal(t, StopATR, plan.StopMode)
	assert.Equal(t, 61850.0, plan.StopLoss)
	assert.Equal(t, 180.0, plan.Risk)

	req.ATR = 0
	plan, err = p.Plan(req)
	require.NoError(t, err)
	assert.Equal(t, StopOffset, plan.StopMode)
	assert.Equal(t, 61690.0, plan.StopLoss)
	assert.Len(t, plan.Warnings, 1)
}

func TestShortPlanIsMirrored(t *testing.T) {
	plan, err := NewPlanner(DefaultConfig()).Plan(Request{
		Direction: market.Short,
		Entry:     100,
		Trigger:   101,
	})
	require.NoError(t, err)

	assert.Equal(t, 101.505, plan.StopLoss)
	assert.Equal(t, 1.505, plan.Risk)
	assert.Equal(t, 98.495, plan.TP1.Price)
	assert.Equal(t, 96.99, plan.TP2.Price)
	assert.Equal(t, 95.485, plan.TP3.Price)
	assert.True(t, plan.Valid)
}

func TestShortDeepStopRejectsNonPositiveTargets(t *testing.T) {
	plan, err := NewPlanner(DefaultConfig()).Plan(Request{
		Direction: market.Short,
		Entry:     100,
		Trigger:   150,
		Levels:    set(map[string]float64{"R1": 150, "S3": 2}),
	})
	require.NoError(t, err)

	assert.Equal(t, 150.75, plan.StopLoss)
	assert.Equal(t, 49.25, plan.TP1.Price)
	assert.Equal(t, "rr_2.0", plan.TP2.Source, "ratio price below zero is never snapped to a level")
	assert.LessOrEqual(t, plan.TP2.Price, 0.0)
	assert.False(t, plan.Valid)
	require.Len(t, plan.Errors, 1)
	assert.Contains(t, plan.Errors[0], "TP2")
	assert.Contains(t, plan.Errors[0], "not a positive price")
}

func TestZeroRiskIsInvalidNotError(t *testing.T) {
	// 100 * 0.995 rounds to exactly the entry
	plan, err := NewPlanner(DefaultConfig()).Plan(Request{
		Direction: market.Long,
		Entry:     99.5,
		Trigger:   100,
	})
	require.NoError(t, err)
	assert.False(t, plan.Valid)
	require.Len(t, plan.Errors, 1)
	assert.Contains(t, plan.Errors[0], ErrZeroRisk.Error())
	assert.Contains(t, plan.Summary(), "invalid")
}

func TestOrderingViolationIsFirstError(t *testing.T) {
	// Support above entry puts the stop above entry
	plan, err := NewPlanner(DefaultConfig()).Plan(Request{
		Direction: market.Long,
		Entry:     100,
		Trigger:   110,
	})
	require.NoError(t, err)
	assert.False(t, plan.Valid)
	require.Len(t, plan.Errors, 1)
	assert.Contains(t, plan.Errors[0], "ordering")
}

func TestRiskRewardValidation(t *testing.T) {
	cfg := DefaultConfig()
	cfg.TargetRatios = [3]float64{0.2, 0.4, 0.6}
	plan, err := NewPlanner(cfg).Plan(Request{Direction: market.Long, Entry: 100, Trigger: 100})
	require.NoError(t, err)
	assert.False(t, plan.Valid)
	require.Len(t, plan.Errors, 1)
	assert.Contains(t, plan.Errors[0], "risk/reward")

	cfg.TargetRatios = [3]float64{0.5, 1.0, 1.2}
	plan, err = NewPlanner(cfg).Plan(Request{Direction: market.Long, Entry: 100, Trigger: 100})
	require.NoError(t, err)
	assert.True(t, plan.Valid)
	assert.Empty(t, plan.Errors)
	require.Len(t, plan.Warnings, 1)
	assert.Contains(t, plan.Warnings[0], "below the preferred")
}

func TestPlanRejectsBadInput(t *testing.T) {
	p := NewPlanner(DefaultConfig())

	_, err := p.Plan(Request{Direction: market.Hold, Entry: 100})
	assert.ErrorIs(t, err, ErrNoDirection)

	_, err = p.Plan(Request{Direction: market.Long, Entry: 0})
	assert.ErrorIs(t, err, ErrInvalidRequest)

	_, err = p.Plan(Request{Direction: market.Long, Entry: math.NaN()})
	assert.ErrorIs(t, err, ErrInvalidRequest)

	_, err = p.Plan(Request{Direction: market.Long, Entry: 100, Trigger: -1})
	assert.ErrorIs(t, err, ErrInvalidRequest)

	cfg := DefaultConfig()
	cfg.PositionFractions = [3]float64{0.5, 0.5, 0.5}
	_, err = NewPlanner(cfg).Plan(Request{Direction: market.Long, Entry: 100})
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestConfigValidate(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())

	cfg := DefaultConfig()
	cfg.TargetRatios = [3]float64{2, 1, 3}
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)

	cfg = DefaultConfig()
	cfg.StopOffset = 1
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)

	cfg = DefaultConfig()
	cfg.GoodRiskReward = 0.5
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
}

func TestValidPlansKeepOrderingAndFractions(t *testing.T) {
	p := NewPlanner(DefaultConfig())
	lv := set(map[string]float64{
		"S2": 95, "S1": 98, "pivot": 100, "R1": 102, "R2": 104.1,
		"fib_0.618": 99, "fib_1.618": 106, "swing_high": 103, "swing_low": 96,
	})

	for _, dir := range []market.Direction{market.Long, market.Short} {
		for entry := 94.0; entry <= 106; entry += 0.37 {
			plan, err := p.Plan(Request{Direction: dir, Entry: entry, Levels: lv})
			require.NoError(t, err)
			if !plan.Valid {
				continue
			}
			tp := plan.Targets()
			if dir == market.Long {
				assert.Less(t, plan.StopLoss, plan.Entry)
				assert.Less(t, plan.Entry, tp[0].Price)
				assert.Less(t, tp[0].Price, tp[1].Price)
				assert.Less(t, tp[1].Price, tp[2].Price)
			} else {
				assert.Greater(t, plan.StopLoss, plan.Entry)
				assert.Greater(t, plan.Entry, tp[0].Price)
				assert.Greater(t, tp[0].Price, tp[1].Price)
				assert.Greater(t, tp[1].Price, tp[2].Price)
			}
			sum := tp[0].PositionFraction + tp[1].PositionFraction + tp[2].PositionFraction
			assert.InDelta(t, 1.0, sum, 1e-9)
		}
	}
}

func TestSummary(t *testing.T) {
	plan, err := NewPlanner(DefaultConfig()).Plan(Request{Direction: market.Long, Entry: 62030, Trigger: 62000})
	require.NoError(t, err)
	assert.Equal(t,
		"LONG: Entry 62030.00 | SL 61690.00 (Risk: 340.0000) | TP1 62370.00 | TP2 62710.00 | TP3 63050.00 | RR: 3.00:1",
		plan.Summary())
}
