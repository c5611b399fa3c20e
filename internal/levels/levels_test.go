package levels

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"signal-engine/internal/market"
)

func TestFloorPivotsScenario(t *testing.T) {
	calc := NewCalculator(DefaultConfig())
	set := calc.Pivots(market.Bar{Open: 90, High: 100, Low: 80, Close: 95})

	require.False(t, set.Degenerate)
	assert.InDelta(t, 91.6667, set.Levels["pivot"], 1e-4)
	assert.InDelta(t, 103.3333, set.Levels["R1"], 1e-4)
	assert.InDelta(t, 83.3333, set.Levels["S1"], 1e-4)
	assert.InDelta(t, 111.6667, set.Levels["R2"], 1e-4)
	assert.InDelta(t, 123.3333, set.Levels["R3"], 1e-4)
	assert.InDelta(t, 71.6667, set.Levels["S2"], 1e-4)
	assert.InDelta(t, 63.3333, set.Levels["S3"], 1e-4)
}

func TestFloorPivotsAreOrdered(t *testing.T) {
	cases := []struct{ h, l, c float64 }{
		{100, 80, 95},
		{100, 80, 80},
		{100, 80, 100},
		{62500, 61800, 62010},
		{1.0002, 1.0001, 1.00015},
	}
	for _, tc := range cases {
		p := FloorPivots(tc.h, tc.l, tc.c)
		assert.Less(t, p["pivot"], p["R1"])
		assert.Less(t, p["R1"], p["R2"])
		assert.Less(t, p["R2"], p["R3"])
		assert.Greater(t, p["pivot"], p["S1"])
		assert.Greater(t, p["S1"], p["S2"])
		assert.Greater(t, p["S2"], p["S3"])
	}
}

func TestCamarillaPivots(t *testing.T) {
	p := CamarillaPivots(100, 80, 95)
	assert.InDelta(t, 95+1.1*20/12, p["H1"], 1e-9)
	assert.InDelta(t, 95+1.1*20/2, p["H4"], 1e-9)
	assert.InDelta(t, 95-1.1*20/4, p["L3"], 1e-9)
	assert.Len(t, p, 8)
}

func TestWoodiePivots(t *testing.T) {
	p := WoodiePivots(100, 80, 95)
	assert.InDelta(t, 92.5, p["pivot"], 1e-9)
	assert.InDelta(t, 105, p["R1"], 1e-9)
	assert.InDelta(t, 85, p["S1"], 1e-9)
	assert.NotContains(t, p, "R3")
}

func TestParsePivotMethod(t *testing.T) {
	m, err := ParsePivotMethod("Camarilla")
	require.NoError(t, err)
	assert.Equal(t, Camarilla, m)

	m, err = ParsePivotMethod("")
	require.NoError(t, err)
	assert.Equal(t, Floor, m)

	_, err = ParsePivotMethod("fibonacci")
	assert.Error(t, err)
}

func TestFibonacciScenario(t *testing.T) {
	calc := NewCalculator(DefaultConfig())
	set, err := calc.Fibonacci(100, 80, Uptrend)
	require.NoError(t, err)

	assert.InDelta(t, 87.64, set.Levels["fib_0.618"], 1e-9)
	assert.InDelta(t, 112.36, set.Levels["fib_1.618"], 1e-9)
	assert.InDelta(t, 80, set.Levels["fib_1.000"], 1e-9)
}

func TestFibonacciEndpoints(t *testing.T) {
	assert.Equal(t, 100.0, Retracement(100, 80, 0, Uptrend))
	assert.Equal(t, 80.0, Retracement(100, 80, 1, Uptrend))
	assert.Equal(t, 100.0, Extension(100, 80, 1, Uptrend))

	// Downtrend mirrors the grid around the swing
	assert.Equal(t, 80.0, Retracement(100, 80, 0, Downtrend))
	assert.InDelta(t, 92.36, Retracement(100, 80, 0.618, Downtrend), 1e-9)
	assert.InDelta(t, 67.64, Extension(100, 80, 1.618, Downtrend), 1e-9)
}

func TestFibonacciDropsNonPositiveExtensions(t *testing.T) {
	set, err := FibonacciLevels(10, 2, Downtrend, DefaultRetracementRatios, DefaultExtensionRatios)
	require.NoError(t, err)
	_, ok := set.Get("fib_2.618")
	assert.False(t, ok, "2.618 extension falls below zero and must be omitted")
	for _, price := range set.Levels {
		assert.Greater(t, price, 0.0)
	}
}

func TestDegenerateWindow(t *testing.T) {
	calc := NewCalculator(DefaultConfig())
	flat := market.Bar{Open: 100, High: 100, Low: 100, Close: 100}

	set, err := calc.PivotsStrict(flat)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDegenerateRange))
	assert.True(t, set.Degenerate)
	assert.Zero(t, set.Len())

	m := NewMatcher(DefaultTolerance, nil).Nearest(100, set)
	assert.False(t, m.Found)
	assert.False(t, m.At)
}

func TestEvaluateMergesPivotsAndFibonacci(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SwingLookback = 3
	calc := NewCalculator(cfg)

	swing := market.Window{
		{Open: 85, High: 86, Low: 80, Close: 85, Timestamp: time.Unix(1, 0)},
		{Open: 85, High: 95, Low: 84, Close: 94, Timestamp: time.Unix(2, 0)},
		{Open: 94, High: 100, Low: 93, Close: 95, Timestamp: time.Unix(3, 0)},
	}
	set, err := calc.Evaluate(swing[2], swing)
	require.NoError(t, err)

	assert.Equal(t, Uptrend, set.Trend)
	assert.Contains(t, set.Levels, "pivot")
	assert.Contains(t, set.Levels, "fib_0.618")
	assert.Equal(t, 100.0, set.Levels[SwingHigh])
	assert.Equal(t, 80.0, set.Levels[SwingLow])
}

func TestFingerprintTracksInputs(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SwingLookback = 3
	calc := NewCalculator(cfg)

	swing := market.Window{
		{Open: 85, High: 86, Low: 80, Close: 85, Timestamp: time.Unix(1, 0)},
		{Open: 85, High: 95, Low: 84, Close: 94, Timestamp: time.Unix(2, 0)},
		{Open: 94, High: 100, Low: 93, Close: 95, Timestamp: time.Unix(3, 0)},
	}
	base := calc.Fingerprint(swing[2], swing)
	assert.Equal(t, base, calc.Fingerprint(swing[2], swing))

	scaled := make(market.Window, len(swing))
	for i, b := range swing {
		scaled[i] = market.Bar{Open: 2 * b.Open, High: 2 * b.High, Low: 2 * b.Low, Close: 2 * b.Close, Timestamp: b.Timestamp}
	}
	assert.NotEqual(t, base, calc.Fingerprint(scaled[2], scaled), "same timestamps, different prices")

	shorter := cfg
	shorter.SwingLookback = 2
	assert.NotEqual(t, base, NewCalculator(shorter).Fingerprint(swing[2], swing))

	camarilla := cfg
	camarilla.Method = Camarilla
	assert.NotEqual(t, base, NewCalculator(camarilla).Fingerprint(swing[2], swing))

	ratios := cfg
	ratios.RetracementRatios = []float64{0.5}
	assert.NotEqual(t, base, NewCalculator(ratios).Fingerprint(swing[2], swing))
}

func TestEvaluateInsufficientData(t *testing.T) {
	calc := NewCalculator(DefaultConfig())
	_, err := calc.Evaluate(market.Bar{High: 2, Low: 1, Close: 1.5}, market.Window{{High: 2, Low: 1}})

	var insufficient *market.InsufficientDataError
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, 50, insufficient.Required)
	assert.True(t, errors.Is(err, market.ErrInsufficientData))
}

func TestEvaluateFlatEverywhereIsDegenerate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SwingLookback = 2
	flat := market.Bar{Open: 100, High: 100, Low: 100, Close: 100}

	set, err := NewCalculator(cfg).Evaluate(flat, market.Window{flat, flat})
	require.NoError(t, err)
	assert.True(t, set.Degenerate)
	assert.False(t, set.Usable())
}

func TestMatcherNearestAndTolerance(t *testing.T) {
	set := LevelSet{Levels: map[string]float64{"S1": 100, "R1": 110, "pivot": 105}}
	m := NewMatcher(0.003, nil)

	got := m.Nearest(100.2, set)
	require.True(t, got.Found)
	assert.Equal(t, "S1", got.Name)
	assert.InDelta(t, 0.002, got.Distance, 1e-12)
	assert.True(t, got.At)

	got = m.Nearest(102, set)
	assert.Equal(t, "S1", got.Name)
	assert.False(t, got.At)

	assert.True(t, m.AtLevel(100.3, 100))
	assert.False(t, m.AtLevel(100.31, 100))
}

func TestMatcherSkipsUnusablePrices(t *testing.T) {
	set := LevelSet{Levels: map[string]float64{"S1": -5, "S2": 0, "R1": math.NaN(), "R2": math.Inf(1)}}
	m := NewMatcher(DefaultTolerance, nil)

	assert.False(t, m.Nearest(100, set).Found)
	assert.Empty(t, m.WithinTolerance(100, set))
	assert.False(t, m.AtLevel(100, math.Inf(1)))

	set.Levels["pivot"] = 100.1
	got := m.Nearest(100, set)
	require.True(t, got.Found)
	assert.Equal(t, "pivot", got.Name)
	assert.GreaterOrEqual(t, got.Distance, 0.0)
}

func TestFromMapValidatesPrices(t *testing.T) {
	set, err := FromMap(map[string]float64{"S1": 100, "fib_0.618": 98})
	require.NoError(t, err)
	assert.True(t, set.Usable())
	assert.Equal(t, 2, set.Len())

	empty, err := FromMap(nil)
	require.NoError(t, err)
	assert.True(t, empty.Degenerate)

	for _, bad := range []map[string]float64{
		{"S1": -5},
		{"S1": 0},
		{"R1": math.NaN()},
		{"": 100},
	} {
		_, err := FromMap(bad)
		assert.ErrorIs(t, err, ErrInvalidLevel, "%v", bad)
	}
}

func TestMatcherTieBreakUsesPriority(t *testing.T) {
	// All three levels sit on the same price
	set := LevelSet{Levels: map[string]float64{"fib_0.618": 100, "S2": 100, "zz_custom": 100}}
	m := NewMatcher(0.003, nil)

	assert.Equal(t, "fib_0.618", m.Nearest(100, set).Name)

	custom := NewMatcher(0.003, []string{"S2"})
	assert.Equal(t, "S2", custom.Nearest(100, set).Name)

	within := m.WithinTolerance(100, set)
	require.Len(t, within, 3)
	assert.Equal(t, "fib_0.618", within[0].Name)
	assert.Equal(t, "S2", within[1].Name)
	assert.Equal(t, "zz_custom", within[2].Name)
}

func TestLevelSetWithIsCopy(t *testing.T) {
	base := LevelSet{Levels: map[string]float64{"S1": 100}}
	next := base.With("ema_fast", 101)

	assert.Len(t, base.Levels, 1)
	assert.Len(t, next.Levels, 2)
	assert.Equal(t, SourceMovingAverage, SourceOf("ema_fast"))
	assert.Equal(t, SourceFibonacci, SourceOf("fib_0.382"))
	assert.Equal(t, SourceSwing, SourceOf(SwingHigh))
	assert.Equal(t, SourcePivot, SourceOf("H3"))
}
