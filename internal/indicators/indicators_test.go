package indicators

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"signal-engine/internal/market"
)

func flatWindow(n int) market.Window {
	w := make(market.Window, n)
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := range w {
		w[i] = market.Bar{Open: 100, High: 101, Low: 99, Close: 100, Timestamp: start.Add(time.Duration(i) * time.Hour)}
	}
	return w
}

func risingWindow(n int) market.Window {
	w := make(market.Window, n)
	for i := range w {
		p := 100 + float64(i)
		w[i] = market.Bar{Open: p - 0.5, High: p + 1, Low: p - 1, Close: p}
	}
	return w
}

func TestMovingAverageOfConstantSeries(t *testing.T) {
	closes := flatWindow(60).Closes()

	ema, err := MovingAverage(closes, 20, EMA)
	require.NoError(t, err)
	assert.InDelta(t, 100, ema, 1e-9)

	sma, err := MovingAverage(closes, 20, SMA)
	require.NoError(t, err)
	assert.InDelta(t, 100, sma, 1e-9)
}

func TestMovingAverageInsufficientData(t *testing.T) {
	_, err := MovingAverage([]float64{1, 2, 3}, 5, EMA)
	require.Error(t, err)
	assert.True(t, errors.Is(err, market.ErrInsufficientData))
}

func TestRSIOfRisingSeries(t *testing.T) {
	rsi, err := RSI(risingWindow(30).Closes(), 14)
	require.NoError(t, err)
	assert.InDelta(t, 100, rsi, 1e-9)
}

func TestATROfConstantRange(t *testing.T) {
	atr, err := ATR(flatWindow(30), 14)
	require.NoError(t, err)
	assert.InDelta(t, 2, atr, 1e-9)
}

func TestComputeSnapshot(t *testing.T) {
	cfg := DefaultConfig()
	cfg.FastPeriod, cfg.SlowPeriod = 5, 20

	snap, err := Compute(risingWindow(40), cfg)
	require.NoError(t, err)
	assert.True(t, snap.Trend.Available())
	assert.Greater(t, snap.Trend.FastMA, snap.Trend.SlowMA)
	assert.True(t, snap.Momentum.Available())
	assert.Greater(t, snap.ATR, 0.0)
	assert.Equal(t, StructureUptrend, snap.Structure.Trend)
}

func TestComputeRequiresLookback(t *testing.T) {
	_, err := Compute(flatWindow(50), DefaultConfig())

	var insufficient *market.InsufficientDataError
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, 200, insufficient.Required)
}

func TestMarketStructure(t *testing.T) {
	up := MarketStructure(risingWindow(10), 5)
	assert.Equal(t, StructureUptrend, up.Trend)
	assert.Equal(t, 4, up.Steps)
	assert.Equal(t, 1.0, up.BullishScore())
	assert.Equal(t, 0.0, up.BearishScore())

	flat := MarketStructure(flatWindow(10), 5)
	assert.Equal(t, StructureConsolidation, flat.Trend)
	assert.Equal(t, 0.0, flat.BullishScore())

	short := MarketStructure(flatWindow(3), 5)
	assert.False(t, short.Available())
}

func TestTrendAndMomentumAvailability(t *testing.T) {
	assert.False(t, TrendInputs{FastMA: 100}.Available())
	assert.InDelta(t, 0.02, TrendInputs{FastMA: 102, SlowMA: 100}.Separation(), 1e-12)
	assert.False(t, MomentumInputs{}.Available())
	assert.True(t, Momentum(0).Available())
}
