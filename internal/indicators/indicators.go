package indicators

import (
	"fmt"
	"math"

	talib "github.com/markcheno/go-talib"

	"signal-engine/internal/market"
)

// MAType selects the moving average used for trend context
type MAType string

const (
	EMA MAType = "ema"
	SMA MAType = "sma"
)

// TrendInputs carries the fast/slow moving averages. A zero value means
// the average was not supplied.
type TrendInputs struct {
	FastMA float64 `json:"fast_ma"`
	SlowMA float64 `json:"slow_ma"`
}

// Available reports whether both averages are present
func (t TrendInputs) Available() bool {
	return t.FastMA > 0 && t.SlowMA > 0
}

// Separation returns |fast-slow|/slow
func (t TrendInputs) Separation() float64 {
	if !t.Available() {
		return 0
	}
	return math.Abs(t.FastMA-t.SlowMA) / t.SlowMA
}

// MomentumInputs carries the oscillator reading. Nil RSI means not supplied.
type MomentumInputs struct {
	RSI *float64 `json:"rsi,omitempty"`
}

// Momentum wraps an RSI reading
func Momentum(rsi float64) MomentumInputs {
	return MomentumInputs{RSI: &rsi}
}

// Available reports whether an oscillator value is present
func (m MomentumInputs) Available() bool {
	return m.RSI != nil && !math.IsNaN(*m.RSI)
}

// Config holds indicator periods
type Config struct {
	MAType          MAType
	FastPeriod      int
	SlowPeriod      int
	RSIPeriod       int
	ATRPeriod       int
	StructureWindow int
}

// DefaultConfig mirrors the 50/200 EMA, RSI(14), ATR(14) setup
func DefaultConfig() Config {
	return Config{
		MAType:          EMA,
		FastPeriod:      50,
		SlowPeriod:      200,
		RSIPeriod:       14,
		ATRPeriod:       14,
		StructureWindow: 5,
	}
}

// Validate checks every period is usable
func (c Config) Validate() error {
	if c.MAType != EMA && c.MAType != SMA {
		return fmt.Errorf("unknown moving average type %q", c.MAType)
	}
	if c.FastPeriod <= 0 || c.SlowPeriod <= c.FastPeriod {
		return fmt.Errorf("need 0 < fast period < slow period, got %d/%d", c.FastPeriod, c.SlowPeriod)
	}
	if c.RSIPeriod < 2 || c.ATRPeriod < 1 {
		return fmt.Errorf("rsi period must be >= 2 and atr period >= 1, got %d/%d", c.RSIPeriod, c.ATRPeriod)
	}
	if c.StructureWindow < 2 {
		return fmt.Errorf("structure window must be at least 2 bars, got %d", c.StructureWindow)
	}
	return nil
}

// Lookback returns the number of bars needed to compute every indicator
func (c Config) Lookback() int {
	n := c.SlowPeriod
	for _, p := range []int{c.FastPeriod, c.RSIPeriod + 1, c.ATRPeriod + 1, c.StructureWindow + 1} {
		if p > n {
			n = p
		}
	}
	return n
}

// MovingAverage returns the latest moving average of closes
func MovingAverage(closes []float64, period int, kind MAType) (float64, error) {
	if period <= 0 {
		return 0, fmt.Errorf("moving average period must be positive, got %d", period)
	}
	if len(closes) < period {
		return 0, &market.InsufficientDataError{Required: period, Got: len(closes), Purpose: "moving average"}
	}
	var series []float64
	if kind == SMA {
		series = talib.Sma(closes, period)
	} else {
		series = talib.Ema(closes, period)
	}
	return last(series)
}

// RSI returns the latest relative strength index of closes
func RSI(closes []float64, period int) (float64, error) {
	if len(closes) < period+1 {
		return 0, &market.InsufficientDataError{Required: period + 1, Got: len(closes), Purpose: "rsi"}
	}
	return last(talib.Rsi(closes, period))
}

// ATR returns the latest average true range of a window
func ATR(w market.Window, period int) (float64, error) {
	if len(w) < period+1 {
		return 0, &market.InsufficientDataError{Required: period + 1, Got: len(w), Purpose: "atr"}
	}
	return last(talib.Atr(w.Highs(), w.Lows(), w.Closes(), period))
}

func last(series []float64) (float64, error) {
	if len(series) == 0 {
		return 0, fmt.Errorf("indicator returned an empty series")
	}
	v := series[len(series)-1]
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("indicator returned a non-finite value")
	}
	return v, nil
}

// Snapshot is the indicator context for the most recent bar
type Snapshot struct {
	Trend     TrendInputs    `json:"trend"`
	Momentum  MomentumInputs `json:"momentum"`
	ATR       float64        `json:"atr"`
	Structure Structure      `json:"structure"`
}

// Compute derives every indicator from a window. The window must hold at
// least cfg.Lookback() bars.
func Compute(w market.Window, cfg Config) (Snapshot, error) {
	if err := market.RequireBars(w, cfg.Lookback(), "indicators"); err != nil {
		return Snapshot{}, err
	}
	closes := w.Closes()

	fast, err := MovingAverage(closes, cfg.FastPeriod, cfg.MAType)
	if err != nil {
		return Snapshot{}, fmt.Errorf("fast ma: %w", err)
	}
	slow, err := MovingAverage(closes, cfg.SlowPeriod, cfg.MAType)
	if err != nil {
		return Snapshot{}, fmt.Errorf("slow ma: %w", err)
	}
	rsi, err := RSI(closes, cfg.RSIPeriod)
	if err != nil {
		return Snapshot{}, fmt.Errorf("rsi: %w", err)
	}
	atr, err := ATR(w, cfg.ATRPeriod)
	if err != nil {
		return Snapshot{}, fmt.Errorf("atr: %w", err)
	}

	return Snapshot{
		Trend:     TrendInputs{FastMA: fast, SlowMA: slow},
		Momentum:  Momentum(rsi),
		ATR:       atr,
		Structure: MarketStructure(w, cfg.StructureWindow),
	}, nil
}
