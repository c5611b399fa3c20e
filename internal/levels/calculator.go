package levels

import (
	"errors"

	"signal-engine/internal/market"
)

// Config controls level generation
type Config struct {
	Method            PivotMethod
	RetracementRatios []float64
	ExtensionRatios   []float64
	SwingLookback     int // bars used to find the Fibonacci swing
}

// DefaultConfig returns floor pivots with the standard Fibonacci grid
func DefaultConfig() Config {
	return Config{
		Method:            Floor,
		RetracementRatios: DefaultRetracementRatios,
		ExtensionRatios:   DefaultExtensionRatios,
		SwingLookback:     50,
	}
}

// Calculator derives support/resistance levels from bar data
type Calculator struct {
	cfg Config
}

// NewCalculator creates a level calculator
func NewCalculator(cfg Config) *Calculator {
	if cfg.Method == "" {
		cfg.Method = Floor
	}
	if cfg.RetracementRatios == nil {
		cfg.RetracementRatios = DefaultRetracementRatios
	}
	if cfg.ExtensionRatios == nil {
		cfg.ExtensionRatios = DefaultExtensionRatios
	}
	return &Calculator{cfg: cfg}
}

// Pivots computes the configured pivot variant from a reference bar.
// A zero-range bar yields a degenerate set.
func (c *Calculator) Pivots(ref market.Bar) LevelSet {
	set, _ := c.PivotsStrict(ref)
	return set
}

// PivotsStrict is Pivots that also reports a DegenerateRangeError
func (c *Calculator) PivotsStrict(ref market.Bar) (LevelSet, error) {
	if ref.High == ref.Low {
		set := Empty("pivot reference bar has zero range")
		set.Method = c.cfg.Method
		return set, &DegenerateRangeError{Kind: "pivot", High: ref.High, Low: ref.Low}
	}
	raw := pivotFormula(c.cfg.Method)(ref.High, ref.Low, ref.Close)
	set := newSet(c.cfg.Method, len(raw))
	for name, price := range raw {
		set.put(name, price)
	}
	return set, nil
}

// Fibonacci computes the grid for an explicit swing
func (c *Calculator) Fibonacci(high, low float64, trend Trend) (LevelSet, error) {
	return FibonacciLevels(high, low, trend, c.cfg.RetracementRatios, c.cfg.ExtensionRatios)
}

// SwingTrend reports the swing direction of a window: up when the highest
// high printed after the lowest low.
func SwingTrend(w market.Window) Trend {
	_, _, hi, lo := w.Extremes()
	if hi >= lo {
		return Uptrend
	}
	return Downtrend
}

// FibonacciFromWindow locates the swing over the last SwingLookback bars and
// builds the grid, adding the swing extremes as levels of their own.
func (c *Calculator) FibonacciFromWindow(w market.Window) (LevelSet, error) {
	lookback := c.cfg.SwingLookback
	if lookback <= 0 {
		lookback = len(w)
	}
	if err := market.RequireBars(w, max(lookback, 1), "fibonacci swing"); err != nil {
		return LevelSet{}, err
	}
	swing := w.Tail(lookback)
	high, low, _, _ := swing.Extremes()
	set, err := c.Fibonacci(high, low, SwingTrend(swing))
	if err != nil {
		return set, err
	}
	set.put(SwingHigh, high)
	set.put(SwingLow, low)
	return set, nil
}

// Evaluate builds the full level set for one evaluation: pivots from the
// reference bar merged with the Fibonacci grid of the swing window.
// Degenerate inputs are folded into the set; only data errors are returned.
func (c *Calculator) Evaluate(ref market.Bar, swing market.Window) (LevelSet, error) {
	pivots := c.Pivots(ref)
	fib, err := c.FibonacciFromWindow(swing)
	if err != nil && !errors.Is(err, ErrDegenerateRange) {
		return LevelSet{}, err
	}
	return Merge(pivots, fib), nil
}

// Config returns the calculator configuration
func (c *Calculator) Config() Config {
	return c.cfg
}
