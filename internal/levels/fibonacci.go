package levels

import "fmt"

// Trend is the direction of the swing a Fibonacci grid is drawn on
type Trend string

const (
	Uptrend   Trend = "up"
	Downtrend Trend = "down"
)

// Default Fibonacci ratios
var (
	DefaultRetracementRatios = []float64{0.236, 0.382, 0.5, 0.618, 0.786}
	DefaultExtensionRatios   = []float64{1.618, 2.618, 4.236}
)

// Retracement returns the retracement price for ratio r. Ratio 0 is the
// swing end (high in an uptrend), ratio 1 the swing origin.
func Retracement(high, low, r float64, trend Trend) float64 {
	move := high - low
	if trend == Downtrend {
		return low + move*r
	}
	return high - move*r
}

// Extension projects beyond the swing end; ratio 1 equals the swing end.
func Extension(high, low, r float64, trend Trend) float64 {
	move := high - low
	if trend == Downtrend {
		return low - move*(r-1)
	}
	return high + move*(r-1)
}

// FibName formats the level identifier for a ratio, e.g. fib_0.618
func FibName(r float64) string {
	return fmt.Sprintf("%s%.3f", fibPrefix, r)
}

// FibonacciLevels builds the retracement and extension grid for a swing.
// The 100% origin is always included.
func FibonacciLevels(high, low float64, trend Trend, retracements, extensions []float64) (LevelSet, error) {
	if high == low {
		return Empty("fibonacci swing has zero range"), &DegenerateRangeError{Kind: "fibonacci", High: high, Low: low}
	}
	if high < low {
		return LevelSet{}, fmt.Errorf("swing high %.8f below swing low %.8f", high, low)
	}

	set := newSet("", len(retracements)+len(extensions)+1)
	set.Trend = trend
	for _, r := range retracements {
		set.put(FibName(r), Retracement(high, low, r, trend))
	}
	set.put(FibName(1), Retracement(high, low, 1, trend))
	for _, r := range extensions {
		set.put(FibName(r), Extension(high, low, r, trend))
	}
	return set, nil
}
