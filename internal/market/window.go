package market

import "fmt"

// Window is an ordered bar sequence, most recent last
type Window []Bar

// Last returns the most recent bar
func (w Window) Last() (Bar, bool) {
	if len(w) == 0 {
		return Bar{}, false
	}
	return w[len(w)-1], true
}

// Previous returns the bar before the most recent one
func (w Window) Previous() (Bar, bool) {
	if len(w) < 2 {
		return Bar{}, false
	}
	return w[len(w)-2], true
}

// Tail returns the last n bars (or all of them if n exceeds the length)
func (w Window) Tail(n int) Window {
	if n >= len(w) {
		return w
	}
	if n <= 0 {
		return Window{}
	}
	return w[len(w)-n:]
}

// Closes extracts the close series
func (w Window) Closes() []float64 {
	out := make([]float64, len(w))
	for i, b := range w {
		out[i] = b.Close
	}
	return out
}

// Highs extracts the high series
func (w Window) Highs() []float64 {
	out := make([]float64, len(w))
	for i, b := range w {
		out[i] = b.High
	}
	return out
}

// Lows extracts the low series
func (w Window) Lows() []float64 {
	out := make([]float64, len(w))
	for i, b := range w {
		out[i] = b.Low
	}
	return out
}

// Extremes locates the highest high and lowest low. highIdx/lowIdx are the
// positions of the last bar that printed each extreme.
func (w Window) Extremes() (high, low float64, highIdx, lowIdx int) {
	if len(w) == 0 {
		return 0, 0, -1, -1
	}
	high, low = w[0].High, w[0].Low
	for i, b := range w {
		if b.High >= high {
			high, highIdx = b.High, i
		}
		if b.Low <= low {
			low, lowIdx = b.Low, i
		}
	}
	return high, low, highIdx, lowIdx
}

// Validate checks every bar and the timestamp ordering
func (w Window) Validate() error {
	for i, b := range w {
		if err := b.Validate(); err != nil {
			return err
		}
		if i > 0 && !b.Timestamp.IsZero() && b.Timestamp.Before(w[i-1].Timestamp) {
			return fmt.Errorf("%w: bar %d is older than its predecessor", ErrInvalidBar, i)
		}
	}
	return nil
}
