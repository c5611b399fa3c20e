package market

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// Bar is one closed OHLCV candle
type Bar struct {
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    float64   `json:"volume"`
	Timestamp time.Time `json:"timestamp"`
}

// Range returns High - Low
func (b Bar) Range() float64 {
	return b.High - b.Low
}

// Body returns the absolute open/close distance
func (b Bar) Body() float64 {
	return math.Abs(b.Close - b.Open)
}

// UpperWick returns the distance from the top of the body to the high
func (b Bar) UpperWick() float64 {
	return b.High - math.Max(b.Open, b.Close)
}

// LowerWick returns the distance from the bottom of the body to the low
func (b Bar) LowerWick() float64 {
	return math.Min(b.Open, b.Close) - b.Low
}

// IsBullish reports close > open
func (b Bar) IsBullish() bool {
	return b.Close > b.Open
}

// IsBearish reports close < open
func (b Bar) IsBearish() bool {
	return b.Close < b.Open
}

// Validate checks the bar has a usable shape
func (b Bar) Validate() error {
	for _, v := range []float64{b.Open, b.High, b.Low, b.Close} {
		if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
			return fmt.Errorf("%w: non-positive or non-finite price %v", ErrInvalidBar, v)
		}
	}
	if b.High < b.Low {
		return fmt.Errorf("%w: high %.8f below low %.8f", ErrInvalidBar, b.High, b.Low)
	}
	if b.High < math.Max(b.Open, b.Close) || b.Low > math.Min(b.Open, b.Close) {
		return fmt.Errorf("%w: open/close outside high/low", ErrInvalidBar)
	}
	return nil
}

var (
	// ErrInsufficientData is matched by every InsufficientDataError
	ErrInsufficientData = errors.New("insufficient bar data")
	// ErrInvalidBar marks a malformed bar in an input window
	ErrInvalidBar = errors.New("invalid bar")
)

// InsufficientDataError reports a window shorter than the longest lookback
type InsufficientDataError struct {
	Required int
	Got      int
	Purpose  string
}

func (e *InsufficientDataError) Error() string {
	if e.Purpose == "" {
		return fmt.Sprintf("insufficient bar data: need %d bars, got %d", e.Required, e.Got)
	}
	return fmt.Sprintf("insufficient bar data for %s: need %d bars, got %d", e.Purpose, e.Required, e.Got)
}

func (e *InsufficientDataError) Unwrap() error {
	return ErrInsufficientData
}

// RequireBars returns an InsufficientDataError when bars holds fewer than n entries
func RequireBars(bars []Bar, n int, purpose string) error {
	if len(bars) < n {
		return &InsufficientDataError{Required: n, Got: len(bars), Purpose: purpose}
	}
	return nil
}
