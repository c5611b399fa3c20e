package levels

import (
	"errors"
	"fmt"
)

// ErrDegenerateRange is matched by every DegenerateRangeError
var ErrDegenerateRange = errors.New("degenerate price range")

// ErrInvalidLevel marks a supplied level that is not a usable price
var ErrInvalidLevel = errors.New("invalid level")

// DegenerateRangeError reports a zero-range pivot or swing window
type DegenerateRangeError struct {
	Kind string
	High float64
	Low  float64
}

func (e *DegenerateRangeError) Error() string {
	return fmt.Sprintf("degenerate %s range: high %.8f equals low %.8f", e.Kind, e.High, e.Low)
}

func (e *DegenerateRangeError) Unwrap() error {
	return ErrDegenerateRange
}
