package market

import (
	"fmt"
	"strings"
)

// Direction is a trade direction or the HOLD verdict
type Direction string

const (
	Long  Direction = "LONG"
	Short Direction = "SHORT"
	Hold  Direction = "HOLD"
)

// ParseDirection accepts LONG/SHORT/HOLD in any case, plus buy/sell aliases
func ParseDirection(s string) (Direction, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "LONG", "BUY":
		return Long, nil
	case "SHORT", "SELL":
		return Short, nil
	case "HOLD":
		return Hold, nil
	default:
		return "", fmt.Errorf("unknown direction %q", s)
	}
}

// IsTrade reports whether the direction opens a position
func (d Direction) IsTrade() bool {
	return d == Long || d == Short
}
