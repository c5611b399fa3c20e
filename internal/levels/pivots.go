package levels

import (
	"fmt"
	"strings"
)

// PivotMethod selects the pivot point formula set
type PivotMethod string

const (
	Floor     PivotMethod = "floor"
	Camarilla PivotMethod = "camarilla"
	Woodie    PivotMethod = "woodie"
)

// ParsePivotMethod validates a configured pivot method name
func ParsePivotMethod(s string) (PivotMethod, error) {
	switch m := PivotMethod(strings.ToLower(strings.TrimSpace(s))); m {
	case Floor, Camarilla, Woodie:
		return m, nil
	case "":
		return Floor, nil
	default:
		return "", fmt.Errorf("unknown pivot method %q (want floor, camarilla or woodie)", s)
	}
}

// camarillaCoefficient scales the prior range for every Camarilla band
const camarillaCoefficient = 1.1

// camarillaDivisors gives H1..H4 / L1..L4 divisors
var camarillaDivisors = [4]float64{12, 6, 4, 2}

// FloorPivots computes classic floor trader pivots
func FloorPivots(high, low, close float64) map[string]float64 {
	rng := high - low
	pivot := (high + low + close) / 3
	r1 := 2*pivot - low
	s1 := 2*pivot - high
	return map[string]float64{
		"pivot": pivot,
		"R1":    r1,
		"R2":    pivot + rng,
		"R3":    r1 + rng,
		"S1":    s1,
		"S2":    pivot - rng,
		"S3":    s1 - rng,
	}
}

// CamarillaPivots computes the four Camarilla bands on each side of the close
func CamarillaPivots(high, low, close float64) map[string]float64 {
	rng := high - low
	out := make(map[string]float64, 8)
	for i, d := range camarillaDivisors {
		offset := camarillaCoefficient * rng / d
		out[fmt.Sprintf("H%d", i+1)] = close + offset
		out[fmt.Sprintf("L%d", i+1)] = close - offset
	}
	return out
}

// WoodiePivots computes close-weighted pivots
func WoodiePivots(high, low, close float64) map[string]float64 {
	rng := high - low
	pivot := (high + low + 2*close) / 4
	return map[string]float64{
		"pivot": pivot,
		"R1":    2*pivot - low,
		"R2":    pivot + rng,
		"S1":    2*pivot - high,
		"S2":    pivot - rng,
	}
}

// pivotFormula dispatches a method to its formula
func pivotFormula(m PivotMethod) func(high, low, close float64) map[string]float64 {
	switch m {
	case Camarilla:
		return CamarillaPivots
	case Woodie:
		return WoodiePivots
	default:
		return FloorPivots
	}
}
