package levels

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// Source identifies which family of analysis produced a level
type Source string

const (
	SourcePivot         Source = "pivot"
	SourceFibonacci     Source = "fibonacci"
	SourceMovingAverage Source = "moving_average"
	SourceSwing         Source = "swing"
)

// Level name prefixes for non-pivot sources
const (
	fibPrefix   = "fib_"
	maPrefix    = "ema_"
	swingPrefix = "swing_"
)

// Swing extreme level names
const (
	SwingHigh = "swing_high"
	SwingLow  = "swing_low"
)

// SourceOf classifies a level name
func SourceOf(name string) Source {
	switch {
	case strings.HasPrefix(name, fibPrefix):
		return SourceFibonacci
	case strings.HasPrefix(name, maPrefix):
		return SourceMovingAverage
	case strings.HasPrefix(name, swingPrefix):
		return SourceSwing
	default:
		return SourcePivot
	}
}

// LevelSet is an immutable named mapping of reference prices.
// A degenerate set carries no levels and must never match a price.
type LevelSet struct {
	Method     PivotMethod        `json:"method,omitempty"`
	Trend      Trend              `json:"swing_trend,omitempty"`
	Levels     map[string]float64 `json:"levels"`
	Degenerate bool               `json:"degenerate"`
	Notes      []string           `json:"notes,omitempty"`
}

// Empty returns a degenerate set explaining why no levels exist
func Empty(reason string) LevelSet {
	return LevelSet{Levels: map[string]float64{}, Degenerate: true, Notes: []string{reason}}
}

func newSet(method PivotMethod, capacity int) LevelSet {
	return LevelSet{Method: method, Levels: make(map[string]float64, capacity)}
}

func validPrice(price float64) bool {
	return price > 0 && !math.IsNaN(price) && !math.IsInf(price, 0)
}

// put stores a level only when it is a strictly positive finite price
func (s *LevelSet) put(name string, price float64) {
	if !validPrice(price) {
		s.Notes = append(s.Notes, "dropped non-positive level "+name)
		return
	}
	s.Levels[name] = price
}

// FromMap builds a set from externally supplied prices. Every level must be
// a strictly positive finite price; an empty map gives a degenerate set.
func FromMap(m map[string]float64) (LevelSet, error) {
	if len(m) == 0 {
		return Empty("no levels supplied"), nil
	}
	set := newSet("", len(m))
	for name, price := range m {
		if strings.TrimSpace(name) == "" {
			return LevelSet{}, fmt.Errorf("%w: empty level name", ErrInvalidLevel)
		}
		if !validPrice(price) {
			return LevelSet{}, fmt.Errorf("%w: %s = %v is not a positive finite price", ErrInvalidLevel, name, price)
		}
		set.Levels[name] = price
	}
	return set, nil
}

// Len returns the number of levels
func (s LevelSet) Len() int {
	return len(s.Levels)
}

// Usable reports whether the set has at least one level to match against
func (s LevelSet) Usable() bool {
	return !s.Degenerate && len(s.Levels) > 0
}

// Get returns a level price by name
func (s LevelSet) Get(name string) (float64, bool) {
	v, ok := s.Levels[name]
	return v, ok
}

// Names returns level names in lexical order
func (s LevelSet) Names() []string {
	names := make([]string, 0, len(s.Levels))
	for name := range s.Levels {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// With returns a copy of the set with one extra level
func (s LevelSet) With(name string, price float64) LevelSet {
	out := s.clone()
	out.put(name, price)
	if len(out.Levels) > 0 {
		out.Degenerate = false
	}
	return out
}

// Merge combines sets. The result is degenerate only when no set
// contributed any level and at least one input was degenerate.
func Merge(sets ...LevelSet) LevelSet {
	out := LevelSet{Levels: map[string]float64{}}
	degenerate := false
	for _, s := range sets {
		if out.Method == "" {
			out.Method = s.Method
		}
		if out.Trend == "" {
			out.Trend = s.Trend
		}
		for name, price := range s.Levels {
			out.Levels[name] = price
		}
		out.Notes = append(out.Notes, s.Notes...)
		degenerate = degenerate || s.Degenerate
	}
	out.Degenerate = degenerate && len(out.Levels) == 0
	return out
}

// BySource returns the subset of levels produced by one source
func (s LevelSet) BySource(src Source) map[string]float64 {
	out := make(map[string]float64)
	for name, price := range s.Levels {
		if SourceOf(name) == src {
			out[name] = price
		}
	}
	return out
}

func (s LevelSet) clone() LevelSet {
	out := s
	out.Levels = make(map[string]float64, len(s.Levels)+1)
	for k, v := range s.Levels {
		out.Levels[k] = v
	}
	out.Notes = append([]string(nil), s.Notes...)
	return out
}
