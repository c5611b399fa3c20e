package levels

import (
	"math"
	"sort"
)

// DefaultTolerance is the normalized distance at which price is "at" a level (0.3%)
const DefaultTolerance = 0.003

// boundaryEpsilon absorbs float noise when a distance sits exactly on the tolerance
const boundaryEpsilon = 1e-12

// DefaultPriority orders levels from strongest to weakest for tie-breaks
var DefaultPriority = []string{
	"fib_0.618", "S1", "R1", "pivot", "fib_0.500", "fib_0.382",
	"S2", "R2", "H3", "L3", "H4", "L4", "S3", "R3",
	"H2", "L2", "H1", "L1", "fib_0.786", "fib_0.236", "fib_1.000",
	"fib_1.618", "fib_2.618", "fib_4.236",
	"ema_slow", "ema_fast", SwingHigh, SwingLow,
}

// Match is the result of a proximity lookup
type Match struct {
	Found    bool    `json:"found"`
	Name     string  `json:"name,omitempty"`
	Price    float64 `json:"price,omitempty"`
	Distance float64 `json:"distance"` // |price-level|/level
	At       bool    `json:"at"`       // Distance <= tolerance
}

// Source returns the source family of the matched level
func (m Match) Source() Source {
	return SourceOf(m.Name)
}

// Distance returns the normalized distance between price and level
func Distance(price, level float64) float64 {
	return math.Abs(price-level) / level
}

// Matcher performs tolerance-based proximity lookups over a LevelSet
type Matcher struct {
	tolerance float64
	rank      map[string]int
}

// NewMatcher creates a matcher. An empty priority list uses DefaultPriority.
func NewMatcher(tolerance float64, priority []string) *Matcher {
	if tolerance <= 0 {
		tolerance = DefaultTolerance
	}
	if len(priority) == 0 {
		priority = DefaultPriority
	}
	rank := make(map[string]int, len(priority))
	for i, name := range priority {
		if _, dup := rank[name]; !dup {
			rank[name] = i
		}
	}
	return &Matcher{tolerance: tolerance, rank: rank}
}

// Tolerance returns the configured tolerance
func (m *Matcher) Tolerance() float64 {
	return m.tolerance
}

// AtLevel reports whether price is within tolerance of level
func (m *Matcher) AtLevel(price, level float64) bool {
	if !validPrice(level) {
		return false
	}
	return Distance(price, level) <= m.tolerance+boundaryEpsilon
}

// Less orders two level names by priority, unlisted names last in lexical order
func (m *Matcher) Less(a, b string) bool {
	ra, okA := m.rank[a]
	rb, okB := m.rank[b]
	switch {
	case okA && okB:
		return ra < rb
	case okA:
		return true
	case okB:
		return false
	default:
		return a < b
	}
}

// Nearest scans every level and returns the closest. Degenerate or empty
// sets yield Match{Found: false}.
func (m *Matcher) Nearest(price float64, set LevelSet) Match {
	return m.NearestWhere(price, set, nil)
}

// NearestWhere is Nearest restricted to levels accepted by keep
func (m *Matcher) NearestWhere(price float64, set LevelSet, keep func(name string, level float64) bool) Match {
	best := Match{}
	if !set.Usable() {
		return best
	}
	for name, level := range set.Levels {
		if !validPrice(level) || (keep != nil && !keep(name, level)) {
			continue
		}
		d := Distance(price, level)
		if !best.Found || d < best.Distance || (d == best.Distance && m.Less(name, best.Name)) {
			best = Match{Found: true, Name: name, Price: level, Distance: d}
		}
	}
	if best.Found {
		best.At = best.Distance <= m.tolerance+boundaryEpsilon
	}
	return best
}

// WithinTolerance returns every level price is "at", closest first
func (m *Matcher) WithinTolerance(price float64, set LevelSet) []Match {
	if !set.Usable() {
		return nil
	}
	var out []Match
	for name, level := range set.Levels {
		if !validPrice(level) {
			continue
		}
		d := Distance(price, level)
		if d <= m.tolerance+boundaryEpsilon {
			out = append(out, Match{Found: true, Name: name, Price: level, Distance: d, At: true})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Distance != out[j].Distance {
			return out[i].Distance < out[j].Distance
		}
		return m.Less(out[i].Name, out[j].Name)
	})
	return out
}
