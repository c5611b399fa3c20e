package cache

import (
	"context"
	"fmt"
	"strings"
	"time"

	"signal-engine/internal/engine"
	"signal-engine/internal/levels"
)

// Key prefixes for level sets
const (
	PrefixLevels    = "levels:%s:%s:%s:%s" // symbol, timeframe, method, input fingerprint
	DefaultLevelTTL = time.Hour
)

var _ engine.LevelCache = (*LevelCache)(nil)

// LevelCache stores level sets per symbol, timeframe and input fingerprint in Redis
type LevelCache struct {
	cs  *CacheService
	ttl time.Duration
}

// NewLevelCache wraps a CacheService. A non-positive ttl uses DefaultLevelTTL.
func NewLevelCache(cs *CacheService, ttl time.Duration) *LevelCache {
	if ttl <= 0 {
		ttl = DefaultLevelTTL
	}
	return &LevelCache{cs: cs, ttl: ttl}
}

// LevelKey generates the cache key for a level set computed from the inputs
// identified by fingerprint
func LevelKey(symbol, timeframe string, method levels.PivotMethod, fingerprint string) string {
	if timeframe == "" {
		timeframe = "-"
	}
	return fmt.Sprintf(PrefixLevels, strings.ToUpper(symbol), timeframe, method, fingerprint)
}

// SymbolPattern matches every cached level set of a symbol
func SymbolPattern(symbol string) string {
	return fmt.Sprintf("levels:%s:*", strings.ToUpper(symbol))
}

// GetLevels returns the cached set, ErrCacheMiss or ErrCacheUnavailable
func (lc *LevelCache) GetLevels(ctx context.Context, symbol, timeframe string, method levels.PivotMethod, fingerprint string) (levels.LevelSet, error) {
	var set levels.LevelSet
	if err := lc.cs.GetJSON(ctx, LevelKey(symbol, timeframe, method, fingerprint), &set); err != nil {
		return levels.LevelSet{}, err
	}
	if set.Levels == nil {
		set.Levels = map[string]float64{}
	}
	return set, nil
}

// SetLevels stores a set under the fingerprint of its inputs
func (lc *LevelCache) SetLevels(ctx context.Context, symbol, timeframe string, method levels.PivotMethod, fingerprint string, set levels.LevelSet) error {
	return lc.cs.Set(ctx, LevelKey(symbol, timeframe, method, fingerprint), set, lc.ttl)
}

// Invalidate drops every cached set of a symbol
func (lc *LevelCache) Invalidate(ctx context.Context, symbol string) (int, error) {
	return lc.cs.DeletePattern(ctx, SymbolPattern(symbol))
}
