// Package engine wires level calculation, pattern recognition, confluence
// scoring, the signal decision and trade planning into one evaluation cycle.
package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"signal-engine/internal/confluence"
	"signal-engine/internal/events"
	"signal-engine/internal/indicators"
	"signal-engine/internal/levels"
	"signal-engine/internal/logging"
	"signal-engine/internal/market"
	"signal-engine/internal/patterns"
	"signal-engine/internal/risk"
	"signal-engine/internal/signal"
)

// MA level names merged into the level set
const (
	LevelFastMA = "ema_fast"
	LevelSlowMA = "ema_slow"
)

// LevelCache stores computed level sets keyed by the fingerprint of the
// inputs they were computed from
type LevelCache interface {
	GetLevels(ctx context.Context, symbol, timeframe string, method levels.PivotMethod, fingerprint string) (levels.LevelSet, error)
	SetLevels(ctx context.Context, symbol, timeframe string, method levels.PivotMethod, fingerprint string, set levels.LevelSet) error
}

// Request is one symbol/timeframe window to evaluate
type Request struct {
	Symbol    string       `json:"symbol"`
	Timeframe string       `json:"timeframe"`
	Bars      []market.Bar `json:"bars"`
}

// Evaluation is the full output of one evaluation cycle
type Evaluation struct {
	ID         string                 `json:"id"`
	Symbol     string                 `json:"symbol"`
	Timeframe  string                 `json:"timeframe"`
	BarTime    time.Time              `json:"bar_time"`
	Price      float64                `json:"price"`
	Levels     levels.LevelSet        `json:"levels"`
	Pattern    patterns.PatternResult `json:"pattern"`
	Indicators indicators.Snapshot    `json:"indicators"`
	Verdict    signal.Verdict         `json:"verdict"`
	Plan       *risk.TradePlan        `json:"plan,omitempty"`
	CreatedAt  time.Time              `json:"created_at"`
}

// Option customizes an Engine
type Option func(*Engine)

// WithLevelCache lets Evaluate reuse level sets across calls
func WithLevelCache(c LevelCache) Option {
	return func(e *Engine) { e.cache = c }
}

// WithPublisher publishes every evaluation outcome
func WithPublisher(p events.Publisher) Option {
	return func(e *Engine) { e.publisher = p }
}

// WithLogger replaces the default logger
func WithLogger(l *logging.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithClock overrides time.Now for evaluation timestamps
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// Engine runs evaluations against a fixed configuration. It is safe for
// concurrent use; components hold no per-call state.
type Engine struct {
	cfg       Config
	calc      *levels.Calculator
	detector  *patterns.PatternDetector
	signals   *signal.Engine
	planner   *risk.Planner
	cache     LevelCache
	publisher events.Publisher
	logger    *logging.Logger
	now       func() time.Time
}

// New validates cfg and builds an engine
func New(cfg Config, opts ...Option) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	e := &Engine{
		cfg:      cfg,
		calc:     levels.NewCalculator(cfg.Levels),
		detector: patterns.NewPatternDetector(cfg.Patterns),
		signals:  signal.NewEngine(cfg.Signal, confluence.NewConfluenceScorer(cfg.Confluence)),
		planner:  risk.NewPlanner(cfg.Risk),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = logging.Default().WithComponent("engine")
	}
	return e, nil
}

// Config returns the engine configuration
func (e *Engine) Config() Config {
	return e.cfg
}

// Levels computes pivots from ref merged with the Fibonacci grid of swing
func (e *Engine) Levels(ref market.Bar, swing []market.Bar) (levels.LevelSet, error) {
	return e.calc.Evaluate(ref, swing)
}

// Pattern recognizes the strongest reversal pattern on current
func (e *Engine) Pattern(current market.Bar, previous *market.Bar) patterns.PatternResult {
	return e.detector.Recognize(current, previous)
}

// Signal scores both directions and decides
func (e *Engine) Signal(in confluence.Inputs) signal.Verdict {
	return e.signals.Evaluate(in)
}

// ScanPatterns lists every recognized pattern in a window
func (e *Engine) ScanPatterns(bars []market.Bar) []patterns.DetectedPattern {
	return e.detector.DetectPatterns(bars)
}

// Plan derives a trade plan
func (e *Engine) Plan(req risk.Request) (risk.TradePlan, error) {
	return e.planner.Plan(req)
}

// Evaluate runs the full pipeline on a bar window, most recent bar last.
// Pivots come from the previous bar, the swing from the trailing window.
func (e *Engine) Evaluate(ctx context.Context, req Request) (*Evaluation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	log := e.logger.WithFields(map[string]interface{}{
		"symbol":    req.Symbol,
		"timeframe": req.Timeframe,
	})

	w := market.Window(req.Bars)
	if err := market.RequireBars(w, e.cfg.RequiredBars(), "evaluation"); err != nil {
		e.fail(req, "window", err)
		return nil, err
	}
	if err := w.Validate(); err != nil {
		e.fail(req, "window", err)
		return nil, err
	}

	current, _ := w.Last()
	previous, _ := w.Previous()

	snap, err := indicators.Compute(w, e.cfg.Indicators)
	if err != nil {
		e.fail(req, "indicators", err)
		return nil, fmt.Errorf("indicators: %w", err)
	}

	set, err := e.levelsFor(ctx, req, previous, w, log)
	if err != nil {
		e.fail(req, "levels", err)
		return nil, fmt.Errorf("levels: %w", err)
	}
	if e.cfg.MovingAverageLevels && !set.Degenerate {
		set = set.With(LevelFastMA, snap.Trend.FastMA).With(LevelSlowMA, snap.Trend.SlowMA)
	}

	pattern := e.detector.Recognize(current, &previous)
	structure := snap.Structure
	verdict := e.signals.Evaluate(confluence.Inputs{
		Price:     current.Close,
		Levels:    set,
		Pattern:   pattern,
		Trend:     snap.Trend,
		Momentum:  snap.Momentum,
		Previous:  &previous,
		Structure: &structure,
	})

	ev := &Evaluation{
		ID:         uuid.New().String(),
		Symbol:     req.Symbol,
		Timeframe:  req.Timeframe,
		BarTime:    current.Timestamp,
		Price:      current.Close,
		Levels:     set,
		Pattern:    pattern,
		Indicators: snap,
		Verdict:    verdict,
		CreatedAt:  e.now().UTC(),
	}

	if verdict.Direction.IsTrade() {
		plan, err := e.planner.Plan(risk.Request{
			Direction: verdict.Direction,
			Entry:     current.Close,
			Levels:    set,
			ATR:       snap.ATR,
		})
		if err != nil {
			e.fail(req, "plan", err)
			return nil, fmt.Errorf("plan: %w", err)
		}
		ev.Plan = &plan
		if !plan.Valid {
			log.Warn("trade plan rejected", "direction", plan.Direction, "errors", plan.Errors)
		}
	}

	log.Debug("evaluation complete",
		"id", ev.ID,
		"direction", verdict.Direction,
		"confidence", verdict.Confidence,
		"pattern", pattern.Type,
	)
	e.publish(ev)
	return ev, nil
}

// levelsFor returns the cached level set for these exact inputs or computes
// and stores it. Cache failures never fail the evaluation.
func (e *Engine) levelsFor(ctx context.Context, req Request, ref market.Bar, w market.Window, log *logging.Logger) (levels.LevelSet, error) {
	useCache := e.cache != nil && req.Symbol != ""
	method := e.calc.Config().Method
	var fingerprint string

	if useCache {
		fingerprint = e.calc.Fingerprint(ref, w)
		set, err := e.cache.GetLevels(ctx, req.Symbol, req.Timeframe, method, fingerprint)
		if err == nil {
			return set, nil
		}
		log.Debug("level cache lookup missed", "fingerprint", fingerprint, "error", err)
	}

	set, err := e.calc.Evaluate(ref, w)
	if err != nil {
		return levels.LevelSet{}, err
	}

	if useCache {
		if err := e.cache.SetLevels(ctx, req.Symbol, req.Timeframe, method, fingerprint, set); err != nil {
			log.Warn("failed to cache levels", "error", err)
		}
	}
	return set, nil
}

// publish emits the verdict event carrying the full evaluation, plus a
// rejection event when the plan failed validation
func (e *Engine) publish(ev *Evaluation) {
	if e.publisher == nil {
		return
	}
	v := ev.Verdict
	if v.Direction.IsTrade() {
		e.publisher.Publish(events.SignalGenerated(ev.ID, ev.Symbol, ev.Timeframe, string(v.Direction), v.Confidence, v.Reasons).WithPayload(ev))
	} else {
		e.publisher.Publish(events.SignalHold(ev.ID, ev.Symbol, ev.Timeframe, string(v.HoldReason), v.Confidence).WithPayload(ev))
	}
	if ev.Plan != nil && !ev.Plan.Valid {
		e.publisher.Publish(events.PlanRejected(ev.ID, ev.Symbol, string(ev.Plan.Direction), ev.Plan.Errors))
	}
}

func (e *Engine) fail(req Request, stage string, err error) {
	if errors.Is(err, market.ErrInsufficientData) {
		e.logger.Debug("evaluation skipped", "symbol", req.Symbol, "stage", stage, "error", err)
	} else {
		e.logger.Warn("evaluation failed", "symbol", req.Symbol, "stage", stage, "error", err)
	}
	if e.publisher != nil {
		e.publisher.Publish(events.EvaluationFailed(req.Symbol, stage, err))
	}
}
