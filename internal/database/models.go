package database

import (
	"time"

	"signal-engine/internal/engine"
	"signal-engine/internal/patterns"
	"signal-engine/internal/risk"
)

// EvaluationRecord is one stored engine evaluation
type EvaluationRecord struct {
	ID              string          `json:"id"`
	Symbol          string          `json:"symbol"`
	Timeframe       string          `json:"timeframe"`
	BarTime         time.Time       `json:"bar_time"`
	Price           float64         `json:"price"`
	Direction       string          `json:"direction"`
	Confidence      float64         `json:"confidence"`
	HoldReason      *string         `json:"hold_reason,omitempty"`
	Reasons         []string        `json:"reasons"`
	LongConfidence  float64         `json:"long_confidence"`
	ShortConfidence float64         `json:"short_confidence"`
	Pattern         *string         `json:"pattern,omitempty"`
	PatternStrength *float64        `json:"pattern_strength,omitempty"`
	Plan            *risk.TradePlan `json:"plan,omitempty"`
	PlanValid       *bool           `json:"plan_valid,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
}

// EvaluationFilter narrows ListEvaluations
type EvaluationFilter struct {
	Symbol    string
	Timeframe string
	Direction string
	Limit     int
	Offset    int
}

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

// NewEvaluationRecord flattens an engine evaluation into its stored form
func NewEvaluationRecord(ev *engine.Evaluation) *EvaluationRecord {
	rec := &EvaluationRecord{
		ID:              ev.ID,
		Symbol:          ev.Symbol,
		Timeframe:       ev.Timeframe,
		BarTime:         ev.BarTime,
		Price:           ev.Price,
		Direction:       string(ev.Verdict.Direction),
		Confidence:      ev.Verdict.Confidence,
		Reasons:         ev.Verdict.Reasons,
		LongConfidence:  ev.Verdict.Long.Confidence,
		ShortConfidence: ev.Verdict.Short.Confidence,
		Plan:            ev.Plan,
		CreatedAt:       ev.CreatedAt,
	}
	if rec.Reasons == nil {
		rec.Reasons = []string{}
	}
	if ev.Verdict.HoldReason != "" {
		reason := string(ev.Verdict.HoldReason)
		rec.HoldReason = &reason
	}
	if ev.Pattern.Type != "" && ev.Pattern.Type != patterns.None {
		name := string(ev.Pattern.Type)
		strength := ev.Pattern.Strength
		rec.Pattern = &name
		rec.PatternStrength = &strength
	}
	if ev.Plan != nil {
		valid := ev.Plan.Valid
		rec.PlanValid = &valid
	}
	return rec
}

func (f EvaluationFilter) limit() int {
	switch {
	case f.Limit <= 0:
		return defaultListLimit
	case f.Limit > maxListLimit:
		return maxListLimit
	default:
		return f.Limit
	}
}
