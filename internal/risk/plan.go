package risk

import (
	"fmt"
	"strings"

	"signal-engine/internal/market"
)

// StopMode records which stop-loss formula produced the plan's stop
type StopMode string

const (
	StopOffset StopMode = "offset"
	StopATR    StopMode = "atr"
)

// Target is one take-profit slot
type Target struct {
	Price            float64 `json:"price"`
	RiskReward       float64 `json:"risk_reward"`
	PositionFraction float64 `json:"position_fraction"`
	Source           string  `json:"source"` // level name, or rr_<ratio> for a ratio fallback
}

// Fallback reports whether the target is the pure ratio price
func (t Target) Fallback() bool {
	return strings.HasPrefix(t.Source, ratioSourcePrefix)
}

// TradePlan is a derived entry/stop/target setup. Validation failures are
// carried in Errors with Valid=false rather than returned as errors.
type TradePlan struct {
	Direction       market.Direction `json:"direction"`
	Entry           float64          `json:"entry"`
	Trigger         float64          `json:"trigger"`
	TriggerSource   string           `json:"trigger_source"`
	StopLoss        float64          `json:"stop_loss"`
	StopMode        StopMode         `json:"stop_mode"`
	Risk            float64          `json:"risk"`
	TP1             Target           `json:"tp1"`
	TP2             Target           `json:"tp2"`
	TP3             Target           `json:"tp3"`
	RiskRewardRatio float64          `json:"risk_reward_ratio"`
	Valid           bool             `json:"valid"`
	Errors          []string         `json:"errors"`
	Warnings        []string         `json:"warnings"`
}

// Targets returns TP1..TP3 in order
func (p TradePlan) Targets() [3]Target {
	return [3]Target{p.TP1, p.TP2, p.TP3}
}

// Summary renders a one-line description of the plan
func (p TradePlan) Summary() string {
	if p.Risk <= 0 {
		return fmt.Sprintf("%s: Entry %.2f | SL %.2f | invalid: %s", p.Direction, p.Entry, p.StopLoss, strings.Join(p.Errors, "; "))
	}
	return fmt.Sprintf("%s: Entry %.2f | SL %.2f (Risk: %.4f) | TP1 %.2f | TP2 %.2f | TP3 %.2f | RR: %.2f:1",
		p.Direction, p.Entry, p.StopLoss, p.Risk, p.TP1.Price, p.TP2.Price, p.TP3.Price, p.RiskRewardRatio)
}

func (p *TradePlan) fail(format string, args ...interface{}) {
	p.Valid = false
	p.Errors = append(p.Errors, fmt.Sprintf(format, args...))
}

func (p *TradePlan) warn(format string, args ...interface{}) {
	p.Warnings = append(p.Warnings, fmt.Sprintf(format, args...))
}
