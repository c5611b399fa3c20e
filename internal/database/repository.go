package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"signal-engine/internal/engine"
	"signal-engine/internal/events"
	"signal-engine/internal/logging"
	"signal-engine/internal/risk"
)

// ErrEvaluationNotFound is returned when no evaluation has the requested id
var ErrEvaluationNotFound = errors.New("evaluation not found")

// Repository provides data access methods
type Repository struct {
	db *DB
}

// NewRepository creates a new repository
func NewRepository(db *DB) *Repository {
	return &Repository{db: db}
}

// HealthCheck performs a database health check
func (r *Repository) HealthCheck(ctx context.Context) error {
	return r.db.HealthCheck(ctx)
}

// ============================================================================
// EVALUATIONS
// ============================================================================

const evaluationColumns = `id, symbol, timeframe, bar_time, price, direction, confidence, hold_reason,
	reasons, long_confidence, short_confidence, pattern, pattern_strength, plan, plan_valid, created_at`

// SaveEvaluation inserts an evaluation; saving the same id twice is a no-op
func (r *Repository) SaveEvaluation(ctx context.Context, ev *engine.Evaluation) error {
	rec := NewEvaluationRecord(ev)

	reasons, err := json.Marshal(rec.Reasons)
	if err != nil {
		return fmt.Errorf("failed to marshal reasons: %w", err)
	}
	var plan []byte
	if rec.Plan != nil {
		if plan, err = json.Marshal(rec.Plan); err != nil {
			return fmt.Errorf("failed to marshal plan: %w", err)
		}
	}

	query := `
		INSERT INTO evaluations (` + evaluationColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		ON CONFLICT (id) DO NOTHING
	`
	_, err = r.db.q.Exec(
		ctx, query,
		rec.ID, rec.Symbol, rec.Timeframe, rec.BarTime, rec.Price, rec.Direction, rec.Confidence, rec.HoldReason,
		reasons, rec.LongConfidence, rec.ShortConfidence, rec.Pattern, rec.PatternStrength, plan, rec.PlanValid, rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save evaluation %s: %w", rec.ID, err)
	}
	return nil
}

// GetEvaluation retrieves one evaluation by id
func (r *Repository) GetEvaluation(ctx context.Context, id string) (*EvaluationRecord, error) {
	query := `SELECT ` + evaluationColumns + ` FROM evaluations WHERE id = $1`
	rec, err := scanEvaluation(r.db.q.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrEvaluationNotFound
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// ListEvaluations returns the newest evaluations matching the filter
func (r *Repository) ListEvaluations(ctx context.Context, filter EvaluationFilter) ([]*EvaluationRecord, error) {
	query, args := buildListQuery(filter)

	rows, err := r.db.q.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := []*EvaluationRecord{}
	for rows.Next() {
		rec, err := scanEvaluation(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// DeleteEvaluationsBefore prunes history older than cutoff
func (r *Repository) DeleteEvaluationsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.db.q.Exec(ctx, `DELETE FROM evaluations WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func buildListQuery(filter EvaluationFilter) (string, []interface{}) {
	var conditions []string
	var args []interface{}

	add := func(column, value string) {
		args = append(args, value)
		conditions = append(conditions, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	if filter.Symbol != "" {
		add("symbol", strings.ToUpper(filter.Symbol))
	}
	if filter.Timeframe != "" {
		add("timeframe", filter.Timeframe)
	}
	if filter.Direction != "" {
		add("direction", strings.ToUpper(filter.Direction))
	}

	var b strings.Builder
	b.WriteString("SELECT " + evaluationColumns + " FROM evaluations")
	if len(conditions) > 0 {
		b.WriteString(" WHERE " + strings.Join(conditions, " AND "))
	}
	args = append(args, filter.limit())
	fmt.Fprintf(&b, " ORDER BY bar_time DESC, created_at DESC LIMIT $%d", len(args))
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		fmt.Fprintf(&b, " OFFSET $%d", len(args))
	}
	return b.String(), args
}

func scanEvaluation(row pgx.Row) (*EvaluationRecord, error) {
	rec := &EvaluationRecord{}
	var reasons, plan []byte
	err := row.Scan(
		&rec.ID, &rec.Symbol, &rec.Timeframe, &rec.BarTime, &rec.Price, &rec.Direction, &rec.Confidence, &rec.HoldReason,
		&reasons, &rec.LongConfidence, &rec.ShortConfidence, &rec.Pattern, &rec.PatternStrength, &plan, &rec.PlanValid, &rec.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := decodeJSONColumns(rec, reasons, plan); err != nil {
		return nil, err
	}
	return rec, nil
}

func decodeJSONColumns(rec *EvaluationRecord, reasons, plan []byte) error {
	rec.Reasons = []string{}
	if len(reasons) > 0 {
		if err := json.Unmarshal(reasons, &rec.Reasons); err != nil {
			return fmt.Errorf("failed to decode reasons of %s: %w", rec.ID, err)
		}
	}
	if len(plan) > 0 {
		rec.Plan = &risk.TradePlan{}
		if err := json.Unmarshal(plan, rec.Plan); err != nil {
			return fmt.Errorf("failed to decode plan of %s: %w", rec.ID, err)
		}
	}
	return nil
}

// Recorder persists every completed evaluation published on the bus
func (r *Repository) Recorder(timeout time.Duration) events.Subscriber {
	log := logging.DatabaseContext("insert", "evaluations")
	return func(event events.Event) {
		ev, ok := event.Data["payload"].(*engine.Evaluation)
		if !ok {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if err := r.SaveEvaluation(ctx, ev); err != nil {
			log.Error("failed to record evaluation", "id", ev.ID, "symbol", ev.Symbol, "error", err)
		}
	}
}
