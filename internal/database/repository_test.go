package database

import (
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"signal-engine/internal/confluence"
	"signal-engine/internal/engine"
	"signal-engine/internal/events"
	"signal-engine/internal/market"
	"signal-engine/internal/patterns"
	"signal-engine/internal/risk"
	"signal-engine/internal/signal"
)

// ============================================================================
// FAKES
// ============================================================================

type execCall struct {
	sql  string
	args []any
}

type fakeQuerier struct {
	execs   []execCall
	execErr error
	rows    [][]any
	rowErr  error
	lastSQL string
	lastArg []any
}

func (f *fakeQuerier) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.execs = append(f.execs, execCall{sql: sql, args: args})
	if f.execErr != nil {
		return pgconn.CommandTag{}, f.execErr
	}
	return pgconn.NewCommandTag("DELETE 3"), nil
}

func (f *fakeQuerier) Query(_ context.Context, sql string, args ...any) (pgx.Rows, error) {
	f.lastSQL, f.lastArg = sql, args
	return &fakeRows{values: f.rows, idx: -1}, nil
}

func (f *fakeQuerier) QueryRow(_ context.Context, sql string, args ...any) pgx.Row {
	f.lastSQL, f.lastArg = sql, args
	if f.rowErr != nil {
		return fakeRow{err: f.rowErr}
	}
	if len(f.rows) == 0 {
		return fakeRow{err: pgx.ErrNoRows}
	}
	return fakeRow{values: f.rows[0]}
}

func (f *fakeQuerier) Ping(context.Context) error { return f.execErr }

type fakeRow struct {
	values []any
	err    error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	return assign(r.values, dest)
}

type fakeRows struct {
	values [][]any
	idx    int
}

func (r *fakeRows) Close()                                       {}
func (r *fakeRows) Err() error                                   { return nil }
func (r *fakeRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (r *fakeRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *fakeRows) Next() bool                                   { r.idx++; return r.idx < len(r.values) }
func (r *fakeRows) Scan(dest ...any) error                       { return assign(r.values[r.idx], dest) }
func (r *fakeRows) Values() ([]any, error)                       { return r.values[r.idx], nil }
func (r *fakeRows) RawValues() [][]byte                          { return nil }
func (r *fakeRows) Conn() *pgx.Conn                              { return nil }

func assign(values []any, dest []any) error {
	if len(values) != len(dest) {
		return errors.New("column count mismatch")
	}
	for i, v := range values {
		target := reflect.ValueOf(dest[i]).Elem()
		if v == nil {
			target.Set(reflect.Zero(target.Type()))
			continue
		}
		target.Set(reflect.ValueOf(v))
	}
	return nil
}

// ============================================================================
// FIXTURES
// ============================================================================

func holdEvaluation() *engine.Evaluation {
	return &engine.Evaluation{
		ID:        "6f1c3a2e-0000-4000-8000-000000000001",
		Symbol:    "BTCUSDT",
		Timeframe: "1h",
		BarTime:   time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
		Price:     62030,
		Pattern:   patterns.PatternResult{Type: patterns.None},
		Verdict: signal.Verdict{
			Direction:  market.Hold,
			Confidence: 0.35,
			HoldReason: signal.HoldBelowMinimum,
			Long:       confluence.Result{Direction: market.Long, Confidence: 0.35},
			Short:      confluence.Result{Direction: market.Short, Confidence: 0.2},
		},
		CreatedAt: time.Date(2024, 3, 1, 12, 0, 1, 0, time.UTC),
	}
}

func longEvaluation() *engine.Evaluation {
	ev := holdEvaluation()
	ev.ID = "6f1c3a2e-0000-4000-8000-000000000002"
	ev.Pattern = patterns.PatternResult{Type: patterns.Hammer, Strength: 0.8, Polarity: patterns.Bullish}
	ev.Verdict.Direction = market.Long
	ev.Verdict.Confidence = 0.82
	ev.Verdict.HoldReason = signal.HoldNone
	ev.Verdict.Reasons = []string{"At S1 support", "hammer pattern"}
	ev.Plan = &risk.TradePlan{Direction: market.Long, Entry: 62030, StopLoss: 61690, Risk: 340, RiskRewardRatio: 3, Valid: true}
	return ev
}

func recordRow(t *testing.T, rec *EvaluationRecord) []any {
	t.Helper()
	reasons, err := json.Marshal(rec.Reasons)
	require.NoError(t, err)
	var plan []byte
	if rec.Plan != nil {
		plan, err = json.Marshal(rec.Plan)
		require.NoError(t, err)
	}
	return []any{
		rec.ID, rec.Symbol, rec.Timeframe, rec.BarTime, rec.Price, rec.Direction, rec.Confidence, rec.HoldReason,
		reasons, rec.LongConfidence, rec.ShortConfidence, rec.Pattern, rec.PatternStrength, plan, rec.PlanValid, rec.CreatedAt,
	}
}

// ============================================================================
// TESTS
// ============================================================================

func TestDSNDefaultsSSLMode(t *testing.T) {
	cfg := Config{Host: "localhost", Port: 5432, User: "signals", Password: "pw", Database: "signals"}
	assert.Equal(t, "host=localhost port=5432 user=signals password=pw dbname=signals sslmode=disable", cfg.DSN())

	cfg.SSLMode = "require"
	assert.True(t, strings.HasSuffix(cfg.DSN(), "sslmode=require"))
}

func TestNewEvaluationRecord(t *testing.T) {
	t.Run("hold keeps reason and omits plan", func(t *testing.T) {
		rec := NewEvaluationRecord(holdEvaluation())
		assert.Equal(t, "HOLD", rec.Direction)
		require.NotNil(t, rec.HoldReason)
		assert.Equal(t, "below_threshold", *rec.HoldReason)
		assert.Equal(t, []string{}, rec.Reasons)
		assert.Nil(t, rec.Pattern)
		assert.Nil(t, rec.Plan)
		assert.Nil(t, rec.PlanValid)
		assert.Equal(t, 0.35, rec.LongConfidence)
		assert.Equal(t, 0.2, rec.ShortConfidence)
	})

	t.Run("trade carries pattern and plan", func(t *testing.T) {
		rec := NewEvaluationRecord(longEvaluation())
		assert.Equal(t, "LONG", rec.Direction)
		assert.Nil(t, rec.HoldReason)
		require.NotNil(t, rec.Pattern)
		assert.Equal(t, "hammer", *rec.Pattern)
		assert.Equal(t, 0.8, *rec.PatternStrength)
		require.NotNil(t, rec.PlanValid)
		assert.True(t, *rec.PlanValid)
	})
}

func TestFilterLimit(t *testing.T) {
	assert.Equal(t, defaultListLimit, EvaluationFilter{}.limit())
	assert.Equal(t, 10, EvaluationFilter{Limit: 10}.limit())
	assert.Equal(t, maxListLimit, EvaluationFilter{Limit: 10000}.limit())
}

func TestBuildListQuery(t *testing.T) {
	query, args := buildListQuery(EvaluationFilter{})
	assert.NotContains(t, query, "WHERE")
	assert.Contains(t, query, "LIMIT $1")
	assert.Equal(t, []interface{}{defaultListLimit}, args)

	query, args = buildListQuery(EvaluationFilter{Symbol: "btcusdt", Direction: "long", Limit: 5, Offset: 10})
	assert.Contains(t, query, "WHERE symbol = $1 AND direction = $2")
	assert.Contains(t, query, "LIMIT $3 OFFSET $4")
	assert.Equal(t, []interface{}{"BTCUSDT", "LONG", 5, 10}, args)
}

func TestRunMigrations(t *testing.T) {
	fq := &fakeQuerier{}
	db := &DB{q: fq}
	require.NoError(t, db.RunMigrations(context.Background()))
	assert.Len(t, fq.execs, len(migrations))
	assert.Contains(t, fq.execs[0].sql, "CREATE TABLE IF NOT EXISTS evaluations")

	fq = &fakeQuerier{execErr: errors.New("permission denied")}
	err := (&DB{q: fq}).RunMigrations(context.Background())
	assert.ErrorContains(t, err, "migration 1 failed")
}

func TestSaveEvaluation(t *testing.T) {
	fq := &fakeQuerier{}
	repo := NewRepository(&DB{q: fq})

	require.NoError(t, repo.SaveEvaluation(context.Background(), longEvaluation()))
	require.Len(t, fq.execs, 1)

	call := fq.execs[0]
	assert.Contains(t, call.sql, "ON CONFLICT (id) DO NOTHING")
	require.Len(t, call.args, 16)
	assert.Equal(t, "LONG", call.args[5])
	assert.JSONEq(t, `["At S1 support","hammer pattern"]`, string(call.args[8].([]byte)))

	var plan risk.TradePlan
	require.NoError(t, json.Unmarshal(call.args[13].([]byte), &plan))
	assert.Equal(t, 61690.0, plan.StopLoss)

	fq.execErr = errors.New("connection reset")
	err := repo.SaveEvaluation(context.Background(), holdEvaluation())
	assert.ErrorContains(t, err, "failed to save evaluation")
}

func TestSaveEvaluationHoldStoresNullPlan(t *testing.T) {
	fq := &fakeQuerier{}
	repo := NewRepository(&DB{q: fq})

	require.NoError(t, repo.SaveEvaluation(context.Background(), holdEvaluation()))
	assert.Nil(t, fq.execs[0].args[13])
	assert.Nil(t, fq.execs[0].args[14])
}

func TestGetEvaluation(t *testing.T) {
	want := NewEvaluationRecord(longEvaluation())
	fq := &fakeQuerier{rows: [][]any{recordRow(t, want)}}
	repo := NewRepository(&DB{q: fq})

	got, err := repo.GetEvaluation(context.Background(), want.ID)
	require.NoError(t, err)
	assert.Equal(t, []any{want.ID}, fq.lastArg)
	assert.Equal(t, want.Reasons, got.Reasons)
	require.NotNil(t, got.Plan)
	assert.Equal(t, 340.0, got.Plan.Risk)

	_, err = NewRepository(&DB{q: &fakeQuerier{}}).GetEvaluation(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrEvaluationNotFound)
}

func TestListEvaluations(t *testing.T) {
	hold := NewEvaluationRecord(holdEvaluation())
	long := NewEvaluationRecord(longEvaluation())
	fq := &fakeQuerier{rows: [][]any{recordRow(t, long), recordRow(t, hold)}}
	repo := NewRepository(&DB{q: fq})

	got, err := repo.ListEvaluations(context.Background(), EvaluationFilter{Symbol: "BTCUSDT"})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "LONG", got[0].Direction)
	assert.NotNil(t, got[0].Plan)
	assert.Equal(t, "HOLD", got[1].Direction)
	assert.Nil(t, got[1].Plan)
	assert.Equal(t, []string{}, got[1].Reasons)

	empty, err := NewRepository(&DB{q: &fakeQuerier{}}).ListEvaluations(context.Background(), EvaluationFilter{})
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}

func TestDeleteEvaluationsBefore(t *testing.T) {
	fq := &fakeQuerier{}
	n, err := NewRepository(&DB{q: fq}).DeleteEvaluationsBefore(context.Background(), time.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}

func TestRecorder(t *testing.T) {
	fq := &fakeQuerier{}
	record := NewRepository(&DB{q: fq}).Recorder(time.Second)

	record(events.EvaluationFailed("BTCUSDT", "levels", errors.New("boom")))
	assert.Empty(t, fq.execs)

	ev := longEvaluation()
	record(events.SignalGenerated(ev.ID, ev.Symbol, ev.Timeframe, "LONG", 0.82, nil).WithPayload(ev))
	require.Len(t, fq.execs, 1)
	assert.Equal(t, ev.ID, fq.execs[0].args[0])
}
