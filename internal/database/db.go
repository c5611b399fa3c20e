package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"signal-engine/internal/logging"
)

// querier is the subset of pgxpool.Pool the repository uses
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
}

// DB wraps the PostgreSQL connection pool
type DB struct {
	Pool *pgxpool.Pool
	q    querier
}

// Config holds database configuration
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

// DSN builds the libpq connection string
func (c Config) DSN() string {
	sslMode := c.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, sslMode,
	)
}

// NewDB creates a new database connection
func NewDB(cfg Config) (*DB, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("unable to parse database config: %w", err)
	}

	// Configure connection pool
	poolConfig.MaxConns = 10
	poolConfig.MinConns = 2
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute
	poolConfig.HealthCheckPeriod = time.Minute

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	// Test connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	logging.WithComponent("database").Info("connected to PostgreSQL", "database", cfg.Database)

	return &DB{Pool: pool, q: pool}, nil
}

// Close closes the database connection
func (db *DB) Close() {
	if db.Pool != nil {
		db.Pool.Close()
		logging.WithComponent("database").Info("database connection closed")
	}
}

// migrations create the evaluation history schema; each statement is idempotent
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS evaluations (
		id UUID PRIMARY KEY,
		symbol VARCHAR(20) NOT NULL,
		timeframe VARCHAR(10) NOT NULL DEFAULT '',
		bar_time TIMESTAMPTZ NOT NULL,
		price DECIMAL(30, 8) NOT NULL,
		direction VARCHAR(5) NOT NULL,
		confidence DECIMAL(6, 5) NOT NULL,
		hold_reason VARCHAR(20),
		reasons JSONB NOT NULL DEFAULT '[]',
		long_confidence DECIMAL(6, 5) NOT NULL,
		short_confidence DECIMAL(6, 5) NOT NULL,
		pattern VARCHAR(30),
		pattern_strength DECIMAL(6, 5),
		plan JSONB,
		plan_valid BOOLEAN,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_evaluations_symbol ON evaluations(symbol)`,
	`CREATE INDEX IF NOT EXISTS idx_evaluations_bar_time ON evaluations(bar_time DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_evaluations_direction ON evaluations(direction)`,
	`CREATE INDEX IF NOT EXISTS idx_evaluations_symbol_timeframe ON evaluations(symbol, timeframe, bar_time DESC)`,
}

// RunMigrations executes database migrations
func (db *DB) RunMigrations(ctx context.Context) error {
	log := logging.DatabaseContext("migrate", "evaluations")
	log.Info("running database migrations")

	for i, migration := range migrations {
		if _, err := db.q.Exec(ctx, migration); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}

	log.Info("database migrations completed", "count", len(migrations))
	return nil
}

// HealthCheck performs a database health check
func (db *DB) HealthCheck(ctx context.Context) error {
	return db.q.Ping(ctx)
}
