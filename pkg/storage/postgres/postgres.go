// Package postgres provides a PostgreSQL-backed usage ledger. It uses
// pgx/v5 for connection pooling and applies embedded schema migrations
// on startup when configured to.
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mkappe/gemgate/pkg/storage"
)

// Ledger is a PostgreSQL-backed UsageLedger.
type Ledger struct {
	pool *pgxpool.Pool
}

var _ storage.UsageLedger = (*Ledger)(nil)

// New creates a PostgreSQL ledger with the given configuration.
// If MigrateOnStart is true, schema migrations are applied automatically.
func New(ctx context.Context, cfg Config) (*Ledger, error) {
	cfg.defaults()

	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parsing DSN: %w", err)
	}

	poolCfg.MaxConns = cfg.MaxConns
	poolCfg.MinConns = cfg.MinConns
	poolCfg.MaxConnLifetime = cfg.MaxConnLifetime

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	l := &Ledger{pool: pool}

	if cfg.MigrateOnStart {
		if err := l.migrate(ctx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("running migrations: %w", err)
		}
	}

	return l, nil
}

// Record persists one usage record, filling the caller from the context
// when the record carries none.
func (l *Ledger) Record(ctx context.Context, rec *storage.UsageRecord) error {
	caller := rec.Caller
	if caller == "" {
		caller = storage.GetCaller(ctx)
	}

	_, err := l.pool.Exec(ctx, `
		INSERT INTO usage_records (
			request_id, caller, model,
			prompt_tokens, output_tokens, total_tokens,
			streamed, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`,
		rec.RequestID, nullString(caller), rec.Model,
		rec.PromptTokens, rec.OutputTokens, rec.TotalTokens,
		rec.Streamed, rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting usage record: %w", err)
	}
	return nil
}

// Recent returns up to limit records, newest first, scoped to the caller
// identity in the context when one is present.
func (l *Ledger) Recent(ctx context.Context, limit int) ([]*storage.UsageRecord, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `
		SELECT request_id, caller, model,
		       prompt_tokens, output_tokens, total_tokens,
		       streamed, created_at
		FROM usage_records
	`
	args := []any{}
	if caller := storage.GetCaller(ctx); caller != "" {
		query += " WHERE caller = $1"
		args = append(args, caller)
	}
	query += fmt.Sprintf(" ORDER BY created_at DESC, id DESC LIMIT %d", limit)

	rows, err := l.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying usage records: %w", err)
	}
	defer rows.Close()

	var out []*storage.UsageRecord
	for rows.Next() {
		var rec storage.UsageRecord
		var caller *string
		if err := rows.Scan(
			&rec.RequestID, &caller, &rec.Model,
			&rec.PromptTokens, &rec.OutputTokens, &rec.TotalTokens,
			&rec.Streamed, &rec.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning usage record: %w", err)
		}
		if caller != nil {
			rec.Caller = *caller
		}
		out = append(out, &rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading usage records: %w", err)
	}
	return out, nil
}

// TotalsByModel aggregates usage per model, sorted by model name.
func (l *Ledger) TotalsByModel(ctx context.Context) ([]storage.ModelTotals, error) {
	rows, err := l.pool.Query(ctx, `
		SELECT model, COUNT(*), COALESCE(SUM(prompt_tokens), 0), COALESCE(SUM(output_tokens), 0)
		FROM usage_records
		GROUP BY model
		ORDER BY model
	`)
	if err != nil {
		return nil, fmt.Errorf("querying usage totals: %w", err)
	}
	defer rows.Close()

	var out []storage.ModelTotals
	for rows.Next() {
		var t storage.ModelTotals
		if err := rows.Scan(&t.Model, &t.Requests, &t.PromptTokens, &t.OutputTokens); err != nil {
			return nil, fmt.Errorf("scanning usage totals: %w", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading usage totals: %w", err)
	}
	return out, nil
}

// HealthCheck verifies the database connection.
func (l *Ledger) HealthCheck(ctx context.Context) error {
	return l.pool.Ping(ctx)
}

// Close releases the connection pool.
func (l *Ledger) Close() error {
	l.pool.Close()
	return nil
}

// nullString converts an empty string to nil for nullable TEXT columns.
func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
