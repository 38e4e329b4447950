package results

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"stock-analyst/internal/interfaces"
	"stock-analyst/internal/types"
)

var ErrMissingDSN = errors.New("postgres connection string is empty")

// Postgres stores results as JSONB rows behind a pgx connection pool
type Postgres struct {
	pool *pgxpool.Pool
}

var _ interfaces.ResultStore = (*Postgres)(nil)

func NewPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	if dsn == "" {
		return nil, ErrMissingDSN
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	for _, stmt := range []string{
		`CREATE TABLE IF NOT EXISTS analysis_results (
			seq          BIGSERIAL PRIMARY KEY,
			id           TEXT NOT NULL UNIQUE,
			symbol       TEXT NOT NULL,
			generated_at TIMESTAMPTZ NOT NULL,
			payload      JSONB NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_analysis_results_symbol ON analysis_results (symbol, generated_at DESC)`,
	} {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			pool.Close()
			return nil, fmt.Errorf("create schema: %w", err)
		}
	}
	return &Postgres{pool: pool}, nil
}

func (p *Postgres) Save(ctx context.Context, r *types.AnalysisResult) (string, error) {
	prepare(r)
	payload, err := json.Marshal(r)
	if err != nil {
		return "", err
	}
	_, err = p.pool.Exec(ctx, `
		INSERT INTO analysis_results (id, symbol, generated_at, payload) VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET symbol = EXCLUDED.symbol, generated_at = EXCLUDED.generated_at, payload = EXCLUDED.payload`,
		r.ID, r.Symbol, r.GeneratedAt, payload)
	if err != nil {
		return "", fmt.Errorf("insert result: %w", err)
	}
	return r.ID, nil
}

func (p *Postgres) Get(ctx context.Context, id string) (*types.AnalysisResult, error) {
	var payload []byte
	err := p.pool.QueryRow(ctx, `SELECT payload FROM analysis_results WHERE id = $1`, id).Scan(&payload)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query result: %w", err)
	}
	return decodeResult(payload)
}

func (p *Postgres) List(ctx context.Context, opts interfaces.ListOptions) ([]*types.AnalysisResult, error) {
	query := `SELECT payload FROM analysis_results`
	var args []any
	if sym := normalizeSymbol(opts.Symbol); sym != "" {
		args = append(args, sym)
		query += fmt.Sprintf(` WHERE symbol = $%d`, len(args))
	}
	query += ` ORDER BY generated_at DESC, seq DESC`
	if opts.Limit > 0 {
		args = append(args, opts.Limit)
		query += fmt.Sprintf(` LIMIT $%d`, len(args))
	}

	rows, err := p.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list results: %w", err)
	}
	defer rows.Close()

	var out []*types.AnalysisResult
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		r, err := decodeResult(payload)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (p *Postgres) Delete(ctx context.Context, id string) error {
	tag, err := p.pool.Exec(ctx, `DELETE FROM analysis_results WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete result: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Prune removes results generated before cutoff
func (p *Postgres) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := p.pool.Exec(ctx, `DELETE FROM analysis_results WHERE generated_at < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}
