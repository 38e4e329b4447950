package results

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"stock-analyst/internal/interfaces"
	"stock-analyst/internal/types"
)

// SQLite stores results in a single table with the result as a JSON payload
type SQLite struct {
	db *sql.DB
}

var _ interfaces.ResultStore = (*SQLite)(nil)

func NewSQLite(ctx context.Context, path string) (_ *SQLite, err error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite3 database: %w", err)
	}
	defer func() {
		if err != nil {
			err = errors.Join(err, db.Close())
		}
	}()
	db.SetMaxOpenConns(1)

	if _, err = db.ExecContext(ctx, `PRAGMA journal_mode=WAL`); err != nil {
		return nil, fmt.Errorf("failed to set journal mode: %w", err)
	}
	if _, err = db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS analysis_results (
			seq          INTEGER PRIMARY KEY AUTOINCREMENT,
			id           TEXT NOT NULL UNIQUE,
			symbol       TEXT NOT NULL,
			generated_at INTEGER NOT NULL,
			payload      TEXT NOT NULL
		)`); err != nil {
		return nil, fmt.Errorf("failed to create table: %w", err)
	}
	if _, err = db.ExecContext(ctx,
		`CREATE INDEX IF NOT EXISTS idx_analysis_results_symbol ON analysis_results (symbol, generated_at)`); err != nil {
		return nil, fmt.Errorf("failed to create index: %w", err)
	}
	return &SQLite{db: db}, nil
}

func (s *SQLite) Save(ctx context.Context, r *types.AnalysisResult) (string, error) {
	prepare(r)
	payload, err := json.Marshal(r)
	if err != nil {
		return "", err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO analysis_results (id, symbol, generated_at, payload) VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET symbol = excluded.symbol, generated_at = excluded.generated_at, payload = excluded.payload`,
		r.ID, r.Symbol, r.GeneratedAt.UnixNano(), string(payload))
	if err != nil {
		return "", fmt.Errorf("insert result: %w", err)
	}
	return r.ID, nil
}

func (s *SQLite) Get(ctx context.Context, id string) (*types.AnalysisResult, error) {
	var payload string
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM analysis_results WHERE id = ?`, id).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query result: %w", err)
	}
	return decodeResult([]byte(payload))
}

func (s *SQLite) List(ctx context.Context, opts interfaces.ListOptions) (_ []*types.AnalysisResult, err error) {
	query := `SELECT payload FROM analysis_results`
	var args []any
	if sym := normalizeSymbol(opts.Symbol); sym != "" {
		query += ` WHERE symbol = ?`
		args = append(args, sym)
	}
	query += ` ORDER BY generated_at DESC, seq DESC`
	if opts.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, opts.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list results: %w", err)
	}
	defer func() {
		if e := rows.Close(); e != nil {
			err = errors.Join(err, e)
		}
	}()

	var out []*types.AnalysisResult
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		r, err := decodeResult([]byte(payload))
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *SQLite) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM analysis_results WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete result: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// Prune removes results generated before cutoff
func (s *SQLite) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM analysis_results WHERE generated_at < ?`, cutoff.UnixNano())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

func decodeResult(b []byte) (*types.AnalysisResult, error) {
	var r types.AnalysisResult
	if err := json.Unmarshal(b, &r); err != nil {
		return nil, fmt.Errorf("decode result: %w", err)
	}
	return &r, nil
}
