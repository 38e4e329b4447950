package results

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/surrealdb/surrealdb.go"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"

	"stock-analyst/internal/interfaces"
	"stock-analyst/internal/types"
)

const surrealTable = "analysis_result"

type SurrealParams struct {
	Address   string
	Namespace string
	Database  string
	Username  string
	Password  string
}

// Surreal stores results in a SurrealDB table keyed by result id
type Surreal struct {
	db *surrealdb.DB
}

var _ interfaces.ResultStore = (*Surreal)(nil)

type surrealRow struct {
	ResultID string `json:"result_id"`
	Payload  string `json:"payload"`
}

func NewSurreal(ctx context.Context, p SurrealParams) (*Surreal, error) {
	if p.Address == "" {
		return nil, fmt.Errorf("surrealdb address is empty")
	}
	db, err := surrealdb.New(p.Address)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to SurrealDB: %w", err)
	}

	if p.Username != "" {
		if _, err := db.SignIn(ctx, map[string]interface{}{
			"user": p.Username,
			"pass": p.Password,
		}); err != nil {
			db.Close(ctx)
			return nil, fmt.Errorf("failed to sign in to SurrealDB: %w", err)
		}
	}
	if err := db.Use(ctx, p.Namespace, p.Database); err != nil {
		db.Close(ctx)
		return nil, fmt.Errorf("failed to select namespace/database: %w", err)
	}

	sql := fmt.Sprintf("DEFINE TABLE IF NOT EXISTS %s SCHEMALESS", surrealTable)
	if _, err := surrealdb.Query[any](ctx, db, sql, nil); err != nil {
		db.Close(ctx)
		return nil, fmt.Errorf("failed to define table %s: %w", surrealTable, err)
	}
	return &Surreal{db: db}, nil
}

func (s *Surreal) Save(ctx context.Context, r *types.AnalysisResult) (string, error) {
	prepare(r)
	payload, err := json.Marshal(r)
	if err != nil {
		return "", err
	}

	sql := `UPSERT $rid SET result_id = $result_id, symbol = $symbol, generated_at = $generated_at, payload = $payload`
	vars := map[string]any{
		"rid":          surrealmodels.NewRecordID(surrealTable, r.ID),
		"result_id":    r.ID,
		"symbol":       r.Symbol,
		"generated_at": r.GeneratedAt,
		"payload":      string(payload),
	}
	if _, err := surrealdb.Query[any](ctx, s.db, sql, vars); err != nil {
		return "", fmt.Errorf("failed to save result: %w", err)
	}
	return r.ID, nil
}

func (s *Surreal) Get(ctx context.Context, id string) (*types.AnalysisResult, error) {
	vars := map[string]any{"rid": surrealmodels.NewRecordID(surrealTable, id)}
	rows, err := s.query(ctx, "SELECT result_id, payload FROM $rid", vars)
	if err != nil {
		return nil, fmt.Errorf("failed to get result: %w", err)
	}
	if len(rows) == 0 {
		return nil, ErrNotFound
	}
	return decodeResult([]byte(rows[0].Payload))
}

func (s *Surreal) List(ctx context.Context, opts interfaces.ListOptions) ([]*types.AnalysisResult, error) {
	sql := "SELECT result_id, payload, generated_at FROM " + surrealTable
	vars := map[string]any{}
	if sym := normalizeSymbol(opts.Symbol); sym != "" {
		sql += " WHERE symbol = $symbol"
		vars["symbol"] = sym
	}
	sql += " ORDER BY generated_at DESC"
	if opts.Limit > 0 {
		sql += " LIMIT $limit"
		vars["limit"] = opts.Limit
	}

	rows, err := s.query(ctx, sql, vars)
	if err != nil {
		return nil, fmt.Errorf("failed to list results: %w", err)
	}
	out := make([]*types.AnalysisResult, 0, len(rows))
	for _, row := range rows {
		r, err := decodeResult([]byte(row.Payload))
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

func (s *Surreal) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if _, err := surrealdb.Delete[surrealRow](ctx, s.db, surrealmodels.NewRecordID(surrealTable, id)); err != nil {
		return fmt.Errorf("failed to delete result: %w", err)
	}
	return nil
}

func (s *Surreal) Close() error {
	s.db.Close(context.Background())
	return nil
}

func (s *Surreal) query(ctx context.Context, sql string, vars map[string]any) ([]surrealRow, error) {
	results, err := surrealdb.Query[[]surrealRow](ctx, s.db, sql, vars)
	if err != nil {
		return nil, err
	}
	if results == nil || len(*results) == 0 {
		return nil, nil
	}
	return (*results)[0].Result, nil
}
