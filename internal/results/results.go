// Package results persists analysis results. Every backend satisfies
// interfaces.ResultStore; List returns newest first.
package results

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"stock-analyst/internal/interfaces"
	"stock-analyst/internal/logger"
	"stock-analyst/internal/store"
	"stock-analyst/internal/types"
)

var ErrNotFound = errors.New("result not found")

// New opens the backend named by cfg.Backend
func New(ctx context.Context, cfg store.StorageConfig) (interfaces.ResultStore, error) {
	var (
		s   interfaces.ResultStore
		err error
	)
	switch strings.ToUpper(cfg.Backend) {
	case "", "MEMORY":
		s = NewMemory()
	case "JSONL":
		s, err = NewJSONL(filepath.Join(cfg.Path, "results"), cfg.RetentionDays)
	case "SQLITE":
		s, err = NewSQLite(ctx, filepath.Join(cfg.Path, "results.db"))
	case "POSTGRES":
		s, err = NewPostgres(ctx, os.Getenv(cfg.DSNEnv))
	case "SURREALDB":
		sc := cfg.Surreal
		s, err = NewSurreal(ctx, SurrealParams{
			Address:   sc.Address,
			Namespace: sc.Namespace,
			Database:  sc.Database,
			Username:  sc.Username,
			Password:  os.Getenv(sc.PasswordEnv),
		})
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s result store: %w", strings.ToLower(cfg.Backend), err)
	}

	if p, ok := s.(pruner); ok && cfg.RetentionDays > 0 {
		cutoff := time.Now().AddDate(0, 0, -cfg.RetentionDays)
		if n, err := p.Prune(ctx, cutoff); err != nil {
			logger.Warn(ctx, "Failed to prune old results", "error", err)
		} else if n > 0 {
			logger.Info(ctx, "Pruned old results", "count", n, "retention_days", cfg.RetentionDays)
		}
	}

	logger.Info(ctx, "Result store ready", "backend", strings.ToUpper(cfg.Backend))
	return s, nil
}

type pruner interface {
	Prune(ctx context.Context, cutoff time.Time) (int64, error)
}

// prepare assigns an id and timestamp when missing
func prepare(r *types.AnalysisResult) {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.GeneratedAt.IsZero() {
		r.GeneratedAt = time.Now().UTC()
	}
}

// normalizeSymbol makes List filters case-insensitive
func normalizeSymbol(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// newestFirst sorts by GeneratedAt descending, keeping insertion order for ties
func newestFirst(list []*types.AnalysisResult) {
	sort.SliceStable(list, func(i, j int) bool { return list[i].GeneratedAt.After(list[j].GeneratedAt) })
}

func applyLimit(list []*types.AnalysisResult, limit int) []*types.AnalysisResult {
	if limit > 0 && len(list) > limit {
		return list[:limit]
	}
	return list
}

func clone(r *types.AnalysisResult) *types.AnalysisResult {
	c := *r
	c.Headlines = append([]string(nil), r.Headlines...)
	c.VerdictDetails.Reasons = append([]string(nil), r.VerdictDetails.Reasons...)
	if r.Technicals != nil {
		t := *r.Technicals
		c.Technicals = &t
	}
	return &c
}
