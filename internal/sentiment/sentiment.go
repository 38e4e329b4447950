// Package sentiment scores news headlines into a single compound value in [-1, 1].
//
// Two analyzers implement interfaces.SentimentAnalyzer: Valence, VADER with a
// finance-term overlay, and Keyword, a small fixed-vocabulary fallback. The choice is
// made once by New and never per call.
package sentiment

import (
	"bytes"
	"context"
	_ "embed"
	"os"
	"strings"

	"stock-analyst/internal/interfaces"
	"stock-analyst/internal/logger"
	"stock-analyst/internal/store"
)

//go:embed lexicon.tsv
var defaultLexicon []byte

// New picks the analyzer for the process. VALENCE falls back to KEYWORD when the
// overlay lexicon cannot be loaded.
func New(ctx context.Context, cfg store.SentimentConfig) interfaces.SentimentAnalyzer {
	if strings.EqualFold(cfg.Analyzer, "KEYWORD") {
		logger.Info(ctx, "Sentiment analyzer selected", "analyzer", "keyword")
		return NewKeyword()
	}

	lex, err := loadLexicon(cfg.LexiconPath)
	if err != nil {
		logger.Warn(ctx, "Valence lexicon unavailable, using keyword fallback",
			"path", cfg.LexiconPath,
			"error", err,
		)
		return NewKeyword()
	}

	v := NewValence(lex)
	logger.Info(ctx, "Sentiment analyzer selected",
		"analyzer", "valence",
		"overlay_words", len(lex),
		"lexicon_words", v.LexiconSize(),
	)
	return v
}

// DefaultValence returns a Valence analyzer with the built-in finance overlay
func DefaultValence() *Valence {
	lex, err := LoadLexicon(bytes.NewReader(defaultLexicon))
	if err != nil {
		panic("sentiment: built-in lexicon: " + err.Error())
	}
	return NewValence(lex)
}

func loadLexicon(path string) (map[string]float64, error) {
	if path == "" {
		return LoadLexicon(bytes.NewReader(defaultLexicon))
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return LoadLexicon(f)
}
