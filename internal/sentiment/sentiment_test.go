package sentiment

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stock-analyst/internal/decision"
	"stock-analyst/internal/store"
)

func TestKeywordScore(t *testing.T) {
	k := NewKeyword()

	tests := []struct {
		name      string
		headlines []string
		want      float64
	}{
		{"empty", nil, 0.0},
		{"all positive", []string{"Great growth"}, 1.0},
		{"all negative", []string{"bad loss"}, -1.0},
		{"no hits", []string{"neutral news here"}, 0.0},
		{"balanced headline counts", []string{"good quarter but a loss"}, 0.0},
		{"skips headlines without hits", []string{"good", "neutral"}, 1.0},
		{"averages counted headlines", []string{"good", "bad loss", "nothing"}, 0.0},
		{"strips punctuation", []string{`"(Beats)" estimates!`}, 1.0},
		{"repeated words count once", []string{"gain gain gain loss"}, 0.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, k.Score(tt.headlines), 1e-9)
		})
	}
}

func TestValenceEmptyAndNeutral(t *testing.T) {
	v := DefaultValence()

	assert.Equal(t, 0.0, v.Score(nil))
	assert.Equal(t, 0.0, v.Score([]string{"", "   "}))
	assert.Equal(t, 0.0, v.Score([]string{"neutral news here"}))
}

func TestValencePolarity(t *testing.T) {
	v := DefaultValence()

	assert.Greater(t, v.Compound("Great growth"), 0.5)
	assert.Less(t, v.Compound("bad loss"), -0.5)
}

func TestValenceNegativeHeadlinesBelowSellThreshold(t *testing.T) {
	v := DefaultValence()
	bad := decision.DefaultThresholds().SentimentBad

	for _, h := range []string{
		"The company reported a terrible quarter",
		"Investors worried as profits tumble",
		"Shares are not doing great",
	} {
		assert.Less(t, v.Compound(h), bad, h)
	}
}

func TestValenceFinanceOverlay(t *testing.T) {
	headline := "Regulator imposes fine on bank"

	assert.Greater(t, NewValence(nil).Compound(headline), 0.0, "stock VADER reads fine as positive")
	assert.Less(t, DefaultValence().Compound(headline), 0.0)
	assert.Greater(t, DefaultValence().LexiconSize(), 7000)
}

func TestValenceNegationFlipsSign(t *testing.T) {
	v := DefaultValence()

	assert.Greater(t, v.Compound("Revenue did grow"), 0.0)
	assert.Less(t, v.Compound("Revenue did not grow"), 0.0)
	assert.Less(t, v.Compound("Revenue didn't grow"), 0.0)
}

func TestValenceIntensifiers(t *testing.T) {
	v := DefaultValence()

	base := v.Compound("Results were strong")
	assert.Greater(t, v.Compound("Results were very strong"), base)
	assert.Less(t, v.Compound("Results were slightly strong"), base)
	assert.Greater(t, v.Compound("Results were STRONG"), base)
	assert.Greater(t, v.Compound("Results were strong!"), base)
}

func TestValenceButShiftsWeight(t *testing.T) {
	v := DefaultValence()

	assert.Less(t, v.Compound("Sales were good but margins weak"), 0.0)
	assert.Greater(t, v.Compound("Margins weak but sales were good"), 0.0)
}

func TestValenceStaysInRange(t *testing.T) {
	v := DefaultValence()

	hi := v.Compound("GREAT great EXCELLENT best record profit surge!!!!!!")
	lo := v.Compound("CRASH fraud bankruptcy crisis collapse worst!!!!!!")
	assert.LessOrEqual(t, hi, 1.0)
	assert.Greater(t, hi, 0.9)
	assert.GreaterOrEqual(t, lo, -1.0)
	assert.Less(t, lo, -0.9)
}

func TestValenceScoreAverages(t *testing.T) {
	v := DefaultValence()

	a := v.Compound("Great growth")
	b := v.Compound("bad loss")
	assert.InDelta(t, (a+b)/2, v.Score([]string{"Great growth", "", "bad loss"}), 1e-12)
}

func TestLoadLexicon(t *testing.T) {
	lex, err := LoadLexicon(strings.NewReader("# comment\n\nGood\t1.9\t0.5\nbad\t-2.5\n"))
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"good": 1.9, "bad": -2.5}, lex)

	for _, in := range []string{"", "# only comments\n", "word\n", "word\tnope\n"} {
		_, err := LoadLexicon(strings.NewReader(in))
		assert.Error(t, err, "input %q", in)
	}
}

func TestNewSelectsAnalyzerOnce(t *testing.T) {
	ctx := context.Background()

	a := New(ctx, store.SentimentConfig{Analyzer: "VALENCE"})
	assert.Equal(t, "valence", a.Name())

	a = New(ctx, store.SentimentConfig{Analyzer: "KEYWORD"})
	assert.Equal(t, "keyword", a.Name())

	missing := filepath.Join(t.TempDir(), "missing.tsv")
	a = New(ctx, store.SentimentConfig{Analyzer: "VALENCE", LexiconPath: missing})
	assert.Equal(t, "keyword", a.Name())
	assert.Equal(t, 1.0, a.Score([]string{"Great growth"}))
}
