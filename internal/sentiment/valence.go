package sentiment

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/jonreiter/govader"
)

// Valence scores headlines with VADER. Overlay entries replace or extend the
// VADER lexicon, so finance terms ("tumble", "downgrade", "fine") carry their
// market meaning.
type Valence struct {
	sia *govader.SentimentIntensityAnalyzer
}

// NewValence builds a VADER analyzer with overlay merged into its lexicon.
// A nil overlay leaves the stock VADER lexicon.
func NewValence(overlay map[string]float64) *Valence {
	sia := govader.NewSentimentIntensityAnalyzer()
	for word, v := range overlay {
		sia.Lexicon[word] = v
	}
	return &Valence{sia: sia}
}

// LoadLexicon reads "word<TAB>valence" lines. Extra columns are ignored, as are
// blank lines and lines starting with '#'.
func LoadLexicon(r io.Reader) (map[string]float64, error) {
	lex := make(map[string]float64)
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		cols := strings.Split(text, "\t")
		if len(cols) < 2 {
			return nil, fmt.Errorf("lexicon line %d: expected word and valence", line)
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(cols[1]), 64)
		if err != nil {
			return nil, fmt.Errorf("lexicon line %d: %w", line, err)
		}
		lex[strings.ToLower(strings.TrimSpace(cols[0]))] = v
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if len(lex) == 0 {
		return nil, fmt.Errorf("lexicon is empty")
	}
	return lex, nil
}

func (v *Valence) Name() string { return "valence" }

// LexiconSize is the number of scored words after the overlay
func (v *Valence) LexiconSize() int { return len(v.sia.Lexicon) }

// Score averages Compound over the non-blank headlines
func (v *Valence) Score(headlines []string) float64 {
	var total float64
	var n int
	for _, h := range headlines {
		if strings.TrimSpace(h) == "" {
			continue
		}
		total += v.Compound(h)
		n++
	}
	if n == 0 {
		return 0
	}
	return total / float64(n)
}

// Compound is the VADER compound score of text in [-1, 1]
func (v *Valence) Compound(text string) float64 {
	if strings.TrimSpace(text) == "" {
		return 0
	}
	return v.sia.PolarityScores(text).Compound
}
