package sentiment

import "strings"

// Keyword is the dependency-free fallback scorer. Each headline scores
// (pos-neg)/(pos+neg) over its distinct words; headlines with no hits are skipped.
type Keyword struct {
	positive map[string]bool
	negative map[string]bool
}

func NewKeyword() *Keyword {
	return &Keyword{
		positive: toSet(positiveKeywords),
		negative: toSet(negativeKeywords),
	}
}

var positiveKeywords = []string{
	"good", "great", "positive", "beat", "beats", "up", "gain", "gains",
	"growth", "strong", "profit", "outperform",
}

var negativeKeywords = []string{
	"bad", "worse", "miss", "missed", "down", "loss", "losses", "weak",
	"decline", "fall", "cut", "warn",
}

const stripChars = `.,!?:;()[]"'`

func (k *Keyword) Name() string { return "keyword" }

func (k *Keyword) Score(headlines []string) float64 {
	var total float64
	var counted int
	for _, h := range headlines {
		words := wordSet(h)
		pos, neg := 0, 0
		for w := range words {
			if k.positive[w] {
				pos++
			}
			if k.negative[w] {
				neg++
			}
		}
		if pos+neg == 0 {
			continue
		}
		total += float64(pos-neg) / float64(pos+neg)
		counted++
	}
	if counted == 0 {
		return 0
	}
	return total / float64(counted)
}

func wordSet(headline string) map[string]bool {
	set := make(map[string]bool)
	for _, w := range strings.Fields(headline) {
		w = strings.ToLower(strings.Trim(w, stripChars))
		if w != "" {
			set[w] = true
		}
	}
	return set
}

func toSet(words []string) map[string]bool {
	m := make(map[string]bool, len(words))
	for _, w := range words {
		m[w] = true
	}
	return m
}
