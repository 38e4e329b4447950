package interfaces

// SentimentAnalyzer turns headlines into one compound score in [-1, 1]
type SentimentAnalyzer interface {
	Score(headlines []string) float64
	Name() string
}
