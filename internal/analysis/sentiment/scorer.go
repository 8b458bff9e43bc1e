package sentiment

import (
	"strings"
)

// ------------------------------------------------------------------
// Keyword-based sentiment scorer for chat messages.
// Each keyword counts at most once per text: presence, not frequency.
// Matching is plain substring containment on the lower-cased text, so
// "up" also fires inside "support" or "upgrade".
// ------------------------------------------------------------------

// bullish / bearish keyword lists (lowercase).
var bullishWords = []string{
	"buy", "long", "call", "bullish", "up", "moon", "rocket", "🚀", "📈",
	"support", "higher", "strong", "breakout",
}

var bearishWords = []string{
	"sell", "short", "put", "bearish", "down", "crash", "dump", "📉",
	"resistance", "lower", "weak", "breakdown",
}

// Label thresholds on an averaged score.
const (
	BullishThreshold = 0.5
	BearishThreshold = -0.5
)

// Sentiment labels.
const (
	LabelBullish = "Bullish"
	LabelBearish = "Bearish"
	LabelNeutral = "Neutral"
)

// Score returns +1 for every bullish keyword and -1 for every bearish
// keyword contained in text. No length normalisation is applied.
func Score(text string) int {
	lower := strings.ToLower(text)

	score := 0
	for _, word := range bullishWords {
		if strings.Contains(lower, word) {
			score++
		}
	}
	for _, word := range bearishWords {
		if strings.Contains(lower, word) {
			score--
		}
	}
	return score
}

// Matches returns the bullish and bearish keywords found in text, in
// keyword-list order.
func Matches(text string) (bull, bear []string) {
	lower := strings.ToLower(text)
	for _, word := range bullishWords {
		if strings.Contains(lower, word) {
			bull = append(bull, word)
		}
	}
	for _, word := range bearishWords {
		if strings.Contains(lower, word) {
			bear = append(bear, word)
		}
	}
	return bull, bear
}

// Label classifies an average score.
func Label(avg float64) string {
	switch {
	case avg > BullishThreshold:
		return LabelBullish
	case avg < BearishThreshold:
		return LabelBearish
	default:
		return LabelNeutral
	}
}
