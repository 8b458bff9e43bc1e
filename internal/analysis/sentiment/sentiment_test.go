package sentiment

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScoreBullish(t *testing.T) {
	// moon +1, 🚀 +1
	assert.Equal(t, 2, Score("I think $AAPL is going to moon 🚀"))
}

func TestScoreBearish(t *testing.T) {
	// crash -1, dump -1, 📉 -1
	assert.Equal(t, -3, Score("this will crash and dump 📉"))
}

func TestScoreNeutral(t *testing.T) {
	assert.Equal(t, 0, Score("anyone watching the game tonight?"))
	assert.Equal(t, 0, Score(""))
}

func TestScorePresenceOnly(t *testing.T) {
	assert.Equal(t, 1, Score("buy"))
	assert.Equal(t, Score("buy"), Score("buy buy"))
	assert.Equal(t, Score("buy"), Score("buy buy buy"))
}

func TestScoreCaseInsensitive(t *testing.T) {
	assert.Equal(t, Score("bullish"), Score("BULLISH"))
	assert.Equal(t, Score("Breakout"), Score("breakout"))
}

func TestScoreSubstringMatching(t *testing.T) {
	tests := []struct {
		name string
		text string
		want int
	}{
		// "support" contains "up" too.
		{"support also matches up", "support", 2},
		// "breakdown" contains "down" and "breakdown".
		{"breakdown also matches down", "breakdown", -2},
		// "shortly" contains "short".
		{"not word boundary aware", "shortly", -1},
		{"mixed cancels", "buy the dip or sell the rip", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Score(tt.text))
		})
	}
}

func TestScoreDeterministic(t *testing.T) {
	text := "TSLA breakout looks strong, calls printing 📈 but resistance at 300"
	first := Score(text)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, Score(text))
	}
}

func TestScoreBounds(t *testing.T) {
	assert.Len(t, bearishWords, 12)
	assert.Len(t, bullishWords, 13)

	assert.Equal(t, len(bullishWords), Score(strings.Join(bullishWords, " ")))
	assert.Equal(t, -len(bearishWords), Score(strings.Join(bearishWords, " ")))
}

func TestMatches(t *testing.T) {
	bull, bear := Matches("Going LONG, not selling")
	assert.Equal(t, []string{"long"}, bull)
	assert.Equal(t, []string{"sell"}, bear)

	bull, bear = Matches("nothing here")
	assert.Empty(t, bull)
	assert.Empty(t, bear)
}

func TestLabel(t *testing.T) {
	tests := []struct {
		avg  float64
		want string
	}{
		{2, LabelBullish},
		{0.51, LabelBullish},
		{0.5, LabelNeutral},
		{0, LabelNeutral},
		{-0.5, LabelNeutral},
		{-0.51, LabelBearish},
		{-3, LabelBearish},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Label(tt.avg), "avg=%v", tt.avg)
	}
}
