package mentions

import (
	"sort"
	"strings"
	"time"

	"github.com/seenimoa/tickerpulse/internal/analysis/sentiment"
	"github.com/seenimoa/tickerpulse/pkg/models"
)

// TopN is the number of ranked entries included in a Summary.
const TopN = 10

// Timeframe is a recency window used to filter tickers for ranking.
type Timeframe string

const (
	Timeframe1h  Timeframe = "1h"
	Timeframe4h  Timeframe = "4h"
	Timeframe1d  Timeframe = "1d"
	TimeframeAll Timeframe = "all"
)

// Timeframes lists the supported windows, shortest first.
var Timeframes = []Timeframe{Timeframe1h, Timeframe4h, Timeframe1d, TimeframeAll}

// ParseTimeframe maps a token to a Timeframe. Unrecognised tokens fall
// back to TimeframeAll rather than failing.
func ParseTimeframe(s string) Timeframe {
	switch tf := Timeframe(strings.ToLower(strings.TrimSpace(s))); tf {
	case Timeframe1h, Timeframe4h, Timeframe1d, TimeframeAll:
		return tf
	default:
		return TimeframeAll
	}
}

// Window returns the length of the timeframe; zero means unbounded.
func (tf Timeframe) Window() time.Duration {
	switch tf {
	case Timeframe1h:
		return time.Hour
	case Timeframe4h:
		return 4 * time.Hour
	case Timeframe1d:
		return 24 * time.Hour
	default:
		return 0
	}
}

// Threshold returns the oldest LastSeenAt still inside the timeframe.
// Unbounded timeframes return the Unix epoch.
func (tf Timeframe) Threshold(now time.Time) time.Time {
	w := tf.Window()
	if w == 0 {
		return time.UnixMilli(0)
	}
	return now.Add(-w)
}

// summarize projects one entry into its ranked form.
func summarize(t TickerStats) models.TickerSummary {
	return models.TickerSummary{
		Ticker:           t.Symbol,
		MentionCount:     t.MentionCount,
		SentimentAverage: t.SentimentAverage,
		SentimentLabel:   sentiment.Label(t.SentimentAverage),
		UniqueUserCount:  t.UniqueUsers(),
		Contexts:         t.Contexts,
		LastSeenAt:       t.LastSeenAt,
	}
}

// FilterAndRank returns every ticker seen inside tf, sorted by mention
// count then sentiment average, both descending. Equal pairs keep the
// store's first-seen order.
func FilterAndRank(store *Store, tf Timeframe, now time.Time) []models.TickerSummary {
	threshold := tf.Threshold(now)

	var out []models.TickerSummary
	for _, t := range store.Snapshot() {
		if t.LastSeenAt.Before(threshold) {
			continue
		}
		out = append(out, summarize(t))
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].MentionCount != out[j].MentionCount {
			return out[i].MentionCount > out[j].MentionCount
		}
		return out[i].SentimentAverage > out[j].SentimentAverage
	})
	return out
}

// Summarize builds the bullish/bearish/neutral breakdown and the top
// TopN ranked entries for tf.
func Summarize(store *Store, tf Timeframe, now time.Time) models.Summary {
	return SummarizeRanked(FilterAndRank(store, tf, now), tf, now)
}

// SummarizeRanked builds a Summary from an already ranked list.
func SummarizeRanked(ranked []models.TickerSummary, tf Timeframe, now time.Time) models.Summary {
	s := models.Summary{
		Timeframe:    string(tf),
		TotalTickers: len(ranked),
		GeneratedAt:  now,
	}
	for _, t := range ranked {
		switch sentiment.Label(t.SentimentAverage) {
		case sentiment.LabelBullish:
			s.Bullish++
		case sentiment.LabelBearish:
			s.Bearish++
		default:
			s.Neutral++
		}
	}

	top := ranked
	if len(top) > TopN {
		top = top[:TopN]
	}
	s.TopTickers = append([]models.TickerSummary{}, top...)
	return s
}
