// Package models defines the core data structures used throughout tickerpulse.
package models

import (
	"encoding/json"
	"time"

	"github.com/seenimoa/tickerpulse/pkg/utils"
)

// UnknownUser is substituted when a message carries no author.
const UnknownUser = "unknown"

// Author identifies who posted a message.
type Author struct {
	ID       string `json:"id,omitempty"`
	Username string `json:"username"`
}

// Message is a single chat message as supplied by a message source.
// Content is a pointer so that a message without a content field can be
// told apart from one with empty content.
type Message struct {
	ID        string    `json:"id,omitempty"`
	ChannelID string    `json:"channel_id,omitempty"`
	Content   *string   `json:"content"`
	Author    *Author   `json:"author,omitempty"`
	Timestamp time.Time `json:"timestamp,omitempty"`
	Source    string    `json:"-"`
}

// NewMessage builds a message with content and author username.
// An empty username leaves the author absent.
func NewMessage(content, username string) Message {
	m := Message{Content: &content}
	if username != "" {
		m.Author = &Author{Username: username}
	}
	return m
}

// Text returns the message content, or "" when the field is absent.
func (m Message) Text() string {
	if m.Content == nil {
		return ""
	}
	return *m.Content
}

// Username returns the author's username or UnknownUser.
func (m Message) Username() string {
	if m.Author == nil || m.Author.Username == "" {
		return UnknownUser
	}
	return m.Author.Username
}

// MentionContext is a retained snippet of a message that mentioned a ticker.
type MentionContext struct {
	Text      string    `json:"text"`
	Username  string    `json:"username"`
	Timestamp time.Time `json:"timestamp"`
}

type mentionContextJSON struct {
	Text      string `json:"text"`
	Username  string `json:"username"`
	Timestamp int64  `json:"timestamp"`
}

// MarshalJSON writes Timestamp as epoch milliseconds.
func (c MentionContext) MarshalJSON() ([]byte, error) {
	return json.Marshal(mentionContextJSON{
		Text:      c.Text,
		Username:  c.Username,
		Timestamp: utils.EpochMillis(c.Timestamp),
	})
}

// UnmarshalJSON reads Timestamp as epoch milliseconds.
func (c *MentionContext) UnmarshalJSON(data []byte) error {
	var aux mentionContextJSON
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*c = MentionContext{
		Text:      aux.Text,
		Username:  aux.Username,
		Timestamp: utils.FromEpochMillis(aux.Timestamp),
	}
	return nil
}

// TickerSummary is the ranked, read-only projection of one ticker's stats.
type TickerSummary struct {
	Ticker           string           `json:"ticker"`
	MentionCount     int              `json:"mention_count"`
	SentimentAverage float64          `json:"sentiment_average"`
	SentimentLabel   string           `json:"sentiment_label"`
	UniqueUserCount  int              `json:"unique_user_count"`
	Contexts         []MentionContext `json:"contexts"`
	LastSeenAt       time.Time        `json:"last_seen_at"`
}

type tickerSummaryFields TickerSummary

// MarshalJSON writes LastSeenAt as epoch milliseconds.
func (t TickerSummary) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		tickerSummaryFields
		LastSeenAt int64 `json:"last_seen_at"`
	}{tickerSummaryFields(t), utils.EpochMillis(t.LastSeenAt)})
}

// UnmarshalJSON reads LastSeenAt as epoch milliseconds.
func (t *TickerSummary) UnmarshalJSON(data []byte) error {
	aux := struct {
		*tickerSummaryFields
		LastSeenAt int64 `json:"last_seen_at"`
	}{tickerSummaryFields: (*tickerSummaryFields)(t)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	t.LastSeenAt = utils.FromEpochMillis(aux.LastSeenAt)
	return nil
}

// LatestContext returns the most recently retained context, if any.
func (t TickerSummary) LatestContext() (MentionContext, bool) {
	if len(t.Contexts) == 0 {
		return MentionContext{}, false
	}
	return t.Contexts[len(t.Contexts)-1], true
}

// Summary is the aggregate view handed to presentation collaborators.
type Summary struct {
	Timeframe    string          `json:"timeframe"`
	TotalTickers int             `json:"total_tickers"`
	Bullish      int             `json:"bullish"`
	Bearish      int             `json:"bearish"`
	Neutral      int             `json:"neutral"`
	TopTickers   []TickerSummary `json:"top_tickers"`
	GeneratedAt  time.Time       `json:"generated_at"`
}

// RunInfo describes one completed batch-processing run.
type RunInfo struct {
	ID          string        `json:"id"`
	StartedAt   time.Time     `json:"started_at"`
	Duration    time.Duration `json:"duration"`
	Messages    int           `json:"messages"`
	Skipped     int           `json:"skipped"`
	Mentions    int           `json:"mentions"`
	Tickers     int           `json:"tickers"`
	StaleSource []string      `json:"stale_sources,omitempty"`
}
