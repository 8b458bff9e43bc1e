package models

import (
	"encoding/json"
	"testing"
	"time"
)

// ── Message Tests ──

func TestNewMessage(t *testing.T) {
	m := NewMessage("$AAPL to the moon", "alice")
	if m.Text() != "$AAPL to the moon" {
		t.Errorf("Text: got %q", m.Text())
	}
	if m.Username() != "alice" {
		t.Errorf("Username: got %q, want %q", m.Username(), "alice")
	}

	anon := NewMessage("hello", "")
	if anon.Author != nil {
		t.Errorf("Author: got %+v, want nil", anon.Author)
	}
	if anon.Username() != UnknownUser {
		t.Errorf("Username: got %q, want %q", anon.Username(), UnknownUser)
	}
}

func TestMessageMissingContent(t *testing.T) {
	var m Message
	if err := json.Unmarshal([]byte(`{"id":"1","author":{"username":"bob"}}`), &m); err != nil {
		t.Fatalf("json.Unmarshal(Message) error: %v", err)
	}
	if m.Content != nil {
		t.Errorf("Content: got %q, want nil", *m.Content)
	}
	if m.Text() != "" {
		t.Errorf("Text: got %q, want empty", m.Text())
	}

	if err := json.Unmarshal([]byte(`{"content":""}`), &m); err != nil {
		t.Fatalf("json.Unmarshal(Message) error: %v", err)
	}
	if m.Content == nil {
		t.Error("Content: got nil for an explicit empty string")
	}
}

func TestMessageDiscordPayload(t *testing.T) {
	raw := `{
		"id": "1180000000000000001",
		"channel_id": "1170000000000000000",
		"content": "NVDA breakout 📈",
		"author": {"id": "42", "username": "trader"},
		"timestamp": "2026-03-02T14:30:00.000000+00:00"
	}`
	var m Message
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		t.Fatalf("json.Unmarshal(Message) error: %v", err)
	}
	if m.ChannelID != "1170000000000000000" {
		t.Errorf("ChannelID: got %q", m.ChannelID)
	}
	if m.Username() != "trader" {
		t.Errorf("Username: got %q", m.Username())
	}
	want := time.Date(2026, 3, 2, 14, 30, 0, 0, time.UTC)
	if !m.Timestamp.Equal(want) {
		t.Errorf("Timestamp: got %v, want %v", m.Timestamp, want)
	}
}

// ── Summary Tests ──

func TestLatestContext(t *testing.T) {
	var empty TickerSummary
	if _, ok := empty.LatestContext(); ok {
		t.Error("LatestContext: got ok for no contexts")
	}

	ts := TickerSummary{
		Ticker: "TSLA",
		Contexts: []MentionContext{
			{Text: "first", Username: "a"},
			{Text: "second", Username: "b"},
		},
	}
	latest, ok := ts.LatestContext()
	if !ok {
		t.Fatal("LatestContext: got !ok")
	}
	if latest.Text != "second" {
		t.Errorf("LatestContext: got %q, want %q", latest.Text, "second")
	}
}

func TestRunInfoOmitsEmptyStaleSources(t *testing.T) {
	data, err := json.Marshal(RunInfo{ID: "r1", Messages: 3})
	if err != nil {
		t.Fatalf("json.Marshal(RunInfo) error: %v", err)
	}
	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		t.Fatalf("json.Unmarshal error: %v", err)
	}
	if _, ok := fields["stale_sources"]; ok {
		t.Errorf("stale_sources present in %s", data)
	}
	if fields["messages"] != float64(3) {
		t.Errorf("messages: got %v", fields["messages"])
	}
}

// ── Timestamp encoding ──

func TestMentionContextTimestampIsEpochMillis(t *testing.T) {
	c := MentionContext{Text: "x", Username: "a", Timestamp: time.UnixMilli(1700000000123)}
	data, err := json.Marshal(c)
	if err != nil {
		t.Fatalf("json.Marshal(MentionContext) error: %v", err)
	}
	want := `{"text":"x","username":"a","timestamp":1700000000123}`
	if string(data) != want {
		t.Errorf("json.Marshal(MentionContext) = %s, want %s", data, want)
	}

	var decoded MentionContext
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("json.Unmarshal(MentionContext) error: %v", err)
	}
	if !decoded.Timestamp.Equal(c.Timestamp) {
		t.Errorf("Timestamp: got %v, want %v", decoded.Timestamp, c.Timestamp)
	}
}

func TestTickerSummaryTimestampsAreEpochMillis(t *testing.T) {
	ts := TickerSummary{
		Ticker:         "AAPL",
		MentionCount:   2,
		SentimentLabel: "Bullish",
		Contexts: []MentionContext{
			{Text: "$AAPL", Username: "a", Timestamp: time.UnixMilli(1700000000000)},
		},
		LastSeenAt: time.UnixMilli(1700000000123),
	}
	data, err := json.Marshal(ts)
	if err != nil {
		t.Fatalf("json.Marshal(TickerSummary) error: %v", err)
	}

	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		t.Fatalf("json.Unmarshal error: %v", err)
	}
	if fields["last_seen_at"] != float64(1700000000123) {
		t.Errorf("last_seen_at: got %v (%T), want epoch millis", fields["last_seen_at"], fields["last_seen_at"])
	}
	if fields["ticker"] != "AAPL" || fields["mention_count"] != float64(2) {
		t.Errorf("summary fields lost: %s", data)
	}
	ctxs, ok := fields["contexts"].([]any)
	if !ok || len(ctxs) != 1 {
		t.Fatalf("contexts: got %v", fields["contexts"])
	}
	if ctx := ctxs[0].(map[string]any); ctx["timestamp"] != float64(1700000000000) {
		t.Errorf("contexts[0].timestamp: got %v, want epoch millis", ctx["timestamp"])
	}

	var decoded TickerSummary
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("json.Unmarshal(TickerSummary) error: %v", err)
	}
	if decoded.Ticker != "AAPL" || decoded.MentionCount != 2 {
		t.Errorf("decoded: got %+v", decoded)
	}
	if !decoded.LastSeenAt.Equal(ts.LastSeenAt) {
		t.Errorf("LastSeenAt: got %v, want %v", decoded.LastSeenAt, ts.LastSeenAt)
	}
	if !decoded.Contexts[0].Timestamp.Equal(ts.Contexts[0].Timestamp) {
		t.Errorf("Contexts[0].Timestamp: got %v", decoded.Contexts[0].Timestamp)
	}
}
