package mentions

import (
	"sync"
	"time"

	"github.com/seenimoa/tickerpulse/pkg/models"
)

// MaxContexts is the number of snippets retained per ticker.
const MaxContexts = 5

// TickerStats is the running aggregate for one ticker symbol.
type TickerStats struct {
	Symbol           string
	MentionCount     int
	SentimentSum     int
	SentimentAverage float64
	Contexts         []models.MentionContext // oldest first, at most MaxContexts
	Users            map[string]struct{}
	FirstSeenAt      time.Time
	LastSeenAt       time.Time
}

// UniqueUsers returns the number of distinct usernames seen.
func (t TickerStats) UniqueUsers() int { return len(t.Users) }

// HasUser reports whether username mentioned this ticker.
func (t TickerStats) HasUser(username string) bool {
	_, ok := t.Users[username]
	return ok
}

func (t *TickerStats) clone() TickerStats {
	c := *t
	c.Contexts = append([]models.MentionContext(nil), t.Contexts...)
	c.Users = make(map[string]struct{}, len(t.Users))
	for u := range t.Users {
		c.Users[u] = struct{}{}
	}
	return c
}

// record applies one qualifying mention.
func (t *TickerStats) record(score int, ctx models.MentionContext) {
	t.MentionCount++
	t.SentimentSum += score
	t.SentimentAverage = float64(t.SentimentSum) / float64(t.MentionCount)

	if len(t.Contexts) >= MaxContexts {
		copy(t.Contexts, t.Contexts[1:])
		t.Contexts = t.Contexts[:len(t.Contexts)-1]
	}
	t.Contexts = append(t.Contexts, ctx)

	t.Users[ctx.Username] = struct{}{}
	// A wall clock stepping backwards must not break LastSeenAt >= FirstSeenAt.
	if ctx.Timestamp.After(t.LastSeenAt) {
		t.LastSeenAt = ctx.Timestamp
	}
}

// Store maps ticker symbols to their running statistics. Writes happen
// only through an Extractor. Iteration follows first-seen order.
type Store struct {
	mu      sync.RWMutex
	entries map[string]*TickerStats
	order   []string
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{entries: make(map[string]*TickerStats)}
}

// Reset clears every entry. Called once at the start of a batch run.
func (s *Store) Reset() {
	s.mu.Lock()
	s.entries = make(map[string]*TickerStats)
	s.order = nil
	s.mu.Unlock()
}

// Get returns a copy of the stats for symbol.
func (s *Store) Get(symbol string) (TickerStats, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.entries[symbol]
	if !ok {
		return TickerStats{}, false
	}
	return t.clone(), true
}

// Len returns the number of tracked tickers.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Symbols returns tracked symbols in first-seen order.
func (s *Store) Symbols() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.order...)
}

// Snapshot returns copies of every entry in first-seen order.
func (s *Store) Snapshot() []TickerStats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]TickerStats, 0, len(s.order))
	for _, sym := range s.order {
		out = append(out, s.entries[sym].clone())
	}
	return out
}

// upsert records a mention for symbol, creating the entry when absent.
// It reports whether the entry was created.
func (s *Store) upsert(symbol string, score int, ctx models.MentionContext) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.entries[symbol]
	if !ok {
		t = &TickerStats{
			Symbol:      symbol,
			Contexts:    make([]models.MentionContext, 0, MaxContexts),
			Users:       make(map[string]struct{}),
			FirstSeenAt: ctx.Timestamp,
		}
		s.entries[symbol] = t
		s.order = append(s.order, symbol)
	}
	t.record(score, ctx)
	return !ok
}
