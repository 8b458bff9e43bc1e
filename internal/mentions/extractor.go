// Package mentions extracts ticker mentions from chat messages and keeps
// the per-ticker aggregate that the ranking views read from.
package mentions

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/seenimoa/tickerpulse/internal/analysis/sentiment"
	"github.com/seenimoa/tickerpulse/internal/metrics"
	"github.com/seenimoa/tickerpulse/internal/vocab"
	"github.com/seenimoa/tickerpulse/pkg/models"
	"github.com/seenimoa/tickerpulse/pkg/utils"
)

// ContextTextLimit is the number of characters kept from a message in a
// MentionContext before the ellipsis is appended.
const ContextTextLimit = 150

// ErrMalformedMessage is returned for a message that lacks content.
var ErrMalformedMessage = errors.New("malformed message")

var errExtractPanic = errors.New("extraction panicked")

// tickerPattern matches whole-word runs of one to five uppercase ASCII letters.
var tickerPattern = regexp.MustCompile(`\b[A-Z]{1,5}\b`)

// stopWords are uppercase words that are never tickers.
var stopWords = map[string]struct{}{
	"I": {}, "A": {}, "THE": {}, "AND": {}, "OR": {}, "IF": {}, "BUT": {},
}

// stockTerms mark a message as stock-related when contained in it.
var stockTerms = []string{
	"stock", "trade", "chart", "position", "entry", "exit", "buy", "sell",
	"bullish", "bearish", "call", "put", "option",
}

// BatchResult summarises one ExtractBatch call.
type BatchResult struct {
	Processed int
	Skipped   int
	Mentions  int
}

// Extractor turns messages into mentions recorded in a Store.
type Extractor struct {
	store *Store
	vocab *vocab.Vocabulary
	now   func() time.Time
	log   *zap.SugaredLogger
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithClock overrides the time source used for mention timestamps.
func WithClock(now func() time.Time) Option {
	return func(e *Extractor) { e.now = now }
}

// WithLogger sets the logger used for skipped-message events.
func WithLogger(l *zap.SugaredLogger) Option {
	return func(e *Extractor) { e.log = l }
}

// NewExtractor creates an extractor writing into store.
func NewExtractor(store *Store, v *vocab.Vocabulary, opts ...Option) *Extractor {
	e := &Extractor{
		store: store,
		vocab: v,
		now:   time.Now,
		log:   zap.NewNop().Sugar(),
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Store returns the store the extractor writes into.
func (e *Extractor) Store() *Store { return e.store }

// Extract records every accepted ticker candidate in msg and returns the
// number of mentions recorded. Repeated candidates count separately.
func (e *Extractor) Extract(msg models.Message) (int, error) {
	if msg.Content == nil {
		return 0, fmt.Errorf("%w: message %q has no content", ErrMalformedMessage, msg.ID)
	}
	text := *msg.Content

	candidates := tickerPattern.FindAllString(text, -1)
	if len(candidates) == 0 {
		return 0, nil
	}

	username := msg.Username()
	now := e.now()
	related := IsStockRelated(text)

	var (
		score  int
		scored bool
		ctx    models.MentionContext
		n      int
	)
	for _, cand := range candidates {
		if _, stop := stopWords[cand]; stop {
			continue
		}
		if !e.accept(cand, text, related) {
			continue
		}
		// One score per message, shared by every ticker in it.
		if !scored {
			score = sentiment.Score(text)
			ctx = models.MentionContext{
				Text:      utils.Truncate(text, ContextTextLimit),
				Username:  username,
				Timestamp: now,
			}
			scored = true
		}
		e.store.upsert(cand, score, ctx)
		n++
	}
	return n, nil
}

// ExtractBatch runs Extract over msgs in order. A failing message is
// logged, counted and skipped; the batch always runs to the end.
func (e *Extractor) ExtractBatch(msgs []models.Message) BatchResult {
	var res BatchResult
	for i := range msgs {
		n, err := e.safeExtract(msgs[i])
		if err != nil {
			res.Skipped++
			reason := metrics.ReasonMalformed
			if errors.Is(err, errExtractPanic) {
				reason = metrics.ReasonPanic
			}
			metrics.MessagesSkipped.WithLabelValues(reason).Inc()
			e.log.Warnw("Skipping message",
				"index", i,
				"message_id", msgs[i].ID,
				"reason", reason,
				"error", err,
			)
			continue
		}
		res.Processed++
		res.Mentions += n
		metrics.MessagesProcessed.Inc()
		metrics.MentionsRecorded.Add(float64(n))
	}
	metrics.TrackedTickers.Set(float64(e.store.Len()))
	return res
}

func (e *Extractor) safeExtract(msg models.Message) (n int, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", errExtractPanic, r)
		}
	}()
	return e.Extract(msg)
}

// accept applies the ticker acceptance rules to a non-stop-word candidate.
func (e *Extractor) accept(cand, text string, related bool) bool {
	if e.vocab != nil && e.vocab.Contains(cand) {
		return true
	}
	if strings.Contains(text, "$"+cand) {
		return true
	}
	// Loose on purpose: any uppercase word in a stock-flavoured message
	// counts, which is a known source of false positives.
	return related
}

// IsStockRelated reports whether text contains a stock keyword
// (case-insensitive) or a dollar sign.
func IsStockRelated(text string) bool {
	if strings.Contains(text, "$") {
		return true
	}
	lower := strings.ToLower(text)
	for _, term := range stockTerms {
		if strings.Contains(lower, term) {
			return true
		}
	}
	return false
}
