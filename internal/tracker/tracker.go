// Package tracker owns the mention store and drives batch runs: fetch a
// batch of messages, reset the store, replay the batch through the
// extractor, and notify listeners.
package tracker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/seenimoa/tickerpulse/internal/analysis/sentiment"
	"github.com/seenimoa/tickerpulse/internal/datasource"
	"github.com/seenimoa/tickerpulse/internal/mentions"
	"github.com/seenimoa/tickerpulse/internal/metrics"
	"github.com/seenimoa/tickerpulse/internal/vocab"
	"github.com/seenimoa/tickerpulse/pkg/models"
	"github.com/seenimoa/tickerpulse/pkg/utils"
)

// DefaultMinInterval is the smallest allowed gap between manual refreshes.
const DefaultMinInterval = time.Minute

// ErrRefreshTooSoon is returned when a manual refresh comes inside the
// minimum interval.
var ErrRefreshTooSoon = errors.New("refresh requested too soon")

// ErrNotFound is returned when a ticker has no recorded mentions.
var ErrNotFound = errors.New("ticker not found")

// TooSoonError carries how long to wait before the next refresh.
type TooSoonError struct {
	RetryAfter time.Duration
}

func (e *TooSoonError) Error() string {
	return fmt.Sprintf("%s: retry in %s", ErrRefreshTooSoon, e.RetryAfter.Round(time.Second))
}

func (e *TooSoonError) Unwrap() error { return ErrRefreshTooSoon }

// Fetcher supplies one batch of messages per run.
type Fetcher interface {
	Fetch(ctx context.Context) (*datasource.Batch, error)
}

// SymbolLoader supplies the vocabulary extension.
type SymbolLoader interface {
	Fetch(ctx context.Context) ([]string, error)
}

// Options configures a Tracker.
type Options struct {
	MinInterval  time.Duration
	FetchTimeout time.Duration
	Clock        func() time.Time
	Logger       *zap.SugaredLogger
}

// TickerDetail is the single-ticker view, with the sentiment words found
// in the most recent retained context.
type TickerDetail struct {
	models.TickerSummary
	FirstSeenAt   time.Time
	BullishWords  []string
	BearishWords  []string
	SentimentSum  int
	IsKnownTicker bool
}

type tickerDetailJSON struct {
	FirstSeenAt   int64    `json:"first_seen_at"`
	BullishWords  []string `json:"bullish_words"`
	BearishWords  []string `json:"bearish_words"`
	SentimentSum  int      `json:"sentiment_sum"`
	IsKnownTicker bool     `json:"is_known_ticker"`
}

// MarshalJSON writes the summary fields and the detail fields as one flat
// object. The embedded summary's own MarshalJSON would otherwise hide the
// detail fields.
func (d TickerDetail) MarshalJSON() ([]byte, error) {
	summary, err := json.Marshal(d.TickerSummary)
	if err != nil {
		return nil, err
	}
	extra, err := json.Marshal(tickerDetailJSON{
		FirstSeenAt:   utils.EpochMillis(d.FirstSeenAt),
		BullishWords:  d.BullishWords,
		BearishWords:  d.BearishWords,
		SentimentSum:  d.SentimentSum,
		IsKnownTicker: d.IsKnownTicker,
	})
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, len(summary)+len(extra))
	out = append(out, summary[:len(summary)-1]...)
	out = append(out, ',')
	return append(out, extra[1:]...), nil
}

// UnmarshalJSON reads the flat object written by MarshalJSON.
func (d *TickerDetail) UnmarshalJSON(data []byte) error {
	var aux tickerDetailJSON
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if err := json.Unmarshal(data, &d.TickerSummary); err != nil {
		return err
	}
	d.FirstSeenAt = utils.FromEpochMillis(aux.FirstSeenAt)
	d.BullishWords = aux.BullishWords
	d.BearishWords = aux.BearishWords
	d.SentimentSum = aux.SentimentSum
	d.IsKnownTicker = aux.IsKnownTicker
	return nil
}

// Tracker serialises runs over one mention store.
type Tracker struct {
	runMu sync.Mutex // one run at a time

	stateMu   sync.RWMutex // readers never see a half-replayed store
	store     *mentions.Store
	extractor *mentions.Extractor
	lastRun   *models.RunInfo
	lastStart time.Time

	vocab        *vocab.Vocabulary
	fetcher      Fetcher
	now          func() time.Time
	minInterval  time.Duration
	fetchTimeout time.Duration
	log          *zap.SugaredLogger

	listenersMu sync.RWMutex
	listeners   []func(models.RunInfo)
}

// New creates a Tracker with a fresh store and the seed vocabulary.
func New(fetcher Fetcher, opts Options) *Tracker {
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop().Sugar()
	}
	if opts.MinInterval <= 0 {
		opts.MinInterval = DefaultMinInterval
	}

	store := mentions.NewStore()
	v := vocab.New()
	metrics.VocabularySize.Set(float64(v.Size()))

	return &Tracker{
		store: store,
		extractor: mentions.NewExtractor(store, v,
			mentions.WithClock(opts.Clock),
			mentions.WithLogger(opts.Logger.Named("extractor"))),
		vocab:        v,
		fetcher:      fetcher,
		now:          opts.Clock,
		minInterval:  opts.MinInterval,
		fetchTimeout: opts.FetchTimeout,
		log:          opts.Logger,
	}
}

// Vocabulary returns the tracker's vocabulary.
func (t *Tracker) Vocabulary() *vocab.Vocabulary { return t.vocab }

// OnUpdate registers fn to be called after every completed run.
func (t *Tracker) OnUpdate(fn func(models.RunInfo)) {
	t.listenersMu.Lock()
	t.listeners = append(t.listeners, fn)
	t.listenersMu.Unlock()
}

// LoadVocabulary extends the vocabulary from loader. Failures are logged
// and counted; the seed list stays in effect.
func (t *Tracker) LoadVocabulary(ctx context.Context, loader SymbolLoader) int {
	symbols, err := loader.Fetch(ctx)
	if err != nil {
		metrics.VocabularyLoadFailures.Inc()
		t.log.Warnw("Using default tickers list", "error", err, "size", t.vocab.Size())
		return 0
	}
	added := t.vocab.Extend(symbols)
	metrics.VocabularySize.Set(float64(t.vocab.Size()))
	t.log.Infow("Loaded stock tickers", "added", added, "size", t.vocab.Size())
	return added
}

// LoadVocabularyAsync runs LoadVocabulary in the background. The returned
// channel is closed when loading finishes.
func (t *Tracker) LoadVocabularyAsync(ctx context.Context, loader SymbolLoader) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		t.LoadVocabulary(ctx, loader)
	}()
	return done
}

// Run fetches a batch and rebuilds the store from it.
func (t *Tracker) Run(ctx context.Context) (models.RunInfo, error) {
	t.runMu.Lock()
	defer t.runMu.Unlock()
	return t.run(ctx)
}

// Refresh is a manual Run that refuses to start within the minimum
// interval of the previous run's start.
func (t *Tracker) Refresh(ctx context.Context) (models.RunInfo, error) {
	t.runMu.Lock()
	defer t.runMu.Unlock()

	t.stateMu.RLock()
	last := t.lastStart
	t.stateMu.RUnlock()

	if !last.IsZero() {
		if wait := t.minInterval - t.now().Sub(last); wait > 0 {
			return models.RunInfo{}, &TooSoonError{RetryAfter: wait}
		}
	}
	return t.run(ctx)
}

// run must be called with runMu held.
func (t *Tracker) run(ctx context.Context) (info models.RunInfo, err error) {
	started := time.Now()
	defer func() { metrics.ObserveRun(started, err) }()

	t.stateMu.Lock()
	t.lastStart = t.now()
	t.stateMu.Unlock()

	info = models.RunInfo{ID: uuid.NewString(), StartedAt: t.now()}
	log := t.log.With("run_id", info.ID)

	fetchCtx := ctx
	if t.fetchTimeout > 0 {
		var cancel context.CancelFunc
		fetchCtx, cancel = context.WithTimeout(ctx, t.fetchTimeout)
		defer cancel()
	}

	batch, err := t.fetcher.Fetch(fetchCtx)
	if err != nil {
		log.Errorw("Fetch failed", "error", err)
		return info, fmt.Errorf("fetch messages: %w", err)
	}

	t.stateMu.Lock()
	t.store.Reset()
	res := t.extractor.ExtractBatch(batch.Messages)
	info.Duration = time.Since(started)
	info.Messages = len(batch.Messages)
	info.Skipped = res.Skipped
	info.Mentions = res.Mentions
	info.Tickers = t.store.Len()
	info.StaleSource = batch.Stale
	last := info
	t.lastRun = &last
	t.stateMu.Unlock()

	metrics.TrackedTickers.Set(float64(info.Tickers))
	log.Infow("Run complete",
		"messages", info.Messages,
		"skipped", info.Skipped,
		"mentions", info.Mentions,
		"tickers", info.Tickers,
		"stale", info.StaleSource,
		"duration", info.Duration)

	t.notify(info)
	return info, nil
}

func (t *Tracker) notify(info models.RunInfo) {
	t.listenersMu.RLock()
	fns := append([]func(models.RunInfo){}, t.listeners...)
	t.listenersMu.RUnlock()
	for _, fn := range fns {
		fn(info)
	}
}

// LastRun returns the most recent completed run, if any.
func (t *Tracker) LastRun() (models.RunInfo, bool) {
	t.stateMu.RLock()
	defer t.stateMu.RUnlock()
	if t.lastRun == nil {
		return models.RunInfo{}, false
	}
	return *t.lastRun, true
}

// NextRefreshAllowed returns when a manual refresh will next be accepted.
func (t *Tracker) NextRefreshAllowed() time.Time {
	t.stateMu.RLock()
	defer t.stateMu.RUnlock()
	if t.lastStart.IsZero() {
		return time.Time{}
	}
	return t.lastStart.Add(t.minInterval)
}

// Ranked returns the filtered, ranked tickers for tf.
func (t *Tracker) Ranked(tf mentions.Timeframe) []models.TickerSummary {
	t.stateMu.RLock()
	defer t.stateMu.RUnlock()
	return mentions.FilterAndRank(t.store, tf, t.now())
}

// Summary returns the aggregate summary for tf.
func (t *Tracker) Summary(tf mentions.Timeframe) models.Summary {
	t.stateMu.RLock()
	defer t.stateMu.RUnlock()
	return mentions.Summarize(t.store, tf, t.now())
}

// Ticker returns the detail view of one symbol.
func (t *Tracker) Ticker(symbol string) (TickerDetail, error) {
	symbol = utils.NormalizeTicker(symbol)
	t.stateMu.RLock()
	stats, ok := t.store.Get(symbol)
	t.stateMu.RUnlock()
	if !ok {
		return TickerDetail{}, fmt.Errorf("%s: %w", symbol, ErrNotFound)
	}

	d := TickerDetail{
		TickerSummary: models.TickerSummary{
			Ticker:           stats.Symbol,
			MentionCount:     stats.MentionCount,
			SentimentAverage: stats.SentimentAverage,
			SentimentLabel:   sentiment.Label(stats.SentimentAverage),
			UniqueUserCount:  stats.UniqueUsers(),
			Contexts:         stats.Contexts,
			LastSeenAt:       stats.LastSeenAt,
		},
		FirstSeenAt:   stats.FirstSeenAt,
		SentimentSum:  stats.SentimentSum,
		IsKnownTicker: t.vocab.Contains(stats.Symbol),
		BullishWords:  []string{},
		BearishWords:  []string{},
	}
	if latest, ok := d.LatestContext(); ok {
		bull, bear := sentiment.Matches(latest.Text)
		if bull != nil {
			d.BullishWords = bull
		}
		if bear != nil {
			d.BearishWords = bear
		}
	}
	return d, nil
}

// ExportCSV writes the ranked view for tf as CSV.
func (t *Tracker) ExportCSV(w io.Writer, tf mentions.Timeframe, loc *time.Location) error {
	return mentions.WriteCSV(w, t.Ranked(tf), loc)
}

// Now returns the tracker's current time.
func (t *Tracker) Now() time.Time { return t.now() }
