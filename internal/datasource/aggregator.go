package datasource

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/seenimoa/tickerpulse/internal/infra"
	"github.com/seenimoa/tickerpulse/internal/metrics"
	"github.com/seenimoa/tickerpulse/pkg/models"
)

// DefaultFallbackTTL bounds how long a last good batch may be served.
const DefaultFallbackTTL = time.Hour

// Batch is the merged result of one fetch across all sources.
type Batch struct {
	Messages []models.Message
	// Stale lists sources whose messages came from the fallback cache.
	Stale []string
	// Errors holds the fetch error of every source that failed.
	Errors map[string]error
	FetchedAt time.Time
}

// Aggregator fetches and merges messages from multiple sources concurrently.
// The last good batch of each source is cached and served when a later
// fetch of that source fails, unless the source rejected the credentials
// or the channel.
type Aggregator struct {
	sources []MessageSource
	cache   *infra.Cache[[]models.Message]
	log     *zap.SugaredLogger
}

// NewAggregator creates an aggregator over sources. A non-positive
// fallbackTTL disables expiry of cached batches.
func NewAggregator(sources []MessageSource, fallbackTTL time.Duration, log *zap.SugaredLogger) *Aggregator {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Aggregator{
		sources: sources,
		cache:   infra.NewCache[[]models.Message](fallbackTTL),
		log:     log,
	}
}

// Fetch fetches every source concurrently and merges the results in source
// order. It fails only when no source produced messages, fresh or cached.
func (a *Aggregator) Fetch(ctx context.Context) (*Batch, error) {
	if len(a.sources) == 0 {
		return nil, ErrNoSources
	}

	type result struct {
		msgs []models.Message
		err  error
	}
	results := make([]result, len(a.sources))
	a.cache.Cleanup()

	g, gctx := errgroup.WithContext(ctx)
	for i, src := range a.sources {
		g.Go(func() error {
			msgs, err := src.FetchMessages(gctx)
			results[i] = result{msgs: msgs, err: err}
			return nil // non-fatal
		})
	}
	_ = g.Wait()

	batch := &Batch{Errors: make(map[string]error), FetchedAt: time.Now()}
	served := 0
	for i, src := range a.sources {
		name := src.Name()
		res := results[i]
		if res.err == nil {
			a.cache.Set(name, res.msgs)
			batch.Messages = append(batch.Messages, res.msgs...)
			metrics.SourceFetches.WithLabelValues(name, "success").Inc()
			served++
			continue
		}

		batch.Errors[name] = res.err
		metrics.SourceFetches.WithLabelValues(name, "error").Inc()

		// A revoked token or deleted channel is not an outage.
		if errors.Is(res.err, ErrUnauthorized) || errors.Is(res.err, ErrChannelNotFound) {
			a.cache.Invalidate(name)
			a.log.Warnw("Source rejected request, dropping cached batch", "source", name, "error", res.err)
			continue
		}

		entry, ok := a.cache.Entry(name)
		if !ok {
			a.log.Warnw("Source fetch failed", "source", name, "error", res.err)
			continue
		}
		a.log.Warnw("Source fetch failed, serving cached batch",
			"source", name, "error", res.err, "cached_at", entry.StoredAt)
		metrics.SourceFetches.WithLabelValues(name, "stale").Inc()
		batch.Messages = append(batch.Messages, entry.Value...)
		batch.Stale = append(batch.Stale, name)
		served++
	}

	if served == 0 {
		errs := make([]error, 0, len(batch.Errors))
		for _, src := range a.sources {
			errs = append(errs, batch.Errors[src.Name()])
		}
		if len(errs) == 1 {
			return nil, errs[0]
		}
		return nil, fmt.Errorf("all sources failed: %w", errors.Join(errs...))
	}
	return batch, nil
}
