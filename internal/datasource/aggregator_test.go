package datasource

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seenimoa/tickerpulse/pkg/models"
)

// stubSource returns whatever it is currently set to return.
type stubSource struct {
	name string
	mu   sync.Mutex
	msgs []models.Message
	err  error
}

func (s *stubSource) Name() string { return s.name }

func (s *stubSource) FetchMessages(context.Context) ([]models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.msgs, s.err
}

func (s *stubSource) set(msgs []models.Message, err error) {
	s.mu.Lock()
	s.msgs, s.err = msgs, err
	s.mu.Unlock()
}

func texts(msgs []models.Message) []string {
	out := make([]string, len(msgs))
	for i, m := range msgs {
		out[i] = m.Text()
	}
	return out
}

func TestAggregatorMergesInSourceOrder(t *testing.T) {
	a := &stubSource{name: "a", msgs: []models.Message{models.NewMessage("a1", "x"), models.NewMessage("a2", "x")}}
	b := &stubSource{name: "b", msgs: []models.Message{models.NewMessage("b1", "y")}}

	batch, err := NewAggregator([]MessageSource{a, b}, time.Hour, nil).Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"a1", "a2", "b1"}, texts(batch.Messages))
	assert.Empty(t, batch.Stale)
	assert.Empty(t, batch.Errors)
}

func TestAggregatorPartialFailure(t *testing.T) {
	a := &stubSource{name: "a", err: ErrUnauthorized}
	b := &stubSource{name: "b", msgs: []models.Message{models.NewMessage("b1", "y")}}

	batch, err := NewAggregator([]MessageSource{a, b}, time.Hour, nil).Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"b1"}, texts(batch.Messages))
	assert.ErrorIs(t, batch.Errors["a"], ErrUnauthorized)
}

func TestAggregatorServesCachedBatchWhenSourceFails(t *testing.T) {
	src := &stubSource{name: "discord", msgs: []models.Message{models.NewMessage("$AAPL", "x")}}
	agg := NewAggregator([]MessageSource{src}, time.Hour, nil)

	_, err := agg.Fetch(context.Background())
	require.NoError(t, err)

	src.set(nil, &RateLimitError{RetryAfter: time.Second})
	batch, err := agg.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"$AAPL"}, texts(batch.Messages))
	assert.Equal(t, []string{"discord"}, batch.Stale)

	var rl *RateLimitError
	assert.True(t, errors.As(batch.Errors["discord"], &rl))
}

func TestAggregatorAllFailWithoutCache(t *testing.T) {
	a := &stubSource{name: "a", err: ErrChannelNotFound}
	_, err := NewAggregator([]MessageSource{a}, time.Hour, nil).Fetch(context.Background())
	assert.ErrorIs(t, err, ErrChannelNotFound)

	b := &stubSource{name: "b", err: ErrUnauthorized}
	_, err = NewAggregator([]MessageSource{a, b}, time.Hour, nil).Fetch(context.Background())
	assert.ErrorIs(t, err, ErrChannelNotFound)
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestAggregatorDropsCacheWhenSourceRejects(t *testing.T) {
	for _, rejection := range []error{ErrUnauthorized, ErrChannelNotFound} {
		t.Run(rejection.Error(), func(t *testing.T) {
			src := &stubSource{name: "discord", msgs: []models.Message{models.NewMessage("$AAPL", "x")}}
			agg := NewAggregator([]MessageSource{src}, time.Hour, nil)
			_, err := agg.Fetch(context.Background())
			require.NoError(t, err)

			src.set(nil, fmt.Errorf("discord: %w", rejection))
			_, err = agg.Fetch(context.Background())
			assert.ErrorIs(t, err, rejection)

			// The cached batch is gone, so an outage afterwards has nothing to serve.
			src.set(nil, errors.New("offline"))
			_, err = agg.Fetch(context.Background())
			assert.Error(t, err)
		})
	}
}

func TestAggregatorExpiredCacheNotServed(t *testing.T) {
	src := &stubSource{name: "feed", msgs: []models.Message{models.NewMessage("x", "y")}}
	agg := NewAggregator([]MessageSource{src}, time.Millisecond, nil)
	_, err := agg.Fetch(context.Background())
	require.NoError(t, err)

	time.Sleep(5 * time.Millisecond)
	src.set(nil, errors.New("offline"))
	_, err = agg.Fetch(context.Background())
	assert.Error(t, err)
	assert.Zero(t, agg.cache.Len())
}

func TestAggregatorNoSources(t *testing.T) {
	_, err := NewAggregator(nil, time.Hour, nil).Fetch(context.Background())
	assert.ErrorIs(t, err, ErrNoSources)
}
