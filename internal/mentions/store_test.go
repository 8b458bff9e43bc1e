package mentions

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seenimoa/tickerpulse/pkg/models"
)

func ctxAt(user string, ts time.Time) models.MentionContext {
	return models.MentionContext{Text: "msg", Username: user, Timestamp: ts}
}

func TestStoreUpsertCreatesOnce(t *testing.T) {
	s := NewStore()
	now := time.Now()

	assert.True(t, s.upsert("AAPL", 1, ctxAt("a", now)))
	assert.False(t, s.upsert("AAPL", 1, ctxAt("b", now)))
	assert.True(t, s.upsert("MSFT", 0, ctxAt("a", now)))

	assert.Equal(t, 2, s.Len())
	assert.Equal(t, []string{"AAPL", "MSFT"}, s.Symbols())
}

func TestStoreGetReturnsCopy(t *testing.T) {
	s := NewStore()
	s.upsert("AAPL", 1, ctxAt("a", time.Now()))

	got, ok := s.Get("AAPL")
	require.True(t, ok)
	got.Users["intruder"] = struct{}{}
	got.Contexts[0].Text = "changed"
	got.MentionCount = 99

	again, _ := s.Get("AAPL")
	assert.False(t, again.HasUser("intruder"))
	assert.Equal(t, "msg", again.Contexts[0].Text)
	assert.Equal(t, 1, again.MentionCount)
}

func TestStoreGetMissing(t *testing.T) {
	_, ok := NewStore().Get("NOPE")
	assert.False(t, ok)
}

func TestStoreReset(t *testing.T) {
	s := NewStore()
	s.upsert("AAPL", 1, ctxAt("a", time.Now()))
	s.Reset()

	assert.Zero(t, s.Len())
	assert.Empty(t, s.Symbols())
	_, ok := s.Get("AAPL")
	assert.False(t, ok)
}

func TestStoreLastSeenNeverBeforeFirstSeen(t *testing.T) {
	s := NewStore()
	t0 := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	s.upsert("SPY", 0, ctxAt("a", t0))
	s.upsert("SPY", 0, ctxAt("a", t0.Add(-time.Minute)))

	spy, _ := s.Get("SPY")
	assert.Equal(t, t0, spy.FirstSeenAt)
	assert.Equal(t, t0, spy.LastSeenAt)
}

func TestStoreContextsRing(t *testing.T) {
	s := NewStore()
	t0 := time.Now()
	for i := 0; i < 12; i++ {
		s.upsert("IWM", 0, ctxAt(string(rune('a'+i)), t0.Add(time.Duration(i)*time.Second)))
	}

	iwm, _ := s.Get("IWM")
	require.Len(t, iwm.Contexts, MaxContexts)
	assert.Equal(t, "h", iwm.Contexts[0].Username)
	assert.Equal(t, "l", iwm.Contexts[4].Username)
	assert.Equal(t, 12, iwm.UniqueUsers())
}
