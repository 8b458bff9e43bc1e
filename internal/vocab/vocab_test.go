package vocab

import (
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewContainsSeed(t *testing.T) {
	v := New()
	assert.Equal(t, 45, v.Size())
	for _, s := range []string{"AAPL", "SPY", "QQQ", "XLI", "CMCSA"} {
		assert.True(t, v.Contains(s), s)
		assert.True(t, v.IsSeed(s), s)
	}
}

func TestContainsIsCaseSensitive(t *testing.T) {
	v := New()
	assert.False(t, v.Contains("aapl"))
	assert.False(t, v.Contains("Aapl"))
	assert.False(t, v.Contains(" AAPL"))
}

func TestExtendIdempotent(t *testing.T) {
	v := New()
	added := v.Extend([]string{"GME", "AMC", " PLTR ", "", "AAPL"})
	assert.Equal(t, 3, added)
	assert.Equal(t, 48, v.Size())
	assert.True(t, v.Contains("PLTR"))
	assert.False(t, v.IsSeed("PLTR"))

	assert.Equal(t, 0, v.Extend([]string{"GME", "AMC"}))
	assert.Equal(t, 48, v.Size())
}

func TestSeedIsCopy(t *testing.T) {
	s := Seed()
	s[0] = "ZZZZ"
	assert.Equal(t, "AAPL", Seed()[0])
	assert.False(t, New().Contains("ZZZZ"))
}

func TestParse(t *testing.T) {
	in := "GME\n  AMC  \n\nPLTR\r\nBB\n"
	got, err := Parse(strings.NewReader(in))
	require.NoError(t, err)
	assert.Equal(t, []string{"GME", "AMC", "PLTR", "BB"}, got)
}

func TestConcurrentExtendAndContains(t *testing.T) {
	v := New()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			v.Extend([]string{"GME", "AMC", "BB"})
		}()
		go func() {
			defer wg.Done()
			_ = v.Contains("GME")
		}()
	}
	wg.Wait()
	assert.Equal(t, 48, v.Size())
}
