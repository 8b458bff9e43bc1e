// Package vocab holds the set of known ticker symbols used to recognise
// mentions in free text.
package vocab

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"sync"
)

// seedTickers are always present, regardless of any external list.
var seedTickers = []string{
	"AAPL", "MSFT", "AMZN", "GOOGL", "META", "TSLA", "NVDA", "AMD", "INTC",
	"NFLX", "PYPL", "ADBE", "CSCO", "CMCSA", "PEP", "AVGO", "TXN", "QCOM",
	"COST", "TMUS", "AMGN", "SBUX", "GILD", "MDLZ", "INTU", "ISRG", "VRTX",
	"REGN", "ILMN", "ATVI", "BKNG", "CHTR", "MAR", "MNST", "SIRI", "SPY",
	"QQQ", "IWM", "DIA", "ARKK", "XLF", "XLE", "XLV", "XLU", "XLI",
}

// Vocabulary is a grow-only set of ticker symbols. It is safe for
// concurrent use so an asynchronous load can extend it while lookups run.
type Vocabulary struct {
	mu      sync.RWMutex
	symbols map[string]struct{}
	seed    map[string]struct{}
}

// New returns a vocabulary containing the seed list.
func New() *Vocabulary {
	v := &Vocabulary{
		symbols: make(map[string]struct{}, len(seedTickers)),
		seed:    make(map[string]struct{}, len(seedTickers)),
	}
	for _, s := range seedTickers {
		v.symbols[s] = struct{}{}
		v.seed[s] = struct{}{}
	}
	return v
}

// Seed returns a copy of the static seed list.
func Seed() []string {
	out := make([]string, len(seedTickers))
	copy(out, seedTickers)
	return out
}

// Contains reports whether symbol is a known ticker. Lookup is exact and
// case-sensitive.
func (v *Vocabulary) Contains(symbol string) bool {
	v.mu.RLock()
	_, ok := v.symbols[symbol]
	v.mu.RUnlock()
	return ok
}

// IsSeed reports whether symbol belongs to the static seed list.
func (v *Vocabulary) IsSeed(symbol string) bool {
	_, ok := v.seed[symbol]
	return ok
}

// Extend merges symbols into the vocabulary and returns how many were new.
// Entries are trimmed; blanks are ignored. Re-adding is a no-op.
func (v *Vocabulary) Extend(symbols []string) int {
	v.mu.Lock()
	defer v.mu.Unlock()

	added := 0
	for _, s := range symbols {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, ok := v.symbols[s]; ok {
			continue
		}
		v.symbols[s] = struct{}{}
		added++
	}
	return added
}

// Size returns the number of known symbols.
func (v *Vocabulary) Size() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return len(v.symbols)
}

// Parse reads a line-delimited word list. Lines are trimmed and blank
// lines skipped; no case folding is applied.
func Parse(r io.Reader) ([]string, error) {
	var out []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			out = append(out, line)
		}
	}
	if err := sc.Err(); err != nil {
		return out, fmt.Errorf("read ticker list: %w", err)
	}
	return out, nil
}
