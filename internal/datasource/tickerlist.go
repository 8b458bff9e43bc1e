package datasource

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/seenimoa/tickerpulse/internal/vocab"
)

// TickerList loads the line-delimited vocabulary extension from an
// http(s) URL or a local file path.
type TickerList struct {
	source string
	client *http.Client
}

// NewTickerList creates a ticker list loader for source.
func NewTickerList(source string, client *http.Client) *TickerList {
	return &TickerList{source: strings.TrimSpace(source), client: client}
}

// Source returns the configured location.
func (t *TickerList) Source() string { return t.source }

// IsRemote reports whether the list is fetched over HTTP.
func (t *TickerList) IsRemote() bool {
	return strings.HasPrefix(t.source, "http://") || strings.HasPrefix(t.source, "https://")
}

// Fetch returns the symbols listed at the source.
func (t *TickerList) Fetch(ctx context.Context) ([]string, error) {
	if t.source == "" {
		return nil, fmt.Errorf("ticker list: no source configured")
	}

	var r io.ReadCloser
	if t.IsRemote() {
		body, err := doGet(ctx, t.client, t.source, map[string]string{"Accept": "text/plain, */*"})
		if err != nil {
			return nil, fmt.Errorf("ticker list %s: %w", t.source, err)
		}
		r = body
	} else {
		f, err := os.Open(t.source)
		if err != nil {
			return nil, fmt.Errorf("ticker list: %w", err)
		}
		r = f
	}
	defer r.Close()

	symbols, err := vocab.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("ticker list %s: %w", t.source, err)
	}
	return symbols, nil
}
