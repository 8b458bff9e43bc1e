package datasource

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"

	"github.com/seenimoa/tickerpulse/internal/infra"
	"github.com/seenimoa/tickerpulse/pkg/models"
)

// Feed implements MessageSource over RSS/Atom feeds. Each item becomes a
// message whose content is the title followed by the plain-text description.
type Feed struct {
	urls    []string
	limiter *infra.RateLimiter
	parser  *gofeed.Parser
}

// NewFeed creates a feed source for the given feed URLs.
func NewFeed(urls []string, client *http.Client) *Feed {
	p := gofeed.NewParser()
	p.UserAgent = DefaultUserAgent
	if client != nil {
		p.Client = client
	}
	return &Feed{
		urls:    urls,
		limiter: infra.NewRateLimiter(2, time.Second), // conservative: 2 req/s
		parser:  p,
	}
}

// Name returns the data source name.
func (f *Feed) Name() string { return "feed" }

// URLs returns the configured feed URLs.
func (f *Feed) URLs() []string { return f.urls }

// FetchMessages fetches every feed and returns all items oldest first.
// Failed feeds are skipped; an error is returned only if all of them fail.
func (f *Feed) FetchMessages(ctx context.Context) ([]models.Message, error) {
	if len(f.urls) == 0 {
		return nil, fmt.Errorf("feed: %w", ErrNoSources)
	}

	var (
		all  []models.Message
		errs []error
	)
	for _, u := range f.urls {
		msgs, err := f.fetchFeed(ctx, u)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			errs = append(errs, err)
			continue
		}
		all = append(all, msgs...)
	}
	if len(errs) == len(f.urls) {
		return nil, fmt.Errorf("feed: all feeds failed: %w", errors.Join(errs...))
	}

	sort.SliceStable(all, func(i, j int) bool {
		return all[i].Timestamp.Before(all[j].Timestamp)
	})
	return all, nil
}

// fetchFeed parses one feed and converts its items.
func (f *Feed) fetchFeed(ctx context.Context, feedURL string) ([]models.Message, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	feed, err := f.parser.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		return nil, fmt.Errorf("parse feed %s: %w", feedURL, err)
	}

	msgs := make([]models.Message, 0, len(feed.Items))
	for _, item := range feed.Items {
		msgs = append(msgs, itemMessage(item, feedURL))
	}
	return msgs, nil
}

// itemMessage converts a feed item into a message.
func itemMessage(item *gofeed.Item, feedURL string) models.Message {
	parts := make([]string, 0, 2)
	if t := strings.TrimSpace(item.Title); t != "" {
		parts = append(parts, t)
	}
	desc := item.Description
	if desc == "" {
		desc = item.Content
	}
	if d := cleanHTML(desc); d != "" {
		parts = append(parts, d)
	}
	content := strings.Join(parts, "\n")

	msg := models.Message{
		ID:        item.GUID,
		ChannelID: feedURL,
		Content:   &content,
		Source:    "feed",
	}
	if msg.ID == "" {
		msg.ID = item.Link
	}
	if name := itemAuthor(item); name != "" {
		msg.Author = &models.Author{Username: name}
	}
	switch {
	case item.PublishedParsed != nil:
		msg.Timestamp = *item.PublishedParsed
	case item.UpdatedParsed != nil:
		msg.Timestamp = *item.UpdatedParsed
	}
	return msg
}

func itemAuthor(item *gofeed.Item) string {
	if item.Author != nil && item.Author.Name != "" {
		return item.Author.Name
	}
	for _, a := range item.Authors {
		if a != nil && a.Name != "" {
			return a.Name
		}
	}
	return ""
}

// cleanHTML strips HTML tags from a string using goquery.
func cleanHTML(s string) string {
	if s == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader("<body>" + s + "</body>"))
	if err != nil {
		return s
	}
	return strings.Join(strings.Fields(doc.Text()), " ")
}
