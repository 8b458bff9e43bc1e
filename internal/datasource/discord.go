package datasource

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/seenimoa/tickerpulse/internal/infra"
	"github.com/seenimoa/tickerpulse/pkg/models"
)

const (
	// DefaultDiscordBaseURL is the Discord REST API root.
	DefaultDiscordBaseURL = "https://discord.com/api/v9"

	// MaxMessagesPerRequest is the largest page Discord serves.
	MaxMessagesPerRequest = 100

	// DefaultMessageCount is used when no count is configured.
	DefaultMessageCount = 50
)

// DiscordConfig configures the Discord message source.
type DiscordConfig struct {
	Token             string
	BaseURL           string
	ChannelIDs        []string
	MessageCount      int
	RequestsPerSecond int
	Client            *http.Client
}

// Discord implements MessageSource against the Discord REST API.
type Discord struct {
	token    string
	baseURL  string
	channels []string
	limit    int
	limiter  *infra.RateLimiter
	client   *http.Client
}

// NewDiscord creates a Discord message source.
func NewDiscord(cfg DiscordConfig) *Discord {
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = DefaultDiscordBaseURL
	}
	count := cfg.MessageCount
	if count == 0 {
		count = DefaultMessageCount
	}
	rps := cfg.RequestsPerSecond
	if rps < 1 {
		rps = 1
	}
	return &Discord{
		token:    cfg.Token,
		baseURL:  base,
		channels: cfg.ChannelIDs,
		limit:    ClampLimit(count),
		limiter:  infra.NewRateLimiter(rps, time.Second),
		client:   cfg.Client,
	}
}

// Name returns the data source name.
func (d *Discord) Name() string { return "discord" }

// Channels returns the configured channel IDs.
func (d *Discord) Channels() []string { return d.channels }

// FetchMessages fetches the configured channels in order and concatenates
// their messages. The first channel error aborts the fetch.
func (d *Discord) FetchMessages(ctx context.Context) ([]models.Message, error) {
	if len(d.channels) == 0 {
		return nil, fmt.Errorf("discord: %w", ErrNoSources)
	}
	var all []models.Message
	for _, id := range d.channels {
		msgs, err := d.FetchChannel(ctx, id, d.limit)
		if err != nil {
			return nil, err
		}
		all = append(all, msgs...)
	}
	return all, nil
}

// FetchChannel returns up to limit recent messages from one channel,
// oldest first.
func (d *Discord) FetchChannel(ctx context.Context, channelID string, limit int) ([]models.Message, error) {
	if d.token == "" {
		return nil, fmt.Errorf("discord: %w", ErrMissingToken)
	}
	channelID = strings.TrimSpace(channelID)
	if channelID == "" {
		return nil, fmt.Errorf("discord: empty channel ID: %w", ErrChannelNotFound)
	}
	if err := d.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	u := fmt.Sprintf("%s/channels/%s/messages?limit=%d",
		d.baseURL, url.PathEscape(channelID), ClampLimit(limit))

	body, err := doGet(ctx, d.client, u, map[string]string{
		"Authorization": d.token,
		"Accept":        "application/json",
	})
	if err != nil {
		return nil, d.mapError(channelID, err)
	}
	defer body.Close()

	var msgs []models.Message
	if err := json.NewDecoder(body).Decode(&msgs); err != nil {
		return nil, fmt.Errorf("discord: decode channel %s: %w", channelID, err)
	}

	// Discord returns newest first.
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	for i := range msgs {
		msgs[i].Source = d.Name()
		if msgs[i].ChannelID == "" {
			msgs[i].ChannelID = channelID
		}
	}
	return msgs, nil
}

// mapError converts HTTP failures into the package's error kinds.
func (d *Discord) mapError(channelID string, err error) error {
	var httpErr *ErrHTTP
	if !errors.As(err, &httpErr) {
		return fmt.Errorf("discord: channel %s: %w", channelID, err)
	}
	switch httpErr.StatusCode {
	case http.StatusUnauthorized:
		return fmt.Errorf("discord: %w", ErrUnauthorized)
	case http.StatusNotFound:
		return fmt.Errorf("discord: channel %s: %w", channelID, ErrChannelNotFound)
	case http.StatusTooManyRequests:
		wait := ParseRetryAfter(httpErr.Header.Get("Retry-After"))
		d.limiter.Pause(wait)
		return &RateLimitError{RetryAfter: wait}
	default:
		return fmt.Errorf("discord: channel %s: %w", channelID, httpErr)
	}
}

// ClampLimit bounds a requested message count to what one request may ask for.
func ClampLimit(n int) int {
	switch {
	case n < 1:
		return 1
	case n > MaxMessagesPerRequest:
		return MaxMessagesPerRequest
	default:
		return n
	}
}

// ParseRetryAfter reads a Retry-After value in (possibly fractional)
// seconds, falling back to DefaultRetryAfter.
func ParseRetryAfter(v string) time.Duration {
	secs, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil || secs <= 0 {
		return DefaultRetryAfter
	}
	return time.Duration(secs * float64(time.Second))
}
