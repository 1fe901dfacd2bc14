// Package statsapi talks to the public NBA stats API: request building, browser-like headers,
// retries with backoff and the politeness delay between successful calls.
package statsapi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/rs/zerolog"

	"github.com/maxviazov/gamelog-sync/internal/config"
	"github.com/maxviazov/gamelog-sync/internal/model"
	"github.com/maxviazov/gamelog-sync/internal/retry"
)

// json keeps numbers as json.Number so ids never pass through float64.
var json = jsoniter.Config{UseNumber: true}.Froze()

// DefaultHeaders is the browser-like header set the stats API expects; without it requests hang or get 403.
var DefaultHeaders = map[string]string{
	"Accept":             "application/json, text/plain, */*",
	"Accept-Language":    "en-US,en;q=0.9",
	"Connection":         "keep-alive",
	"Origin":             "https://www.nba.com",
	"Referer":            "https://www.nba.com/",
	"Sec-Fetch-Dest":     "empty",
	"Sec-Fetch-Mode":     "cors",
	"Sec-Fetch-Site":     "same-site",
	"User-Agent":         "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36",
	"x-nba-stats-origin": "stats",
	"x-nba-stats-token":  "true",
}

// Client is safe for concurrent use by the detail and override worker pools.
type Client struct {
	http       *http.Client
	baseURL    string
	headers    http.Header
	policy     retry.Policy
	politeness time.Duration
	epoch      time.Time
	maxBody    int64
	log        zerolog.Logger

	// now and sleep are swapped in tests.
	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration)
}

// Option tweaks a Client after construction.
type Option func(*Client)

// WithHTTPClient replaces the transport, e.g. with an httptest client.
func WithHTTPClient(h *http.Client) Option { return func(c *Client) { c.http = h } }

// WithClock overrides "today" for window validation.
func WithClock(now func() time.Time) Option { return func(c *Client) { c.now = now } }

// WithSleeper overrides the politeness sleep.
func WithSleeper(sleep func(ctx context.Context, d time.Duration)) Option {
	return func(c *Client) { c.sleep = sleep }
}

// New builds a client. The retry policy's predicate is forced to IsRetryable unless already set.
func New(cfg config.SourceConfig, policy retry.Policy, logger zerolog.Logger, opts ...Option) (*Client, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, errors.New("source base url is required")
	}
	epoch, err := model.ParseDay(cfg.Epoch)
	if err != nil {
		return nil, fmt.Errorf("invalid source epoch %q: %w", cfg.Epoch, err)
	}
	httpClient, err := newHTTPClient(cfg)
	if err != nil {
		return nil, err
	}
	if policy.Retryable == nil {
		policy.Retryable = IsRetryable
	}
	maxBody := cfg.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = 32 << 20
	}

	l := logger.With().Str("module", "statsapi").Logger()
	if policy.OnRetry == nil {
		policy.OnRetry = func(attempt int, delay time.Duration, err error) {
			l.Warn().Err(err).Int("attempt", attempt).Dur("backoff", delay).Msg("transient upstream failure, retrying")
		}
	}

	c := &Client{
		http:       httpClient,
		baseURL:    strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		headers:    buildHeaders(cfg.Headers),
		policy:     policy,
		politeness: cfg.PolitenessDelay,
		epoch:      epoch,
		maxBody:    maxBody,
		log:        l,
		now:        time.Now,
		sleep:      politeSleep,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func newHTTPClient(cfg config.SourceConfig) (*http.Client, error) {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if cfg.Proxy != "" {
		proxyURL, err := url.Parse(cfg.Proxy)
		if err != nil {
			return nil, fmt.Errorf("invalid source proxy %q: %w", cfg.Proxy, err)
		}
		transport.Proxy = http.ProxyURL(proxyURL)
	}
	return &http.Client{Transport: transport, Timeout: cfg.Timeout}, nil
}

func buildHeaders(overrides map[string]string) http.Header {
	h := make(http.Header, len(DefaultHeaders)+len(overrides))
	for k, v := range DefaultHeaders {
		h.Set(k, v)
	}
	for k, v := range overrides {
		h.Set(k, v)
	}
	return h
}

func politeSleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

// get performs one logical call: retries on transient failures, then sleeps the politeness
// delay after a success. Exhaustion is reported as ErrFetchFailed.
func (c *Client) get(ctx context.Context, endpoint string, params url.Values) (*envelope, error) {
	fullURL := c.baseURL + "/" + endpoint + "?" + params.Encode()

	var body []byte
	err := c.policy.Do(ctx, func(ctx context.Context, attempt int) error {
		raw, reqErr := c.do(ctx, fullURL)
		if reqErr != nil {
			return reqErr
		}
		body = raw
		return nil
	})
	if err != nil {
		if errors.Is(err, retry.ErrExhausted) {
			return nil, fmt.Errorf("%w: %s: %w", ErrFetchFailed, endpoint, err)
		}
		return nil, err
	}
	c.sleep(ctx, c.politeness)

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("%w: decode %s: %v", ErrMalformedPayload, endpoint, err)
	}
	return &env, nil
}

func (c *Client) do(ctx context.Context, fullURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header = c.headers.Clone()

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("send request: %w", err)
		}
		return nil, fmt.Errorf("%w: send request: %w", errTransport, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBody))
	if err != nil {
		return nil, fmt.Errorf("%w: read response body: %w", errTransport, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{Code: resp.StatusCode, Body: abbreviate(raw)}
	}
	return raw, nil
}
