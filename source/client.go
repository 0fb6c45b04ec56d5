/*
Package source talks to the external contract system and feeds the normalizer.

PURPOSE:
  The contract system is a rate-limited HTTP API with paginated listing and
  short-lived OAuth access tokens. Client hides those mechanics and returns raw
  records; Syncer turns a fetch into stored contracts and a run record.

CLIENT STATE:
  limiter      token bucket of one request per MinInterval (x/time/rate)
  token        cached access token
  tokenExpiry  when the cached token stops being valid

  Time and transport are injected (Clock, Doer) so tests drive the client
  without sleeping or opening sockets.

RETRY POLICY:
  429 and 5xx responses are retried up to MaxRetries. The delay is the
  server's Retry-After when present, else BaseBackoff * 2^attempt from an
  unjittered backoff.ExponentialBackOff capped at maxBackoff. A 401
  drops the cached token and retries once with a fresh one.

SEE ALSO:
  - sync.go: fetch -> normalize -> apply
  - contract/normalize.go: the only consumer of RawContract
*/
package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/warp/incentive-engine/contract"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrRateLimited is returned when 429 persists after every retry.
	ErrRateLimited = errors.New("rate limited by contract source")

	// ErrUnexpectedStatus is returned for non-success responses.
	ErrUnexpectedStatus = errors.New("unexpected status from contract source")

	// ErrTokenRefresh is returned when the refresh-token grant fails.
	ErrTokenRefresh = errors.New("token refresh failed")
)

// StatusError carries the status and a prefix of the body of a failed response.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("contract source returned %d: %s", e.Code, e.Body)
}

func (e *StatusError) Unwrap() error {
	if e.Code == http.StatusTooManyRequests {
		return ErrRateLimited
	}
	return ErrUnexpectedStatus
}

// IsRetryable reports whether err is a throttling or server-side failure.
func IsRetryable(err error) bool {
	var se *StatusError
	if !errors.As(err, &se) {
		return false
	}
	return retryableStatus(se.Code)
}

func retryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= 500
}

// =============================================================================
// DEPENDENCIES
// =============================================================================

// Doer sends HTTP requests. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Clock abstracts time for throttling and backoff.
type Clock interface {
	Now() time.Time
	Sleep(ctx context.Context, d time.Duration) error
}

type systemClock struct{}

// SystemClock is the wall clock; Sleep returns early when ctx is done.
func SystemClock() Clock { return systemClock{} }

func (systemClock) Now() time.Time { return time.Now() }

func (systemClock) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// =============================================================================
// CLIENT
// =============================================================================

// Config describes the contract source endpoint and its limits.
type Config struct {
	BaseURL      string
	TokenURL     string
	ClientID     string
	ClientSecret string
	RefreshToken string

	PageSize    int
	MinInterval time.Duration
	MaxRetries  int
	BaseBackoff time.Duration
}

const (
	tokenSkew  = 60 * time.Second
	maxBackoff = 5 * time.Minute
)

// Client fetches raw contract records.
type Client struct {
	cfg    Config
	doer   Doer
	clock  Clock
	logger *zap.Logger

	limiter *rate.Limiter

	tokenMu     sync.Mutex
	token       string
	tokenExpiry time.Time
}

// NewClient creates a client. Nil dependencies fall back to http.DefaultClient,
// the system clock and a no-op logger.
func NewClient(cfg Config, doer Doer, clock Clock, logger *zap.Logger) *Client {
	if doer == nil {
		doer = http.DefaultClient
	}
	if clock == nil {
		clock = SystemClock()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = 200
	}
	limit := rate.Inf
	if cfg.MinInterval > 0 {
		limit = rate.Every(cfg.MinInterval)
	}
	return &Client{
		cfg:     cfg,
		doer:    doer,
		clock:   clock,
		logger:  logger,
		limiter: rate.NewLimiter(limit, 1),
	}
}

// Page is one listing response.
type Page struct {
	Records []contract.RawContract
	More    bool
}

type pageResponse struct {
	Data []contract.RawContract `json:"data"`
	Info struct {
		MoreRecords bool `json:"more_records"`
	} `json:"info"`
}

// FetchPage returns one page, 1-based. An empty body (204) is an empty last page.
func (c *Client) FetchPage(ctx context.Context, page int) (Page, error) {
	u, err := url.Parse(c.cfg.BaseURL)
	if err != nil {
		return Page{}, fmt.Errorf("parse base url: %w", err)
	}
	q := u.Query()
	q.Set("page", strconv.Itoa(page))
	q.Set("per_page", strconv.Itoa(c.cfg.PageSize))
	u.RawQuery = q.Encode()

	body, err := c.getAuthorized(ctx, u.String())
	if err != nil {
		return Page{}, err
	}
	if len(strings.TrimSpace(string(body))) == 0 {
		return Page{}, nil
	}

	var resp pageResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return Page{}, fmt.Errorf("decode page %d: %w", page, err)
	}
	return Page{Records: resp.Data, More: resp.Info.MoreRecords}, nil
}

// FetchAll pages through the listing until the source reports no more records.
func (c *Client) FetchAll(ctx context.Context) ([]contract.RawContract, error) {
	var all []contract.RawContract
	for page := 1; ; page++ {
		p, err := c.FetchPage(ctx, page)
		if err != nil {
			return all, fmt.Errorf("fetch page %d: %w", page, err)
		}
		all = append(all, p.Records...)
		if !p.More {
			return all, nil
		}
	}
}

// getAuthorized performs a GET with the bearer token. A 401 invalidates the
// token and retries once.
func (c *Client) getAuthorized(ctx context.Context, target string) ([]byte, error) {
	for attempt := 0; ; attempt++ {
		token, err := c.accessToken(ctx)
		if err != nil {
			return nil, err
		}
		status, body, err := c.send(ctx, func() (*http.Request, error) {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
			if err != nil {
				return nil, err
			}
			req.Header.Set("Authorization", "Bearer "+token)
			req.Header.Set("Accept", "application/json")
			return req, nil
		})
		if err != nil {
			return nil, err
		}
		if status == http.StatusUnauthorized && attempt == 0 {
			c.logger.Info("access token rejected, refreshing")
			c.Invalidate()
			continue
		}
		if status == http.StatusNoContent {
			return nil, nil
		}
		if status != http.StatusOK {
			return nil, &StatusError{Code: status, Body: truncate(body)}
		}
		return body, nil
	}
}

// send throttles, performs the request and retries throttled or failed
// responses. It returns the final status and body.
func (c *Client) send(ctx context.Context, build func() (*http.Request, error)) (int, []byte, error) {
	bo := c.newBackOff()
	for attempt := 0; ; attempt++ {
		if err := c.throttle(ctx); err != nil {
			return 0, nil, err
		}
		req, err := build()
		if err != nil {
			return 0, nil, fmt.Errorf("build request: %w", err)
		}
		resp, err := c.doer.Do(req)
		if err != nil {
			return 0, nil, fmt.Errorf("request %s: %w", req.URL.Path, err)
		}
		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return 0, nil, fmt.Errorf("read response: %w", err)
		}

		if !retryableStatus(resp.StatusCode) {
			return resp.StatusCode, body, nil
		}
		if attempt >= c.cfg.MaxRetries {
			return 0, nil, &StatusError{Code: resp.StatusCode, Body: truncate(body)}
		}

		delay := bo.NextBackOff()
		if d, ok := c.retryAfter(resp.Header.Get("Retry-After")); ok {
			delay = d
		}
		c.logger.Warn("contract source retry",
			zap.Int("status", resp.StatusCode),
			zap.Int("attempt", attempt+1),
			zap.Duration("delay", delay))
		if err := c.clock.Sleep(ctx, delay); err != nil {
			return 0, nil, err
		}
	}
}

// throttle waits for the limiter's next slot on the injected clock.
func (c *Client) throttle(ctx context.Context) error {
	now := c.clock.Now()
	r := c.limiter.ReserveN(now, 1)
	if delay := r.DelayFrom(now); delay > 0 {
		if err := c.clock.Sleep(ctx, delay); err != nil {
			r.CancelAt(c.clock.Now())
			return err
		}
	}
	return nil
}

// newBackOff returns a per-request schedule of BaseBackoff * 2^attempt.
func (c *Client) newBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.cfg.BaseBackoff
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.MaxInterval = maxBackoff
	b.MaxElapsedTime = 0
	b.Clock = c.clock
	b.Reset()
	return b
}

// retryAfter parses the server's Retry-After (seconds or HTTP date).
func (c *Client) retryAfter(header string) (time.Duration, bool) {
	header = strings.TrimSpace(header)
	if header == "" {
		return 0, false
	}
	if secs, err := strconv.Atoi(header); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second, true
	}
	if at, err := http.ParseTime(header); err == nil {
		return max(at.Sub(c.clock.Now()), 0), true
	}
	return 0, false
}

// =============================================================================
// OAUTH
// =============================================================================

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
	Error       string `json:"error"`
}

// Invalidate drops the cached access token.
func (c *Client) Invalidate() {
	c.tokenMu.Lock()
	defer c.tokenMu.Unlock()
	c.token = ""
	c.tokenExpiry = time.Time{}
}

// accessToken returns the cached token, refreshing it when missing or within a
// minute of expiry.
func (c *Client) accessToken(ctx context.Context) (string, error) {
	c.tokenMu.Lock()
	defer c.tokenMu.Unlock()

	if c.token != "" && c.clock.Now().Add(tokenSkew).Before(c.tokenExpiry) {
		return c.token, nil
	}

	form := url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {c.cfg.RefreshToken},
		"client_id":     {c.cfg.ClientID},
		"client_secret": {c.cfg.ClientSecret},
	}
	status, body, err := c.send(ctx, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.TokenURL, strings.NewReader(form.Encode()))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		return req, nil
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrTokenRefresh, err)
	}
	if status != http.StatusOK {
		return "", fmt.Errorf("%w: %w", ErrTokenRefresh, &StatusError{Code: status, Body: truncate(body)})
	}

	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return "", fmt.Errorf("%w: decode: %v", ErrTokenRefresh, err)
	}
	if tr.AccessToken == "" {
		return "", fmt.Errorf("%w: %s", ErrTokenRefresh, tr.Error)
	}

	c.token = tr.AccessToken
	c.tokenExpiry = c.clock.Now().Add(time.Duration(tr.ExpiresIn) * time.Second)
	c.logger.Debug("access token refreshed", zap.Time("expires_at", c.tokenExpiry))
	return c.token, nil
}

func truncate(body []byte) string {
	const limit = 512
	if len(body) > limit {
		return string(body[:limit])
	}
	return string(body)
}
