package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/codeGROOVE-dev/retry"
	"github.com/dmitrijs2005/bottlemail/internal/client/metrics"
	"github.com/dmitrijs2005/bottlemail/internal/client/models"
	"github.com/dmitrijs2005/bottlemail/internal/logging"
)

const maxErrorBody = 4 << 10

// HTTPClient implements Client over JSON/HTTP.
type HTTPClient struct {
	mu      sync.RWMutex
	baseURL string

	http       *http.Client
	attempts   uint
	retryDelay time.Duration
	logger     logging.Logger
	metrics    *metrics.Metrics
}

type Option func(*HTTPClient)

// WithTimeout sets the per-request timeout of the underlying http.Client.
func WithTimeout(d time.Duration) Option {
	return func(c *HTTPClient) { c.http.Timeout = d }
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *HTTPClient) { c.http = hc }
}

// WithFetchAttempts bounds the attempts made for idempotent reads.
func WithFetchAttempts(n int) Option {
	return func(c *HTTPClient) {
		if n < 1 {
			n = 1
		}
		c.attempts = uint(n)
	}
}

func WithRetryDelay(d time.Duration) Option {
	return func(c *HTTPClient) { c.retryDelay = d }
}

func WithLogger(l logging.Logger) Option {
	return func(c *HTTPClient) { c.logger = l }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *HTTPClient) { c.metrics = m }
}

func NewHTTPClient(baseURL string, opts ...Option) *HTTPClient {
	c := &HTTPClient{
		baseURL:    normalizeBaseURL(baseURL),
		http:       &http.Client{Timeout: 30 * time.Second},
		attempts:   3,
		retryDelay: time.Second,
		logger:     logging.Discard(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func normalizeBaseURL(u string) string {
	return strings.TrimRight(strings.TrimSpace(u), "/")
}

func (c *HTTPClient) BaseURL() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.baseURL
}

func (c *HTTPClient) SetBaseURL(baseURL string) {
	c.mu.Lock()
	c.baseURL = normalizeBaseURL(baseURL)
	c.mu.Unlock()
}

func (c *HTTPClient) CheckUser(ctx context.Context, userID string) (*models.CheckUserResponse, error) {
	var out models.CheckUserResponse
	err := c.withRetry(ctx, "check_user", func() error {
		return c.do(ctx, http.MethodPost, "/check_user/"+url.PathEscape(userID), nil, &out)
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) Letterbox(ctx context.Context, userID string) ([]models.Letter, error) {
	var out []models.Letter
	err := c.withRetry(ctx, "letterbox", func() error {
		out = nil
		return c.do(ctx, http.MethodGet, "/letterbox/"+url.PathEscape(userID), nil, &out)
	})
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []models.Letter{}
	}
	return out, nil
}

func (c *HTTPClient) ReceiveUnopened(ctx context.Context, userID string) (*models.PollResponse, error) {
	var out models.PollResponse
	if err := c.do(ctx, http.MethodGet, "/receive_unopened/"+url.PathEscape(userID), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) MarkOpened(ctx context.Context, userID, letterID string) (*models.MarkOpenedResponse, error) {
	var out models.MarkOpenedResponse
	path := "/mark_letter_opened/" + url.PathEscape(userID) + "/" + url.PathEscape(letterID)
	if err := c.do(ctx, http.MethodPost, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) Send(ctx context.Context, letter models.OutgoingLetter) (*models.SendResponse, error) {
	var out models.SendResponse
	if err := c.do(ctx, http.MethodPost, "/send", letter, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) UpdatePreferences(ctx context.Context, userID string, prefs models.Preferences) (*models.UpdatePreferencesResponse, error) {
	var out models.UpdatePreferencesResponse
	if err := c.do(ctx, http.MethodPost, "/update_preferences/"+url.PathEscape(userID), prefs, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) do(ctx context.Context, method, path string, body any, out any) error {
	base := c.BaseURL()
	if base == "" {
		return ErrNoServer
	}

	var reader io.Reader = http.NoBody
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, base+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.metrics.ObserveRequest(method, 0, start)
		c.logger.Debug(ctx, "http request failed", "method", method, "path", path, "duration_ms", time.Since(start).Milliseconds(), "error", err)
		return mapTransportError(err)
	}
	defer resp.Body.Close()

	c.metrics.ObserveRequest(method, resp.StatusCode, start)

	c.logger.Debug(ctx, "http request completed", "method", method, "path", path, "status_code", resp.StatusCode, "duration_ms", time.Since(start).Milliseconds())

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &ServerError{StatusCode: resp.StatusCode, Detail: errorDetail(b)}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if isTimeout(err) {
			return fmt.Errorf("%w: %v", ErrTimeout, err)
		}
		return &ServerError{StatusCode: resp.StatusCode, Detail: "malformed response: " + err.Error()}
	}
	return nil
}

// errorDetail pulls a human readable message out of an error body. Servers
// answer with {"detail": ...}, {"message": ...} or plain text.
func errorDetail(body []byte) string {
	var envelope struct {
		Detail  any    `json:"detail"`
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil {
		switch d := envelope.Detail.(type) {
		case string:
			if d != "" {
				return d
			}
		case nil:
		default:
			if b, err := json.Marshal(d); err == nil {
				return string(b)
			}
		}
		if envelope.Message != "" {
			return envelope.Message
		}
		if envelope.Error != "" {
			return envelope.Error
		}
	}
	return strings.TrimSpace(string(body))
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

func mapTransportError(err error) error {
	switch {
	case isTimeout(err):
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	case errors.Is(err, context.Canceled):
		return err
	default:
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
}

func retryable(err error) bool {
	if errors.Is(err, ErrUnavailable) {
		return true
	}
	var se *ServerError
	return errors.As(err, &se) && se.StatusCode >= http.StatusInternalServerError
}

// withRetry runs fn up to c.attempts times while it fails with a transient
// error. The last error from fn is returned.
func (c *HTTPClient) withRetry(ctx context.Context, op string, fn func() error) error {
	if c.attempts <= 1 {
		return fn()
	}

	var lastErr error
	err := retry.Do(
		func() error {
			lastErr = fn()
			return lastErr
		},
		retry.Attempts(c.attempts),
		retry.Delay(c.retryDelay),
		retry.MaxDelay(10*c.retryDelay),
		retry.MaxJitter(c.retryDelay),
		retry.Context(ctx),
		retry.OnRetry(func(n uint, err error) {
			c.logger.Info(ctx, "retrying request after error", "op", op, "attempt", n, "error", err)
		}),
		retry.RetryIf(retryable),
	)
	if err == nil {
		return nil
	}
	if lastErr != nil {
		return lastErr
	}
	return err
}
