// Package api provides the REST adapter for the application backend:
// evidence registration and listing, ingestion status, and search.
package api

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
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"

	"github.com/custodia-labs/attest/internal/core/domain"
	"github.com/custodia-labs/attest/internal/logger"
)

// Default configuration values.
const (
	DefaultTimeout = 60 * time.Second

	// maxErrorBody bounds how much of an error response is kept in messages.
	maxErrorBody = 4 << 10
)

// HeaderRequestID carries a per-request correlation id.
const HeaderRequestID = "X-Request-ID"

// Config holds configuration for the backend client.
type Config struct {
	// BaseURL is the API root, e.g. https://grc.example.com/api (required).
	BaseURL string

	// Token is the bearer token. Empty sends unauthenticated requests.
	Token string

	// RateLimit is the client-side ceiling in requests per second. Zero disables throttling.
	RateLimit float64

	// Timeout is the per-request transport timeout (default: 60s).
	// Callers usually bound requests tighter through ctx.
	Timeout time.Duration

	// HTTPClient overrides the base transport client. Useful for testing.
	HTTPClient *http.Client
}

// Client talks to the application backend over HTTPS.
type Client struct {
	client  *http.Client
	baseURL string
	limiter *rate.Limiter
}

// NewClient creates a backend client.
func NewClient(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("api: base URL is required")
	}
	u, err := url.Parse(cfg.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("api: invalid base URL %q", cfg.BaseURL)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	base := cfg.HTTPClient
	if base == nil {
		base = &http.Client{}
	}

	clone := *base
	httpClient := &clone
	if cfg.Token != "" {
		ctx := context.WithValue(context.Background(), oauth2.HTTPClient, base)
		httpClient = oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{
			AccessToken: cfg.Token,
			TokenType:   "Bearer",
		}))
	}
	httpClient.Timeout = cfg.Timeout

	c := &Client{
		client:  httpClient,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
	}
	if cfg.RateLimit > 0 {
		burst := int(cfg.RateLimit)
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}
	return c, nil
}

// BaseURL returns the API root the client talks to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// do sends one request. in is JSON-encoded when non-nil; out is decoded from
// a 2xx body when non-nil. The response is returned for header access.
func (c *Client) do(ctx context.Context, op, method, path string, in, out any) (*http.Response, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, c.transportError(ctx, op, err)
		}
	}

	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return nil, fmt.Errorf("%s: marshal request: %w", op, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("%s: create request: %w", op, err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	requestID := uuid.NewString()
	req.Header.Set(HeaderRequestID, requestID)

	logger.Debug("%s %s (%s)", method, path, requestID)
	start := time.Now()

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, c.transportError(ctx, op, err)
	}
	defer resp.Body.Close()

	logger.Debug("%s %s -> %d in %s", method, path, resp.StatusCode, time.Since(start).Round(time.Millisecond))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return resp, readAPIError(resp)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp, fmt.Errorf("%s: decode response: %w", op, err)
		}
	}
	return resp, nil
}

// transportError classifies a failure to get any response at all.
func (c *Client) transportError(ctx context.Context, op string, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return &domain.TimeoutError{Op: op}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &domain.TimeoutError{Op: op}
	}
	return fmt.Errorf("%s: %w", op, err)
}

// errorBody is the backend's error envelope.
type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Detail  string `json:"detail"`
	Code    string `json:"code"`

	// Checksum mismatch details.
	Expected string `json:"expected"`
	Actual   string `json:"actual"`
}

// apiError is a non-2xx response with its decoded envelope.
type apiError struct {
	*domain.APIError
	body errorBody
}

func (e *apiError) Unwrap() error { return e.APIError }

// readAPIError builds an error from a non-2xx response.
func readAPIError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	var body errorBody
	msg := ""
	if json.Unmarshal(raw, &body) == nil {
		for _, m := range []string{body.Message, body.Error, body.Detail} {
			if m != "" {
				msg = m
				break
			}
		}
	} else {
		msg = strings.TrimSpace(string(raw))
	}

	return &apiError{
		APIError: &domain.APIError{StatusCode: resp.StatusCode, Message: msg},
		body:     body,
	}
}

// isUnavailableStatus reports gateway-class statuses that mean the backend is down.
func isUnavailableStatus(code int) bool {
	return code == http.StatusBadGateway ||
		code == http.StatusServiceUnavailable ||
		code == http.StatusGatewayTimeout
}
