// Package upstream is the JSON-over-HTTP client shared by every external
// integration: data providers, the risk API and the order management system.
//
// A call is bounded by the client's timeout, waits on its rate limiter,
// is short-circuited by its breaker and retried per its policy.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/mbd888/riskops/internal/circuitbreaker"
	"github.com/mbd888/riskops/internal/metrics"
	"github.com/mbd888/riskops/internal/retry"
	"github.com/mbd888/riskops/internal/traces"
)

// maxBody caps how much of a response is read.
const maxBody = 4 << 20

// ErrUnavailable is returned when the breaker is open for the provider.
var ErrUnavailable = errors.New("upstream: provider unavailable")

// APIError is a non-2xx response.
type APIError struct {
	Provider string
	Status   int
	Message  string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s API error (%d): %s", e.Provider, e.Status, e.Message)
}

// errorBody is the conventional error shape returned by our own services.
type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// Config configures a Client. Only Name and BaseURL are required.
type Config struct {
	Name       string
	BaseURL    string
	Timeout    time.Duration
	Header     http.Header
	Limiter    *rate.Limiter
	Breaker    *circuitbreaker.Breaker
	Retry      retry.Policy
	HTTPClient *http.Client
}

// Client calls one upstream.
type Client struct {
	cfg  Config
	http *http.Client
}

// New creates a client. A zero Retry policy means a single attempt.
func New(cfg Config) *Client {
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: 30 * time.Second}
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Client{cfg: cfg, http: hc}
}

// Name returns the provider name used in metrics and errors.
func (c *Client) Name() string { return c.cfg.Name }

// BaseURL returns the configured base URL.
func (c *Client) BaseURL() string { return c.cfg.BaseURL }

// Request describes one call relative to the base URL.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Body   any
	Header http.Header
}

// Do performs req and decodes a JSON response into out (which may be nil).
func (c *Client) Do(ctx context.Context, req Request, out any) (err error) {
	if c.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
	}

	ctx, span := traces.StartSpan(ctx, "upstream."+c.cfg.Name, traces.Provider(c.cfg.Name))
	start := time.Now()
	defer func() {
		metrics.AdapterCallDuration.WithLabelValues(c.cfg.Name).Observe(time.Since(start).Seconds())
		result := "ok"
		switch {
		case errors.Is(err, ErrUnavailable):
			result = "unavailable"
		case err != nil:
			result = "error"
		}
		metrics.AdapterCallsTotal.WithLabelValues(c.cfg.Name, result).Inc()
		traces.End(span, err)
	}()

	if c.cfg.Limiter != nil {
		if err := c.cfg.Limiter.Wait(ctx); err != nil {
			return fmt.Errorf("%s: rate limit wait: %w", c.cfg.Name, err)
		}
	}

	call := func() error {
		return c.cfg.Retry.Do(ctx, func(ctx context.Context) error {
			return c.once(ctx, req, out)
		})
	}
	if c.cfg.Breaker == nil {
		return call()
	}
	err = c.cfg.Breaker.Execute(c.cfg.Name, call)
	if errors.Is(err, circuitbreaker.ErrOpen) {
		return fmt.Errorf("%w: %s", ErrUnavailable, c.cfg.Name)
	}
	return err
}

func (c *Client) once(ctx context.Context, r Request, out any) error {
	u, err := url.Parse(c.cfg.BaseURL + r.Path)
	if err != nil {
		return retry.Permanent(fmt.Errorf("%s: invalid URL: %w", c.cfg.Name, err))
	}
	if r.Query != nil {
		u.RawQuery = r.Query.Encode()
	}

	var body io.Reader
	if r.Body != nil {
		data, err := json.Marshal(r.Body)
		if err != nil {
			return retry.Permanent(fmt.Errorf("%s: marshal request body: %w", c.cfg.Name, err))
		}
		body = bytes.NewReader(data)
	}

	method := r.Method
	if method == "" {
		method = http.MethodGet
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return retry.Permanent(fmt.Errorf("%s: create request: %w", c.cfg.Name, err))
	}
	req.Header.Set("Accept", "application/json")
	if r.Body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, vs := range c.cfg.Header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	for k, vs := range r.Header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		var ue *url.Error
		if errors.As(err, &ue) {
			ue.URL = withoutQuery(ue.URL)
		}
		return fmt.Errorf("%s: request failed: %w", c.cfg.Name, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return fmt.Errorf("%s: read response: %w", c.cfg.Name, err)
	}

	if statusErr := retry.HTTPStatus(c.cfg.Name, resp.StatusCode); statusErr != nil {
		apiErr := &APIError{Provider: c.cfg.Name, Status: resp.StatusCode, Message: strings.TrimSpace(string(respBody))}
		var eb errorBody
		if json.Unmarshal(respBody, &eb) == nil && eb.Message != "" {
			apiErr.Message = eb.Message
		}
		var pe *retry.PermanentError
		if errors.As(statusErr, &pe) {
			return retry.Permanent(apiErr)
		}
		return apiErr
	}

	if out == nil || len(respBody) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return retry.Permanent(fmt.Errorf("%s: decode response: %w", c.cfg.Name, err))
	}
	return nil
}

// withoutQuery drops the query string, which may carry provider keys.
func withoutQuery(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		if i := strings.IndexByte(raw, '?'); i >= 0 {
			return raw[:i]
		}
		return raw
	}
	u.RawQuery = ""
	u.ForceQuery = false
	return u.String()
}
