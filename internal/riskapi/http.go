package riskapi

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/mbd888/riskops/internal/upstream"
)

// HTTP talks to a live risk API.
type HTTP struct {
	c *upstream.Client
}

// NewHTTP wraps an upstream client pointed at the risk API.
func NewHTTP(c *upstream.Client) *HTTP {
	return &HTTP{c: c}
}

func (h *HTTP) Metric(ctx context.Context, book, metric, window string) (*Metric, error) {
	var out Metric
	err := h.c.Do(ctx, upstream.Request{
		Path:  "/metrics",
		Query: url.Values{"book": {book}, "metric": {metric}, "window": {window}},
	}, &out)
	if err != nil {
		return nil, mapErr(err)
	}
	return &out, nil
}

func (h *HTTP) Explain(ctx context.Context, alertID string) (*Explanation, error) {
	var out Explanation
	if err := h.c.Do(ctx, upstream.Request{Path: "/alerts/" + url.PathEscape(alertID) + "/explain"}, &out); err != nil {
		return nil, mapErr(err)
	}
	return &out, nil
}

func (h *HTTP) Stress(ctx context.Context, req StressRequest) (*StressResult, error) {
	var out StressResult
	if err := h.c.Do(ctx, upstream.Request{Method: http.MethodPost, Path: "/stress/run", Body: req}, &out); err != nil {
		return nil, mapErr(err)
	}
	return &out, nil
}

// Alerts returns an empty list rather than an error when the API fails;
// alerts only enrich the assistant's context.
func (h *HTTP) Alerts(ctx context.Context, books []string, window string) ([]Alert, error) {
	var out []Alert
	err := h.c.Do(ctx, upstream.Request{
		Path:  "/alerts",
		Query: url.Values{"books": {strings.Join(books, ",")}, "window": {window}},
	}, &out)
	if err != nil {
		return []Alert{}, err
	}
	return out, nil
}

func (h *HTTP) ChartURL(books []string, metric, window string) string {
	return chartURL(h.c.BaseURL(), books, metric, window)
}

func mapErr(err error) error {
	var apiErr *upstream.APIError
	if errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound {
		return errors.Join(ErrNotFound, err)
	}
	return err
}
