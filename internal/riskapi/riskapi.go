// Package riskapi reads risk metrics, alerts and stress results from the
// firm's risk API. A simulated implementation backs development and demos.
package riskapi

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var ErrNotFound = errors.New("riskapi: not found")

// Point is one historical metric observation.
type Point struct {
	Timestamp time.Time       `json:"timestamp"`
	Value     decimal.Decimal `json:"value"`
}

// Metric is a risk metric for one book over a window.
type Metric struct {
	Book      string          `json:"book"`
	Metric    string          `json:"metric"`
	Value     decimal.Decimal `json:"value"`
	Unit      string          `json:"unit"`
	Window    string          `json:"window"`
	Trend     string          `json:"trend"`
	ChangePct float64         `json:"change_pct"`
	Timestamp time.Time       `json:"timestamp"`
	History   []Point         `json:"history"`
}

// Alert is a summary of a raised alert.
type Alert struct {
	AlertID   string    `json:"alert_id"`
	Type      string    `json:"type"`
	Book      string    `json:"book"`
	Timestamp time.Time `json:"timestamp"`
	Severity  string    `json:"severity"`
	Message   string    `json:"message"`
}

// ContributingFactor is one driver of an alert.
type ContributingFactor struct {
	Factor string  `json:"factor"`
	Impact float64 `json:"impact"`
}

// Explanation is the root-cause analysis of an alert.
type Explanation struct {
	AlertID             string               `json:"alert_id"`
	Type                string               `json:"type"`
	Book                string               `json:"book"`
	Timestamp           time.Time            `json:"timestamp"`
	Severity            string               `json:"severity"`
	Explanation         string               `json:"explanation"`
	ContributingFactors []ContributingFactor `json:"contributing_factors"`
	RecommendedActions  []string             `json:"recommended_actions"`
}

// StressRequest runs a named scenario or a custom shock against a book.
type StressRequest struct {
	Book       string   `json:"book"`
	ScenarioID string   `json:"scenario_id,omitempty"`
	ShockPct   *float64 `json:"shock_pct,omitempty"`
}

// StressDetails describes the positions hit hardest.
type StressDetails struct {
	PositionsAtRisk int      `json:"positions_at_risk"`
	LargestLosers   []string `json:"largest_losers"`
}

// StressResult holds money amounts as decimals so shocks never drift.
type StressResult struct {
	Book          string          `json:"book"`
	Scenario      string          `json:"scenario"`
	BaselineValue decimal.Decimal `json:"baseline_value"`
	StressedValue decimal.Decimal `json:"stressed_value"`
	Impact        decimal.Decimal `json:"impact"`
	ImpactPct     float64         `json:"impact_pct"`
	NewVaR        decimal.Decimal `json:"new_var"`
	Breach        bool            `json:"breach"`
	Timestamp     time.Time       `json:"timestamp"`
	Details       StressDetails   `json:"details"`
}

// Client is the risk API surface used by the assistant.
type Client interface {
	Metric(ctx context.Context, book, metric, window string) (*Metric, error)
	Explain(ctx context.Context, alertID string) (*Explanation, error)
	Stress(ctx context.Context, req StressRequest) (*StressResult, error)
	Alerts(ctx context.Context, books []string, window string) ([]Alert, error)
	ChartURL(books []string, metric, window string) string
}

// chartURL builds the dashboard link for books.
func chartURL(base string, books []string, metric, window string) string {
	q := url.Values{}
	q.Set("books", strings.Join(books, ","))
	q.Set("metric", metric)
	q.Set("window", window)
	return fmt.Sprintf("%s/charts?%s", strings.TrimRight(base, "/"), q.Encode())
}
