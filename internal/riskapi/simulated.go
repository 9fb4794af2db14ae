package riskapi

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Book valuation and limits used by the simulated stress engine.
var (
	simBaseline      = decimal.NewFromInt(100_000_000)
	simBreachLimit   = decimal.NewFromInt(5_000_000)
	simVaRMultiplier = decimal.RequireFromString("1.2")
)

// DefaultShock applies when neither a scenario nor a shock is given.
const DefaultShock = -0.1

// Scenarios maps predefined scenario ids to their book shock.
var Scenarios = map[string]float64{
	"market_crash":     -0.20,
	"rate_spike":       -0.08,
	"credit_event":     -0.12,
	"liquidity_crunch": -0.15,
	"tech_selloff":     -0.18,
}

// Simulated returns deterministic demo data.
type Simulated struct {
	base string
	now  func() time.Time
}

// NewSimulated creates a simulated client whose chart links point at base.
func NewSimulated(base string) *Simulated {
	return &Simulated{base: base, now: time.Now}
}

// WithClock replaces the time source (tests).
func (s *Simulated) WithClock(now func() time.Time) *Simulated {
	s.now = now
	return s
}

func (s *Simulated) Metric(_ context.Context, book, metric, window string) (*Metric, error) {
	now := s.now().UTC().Truncate(time.Second)
	value := decimal.NewFromInt(50_000_000)
	if strings.EqualFold(metric, "VaR") {
		value = decimal.NewFromInt(1_250_000)
	}
	step := value.Div(decimal.NewFromInt(50))
	history := make([]Point, 3)
	for i := range history {
		back := int64(len(history) - 1 - i)
		history[i] = Point{
			Timestamp: now.Add(-time.Duration(back) * 15 * time.Minute),
			Value:     value.Sub(step.Mul(decimal.NewFromInt(back))),
		}
	}
	return &Metric{
		Book:      book,
		Metric:    metric,
		Value:     value,
		Unit:      "USD",
		Window:    window,
		Trend:     "up",
		ChangePct: 5.2,
		Timestamp: now,
		History:   history,
	}, nil
}

func (s *Simulated) Explain(_ context.Context, alertID string) (*Explanation, error) {
	if strings.TrimSpace(alertID) == "" {
		return nil, ErrNotFound
	}
	return &Explanation{
		AlertID:   alertID,
		Type:      "VAR_BREACH",
		Book:      "PM_BOOK1",
		Timestamp: s.now().UTC().Add(-3 * time.Minute).Truncate(time.Second),
		Severity:  "HIGH",
		Explanation: "VaR breach triggered due to a 15% increase in portfolio volatility. " +
			"Primary driver was a sudden 8% drop in AAPL combined with high concentration (35% of book). " +
			"Correlation with market sentiment turned negative (-0.7) following disappointing earnings guidance.",
		ContributingFactors: []ContributingFactor{
			{Factor: "AAPL price drop (-8%)", Impact: 0.5},
			{Factor: "Position concentration (35%)", Impact: 0.3},
			{Factor: "Negative sentiment shift", Impact: 0.2},
		},
		RecommendedActions: []string{
			"Review position sizing for AAPL",
			"Consider hedging concentration risk",
			"Monitor broader tech sector sentiment",
		},
	}, nil
}

func (s *Simulated) Stress(_ context.Context, req StressRequest) (*StressResult, error) {
	shock, scenario := DefaultShock, req.ScenarioID
	switch {
	case req.ShockPct != nil:
		shock = *req.ShockPct
		if scenario == "" {
			scenario = "custom_shock_" + strconv.FormatFloat(shock, 'f', -1, 64)
		}
	case scenario != "":
		if v, ok := Scenarios[scenario]; ok {
			shock = v
		}
	default:
		scenario = "custom_shock_default"
	}

	shockDec := decimal.NewFromFloat(shock)
	stressed := simBaseline.Mul(decimal.NewFromInt(1).Add(shockDec))
	impact := stressed.Sub(simBaseline)

	return &StressResult{
		Book:          req.Book,
		Scenario:      scenario,
		BaselineValue: simBaseline,
		StressedValue: stressed,
		Impact:        impact,
		ImpactPct:     shockDec.Mul(decimal.NewFromInt(100)).InexactFloat64(),
		NewVaR:        impact.Abs().Mul(simVaRMultiplier),
		Breach:        impact.Abs().GreaterThan(simBreachLimit),
		Timestamp:     s.now().UTC().Truncate(time.Second),
		Details: StressDetails{
			PositionsAtRisk: 15,
			LargestLosers:   []string{"AAPL", "MSFT", "GOOGL"},
		},
	}, nil
}

func (s *Simulated) Alerts(_ context.Context, books []string, _ string) ([]Alert, error) {
	book := "PM_BOOK1"
	if len(books) > 0 {
		book = books[0]
	}
	now := s.now().UTC().Truncate(time.Second)
	return []Alert{
		{
			AlertID:   "VAR_BREACH_12345",
			Type:      "VAR_BREACH",
			Book:      book,
			Timestamp: now.Add(-3 * time.Minute),
			Severity:  "HIGH",
			Message:   "VaR exceeded limit by 15%",
		},
		{
			AlertID:   "CONCENTRATION_12346",
			Type:      "CONCENTRATION_WARNING",
			Book:      book,
			Timestamp: now.Add(-50 * time.Minute),
			Severity:  "MEDIUM",
			Message:   fmt.Sprintf("Single position exceeds 30%% of %s", book),
		},
	}, nil
}

func (s *Simulated) ChartURL(books []string, metric, window string) string {
	return chartURL(s.base, books, metric, window)
}
