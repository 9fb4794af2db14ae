// Package signals fetches market, insider and news data from third-party
// providers and normalizes it into risk signals.
//
// Provider failures never escape this package as fatal errors: the
// collector turns them into unavailable signals and the risk aggregator
// substitutes neutral defaults.
package signals

import (
	"errors"
	"math"
	"strconv"
	"strings"
	"time"
)

// Provider names, used as signal sources and metric labels.
const (
	SourceAlphaVantage = "alphavantage"
	SourceFinnhub      = "finnhub"
	SourceNYT          = "nyt"
	SourceBaseline     = "industry_baseline"
)

var (
	ErrMissingKey  = errors.New("signals: provider API key not configured")
	ErrRateLimited = errors.New("signals: provider rate limit reached")
	ErrNoData      = errors.New("signals: provider returned no data")
)

// InsiderWindow is how far back insider transactions are counted.
const InsiderWindow = 90 * 24 * time.Hour

// InsiderActivity summarizes recent insider buys and sells.
type InsiderActivity struct {
	Source    string  `json:"source"`
	Trades    int     `json:"trades"`
	Buys      int     `json:"buys"`
	Sells     int     `json:"sells"`
	Sentiment float64 `json:"sentiment"`
}

func newInsiderActivity(source string, buys, sells, trades int) *InsiderActivity {
	a := &InsiderActivity{Source: source, Trades: trades, Buys: buys, Sells: sells}
	if trades > 0 {
		a.Sentiment = round3(float64(buys-sells) / float64(trades))
	}
	return a
}

// parseRatio reads a numeric field that providers send as a string and may
// fill with "None", "-" or "".
func parseRatio(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" || s == "None" || s == "-" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

func clampUnit(v float64) float64 {
	return math.Max(-1, math.Min(1, v))
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
