package signals

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// Aggregate weights for the company intelligence score.
const (
	weightNews         = 0.4
	weightFinnhub      = 0.3
	weightAlphaVantage = 0.3

	bullishAbove = 0.15
	bearishBelow = -0.15
)

// InsiderReport holds both providers' insider activity. A provider that
// failed has a nil activity and a non-empty error.
type InsiderReport struct {
	Finnhub           *InsiderActivity `json:"finnhub,omitempty"`
	FinnhubError      string           `json:"finnhub_error,omitempty"`
	AlphaVantage      *InsiderActivity `json:"alphavantage,omitempty"`
	AlphaVantageError string           `json:"alphavantage_error,omitempty"`
}

// Aggregate is the weighted sentiment across available parts.
type Aggregate struct {
	Score      float64 `json:"aggregate_score"`
	Label      string  `json:"score_label"`
	Confidence string  `json:"confidence"`
	Parts      int     `json:"parts"`
}

// Intelligence is the company intelligence report.
type Intelligence struct {
	Company   string         `json:"company"`
	Ticker    string         `json:"ticker"`
	Timestamp time.Time      `json:"timestamp"`
	News      *NewsSentiment `json:"news_sentiment,omitempty"`
	NewsError string         `json:"news_error,omitempty"`
	Insider   InsiderReport  `json:"insider_trading"`
	Aggregate Aggregate      `json:"aggregate_analysis"`
}

// Intelligence gathers news sentiment on company and insider activity on
// ticker (or company when ticker is empty) from both insider providers.
func (c *Collector) Intelligence(ctx context.Context, company, ticker string) *Intelligence {
	company = strings.TrimSpace(company)
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	symbol := ticker
	if symbol == "" {
		symbol = strings.ToUpper(company)
	}

	rep := &Intelligence{Company: company, Ticker: ticker, Timestamp: c.now().UTC()}
	var mu sync.Mutex
	var g errgroup.Group

	g.Go(func() error {
		var s *NewsSentiment
		err := c.fetch(ctx, SourceNYT, company, func(ctx context.Context) (err error) {
			s, err = c.news.NewsSentiment(ctx, company)
			return err
		})
		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			rep.NewsError = reportError(err)
			return nil
		}
		rep.News = s
		return nil
	})

	g.Go(func() error {
		var a *InsiderActivity
		err := c.fetch(ctx, SourceFinnhub, symbol, func(ctx context.Context) (err error) {
			a, err = c.insider.InsiderTransactions(ctx, symbol)
			return err
		})
		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			rep.Insider.FinnhubError = reportError(err)
			return nil
		}
		rep.Insider.Finnhub = a
		return nil
	})

	g.Go(func() error {
		var a *InsiderActivity
		err := c.fetch(ctx, SourceAlphaVantage, symbol, func(ctx context.Context) (err error) {
			a, err = c.fundamentals.InsiderTransactions(ctx, symbol)
			return err
		})
		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			rep.Insider.AlphaVantageError = reportError(err)
			return nil
		}
		rep.Insider.AlphaVantage = a
		return nil
	})

	_ = g.Wait()
	rep.Aggregate = aggregate(rep)
	return rep
}

// reportError is the caller-facing text for a failed provider. Detail
// stays in the log.
func reportError(err error) string {
	switch {
	case errors.Is(err, ErrMissingKey):
		return "provider not configured"
	case errors.Is(err, ErrRateLimited):
		return "provider rate limit reached"
	case errors.Is(err, ErrNoData):
		return "no data"
	default:
		return "provider unavailable"
	}
}

func aggregate(rep *Intelligence) Aggregate {
	var sum, weights float64
	var parts int
	add := func(v, w float64) {
		sum += v * w
		weights += w
		parts++
	}
	if rep.News != nil {
		add(rep.News.Score, weightNews)
	}
	if rep.Insider.Finnhub != nil {
		add(rep.Insider.Finnhub.Sentiment, weightFinnhub)
	}
	if rep.Insider.AlphaVantage != nil {
		add(rep.Insider.AlphaVantage.Sentiment, weightAlphaVantage)
	}

	agg := Aggregate{Parts: parts}
	if weights > 0 {
		agg.Score = round3(sum / weights)
	}
	switch {
	case agg.Score > bullishAbove:
		agg.Label = "Bullish"
	case agg.Score < bearishBelow:
		agg.Label = "Bearish"
	default:
		agg.Label = "Neutral"
	}
	switch {
	case parts >= 2:
		agg.Confidence = "High"
	case parts == 1:
		agg.Confidence = "Medium"
	default:
		agg.Confidence = "Low"
	}
	return agg
}
