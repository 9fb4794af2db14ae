package signals

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/mbd888/riskops/internal/circuitbreaker"
	"github.com/mbd888/riskops/internal/logging"
	"github.com/mbd888/riskops/internal/retry"
	"github.com/mbd888/riskops/internal/risk"
	"github.com/mbd888/riskops/internal/upstream"
)

// NewsSource scores recent news for a query.
type NewsSource interface {
	NewsSentiment(ctx context.Context, query string) (*NewsSentiment, error)
}

// InsiderSource reports insider sentiment and activity for a symbol.
type InsiderSource interface {
	InsiderSentiment(ctx context.Context, symbol string) (float64, error)
	InsiderTransactions(ctx context.Context, symbol string) (*InsiderActivity, error)
}

// FundamentalsSource reports valuation data for a symbol.
type FundamentalsSource interface {
	Fundamentals(ctx context.Context, symbol string) (*Fundamentals, error)
	InsiderTransactions(ctx context.Context, symbol string) (*InsiderActivity, error)
}

// Collector fans out to every provider concurrently. Each call is bounded
// by its own timeout, so a slow provider cannot hold up the others.
type Collector struct {
	news         NewsSource
	insider      InsiderSource
	fundamentals FundamentalsSource
	timeout      time.Duration
	logger       *slog.Logger
	now          func() time.Time
}

// NewCollector wires the sources. timeout bounds each provider call.
func NewCollector(news NewsSource, insider InsiderSource, fundamentals FundamentalsSource, timeout time.Duration, logger *slog.Logger) *Collector {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Collector{
		news:         news,
		insider:      insider,
		fundamentals: fundamentals,
		timeout:      timeout,
		logger:       logger,
		now:          time.Now,
	}
}

// Keys holds provider API keys.
type Keys struct {
	AlphaVantage string
	Finnhub      string
	NYT          string
}

// NewDefaultCollector builds the live providers with free-tier rate
// limits, a shared breaker and the default retry policy.
func NewDefaultCollector(keys Keys, timeout time.Duration, breaker *circuitbreaker.Breaker, logger *slog.Logger) *Collector {
	hc := &http.Client{Timeout: 30 * time.Second}
	client := func(name, base string, limit rate.Limit, burst int) *upstream.Client {
		return upstream.New(upstream.Config{
			Name:       name,
			BaseURL:    base,
			Timeout:    timeout,
			Limiter:    rate.NewLimiter(limit, burst),
			Breaker:    breaker,
			Retry:      retry.DefaultPolicy,
			HTTPClient: hc,
		})
	}
	av := NewAlphaVantage(client(SourceAlphaVantage, AlphaVantageBaseURL, rate.Every(12*time.Second), 5), keys.AlphaVantage)
	fh := NewFinnhub(client(SourceFinnhub, FinnhubBaseURL, rate.Every(time.Second), 10), keys.Finnhub)
	nyt := NewNYT(client(SourceNYT, NYTBaseURL, rate.Every(6*time.Second), 5), keys.NYT)
	return NewCollector(nyt, fh, av, timeout, logger)
}

// fetch runs fn under the per-call timeout and logs a failure.
func (c *Collector) fetch(ctx context.Context, provider, subject string, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	err := fn(ctx)
	if err != nil {
		c.logger.Warn("signal unavailable", "request_id", logging.RequestID(ctx), "provider", provider, "subject", subject, "error", err)
	}
	return err
}

type signalSet struct {
	mu sync.Mutex
	m  map[string]risk.Signal
}

func (s *signalSet) put(sig risk.Signal) {
	s.mu.Lock()
	s.m[sig.Name] = sig
	s.mu.Unlock()
}

// Company collects every signal for a ticker. Failed providers yield
// unavailable signals; the result always has all four names.
func (c *Collector) Company(ctx context.Context, symbol string) map[string]risk.Signal {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	set := &signalSet{m: make(map[string]risk.Signal, 4)}
	var g errgroup.Group

	g.Go(func() error {
		var s *NewsSentiment
		err := c.fetch(ctx, SourceNYT, symbol, func(ctx context.Context) (err error) {
			s, err = c.news.NewsSentiment(ctx, symbol)
			return err
		})
		if err != nil {
			set.put(risk.Missing(risk.SignalNewsSentiment, SourceNYT))
			return nil
		}
		set.put(risk.Available(risk.SignalNewsSentiment, SourceNYT, s.Score))
		return nil
	})

	g.Go(func() error {
		var v float64
		err := c.fetch(ctx, SourceFinnhub, symbol, func(ctx context.Context) (err error) {
			v, err = c.insider.InsiderSentiment(ctx, symbol)
			return err
		})
		if err != nil {
			set.put(risk.Missing(risk.SignalInsiderSentiment, SourceFinnhub))
			return nil
		}
		set.put(risk.Available(risk.SignalInsiderSentiment, SourceFinnhub, v))
		return nil
	})

	g.Go(func() error {
		var f *Fundamentals
		err := c.fetch(ctx, SourceAlphaVantage, symbol, func(ctx context.Context) (err error) {
			f, err = c.fundamentals.Fundamentals(ctx, symbol)
			return err
		})
		pe := risk.Missing(risk.SignalPERatio, SourceAlphaVantage)
		de := risk.Missing(risk.SignalDebtToEquity, SourceAlphaVantage)
		if err == nil {
			if f.HasPE {
				pe = risk.Available(risk.SignalPERatio, SourceAlphaVantage, f.PERatio)
			}
			if f.HasDE {
				de = risk.Available(risk.SignalDebtToEquity, SourceAlphaVantage, f.DebtToEquity)
			}
		}
		set.put(pe)
		set.put(de)
		return nil
	})

	_ = g.Wait()
	return set.m
}

// industrySamples maps an industry to the ticker whose insider sentiment
// stands in for it.
var industrySamples = map[string]string{
	"technology": "AAPL",
	"healthcare": "JNJ",
	"financials": "JPM",
	"energy":     "XOM",
	"consumer":   "PG",
}

// SampleTicker returns the representative ticker for industry.
func SampleTicker(industry string) string {
	if t, ok := industrySamples[strings.ToLower(strings.TrimSpace(industry))]; ok {
		return t
	}
	return "JNJ"
}

// IndustryFundamentals returns the baseline P/E and debt-to-equity used for
// an industry in place of a company overview.
func IndustryFundamentals(industry string) (pe, de float64) {
	if strings.EqualFold(strings.TrimSpace(industry), "technology") {
		return 20, 0.8
	}
	return 15, 0.6
}

// Industry collects signals for an industry: news on the industry name,
// insider sentiment of a sample ticker, and baseline fundamentals.
func (c *Collector) Industry(ctx context.Context, industry string) map[string]risk.Signal {
	industry = strings.TrimSpace(industry)
	sample := SampleTicker(industry)
	pe, de := IndustryFundamentals(industry)

	set := &signalSet{m: map[string]risk.Signal{
		risk.SignalPERatio:      risk.Available(risk.SignalPERatio, SourceBaseline, pe),
		risk.SignalDebtToEquity: risk.Available(risk.SignalDebtToEquity, SourceBaseline, de),
	}}
	var g errgroup.Group

	g.Go(func() error {
		var s *NewsSentiment
		err := c.fetch(ctx, SourceNYT, industry, func(ctx context.Context) (err error) {
			s, err = c.news.NewsSentiment(ctx, industry)
			return err
		})
		if err != nil {
			set.put(risk.Missing(risk.SignalNewsSentiment, SourceNYT))
			return nil
		}
		set.put(risk.Available(risk.SignalNewsSentiment, SourceNYT, s.Score))
		return nil
	})

	g.Go(func() error {
		var v float64
		err := c.fetch(ctx, SourceFinnhub, sample, func(ctx context.Context) (err error) {
			v, err = c.insider.InsiderSentiment(ctx, sample)
			return err
		})
		if err != nil {
			set.put(risk.Missing(risk.SignalInsiderSentiment, SourceFinnhub))
			return nil
		}
		set.put(risk.Available(risk.SignalInsiderSentiment, SourceFinnhub, v))
		return nil
	})

	_ = g.Wait()
	return set.m
}
