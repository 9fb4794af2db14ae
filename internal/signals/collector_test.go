package signals

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mbd888/riskops/internal/risk"
	"github.com/mbd888/riskops/internal/upstream"
)

type fakeNews struct {
	score float64
	err   error
	delay time.Duration
}

func (f fakeNews) NewsSentiment(ctx context.Context, q string) (*NewsSentiment, error) {
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	return &NewsSentiment{Query: q, Score: f.score, Label: sentimentLabel(f.score)}, nil
}

type fakeInsider struct {
	sentiment float64
	activity  *InsiderActivity
	err       error
	symbols   chan string
}

func (f fakeInsider) InsiderSentiment(_ context.Context, symbol string) (float64, error) {
	if f.symbols != nil {
		f.symbols <- symbol
	}
	return f.sentiment, f.err
}

func (f fakeInsider) InsiderTransactions(context.Context, string) (*InsiderActivity, error) {
	return f.activity, f.err
}

type fakeFundamentals struct {
	f        *Fundamentals
	activity *InsiderActivity
	err      error
}

func (f fakeFundamentals) Fundamentals(context.Context, string) (*Fundamentals, error) {
	return f.f, f.err
}

func (f fakeFundamentals) InsiderTransactions(context.Context, string) (*InsiderActivity, error) {
	return f.activity, f.err
}

func TestCollector_CompanyAllAvailable(t *testing.T) {
	c := NewCollector(
		fakeNews{score: 0.5},
		fakeInsider{sentiment: -0.2},
		fakeFundamentals{f: &Fundamentals{PERatio: 25, HasPE: true, DebtToEquity: 1.5, HasDE: true}},
		time.Second, nil)

	sigs := c.Company(context.Background(), "msft")
	require.Len(t, sigs, 4)
	assert.Equal(t, 0.5, sigs[risk.SignalNewsSentiment].Value)
	assert.Equal(t, -0.2, sigs[risk.SignalInsiderSentiment].Value)
	assert.Equal(t, 25.0, sigs[risk.SignalPERatio].Value)
	assert.Equal(t, SourceAlphaVantage, sigs[risk.SignalDebtToEquity].Source)
	for _, s := range sigs {
		assert.False(t, s.Unavailable, s.Name)
	}
}

func TestCollector_CompanyFailuresBecomeUnavailable(t *testing.T) {
	c := NewCollector(
		fakeNews{err: errors.New("boom")},
		fakeInsider{err: ErrNoData},
		fakeFundamentals{f: &Fundamentals{PERatio: 12, HasPE: true}},
		time.Second, nil)

	sigs := c.Company(context.Background(), "XYZ")
	require.Len(t, sigs, 4)
	assert.True(t, sigs[risk.SignalNewsSentiment].Unavailable)
	assert.True(t, sigs[risk.SignalInsiderSentiment].Unavailable)
	assert.False(t, sigs[risk.SignalPERatio].Unavailable)
	assert.True(t, sigs[risk.SignalDebtToEquity].Unavailable)

	score := risk.Compute(sigs)
	assert.GreaterOrEqual(t, score.Value, 0.0)
	assert.LessOrEqual(t, score.Value, 1.0)
}

func TestCollector_SlowProviderBoundedByTimeout(t *testing.T) {
	c := NewCollector(
		fakeNews{score: 0.9, delay: 5 * time.Second},
		fakeInsider{sentiment: 0.1},
		fakeFundamentals{f: &Fundamentals{PERatio: 15, HasPE: true, DebtToEquity: 1, HasDE: true}},
		50*time.Millisecond, nil)

	start := time.Now()
	sigs := c.Company(context.Background(), "SLOW")
	assert.Less(t, time.Since(start), 2*time.Second)
	assert.True(t, sigs[risk.SignalNewsSentiment].Unavailable)
	assert.False(t, sigs[risk.SignalInsiderSentiment].Unavailable)
}

func TestCollector_IndustryUsesSampleAndBaseline(t *testing.T) {
	symbols := make(chan string, 1)
	c := NewCollector(fakeNews{score: 0.3}, fakeInsider{sentiment: 0.4, symbols: symbols}, fakeFundamentals{}, time.Second, nil)

	sigs := c.Industry(context.Background(), "Technology")
	assert.Equal(t, "AAPL", <-symbols)
	assert.Equal(t, 20.0, sigs[risk.SignalPERatio].Value)
	assert.Equal(t, 0.8, sigs[risk.SignalDebtToEquity].Value)
	assert.Equal(t, SourceBaseline, sigs[risk.SignalPERatio].Source)
	assert.Equal(t, 0.3, sigs[risk.SignalNewsSentiment].Value)

	pe, de := IndustryFundamentals("utilities")
	assert.Equal(t, 15.0, pe)
	assert.Equal(t, 0.6, de)
	assert.Equal(t, "JNJ", SampleTicker("utilities"))
}

func TestCollector_Intelligence(t *testing.T) {
	c := NewCollector(
		fakeNews{score: 0.5},
		fakeInsider{activity: &InsiderActivity{Source: SourceFinnhub, Sentiment: 0.2}},
		fakeFundamentals{err: ErrRateLimited},
		time.Second, nil)

	rep := c.Intelligence(context.Background(), "Nvidia", "nvda")
	assert.Equal(t, "NVDA", rep.Ticker)
	require.NotNil(t, rep.News)
	require.NotNil(t, rep.Insider.Finnhub)
	assert.Nil(t, rep.Insider.AlphaVantage)
	assert.Equal(t, "provider rate limit reached", rep.Insider.AlphaVantageError)

	// (0.5*0.4 + 0.2*0.3) / 0.7
	assert.InDelta(t, 0.371, rep.Aggregate.Score, 1e-9)
	assert.Equal(t, "Bullish", rep.Aggregate.Label)
	assert.Equal(t, "High", rep.Aggregate.Confidence)
}

func TestCollector_IntelligenceKeepsKeysOutOfReportAndLog(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	base := ts.URL
	ts.Close()

	var logBuf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logBuf, nil))
	nyt := NewNYT(upstream.New(upstream.Config{Name: SourceNYT, BaseURL: base}), "SECRET_NYT_KEY")
	c := NewCollector(nyt,
		fakeInsider{err: errors.New("finnhub down")},
		fakeFundamentals{err: ErrMissingKey},
		time.Second, logger)

	rep := c.Intelligence(context.Background(), "Apple", "AAPL")
	assert.Nil(t, rep.News)
	assert.Equal(t, "provider unavailable", rep.NewsError)
	assert.Equal(t, "provider unavailable", rep.Insider.FinnhubError)
	assert.Equal(t, "provider not configured", rep.Insider.AlphaVantageError)

	body, err := json.Marshal(rep)
	require.NoError(t, err)
	assert.NotContains(t, string(body), "SECRET_NYT_KEY")

	assert.Contains(t, logBuf.String(), "signal unavailable")
	assert.NotContains(t, logBuf.String(), "SECRET_NYT_KEY")
}

func TestAggregate_Confidence(t *testing.T) {
	assert.Equal(t, Aggregate{Score: 0, Label: "Neutral", Confidence: "Low"}, aggregate(&Intelligence{}))

	one := aggregate(&Intelligence{News: &NewsSentiment{Score: -0.6}})
	assert.Equal(t, "Medium", one.Confidence)
	assert.Equal(t, "Bearish", one.Label)
	assert.Equal(t, -0.6, one.Score)
}
