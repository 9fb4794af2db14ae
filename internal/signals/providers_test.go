package signals

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mbd888/riskops/internal/upstream"
)

var testNow = time.Date(2026, 6, 30, 12, 0, 0, 0, time.UTC)

func serve(t *testing.T, body string, check func(r *http.Request)) *upstream.Client {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if check != nil {
			check(r)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(ts.Close)
	return upstream.New(upstream.Config{Name: "test", BaseURL: ts.URL})
}

func TestAlphaVantage_Fundamentals(t *testing.T) {
	c := serve(t, `{"Symbol":"MSFT","PERatio":"34.2","DebtToEquity":"None"}`, func(r *http.Request) {
		assert.Equal(t, "OVERVIEW", r.URL.Query().Get("function"))
		assert.Equal(t, "k", r.URL.Query().Get("apikey"))
	})
	f, err := NewAlphaVantage(c, "k").Fundamentals(context.Background(), "MSFT")
	require.NoError(t, err)
	assert.True(t, f.HasPE)
	assert.InDelta(t, 34.2, f.PERatio, 1e-9)
	assert.False(t, f.HasDE)
}

func TestAlphaVantage_RateLimitNote(t *testing.T) {
	c := serve(t, `{"Note":"Thank you for using Alpha Vantage! Our standard API call frequency is 5 calls per minute."}`, nil)
	_, err := NewAlphaVantage(c, "k").Fundamentals(context.Background(), "MSFT")
	assert.ErrorIs(t, err, ErrRateLimited)
}

func TestAlphaVantage_MissingKey(t *testing.T) {
	_, err := NewAlphaVantage(serve(t, `{}`, nil), "").Fundamentals(context.Background(), "MSFT")
	assert.ErrorIs(t, err, ErrMissingKey)
}

func TestAlphaVantage_InsiderTransactionsWindow(t *testing.T) {
	c := serve(t, `{"data":[
		{"transaction_date":"2026-06-01","acquisition_or_disposal":"A"},
		{"transaction_date":"2026-05-15","acquisition_or_disposal":"a"},
		{"transaction_date":"2026-04-20","acquisition_or_disposal":"D"},
		{"transaction_date":"2025-01-01","acquisition_or_disposal":"D"}
	]}`, nil)
	av := NewAlphaVantage(c, "k")
	av.now = func() time.Time { return testNow }

	a, err := av.InsiderTransactions(context.Background(), "MSFT")
	require.NoError(t, err)
	assert.Equal(t, 3, a.Trades)
	assert.Equal(t, 2, a.Buys)
	assert.Equal(t, 1, a.Sells)
	assert.InDelta(t, 0.333, a.Sentiment, 1e-9)
}

func TestFinnhub_InsiderSentimentScalesMSPR(t *testing.T) {
	c := serve(t, `{"symbol":"AAPL","data":[{"mspr":-40},{"mspr":-20},{"month":3}]}`, func(r *http.Request) {
		assert.Equal(t, "/stock/insider-sentiment", r.URL.Path)
		assert.Equal(t, "2026-06-30", r.URL.Query().Get("to"))
		assert.Empty(t, r.URL.Query().Get("token"))
		assert.Equal(t, "k", r.Header.Get("X-Finnhub-Token"))
	})
	fh := NewFinnhub(c, "k")
	fh.now = func() time.Time { return testNow }

	v, err := fh.InsiderSentiment(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.InDelta(t, -0.3, v, 1e-9)
}

func TestFinnhub_InsiderSentimentEmpty(t *testing.T) {
	_, err := NewFinnhub(serve(t, `{"data":[]}`, nil), "k").InsiderSentiment(context.Background(), "AAPL")
	assert.ErrorIs(t, err, ErrNoData)
}

func TestFinnhub_InsiderTransactions(t *testing.T) {
	c := serve(t, `{"data":[
		{"transactionDate":"2026-06-10","change":500},
		{"transactionDate":"2026-06-11","change":-200},
		{"transactionDate":"2026-06-12","change":-10},
		{"transactionDate":"2026-06-13"}
	]}`, nil)
	fh := NewFinnhub(c, "k")
	fh.now = func() time.Time { return testNow }

	a, err := fh.InsiderTransactions(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.Equal(t, 4, a.Trades)
	assert.Equal(t, 1, a.Buys)
	assert.Equal(t, 2, a.Sells)
	assert.InDelta(t, -0.25, a.Sentiment, 1e-9)
}

func TestNYT_NewsSentiment(t *testing.T) {
	c := serve(t, `{"response":{"docs":[
		{"headline":{"main":"Record profit at chipmaker"},"snippet":"strong demand"},
		{"headline":{"main":"Lawsuit filed"},"snippet":"shares drop"},
		{"headline":{"main":"Quarterly growth slows amid concern"},"snippet":""},
		{"headline":{"main":"CEO interview"},"snippet":"nothing notable"}
	]}}`, func(r *http.Request) {
		assert.Equal(t, "20260616", r.URL.Query().Get("begin_date"))
	})
	n := NewNYT(c, "k")
	n.now = func() time.Time { return testNow }

	s, err := n.NewsSentiment(context.Background(), "NVDA")
	require.NoError(t, err)
	assert.Equal(t, 4, s.Articles)
	assert.Equal(t, 2, s.Positive)
	assert.Equal(t, 2, s.Negative)
	assert.Equal(t, 0.0, s.Score)
	assert.Equal(t, "Neutral", s.Label)
}

func TestScoreHeadlines(t *testing.T) {
	s := ScoreHeadlines([]string{"Strong quarter", "Expansion into Asia", "Profit warning: decline"})
	assert.Equal(t, 3, s.Positive)
	assert.Equal(t, 1, s.Negative)
	assert.InDelta(t, 0.5, s.Score, 1e-9)
	assert.Equal(t, "Positive", s.Label)

	empty := ScoreHeadlines(nil)
	assert.Equal(t, 0.0, empty.Score)
}
