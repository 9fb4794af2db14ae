package signals

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/mbd888/riskops/internal/upstream"
)

// FinnhubBaseURL is the public API root.
const FinnhubBaseURL = "https://finnhub.io/api/v1"

// SentimentWindow is how far back monthly insider sentiment is averaged.
const SentimentWindow = 180 * 24 * time.Hour

// Finnhub reads insider sentiment and transactions.
type Finnhub struct {
	c   *upstream.Client
	key string
	now func() time.Time
}

// NewFinnhub creates a client. An empty key makes every call fail with
// ErrMissingKey.
func NewFinnhub(c *upstream.Client, key string) *Finnhub {
	return &Finnhub{c: c, key: key, now: time.Now}
}

func (f *Finnhub) auth() http.Header {
	return http.Header{"X-Finnhub-Token": {f.key}}
}

// InsiderSentiment returns the mean monthly share purchase ratio over
// SentimentWindow, scaled from [-100,100] to [-1,1].
func (f *Finnhub) InsiderSentiment(ctx context.Context, symbol string) (float64, error) {
	if f.key == "" {
		return 0, ErrMissingKey
	}
	now := f.now()
	var body struct {
		Data []struct {
			MSPR *float64 `json:"mspr"`
		} `json:"data"`
	}
	err := f.c.Do(ctx, upstream.Request{
		Path: "/stock/insider-sentiment",
		Query: url.Values{
			"symbol": {symbol},
			"from":   {now.Add(-SentimentWindow).Format(time.DateOnly)},
			"to":     {now.Format(time.DateOnly)},
		},
		Header: f.auth(),
	}, &body)
	if err != nil {
		return 0, err
	}

	var sum float64
	var n int
	for _, d := range body.Data {
		if d.MSPR != nil {
			sum += *d.MSPR
			n++
		}
	}
	if n == 0 {
		return 0, fmt.Errorf("%w: insider sentiment for %s", ErrNoData, symbol)
	}
	return clampUnit(sum / float64(n) / 100), nil
}

// InsiderTransactions counts insider buys (positive share change) and
// sells over InsiderWindow.
func (f *Finnhub) InsiderTransactions(ctx context.Context, symbol string) (*InsiderActivity, error) {
	if f.key == "" {
		return nil, ErrMissingKey
	}
	var body struct {
		Data *[]struct {
			TransactionDate string   `json:"transactionDate"`
			Change          *float64 `json:"change"`
		} `json:"data"`
	}
	err := f.c.Do(ctx, upstream.Request{
		Path:   "/stock/insider-transactions",
		Query:  url.Values{"symbol": {symbol}},
		Header: f.auth(),
	}, &body)
	if err != nil {
		return nil, err
	}
	if body.Data == nil {
		return nil, fmt.Errorf("%w: insider transactions for %s", ErrNoData, symbol)
	}

	cutoff := f.now().Add(-InsiderWindow).Format(time.DateOnly)
	var buys, sells, trades int
	for _, t := range *body.Data {
		if t.TransactionDate < cutoff {
			continue
		}
		trades++
		if t.Change == nil {
			continue
		}
		switch {
		case *t.Change > 0:
			buys++
		case *t.Change < 0:
			sells++
		}
	}
	return newInsiderActivity(SourceFinnhub, buys, sells, trades), nil
}
