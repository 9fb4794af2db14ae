package signals

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/mbd888/riskops/internal/upstream"
)

// AlphaVantageBaseURL is the public API root.
const AlphaVantageBaseURL = "https://www.alphavantage.co"

// Fundamentals are valuation and leverage ratios for one symbol. A missing
// ratio is reported through the Has flags.
type Fundamentals struct {
	Symbol       string  `json:"symbol"`
	PERatio      float64 `json:"pe_ratio"`
	HasPE        bool    `json:"has_pe"`
	DebtToEquity float64 `json:"debt_to_equity"`
	HasDE        bool    `json:"has_debt_to_equity"`
}

// AlphaVantage reads company overviews and insider transactions.
type AlphaVantage struct {
	c   *upstream.Client
	key string
	now func() time.Time
}

// NewAlphaVantage creates a client. An empty key makes every call fail with
// ErrMissingKey.
func NewAlphaVantage(c *upstream.Client, key string) *AlphaVantage {
	return &AlphaVantage{c: c, key: key, now: time.Now}
}

// query calls a function endpoint. Alpha Vantage reports throttling with a
// 200 response carrying a "Note" or "Information" field.
func (a *AlphaVantage) query(ctx context.Context, function, symbol string, out any) error {
	if a.key == "" {
		return ErrMissingKey
	}
	var raw json.RawMessage
	err := a.c.Do(ctx, upstream.Request{
		Path:  "/query",
		Query: url.Values{"function": {function}, "symbol": {symbol}, "apikey": {a.key}},
	}, &raw)
	if err != nil {
		return err
	}

	var notice struct {
		Note        string `json:"Note"`
		Information string `json:"Information"`
	}
	if json.Unmarshal(raw, &notice) == nil && (notice.Note != "" || notice.Information != "") {
		return fmt.Errorf("%w: %s", ErrRateLimited, strings.TrimSpace(notice.Note+notice.Information))
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("alphavantage: decode %s: %w", function, err)
	}
	return nil
}

// Fundamentals returns P/E and debt-to-equity from the OVERVIEW endpoint.
func (a *AlphaVantage) Fundamentals(ctx context.Context, symbol string) (*Fundamentals, error) {
	var body struct {
		Symbol       string `json:"Symbol"`
		PERatio      string `json:"PERatio"`
		DebtToEquity string `json:"DebtToEquity"`
	}
	if err := a.query(ctx, "OVERVIEW", symbol, &body); err != nil {
		return nil, err
	}
	if body.Symbol == "" && body.PERatio == "" && body.DebtToEquity == "" {
		return nil, fmt.Errorf("%w: overview for %s", ErrNoData, symbol)
	}

	f := &Fundamentals{Symbol: symbol}
	f.PERatio, f.HasPE = parseRatio(body.PERatio)
	f.DebtToEquity, f.HasDE = parseRatio(body.DebtToEquity)
	return f, nil
}

// InsiderTransactions counts acquisitions and disposals over InsiderWindow.
func (a *AlphaVantage) InsiderTransactions(ctx context.Context, symbol string) (*InsiderActivity, error) {
	var body struct {
		Data *[]struct {
			TransactionDate       string `json:"transaction_date"`
			AcquisitionOrDisposal string `json:"acquisition_or_disposal"`
		} `json:"data"`
	}
	if err := a.query(ctx, "INSIDER_TRANSACTIONS", symbol, &body); err != nil {
		return nil, err
	}
	if body.Data == nil {
		return nil, fmt.Errorf("%w: insider transactions for %s", ErrNoData, symbol)
	}

	cutoff := a.now().Add(-InsiderWindow).Format(time.DateOnly)
	var buys, sells, trades int
	for _, t := range *body.Data {
		if t.TransactionDate < cutoff {
			continue
		}
		trades++
		switch strings.ToUpper(t.AcquisitionOrDisposal) {
		case "A":
			buys++
		case "D":
			sells++
		}
	}
	return newInsiderActivity(SourceAlphaVantage, buys, sells, trades), nil
}
