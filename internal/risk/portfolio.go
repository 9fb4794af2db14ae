package risk

import (
	"fmt"
	"math"
)

// TradingDaysPerQuarter scales daily volatility to a 3-month horizon.
const TradingDaysPerQuarter = 63

// Holding is one portfolio position with its recent daily closing prices,
// oldest first.
type Holding struct {
	Ticker   string    `json:"ticker" binding:"required"`
	Industry string    `json:"industry"`
	Shares   float64   `json:"shares"`
	Closes   []float64 `json:"closes"`
}

// HoldingRisk summarizes one position.
type HoldingRisk struct {
	Ticker      string  `json:"ticker"`
	Industry    string  `json:"industry"`
	MarketValue float64 `json:"market_value"`
	Volatility  float64 `json:"volatility"`  // 3-month, decimal
	Performance float64 `json:"performance"` // period return, decimal
	Score       float64 `json:"score"`       // 0 safe, 1 risky
	Rating      string  `json:"rating"`
}

// PortfolioScore is a portfolio composite plus per-holding detail.
type PortfolioScore struct {
	*Score
	Holdings   []HoldingRisk `json:"holdings"`
	Volatility float64       `json:"volatility"`
}

// CompanyRisk rates a single price series by volatility and performance bands.
func CompanyRisk(closes []float64) HoldingRisk {
	rets := returns(closes)
	if len(rets) == 0 {
		return HoldingRisk{Score: 0.5, Rating: "Insufficient Data"}
	}
	vol := stddev(rets) * math.Sqrt(TradingDaysPerQuarter)
	perf := 0.0
	if closes[0] != 0 {
		perf = (closes[len(closes)-1] - closes[0]) / closes[0]
	}

	var rating Rating
	var score float64
	switch {
	case vol == 0:
		rating, score = RatingLow, 0
	case vol < 0.18 && perf > 0:
		rating, score = RatingLow, 0.2
	case vol < 0.25:
		rating, score = RatingModerate, 0.4
	case vol < 0.35:
		rating, score = RatingElevated, 0.6
	default:
		rating, score = RatingHigh, 0.8
	}
	return HoldingRisk{
		Volatility:  round3(vol),
		Performance: round3(perf),
		Score:       score,
		Rating:      string(rating),
	}
}

// ComputePortfolio scores a set of holdings on four sub-scores:
// diversification (25%), realized volatility (30%), breadth of advancers
// (25%) and the advancer/decliner exposure ratio (20%). Each sub-score is
// expressed as risk, so more industries, lower volatility and more
// advancers all lower the result. ComputePortfolio is pure.
func ComputePortfolio(holdings []Holding) *PortfolioScore {
	details := make([]HoldingRisk, 0, len(holdings))
	industries := make(map[string]struct{})
	var advancers, decliners int
	var totalValue float64

	for _, h := range holdings {
		hr := CompanyRisk(h.Closes)
		hr.Ticker = h.Ticker
		hr.Industry = h.Industry
		if hr.Industry == "" {
			hr.Industry = "Other"
		}
		if n := len(h.Closes); n > 0 {
			hr.MarketValue = h.Shares * h.Closes[n-1]
		}
		totalValue += hr.MarketValue
		industries[hr.Industry] = struct{}{}
		if hr.Performance >= 0 {
			advancers++
		} else {
			decliners++
		}
		details = append(details, hr)
	}

	vol := portfolioVolatility(holdings, details, totalValue)
	n := len(holdings)

	diversificationRisk := 1 - math.Min(1, float64(len(industries))*0.15)
	volatilityRisk := clamp01(vol)
	performanceRisk := 1.0
	if n > 0 {
		performanceRisk = 1 - float64(advancers)/float64(n)
	}
	exposureRisk := 1 - math.Min(1, float64(advancers)/math.Max(1, float64(decliners))*0.4)

	value := round3(clamp01(
		diversificationRisk*0.25 +
			volatilityRisk*0.30 +
			performanceRisk*0.25 +
			exposureRisk*0.20,
	))
	rating := RatingFor(value)

	return &PortfolioScore{
		Score: &Score{
			Value:          value,
			Rating:         rating,
			Recommendation: Recommendation(rating),
			Factors: []Factor{
				{Name: "diversification", Score: round3(diversificationRisk), Weight: 25,
					Explanation: fmt.Sprintf("Portfolio spans %d industries.", len(industries))},
				{Name: "volatility", Score: round3(volatilityRisk), Weight: 30,
					Explanation: fmt.Sprintf("Three-month portfolio volatility is %.1f%%.", vol*100)},
				{Name: "performance", Score: round3(performanceRisk), Weight: 25,
					Explanation: fmt.Sprintf("%d holdings are appreciating while %d are declining.", advancers, decliners)},
				{Name: "exposure", Score: round3(exposureRisk), Weight: 20,
					Explanation: "Balance of advancers and decliners over the price window."},
			},
		},
		Holdings:   details,
		Volatility: round3(vol),
	}
}

// portfolioVolatility computes sqrt(w' Σ w) over aligned daily returns,
// scaled to a quarter. Falls back to the mean single-name volatility when
// the covariance path yields nothing.
func portfolioVolatility(holdings []Holding, details []HoldingRisk, totalValue float64) float64 {
	series := make([][]float64, 0, len(holdings))
	weights := make([]float64, 0, len(holdings))
	minLen := math.MaxInt
	for i, h := range holdings {
		r := returns(h.Closes)
		if len(r) < 2 || totalValue <= 0 {
			continue
		}
		series = append(series, r)
		weights = append(weights, details[i].MarketValue/totalValue)
		minLen = min(minLen, len(r))
	}

	var vol float64
	if len(series) > 0 {
		// align on the most recent common window
		for i := range series {
			series[i] = series[i][len(series[i])-minLen:]
		}
		var variance float64
		for i := range series {
			for j := range series {
				variance += weights[i] * weights[j] * covariance(series[i], series[j])
			}
		}
		vol = math.Sqrt(math.Max(0, variance)) * math.Sqrt(TradingDaysPerQuarter)
	}

	if vol == 0 && len(details) > 0 {
		var sum float64
		for _, d := range details {
			sum += d.Volatility
		}
		vol = sum / float64(len(details))
	}
	if math.IsNaN(vol) || math.IsInf(vol, 0) {
		return 0
	}
	return vol
}

func returns(closes []float64) []float64 {
	if len(closes) < 2 {
		return nil
	}
	out := make([]float64, 0, len(closes)-1)
	for i := 1; i < len(closes); i++ {
		prev := closes[i-1]
		if prev == 0 || math.IsNaN(prev) || math.IsNaN(closes[i]) {
			continue
		}
		out = append(out, (closes[i]-prev)/prev)
	}
	return out
}

func mean(xs []float64) float64 {
	var s float64
	for _, x := range xs {
		s += x
	}
	return s / float64(len(xs))
}

// stddev is the sample standard deviation.
func stddev(xs []float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	return math.Sqrt(covariance(xs, xs))
}

// covariance is the sample covariance of equal-length series.
func covariance(a, b []float64) float64 {
	n := min(len(a), len(b))
	if n < 2 {
		return 0
	}
	ma, mb := mean(a[:n]), mean(b[:n])
	var s float64
	for i := 0; i < n; i++ {
		s += (a[i] - ma) * (b[i] - mb)
	}
	return s / float64(n-1)
}
