// Package risk combines upstream signals into a bounded composite risk score
// and records assessments for later review.
//
// Every score in this package uses one polarity: 0 is the safe end and 1 is
// the risky end.
package risk

import (
	"fmt"
	"math"
)

// Rating is the categorical band a score falls in.
type Rating string

const (
	RatingLow      Rating = "Low Risk"
	RatingModerate Rating = "Moderate Risk"
	RatingElevated Rating = "Elevated Risk"
	RatingHigh     Rating = "High Risk"
)

// Band lower bounds, inclusive.
const (
	ThresholdHigh     = 0.8
	ThresholdElevated = 0.6
	ThresholdModerate = 0.4

	// NeutralSentiment is the magnitude below which averaged sentiment is
	// under-weighted relative to fundamentals.
	NeutralSentiment = 0.2

	// PESaturation and LeverageSaturation are the ratios at which the
	// valuation and leverage contributions reach maximum risk.
	PESaturation       = 40.0
	LeverageSaturation = 2.0
)

var recommendations = map[Rating]string{
	RatingLow:      "Risk profile is stable. No action required beyond routine monitoring.",
	RatingModerate: "Some risk indicators are elevated. Review exposure at the next scheduled check.",
	RatingElevated: "Several risk indicators are elevated. Consider reducing exposure or tightening limits.",
	RatingHigh:     "Risk is high. Escalate to the risk desk and consider reallocating positions.",
}

// RatingFor maps a score onto its band. The bands partition [0,1].
func RatingFor(score float64) Rating {
	switch {
	case score >= ThresholdHigh:
		return RatingHigh
	case score >= ThresholdElevated:
		return RatingElevated
	case score >= ThresholdModerate:
		return RatingModerate
	default:
		return RatingLow
	}
}

// Recommendation returns the advisory text for a rating.
func Recommendation(r Rating) string {
	return recommendations[r]
}

// Factor is one weighted contribution to a score.
type Factor struct {
	Name        string  `json:"name"`
	Score       float64 `json:"score"`
	Weight      int     `json:"weight"` // percent; weights of a Score sum to 100
	Explanation string  `json:"explanation"`
}

// Score is a composite risk result.
type Score struct {
	Value          float64  `json:"score"`
	Rating         Rating   `json:"rating"`
	Recommendation string   `json:"recommendation"`
	Factors        []Factor `json:"factors"`
	Defaulted      []string `json:"defaulted,omitempty"`
}

// Weights returns the (sentiment, fundamentals) weights for an averaged
// sentiment value.
func Weights(avgSentiment float64) (sentiment, fundamentals float64) {
	if math.Abs(avgSentiment) < NeutralSentiment {
		return 0.6, 0.4
	}
	return 0.7, 0.3
}

// Compute combines sentiment and fundamentals signals into a Score. Missing,
// unavailable and non-finite signals fall back to neutral defaults, so the
// result is always valid. Compute is pure.
func Compute(signals map[string]Signal) *Score {
	var defaulted []string
	get := func(name string) float64 {
		v, usedDefault := resolve(signals, name)
		if usedDefault {
			defaulted = append(defaulted, name)
		}
		return v
	}

	news := get(SignalNewsSentiment)
	insider := get(SignalInsiderSentiment)
	pe := get(SignalPERatio)
	de := get(SignalDebtToEquity)

	avg := (news + insider) / 2
	wSent, wFund := Weights(avg)

	sentimentRisk := 1 - clamp01((avg+1)/2)
	peRisk := clamp01(pe / PESaturation)
	debtRisk := clamp01(de / LeverageSaturation)
	fundamentalsRisk := (peRisk + debtRisk) / 2

	value := round3(clamp01(wSent*sentimentRisk + wFund*fundamentalsRisk))
	rating := RatingFor(value)

	return &Score{
		Value:          value,
		Rating:         rating,
		Recommendation: Recommendation(rating),
		Factors: []Factor{
			{
				Name:        "sentiment",
				Score:       round3(sentimentRisk),
				Weight:      int(math.Round(wSent * 100)),
				Explanation: fmt.Sprintf("Average news and insider sentiment is %+.2f on a -1 to 1 scale.", avg),
			},
			{
				Name:        "fundamentals",
				Score:       round3(fundamentalsRisk),
				Weight:      int(math.Round(wFund * 100)),
				Explanation: fmt.Sprintf("P/E ratio %.1f and debt-to-equity %.2f.", pe, de),
			},
		},
		Defaulted: defaulted,
	}
}
