package risk

import "math"

// Signal names understood by Compute.
const (
	SignalNewsSentiment    = "news_sentiment"
	SignalInsiderSentiment = "insider_sentiment"
	SignalPERatio          = "pe_ratio"
	SignalDebtToEquity     = "debt_to_equity"
)

// Neutral defaults substituted for unavailable or non-finite signals.
const (
	DefaultNewsSentiment    = 0.0
	DefaultInsiderSentiment = 0.0
	DefaultPERatio          = 15.0
	DefaultDebtToEquity     = 1.0
)

var defaults = map[string]float64{
	SignalNewsSentiment:    DefaultNewsSentiment,
	SignalInsiderSentiment: DefaultInsiderSentiment,
	SignalPERatio:          DefaultPERatio,
	SignalDebtToEquity:     DefaultDebtToEquity,
}

// Signal is one named observation from an upstream source.
type Signal struct {
	Name        string  `json:"name"`
	Value       float64 `json:"value"`
	Source      string  `json:"source"`
	Unavailable bool    `json:"unavailable,omitempty"`
}

// Available returns a usable signal.
func Available(name, source string, value float64) Signal {
	return Signal{Name: name, Value: value, Source: source}
}

// Missing returns a signal marked unavailable.
func Missing(name, source string) Signal {
	return Signal{Name: name, Source: source, Unavailable: true}
}

// usable reports whether s carries a finite value.
func (s Signal) usable() bool {
	return !s.Unavailable && !math.IsNaN(s.Value) && !math.IsInf(s.Value, 0)
}

// resolve returns the value for name, or its default. The second result
// reports whether the default was used.
func resolve(signals map[string]Signal, name string) (float64, bool) {
	if s, ok := signals[name]; ok && s.usable() {
		return s.Value, false
	}
	return defaults[name], true
}

func clamp01(v float64) float64 {
	switch {
	case math.IsNaN(v):
		return 0
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
