package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/mbd888/riskops/internal/runbooks"
	"github.com/mbd888/riskops/internal/tools"
)

// Offline is a rule-based collaborator used when no model is configured.
// It recognizes a handful of phrasings for each tool and summarizes tool
// results as formatted JSON.
type Offline struct{}

// NewOffline returns the rule-based collaborator.
func NewOffline() *Offline { return &Offline{} }

func (*Offline) Name() string { return "offline" }

var (
	reBook    = regexp.MustCompile(`\b([A-Z]{2,}_(?:BOOK\d+|DESK))\b`)
	reAlert   = regexp.MustCompile(`\b([A-Z]+(?:_[A-Z]+)*_\d+)\b`)
	reTicker  = regexp.MustCompile(`\$?\b([A-Z]{1,5})\b`)
	reShock   = regexp.MustCompile(`(-?\d+(?:\.\d+)?)\s*%`)
	reReason  = regexp.MustCompile(`(?i)\b(?:because|reason:?|due to)\s+(.+)$`)
	reMetric  = regexp.MustCompile(`(?i)\b(var|exposure|pnl|p&l)\b`)
	reSymbolQ = regexp.MustCompile(`(?i)\bsymbol\s+([A-Za-z]{1,5})\b`)
)

// tickerStopwords are upper-case words that are not tickers.
var tickerStopwords = map[string]bool{
	"I": true, "A": true, "VAR": true, "PNL": true, "OK": true, "USD": true, "THE": true, "FOR": true, "ON": true,
}

func (o *Offline) Chat(ctx context.Context, req *Request) (*Reply, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(req.Messages) == 0 {
		return &Reply{Text: fallbackText(false)}, nil
	}
	last := req.Messages[len(req.Messages)-1]

	// Summarization turn: the previous assistant message carries the result.
	if req.Tools == nil && len(req.Messages) >= 2 {
		return &Reply{Text: summarize(req.Messages[len(req.Messages)-2].Content)}, nil
	}

	if call, ok := route(last.Content); ok && offered(req.Tools, call.Name) {
		return &Reply{Text: fallbackText(true), ToolCalls: []ToolCall{call}}, nil
	}
	return &Reply{Text: help()}, nil
}

func offered(specs []tools.Spec, name string) bool {
	for _, s := range specs {
		if s.Tool.Name == name {
			return true
		}
	}
	return false
}

// route maps an utterance to at most one tool call.
func route(text string) (ToolCall, bool) {
	lower := strings.ToLower(text)
	book := firstMatch(reBook, text)

	switch {
	case strings.Contains(lower, "halt status") || strings.Contains(lower, "active halts"):
		return ToolCall{Name: tools.NameGetHaltStatus, Args: map[string]any{}}, true

	case strings.Contains(lower, "halt"):
		args := map[string]any{}
		if book != "" {
			if strings.HasSuffix(book, "_DESK") {
				args["desk"] = book
			} else {
				args["book"] = book
			}
		}
		if sym := firstMatch(reSymbolQ, text); sym != "" {
			args["symbol"] = strings.ToUpper(sym)
		}
		if r := firstMatch(reReason, text); r != "" {
			args["reason"] = strings.TrimSpace(r)
		}
		return ToolCall{Name: tools.NameHaltTrading, Args: args}, true

	case strings.Contains(lower, "stress"):
		args := map[string]any{}
		if book != "" {
			args["book"] = book
		}
		if s := firstMatch(reShock, text); s != "" {
			if v, err := strconv.ParseFloat(s, 64); err == nil {
				args["shock_pct"] = v / 100
			}
		}
		return ToolCall{Name: tools.NameRunStress, Args: args}, true

	case strings.Contains(lower, "runbook") || strings.Contains(lower, "walk me through") || strings.Contains(lower, "steps"):
		scenario := ""
		for _, name := range runbooks.List() {
			if strings.Contains(lower, name) {
				scenario = name
				break
			}
		}
		if scenario == "" {
			scenario = strings.TrimSpace(text)
		}
		return ToolCall{Name: tools.NameGetRunbook, Args: map[string]any{"scenario": scenario}}, true

	case strings.Contains(lower, "explain"):
		if id := firstMatch(reAlert, text); id != "" {
			return ToolCall{Name: tools.NameGetExplain, Args: map[string]any{"alert_id": id}}, true
		}

	case strings.Contains(lower, "intelligence") || strings.Contains(lower, "insider"):
		if t := ticker(text); t != "" {
			return ToolCall{Name: tools.NameCompanyIntelligence, Args: map[string]any{"company_name": t, "ticker": t}}, true
		}

	case strings.Contains(lower, "risk score") || strings.Contains(lower, "how risky"):
		if t := ticker(text); t != "" {
			return ToolCall{Name: tools.NameScoreCompany, Args: map[string]any{"symbol": t}}, true
		}

	case reMetric.MatchString(text) && book != "":
		metric := strings.ToLower(firstMatch(reMetric, text))
		switch metric {
		case "var":
			metric = "VaR"
		case "exposure":
			metric = "Exposure"
		default:
			metric = "PnL"
		}
		return ToolCall{Name: tools.NameGetMetric, Args: map[string]any{"book": book, "metric": metric, "window": tools.DefaultWindow}}, true
	}
	return ToolCall{}, false
}

func ticker(text string) string {
	for _, m := range reTicker.FindAllStringSubmatch(text, -1) {
		if !tickerStopwords[m[1]] {
			return m[1]
		}
	}
	return ""
}

func firstMatch(re *regexp.Regexp, s string) string {
	m := re.FindStringSubmatch(s)
	if len(m) < 2 {
		return ""
	}
	return m[1]
}

// summarize renders the tool result embedded by ToolResult.
func summarize(content string) string {
	i := strings.Index(content, resultMarker)
	if i < 0 {
		return content
	}
	payload := strings.TrimSuffix(content[i+len(resultMarker):], "]")
	var v any
	if err := json.Unmarshal([]byte(payload), &v); err != nil {
		return content
	}
	pretty, _ := json.MarshalIndent(v, "", "  ")
	return fmt.Sprintf("Here is what I found:\n\n%s", pretty)
}

func help() string {
	return "I can look up risk metrics (VaR, Exposure, PnL), explain alerts, run stress tests, " +
		"share runbooks, score a company's risk, gather company intelligence, and halt trading with confirmation."
}
