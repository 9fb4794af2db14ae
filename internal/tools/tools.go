// Package tools defines the closed set of assistant tools, their typed
// arguments and the schemas offered to the language model.
//
// Tool calls come from the model and are untrusted. Parse only shapes them;
// authorization and argument policy are enforced downstream.
package tools

import (
	"errors"
	"fmt"
	"maps"
	"strings"
)

// Tool names.
const (
	NameGetMetric           = "get_metric"
	NameGetExplain          = "get_explain"
	NameRunStress           = "run_stress"
	NameGetRunbook          = "get_runbook"
	NameHaltTrading         = "halt_trading"
	NameCompanyIntelligence = "company_intelligence"
	NameScoreCompany        = "score_company"
	NameGetHaltStatus       = "get_halt_status"
)

// DefaultWindow is used when get_metric omits a window.
const DefaultWindow = "30m"

var (
	ErrUnknownTool     = errors.New("tools: unknown tool")
	ErrMissingArgument = errors.New("tools: missing required argument")
)

// Invocation is one typed tool call. The set of implementations is closed.
type Invocation interface {
	Tool() string
	// Args returns the raw arguments as received, for validation and audit.
	Args() map[string]any
	sealed()
}

type raw map[string]any

func (r raw) Args() map[string]any { return maps.Clone(map[string]any(r)) }
func (raw) sealed()                {}

// GetMetric asks for one risk metric on a book.
type GetMetric struct {
	raw
	Book   string
	Metric string
	Window string
}

func (GetMetric) Tool() string { return NameGetMetric }

// GetExplain asks for the root-cause analysis of an alert.
type GetExplain struct {
	raw
	AlertID string
}

func (GetExplain) Tool() string { return NameGetExplain }

// RunStress runs a scenario or custom shock against a book.
type RunStress struct {
	raw
	Book       string
	ScenarioID string
	ShockPct   *float64
}

func (RunStress) Tool() string { return NameRunStress }

// GetRunbook fetches the operational runbook for a scenario.
type GetRunbook struct {
	raw
	Scenario string
}

func (GetRunbook) Tool() string { return NameGetRunbook }

// HaltTrading proposes a trading halt. It is never executed without
// confirmation.
type HaltTrading struct {
	raw
	Desk   string
	Book   string
	Symbol string
	Reason string
}

func (HaltTrading) Tool() string { return NameHaltTrading }

// Targets lists the non-empty halt targets as display strings.
func (h HaltTrading) Targets() []string {
	var out []string
	if h.Desk != "" {
		out = append(out, fmt.Sprintf("desk '%s'", h.Desk))
	}
	if h.Book != "" {
		out = append(out, fmt.Sprintf("book '%s'", h.Book))
	}
	if h.Symbol != "" {
		out = append(out, fmt.Sprintf("symbol '%s'", h.Symbol))
	}
	return out
}

// CompanyIntelligence gathers news and insider activity for a company.
type CompanyIntelligence struct {
	raw
	Company string
	Ticker  string
}

func (CompanyIntelligence) Tool() string { return NameCompanyIntelligence }

// ScoreCompany computes the composite risk score for a ticker.
type ScoreCompany struct {
	raw
	Symbol string
}

func (ScoreCompany) Tool() string { return NameScoreCompany }

// GetHaltStatus lists active and recent halts.
type GetHaltStatus struct {
	raw
}

func (GetHaltStatus) Tool() string { return NameGetHaltStatus }

// Parse converts a model-proposed call into a typed Invocation. Unknown
// names fail with ErrUnknownTool. Values of the wrong type are dropped
// rather than coerced; the raw value stays in Args for validation.
func Parse(name string, args map[string]any) (Invocation, error) {
	if args == nil {
		args = map[string]any{}
	}
	r := raw(maps.Clone(args))

	switch name {
	case NameGetMetric:
		inv := GetMetric{raw: r, Book: str(args, "book"), Metric: str(args, "metric"), Window: str(args, "window")}
		if inv.Window == "" {
			inv.Window = DefaultWindow
		}
		return inv, requireFields(name, map[string]string{"book": inv.Book, "metric": inv.Metric})
	case NameGetExplain:
		inv := GetExplain{raw: r, AlertID: str(args, "alert_id")}
		return inv, requireFields(name, map[string]string{"alert_id": inv.AlertID})
	case NameRunStress:
		inv := RunStress{raw: r, Book: str(args, "book"), ScenarioID: str(args, "scenario_id")}
		if v, ok := num(args["shock_pct"]); ok {
			inv.ShockPct = &v
		}
		return inv, nil
	case NameGetRunbook:
		inv := GetRunbook{raw: r, Scenario: str(args, "scenario")}
		return inv, requireFields(name, map[string]string{"scenario": inv.Scenario})
	case NameHaltTrading:
		return HaltTrading{
			raw:    r,
			Desk:   str(args, "desk"),
			Book:   str(args, "book"),
			Symbol: strings.ToUpper(str(args, "symbol")),
			Reason: str(args, "reason"),
		}, nil
	case NameCompanyIntelligence:
		inv := CompanyIntelligence{raw: r, Company: str(args, "company_name"), Ticker: strings.ToUpper(str(args, "ticker"))}
		return inv, requireFields(name, map[string]string{"company_name": inv.Company})
	case NameScoreCompany:
		inv := ScoreCompany{raw: r, Symbol: strings.ToUpper(str(args, "symbol"))}
		return inv, requireFields(name, map[string]string{"symbol": inv.Symbol})
	case NameGetHaltStatus:
		return GetHaltStatus{raw: r}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownTool, name)
	}
}

func requireFields(tool string, fields map[string]string) error {
	for key, v := range fields {
		if v == "" {
			return fmt.Errorf("%w: %s.%s", ErrMissingArgument, tool, key)
		}
	}
	return nil
}

func str(args map[string]any, key string) string {
	s, _ := args[key].(string)
	return strings.TrimSpace(s)
}

func num(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}
