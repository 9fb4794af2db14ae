package tools

import "github.com/mark3labs/mcp-go/mcp"

// Spec is a tool definition offered to the model.
type Spec struct {
	Tool                 mcp.Tool
	RequiresConfirmation bool
}

// Descriptions are what the model reads to decide which tool to call.

var toolGetMetric = mcp.NewTool(NameGetMetric,
	mcp.WithDescription("Get a risk metric (VaR, Exposure, PnL, etc.) for a specific book over a time window"),
	mcp.WithString("book", mcp.Required(), mcp.Description("Book/portfolio identifier")),
	mcp.WithString("metric", mcp.Required(), mcp.Description("Metric name (VaR, Exposure, PnL)")),
	mcp.WithString("window", mcp.Description("Time window (30m, 1h, 1d)")),
)

var toolGetExplain = mcp.NewTool(NameGetExplain,
	mcp.WithDescription("Get detailed explanation for a specific alert including root cause analysis"),
	mcp.WithString("alert_id", mcp.Required(), mcp.Description("Alert identifier")),
)

var toolRunStress = mcp.NewTool(NameRunStress,
	mcp.WithDescription("Run a stress test on a book with predefined scenario or custom shock percentage"),
	mcp.WithString("book", mcp.Required(), mcp.Description("Book to stress test")),
	mcp.WithString("scenario_id", mcp.Description("Predefined scenario (optional)")),
	mcp.WithNumber("shock_pct", mcp.Description("Custom shock percentage like -0.1 for -10% (optional)")),
)

var toolGetRunbook = mcp.NewTool(NameGetRunbook,
	mcp.WithDescription("Get operational playbook/runbook for a risk scenario with step-by-step remediation"),
	mcp.WithString("scenario", mcp.Required(), mcp.Description("Scenario name (e.g., 'order-flow anomaly', 'var breach')")),
)

var toolHaltTrading = mcp.NewTool(NameHaltTrading,
	mcp.WithDescription("Halt trading for a desk, book, or symbol. REQUIRES CONFIRMATION. Use only when explicitly requested."),
	mcp.WithString("desk", mcp.Description("Desk to halt (optional)")),
	mcp.WithString("book", mcp.Description("Book to halt (optional)")),
	mcp.WithString("symbol", mcp.Description("Symbol to halt (optional)")),
	mcp.WithString("reason", mcp.Required(), mcp.Description("Reason for halting (required)")),
)

var toolCompanyIntelligence = mcp.NewTool(NameCompanyIntelligence,
	mcp.WithDescription(
		"Get real-time company intelligence including news sentiment analysis from NYT, "+
			"insider trading activity from Finnhub and Alpha Vantage, and aggregate sentiment score"),
	mcp.WithString("company_name", mcp.Required(), mcp.Description("Company name to analyze")),
	mcp.WithString("ticker", mcp.Description("Stock ticker symbol (optional, e.g., 'AAPL')")),
)

var toolScoreCompany = mcp.NewTool(NameScoreCompany,
	mcp.WithDescription(
		"Compute the composite 0-1 risk score for a stock (0 = safest, 1 = riskiest) "+
			"from news sentiment, insider sentiment, P/E and debt-to-equity, with a factor breakdown"),
	mcp.WithString("symbol", mcp.Required(), mcp.Description("Stock ticker symbol, e.g. 'MSFT'")),
)

var toolGetHaltStatus = mcp.NewTool(NameGetHaltStatus,
	mcp.WithDescription("List active and recently lifted trading halts"),
)

var specs = []Spec{
	{Tool: toolGetMetric},
	{Tool: toolGetExplain},
	{Tool: toolRunStress},
	{Tool: toolGetRunbook},
	{Tool: toolHaltTrading, RequiresConfirmation: true},
	{Tool: toolCompanyIntelligence},
	{Tool: toolScoreCompany},
	{Tool: toolGetHaltStatus},
}

// Specs returns every tool definition in a stable order.
func Specs() []Spec {
	out := make([]Spec, len(specs))
	copy(out, specs)
	return out
}

// Lookup returns the spec for name.
func Lookup(name string) (Spec, bool) {
	for _, s := range specs {
		if s.Tool.Name == name {
			return s, true
		}
	}
	return Spec{}, false
}

// RequiresConfirmation reports whether name must go through the
// confirmation broker before it runs.
func RequiresConfirmation(name string) bool {
	s, ok := Lookup(name)
	return ok && s.RequiresConfirmation
}
