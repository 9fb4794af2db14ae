package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mbd888/riskops/internal/confirm"
	"github.com/mbd888/riskops/internal/oms"
	"github.com/mbd888/riskops/internal/risk"
	"github.com/mbd888/riskops/internal/riskapi"
	"github.com/mbd888/riskops/internal/runbooks"
	"github.com/mbd888/riskops/internal/signals"
	"github.com/mbd888/riskops/internal/tools"
)

// ErrNeedsConfirmation is returned when a privileged tool reaches Run
// directly instead of going through the confirmation broker.
var ErrNeedsConfirmation = errors.New("chat: tool requires confirmation")

// SignalSource gathers company signals and intelligence reports.
type SignalSource interface {
	Company(ctx context.Context, symbol string) map[string]risk.Signal
	Intelligence(ctx context.Context, company, ticker string) *signals.Intelligence
}

// Dispatcher executes typed tool invocations against the downstream
// adapters.
type Dispatcher struct {
	risk    riskapi.Client
	oms     oms.Client
	signals SignalSource
	scores  *risk.Service
}

// NewDispatcher wires a dispatcher. signals and scores may be nil, in which
// case the company tools report that market data is unavailable.
func NewDispatcher(riskClient riskapi.Client, omsClient oms.Client, src SignalSource, scores *risk.Service) *Dispatcher {
	return &Dispatcher{risk: riskClient, oms: omsClient, signals: src, scores: scores}
}

// Run executes a non-privileged invocation and returns its JSON-ready
// result.
func (d *Dispatcher) Run(ctx context.Context, inv tools.Invocation) (any, error) {
	switch v := inv.(type) {
	case tools.GetMetric:
		return d.risk.Metric(ctx, v.Book, v.Metric, v.Window)
	case tools.GetExplain:
		return d.risk.Explain(ctx, v.AlertID)
	case tools.RunStress:
		return d.risk.Stress(ctx, riskapi.StressRequest{Book: v.Book, ScenarioID: v.ScenarioID, ShockPct: v.ShockPct})
	case tools.GetRunbook:
		return runbooks.Get(v.Scenario), nil
	case tools.CompanyIntelligence:
		if d.signals == nil {
			return nil, errMarketData
		}
		return d.signals.Intelligence(ctx, v.Company, v.Ticker), nil
	case tools.ScoreCompany:
		if d.signals == nil || d.scores == nil {
			return nil, errMarketData
		}
		sigs := d.signals.Company(ctx, v.Symbol)
		return d.scores.Assess(ctx, risk.KindCompany, v.Symbol, sigs), nil
	case tools.GetHaltStatus:
		return d.oms.Status(ctx)
	case tools.HaltTrading:
		return nil, ErrNeedsConfirmation
	default:
		return nil, fmt.Errorf("%w: %s", tools.ErrUnknownTool, inv.Tool())
	}
}

var errMarketData = errors.New("market data providers are not configured")

// Execute performs a confirmed halt. The confirmation id is the OMS
// idempotency key, so a retried execution returns the original ticket.
func (d *Dispatcher) Execute(ctx context.Context, p *confirm.Pending) (*confirm.Result, error) {
	inv, err := tools.Parse(p.Action, p.Args)
	if err != nil {
		return nil, err
	}
	halt, ok := inv.(tools.HaltTrading)
	if !ok {
		return nil, fmt.Errorf("no executor for action %q", p.Action)
	}
	ticket, err := d.oms.Halt(ctx, oms.HaltRequest{
		Targets:        oms.Targets{Desk: halt.Desk, Book: halt.Book, Symbol: halt.Symbol},
		Reason:         strings.TrimSpace(halt.Reason),
		RequestedBy:    p.UserID,
		IdempotencyKey: p.ID,
	})
	if err != nil {
		return nil, err
	}
	return &confirm.Result{TicketID: ticket.TicketID, Status: ticket.Status, Message: ticket.Message}, nil
}
