// Package chat orchestrates the risk assistant: it builds the user's
// context, asks the language model for tool calls, runs the safe ones and
// routes privileged ones through the confirmation broker.
package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mbd888/riskops/internal/access"
	"github.com/mbd888/riskops/internal/audit"
	"github.com/mbd888/riskops/internal/confirm"
	"github.com/mbd888/riskops/internal/guardrail"
	"github.com/mbd888/riskops/internal/llm"
	"github.com/mbd888/riskops/internal/logging"
	"github.com/mbd888/riskops/internal/metrics"
	"github.com/mbd888/riskops/internal/riskapi"
	"github.com/mbd888/riskops/internal/tools"
	"github.com/mbd888/riskops/internal/traces"
)

var (
	ErrAssistantUnavailable = errors.New("chat: assistant unavailable")
	ErrDenied               = errors.New("chat: action denied")
)

// MaxContextAlerts caps the alerts placed in the model context.
const MaxContextAlerts = 10

// Context window and chart metric used for every conversation.
const (
	contextWindow = "30m"
	contextMetric = "VaR"
)

// SystemPrompt instructs the model.
const SystemPrompt = `You are a real-time trading risk operations assistant for a FinTech platform.

## Your Personality
- Friendly, professional, and responsive
- Answer greetings and casual questions naturally and quickly
- Be concise and clear in all responses
- Use formatting (bold, bullets, numbers) to make responses easy to read

## Your Capabilities
- Analyze risk metrics (VaR, Exposure, P&L) across portfolios
- Explain alerts and provide root cause analysis
- Run stress tests and scenario analysis
- Provide operational runbooks for risk scenarios (data latency, order-flow anomaly, VaR breach, etc.)
- Execute emergency actions (with confirmation)
- Perform company intelligence analysis including news sentiment, insider trading activity and composite risk scores

## Response Guidelines
1. For greetings or casual conversation: respond naturally and briefly
2. For risk queries: be numerate, cite data sources (metric names + timestamps)
3. For company intelligence: present sentiment analysis, insider trading trends and aggregate scores
4. For operational guidance or "walk me through" questions: call get_runbook with the relevant scenario
5. For dangerous actions: always require explicit confirmation`

// Request is one user message.
type Request struct {
	UserID    string `json:"user_id" binding:"required"`
	Text      string `json:"text" binding:"required"`
	SessionID string `json:"session_id,omitempty"`
}

// Response is the assistant's reply. ConfirmID is set when a privileged
// action awaits the user's answer.
type Response struct {
	Text      string `json:"text"`
	ConfirmID string `json:"confirm_id,omitempty"`
	ChartURL  string `json:"spark_viz_url,omitempty"`
	SessionID string `json:"session_id,omitempty"`
}

// ConfirmRequest answers a pending confirmation.
type ConfirmRequest struct {
	UserID    string `json:"user_id" binding:"required"`
	ConfirmID string `json:"confirm_id" binding:"required"`
	Answer    string `json:"answer" binding:"required"`
}

// ConfirmResponse reports the redemption.
type ConfirmResponse struct {
	Status   string `json:"status"` // executed, cancelled or error
	TicketID string `json:"ticket_id,omitempty"`
	Message  string `json:"message"`
}

// UserContext is what the model is told about the caller.
type UserContext struct {
	UserRole     access.Role     `json:"user_role"`
	Books        []string        `json:"books"`
	RecentAlerts []riskapi.Alert `json:"recent_alerts"`
	ChartURL     string          `json:"spark_viz_url"`
}

// Service is the conversation orchestrator.
type Service struct {
	model    llm.Collaborator
	dir      *access.Directory
	broker   *confirm.Broker
	dispatch *Dispatcher
	risk     riskapi.Client
	audit    *audit.Recorder
	logger   *slog.Logger
}

// NewService wires the orchestrator. rec may be nil.
func NewService(model llm.Collaborator, dir *access.Directory, broker *confirm.Broker, dispatch *Dispatcher, riskClient riskapi.Client, rec *audit.Recorder, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		model:    model,
		dir:      dir,
		broker:   broker,
		dispatch: dispatch,
		risk:     riskClient,
		audit:    rec,
		logger:   logger,
	}
}

// BuildContext assembles the caller's role, books, recent alerts and chart
// link. Alert lookup failures leave the list empty.
func (s *Service) BuildContext(ctx context.Context, userID string) *UserContext {
	books := s.dir.ResourcesOf(userID)
	alerts, err := s.risk.Alerts(ctx, books, contextWindow)
	if err != nil {
		s.log(ctx).Warn("recent alerts unavailable", "user_id", userID, "error", err)
	}
	if len(alerts) > MaxContextAlerts {
		alerts = alerts[:MaxContextAlerts]
	}
	if alerts == nil {
		alerts = []riskapi.Alert{}
	}
	return &UserContext{
		UserRole:     s.dir.RoleOf(userID),
		Books:        books,
		RecentAlerts: alerts,
		ChartURL:     s.risk.ChartURL(books, contextMetric, contextWindow),
	}
}

// Chat handles one user message. Tool calls from the model are parsed into
// typed invocations; a privileged call stops processing and returns a
// confirmation prompt, while safe calls run immediately and are summarized
// by the model. Only collaborator failures are returned as errors.
func (s *Service) Chat(ctx context.Context, req Request) (resp *Response, err error) {
	ctx, span := traces.StartSpan(ctx, "chat.message", traces.UserID(req.UserID))
	defer func() { traces.End(span, err) }()

	uctx := s.BuildContext(ctx, req.UserID)
	resp = &Response{ChartURL: uctx.ChartURL, SessionID: req.SessionID}

	messages := []llm.Message{{Role: llm.RoleUser, Content: req.Text}}
	reply, err := s.model.Chat(ctx, &llm.Request{
		System:   SystemPrompt,
		Context:  uctx,
		Tools:    tools.Specs(),
		Messages: messages,
	})
	if err != nil {
		s.log(ctx).Error("assistant call failed", "model", s.model.Name(), "error", err)
		return nil, fmt.Errorf("%w: %v", ErrAssistantUnavailable, err)
	}
	resp.Text = reply.Text

	for _, call := range reply.ToolCalls {
		inv, perr := tools.Parse(call.Name, call.Args)
		if errors.Is(perr, tools.ErrUnknownTool) {
			metrics.ToolInvocationsTotal.WithLabelValues("unknown", "rejected").Inc()
			s.log(ctx).Warn("model proposed unknown tool", "tool", call.Name)
			continue
		}

		if tools.RequiresConfirmation(call.Name) {
			resp.Text, resp.ConfirmID = s.Propose(ctx, req.UserID, inv)
			return resp, nil
		}

		var result any
		if perr != nil {
			metrics.ToolInvocationsTotal.WithLabelValues(call.Name, "invalid").Inc()
			result = map[string]any{"error": perr.Error()}
		} else {
			result = s.RunTool(ctx, req.UserID, inv)
		}

		summary, serr := s.summarize(ctx, uctx, messages, call.Name, result)
		if serr != nil {
			s.log(ctx).Error("assistant summary failed", "tool", call.Name, "error", serr)
			return nil, fmt.Errorf("%w: %v", ErrAssistantUnavailable, serr)
		}
		resp.Text = summary
	}

	return resp, nil
}

// RunTool executes a safe tool for userID after the resource and argument
// checks. Failures come back as an {"error": ...} result rather than an
// error, so the caller can show them to the model or the operator.
func (s *Service) RunTool(ctx context.Context, userID string, inv tools.Invocation) any {
	if res := targetOf(inv); res != "" && !s.dir.HasAccess(userID, res) {
		metrics.ToolInvocationsTotal.WithLabelValues(inv.Tool(), "forbidden").Inc()
		return map[string]any{"error": fmt.Sprintf("You do not have access to %s", res)}
	}
	if ok, reason := guardrail.Validate(inv.Tool(), inv.Args()); !ok {
		metrics.ToolInvocationsTotal.WithLabelValues(inv.Tool(), "invalid").Inc()
		return map[string]any{"error": reason}
	}

	result, err := s.dispatch.Run(ctx, inv)
	if err != nil {
		metrics.ToolInvocationsTotal.WithLabelValues(inv.Tool(), "error").Inc()
		s.log(ctx).Warn("tool failed", "tool", inv.Tool(), "error", err)
		return map[string]any{"error": toolFailure(inv, err)}
	}
	metrics.ToolInvocationsTotal.WithLabelValues(inv.Tool(), "ok").Inc()
	return result
}

// toolFailure is the caller-facing text for a failed tool run. Upstream
// detail stays in the log.
func toolFailure(inv tools.Invocation, err error) string {
	switch {
	case errors.Is(err, riskapi.ErrNotFound):
		if e, ok := inv.(tools.GetExplain); ok {
			return fmt.Sprintf("No alert found with ID %s", e.AlertID)
		}
		return "No data found for that request"
	case errors.Is(err, errMarketData):
		return "Market data providers are not configured"
	default:
		return fmt.Sprintf("%s is temporarily unavailable", inv.Tool())
	}
}

// Propose turns a privileged call into a pending confirmation and returns
// the prompt text plus its id. Nothing executes here; missing arguments are
// reported by the broker's validation.
func (s *Service) Propose(ctx context.Context, userID string, inv tools.Invocation) (string, string) {
	halt, _ := inv.(tools.HaltTrading)

	for _, res := range []string{halt.Desk, halt.Book} {
		if res != "" && !s.dir.HasAccess(userID, res) {
			metrics.ToolInvocationsTotal.WithLabelValues(tools.NameHaltTrading, "forbidden").Inc()
			if s.audit != nil {
				s.audit.Record(ctx, userID, tools.NameHaltTrading,
					map[string]any{"outcome": "resource_denied", "resource": res}, audit.ResultFailed)
			}
			return fmt.Sprintf("You do not have access to %s, so trading there cannot be halted on your behalf.", res), ""
		}
	}

	args := map[string]any{}
	if inv != nil {
		args = inv.Args()
		if halt.Symbol != "" {
			args["symbol"] = halt.Symbol
		}
	}

	p, err := s.broker.Create(ctx, userID, tools.NameHaltTrading, args)
	var verr *confirm.ValidationError
	switch {
	case errors.Is(err, confirm.ErrUnauthorized):
		metrics.ToolInvocationsTotal.WithLabelValues(tools.NameHaltTrading, "unauthorized").Inc()
		return "You lack permission to halt trading. This action requires RISK or ADMIN role. Please contact a Risk Manager or Administrator.", ""
	case errors.As(err, &verr):
		metrics.ToolInvocationsTotal.WithLabelValues(tools.NameHaltTrading, "invalid").Inc()
		return "Invalid halt request: " + verr.Reason, ""
	case err != nil:
		metrics.ToolInvocationsTotal.WithLabelValues(tools.NameHaltTrading, "error").Inc()
		s.log(ctx).Error("create confirmation failed", "error", err)
		return "The halt request could not be registered. Please try again.", ""
	}

	metrics.ToolInvocationsTotal.WithLabelValues(tools.NameHaltTrading, "pending").Inc()
	return confirmationPrompt(halt, p, s.broker), p.ID
}

func confirmationPrompt(halt tools.HaltTrading, p *confirm.Pending, b *confirm.Broker) string {
	minutes := int(b.TTL().Minutes())
	expiry := fmt.Sprintf("%d minutes", minutes)
	if minutes < 1 {
		expiry = fmt.Sprintf("%d seconds", int(b.TTL().Seconds()))
	}
	var sb strings.Builder
	sb.WriteString("⚠️ CONFIRMATION REQUIRED\n\n")
	fmt.Fprintf(&sb, "You are about to HALT TRADING for: %s\n\n", strings.Join(halt.Targets(), ", "))
	fmt.Fprintf(&sb, "Reason: %s\n\n", strings.TrimSpace(halt.Reason))
	sb.WriteString("This action will immediately stop all trading activity for the specified target(s).\n\n")
	sb.WriteString("To proceed, please respond with:\n• \"yes\" to confirm and execute\n• \"no\" to cancel\n\n")
	fmt.Fprintf(&sb, "Confirmation ID: %s\n(This confirmation expires in %s)", p.ID, expiry)
	return sb.String()
}

func (s *Service) summarize(ctx context.Context, uctx *UserContext, history []llm.Message, tool string, result any) (string, error) {
	toolMsg, err := llm.ToolResult(tool, result)
	if err != nil {
		return "", err
	}
	msgs := append(append([]llm.Message{}, history...), toolMsg,
		llm.Message{Role: llm.RoleUser, Content: llm.SummaryPrompt})
	reply, err := s.model.Chat(ctx, &llm.Request{System: SystemPrompt, Context: uctx, Messages: msgs})
	if err != nil {
		return "", err
	}
	return reply.Text, nil
}

func (s *Service) log(ctx context.Context) *slog.Logger {
	if id := logging.RequestID(ctx); id != "" {
		return s.logger.With("request_id", id)
	}
	return s.logger
}

// targetOf returns the book a safe tool reads, if any.
func targetOf(inv tools.Invocation) string {
	switch v := inv.(type) {
	case tools.GetMetric:
		return v.Book
	case tools.RunStress:
		return v.Book
	default:
		return ""
	}
}

// Confirm redeems a pending confirmation. Broker sentinels are returned
// unchanged; a denied redemption returns ErrDenied with the response
// still populated.
func (s *Service) Confirm(ctx context.Context, req ConfirmRequest) (*ConfirmResponse, error) {
	answer, err := confirm.ParseAnswer(req.Answer)
	if err != nil {
		return nil, err
	}

	out, err := s.broker.Redeem(ctx, req.ConfirmID, req.UserID, answer)
	if err != nil {
		return nil, err
	}

	switch out.Status {
	case confirm.StatusExecuted:
		resp := &ConfirmResponse{Status: "executed", Message: out.Message}
		if out.Result != nil {
			resp.TicketID = out.Result.TicketID
		}
		return resp, nil
	case confirm.StatusCancelled:
		return &ConfirmResponse{Status: "cancelled", Message: out.Message}, nil
	default:
		return &ConfirmResponse{Status: "error", Message: out.Message}, ErrDenied
	}
}
