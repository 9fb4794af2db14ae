package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/mbd888/riskops/internal/chat"
	"github.com/mbd888/riskops/internal/confirm"
	"github.com/mbd888/riskops/internal/logging"
	"github.com/mbd888/riskops/internal/oms"
	"github.com/mbd888/riskops/internal/runbooks"
	"github.com/mbd888/riskops/internal/tools"
)

// Handlers runs MCP tool calls through the chat service as one operator.
type Handlers struct {
	svc        *chat.Service
	operatorID string
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(svc *chat.Service, operatorID string) *Handlers {
	return &Handlers{svc: svc, operatorID: operatorID}
}

// Tool returns the handler for a named assistant tool. Privileged tools
// only create a confirmation.
func (h *Handlers) Tool(name string) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		inv, err := tools.Parse(name, req.GetArguments())
		if tools.RequiresConfirmation(name) {
			if errors.Is(err, tools.ErrUnknownTool) {
				return mcp.NewToolResultError(err.Error()), nil
			}
			text, id := h.svc.Propose(ctx, h.operatorID, inv)
			if id == "" {
				return mcp.NewToolResultError(text), nil
			}
			return mcp.NewToolResultText(text + "\n\nCall confirm_action with this ID to proceed."), nil
		}
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		result := h.svc.RunTool(ctx, h.operatorID, inv)
		if m, ok := result.(map[string]any); ok {
			if msg, ok := m["error"].(string); ok {
				return mcp.NewToolResultError(fmt.Sprintf("%s failed: %s", name, msg)), nil
			}
		}
		return mcp.NewToolResultText(format(result)), nil
	}
}

// HandleConfirmAction approves or cancels a pending confirmation.
func (h *Handlers) HandleConfirmAction(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := req.GetString("confirm_id", "")
	answer := req.GetString("answer", "")
	if id == "" || answer == "" {
		return mcp.NewToolResultError("confirm_id and answer are required"), nil
	}

	resp, err := h.svc.Confirm(ctx, chat.ConfirmRequest{UserID: h.operatorID, ConfirmID: id, Answer: answer})
	switch {
	case err == nil:
	case errors.Is(err, confirm.ErrNotFound):
		return mcp.NewToolResultError("Confirmation not found or already used: " + id), nil
	case errors.Is(err, confirm.ErrForbidden):
		return mcp.NewToolResultError("This confirmation belongs to another user"), nil
	case errors.Is(err, confirm.ErrExpired):
		return mcp.NewToolResultError("Confirmation expired. Request the action again."), nil
	case errors.Is(err, confirm.ErrInvalidAnswer):
		return mcp.NewToolResultError("answer must be 'yes' or 'no'"), nil
	case errors.Is(err, chat.ErrDenied):
		return mcp.NewToolResultError(resp.Message), nil
	case errors.Is(err, confirm.ErrExecutionFailed):
		return mcp.NewToolResultError("Execution failed; the action was not applied. Request it again."), nil
	default:
		logging.L(ctx).Error("confirm_action failed", "confirm_id", id, "error", err)
		return mcp.NewToolResultError("Confirmation could not be processed. Try again."), nil
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Status: %s\n", resp.Status))
	if resp.TicketID != "" {
		sb.WriteString(fmt.Sprintf("Ticket: %s\n", resp.TicketID))
	}
	sb.WriteString(resp.Message)
	return mcp.NewToolResultText(sb.String()), nil
}

func format(result any) string {
	switch v := result.(type) {
	case runbooks.Runbook:
		return formatRunbook(v)
	case *oms.Status:
		return formatHaltStatus(v)
	default:
		return formatJSON(v)
	}
}

func formatRunbook(rb runbooks.Runbook) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%s [%s]\n", rb.Title, rb.Severity))
	if rb.Description != "" {
		sb.WriteString(rb.Description + "\n")
	}
	if len(rb.Steps) > 0 {
		sb.WriteString("\nSteps:\n")
		for i, s := range rb.Steps {
			sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, s))
		}
	}
	if len(rb.Escalation) > 0 {
		sb.WriteString("\nEscalation:\n")
		for _, e := range rb.Escalation {
			sb.WriteString("  - " + e + "\n")
		}
	}
	if rb.SLA != "" {
		sb.WriteString("\nSLA: " + rb.SLA + "\n")
	}
	return sb.String()
}

func formatHaltStatus(st *oms.Status) string {
	if len(st.ActiveHalts) == 0 && len(st.RecentHalts) == 0 {
		return "No active or recent trading halts."
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Active halts: %d\n", len(st.ActiveHalts)))
	for _, h := range st.ActiveHalts {
		sb.WriteString(fmt.Sprintf("  %s  %s  by %s: %s\n", h.TicketID, describeTargets(h.Targets), h.RequestedBy, h.Reason))
	}
	if len(st.RecentHalts) > 0 {
		sb.WriteString(fmt.Sprintf("Recently lifted: %d\n", len(st.RecentHalts)))
		for _, h := range st.RecentHalts {
			sb.WriteString(fmt.Sprintf("  %s  %s  resumed by %s\n", h.TicketID, describeTargets(h.Targets), h.ResumedBy))
		}
	}
	return sb.String()
}

func describeTargets(t oms.Targets) string {
	var parts []string
	if t.Desk != "" {
		parts = append(parts, "desk="+t.Desk)
	}
	if t.Book != "" {
		parts = append(parts, "book="+t.Book)
	}
	if t.Symbol != "" {
		parts = append(parts, "symbol="+t.Symbol)
	}
	return strings.Join(parts, ",")
}

func formatJSON(v any) string {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(b)
}
