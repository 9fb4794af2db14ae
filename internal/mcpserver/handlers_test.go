package mcpserver

import (
	"context"
	"regexp"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mbd888/riskops/internal/access"
	"github.com/mbd888/riskops/internal/audit"
	"github.com/mbd888/riskops/internal/chat"
	"github.com/mbd888/riskops/internal/confirm"
	"github.com/mbd888/riskops/internal/guardrail"
	"github.com/mbd888/riskops/internal/llm"
	"github.com/mbd888/riskops/internal/oms"
	"github.com/mbd888/riskops/internal/riskapi"
	"github.com/mbd888/riskops/internal/tools"
)

// --- Test helpers ---

func newTestSetup(t *testing.T, operator string) (*Handlers, *oms.Simulated) {
	t.Helper()
	dir := access.NewSeededDirectory()
	rec := audit.NewRecorder(audit.NewMemorySink(), nil)
	riskClient := riskapi.NewSimulated("https://risk.test")
	omsClient := oms.NewSimulated()
	d := chat.NewDispatcher(riskClient, omsClient, nil, nil)
	broker := confirm.NewBroker(confirm.NewMemoryStore(), guardrail.NewPolicy(dir), guardrail.Validate, d, rec, nil)
	svc := chat.NewService(llm.NewOffline(), dir, broker, d, riskClient, rec, nil)
	return NewHandlers(svc, operator), omsClient
}

func makeRequest(args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	if args == nil {
		args = map[string]any{}
	}
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, result.Content, "expected at least one content block")
	tc, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected TextContent, got %T", result.Content[0])
	return tc.Text
}

var confirmID = regexp.MustCompile(`CONFIRM_[0-9A-F]{12}`)

func TestNewMCPServer_RegistersAllTools(t *testing.T) {
	h, _ := newTestSetup(t, "demo")
	s := NewMCPServer(h.svc, "demo", "test")
	require.NotNil(t, s)
}

func TestTool_GetMetric(t *testing.T) {
	h, _ := newTestSetup(t, "demo")

	result, err := h.Tool(tools.NameGetMetric)(context.Background(), makeRequest(map[string]any{"book": "PM_BOOK1", "metric": "VaR"}))
	require.NoError(t, err)
	assert.False(t, result.IsError)
	text := resultText(t, result)
	assert.Contains(t, text, `"book": "PM_BOOK1"`)
	assert.Contains(t, text, "1250000")
}

func TestTool_MissingArgument(t *testing.T) {
	h, _ := newTestSetup(t, "demo")

	result, err := h.Tool(tools.NameGetExplain)(context.Background(), makeRequest(nil))
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, resultText(t, result), "alert_id")
}

func TestTool_ForeignBookRejected(t *testing.T) {
	h, _ := newTestSetup(t, "demo")

	result, err := h.Tool(tools.NameRunStress)(context.Background(), makeRequest(map[string]any{"book": "HF_BOOK1"}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, resultText(t, result), "HF_BOOK1")
}

func TestTool_RunbookFormatted(t *testing.T) {
	h, _ := newTestSetup(t, "demo")

	result, err := h.Tool(tools.NameGetRunbook)(context.Background(), makeRequest(map[string]any{"scenario": "data latency"}))
	require.NoError(t, err)
	text := resultText(t, result)
	assert.Contains(t, text, "Steps:")
	assert.Contains(t, text, "  1. ")
}

func TestHaltFlow_ConfirmExecutes(t *testing.T) {
	h, omsClient := newTestSetup(t, "demo")
	ctx := context.Background()

	result, err := h.Tool(tools.NameHaltTrading)(ctx, makeRequest(map[string]any{"desk": "TECH_DESK", "reason": "order-flow anomaly on open"}))
	require.NoError(t, err)
	require.False(t, result.IsError, resultText(t, result))
	id := confirmID.FindString(resultText(t, result))
	require.NotEmpty(t, id)

	st, err := omsClient.Status(ctx)
	require.NoError(t, err)
	assert.Empty(t, st.ActiveHalts, "halt must wait for confirmation")

	result, err = h.HandleConfirmAction(ctx, makeRequest(map[string]any{"confirm_id": id, "answer": "yes"}))
	require.NoError(t, err)
	require.False(t, result.IsError, resultText(t, result))
	assert.Contains(t, resultText(t, result), "Status: executed")

	st, err = omsClient.Status(ctx)
	require.NoError(t, err)
	require.Len(t, st.ActiveHalts, 1)
	assert.Equal(t, "demo", st.ActiveHalts[0].RequestedBy)

	status, err := h.Tool(tools.NameGetHaltStatus)(ctx, makeRequest(nil))
	require.NoError(t, err)
	assert.Contains(t, resultText(t, status), "Active halts: 1")

	result, err = h.HandleConfirmAction(ctx, makeRequest(map[string]any{"confirm_id": id, "answer": "yes"}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestHaltFlow_OperatorWithoutRole(t *testing.T) {
	h, _ := newTestSetup(t, "user1")

	result, err := h.Tool(tools.NameHaltTrading)(context.Background(), makeRequest(map[string]any{"book": "PM_BOOK1", "reason": "order-flow anomaly on open"}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, resultText(t, result), "You lack permission to halt trading")
}

func TestConfirmAction_Validation(t *testing.T) {
	h, _ := newTestSetup(t, "demo")

	result, err := h.HandleConfirmAction(context.Background(), makeRequest(map[string]any{"confirm_id": "CONFIRM_000000000000"}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, resultText(t, result), "required")

	result, err = h.HandleConfirmAction(context.Background(), makeRequest(map[string]any{"confirm_id": "CONFIRM_000000000000", "answer": "no"}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, resultText(t, result), "not found")
}
