package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mbd888/riskops/internal/tools"
)

func newOpenAITestServer(t *testing.T, handler http.HandlerFunc) *OpenAI {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)

	cfg := openai.DefaultConfig("test-api-key")
	cfg.BaseURL = ts.URL + "/v1"
	return newOpenAIWithClient(openai.NewClientWithConfig(cfg), "gpt-4o-mini", nil)
}

func TestOpenAIChat_ToolCalls(t *testing.T) {
	var got openai.ChatCompletionRequest
	o := newOpenAITestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-api-key", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		resp := openai.ChatCompletionResponse{
			Model: "gpt-4o-mini",
			Choices: []openai.ChatCompletionChoice{{
				Message: openai.ChatCompletionMessage{
					Role: openai.ChatMessageRoleAssistant,
					ToolCalls: []openai.ToolCall{
						{ID: "c1", Type: openai.ToolTypeFunction, Function: openai.FunctionCall{
							Name: "halt_trading", Arguments: `{"book":"PM_BOOK1","reason":"order-flow anomaly"}`,
						}},
						{ID: "c2", Type: openai.ToolTypeFunction, Function: openai.FunctionCall{
							Name: "get_metric", Arguments: `{not json`,
						}},
					},
				},
				FinishReason: openai.FinishReasonToolCalls,
			}},
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	})

	reply, err := o.Chat(context.Background(), &Request{
		System:   "You are a risk assistant.",
		Context:  map[string]any{"user_role": "RISK"},
		Tools:    tools.Specs(),
		Messages: []Message{{Role: RoleUser, Content: "halt PM_BOOK1"}},
	})
	require.NoError(t, err)

	require.Len(t, reply.ToolCalls, 1)
	assert.Equal(t, "halt_trading", reply.ToolCalls[0].Name)
	assert.Equal(t, "PM_BOOK1", reply.ToolCalls[0].Args["book"])
	assert.Equal(t, "Let me check that for you...", reply.Text)

	require.Len(t, got.Messages, 2)
	assert.Equal(t, openai.ChatMessageRoleSystem, got.Messages[0].Role)
	assert.Contains(t, got.Messages[0].Content, `"user_role": "RISK"`)
	assert.Len(t, got.Tools, len(tools.Specs()))
}

func TestOpenAIChat_APIError(t *testing.T) {
	o := newOpenAITestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{"message": "Invalid API key", "type": "invalid_request_error"},
		})
	})

	_, err := o.Chat(context.Background(), &Request{Messages: []Message{{Role: RoleUser, Content: "hi"}}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "openai api call")
}

func TestOffline_Routes(t *testing.T) {
	o := NewOffline()
	ask := func(text string) *Reply {
		r, err := o.Chat(context.Background(), &Request{Tools: tools.Specs(), Messages: []Message{{Role: RoleUser, Content: text}}})
		require.NoError(t, err)
		return r
	}

	r := ask("Please halt trading on PM_BOOK1 because order-flow anomaly on open")
	require.Len(t, r.ToolCalls, 1)
	assert.Equal(t, tools.NameHaltTrading, r.ToolCalls[0].Name)
	assert.Equal(t, "PM_BOOK1", r.ToolCalls[0].Args["book"])
	assert.Equal(t, "order-flow anomaly on open", r.ToolCalls[0].Args["reason"])

	r = ask("What's the VaR for HF_BOOK1?")
	require.Len(t, r.ToolCalls, 1)
	assert.Equal(t, tools.NameGetMetric, r.ToolCalls[0].Name)
	assert.Equal(t, "VaR", r.ToolCalls[0].Args["metric"])

	r = ask("run a stress test on PM_BOOK2 with -15% shock")
	require.Len(t, r.ToolCalls, 1)
	assert.InDelta(t, -0.15, r.ToolCalls[0].Args["shock_pct"], 1e-9)

	r = ask("walk me through the data latency runbook")
	assert.Equal(t, "data latency", r.ToolCalls[0].Args["scenario"])

	r = ask("explain VAR_BREACH_12345")
	assert.Equal(t, "VAR_BREACH_12345", r.ToolCalls[0].Args["alert_id"])

	r = ask("what is the risk score for MSFT")
	assert.Equal(t, tools.NameScoreCompany, r.ToolCalls[0].Name)
	assert.Equal(t, "MSFT", r.ToolCalls[0].Args["symbol"])

	r = ask("hello there")
	assert.Empty(t, r.ToolCalls)
	assert.NotEmpty(t, r.Text)
}

func TestOffline_OnlyOfferedTools(t *testing.T) {
	r, err := NewOffline().Chat(context.Background(), &Request{
		Tools:    []tools.Spec{},
		Messages: []Message{{Role: RoleUser, Content: "halt PM_BOOK1 because things look bad"}},
	})
	require.NoError(t, err)
	assert.Empty(t, r.ToolCalls)
}

func TestOffline_Summarizes(t *testing.T) {
	res, err := ToolResult("get_metric", map[string]any{"value": 1250000})
	require.NoError(t, err)

	r, err := NewOffline().Chat(context.Background(), &Request{Messages: []Message{
		{Role: RoleUser, Content: "VaR PM_BOOK1"},
		res,
		{Role: RoleUser, Content: SummaryPrompt},
	}})
	require.NoError(t, err)
	assert.Contains(t, r.Text, "1250000")
	assert.Empty(t, r.ToolCalls)
}
