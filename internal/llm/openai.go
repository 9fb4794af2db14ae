package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	openai "github.com/sashabaranov/go-openai"

	"github.com/mbd888/riskops/internal/traces"
)

const (
	temperature = 0.7
	maxTokens   = 2048
)

// OpenAI calls an OpenAI-compatible chat completions API.
type OpenAI struct {
	client *openai.Client
	model  string
	logger *slog.Logger
}

// NewOpenAI creates a collaborator. baseURL may be empty for the public
// API; otherwise it is the API root including any /v1 suffix.
func NewOpenAI(apiKey, baseURL, model string, logger *slog.Logger) *OpenAI {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return newOpenAIWithClient(openai.NewClientWithConfig(cfg), model, logger)
}

func newOpenAIWithClient(client *openai.Client, model string, logger *slog.Logger) *OpenAI {
	if logger == nil {
		logger = slog.Default()
	}
	return &OpenAI{client: client, model: model, logger: logger}
}

func (o *OpenAI) Name() string { return "openai" }

func (o *OpenAI) Chat(ctx context.Context, req *Request) (reply *Reply, err error) {
	ctx, span := traces.StartSpan(ctx, "llm.chat", traces.Provider(o.Name()))
	defer func() { traces.End(span, err) }()

	ctx, cancel := context.WithTimeout(ctx, TimeoutCall)
	defer cancel()

	system, err := systemPrompt(req)
	if err != nil {
		return nil, err
	}
	messages := make([]openai.ChatCompletionMessage, 0, len(req.Messages)+1)
	messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: system})
	for _, m := range req.Messages {
		messages = append(messages, openai.ChatCompletionMessage{Role: m.Role, Content: m.Content})
	}

	chatReq := openai.ChatCompletionRequest{
		Model:       o.model,
		Messages:    messages,
		Temperature: temperature,
		MaxTokens:   maxTokens,
	}
	for _, spec := range req.Tools {
		chatReq.Tools = append(chatReq.Tools, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        spec.Tool.Name,
				Description: spec.Tool.Description,
				Parameters:  spec.Tool.InputSchema,
			},
		})
	}

	resp, err := o.client.CreateChatCompletion(ctx, chatReq)
	if err != nil {
		return nil, fmt.Errorf("openai api call: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("openai api call: no choices returned")
	}

	msg := resp.Choices[0].Message
	reply = &Reply{Text: msg.Content}
	for _, tc := range msg.ToolCalls {
		args := map[string]any{}
		if tc.Function.Arguments != "" {
			if err := json.Unmarshal([]byte(tc.Function.Arguments), &args); err != nil {
				o.logger.Warn("dropping tool call with malformed arguments", "tool", tc.Function.Name, "error", err)
				continue
			}
		}
		reply.ToolCalls = append(reply.ToolCalls, ToolCall{Name: tc.Function.Name, Args: args})
	}
	if reply.Text == "" {
		reply.Text = fallbackText(len(reply.ToolCalls) > 0)
	}
	return reply, nil
}

// systemPrompt appends the request context as JSON to the system prompt.
func systemPrompt(req *Request) (string, error) {
	if req.Context == nil {
		return req.System, nil
	}
	ctxJSON, err := json.MarshalIndent(req.Context, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal context: %w", err)
	}
	return req.System + "\n\n## Context\nYou have access to the following context information:\n" + string(ctxJSON), nil
}

func fallbackText(hasTools bool) string {
	if hasTools {
		return "Let me check that for you..."
	}
	return "I understand. How can I help you with risk operations?"
}
