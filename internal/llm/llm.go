// Package llm adapts language models into the assistant's collaborator: given
// a system prompt, context and tool schema it returns text and proposed tool
// calls. Its output is untrusted.
package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mbd888/riskops/internal/tools"
)

// TimeoutCall bounds a single model call.
const TimeoutCall = 60 * time.Second

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one conversation turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ToolCall is a tool the model proposes to run.
type ToolCall struct {
	Name string         `json:"name"`
	Args map[string]any `json:"args"`
}

// Request is one exchange with the model. A nil Tools slice asks for text
// only.
type Request struct {
	System   string
	Context  any
	Tools    []tools.Spec
	Messages []Message
}

// Reply is the model's answer.
type Reply struct {
	Text      string
	ToolCalls []ToolCall
}

// Collaborator is the language model seen by the orchestrator.
type Collaborator interface {
	Name() string
	Chat(ctx context.Context, req *Request) (*Reply, error)
}

const resultMarker = " executed with result: "

// SummaryPrompt follows a tool result to ask for a user-facing answer.
const SummaryPrompt = "Please summarize the result and provide your analysis."

// ToolResult builds the assistant turn that carries a tool's output back to
// the model.
func ToolResult(tool string, result any) (Message, error) {
	b, err := json.Marshal(result)
	if err != nil {
		return Message{}, fmt.Errorf("marshal %s result: %w", tool, err)
	}
	return Message{Role: RoleAssistant, Content: "[Tool " + tool + resultMarker + string(b) + "]"}, nil
}
