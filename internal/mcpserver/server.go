package mcpserver

import (
	"github.com/mark3labs/mcp-go/server"

	"github.com/mbd888/riskops/internal/chat"
	"github.com/mbd888/riskops/internal/tools"
)

// NewMCPServer creates an MCP server exposing every assistant tool, plus
// confirm_action, on behalf of a single operator.
func NewMCPServer(svc *chat.Service, operatorID, version string) *server.MCPServer {
	s := server.NewMCPServer("riskops", version)
	h := NewHandlers(svc, operatorID)

	for _, spec := range tools.Specs() {
		s.AddTool(spec.Tool, h.Tool(spec.Tool.Name))
	}
	s.AddTool(ToolConfirmAction, h.HandleConfirmAction)

	return s
}
