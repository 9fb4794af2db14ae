package mcpserver

import "github.com/mark3labs/mcp-go/mcp"

// ToolConfirmAction redeems a confirmation returned by halt_trading. The
// risk tools themselves are defined in internal/tools.
var ToolConfirmAction = mcp.NewTool("confirm_action",
	mcp.WithDescription(
		"Approve or cancel a pending privileged action such as a trading halt. "+
			"halt_trading never executes directly; it returns a confirmation ID that must be "+
			"confirmed here within 5 minutes. Only the operator who requested the action can confirm it."),
	mcp.WithString("confirm_id",
		mcp.Required(),
		mcp.Description("Confirmation ID returned by halt_trading (e.g. 'CONFIRM_1A2B3C4D5E6F')")),
	mcp.WithString("answer",
		mcp.Required(),
		mcp.Description("'yes' to execute the action, 'no' to cancel it"),
		mcp.Enum("yes", "no")),
)
