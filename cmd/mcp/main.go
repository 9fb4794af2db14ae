// riskops MCP server - exposes the risk assistant tools over stdio
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/mark3labs/mcp-go/server"

	"github.com/mbd888/riskops/internal/config"
	"github.com/mbd888/riskops/internal/logging"
	"github.com/mbd888/riskops/internal/mcpserver"
	appserver "github.com/mbd888/riskops/internal/server"
)

// Version is set by ldflags.
var Version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.NewWithWriter(os.Stderr, cfg.LogLevel, cfg.LogFormat)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	comp, err := appserver.NewComponents(ctx, cfg, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize: %v\n", err)
		os.Exit(1)
	}
	defer comp.Close()

	go comp.Sweeper.Start(ctx)
	defer comp.Sweeper.Stop()

	s := mcpserver.NewMCPServer(comp.Chat, cfg.MCPUserID, Version)
	if err := server.ServeStdio(s); err != nil {
		fmt.Fprintf(os.Stderr, "MCP server error: %v\n", err)
		os.Exit(1)
	}
}
