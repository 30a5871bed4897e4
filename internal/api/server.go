package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"clawguard/pkg/logging"

	"github.com/mark3labs/mcp-go/server"
)

// Server exposes the tools over MCP's SSE transport.
type Server struct {
	addr      string
	mcpServer *server.MCPServer
	sseServer *server.SSEServer
	log       *logging.Logger
}

// NewServer creates an MCP server with every tool registered.
func NewServer(addr, version string, tools *Tools, log *logging.Logger) *Server {
	mcpServer := server.NewMCPServer(
		"clawguard",
		version,
		server.WithToolCapabilities(true),
	)
	mcpServer.AddTools(tools.ServerTools()...)

	sseServer := server.NewSSEServer(
		mcpServer,
		server.WithBaseURL(fmt.Sprintf("http://%s", addr)),
		server.WithSSEEndpoint("/sse"),
		server.WithMessageEndpoint("/message"),
		server.WithKeepAlive(true),
		server.WithKeepAliveInterval(30*time.Second),
	)

	return &Server{
		addr:      addr,
		mcpServer: mcpServer,
		sseServer: sseServer,
		log:       log.Named("API"),
	}
}

// MCPServer returns the underlying server, for in-process clients and tests.
func (s *Server) MCPServer() *server.MCPServer { return s.mcpServer }

// Run serves until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	s.log.Info("Starting MCP server on %s", s.addr)

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.sseServer.Start(s.addr)
	}()

	select {
	case err := <-errCh:
		if err == nil || errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("MCP server failed: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.sseServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("MCP server shutdown failed: %w", err)
	}
	s.log.Info("MCP server stopped")
	return nil
}
