package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
)

// Client is an MCP client that connects to a single server and discovers its
// tool inventory. It never calls tools, reads resources, or serves prompts:
// a GEPA run only ever needs a server's tool schemas to seed and score
// candidates, never the tools themselves.
type Client struct {
	config    *ServerConfig
	transport Transport
	logger    *slog.Logger

	// Cached tool list
	tools []*MCPTool
	mu    sync.RWMutex

	// Server info
	serverInfo ServerInfo
}

// NewClient creates a new MCP client.
func NewClient(cfg *ServerConfig, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		config:    cfg,
		transport: NewTransport(cfg),
		logger:    logger.With("mcp_server", cfg.ID),
	}
}

// Connect establishes the connection to the MCP server.
func (c *Client) Connect(ctx context.Context) error {
	// Connect transport
	if err := c.transport.Connect(ctx); err != nil {
		return fmt.Errorf("transport connect: %w", err)
	}

	// Initialize
	result, err := c.transport.Call(ctx, "initialize", map[string]any{
		"protocolVersion": "2024-11-05",
		"capabilities": map[string]any{
			"roots": map[string]any{
				"listChanged": true,
			},
		},
		"clientInfo": map[string]any{
			"name":    "gepa",
			"version": "1.0.0",
		},
	})
	if err != nil {
		c.transport.Close()
		return fmt.Errorf("initialize: %w", err)
	}

	var initResult InitializeResult
	if err := json.Unmarshal(result, &initResult); err != nil {
		c.transport.Close()
		return fmt.Errorf("parse initialize result: %w", err)
	}

	c.serverInfo = initResult.ServerInfo
	c.logger.Info("connected to MCP server",
		"name", c.serverInfo.Name,
		"version", c.serverInfo.Version,
		"protocol", initResult.ProtocolVersion)

	// Send initialized notification
	if err := c.transport.Notify(ctx, "notifications/initialized", nil); err != nil {
		c.logger.Warn("failed to send initialized notification", "error", err)
	}

	// Refresh capabilities
	if err := c.RefreshCapabilities(ctx); err != nil {
		c.logger.Warn("failed to refresh capabilities", "error", err)
	}

	return nil
}

// Close closes the connection to the MCP server.
func (c *Client) Close() error {
	return c.transport.Close()
}

// Config returns the server configuration.
func (c *Client) Config() *ServerConfig {
	return c.config
}

// ServerInfo returns information about the connected server.
func (c *Client) ServerInfo() ServerInfo {
	return c.serverInfo
}

// Connected returns whether the client is connected.
func (c *Client) Connected() bool {
	return c.transport.Connected()
}

// RefreshCapabilities refreshes the cached tool list.
func (c *Client) RefreshCapabilities(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	result, err := c.transport.Call(ctx, "tools/list", nil)
	if err != nil {
		return fmt.Errorf("tools/list: %w", err)
	}

	var resp ListToolsResult
	if err := json.Unmarshal(result, &resp); err != nil {
		return fmt.Errorf("parse tools/list result: %w", err)
	}
	c.tools = resp.Tools
	c.logger.Debug("refreshed tools", "count", len(c.tools))

	return nil
}

// Tools returns the cached tools.
func (c *Client) Tools() []*MCPTool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.tools
}

// Events returns the notification channel.
func (c *Client) Events() <-chan *JSONRPCNotification {
	return c.transport.Events()
}
