package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
)

// Manager manages multiple MCP server connections and is the sole surface
// toolserver.MCPConnector depends on: ToolSchemas is how a GEPA run's fixed
// tool inventory gets discovered in the first place.
type Manager struct {
	config  *Config
	logger  *slog.Logger
	clients map[string]*Client
	mu      sync.RWMutex
}

// Config holds the MCP manager configuration.
type Config struct {
	Enabled bool            `yaml:"enabled"`
	Servers []*ServerConfig `yaml:"servers"`
}

// NewManager creates a new MCP manager.
func NewManager(cfg *Config, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}

	return &Manager{
		config:  cfg,
		logger:  logger.With("component", "mcp"),
		clients: make(map[string]*Client),
	}
}

// Start connects to all configured MCP servers with auto_start enabled.
func (m *Manager) Start(ctx context.Context) error {
	if m.config == nil || !m.config.Enabled {
		m.logger.Debug("MCP disabled")
		return nil
	}

	for _, serverCfg := range m.config.Servers {
		if !serverCfg.AutoStart {
			continue
		}

		if err := m.Connect(ctx, serverCfg.ID); err != nil {
			m.logger.Error("failed to connect to MCP server",
				"server", serverCfg.ID,
				"error", err)
			// Continue with other servers
		}
	}

	return nil
}

// Stop disconnects from all MCP servers.
func (m *Manager) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for id, client := range m.clients {
		if err := client.Close(); err != nil {
			m.logger.Error("failed to close MCP client",
				"server", id,
				"error", err)
		}
		delete(m.clients, id)
	}

	return nil
}

// Connect connects to a specific MCP server by ID.
func (m *Manager) Connect(ctx context.Context, serverID string) error {
	// Find server config
	var serverCfg *ServerConfig
	for _, cfg := range m.config.Servers {
		if cfg.ID == serverID {
			serverCfg = cfg
			break
		}
	}

	if serverCfg == nil {
		return fmt.Errorf("server %q not found in config", serverID)
	}

	// Check if already connected
	m.mu.RLock()
	if _, exists := m.clients[serverID]; exists {
		m.mu.RUnlock()
		return nil
	}
	m.mu.RUnlock()

	// Create and connect client
	client := NewClient(serverCfg, m.logger)
	if err := client.Connect(ctx); err != nil {
		return err
	}

	m.mu.Lock()
	m.clients[serverID] = client
	m.mu.Unlock()

	m.logger.Info("connected to MCP server",
		"server", serverID,
		"name", client.ServerInfo().Name)

	return nil
}

// Disconnect disconnects from a specific MCP server.
func (m *Manager) Disconnect(serverID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	client, exists := m.clients[serverID]
	if !exists {
		return nil
	}

	if err := client.Close(); err != nil {
		return err
	}

	delete(m.clients, serverID)
	m.logger.Info("disconnected from MCP server", "server", serverID)

	return nil
}

// Client returns a client for a specific server.
func (m *Manager) Client(serverID string) (*Client, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	client, exists := m.clients[serverID]
	return client, exists
}

// Clients returns all connected clients.
func (m *Manager) Clients() map[string]*Client {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make(map[string]*Client, len(m.clients))
	for id, client := range m.clients {
		result[id] = client
	}
	return result
}

// ToolSchema represents the JSON schema for a tool, used by LLMs.
type ToolSchema struct {
	ServerID    string          `json:"server_id"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	InputSchema json.RawMessage `json:"input_schema"`
}

// ToolSchemas returns tool schemas suitable for LLM tool definitions.
func (m *Manager) ToolSchemas() []ToolSchema {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var schemas []ToolSchema
	for id, client := range m.clients {
		for _, tool := range client.Tools() {
			schemas = append(schemas, ToolSchema{
				ServerID:    id,
				Name:        tool.Name,
				Description: tool.Description,
				InputSchema: tool.InputSchema,
			})
		}
	}
	return schemas
}
