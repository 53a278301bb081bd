// Package toolserver supplies the tool inventory a GEPA run optimizes, by
// querying one or more MCP servers for their tool schemas. Grounded on the
// teacher's internal/mcp Manager (internal/mcp/manager.go), reused nearly
// whole: an MCP server's tool list already carries exactly the
// name/description/input_schema triple gepa.Tool needs, so this package is a
// thin adapter rather than a new client.
package toolserver

import (
	"context"
	"fmt"

	"github.com/gepa-project/gepa/internal/mcp"
	"github.com/gepa-project/gepa/pkg/gepa"
)

// Connector supplies the fixed tool inventory for a run. GEPA only ever
// rewrites Tool.Description; Connector is how that inventory is discovered.
type Connector interface {
	ListTools(ctx context.Context) ([]gepa.Tool, error)
}

// MCPConnector lists tools across every MCP server a Manager is connected
// to, tagging each with its originating server.
type MCPConnector struct {
	manager *mcp.Manager
}

// NewMCPConnector wraps an already-started mcp.Manager.
func NewMCPConnector(manager *mcp.Manager) *MCPConnector {
	return &MCPConnector{manager: manager}
}

// ListTools flattens Manager.ToolSchemas into gepa.Tool, deriving each
// Tool.ID from its server and name so two servers may both expose a tool
// named e.g. "search" without colliding.
func (c *MCPConnector) ListTools(ctx context.Context) ([]gepa.Tool, error) {
	if c.manager == nil {
		return nil, fmt.Errorf("toolserver: no MCP manager configured")
	}
	schemas := c.manager.ToolSchemas()
	tools := make([]gepa.Tool, 0, len(schemas))
	for _, s := range schemas {
		tools = append(tools, gepa.Tool{
			ID:          fmt.Sprintf("%s/%s", s.ServerID, s.Name),
			Name:        s.Name,
			Description: s.Description,
			InputSchema: s.InputSchema,
			ServerID:    s.ServerID,
		})
	}
	return tools, nil
}

// StaticConnector serves a fixed, in-memory tool list. Used by tests and by
// one-shot CLI invocations (gepa run --tools tools.json) that never talk to
// a live MCP server.
type StaticConnector struct {
	Tools []gepa.Tool
}

// ListTools returns the configured tool list unchanged.
func (c StaticConnector) ListTools(ctx context.Context) ([]gepa.Tool, error) {
	return c.Tools, nil
}
