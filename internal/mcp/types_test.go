package mcp

import (
	"encoding/json"
	"testing"
	"time"
)

func TestServerConfigTransportTypes(t *testing.T) {
	tests := []struct {
		name      string
		transport TransportType
	}{
		{"stdio", TransportStdio},
		{"http", TransportHTTP},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &ServerConfig{
				ID:        "test",
				Name:      "Test Server",
				Transport: tt.transport,
			}

			if cfg.Transport != tt.transport {
				t.Errorf("expected transport %v, got %v", tt.transport, cfg.Transport)
			}
		})
	}
}

func TestServerConfigJSON(t *testing.T) {
	cfg := &ServerConfig{
		ID:        "test-server",
		Name:      "Test Server",
		Transport: TransportStdio,
		Command:   "/usr/bin/mcp-server",
		Args:      []string{"--config", "test.yaml"},
		Env:       map[string]string{"DEBUG": "true"},
		WorkDir:   "/tmp",
		Timeout:   30 * time.Second,
		AutoStart: true,
	}

	data, err := json.Marshal(cfg)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	var decoded ServerConfig
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}

	if decoded.ID != cfg.ID {
		t.Errorf("expected ID %q, got %q", cfg.ID, decoded.ID)
	}
	if decoded.Command != cfg.Command {
		t.Errorf("expected Command %q, got %q", cfg.Command, decoded.Command)
	}
	if len(decoded.Args) != len(cfg.Args) {
		t.Errorf("expected %d args, got %d", len(cfg.Args), len(decoded.Args))
	}
}

func TestHTTPServerConfigJSON(t *testing.T) {
	cfg := &ServerConfig{
		ID:        "http-server",
		Name:      "HTTP Server",
		Transport: TransportHTTP,
		URL:       "https://mcp.example.com/api",
		Headers:   map[string]string{"Authorization": "Bearer token"},
		Timeout:   60 * time.Second,
	}

	data, err := json.Marshal(cfg)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	var decoded ServerConfig
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}

	if decoded.URL != cfg.URL {
		t.Errorf("expected URL %q, got %q", cfg.URL, decoded.URL)
	}
	if decoded.Headers["Authorization"] != "Bearer token" {
		t.Error("expected Authorization header")
	}
}

func TestServerConfigValidateStdioPathTraversal(t *testing.T) {
	cfg := &ServerConfig{
		ID:        "test",
		Transport: TransportStdio,
		Command:   "../../etc/passwd",
	}

	if err := cfg.Validate(); err == nil {
		t.Error("expected error for path traversal in command")
	}
}

func TestServerConfigValidateStdioShellMetachars(t *testing.T) {
	cfg := &ServerConfig{
		ID:        "test",
		Transport: TransportStdio,
		Command:   "mcp-server",
		Args:      []string{"--config", "test.yaml; rm -rf /"},
	}

	if err := cfg.Validate(); err == nil {
		t.Error("expected error for shell metacharacters in args")
	}
}

func TestServerConfigValidateHTTPRequiresScheme(t *testing.T) {
	cfg := &ServerConfig{
		ID:        "test",
		Transport: TransportHTTP,
		URL:       "mcp.example.com",
	}

	if err := cfg.Validate(); err == nil {
		t.Error("expected error for URL missing http(s) scheme")
	}
}

func TestMCPToolJSON(t *testing.T) {
	tool := &MCPTool{
		Name:        "search",
		Description: "Search for files",
		InputSchema: json.RawMessage(`{"type":"object","properties":{"query":{"type":"string"}}}`),
	}

	data, err := json.Marshal(tool)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	var decoded MCPTool
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}

	if decoded.Name != tool.Name {
		t.Errorf("expected Name %q, got %q", tool.Name, decoded.Name)
	}
	if decoded.Description != tool.Description {
		t.Errorf("expected Description %q, got %q", tool.Description, decoded.Description)
	}
}

func TestJSONRPCRequestJSON(t *testing.T) {
	req := &JSONRPCRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  "tools/call",
		Params:  json.RawMessage(`{"name":"search","arguments":{"query":"test"}}`),
	}

	data, err := json.Marshal(req)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	var decoded JSONRPCRequest
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}

	if decoded.JSONRPC != "2.0" {
		t.Errorf("expected JSONRPC '2.0', got %q", decoded.JSONRPC)
	}
	if decoded.Method != req.Method {
		t.Errorf("expected Method %q, got %q", req.Method, decoded.Method)
	}
}

func TestJSONRPCResponseJSON(t *testing.T) {
	resp := &JSONRPCResponse{
		JSONRPC: "2.0",
		ID:      1,
		Result:  json.RawMessage(`{"tools":[]}`),
	}

	data, err := json.Marshal(resp)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	var decoded JSONRPCResponse
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}

	if decoded.Error != nil {
		t.Error("expected no error in response")
	}
}

func TestJSONRPCResponseWithError(t *testing.T) {
	resp := &JSONRPCResponse{
		JSONRPC: "2.0",
		ID:      1,
		Error: &JSONRPCError{
			Code:    ErrCodeMethodNotFound,
			Message: "Method not found",
		},
	}

	data, err := json.Marshal(resp)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	var decoded JSONRPCResponse
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}

	if decoded.Error == nil {
		t.Fatal("expected error in response")
	}
	if decoded.Error.Code != ErrCodeMethodNotFound {
		t.Errorf("expected error code %d, got %d", ErrCodeMethodNotFound, decoded.Error.Code)
	}
}

func TestJSONRPCNotificationJSON(t *testing.T) {
	notif := &JSONRPCNotification{
		JSONRPC: "2.0",
		Method:  "notifications/toolListChanged",
	}

	data, err := json.Marshal(notif)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	var decoded JSONRPCNotification
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}

	if decoded.Method != notif.Method {
		t.Errorf("expected Method %q, got %q", notif.Method, decoded.Method)
	}
}

func TestJSONRPCErrorCodes(t *testing.T) {
	tests := []struct {
		code int
		name string
	}{
		{ErrCodeParseError, "ParseError"},
		{ErrCodeInvalidRequest, "InvalidRequest"},
		{ErrCodeMethodNotFound, "MethodNotFound"},
		{ErrCodeInvalidParams, "InvalidParams"},
		{ErrCodeInternalError, "InternalError"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := &JSONRPCError{
				Code:    tt.code,
				Message: tt.name + " error",
			}

			if err.Code != tt.code {
				t.Errorf("expected code %d, got %d", tt.code, err.Code)
			}
		})
	}
}

func TestInitializeResultJSON(t *testing.T) {
	result := &InitializeResult{
		ProtocolVersion: "2024-11-05",
		Capabilities: Capabilities{
			Tools: &ToolsCapability{ListChanged: true},
		},
		ServerInfo: ServerInfo{
			Name:    "Test Server",
			Version: "1.0.0",
		},
	}

	data, err := json.Marshal(result)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	var decoded InitializeResult
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}

	if decoded.ProtocolVersion != result.ProtocolVersion {
		t.Errorf("expected ProtocolVersion %q, got %q", result.ProtocolVersion, decoded.ProtocolVersion)
	}
	if decoded.ServerInfo.Name != result.ServerInfo.Name {
		t.Errorf("expected ServerInfo.Name %q, got %q", result.ServerInfo.Name, decoded.ServerInfo.Name)
	}
	if decoded.Capabilities.Tools == nil || !decoded.Capabilities.Tools.ListChanged {
		t.Error("expected Tools capability with ListChanged true")
	}
}

func TestListToolsResultJSON(t *testing.T) {
	result := &ListToolsResult{
		Tools: []*MCPTool{
			{Name: "search", Description: "Search for files"},
			{Name: "fetch", Description: "Fetch a URL"},
		},
	}

	data, err := json.Marshal(result)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	var decoded ListToolsResult
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}

	if len(decoded.Tools) != 2 {
		t.Fatalf("expected 2 tools, got %d", len(decoded.Tools))
	}
}
