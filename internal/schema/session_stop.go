// session_stop.go — MCP schema for web_agent_session_stop.
package schema

import "github.com/dev-console/webagent-mcp/internal/mcp"

// SessionStopToolSchema returns the MCP tool definition for idempotently
// tearing down a session (spec.md §4.2 stop()).
func SessionStopToolSchema() mcp.MCPTool {
	return mcp.MCPTool{
		Name:        "web_agent_session_stop",
		Description: "Stop a session, releasing its browser. Idempotent: stopping an already-stopped or unknown session is a no-op.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"session_id": map[string]any{"type": "string"},
				"preserve": map[string]any{
					"type":        "boolean",
					"description": "Keep the trace log and its index on disk instead of deleting them (default: false).",
				},
			},
			"required": []string{"session_id"},
		},
	}
}
