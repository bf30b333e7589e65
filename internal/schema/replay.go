// replay.go — MCP schema for web_agent_replay.
package schema

import "github.com/dev-console/webagent-mcp/internal/mcp"

// ReplayToolSchema returns the MCP tool definition for reading back a
// trace's append-only event log (spec.md §4.6 filter()).
func ReplayToolSchema() mcp.MCPTool {
	return mcp.MCPTool{
		Name:        "web_agent_replay",
		Description: "Read back a trace's replay events, optionally filtered to an inclusive index range. Does not re-execute anything — this is audit reconstruction of observed events, not replay execution.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"trace_id": map[string]any{"type": "string"},
				"start": map[string]any{
					"type":        "integer",
					"minimum":     1,
					"description": "Inclusive lower index bound.",
				},
				"end": map[string]any{
					"type":        "integer",
					"minimum":     1,
					"description": "Inclusive upper index bound.",
				},
			},
			"required": []string{"trace_id"},
		},
	}
}
