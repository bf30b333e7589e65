// snapshot.go — MCP schema for web_agent_snapshot.
package schema

import "github.com/dev-console/webagent-mcp/internal/mcp"

// SnapshotToolSchema returns the MCP tool definition for building a state
// packet on demand, honoring the caller's include flags literally (spec.md
// §4.2 snapshot()).
func SnapshotToolSchema() mcp.MCPTool {
	return mcp.MCPTool{
		Name:        "web_agent_snapshot",
		Description: "Build a state packet for an active session. Absent include flags default to false (unlike step(), which falls back to the session's capture profile).",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"session_id":      map[string]any{"type": "string"},
				"include_dom":     map[string]any{"type": "boolean"},
				"include_ax":      map[string]any{"type": "boolean"},
				"include_network": map[string]any{"type": "boolean"},
				"include_frames":  map[string]any{"type": "boolean"},
				"max_frames": map[string]any{
					"type":    "integer",
					"minimum": 1,
					"maximum": 64,
				},
			},
			"required": []string{"session_id"},
		},
	}
}
