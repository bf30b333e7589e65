// session_create.go — MCP schema for web_agent_session_create.
package schema

import "github.com/dev-console/webagent-mcp/internal/mcp"

// SessionCreateToolSchema returns the MCP tool definition for starting a
// new browser-control session (spec.md §4.1 create(), §6 schema constraints).
func SessionCreateToolSchema() mcp.MCPTool {
	return mcp.MCPTool{
		Name:        "web_agent_session_create",
		Description: "Create a browser-control session and navigate to target_url. Returns the session id, trace id, capability report, and the initial state packet.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"target_url": map[string]any{
					"type":        "string",
					"description": "URL to navigate the new session to. http/https only, max 2048 chars.",
					"maxLength":   2048,
				},
				"viewport": map[string]any{
					"type":        "object",
					"description": "Optional viewport dimensions.",
					"properties": map[string]any{
						"width":  map[string]any{"type": "integer", "minimum": 320, "maximum": 7680},
						"height": map[string]any{"type": "integer", "minimum": 200, "maximum": 4320},
					},
				},
				"storage_state": map[string]any{
					"type":        "string",
					"description": "Optional path to a persisted storage-state file to restore before navigation.",
				},
				"capture_profile": map[string]any{
					"type":        "string",
					"description": "Which observations default to included.",
					"enum":        []string{"adaptive", "dom_only", "frames_only"},
				},
				"policy_mode": map[string]any{
					"type":        "string",
					"description": "model_owns_action lets every action through; deterministic blocks unsafe-scheme navigations.",
					"enum":        []string{"model_owns_action", "deterministic"},
				},
				"max_steps": map[string]any{
					"type":    "integer",
					"minimum": 1,
					"maximum": 50000,
				},
				"max_duration_ms": map[string]any{
					"type":    "integer",
					"minimum": 1000,
				},
				"allowlist": map[string]any{
					"type":        "array",
					"description": "Host allowlist entries; exact host or *.suffix wildcard.",
					"items":       map[string]any{"type": "string"},
				},
				"denylist": map[string]any{
					"type":        "array",
					"description": "Host denylist entries; exact host or *.suffix wildcard.",
					"items":       map[string]any{"type": "string"},
				},
				"capture": map[string]any{
					"type":        "object",
					"description": "Capture tuning for the session's screencast.",
					"properties": map[string]any{
						"jpeg_quality":     map[string]any{"type": "integer", "minimum": 1, "maximum": 100},
						"max_width":        map[string]any{"type": "integer"},
						"max_height":       map[string]any{"type": "integer"},
						"max_frame_budget_ms": map[string]any{"type": "integer", "minimum": 1, "maximum": 60000},
					},
				},
			},
			"required": []string{"target_url"},
		},
	}
}
