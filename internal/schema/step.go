// step.go — MCP schema for web_agent_step.
package schema

import "github.com/dev-console/webagent-mcp/internal/mcp"

// StepToolSchema returns the MCP tool definition for executing one action
// against an active session (spec.md §4.2 step(), §4.5 dispatch table).
func StepToolSchema() mcp.MCPTool {
	return mcp.MCPTool{
		Name:        "web_agent_step",
		Description: "Execute exactly one action against an active session and return the resulting state packet plus action outcome.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"session_id": map[string]any{"type": "string"},
				"action": map[string]any{
					"type": "string",
					"enum": []string{"navigate", "click", "hover", "type", "press", "scroll", "drag", "wait", "wait_for"},
				},
				"selector":  map[string]any{"type": "string"},
				"url":       map[string]any{"type": "string"},
				"text":      map[string]any{"type": "string"},
				"key":       map[string]any{"type": "string"},
				"x":         map[string]any{"type": "integer"},
				"y":         map[string]any{"type": "integer"},
				"delta_x":   map[string]any{"type": "number"},
				"delta_y":   map[string]any{"type": "number"},
				"timeout_ms": map[string]any{
					"type":    "integer",
					"minimum": 50,
					"maximum": 120000,
				},
				"max_actions_per_step": map[string]any{
					"type":        "integer",
					"minimum":     1,
					"maximum":     20,
					"description": "Executor accepts only 1 in phase 1.",
				},
				"capture": map[string]any{
					"type":        "object",
					"description": "Override which observations this step builds; omitted flags fall back to the session's capture profile defaults.",
					"properties": map[string]any{
						"include_dom":     map[string]any{"type": "boolean"},
						"include_ax":      map[string]any{"type": "boolean"},
						"include_network": map[string]any{"type": "boolean"},
						"include_frames":  map[string]any{"type": "boolean"},
						"max_frames":      map[string]any{"type": "integer", "minimum": 1, "maximum": 64},
					},
				},
				"confidence_gate": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"min_score": map[string]any{"type": "number", "minimum": 0, "maximum": 1},
					},
				},
			},
			"required": []string{"session_id", "action"},
		},
	}
}
