// schema.go — MCP tool schema assembler.
// Pure data — returns MCPTool structs with zero runtime dependencies.
package schema

import "github.com/dev-console/webagent-mcp/internal/mcp"

// AllTools returns the five MCP tool definitions this server exposes
// (spec.md §6 "Tool surface").
func AllTools() []mcp.MCPTool {
	return []mcp.MCPTool{
		SessionCreateToolSchema(),
		StepToolSchema(),
		SnapshotToolSchema(),
		SessionStopToolSchema(),
		ReplayToolSchema(),
	}
}
