// timeout.go — Per-request timeout logic for MCP tool calls.
package bridge

import (
	"encoding/json"
	"time"
)

// Timeout constants for different tool categories.
const (
	FastTimeout  = 10 * time.Second
	SlowTimeout  = 45 * time.Second
	BlockingPoll = 65 * time.Second
)

// ToolCallTimeout returns the per-request timeout based on the JSON-RPC
// method and tool name. session_create and step round-trip to a live
// browser (navigation, action dispatch) and get the slow budget; snapshot
// and replay read in-memory/on-disk state and get the fast budget;
// session_stop tears a browser down and sits between the two.
//
// method is the JSON-RPC method (e.g. "tools/call", "resources/read").
// params is the raw JSON of the request params.
func ToolCallTimeout(method string, params json.RawMessage) time.Duration {
	if method != "tools/call" {
		return FastTimeout
	}

	var p struct {
		Name string `json:"name"`
	}
	if json.Unmarshal(params, &p) != nil {
		return FastTimeout
	}

	switch p.Name {
	case "web_agent_session_create", "web_agent_step":
		return SlowTimeout
	case "web_agent_session_stop":
		return SlowTimeout
	case "web_agent_snapshot", "web_agent_replay":
		return FastTimeout
	default:
		return FastTimeout
	}
}

// ExtractToolAction extracts the tool name and, for web_agent_step, the
// action parameter from a tools/call request. Returns empty strings for
// non-tools/call methods, other tools, or if parsing fails. Used for
// request-scoped log fields, not for dispatch.
func ExtractToolAction(method string, params json.RawMessage) (toolName, action string) {
	if method != "tools/call" {
		return "", ""
	}
	var p struct {
		Name      string          `json:"name"`
		Arguments json.RawMessage `json:"arguments"`
	}
	if json.Unmarshal(params, &p) != nil {
		return "", ""
	}
	if p.Name != "web_agent_step" {
		return p.Name, ""
	}
	var a struct {
		Action string `json:"action"`
	}
	_ = json.Unmarshal(p.Arguments, &a)
	return p.Name, a.Action
}
