// timeout_test.go — Tests for ToolCallTimeout and ExtractToolAction.
package bridge

import (
	"encoding/json"
	"testing"
	"time"
)

func TestToolCallTimeout(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		method   string
		params   string
		expected time.Duration
	}{
		{"ping gets fast timeout", "ping", `{}`, FastTimeout},
		{"resources/read gets fast timeout", "resources/read", `{}`, FastTimeout},
		{"tools/list gets fast timeout", "tools/list", `{}`, FastTimeout},
		{"session_create gets slow timeout", "tools/call", `{"name":"web_agent_session_create","arguments":{"target_url":"https://example.com"}}`, SlowTimeout},
		{"step gets slow timeout", "tools/call", `{"name":"web_agent_step","arguments":{"session_id":"s1","action":"click"}}`, SlowTimeout},
		{"session_stop gets slow timeout", "tools/call", `{"name":"web_agent_session_stop","arguments":{"session_id":"s1"}}`, SlowTimeout},
		{"snapshot gets fast timeout", "tools/call", `{"name":"web_agent_snapshot","arguments":{"session_id":"s1"}}`, FastTimeout},
		{"replay gets fast timeout", "tools/call", `{"name":"web_agent_replay","arguments":{"trace_id":"t1"}}`, FastTimeout},
		{"malformed params gets fast timeout", "tools/call", `{bad json}`, FastTimeout},
		{"unknown tool gets fast timeout", "tools/call", `{"name":"unknown_tool","arguments":{}}`, FastTimeout},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := ToolCallTimeout(tc.method, json.RawMessage(tc.params))
			if got != tc.expected {
				t.Errorf("ToolCallTimeout(%s, %s) = %v, want %v", tc.method, tc.params, got, tc.expected)
			}
		})
	}
}

func TestExtractToolAction(t *testing.T) {
	t.Parallel()

	t.Run("non-tools/call returns empty", func(t *testing.T) {
		name, action := ExtractToolAction("ping", json.RawMessage(`{}`))
		if name != "" || action != "" {
			t.Errorf("expected empty, got name=%q action=%q", name, action)
		}
	})

	t.Run("tools/call step returns action", func(t *testing.T) {
		name, action := ExtractToolAction("tools/call", json.RawMessage(`{"name":"web_agent_step","arguments":{"session_id":"s1","action":"navigate"}}`))
		if name != "web_agent_step" || action != "navigate" {
			t.Errorf("expected web_agent_step/navigate, got name=%q action=%q", name, action)
		}
	})

	t.Run("tools/call non-step returns empty action", func(t *testing.T) {
		name, action := ExtractToolAction("tools/call", json.RawMessage(`{"name":"web_agent_snapshot","arguments":{"session_id":"s1"}}`))
		if name != "web_agent_snapshot" || action != "" {
			t.Errorf("expected web_agent_snapshot/empty, got name=%q action=%q", name, action)
		}
	})

	t.Run("malformed params", func(t *testing.T) {
		name, action := ExtractToolAction("tools/call", json.RawMessage(`{bad`))
		if name != "" || action != "" {
			t.Errorf("expected empty for malformed, got name=%q action=%q", name, action)
		}
	})
}
