package schema

import "testing"

func TestAllToolsReturnsFiveTools(t *testing.T) {
	tools := AllTools()
	if len(tools) != 5 {
		t.Fatalf("AllTools() returned %d tools, want 5", len(tools))
	}
}

func TestAllToolsHasExpectedNames(t *testing.T) {
	want := map[string]bool{
		"web_agent_session_create": false,
		"web_agent_step":           false,
		"web_agent_snapshot":       false,
		"web_agent_session_stop":   false,
		"web_agent_replay":         false,
	}
	for _, tool := range AllTools() {
		if _, ok := want[tool.Name]; !ok {
			t.Errorf("unexpected tool name %q", tool.Name)
			continue
		}
		want[tool.Name] = true
		if tool.Description == "" {
			t.Errorf("tool %q has an empty description", tool.Name)
		}
		if tool.InputSchema == nil {
			t.Errorf("tool %q has a nil input schema", tool.Name)
		}
	}
	for name, seen := range want {
		if !seen {
			t.Errorf("expected tool %q was not present in AllTools()", name)
		}
	}
}

func TestSessionCreateRequiresTargetURL(t *testing.T) {
	tool := SessionCreateToolSchema()
	required, ok := tool.InputSchema["required"].([]string)
	if !ok {
		t.Fatalf("required field is not []string: %T", tool.InputSchema["required"])
	}
	if !contains(required, "target_url") {
		t.Errorf("required = %v, want target_url present", required)
	}
}

func TestStepRequiresSessionIDAndAction(t *testing.T) {
	tool := StepToolSchema()
	required, ok := tool.InputSchema["required"].([]string)
	if !ok {
		t.Fatalf("required field is not []string: %T", tool.InputSchema["required"])
	}
	for _, field := range []string{"session_id", "action"} {
		if !contains(required, field) {
			t.Errorf("required = %v, want %q present", required, field)
		}
	}
}

func contains(list []string, target string) bool {
	for _, v := range list {
		if v == target {
			return true
		}
	}
	return false
}
