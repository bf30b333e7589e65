package config

import (
	"testing"

	"github.com/dev-console/webagent-mcp/internal/model"
	"github.com/dev-console/webagent-mcp/internal/obslog"
)

func TestLoadDefaults(t *testing.T) {
	getenv := func(string) string { return "" }
	cfg := Load(getenv, obslog.Nop())

	if cfg.Transport != TransportStdio {
		t.Errorf("Transport = %q, want stdio", cfg.Transport)
	}
	if cfg.MaxSessions != 4 {
		t.Errorf("MaxSessions = %d, want 4", cfg.MaxSessions)
	}
	if cfg.PolicyMode != model.PolicyModelOwnsAction {
		t.Errorf("PolicyMode = %q, want model_owns_action", cfg.PolicyMode)
	}
	if cfg.SessionMaxAgeMs != 30*60*1000 {
		t.Errorf("SessionMaxAgeMs = %d, want 1800000", cfg.SessionMaxAgeMs)
	}
}

func TestLoadDefensiveFallback(t *testing.T) {
	env := map[string]string{
		"MAX_SESSIONS":       "not-a-number",
		"TRANSPORT":          "carrier-pigeon",
		"POLICY_MODE":        "bogus",
		"SESSION_MAX_AGE_MS": "-5",
	}
	getenv := func(k string) string { return env[k] }
	cfg := Load(getenv, obslog.Nop())

	if cfg.MaxSessions != 4 {
		t.Errorf("MaxSessions = %d, want fallback 4", cfg.MaxSessions)
	}
	if cfg.Transport != TransportStdio {
		t.Errorf("Transport = %q, want fallback stdio", cfg.Transport)
	}
	if cfg.PolicyMode != model.PolicyModelOwnsAction {
		t.Errorf("PolicyMode = %q, want fallback model_owns_action", cfg.PolicyMode)
	}
	if cfg.SessionMaxAgeMs != 30*60*1000 {
		t.Errorf("SessionMaxAgeMs = %d, want fallback 1800000", cfg.SessionMaxAgeMs)
	}
}

func TestLoadAllowDenyLists(t *testing.T) {
	env := map[string]string{
		"ALLOWLIST": "example.com, *.trusted.org ,",
		"DENYLIST":  "evil.example",
	}
	getenv := func(k string) string { return env[k] }
	cfg := Load(getenv, obslog.Nop())

	if len(cfg.Allowlist) != 2 || cfg.Allowlist[0] != "example.com" || cfg.Allowlist[1] != "*.trusted.org" {
		t.Errorf("Allowlist = %v, want [example.com *.trusted.org]", cfg.Allowlist)
	}
	if len(cfg.Denylist) != 1 || cfg.Denylist[0] != "evil.example" {
		t.Errorf("Denylist = %v, want [evil.example]", cfg.Denylist)
	}
}
