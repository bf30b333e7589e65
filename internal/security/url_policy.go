// url_policy.go — URL validation and host allow/deny matching (spec.md §6).
// Grounded on the teacher's defensive-parsing style (validate, don't panic;
// return a structured error list the caller can act on).
package security

import (
	"net/url"
	"strings"
)

// Allowed and disallowed URL schemes, per spec.md §6.
var (
	allowedSchemes     = map[string]bool{"http": true, "https": true}
	disallowedSchemes  = map[string]bool{"chrome": true, "file": true, "about": true}
	unsafeNavigatePfxs = []string{"javascript:", "data:", "file:", "about:", "chrome:"}
)

const maxURLLen = 2048

// ValidationResult mirrors the {ok, errors} shape used across spec.md §8's
// testable properties (validateUrl, validateAction).
type ValidationResult struct {
	OK     bool
	Errors []string
}

func fail(codes ...string) ValidationResult {
	return ValidationResult{OK: false, Errors: codes}
}

func ok() ValidationResult {
	return ValidationResult{OK: true, Errors: nil}
}

// ValidateURL checks scheme and length constraints. Host allow/deny
// evaluation is separate (HostAllowed) because it depends on session-level
// configuration, not just the URL string.
func ValidateURL(raw string) ValidationResult {
	if raw == "" {
		return fail("MISSING_URL")
	}
	if len(raw) > maxURLLen {
		return fail("INVALID_URL")
	}
	parsed, err := url.Parse(raw)
	if err != nil || parsed.Scheme == "" {
		return fail("INVALID_URL")
	}
	scheme := strings.ToLower(parsed.Scheme)
	if disallowedSchemes[scheme] {
		return fail("DISALLOWED_SCHEME")
	}
	if !allowedSchemes[scheme] {
		return fail("INVALID_SCHEME")
	}
	return ok()
}

// HostAllowed evaluates an allow/deny host policy against a URL's host.
// Denylist takes effect before the allowlist. An allowlist entry "x.y"
// matches exactly "x.y" and any subdomain "*.x.y"; the same rule applies to
// the denylist. An empty allowlist admits any host not denied.
func HostAllowed(raw string, allowlist, denylist []string) ValidationResult {
	parsed, err := url.Parse(raw)
	if err != nil {
		return fail("INVALID_TARGET")
	}
	host := strings.ToLower(parsed.Hostname())
	if host == "" {
		return fail("INVALID_TARGET")
	}
	if matchesAny(host, denylist) {
		return fail("DOMAIN_DENIED")
	}
	if len(allowlist) > 0 && !matchesAny(host, allowlist) {
		return fail("DOMAIN_NOT_ALLOWED")
	}
	return ok()
}

func matchesAny(host string, entries []string) bool {
	for _, entry := range entries {
		entry = strings.ToLower(strings.TrimSpace(entry))
		if entry == "" {
			continue
		}
		if host == entry {
			return true
		}
		if strings.HasSuffix(host, "."+entry) {
			return true
		}
	}
	return false
}

// DeterministicNavigateBlocked reports whether a navigate target is an
// unsafe-scheme URL the "deterministic" policy mode must block (spec.md
// GLOSSARY "Policy mode").
func DeterministicNavigateBlocked(raw string) bool {
	lower := strings.ToLower(strings.TrimSpace(raw))
	for _, pfx := range unsafeNavigatePfxs {
		if strings.HasPrefix(lower, pfx) {
			return true
		}
	}
	return false
}
