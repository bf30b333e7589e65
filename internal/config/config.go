// config.go — Environment-variable configuration for the session runtime.
// Loaded once at process start. Every value is parsed defensively: a
// non-positive, non-finite, or otherwise malformed override falls back to
// its documented default and logs a warning rather than failing startup.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/dev-console/webagent-mcp/internal/model"
)

// Transport selects how the tool surface is exposed.
type Transport string

const (
	TransportStdio Transport = "stdio"
	TransportREST  Transport = "rest"
)

// Config holds process-wide settings enumerated in spec.md §6.
type Config struct {
	Transport Transport
	Host      string
	Port      int

	MaxSessions     int
	Headless        bool
	Allowlist       []string
	Denylist        []string
	PolicyMode      model.PolicyMode
	SessionMaxAgeMs int64

	LogLevel string

	TracesRoot string
}

// Load reads configuration from the process environment, grounded on the
// defensive getEnv* pattern (log-and-fall-back, never panic or exit).
func Load(getenv func(string) string, logger zerolog.Logger) *Config {
	if getenv == nil {
		getenv = osGetenv
	}
	cfg := &Config{
		Transport:       Transport(getEnvString(getenv, logger, "TRANSPORT", string(TransportStdio))),
		Host:            getEnvString(getenv, logger, "HOST", "127.0.0.1"),
		Port:            getEnvInt(getenv, logger, "PORT", 8765),
		MaxSessions:     getEnvInt(getenv, logger, "MAX_SESSIONS", 4),
		Headless:        getEnvBool(getenv, logger, "HEADLESS", true),
		Allowlist:       getEnvStringSlice(getenv, "ALLOWLIST"),
		Denylist:        getEnvStringSlice(getenv, "DENYLIST"),
		PolicyMode:      model.PolicyMode(getEnvString(getenv, logger, "POLICY_MODE", string(model.PolicyModelOwnsAction))),
		SessionMaxAgeMs: getEnvDuration(getenv, logger, "SESSION_MAX_AGE_MS", 30*time.Minute).Milliseconds(),
		LogLevel:        getEnvString(getenv, logger, "LOG_LEVEL", "info"),
		TracesRoot:      getEnvString(getenv, logger, "TRACES_ROOT", "traces"),
	}
	cfg.normalize(logger)
	return cfg
}

func (c *Config) normalize(logger zerolog.Logger) {
	if c.Transport != TransportStdio && c.Transport != TransportREST {
		logger.Warn().Str("transport", string(c.Transport)).Msg("unknown transport, defaulting to stdio")
		c.Transport = TransportStdio
	}
	if c.PolicyMode != model.PolicyModelOwnsAction && c.PolicyMode != model.PolicyDeterministic {
		logger.Warn().Str("policy_mode", string(c.PolicyMode)).Msg("unknown policy mode, defaulting to model_owns_action")
		c.PolicyMode = model.PolicyModelOwnsAction
	}
	if c.MaxSessions <= 0 {
		logger.Warn().Int("max_sessions", c.MaxSessions).Msg("non-positive max_sessions, defaulting to 4")
		c.MaxSessions = 4
	}
	if c.SessionMaxAgeMs <= 0 {
		logger.Warn().Int64("session_max_age_ms", c.SessionMaxAgeMs).Msg("non-positive session_max_age_ms, defaulting to 30m")
		c.SessionMaxAgeMs = (30 * time.Minute).Milliseconds()
	}
}

func osGetenv(key string) string {
	return os.Getenv(key)
}

func getEnvString(getenv func(string) string, logger zerolog.Logger, key, defaultValue string) string {
	if v := getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getEnvInt(getenv func(string) string, logger zerolog.Logger, key string, defaultValue int) int {
	v := getenv(key)
	if v == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseInt(v, 10, 32)
	if err != nil {
		logger.Warn().Str("key", key).Str("value", v).Err(err).Int("default", defaultValue).
			Msg("invalid integer in environment variable, using default")
		return defaultValue
	}
	return int(parsed)
}

func getEnvBool(getenv func(string) string, logger zerolog.Logger, key string, defaultValue bool) bool {
	v := getenv(key)
	if v == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		logger.Warn().Str("key", key).Str("value", v).Err(err).Bool("default", defaultValue).
			Msg("invalid boolean in environment variable, using default")
		return defaultValue
	}
	return parsed
}

func getEnvDuration(getenv func(string) string, logger zerolog.Logger, key string, defaultValue time.Duration) time.Duration {
	v := getenv(key)
	if v == "" {
		return defaultValue
	}
	// Allow a bare integer to mean milliseconds, matching the *_MS env var names in spec.md §6.
	if ms, err := strconv.ParseInt(v, 10, 64); err == nil {
		if ms <= 0 {
			logger.Warn().Str("key", key).Str("value", v).Dur("default", defaultValue).
				Msg("non-positive duration, using default")
			return defaultValue
		}
		return time.Duration(ms) * time.Millisecond
	}
	parsed, err := time.ParseDuration(v)
	if err != nil || parsed <= 0 {
		logger.Warn().Str("key", key).Str("value", v).Dur("default", defaultValue).
			Msg("invalid duration in environment variable, using default")
		return defaultValue
	}
	return parsed
}

func getEnvStringSlice(getenv func(string) string, key string) []string {
	v := getenv(key)
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}
