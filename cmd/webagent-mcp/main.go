// main.go — process entry point. Wires config, logging, the browser
// driver, the replay store and the Session Manager together, then runs
// the MCP JSON-RPC loop over stdio.
package main

import (
	"context"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/dev-console/webagent-mcp/internal/config"
	"github.com/dev-console/webagent-mcp/internal/driver"
	"github.com/dev-console/webagent-mcp/internal/obslog"
	"github.com/dev-console/webagent-mcp/internal/redaction"
	"github.com/dev-console/webagent-mcp/internal/replay"
	"github.com/dev-console/webagent-mcp/internal/session"
	"github.com/dev-console/webagent-mcp/internal/util"
)

const version = "0.1.0"

// gcInterval is how often the Session Manager sweeps for aged-out sessions.
const gcInterval = 30 * time.Second

func main() {
	bootLogger := obslog.New("info")
	cfg := config.Load(nil, bootLogger)
	logger := obslog.New(cfg.LogLevel)

	redactor := redaction.NewRedactionEngine(os.Getenv("REDACTION_CONFIG"))
	replayStore := replay.New(cfg.TracesRoot, redactor)

	launcher := driver.RodLauncher{
		Logger: logger.With().Str("component", "driver").Logger(),
	}

	mgr := session.NewManager(cfg.MaxSessions, cfg.SessionMaxAgeMs, cfg.Headless, launcher, replayStore, logger)

	logger.Info().
		Str("version", version).
		Str("transport", string(cfg.Transport)).
		Int("max_sessions", cfg.MaxSessions).
		Bool("headless", cfg.Headless).
		Msg("web agent MCP server starting")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	util.SafeGo(func() { runGCLoop(ctx, mgr, logger) })

	h := &handler{mgr: mgr, replayStore: replayStore, redactor: redactor, cfg: cfg, log: logger, version: version}

	switch cfg.Transport {
	case config.TransportREST:
		if err := runHTTPServer(ctx, h, cfg, logger); err != nil {
			logger.Fatal().Err(err).Msg("REST transport failed")
		}
	default:
		runStdioLoop(h, logger)
	}
}

// runGCLoop periodically sweeps the Session Manager for sessions that have
// exceeded their max age, stopping them and releasing their browsers.
func runGCLoop(ctx context.Context, mgr *session.Manager, log zerolog.Logger) {
	ticker := time.NewTicker(gcInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := mgr.GC(ctx); n > 0 {
				log.Info().Int("stopped", n).Msg("session gc swept expired sessions")
			}
		}
	}
}

