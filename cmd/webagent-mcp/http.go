// http.go — the minimal REST transport. Exposes the same five tools as the
// stdio transport, one per "POST /tools/{name}" route, each taking the
// tool's arguments object as its JSON body and returning the MCP tool
// result verbatim. No session affinity beyond session_id in the body: the
// REST transport is stateless request-in/response-out, same as a single
// stdio tools/call round trip.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/dev-console/webagent-mcp/internal/bridge"
	"github.com/dev-console/webagent-mcp/internal/config"
	"github.com/dev-console/webagent-mcp/internal/mcp"
)

// restReadTimeout/restWriteTimeout mirror the fast/slow tool-call timeouts
// bridge.ToolCallTimeout already classifies by method; the server-level
// timeouts only need to be no tighter than the slowest of those.
const (
	restReadTimeout     = 10 * time.Second
	restWriteTimeout    = bridge.SlowTimeout + 5*time.Second
	restIdleTimeout     = 120 * time.Second
	restShutdownTimeout = 5 * time.Second
)

// runHTTPServer binds cfg.Host:cfg.Port and serves the five tools as
// POST /tools/{name}. It blocks until ctx is cancelled, then drains
// in-flight requests for up to restShutdownTimeout before returning.
func runHTTPServer(ctx context.Context, h *handler, cfg *config.Config, log zerolog.Logger) error {
	mux := http.NewServeMux()
	for _, name := range []string{
		"web_agent_session_create",
		"web_agent_step",
		"web_agent_snapshot",
		"web_agent_session_stop",
		"web_agent_replay",
	} {
		mux.HandleFunc("POST /tools/"+name, h.httpToolHandler(name))
	}

	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadTimeout:       restReadTimeout,
		WriteTimeout:      restWriteTimeout,
		IdleTimeout:       restIdleTimeout,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("address", addr).Msg("REST transport listening")
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), restShutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	}
}

// httpToolHandler adapts one tool name into an http.HandlerFunc, routing the
// request body through the same h.handleToolsCall dispatch the stdio
// transport uses so both transports share one tool-execution path.
func (h *handler) httpToolHandler(name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var args json.RawMessage
		if r.ContentLength != 0 {
			if err := json.NewDecoder(r.Body).Decode(&args); err != nil {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusBadRequest)
				_ = json.NewEncoder(w).Encode(map[string]string{"error": "invalid JSON body: " + err.Error()})
				return
			}
		}

		params, _ := json.Marshal(struct {
			Name      string          `json:"name"`
			Arguments json.RawMessage `json:"arguments"`
		}{Name: name, Arguments: args})

		timeout := bridge.ToolCallTimeout(name, args)
		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()

		resp := h.handle(ctx, mcp.JSONRPCRequest{ID: 1, Method: "tools/call", Params: params})

		w.Header().Set("Content-Type", "application/json")
		if resp.Error != nil {
			w.WriteHeader(http.StatusBadRequest)
			_ = json.NewEncoder(w).Encode(resp.Error)
			return
		}
		w.Write(resp.Result)
	}
}
