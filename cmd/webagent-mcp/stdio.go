// stdio.go — the JSON-RPC request/response loop over stdin/stdout.
// Grounded on the stdout-purity invariant: only this file writes to
// stdout; every other package logs to stderr via zerolog.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"

	"github.com/dev-console/webagent-mcp/internal/bridge"
	"github.com/dev-console/webagent-mcp/internal/mcp"
)

const maxBodySize = 10 * 1024 * 1024

// runStdioLoop reads one MCP message at a time from stdin, dispatches it to
// h, and writes the JSON-RPC response back to stdout using the framing the
// request arrived in.
func runStdioLoop(h *handler, log zerolog.Logger) {
	reader := bufio.NewReaderSize(os.Stdin, 64*1024)

	for {
		raw, framing, err := bridge.ReadStdioMessageWithMode(reader, maxBodySize)
		if err != nil {
			if errors.Is(err, io.EOF) {
				log.Info().Msg("stdin closed, shutting down")
				return
			}
			log.Error().Err(err).Msg("stdio read failed")
			return
		}
		if len(raw) == 0 {
			continue
		}

		var req mcp.JSONRPCRequest
		if err := json.Unmarshal(raw, &req); err != nil {
			writeResponse(mcp.JSONRPCResponse{
				JSONRPC: "2.0",
				Error:   &mcp.JSONRPCError{Code: -32700, Message: "Parse error: " + err.Error()},
			}, framing)
			continue
		}

		if req.HasInvalidID() {
			writeResponse(mcp.JSONRPCResponse{
				Error: &mcp.JSONRPCError{Code: -32600, Message: "Invalid Request: id must be string or number when present"},
			}, framing)
			continue
		}

		// JSON-RPC notifications (no id) are fire-and-forget; never respond on stdio.
		if !req.HasID() {
			h.handle(context.Background(), req)
			continue
		}

		tool, action := bridge.ExtractToolAction(req.Method, req.Params)
		timeout := bridge.ToolCallTimeout(req.Method, req.Params)
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		log.Debug().Str("tool", tool).Str("action", action).Dur("timeout", timeout).Msg("dispatching tool call")
		resp := h.handle(ctx, req)
		cancel()

		writeResponse(resp, framing)
	}
}

func writeResponse(resp mcp.JSONRPCResponse, framing bridge.StdioFraming) {
	resp.JSONRPC = "2.0"
	payload, err := json.Marshal(resp)
	if err != nil {
		payload, _ = json.Marshal(mcp.JSONRPCResponse{
			JSONRPC: "2.0",
			ID:      resp.ID,
			Error:   &mcp.JSONRPCError{Code: -32603, Message: "failed to marshal response"},
		})
	}

	if framing == bridge.StdioFramingContentLength {
		fmt.Fprintf(os.Stdout, "Content-Length: %d\r\nContent-Type: application/json\r\n\r\n%s", len(payload), payload)
		return
	}
	os.Stdout.Write(payload)
	os.Stdout.WriteString("\n")
}
