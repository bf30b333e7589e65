// handler.go — JSON-RPC method dispatch: initialize, tools/list, tools/call.
package main

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog"

	"github.com/dev-console/webagent-mcp/internal/config"
	"github.com/dev-console/webagent-mcp/internal/mcp"
	"github.com/dev-console/webagent-mcp/internal/redaction"
	"github.com/dev-console/webagent-mcp/internal/replay"
	"github.com/dev-console/webagent-mcp/internal/schema"
	"github.com/dev-console/webagent-mcp/internal/session"
)

// handler holds everything a JSON-RPC request needs to produce a response.
type handler struct {
	mgr         *session.Manager
	replayStore *replay.Store
	redactor    *redaction.RedactionEngine
	cfg         *config.Config
	log         zerolog.Logger
	version     string
}

func (h *handler) handle(ctx context.Context, req mcp.JSONRPCRequest) mcp.JSONRPCResponse {
	switch req.Method {
	case "initialize":
		return h.handleInitialize(req)
	case "initialized":
		return mcp.JSONRPCResponse{ID: req.ID, Result: json.RawMessage(`{}`)}
	case "tools/list":
		return h.handleToolsList(req)
	case "tools/call":
		return h.handleToolsCall(ctx, req)
	default:
		return mcp.JSONRPCResponse{
			ID:    req.ID,
			Error: &mcp.JSONRPCError{Code: -32601, Message: "Method not found: " + req.Method},
		}
	}
}

func (h *handler) handleInitialize(req mcp.JSONRPCRequest) mcp.JSONRPCResponse {
	result := mcp.MCPInitializeResult{
		ProtocolVersion: "2024-11-05",
		ServerInfo:      mcp.MCPServerInfo{Name: "webagent-mcp", Version: h.version},
		Capabilities: mcp.MCPCapabilities{
			Tools:     mcp.MCPToolsCapability{},
			Resources: mcp.MCPResourcesCapability{},
		},
		Instructions: "Browser-control session runtime: create a session, step through actions, snapshot state, stop the session, and replay its trace.",
	}
	return mcp.JSONRPCResponse{ID: req.ID, Result: mcp.SafeMarshal(result, `{}`)}
}

func (h *handler) handleToolsList(req mcp.JSONRPCRequest) mcp.JSONRPCResponse {
	result := mcp.MCPToolsListResult{Tools: schema.AllTools()}
	return mcp.JSONRPCResponse{ID: req.ID, Result: mcp.SafeMarshal(result, `{"tools":[]}`)}
}

func (h *handler) handleToolsCall(ctx context.Context, req mcp.JSONRPCRequest) mcp.JSONRPCResponse {
	var params struct {
		Name      string          `json:"name"`
		Arguments json.RawMessage `json:"arguments"`
	}
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return mcp.JSONRPCResponse{
			ID:    req.ID,
			Error: &mcp.JSONRPCError{Code: -32602, Message: "Invalid params: " + err.Error()},
		}
	}

	var result json.RawMessage
	switch params.Name {
	case "web_agent_session_create":
		result = h.toolSessionCreate(ctx, params.Arguments)
	case "web_agent_step":
		result = h.toolStep(ctx, params.Arguments)
	case "web_agent_snapshot":
		result = h.toolSnapshot(ctx, params.Arguments)
	case "web_agent_session_stop":
		result = h.toolSessionStop(ctx, params.Arguments)
	case "web_agent_replay":
		result = h.toolReplay(ctx, params.Arguments)
	default:
		return mcp.JSONRPCResponse{
			ID:    req.ID,
			Error: &mcp.JSONRPCError{Code: -32601, Message: "Unknown tool: " + params.Name},
		}
	}

	if h.redactor != nil {
		result = h.redactor.RedactJSON(result)
	}
	return mcp.JSONRPCResponse{ID: req.ID, Result: result}
}
