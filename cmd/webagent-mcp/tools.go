// tools.go — the five MCP tool handlers, mapping wire arguments to the
// Session Manager / Browser Session API and back.
package main

import (
	"context"
	"encoding/json"

	"github.com/dev-console/webagent-mcp/internal/mcp"
	"github.com/dev-console/webagent-mcp/internal/model"
	"github.com/dev-console/webagent-mcp/internal/session"
)

func (h *handler) toolSessionCreate(ctx context.Context, args json.RawMessage) json.RawMessage {
	var req struct {
		TargetURL string `json:"target_url"`
		Viewport  *struct {
			Width  int `json:"width"`
			Height int `json:"height"`
		} `json:"viewport"`
		StorageState   string   `json:"storage_state"`
		CaptureProfile string   `json:"capture_profile"`
		PolicyMode     string   `json:"policy_mode"`
		MaxSteps       int      `json:"max_steps"`
		MaxDurationMs  int64    `json:"max_duration_ms"`
		Allowlist      []string `json:"allowlist"`
		Denylist       []string `json:"denylist"`
		Capture        *struct {
			JPEGQuality      int `json:"jpeg_quality"`
			MaxWidth         int `json:"max_width"`
			MaxHeight        int `json:"max_height"`
			MaxFrameBudgetMs int `json:"max_frame_budget_ms"`
		} `json:"capture"`
	}
	mcp.LenientUnmarshal(args, &req)

	input := session.CreateInput{
		TargetURL:      req.TargetURL,
		StorageState:   req.StorageState,
		CaptureProfile: model.CaptureProfile(defaultString(req.CaptureProfile, string(model.ProfileAdaptive))),
		PolicyMode:     defaultPolicyMode(req.PolicyMode, h.cfg.PolicyMode),
		MaxSteps:       defaultInt(req.MaxSteps, 500),
		MaxDurationMs:  defaultInt64(req.MaxDurationMs, 30*60*1000),
		Allowlist:      append(append([]string{}, h.cfg.Allowlist...), req.Allowlist...),
		Denylist:       append(append([]string{}, h.cfg.Denylist...), req.Denylist...),
	}
	if req.Viewport != nil {
		input.ViewportWidth = req.Viewport.Width
		input.ViewportHeight = req.Viewport.Height
	}
	if req.Capture != nil {
		input.JPEGQuality = req.Capture.JPEGQuality
		input.FrameMaxWidth = req.Capture.MaxWidth
		input.FrameMaxHeight = req.Capture.MaxHeight
		input.FrameBudgetMs = req.Capture.MaxFrameBudgetMs
	}

	result, errorCodes, err := h.mgr.Create(ctx, input)
	if len(errorCodes) > 0 {
		return mcp.StructuredErrorResponse(mcp.ErrInvalidParam,
			"target_url rejected: "+joinErrorCodes(errorCodes),
			"fix target_url (or its allowlist/denylist) and call web_agent_session_create again",
			mcp.WithParam("target_url"))
	}
	if err != nil {
		return mcp.StructuredErrorResponse(mcp.ErrLaunchFailed,
			"session create failed: "+err.Error(),
			"retry web_agent_session_create; if this persists the browser environment itself is unhealthy")
	}

	return mcp.JSONResponse("session created", map[string]any{
		"session_id":   result.SessionID,
		"trace_id":     result.TraceID,
		"capabilities": result.Capabilities,
		"state":        result.InitialState,
		"frame_ref":    result.FrameRef,
	})
}

func (h *handler) toolStep(ctx context.Context, args json.RawMessage) json.RawMessage {
	var req struct {
		SessionID         string           `json:"session_id"`
		Action            string           `json:"action"`
		Selector          string           `json:"selector"`
		URL               string           `json:"url"`
		Text              string           `json:"text"`
		Key               string           `json:"key"`
		X                 *int             `json:"x"`
		Y                 *int             `json:"y"`
		DeltaX            *float64         `json:"delta_x"`
		DeltaY            *float64         `json:"delta_y"`
		TimeoutMs         *int             `json:"timeout_ms"`
		MaxActionsPerStep int              `json:"max_actions_per_step"`
		Capture           *captureOverride `json:"capture"`
	}
	mcp.LenientUnmarshal(args, &req)

	bs := h.mgr.Get(req.SessionID)
	if bs == nil {
		return mcp.StructuredErrorResponse(mcp.ErrUnknownSession,
			"no active session with id "+req.SessionID,
			"call web_agent_session_create and use the returned session_id",
			mcp.WithParam("session_id"))
	}

	maxActions := req.MaxActionsPerStep
	if maxActions == 0 {
		maxActions = 1
	}

	stepInput := session.StepInput{
		Action: model.ActionInput{
			Action:            req.Action,
			Selector:          req.Selector,
			X:                 req.X,
			Y:                 req.Y,
			DeltaX:            req.DeltaX,
			DeltaY:            req.DeltaY,
			Text:              req.Text,
			Key:               req.Key,
			URL:               req.URL,
			TimeoutMs:         req.TimeoutMs,
			MaxActionsPerStep: maxActions,
		},
		Capture: req.Capture.toModel(),
	}

	result, err := bs.Step(ctx, stepInput)
	if err != nil {
		return mcp.JSONErrorResponse("step rejected", map[string]any{"error": err.Error()})
	}
	if !result.ActionResult.Success {
		return mcp.JSONErrorResponse("action failed", result)
	}
	return mcp.JSONResponse("step complete", result)
}

func (h *handler) toolSnapshot(ctx context.Context, args json.RawMessage) json.RawMessage {
	var req struct {
		SessionID      string `json:"session_id"`
		IncludeDOM     bool   `json:"include_dom"`
		IncludeAX      bool   `json:"include_ax"`
		IncludeNetwork bool   `json:"include_network"`
		IncludeFrames  bool   `json:"include_frames"`
		MaxFrames      *int   `json:"max_frames"`
	}
	mcp.LenientUnmarshal(args, &req)

	bs := h.mgr.Get(req.SessionID)
	if bs == nil {
		return mcp.StructuredErrorResponse(mcp.ErrUnknownSession,
			"no active session with id "+req.SessionID,
			"call web_agent_session_create and use the returned session_id",
			mcp.WithParam("session_id"))
	}

	settings := model.CaptureSettings{
		IncludeDOM:     req.IncludeDOM,
		IncludeAX:      req.IncludeAX,
		IncludeNetwork: req.IncludeNetwork,
		IncludeFrames:  req.IncludeFrames,
		MaxFrames:      req.MaxFrames,
	}
	state, err := bs.Snapshot(ctx, settings)
	if err != nil {
		return mcp.JSONErrorResponse("snapshot failed", map[string]any{"error": err.Error()})
	}
	h.mgr.Touch(req.SessionID)
	return mcp.JSONResponse("snapshot", state)
}

func (h *handler) toolSessionStop(ctx context.Context, args json.RawMessage) json.RawMessage {
	var req struct {
		SessionID string `json:"session_id"`
		Preserve  bool   `json:"preserve"`
	}
	mcp.LenientUnmarshal(args, &req)

	result := h.mgr.Stop(ctx, req.SessionID, req.Preserve)
	return mcp.JSONResponse("session stopped", result)
}

func (h *handler) toolReplay(_ context.Context, args json.RawMessage) json.RawMessage {
	var req struct {
		TraceID string `json:"trace_id"`
		Start   *int   `json:"start"`
		End     *int   `json:"end"`
	}
	mcp.LenientUnmarshal(args, &req)

	events, err := h.replayStore.Filter(req.TraceID, req.Start, req.End)
	if err != nil {
		return mcp.JSONErrorResponse("replay read failed", map[string]any{"error": err.Error()})
	}
	return mcp.JSONResponse("replay events", map[string]any{
		"trace_id": req.TraceID,
		"events":   events,
	})
}

// captureOverride mirrors web_agent_step's optional "capture" object.
type captureOverride struct {
	IncludeDOM     *bool `json:"include_dom"`
	IncludeAX      *bool `json:"include_ax"`
	IncludeNetwork *bool `json:"include_network"`
	IncludeFrames  *bool `json:"include_frames"`
	MaxFrames      *int  `json:"max_frames"`
}

// toModel converts the wire-level override into model.CaptureSettings,
// or nil when the caller omitted "capture" entirely (falls back to the
// session's capture profile defaults, per spec.md §4.2 step() rule 2).
func (c *captureOverride) toModel() *model.CaptureSettings {
	if c == nil {
		return nil
	}
	s := model.CaptureSettings{MaxFrames: c.MaxFrames}
	if c.IncludeDOM != nil {
		s.IncludeDOM = *c.IncludeDOM
	}
	if c.IncludeAX != nil {
		s.IncludeAX = *c.IncludeAX
	}
	if c.IncludeNetwork != nil {
		s.IncludeNetwork = *c.IncludeNetwork
	}
	if c.IncludeFrames != nil {
		s.IncludeFrames = *c.IncludeFrames
	}
	return &s
}

func defaultString(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func defaultPolicyMode(v string, def model.PolicyMode) model.PolicyMode {
	if v == "" {
		return def
	}
	return model.PolicyMode(v)
}

func defaultInt(v, def int) int {
	if v == 0 {
		return def
	}
	return v
}

func defaultInt64(v, def int64) int64 {
	if v == 0 {
		return def
	}
	return v
}

func joinErrorCodes(codes []string) string {
	out := ""
	for i, c := range codes {
		if i > 0 {
			out += ", "
		}
		out += c
	}
	return out
}
