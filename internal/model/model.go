// model.go — wire-level domain types shared by the Capture Coordinator,
// State Builder, Action Executor, Replay Store, and Browser Session
// (spec.md §3 DATA MODEL).
package model

import "time"

// CaptureProfile selects which observations are included by default in a
// state packet (spec.md GLOSSARY "Capture profile").
type CaptureProfile string

const (
	ProfileAdaptive   CaptureProfile = "adaptive"
	ProfileDOMOnly    CaptureProfile = "dom_only"
	ProfileFramesOnly CaptureProfile = "frames_only"
)

// PolicyMode gates whether an action is allowed to execute.
type PolicyMode string

const (
	PolicyModelOwnsAction PolicyMode = "model_owns_action"
	PolicyDeterministic   PolicyMode = "deterministic"
)

// SessionStatus is the Browser Session state machine (spec.md §4.2).
type SessionStatus string

const (
	StatusCreated  SessionStatus = "created"
	StatusStarting SessionStatus = "starting"
	StatusActive   SessionStatus = "active"
	StatusStopping SessionStatus = "stopping"
	StatusStopped  SessionStatus = "stopped"
)

// FrameRef is an immutable record describing one captured screencast frame
// (spec.md §3 "Frame reference"). The ring may evict the reference while the
// on-disk artifact survives for later janitor reclamation.
type FrameRef struct {
	ID        string         `json:"id"`
	Timestamp int64          `json:"timestamp"`
	Width     int            `json:"width"`
	Height    int            `json:"height"`
	MIME      string         `json:"mime"`
	Checksum  string         `json:"checksum"`
	Path      string         `json:"path"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// NetworkEvent is a request/response/failure/action record appended to the
// per-session network ring (spec.md §3 "Network event").
type NetworkEvent struct {
	ID          string `json:"id"`
	URL         string `json:"url,omitempty"`
	Method      string `json:"method,omitempty"`
	Status      int    `json:"status,omitempty"`
	Type        string `json:"type,omitempty"`
	Time        int64  `json:"time"`
	FailureText string `json:"failureText,omitempty"`
}

// InteractiveElement is one summarized DOM node (spec.md §3 "DOM summary").
type InteractiveElement struct {
	Tag    string `json:"tag"`
	ID     string `json:"id,omitempty"`
	Name   string `json:"name,omitempty"`
	Role   string `json:"role,omitempty"`
	Text   string `json:"text,omitempty"`
	Bounds Bounds `json:"bounds"`
}

// Bounds is an integer rectangle clamped to non-negative values.
type Bounds struct {
	X, Y, Width, Height int
}

// DOMSummary is the DOM observation slice of a state packet.
type DOMSummary struct {
	InteractiveCount int                   `json:"interactive_count"`
	TextInputs       int                   `json:"text_inputs"`
	Buttons          int                   `json:"buttons"`
	Links            int                   `json:"links"`
	IFrames          int                   `json:"iframes"`
	CanvasNodes      int                   `json:"canvas_nodes"`
	Top              []InteractiveElement  `json:"top"`
}

// AXNode is one accessibility-tree node.
type AXNode struct {
	Role string `json:"role,omitempty"`
	Name string `json:"name,omitempty"`
}

// RegionDetection is synthesized from top DOM elements (spec.md §4.4).
type RegionDetection struct {
	Label      string `json:"label"`
	Bounds     Bounds `json:"bounds"`
	Confidence float64 `json:"confidence"`
}

// QueueHealth reports Capture Coordinator backpressure at packet-build time.
type QueueHealth struct {
	Depth   int   `json:"depth"`
	Max     int   `json:"max"`
	Dropped int64 `json:"dropped"`
	Pending int   `json:"pending"`
}

// StatePacket is the normalized observation returned by every tool call
// that touches a session (spec.md §3 "State packet").
type StatePacket struct {
	StateToken      string            `json:"state_token"`
	Timestamp       int64             `json:"timestamp"`
	SessionID       string            `json:"session_id"`
	URL             string            `json:"url"`
	Title           string            `json:"title"`
	DOM             *DOMSummary       `json:"dom,omitempty"`
	Accessibility   []AXNode          `json:"accessibility,omitempty"`
	NetworkEvents   []NetworkEvent    `json:"network_events"`
	FrameRefs       []FrameRef        `json:"frame_refs"`
	RegionDetections []RegionDetection `json:"region_detections,omitempty"`
	ChangeTokens    []string          `json:"change_tokens"`
	QueueHealth     QueueHealth       `json:"queue_health"`
}

// CaptureSettings controls which observations a step/snapshot call builds.
type CaptureSettings struct {
	IncludeDOM     bool
	IncludeAX      bool
	IncludeNetwork bool
	IncludeFrames  bool
	MaxFrames      *int
}

// AnyIncludeSet reports whether the caller set at least one include flag
// explicitly (spec.md §4.2 step() normalization rule 2).
func (c CaptureSettings) AnyIncludeSet() bool {
	return c.IncludeDOM || c.IncludeAX || c.IncludeNetwork || c.IncludeFrames
}

// ActionInput is the caller-supplied action request (spec.md §4.5).
type ActionInput struct {
	Action            string
	Selector          string
	X, Y              *int
	DeltaX, DeltaY    *float64
	Text              string
	Key               string
	URL               string
	TimeoutMs         *int
	MaxActionsPerStep int
}

// ActionResult is the Action Executor's outcome (spec.md §4.5).
type ActionResult struct {
	Action      string  `json:"action"`
	Success     bool    `json:"success"`
	Status      string  `json:"status"`
	Target      string  `json:"target,omitempty"`
	Selector    string  `json:"selector,omitempty"`
	Coordinates *Point  `json:"coordinates,omitempty"`
	Detail      string  `json:"detail,omitempty"`
	ElapsedMs   int64   `json:"elapsed_ms"`
}

// Point is an integer screen coordinate.
type Point struct {
	X, Y int
}

// ReplayEventType enumerates the four event kinds a trace can contain.
type ReplayEventType string

const (
	EventCreate   ReplayEventType = "create"
	EventStep     ReplayEventType = "step"
	EventSnapshot ReplayEventType = "snapshot"
	EventStop     ReplayEventType = "stop"
)

// ReplayEvent is one line of a trace's append-only log (spec.md §3).
type ReplayEvent struct {
	Type    ReplayEventType `json:"type"`
	Index   int             `json:"index"`
	At      int64           `json:"at"`
	Payload map[string]any  `json:"payload,omitempty"`
}

// StepResult is the composed response to a step() tool call.
type StepResult struct {
	State              StatePacket  `json:"state"`
	FrameRefs           []FrameRef   `json:"frame_refs"`
	ActionResult        ActionResult `json:"action_result"`
	ErrorCodes          []string     `json:"error_codes"`
	NextRecommendation  string       `json:"next_recommendation"`
	LatencyMs           int64        `json:"latency_ms"`
	QueueHealth         QueueHealth  `json:"queue_health"`
}

const (
	RecommendContinue          = "continue"
	RecommendRetry             = "retry"
	RecommendFallbackOrAbandon = "fallback_or_abandon"
	RecommendHalt              = "halt"
)

// NowMs returns the current time in epoch milliseconds. Centralized so
// session/replay/capture code has one seam for time, not scattered
// time.Now().UnixMilli() call sites.
func NowMs() int64 { return time.Now().UnixMilli() }
