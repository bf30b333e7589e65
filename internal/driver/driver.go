// driver.go — the narrow browser-driver capability the session runtime
// depends on (spec.md §1, "Out of scope... the underlying browser automation
// driver (assumed to provide: launch, context+page creation, navigation, DOM
// evaluation in page, mouse/keyboard primitives, selector locators with wait
// conditions, accessibility tree snapshot, request/response/failure events,
// and a remote-debug channel capable of starting a screencast and receiving
// base64 JPEG frames with an acknowledgement call)").
//
// This interface is the seam the session runtime is actually tested against;
// Page is satisfied by *rodDriver.page (internal/driver/rod.go) in
// production and by a fake in package session's tests.
package driver

import (
	"context"
	"time"
)

// Bounds is an element or region's on-page rectangle.
type Bounds struct {
	X, Y, Width, Height int
}

// InteractiveElement summarizes one DOM node for the State Builder's DOM
// summary (spec.md §3 "DOM summary").
type InteractiveElement struct {
	Tag    string
	ID     string
	Name   string
	Role   string
	Text   string
	Bounds Bounds
}

// DOMSummaryRaw is what the in-page evaluator returns before the State
// Builder turns it into the wire-level DOMSummary.
type DOMSummaryRaw struct {
	InteractiveCount int
	TextInputs       int
	Buttons          int
	Links            int
	IFrames          int
	CanvasNodes      int
	Top              []InteractiveElement
}

// AXNode is one node of an accessibility tree snapshot.
type AXNode struct {
	Role  string         `json:"role,omitempty"`
	Name  string         `json:"name,omitempty"`
	Extra map[string]any `json:"extra,omitempty"`
}

// NetworkEventKind distinguishes request/response/failure driver events.
type NetworkEventKind int

const (
	NetworkRequest NetworkEventKind = iota
	NetworkResponse
	NetworkFailure
)

// NetworkDriverEvent is what the driver pushes for request/response/failure;
// Browser Session turns these into spec.md §3 NetworkEvent records.
type NetworkDriverEvent struct {
	Kind        NetworkEventKind
	ID          string
	URL         string
	Method      string
	Status      int
	Type        string
	Time        time.Time
	FailureText string
}

// ScreencastFrame is one frame pushed by the driver's remote-debug channel.
type ScreencastFrame struct {
	SessionID string // driver-assigned ack token, opaque to us
	Data      string // base64 JPEG
	Width     int
	Height    int
}

// ScreencastConfig configures the remote-debug screencast start call.
type ScreencastConfig struct {
	Quality         int
	MaxWidth        int
	MaxHeight       int
	EveryNthFrame   int
}

// Locator is a resolved selector handle: zero-or-more matching elements.
type Locator interface {
	// Count returns the number of matching elements currently in the DOM.
	Count(ctx context.Context) (int, error)
	// WaitVisible blocks until the first match is visible or ctx is done.
	WaitVisible(ctx context.Context) error
	// Click clicks the first match.
	Click(ctx context.Context) error
	// Hover hovers the first match.
	Hover(ctx context.Context) error
	// Fill sets the first match's value directly (used for `type`).
	Fill(ctx context.Context, text string) error
	// ScrollIntoView scrolls the first match into the viewport.
	ScrollIntoView(ctx context.Context) error
	// Bounds returns the first match's on-page rectangle.
	Bounds(ctx context.Context) (Bounds, error)
}

// Page is the per-session browser capability surface.
type Page interface {
	URL() string
	Title() (string, error)

	Navigate(ctx context.Context, url string) error
	WaitLoad(ctx context.Context, condition string) error // "domcontentloaded" | "networkidle"

	Eval(ctx context.Context, js string) (DOMSummaryRaw, error)
	AccessibilitySnapshot(ctx context.Context) ([]AXNode, error)

	Locator(selector string) Locator

	MouseMove(ctx context.Context, x, y int) error
	MouseClick(ctx context.Context, x, y int) error
	MouseDown(ctx context.Context, x, y int) error
	MouseUp(ctx context.Context, x, y int) error
	MouseWheel(ctx context.Context, deltaX, deltaY float64) error

	KeyboardType(ctx context.Context, text string, delay time.Duration) error
	KeyboardPress(ctx context.Context, key string, delay time.Duration) error

	OnNetworkEvent(handler func(NetworkDriverEvent)) (unsubscribe func())

	StartScreencast(ctx context.Context, cfg ScreencastConfig, onFrame func(ScreencastFrame)) error
	AckFrame(ctx context.Context, sessionID string) error
	StopScreencast(ctx context.Context) error

	Close() error
}

// Browser launches pages. Implemented by *rodDriver.Browser (go-rod) in
// production.
type Browser interface {
	NewPage(ctx context.Context, opts NewPageOptions) (Page, error)
	Close() error
}

// NewPageOptions configures per-session page/context creation.
type NewPageOptions struct {
	ViewportWidth  int
	ViewportHeight int
	StorageState   string // optional persisted storage-state JSON path
}

// Launcher starts a Browser instance. Exists so the Session Manager never
// imports go-rod directly.
type Launcher interface {
	Launch(ctx context.Context, headless bool) (Browser, error)
}
