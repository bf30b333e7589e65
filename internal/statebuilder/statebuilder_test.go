package statebuilder

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/dev-console/webagent-mcp/internal/capture"
	"github.com/dev-console/webagent-mcp/internal/driver"
	"github.com/dev-console/webagent-mcp/internal/model"
	"github.com/dev-console/webagent-mcp/internal/ring"
)

// fakePage is a minimal driver.Page stub returning canned DOM/AX data.
type fakePage struct {
	url   string
	title string
	dom   driver.DOMSummaryRaw
	ax    []driver.AXNode
}

func (p *fakePage) URL() string                                { return p.url }
func (p *fakePage) Title() (string, error)                     { return p.title, nil }
func (p *fakePage) Navigate(context.Context, string) error      { return nil }
func (p *fakePage) WaitLoad(context.Context, string) error      { return nil }
func (p *fakePage) Eval(context.Context, string) (driver.DOMSummaryRaw, error) {
	return p.dom, nil
}
func (p *fakePage) AccessibilitySnapshot(context.Context) ([]driver.AXNode, error) { return p.ax, nil }
func (p *fakePage) Locator(string) driver.Locator                                 { return nil }
func (p *fakePage) MouseMove(context.Context, int, int) error                     { return nil }
func (p *fakePage) MouseClick(context.Context, int, int) error                    { return nil }
func (p *fakePage) MouseDown(context.Context, int, int) error                     { return nil }
func (p *fakePage) MouseUp(context.Context, int, int) error                       { return nil }
func (p *fakePage) MouseWheel(context.Context, float64, float64) error            { return nil }
func (p *fakePage) KeyboardType(context.Context, string, time.Duration) error     { return nil }
func (p *fakePage) KeyboardPress(context.Context, string, time.Duration) error    { return nil }
func (p *fakePage) OnNetworkEvent(func(driver.NetworkDriverEvent)) func()         { return func() {} }
func (p *fakePage) StartScreencast(context.Context, driver.ScreencastConfig, func(driver.ScreencastFrame)) error {
	return nil
}
func (p *fakePage) AckFrame(context.Context, string) error { return nil }
func (p *fakePage) StopScreencast(context.Context) error   { return nil }
func (p *fakePage) Close() error                           { return nil }

func TestBuildInitialCallYieldsInitToken(t *testing.T) {
	page := &fakePage{url: "https://example.com", title: "Example"}
	b := New(page, nil, nil)

	state := b.Build(context.Background(), "sess-1", model.CaptureSettings{})
	if len(state.ChangeTokens) != 1 || state.ChangeTokens[0] != "INIT" {
		t.Errorf("ChangeTokens = %v, want [INIT]", state.ChangeTokens)
	}
}

func TestBuildSecondCallWithSameStateIsNoChange(t *testing.T) {
	page := &fakePage{url: "https://example.com", title: "Example"}
	b := New(page, nil, nil)

	b.Build(context.Background(), "sess-1", model.CaptureSettings{})
	state := b.Build(context.Background(), "sess-1", model.CaptureSettings{})
	if len(state.ChangeTokens) != 1 || state.ChangeTokens[0] != "NO_CHANGE" {
		t.Errorf("ChangeTokens = %v, want [NO_CHANGE]", state.ChangeTokens)
	}
}

func TestBuildDetectsStateChangeOnURLChange(t *testing.T) {
	page := &fakePage{url: "https://example.com", title: "Example"}
	b := New(page, nil, nil)

	b.Build(context.Background(), "sess-1", model.CaptureSettings{})
	page.url = "https://example.com/other"
	state := b.Build(context.Background(), "sess-1", model.CaptureSettings{})
	if len(state.ChangeTokens) != 1 || state.ChangeTokens[0] != "STATE_CHANGED" {
		t.Errorf("ChangeTokens = %v, want [STATE_CHANGED]", state.ChangeTokens)
	}
}

func TestBuildOmitsDOMWhenNotIncluded(t *testing.T) {
	page := &fakePage{dom: driver.DOMSummaryRaw{InteractiveCount: 5}}
	b := New(page, nil, nil)
	state := b.Build(context.Background(), "sess-1", model.CaptureSettings{IncludeDOM: false})
	if state.DOM != nil {
		t.Error("expected DOM to be nil when IncludeDOM is false")
	}
}

func TestBuildIncludesDOMAndTruncatesTopElements(t *testing.T) {
	raw := driver.DOMSummaryRaw{InteractiveCount: 20, Buttons: 3}
	for i := 0; i < 20; i++ {
		raw.Top = append(raw.Top, driver.InteractiveElement{Tag: "button"})
	}
	page := &fakePage{dom: raw}
	b := New(page, nil, nil)
	state := b.Build(context.Background(), "sess-1", model.CaptureSettings{IncludeDOM: true})
	if state.DOM == nil {
		t.Fatal("expected DOM to be populated")
	}
	if len(state.DOM.Top) != 12 {
		t.Errorf("len(DOM.Top) = %d, want 12 (maxDOMTop)", len(state.DOM.Top))
	}
}

func TestBuildIncludesNetworkEventsFromRing(t *testing.T) {
	netRing := ring.New[model.NetworkEvent](10)
	netRing.Push(model.NetworkEvent{ID: "1", URL: "https://a.test"})
	page := &fakePage{}
	b := New(page, netRing, nil)

	state := b.Build(context.Background(), "sess-1", model.CaptureSettings{IncludeNetwork: true})
	if len(state.NetworkEvents) != 1 {
		t.Fatalf("expected 1 network event, got %d", len(state.NetworkEvents))
	}
}

func TestBuildIncludesFramesFromCoordinator(t *testing.T) {
	page := &fakePage{}
	coord := capture.New(capture.Config{Enabled: false, MaxFrames: 4}, page, zerolog.Nop())
	b := New(page, nil, coord)

	state := b.Build(context.Background(), "sess-1", model.CaptureSettings{IncludeFrames: true})
	if state.FrameRefs == nil {
		t.Error("expected a non-nil (possibly empty) FrameRefs slice")
	}
}

func TestWithSessionIDSetsSessionIDWithoutMutatingOriginal(t *testing.T) {
	original := model.StatePacket{SessionID: "old"}
	updated := WithSessionID(original, "new")
	if updated.SessionID != "new" {
		t.Errorf("SessionID = %q, want new", updated.SessionID)
	}
	if original.SessionID != "old" {
		t.Errorf("original mutated: SessionID = %q, want old", original.SessionID)
	}
}
