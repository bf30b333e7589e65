package capture

import (
	"context"
	"encoding/base64"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/dev-console/webagent-mcp/internal/driver"
	"github.com/dev-console/webagent-mcp/internal/model"
)

// fakePage is a minimal driver.Page stub that lets a test drive the
// screencast callback directly.
type fakePage struct {
	startErr    error
	ackedIDs    []string
	stopped     bool
	onFrame     func(driver.ScreencastFrame)
}

func (p *fakePage) URL() string                                { return "https://example.com" }
func (p *fakePage) Title() (string, error)                     { return "", nil }
func (p *fakePage) Navigate(context.Context, string) error      { return nil }
func (p *fakePage) WaitLoad(context.Context, string) error      { return nil }
func (p *fakePage) Eval(context.Context, string) (driver.DOMSummaryRaw, error) {
	return driver.DOMSummaryRaw{}, nil
}
func (p *fakePage) AccessibilitySnapshot(context.Context) ([]driver.AXNode, error) { return nil, nil }
func (p *fakePage) Locator(string) driver.Locator                                 { return nil }
func (p *fakePage) MouseMove(context.Context, int, int) error                     { return nil }
func (p *fakePage) MouseClick(context.Context, int, int) error                    { return nil }
func (p *fakePage) MouseDown(context.Context, int, int) error                     { return nil }
func (p *fakePage) MouseUp(context.Context, int, int) error                       { return nil }
func (p *fakePage) MouseWheel(context.Context, float64, float64) error            { return nil }
func (p *fakePage) KeyboardType(context.Context, string, time.Duration) error     { return nil }
func (p *fakePage) KeyboardPress(context.Context, string, time.Duration) error    { return nil }
func (p *fakePage) OnNetworkEvent(func(driver.NetworkDriverEvent)) func()         { return func() {} }
func (p *fakePage) StartScreencast(_ context.Context, _ driver.ScreencastConfig, onFrame func(driver.ScreencastFrame)) error {
	p.onFrame = onFrame
	return p.startErr
}
func (p *fakePage) AckFrame(_ context.Context, sessionID string) error {
	p.ackedIDs = append(p.ackedIDs, sessionID)
	return nil
}
func (p *fakePage) StopScreencast(context.Context) error { p.stopped = true; return nil }
func (p *fakePage) Close() error                         { return nil }

func jpegFrame(sessionID string) driver.ScreencastFrame {
	return driver.ScreencastFrame{
		SessionID: sessionID,
		Data:      base64.StdEncoding.EncodeToString([]byte("fake-jpeg-bytes")),
		Width:     100,
		Height:    100,
	}
}

func TestResolveFrameCapDefaults(t *testing.T) {
	if got := ResolveFrameCap(nil, model.ProfileAdaptive); got != 8 {
		t.Errorf("ResolveFrameCap(nil, adaptive) = %d, want 8", got)
	}
}

func TestResolveFrameCapClampsRequestedForNonFramesOnly(t *testing.T) {
	req := 20
	if got := ResolveFrameCap(&req, model.ProfileAdaptive); got != 12 {
		t.Errorf("ResolveFrameCap(20, adaptive) = %d, want clamped to 12", got)
	}
}

func TestResolveFrameCapAllowsUpTo20ForFramesOnly(t *testing.T) {
	req := 20
	if got := ResolveFrameCap(&req, model.ProfileFramesOnly); got != 20 {
		t.Errorf("ResolveFrameCap(20, frames_only) = %d, want 20", got)
	}
}

func TestStartDisabledIsNoop(t *testing.T) {
	page := &fakePage{}
	c := New(Config{Enabled: false}, page, zerolog.Nop())
	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if page.onFrame != nil {
		t.Error("expected StartScreencast to never be called when disabled")
	}
}

func TestStartSubscribesAndOnFramePersistsAndAcks(t *testing.T) {
	dir := t.TempDir()
	page := &fakePage{}
	c := New(Config{Enabled: true, SessionID: "s1", MaxFrames: 4, TraceDir: dir}, page, zerolog.Nop())

	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if page.onFrame == nil {
		t.Fatal("expected StartScreencast to register a frame callback")
	}

	page.onFrame(jpegFrame("ack-token-1"))

	frames := c.Snapshot(10)
	if len(frames) != 1 {
		t.Fatalf("expected 1 captured frame, got %d", len(frames))
	}
	if frames[0].Path == "" {
		t.Error("expected frame to have a persisted path")
	}
	if len(page.ackedIDs) != 1 || page.ackedIDs[0] != "ack-token-1" {
		t.Errorf("ackedIDs = %v, want [ack-token-1]", page.ackedIDs)
	}
}

func TestOnFrameThrottlesRapidFrames(t *testing.T) {
	dir := t.TempDir()
	page := &fakePage{}
	c := New(Config{Enabled: true, SessionID: "s1", MaxFrames: 4, TraceDir: dir}, page, zerolog.Nop())
	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	page.onFrame(jpegFrame(""))
	page.onFrame(jpegFrame("")) // arrives immediately after, should be dropped by the throttle

	frames := c.Snapshot(10)
	if len(frames) != 1 {
		t.Fatalf("expected throttle to keep only 1 frame, got %d", len(frames))
	}
}

func TestOnFrameIgnoredAfterStop(t *testing.T) {
	dir := t.TempDir()
	page := &fakePage{}
	c := New(Config{Enabled: true, SessionID: "s1", MaxFrames: 4, TraceDir: dir}, page, zerolog.Nop())
	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	c.Stop(context.Background())
	if !page.stopped {
		t.Error("expected StopScreencast to be called")
	}

	page.onFrame(jpegFrame("late"))
	if frames := c.Snapshot(10); len(frames) != 0 {
		t.Errorf("expected no frames kept post-stop, got %d", len(frames))
	}
	if len(page.ackedIDs) != 1 || page.ackedIDs[0] != "late" {
		t.Errorf("ackedIDs = %v, want [late]: every frame must still be acked after stop", page.ackedIDs)
	}
}

func TestHealthReportsRingState(t *testing.T) {
	dir := t.TempDir()
	page := &fakePage{}
	c := New(Config{Enabled: true, SessionID: "s1", MaxFrames: 2, TraceDir: dir}, page, zerolog.Nop())
	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	page.onFrame(jpegFrame(""))

	health := c.Health()
	if health.Max != 2 {
		t.Errorf("Health.Max = %d, want 2", health.Max)
	}
	if health.Depth != 1 {
		t.Errorf("Health.Depth = %d, want 1", health.Depth)
	}
}

func TestSignalVisualDriftNoopWhenNotAdaptive(t *testing.T) {
	c := New(Config{Adaptive: false}, &fakePage{}, zerolog.Nop())
	c.SignalVisualDrift() // must not panic; burstUntil stays zero internally
}

func TestPersistWritesUnderTraceDirFramesSubdir(t *testing.T) {
	dir := t.TempDir()
	page := &fakePage{}
	c := New(Config{Enabled: true, SessionID: "s1", MaxFrames: 4, TraceDir: dir}, page, zerolog.Nop())
	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	page.onFrame(jpegFrame(""))

	frames := c.Snapshot(1)
	if len(frames) != 1 {
		t.Fatalf("expected 1 frame, got %d", len(frames))
	}
	wantDir := filepath.Join(dir, "frames")
	if filepath.Dir(frames[0].Path) != wantDir {
		t.Errorf("frame path dir = %q, want %q", filepath.Dir(frames[0].Path), wantDir)
	}
}
