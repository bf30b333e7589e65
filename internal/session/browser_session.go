// browser_session.go — Browser Session: the per-session state machine
// binding page, Capture Coordinator, Action Executor, State Builder, and
// Replay Store (spec.md §4.2). Grounded on the two-phase
// mark-then-release-under-lock shutdown discipline in
// Rorqualx-flaresolverr-go's session manager (collect under lock, release
// resources outside it), adapted from a TTL sweep to this session's own
// start/step/snapshot/stop operations.
package session

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/dev-console/webagent-mcp/internal/action"
	"github.com/dev-console/webagent-mcp/internal/capture"
	"github.com/dev-console/webagent-mcp/internal/driver"
	"github.com/dev-console/webagent-mcp/internal/model"
	"github.com/dev-console/webagent-mcp/internal/replay"
	"github.com/dev-console/webagent-mcp/internal/ring"
	"github.com/dev-console/webagent-mcp/internal/security"
	"github.com/dev-console/webagent-mcp/internal/statebuilder"
)

// Status errors, surfaced verbatim as lifecycle error strings (spec.md §7).
var (
	ErrAlreadyStarted  = fmt.Errorf("session already started")
	ErrNotActive       = fmt.Errorf("session is not active")
	ErrMaxStepsReached = fmt.Errorf("max_steps reached")
	ErrMaxDuration     = fmt.Errorf("session exceeded max_duration_ms")
)

// CreateInput is the caller-supplied session_create request (spec.md §6).
type CreateInput struct {
	TargetURL      string
	ViewportWidth  int
	ViewportHeight int
	StorageState   string
	CaptureProfile model.CaptureProfile
	PolicyMode     model.PolicyMode
	MaxSteps       int
	MaxDurationMs  int64
	Allowlist      []string
	Denylist       []string
	FrameBudgetMs  int
	JPEGQuality    int
	FrameMaxWidth  int
	FrameMaxHeight int
	Headless       bool
}

// Capabilities is the capability report returned alongside the initial
// state packet (spec.md §4.2).
type Capabilities struct {
	CaptureProfile model.CaptureProfile `json:"capture_profile"`
	MaxSteps       int                  `json:"max_steps"`
	MaxDurationMs  int64                `json:"max_duration_ms"`
	Policy         model.PolicyMode     `json:"policy"`
	DOMFirst       bool                 `json:"dom_first"`
	FrameCapture   bool                 `json:"frame_capture"`
}

// BrowserSession is one agent-controlled browser tab and its bound
// session-runtime components.
type BrowserSession struct {
	id      string
	traceID string

	mu     sync.Mutex
	status model.SessionStatus

	createdAt  int64
	lastTouch  int64
	stepIndex  int
	maxSteps   int
	maxDurMs   int64
	profile    model.CaptureProfile
	policyMode model.PolicyMode

	launcher driver.Launcher
	browser  driver.Browser
	page     driver.Page

	networkRing *ring.Ring[model.NetworkEvent]
	coordinator *capture.Coordinator
	executor    *action.Executor
	builder     *statebuilder.Builder
	replayStore *replay.Store

	log zerolog.Logger
}

// NewBrowserSession constructs a session in the Created state. It does not
// touch the network until Start is called.
func NewBrowserSession(id, traceID string, launcher driver.Launcher, replayStore *replay.Store, log zerolog.Logger) *BrowserSession {
	return &BrowserSession{
		id:          id,
		traceID:     traceID,
		status:      model.StatusCreated,
		launcher:    launcher,
		replayStore: replayStore,
		log:         log.With().Str("session_id", id).Logger(),
	}
}

func (s *BrowserSession) ID() string      { return s.id }
func (s *BrowserSession) TraceID() string { return s.traceID }

// LastTouch reports the epoch-ms timestamp of the session's last activity,
// used by the Session Manager's admission eviction and gc() sweep.
func (s *BrowserSession) LastTouch() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastTouch
}

func (s *BrowserSession) touch() {
	s.lastTouch = model.NowMs()
}

// Touch updates the session's last-active marker, locking internally. Used
// by the Session Manager; internal call sites that already hold s.mu use
// the unexported touch() instead.
func (s *BrowserSession) Touch() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()
}

// IsActive reports whether the session is in the Active state.
func (s *BrowserSession) IsActive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status == model.StatusActive
}

// Start launches the browser, page, and session components and navigates
// to input.TargetURL (spec.md §4.2 start()).
func (s *BrowserSession) Start(ctx context.Context, input CreateInput) (model.StatePacket, Capabilities, error) {
	s.mu.Lock()
	if s.status != model.StatusCreated {
		s.mu.Unlock()
		return model.StatePacket{}, Capabilities{}, ErrAlreadyStarted
	}
	s.status = model.StatusStarting
	s.profile = input.CaptureProfile
	s.policyMode = input.PolicyMode
	s.maxSteps = input.MaxSteps
	s.maxDurMs = input.MaxDurationMs
	s.mu.Unlock()

	var acquired []func()
	release := func() {
		for i := len(acquired) - 1; i >= 0; i-- {
			acquired[i]()
		}
	}

	browser, err := s.launcher.Launch(ctx, input.Headless)
	if err != nil {
		release()
		s.setStatus(model.StatusCreated)
		return model.StatePacket{}, Capabilities{}, fmt.Errorf("launch browser: %w", err)
	}
	s.browser = browser
	acquired = append(acquired, func() { _ = browser.Close() })

	page, err := browser.NewPage(ctx, driver.NewPageOptions{
		ViewportWidth:  input.ViewportWidth,
		ViewportHeight: input.ViewportHeight,
		StorageState:   input.StorageState,
	})
	if err != nil {
		release()
		s.setStatus(model.StatusCreated)
		return model.StatePacket{}, Capabilities{}, fmt.Errorf("create page: %w", err)
	}
	s.page = page
	acquired = append(acquired, func() { _ = page.Close() })

	s.networkRing = ring.New[model.NetworkEvent](500)
	unsub := page.OnNetworkEvent(s.onNetworkEvent)
	acquired = append(acquired, unsub)

	enableCapture := s.profile != model.ProfileDOMOnly
	s.coordinator = capture.New(capture.Config{
		Enabled:   enableCapture,
		SessionID: s.id,
		TraceID:   s.traceID,
		Quality:   input.JPEGQuality,
		MaxWidth:  input.FrameMaxWidth,
		MaxHeight: input.FrameMaxHeight,
		MaxFrames: capture.ResolveFrameCap(nil, s.profile),
		Adaptive:  s.profile == model.ProfileAdaptive,
		TraceDir:  s.traceDir(),
	}, page, s.log)
	if err := s.coordinator.Start(ctx); err != nil {
		release()
		s.setStatus(model.StatusCreated)
		return model.StatePacket{}, Capabilities{}, fmt.Errorf("start capture: %w", err)
	}
	acquired = append(acquired, func() { s.coordinator.Stop(context.Background()) })

	s.executor = action.New(page, s.networkRing)
	s.builder = statebuilder.New(page, s.networkRing, s.coordinator)

	navCtx, cancel := context.WithTimeout(ctx, 120*time.Second)
	defer cancel()
	if err := page.Navigate(navCtx, input.TargetURL); err != nil {
		release()
		s.setStatus(model.StatusCreated)
		return model.StatePacket{}, Capabilities{}, fmt.Errorf("navigate: %w", err)
	}
	if err := page.WaitLoad(navCtx, "domcontentloaded"); err != nil {
		s.log.Warn().Err(err).Msg("navigate wait load failed, continuing")
	}

	settings := model.CaptureSettings{
		IncludeDOM:     s.profile != model.ProfileFramesOnly,
		IncludeAX:      true,
		IncludeNetwork: true,
		IncludeFrames:  s.profile != model.ProfileDOMOnly,
	}
	state := s.builder.Build(ctx, s.id, settings)

	s.mu.Lock()
	s.status = model.StatusActive
	s.createdAt = model.NowMs()
	s.touch()
	s.mu.Unlock()

	if _, err := s.replayStore.Append(s.traceID, model.EventCreate, map[string]any{
		"session_id": s.id,
		"url":        input.TargetURL,
	}); err != nil {
		s.log.Warn().Err(err).Msg("append create replay event failed")
	}

	caps := Capabilities{
		CaptureProfile: s.profile,
		MaxSteps:       s.maxSteps,
		MaxDurationMs:  s.maxDurMs,
		Policy:         s.policyMode,
		DOMFirst:       true,
		FrameCapture:   s.profile != model.ProfileDOMOnly,
	}
	return state, caps, nil
}

func (s *BrowserSession) traceDir() string {
	return filepath.Join(s.replayStore.Root(), replay.SanitizeTraceID(s.traceID))
}

func (s *BrowserSession) setStatus(st model.SessionStatus) {
	s.mu.Lock()
	s.status = st
	s.mu.Unlock()
}

func (s *BrowserSession) onNetworkEvent(ev driver.NetworkDriverEvent) {
	var prefix, eventType string
	switch ev.Kind {
	case driver.NetworkRequest:
		prefix, eventType = "r_", "request"
	case driver.NetworkResponse:
		prefix, eventType = "p_", "response"
	case driver.NetworkFailure:
		prefix, eventType = "f_", "failure"
	}
	s.networkRing.Push(model.NetworkEvent{
		ID:          prefix + ev.ID,
		URL:         ev.URL,
		Method:      ev.Method,
		Status:      ev.Status,
		Type:        eventType,
		Time:        ev.Time.UnixMilli(),
		FailureText: ev.FailureText,
	})
}

// normalizeCaptureSettings implements spec.md §4.2 step() step 2.
func (s *BrowserSession) normalizeCaptureSettings(requested *model.CaptureSettings) model.CaptureSettings {
	defaults := model.CaptureSettings{
		IncludeDOM:     s.profile != model.ProfileFramesOnly,
		IncludeAX:      s.profile != model.ProfileFramesOnly,
		IncludeNetwork: true,
		IncludeFrames:  s.profile != model.ProfileDOMOnly,
	}
	if requested == nil {
		return defaults
	}
	if !requested.AnyIncludeSet() {
		defaults.MaxFrames = requested.MaxFrames
		return defaults
	}
	return *requested
}

// StepInput is the caller-supplied step() request.
type StepInput struct {
	Action  model.ActionInput
	Capture *model.CaptureSettings
}

// Step executes one action and returns the composed step result (spec.md
// §4.2 step()).
func (s *BrowserSession) Step(ctx context.Context, input StepInput) (model.StepResult, error) {
	if !s.IsActive() {
		return model.StepResult{}, ErrNotActive
	}

	s.mu.Lock()
	if s.stepIndex >= s.maxSteps {
		s.mu.Unlock()
		return model.StepResult{}, ErrMaxStepsReached
	}
	if model.NowMs()-s.createdAt > s.maxDurMs {
		s.mu.Unlock()
		return model.StepResult{}, ErrMaxDuration
	}
	s.mu.Unlock()

	start := time.Now()
	settings := s.normalizeCaptureSettings(input.Capture)

	preState := s.builder.Build(ctx, s.id, settings)

	if denied := s.policyDenies(input.Action); denied {
		return model.StepResult{
			State:              preState,
			FrameRefs:          preState.FrameRefs,
			ActionResult:       model.ActionResult{Action: input.Action.Action, Success: false, Status: "policy_denied"},
			ErrorCodes:         []string{"POLICY_DENIED"},
			NextRecommendation: model.RecommendHalt,
			LatencyMs:          time.Since(start).Milliseconds(),
			QueueHealth:        preState.QueueHealth,
		}, nil
	}

	actionResult := s.executor.Execute(ctx, input.Action)

	if input.Action.Action == "wait" || input.Action.Action == "wait_for" {
		s.coordinator.SignalVisualDrift()
	}

	postState := s.builder.Build(ctx, s.id, settings)

	s.mu.Lock()
	s.stepIndex++
	s.touch()
	stepIndex := s.stepIndex
	s.mu.Unlock()

	var errorCodes []string
	recommendation := model.RecommendContinue
	if !actionResult.Success {
		if containsTimeout(actionResult.Detail) {
			recommendation = model.RecommendFallbackOrAbandon
		} else {
			recommendation = model.RecommendRetry
		}
		errorCodes = append(errorCodes, "ACTION_FAILED")
	}
	if len(postState.NetworkEvents) == 0 {
		errorCodes = append(errorCodes, "NO_NETWORK_EVENT")
	}

	result := model.StepResult{
		State:              postState,
		FrameRefs:          postState.FrameRefs,
		ActionResult:       actionResult,
		ErrorCodes:         errorCodes,
		NextRecommendation: recommendation,
		LatencyMs:          time.Since(start).Milliseconds(),
		QueueHealth:        postState.QueueHealth,
	}

	if _, err := s.replayStore.Append(s.traceID, model.EventStep, map[string]any{
		"step_index": stepIndex,
		"action":     input.Action.Action,
		"success":    actionResult.Success,
	}); err != nil {
		s.log.Warn().Err(err).Msg("append step replay event failed")
	}

	return result, nil
}

func containsTimeout(detail string) bool {
	return strings.Contains(detail, "timeout")
}

func (s *BrowserSession) policyDenies(input model.ActionInput) bool {
	if s.policyMode != model.PolicyDeterministic {
		return false
	}
	if input.Action != "navigate" {
		return false
	}
	return security.DeterministicNavigateBlocked(input.URL)
}

// Snapshot builds a state packet honoring the caller's include flags
// literally (spec.md §4.2 snapshot()).
func (s *BrowserSession) Snapshot(ctx context.Context, settings model.CaptureSettings) (model.StatePacket, error) {
	if !s.IsActive() {
		return model.StatePacket{}, ErrNotActive
	}
	state := s.builder.Build(ctx, s.id, settings)
	if _, err := s.replayStore.Append(s.traceID, model.EventSnapshot, map[string]any{}); err != nil {
		s.log.Warn().Err(err).Msg("append snapshot replay event failed")
	}
	return state, nil
}

// StopResult is the outcome of a stop() call.
type StopResult struct {
	Status    string `json:"status"`
	Cleanup   string `json:"cleanup"`
	TracePath string `json:"trace_path,omitempty"`
}

// Stop idempotently tears the session down (spec.md §4.2 stop()).
func (s *BrowserSession) Stop(ctx context.Context, preserve bool) StopResult {
	s.mu.Lock()
	if s.status != model.StatusActive {
		s.mu.Unlock()
		return StopResult{Status: "stopped", Cleanup: "noop"}
	}
	s.status = model.StatusStopping
	s.mu.Unlock()

	if s.coordinator != nil {
		s.coordinator.Stop(ctx)
	}
	if s.page != nil {
		if err := s.page.Close(); err != nil {
			s.log.Debug().Err(err).Msg("close page failed")
		}
	}
	if s.browser != nil {
		if err := s.browser.Close(); err != nil {
			s.log.Debug().Err(err).Msg("close browser failed")
		}
	}

	s.setStatus(model.StatusStopped)

	if _, err := s.replayStore.Append(s.traceID, model.EventStop, map[string]any{"preserve": preserve}); err != nil {
		s.log.Debug().Err(err).Msg("append stop replay event failed")
	}

	if !preserve {
		s.replayStore.Cleanup(s.traceID)
		return StopResult{Status: "stopped", Cleanup: "cleaned"}
	}
	return StopResult{Status: "stopped", Cleanup: "retained", TracePath: s.replayStore.TracePath(s.traceID)}
}

// Capabilities reports this session's current capability set.
func (s *BrowserSession) CapabilitiesReport() Capabilities {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Capabilities{
		CaptureProfile: s.profile,
		MaxSteps:       s.maxSteps,
		MaxDurationMs:  s.maxDurMs,
		Policy:         s.policyMode,
		DOMFirst:       true,
		FrameCapture:   s.profile != model.ProfileDOMOnly,
	}
}
