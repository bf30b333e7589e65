// manager.go — Session Manager: admission control and lifecycle bookkeeping
// for a bounded pool of Browser Sessions within one process (spec.md §4.1).
// Grounded on Rorqualx-flaresolverr-go's two-phase sweep (collect expired
// ids under lock, release resources outside it) and its errgroup-bounded
// parallel cleanup, adapted from a TTL-only sweep to this runtime's
// admission-eviction-by-oldest-creation and age-based gc().
package session

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/dev-console/webagent-mcp/internal/driver"
	"github.com/dev-console/webagent-mcp/internal/model"
	"github.com/dev-console/webagent-mcp/internal/replay"
	"github.com/dev-console/webagent-mcp/internal/security"
)

const gcConcurrencyLimit = 4

// CreateResult is the Session Manager's create() return value.
type CreateResult struct {
	SessionID    string
	TraceID      string
	Capabilities Capabilities
	InitialState model.StatePacket
	FrameRef     *model.FrameRef
}

// Manager admits, looks up, and ages out sessions.
type Manager struct {
	maxSessions int
	maxAgeMs    int64
	headless    bool
	launcher    driver.Launcher
	replayStore *replay.Store
	log         zerolog.Logger

	mu       sync.Mutex
	sessions map[string]*BrowserSession
}

// NewManager constructs a Manager bounded to maxSessions with the given
// session-age ceiling. launcher starts each session's browser; replayStore
// is shared across all sessions (each writes to its own trace file within it).
// headless is the process-wide default applied to every session's browser
// launch (spec.md §6 HEADLESS).
func NewManager(maxSessions int, maxAgeMs int64, headless bool, launcher driver.Launcher, replayStore *replay.Store, log zerolog.Logger) *Manager {
	return &Manager{
		maxSessions: maxSessions,
		maxAgeMs:    maxAgeMs,
		headless:    headless,
		launcher:    launcher,
		replayStore: replayStore,
		log:         log.With().Str("component", "session_manager").Logger(),
		sessions:    make(map[string]*BrowserSession),
	}
}

// Create admits a new session per spec.md §4.1 create(): validates the
// target URL, evicts the oldest session if at capacity, mints fresh ids,
// and starts a Browser Session. A non-nil errorCodes return means the
// request was rejected before any browser work began.
func (m *Manager) Create(ctx context.Context, input CreateInput) (CreateResult, []string, error) {
	if res := security.ValidateURL(input.TargetURL); !res.OK {
		return CreateResult{}, res.Errors, nil
	}
	if res := security.HostAllowed(input.TargetURL, input.Allowlist, input.Denylist); !res.OK {
		return CreateResult{}, res.Errors, nil
	}

	m.mu.Lock()
	atCapacity := len(m.sessions) >= m.maxSessions
	var oldestID string
	if atCapacity {
		oldestID = m.oldestLocked()
	}
	m.mu.Unlock()

	if oldestID != "" {
		m.Stop(ctx, oldestID, false)
	}

	sessionID := uuid.NewString()
	traceID := fmt.Sprintf("%s-%d", sessionID, model.NowMs())

	input.Headless = m.headless
	bs := NewBrowserSession(sessionID, traceID, m.launcher, m.replayStore, m.log)
	state, caps, err := bs.Start(ctx, input)
	if err != nil {
		return CreateResult{}, nil, err
	}

	m.mu.Lock()
	m.sessions[sessionID] = bs
	m.mu.Unlock()

	var frameRef *model.FrameRef
	if len(state.FrameRefs) > 0 {
		frameRef = &state.FrameRefs[len(state.FrameRefs)-1]
	}

	return CreateResult{
		SessionID:    sessionID,
		TraceID:      traceID,
		Capabilities: caps,
		InitialState: state,
		FrameRef:     frameRef,
	}, nil, nil
}

// Get returns the session for id, or nil if unknown (spec.md §4.1 get()).
func (m *Manager) Get(id string) *BrowserSession {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessions[id]
}

// Touch updates a session's last-active marker so it is not the GC sweep's
// next eviction target (spec.md §4.1 touch()).
func (m *Manager) Touch(id string) {
	if s := m.Get(id); s != nil {
		s.Touch()
	}
}

func (m *Manager) oldestLocked() string {
	var oldestID string
	var oldestAt int64 = -1
	for id, s := range m.sessions {
		at := s.LastTouch()
		if oldestAt == -1 || at < oldestAt {
			oldestAt = at
			oldestID = id
		}
	}
	return oldestID
}

// Stop delegates to the session then removes it from the pool (spec.md
// §4.1 stop()). A stop on an unknown id is a no-op.
func (m *Manager) Stop(ctx context.Context, id string, preserve bool) StopResult {
	m.mu.Lock()
	s := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if s == nil {
		return StopResult{Status: "stopped", Cleanup: "noop"}
	}
	return s.Stop(ctx, preserve)
}

// GC stops any session whose last touch is older than maxAgeMs, swallowing
// per-session stop failures to keep sweeping (spec.md §4.1 gc()).
func (m *Manager) GC(ctx context.Context) int {
	now := model.NowMs()

	m.mu.Lock()
	var expired []*BrowserSession
	for id, s := range m.sessions {
		if now-s.LastTouch() > m.maxAgeMs {
			expired = append(expired, s)
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()

	if len(expired) == 0 {
		return 0
	}

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(gcConcurrencyLimit)
	for _, s := range expired {
		sess := s
		eg.Go(func() error {
			sess.Stop(egCtx, false)
			return nil
		})
	}
	_ = eg.Wait() // per-session failures already swallowed inside Stop
	return len(expired)
}

// Count reports the number of currently admitted sessions.
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// IDs returns all currently admitted session ids, oldest-touched first.
func (m *Manager) IDs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		return m.sessions[ids[i]].LastTouch() < m.sessions[ids[j]].LastTouch()
	})
	return ids
}
