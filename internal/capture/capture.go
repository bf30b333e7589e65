// capture.go — Capture Coordinator: a bounded, acknowledgement-driven
// screencast frame ring decoupled from the synchronous step/control loop
// (spec.md §4.3). Grounded on the burst/normal two-speed throttle idea in
// theRebelliousNerd-codenerd's eventThrottler, generalized into a
// time-bounded "burst_until" scalar per spec.md §9 design note.
package capture

import (
	"context"
	"crypto/sha1"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/dev-console/webagent-mcp/internal/driver"
	"github.com/dev-console/webagent-mcp/internal/model"
	"github.com/dev-console/webagent-mcp/internal/ring"
)

const (
	normalInterval = 333 * time.Millisecond
	burstInterval  = 125 * time.Millisecond
	burstDuration  = 2 * time.Second
)

// Config configures one session's coordinator.
type Config struct {
	Enabled   bool
	SessionID string
	TraceID   string
	Quality   int
	MaxWidth  int
	MaxHeight int
	MaxFrames int // ring capacity, already resolved via ResolveFrameCap
	Adaptive  bool
	TraceDir  string
}

// ResolveFrameCap implements spec.md §4.3's frame-cap default rule.
func ResolveFrameCap(requested *int, profile model.CaptureProfile) int {
	cap := 8
	if requested != nil {
		cap = clamp(*requested, 2, 20)
	}
	if profile == model.ProfileFramesOnly {
		return cap
	}
	return clamp(cap, 3, 12)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Coordinator owns one session's frame ring and throttle state.
type Coordinator struct {
	cfg Config
	log zerolog.Logger

	page driver.Page

	mu         sync.Mutex
	active     bool
	lastCaptured time.Time
	burstUntil time.Time
	seq        int64

	pending int64 // atomic in-flight ack count

	ring *ring.Ring[model.FrameRef]

	unsub func()
}

// New constructs a coordinator bound to page. It does nothing until start().
func New(cfg Config, page driver.Page, log zerolog.Logger) *Coordinator {
	capacity := cfg.MaxFrames
	if capacity < 1 {
		capacity = 8
	}
	return &Coordinator{
		cfg:  cfg,
		log:  log.With().Str("component", "capture").Str("session_id", cfg.SessionID).Logger(),
		page: page,
		ring: ring.New[model.FrameRef](capacity),
	}
}

// Start subscribes to the driver's screencast stream. No-op if disabled or
// already active (spec.md §4.3 start()).
func (c *Coordinator) Start(ctx context.Context) error {
	if !c.cfg.Enabled {
		return nil
	}
	c.mu.Lock()
	if c.active {
		c.mu.Unlock()
		return nil
	}
	c.active = true
	c.mu.Unlock()

	err := c.page.StartScreencast(ctx, driver.ScreencastConfig{
		Quality:       c.cfg.Quality,
		MaxWidth:      c.cfg.MaxWidth,
		MaxHeight:     c.cfg.MaxHeight,
		EveryNthFrame: 1,
	}, c.onFrame)
	if err != nil {
		c.mu.Lock()
		c.active = false
		c.mu.Unlock()
		return fmt.Errorf("start screencast: %w", err)
	}
	return nil
}

// onFrame is the driver's per-frame callback (spec.md §4.3 "On frame event").
// Every frame gets exactly one acknowledgement, even one arriving after Stop
// or one the throttle drops — only whether it is persisted depends on the
// coordinator's active state.
func (c *Coordinator) onFrame(f driver.ScreencastFrame) {
	defer func() {
		if f.SessionID != "" {
			if err := c.page.AckFrame(context.Background(), f.SessionID); err != nil {
				c.log.Debug().Err(err).Msg("ack frame failed")
			}
		}
	}()

	c.mu.Lock()
	active := c.active
	c.mu.Unlock()
	if !active {
		return
	}

	atomic.AddInt64(&c.pending, 1)
	defer atomic.AddInt64(&c.pending, -1)

	now := time.Now()
	keep := c.shouldKeep(now)

	if keep && f.Data != "" {
		if ref, err := c.persist(now, f); err != nil {
			c.log.Warn().Err(err).Msg("persist frame failed")
		} else {
			c.ring.Push(ref)
		}
	}
}

// shouldKeep decides the throttle outcome for the frame arriving at now.
// The very first frame is always kept.
func (c *Coordinator) shouldKeep(now time.Time) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.lastCaptured.IsZero() {
		c.lastCaptured = now
		return true
	}
	interval := normalInterval
	if now.Before(c.burstUntil) {
		interval = burstInterval
	}
	if now.Sub(c.lastCaptured) < interval {
		return false
	}
	c.lastCaptured = now
	return true
}

func (c *Coordinator) persist(now time.Time, f driver.ScreencastFrame) (model.FrameRef, error) {
	raw, err := base64.StdEncoding.DecodeString(f.Data)
	if err != nil {
		return model.FrameRef{}, fmt.Errorf("decode frame data: %w", err)
	}
	sum := sha1.Sum(raw)
	checksum := hex.EncodeToString(sum[:])

	seq := atomic.AddInt64(&c.seq, 1)
	id := fmt.Sprintf("%s-%d-%d", c.cfg.SessionID, now.UnixMilli(), seq)

	dir := filepath.Join(c.cfg.TraceDir, "frames")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return model.FrameRef{}, fmt.Errorf("mkdir frames dir: %w", err)
	}
	path := filepath.Join(dir, id+".jpg")
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return model.FrameRef{}, fmt.Errorf("write frame: %w", err)
	}

	return model.FrameRef{
		ID:        id,
		Timestamp: now.UnixMilli(),
		Width:     f.Width,
		Height:    f.Height,
		MIME:      "image/jpeg",
		Checksum:  checksum,
		Path:      path,
		Metadata: map[string]any{
			"raw_bytes": len(raw),
		},
	}, nil
}

// SignalVisualDrift puts the coordinator into burst mode for 2s, triggered
// by a wait/wait_for action (spec.md §4.2 step() step 5).
func (c *Coordinator) SignalVisualDrift() {
	if !c.cfg.Adaptive {
		return
	}
	c.mu.Lock()
	c.burstUntil = time.Now().Add(burstDuration)
	c.mu.Unlock()
}

// Stop disables further capture, best-effort stops the screencast, and
// clears the ring (spec.md §4.3 stop()).
func (c *Coordinator) Stop(ctx context.Context) {
	c.mu.Lock()
	if !c.active {
		c.mu.Unlock()
		return
	}
	c.active = false
	c.mu.Unlock()

	if err := c.page.StopScreencast(ctx); err != nil {
		c.log.Debug().Err(err).Msg("stop screencast failed")
	}
	c.ring.Clear()
}

// Snapshot returns the frames currently held, oldest first.
func (c *Coordinator) Snapshot(maxFrames int) []model.FrameRef {
	if maxFrames < 1 {
		maxFrames = 1
	}
	return c.ring.Last(maxFrames)
}

// Health reports the coordinator's current queue observability (spec.md
// §4.3 "Observability getters").
func (c *Coordinator) Health() model.QueueHealth {
	return model.QueueHealth{
		Depth:   c.ring.Len(),
		Max:     c.ring.Cap(),
		Dropped: c.ring.Dropped(),
		Pending: int(atomic.LoadInt64(&c.pending)),
	}
}
