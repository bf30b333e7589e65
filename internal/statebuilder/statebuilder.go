// statebuilder.go — State Builder: merges DOM, accessibility, network, and
// frame observations into one StatePacket and computes its change-detection
// token (spec.md §4.4). Grounded on the teacher's preference for small,
// dependency-injected components over package-global state — this builder
// holds only its own last-token, never a shared registry.
package statebuilder

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/dev-console/webagent-mcp/internal/capture"
	"github.com/dev-console/webagent-mcp/internal/driver"
	"github.com/dev-console/webagent-mcp/internal/model"
	"github.com/dev-console/webagent-mcp/internal/ring"
)

const (
	regionConfidence  = 0.78
	maxDOMTop         = 12
	defaultNetworkTake = 100
	defaultFrameTake  = 6
	maxTextLen        = 64
)

// Builder merges per-step observations for one session.
type Builder struct {
	page        driver.Page
	networkRing *ring.Ring[model.NetworkEvent]
	coordinator *capture.Coordinator

	mu        sync.Mutex
	lastToken string
	hasToken  bool
}

// New constructs a Builder bound to page, the session's network ring, and
// its Capture Coordinator (nil-safe: a nil coordinator yields no frames).
func New(page driver.Page, networkRing *ring.Ring[model.NetworkEvent], coordinator *capture.Coordinator) *Builder {
	return &Builder{page: page, networkRing: networkRing, coordinator: coordinator}
}

// Build assembles a StatePacket honoring settings' include flags exactly as
// given (spec.md §4.4).
func (b *Builder) Build(ctx context.Context, sessionID string, settings model.CaptureSettings) model.StatePacket {
	url := b.page.URL()
	title, err := b.page.Title()
	if err != nil {
		title = ""
	}

	packet := model.StatePacket{
		Timestamp:     model.NowMs(),
		SessionID:     sessionID,
		URL:           url,
		Title:         title,
		NetworkEvents: []model.NetworkEvent{},
		FrameRefs:     []model.FrameRef{},
	}

	var domCounts *model.DOMSummary
	if settings.IncludeDOM {
		if dom, err := b.buildDOM(ctx); err == nil {
			domCounts = dom
			packet.DOM = dom
			packet.RegionDetections = regionsFromDOM(dom)
		}
	}

	if settings.IncludeAX {
		if nodes, err := b.page.AccessibilitySnapshot(ctx); err == nil {
			packet.Accessibility = toAXNodes(nodes)
		}
	}

	networkCount := 0
	if settings.IncludeNetwork && b.networkRing != nil {
		events := b.networkRing.Last(defaultNetworkTake)
		packet.NetworkEvents = events
		networkCount = len(events)
	}

	frameCount := 0
	if settings.IncludeFrames && b.coordinator != nil {
		take := defaultFrameTake
		if settings.MaxFrames != nil {
			take = *settings.MaxFrames
		}
		if take < 1 {
			take = 1
		}
		frames := b.coordinator.Snapshot(take)
		packet.FrameRefs = frames
		frameCount = len(frames)
	}

	if b.coordinator != nil {
		packet.QueueHealth = b.coordinator.Health()
	}

	packet.StateToken = stateToken(url, title, domCounts, networkCount, frameCount)
	packet.ChangeTokens = b.changeTokens(packet.StateToken)

	return packet
}

func (b *Builder) buildDOM(ctx context.Context) (*model.DOMSummary, error) {
	raw, err := b.page.Eval(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("eval dom: %w", err)
	}
	top := make([]model.InteractiveElement, 0, maxDOMTop)
	for i, el := range raw.Top {
		if i >= maxDOMTop {
			break
		}
		top = append(top, model.InteractiveElement{
			Tag:  el.Tag,
			ID:   el.ID,
			Name: el.Name,
			Role: el.Role,
			Text: truncate(el.Text, maxTextLen),
			Bounds: model.Bounds{
				X:      clampNonNeg(el.Bounds.X),
				Y:      clampNonNeg(el.Bounds.Y),
				Width:  clampNonNeg(el.Bounds.Width),
				Height: clampNonNeg(el.Bounds.Height),
			},
		})
	}
	return &model.DOMSummary{
		InteractiveCount: raw.InteractiveCount,
		TextInputs:       raw.TextInputs,
		Buttons:          raw.Buttons,
		Links:            raw.Links,
		IFrames:          raw.IFrames,
		CanvasNodes:      raw.CanvasNodes,
		Top:              top,
	}, nil
}

func toAXNodes(in []driver.AXNode) []model.AXNode {
	out := make([]model.AXNode, 0, len(in))
	for _, n := range in {
		out = append(out, model.AXNode{Role: n.Role, Name: n.Name})
	}
	return out
}

func regionsFromDOM(dom *model.DOMSummary) []model.RegionDetection {
	if dom == nil {
		return nil
	}
	regions := make([]model.RegionDetection, 0, len(dom.Top))
	for _, el := range dom.Top {
		label := el.Tag
		if el.ID != "" {
			label = fmt.Sprintf("%s#%s", el.Tag, el.ID)
		}
		regions = append(regions, model.RegionDetection{
			Label:      label,
			Bounds:     el.Bounds,
			Confidence: regionConfidence,
		})
	}
	return regions
}

// stateTokenInput is the canonical subset hashed into the state token
// (spec.md §3 "State packet").
type stateTokenInput struct {
	URL          string         `json:"url"`
	Title        string         `json:"title"`
	DOM          map[string]int `json:"dom"`
	NetworkCount int            `json:"networkCount"`
	FrameCount   int            `json:"frameCount"`
}

func stateToken(url, title string, dom *model.DOMSummary, networkCount, frameCount int) string {
	domMap := map[string]int{}
	if dom != nil {
		domMap = map[string]int{
			"interactive_count": dom.InteractiveCount,
			"buttons":           dom.Buttons,
			"text_inputs":       dom.TextInputs,
			"links":             dom.Links,
			"iframes":           dom.IFrames,
			"canvas_nodes":      dom.CanvasNodes,
		}
	}
	input := stateTokenInput{URL: url, Title: title, DOM: domMap, NetworkCount: networkCount, FrameCount: frameCount}
	// encoding/json sorts map keys, so this serialization is deterministic.
	raw, _ := json.Marshal(input)
	sum := sha1.Sum(raw)
	return hex.EncodeToString(sum[:])
}

func (b *Builder) changeTokens(token string) []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.hasToken {
		b.hasToken = true
		b.lastToken = token
		return []string{"INIT"}
	}
	if token == b.lastToken {
		return []string{"NO_CHANGE"}
	}
	b.lastToken = token
	return []string{"STATE_CHANGED"}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

func clampNonNeg(v int) int {
	if v < 0 {
		return 0
	}
	return v
}

// WithSessionID returns a structural copy of state with SessionID set and a
// fresh QueueHealth copy (spec.md §4.4 withSessionId).
func WithSessionID(state model.StatePacket, sessionID string) model.StatePacket {
	out := state
	out.SessionID = sessionID
	health := state.QueueHealth
	out.QueueHealth = health
	return out
}
