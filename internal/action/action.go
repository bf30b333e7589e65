// action.go — Action Executor: dispatches exactly one action under a
// caller-supplied timeout, preferring DOM selectors with a coordinate
// fallback (spec.md §4.5). Grounded on the DOM-first/coordinate-fallback
// pattern and required-parameter validation style used across the pack's
// browser-automation repos (theRebelliousNerd-codenerd's element lookup
// helpers), reworked against this runtime's own action vocabulary.
package action

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dev-console/webagent-mcp/internal/driver"
	"github.com/dev-console/webagent-mcp/internal/model"
	"github.com/dev-console/webagent-mcp/internal/ring"
)

const (
	minTimeoutMs     = 100
	maxTimeoutMs     = 120000
	defaultTimeoutMs = 8000
	outerSlackMs     = 300
	keyPressDelay    = 20 * time.Millisecond
	dragSteps        = 10

	// syntheticNetworkEventCap is the tighter bound the network ring is
	// trimmed to after every action-loop synthetic event, distinct from the
	// ring's own general capacity (spec.md §4.5: 500 general / 400 synthetic).
	syntheticNetworkEventCap = 400
)

// Executor runs one action against a page and records a synthetic network
// event for every execution, success or failure.
type Executor struct {
	page        driver.Page
	networkRing *ring.Ring[model.NetworkEvent]
}

// New constructs an Executor bound to page and the session's network ring.
func New(page driver.Page, networkRing *ring.Ring[model.NetworkEvent]) *Executor {
	return &Executor{page: page, networkRing: networkRing}
}

// Execute runs input.Action under its (clamped) timeout and always appends
// a synthetic network event reflecting the outcome.
func (e *Executor) Execute(ctx context.Context, input model.ActionInput) model.ActionResult {
	if input.MaxActionsPerStep > 1 {
		return e.fail(input.Action, "max_actions_per_step must be 1 in phase 1", 0)
	}

	timeout := clampTimeout(input.TimeoutMs)
	outer := timeout + outerSlackMs*time.Millisecond
	actionCtx, cancel := context.WithTimeout(ctx, outer)
	defer cancel()

	start := time.Now()
	result := e.dispatch(actionCtx, input, timeout)
	result.ElapsedMs = time.Since(start).Milliseconds()
	if !result.Success && actionCtx.Err() == context.DeadlineExceeded {
		result.Detail = fmt.Sprintf("action timeout after %dms", timeout.Milliseconds())
	}

	e.recordNetworkEvent(input.Action, result)
	return result
}

func clampTimeout(ms *int) time.Duration {
	v := defaultTimeoutMs
	if ms != nil {
		v = *ms
	}
	if v < minTimeoutMs {
		v = minTimeoutMs
	}
	if v > maxTimeoutMs {
		v = maxTimeoutMs
	}
	return time.Duration(v) * time.Millisecond
}

func (e *Executor) dispatch(ctx context.Context, input model.ActionInput, timeout time.Duration) model.ActionResult {
	switch input.Action {
	case "navigate":
		return e.navigate(ctx, input)
	case "click":
		return e.click(ctx, input, timeout)
	case "hover":
		return e.hover(ctx, input, timeout)
	case "type":
		return e.typeText(ctx, input, timeout)
	case "press":
		return e.press(ctx, input)
	case "scroll":
		return e.scroll(ctx, input)
	case "drag":
		return e.drag(ctx, input)
	case "wait":
		return e.wait(ctx, input)
	case "wait_for":
		return e.waitFor(ctx, input, timeout)
	default:
		return e.fail(input.Action, fmt.Sprintf("unknown action %q", input.Action), 0)
	}
}

func (e *Executor) navigate(ctx context.Context, input model.ActionInput) model.ActionResult {
	if input.URL == "" {
		return e.fail(input.Action, "missing url", 0)
	}
	if err := e.page.Navigate(ctx, input.URL); err != nil {
		return e.failErr(input.Action, err)
	}
	if err := e.page.WaitLoad(ctx, "domcontentloaded"); err != nil {
		return e.failErr(input.Action, err)
	}
	return e.succeed(input.Action, "", nil)
}

// withElementOrCoordinate implements spec.md §4.5's selector-or-coords
// resolution. useSelector is called when the selector resolves at least
// one node; useCoords when x,y are present instead.
func (e *Executor) withElementOrCoordinate(ctx context.Context, input model.ActionInput,
	useSelector func(driver.Locator) model.ActionResult,
	useCoords func(x, y int) model.ActionResult) model.ActionResult {

	if input.Selector != "" {
		loc := e.page.Locator(input.Selector)
		count, err := loc.Count(ctx)
		if err == nil && count >= 1 {
			return useSelector(loc)
		}
	}
	if input.X != nil && input.Y != nil {
		return useCoords(*input.X, *input.Y)
	}
	return e.fail(input.Action, "selector not found and coordinates missing", 0)
}

func (e *Executor) click(ctx context.Context, input model.ActionInput, timeout time.Duration) model.ActionResult {
	return e.withElementOrCoordinate(ctx, input,
		func(loc driver.Locator) model.ActionResult {
			if err := loc.WaitVisible(ctx); err != nil {
				return e.failErr(input.Action, err)
			}
			if err := loc.Click(ctx); err != nil {
				return e.failErr(input.Action, err)
			}
			return e.succeed(input.Action, input.Selector, nil)
		},
		func(x, y int) model.ActionResult {
			if err := e.page.MouseClick(ctx, x, y); err != nil {
				return e.failErr(input.Action, err)
			}
			return e.succeed(input.Action, "", &model.Point{X: x, Y: y})
		})
}

func (e *Executor) hover(ctx context.Context, input model.ActionInput, timeout time.Duration) model.ActionResult {
	return e.withElementOrCoordinate(ctx, input,
		func(loc driver.Locator) model.ActionResult {
			if err := loc.Hover(ctx); err != nil {
				return e.failErr(input.Action, err)
			}
			return e.succeed(input.Action, input.Selector, nil)
		},
		func(x, y int) model.ActionResult {
			if err := e.page.MouseMove(ctx, x, y); err != nil {
				return e.failErr(input.Action, err)
			}
			return e.succeed(input.Action, "", &model.Point{X: x, Y: y})
		})
}

func (e *Executor) typeText(ctx context.Context, input model.ActionInput, timeout time.Duration) model.ActionResult {
	if input.Text == "" {
		return e.fail(input.Action, "missing text", 0)
	}
	return e.withElementOrCoordinate(ctx, input,
		func(loc driver.Locator) model.ActionResult {
			if err := loc.ScrollIntoView(ctx); err != nil {
				return e.failErr(input.Action, err)
			}
			if err := loc.Fill(ctx, input.Text); err != nil {
				return e.failErr(input.Action, err)
			}
			return e.succeed(input.Action, input.Selector, nil)
		},
		func(x, y int) model.ActionResult {
			if err := e.page.MouseClick(ctx, x, y); err != nil {
				return e.failErr(input.Action, err)
			}
			if err := e.page.KeyboardType(ctx, input.Text, 0); err != nil {
				return e.failErr(input.Action, err)
			}
			return e.succeed(input.Action, "", &model.Point{X: x, Y: y})
		})
}

func (e *Executor) press(ctx context.Context, input model.ActionInput) model.ActionResult {
	if input.Key == "" {
		return e.fail(input.Action, "missing key", 0)
	}
	if err := e.page.KeyboardPress(ctx, input.Key, keyPressDelay); err != nil {
		return e.failErr(input.Action, err)
	}
	return e.succeed(input.Action, "", nil)
}

func (e *Executor) scroll(ctx context.Context, input model.ActionInput) model.ActionResult {
	if input.X != nil && input.Y != nil {
		if err := e.page.MouseMove(ctx, *input.X, *input.Y); err != nil {
			return e.failErr(input.Action, err)
		}
	}
	dx, dy := 0.0, 0.0
	if input.DeltaX != nil {
		dx = *input.DeltaX
	}
	if input.DeltaY != nil {
		dy = *input.DeltaY
	}
	if err := e.page.MouseWheel(ctx, dx, dy); err != nil {
		return e.failErr(input.Action, err)
	}
	return e.succeed(input.Action, "", nil)
}

func (e *Executor) drag(ctx context.Context, input model.ActionInput) model.ActionResult {
	if input.X == nil || input.Y == nil || input.DeltaX == nil || input.DeltaY == nil {
		return e.fail(input.Action, "missing x, y, delta_x or delta_y", 0)
	}
	startX, startY := *input.X, *input.Y
	endX := startX + int(*input.DeltaX)
	endY := startY + int(*input.DeltaY)

	if err := e.page.MouseDown(ctx, startX, startY); err != nil {
		return e.failErr(input.Action, err)
	}
	for i := 1; i <= dragSteps; i++ {
		x := startX + (endX-startX)*i/dragSteps
		y := startY + (endY-startY)*i/dragSteps
		if err := e.page.MouseMove(ctx, x, y); err != nil {
			return e.failErr(input.Action, err)
		}
	}
	if err := e.page.MouseUp(ctx, endX, endY); err != nil {
		return e.failErr(input.Action, err)
	}
	return e.succeed(input.Action, "", &model.Point{X: endX, Y: endY})
}

func (e *Executor) wait(ctx context.Context, input model.ActionInput) model.ActionResult {
	ms := 1000
	if input.TimeoutMs != nil {
		ms = *input.TimeoutMs
	}
	if ms > maxTimeoutMs {
		ms = maxTimeoutMs
	}
	select {
	case <-time.After(time.Duration(ms) * time.Millisecond):
		return e.succeed(input.Action, "", nil)
	case <-ctx.Done():
		return e.failErr(input.Action, ctx.Err())
	}
}

func (e *Executor) waitFor(ctx context.Context, input model.ActionInput, timeout time.Duration) model.ActionResult {
	switch strings.ToLower(input.Selector) {
	case "networkidle", "network_idle":
		if err := e.page.WaitLoad(ctx, "networkidle"); err != nil {
			return e.failErr(input.Action, err)
		}
		return e.succeed(input.Action, "", nil)
	case "stable", "domstable":
		if err := e.page.WaitLoad(ctx, "domcontentloaded"); err != nil {
			return e.failErr(input.Action, err)
		}
		return e.succeed(input.Action, "", nil)
	default:
		if input.Selector == "" {
			return e.fail(input.Action, "missing target", 0)
		}
		loc := e.page.Locator(input.Selector)
		if err := loc.WaitVisible(ctx); err != nil {
			return e.failErr(input.Action, err)
		}
		return e.succeed(input.Action, input.Selector, nil)
	}
}

func (e *Executor) succeed(action, selector string, coords *model.Point) model.ActionResult {
	target := ""
	if e.page != nil {
		target = e.page.URL()
	}
	return model.ActionResult{
		Action:      action,
		Success:     true,
		Status:      "completed",
		Target:      target,
		Selector:    selector,
		Coordinates: coords,
	}
}

func (e *Executor) fail(action, detail string, _ time.Duration) model.ActionResult {
	return model.ActionResult{Action: action, Success: false, Status: "failed", Detail: detail}
}

func (e *Executor) failErr(action string, err error) model.ActionResult {
	detail := "action failed"
	if err != nil {
		detail = err.Error()
	}
	return model.ActionResult{Action: action, Success: false, Status: "failed", Detail: detail}
}

func (e *Executor) recordNetworkEvent(action string, result model.ActionResult) {
	if e.networkRing == nil {
		return
	}
	now := model.NowMs()
	status := 0
	eventType := "action_failed"
	if result.Success {
		status = 200
		eventType = "action"
	}
	url := ""
	if e.page != nil {
		url = e.page.URL()
	}
	event := model.NetworkEvent{
		ID:     fmt.Sprintf("%d:%s", now, action),
		URL:    url,
		Method: action,
		Status: status,
		Type:   eventType,
		Time:   now,
	}
	if !result.Success {
		event.FailureText = result.Detail
	}
	e.networkRing.Push(event)
	e.networkRing.TrimTo(syntheticNetworkEventCap)
}
