// rod.go — the go-rod backed implementation of the driver interface.
// Grounded on the launcher/connect pattern and event-subscription style used
// for Chrome DevTools Protocol access in the pack's browser-automation repo,
// adapted to the narrower capability surface this runtime actually needs.
package driver

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/input"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
	"github.com/rs/zerolog"

	"github.com/dev-console/webagent-mcp/internal/util"
)

// hardened sandbox flags recommended by spec.md §4.2 start().
var hardenedFlags = []string{
	"disable-dev-shm-usage",
	"no-sandbox",
	"disable-gpu",
}

// RodLauncher launches a Chrome/Chromium instance via go-rod's launcher and
// returns a Browser backed by the resulting connection.
type RodLauncher struct {
	Bin    string // optional explicit binary path; empty lets go-rod resolve one
	Flags  []string
	Logger zerolog.Logger
}

func (l RodLauncher) Launch(ctx context.Context, headless bool) (Browser, error) {
	lnch := launcher.New().Headless(headless)
	if l.Bin != "" {
		lnch = lnch.Bin(l.Bin)
	}
	for _, f := range hardenedFlags {
		lnch = lnch.Set(flags.Flag(f))
	}
	for _, raw := range l.Flags {
		name, val, hasVal := strings.Cut(strings.TrimLeft(raw, "-"), "=")
		if hasVal {
			lnch = lnch.Set(flags.Flag(name), val)
		} else {
			lnch = lnch.Set(flags.Flag(name))
		}
	}

	controlURL, err := lnch.Launch()
	if err != nil {
		return nil, fmt.Errorf("launch browser: %w", err)
	}

	browser := rod.New().ControlURL(controlURL).Context(ctx)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("connect to browser: %w", err)
	}
	l.Logger.Info().Str("control_url", controlURL).Bool("headless", headless).Msg("browser launched")
	return &rodBrowser{browser: browser, log: l.Logger}, nil
}

type rodBrowser struct {
	browser *rod.Browser
	log     zerolog.Logger
}

func (b *rodBrowser) NewPage(ctx context.Context, opts NewPageOptions) (Page, error) {
	incognito, err := b.browser.Incognito()
	if err != nil {
		return nil, fmt.Errorf("create incognito context: %w", err)
	}
	page, err := incognito.Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, fmt.Errorf("create page: %w", err)
	}
	page = page.Context(ctx)

	width, height := opts.ViewportWidth, opts.ViewportHeight
	if width == 0 {
		width = 1280
	}
	if height == 0 {
		height = 800
	}
	if err := (proto.EmulationSetDeviceMetricsOverride{
		Width:             width,
		Height:            height,
		DeviceScaleFactor: 1.0,
		Mobile:            false,
	}).Call(page); err != nil {
		return nil, fmt.Errorf("set viewport: %w", err)
	}

	return &rodPage{page: page, log: b.log}, nil
}

func (b *rodBrowser) Close() error {
	return b.browser.Close()
}

type rodPage struct {
	page *rod.Page
	log  zerolog.Logger

	mu           sync.Mutex
	netUnsub     func()
	castStop     func()
}

func (p *rodPage) URL() string {
	info, err := p.page.Info()
	if err != nil {
		return ""
	}
	return info.URL
}

func (p *rodPage) Title() (string, error) {
	info, err := p.page.Info()
	if err != nil {
		return "", err
	}
	return info.Title, nil
}

func (p *rodPage) Navigate(ctx context.Context, url string) error {
	return p.page.Context(ctx).Navigate(url)
}

func (p *rodPage) WaitLoad(ctx context.Context, condition string) error {
	page := p.page.Context(ctx)
	switch condition {
	case "networkidle":
		return page.WaitRequestIdle(300*time.Millisecond, nil, nil, nil)()
	default:
		return page.WaitDOMStable(300*time.Millisecond, 0)
	}
}

const domSummaryScript = `() => {
	const all = Array.from(document.querySelectorAll('a,button,input,select,textarea,[role],[onclick]'));
	const rectOf = (el) => { const r = el.getBoundingClientRect(); return {x: Math.round(r.x), y: Math.round(r.y), width: Math.round(r.width), height: Math.round(r.height)}; };
	const top = all.slice(0, 50).map((el) => ({
		tag: el.tagName.toLowerCase(),
		id: el.id || '',
		name: el.getAttribute('name') || '',
		role: el.getAttribute('role') || '',
		text: (el.innerText || el.value || '').slice(0, 80),
		bounds: rectOf(el),
	}));
	return {
		interactiveCount: all.length,
		textInputs: document.querySelectorAll('input[type=text],input[type=email],input[type=search],textarea').length,
		buttons: document.querySelectorAll('button,[role=button]').length,
		links: document.querySelectorAll('a[href]').length,
		iframes: document.querySelectorAll('iframe').length,
		canvasNodes: document.querySelectorAll('canvas').length,
		top,
	};
}`

type rawDOMSummary struct {
	InteractiveCount int                      `json:"interactiveCount"`
	TextInputs       int                      `json:"textInputs"`
	Buttons          int                      `json:"buttons"`
	Links            int                      `json:"links"`
	IFrames          int                      `json:"iframes"`
	CanvasNodes      int                      `json:"canvasNodes"`
	Top              []rawInteractiveElement  `json:"top"`
}

type rawInteractiveElement struct {
	Tag    string `json:"tag"`
	ID     string `json:"id"`
	Name   string `json:"name"`
	Role   string `json:"role"`
	Text   string `json:"text"`
	Bounds struct {
		X, Y, Width, Height int
	} `json:"bounds"`
}

func (p *rodPage) Eval(ctx context.Context, js string) (DOMSummaryRaw, error) {
	if js == "" {
		js = domSummaryScript
	}
	res, err := p.page.Context(ctx).Eval(js)
	if err != nil {
		return DOMSummaryRaw{}, fmt.Errorf("eval dom summary: %w", err)
	}
	var raw rawDOMSummary
	if err := res.Value.Unmarshal(&raw); err != nil {
		return DOMSummaryRaw{}, fmt.Errorf("decode dom summary: %w", err)
	}
	out := DOMSummaryRaw{
		InteractiveCount: raw.InteractiveCount,
		TextInputs:       raw.TextInputs,
		Buttons:          raw.Buttons,
		Links:            raw.Links,
		IFrames:          raw.IFrames,
		CanvasNodes:      raw.CanvasNodes,
	}
	for _, t := range raw.Top {
		out.Top = append(out.Top, InteractiveElement{
			Tag:  t.Tag,
			ID:   t.ID,
			Name: t.Name,
			Role: t.Role,
			Text: t.Text,
			Bounds: Bounds{
				X: t.Bounds.X, Y: t.Bounds.Y,
				Width: t.Bounds.Width, Height: t.Bounds.Height,
			},
		})
	}
	return out, nil
}

func (p *rodPage) AccessibilitySnapshot(ctx context.Context) ([]AXNode, error) {
	tree, err := proto.AccessibilityGetFullAXTree{}.Call(p.page.Context(ctx))
	if err != nil {
		return nil, fmt.Errorf("get ax tree: %w", err)
	}
	nodes := make([]AXNode, 0, len(tree.Nodes))
	for _, n := range tree.Nodes {
		node := AXNode{}
		if n.Role != nil {
			node.Role = n.Role.Value.Str()
		}
		if n.Name != nil {
			node.Name = n.Name.Value.Str()
		}
		nodes = append(nodes, node)
	}
	return nodes, nil
}

func (p *rodPage) Locator(selector string) Locator {
	return &rodLocator{page: p.page, selector: selector}
}

func (p *rodPage) MouseMove(ctx context.Context, x, y int) error {
	return p.page.Context(ctx).Mouse.Move(float64(x), float64(y), 1)
}

func (p *rodPage) MouseClick(ctx context.Context, x, y int) error {
	page := p.page.Context(ctx)
	if err := page.Mouse.Move(float64(x), float64(y), 1); err != nil {
		return err
	}
	return page.Mouse.Click(proto.InputMouseButtonLeft, 1)
}

func (p *rodPage) MouseDown(ctx context.Context, x, y int) error {
	page := p.page.Context(ctx)
	if err := page.Mouse.Move(float64(x), float64(y), 1); err != nil {
		return err
	}
	return page.Mouse.Down(proto.InputMouseButtonLeft, 1)
}

func (p *rodPage) MouseUp(ctx context.Context, x, y int) error {
	page := p.page.Context(ctx)
	if err := page.Mouse.Move(float64(x), float64(y), 1); err != nil {
		return err
	}
	return page.Mouse.Up(proto.InputMouseButtonLeft, 1)
}

func (p *rodPage) MouseWheel(ctx context.Context, deltaX, deltaY float64) error {
	return p.page.Context(ctx).Mouse.Scroll(deltaX, deltaY, 1)
}

func (p *rodPage) KeyboardType(ctx context.Context, text string, delay time.Duration) error {
	page := p.page.Context(ctx)
	if delay <= 0 {
		return page.InsertText(text)
	}
	for _, r := range text {
		if err := page.InsertText(string(r)); err != nil {
			return err
		}
		time.Sleep(delay)
	}
	return nil
}

func (p *rodPage) KeyboardPress(ctx context.Context, key string, delay time.Duration) error {
	k, ok := keyByName[strings.ToLower(key)]
	if !ok {
		return fmt.Errorf("unknown key %q", key)
	}
	if err := p.page.Context(ctx).Keyboard.Type(k); err != nil {
		return err
	}
	if delay > 0 {
		time.Sleep(delay)
	}
	return nil
}

func (p *rodPage) OnNetworkEvent(handler func(NetworkDriverEvent)) (unsubscribe func()) {
	page := p.page
	ctx, cancel := context.WithCancel(context.Background())

	util.SafeGo(func() { page.Context(ctx).EachEvent(
		func(ev *proto.NetworkRequestWillBeSent) {
			handler(NetworkDriverEvent{
				Kind:   NetworkRequest,
				ID:     string(ev.RequestID),
				URL:    ev.Request.URL,
				Method: ev.Request.Method,
				Type:   string(ev.Type),
				Time:   time.Now(),
			})
		},
		func(ev *proto.NetworkResponseReceived) {
			handler(NetworkDriverEvent{
				Kind:   NetworkResponse,
				ID:     string(ev.RequestID),
				URL:    ev.Response.URL,
				Status: int(ev.Response.Status),
				Type:   string(ev.Type),
				Time:   time.Now(),
			})
		},
		func(ev *proto.NetworkLoadingFailed) {
			handler(NetworkDriverEvent{
				Kind:        NetworkFailure,
				ID:          string(ev.RequestID),
				Type:        string(ev.Type),
				Time:        time.Now(),
				FailureText: ev.ErrorText,
			})
		},
	)() })

	return cancel
}

func (p *rodPage) StartScreencast(ctx context.Context, cfg ScreencastConfig, onFrame func(ScreencastFrame)) error {
	quality := cfg.Quality
	if quality == 0 {
		quality = 70
	}
	every := cfg.EveryNthFrame
	if every == 0 {
		every = 1
	}
	format := proto.PageStartScreencastFormatJpeg
	req := proto.PageStartScreencast{
		Format:        format,
		Quality:       &quality,
		EveryNthFrame: &every,
	}
	if cfg.MaxWidth > 0 {
		req.MaxWidth = &cfg.MaxWidth
	}
	if cfg.MaxHeight > 0 {
		req.MaxHeight = &cfg.MaxHeight
	}

	page := p.page.Context(ctx)
	castCtx, cancel := context.WithCancel(ctx)
	p.mu.Lock()
	p.castStop = cancel
	p.mu.Unlock()

	util.SafeGo(func() {
		page.Context(castCtx).EachEvent(func(ev *proto.PageScreencastFrame) {
			onFrame(ScreencastFrame{
				SessionID: fmt.Sprint(ev.SessionID),
				Data:      ev.Data,
				Width:     0,
				Height:    0,
			})
		})()
	})

	return req.Call(page)
}

func (p *rodPage) AckFrame(ctx context.Context, sessionID string) error {
	var id int
	if _, err := fmt.Sscanf(sessionID, "%d", &id); err != nil {
		return fmt.Errorf("parse screencast session id %q: %w", sessionID, err)
	}
	return proto.PageScreencastFrameAck{SessionID: proto.PageScreencastSessionID(id)}.Call(p.page.Context(ctx))
}

func (p *rodPage) StopScreencast(ctx context.Context) error {
	p.mu.Lock()
	stop := p.castStop
	p.castStop = nil
	p.mu.Unlock()
	if stop != nil {
		stop()
	}
	return proto.PageStopScreencast{}.Call(p.page.Context(ctx))
}

func (p *rodPage) Close() error {
	p.mu.Lock()
	if p.castStop != nil {
		p.castStop()
	}
	if p.netUnsub != nil {
		p.netUnsub()
	}
	p.mu.Unlock()
	return p.page.Close()
}

type rodLocator struct {
	page     *rod.Page
	selector string
}

func (l *rodLocator) elements(ctx context.Context) (rod.Elements, error) {
	return l.page.Context(ctx).Elements(l.selector)
}

func (l *rodLocator) first(ctx context.Context) (*rod.Element, error) {
	els, err := l.elements(ctx)
	if err != nil {
		return nil, err
	}
	if len(els) == 0 {
		return nil, fmt.Errorf("no element matches selector %q", l.selector)
	}
	return els[0], nil
}

func (l *rodLocator) Count(ctx context.Context) (int, error) {
	els, err := l.elements(ctx)
	if err != nil {
		return 0, err
	}
	return len(els), nil
}

func (l *rodLocator) WaitVisible(ctx context.Context) error {
	el, err := l.first(ctx)
	if err != nil {
		return err
	}
	return el.Context(ctx).WaitVisible()
}

func (l *rodLocator) Click(ctx context.Context) error {
	el, err := l.first(ctx)
	if err != nil {
		return err
	}
	return el.Context(ctx).Click(proto.InputMouseButtonLeft, 1)
}

func (l *rodLocator) Hover(ctx context.Context) error {
	el, err := l.first(ctx)
	if err != nil {
		return err
	}
	return el.Context(ctx).Hover()
}

func (l *rodLocator) Fill(ctx context.Context, text string) error {
	el, err := l.first(ctx)
	if err != nil {
		return err
	}
	el = el.Context(ctx)
	if err := el.SelectAllText(); err != nil {
		return err
	}
	return el.Input(text)
}

func (l *rodLocator) ScrollIntoView(ctx context.Context) error {
	el, err := l.first(ctx)
	if err != nil {
		return err
	}
	return el.Context(ctx).ScrollIntoView()
}

func (l *rodLocator) Bounds(ctx context.Context) (Bounds, error) {
	el, err := l.first(ctx)
	if err != nil {
		return Bounds{}, err
	}
	shape, err := el.Context(ctx).Shape()
	if err != nil {
		return Bounds{}, err
	}
	box := shape.Box()
	return Bounds{X: int(box.X), Y: int(box.Y), Width: int(box.Width), Height: int(box.Height)}, nil
}

var keyByName = map[string]input.Key{
	"enter":       input.Enter,
	"return":      input.Enter,
	"tab":         input.Tab,
	"escape":      input.Escape,
	"esc":         input.Escape,
	"backspace":   input.Backspace,
	"delete":      input.Delete,
	"space":       input.Space,
	"arrowup":     input.ArrowUp,
	"arrowdown":   input.ArrowDown,
	"arrowleft":   input.ArrowLeft,
	"arrowright":  input.ArrowRight,
	"home":        input.Home,
	"end":         input.End,
	"pageup":      input.PageUp,
	"pagedown":    input.PageDown,
}
