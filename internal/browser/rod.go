package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"

	"devhelper/internal/logging"
)

// Config holds browser configuration.
type Config struct {
	ControlURL     string   // attach to an existing Chrome instead of launching
	Bin            string   // Chrome binary; empty lets rod find or download one
	Flags          []string // extra launch flags, "--name=value" or "--name"
	Headless       bool
	ViewportWidth  int
	ViewportHeight int
	ActionTimeout  time.Duration
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Headless:       true,
		ViewportWidth:  1366,
		ViewportHeight: 768,
		ActionTimeout:  10 * time.Second,
	}
}

// RodEngine owns one Chrome process and hands out incognito sessions on it.
// Chrome is started lazily on the first Launch.
type RodEngine struct {
	cfg Config

	mu         sync.Mutex
	launcher   *launcher.Launcher
	browser    *rod.Browser
	controlURL string
}

// NewRodEngine creates an engine. No process is started until Launch.
func NewRodEngine(cfg Config) *RodEngine {
	if cfg.ViewportWidth == 0 {
		cfg.ViewportWidth = 1366
	}
	if cfg.ViewportHeight == 0 {
		cfg.ViewportHeight = 768
	}
	if cfg.ActionTimeout <= 0 {
		cfg.ActionTimeout = 10 * time.Second
	}
	return &RodEngine{cfg: cfg}
}

// start connects to an existing Chrome or launches a new one.
func (e *RodEngine) start() error {
	if e.browser != nil {
		if _, err := e.browser.Version(); err == nil {
			return nil
		}
		logging.BrowserWarn("Stale browser connection detected, reconnecting")
		_ = e.browser.Close()
		e.browser = nil
		e.controlURL = ""
	}

	controlURL := e.cfg.ControlURL
	if controlURL == "" {
		l := launcher.New().Headless(e.cfg.Headless)
		if e.cfg.Bin != "" {
			l = l.Bin(e.cfg.Bin)
		}
		for _, rawFlag := range e.cfg.Flags {
			flagStr := strings.TrimLeft(rawFlag, "-")
			name, val, hasVal := strings.Cut(flagStr, "=")
			if hasVal {
				l = l.Set(flags.Flag(name), val)
			} else {
				l = l.Set(flags.Flag(name))
			}
		}
		url, err := l.Launch()
		if err != nil {
			return fmt.Errorf("launch chrome: %w", err)
		}
		e.launcher = l
		controlURL = url
		logging.Browser("Launched Chrome headless=%v", e.cfg.Headless)
	}

	b := rod.New().ControlURL(controlURL)
	if err := b.Connect(); err != nil {
		e.cleanupLauncher()
		return fmt.Errorf("connect to chrome: %w", err)
	}

	e.browser = b
	e.controlURL = controlURL
	return nil
}

func (e *RodEngine) cleanupLauncher() {
	if e.launcher != nil {
		e.launcher.Cleanup()
		e.launcher = nil
	}
}

// Launch opens a new incognito context so runs share no cookies or storage.
func (e *RodEngine) Launch(ctx context.Context) (Session, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.start(); err != nil {
		return nil, err
	}

	incognito, err := e.browser.Incognito()
	if err != nil {
		return nil, fmt.Errorf("incognito context: %w", err)
	}
	logging.BrowserDebug("Opened incognito context")
	return &rodSession{engine: e, browser: incognito}, nil
}

// Shutdown closes the browser and removes a launched Chrome's profile.
func (e *RodEngine) Shutdown() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	var err error
	if e.browser != nil {
		err = e.browser.Close()
		e.browser = nil
	}
	e.cleanupLauncher()
	e.controlURL = ""
	return err
}

// ControlURL returns the DevTools WebSocket URL, empty before the first Launch.
func (e *RodEngine) ControlURL() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.controlURL
}

type rodSession struct {
	engine  *RodEngine
	browser *rod.Browser

	once     sync.Once
	closeErr error
}

// Open creates a page, navigates and waits for the network to go idle.
func (s *rodSession) Open(ctx context.Context, url string, timeout time.Duration) (Page, error) {
	page, err := s.browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, fmt.Errorf("create page: %w", err)
	}

	if err := (proto.EmulationSetDeviceMetricsOverride{
		Width:             s.engine.cfg.ViewportWidth,
		Height:            s.engine.cfg.ViewportHeight,
		DeviceScaleFactor: 1.0,
	}).Call(page); err != nil {
		logging.BrowserWarn("Failed to set viewport: %v", err)
	}

	nav := page.Context(ctx).Timeout(timeout)
	waitIdle := nav.WaitNavigation(proto.PageLifecycleEventNameNetworkIdle)
	if err := nav.Navigate(url); err != nil {
		return nil, fmt.Errorf("navigate to %s: %w", url, err)
	}
	waitIdle()
	if err := nav.WaitLoad(); err != nil {
		return nil, fmt.Errorf("wait for %s: %w", url, err)
	}

	logging.BrowserDebug("Loaded %s", url)
	return &rodPage{page: page, actionTimeout: s.engine.cfg.ActionTimeout}, nil
}

// Close disposes the incognito context and every page in it.
func (s *rodSession) Close() error {
	s.once.Do(func() {
		s.closeErr = s.browser.Close()
		logging.BrowserDebug("Closed incognito context")
	})
	return s.closeErr
}

type rodPage struct {
	page          *rod.Page
	actionTimeout time.Duration
}

type rodElement struct {
	selector string
	el       *rod.Element
}

func (e *rodElement) Selector() string { return e.selector }

func (p *rodPage) scoped(ctx context.Context) *rod.Page {
	return p.page.Context(ctx).Timeout(p.actionTimeout)
}

func (p *rodPage) Locate(ctx context.Context, selector string) (Element, bool, error) {
	has, el, err := p.scoped(ctx).Has(selector)
	if err != nil {
		return nil, false, fmt.Errorf("query %q: %w", selector, err)
	}
	if !has {
		return nil, false, nil
	}
	return &rodElement{selector: selector, el: el}, true, nil
}

const computedStyleJS = `() => {
	const s = window.getComputedStyle(this);
	return {backgroundColor: s.backgroundColor, color: s.color, fontSize: s.fontSize};
}`

func (p *rodPage) ComputedStyle(ctx context.Context, el Element) (Style, error) {
	re, ok := el.(*rodElement)
	if !ok {
		return Style{}, fmt.Errorf("foreign element %T", el)
	}
	res, err := re.el.Context(ctx).Timeout(p.actionTimeout).Eval(computedStyleJS)
	if err != nil {
		return Style{}, fmt.Errorf("computed style of %q: %w", re.selector, err)
	}
	raw, err := res.Value.MarshalJSON()
	if err != nil {
		return Style{}, err
	}
	var style Style
	if err := json.Unmarshal(raw, &style); err != nil {
		return Style{}, fmt.Errorf("decode computed style: %w", err)
	}
	return style, nil
}

func (p *rodPage) Text(ctx context.Context, selector string) (string, error) {
	el, found, err := p.Locate(ctx, selector)
	if err != nil {
		return "", err
	}
	if !found {
		return "", fmt.Errorf("%w: %s", ErrElementNotFound, selector)
	}
	res, err := el.(*rodElement).el.Context(ctx).Timeout(p.actionTimeout).Eval(`() => this.textContent`)
	if err != nil {
		return "", fmt.Errorf("text of %q: %w", selector, err)
	}
	return res.Value.Str(), nil
}

func (p *rodPage) Click(ctx context.Context, selector string) error {
	el, found, err := p.Locate(ctx, selector)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("%w: %s", ErrElementNotFound, selector)
	}
	if err := el.(*rodElement).el.Context(ctx).Timeout(p.actionTimeout).Click(proto.InputMouseButtonLeft, 1); err != nil {
		return fmt.Errorf("click %q: %w", selector, err)
	}
	return nil
}
