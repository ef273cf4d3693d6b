// Package browser provides a Chrome-backed section fetcher for catalog pages
// that render their specification and resource tabs client-side. It manages
// the headless Chrome lifecycle and applies stealth to each page.
package browser

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"

	"github.com/1genadam/tileshop-rag-sub001/pagefetch"
	"github.com/1genadam/tileshop-rag-sub001/safeurl"
)

// Config configures the browser fetcher.
type Config struct {
	// RemoteURL is the WebSocket URL of an external Chrome instance.
	// Empty = launch a local Chrome via launcher.
	RemoteURL string

	// NavTimeout bounds navigation plus page load. Default: 30s.
	NavTimeout time.Duration

	// Stealth applies anti-detection patches to each page. Default: true
	// (set via defaults; DisableStealth turns it off).
	DisableStealth bool

	// Sections maps section name to a CSS selector evaluated in the page.
	// Default: pagefetch.DefaultSections selectors.
	Sections map[string]string

	// URLValidator validates URLs before navigation. Default: safeurl.Validate.
	URLValidator func(string) error

	Logger *slog.Logger
}

func (c *Config) defaults() {
	if c.NavTimeout <= 0 {
		c.NavTimeout = 30 * time.Second
	}
	if len(c.Sections) == 0 {
		c.Sections = make(map[string]string)
		for name, spec := range pagefetch.DefaultSections() {
			c.Sections[name] = spec.Selector
		}
	}
	if c.URLValidator == nil {
		c.URLValidator = safeurl.Validate
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Fetcher fetches section bundles through a shared Chrome instance.
type Fetcher struct {
	cfg Config

	mu      sync.Mutex
	browser *rod.Browser
	lnch    *launcher.Launcher
}

// New creates a browser Fetcher. Chrome is launched lazily on first use.
func New(cfg Config) *Fetcher {
	cfg.defaults()
	return &Fetcher{cfg: cfg}
}

// Close shuts down Chrome.
func (f *Fetcher) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.browser != nil {
		f.browser.Close()
		f.browser = nil
	}
	if f.lnch != nil {
		f.lnch.Cleanup()
		f.lnch = nil
	}
	return nil
}

func (f *Fetcher) connect() (*rod.Browser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.browser != nil {
		return f.browser, nil
	}

	wsURL := f.cfg.RemoteURL
	if wsURL == "" {
		l := launcher.New().
			Headless(true).
			Set("disable-blink-features", "AutomationControlled")
		u, err := l.Launch()
		if err != nil {
			return nil, fmt.Errorf("browser: launch: %w", err)
		}
		wsURL = u
		f.lnch = l
		f.cfg.Logger.Info("browser: launched local chrome", "url", wsURL)
	}

	b := rod.New().ControlURL(wsURL)
	if err := b.Connect(); err != nil {
		return nil, fmt.Errorf("browser: connect: %w", err)
	}
	f.browser = b
	return b, nil
}

// FetchSections implements pagefetch.Adapter: the page is rendered once and
// each configured selector is evaluated independently.
func (f *Fetcher) FetchSections(ctx context.Context, url string) (*pagefetch.Bundle, error) {
	if err := f.cfg.URLValidator(url); err != nil {
		return nil, fmt.Errorf("browser: URL blocked: %w", err)
	}

	bundle := pagefetch.NewBundle(url)

	page, err := f.openPage(ctx, url)
	if err != nil {
		// Total navigation failure: every section fails, bundle survives.
		for name := range f.cfg.Sections {
			bundle.Sections[name] = pagefetch.Section{Name: name, Err: err.Error()}
		}
		return bundle, nil
	}
	defer page.Close()

	for name, selector := range f.cfg.Sections {
		html, text, serr := sectionContent(ctx, page, selector)
		if serr != nil {
			bundle.Sections[name] = pagefetch.Section{Name: name, Err: serr.Error()}
			continue
		}
		bundle.Sections[name] = pagefetch.Section{Name: name, HTML: html, Text: text, OK: true}
	}
	return bundle, nil
}

func (f *Fetcher) openPage(ctx context.Context, url string) (*rod.Page, error) {
	b, err := f.connect()
	if err != nil {
		return nil, err
	}

	var page *rod.Page
	if f.cfg.DisableStealth {
		page, err = b.Page(proto.TargetCreateTarget{URL: ""})
	} else {
		page, err = stealth.Page(b)
	}
	if err != nil {
		return nil, fmt.Errorf("browser: create tab: %w", err)
	}

	navCtx, cancel := context.WithTimeout(ctx, f.cfg.NavTimeout)
	defer cancel()

	if err := page.Context(navCtx).Navigate(url); err != nil {
		page.Close()
		return nil, fmt.Errorf("browser: navigate %s: %w", url, err)
	}
	if err := page.Context(navCtx).WaitLoad(); err != nil {
		f.cfg.Logger.Warn("browser: wait load timeout", "url", url, "error", err)
	}
	return page, nil
}

// sectionContent evaluates a selector in the page and returns the first
// match's outer HTML and inner text.
func sectionContent(ctx context.Context, page *rod.Page, selector string) (string, string, error) {
	res, err := page.Context(ctx).Eval(`(sel) => {
		const el = document.querySelector(sel);
		if (!el) return null;
		return { html: el.outerHTML, text: el.innerText };
	}`, selector)
	if err != nil {
		return "", "", fmt.Errorf("eval: %w", err)
	}
	if res.Value.Nil() {
		return "", "", fmt.Errorf("no element matched selector %q", selector)
	}
	return res.Value.Get("html").Str(), res.Value.Get("text").Str(), nil
}
