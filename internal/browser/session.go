// Package browser drives isolated headless-Chrome sessions for the source
// fetchers. Every session gets its own allocator with a randomly chosen
// user-agent/viewport/locale profile so state never bleeds between attempts,
// blocks heavy resource types, and patches out automation markers before the
// first navigation.
package browser

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/fetch"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"

	"intern_radar/internal/config"
)

// profile is one fingerprint variant a session can launch under.
type profile struct {
	userAgent string
	locale    string
	width     int
	height    int
}

var profiles = []profile{
	{
		userAgent: "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		locale:    "en-US",
		width:     1280,
		height:    720,
	},
	{
		userAgent: "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.2 Safari/605.1.15",
		locale:    "en-GB",
		width:     1440,
		height:    900,
	},
	{
		userAgent: "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		locale:    "en-IN",
		width:     1366,
		height:    768,
	},
}

// stealthScript removes the markers challenge pages probe for. Injected on
// every new document, before any site script runs.
const stealthScript = `
Object.defineProperty(navigator, 'webdriver', {get: () => undefined});
Object.defineProperty(navigator, 'plugins', {get: () => [1, 2, 3]});
Object.defineProperty(navigator, 'languages', {get: () => ['en-US', 'en']});
window.chrome = window.chrome || {runtime: {}};
`

// blockedResourceTypes are aborted at the fetch layer to cut latency and
// bandwidth; listing extraction only needs the DOM.
var blockedResourceTypes = map[network.ResourceType]struct{}{
	network.ResourceTypeImage:      {},
	network.ResourceTypeFont:       {},
	network.ResourceTypeMedia:      {},
	network.ResourceTypeStylesheet: {},
}

// RandomUserAgent returns one of the session profiles' user agents, for
// plain HTTP callers that should blend in with the browser traffic.
func RandomUserAgent() string {
	return profiles[rand.Intn(len(profiles))].userAgent
}

// Launcher creates stealth sessions from shared configuration.
type Launcher struct {
	cfg    config.BrowserConfig
	logger *slog.Logger
}

func NewLauncher(cfg config.BrowserConfig, logger *slog.Logger) *Launcher {
	return &Launcher{cfg: cfg, logger: logger.With("component", "browser")}
}

// Session is one isolated browser tab. Not safe for concurrent use; each
// fetch attempt owns its session and closes it when done.
type Session struct {
	ctx         context.Context
	cancelTab   context.CancelFunc
	cancelAlloc context.CancelFunc
	cfg         config.BrowserConfig
	logger      *slog.Logger
}

// NewSession launches an isolated browser under a random profile. The caller
// must Close it.
func (l *Launcher) NewSession(ctx context.Context) (*Session, error) {
	p := profiles[rand.Intn(len(profiles))]

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", l.cfg.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-setuid-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("lang", p.locale),
		chromedp.UserAgent(p.userAgent),
		chromedp.WindowSize(p.width, p.height),
	)

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	tabCtx, cancelTab := chromedp.NewContext(allocCtx)

	s := &Session{
		ctx:         tabCtx,
		cancelTab:   cancelTab,
		cancelAlloc: cancelAlloc,
		cfg:         l.cfg,
		logger:      l.logger,
	}

	s.interceptRequests()

	err := chromedp.Run(tabCtx,
		fetch.Enable(),
		chromedp.ActionFunc(func(ctx context.Context) error {
			_, err := page.AddScriptToEvaluateOnNewDocument(stealthScript).Do(ctx)
			return err
		}),
	)
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("start session: %w", err)
	}

	l.logger.Debug("session opened", "locale", p.locale, "viewport", fmt.Sprintf("%dx%d", p.width, p.height))
	return s, nil
}

// interceptRequests aborts non-essential resource loads and lets everything
// else through.
func (s *Session) interceptRequests() {
	chromedp.ListenTarget(s.ctx, func(ev interface{}) {
		paused, ok := ev.(*fetch.EventRequestPaused)
		if !ok {
			return
		}
		go func() {
			c := chromedp.FromContext(s.ctx)
			execCtx := cdp.WithExecutor(s.ctx, c.Target)
			if _, blocked := blockedResourceTypes[paused.ResourceType]; blocked {
				_ = fetch.FailRequest(paused.RequestID, network.ErrorReasonBlockedByClient).Do(execCtx)
				return
			}
			_ = fetch.ContinueRequest(paused.RequestID).Do(execCtx)
		}()
	})
}

// Navigate loads url, bounded by the configured navigation timeout.
func (s *Session) Navigate(url string) error {
	ctx, cancel := context.WithTimeout(s.ctx, s.cfg.NavTimeout)
	defer cancel()

	if err := chromedp.Run(ctx, chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("navigate %s: %w", url, err)
	}
	return nil
}

// WaitForSelector blocks until selector is present in the DOM or the
// configured selector timeout elapses.
func (s *Session) WaitForSelector(selector string) error {
	ctx, cancel := context.WithTimeout(s.ctx, s.cfg.SelectorTimeout)
	defer cancel()

	if err := chromedp.Run(ctx, chromedp.WaitReady(selector, chromedp.ByQuery)); err != nil {
		return fmt.Errorf("wait for %q: %w", selector, err)
	}
	return nil
}

// Title returns the current document title.
func (s *Session) Title() (string, error) {
	ctx, cancel := context.WithTimeout(s.ctx, s.cfg.SelectorTimeout)
	defer cancel()

	var title string
	if err := chromedp.Run(ctx, chromedp.Title(&title)); err != nil {
		return "", err
	}
	return title, nil
}

// HTML returns the rendered document markup for selector-based extraction.
func (s *Session) HTML() (string, error) {
	ctx, cancel := context.WithTimeout(s.ctx, s.cfg.SelectorTimeout)
	defer cancel()

	var html string
	if err := chromedp.Run(ctx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", fmt.Errorf("read document: %w", err)
	}
	return html, nil
}

// BodyText navigates to url and returns the page's visible text. Used for
// bounded detail-page reads; errors degrade to an empty string at the caller.
func (s *Session) BodyText(url string) (string, error) {
	ctx, cancel := context.WithTimeout(s.ctx, s.cfg.DetailTimeout)
	defer cancel()

	var text string
	err := chromedp.Run(ctx,
		chromedp.Navigate(url),
		chromedp.Text("body", &text, chromedp.ByQuery),
	)
	if err != nil {
		return "", fmt.Errorf("read body of %s: %w", url, err)
	}
	return text, nil
}

// Close tears down the tab and its allocator.
func (s *Session) Close() {
	s.cancelTab()
	s.cancelAlloc()
}

// Pause sleeps within the session's lifetime, honoring cancellation. Used as
// soft backoff between element reads.
func (s *Session) Pause(d time.Duration) {
	select {
	case <-s.ctx.Done():
	case <-time.After(d):
	}
}
