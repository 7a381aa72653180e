package enrich

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

// PlaceCapture is the raw page handed back by a session lookup.
type PlaceCapture struct {
	HTML     string
	FinalURL string
}

// Session is one browser shared by every lookup of a batch.
type Session interface {
	Lookup(ctx context.Context, searchURL string) (PlaceCapture, error)
	Close()
}

// SessionFactory opens a browser session for one batch.
type SessionFactory interface {
	Open(ctx context.Context) (Session, error)
}

var consentSelectors = []string{
	`form[action*="consent"] button`,
	`button[aria-label*="Accept"]`,
	`button[aria-label*="Tout accepter"]`,
}

const (
	placeTitleSelector  = `div[role="main"] h1`
	firstResultSelector = `a.hfpxzc`
)

// ChromeConfig controls the enrichment browser.
type ChromeConfig struct {
	ExecPath     string
	UserAgent    string
	NoSandbox    bool
	ItemTimeout  time.Duration
	SettleDelay  time.Duration
	WindowWidth  int64
	WindowHeight int64
}

// ChromeSessions starts one headless Chrome per batch.
type ChromeSessions struct {
	cfg    ChromeConfig
	logger *zap.Logger
}

// NewChromeSessions builds a chromedp-backed session factory.
func NewChromeSessions(cfg ChromeConfig, logger *zap.Logger) *ChromeSessions {
	if cfg.ItemTimeout <= 0 {
		cfg.ItemTimeout = 25 * time.Second
	}
	if cfg.SettleDelay <= 0 {
		cfg.SettleDelay = 1500 * time.Millisecond
	}
	if cfg.WindowWidth == 0 || cfg.WindowHeight == 0 {
		cfg.WindowWidth, cfg.WindowHeight = 1366, 900
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChromeSessions{cfg: cfg, logger: logger.Named("maps_session")}
}

// Open launches Chrome and opens the shared tab.
func (f *ChromeSessions) Open(ctx context.Context) (Session, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", "new"),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("enable-automation", false),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.WindowSize(int(f.cfg.WindowWidth), int(f.cfg.WindowHeight)),
	)
	if f.cfg.NoSandbox {
		opts = append(opts, chromedp.NoSandbox)
	}
	if f.cfg.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(f.cfg.ExecPath))
	}
	if f.cfg.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(f.cfg.UserAgent))
	}
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	tabCtx, tabCancel := chromedp.NewContext(allocCtx)
	stop := context.AfterFunc(ctx, tabCancel)

	if err := chromedp.Run(tabCtx, emulation.SetDeviceMetricsOverride(f.cfg.WindowWidth, f.cfg.WindowHeight, 1, false)); err != nil {
		stop()
		tabCancel()
		allocCancel()
		return nil, fmt.Errorf("start maps browser: %w", err)
	}
	return &chromeSession{
		cfg:    f.cfg,
		logger: f.logger,
		tab:    tabCtx,
		close: func() {
			stop()
			tabCancel()
			allocCancel()
		},
	}, nil
}

type chromeSession struct {
	cfg       ChromeConfig
	logger    *zap.Logger
	tab       context.Context
	close     func()
	consented bool
}

func (s *chromeSession) Close() {
	s.close()
}

func (s *chromeSession) Lookup(ctx context.Context, searchURL string) (PlaceCapture, error) {
	var capture PlaceCapture
	itemCtx, cancel := context.WithTimeout(s.tab, s.cfg.ItemTimeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	if err := chromedp.Run(itemCtx,
		chromedp.Navigate(searchURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
	); err != nil {
		return capture, fmt.Errorf("open maps search: %w", err)
	}
	if !s.consented {
		s.consented = s.dismissConsent(itemCtx)
	}
	if err := s.openFirstResult(itemCtx); err != nil {
		s.logger.Debug("no result list", zap.Error(err))
	}
	if err := chromedp.Run(itemCtx,
		chromedp.WaitVisible(placeTitleSelector, chromedp.ByQuery),
		chromedp.Sleep(s.cfg.SettleDelay),
		chromedp.Location(&capture.FinalURL),
		chromedp.OuterHTML("html", &capture.HTML, chromedp.ByQuery),
	); err != nil {
		return capture, fmt.Errorf("read place panel: %w", err)
	}
	return capture, nil
}

// dismissConsent clicks the first consent button present on the page.
func (s *chromeSession) dismissConsent(ctx context.Context) bool {
	for _, sel := range consentSelectors {
		var nodes []*cdp.Node
		if err := chromedp.Run(ctx, chromedp.Nodes(sel, &nodes, chromedp.ByQuery, chromedp.AtLeast(0))); err != nil {
			continue
		}
		if len(nodes) == 0 {
			continue
		}
		if err := chromedp.Run(ctx,
			chromedp.Click(sel, chromedp.ByQuery),
			chromedp.WaitReady("body", chromedp.ByQuery),
		); err != nil {
			s.logger.Debug("consent click failed", zap.String("selector", sel), zap.Error(err))
			continue
		}
		return true
	}
	return false
}

// openFirstResult follows the first hit when the search lands on a list.
func (s *chromeSession) openFirstResult(ctx context.Context) error {
	var nodes []*cdp.Node
	if err := chromedp.Run(ctx, chromedp.Nodes(firstResultSelector, &nodes, chromedp.ByQuery, chromedp.AtLeast(0))); err != nil {
		return fmt.Errorf("query results: %w", err)
	}
	if len(nodes) == 0 {
		return nil
	}
	if err := chromedp.Run(ctx, chromedp.Click(firstResultSelector, chromedp.ByQuery)); err != nil {
		return fmt.Errorf("open first result: %w", err)
	}
	return nil
}
