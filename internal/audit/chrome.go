package audit

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

// ErrBrowserUnavailable marks a browser that could not be started at all.
var ErrBrowserUnavailable = errors.New("browser unavailable")

// blockedResources keeps fonts and media out of the load timing.
var blockedResources = []string{
	"*.woff", "*.woff2", "*.ttf", "*.otf", "*.eot",
	"*.mp4", "*.webm", "*.ogg", "*.mp3", "*.wav", "*.avi", "*.mov",
}

const layoutScript = `({
	scrollWidth: Math.max(document.documentElement.scrollWidth, document.body ? document.body.scrollWidth : 0),
	viewportWidth: window.innerWidth
})`

type layoutMetrics struct {
	ScrollWidth   int `json:"scrollWidth"`
	ViewportWidth int `json:"viewportWidth"`
}

// ChromeConfig controls the headless Chrome browser.
type ChromeConfig struct {
	ExecPath          string
	MaxParallel       int
	NavigationTimeout time.Duration
	NoSandbox         bool
}

// ChromeBrowser implements Browser with chromedp. One Chrome process is
// shared by every capture; each capture gets its own tab.
type ChromeBrowser struct {
	cfg         ChromeConfig
	logger      *zap.Logger
	limiter     chan struct{}
	allocator   context.Context
	allocCancel context.CancelFunc
}

// NewChromeBrowser creates the exec allocator. Chrome itself starts lazily
// on the first capture.
func NewChromeBrowser(cfg ChromeConfig, logger *zap.Logger) (*ChromeBrowser, error) {
	if cfg.MaxParallel < 0 {
		return nil, fmt.Errorf("max parallel must be >= 0")
	}
	if cfg.NavigationTimeout <= 0 {
		cfg.NavigationTimeout = 30 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	var limiter chan struct{}
	if cfg.MaxParallel > 0 {
		limiter = make(chan struct{}, cfg.MaxParallel)
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", "new"),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("hide-scrollbars", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("enable-automation", false),
	)
	if cfg.NoSandbox {
		opts = append(opts, chromedp.NoSandbox)
	}
	if cfg.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(cfg.ExecPath))
	}
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)

	return &ChromeBrowser{
		cfg:         cfg,
		logger:      logger.Named("chrome"),
		limiter:     limiter,
		allocator:   allocCtx,
		allocCancel: allocCancel,
	}, nil
}

// Close shuts the browser down.
func (b *ChromeBrowser) Close() {
	b.allocCancel()
}

// Capture loads url in a fresh tab emulating vp.
func (b *ChromeBrowser) Capture(ctx context.Context, url string, vp Viewport, screenshot bool) (PageCapture, error) {
	var capture PageCapture
	if err := b.acquire(ctx); err != nil {
		return capture, err
	}
	defer b.release()

	taskCtx, taskCancel := chromedp.NewContext(b.allocator)
	defer taskCancel()
	stop := context.AfterFunc(ctx, taskCancel)
	defer stop()

	if err := chromedp.Run(taskCtx); err != nil {
		return capture, fmt.Errorf("%w: %v", ErrBrowserUnavailable, err)
	}

	taskCtx, cancel := context.WithTimeout(taskCtx, b.cfg.NavigationTimeout)
	defer cancel()

	counter := &transferCounter{}
	chromedp.ListenTarget(taskCtx, counter.captureEvent)

	if err := chromedp.Run(taskCtx, b.setupAction(vp)); err != nil {
		return capture, fmt.Errorf("prepare %s tab: %w", vp.Name, err)
	}

	start := time.Now()
	err := chromedp.Run(taskCtx, chromedp.Navigate(url))
	capture.LoadTime = time.Since(start)
	capture.TransferBytes = counter.total()
	if err != nil {
		return capture, fmt.Errorf("navigate %s: %w", url, err)
	}

	if err := chromedp.Run(taskCtx,
		chromedp.Location(&capture.FinalURL),
		chromedp.OuterHTML("html", &capture.HTML, chromedp.ByQuery),
	); err != nil {
		b.logger.Debug("read document failed", zap.String("url", url), zap.Error(err))
	}

	var layout layoutMetrics
	if err := chromedp.Run(taskCtx, chromedp.Evaluate(layoutScript, &layout)); err != nil {
		b.logger.Debug("layout metrics failed", zap.String("url", url), zap.Error(err))
	}
	capture.ScrollWidth = layout.ScrollWidth
	capture.ViewportWidth = layout.ViewportWidth

	if screenshot {
		if err := chromedp.Run(taskCtx, chromedp.FullScreenshot(&capture.Screenshot, 100)); err != nil {
			b.logger.Debug("screenshot failed", zap.String("url", url), zap.Error(err))
		}
	}
	capture.TransferBytes = counter.total()
	return capture, nil
}

func (b *ChromeBrowser) setupAction(vp Viewport) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		if err := network.Enable().Do(ctx); err != nil {
			return fmt.Errorf("enable network domain: %w", err)
		}
		if err := network.SetBlockedURLs(blockedResources).Do(ctx); err != nil {
			return fmt.Errorf("block resources: %w", err)
		}
		if vp.UserAgent != "" {
			if err := emulation.SetUserAgentOverride(vp.UserAgent).Do(ctx); err != nil {
				return fmt.Errorf("set user-agent: %w", err)
			}
		}
		if err := emulation.SetDeviceMetricsOverride(vp.Width, vp.Height, 1, vp.Mobile).Do(ctx); err != nil {
			return fmt.Errorf("set device metrics: %w", err)
		}
		return nil
	})
}

func (b *ChromeBrowser) acquire(ctx context.Context) error {
	if b.limiter == nil {
		return nil
	}
	select {
	case b.limiter <- struct{}{}:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("browser slot wait canceled: %w", ctx.Err())
	}
}

func (b *ChromeBrowser) release() {
	if b.limiter == nil {
		return
	}
	select {
	case <-b.limiter:
	default:
	}
}

type transferCounter struct {
	mu    sync.Mutex
	bytes float64
}

func (t *transferCounter) captureEvent(ev any) {
	if done, ok := ev.(*network.EventLoadingFinished); ok {
		t.mu.Lock()
		t.bytes += done.EncodedDataLength
		t.mu.Unlock()
	}
}

func (t *transferCounter) total() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return int64(t.bytes)
}
