// Package audit loads a business website in a headless browser and turns
// what it sees into an AuditResult.
package audit

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/walt0white1/prospectflow-sub000/internal/clock/system"
	blobhash "github.com/walt0white1/prospectflow-sub000/internal/hash/sha256"
	"github.com/walt0white1/prospectflow-sub000/internal/prospect"
)

// Engine runs site audits.
type Engine struct {
	browser Browser
	prober  Prober
	blobs   prospect.BlobStore
	clock   prospect.Clock
	logger  *zap.Logger
}

// Option customizes an Engine.
type Option func(*Engine)

// WithBlobStore stores requested screenshots.
func WithBlobStore(store prospect.BlobStore) Option {
	return func(e *Engine) { e.blobs = store }
}

// WithClock overrides the scan timestamp source.
func WithClock(clock prospect.Clock) Option {
	return func(e *Engine) { e.clock = clock }
}

// WithLogger sets the engine logger.
func WithLogger(logger *zap.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// NewEngine wires an engine around a browser and a well-known file prober.
func NewEngine(browser Browser, prober Prober, opts ...Option) *Engine {
	e := &Engine{
		browser: browser,
		prober:  prober,
		clock:   system.New(),
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.Named("audit")
	return e
}

// Audit inspects one site. Navigation failures degrade to default signals;
// only a malformed URL or a browser that cannot start is an error.
func (e *Engine) Audit(ctx context.Context, req prospect.AuditRequest) (prospect.AuditResult, error) {
	target, err := NormalizeURL(req.URL)
	if err != nil {
		return prospect.AuditResult{}, err
	}
	logger := e.logger.With(zap.String("url", target))

	result := prospect.AuditResult{
		URL:       target,
		FinalURL:  target,
		ScannedAt: e.clock.Now(),
		HasSSL:    strings.HasPrefix(target, "https://"),
	}

	desktop, err := e.browser.Capture(ctx, target, Desktop, req.Screenshots)
	if errors.Is(err, ErrBrowserUnavailable) {
		return prospect.AuditResult{}, fmt.Errorf("audit %s: %w", target, err)
	}
	desktopOK := err == nil
	if err != nil {
		logger.Warn("desktop load failed", zap.Error(err))
	}
	result.LoadTimeSec = math.Round(desktop.LoadTime.Seconds()*100) / 100
	if desktop.FinalURL != "" {
		result.FinalURL = desktop.FinalURL
	}

	var (
		probes Probes
		wg     sync.WaitGroup
	)
	if e.prober != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			probes = e.prober.Probe(ctx, origin(result.FinalURL))
		}()
	}

	mobile, err := e.browser.Capture(ctx, target, Mobile, req.Screenshots)
	mobileOK := err == nil
	if err != nil {
		logger.Warn("mobile load failed", zap.Error(err))
	}
	wg.Wait()

	html := desktop.HTML
	if !desktopOK && mobileOK {
		html = mobile.HTML
	}
	var signals Signals
	if html != "" {
		signals = Extract(html, result.FinalURL)
	}
	overflows := mobileOK && mobile.Overflows()

	result.PageSizeKB = pageSizeKB(desktop, html)
	result.Title = signals.Title
	result.MetaDescription = signals.MetaDescription
	result.H1 = signals.H1
	result.HasTitle = signals.Title != ""
	result.HasMetaDescription = signals.MetaDescription != ""
	result.HasH1 = signals.H1 != ""
	result.HasViewportMeta = signals.HasViewportMeta
	result.IsResponsive = signals.HasViewportMeta && !overflows
	result.HasOpenGraph = signals.HasOpenGraph
	result.HasCanonical = signals.HasCanonical
	result.HasLegalNotice = signals.HasLegalNotice
	result.HasFlash = signals.HasFlash
	result.HasTableLayout = signals.HasTableLayout
	result.ImagesWithoutAlt = signals.ImagesWithoutAlt
	result.Stylesheets = signals.Stylesheets
	result.HasRobotsTxt = probes.RobotsTxt
	result.HasSitemap = probes.Sitemap

	result.CMS = DetectCMS(html, result.FinalURL)
	result.TechStack = DetectTech(html, result.CMS, signals)
	result.DesignAge = EstimateDesignAge(html, result.ScannedAt)

	result.SEOScore = SEOScore(SEOInputs{
		HasTitle:           result.HasTitle,
		HasMetaDescription: result.HasMetaDescription,
		HasH1:              result.HasH1,
		HasOpenGraph:       result.HasOpenGraph,
		HasSitemap:         result.HasSitemap,
		HasRobotsTxt:       result.HasRobotsTxt,
		HasCanonical:       result.HasCanonical,
	})
	result.MobileScore = MobileScore(result.HasViewportMeta, result.IsResponsive)
	result.PerformanceScore = PerformanceScore(desktop.LoadTime)
	result.Issues = BuildIssues(result, overflows, result.ScannedAt)

	if req.Screenshots {
		result.Screenshots = e.storeScreenshots(ctx, logger, result, map[string]PageCapture{
			Desktop.Name: desktop,
			Mobile.Name:  mobile,
		})
	}

	logger.Info("audit complete",
		zap.Float64("load_time_sec", result.LoadTimeSec),
		zap.Int("seo_score", result.SEOScore),
		zap.Int("mobile_score", result.MobileScore),
		zap.Int("issues", len(result.Issues)),
	)
	return result, nil
}

func (e *Engine) storeScreenshots(
	ctx context.Context,
	logger *zap.Logger,
	result prospect.AuditResult,
	captures map[string]PageCapture,
) []prospect.Screenshot {
	if e.blobs == nil {
		return nil
	}
	var shots []prospect.Screenshot
	for _, vp := range []Viewport{Desktop, Mobile} {
		capture := captures[vp.Name]
		if len(capture.Screenshot) == 0 {
			continue
		}
		path := ScreenshotPath(hostOf(result.URL), result, vp, blobhash.Short(capture.Screenshot))
		uri, err := e.blobs.PutObject(ctx, path, "image/png", bytes.NewReader(capture.Screenshot))
		if err != nil {
			logger.Warn("store screenshot failed", zap.String("viewport", vp.Name), zap.Error(err))
			continue
		}
		shots = append(shots, prospect.Screenshot{Viewport: vp.Name, URI: uri, ContentType: "image/png"})
	}
	return shots
}

// ScreenshotPath names the blob for one viewport capture. The digest keeps
// concurrent audits of one host within the same second apart.
func ScreenshotPath(host string, result prospect.AuditResult, vp Viewport, digest string) string {
	if host == "" {
		host = "unknown"
	}
	return fmt.Sprintf("screenshots/%s/%s-%s-%s.png", host, result.ScannedAt.UTC().Format("20060102T150405Z"), vp.Name, digest)
}

func pageSizeKB(capture PageCapture, html string) int {
	if capture.TransferBytes > 0 {
		return int(capture.TransferBytes / 1024)
	}
	return len(html) / 1024
}
