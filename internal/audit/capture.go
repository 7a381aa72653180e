package audit

import (
	"context"
	"time"
)

// Viewport describes the emulated device used for one page load.
type Viewport struct {
	Name      string
	Width     int64
	Height    int64
	Mobile    bool
	UserAgent string
}

// Default viewports.
var (
	Desktop = Viewport{
		Name:   "desktop",
		Width:  1366,
		Height: 768,
		UserAgent: "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 " +
			"(KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
	}
	Mobile = Viewport{
		Name:   "mobile",
		Width:  390,
		Height: 844,
		Mobile: true,
		UserAgent: "Mozilla/5.0 (iPhone; CPU iPhone OS 17_4 like Mac OS X) AppleWebKit/605.1.15 " +
			"(KHTML, like Gecko) Version/17.4 Mobile/15E148 Safari/604.1",
	}
)

// PageCapture is everything a browser hands back for one page load. All
// interpretation happens outside the browser.
type PageCapture struct {
	FinalURL      string
	HTML          string
	LoadTime      time.Duration
	ScrollWidth   int
	ViewportWidth int
	TransferBytes int64
	Screenshot    []byte
}

// overflowTolerancePx is the horizontal slack allowed before a page counts
// as overflowing its viewport.
const overflowTolerancePx = 10

// Overflows reports whether the document is wider than the viewport.
func (p PageCapture) Overflows() bool {
	if p.ViewportWidth <= 0 {
		return false
	}
	return p.ScrollWidth > p.ViewportWidth+overflowTolerancePx
}

// Browser loads a page in an emulated viewport. A failed navigation still
// returns the elapsed LoadTime alongside the error.
type Browser interface {
	Capture(ctx context.Context, url string, vp Viewport, screenshot bool) (PageCapture, error)
}
