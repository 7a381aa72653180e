package audit

import (
	"context"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gocolly/colly/v2"
)

const defaultProbeTimeout = 5 * time.Second

// Probes reports which well-known files a site serves.
type Probes struct {
	RobotsTxt bool
	Sitemap   bool
}

// Prober checks a site origin for robots.txt and sitemap.xml.
type Prober interface {
	Probe(ctx context.Context, origin string) Probes
}

// CollyProber issues HEAD requests through colly collectors.
type CollyProber struct {
	UserAgent string
	Timeout   time.Duration
	transport http.RoundTripper
}

// NewCollyProber builds a prober with its own HTTP transport.
func NewCollyProber(userAgent string, timeout time.Duration) *CollyProber {
	if timeout <= 0 {
		timeout = defaultProbeTimeout
	}
	return &CollyProber{UserAgent: userAgent, Timeout: timeout, transport: newHTTPTransport()}
}

// Probe runs both HEAD requests concurrently. Any failure counts as absent.
func (p *CollyProber) Probe(ctx context.Context, origin string) Probes {
	var (
		out Probes
		wg  sync.WaitGroup
	)
	if origin == "" {
		return out
	}
	wg.Add(2)
	go func() {
		defer wg.Done()
		out.RobotsTxt = p.exists(ctx, origin+"/robots.txt")
	}()
	go func() {
		defer wg.Done()
		out.Sitemap = p.exists(ctx, origin+"/sitemap.xml")
	}()
	wg.Wait()
	return out
}

func (p *CollyProber) exists(ctx context.Context, target string) bool {
	timeout := p.Timeout
	if timeout <= 0 {
		timeout = defaultProbeTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	collector := colly.NewCollector(
		colly.IgnoreRobotsTxt(),
		colly.AllowURLRevisit(),
		colly.StdlibContext(ctx),
	)
	if p.UserAgent != "" {
		collector.UserAgent = p.UserAgent
	}
	collector.SetRequestTimeout(timeout)
	if p.transport != nil {
		collector.WithTransport(p.transport)
	}

	var status int
	collector.OnResponse(func(r *colly.Response) {
		status = r.StatusCode
	})
	collector.OnError(func(r *colly.Response, _ error) {
		if r != nil {
			status = r.StatusCode
		}
	})

	done := make(chan error, 1)
	go func() {
		done <- collector.Head(target)
	}()
	select {
	case <-ctx.Done():
		return false
	case err := <-done:
		return err == nil && status >= 200 && status < 400
	}
}

func newHTTPTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   5 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   5 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          20,
		IdleConnTimeout:       30 * time.Second,
	}
}
