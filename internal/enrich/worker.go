// Package enrich backfills candidate details from a public mapping service
// through one paced headless browser session per batch.
package enrich

import (
	"context"
	"fmt"
	"math/rand/v2"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/walt0white1/prospectflow-sub000/internal/metrics"
	"github.com/walt0white1/prospectflow-sub000/internal/prospect"
)

// Defaults for the mapping service and pacing.
const (
	DefaultBaseURL  = "https://www.google.com/maps"
	DefaultLanguage = "fr"
	DefaultMinDelay = 2 * time.Second
	DefaultMaxDelay = 4 * time.Second
)

// Sleeper pauses between lookups. It returns early with the context error
// when ctx ends.
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration) error
}

// TimerSleeper sleeps on a real timer.
type TimerSleeper struct{}

// Sleep waits for d or for ctx to end.
func (TimerSleeper) Sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Config tunes the worker.
type Config struct {
	BaseURL  string
	Language string
	MinDelay time.Duration
	MaxDelay time.Duration
}

// Worker enriches batches of targets sequentially.
type Worker struct {
	cfg      Config
	sessions SessionFactory
	sleeper  Sleeper
	logger   *zap.Logger

	mu  sync.Mutex
	rng *rand.Rand
}

// NewWorker builds a worker. rng drives the inter-item delay and is owned
// by the worker from then on.
func NewWorker(cfg Config, sessions SessionFactory, rng *rand.Rand, sleeper Sleeper, logger *zap.Logger) *Worker {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Language == "" {
		cfg.Language = DefaultLanguage
	}
	if cfg.MinDelay <= 0 {
		cfg.MinDelay = DefaultMinDelay
	}
	if cfg.MaxDelay < cfg.MinDelay {
		cfg.MaxDelay = cfg.MinDelay
	}
	if sleeper == nil {
		sleeper = TimerSleeper{}
	}
	if rng == nil {
		seed := uint64(time.Now().UnixNano())
		rng = rand.New(rand.NewPCG(seed, seed>>1))
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Worker{
		cfg:      cfg,
		sessions: sessions,
		sleeper:  sleeper,
		rng:      rng,
		logger:   logger.Named("enrich"),
	}
}

// SearchURL builds the mapping-service search URL for one target.
func (w *Worker) SearchURL(t prospect.EnrichmentTarget) string {
	query := strings.TrimSpace(strings.TrimSpace(t.Name) + " " + strings.TrimSpace(t.City))
	return fmt.Sprintf("%s/search/%s?hl=%s",
		strings.TrimRight(w.cfg.BaseURL, "/"), url.PathEscape(query), url.QueryEscape(w.cfg.Language))
}

// Enrich looks every target up and returns exactly one result per target,
// in order. Failed lookups yield an empty result. onProgress fires once per
// processed target. Cancellation ends the batch and leaves the remaining
// results empty.
func (w *Worker) Enrich(
	ctx context.Context,
	targets []prospect.EnrichmentTarget,
	onProgress prospect.ProgressFunc,
) []prospect.EnrichmentResult {
	results := make([]prospect.EnrichmentResult, len(targets))
	if len(targets) == 0 {
		return results
	}
	report := func(i int) {
		if onProgress != nil {
			onProgress(i, len(targets), targets[i])
		}
	}

	session, err := w.sessions.Open(ctx)
	if err != nil {
		w.logger.Warn("maps session unavailable", zap.Int("targets", len(targets)), zap.Error(err))
		for i := range targets {
			metrics.ObserveEnrichItem("error")
			report(i)
		}
		return results
	}
	defer session.Close()

	for i, target := range targets {
		if i > 0 {
			if err := w.sleeper.Sleep(ctx, w.delay()); err != nil {
				w.logger.Info("enrichment canceled", zap.Int("processed", i), zap.Int("total", len(targets)))
				return results
			}
		}
		results[i] = w.lookup(ctx, session, target)
		report(i)
	}
	return results
}

func (w *Worker) lookup(ctx context.Context, session Session, target prospect.EnrichmentTarget) prospect.EnrichmentResult {
	searchURL := w.SearchURL(target)
	capture, err := session.Lookup(ctx, searchURL)
	if err != nil {
		metrics.ObserveEnrichItem("error")
		w.logger.Debug("lookup failed", zap.String("name", target.Name), zap.Error(err))
		return prospect.EnrichmentResult{}
	}
	result := ParsePlace(capture.HTML, capture.FinalURL)
	if result.Empty() {
		metrics.ObserveEnrichItem("empty")
	} else {
		metrics.ObserveEnrichItem("found")
	}
	return result
}

// delay draws a uniform pause in [MinDelay, MaxDelay].
func (w *Worker) delay() time.Duration {
	span := w.cfg.MaxDelay - w.cfg.MinDelay
	if span <= 0 {
		return w.cfg.MinDelay
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.cfg.MinDelay + time.Duration(w.rng.Int64N(int64(span)+1))
}
