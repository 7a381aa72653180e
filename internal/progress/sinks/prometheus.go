package sinks

import (
	"context"
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/walt0white1/prospectflow-sub000/internal/progress"
)

// PrometheusSink exports search progress metrics.
type PrometheusSink struct {
	searchesStarted   *prometheus.CounterVec
	searchesCompleted *prometheus.CounterVec
	searchesRunning   prometheus.Gauge
	searchRuntime     *prometheus.HistogramVec
	directoryHits     prometheus.Histogram
	enrichItems       prometheus.Counter

	tracker *runTracker
}

// NewPrometheusSink registers the collectors against reg.
func NewPrometheusSink(reg prometheus.Registerer) (*PrometheusSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PrometheusSink{
		searchesStarted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "prospect_searches_started_total",
			Help: "Searches started, by sector.",
		}, []string{"sector"}),
		searchesCompleted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "prospect_searches_completed_total",
			Help: "Searches completed, by result.",
		}, []string{"result"}),
		searchesRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "prospect_searches_running",
			Help: "Searches currently streaming.",
		}),
		searchRuntime: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "prospect_search_runtime_seconds",
			Help:    "Wall time per completed search.",
			Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60, 120, 300},
		}, []string{"result"}),
		directoryHits: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "prospect_directory_results",
			Help:    "Directory entries returned per search.",
			Buckets: []float64{0, 1, 5, 10, 25, 50, 100, 250, 500},
		}),
		enrichItems: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "prospect_search_enrich_progress_total",
			Help: "Enrichment items reported by searches.",
		}),
		tracker: newRunTracker(),
	}
	for _, collector := range []prometheus.Collector{
		s.searchesStarted,
		s.searchesCompleted,
		s.searchesRunning,
		s.searchRuntime,
		s.directoryHits,
		s.enrichItems,
	} {
		if err := reg.Register(collector); err != nil {
			return nil, fmt.Errorf("register progress collector: %w", err)
		}
	}
	return s, nil
}

// Consume updates the collectors from the batch.
func (s *PrometheusSink) Consume(_ context.Context, batch []progress.Event) error {
	for _, evt := range batch {
		s.consumeEvent(evt)
	}
	return nil
}

func (s *PrometheusSink) consumeEvent(evt progress.Event) {
	if evt.Request != nil {
		sector := evt.Request.Sector
		if sector == "" {
			sector = "unknown"
		}
		s.searchesStarted.WithLabelValues(sector).Inc()
		if s.tracker.start(evt.SearchID) {
			s.searchesRunning.Inc()
		}
	}
	switch evt.Stage {
	case progress.StageOverpass:
		s.directoryHits.Observe(float64(evt.Count))
	case progress.StageEnrich:
		s.enrichItems.Inc()
	case progress.StageDone:
		s.finish(evt, "success")
	case progress.StageError:
		s.finish(evt, "error")
	}
}

func (s *PrometheusSink) finish(evt progress.Event, result string) {
	s.searchesCompleted.WithLabelValues(result).Inc()
	if evt.Dur > 0 {
		s.searchRuntime.WithLabelValues(result).Observe(evt.Dur.Seconds())
	}
	if s.tracker.complete(evt.SearchID) {
		s.searchesRunning.Dec()
	}
}

// Close implements the Sink interface; it performs no action.
func (s *PrometheusSink) Close(context.Context) error {
	return nil
}

type runTracker struct {
	mu      sync.Mutex
	running map[[16]byte]struct{}
}

func newRunTracker() *runTracker {
	return &runTracker{running: make(map[[16]byte]struct{})}
}

func (t *runTracker) start(id [16]byte) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.running[id]; ok {
		return false
	}
	t.running[id] = struct{}{}
	return true
}

func (t *runTracker) complete(id [16]byte) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.running[id]; !ok {
		return false
	}
	delete(t.running, id)
	return true
}
