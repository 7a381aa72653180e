// Package pipeline drives one prospect search from geocoding to the final
// scored, optionally enriched candidate list, reporting each phase as a
// tagged progress event.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/walt0white1/prospectflow-sub000/internal/clock/system"
	"github.com/walt0white1/prospectflow-sub000/internal/progress"
	"github.com/walt0white1/prospectflow-sub000/internal/prospect"
	"github.com/walt0white1/prospectflow-sub000/internal/scoring"
	"github.com/walt0white1/prospectflow-sub000/internal/sector"
	"github.com/walt0white1/prospectflow-sub000/internal/telemetry"
)

// Defaults for the orchestrator caps.
const (
	DefaultEnrichCap    = 20
	DefaultDirectoryCap = 200
)

var (
	// ErrInvalidRequest marks a search rejected before any external call.
	ErrInvalidRequest = fmt.Errorf("invalid search request: %w", prospect.ErrInvalidInput)
	// ErrPlaceNotFound means the geocoder had no match for the city.
	ErrPlaceNotFound = errors.New("place not found")
)

// Config tunes the orchestrator.
type Config struct {
	// EnrichCap bounds how many of the best candidates are enriched.
	EnrichCap int
	// DirectoryCap bounds the directory query before scoring and truncation.
	DirectoryCap int
}

// Orchestrator sequences geocoding, directory search, scoring and
// enrichment for one request at a time. It holds no per-search state.
type Orchestrator struct {
	cfg       Config
	geocoder  prospect.Geocoder
	directory prospect.DirectorySearcher
	enricher  prospect.Enricher
	observer  progress.Emitter
	clock     prospect.Clock
	logger    *zap.Logger
}

// Option customizes an Orchestrator.
type Option func(*Orchestrator)

// WithEnricher enables the enrichment phase.
func WithEnricher(e prospect.Enricher) Option {
	return func(o *Orchestrator) { o.enricher = e }
}

// WithObserver mirrors every event into obs, typically a progress.Hub.
func WithObserver(obs progress.Emitter) Option {
	return func(o *Orchestrator) { o.observer = obs }
}

// WithClock overrides the event timestamp source.
func WithClock(c prospect.Clock) Option {
	return func(o *Orchestrator) { o.clock = c }
}

// WithLogger sets the orchestrator logger.
func WithLogger(l *zap.Logger) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.logger = l
		}
	}
}

// New builds an orchestrator.
func New(cfg Config, geocoder prospect.Geocoder, directory prospect.DirectorySearcher, opts ...Option) *Orchestrator {
	if cfg.EnrichCap <= 0 {
		cfg.EnrichCap = DefaultEnrichCap
	}
	if cfg.DirectoryCap <= 0 {
		cfg.DirectoryCap = DefaultDirectoryCap
	}
	o := &Orchestrator{
		cfg:       cfg,
		geocoder:  geocoder,
		directory: directory,
		clock:     system.New(),
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(o)
	}
	o.logger = o.logger.Named("pipeline")
	return o
}

// Validate normalizes req and resolves its sector.
func Validate(req prospect.SearchRequest) (prospect.SearchRequest, prospect.Sector, error) {
	req = req.Normalize()
	sec, ok := sector.Resolve(req.Sector)
	switch {
	case req.Sector == "":
		return req, sec, fmt.Errorf("%w: sector is required", ErrInvalidRequest)
	case !ok:
		return req, sec, fmt.Errorf("%w: unknown sector %q", ErrInvalidRequest, req.Sector)
	case req.City == "":
		return req, sec, fmt.Errorf("%w: city is required", ErrInvalidRequest)
	case req.RadiusKm <= 0:
		return req, sec, fmt.Errorf("%w: radius must be positive", ErrInvalidRequest)
	case req.Limit <= 0:
		return req, sec, fmt.Errorf("%w: limit must be positive", ErrInvalidRequest)
	}
	return req, sec, nil
}

// Run executes one search under searchID, streaming events to emit. The
// returned slice matches the done event; on failure an error event is the
// last thing emitted and the error is returned.
func (o *Orchestrator) Run(
	ctx context.Context,
	searchID uuid.UUID,
	req prospect.SearchRequest,
	emit progress.Emitter,
) ([]prospect.ScoredCandidate, error) {
	ctx, span := telemetry.Tracer().Start(ctx, "search.run", trace.WithAttributes(
		attribute.String("search.id", searchID.String()),
		attribute.String("search.sector", req.Sector),
		attribute.String("search.city", req.City),
		attribute.Bool("search.enrich", req.Enrich),
	))
	out, err := o.run(ctx, searchID, req, emit)
	span.SetAttributes(attribute.Int("search.results", len(out)))
	telemetry.End(span, err)
	return out, err
}

func (o *Orchestrator) run(
	ctx context.Context,
	searchID uuid.UUID,
	req prospect.SearchRequest,
	emit progress.Emitter,
) ([]prospect.ScoredCandidate, error) {
	run := &runEmitter{
		id:      progress.UUIDToBytes(searchID),
		clock:   o.clock,
		out:     progress.Tee(emit, o.observer),
		started: o.clock.Now(),
	}
	logger := o.logger.With(zap.String("search_id", searchID.String()))

	req, sec, err := Validate(req)
	run.request = &req
	if err != nil {
		run.fail(err.Error())
		return nil, err
	}

	run.status(progress.StepGeocode, fmt.Sprintf("Locating %s", req.City))
	point, err := o.geocoder.Geocode(ctx, req.City)
	if err != nil {
		logger.Warn("geocode failed", zap.String("city", req.City), zap.Error(err))
		run.fail(fmt.Sprintf("Could not locate %q: geocoding service unavailable", req.City))
		return nil, fmt.Errorf("geocode %q: %w", req.City, err)
	}
	if point == nil {
		run.fail(fmt.Sprintf("City %q not found", req.City))
		return nil, fmt.Errorf("%w: %q", ErrPlaceNotFound, req.City)
	}
	run.emit(progress.Event{
		Stage:       progress.StageGeocode,
		City:        point.CanonicalName,
		DisplayName: point.DisplayName,
		Lat:         point.Lat,
		Lng:         point.Lng,
	})

	run.status(progress.StepOverpass, fmt.Sprintf("Searching %s within %g km", sec.Label, req.RadiusKm))
	records, err := o.directory.Search(ctx, sec, *point, req.RadiusMeters(), max(req.Limit, o.cfg.DirectoryCap))
	if err != nil {
		logger.Warn("directory search failed", zap.Error(err))
		run.fail("Business directory search failed, please retry later")
		return nil, fmt.Errorf("directory search: %w", err)
	}
	run.emit(progress.Event{Stage: progress.StageOverpass, Count: len(records)})
	if len(records) == 0 {
		run.done(nil)
		return []prospect.ScoredCandidate{}, nil
	}

	run.status(progress.StepScoring, fmt.Sprintf("Scoring %d businesses", len(records)))
	scored := scoring.SortByScore(scoring.ScoreAll(records))
	if len(scored) > req.Limit {
		scored = scored[:req.Limit]
	}
	run.emit(progress.Event{Stage: progress.StageScored, Candidates: scored})

	if req.Enrich {
		if o.enricher == nil {
			logger.Warn("enrichment requested but no enricher is configured")
		} else {
			scored = o.enrich(ctx, run, req, scored)
		}
	}

	run.done(scored)
	logger.Info("search complete",
		zap.String("sector", sec.Code),
		zap.String("city", req.City),
		zap.Int("found", len(records)),
		zap.Int("results", len(scored)),
	)
	return scored, nil
}

func (o *Orchestrator) enrich(
	ctx context.Context,
	run *runEmitter,
	req prospect.SearchRequest,
	scored []prospect.ScoredCandidate,
) []prospect.ScoredCandidate {
	n := min(o.cfg.EnrichCap, len(scored))
	run.status(progress.StepEnrich, fmt.Sprintf("Enriching the top %d businesses", n))

	targets := make([]prospect.EnrichmentTarget, n)
	for i, c := range scored[:n] {
		city := c.City
		if city == "" {
			city = req.City
		}
		targets[i] = prospect.EnrichmentTarget{Name: c.Name, City: city}
	}
	results := o.enricher.Enrich(ctx, targets, func(i, total int, t prospect.EnrichmentTarget) {
		run.emit(progress.Event{Stage: progress.StageEnrich, Index: i, Total: total, Name: t.Name})
	})

	out := make([]prospect.ScoredCandidate, 0, len(scored))
	for i, c := range scored[:n] {
		if i < len(results) {
			c = Merge(c, results[i])
		}
		out = append(out, c)
	}
	return append(out, scored[n:]...)
}

// runEmitter stamps and fans out the events of one run.
type runEmitter struct {
	id      [16]byte
	clock   prospect.Clock
	out     progress.Emitter
	started time.Time
	request *prospect.SearchRequest
	sent    bool
}

func (r *runEmitter) emit(evt progress.Event) {
	evt.SearchID = r.id
	evt.TS = r.clock.Now()
	if !r.sent {
		evt.Request = r.request
		r.sent = true
	}
	if evt.Terminal() {
		evt.Dur = max(evt.TS.Sub(r.started), 0)
	}
	r.out.Emit(evt)
}

func (r *runEmitter) status(step, message string) {
	r.emit(progress.Event{Stage: progress.StageStatus, Step: step, Message: message})
}

func (r *runEmitter) fail(message string) {
	r.emit(progress.Event{Stage: progress.StageError, Message: message})
}

func (r *runEmitter) done(candidates []prospect.ScoredCandidate) {
	if candidates == nil {
		candidates = []prospect.ScoredCandidate{}
	}
	r.emit(progress.Event{Stage: progress.StageDone, Candidates: candidates})
}
