// Package server builds the service dependencies from configuration and runs
// the HTTP server lifecycle.
package server

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"net"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/walt0white1/prospectflow-sub000/internal/api"
	"github.com/walt0white1/prospectflow-sub000/internal/audit"
	"github.com/walt0white1/prospectflow-sub000/internal/audit/runner"
	"github.com/walt0white1/prospectflow-sub000/internal/clock/system"
	"github.com/walt0white1/prospectflow-sub000/internal/config"
	"github.com/walt0white1/prospectflow-sub000/internal/enrich"
	"github.com/walt0white1/prospectflow-sub000/internal/geo/nominatim"
	"github.com/walt0white1/prospectflow-sub000/internal/geo/overpass"
	"github.com/walt0white1/prospectflow-sub000/internal/id/uuid"
	"github.com/walt0white1/prospectflow-sub000/internal/metrics"
	"github.com/walt0white1/prospectflow-sub000/internal/pipeline"
	"github.com/walt0white1/prospectflow-sub000/internal/policy/ratelimit"
	"github.com/walt0white1/prospectflow-sub000/internal/progress"
	progresssinks "github.com/walt0white1/prospectflow-sub000/internal/progress/sinks"
	"github.com/walt0white1/prospectflow-sub000/internal/prospect"
	memorypublisher "github.com/walt0white1/prospectflow-sub000/internal/publisher/memory"
	gcppublisher "github.com/walt0white1/prospectflow-sub000/internal/publisher/pubsub"
	gcsstorage "github.com/walt0white1/prospectflow-sub000/internal/storage/gcs"
	localstorage "github.com/walt0white1/prospectflow-sub000/internal/storage/local"
	memorystorage "github.com/walt0white1/prospectflow-sub000/internal/storage/memory"
	pgstore "github.com/walt0white1/prospectflow-sub000/internal/storage/postgres"
	sqlitestore "github.com/walt0white1/prospectflow-sub000/internal/storage/sqlite"
	"github.com/walt0white1/prospectflow-sub000/internal/store"
	"github.com/walt0white1/prospectflow-sub000/internal/telemetry"
)

// Options adjust how Build wires the process.
type Options struct {
	// ConfigPath is forwarded to audit child processes.
	ConfigPath string
	// Registerer receives the progress collectors; nil uses the default registry.
	Registerer prometheus.Registerer
	// Observers receive every search event next to the configured sinks.
	Observers []progress.Sink
}

// App contains the application's dependencies.
type App struct {
	cfg    config.Config
	logger *zap.Logger

	orchestrator *pipeline.Orchestrator
	runner       runner.Runner
	repo         store.Repository
	publisher    prospect.Publisher
	hub          *progress.Hub
	apiServer    *api.Server

	closers []namedCloser
}

type namedCloser struct {
	name  string
	close func() error
}

// Build creates the application's dependencies.
func Build(ctx context.Context, cfg config.Config, logger *zap.Logger, opts Options) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	metrics.Init()
	app := &App{cfg: cfg, logger: logger}
	logger.Info("building application dependencies",
		zap.Int("port", cfg.Server.Port),
		zap.String("db_driver", cfg.DB.Driver),
		zap.String("storage_backend", cfg.Storage.Backend),
		zap.String("audit_mode", cfg.Audit.Mode),
	)

	ok := false
	defer func() {
		if !ok {
			app.closeInfrastructure()
		}
	}()

	if err := app.setupTracing(ctx); err != nil {
		return nil, err
	}
	blobs, err := app.setupBlobStore(ctx)
	if err != nil {
		return nil, err
	}
	engine, err := app.setupAuditEngine(blobs)
	if err != nil {
		return nil, err
	}
	if app.runner, err = app.setupRunner(engine, opts.ConfigPath); err != nil {
		return nil, err
	}
	if app.repo, err = app.setupRepository(ctx); err != nil {
		return nil, err
	}
	if app.publisher, err = app.setupPublisher(ctx); err != nil {
		return nil, err
	}
	if app.hub, err = app.setupProgress(ctx, opts); err != nil {
		return nil, err
	}
	app.orchestrator = app.setupOrchestrator()

	app.apiServer = api.NewServer(api.Deps{
		Searches:  app.orchestrator,
		Audits:    app.runner,
		Records:   app.repo,
		Publisher: app.publisher,
		IDs:       uuid.New(),
		Clock:     system.New(),
		Rand:      NewRand(cfg.Audit.Seed),
		Ready:     app.ready,
	}, cfg, logger)

	ok = true
	return app, nil
}

// Orchestrator returns the search pipeline.
func (a *App) Orchestrator() *pipeline.Orchestrator { return a.orchestrator }

// Runner returns the configured audit runner.
func (a *App) Runner() runner.Runner { return a.runner }

// Records returns the search and audit record store.
func (a *App) Records() store.Repository { return a.repo }

// Handler returns the HTTP handler.
func (a *App) Handler() http.Handler { return a.apiServer.Handler() }

// Run serves HTTP and blocks until the context is canceled or a signal
// arrives, then shuts down gracefully.
func (a *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// No WriteTimeout: search streams stay open for the whole pipeline run.
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", a.cfg.Server.Port),
		Handler:           a.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("http server started", zap.Int("port", a.cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			stop()
		}
	}()

	<-ctx.Done()
	a.logger.Info("shutdown initiated")

	shutdownTimeout := a.cfg.ShutdownTimeout()
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("server shutdown error", zap.Error(err))
	}
	closeErr := a.Close(shutdownCtx)

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	default:
		return closeErr
	}
}

// Close flushes pending progress events and releases every resource.
func (a *App) Close(ctx context.Context) error {
	var err error
	if a.hub != nil {
		if hubErr := a.hub.Close(ctx); hubErr != nil {
			a.logger.Warn("progress hub close failed", zap.Error(hubErr))
			err = hubErr
		}
		a.hub = nil
	}
	a.closeInfrastructure()
	a.logger.Info("shutdown complete")
	return err
}

func (a *App) closeInfrastructure() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		c := a.closers[i]
		if err := c.close(); err != nil {
			a.logger.Warn("close failed", zap.String("resource", c.name), zap.Error(err))
		}
	}
	a.closers = nil
}

func (a *App) onClose(name string, fn func() error) {
	a.closers = append(a.closers, namedCloser{name: name, close: fn})
}

func (a *App) ready(ctx context.Context) error {
	pinger, ok := a.repo.(interface{ Ping(context.Context) error })
	if !ok {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return pinger.Ping(ctx)
}

func (a *App) setupTracing(ctx context.Context) error {
	tc := a.cfg.Telemetry
	if !tc.Enabled {
		return nil
	}
	tp, err := telemetry.NewProvider(ctx, telemetry.Config{
		ServiceName: tc.ServiceName,
		Exporter:    tc.Exporter,
		SampleRatio: tc.SampleRatio,
	})
	if err != nil {
		return fmt.Errorf("tracing init failed: %w", err)
	}
	telemetry.Install(tp)
	a.onClose("tracing", func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return tp.Shutdown(ctx)
	})
	a.logger.Info("tracing enabled",
		zap.String("exporter", tc.Exporter),
		zap.Float64("sample_ratio", tc.SampleRatio),
	)
	return nil
}

func (a *App) setupBlobStore(ctx context.Context) (prospect.BlobStore, error) {
	blobs, closeFn, err := OpenBlobStore(ctx, a.cfg, a.logger)
	if err != nil {
		return nil, err
	}
	if closeFn != nil {
		a.onClose(a.cfg.Storage.Backend, closeFn)
	}
	return blobs, nil
}

// OpenBlobStore opens the configured screenshot store. The returned close
// func is nil when the backend holds no resources.
func OpenBlobStore(ctx context.Context, cfg config.Config, logger *zap.Logger) (prospect.BlobStore, func() error, error) {
	sc := cfg.Storage
	switch sc.Backend {
	case config.BlobGCS:
		blobs, err := gcsstorage.Open(ctx, gcsstorage.Config{
			Bucket:     sc.GCSBucket,
			Prefix:     sc.Prefix,
			PublicURLs: sc.PublicURLs,
		}, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("gcs blob store init failed: %w", err)
		}
		logger.Info("using GCS screenshot storage", zap.String("bucket", sc.GCSBucket))
		return blobs, blobs.Close, nil
	case config.BlobLocal:
		blobs, err := localstorage.New(localstorage.Config{BaseDir: sc.LocalDir, BaseURL: sc.BaseURL})
		if err != nil {
			return nil, nil, fmt.Errorf("local blob store init failed: %w", err)
		}
		logger.Info("using local screenshot storage", zap.String("path", blobs.Dir()))
		return blobs, nil, nil
	default:
		logger.Info("using in-memory screenshot storage")
		return memorystorage.NewBlobStore(), nil, nil
	}
}

func (a *App) setupAuditEngine(blobs prospect.BlobStore) (*audit.Engine, error) {
	engine, browser, err := NewAuditEngine(a.cfg, blobs, a.logger)
	if err != nil {
		return nil, err
	}
	a.onClose("chrome", func() error {
		browser.Close()
		return nil
	})
	return engine, nil
}

// NewAuditEngine builds the Chrome-backed audit engine used both by the
// service and by the audit child process.
func NewAuditEngine(cfg config.Config, blobs prospect.BlobStore, logger *zap.Logger) (*audit.Engine, *audit.ChromeBrowser, error) {
	browser, err := audit.NewChromeBrowser(audit.ChromeConfig{
		ExecPath:          cfg.Headless.ExecPath,
		MaxParallel:       cfg.Headless.MaxParallel,
		NavigationTimeout: time.Duration(cfg.Headless.NavTimeoutSec) * time.Second,
		NoSandbox:         cfg.Headless.NoSandbox,
	}, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("chrome browser init failed: %w", err)
	}
	prober := audit.NewCollyProber(cfg.Audit.UserAgent, time.Duration(cfg.Audit.ProbeTimeoutSeconds)*time.Second)
	opts := []audit.Option{audit.WithClock(system.New()), audit.WithLogger(logger)}
	if blobs != nil {
		opts = append(opts, audit.WithBlobStore(blobs))
	}
	return audit.NewEngine(browser, prober, opts...), browser, nil
}

func (a *App) setupRunner(engine *audit.Engine, configPath string) (runner.Runner, error) {
	if a.cfg.Audit.Mode != config.AuditSubprocess {
		a.logger.Info("audits run in process")
		return runner.InProcess{Engine: engine}, nil
	}
	path := a.cfg.Audit.SubprocessPath
	if path == "" {
		exe, err := os.Executable()
		if err != nil {
			return nil, fmt.Errorf("resolve audit child executable: %w", err)
		}
		path = exe
	}
	args := []string{"audit-child"}
	if configPath != "" {
		args = append(args, "--config", configPath)
	}
	a.logger.Info("audits run in child processes",
		zap.String("path", path),
		zap.Duration("timeout", a.cfg.AuditTimeout()),
	)
	return runner.Subprocess{
		Path:    path,
		Args:    args,
		Timeout: a.cfg.AuditTimeout(),
		Logger:  a.logger.Named("audit_child"),
	}, nil
}

func (a *App) setupRepository(ctx context.Context) (store.Repository, error) {
	db := a.cfg.DB
	switch db.Driver {
	case config.DBPostgres:
		repo, err := pgstore.New(ctx, pgstore.Config{
			DSN:      db.DSN,
			MaxConns: db.MaxConns,
			MinConns: db.MinConns,
		})
		if err != nil {
			return nil, fmt.Errorf("postgres store init failed: %w", err)
		}
		a.onClose("postgres", func() error { repo.Close(); return nil })
		if db.Migrate {
			if err := repo.Migrate(ctx); err != nil {
				return nil, fmt.Errorf("postgres migrate failed: %w", err)
			}
		}
		a.logger.Info("using postgres record store")
		return repo, nil
	case config.DBSQLite:
		repo, err := sqlitestore.Open(db.DSN)
		if err != nil {
			return nil, fmt.Errorf("sqlite store init failed: %w", err)
		}
		a.onClose("sqlite", func() error { repo.Close(); return nil })
		if db.Migrate {
			if err := repo.Migrate(ctx); err != nil {
				return nil, fmt.Errorf("sqlite migrate failed: %w", err)
			}
		}
		a.logger.Info("using sqlite record store", zap.String("dsn", db.DSN))
		return repo, nil
	default:
		a.logger.Warn("using in-memory record store; history is lost on restart")
		return memorystorage.NewRecords(), nil
	}
}

func (a *App) setupPublisher(ctx context.Context) (prospect.Publisher, error) {
	ps := a.cfg.PubSub
	if !ps.Enabled {
		a.logger.Info("Pub/Sub disabled, using in-memory publisher")
		return memorypublisher.New(), nil
	}
	pub, err := gcppublisher.Open(ctx, ps.ProjectID, ps.TopicPrefix)
	if err != nil {
		return nil, fmt.Errorf("pubsub publisher init failed: %w", err)
	}
	a.onClose("pubsub", pub.Close)
	a.logger.Info("Pub/Sub publisher initialized",
		zap.String("project", ps.ProjectID),
		zap.String("topic", pub.TopicName(ps.AuditTopic)),
	)
	return pub, nil
}

func (a *App) setupProgress(ctx context.Context, opts Options) (*progress.Hub, error) {
	pc := a.cfg.Progress
	sinkList := []progress.Sink{progresssinks.NewStoreSink(a.repo, a.logger.Named("progress_store"))}
	promSink, err := progresssinks.NewPrometheusSink(opts.Registerer)
	if err != nil {
		return nil, fmt.Errorf("progress metrics init failed: %w", err)
	}
	sinkList = append(sinkList, promSink)
	if pc.LogEvents {
		sinkList = append(sinkList, progresssinks.NewLogSink(a.logger.Named("progress_log")))
	}
	sinkList = append(sinkList, opts.Observers...)

	hubCfg := progress.Config{
		BufferSize:     pc.BufferSize,
		MaxBatchEvents: pc.MaxBatchEvents,
		MaxBatchWait:   time.Duration(pc.MaxBatchWaitMs) * time.Millisecond,
		SinkTimeout:    time.Duration(pc.SinkTimeoutSeconds) * time.Second,
		BaseContext:    context.WithoutCancel(ctx),
		Logger:         a.logger.Named("progress_hub"),
	}
	hub := progress.NewHub(hubCfg, sinkList...)
	a.logger.Info("progress hub initialized",
		zap.Int("sinks", len(sinkList)),
		zap.Int("buffer_size", hubCfg.BufferSize),
		zap.Duration("max_batch_wait", hubCfg.MaxBatchWait),
	)
	return hub, nil
}

func (a *App) setupOrchestrator() *pipeline.Orchestrator {
	cfg := a.cfg
	limiter := ratelimit.New(ratelimit.Config{
		HostRPS: map[string]float64{hostOf(cfg.Geocoder.BaseURL): cfg.Geocoder.RPS},
	})
	geocoder := nominatim.New(nominatim.Config{
		BaseURL:      cfg.Geocoder.BaseURL,
		CountryCodes: cfg.Geocoder.CountryCodes,
		Language:     cfg.Geocoder.Language,
		UserAgent:    cfg.Geocoder.UserAgent,
		Timeout:      time.Duration(cfg.Geocoder.TimeoutSeconds) * time.Second,
	}, nil, limiter, a.logger)
	directory := overpass.New(overpass.Config{
		Endpoint:  cfg.Overpass.Endpoint,
		UserAgent: cfg.Overpass.UserAgent,
		Timeout:   time.Duration(cfg.Overpass.TimeoutSeconds) * time.Second,
	}, nil, a.logger)

	opts := []pipeline.Option{
		pipeline.WithObserver(a.hub),
		pipeline.WithClock(system.New()),
		pipeline.WithLogger(a.logger),
	}
	if cfg.Enrich.Enabled {
		minDelay, maxDelay := cfg.EnrichDelays()
		userAgent := cfg.Enrich.UserAgent
		sessions := enrich.NewChromeSessions(enrich.ChromeConfig{
			ExecPath:    cfg.Headless.ExecPath,
			UserAgent:   userAgent,
			NoSandbox:   cfg.Headless.NoSandbox,
			ItemTimeout: time.Duration(cfg.Enrich.ItemTimeoutSeconds) * time.Second,
		}, a.logger)
		worker := enrich.NewWorker(enrich.Config{
			BaseURL:  cfg.Enrich.BaseURL,
			Language: cfg.Enrich.Language,
			MinDelay: minDelay,
			MaxDelay: maxDelay,
		}, sessions, NewRand(cfg.Enrich.Seed), nil, a.logger)
		opts = append(opts, pipeline.WithEnricher(worker))
		a.logger.Info("maps enrichment enabled",
			zap.Duration("min_delay", minDelay),
			zap.Duration("max_delay", maxDelay),
		)
	}
	return pipeline.New(pipeline.Config{
		EnrichCap:    cfg.Search.EnrichCap,
		DirectoryCap: cfg.Search.DirectoryCap,
	}, geocoder, directory, opts...)
}

// NewRand seeds a PCG source; seed 0 draws from the clock.
func NewRand(seed int64) *rand.Rand {
	s := uint64(seed)
	if seed == 0 {
		s = uint64(time.Now().UnixNano())
	}
	return rand.New(rand.NewPCG(s, s>>1))
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Hostname()
}
