// Package config loads and validates service configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Geocoder  GeocoderConfig  `mapstructure:"geocoder"`
	Overpass  OverpassConfig  `mapstructure:"overpass"`
	Search    SearchConfig    `mapstructure:"search"`
	Audit     AuditConfig     `mapstructure:"audit"`
	Enrich    EnrichConfig    `mapstructure:"enrich"`
	Headless  HeadlessConfig  `mapstructure:"headless"`
	Storage   StorageConfig   `mapstructure:"storage"`
	DB        DBConfig        `mapstructure:"db"`
	PubSub    PubSubConfig    `mapstructure:"pubsub"`
	Progress  ProgressConfig  `mapstructure:"progress"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port                   int `mapstructure:"port"`
	RequestTimeoutSeconds  int `mapstructure:"request_timeout_seconds"`
	ShutdownTimeoutSeconds int `mapstructure:"shutdown_timeout_seconds"`
}

// AuthConfig defines API authentication toggles.
type AuthConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	APIKey  string `mapstructure:"api_key"`
}

// GeocoderConfig points at a Nominatim-compatible service.
type GeocoderConfig struct {
	BaseURL        string  `mapstructure:"base_url"`
	CountryCodes   string  `mapstructure:"country_codes"`
	Language       string  `mapstructure:"language"`
	UserAgent      string  `mapstructure:"user_agent"`
	TimeoutSeconds int     `mapstructure:"timeout_seconds"`
	RPS            float64 `mapstructure:"rps"`
}

// OverpassConfig points at an Overpass API endpoint.
type OverpassConfig struct {
	Endpoint       string `mapstructure:"endpoint"`
	UserAgent      string `mapstructure:"user_agent"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// SearchConfig tunes the orchestrator.
type SearchConfig struct {
	EnrichCap    int `mapstructure:"enrich_cap"`
	DirectoryCap int `mapstructure:"directory_cap"`
}

// Audit modes.
const (
	AuditInProcess  = "in_process"
	AuditSubprocess = "subprocess"
)

// AuditConfig selects how audits run.
type AuditConfig struct {
	Mode                string `mapstructure:"mode"`
	SubprocessPath      string `mapstructure:"subprocess_path"`
	TimeoutSeconds      int    `mapstructure:"timeout_seconds"`
	ProbeTimeoutSeconds int    `mapstructure:"probe_timeout_seconds"`
	UserAgent           string `mapstructure:"user_agent"`
	// Seed fixes the scoring random source; 0 seeds from the clock.
	Seed int64 `mapstructure:"seed"`
}

// EnrichConfig tunes the maps enrichment worker.
type EnrichConfig struct {
	Enabled            bool   `mapstructure:"enabled"`
	BaseURL            string `mapstructure:"base_url"`
	Language           string `mapstructure:"language"`
	UserAgent          string `mapstructure:"user_agent"`
	MinDelayMs         int    `mapstructure:"min_delay_ms"`
	MaxDelayMs         int    `mapstructure:"max_delay_ms"`
	ItemTimeoutSeconds int    `mapstructure:"item_timeout_seconds"`
	Seed               int64  `mapstructure:"seed"`
}

// HeadlessConfig configures the Chrome instances.
type HeadlessConfig struct {
	ExecPath      string `mapstructure:"exec_path"`
	NoSandbox     bool   `mapstructure:"no_sandbox"`
	MaxParallel   int    `mapstructure:"max_parallel"`
	NavTimeoutSec int    `mapstructure:"nav_timeout_seconds"`
}

// Storage backends for screenshots.
const (
	BlobMemory = "memory"
	BlobLocal  = "local"
	BlobGCS    = "gcs"
)

// StorageConfig selects where screenshots go.
type StorageConfig struct {
	Backend    string `mapstructure:"backend"`
	LocalDir   string `mapstructure:"local_dir"`
	BaseURL    string `mapstructure:"base_url"`
	GCSBucket  string `mapstructure:"gcs_bucket"`
	Prefix     string `mapstructure:"prefix"`
	PublicURLs bool   `mapstructure:"public_urls"`
}

// Record store drivers.
const (
	DBMemory   = "memory"
	DBPostgres = "postgres"
	DBSQLite   = "sqlite"
)

// DBConfig controls access to the relational database.
type DBConfig struct {
	Driver   string `mapstructure:"driver"`
	DSN      string `mapstructure:"dsn"`
	MaxConns int32  `mapstructure:"max_conns"`
	MinConns int32  `mapstructure:"min_conns"`
	Migrate  bool   `mapstructure:"migrate"`
}

// PubSubConfig holds metadata for audit notifications.
type PubSubConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	ProjectID   string `mapstructure:"project_id"`
	TopicPrefix string `mapstructure:"topic_prefix"`
	AuditTopic  string `mapstructure:"audit_topic"`
}

// ProgressConfig sizes the search event hub.
type ProgressConfig struct {
	BufferSize         int  `mapstructure:"buffer_size"`
	MaxBatchEvents     int  `mapstructure:"max_batch_events"`
	MaxBatchWaitMs     int  `mapstructure:"max_batch_wait_ms"`
	SinkTimeoutSeconds int  `mapstructure:"sink_timeout_seconds"`
	LogEvents          bool `mapstructure:"log_events"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

// Trace exporters.
const (
	TraceNone   = "none"
	TraceStdout = "stdout"
)

// TelemetryConfig controls OpenTelemetry tracing.
type TelemetryConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	ServiceName string  `mapstructure:"service_name"`
	Exporter    string  `mapstructure:"exporter"`
	SampleRatio float64 `mapstructure:"sample_ratio"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("PROSPECT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

const defaultUserAgent = "prospectflow/0.1 (+https://github.com/walt0white1/prospectflow-sub000)"

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.request_timeout_seconds", 90)
	v.SetDefault("server.shutdown_timeout_seconds", 15)
	v.SetDefault("geocoder.base_url", "https://nominatim.openstreetmap.org")
	v.SetDefault("geocoder.country_codes", "fr")
	v.SetDefault("geocoder.language", "fr")
	v.SetDefault("geocoder.user_agent", defaultUserAgent)
	v.SetDefault("geocoder.timeout_seconds", 10)
	v.SetDefault("geocoder.rps", 1.0)
	v.SetDefault("overpass.endpoint", "https://overpass-api.de/api/interpreter")
	v.SetDefault("overpass.user_agent", defaultUserAgent)
	v.SetDefault("overpass.timeout_seconds", 25)
	v.SetDefault("search.enrich_cap", 20)
	v.SetDefault("search.directory_cap", 200)
	v.SetDefault("audit.mode", AuditInProcess)
	v.SetDefault("audit.timeout_seconds", 45)
	v.SetDefault("audit.probe_timeout_seconds", 5)
	v.SetDefault("audit.user_agent", defaultUserAgent)
	v.SetDefault("enrich.enabled", true)
	v.SetDefault("enrich.base_url", "https://www.google.com/maps")
	v.SetDefault("enrich.language", "fr")
	v.SetDefault("enrich.min_delay_ms", 2000)
	v.SetDefault("enrich.max_delay_ms", 4000)
	v.SetDefault("enrich.item_timeout_seconds", 25)
	v.SetDefault("headless.no_sandbox", false)
	v.SetDefault("headless.max_parallel", 2)
	v.SetDefault("headless.nav_timeout_seconds", 30)
	v.SetDefault("storage.backend", BlobMemory)
	v.SetDefault("storage.local_dir", "screenshots")
	v.SetDefault("db.driver", DBMemory)
	v.SetDefault("db.migrate", true)
	v.SetDefault("pubsub.audit_topic", "audit.completed")
	v.SetDefault("progress.buffer_size", 1024)
	v.SetDefault("progress.max_batch_events", 256)
	v.SetDefault("progress.max_batch_wait_ms", 250)
	v.SetDefault("progress.sink_timeout_seconds", 5)
	v.SetDefault("progress.log_events", true)
	v.SetDefault("logging.development", true)
	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.service_name", "prospectflow")
	v.SetDefault("telemetry.exporter", TraceNone)
	v.SetDefault("telemetry.sample_ratio", 1.0)

	// Zero defaults register the keys so AutomaticEnv can override them.
	zero := map[string]any{
		"auth.enabled": false, "auth.api_key": "",
		"audit.subprocess_path": "", "audit.seed": 0,
		"enrich.user_agent": "", "enrich.seed": 0,
		"headless.exec_path": "", "logging.level": "",
		"storage.base_url": "", "storage.gcs_bucket": "", "storage.prefix": "", "storage.public_urls": false,
		"db.dsn": "", "db.max_conns": 0, "db.min_conns": 0,
		"pubsub.enabled": false, "pubsub.project_id": "", "pubsub.topic_prefix": "",
	}
	for key, value := range zero {
		v.SetDefault(key, value)
	}
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Auth.Enabled && c.Auth.APIKey == "" {
		return fmt.Errorf("auth.api_key must be set when auth is enabled")
	}
	if c.Geocoder.BaseURL == "" || c.Geocoder.UserAgent == "" {
		return fmt.Errorf("geocoder.base_url and geocoder.user_agent are required")
	}
	if c.Overpass.Endpoint == "" {
		return fmt.Errorf("overpass.endpoint is required")
	}
	if c.Search.EnrichCap <= 0 {
		return fmt.Errorf("search.enrich_cap must be > 0")
	}
	switch c.Audit.Mode {
	case AuditInProcess:
	case AuditSubprocess:
		if c.Audit.TimeoutSeconds <= 0 {
			return fmt.Errorf("audit.timeout_seconds must be > 0 in subprocess mode")
		}
	default:
		return fmt.Errorf("audit.mode must be %q or %q", AuditInProcess, AuditSubprocess)
	}
	if c.Enrich.MinDelayMs < 0 || c.Enrich.MaxDelayMs < c.Enrich.MinDelayMs {
		return fmt.Errorf("enrich delays must satisfy 0 <= min_delay_ms <= max_delay_ms")
	}
	if c.Headless.MaxParallel <= 0 {
		return fmt.Errorf("headless.max_parallel must be > 0")
	}
	switch c.Storage.Backend {
	case BlobMemory:
	case BlobLocal:
		if c.Storage.LocalDir == "" {
			return fmt.Errorf("storage.local_dir is required for the local backend")
		}
	case BlobGCS:
		if c.Storage.GCSBucket == "" {
			return fmt.Errorf("storage.gcs_bucket is required for the gcs backend")
		}
	default:
		return fmt.Errorf("unknown storage.backend %q", c.Storage.Backend)
	}
	switch c.DB.Driver {
	case DBMemory:
	case DBPostgres, DBSQLite:
		if c.DB.DSN == "" {
			return fmt.Errorf("db.dsn is required for the %s driver", c.DB.Driver)
		}
	default:
		return fmt.Errorf("unknown db.driver %q", c.DB.Driver)
	}
	if c.PubSub.Enabled && c.PubSub.ProjectID == "" {
		return fmt.Errorf("pubsub.project_id must be set when pubsub is enabled")
	}
	if c.Telemetry.Enabled {
		switch c.Telemetry.Exporter {
		case TraceNone, TraceStdout:
		default:
			return fmt.Errorf("unknown telemetry.exporter %q", c.Telemetry.Exporter)
		}
		if c.Telemetry.SampleRatio < 0 || c.Telemetry.SampleRatio > 1 {
			return fmt.Errorf("telemetry.sample_ratio must be within [0, 1]")
		}
	}
	return nil
}

// RequestTimeout bounds non-streaming HTTP handlers.
func (c Config) RequestTimeout() time.Duration {
	return time.Duration(c.Server.RequestTimeoutSeconds) * time.Second
}

// ShutdownTimeout bounds graceful shutdown.
func (c Config) ShutdownTimeout() time.Duration {
	return time.Duration(c.Server.ShutdownTimeoutSeconds) * time.Second
}

// AuditTimeout bounds one subprocess audit.
func (c Config) AuditTimeout() time.Duration {
	return time.Duration(c.Audit.TimeoutSeconds) * time.Second
}

// EnrichDelays returns the pacing bounds between enrichment lookups.
func (c Config) EnrichDelays() (time.Duration, time.Duration) {
	return time.Duration(c.Enrich.MinDelayMs) * time.Millisecond,
		time.Duration(c.Enrich.MaxDelayMs) * time.Millisecond
}
