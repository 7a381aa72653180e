// Package postgres persists search runs and audits in Postgres.
package postgres

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/walt0white1/prospectflow-sub000/internal/prospect"
	"github.com/walt0white1/prospectflow-sub000/internal/store"
)

//go:embed schema.sql
var schema string

// Config controls the Postgres connection pool.
type Config struct {
	DSN             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

// pool is the subset of pgxpool.Pool the store needs; pgxmock satisfies it.
type pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close()
}

// Store implements store.Repository.
type Store struct {
	pool pool
}

var _ store.Repository = (*Store)(nil)

// New connects to Postgres using cfg.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, eris.New("postgres: dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse dsn")
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	p, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: connect")
	}
	return &Store{pool: p}, nil
}

// NewWithPool wraps an existing pool, mainly for tests.
func NewWithPool(p pool) (*Store, error) {
	if p == nil {
		return nil, eris.New("postgres: pool is required")
	}
	return &Store{pool: p}, nil
}

// Migrate creates the tables when missing.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return eris.Wrap(err, "postgres: migrate")
	}
	return nil
}

// Ping checks the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return eris.Wrap(s.pool.Ping(ctx), "postgres: ping")
}

// Close releases the pool.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

const searchColumns = `id, sector, city, radius_km, result_limit, enrich, status, started_at, finished_at,
	display_name, lat, lng, found_count, result_count, error_message`

// StartSearch inserts the run; a repeated start is a no-op.
func (s *Store) StartSearch(ctx context.Context, run store.SearchRun) error {
	query := `
		INSERT INTO search_runs (id, sector, city, radius_km, result_limit, enrich, status, started_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO NOTHING;
	`
	_, err := s.pool.Exec(ctx, query,
		run.ID, run.Sector, run.City, run.RadiusKm, run.Limit, run.Enrich, store.SearchRunning, run.StartedAt)
	if err != nil {
		return eris.Wrap(err, "postgres: start search")
	}
	return nil
}

// RecordLocation stores the geocoded centre.
func (s *Store) RecordLocation(ctx context.Context, id uuid.UUID, displayName string, lat, lng float64) error {
	query := `UPDATE search_runs SET display_name = $1, lat = $2, lng = $3 WHERE id = $4;`
	return s.update(ctx, "record location", query, displayName, lat, lng, id)
}

// RecordFound stores the directory result count.
func (s *Store) RecordFound(ctx context.Context, id uuid.UUID, count int) error {
	query := `UPDATE search_runs SET found_count = $1 WHERE id = $2;`
	return s.update(ctx, "record found", query, count, id)
}

// CompleteSearch marks the run finished.
func (s *Store) CompleteSearch(
	ctx context.Context,
	id uuid.UUID,
	finishedAt time.Time,
	status store.SearchStatus,
	results int,
	errMsg *string,
) error {
	query := `
		UPDATE search_runs
		SET finished_at = $1, status = $2, result_count = $3, error_message = $4
		WHERE id = $5;
	`
	return s.update(ctx, "complete search", query, finishedAt, status, results, errMsg, id)
}

func (s *Store) update(ctx context.Context, op, query string, args ...any) error {
	tag, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return eris.Wrapf(err, "postgres: %s", op)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(store.ErrNotFound, "postgres: %s", op)
	}
	return nil
}

// GetSearch loads one run.
func (s *Store) GetSearch(ctx context.Context, id uuid.UUID) (store.SearchRun, error) {
	query := `SELECT ` + searchColumns + ` FROM search_runs WHERE id = $1;`
	run, err := scanSearch(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return store.SearchRun{}, store.ErrNotFound
		}
		return store.SearchRun{}, eris.Wrap(err, "postgres: get search")
	}
	return run, nil
}

// ListSearches returns runs newest first.
func (s *Store) ListSearches(ctx context.Context, status *store.SearchStatus, limit, offset int) ([]store.SearchRun, error) {
	query := `SELECT ` + searchColumns + `
		FROM search_runs
		WHERE ($1::text IS NULL OR status = $1)
		ORDER BY started_at DESC
		LIMIT $2 OFFSET $3;`
	var filter *string
	if status != nil {
		v := string(*status)
		filter = &v
	}
	rows, err := s.pool.Query(ctx, query, filter, limit, offset)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list searches")
	}
	defer rows.Close()

	runs := []store.SearchRun{}
	for rows.Next() {
		run, err := scanSearch(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan search row")
		}
		runs = append(runs, run)
	}
	return runs, eris.Wrap(rows.Err(), "postgres: iterate searches")
}

func scanSearch(row pgx.Row) (store.SearchRun, error) {
	var (
		run    store.SearchRun
		status string
	)
	err := row.Scan(
		&run.ID,
		&run.Sector,
		&run.City,
		&run.RadiusKm,
		&run.Limit,
		&run.Enrich,
		&status,
		&run.StartedAt,
		&run.FinishedAt,
		&run.DisplayName,
		&run.Lat,
		&run.Lng,
		&run.FoundCount,
		&run.ResultCount,
		&run.ErrorMessage,
	)
	run.Status = store.SearchStatus(status)
	return run, err
}

const auditColumns = `id, prospect_id, url, created_at, prospect_score, site_quality_score, priority, result`

// CreateAudit inserts one audit record.
func (s *Store) CreateAudit(ctx context.Context, rec store.AuditRecord) error {
	payload, err := json.Marshal(rec.Result)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal audit result")
	}
	query := `INSERT INTO audits (` + auditColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8);`
	_, err = s.pool.Exec(ctx, query,
		rec.ID,
		nullable(rec.ProspectID),
		rec.URL,
		rec.CreatedAt,
		rec.ProspectScore,
		rec.SiteQualityScore,
		string(rec.Priority),
		payload,
	)
	if err != nil {
		return eris.Wrap(err, "postgres: insert audit")
	}
	return nil
}

// GetAudit loads one audit.
func (s *Store) GetAudit(ctx context.Context, id uuid.UUID) (store.AuditRecord, error) {
	query := `SELECT ` + auditColumns + ` FROM audits WHERE id = $1;`
	rec, err := scanAudit(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return store.AuditRecord{}, store.ErrNotFound
		}
		return store.AuditRecord{}, eris.Wrap(err, "postgres: get audit")
	}
	return rec, nil
}

// ListAudits returns the audits of one prospect, newest first.
func (s *Store) ListAudits(ctx context.Context, prospectID string, limit, offset int) ([]store.AuditRecord, error) {
	query := `SELECT ` + auditColumns + `
		FROM audits
		WHERE prospect_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3;`
	rows, err := s.pool.Query(ctx, query, prospectID, limit, offset)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list audits")
	}
	defer rows.Close()

	out := []store.AuditRecord{}
	for rows.Next() {
		rec, err := scanAudit(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan audit row")
		}
		out = append(out, rec)
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate audits")
}

func scanAudit(row pgx.Row) (store.AuditRecord, error) {
	var (
		rec        store.AuditRecord
		prospectID *string
		priority   string
		payload    []byte
	)
	if err := row.Scan(
		&rec.ID,
		&prospectID,
		&rec.URL,
		&rec.CreatedAt,
		&rec.ProspectScore,
		&rec.SiteQualityScore,
		&priority,
		&payload,
	); err != nil {
		return store.AuditRecord{}, err
	}
	if prospectID != nil {
		rec.ProspectID = *prospectID
	}
	rec.Priority = prospect.Priority(priority)
	if err := json.Unmarshal(payload, &rec.Result); err != nil {
		return store.AuditRecord{}, eris.Wrap(err, "decode audit result")
	}
	return rec, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
