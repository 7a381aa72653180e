// Package sqlite persists search runs and audits in a local SQLite file for
// single-node deployments and the CLI.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/walt0white1/prospectflow-sub000/internal/prospect"
	"github.com/walt0white1/prospectflow-sub000/internal/store"
)

// Store implements store.Repository on modernc.org/sqlite.
type Store struct {
	db *sql.DB
}

var _ store.Repository = (*Store)(nil)

// Open opens the database at dsn and configures WAL mode.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	db.SetMaxOpenConns(1)
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &Store{db: db}, nil
}

const migration = `
CREATE TABLE IF NOT EXISTS search_runs (
	id            TEXT PRIMARY KEY,
	sector        TEXT NOT NULL,
	city          TEXT NOT NULL,
	radius_km     REAL NOT NULL,
	result_limit  INTEGER NOT NULL,
	enrich        INTEGER NOT NULL DEFAULT 0,
	status        TEXT NOT NULL,
	started_at    TEXT NOT NULL,
	finished_at   TEXT,
	display_name  TEXT,
	lat           REAL,
	lng           REAL,
	found_count   INTEGER NOT NULL DEFAULT 0,
	result_count  INTEGER NOT NULL DEFAULT 0,
	error_message TEXT
);

CREATE TABLE IF NOT EXISTS audits (
	id                 TEXT PRIMARY KEY,
	prospect_id        TEXT,
	url                TEXT NOT NULL,
	created_at         TEXT NOT NULL,
	prospect_score     INTEGER NOT NULL,
	site_quality_score INTEGER NOT NULL,
	priority           TEXT NOT NULL,
	result             TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_search_runs_started_at ON search_runs(started_at);
CREATE INDEX IF NOT EXISTS idx_audits_prospect ON audits(prospect_id, created_at);
`

// Migrate creates the tables when missing.
func (s *Store) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, migration)
	return eris.Wrap(err, "sqlite: migrate")
}

// Ping checks the database file is usable.
func (s *Store) Ping(ctx context.Context) error {
	return eris.Wrap(s.db.PingContext(ctx), "sqlite: ping")
}

// Close closes the database.
func (s *Store) Close() {
	_ = s.db.Close()
}

// Timestamps are stored as fixed-width UTC text so they sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

func formatTime(t time.Time) string { return t.UTC().Format(timeLayout) }

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	return t, eris.Wrapf(err, "sqlite: parse time %q", s)
}

// StartSearch inserts the run; a repeated start is a no-op.
func (s *Store) StartSearch(ctx context.Context, run store.SearchRun) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO search_runs (id, sector, city, radius_km, result_limit, enrich, status, started_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?) ON CONFLICT(id) DO NOTHING`,
		run.ID.String(), run.Sector, run.City, run.RadiusKm, run.Limit, run.Enrich,
		string(store.SearchRunning), formatTime(run.StartedAt),
	)
	return eris.Wrap(err, "sqlite: start search")
}

// RecordLocation stores the geocoded centre.
func (s *Store) RecordLocation(ctx context.Context, id uuid.UUID, displayName string, lat, lng float64) error {
	return s.update(ctx, "record location",
		`UPDATE search_runs SET display_name = ?, lat = ?, lng = ? WHERE id = ?`,
		displayName, lat, lng, id.String())
}

// RecordFound stores the directory result count.
func (s *Store) RecordFound(ctx context.Context, id uuid.UUID, count int) error {
	return s.update(ctx, "record found",
		`UPDATE search_runs SET found_count = ? WHERE id = ?`, count, id.String())
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
	return s.update(ctx, "complete search",
		`UPDATE search_runs SET finished_at = ?, status = ?, result_count = ?, error_message = ? WHERE id = ?`,
		formatTime(finishedAt), string(status), results, errMsg, id.String())
}

func (s *Store) update(ctx context.Context, op, query string, args ...any) error {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return eris.Wrapf(err, "sqlite: %s", op)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrapf(err, "sqlite: %s rows affected", op)
	}
	if n == 0 {
		return eris.Wrapf(store.ErrNotFound, "sqlite: %s", op)
	}
	return nil
}

const searchColumns = `id, sector, city, radius_km, result_limit, enrich, status, started_at, finished_at,
	display_name, lat, lng, found_count, result_count, error_message`

// GetSearch loads one run.
func (s *Store) GetSearch(ctx context.Context, id uuid.UUID) (store.SearchRun, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+searchColumns+` FROM search_runs WHERE id = ?`, id.String())
	run, err := scanSearch(row)
	if errors.Is(err, sql.ErrNoRows) {
		return store.SearchRun{}, store.ErrNotFound
	}
	return run, err
}

// ListSearches returns runs newest first.
func (s *Store) ListSearches(ctx context.Context, status *store.SearchStatus, limit, offset int) ([]store.SearchRun, error) {
	var filter any
	if status != nil {
		filter = string(*status)
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+searchColumns+` FROM search_runs
		 WHERE (? IS NULL OR status = ?)
		 ORDER BY started_at DESC LIMIT ? OFFSET ?`,
		filter, filter, limit, offset)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list searches")
	}
	defer rows.Close()

	runs := []store.SearchRun{}
	for rows.Next() {
		run, err := scanSearch(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: iterate searches")
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSearch(row scanner) (store.SearchRun, error) {
	var (
		run                 store.SearchRun
		id, status, started string
		finished            sql.NullString
		display, errMsg     sql.NullString
		lat, lng            sql.NullFloat64
	)
	err := row.Scan(&id, &run.Sector, &run.City, &run.RadiusKm, &run.Limit, &run.Enrich, &status,
		&started, &finished, &display, &lat, &lng, &run.FoundCount, &run.ResultCount, &errMsg)
	if errors.Is(err, sql.ErrNoRows) {
		return run, err
	}
	if err != nil {
		return run, eris.Wrap(err, "sqlite: scan search")
	}
	if run.ID, err = uuid.Parse(id); err != nil {
		return run, eris.Wrap(err, "sqlite: parse search id")
	}
	run.Status = store.SearchStatus(status)
	if run.StartedAt, err = parseTime(started); err != nil {
		return run, err
	}
	if finished.Valid {
		t, err := parseTime(finished.String)
		if err != nil {
			return run, err
		}
		run.FinishedAt = &t
	}
	if display.Valid {
		run.DisplayName = &display.String
	}
	if errMsg.Valid {
		run.ErrorMessage = &errMsg.String
	}
	if lat.Valid && lng.Valid {
		run.Lat, run.Lng = &lat.Float64, &lng.Float64
	}
	return run, nil
}

// CreateAudit inserts one audit record.
func (s *Store) CreateAudit(ctx context.Context, rec store.AuditRecord) error {
	payload, err := json.Marshal(rec.Result)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal audit result")
	}
	var prospectID any
	if rec.ProspectID != "" {
		prospectID = rec.ProspectID
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO audits (id, prospect_id, url, created_at, prospect_score, site_quality_score, priority, result)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID.String(), prospectID, rec.URL, formatTime(rec.CreatedAt),
		rec.ProspectScore, rec.SiteQualityScore, string(rec.Priority), string(payload),
	)
	return eris.Wrap(err, "sqlite: insert audit")
}

const auditColumns = `id, prospect_id, url, created_at, prospect_score, site_quality_score, priority, result`

// GetAudit loads one audit.
func (s *Store) GetAudit(ctx context.Context, id uuid.UUID) (store.AuditRecord, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+auditColumns+` FROM audits WHERE id = ?`, id.String())
	rec, err := scanAudit(row)
	if errors.Is(err, sql.ErrNoRows) {
		return store.AuditRecord{}, store.ErrNotFound
	}
	return rec, err
}

// ListAudits returns the audits of one prospect, newest first.
func (s *Store) ListAudits(ctx context.Context, prospectID string, limit, offset int) ([]store.AuditRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+auditColumns+` FROM audits WHERE prospect_id = ?
		 ORDER BY created_at DESC LIMIT ? OFFSET ?`,
		prospectID, limit, offset)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list audits")
	}
	defer rows.Close()

	out := []store.AuditRecord{}
	for rows.Next() {
		rec, err := scanAudit(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate audits")
}

func scanAudit(row scanner) (store.AuditRecord, error) {
	var (
		rec                       store.AuditRecord
		id, created, priority, js string
		prospectID                sql.NullString
	)
	err := row.Scan(&id, &prospectID, &rec.URL, &created, &rec.ProspectScore, &rec.SiteQualityScore, &priority, &js)
	if errors.Is(err, sql.ErrNoRows) {
		return rec, err
	}
	if err != nil {
		return rec, eris.Wrap(err, "sqlite: scan audit")
	}
	if rec.ID, err = uuid.Parse(id); err != nil {
		return rec, eris.Wrap(err, "sqlite: parse audit id")
	}
	if rec.CreatedAt, err = parseTime(created); err != nil {
		return rec, err
	}
	rec.ProspectID = prospectID.String
	rec.Priority = prospect.Priority(priority)
	if err := json.Unmarshal([]byte(js), &rec.Result); err != nil {
		return rec, eris.Wrap(err, "sqlite: decode audit result")
	}
	return rec, nil
}
