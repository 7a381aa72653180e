package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/walt0white1/prospectflow-sub000/internal/prospect"
)

// ErrNotFound signals that the requested record does not exist.
var ErrNotFound = errors.New("record not found")

// SearchStatus mirrors the search_runs status column.
type SearchStatus string

// Search run statuses.
const (
	SearchRunning SearchStatus = "running"
	SearchSuccess SearchStatus = "success"
	SearchError   SearchStatus = "error"
)

// SearchRun is one recorded search request and its outcome.
type SearchRun struct {
	ID           uuid.UUID    `json:"id"`
	Sector       string       `json:"sector"`
	City         string       `json:"city"`
	RadiusKm     float64      `json:"radiusKm"`
	Limit        int          `json:"limit"`
	Enrich       bool         `json:"enrich"`
	Status       SearchStatus `json:"status"`
	StartedAt    time.Time    `json:"startedAt"`
	FinishedAt   *time.Time   `json:"finishedAt,omitempty"`
	DisplayName  *string      `json:"displayName,omitempty"`
	Lat          *float64     `json:"lat,omitempty"`
	Lng          *float64     `json:"lng,omitempty"`
	FoundCount   int          `json:"foundCount"`
	ResultCount  int          `json:"resultCount"`
	ErrorMessage *string      `json:"error,omitempty"`
}

// SearchRepository records search runs as their events arrive.
type SearchRepository interface {
	// StartSearch inserts the run, ignoring a repeated start.
	StartSearch(ctx context.Context, run SearchRun) error
	// RecordLocation stores the geocoded centre of a run.
	RecordLocation(ctx context.Context, id uuid.UUID, displayName string, lat, lng float64) error
	// RecordFound stores how many directory entries the run found.
	RecordFound(ctx context.Context, id uuid.UUID, count int) error
	// CompleteSearch marks the run finished.
	CompleteSearch(ctx context.Context, id uuid.UUID, finishedAt time.Time, status SearchStatus, results int, errMsg *string) error

	// GetSearch loads one run or returns ErrNotFound.
	GetSearch(ctx context.Context, id uuid.UUID) (SearchRun, error)
	// ListSearches returns runs newest first, optionally filtered by status.
	ListSearches(ctx context.Context, status *SearchStatus, limit, offset int) ([]SearchRun, error)
}

// AuditRecord is a persisted audit with the score computed from it.
type AuditRecord struct {
	ID               uuid.UUID            `json:"auditId"`
	ProspectID       string               `json:"prospectId,omitempty"`
	URL              string               `json:"url"`
	CreatedAt        time.Time            `json:"createdAt"`
	ProspectScore    int                  `json:"prospectScore"`
	SiteQualityScore int                  `json:"siteQualityScore"`
	Priority         prospect.Priority    `json:"priority"`
	Result           prospect.AuditResult `json:"audit"`
}

// AuditRepository is the create/read contract for audits.
type AuditRepository interface {
	CreateAudit(ctx context.Context, rec AuditRecord) error
	// GetAudit loads one audit or returns ErrNotFound.
	GetAudit(ctx context.Context, id uuid.UUID) (AuditRecord, error)
	// ListAudits returns a prospect's audits, newest first.
	ListAudits(ctx context.Context, prospectID string, limit, offset int) ([]AuditRecord, error)
}

// Repository bundles both contracts for backends that serve both.
type Repository interface {
	SearchRepository
	AuditRepository
	Close()
}
