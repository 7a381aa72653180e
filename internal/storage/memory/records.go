package memory

import (
	"cmp"
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/walt0white1/prospectflow-sub000/internal/store"
)

// Records keeps search runs and audits in process memory.
type Records struct {
	mu       sync.RWMutex
	searches map[uuid.UUID]store.SearchRun
	audits   map[uuid.UUID]store.AuditRecord
}

var _ store.Repository = (*Records)(nil)

// NewRecords constructs an empty Records store.
func NewRecords() *Records {
	return &Records{
		searches: make(map[uuid.UUID]store.SearchRun),
		audits:   make(map[uuid.UUID]store.AuditRecord),
	}
}

// StartSearch stores run as running unless it already exists.
func (s *Records) StartSearch(_ context.Context, run store.SearchRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.searches[run.ID]; exists {
		return nil
	}
	run.Status = store.SearchRunning
	s.searches[run.ID] = run
	return nil
}

// RecordLocation stores the geocoded centre.
func (s *Records) RecordLocation(_ context.Context, id uuid.UUID, displayName string, lat, lng float64) error {
	return s.mutate(id, func(run *store.SearchRun) {
		run.DisplayName = &displayName
		run.Lat = &lat
		run.Lng = &lng
	})
}

// RecordFound stores the directory result count.
func (s *Records) RecordFound(_ context.Context, id uuid.UUID, count int) error {
	return s.mutate(id, func(run *store.SearchRun) { run.FoundCount = count })
}

// CompleteSearch marks the run finished.
func (s *Records) CompleteSearch(
	_ context.Context,
	id uuid.UUID,
	finishedAt time.Time,
	status store.SearchStatus,
	results int,
	errMsg *string,
) error {
	return s.mutate(id, func(run *store.SearchRun) {
		run.FinishedAt = &finishedAt
		run.Status = status
		run.ResultCount = results
		if errMsg != nil {
			msg := *errMsg
			run.ErrorMessage = &msg
		}
	})
}

func (s *Records) mutate(id uuid.UUID, fn func(*store.SearchRun)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	run, ok := s.searches[id]
	if !ok {
		return store.ErrNotFound
	}
	fn(&run)
	s.searches[id] = run
	return nil
}

// GetSearch loads one run.
func (s *Records) GetSearch(_ context.Context, id uuid.UUID) (store.SearchRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	run, ok := s.searches[id]
	if !ok {
		return store.SearchRun{}, store.ErrNotFound
	}
	return run, nil
}

// ListSearches returns runs newest first.
func (s *Records) ListSearches(_ context.Context, status *store.SearchStatus, limit, offset int) ([]store.SearchRun, error) {
	s.mu.RLock()
	runs := make([]store.SearchRun, 0, len(s.searches))
	for _, run := range s.searches {
		if status == nil || run.Status == *status {
			runs = append(runs, run)
		}
	}
	s.mu.RUnlock()

	slices.SortFunc(runs, func(a, b store.SearchRun) int {
		return b.StartedAt.Compare(a.StartedAt)
	})
	return page(runs, limit, offset), nil
}

// CreateAudit stores rec.
func (s *Records) CreateAudit(_ context.Context, rec store.AuditRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.audits[rec.ID] = rec
	return nil
}

// GetAudit loads one audit.
func (s *Records) GetAudit(_ context.Context, id uuid.UUID) (store.AuditRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.audits[id]
	if !ok {
		return store.AuditRecord{}, store.ErrNotFound
	}
	return rec, nil
}

// ListAudits returns the audits of one prospect, newest first.
func (s *Records) ListAudits(_ context.Context, prospectID string, limit, offset int) ([]store.AuditRecord, error) {
	s.mu.RLock()
	out := []store.AuditRecord{}
	for _, rec := range s.audits {
		if rec.ProspectID == prospectID {
			out = append(out, rec)
		}
	}
	s.mu.RUnlock()

	slices.SortFunc(out, func(a, b store.AuditRecord) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID.String(), b.ID.String())
	})
	return page(out, limit, offset), nil
}

// Close is a no-op.
func (s *Records) Close() {}

func page[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return []T{}
	}
	items = items[max(offset, 0):]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
