package sinks

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/walt0white1/prospectflow-sub000/internal/progress"
	"github.com/walt0white1/prospectflow-sub000/internal/store"
)

// StoreSink records search runs through a store.SearchRepository.
type StoreSink struct {
	repo   store.SearchRepository
	logger *zap.Logger
}

// NewStoreSink constructs a StoreSink for repo.
func NewStoreSink(repo store.SearchRepository, logger *zap.Logger) *StoreSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StoreSink{repo: repo, logger: logger}
}

// Consume applies the batch in order and returns the first repository error.
func (s *StoreSink) Consume(ctx context.Context, batch []progress.Event) error {
	if s == nil || s.repo == nil {
		return nil
	}
	for _, evt := range batch {
		if err := s.apply(ctx, evt); err != nil {
			return err
		}
	}
	return nil
}

func (s *StoreSink) apply(ctx context.Context, evt progress.Event) error {
	id := evt.SearchUUID()
	if evt.Request != nil {
		run := store.SearchRun{
			ID:        id,
			Sector:    evt.Request.Sector,
			City:      evt.Request.City,
			RadiusKm:  evt.Request.RadiusKm,
			Limit:     evt.Request.Limit,
			Enrich:    evt.Request.Enrich,
			Status:    store.SearchRunning,
			StartedAt: evt.TS,
		}
		if err := s.repo.StartSearch(ctx, run); err != nil {
			return fmt.Errorf("start search: %w", err)
		}
	}
	switch evt.Stage {
	case progress.StageGeocode:
		if err := s.repo.RecordLocation(ctx, id, evt.DisplayName, evt.Lat, evt.Lng); err != nil {
			return fmt.Errorf("record location: %w", err)
		}
	case progress.StageOverpass:
		if err := s.repo.RecordFound(ctx, id, evt.Count); err != nil {
			return fmt.Errorf("record found: %w", err)
		}
	case progress.StageDone:
		if err := s.repo.CompleteSearch(ctx, id, evt.TS, store.SearchSuccess, len(evt.Candidates), nil); err != nil {
			return fmt.Errorf("complete search: %w", err)
		}
	case progress.StageError:
		msg := evt.Message
		if err := s.repo.CompleteSearch(ctx, id, evt.TS, store.SearchError, 0, &msg); err != nil {
			return fmt.Errorf("complete search: %w", err)
		}
	}
	return nil
}

// Close implements the Sink interface; it performs no action.
func (s *StoreSink) Close(context.Context) error {
	return nil
}
