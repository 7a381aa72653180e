package sinks

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/walt0white1/prospectflow-sub000/internal/progress"
	"github.com/walt0white1/prospectflow-sub000/internal/prospect"
	"github.com/walt0white1/prospectflow-sub000/internal/store"
)

// TestStoreSinkPersistsRun follows a run from start to completion.
func TestStoreSinkPersistsRun(t *testing.T) {
	t.Parallel()

	repo := &fakeSearchRepo{}
	sink := NewStoreSink(repo, nil)
	runID := uuid.New()
	id := progress.UUIDToBytes(runID)
	now := time.Now()

	batch := []progress.Event{
		{SearchID: id, TS: now, Stage: progress.StageStatus, Step: progress.StepGeocode,
			Request: &prospect.SearchRequest{Sector: "coiffeur", City: "Lyon", RadiusKm: 5, Limit: 10}},
		{SearchID: id, TS: now, Stage: progress.StageGeocode, DisplayName: "Lyon, Rhône", Lat: 45.7, Lng: 4.8},
		{SearchID: id, TS: now, Stage: progress.StageStatus, Step: progress.StepOverpass},
		{SearchID: id, TS: now, Stage: progress.StageOverpass, Count: 2},
		{SearchID: id, TS: now.Add(time.Second), Stage: progress.StageDone,
			Candidates: make([]prospect.ScoredCandidate, 2)},
	}
	require.NoError(t, sink.Consume(context.Background(), batch))

	require.Equal(t, []store.SearchRun{{
		ID: runID, Sector: "coiffeur", City: "Lyon", RadiusKm: 5, Limit: 10,
		Status: store.SearchRunning, StartedAt: now,
	}}, repo.starts)
	require.Equal(t, []string{"Lyon, Rhône"}, repo.locations)
	require.Equal(t, []int{2}, repo.found)
	require.Len(t, repo.completes, 1)
	require.Equal(t, store.SearchSuccess, repo.completes[0].status)
	require.Equal(t, 2, repo.completes[0].results)
}

// TestStoreSinkRecordsFailedValidation starts and fails a run from one event.
func TestStoreSinkRecordsFailedValidation(t *testing.T) {
	t.Parallel()

	repo := &fakeSearchRepo{}
	sink := NewStoreSink(repo, nil)
	require.NoError(t, sink.Consume(context.Background(), []progress.Event{{
		SearchID: progress.UUIDToBytes(uuid.New()),
		TS:       time.Now(),
		Stage:    progress.StageError,
		Message:  "Ville requise",
		Request:  &prospect.SearchRequest{Sector: "coiffeur"},
	}}))
	require.Len(t, repo.starts, 1)
	require.Len(t, repo.completes, 1)
	require.Equal(t, store.SearchError, repo.completes[0].status)
	require.Equal(t, "Ville requise", *repo.completes[0].errMsg)
}

// TestStoreSinkHandlesErrors surfaces repository failures back to the caller.
func TestStoreSinkHandlesErrors(t *testing.T) {
	t.Parallel()

	sink := NewStoreSink(&fakeSearchRepo{fail: true}, nil)
	err := sink.Consume(context.Background(), []progress.Event{
		{SearchID: progress.UUIDToBytes(uuid.New()), TS: time.Now(), Stage: progress.StageOverpass, Count: 1},
	})
	require.ErrorContains(t, err, "record found")
}

type completeCall struct {
	id      uuid.UUID
	status  store.SearchStatus
	results int
	errMsg  *string
}

type fakeSearchRepo struct {
	fail      bool
	starts    []store.SearchRun
	locations []string
	found     []int
	completes []completeCall
}

func (f *fakeSearchRepo) StartSearch(_ context.Context, run store.SearchRun) error {
	if f.fail {
		return assertErr("start")
	}
	f.starts = append(f.starts, run)
	return nil
}

func (f *fakeSearchRepo) RecordLocation(_ context.Context, _ uuid.UUID, displayName string, _, _ float64) error {
	if f.fail {
		return assertErr("location")
	}
	f.locations = append(f.locations, displayName)
	return nil
}

func (f *fakeSearchRepo) RecordFound(_ context.Context, _ uuid.UUID, count int) error {
	if f.fail {
		return assertErr("found")
	}
	f.found = append(f.found, count)
	return nil
}

func (f *fakeSearchRepo) CompleteSearch(
	_ context.Context,
	id uuid.UUID,
	_ time.Time,
	status store.SearchStatus,
	results int,
	errMsg *string,
) error {
	if f.fail {
		return assertErr("complete")
	}
	f.completes = append(f.completes, completeCall{id: id, status: status, results: results, errMsg: errMsg})
	return nil
}

func (f *fakeSearchRepo) GetSearch(context.Context, uuid.UUID) (store.SearchRun, error) {
	return store.SearchRun{}, store.ErrNotFound
}

func (f *fakeSearchRepo) ListSearches(context.Context, *store.SearchStatus, int, int) ([]store.SearchRun, error) {
	return nil, assertErr("list")
}

type assertErr string

func (e assertErr) Error() string { return string(e) }
