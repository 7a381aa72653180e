package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/walt0white1/prospectflow-sub000/internal/prospect"
	"github.com/walt0white1/prospectflow-sub000/internal/store"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "prospects.db"))
	require.NoError(t, err)
	t.Cleanup(s.Close)
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func TestSearchLifecycle(t *testing.T) {
	t.Parallel()

	s := openTestStore(t)
	ctx := context.Background()
	id := uuid.New()
	started := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	run := store.SearchRun{ID: id, Sector: "coiffeur", City: "Lyon", RadiusKm: 5, Limit: 50, Enrich: true, StartedAt: started}
	require.NoError(t, s.StartSearch(ctx, run))
	require.NoError(t, s.StartSearch(ctx, run), "repeated start is ignored")
	require.NoError(t, s.RecordLocation(ctx, id, "Lyon, France", 45.75, 4.83))
	require.NoError(t, s.RecordFound(ctx, id, 18))
	require.NoError(t, s.CompleteSearch(ctx, id, started.Add(12*time.Second), store.SearchSuccess, 18, nil))

	got, err := s.GetSearch(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, store.SearchSuccess, got.Status)
	assert.True(t, got.Enrich)
	assert.Equal(t, started, got.StartedAt)
	require.NotNil(t, got.FinishedAt)
	assert.Equal(t, 12*time.Second, got.FinishedAt.Sub(got.StartedAt))
	assert.Equal(t, "Lyon, France", *got.DisplayName)
	assert.InDelta(t, 45.75, *got.Lat, 1e-9)
	assert.Equal(t, 18, got.FoundCount)
	assert.Nil(t, got.ErrorMessage)
}

func TestUpdateUnknownSearch(t *testing.T) {
	t.Parallel()

	s := openTestStore(t)
	err := s.RecordFound(context.Background(), uuid.New(), 1)
	require.ErrorIs(t, err, store.ErrNotFound)

	_, err = s.GetSearch(context.Background(), uuid.New())
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestListSearchesNewestFirstWithFilter(t *testing.T) {
	t.Parallel()

	s := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	ids := make([]uuid.UUID, 3)
	for i := range ids {
		ids[i] = uuid.New()
		require.NoError(t, s.StartSearch(ctx, store.SearchRun{
			ID: ids[i], Sector: "coiffeur", City: "Lyon", RadiusKm: 5, Limit: 50, StartedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}
	msg := "City not found"
	require.NoError(t, s.CompleteSearch(ctx, ids[1], base.Add(time.Hour), store.SearchError, 0, &msg))

	all, err := s.ListSearches(ctx, nil, 10, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, ids[2], all[0].ID)
	assert.Equal(t, ids[0], all[2].ID)

	status := store.SearchError
	failed, err := s.ListSearches(ctx, &status, 10, 0)
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, msg, *failed[0].ErrorMessage)

	page, err := s.ListSearches(ctx, nil, 1, 1)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, ids[1], page[0].ID)
}

func TestAuditRoundTrip(t *testing.T) {
	t.Parallel()

	s := openTestStore(t)
	ctx := context.Background()
	cms := "WordPress"
	created := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	rec := store.AuditRecord{
		ID:               uuid.New(),
		ProspectID:       "node/42",
		URL:              "https://salon.fr/",
		CreatedAt:        created,
		ProspectScore:    71,
		SiteQualityScore: 38,
		Priority:         prospect.PriorityHigh,
		Result: prospect.AuditResult{
			URL: "https://salon.fr/", ScannedAt: created, CMS: &cms,
			TechStack: []string{"WordPress"}, Issues: []prospect.Issue{{Label: "No HTTPS", Severity: prospect.SeverityHigh, Category: prospect.CategorySecurity}},
		},
	}
	require.NoError(t, s.CreateAudit(ctx, rec))

	got, err := s.GetAudit(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, rec, got)

	older := rec
	older.ID = uuid.New()
	older.CreatedAt = created.Add(-24 * time.Hour)
	require.NoError(t, s.CreateAudit(ctx, older))

	list, err := s.ListAudits(ctx, "node/42", 10, 0)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, rec.ID, list[0].ID)

	none, err := s.ListAudits(ctx, "node/7", 10, 0)
	require.NoError(t, err)
	assert.Empty(t, none)

	_, err = s.GetAudit(ctx, uuid.New())
	require.ErrorIs(t, err, store.ErrNotFound)
}
