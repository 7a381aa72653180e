package enrich

import (
	"context"
	"errors"
	"math/rand/v2"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/walt0white1/prospectflow-sub000/internal/prospect"
)

type fakeSession struct {
	mu      sync.Mutex
	pages   map[string]PlaceCapture
	fail    map[string]bool
	lookups []string
	closed  int
}

func (s *fakeSession) Lookup(_ context.Context, searchURL string) (PlaceCapture, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lookups = append(s.lookups, searchURL)
	if s.fail[searchURL] {
		return PlaceCapture{}, errors.New("net::ERR_CONNECTION_REFUSED")
	}
	return s.pages[searchURL], nil
}

func (s *fakeSession) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed++
}

type fakeFactory struct {
	session *fakeSession
	err     error
	opened  int
}

func (f *fakeFactory) Open(context.Context) (Session, error) {
	f.opened++
	if f.err != nil {
		return nil, f.err
	}
	return f.session, nil
}

type recordingSleeper struct {
	delays []time.Duration
	cancel func()
	after  int
}

func (s *recordingSleeper) Sleep(ctx context.Context, d time.Duration) error {
	s.delays = append(s.delays, d)
	if s.cancel != nil && len(s.delays) == s.after {
		s.cancel()
	}
	return ctx.Err()
}

func targets(names ...string) []prospect.EnrichmentTarget {
	out := make([]prospect.EnrichmentTarget, len(names))
	for i, n := range names {
		out[i] = prospect.EnrichmentTarget{Name: n, City: "Lyon"}
	}
	return out
}

func newTestWorker(f SessionFactory, s Sleeper) *Worker {
	return NewWorker(Config{}, f, rand.New(rand.NewPCG(1, 2)), s, nil)
}

func TestWorkerSearchURL(t *testing.T) {
	t.Parallel()

	w := NewWorker(Config{BaseURL: "https://maps.example/", Language: "fr"}, &fakeFactory{}, nil, nil, nil)
	require.Equal(t, "https://maps.example/search/Salon%20Lumi%C3%A8re%20Lyon?hl=fr",
		w.SearchURL(prospect.EnrichmentTarget{Name: "Salon Lumière", City: "Lyon"}))
}

func TestWorkerEnrichParsesAndPaces(t *testing.T) {
	t.Parallel()

	session := &fakeSession{pages: map[string]PlaceCapture{}, fail: map[string]bool{}}
	sleeper := &recordingSleeper{}
	w := newTestWorker(&fakeFactory{session: session}, sleeper)
	batch := targets("Salon Lumière", "Coiff'Hair", "Barbier Saint-Jean")
	session.pages[w.SearchURL(batch[0])] = PlaceCapture{HTML: placeFixture, FinalURL: "https://maps/place/1"}
	session.fail[w.SearchURL(batch[1])] = true

	var progress []int
	results := w.Enrich(context.Background(), batch, func(i, total int, target prospect.EnrichmentTarget) {
		require.Equal(t, 3, total)
		require.Equal(t, batch[i], target)
		progress = append(progress, i)
	})

	require.Len(t, results, 3)
	require.Equal(t, []int{0, 1, 2}, progress)
	require.InDelta(t, 4.6, *results[0].GoogleRating, 0.0001)
	require.True(t, results[1].Empty())
	require.True(t, results[2].Empty())
	require.Len(t, session.lookups, 3)
	require.Equal(t, 1, session.closed)

	require.Len(t, sleeper.delays, 2, "no pause before the first or after the last item")
	for _, d := range sleeper.delays {
		require.GreaterOrEqual(t, d, 2*time.Second)
		require.LessOrEqual(t, d, 4*time.Second)
	}
}

func TestWorkerDelaysAreSeeded(t *testing.T) {
	t.Parallel()

	run := func() []time.Duration {
		session := &fakeSession{pages: map[string]PlaceCapture{}}
		sleeper := &recordingSleeper{}
		newTestWorker(&fakeFactory{session: session}, sleeper).
			Enrich(context.Background(), targets("a", "b", "c", "d"), nil)
		return sleeper.delays
	}
	require.Equal(t, run(), run())
}

func TestWorkerEveryTargetFails(t *testing.T) {
	t.Parallel()

	factory := &fakeFactory{err: errors.New("chrome failed to start")}
	var calls int
	results := newTestWorker(factory, &recordingSleeper{}).
		Enrich(context.Background(), targets("a", "b", "c", "d", "e"), func(int, int, prospect.EnrichmentTarget) { calls++ })

	require.Len(t, results, 5)
	for _, r := range results {
		require.True(t, r.Empty())
	}
	require.Equal(t, 5, calls)
}

func TestWorkerCancellationStopsBatch(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	session := &fakeSession{pages: map[string]PlaceCapture{}}
	sleeper := &recordingSleeper{cancel: cancel, after: 1}

	var calls int
	results := newTestWorker(&fakeFactory{session: session}, sleeper).
		Enrich(ctx, targets("a", "b", "c"), func(int, int, prospect.EnrichmentTarget) { calls++ })

	require.Len(t, results, 3)
	require.Equal(t, 1, calls)
	require.Len(t, session.lookups, 1)
	require.Equal(t, 1, session.closed)
}

func TestWorkerEmptyBatchOpensNothing(t *testing.T) {
	t.Parallel()

	factory := &fakeFactory{}
	require.Empty(t, newTestWorker(factory, nil).Enrich(context.Background(), nil, nil))
	require.Zero(t, factory.opened)
}

func TestTimerSleeperHonoursContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, TimerSleeper{}.Sleep(ctx, time.Hour), context.Canceled)
	require.NoError(t, TimerSleeper{}.Sleep(context.Background(), time.Millisecond))
}
