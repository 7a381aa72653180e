package nominatim

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGeocode_TopMatch(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, "Lyon", r.URL.Query().Get("q"))
		assert.Equal(t, "fr", r.URL.Query().Get("countrycodes"))
		assert.Equal(t, "1", r.URL.Query().Get("limit"))
		assert.Equal(t, "prospectflow-test", r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `[{"lat":"45.7578137","lon":"4.8320114","name":"Lyon",
			"display_name":"Lyon, Métropole de Lyon, Rhône, Auvergne-Rhône-Alpes, France"}]`)
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL, CountryCodes: "fr", UserAgent: "prospectflow-test"}, srv.Client(), nil, nil)
	point, err := c.Geocode(context.Background(), " Lyon ")
	require.NoError(t, err)
	require.NotNil(t, point)
	assert.InDelta(t, 45.7578, point.Lat, 0.0001)
	assert.InDelta(t, 4.8320, point.Lng, 0.0001)
	assert.Equal(t, "Lyon", point.CanonicalName)
	assert.Contains(t, point.DisplayName, "Auvergne-Rhône-Alpes")
}

func TestGeocode_CanonicalFallsBackToDisplayName(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `[{"lat":"48.85","lon":"2.35","display_name":"Paris, Île-de-France, France"}]`)
	}))
	defer srv.Close()

	point, err := New(Config{BaseURL: srv.URL}, srv.Client(), nil, nil).Geocode(context.Background(), "Paris")
	require.NoError(t, err)
	require.Equal(t, "Paris", point.CanonicalName)
}

func TestGeocode_NoMatchReturnsNil(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `[]`)
	}))
	defer srv.Close()

	point, err := New(Config{BaseURL: srv.URL}, srv.Client(), nil, nil).Geocode(context.Background(), "Nowhereville")
	require.NoError(t, err)
	require.Nil(t, point)
}

func TestGeocode_UpstreamErrorIsNotRetried(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := New(Config{BaseURL: srv.URL}, srv.Client(), nil, nil).Geocode(context.Background(), "Lyon")
	require.Error(t, err)
	require.Contains(t, err.Error(), "status 503")
	require.Equal(t, int32(1), calls.Load())
}

func TestGeocode_EmptyPlaceSkipsNetwork(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
	}))
	defer srv.Close()

	_, err := New(Config{BaseURL: srv.URL}, srv.Client(), nil, nil).Geocode(context.Background(), "   ")
	require.ErrorIs(t, err, ErrEmptyPlace)
	require.Zero(t, calls.Load())
}

type countingWaiter struct{ n atomic.Int32 }

func (w *countingWaiter) Wait(context.Context, string) error {
	w.n.Add(1)
	return nil
}

func TestGeocode_UsesLimiter(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `[]`)
	}))
	defer srv.Close()

	waiter := &countingWaiter{}
	c := New(Config{BaseURL: srv.URL}, srv.Client(), waiter, nil)
	_, err := c.Geocode(context.Background(), "Lyon")
	require.NoError(t, err)
	require.Equal(t, int32(1), waiter.n.Load())
}
