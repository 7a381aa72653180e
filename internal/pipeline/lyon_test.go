package pipeline

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/walt0white1/prospectflow-sub000/internal/geo/overpass"
	"github.com/walt0white1/prospectflow-sub000/internal/progress"
	"github.com/walt0white1/prospectflow-sub000/internal/prospect"
)

// Three named elements, two of them sharing node/1, plus one unnamed shop.
const lyonDirectoryResponse = `{"elements":[
  {"type":"node","id":1,"lat":45.76,"lon":4.83,"tags":{"name":"Salon Alpha","shop":"hairdresser",
    "addr:housenumber":"12","addr:street":"Rue de la République","addr:postcode":"69002","addr:city":"Lyon",
    "phone":"+33 4 78 00 00 00","website":"https://alpha.example"}},
  {"type":"way","id":2,"center":{"lat":45.75,"lon":4.84},"tags":{"name":"Barber Beta","shop":"barber"}},
  {"type":"node","id":1,"lat":45.76,"lon":4.83,"tags":{"name":"Salon Alpha","shop":"barber"}},
  {"type":"node","id":3,"lat":45.70,"lon":4.80,"tags":{"shop":"hairdresser"}}
]}`

func TestRunLyonAgainstDirectoryService(t *testing.T) {
	t.Parallel()

	var queries atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		queries.Add(1)
		assert.NoError(t, r.ParseForm())
		assert.Contains(t, r.PostForm.Get("data"), `(around:5000,`)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, lyonDirectoryResponse)
	}))
	defer srv.Close()

	dir := overpass.New(overpass.Config{Endpoint: srv.URL}, srv.Client(), nil)
	o := newTestOrchestrator(&stubGeocoder{point: lyon()}, dir)
	rec := &progress.Recorder{}

	got, err := o.Run(context.Background(), uuid.New(),
		prospect.SearchRequest{Sector: "Coiffeur", City: "Lyon", RadiusKm: 5, Limit: 10, Enrich: false}, rec)
	require.NoError(t, err)
	assert.EqualValues(t, 1, queries.Load())

	events := rec.Events()
	last := events[len(events)-1]
	require.Equal(t, progress.StageDone, last.Stage)
	require.Len(t, last.Candidates, 2)
	assert.Equal(t, got, last.Candidates)

	ids := []string{last.Candidates[0].ID, last.Candidates[1].ID}
	assert.ElementsMatch(t, []string{"osm:node/1", "osm:way/2"}, ids)
	for _, c := range last.Candidates {
		assert.NotEmpty(t, c.Name)
		assert.Equal(t, prospect.PriorityFor(c.ProspectScore), c.Priority)
	}
	// The bare barber outranks the salon that already has a site.
	assert.Equal(t, "Barber Beta", last.Candidates[0].Name)
	assert.NotContains(t, rec.Stages(), progress.StageEnrich)
}
