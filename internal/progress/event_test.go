package progress

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/walt0white1/prospectflow-sub000/internal/prospect"
)

func TestEventMarshalFrames(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		evt  Event
		want string
	}{
		{
			name: "status",
			evt:  Event{Stage: StageStatus, Step: StepGeocode, Message: "Localisation de Lyon"},
			want: `{"type":"status","step":"geocode","message":"Localisation de Lyon"}`,
		},
		{
			name: "geocode",
			evt:  Event{Stage: StageGeocode, City: "Lyon", DisplayName: "Lyon, Rhône", Lat: 45.76, Lng: 4.83},
			want: `{"type":"geocode","city":"Lyon","displayName":"Lyon, Rhône","lat":45.76,"lng":4.83}`,
		},
		{
			name: "overpass",
			evt:  Event{Stage: StageOverpass, Count: 7},
			want: `{"type":"overpass","count":7}`,
		},
		{
			name: "empty done",
			evt:  Event{Stage: StageDone},
			want: `{"type":"done","candidates":[]}`,
		},
		{
			name: "enrich",
			evt:  Event{Stage: StageEnrich, Index: 1, Total: 4, Name: "Salon Lumière"},
			want: `{"type":"enrich","index":1,"total":4,"name":"Salon Lumière"}`,
		},
		{
			name: "error",
			evt:  Event{Stage: StageError, Message: "Ville introuvable"},
			want: `{"type":"error","message":"Ville introuvable"}`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			raw, err := json.Marshal(tt.evt)
			require.NoError(t, err)
			require.JSONEq(t, tt.want, string(raw))
		})
	}
}

func TestEventMarshalCandidates(t *testing.T) {
	t.Parallel()

	evt := Event{Stage: StageScored, Candidates: []prospect.ScoredCandidate{{
		CandidateRecord: prospect.CandidateRecord{ID: "osm:node/1", Name: "Salon"},
		ProspectScore:   75,
		Priority:        prospect.PriorityHigh,
		Issues:          []string{},
	}}}
	raw, err := json.Marshal(evt)
	require.NoError(t, err)

	var frame struct {
		Type       string           `json:"type"`
		Candidates []map[string]any `json:"candidates"`
	}
	require.NoError(t, json.Unmarshal(raw, &frame))
	require.Equal(t, "scored", frame.Type)
	require.Len(t, frame.Candidates, 1)
	require.Equal(t, "osm:node/1", frame.Candidates[0]["id"])
	require.EqualValues(t, 75, frame.Candidates[0]["prospectScore"])
}

func TestEventValidate(t *testing.T) {
	t.Parallel()

	id := UUIDToBytes(uuid.New())
	now := time.Now()
	require.NoError(t, Event{SearchID: id, TS: now, Stage: StageDone}.Validate())
	require.Error(t, Event{TS: now, Stage: StageDone}.Validate())
	require.Error(t, Event{SearchID: id, Stage: StageDone}.Validate())
	require.Error(t, Event{SearchID: id, TS: now, Stage: "bogus"}.Validate())
	require.Error(t, Event{SearchID: id, TS: now, Stage: StageError}.Validate())
	require.Error(t, Event{SearchID: id, TS: now, Stage: StageEnrich, Index: 2, Total: 2}.Validate())
	require.NoError(t, Event{SearchID: id, TS: now, Stage: StageEnrich, Index: 1, Total: 2}.Validate())
	require.True(t, Event{Stage: StageError}.Terminal())
	require.False(t, Event{Stage: StageScored}.Terminal())
}

func TestTeeAndRecorder(t *testing.T) {
	t.Parallel()

	var a, b Recorder
	emit := Tee(&a, nil, &b)
	emit.Emit(Event{Stage: StageStatus, Step: StepGeocode})
	emit.Emit(Event{Stage: StageDone})
	require.Equal(t, []Stage{StageStatus, StageDone}, a.Stages())
	require.Equal(t, a.Events(), b.Events())
}
