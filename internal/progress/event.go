package progress

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/walt0white1/prospectflow-sub000/internal/prospect"
)

// Stage is the event tag.
type Stage string

// Supported stages. Done and Error are terminal.
const (
	StageStatus   Stage = "status"
	StageGeocode  Stage = "geocode"
	StageOverpass Stage = "overpass"
	StageScored   Stage = "scored"
	StageEnrich   Stage = "enrich"
	StageDone     Stage = "done"
	StageError    Stage = "error"
)

// Status steps.
const (
	StepGeocode  = "geocode"
	StepOverpass = "overpass"
	StepScoring  = "scoring"
	StepEnrich   = "enrich"
)

// Event is one tagged message of a search run. Only the fields relevant to
// the Stage are set.
type Event struct {
	// SearchID identifies the run using the 16-byte UUID form.
	SearchID [16]byte
	// TS is the UTC timestamp recorded by the emitter.
	TS    time.Time
	Stage Stage

	Step    string
	Message string

	City        string
	DisplayName string
	Lat         float64
	Lng         float64

	Count int

	Index int
	Total int
	Name  string

	Candidates []prospect.ScoredCandidate

	// Request is attached to the first event of a run for observers.
	Request *prospect.SearchRequest
	// Dur is the run duration on terminal events.
	Dur time.Duration
}

// Terminal reports whether the event closes a run.
func (e Event) Terminal() bool {
	return e.Stage == StageDone || e.Stage == StageError
}

// Validate performs coarse validation on Event payloads.
func (e Event) Validate() error {
	if e.SearchID == [16]byte{} {
		return errors.New("search id is required")
	}
	if e.TS.IsZero() {
		return errors.New("timestamp is required")
	}
	switch e.Stage {
	case StageStatus:
		if e.Step == "" {
			return errors.New("status requires step")
		}
	case StageError:
		if e.Message == "" {
			return errors.New("error requires message")
		}
	case StageEnrich:
		if e.Total <= 0 || e.Index < 0 || e.Index >= e.Total {
			return fmt.Errorf("enrich index %d out of range for total %d", e.Index, e.Total)
		}
	case StageGeocode, StageOverpass, StageScored, StageDone:
	default:
		return fmt.Errorf("unknown stage %q", e.Stage)
	}
	if e.Dur < 0 {
		return errors.New("duration must be >= 0")
	}
	return nil
}

type statusFrame struct {
	Type    Stage  `json:"type"`
	Step    string `json:"step"`
	Message string `json:"message"`
}

type geocodeFrame struct {
	Type        Stage   `json:"type"`
	City        string  `json:"city"`
	DisplayName string  `json:"displayName"`
	Lat         float64 `json:"lat"`
	Lng         float64 `json:"lng"`
}

type countFrame struct {
	Type  Stage `json:"type"`
	Count int   `json:"count"`
}

type candidatesFrame struct {
	Type       Stage                      `json:"type"`
	Candidates []prospect.ScoredCandidate `json:"candidates"`
}

type enrichFrame struct {
	Type  Stage  `json:"type"`
	Index int    `json:"index"`
	Total int    `json:"total"`
	Name  string `json:"name"`
}

type errorFrame struct {
	Type    Stage  `json:"type"`
	Message string `json:"message"`
}

// MarshalJSON renders the wire frame for the event's stage.
func (e Event) MarshalJSON() ([]byte, error) {
	var frame any
	switch e.Stage {
	case StageStatus:
		frame = statusFrame{Type: e.Stage, Step: e.Step, Message: e.Message}
	case StageGeocode:
		frame = geocodeFrame{Type: e.Stage, City: e.City, DisplayName: e.DisplayName, Lat: e.Lat, Lng: e.Lng}
	case StageOverpass:
		frame = countFrame{Type: e.Stage, Count: e.Count}
	case StageScored, StageDone:
		candidates := e.Candidates
		if candidates == nil {
			candidates = []prospect.ScoredCandidate{}
		}
		frame = candidatesFrame{Type: e.Stage, Candidates: candidates}
	case StageEnrich:
		frame = enrichFrame{Type: e.Stage, Index: e.Index, Total: e.Total, Name: e.Name}
	case StageError:
		frame = errorFrame{Type: e.Stage, Message: e.Message}
	default:
		return nil, fmt.Errorf("unknown stage %q", e.Stage)
	}
	return json.Marshal(frame)
}

// SearchUUID converts the binary search ID to uuid.UUID for repositories.
func (e Event) SearchUUID() uuid.UUID {
	return uuid.UUID(e.SearchID)
}

// UUIDToBytes encodes a uuid.UUID into the Event form.
func UUIDToBytes(id uuid.UUID) [16]byte {
	var dest [16]byte
	copy(dest[:], id[:])
	return dest
}
