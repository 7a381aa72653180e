package cli

import (
	"bytes"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/walt0white1/prospectflow-sub000/internal/progress"
	"github.com/walt0white1/prospectflow-sub000/internal/prospect"
	"github.com/walt0white1/prospectflow-sub000/internal/scoring"
	"github.com/walt0white1/prospectflow-sub000/internal/sector"
)

func strPtr(s string) *string { return &s }

func sampleCandidates() []prospect.ScoredCandidate {
	rating := 4.6
	reviews := 128
	return []prospect.ScoredCandidate{
		{
			CandidateRecord: prospect.CandidateRecord{ID: "node/1", Name: "Salon A", Lat: 45.0, Lng: 4.0, Phone: strPtr("+33 1 23 45 67 89")},
			ProspectScore:   91,
			Priority:        prospect.PriorityHot,
		},
		{
			CandidateRecord:   prospect.CandidateRecord{ID: "node/2", Name: strings.Repeat("Long Name ", 6), Lat: 45.1, Lng: 4.0, Website: strPtr("https://b.example")},
			ProspectScore:     42,
			Priority:          prospect.PriorityMedium,
			GoogleRating:      &rating,
			GoogleReviewCount: &reviews,
		},
	}
}

func TestRenderCandidates(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	center := &prospect.GeoPoint{Lat: 45.0, Lng: 4.0}
	require.NoError(t, RenderCandidates(&buf, sampleCandidates(), center))

	out := buf.String()
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], "Priority")
	assert.Contains(t, lines[1], "Salon A")
	assert.Contains(t, lines[1], "HOT")
	assert.Contains(t, lines[2], "https://b.example")
	assert.Contains(t, lines[2], "4.6 (128)")
	assert.Contains(t, lines[2], "…")
	assert.Contains(t, lines[0], "Dist")
	assert.Contains(t, lines[1], "0 m")
	assert.Contains(t, lines[2], "11.1 km")
}

func TestRenderCandidatesEmpty(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	require.NoError(t, RenderCandidates(&buf, nil, nil))
	assert.Contains(t, buf.String(), "No businesses found")
}

func TestRenderSectors(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	require.NoError(t, RenderSectors(&buf, sector.All()))

	out := buf.String()
	for _, s := range sector.All() {
		assert.Contains(t, out, s.Code)
		assert.Contains(t, out, s.Primary.Key+"="+s.Primary.Value)
	}
}

func TestRenderAudit(t *testing.T) {
	t.Parallel()
	cms := "WordPress"
	age := 9
	result := prospect.AuditResult{
		URL:         "https://example.com",
		LoadTimeSec: 3.2,
		PageSizeKB:  2400,
		CMS:         &cms,
		DesignAge:   &age,
		TechStack:   []string{"jQuery"},
		Issues: []prospect.Issue{
			{Label: "No HTTPS", Severity: prospect.SeverityHigh},
			{Label: "Missing meta description", Severity: prospect.SeverityMedium},
			{Label: "Images without alt", Severity: prospect.SeverityLow},
		},
	}
	score := scoring.AuditScore{ProspectScore: 78, SiteQualityScore: 22, Priority: prospect.PriorityHigh}

	var buf bytes.Buffer
	require.NoError(t, RenderAudit(&buf, result, score))

	out := buf.String()
	assert.Contains(t, out, "https://example.com")
	assert.Contains(t, out, "Prospect score: 78")
	assert.Contains(t, out, "WordPress")
	assert.Contains(t, out, "~9 years")
	assert.Contains(t, out, "[HIGH] No HTTPS")
	assert.Contains(t, out, "[MEDIUM] Missing meta description")
	assert.Contains(t, out, "[LOW] Images without alt")
}

func TestRenderAuditNoIssues(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	require.NoError(t, RenderAudit(&buf, prospect.AuditResult{URL: "https://ok.example"}, scoring.AuditScore{}))
	assert.Contains(t, buf.String(), "No issues found")
}

func TestRendererPlain(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	r := NewRenderer(&buf, false)

	r.Emit(progress.Event{Stage: progress.StageStatus, Step: progress.StepGeocode, Message: "Locating Lyon"})
	r.Emit(progress.Event{Stage: progress.StageGeocode, DisplayName: "Lyon, France", Lat: 45.764, Lng: 4.8357})
	r.Emit(progress.Event{Stage: progress.StageOverpass, Count: 12})
	r.Emit(progress.Event{Stage: progress.StageScored, Candidates: sampleCandidates()})
	r.Emit(progress.Event{Stage: progress.StageEnrich, Index: 0, Total: 2, Name: "Salon A"})
	r.Emit(progress.Event{Stage: progress.StageDone, Candidates: sampleCandidates(), Dur: 1500 * time.Millisecond})

	out := buf.String()
	assert.Contains(t, out, "Locating Lyon")
	assert.Contains(t, out, "Lyon, France (45.7640, 4.8357)")
	assert.Contains(t, out, "12 businesses found")
	assert.Contains(t, out, "2 candidates scored")
	assert.Contains(t, out, "[1/2] Salon A")
	assert.Contains(t, out, "Done in 1.5s")
	assert.Contains(t, out, "Dist")
	assert.NoError(t, r.Err())
}

func TestRendererError(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	r := NewRenderer(&buf, false)
	r.Emit(progress.Event{Stage: progress.StageError, Message: "place not found"})

	assert.Contains(t, buf.String(), "place not found")
	require.Error(t, r.Err())
	assert.Contains(t, r.Err().Error(), "place not found")
}

func TestRendererInteractiveBar(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	r := NewRenderer(&buf, true)

	r.Emit(progress.Event{Stage: progress.StageEnrich, Index: 0, Total: 2, Name: "Salon A"})
	require.NotNil(t, r.bar)
	r.Emit(progress.Event{Stage: progress.StageEnrich, Index: 1, Total: 2, Name: "Salon B"})
	r.Emit(progress.Event{Stage: progress.StageDone, Candidates: sampleCandidates()})

	assert.Nil(t, r.bar)
	assert.Contains(t, buf.String(), "Salon A")
}

func TestIsTerminal(t *testing.T) {
	t.Parallel()
	assert.False(t, IsTerminal(&bytes.Buffer{}))

	f, err := os.CreateTemp(t.TempDir(), "out")
	require.NoError(t, err)
	defer f.Close()
	assert.False(t, IsTerminal(f))
}

func TestFormatPriorityUnknown(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "WARM", FormatPriority(prospect.Priority("WARM")))
	assert.Contains(t, FormatPriority(prospect.PriorityCold), "COLD")
}

