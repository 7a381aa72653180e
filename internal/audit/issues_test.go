package audit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/walt0white1/prospectflow-sub000/internal/prospect"
)

func cleanAudit() prospect.AuditResult {
	return prospect.AuditResult{
		LoadTimeSec:        1.2,
		HasSSL:             true,
		IsResponsive:       true,
		HasViewportMeta:    true,
		HasTitle:           true,
		HasMetaDescription: true,
		HasH1:              true,
		HasOpenGraph:       true,
		HasSitemap:         true,
		HasRobotsTxt:       true,
		HasCanonical:       true,
		HasLegalNotice:     true,
	}
}

func TestBuildIssuesCleanSite(t *testing.T) {
	t.Parallel()

	require.Empty(t, BuildIssues(cleanAudit(), false, time.Now()))
}

func TestBuildIssuesLoadThresholds(t *testing.T) {
	t.Parallel()

	tests := []struct {
		load float64
		sev  prospect.Severity
	}{
		{3.5, prospect.SeverityLow},
		{5.5, prospect.SeverityMedium},
		{8.5, prospect.SeverityHigh},
	}
	for _, tt := range tests {
		r := cleanAudit()
		r.LoadTimeSec = tt.load
		issues := BuildIssues(r, false, time.Now())
		require.Len(t, issues, 1)
		require.Equal(t, prospect.CategoryPerformance, issues[0].Category)
		require.Equal(t, tt.sev, issues[0].Severity)
	}
	require.Empty(t, BuildIssues(cleanAudit(), false, time.Now()))
}

func TestBuildIssuesMobileAndDesign(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	year := 2012
	r := cleanAudit()
	r.HasViewportMeta = false
	r.IsResponsive = false
	r.HasFlash = true
	r.HasTableLayout = true
	r.ImagesWithoutAlt = 9
	r.DesignAge = &year

	issues := BuildIssues(r, true, now)
	labels := make([]string, 0, len(issues))
	for _, issue := range issues {
		labels = append(labels, issue.Label)
	}
	require.Equal(t, []string{
		"No viewport meta tag",
		"Images without alt text",
		"Uses Flash",
		"Table-based layout",
		"Outdated design",
	}, labels)
	require.Equal(t, prospect.SeverityMedium, issues[1].Severity)
}
