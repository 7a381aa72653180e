package cli

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
	"unicode/utf8"

	"github.com/walt0white1/prospectflow-sub000/internal/geo/overpass"
	"github.com/walt0white1/prospectflow-sub000/internal/prospect"
	"github.com/walt0white1/prospectflow-sub000/internal/scoring"
)

const maxCell = 36

// RenderCandidates writes a ranked table of scored candidates. When center is
// set, each row carries its distance from the search centre.
func RenderCandidates(w io.Writer, candidates []prospect.ScoredCandidate, center *prospect.GeoPoint) error {
	if len(candidates) == 0 {
		_, err := fmt.Fprintln(w, SubtleStyle.Render("No businesses found."))
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
		HeaderStyle.Render("#"),
		HeaderStyle.Render("Score"),
		HeaderStyle.Render("Priority"),
		HeaderStyle.Render("Name"),
		HeaderStyle.Render("Website"),
		HeaderStyle.Render("Phone"),
		HeaderStyle.Render("Rating"),
		HeaderStyle.Render("Dist"),
	)
	for i, c := range candidates {
		fmt.Fprintf(tw, "%d\t%d\t%s\t%s\t%s\t%s\t%s\t%s\n",
			i+1,
			c.ProspectScore,
			FormatPriority(c.Priority),
			truncate(c.Name),
			truncate(orDash(c.Website)),
			orDash(c.Phone),
			rating(c),
			distance(center, c),
		)
	}
	if err := tw.Flush(); err != nil {
		return fmt.Errorf("flush table: %w", err)
	}
	return nil
}

// RenderSectors lists the supported sectors.
func RenderSectors(w io.Writer, sectors []prospect.Sector) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "%s\t%s\t%s\n", HeaderStyle.Render("Code"), HeaderStyle.Render("Label"), HeaderStyle.Render("Tags"))
	for _, s := range sectors {
		tags := make([]string, 0, len(s.Alternates)+1)
		for _, t := range s.Tags() {
			tags = append(tags, t.Key+"="+t.Value)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", s.Code, s.Label, SubtleStyle.Render(strings.Join(tags, ", ")))
	}
	if err := tw.Flush(); err != nil {
		return fmt.Errorf("flush table: %w", err)
	}
	return nil
}

// RenderAudit writes an audit summary followed by its issues.
func RenderAudit(w io.Writer, a prospect.AuditResult, score scoring.AuditScore) error {
	var b strings.Builder
	fmt.Fprintf(&b, "Prospect score: %d (%s)\n", score.ProspectScore, FormatPriority(score.Priority))
	fmt.Fprintf(&b, "Site quality:   %d/100\n", score.SiteQualityScore)
	fmt.Fprintf(&b, "Load time:      %.1fs, %d KB\n", a.LoadTimeSec, a.PageSizeKB)
	fmt.Fprintf(&b, "SEO %d · Mobile %d · Performance %d\n", a.SEOScore, a.MobileScore, a.PerformanceScore)
	if a.CMS != nil {
		fmt.Fprintf(&b, "CMS:            %s\n", *a.CMS)
	}
	if a.DesignAge != nil {
		fmt.Fprintf(&b, "Design age:     ~%d years\n", *a.DesignAge)
	}
	if len(a.TechStack) > 0 {
		fmt.Fprintf(&b, "Stack:          %s\n", strings.Join(a.TechStack, ", "))
	}
	for _, s := range a.Screenshots {
		fmt.Fprintf(&b, "Screenshot %s: %s\n", s.Viewport, s.URI)
	}
	if _, err := fmt.Fprintln(w, RenderBox(a.URL, strings.TrimRight(b.String(), "\n"))); err != nil {
		return fmt.Errorf("write audit summary: %w", err)
	}

	if len(a.Issues) == 0 {
		_, err := fmt.Fprintln(w, FormatSuccess("No issues found"))
		return err
	}
	for _, issue := range a.Issues {
		line := fmt.Sprintf("[%s] %s", strings.ToUpper(string(issue.Severity)), issue.Label)
		var err error
		switch issue.Severity {
		case prospect.SeverityHigh:
			_, err = fmt.Fprintln(w, FormatError(line))
		case prospect.SeverityMedium:
			_, err = fmt.Fprintln(w, FormatWarning(line))
		default:
			_, err = fmt.Fprintln(w, SubtleStyle.Render("- "+line))
		}
		if err != nil {
			return fmt.Errorf("write issue: %w", err)
		}
	}
	return nil
}

func distance(center *prospect.GeoPoint, c prospect.ScoredCandidate) string {
	if center == nil {
		return "-"
	}
	m := overpass.DistanceM(*center, c.CandidateRecord)
	if m < 1000 {
		return fmt.Sprintf("%.0f m", m)
	}
	return fmt.Sprintf("%.1f km", m/1000)
}

func rating(c prospect.ScoredCandidate) string {
	if c.GoogleRating == nil {
		return "-"
	}
	out := strconv.FormatFloat(*c.GoogleRating, 'f', 1, 64)
	if c.GoogleReviewCount != nil {
		out += fmt.Sprintf(" (%d)", *c.GoogleReviewCount)
	}
	return out
}

func orDash(s *string) string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return "-"
	}
	return *s
}

func truncate(s string) string {
	if utf8.RuneCountInString(s) <= maxCell {
		return s
	}
	r := []rune(s)
	return string(r[:maxCell-1]) + "…"
}
