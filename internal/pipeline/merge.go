package pipeline

import (
	"strings"

	"github.com/walt0white1/prospectflow-sub000/internal/prospect"
)

// Merge returns a new candidate with enrichment applied. Directory fields
// win; enrichment only fills an empty website, phone or address. Rating,
// review count and open state always come from enrichment. Score and
// priority are left as scored.
func Merge(c prospect.ScoredCandidate, r prospect.EnrichmentResult) prospect.ScoredCandidate {
	out := c
	out.Issues = append([]string(nil), c.Issues...)
	if out.Issues == nil {
		out.Issues = []string{}
	}
	if !c.HasWebsite() && r.Website != nil {
		out.Website = copyString(r.Website)
	}
	if isBlank(c.Phone) && r.Phone != nil {
		out.Phone = copyString(r.Phone)
	}
	if strings.TrimSpace(c.Address) == "" && r.Address != nil {
		out.Address = *r.Address
	}
	out.GoogleRating = r.GoogleRating
	out.GoogleReviewCount = r.GoogleReviewCount
	out.IsOpen = r.IsOpen
	if r.SourceURL != nil {
		out.EnrichmentSource = copyString(r.SourceURL)
	}
	return out
}

func isBlank(s *string) bool {
	return s == nil || strings.TrimSpace(*s) == ""
}

func copyString(s *string) *string {
	v := *s
	return &v
}
