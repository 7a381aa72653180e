package scoring

import (
	"cmp"
	"slices"
	"strings"

	"github.com/walt0white1/prospectflow-sub000/internal/prospect"
)

// Lightweight scorer point values.
const (
	pointsNoWebsite    = 60
	pointsPlainHTTP    = 25
	pointsCheapBuilder = 15
	pointsMissingField = 5
	maxScore           = 100
)

// ScoreCandidate scores a directory record without visiting any page.
func ScoreCandidate(c prospect.CandidateRecord) prospect.ScoredCandidate {
	score := 0
	var issues []string

	if !c.HasWebsite() {
		score += pointsNoWebsite
		issues = append(issues, "No website")
	} else {
		site := strings.TrimSpace(*c.Website)
		if isPlainHTTP(site) {
			score += pointsPlainHTTP
			issues = append(issues, "Website not secured (HTTP only)")
		}
		if builder := CheapBuilder(site); builder != "" {
			score += pointsCheapBuilder
			issues = append(issues, "Website hosted on a low-end builder ("+builder+")")
		}
	}
	if blank(c.Phone) {
		score += pointsMissingField
		issues = append(issues, "No phone number listed")
	}
	if blank(c.Email) {
		score += pointsMissingField
	}
	if strings.TrimSpace(c.Address) == "" {
		score += pointsMissingField
		issues = append(issues, "No address listed")
	}

	score = min(score, maxScore)
	if issues == nil {
		issues = []string{}
	}
	return prospect.ScoredCandidate{
		CandidateRecord: c,
		ProspectScore:   score,
		Priority:        prospect.PriorityFor(score),
		Issues:          issues,
	}
}

// ScoreAll scores every record, preserving input order.
func ScoreAll(records []prospect.CandidateRecord) []prospect.ScoredCandidate {
	out := make([]prospect.ScoredCandidate, len(records))
	for i, r := range records {
		out[i] = ScoreCandidate(r)
	}
	return out
}

// SortByScore returns a copy sorted by descending score. Ties keep their
// input order.
func SortByScore(in []prospect.ScoredCandidate) []prospect.ScoredCandidate {
	out := slices.Clone(in)
	slices.SortStableFunc(out, func(a, b prospect.ScoredCandidate) int {
		return cmp.Compare(b.ProspectScore, a.ProspectScore)
	})
	return out
}

func blank(s *string) bool {
	return s == nil || strings.TrimSpace(*s) == ""
}
