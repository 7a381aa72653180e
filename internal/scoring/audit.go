package scoring

import (
	"math/rand/v2"
	"time"

	"github.com/walt0white1/prospectflow-sub000/internal/prospect"
)

// Audit scorer constants.
const (
	auditBase          = 50
	noSiteBandLow      = 85
	noSiteBandWidth    = 10
	placeholderScore   = 50
	criticalIssueValue = 3
	criticalIssueCap   = 12
)

// AuditScore is the outcome of the audit-based scorer.
type AuditScore struct {
	ProspectScore    int                     `json:"prospectScore"`
	SiteQualityScore int                     `json:"siteQualityScore"`
	Priority         prospect.Priority       `json:"priority"`
	Breakdown        prospect.ScoreBreakdown `json:"breakdown"`
}

// ScoreAudit scores a business from its audit. A business without a site
// lands in a randomized high band drawn from rng; a site that has not been
// audited yet gets a neutral placeholder. Design age is measured against
// the audit's scan time.
func ScoreAudit(hasWebsite bool, audit *prospect.AuditResult, rating *float64, rng *rand.Rand) AuditScore {
	if !hasWebsite {
		score := noSiteBandLow + rng.IntN(noSiteBandWidth)
		return AuditScore{
			ProspectScore:    score,
			SiteQualityScore: 0,
			Priority:         prospect.PriorityHot,
			Breakdown:        prospect.ScoreBreakdown{Base: score},
		}
	}
	if audit == nil {
		return AuditScore{
			ProspectScore:    placeholderScore,
			SiteQualityScore: placeholderScore,
			Priority:         prospect.PriorityMedium,
			Breakdown:        prospect.ScoreBreakdown{Base: placeholderScore},
		}
	}

	now := audit.ScannedAt
	if now.IsZero() {
		now = time.Now()
	}
	b := Breakdown(*audit, rating, now)
	score := clamp(b.Total())
	return AuditScore{
		ProspectScore:    score,
		SiteQualityScore: SiteQuality(*audit, now),
		Priority:         prospect.PriorityFor(score),
		Breakdown:        b,
	}
}

// Breakdown computes each contribution to the audit-based score.
func Breakdown(a prospect.AuditResult, rating *float64, now time.Time) prospect.ScoreBreakdown {
	b := prospect.ScoreBreakdown{Base: auditBase}
	b.Performance = PerformanceContribution(a.LoadTimeSec)
	if !a.HasSSL {
		b.Security = 15
	}
	switch {
	case !a.HasViewportMeta:
		b.Mobile = 20
	case !a.IsResponsive:
		b.Mobile = 15
	}
	switch {
	case a.SEOScore < 40:
		b.SEO = 10
	case a.SEOScore < 70:
		b.SEO = 5
	}
	if a.DesignAge != nil {
		switch age := now.Year() - *a.DesignAge; {
		case age >= 10:
			b.DesignAge = 15
		case age >= 6:
			b.DesignAge = 10
		case age >= 4:
			b.DesignAge = 5
		}
	}
	if a.HasFlash {
		b.ObsoleteTech += 10
	}
	if a.HasTableLayout {
		b.ObsoleteTech += 5
	}
	if a.CMS != nil && IsCheapCMS(*a.CMS) {
		b.CheapCMS = 10
	}
	b.CriticalIssues = min(a.HighIssues()*criticalIssueValue, criticalIssueCap)
	if rating != nil {
		switch {
		case *rating < 3.5:
			b.GoogleRating = 5
		case *rating >= 4.5:
			b.GoogleRating = -5
		}
	}
	return b
}

// PerformanceContribution is negative for fast sites: a quick, modern site
// is a weaker lead.
func PerformanceContribution(loadTimeSec float64) int {
	switch {
	case loadTimeSec < 2:
		return -5
	case loadTimeSec < 3:
		return 0
	case loadTimeSec < 5:
		return 5
	case loadTimeSec < 8:
		return 10
	default:
		return 15
	}
}

// SiteQuality rates the site for its visitors, starting from 100. It is
// deliberately not derived from the prospect score.
func SiteQuality(a prospect.AuditResult, now time.Time) int {
	q := 100
	if !a.HasSSL {
		q -= 20
	}
	if !a.IsResponsive {
		q -= 20
	}
	if !a.HasViewportMeta {
		q -= 5
	}
	q -= (100 - a.SEOScore) / 5
	q -= (100 - a.PerformanceScore) / 5
	if a.DesignAge != nil {
		switch age := now.Year() - *a.DesignAge; {
		case age >= 10:
			q -= 10
		case age >= 6:
			q -= 5
		}
	}
	if a.HasFlash {
		q -= 10
	}
	if a.HasTableLayout {
		q -= 5
	}
	q -= min(a.HighIssues()*3, 15)
	return clamp(q)
}

// Rescore builds a new scored candidate from an audit. The input value is
// left untouched.
func Rescore(c prospect.ScoredCandidate, audit *prospect.AuditResult, rng *rand.Rand) prospect.ScoredCandidate {
	s := ScoreAudit(c.HasWebsite(), audit, c.GoogleRating, rng)
	out := c
	out.ProspectScore = s.ProspectScore
	out.Priority = s.Priority
	quality := s.SiteQualityScore
	out.SiteQualityScore = &quality
	breakdown := s.Breakdown
	out.Breakdown = &breakdown
	if audit != nil {
		out.Issues = make([]string, 0, len(audit.Issues))
		for _, issue := range audit.Issues {
			out.Issues = append(out.Issues, issue.Label)
		}
	} else {
		out.Issues = append([]string(nil), c.Issues...)
	}
	return out
}

func clamp(v int) int {
	return max(0, min(maxScore, v))
}
