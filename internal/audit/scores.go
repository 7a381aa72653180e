package audit

import "time"

// SEOScore weighs the on-page SEO checklist.
func SEOScore(r SEOInputs) int {
	score := 0
	if r.HasTitle {
		score += 25
	}
	if r.HasMetaDescription {
		score += 20
	}
	if r.HasH1 {
		score += 15
	}
	if r.HasOpenGraph {
		score += 15
	}
	if r.HasSitemap {
		score += 10
	}
	if r.HasRobotsTxt {
		score += 10
	}
	if r.HasCanonical {
		score += 5
	}
	return score
}

// SEOInputs are the checks that feed SEOScore.
type SEOInputs struct {
	HasTitle           bool
	HasMetaDescription bool
	HasH1              bool
	HasOpenGraph       bool
	HasSitemap         bool
	HasRobotsTxt       bool
	HasCanonical       bool
}

// MobileScore gives half the points for a viewport tag and half for a page
// that fits its viewport.
func MobileScore(hasViewport, responsive bool) int {
	score := 0
	if hasViewport {
		score += 50
	}
	if responsive {
		score += 50
	}
	return score
}

var performanceSteps = []struct {
	below time.Duration
	score int
}{
	{1 * time.Second, 95},
	{2 * time.Second, 85},
	{3 * time.Second, 75},
	{4 * time.Second, 65},
	{5 * time.Second, 55},
	{6 * time.Second, 45},
	{8 * time.Second, 30},
	{10 * time.Second, 20},
	{12 * time.Second, 10},
}

// PerformanceScore maps load time onto a fixed staircase.
func PerformanceScore(load time.Duration) int {
	for _, s := range performanceSteps {
		if load < s.below {
			return s.score
		}
	}
	return 5
}
