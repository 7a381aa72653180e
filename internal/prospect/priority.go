package prospect

// Priority is a coarse bucket derived from a prospect score.
type Priority string

// Priority buckets, hottest first.
const (
	PriorityHot    Priority = "HOT"
	PriorityHigh   Priority = "HIGH"
	PriorityMedium Priority = "MEDIUM"
	PriorityLow    Priority = "LOW"
	PriorityCold   Priority = "COLD"
)

// Bucket thresholds shared by both scorers.
const (
	HotThreshold    = 80
	HighThreshold   = 60
	MediumThreshold = 40
	LowThreshold    = 20
)

// PriorityFor maps a 0-100 score to its bucket.
func PriorityFor(score int) Priority {
	switch {
	case score >= HotThreshold:
		return PriorityHot
	case score >= HighThreshold:
		return PriorityHigh
	case score >= MediumThreshold:
		return PriorityMedium
	case score >= LowThreshold:
		return PriorityLow
	default:
		return PriorityCold
	}
}
