package prospect

import (
	"errors"
	"strings"
	"time"
)

// GeoPoint is a geocoded search centre.
type GeoPoint struct {
	Lat           float64 `json:"lat"`
	Lng           float64 `json:"lng"`
	CanonicalName string  `json:"canonicalName"`
	DisplayName   string  `json:"displayName"`
}

// Tag is one key/value filter of the open geodata directory.
type Tag struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Sector maps a business category to the directory tags that describe it.
type Sector struct {
	Code       string `json:"code"`
	Label      string `json:"label"`
	Primary    Tag    `json:"primaryTag"`
	Alternates []Tag  `json:"alternateTags,omitempty"`
}

// Tags returns the primary tag followed by the alternates.
func (s Sector) Tags() []Tag {
	out := make([]Tag, 0, 1+len(s.Alternates))
	out = append(out, s.Primary)
	return append(out, s.Alternates...)
}

// CandidateRecord is one normalized directory entry.
type CandidateRecord struct {
	ID           string            `json:"id"`
	Source       string            `json:"source"`
	Name         string            `json:"name"`
	Lat          float64           `json:"lat"`
	Lng          float64           `json:"lng"`
	Address      string            `json:"address,omitempty"`
	Street       string            `json:"street,omitempty"`
	HouseNumber  string            `json:"houseNumber,omitempty"`
	Postcode     string            `json:"postcode,omitempty"`
	City         string            `json:"city,omitempty"`
	Phone        *string           `json:"phone"`
	Email        *string           `json:"email"`
	Website      *string           `json:"website"`
	OpeningHours string            `json:"openingHours,omitempty"`
	Sector       string            `json:"sector"`
	Tags         map[string]string `json:"tags,omitempty"`
}

// HasWebsite reports whether the record carries a non-blank site URL.
func (c CandidateRecord) HasWebsite() bool {
	return c.Website != nil && strings.TrimSpace(*c.Website) != ""
}

// ScoredCandidate is a CandidateRecord with a prospect score attached.
type ScoredCandidate struct {
	CandidateRecord
	ProspectScore     int             `json:"prospectScore"`
	Priority          Priority        `json:"priority"`
	SiteQualityScore  *int            `json:"siteQualityScore"`
	Issues            []string        `json:"issues"`
	Breakdown         *ScoreBreakdown `json:"breakdown,omitempty"`
	GoogleRating      *float64        `json:"googleRating,omitempty"`
	GoogleReviewCount *int            `json:"googleReviewCount,omitempty"`
	IsOpen            *bool           `json:"isOpen,omitempty"`
	EnrichmentSource  *string         `json:"enrichmentSource,omitempty"`
}

// Severity grades an audit issue.
type Severity string

// Issue severities.
const (
	SeverityHigh   Severity = "high"
	SeverityMedium Severity = "medium"
	SeverityLow    Severity = "low"
)

// Category groups audit issues.
type Category string

// Issue categories.
const (
	CategoryPerformance Category = "performance"
	CategorySecurity    Category = "security"
	CategoryMobile      Category = "mobile"
	CategorySEO         Category = "seo"
	CategoryDesign      Category = "design"
	CategoryTechnology  Category = "technology"
	CategoryLegal       Category = "legal"
)

// Issue is one failed audit check.
type Issue struct {
	Label          string   `json:"label"`
	Severity       Severity `json:"severity"`
	Category       Category `json:"category"`
	Description    string   `json:"description,omitempty"`
	Recommendation string   `json:"recommendation,omitempty"`
}

// Screenshot references a stored page capture.
type Screenshot struct {
	Viewport    string `json:"viewport"`
	URI         string `json:"uri"`
	ContentType string `json:"contentType"`
}

// AuditResult is a technical snapshot of one site at one point in time.
type AuditResult struct {
	URL                string       `json:"url"`
	FinalURL           string       `json:"finalUrl,omitempty"`
	ScannedAt          time.Time    `json:"scannedAt"`
	LoadTimeSec        float64      `json:"loadTimeSec"`
	PageSizeKB         int          `json:"pageSizeKb"`
	HasSSL             bool         `json:"hasSSL"`
	IsResponsive       bool         `json:"isResponsive"`
	HasViewportMeta    bool         `json:"hasViewportMeta"`
	HasTitle           bool         `json:"hasTitle"`
	HasMetaDescription bool         `json:"hasMetaDescription"`
	HasH1              bool         `json:"hasH1"`
	HasOpenGraph       bool         `json:"hasOpenGraph"`
	HasSitemap         bool         `json:"hasSitemap"`
	HasRobotsTxt       bool         `json:"hasRobotsTxt"`
	HasCanonical       bool         `json:"hasCanonical"`
	HasLegalNotice     bool         `json:"hasLegalNotice"`
	Title              string       `json:"title,omitempty"`
	MetaDescription    string       `json:"metaDescription,omitempty"`
	H1                 string       `json:"h1,omitempty"`
	CMS                *string      `json:"cms"`
	TechStack          []string     `json:"techStack"`
	DesignAge          *int         `json:"designAge"`
	ImagesWithoutAlt   int          `json:"imagesWithoutAlt"`
	HasFlash           bool         `json:"hasFlash"`
	HasTableLayout     bool         `json:"hasTableLayout"`
	Stylesheets        []string     `json:"stylesheets,omitempty"`
	SEOScore           int          `json:"seoScore"`
	MobileScore        int          `json:"mobileScore"`
	PerformanceScore   int          `json:"performanceScore"`
	Issues             []Issue      `json:"issues"`
	Screenshots        []Screenshot `json:"screenshots,omitempty"`
}

// HighIssues counts issues graded high.
func (a AuditResult) HighIssues() int {
	n := 0
	for _, issue := range a.Issues {
		if issue.Severity == SeverityHigh {
			n++
		}
	}
	return n
}

// ScoreBreakdown explains how an audit-based score was assembled.
type ScoreBreakdown struct {
	Base           int `json:"base"`
	Performance    int `json:"performance"`
	Security       int `json:"security"`
	Mobile         int `json:"mobile"`
	SEO            int `json:"seo"`
	DesignAge      int `json:"designAge"`
	ObsoleteTech   int `json:"obsoleteTech"`
	CheapCMS       int `json:"cheapCMS"`
	CriticalIssues int `json:"criticalIssues"`
	GoogleRating   int `json:"googleRating"`
}

// Total sums the base and every contribution, without clamping.
func (b ScoreBreakdown) Total() int {
	return b.Base + b.Performance + b.Security + b.Mobile + b.SEO +
		b.DesignAge + b.ObsoleteTech + b.CheapCMS + b.CriticalIssues + b.GoogleRating
}

// EnrichmentTarget identifies one business to look up on the mapping service.
type EnrichmentTarget struct {
	Name string `json:"name"`
	City string `json:"city"`
}

// EnrichmentResult holds the optional fields scraped from the mapping service.
type EnrichmentResult struct {
	GoogleRating      *float64 `json:"googleRating"`
	GoogleReviewCount *int     `json:"googleReviewCount"`
	Website           *string  `json:"website"`
	Phone             *string  `json:"phone"`
	Address           *string  `json:"address"`
	IsOpen            *bool    `json:"isOpen"`
	SourceURL         *string  `json:"sourceUrl"`
}

// Empty reports whether no field was found.
func (r EnrichmentResult) Empty() bool {
	return r.GoogleRating == nil && r.GoogleReviewCount == nil && r.Website == nil &&
		r.Phone == nil && r.Address == nil && r.IsOpen == nil && r.SourceURL == nil
}

// Search request defaults.
const (
	DefaultRadiusKm = 5
	DefaultLimit    = 50
)

// SearchRequest asks the pipeline to discover prospects around a city.
type SearchRequest struct {
	Sector   string  `json:"sector"`
	City     string  `json:"city"`
	RadiusKm float64 `json:"radiusKm"`
	Limit    int     `json:"limit"`
	Enrich   bool    `json:"enrich"`
}

// Normalize applies defaults to unset numeric fields.
func (r SearchRequest) Normalize() SearchRequest {
	r.Sector = strings.TrimSpace(r.Sector)
	r.City = strings.TrimSpace(r.City)
	if r.RadiusKm == 0 {
		r.RadiusKm = DefaultRadiusKm
	}
	if r.Limit == 0 {
		r.Limit = DefaultLimit
	}
	return r
}

// RadiusMeters converts the search radius for directory queries.
func (r SearchRequest) RadiusMeters() int {
	return int(r.RadiusKm * 1000)
}

// AuditRequest asks for a single-site audit. ProspectID is carried for
// persistence and never inspected by the audit itself.
type AuditRequest struct {
	URL          string   `json:"url"`
	Screenshots  bool     `json:"screenshots"`
	ProspectID   string   `json:"prospectId,omitempty"`
	GoogleRating *float64 `json:"googleRating,omitempty"`
}

// ErrInvalidInput marks caller input errors rejected before any external call.
var ErrInvalidInput = errors.New("invalid input")
