package audit

import (
	"fmt"
	"time"

	"github.com/walt0white1/prospectflow-sub000/internal/prospect"
)

// Load time thresholds for performance issues.
const (
	slowLoadHigh   = 8 * time.Second
	slowLoadMedium = 5 * time.Second
	slowLoadLow    = 3 * time.Second

	manyImagesWithoutAlt = 5
	outdatedDesignYears  = 8
)

// BuildIssues lists one issue per failed check, in a fixed order.
func BuildIssues(r prospect.AuditResult, overflows bool, now time.Time) []prospect.Issue {
	issues := []prospect.Issue{}
	add := func(label string, sev prospect.Severity, cat prospect.Category, desc, rec string) {
		issues = append(issues, prospect.Issue{
			Label:          label,
			Severity:       sev,
			Category:       cat,
			Description:    desc,
			Recommendation: rec,
		})
	}

	load := time.Duration(r.LoadTimeSec * float64(time.Second))
	loadDesc := fmt.Sprintf("The page took %.1fs to load.", r.LoadTimeSec)
	switch {
	case load > slowLoadHigh:
		add("Very slow page load", prospect.SeverityHigh, prospect.CategoryPerformance, loadDesc,
			"Compress images, trim scripts and enable caching.")
	case load > slowLoadMedium:
		add("Slow page load", prospect.SeverityMedium, prospect.CategoryPerformance, loadDesc,
			"Compress images and defer non-critical scripts.")
	case load > slowLoadLow:
		add("Page load could be faster", prospect.SeverityLow, prospect.CategoryPerformance, loadDesc,
			"Review image sizes and third-party scripts.")
	}

	if !r.HasSSL {
		add("No HTTPS", prospect.SeverityHigh, prospect.CategorySecurity,
			"The site is served over plain HTTP and browsers flag it as not secure.",
			"Install a TLS certificate and redirect HTTP to HTTPS.")
	}

	switch {
	case !r.HasViewportMeta:
		add("No viewport meta tag", prospect.SeverityHigh, prospect.CategoryMobile,
			"Mobile browsers render the desktop layout zoomed out.",
			"Add <meta name=\"viewport\" content=\"width=device-width, initial-scale=1\">.")
	case overflows:
		add("Page overflows on mobile", prospect.SeverityHigh, prospect.CategoryMobile,
			"Content is wider than a phone screen and scrolls sideways.",
			"Use fluid widths and responsive breakpoints.")
	}

	if !r.HasTitle {
		add("Missing page title", prospect.SeverityHigh, prospect.CategorySEO,
			"Search engines have no title to show for this page.",
			"Add a descriptive <title> with the business name and city.")
	}
	if !r.HasMetaDescription {
		add("Missing meta description", prospect.SeverityMedium, prospect.CategorySEO,
			"Search results show an arbitrary snippet instead of a summary.",
			"Write a 150 character description of the business.")
	}
	if !r.HasH1 {
		add("Missing H1 heading", prospect.SeverityMedium, prospect.CategorySEO, "",
			"Add one H1 that states what the business does.")
	}
	if !r.HasOpenGraph {
		add("No Open Graph tags", prospect.SeverityLow, prospect.CategorySEO,
			"Shared links render without image or summary.",
			"Add og:title, og:description and og:image.")
	}
	if !r.HasSitemap {
		add("No sitemap.xml", prospect.SeverityLow, prospect.CategorySEO, "",
			"Publish a sitemap.xml and submit it to search engines.")
	}
	if !r.HasRobotsTxt {
		add("No robots.txt", prospect.SeverityLow, prospect.CategorySEO, "",
			"Publish a robots.txt that references the sitemap.")
	}
	if !r.HasCanonical {
		add("No canonical link", prospect.SeverityLow, prospect.CategorySEO, "",
			"Declare a canonical URL to avoid duplicate content.")
	}
	if r.ImagesWithoutAlt > 0 {
		sev := prospect.SeverityLow
		if r.ImagesWithoutAlt > manyImagesWithoutAlt {
			sev = prospect.SeverityMedium
		}
		add("Images without alt text", sev, prospect.CategorySEO,
			fmt.Sprintf("%d images have no alternative text.", r.ImagesWithoutAlt),
			"Describe every meaningful image with an alt attribute.")
	}
	if !r.HasLegalNotice {
		add("No legal notice", prospect.SeverityMedium, prospect.CategoryLegal,
			"No link to a legal notice page was found.",
			"Add a legal notice page linked from the footer.")
	}
	if r.HasFlash {
		add("Uses Flash", prospect.SeverityHigh, prospect.CategoryTechnology,
			"Flash content no longer plays in any current browser.",
			"Replace Flash content with HTML5.")
	}
	if r.HasTableLayout {
		add("Table-based layout", prospect.SeverityMedium, prospect.CategoryDesign,
			"The page is laid out with tables.",
			"Rebuild the layout with CSS grid or flexbox.")
	}
	if r.DesignAge != nil && now.Year()-*r.DesignAge > outdatedDesignYears {
		add("Outdated design", prospect.SeverityMedium, prospect.CategoryDesign,
			fmt.Sprintf("The design appears to date from %d.", *r.DesignAge),
			"Plan a redesign with a current visual identity.")
	}
	return issues
}
