package audit

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

type cmsMarker struct {
	name    string
	markers []string
}

// cmsMarkers is checked in order; the first hit wins.
var cmsMarkers = []cmsMarker{
	{"WordPress", []string{"wp-content", "wp-includes", "wordpress"}},
	{"Wix", []string{"wixstatic.com", "wixsite.com", "wix.com", "_wixcss"}},
	{"Squarespace", []string{"squarespace.com", "static1.squarespace"}},
	{"Shopify", []string{"cdn.shopify.com", "myshopify.com", "shopify"}},
	{"Jimdo", []string{"jimdo", "jimcdn.com"}},
	{"Webflow", []string{"webflow"}},
	{"Joomla", []string{"/media/jui/", "joomla"}},
	{"Drupal", []string{"drupal", "/sites/default/files"}},
	{"PrestaShop", []string{"prestashop"}},
	{"Weebly", []string{"weebly"}},
	{"GoDaddy", []string{"godaddysites.com", "img1.wsimg.com", "godaddy"}},
	{"Duda", []string{"multiscreensite", "dudamobile", "duda"}},
	{"Site123", []string{"site123"}},
	{"Strikingly", []string{"strikingly"}},
	{"Blogger", []string{"blogger.com", "blogspot."}},
	{"Google Sites", []string{"sites.google.com"}},
	{"Typo3", []string{"typo3"}},
}

// DetectCMS matches the page markup and URL against known site builders.
func DetectCMS(html, pageURL string) *string {
	haystack := strings.ToLower(html) + "\n" + strings.ToLower(pageURL)
	for _, cms := range cmsMarkers {
		for _, marker := range cms.markers {
			if strings.Contains(haystack, marker) {
				name := cms.name
				return &name
			}
		}
	}
	return nil
}

// DetectTech lists the technologies visible in the page.
func DetectTech(html string, cms *string, s Signals) []string {
	tech := []string{}
	if cms != nil {
		tech = append(tech, *cms)
	}
	if s.HasFlash {
		tech = append(tech, "Flash")
	}
	if s.HasTableLayout {
		tech = append(tech, "Table layout")
	}
	lower := strings.ToLower(html)
	if strings.Contains(lower, "jquery") {
		tech = append(tech, "jQuery")
	}
	if strings.Contains(lower, "bootstrap") {
		tech = append(tech, "Bootstrap")
	}
	return tech
}

var (
	copyrightRe     = regexp.MustCompile(`(?i)(?:©|&copy;|&#169;|\(c\)|copyright)[^<]{0,40}`)
	yearRe          = regexp.MustCompile(`\b(19\d{2}|20\d{2})\b`)
	datePublishedRe = regexp.MustCompile(`"datePublished"\s*:\s*"(\d{4})`)
)

const minDesignYear = 2000

// EstimateDesignAge returns the most recent copyright year, or the JSON-LD
// publication year when no copyright notice is found. The year is clamped
// to [2000, now].
func EstimateDesignAge(html string, now time.Time) *int {
	current := now.Year()
	best := 0
	for _, notice := range copyrightRe.FindAllString(html, -1) {
		for _, m := range yearRe.FindAllStringSubmatch(notice, -1) {
			if year, err := strconv.Atoi(m[1]); err == nil && year > best {
				best = year
			}
		}
	}
	if best == 0 {
		for _, m := range datePublishedRe.FindAllStringSubmatch(html, -1) {
			if year, err := strconv.Atoi(m[1]); err == nil && year > best {
				best = year
			}
		}
	}
	if best == 0 {
		return nil
	}
	best = max(minDesignYear, min(current, best))
	return &best
}
