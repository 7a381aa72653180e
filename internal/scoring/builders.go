package scoring

import (
	"net/url"
	"strings"
)

// cheapBuilderDomains are free-hosting and entry-level site builder domains.
var cheapBuilderDomains = []string{
	"wixsite.com",
	"wix.com",
	"jimdo",
	"webnode",
	"e-monsite.com",
	"site123",
	"weebly.com",
	"wordpress.com",
	"blogspot.",
	"over-blog",
	"godaddysites.com",
	"business.site",
	"sites.google.com",
	"strikingly.com",
	"simplesite.com",
	"hubside",
	"pagesperso-orange.fr",
	"free.fr",
}

// cheapCMSNames are CMS fingerprints that imply a builder-made site.
var cheapCMSNames = []string{"Wix", "Jimdo", "Weebly", "Site123", "GoDaddy", "Strikingly", "Webnode", "Google Sites", "Blogger"}

// CheapBuilder returns the matching builder domain, or "" when the site is
// not hosted on one.
func CheapBuilder(site string) string {
	lower := strings.ToLower(site)
	for _, d := range cheapBuilderDomains {
		if strings.Contains(lower, d) {
			return d
		}
	}
	return ""
}

// IsCheapCMS reports whether a CMS fingerprint names a site builder.
func IsCheapCMS(cms string) bool {
	for _, name := range cheapCMSNames {
		if strings.EqualFold(cms, name) {
			return true
		}
	}
	return false
}

func isPlainHTTP(site string) bool {
	u, err := url.Parse(strings.TrimSpace(site))
	if err != nil {
		return strings.HasPrefix(strings.ToLower(site), "http://")
	}
	return strings.EqualFold(u.Scheme, "http")
}
