package audit

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const maxStylesheets = 5

// Signals are the in-page facts read from a rendered document.
type Signals struct {
	Title            string
	MetaDescription  string
	H1               string
	HasViewportMeta  bool
	HasOpenGraph     bool
	HasCanonical     bool
	ImagesWithoutAlt int
	HasLegalNotice   bool
	HasFlash         bool
	HasTableLayout   bool
	Stylesheets      []string
}

// Extract parses html and reads every signal independently. A step that
// fails leaves its zero value in place.
func Extract(html, pageURL string) Signals {
	var s Signals
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return s
	}
	base, _ := url.Parse(pageURL)

	step(func() { s.Title = collapse(doc.Find("head title").First().Text()) })
	step(func() { s.MetaDescription = collapse(attrOf(metaNamed(doc, "description"), "content")) })
	step(func() { s.H1 = collapse(doc.Find("h1").First().Text()) })
	step(func() { s.HasViewportMeta = metaNamed(doc, "viewport").Length() > 0 })
	step(func() { s.HasOpenGraph = doc.Find(`meta[property^="og:"]`).Length() > 0 })
	step(func() { s.HasCanonical = linkRel(doc, "canonical").Length() > 0 })
	step(func() { s.ImagesWithoutAlt = imagesWithoutAlt(doc) })
	step(func() { s.HasLegalNotice = hasLegalLink(doc) })
	step(func() { s.HasFlash = hasFlash(doc) })
	step(func() { s.HasTableLayout = hasTableLayout(doc) })
	step(func() { s.Stylesheets = stylesheets(doc, base) })
	return s
}

func step(fn func()) {
	defer func() { _ = recover() }()
	fn()
}

func collapse(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

// metaNamed matches <meta name> case-insensitively.
func metaNamed(doc *goquery.Document, name string) *goquery.Selection {
	return doc.Find("meta[name]").FilterFunction(func(_ int, m *goquery.Selection) bool {
		return strings.EqualFold(strings.TrimSpace(attrOf(m, "name")), name)
	}).First()
}

func linkRel(doc *goquery.Document, rel string) *goquery.Selection {
	return doc.Find("link[rel][href]").FilterFunction(func(_ int, l *goquery.Selection) bool {
		for _, token := range strings.Fields(attrOf(l, "rel")) {
			if strings.EqualFold(token, rel) {
				return true
			}
		}
		return false
	})
}

func attrOf(sel *goquery.Selection, name string) string {
	v, _ := sel.Attr(name)
	return v
}

func imagesWithoutAlt(doc *goquery.Document) int {
	count := 0
	doc.Find("img").Each(func(_ int, img *goquery.Selection) {
		alt, ok := img.Attr("alt")
		if !ok || strings.TrimSpace(alt) == "" {
			count++
		}
	})
	return count
}

func hasLegalLink(doc *goquery.Document) bool {
	found := false
	doc.Find("a").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		href, _ := a.Attr("href")
		haystack := strings.ToLower(a.Text() + " " + href)
		if strings.Contains(haystack, "mentions") || strings.Contains(haystack, "legal") {
			found = true
			return false
		}
		return true
	})
	return found
}

func hasFlash(doc *goquery.Document) bool {
	return doc.Find(`object[type*="flash"], embed[type*="flash"], embed[src$=".swf"], ` +
		`object[data$=".swf"], param[value$=".swf"], object[classid*="D27CDB6E"]`).Length() > 0
}

// hasTableLayout looks for a table used for page structure rather than data.
func hasTableLayout(doc *goquery.Document) bool {
	found := false
	doc.Find("table").EachWithBreak(func(_ int, table *goquery.Selection) bool {
		if _, ok := table.Attr("role"); ok {
			return true
		}
		if table.Find("td").Length() <= 6 {
			return true
		}
		if table.Closest("article, form, .card").Length() > 0 {
			return true
		}
		found = true
		return false
	})
	return found
}

func stylesheets(doc *goquery.Document, base *url.URL) []string {
	var out []string
	linkRel(doc, "stylesheet").EachWithBreak(func(_ int, link *goquery.Selection) bool {
		href := strings.TrimSpace(attrOf(link, "href"))
		if href == "" {
			return true
		}
		if base != nil {
			if ref, err := url.Parse(href); err == nil {
				href = base.ResolveReference(ref).String()
			}
		}
		out = append(out, href)
		return len(out) < maxStylesheets
	})
	return out
}
