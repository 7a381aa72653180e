package enrich

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/walt0white1/prospectflow-sub000/internal/prospect"
)

var (
	ratingRe = regexp.MustCompile(`(\d(?:[.,]\d)?)`)
	digitsRe = regexp.MustCompile(`\d[\d\s\x{00a0}\x{202f}.,]*`)
)

// ParsePlace reads a place panel. Every field is optional and parsed on
// its own.
func ParsePlace(html, finalURL string) prospect.EnrichmentResult {
	var r prospect.EnrichmentResult
	if strings.TrimSpace(html) == "" {
		return r
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return r
	}
	r.GoogleRating = parseRating(doc)
	r.GoogleReviewCount = parseReviewCount(doc)
	r.Phone = parsePhone(doc)
	r.Website = parseWebsite(doc)
	r.Address = parseAddress(doc)
	r.IsOpen = parseOpenState(doc)
	if !r.Empty() && finalURL != "" {
		r.SourceURL = &finalURL
	}
	return r
}

func parseRating(doc *goquery.Document) *float64 {
	text := strings.TrimSpace(doc.Find(`div.F7nice span[aria-hidden="true"]`).First().Text())
	if text == "" {
		doc.Find("[aria-label]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
			label := strings.ToLower(s.AttrOr("aria-label", ""))
			if strings.Contains(label, "stars") || strings.Contains(label, "étoiles") {
				text = label
				return false
			}
			return true
		})
	}
	m := ratingRe.FindString(text)
	if m == "" {
		return nil
	}
	v, err := strconv.ParseFloat(strings.Replace(m, ",", ".", 1), 64)
	if err != nil || v < 0 || v > 5 {
		return nil
	}
	return &v
}

func parseReviewCount(doc *goquery.Document) *int {
	var text string
	doc.Find("div.F7nice span[aria-label], button[aria-label]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		label := strings.ToLower(s.AttrOr("aria-label", ""))
		if strings.Contains(label, "avis") || strings.Contains(label, "review") {
			text = label
			return false
		}
		return true
	})
	if text == "" {
		doc.Find("div.F7nice span").EachWithBreak(func(_ int, s *goquery.Selection) bool {
			t := strings.TrimSpace(s.Text())
			if strings.HasPrefix(t, "(") && strings.HasSuffix(t, ")") {
				text = t
				return false
			}
			return true
		})
	}
	return parseCount(text)
}

func parseCount(text string) *int {
	m := digitsRe.FindString(text)
	if m == "" {
		return nil
	}
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, m)
	n, err := strconv.Atoi(digits)
	if err != nil {
		return nil
	}
	return &n
}

func parsePhone(doc *goquery.Document) *string {
	if href, ok := doc.Find(`a[href^="tel:"]`).First().Attr("href"); ok {
		return nonEmpty(strings.TrimPrefix(href, "tel:"))
	}
	if id, ok := doc.Find(`button[data-item-id^="phone:tel:"]`).First().Attr("data-item-id"); ok {
		return nonEmpty(strings.TrimPrefix(id, "phone:tel:"))
	}
	return nil
}

func parseWebsite(doc *goquery.Document) *string {
	href, ok := doc.Find(`a[data-item-id="authority"]`).First().Attr("href")
	if !ok {
		return nil
	}
	return nonEmpty(UnwrapRedirect(href))
}

// UnwrapRedirect returns the target of a "/url?q=" redirect wrapper, or
// href unchanged.
func UnwrapRedirect(href string) string {
	u, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return href
	}
	if u.Path == "/url" {
		if q := u.Query().Get("q"); q != "" {
			return q
		}
		if q := u.Query().Get("url"); q != "" {
			return q
		}
	}
	return u.String()
}

var addressPrefixes = []string{"adresse:", "adresse :", "address:"}

func parseAddress(doc *goquery.Document) *string {
	btn := doc.Find(`button[data-item-id="address"]`).First()
	if btn.Length() == 0 {
		return nil
	}
	text := strings.TrimSpace(btn.AttrOr("aria-label", ""))
	lower := strings.ToLower(text)
	for _, prefix := range addressPrefixes {
		if strings.HasPrefix(lower, prefix) {
			text = strings.TrimSpace(text[len(prefix):])
			break
		}
	}
	if text == "" {
		text = strings.Join(strings.Fields(btn.Text()), " ")
	}
	return nonEmpty(text)
}

func parseOpenState(doc *goquery.Document) *bool {
	var text string
	doc.Find(`[data-hide-tooltip-on-mouse-move] span, div.OqCZI, span.ZDu9vd, [aria-label*="oraires"], [aria-label*="hours"]`).
		EachWithBreak(func(_ int, s *goquery.Selection) bool {
			t := strings.ToLower(strings.TrimSpace(s.Text() + " " + s.AttrOr("aria-label", "")))
			if t != "" {
				text = t
				return false
			}
			return true
		})
	switch {
	case text == "":
		return nil
	case strings.Contains(text, "fermé"), strings.Contains(text, "closed"):
		v := false
		return &v
	case strings.Contains(text, "ouvert"), strings.Contains(text, "open"):
		v := true
		return &v
	}
	return nil
}

func nonEmpty(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
