package audit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDetectCMS(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		html string
		url  string
		want string
	}{
		{name: "wordpress assets", html: `<link href="/wp-content/themes/x/style.css">`, want: "WordPress"},
		{name: "wix from url", url: "https://salon.wixsite.com/home", want: "Wix"},
		{name: "first match wins", html: `wp-includes static1.squarespace`, want: "WordPress"},
		{name: "shopify cdn", html: `<script src="https://cdn.shopify.com/s.js">`, want: "Shopify"},
		{name: "google sites", url: "https://sites.google.com/view/plombier", want: "Google Sites"},
		{name: "typo3", html: `<meta name="generator" content="TYPO3 CMS">`, want: "Typo3"},
		{name: "unknown", html: `<html><body>Bonjour</body></html>`, url: "https://plombier.fr"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := DetectCMS(tt.html, tt.url)
			if tt.want == "" {
				require.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			require.Equal(t, tt.want, *got)
		})
	}
}

func TestDetectTech(t *testing.T) {
	t.Parallel()

	cms := "Joomla"
	html := `<script src="/js/jquery.min.js"></script><link href="bootstrap.css">`
	got := DetectTech(html, &cms, Signals{HasFlash: true, HasTableLayout: true})
	require.Equal(t, []string{"Joomla", "Flash", "Table layout", "jQuery", "Bootstrap"}, got)
	require.Equal(t, []string{}, DetectTech("", nil, Signals{}))
}

func TestEstimateDesignAge(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		name string
		html string
		want int
	}{
		{name: "copyright symbol", html: `<footer>© 2014 Garage Dupont</footer>`, want: 2014},
		{name: "range keeps latest", html: `<p>Copyright 2009-2016 Dupont</p>`, want: 2016},
		{name: "html entity", html: `<p>&copy; 2019</p>`, want: 2019},
		{name: "clamped to 2000", html: `<p>(c) 1998 Dupont</p>`, want: 2000},
		{name: "future year clamped to now", html: `<p>© 2031</p><p>© 2021</p>`, want: 2025},
		{name: "only a future year", html: `<footer>© 2030 Garage Dupont</footer>`, want: 2025},
		{name: "json-ld fallback", html: `<script type="application/ld+json">{"datePublished": "2012-04-01"}</script>`, want: 2012},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := EstimateDesignAge(tt.html, now)
			require.NotNil(t, got)
			require.Equal(t, tt.want, *got)
		})
	}

	require.Nil(t, EstimateDesignAge(`<footer>Garage Dupont, 12 rue Victor Hugo</footer>`, now))
}
