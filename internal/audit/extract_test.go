package audit

import (
	"testing"

	"github.com/stretchr/testify/require"
)

const richPage = `<!doctype html>
<html><head>
<title>  Boulangerie   Martin | Lyon </title>
<META NAME="Description" content="Pains et viennoiseries depuis 1987.">
<meta name="viewport" content="width=device-width">
<meta property="og:title" content="Boulangerie Martin">
<link rel="canonical" href="https://boulangerie-martin.fr/">
<link rel="stylesheet" href="/css/main.css">
<link rel="preload stylesheet" href="https://cdn.example.net/a.css">
<link rel="stylesheet" href="b.css">
<link rel="stylesheet" href="c.css">
<link rel="stylesheet" href="d.css">
<link rel="stylesheet" href="e.css">
</head><body>
<h1>Nos <em>pains</em></h1><h1>Second</h1>
<img src="a.jpg" alt="Baguette"><img src="b.jpg" alt="  "><img src="c.jpg">
<footer><a href="/mentions-legales">Mentions</a></footer>
</body></html>`

func TestExtractReadsSignals(t *testing.T) {
	t.Parallel()

	s := Extract(richPage, "https://boulangerie-martin.fr/accueil")
	require.Equal(t, "Boulangerie Martin | Lyon", s.Title)
	require.Equal(t, "Pains et viennoiseries depuis 1987.", s.MetaDescription)
	require.Equal(t, "Nos pains", s.H1)
	require.True(t, s.HasViewportMeta)
	require.True(t, s.HasOpenGraph)
	require.True(t, s.HasCanonical)
	require.Equal(t, 2, s.ImagesWithoutAlt)
	require.True(t, s.HasLegalNotice)
	require.False(t, s.HasFlash)
	require.False(t, s.HasTableLayout)
	require.Equal(t, []string{
		"https://boulangerie-martin.fr/css/main.css",
		"https://cdn.example.net/a.css",
		"https://boulangerie-martin.fr/b.css",
		"https://boulangerie-martin.fr/c.css",
		"https://boulangerie-martin.fr/d.css",
	}, s.Stylesheets)
}

func TestExtractEmptyDocument(t *testing.T) {
	t.Parallel()

	s := Extract("", "")
	require.Equal(t, Signals{}, s)
}

func TestExtractTableLayout(t *testing.T) {
	t.Parallel()

	cells := "<tr><td>1</td><td>2</td><td>3</td><td>4</td></tr><tr><td>5</td><td>6</td><td>7</td></tr>"
	tests := []struct {
		name string
		html string
		want bool
	}{
		{name: "layout table", html: "<table>" + cells + "</table>", want: true},
		{name: "few cells", html: "<table><tr><td>1</td><td>2</td></tr></table>", want: false},
		{name: "presentation role", html: `<table role="presentation">` + cells + "</table>", want: false},
		{name: "inside article", html: "<article><table>" + cells + "</table></article>", want: false},
		{name: "inside card", html: `<div class="card"><table>` + cells + "</table></div>", want: false},
		{name: "inside form", html: "<form><table>" + cells + "</table></form>", want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tt.want, Extract("<html><body>"+tt.html+"</body></html>", "").HasTableLayout)
		})
	}
}

func TestExtractFlash(t *testing.T) {
	t.Parallel()

	html := `<body><object data="intro.swf"></object></body>`
	require.True(t, Extract(html, "").HasFlash)
	require.False(t, Extract(`<body><object data="map.svg"></object></body>`, "").HasFlash)
}

func TestExtractLegalLinkByHref(t *testing.T) {
	t.Parallel()

	require.True(t, Extract(`<a href="/legal-notice">Info</a>`, "").HasLegalNotice)
	require.False(t, Extract(`<a href="/contact">Contact</a>`, "").HasLegalNotice)
}
