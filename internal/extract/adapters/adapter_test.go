package adapters

import (
	"strings"
	"testing"

	"golang.org/x/net/html"
)

func parse(t *testing.T, s string) *html.Node {
	t.Helper()
	doc, err := html.Parse(strings.NewReader(s))
	if err != nil {
		t.Fatal(err)
	}
	return doc
}

func text(n *html.Node, skip func(*html.Node) bool) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && skip(n) {
			return
		}
		if n.Type == html.TextNode {
			b.WriteString(strings.TrimSpace(n.Data))
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}

func TestRegistry_FindAdapter(t *testing.T) {
	r := NewRegistry()
	tests := map[string]string{
		"https://en.wikipedia.org/wiki/Mars":              "wikipedia",
		"https://www.legislation.gov.uk/ukpga/2018/12":    "legal",
		"https://example.com/statutes/section-1":          "legal",
		"https://nasa.gov/mars":                           "generic",
		"https://notwikipedia.org.evil.example/wiki/Mars": "generic",
	}
	for url, want := range tests {
		if got := r.FindAdapter(url).Name(); got != want {
			t.Errorf("FindAdapter(%q) = %s, want %s", url, got, want)
		}
	}
}

func TestWikipediaAdapter(t *testing.T) {
	doc := parse(t, `<body><div id="nav">Menu</div>
<div class="mw-parser-output"><table class="infobox"><tr><td>Box</td></tr></table>
<p>Mars has two moons.<sup class="reference">[1]</sup></p>
<span class="mw-editsection">edit</span></div></body>`)

	a := NewWikipediaAdapter()
	root := a.ContentRoot(doc)
	if got := text(root, a.Skip); got != "Mars has two moons." {
		t.Errorf("content = %q", got)
	}
}

func TestGenericAdapter(t *testing.T) {
	a := NewGenericAdapter()

	doc := parse(t, `<body><nav>Home</nav><article><p>Body text</p><footer>Copyright</footer></article></body>`)
	if got := text(a.ContentRoot(doc), a.Skip); got != "Body text" {
		t.Errorf("article content = %q", got)
	}

	doc = parse(t, `<body><header>Site</header><p>Only body</p></body>`)
	if got := text(a.ContentRoot(doc), a.Skip); got != "Only body" {
		t.Errorf("body content = %q", got)
	}
}

func TestLegalAdapter(t *testing.T) {
	a := NewLegalAdapter()
	doc := parse(t, `<body><nav>x</nav><div id="viewLegContents"><p>Section 1 applies.</p><div class="LegAnnotations">note</div></div></body>`)
	if got := text(a.ContentRoot(doc), a.Skip); got != "Section 1 applies." {
		t.Errorf("legal content = %q", got)
	}
}
