package adapters

import (
	"golang.org/x/net/html"
)

// WikipediaAdapter reads the article body of Wikipedia pages
type WikipediaAdapter struct {
	BaseAdapter
	skipClasses []string
}

// NewWikipediaAdapter creates a new Wikipedia adapter
func NewWikipediaAdapter() *WikipediaAdapter {
	return &WikipediaAdapter{
		skipClasses: []string{
			"reference", "mw-editsection", "navbox", "infobox", "reflist",
			"hatnote", "metadata", "sidebar", "thumb", "mw-references-wrap",
		},
	}
}

// Name returns the adapter name
func (a *WikipediaAdapter) Name() string {
	return "wikipedia"
}

// CanHandle checks if this is a Wikipedia URL
func (a *WikipediaAdapter) CanHandle(rawURL string) bool {
	return hostMatches(hostOf(rawURL), "wikipedia.org")
}

// ContentRoot returns the parser output div
func (a *WikipediaAdapter) ContentRoot(doc *html.Node) *html.Node {
	content := a.FindFirst(doc, func(n *html.Node) bool {
		return n.Type == html.ElementNode && n.Data == "div" &&
			(a.HasClass(n, "mw-parser-output") || a.GetAttribute(n, "id") == "mw-content-text")
	})
	if content == nil {
		return doc
	}
	return content
}

// Skip drops citation markers, edit links and navigation boxes
func (a *WikipediaAdapter) Skip(n *html.Node) bool {
	if n.Data == "table" || n.Data == "style" {
		return true
	}
	for _, c := range a.skipClasses {
		if a.HasClass(n, c) {
			return true
		}
	}
	return false
}
