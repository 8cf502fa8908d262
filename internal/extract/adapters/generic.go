package adapters

import "golang.org/x/net/html"

// GenericAdapter is the fallback adapter for unknown sites
type GenericAdapter struct {
	BaseAdapter
}

// NewGenericAdapter creates a new generic adapter
func NewGenericAdapter() *GenericAdapter {
	return &GenericAdapter{}
}

// Name returns the adapter name
func (a *GenericAdapter) Name() string {
	return "generic"
}

// CanHandle always returns true
func (a *GenericAdapter) CanHandle(string) bool {
	return true
}

// ContentRoot prefers <article>, then <main>, then <body>
func (a *GenericAdapter) ContentRoot(doc *html.Node) *html.Node {
	for _, tag := range []string{"article", "main", "body"} {
		if n := a.FirstElement(doc, tag); n != nil {
			return n
		}
	}
	return doc
}

// Skip drops page chrome
func (a *GenericAdapter) Skip(n *html.Node) bool {
	switch n.Data {
	case "nav", "header", "footer", "aside", "form":
		return true
	}
	return a.GetAttribute(n, "role") == "navigation" || a.HasClass(n, "cookie-banner")
}
