package adapters

import (
	"strings"

	"golang.org/x/net/html"
)

// LegalAdapter reads statutes and regulations from legislation sites
type LegalAdapter struct {
	BaseAdapter
	legalDomains []string
	contentIDs   []string
}

// NewLegalAdapter creates a new legal document adapter
func NewLegalAdapter() *LegalAdapter {
	return &LegalAdapter{
		legalDomains: []string{
			"legislation.gov.uk",
			"law.cornell.edu",
			"justice.gov",
			"eur-lex.europa.eu",
			"congress.gov",
		},
		contentIDs: []string{"viewLegContents", "main-content", "content", "document"},
	}
}

// Name returns the adapter name
func (a *LegalAdapter) Name() string {
	return "legal"
}

// CanHandle checks for legislation hosts or statute-like paths
func (a *LegalAdapter) CanHandle(rawURL string) bool {
	host := hostOf(rawURL)
	for _, domain := range a.legalDomains {
		if hostMatches(host, domain) {
			return true
		}
	}

	lowerURL := strings.ToLower(rawURL)
	return strings.Contains(lowerURL, "/statute") ||
		strings.Contains(lowerURL, "/regulation")
}

// ContentRoot returns the first known content container
func (a *LegalAdapter) ContentRoot(doc *html.Node) *html.Node {
	for _, id := range a.contentIDs {
		n := a.FindFirst(doc, func(n *html.Node) bool {
			return n.Type == html.ElementNode && a.GetAttribute(n, "id") == id
		})
		if n != nil {
			return n
		}
	}
	if n := a.FirstElement(doc, "main", "article", "body"); n != nil {
		return n
	}
	return doc
}

// Skip drops navigation and annotation blocks
func (a *LegalAdapter) Skip(n *html.Node) bool {
	switch n.Data {
	case "nav", "header", "footer", "aside":
		return true
	}
	return a.HasClass(n, "LegAnnotations") || a.HasClass(n, "breadcrumb")
}
