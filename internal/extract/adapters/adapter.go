// Package adapters locates the main content of pages from sites with a known layout.
package adapters

import (
	"net/url"
	"strings"

	"golang.org/x/net/html"
)

// Adapter finds the part of a page worth reading
type Adapter interface {
	// Name returns the adapter name
	Name() string

	// CanHandle checks if this adapter understands pages at rawURL
	CanHandle(rawURL string) bool

	// ContentRoot returns the node holding the article body
	ContentRoot(doc *html.Node) *html.Node

	// Skip reports whether an element inside the root is boilerplate
	Skip(n *html.Node) bool
}

// Registry picks an adapter per URL
type Registry struct {
	adapters []Adapter
	generic  Adapter
}

// NewRegistry creates a registry with the built-in adapters
func NewRegistry() *Registry {
	registry := &Registry{}
	registry.Register(NewWikipediaAdapter())
	registry.Register(NewLegalAdapter())
	registry.generic = NewGenericAdapter()
	return registry
}

// Register adds an adapter; earlier registrations win
func (r *Registry) Register(adapter Adapter) {
	r.adapters = append(r.adapters, adapter)
}

// FindAdapter returns the first adapter that can handle rawURL, or the generic one
func (r *Registry) FindAdapter(rawURL string) Adapter {
	for _, adapter := range r.adapters {
		if adapter.CanHandle(rawURL) {
			return adapter
		}
	}
	return r.generic
}

// BaseAdapter provides node helpers shared by adapters
type BaseAdapter struct{}

// HasClass checks if a node has a specific CSS class
func (b *BaseAdapter) HasClass(n *html.Node, className string) bool {
	if n.Type != html.ElementNode {
		return false
	}
	for _, attr := range n.Attr {
		if attr.Key == "class" {
			for _, class := range strings.Fields(attr.Val) {
				if class == className {
					return true
				}
			}
		}
	}
	return false
}

// GetAttribute gets an attribute value from a node
func (b *BaseAdapter) GetAttribute(n *html.Node, attrKey string) string {
	for _, attr := range n.Attr {
		if attr.Key == attrKey {
			return attr.Val
		}
	}
	return ""
}

// FindFirst finds the first node matching a predicate, depth first
func (b *BaseAdapter) FindFirst(n *html.Node, predicate func(*html.Node) bool) *html.Node {
	var result *html.Node

	var walk func(*html.Node) bool
	walk = func(node *html.Node) bool {
		if predicate(node) {
			result = node
			return true
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			if walk(c) {
				return true
			}
		}
		return false
	}

	walk(n)
	return result
}

// FirstElement finds the first element with one of the given tag names
func (b *BaseAdapter) FirstElement(n *html.Node, tags ...string) *html.Node {
	return b.FindFirst(n, func(node *html.Node) bool {
		if node.Type != html.ElementNode {
			return false
		}
		for _, t := range tags {
			if node.Data == t {
				return true
			}
		}
		return false
	})
}

// hostOf returns the lowercased host of rawURL without a www. prefix
func hostOf(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(strings.ToLower(parsed.Hostname()), "www.")
}

func hostMatches(host, domain string) bool {
	return host == domain || strings.HasSuffix(host, "."+domain)
}
