// Package extract turns fetched HTML into plain text and picks the sentences
// most relevant to a claim.
package extract

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/net/html"
)

// ParseVisibleText parses HTML and returns its visible text
func ParseVisibleText(htmlContent string) (string, error) {
	doc, err := html.Parse(strings.NewReader(htmlContent))
	if err != nil {
		return "", err
	}
	return VisibleText(doc, nil), nil
}

// VisibleText collects text nodes under n, skipping scripts, styles and any
// element for which skip returns true.
func VisibleText(n *html.Node, skip func(*html.Node) bool) string {
	var buf strings.Builder

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "noscript", "iframe", "svg", "template", "head":
				return
			}
			if skip != nil && skip(n) {
				return
			}
		}

		if n.Type == html.TextNode {
			text := strings.TrimSpace(n.Data)
			if text != "" {
				buf.WriteString(text)
				buf.WriteString(" ")
			}
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}

	walk(n)
	return strings.Join(strings.Fields(buf.String()), " ")
}

// SplitSentences splits text on sentence terminators followed by whitespace.
// Fragments shorter than 30 or longer than 500 bytes are dropped.
func SplitSentences(text string) []string {
	text = strings.ReplaceAll(text, "\n", " ")

	var sentences []string
	var current strings.Builder

	keep := func() {
		sentence := strings.TrimSpace(current.String())
		if len(sentence) >= 30 && len(sentence) <= 500 {
			sentences = append(sentences, sentence)
		}
		current.Reset()
	}

	for i, r := range text {
		current.WriteRune(r)
		if r == '.' || r == '!' || r == '?' {
			next := i + utf8.RuneLen(r)
			if next < len(text) && (text[next] == ' ' || text[next] == '\t') {
				keep()
			}
		}
	}
	if current.Len() > 0 {
		keep()
	}

	return sentences
}

var stopwords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {}, "be": {}, "by": {},
	"does": {}, "for": {}, "from": {}, "has": {}, "have": {}, "in": {}, "is": {},
	"it": {}, "its": {}, "of": {}, "on": {}, "or": {}, "that": {}, "the": {},
	"this": {}, "to": {}, "was": {}, "were": {}, "with": {}, "not": {}, "no": {},
}

// Keywords returns the distinct lowercase content words of text, in order of appearance
func Keywords(text string) []string {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	seen := make(map[string]bool)
	var out []string
	for _, w := range words {
		if _, stop := stopwords[w]; stop || len(w) < 2 || seen[w] {
			continue
		}
		seen[w] = true
		out = append(out, w)
	}
	return out
}

// Excerpt picks the sentences of text that share the most keywords with query and
// returns them in document order, up to limit runes. Text without usable sentences
// is truncated instead.
func Excerpt(text, query string, limit int) string {
	if limit <= 0 {
		return ""
	}
	if utf8.RuneCountInString(text) <= limit {
		return text
	}

	sentences := SplitSentences(text)
	keywords := Keywords(query)
	if len(sentences) == 0 || len(keywords) == 0 {
		return truncateRunes(text, limit)
	}

	type scored struct {
		idx   int
		score int
	}
	ranked := make([]scored, 0, len(sentences))
	for i, s := range sentences {
		lower := strings.ToLower(s)
		n := 0
		for _, k := range keywords {
			if strings.Contains(lower, k) {
				n++
			}
		}
		if n > 0 {
			ranked = append(ranked, scored{idx: i, score: n})
		}
	}
	if len(ranked) == 0 {
		return truncateRunes(text, limit)
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].score > ranked[j].score })

	var picked []int
	used := 0
	for _, r := range ranked {
		n := utf8.RuneCountInString(sentences[r.idx]) + 1
		if used+n > limit {
			continue
		}
		picked = append(picked, r.idx)
		used += n
	}
	if len(picked) == 0 {
		return truncateRunes(sentences[ranked[0].idx], limit)
	}
	sort.Ints(picked)

	parts := make([]string, len(picked))
	for i, idx := range picked {
		parts[i] = sentences[idx]
	}
	return strings.Join(parts, " ")
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
