// Package timetable extracts a weekly school timetable from the HTML pages published by
// the school and answers point lookups against it.
//
// The index page links to one page per class, teacher and room; each of those pages holds
// a grid with one row per period and one column per weekday, where a lesson lasting more
// than one period is a single cell with a rowspan.
package timetable

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// nbsp is the placeholder the timetable generator writes into empty paragraphs.
const nbsp = "\u00a0"

// Clean collapses runs of whitespace into single spaces and trims the result.
func Clean(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Normalize is Clean followed by uppercasing. Names are compared in this form.
func Normalize(s string) string {
	return strings.ToUpper(Clean(s))
}

// textOf returns the text of every text node under sel, each one trimmed and the
// non-empty ones joined by a single space.
func textOf(sel *goquery.Selection) string {
	var parts []string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			if t := strings.TrimSpace(n.Data); t != "" {
				parts = append(parts, t)
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range sel.Nodes {
		walk(n)
	}
	return strings.Join(parts, " ")
}
