package timetable

import (
	"net/url"
	"sort"

	"github.com/PuerkitoBio/goquery"
	"github.com/cespare/xxhash/v2"

	"orario/internal/core"
)

// Index maps normalized entity names to the absolute URL of their timetable page,
// one mapping per category. It is never modified after BuildIndex returns.
type Index struct {
	entries [len(pathMarkers)]map[string]string
}

// NewIndex returns an index holding copies of the given mappings. Missing categories are empty.
func NewIndex(entries map[Category]map[string]string) *Index {
	ix := emptyIndex()
	for c, m := range entries {
		for name, target := range m {
			ix.entries[c][name] = target
		}
	}
	return ix
}

func emptyIndex() *Index {
	ix := &Index{}
	for i := range ix.entries {
		ix.entries[i] = make(map[string]string)
	}
	return ix
}

// Entries returns the name to URL mapping of one category. The map must not be modified.
func (ix *Index) Entries(c Category) map[string]string {
	if ix == nil || int(c) < 0 || int(c) >= len(ix.entries) {
		return nil
	}
	return ix.entries[c]
}

// Len returns the number of entries in one category.
func (ix *Index) Len(c Category) int {
	return len(ix.Entries(c))
}

// Fingerprint returns a digest of the index content, independent of map ordering.
// Two indexes built from pages listing the same links share a fingerprint.
func (ix *Index) Fingerprint() uint64 {
	h := xxhash.New()
	for _, c := range Categories {
		m := ix.Entries(c)
		names := make([]string, 0, len(m))
		for name := range m {
			names = append(names, name)
		}
		sort.Strings(names)

		_, _ = h.WriteString(c.String())
		_, _ = h.Write([]byte{0})
		for _, name := range names {
			_, _ = h.WriteString(name)
			_, _ = h.Write([]byte{0})
			_, _ = h.WriteString(m[name])
			_, _ = h.Write([]byte{0})
		}
	}
	return h.Sum64()
}

// BuildIndex scans every link of the index document and files it under the category
// its href points into. Links with no visible text or no recognised path marker are
// ignored; a repeated name overwrites the earlier entry of the same category.
// Relative hrefs are resolved against doc.Url when it is set.
func BuildIndex(doc *goquery.Document) (*Index, error) {
	if doc == nil || doc.Selection == nil {
		return nil, core.NewParseError("", "no document to index", nil)
	}

	var base *url.URL
	if doc.Url != nil {
		base = doc.Url
	}

	ix := emptyIndex()
	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		name := Normalize(textOf(a))
		if name == "" {
			return
		}
		href, _ := a.Attr("href")
		c, ok := Classify(href)
		if !ok {
			return
		}
		ix.entries[c][name] = resolveHref(base, href)
	})

	return ix, nil
}

func resolveHref(base *url.URL, href string) string {
	if base == nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return base.ResolveReference(ref).String()
}
