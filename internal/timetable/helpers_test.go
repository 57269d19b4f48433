package timetable

import (
	"net/url"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"
)

// mustDoc parses markup as if it had been fetched from rawURL.
func mustDoc(t *testing.T, rawURL, markup string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	require.NoError(t, err)
	if rawURL != "" {
		u, err := url.Parse(rawURL)
		require.NoError(t, err)
		doc.Url = u
	}
	return doc
}
