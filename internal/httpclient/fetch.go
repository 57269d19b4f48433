package httpclient

import (
	"bytes"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/brotli"
	"golang.org/x/net/html/charset"

	"orario/internal/core"
	"orario/internal/observability"
)

const (
	// DefaultUserAgent identifies the service to the school's web server.
	DefaultUserAgent = "Mozilla/5.0 (OrarioBot/1.0)"

	// DefaultMaxBodySize caps a single downloaded page.
	DefaultMaxBodySize = 5 * 1024 * 1024 // 5 MB
)

// Fetcher downloads timetable pages. It never retries; every failure is returned
// as a *core.Error of kind transport or parse.
type Fetcher struct {
	client      *http.Client
	userAgent   string
	maxBodySize int64
}

// NewFetcher creates a Fetcher on top of client. Empty values fall back to the defaults.
func NewFetcher(client *http.Client, userAgent string, maxBodySize int64) *Fetcher {
	if client == nil {
		client = NewHTTPClient(nil)
	}
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	if maxBodySize <= 0 {
		maxBodySize = DefaultMaxBodySize
	}
	return &Fetcher{
		client:      client,
		userAgent:   userAgent,
		maxBodySize: maxBodySize,
	}
}

// GetBytes downloads rawURL and returns the decoded body.
func (f *Fetcher) GetBytes(ctx context.Context, rawURL string) ([]byte, error) {
	body, _, err := f.get(ctx, rawURL)
	return body, err
}

// GetDocument downloads rawURL and parses it as HTML. The returned document's Url is
// set to rawURL so relative links can be resolved against it.
func (f *Fetcher) GetDocument(ctx context.Context, rawURL string) (*goquery.Document, error) {
	base, err := url.Parse(rawURL)
	if err != nil {
		return nil, core.NewTransportError(rawURL, 0, "invalid url", err)
	}

	body, contentType, err := f.get(ctx, rawURL)
	if err != nil {
		return nil, err
	}

	reader, err := charset.NewReader(bytes.NewReader(body), contentType)
	if err != nil {
		return nil, core.NewParseError(rawURL, "unsupported charset", err)
	}
	doc, err := goquery.NewDocumentFromReader(reader)
	if err != nil {
		return nil, core.NewParseError(rawURL, "reading html", err)
	}
	doc.Url = base
	return doc, nil
}

func (f *Fetcher) get(ctx context.Context, rawURL string) (body []byte, contentType string, err error) {
	start := time.Now()
	defer func() {
		observability.ObserveFetch(err, time.Since(start))
		if err != nil {
			slog.WarnContext(ctx, "document fetch failed",
				"url", rawURL,
				"duration_ms", time.Since(start).Milliseconds(),
				"error", err)
		}
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, "", core.NewTransportError(rawURL, 0, "creating request", err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")
	req.Header.Set("Accept-Encoding", "br, gzip")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, "", core.NewTransportError(rawURL, 0, "fetching document", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", core.NewTransportError(rawURL, resp.StatusCode,
			fmt.Sprintf("unexpected status %d", resp.StatusCode), nil)
	}

	decoded, err := decodeBody(resp)
	if err != nil {
		return nil, "", core.NewTransportError(rawURL, resp.StatusCode, "decoding response body", err)
	}
	defer decoded.Close()

	limited := io.LimitReader(decoded, f.maxBodySize+1)
	raw, err := io.ReadAll(limited)
	if err != nil {
		return nil, "", core.NewTransportError(rawURL, resp.StatusCode, "reading response body", err)
	}
	if int64(len(raw)) > f.maxBodySize {
		return nil, "", core.NewTransportError(rawURL, resp.StatusCode,
			fmt.Sprintf("response body too large (exceeds %d bytes)", f.maxBodySize), nil)
	}

	slog.DebugContext(ctx, "document fetched",
		"url", rawURL,
		"bytes", len(raw),
		"duration_ms", time.Since(start).Milliseconds())

	return raw, resp.Header.Get("Content-Type"), nil
}

// decodeBody undoes the content encoding negotiated through Accept-Encoding.
// Closing the returned reader leaves resp.Body to its own Close.
func decodeBody(resp *http.Response) (io.ReadCloser, error) {
	switch strings.ToLower(strings.TrimSpace(resp.Header.Get("Content-Encoding"))) {
	case "", "identity":
		return io.NopCloser(resp.Body), nil
	case "br":
		return io.NopCloser(brotli.NewReader(resp.Body)), nil
	case "gzip":
		return gzip.NewReader(resp.Body)
	default:
		return nil, fmt.Errorf("unsupported content encoding %q", resp.Header.Get("Content-Encoding"))
	}
}
