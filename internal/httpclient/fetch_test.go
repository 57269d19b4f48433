package httpclient

import (
	"bytes"
	"compress/gzip"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"orario/internal/core"
)

func TestGetDocument_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("User-Agent"); got != DefaultUserAgent {
			t.Errorf("User-Agent = %q, want %q", got, DefaultUserAgent)
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(`<html><body><a href="Classi/4F.html">4F</a></body></html>`))
	}))
	defer server.Close()

	f := NewFetcher(server.Client(), "", 0)
	doc, err := f.GetDocument(context.Background(), server.URL+"/orario/index.html")
	require.NoError(t, err)

	require.NotNil(t, doc.Url)
	assert.Equal(t, server.URL+"/orario/index.html", doc.Url.String())
	assert.Equal(t, "4F", doc.Find("a").Text())
}

func TestGetDocument_Latin1(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=iso-8859-1")
		// "Università" in Latin-1
		_, _ = w.Write([]byte("<p>Universit\xe0</p>"))
	}))
	defer server.Close()

	doc, err := NewFetcher(server.Client(), "", 0).GetDocument(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Equal(t, "Università", doc.Find("p").Text())
}

func TestGetBytes_CustomUserAgent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(r.Header.Get("User-Agent")))
	}))
	defer server.Close()

	body, err := NewFetcher(server.Client(), "test-agent/2", 0).GetBytes(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Equal(t, "test-agent/2", string(body))
}

func TestGetBytes_Brotli(t *testing.T) {
	var compressed bytes.Buffer
	bw := brotli.NewWriter(&compressed)
	_, _ = bw.Write([]byte("<table></table>"))
	require.NoError(t, bw.Close())

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.Header.Get("Accept-Encoding"), "br") {
			t.Error("expected br in Accept-Encoding")
		}
		w.Header().Set("Content-Encoding", "br")
		_, _ = w.Write(compressed.Bytes())
	}))
	defer server.Close()

	body, err := NewFetcher(server.Client(), "", 0).GetBytes(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Equal(t, "<table></table>", string(body))
}

func TestGetBytes_Gzip(t *testing.T) {
	var compressed bytes.Buffer
	gw := gzip.NewWriter(&compressed)
	_, _ = gw.Write([]byte("hello"))
	require.NoError(t, gw.Close())

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Encoding", "gzip")
		_, _ = w.Write(compressed.Bytes())
	}))
	defer server.Close()

	body, err := NewFetcher(server.Client(), "", 0).GetBytes(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(body))
}

func TestGetBytes_HTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	_, err := NewFetcher(server.Client(), "", 0).GetBytes(context.Background(), server.URL)
	require.Error(t, err)

	var e *core.Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, core.KindTransport, e.Kind)
	assert.Equal(t, http.StatusServiceUnavailable, e.StatusCode)
}

func TestGetBytes_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond)
		_, _ = w.Write([]byte("late"))
	}))
	defer server.Close()

	cfg := DefaultConfig()
	cfg.Timeout = 50 * time.Millisecond
	f := NewFetcher(NewHTTPClient(&cfg), "", 0)

	_, err := f.GetBytes(context.Background(), server.URL)
	require.Error(t, err)
	assert.True(t, core.IsKind(err, core.KindTransport))
}

func TestGetBytes_OversizedBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(strings.Repeat("x", 2048)))
	}))
	defer server.Close()

	_, err := NewFetcher(server.Client(), "", 1024).GetBytes(context.Background(), server.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "too large")
}

func TestGetDocument_InvalidURL(t *testing.T) {
	_, err := NewFetcher(nil, "", 0).GetDocument(context.Background(), "://bad")
	require.Error(t, err)
	assert.True(t, core.IsKind(err, core.KindTransport))
}

func TestNewHTTPClient_Defaults(t *testing.T) {
	client := NewHTTPClient(nil)
	assert.Equal(t, DefaultTimeout, client.Timeout)
}

// trackedBody records whether the response body was closed.
type trackedBody struct {
	io.Reader
	closed bool
}

func (b *trackedBody) Close() error {
	b.closed = true
	return nil
}

func TestDecodeBody(t *testing.T) {
	var gz bytes.Buffer
	gw := gzip.NewWriter(&gz)
	_, _ = gw.Write([]byte("orario"))
	require.NoError(t, gw.Close())

	var br bytes.Buffer
	bw := brotli.NewWriter(&br)
	_, _ = bw.Write([]byte("orario"))
	require.NoError(t, bw.Close())

	tests := []struct {
		encoding string
		body     []byte
	}{
		{encoding: "", body: []byte("orario")},
		{encoding: "identity", body: []byte("orario")},
		{encoding: "gzip", body: gz.Bytes()},
		{encoding: " BR ", body: br.Bytes()},
	}

	for _, tt := range tests {
		t.Run(tt.encoding, func(t *testing.T) {
			body := &trackedBody{Reader: bytes.NewReader(tt.body)}
			resp := &http.Response{Header: http.Header{"Content-Encoding": {tt.encoding}}, Body: body}

			decoded, err := decodeBody(resp)
			require.NoError(t, err)
			got, err := io.ReadAll(decoded)
			require.NoError(t, err)
			assert.Equal(t, "orario", string(got))

			require.NoError(t, decoded.Close())
			assert.False(t, body.closed)
		})
	}
}

func TestDecodeBody_GzipReaderIsClosable(t *testing.T) {
	var gz bytes.Buffer
	gw := gzip.NewWriter(&gz)
	_, _ = gw.Write([]byte("x"))
	require.NoError(t, gw.Close())

	resp := &http.Response{Header: http.Header{"Content-Encoding": {"gzip"}}, Body: io.NopCloser(&gz)}
	decoded, err := decodeBody(resp)
	require.NoError(t, err)
	assert.IsType(t, &gzip.Reader{}, decoded)
}

func TestDecodeBody_UnsupportedEncoding(t *testing.T) {
	resp := &http.Response{Header: http.Header{"Content-Encoding": {"zstd"}}, Body: io.NopCloser(strings.NewReader(""))}
	_, err := decodeBody(resp)
	assert.ErrorContains(t, err, "zstd")
}
