package cache

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"

	"orario/internal/observability"
	"orario/internal/timetable"
)

// DocumentFetcher is the part of httpclient.Fetcher the loader needs.
type DocumentFetcher interface {
	GetDocument(ctx context.Context, url string) (*goquery.Document, error)
}

// FetchLoader returns a Loader that downloads the index page with f and runs
// timetable.BuildIndex on it.
func FetchLoader(f DocumentFetcher) Loader {
	return func(ctx context.Context, url string) (*timetable.Index, error) {
		doc, err := f.GetDocument(ctx, url)
		if err != nil {
			return nil, err
		}
		return timetable.BuildIndex(doc)
	}
}

// MemoryCache implements IndexCache with a single in-process record.
// Concurrent misses may each load the index; the last one to finish is kept.
type MemoryCache struct {
	mu     sync.RWMutex
	loader Loader
	ttl    time.Duration

	source  string
	builtAt time.Time
	index   *timetable.Index
	// generation changes on every SetSource so a load that started against the
	// previous source does not repopulate the record.
	generation uint64
}

// NewMemoryCache creates an empty cache for the index page at source.
// A non-positive ttl means DefaultTTL.
func NewMemoryCache(source string, ttl time.Duration, loader Loader) *MemoryCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryCache{
		loader: loader,
		ttl:    ttl,
		source: source,
	}
}

// GetIndex returns the cached index or rebuilds it.
func (c *MemoryCache) GetIndex(ctx context.Context, now time.Time) (*timetable.Index, error) {
	c.mu.RLock()
	index, builtAt, source, generation := c.index, c.builtAt, c.source, c.generation
	c.mu.RUnlock()

	if index != nil && now.Sub(builtAt) < c.ttl {
		observability.CacheHit()
		return index, nil
	}
	observability.CacheMiss()

	fresh, err := c.loader(ctx, source)
	observability.IndexBuilt(err)
	if err != nil {
		return nil, fmt.Errorf("building index from %s: %w", source, err)
	}

	c.mu.Lock()
	stored := generation == c.generation
	if stored {
		c.index = fresh
		c.builtAt = now
	}
	c.mu.Unlock()

	if !stored {
		slog.InfoContext(ctx, "index source changed during rebuild, result not cached", "source", source)
		return fresh, nil
	}

	slog.InfoContext(ctx, "index rebuilt",
		"source", source,
		"classes", fresh.Len(timetable.CategoryClass),
		"teachers", fresh.Len(timetable.CategoryTeacher),
		"rooms", fresh.Len(timetable.CategoryRoom),
		"fingerprint", fingerprint(fresh),
		"changed", index == nil || index.Fingerprint() != fresh.Fingerprint(),
	)
	return fresh, nil
}

// SetSource switches to another index page and invalidates the record.
func (c *MemoryCache) SetSource(url string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.source = url
	c.index = nil
	c.builtAt = time.Time{}
	c.generation++
}

// Source returns the index page URL in use.
func (c *MemoryCache) Source() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.source
}

// Snapshot describes the current record.
func (c *MemoryCache) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	snap := Snapshot{Source: c.source}
	if c.index == nil {
		return snap
	}
	snap.BuiltAt = c.builtAt
	snap.Fingerprint = fingerprint(c.index)
	snap.Entries = make(map[string]int, len(timetable.Categories))
	for _, cat := range timetable.Categories {
		snap.Entries[cat.String()] = c.index.Len(cat)
	}
	return snap
}

func fingerprint(ix *timetable.Index) string {
	return strconv.FormatUint(ix.Fingerprint(), 16)
}
